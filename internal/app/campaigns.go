package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"homestay_hub/internal/adapters/observability"
	"homestay_hub/internal/domain"
)

const (
	maxCodesPerRequest = 500
	discountValidity   = 90 * 24 * time.Hour
	qrSizeDefault      = 256
)

type CampaignService struct {
	store   domain.Store
	qr      domain.QRRenderer
	baseURL string
	inv     invalidator
	clock   clock
}

func NewCampaignService(s domain.Store, c domain.Cache, qr domain.QRRenderer, publicBaseURL string) *CampaignService {
	return &CampaignService{store: s, qr: qr, baseURL: strings.TrimRight(publicBaseURL, "/"), inv: invalidator{cache: c}}
}

type NewCampaign struct {
	Name            string
	HomestayID      int64
	DiscountPercent int
	ValidUntil      *time.Time
	QRCount         int
	CreatedBy       int64
}

type CampaignDetail struct {
	Campaign domain.Campaign
	Codes    []domain.QRCode
}

func newCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
}

func newCodes(n int) []string {
	seen := make(map[string]struct{}, n)
	out := make([]string, 0, n)
	for len(out) < n {
		c := newCode()
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

func validCount(n int) error {
	if n < 1 || n > maxCodesPerRequest {
		return domain.NewValidationError("qr_count", fmt.Sprintf("must be between 1 and %d", maxCodesPerRequest))
	}
	return nil
}

func (s *CampaignService) Create(ctx context.Context, in NewCampaign) (CampaignDetail, error) {
	verr := &domain.ValidationError{}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		verr.Add("name", "is required")
	}
	if in.DiscountPercent < 0 || in.DiscountPercent > 100 {
		verr.Add("discount_percent", "must be between 0 and 100")
	}
	if in.ValidUntil != nil && !in.ValidUntil.After(s.clock.now()) {
		verr.Add("valid_until", "must be in the future")
	}
	if in.QRCount < 1 || in.QRCount > maxCodesPerRequest {
		verr.Add("qr_count", fmt.Sprintf("must be between 1 and %d", maxCodesPerRequest))
	}
	if h, err := s.store.GetHomestay(ctx, in.HomestayID); err != nil || !h.Public() {
		verr.Add("homestay_id", "must reference an approved homestay")
	}
	if err := verr.OrNil(); err != nil {
		return CampaignDetail{}, err
	}

	c := domain.Campaign{
		Name:            name,
		HomestayID:      in.HomestayID,
		DiscountPercent: in.DiscountPercent,
		ValidUntil:      in.ValidUntil,
		Active:          true,
		CreatedBy:       in.CreatedBy,
	}
	if err := s.store.CreateCampaign(ctx, &c, newCodes(in.QRCount)); err != nil {
		return CampaignDetail{}, err
	}
	log.Info().Int64("campaign_id", c.ID).Int("codes", in.QRCount).Msg("campaign created")
	return s.Get(ctx, c.ID)
}

func (s *CampaignService) List(ctx context.Context, pg domain.Page) ([]domain.Campaign, error) {
	return s.store.ListCampaigns(ctx, normPage(pg))
}

func (s *CampaignService) Get(ctx context.Context, id int64) (CampaignDetail, error) {
	c, err := s.store.GetCampaign(ctx, id)
	if err != nil {
		return CampaignDetail{}, err
	}
	codes, err := s.store.ListQRCodes(ctx, id)
	if err != nil {
		return CampaignDetail{}, err
	}
	return CampaignDetail{Campaign: c, Codes: codes}, nil
}

func (s *CampaignService) Deactivate(ctx context.Context, id int64) error {
	return s.store.DeactivateCampaign(ctx, id)
}

func (s *CampaignService) AddCodes(ctx context.Context, id int64, n int) ([]string, error) {
	if err := validCount(n); err != nil {
		return nil, err
	}
	c, err := s.store.GetCampaign(ctx, id)
	if err != nil {
		return nil, err
	}
	if !c.Active {
		return nil, fmt.Errorf("%w: campaign is inactive", domain.ErrConflict)
	}
	codes := newCodes(n)
	if err := s.store.AddQRCodes(ctx, id, codes); err != nil {
		return nil, err
	}
	return codes, nil
}

// LandingURL is what a printed QR code encodes.
func (s *CampaignService) LandingURL(code string) string { return s.baseURL + "/r/" + code }

func (s *CampaignService) RenderQR(ctx context.Context, code string, size int) ([]byte, error) {
	if _, err := s.store.GetQRCode(ctx, code); err != nil {
		return nil, err
	}
	if size <= 0 {
		size = qrSizeDefault
	}
	if size < 64 || size > 2048 {
		return nil, domain.NewValidationError("size", "must be between 64 and 2048")
	}
	return s.qr.PNG(s.LandingURL(code), size)
}

/********** review flow **********/

type QRLanding struct {
	Code          string
	CampaignName  string
	Homestay      domain.HomestayView
	Active        bool
	RewardPercent int
}

// Scan resolves a printed code and counts the visit.
func (s *CampaignService) Scan(ctx context.Context, code string) (QRLanding, error) {
	qr, c, err := s.resolve(ctx, code)
	if err != nil {
		return QRLanding{}, err
	}
	h, err := s.store.GetHomestay(ctx, c.HomestayID)
	if err != nil {
		return QRLanding{}, err
	}
	hv, err := buildView(ctx, s.store, h, false)
	if err != nil {
		return QRLanding{}, err
	}
	if err := s.store.IncrementScan(ctx, qr.Code); err != nil {
		log.Warn().Err(err).Str("code", qr.Code).Msg("qr scan count failed")
	}
	observability.ObserveQR("scan")
	live := c.Live(s.clock.now()) && h.Public()
	out := QRLanding{Code: qr.Code, CampaignName: c.Name, Homestay: hv, Active: live}
	if live {
		out.RewardPercent = c.DiscountPercent
	}
	return out, nil
}

func (s *CampaignService) resolve(ctx context.Context, code string) (domain.QRCode, domain.Campaign, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	qr, err := s.store.GetQRCode(ctx, code)
	if err != nil {
		return domain.QRCode{}, domain.Campaign{}, err
	}
	c, err := s.store.GetCampaign(ctx, qr.CampaignID)
	if err != nil {
		return domain.QRCode{}, domain.Campaign{}, err
	}
	return qr, c, nil
}

type QRReviewResult struct {
	Review   domain.Review
	Discount *domain.DiscountCode
}

// SubmitReview stores a guest's review reached through a QR code and issues
// the campaign's reward when it has one.
func (s *CampaignService) SubmitReview(ctx context.Context, p domain.Principal, code string, rating int, comment string) (QRReviewResult, error) {
	if err := validateRating(rating, comment); err != nil {
		return QRReviewResult{}, err
	}
	qr, c, err := s.resolve(ctx, code)
	if err != nil {
		return QRReviewResult{}, err
	}
	now := s.clock.now()
	if !c.Live(now) {
		return QRReviewResult{}, fmt.Errorf("%w: campaign has ended", domain.ErrGone)
	}
	h, err := s.store.GetHomestay(ctx, c.HomestayID)
	if err != nil {
		return QRReviewResult{}, err
	}
	if !h.Public() {
		return QRReviewResult{}, fmt.Errorf("%w: homestay is not listed", domain.ErrGone)
	}
	if err := s.noCampaignReview(ctx, c.ID, p.UserID); err != nil {
		return QRReviewResult{}, err
	}

	cid := c.ID
	r := domain.Review{
		HomestayID: c.HomestayID,
		GuestID:    p.UserID,
		CampaignID: &cid,
		Rating:     rating,
		Comment:    strings.TrimSpace(comment),
		Source:     domain.ReviewFromQR,
	}
	var d *domain.DiscountCode
	for i := 0; ; i++ {
		if c.Rewards() {
			nd := newDiscount(p.UserID, c, now)
			d = &nd
		}
		err = s.store.CreateRewardedReview(ctx, &r, d)
		if err == nil {
			break
		}
		if !errors.Is(err, domain.ErrConflict) || i == 2 {
			return QRReviewResult{}, err
		}
		// a conflict is either a concurrent review or a code collision
		if err := s.noCampaignReview(ctx, c.ID, p.UserID); err != nil {
			return QRReviewResult{}, err
		}
	}
	if err := s.store.IncrementSubmission(ctx, qr.Code); err != nil {
		log.Warn().Err(err).Str("code", qr.Code).Msg("qr submission count failed")
	}
	s.inv.reviews(ctx, c.HomestayID)
	observability.ObserveQR("review")

	out := QRReviewResult{Review: r, Discount: d}
	if d != nil {
		observability.ObserveQR("reward")
	}
	return out, nil
}

func (s *CampaignService) noCampaignReview(ctx context.Context, campaignID, guestID int64) error {
	dup, err := s.store.ReviewForCampaign(ctx, campaignID, guestID)
	if err != nil {
		return err
	}
	if dup {
		return fmt.Errorf("%w: already reviewed through this campaign", domain.ErrConflict)
	}
	return nil
}

func newDiscount(guestID int64, c domain.Campaign, now time.Time) domain.DiscountCode {
	return domain.DiscountCode{
		Code:       "STAY-" + newCode()[:8],
		GuestID:    guestID,
		CampaignID: c.ID,
		Percent:    c.DiscountPercent,
		ExpiresAt:  now.Add(discountValidity),
	}
}

func validateRating(rating int, comment string) error {
	verr := &domain.ValidationError{}
	if rating < 1 || rating > 5 {
		verr.Add("rating", "must be between 1 and 5")
	}
	if len([]rune(comment)) > 2000 {
		verr.Add("comment", "must be at most 2000 characters")
	}
	return verr.OrNil()
}
