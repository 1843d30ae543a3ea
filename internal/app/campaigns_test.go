package app

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homestay_hub/internal/domain"
)

func newCampaigns(f *fixture) (*CampaignService, *fakeQR) {
	qr := &fakeQR{}
	s := NewCampaignService(f.store, f.cache, qr, "https://stay.example/")
	s.clock = fixedClock
	return s, qr
}

func TestCreateCampaign(t *testing.T) {
	f := newFixture(t)
	s, _ := newCampaigns(f)

	for _, n := range []int{0, maxCodesPerRequest + 1} {
		_, err := s.Create(f.ctx, NewCampaign{Name: "Summer", HomestayID: f.homestay.ID, QRCount: n})
		var verr *domain.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Fields, "qr_count")
	}

	past := fixedNow.Add(-time.Hour)
	_, err := s.Create(f.ctx, NewCampaign{Name: "Old", HomestayID: f.homestay.ID, QRCount: 1, ValidUntil: &past})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "valid_until")

	d, err := s.Create(f.ctx, NewCampaign{Name: "Summer", HomestayID: f.homestay.ID, DiscountPercent: 10, QRCount: 25, CreatedBy: f.admin.ID})
	require.NoError(t, err)
	assert.True(t, d.Campaign.Active)
	require.Len(t, d.Codes, 25)
	seen := map[string]bool{}
	for _, c := range d.Codes {
		assert.Len(t, c.Code, 12)
		assert.False(t, seen[c.Code])
		seen[c.Code] = true
	}

	codes, err := s.AddCodes(f.ctx, d.Campaign.ID, 5)
	require.NoError(t, err)
	assert.Len(t, codes, 5)

	require.NoError(t, s.Deactivate(f.ctx, d.Campaign.ID))
	_, err = s.AddCodes(f.ctx, d.Campaign.ID, 5)
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestRenderQR_EncodesLandingURL(t *testing.T) {
	f := newFixture(t)
	s, qr := newCampaigns(f)
	d, err := s.Create(f.ctx, NewCampaign{Name: "Print", HomestayID: f.homestay.ID, QRCount: 1})
	require.NoError(t, err)
	code := d.Codes[0].Code

	png, err := s.RenderQR(f.ctx, code, 0)
	require.NoError(t, err)
	assert.NotEmpty(t, png)
	assert.Equal(t, "https://stay.example/r/"+code, qr.content)
	assert.Equal(t, qrSizeDefault, qr.size)

	_, err = s.RenderQR(f.ctx, code, 10)
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = s.RenderQR(f.ctx, "NOPE", 256)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestQRReviewFlow(t *testing.T) {
	f := newFixture(t)
	s, _ := newCampaigns(f)
	d, err := s.Create(f.ctx, NewCampaign{Name: "Stay again", HomestayID: f.homestay.ID, DiscountPercent: 15, QRCount: 1})
	require.NoError(t, err)
	code := d.Codes[0].Code

	landing, err := s.Scan(f.ctx, strings.ToLower(code))
	require.NoError(t, err)
	assert.True(t, landing.Active)
	assert.Equal(t, 15, landing.RewardPercent)
	assert.Equal(t, "Pine Hill", landing.Homestay.Name)

	res, err := s.SubmitReview(f.ctx, f.guestP(), code, 5, "Great host")
	require.NoError(t, err)
	assert.Equal(t, domain.ReviewFromQR, res.Review.Source)
	require.NotNil(t, res.Discount)
	assert.True(t, strings.HasPrefix(res.Discount.Code, "STAY-"))
	assert.Len(t, res.Discount.Code, len("STAY-")+8)
	assert.Equal(t, fixedNow.Add(discountValidity), res.Discount.ExpiresAt)
	assert.Equal(t, 15, res.Discount.Percent)

	_, err = s.SubmitReview(f.ctx, f.guestP(), code, 4, "again")
	assert.ErrorIs(t, err, domain.ErrConflict)

	qr, err := f.store.GetQRCode(f.ctx, code)
	require.NoError(t, err)
	assert.Equal(t, 1, qr.Scans)
	assert.Equal(t, 1, qr.Submissions)

	_, err = s.SubmitReview(f.ctx, f.guestP(), code, 9, "")
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestQRReview_InactiveCampaignIsGone(t *testing.T) {
	f := newFixture(t)
	s, _ := newCampaigns(f)
	d, err := s.Create(f.ctx, NewCampaign{Name: "Done", HomestayID: f.homestay.ID, QRCount: 1})
	require.NoError(t, err)
	require.NoError(t, s.Deactivate(f.ctx, d.Campaign.ID))

	landing, err := s.Scan(f.ctx, d.Codes[0].Code)
	require.NoError(t, err)
	assert.False(t, landing.Active)
	assert.Zero(t, landing.RewardPercent)

	_, err = s.SubmitReview(f.ctx, f.guestP(), d.Codes[0].Code, 5, "")
	assert.ErrorIs(t, err, domain.ErrGone)
}

func TestQRReview_NoRewardWithoutDiscount(t *testing.T) {
	f := newFixture(t)
	s, _ := newCampaigns(f)
	d, err := s.Create(f.ctx, NewCampaign{Name: "Plain", HomestayID: f.homestay.ID, QRCount: 1})
	require.NoError(t, err)

	res, err := s.SubmitReview(f.ctx, f.guestP(), d.Codes[0].Code, 4, "ok")
	require.NoError(t, err)
	assert.Nil(t, res.Discount)
}

func TestQRReview_HiddenHomestayIsGone(t *testing.T) {
	f := newFixture(t)
	s, _ := newCampaigns(f)
	d, err := s.Create(f.ctx, NewCampaign{Name: "Summer", HomestayID: f.homestay.ID, DiscountPercent: 10, QRCount: 1})
	require.NoError(t, err)

	_, err = NewAdminService(f.store, f.cache).Suspend(f.ctx, f.homestay.ID)
	require.NoError(t, err)

	_, err = s.SubmitReview(f.ctx, f.guestP(), d.Codes[0].Code, 5, "nice")
	assert.ErrorIs(t, err, domain.ErrGone)

	page, err := f.store.ListReviews(f.ctx, f.homestay.ID, domain.PageQuery{})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
}

// failOnceStore fails the first rewarded review write without storing anything.
type failOnceStore struct {
	domain.Store
	failed bool
}

func (s *failOnceStore) CreateRewardedReview(ctx context.Context, r *domain.Review, d *domain.DiscountCode) error {
	if !s.failed {
		s.failed = true
		return errors.New("connection reset")
	}
	return s.Store.CreateRewardedReview(ctx, r, d)
}

func TestQRReview_RetryAfterFailedWriteEarnsReward(t *testing.T) {
	f := newFixture(t)
	st := &failOnceStore{Store: f.store}
	s := NewCampaignService(st, f.cache, &fakeQR{}, "https://stay.example/")
	s.clock = fixedClock
	d, err := s.Create(f.ctx, NewCampaign{Name: "Summer", HomestayID: f.homestay.ID, DiscountPercent: 10, QRCount: 1})
	require.NoError(t, err)
	code := d.Codes[0].Code

	_, err = s.SubmitReview(f.ctx, f.guestP(), code, 5, "nice")
	require.Error(t, err)
	dup, err := f.store.ReviewForCampaign(f.ctx, d.Campaign.ID, f.guest.ID)
	require.NoError(t, err)
	assert.False(t, dup)

	res, err := s.SubmitReview(f.ctx, f.guestP(), code, 5, "nice")
	require.NoError(t, err)
	require.NotNil(t, res.Discount)
	got, err := f.store.GetDiscountCode(f.ctx, res.Discount.Code)
	require.NoError(t, err)
	assert.Equal(t, f.guest.ID, got.GuestID)
}
