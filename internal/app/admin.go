package app

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/rs/zerolog/log"

	"homestay_hub/internal/domain"
)

const maxFeatured = 12

type AdminService struct {
	store domain.Store
	inv   invalidator
}

func NewAdminService(s domain.Store, c domain.Cache) *AdminService {
	return &AdminService{store: s, inv: invalidator{cache: c}}
}

type HomestayDetail struct {
	Homestay domain.Homestay
	Rooms    []domain.Room
}

func (s *AdminService) ListHomestays(ctx context.Context, status *domain.HomestayStatus, q string, pg domain.Page) (domain.HomestaysPage, error) {
	return s.store.ListHomestays(ctx, domain.HomestaysQuery{Status: status, Q: q, Page: normPage(pg)})
}

func (s *AdminService) GetHomestay(ctx context.Context, id int64) (HomestayDetail, error) {
	h, err := s.store.GetHomestay(ctx, id)
	if err != nil {
		return HomestayDetail{}, err
	}
	rooms, err := s.store.ListRooms(ctx, id)
	if err != nil {
		return HomestayDetail{}, err
	}
	return HomestayDetail{Homestay: h, Rooms: rooms}, nil
}

func (s *AdminService) Approve(ctx context.Context, id int64) (domain.Homestay, error) {
	return s.moderate(ctx, id, domain.HomestayApproved, "")
}

func (s *AdminService) Reject(ctx context.Context, id int64, reason string) (domain.Homestay, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return domain.Homestay{}, domain.NewValidationError("reason", "is required")
	}
	return s.moderate(ctx, id, domain.HomestayRejected, reason)
}

func (s *AdminService) Suspend(ctx context.Context, id int64) (domain.Homestay, error) {
	return s.moderate(ctx, id, domain.HomestaySuspended, "")
}

func (s *AdminService) moderate(ctx context.Context, id int64, next domain.HomestayStatus, reason string) (domain.Homestay, error) {
	h, err := s.store.GetHomestay(ctx, id)
	if err != nil {
		return domain.Homestay{}, err
	}
	if !h.CanModerate(next) {
		return domain.Homestay{}, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, h.Status, next)
	}
	prev := h.Status
	h.Status = next
	h.RejectionReason = nil
	if reason != "" {
		h.RejectionReason = &reason
	}
	if next != domain.HomestayApproved {
		h.FeaturedRank = nil
	}
	if err := s.store.UpdateHomestay(ctx, h); err != nil {
		return domain.Homestay{}, err
	}
	s.inv.homestay(ctx, id)
	log.Info().Int64("homestay_id", id).Str("from", string(prev)).Str("to", string(next)).Msg("homestay moderated")
	return h, nil
}

/********** featured curation **********/

func (s *AdminService) Featured(ctx context.Context) ([]domain.Homestay, error) {
	return s.store.ListFeatured(ctx)
}

// SetFeatured replaces the ordered featured selection.
func (s *AdminService) SetFeatured(ctx context.Context, ids []int64) error {
	if len(ids) > maxFeatured {
		return domain.NewValidationError("homestay_ids", fmt.Sprintf("at most %d entries", maxFeatured))
	}
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return domain.NewValidationError("homestay_ids", fmt.Sprintf("duplicate id %d", id))
		}
		seen[id] = struct{}{}
		h, err := s.store.GetHomestay(ctx, id)
		if err != nil {
			return fmt.Errorf("homestay %d: %w", id, err)
		}
		if !h.Public() {
			return domain.NewValidationError("homestay_ids", fmt.Sprintf("homestay %d is not approved", id))
		}
	}
	if err := s.store.SetFeatured(ctx, ids); err != nil {
		return err
	}
	if s.inv.cache != nil {
		_ = s.inv.cache.Del(ctx, featuredKey)
	}
	return nil
}

/********** master data **********/

func (s *AdminService) ListMaster(ctx context.Context, kind domain.MasterKind) ([]domain.MasterItem, error) {
	return s.store.ListMaster(ctx, kind)
}

func (s *AdminService) CreateMaster(ctx context.Context, it domain.MasterItem) (domain.MasterItem, error) {
	if err := normMaster(&it); err != nil {
		return domain.MasterItem{}, err
	}
	if err := s.store.CreateMaster(ctx, &it); err != nil {
		return domain.MasterItem{}, err
	}
	s.inv.master(ctx, it.Kind)
	return it, nil
}

func (s *AdminService) UpdateMaster(ctx context.Context, it domain.MasterItem) (domain.MasterItem, error) {
	if err := normMaster(&it); err != nil {
		return domain.MasterItem{}, err
	}
	if err := s.store.UpdateMaster(ctx, it); err != nil {
		return domain.MasterItem{}, err
	}
	s.inv.master(ctx, it.Kind)
	if err := s.dropViewsUsing(ctx, it); err != nil {
		log.Warn().Err(err).Str("kind", string(it.Kind)).Int64("id", it.ID).Msg("homestay views not refreshed after rename")
	}
	return it, nil
}

// dropViewsUsing invalidates the cached public views that embed its name.
func (s *AdminService) dropViewsUsing(ctx context.Context, it domain.MasterItem) error {
	if s.inv.cache == nil {
		return nil
	}
	approved := domain.HomestayApproved
	q := domain.HomestaysQuery{Status: &approved, Page: domain.Page{Number: 1, Limit: 200}}
	if it.Kind == domain.KindDestination {
		q.DestinationID = &it.ID
	}
	for {
		page, err := s.store.ListHomestays(ctx, q)
		if err != nil {
			return err
		}
		for _, h := range page.Items {
			if usesMaster(h, it) {
				_ = s.inv.cache.Del(ctx, homestayKey(h.ID))
			}
		}
		if len(page.Items) < q.Page.Limit {
			break
		}
		q.Page.Number++
	}
	_ = s.inv.cache.Del(ctx, featuredKey)
	return nil
}

func usesMaster(h domain.Homestay, it domain.MasterItem) bool {
	switch it.Kind {
	case domain.KindDestination:
		return h.DestinationID == it.ID
	case domain.KindPropertyType:
		return h.PropertyTypeID == it.ID
	case domain.KindAmenity:
		return slices.Contains(h.AmenityIDs, it.ID)
	}
	return false
}

func (s *AdminService) DeleteMaster(ctx context.Context, kind domain.MasterKind, id int64) error {
	if err := s.store.DeleteMaster(ctx, kind, id); err != nil {
		return err
	}
	s.inv.master(ctx, kind)
	return nil
}

func normMaster(it *domain.MasterItem) error {
	it.Name = strings.TrimSpace(it.Name)
	if it.Name == "" {
		return domain.NewValidationError("name", "is required")
	}
	if it.Kind == domain.KindDestination {
		if it.Slug = slugify(it.Name); it.Slug == "" {
			return domain.NewValidationError("name", "must contain letters or digits")
		}
	} else {
		it.Slug, it.Description, it.Image = "", "", ""
	}
	if it.Kind != domain.KindAmenity {
		it.Icon = ""
	}
	return nil
}

/********** communities **********/

func (s *AdminService) ListCommunities(ctx context.Context) ([]domain.Community, error) {
	return s.store.ListCommunities(ctx)
}

func (s *AdminService) GetCommunity(ctx context.Context, id int64) (domain.Community, error) {
	return s.store.GetCommunity(ctx, id)
}

func (s *AdminService) SaveCommunity(ctx context.Context, c domain.Community) (domain.Community, error) {
	c.Name = strings.TrimSpace(c.Name)
	verr := &domain.ValidationError{}
	if c.Name == "" {
		verr.Add("name", "is required")
	}
	if c.Slug = slugify(c.Name); c.Slug == "" && c.Name != "" {
		verr.Add("name", "must contain letters or digits")
	}
	if _, err := s.store.GetMaster(ctx, domain.KindDestination, c.DestinationID); err != nil {
		verr.Add("destination_id", "unknown destination")
	}
	if c.ManagerID != nil {
		if _, err := s.store.GetManager(ctx, *c.ManagerID); err != nil {
			verr.Add("manager_id", "unknown manager")
		}
	}
	if err := verr.OrNil(); err != nil {
		return domain.Community{}, err
	}
	var err error
	if c.ID == 0 {
		err = s.store.CreateCommunity(ctx, &c)
	} else {
		err = s.store.UpdateCommunity(ctx, c)
	}
	if err != nil {
		return domain.Community{}, err
	}
	s.inv.communities(ctx)
	return c, nil
}

func (s *AdminService) DeleteCommunity(ctx context.Context, id int64) error {
	if err := s.store.DeleteCommunity(ctx, id); err != nil {
		return err
	}
	s.inv.communities(ctx)
	return nil
}

// AssignHomestays makes ids the exact membership of a community.
func (s *AdminService) AssignHomestays(ctx context.Context, communityID int64, ids []int64) error {
	if err := s.store.AssignCommunity(ctx, communityID, ids); err != nil {
		return err
	}
	for _, id := range ids {
		s.inv.homestay(ctx, id)
	}
	s.inv.communities(ctx)
	return nil
}

func (s *AdminService) ListManagers(ctx context.Context) ([]domain.CommunityManager, error) {
	return s.store.ListManagers(ctx)
}

func (s *AdminService) SaveManager(ctx context.Context, m domain.CommunityManager) (domain.CommunityManager, error) {
	m.Name = strings.TrimSpace(m.Name)
	if m.Name == "" {
		return domain.CommunityManager{}, domain.NewValidationError("name", "is required")
	}
	var err error
	if m.ID == 0 {
		err = s.store.CreateManager(ctx, &m)
	} else {
		err = s.store.UpdateManager(ctx, m)
	}
	if err != nil {
		return domain.CommunityManager{}, err
	}
	return m, nil
}

func (s *AdminService) DeleteManager(ctx context.Context, id int64) error {
	if err := s.store.DeleteManager(ctx, id); err != nil {
		return err
	}
	s.inv.communities(ctx)
	return nil
}
