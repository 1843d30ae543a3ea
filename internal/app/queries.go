package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"homestay_hub/internal/domain"
)

// Cache keys shared by readers and the services that invalidate them.
func homestayKey(id int64) string { return fmt.Sprintf("homestay:%d", id) }
func reviewsKey(id int64, limit int, sort string) string {
	return fmt.Sprintf("reviews:%d:%d:%s", id, limit, sort)
}
func masterKey(kind domain.MasterKind) string { return "master:" + string(kind) }

const (
	featuredKey    = "featured"
	communitiesKey = "communities"
)

// reviewLimits are the page sizes cached for the public reviews endpoint;
// any smaller request is served from the next size up.
var reviewLimits = []int{10, 20, 50, 100, 200}

const reviewsSort = "-created_at"

type QueryService struct {
	store    domain.Store
	cache    domain.Cache
	cacheTTL time.Duration
}

func NewQueryService(s domain.Store, c domain.Cache, ttl time.Duration) *QueryService {
	return &QueryService{store: s, cache: c, cacheTTL: ttl}
}

func (s *QueryService) ttl() int { return int(s.cacheTTL.Seconds()) }

// GetHomestay returns the public view of an approved homestay.
func (s *QueryService) GetHomestay(ctx context.Context, id int64) (domain.HomestayView, error) {
	key := homestayKey(id)
	var hv domain.HomestayView
	if ok, _ := s.cache.Get(ctx, key, &hv); ok {
		return hv, nil
	}
	h, err := s.store.GetHomestay(ctx, id)
	if err != nil {
		return domain.HomestayView{}, err
	}
	if !h.Public() {
		return domain.HomestayView{}, domain.ErrNotFound
	}
	hv, err = buildView(ctx, s.store, h, true)
	if err != nil {
		return domain.HomestayView{}, err
	}
	_ = s.cache.Set(ctx, key, hv, s.ttl())
	return hv, nil
}

// reviewBucket maps a requested page size onto the cached size that covers
// it; false means the request is not cacheable.
func reviewBucket(limit int) (int, bool) {
	for _, b := range reviewLimits {
		if limit > 0 && limit <= b {
			return b, true
		}
	}
	return 0, false
}

func (s *QueryService) ListReviews(ctx context.Context, id int64, pg domain.PageQuery) (domain.ReviewsPage, error) {
	if _, err := s.GetHomestay(ctx, id); err != nil {
		return domain.ReviewsPage{}, err
	}

	bucket, cacheable := reviewBucket(pg.Limit)
	if pg.Sort != "" && pg.Sort != reviewsSort {
		cacheable = false
	}
	if !cacheable {
		return s.store.ListReviews(ctx, id, pg)
	}

	key := reviewsKey(id, bucket, reviewsSort)
	var out domain.ReviewsPage
	if ok, _ := s.cache.Get(ctx, key, &out); ok {
		return truncateReviews(out, pg.Limit), nil
	}
	rs, err := s.store.ListReviews(ctx, id, domain.PageQuery{Limit: bucket, Sort: reviewsSort})
	if err != nil {
		return domain.ReviewsPage{}, err
	}

	// copy slice to avoid aliasing the repo's backing array
	copyRS := deepCopyReviewsPage(rs)

	// optional size guard
	if b, _ := json.Marshal(copyRS); len(b) < 1_000_000 {
		_ = s.cache.Set(ctx, key, copyRS, s.ttl())
	}
	return truncateReviews(copyRS, pg.Limit), nil
}

func truncateReviews(p domain.ReviewsPage, limit int) domain.ReviewsPage {
	if limit > 0 && len(p.Items) > limit {
		p.Items = p.Items[:limit]
	}
	return p
}

func deepCopyReviewsPage(in domain.ReviewsPage) domain.ReviewsPage {
	out := domain.ReviewsPage{NextCursor: in.NextCursor}
	if n := len(in.Items); n > 0 {
		out.Items = make([]domain.Review, n)
		copy(out.Items, in.Items)
	}
	return out
}

func (s *QueryService) Featured(ctx context.Context) ([]domain.HomestayView, error) {
	var out []domain.HomestayView
	if ok, _ := s.cache.Get(ctx, featuredKey, &out); ok {
		return out, nil
	}
	hs, err := s.store.ListFeatured(ctx)
	if err != nil {
		return nil, err
	}
	out = make([]domain.HomestayView, 0, len(hs))
	for _, h := range hs {
		hv, err := buildView(ctx, s.store, h, false)
		if err != nil {
			return nil, err
		}
		out = append(out, hv)
	}
	_ = s.cache.Set(ctx, featuredKey, out, s.ttl())
	return out, nil
}

func (s *QueryService) ListMaster(ctx context.Context, kind domain.MasterKind) ([]domain.MasterItem, error) {
	key := masterKey(kind)
	var out []domain.MasterItem
	if ok, _ := s.cache.Get(ctx, key, &out); ok {
		return out, nil
	}
	out, err := s.store.ListMaster(ctx, kind)
	if err != nil {
		return nil, err
	}
	_ = s.cache.Set(ctx, key, out, s.ttl())
	return out, nil
}

type BrowseQuery struct {
	DestinationSlug string
	Guests          int
	MinPrice        *string
	MaxPrice        *string
	Page            domain.Page
}

type BrowsePage struct {
	Destination domain.MasterItem
	Items       []domain.HomestayView
	Total       int
}

// BrowseDestination lists approved homestays of a destination.
func (s *QueryService) BrowseDestination(ctx context.Context, q BrowseQuery) (BrowsePage, error) {
	dest, err := s.store.GetDestinationBySlug(ctx, q.DestinationSlug)
	if err != nil {
		return BrowsePage{}, err
	}
	hq := domain.HomestaysQuery{
		Status:        statusPtr(domain.HomestayApproved),
		DestinationID: &dest.ID,
		Guests:        q.Guests,
		Page:          normPage(q.Page),
	}
	verr := &domain.ValidationError{}
	if hq.MinPrice, err = parseMoneyPtr(q.MinPrice); err != nil {
		verr.Add("min_price", "must be a decimal amount")
	}
	if hq.MaxPrice, err = parseMoneyPtr(q.MaxPrice); err != nil {
		verr.Add("max_price", "must be a decimal amount")
	}
	if err := verr.OrNil(); err != nil {
		return BrowsePage{}, err
	}
	page, err := s.store.ListHomestays(ctx, hq)
	if err != nil {
		return BrowsePage{}, err
	}
	out := BrowsePage{Destination: dest, Total: page.Total}
	for _, h := range page.Items {
		hv, err := buildView(ctx, s.store, h, false)
		if err != nil {
			return BrowsePage{}, err
		}
		out.Items = append(out.Items, hv)
	}
	return out, nil
}

func (s *QueryService) ListCommunities(ctx context.Context) ([]domain.Community, error) {
	var out []domain.Community
	if ok, _ := s.cache.Get(ctx, communitiesKey, &out); ok {
		return out, nil
	}
	out, err := s.store.ListCommunities(ctx)
	if err != nil {
		return nil, err
	}
	_ = s.cache.Set(ctx, communitiesKey, out, s.ttl())
	return out, nil
}

type CommunityView struct {
	Community domain.Community
	Manager   *domain.CommunityManager
	Homestays []domain.HomestayView
}

// GetCommunity returns a community with its approved member homestays.
func (s *QueryService) GetCommunity(ctx context.Context, slug string) (CommunityView, error) {
	c, err := s.store.GetCommunityBySlug(ctx, slug)
	if err != nil {
		return CommunityView{}, err
	}
	out := CommunityView{Community: c}
	if c.ManagerID != nil {
		m, err := s.store.GetManager(ctx, *c.ManagerID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return CommunityView{}, err
		}
		if err == nil {
			out.Manager = &m
		}
	}
	page, err := s.store.ListHomestays(ctx, domain.HomestaysQuery{
		Status:      statusPtr(domain.HomestayApproved),
		CommunityID: &c.ID,
	})
	if err != nil {
		return CommunityView{}, err
	}
	for _, h := range page.Items {
		hv, err := buildView(ctx, s.store, h, false)
		if err != nil {
			return CommunityView{}, err
		}
		out.Homestays = append(out.Homestays, hv)
	}
	return out, nil
}

// invalidator drops cached public reads after a write.
type invalidator struct{ cache domain.Cache }

func (iv invalidator) homestay(ctx context.Context, id int64) {
	if iv.cache == nil {
		return
	}
	_ = iv.cache.Del(ctx, homestayKey(id))
	_ = iv.cache.Del(ctx, featuredKey)
	iv.reviewPages(ctx, id)
}

func (iv invalidator) reviews(ctx context.Context, homestayID int64) {
	if iv.cache == nil {
		return
	}
	iv.reviewPages(ctx, homestayID)
	_ = iv.cache.Del(ctx, homestayKey(homestayID))
}

func (iv invalidator) reviewPages(ctx context.Context, homestayID int64) {
	for _, lim := range reviewLimits {
		_ = iv.cache.Del(ctx, reviewsKey(homestayID, lim, reviewsSort))
	}
}

func (iv invalidator) master(ctx context.Context, kind domain.MasterKind) {
	if iv.cache == nil {
		return
	}
	_ = iv.cache.Del(ctx, masterKey(kind))
}

func (iv invalidator) communities(ctx context.Context) {
	if iv.cache == nil {
		return
	}
	_ = iv.cache.Del(ctx, communitiesKey)
}
