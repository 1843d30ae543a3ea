package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homestay_hub/internal/domain"
)

func ptr[T any](v T) *T { return &v }

func TestGetHomestay_CacheMissThenHit(t *testing.T) {
	f := newFixture(t)
	q := NewQueryService(f.store, f.cache, 10*time.Minute)

	// Miss (first time, populates cache)
	hv, err := q.GetHomestay(f.ctx, f.homestay.ID)
	require.NoError(t, err)
	assert.Equal(t, "Pine Hill", hv.Name)
	assert.Equal(t, "Da Lat", hv.Destination)
	assert.Equal(t, "Villa", hv.PropertyType)
	assert.Equal(t, []string{"Wifi"}, hv.Amenities)
	require.Len(t, hv.Rooms, 1)
	require.NotNil(t, hv.FromPrice)
	assert.Equal(t, "50", hv.FromPrice.String())
	assert.True(t, f.cache.has(homestayKey(f.homestay.ID)))

	// Mutate the store to ensure the second read comes from cache
	h := f.homestay
	h.Name = "SHOULD NOT SEE THIS"
	require.NoError(t, f.store.UpdateHomestay(f.ctx, h))

	hv2, err := q.GetHomestay(f.ctx, f.homestay.ID)
	require.NoError(t, err)
	assert.Equal(t, "Pine Hill", hv2.Name)
}

func TestGetHomestay_HidesUnapproved(t *testing.T) {
	f := newFixture(t)
	h := f.homestay
	h.Status = domain.HomestaySuspended
	require.NoError(t, f.store.UpdateHomestay(f.ctx, h))

	q := NewQueryService(f.store, f.cache, time.Minute)
	_, err := q.GetHomestay(f.ctx, h.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListReviews_Cache(t *testing.T) {
	f := newFixture(t)
	r := domain.Review{HomestayID: f.homestay.ID, GuestID: f.guest.ID, Rating: 5, Comment: "Lovely", Source: domain.ReviewFromQR, CampaignID: ptr(int64(1))}
	require.NoError(t, f.store.CreateReview(f.ctx, &r))

	q := NewQueryService(f.store, f.cache, 10*time.Minute)
	pg := domain.PageQuery{Limit: 10, Sort: "-created_at"}
	out, err := q.ListReviews(f.ctx, f.homestay.ID, pg)
	require.NoError(t, err)
	require.Len(t, out.Items, 1)
	assert.Equal(t, "Gia", out.Items[0].GuestName)

	// a new review is invisible until the cache entry is dropped
	r2 := domain.Review{HomestayID: f.homestay.ID, GuestID: f.admin.ID, Rating: 3, Source: domain.ReviewFromQR, CampaignID: ptr(int64(2))}
	require.NoError(t, f.store.CreateReview(f.ctx, &r2))
	out, _ = q.ListReviews(f.ctx, f.homestay.ID, pg)
	assert.Len(t, out.Items, 1)

	invalidator{cache: f.cache}.reviews(f.ctx, f.homestay.ID)
	out, _ = q.ListReviews(f.ctx, f.homestay.ID, pg)
	assert.Len(t, out.Items, 2)
}

func TestListReviews_SmallPageSeesInvalidation(t *testing.T) {
	f := newFixture(t)
	q := NewQueryService(f.store, f.cache, 10*time.Minute)
	pg := domain.PageQuery{Limit: 5, Sort: "-created_at"}

	out, err := q.ListReviews(f.ctx, f.homestay.ID, pg)
	require.NoError(t, err)
	require.Empty(t, out.Items)
	assert.True(t, f.cache.has(reviewsKey(f.homestay.ID, 10, "-created_at")))

	r := domain.Review{HomestayID: f.homestay.ID, GuestID: f.guest.ID, Rating: 4, Source: domain.ReviewFromQR, CampaignID: ptr(int64(1))}
	require.NoError(t, f.store.CreateReview(f.ctx, &r))
	invalidator{cache: f.cache}.reviews(f.ctx, f.homestay.ID)

	out, err = q.ListReviews(f.ctx, f.homestay.ID, pg)
	require.NoError(t, err)
	assert.Len(t, out.Items, 1)
}

func TestListReviews_TruncatesCachedBucket(t *testing.T) {
	f := newFixture(t)
	for i, g := range []int64{f.guest.ID, f.admin.ID, f.host.ID} {
		r := domain.Review{HomestayID: f.homestay.ID, GuestID: g, Rating: 5, Source: domain.ReviewFromQR, CampaignID: ptr(int64(i + 1))}
		require.NoError(t, f.store.CreateReview(f.ctx, &r))
	}
	q := NewQueryService(f.store, f.cache, 10*time.Minute)

	out, err := q.ListReviews(f.ctx, f.homestay.ID, domain.PageQuery{Limit: 10, Sort: "-created_at"})
	require.NoError(t, err)
	assert.Len(t, out.Items, 3)

	out, err = q.ListReviews(f.ctx, f.homestay.ID, domain.PageQuery{Limit: 2, Sort: "-created_at"})
	require.NoError(t, err)
	assert.Len(t, out.Items, 2)
}

func TestListReviews_HiddenAfterSuspendWithWarmCache(t *testing.T) {
	f := newFixture(t)
	r := domain.Review{HomestayID: f.homestay.ID, GuestID: f.guest.ID, Rating: 5, Source: domain.ReviewFromQR, CampaignID: ptr(int64(1))}
	require.NoError(t, f.store.CreateReview(f.ctx, &r))

	q := NewQueryService(f.store, f.cache, 10*time.Minute)
	pg := domain.PageQuery{Limit: 20, Sort: "-created_at"}
	_, err := q.ListReviews(f.ctx, f.homestay.ID, pg)
	require.NoError(t, err)

	_, err = NewAdminService(f.store, f.cache).Suspend(f.ctx, f.homestay.ID)
	require.NoError(t, err)
	assert.False(t, f.cache.has(reviewsKey(f.homestay.ID, 20, "-created_at")))

	_, err = q.ListReviews(f.ctx, f.homestay.ID, pg)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListReviews_StaleEntrySkippedForHiddenHomestay(t *testing.T) {
	f := newFixture(t)
	q := NewQueryService(f.store, f.cache, 10*time.Minute)
	pg := domain.PageQuery{Limit: 10, Sort: "-created_at"}
	_, err := q.ListReviews(f.ctx, f.homestay.ID, pg)
	require.NoError(t, err)

	// status changed behind the cache's back
	h, err := f.store.GetHomestay(f.ctx, f.homestay.ID)
	require.NoError(t, err)
	h.Status = domain.HomestaySuspended
	require.NoError(t, f.store.UpdateHomestay(f.ctx, h))
	_ = f.cache.Del(f.ctx, homestayKey(f.homestay.ID))

	_, err = q.ListReviews(f.ctx, f.homestay.ID, pg)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestBrowseDestination(t *testing.T) {
	f := newFixture(t)
	q := NewQueryService(f.store, f.cache, time.Minute)

	page, err := q.BrowseDestination(f.ctx, BrowseQuery{DestinationSlug: "da-lat", Guests: 2})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, f.dest.ID, page.Destination.ID)

	page, err = q.BrowseDestination(f.ctx, BrowseQuery{DestinationSlug: "da-lat", Guests: 3})
	require.NoError(t, err)
	assert.Zero(t, page.Total)

	page, err = q.BrowseDestination(f.ctx, BrowseQuery{DestinationSlug: "da-lat", MaxPrice: ptr("40")})
	require.NoError(t, err)
	assert.Zero(t, page.Total)

	_, err = q.BrowseDestination(f.ctx, BrowseQuery{DestinationSlug: "da-lat", MinPrice: ptr("cheap")})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "min_price")

	_, err = q.BrowseDestination(f.ctx, BrowseQuery{DestinationSlug: "atlantis"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetCommunity_ListsApprovedMembers(t *testing.T) {
	f := newFixture(t)
	m := domain.CommunityManager{Name: "Minh", Phone: "+84900000000"}
	require.NoError(t, f.store.CreateManager(f.ctx, &m))
	c := domain.Community{Name: "Highlands", Slug: "highlands", DestinationID: f.dest.ID, ManagerID: &m.ID}
	require.NoError(t, f.store.CreateCommunity(f.ctx, &c))

	pending := domain.Homestay{HostID: f.host.ID, Name: "Queue", Status: domain.HomestayPending}
	require.NoError(t, f.store.CreateHomestay(f.ctx, &pending))
	require.NoError(t, f.store.AssignCommunity(f.ctx, c.ID, []int64{f.homestay.ID, pending.ID}))

	q := NewQueryService(f.store, f.cache, time.Minute)
	cv, err := q.GetCommunity(f.ctx, "highlands")
	require.NoError(t, err)
	require.NotNil(t, cv.Manager)
	assert.Equal(t, "Minh", cv.Manager.Name)
	require.Len(t, cv.Homestays, 1)
	assert.Equal(t, f.homestay.ID, cv.Homestays[0].ID)
}
