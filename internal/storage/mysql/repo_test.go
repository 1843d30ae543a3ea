package mysql

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	drv "github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homestay_hub/internal/domain"
)

var fixedNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func newMock(t *testing.T) (*Repo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	r := New(db)
	r.now = func() time.Time { return fixedNow }
	return r, mock
}

func q(s string) string { return regexp.QuoteMeta(s) }

func day(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}

func newBooking(code *string) *domain.Booking {
	return &domain.Booking{
		Reference: "BK-1A2B3C4D", GuestID: 3, HomestayID: 7, RoomID: 11,
		CheckIn: day("2026-04-01"), CheckOut: day("2026-04-03"), Guests: 2, Nights: 2,
		Subtotal: decimal.RequireFromString("80"), DiscountCode: code,
		DiscountAmount: decimal.Zero, Total: decimal.RequireFromString("80"),
		Status: domain.BookingPending,
	}
}

func TestCreateBooking_ConsumesDiscountInTx(t *testing.T) {
	r, mock := newMock(t)
	code := "DISC-1"
	b := newBooking(&code)

	mock.ExpectBegin()
	mock.ExpectQuery(q("FOR UPDATE")).WithArgs(int64(11)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))
	mock.ExpectQuery(q("SELECT COUNT(*) FROM bookings")).WithArgs(int64(11), b.CheckOut, b.CheckIn).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectExec(q("UPDATE discount_codes SET used_at")).WithArgs(fixedNow, code).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q("INSERT INTO bookings")).WillReturnResult(sqlmock.NewResult(42, 1))
	mock.ExpectCommit()

	require.NoError(t, r.CreateBooking(context.Background(), b, 1))
	assert.Equal(t, int64(42), b.ID)
	assert.Equal(t, fixedNow, b.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBooking_NoInventory(t *testing.T) {
	r, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(q("FOR UPDATE")).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))
	mock.ExpectQuery(q("SELECT COUNT(*) FROM bookings")).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(2))
	mock.ExpectRollback()

	err := r.CreateBooking(context.Background(), newBooking(nil), 2)
	require.ErrorIs(t, err, domain.ErrConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBooking_DiscountAlreadyUsed(t *testing.T) {
	r, mock := newMock(t)
	code := "DISC-1"

	mock.ExpectBegin()
	mock.ExpectQuery(q("FOR UPDATE")).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))
	mock.ExpectQuery(q("SELECT COUNT(*) FROM bookings")).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectExec(q("UPDATE discount_codes")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := r.CreateBooking(context.Background(), newBooking(&code), 1)
	require.ErrorIs(t, err, domain.ErrConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBooking_UnknownRoom(t *testing.T) {
	r, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(q("FOR UPDATE")).WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	err := r.CreateBooking(context.Background(), newBooking(nil), 1)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpdateBookingStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("applied", func(t *testing.T) {
		r, mock := newMock(t)
		reason := "plans changed"
		mock.ExpectExec(q("UPDATE bookings SET")).
			WithArgs("cancelled", reason, fixedNow, int64(5), "pending").
			WillReturnResult(sqlmock.NewResult(0, 1))
		require.NoError(t, r.UpdateBookingStatus(ctx, 5, domain.BookingPending, domain.BookingCancelled, &reason))
	})

	t.Run("stale status", func(t *testing.T) {
		r, mock := newMock(t)
		mock.ExpectExec(q("UPDATE bookings SET")).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(q("FROM bookings WHERE id = ?")).WithArgs(int64(5)).
			WillReturnRows(sqlmock.NewRows([]string{"e"}).AddRow(true))
		err := r.UpdateBookingStatus(ctx, 5, domain.BookingPending, domain.BookingConfirmed, nil)
		require.ErrorIs(t, err, domain.ErrConflict)
	})

	t.Run("missing", func(t *testing.T) {
		r, mock := newMock(t)
		mock.ExpectExec(q("UPDATE bookings SET")).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(q("FROM bookings WHERE id = ?")).
			WillReturnRows(sqlmock.NewRows([]string{"e"}).AddRow(false))
		err := r.UpdateBookingStatus(ctx, 5, domain.BookingPending, domain.BookingConfirmed, nil)
		require.ErrorIs(t, err, domain.ErrNotFound)
	})
}

var homestayColumns = []string{"id", "host_id", "name", "slug", "description", "property_type_id",
	"destination_id", "community_id", "address", "city", "lat", "lon", "amenity_ids", "images",
	"status", "rejection_reason", "featured_rank", "onboarding_step", "created_at", "updated_at"}

func TestGetHomestay_ScansNullableAndJSON(t *testing.T) {
	r, mock := newMock(t)
	mock.ExpectQuery(q("FROM homestays h WHERE h.id = ?")).WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(homestayColumns).AddRow(
			7, 2, "River Lantern", "river-lantern", "By the river", 1, 4, nil, "12 Bach Dang", "Hoi An",
			15.88, nil, []byte(`[3,5]`), []byte(`["a.jpg"]`), "approved", nil, 2, 4, fixedNow, fixedNow))

	h, err := r.GetHomestay(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 5}, h.AmenityIDs)
	assert.Equal(t, []string{"a.jpg"}, h.Images)
	assert.Nil(t, h.CommunityID)
	require.NotNil(t, h.Lat)
	assert.InDelta(t, 15.88, *h.Lat, 1e-9)
	assert.Nil(t, h.Lon)
	require.NotNil(t, h.FeaturedRank)
	assert.Equal(t, 2, *h.FeaturedRank)
	assert.Equal(t, domain.HomestayApproved, h.Status)
}

func TestGetHomestay_NotFound(t *testing.T) {
	r, mock := newMock(t)
	mock.ExpectQuery(q("FROM homestays h WHERE h.id = ?")).WillReturnError(sql.ErrNoRows)
	_, err := r.GetHomestay(context.Background(), 99)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListHomestays_PriceFilterJoinsCheapestRoom(t *testing.T) {
	r, mock := newMock(t)
	st := domain.HomestayApproved
	maxPrice := decimal.RequireFromString("50")

	mock.ExpectQuery("(?s)"+q("SELECT COUNT(*) FROM homestays h")+".*"+q("capacity >= ?")).
		WithArgs(3, maxPrice, "approved").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	mock.ExpectQuery(q("ORDER BY h.id DESC LIMIT ? OFFSET ?")).
		WithArgs(3, maxPrice, "approved", 10, 10).
		WillReturnRows(sqlmock.NewRows(homestayColumns))

	page, err := r.ListHomestays(context.Background(), domain.HomestaysQuery{
		Status: &st, Guests: 3, MaxPrice: &maxPrice, Page: domain.Page{Number: 2, Limit: 10},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
	assert.Empty(t, page.Items)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUser_DuplicateIsConflict(t *testing.T) {
	r, mock := newMock(t)
	email := "giang@example.com"
	mock.ExpectExec(q("INSERT INTO users")).
		WillReturnError(&drv.MySQLError{Number: 1062, Message: "Duplicate entry for key 'uq_users_email'"})

	err := r.CreateUser(context.Background(), &domain.User{Name: "Giang", Email: &email, Role: domain.RoleGuest})
	require.ErrorIs(t, err, domain.ErrConflict)
}

func TestDeleteMaster_AmenityInUse(t *testing.T) {
	r, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(q("JSON_CONTAINS(amenity_ids")).WithArgs("5").
		WillReturnRows(sqlmock.NewRows([]string{"e"}).AddRow(true))
	mock.ExpectRollback()

	err := r.DeleteMaster(context.Background(), domain.KindAmenity, 5)
	require.ErrorIs(t, err, domain.ErrConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteMaster_Unused(t *testing.T) {
	r, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(q("FROM homestays WHERE destination_id = ?")).WithArgs(int64(4), int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"e"}).AddRow(false))
	mock.ExpectExec(q("DELETE FROM master_items")).WithArgs(int64(4), "destinations").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, r.DeleteMaster(context.Background(), domain.KindDestination, 4))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateCampaign_InsertsCodesInOneStatement(t *testing.T) {
	r, mock := newMock(t)
	c := &domain.Campaign{Name: "Summer", HomestayID: 7, DiscountPercent: 10, Active: true, CreatedBy: 1}

	mock.ExpectBegin()
	mock.ExpectExec(q("INSERT INTO campaigns")).WillReturnResult(sqlmock.NewResult(9, 1))
	mock.ExpectExec(q("INSERT INTO qr_codes")+".*"+q("(?, ?, 0, 0, ?),(?, ?, 0, 0, ?)")).
		WithArgs("AAA", int64(9), fixedNow, "BBB", int64(9), fixedNow).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	require.NoError(t, r.CreateCampaign(context.Background(), c, []string{"AAA", "BBB"}))
	assert.Equal(t, int64(9), c.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIncrementScan_UnknownCode(t *testing.T) {
	r, mock := newMock(t)
	mock.ExpectExec(q("UPDATE qr_codes SET scans")).WithArgs("NOPE").
		WillReturnResult(sqlmock.NewResult(0, 0))
	require.ErrorIs(t, r.IncrementScan(context.Background(), "NOPE"), domain.ErrNotFound)
}

func TestHostSummary_AggregatesByStatus(t *testing.T) {
	r, mock := newMock(t)
	now := time.Date(2026, 3, 1, 15, 30, 0, 0, time.UTC)

	mock.ExpectQuery(q("SELECT COUNT(*) FROM homestays WHERE host_id = ?")).WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(2))
	mock.ExpectQuery(q("GROUP BY b.status")).
		WithArgs(day("2026-03-01"), day("2026-03-08"), int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"status", "n", "revenue", "soon"}).
			AddRow("confirmed", 3, "0", 2).
			AddRow("completed", 2, "155.50", 0))
	mock.ExpectQuery(q("FROM reviews r")).WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"n", "avg"}).AddRow(4, 4.5))

	s, err := r.HostSummary(context.Background(), 2, now)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Homestays)
	assert.Equal(t, 3, s.ByStatus[domain.BookingConfirmed])
	assert.Equal(t, 2, s.UpcomingCheckIns)
	assert.True(t, decimal.RequireFromString("155.5").Equal(s.Revenue))
	assert.Equal(t, domain.RatingSummary{Count: 4, Average: 4.5}, s.Rating)
}

func TestListBlogs_FiltersByTag(t *testing.T) {
	r, mock := newMock(t)
	st := domain.BlogPublished
	mock.ExpectQuery(q("JSON_CONTAINS(tags, JSON_QUOTE(?))")+".*"+q("ORDER BY COALESCE(published_at, created_at) DESC")).
		WithArgs("published", "food", 5, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "slug", "excerpt", "content_html",
			"cover_image", "tags", "status", "author_id", "published_at", "created_at", "updated_at"}).
			AddRow(1, "Pho", "pho", "", "<p>x</p>", "", []byte(`["food"]`), "published", 1, fixedNow, fixedNow, fixedNow))

	out, err := r.ListBlogs(context.Background(), domain.BlogFilter{Status: &st, Tag: "food", Page: domain.Page{Number: 1, Limit: 5}})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, []string{"food"}, out[0].Tags)
	require.NotNil(t, out[0].PublishedAt)
}

func TestCreateRewardedReview_RollsBackWhenDiscountFails(t *testing.T) {
	r, mock := newMock(t)
	cid := int64(4)
	rv := &domain.Review{HomestayID: 7, GuestID: 3, CampaignID: &cid, Rating: 5, Source: domain.ReviewFromQR}
	d := &domain.DiscountCode{Code: "STAY-AAAA", GuestID: 3, CampaignID: cid, Percent: 10, ExpiresAt: fixedNow}

	mock.ExpectBegin()
	mock.ExpectExec(q("INSERT INTO reviews")).WillReturnResult(sqlmock.NewResult(5, 1))
	mock.ExpectExec(q("INSERT INTO discount_codes")).
		WillReturnError(&drv.MySQLError{Number: 1062, Message: "Duplicate entry"})
	mock.ExpectRollback()

	require.ErrorIs(t, r.CreateRewardedReview(context.Background(), rv, d), domain.ErrConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateRewardedReview_CommitsBoth(t *testing.T) {
	r, mock := newMock(t)
	cid := int64(4)
	rv := &domain.Review{HomestayID: 7, GuestID: 3, CampaignID: &cid, Rating: 5, Source: domain.ReviewFromQR}
	d := &domain.DiscountCode{Code: "STAY-AAAA", GuestID: 3, CampaignID: cid, Percent: 10, ExpiresAt: fixedNow}

	mock.ExpectBegin()
	mock.ExpectExec(q("INSERT INTO reviews")).WillReturnResult(sqlmock.NewResult(5, 1))
	mock.ExpectExec(q("INSERT INTO discount_codes")).
		WithArgs("STAY-AAAA", int64(3), cid, 10, fixedNow, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, r.CreateRewardedReview(context.Background(), rv, d))
	assert.Equal(t, int64(5), rv.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}
