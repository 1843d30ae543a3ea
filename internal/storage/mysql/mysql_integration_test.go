//go:build integration

package mysql_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/shopspring/decimal"

	"homestay_hub/internal/domain"
	mysqlrepo "homestay_hub/internal/storage/mysql"
)

// ---------- small helpers ----------
func pstr(s string) *string { return &s }

func migrationsDir(t *testing.T) string {
	t.Helper()
	if v := os.Getenv("MIGRATIONS_DIR"); v != "" {
		return v
	}
	return filepath.Join("..", "..", "..", "migrations")
}

func applyMigrations(t *testing.T, db *sql.DB) {
	t.Helper()
	dir := migrationsDir(t)

	st, err := os.Stat(dir)
	if err != nil || !st.IsDir() {
		t.Fatalf("MIGRATIONS_DIR=%s is not a directory or missing", dir)
	}

	ents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}
	var files []string
	for _, e := range ents {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".sql" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		t.Fatalf("no .sql files in %s", dir)
	}
	sort.Strings(files)

	for _, f := range files {
		sqlBytes, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("read %s: %v", f, err)
		}
		if _, err := db.Exec(string(sqlBytes)); err != nil {
			t.Fatalf("exec %s: %v", f, err)
		}
	}
}

func startMySQL(t *testing.T) *sql.DB {
	t.Helper()
	// Let Docker pick a free host port.
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatalf("dockertest: %v", err)
	}
	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "mysql",
		Tag:        "8.0.36",
		Env: []string{
			"MYSQL_ROOT_PASSWORD=root",
			"MYSQL_DATABASE=homestay",
		},
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("run mysql: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })

	dsn := fmt.Sprintf("root:root@tcp(127.0.0.1:%s)/homestay?parseTime=true&multiStatements=true&charset=utf8mb4&loc=UTC",
		resource.GetPort("3306/tcp"))

	var db *sql.DB
	if err := pool.Retry(func() error {
		var e error
		db, e = sql.Open("mysql", dsn)
		if e != nil {
			return e
		}
		return db.Ping()
	}); err != nil {
		t.Fatalf("connect mysql: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	applyMigrations(t, db)
	return db
}

// ---------- the test ----------
func TestRepo_MySQL_BookingFlow(t *testing.T) {
	db := startMySQL(t)
	repo := mysqlrepo.New(db)
	ctx := context.Background()

	host := &domain.User{Name: "Hanh", Email: pstr("hanh@example.com"), PasswordHash: "x", Role: domain.RoleHost}
	guest := &domain.User{Name: "Giang", Phone: pstr("+84900000001"), Role: domain.RoleGuest}
	for _, u := range []*domain.User{host, guest} {
		if err := repo.CreateUser(ctx, u); err != nil {
			t.Fatalf("CreateUser: %v", err)
		}
	}
	if err := repo.CreateUser(ctx, &domain.User{Name: "Dup", Email: pstr("hanh@example.com")}); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("duplicate email: want ErrConflict, got %v", err)
	}

	dest := &domain.MasterItem{Kind: domain.KindDestination, Name: "Hoi An", Slug: "hoi-an"}
	bike := &domain.MasterItem{Kind: domain.KindAmenity, Name: "Bicycle", Icon: "bike"}
	garden := &domain.MasterItem{Kind: domain.KindPropertyType, Name: "Garden house"}
	for _, it := range []*domain.MasterItem{dest, bike, garden} {
		if err := repo.CreateMaster(ctx, it); err != nil {
			t.Fatalf("CreateMaster %s: %v", it.Kind, err)
		}
	}

	h := &domain.Homestay{
		HostID: host.ID, Name: "River Lantern", Slug: "river-lantern", Description: "By the river",
		PropertyTypeID: garden.ID, DestinationID: dest.ID, City: "Hoi An",
		AmenityIDs: []int64{bike.ID}, Images: []string{"a.jpg"}, Status: domain.HomestayApproved,
		OnboardingStep: 4,
	}
	if err := repo.CreateHomestay(ctx, h); err != nil {
		t.Fatalf("CreateHomestay: %v", err)
	}
	room := &domain.Room{HomestayID: h.ID, Name: "Twin", Capacity: 2,
		PricePerNight: decimal.RequireFromString("40.00"), Quantity: 1, Active: true}
	if err := repo.CreateRoom(ctx, room); err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}

	if err := repo.DeleteMaster(ctx, domain.KindAmenity, bike.ID); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("delete used amenity: want ErrConflict, got %v", err)
	}

	page, err := repo.ListHomestays(ctx, domain.HomestaysQuery{
		DestinationID: &dest.ID, Guests: 2, MaxPrice: ptrDec("45"), Page: domain.Page{Number: 1, Limit: 10},
	})
	if err != nil {
		t.Fatalf("ListHomestays: %v", err)
	}
	if page.Total != 1 || len(page.Items) != 1 || page.Items[0].Images[0] != "a.jpg" {
		t.Fatalf("unexpected listing: %+v", page)
	}
	if page, _ = repo.ListHomestays(ctx, domain.HomestaysQuery{Guests: 3}); page.Total != 0 {
		t.Fatalf("room for 2 matched a party of 3: %+v", page)
	}

	in := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	b := &domain.Booking{
		Reference: "BK-INTEG001", GuestID: guest.ID, HomestayID: h.ID, RoomID: room.ID,
		CheckIn: in, CheckOut: in.AddDate(0, 0, 2), Guests: 2, Nights: 2,
		Subtotal: decimal.RequireFromString("80"), Total: decimal.RequireFromString("80"),
		Status: domain.BookingPending,
	}
	if err := repo.CreateBooking(ctx, b, room.Quantity); err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}
	overlap := *b
	overlap.ID, overlap.Reference = 0, "BK-INTEG002"
	overlap.CheckIn = in.AddDate(0, 0, 1)
	overlap.CheckOut = in.AddDate(0, 0, 3)
	if err := repo.CreateBooking(ctx, &overlap, room.Quantity); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("overlapping booking: want ErrConflict, got %v", err)
	}

	got, err := repo.GetBooking(ctx, b.ID)
	if err != nil {
		t.Fatalf("GetBooking: %v", err)
	}
	if !got.CheckIn.Equal(in) || !got.Total.Equal(b.Total) {
		t.Fatalf("booking round trip: %+v", got)
	}

	if err := repo.UpdateBookingStatus(ctx, b.ID, domain.BookingPending, domain.BookingConfirmed, nil); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if err := repo.UpdateBookingStatus(ctx, b.ID, domain.BookingPending, domain.BookingRejected, nil); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("stale transition: want ErrConflict, got %v", err)
	}
	future, err := repo.HasFutureBookings(ctx, room.ID, in)
	if err != nil || !future {
		t.Fatalf("HasFutureBookings = %v, %v", future, err)
	}

	rv := &domain.Review{HomestayID: h.ID, BookingID: &b.ID, GuestID: guest.ID, Rating: 5,
		Comment: "Lovely", Source: domain.ReviewFromBooking}
	if err := repo.CreateReview(ctx, rv); err != nil {
		t.Fatalf("CreateReview: %v", err)
	}
	dup := *rv
	if err := repo.CreateReview(ctx, &dup); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("second review for booking: want ErrConflict, got %v", err)
	}
	reviews, err := repo.ListReviews(ctx, h.ID, domain.PageQuery{Limit: 10})
	if err != nil || len(reviews.Items) != 1 || reviews.Items[0].GuestName != "Giang" {
		t.Fatalf("ListReviews = %+v, %v", reviews, err)
	}

	sum, err := repo.HostSummary(ctx, host.ID, in.AddDate(0, 0, -3))
	if err != nil {
		t.Fatalf("HostSummary: %v", err)
	}
	if sum.ByStatus[domain.BookingConfirmed] != 1 || sum.UpcomingCheckIns != 1 || sum.Rating.Count != 1 {
		t.Fatalf("unexpected summary: %+v", sum)
	}
}

func TestRepo_MySQL_CampaignDiscount(t *testing.T) {
	db := startMySQL(t)
	repo := mysqlrepo.New(db)
	ctx := context.Background()

	admin := &domain.User{Name: "Admin", Email: pstr("admin@example.com"), Role: domain.RoleAdmin}
	guest := &domain.User{Name: "Giang", Phone: pstr("+84900000002"), Role: domain.RoleGuest}
	for _, u := range []*domain.User{admin, guest} {
		if err := repo.CreateUser(ctx, u); err != nil {
			t.Fatalf("CreateUser: %v", err)
		}
	}
	h := &domain.Homestay{HostID: admin.ID, Name: "Lotus", Slug: "lotus", Status: domain.HomestayApproved}
	if err := repo.CreateHomestay(ctx, h); err != nil {
		t.Fatalf("CreateHomestay: %v", err)
	}
	room := &domain.Room{HomestayID: h.ID, Name: "Double", Capacity: 2,
		PricePerNight: decimal.RequireFromString("50"), Quantity: 2, Active: true}
	if err := repo.CreateRoom(ctx, room); err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}

	c := &domain.Campaign{Name: "Spring", HomestayID: h.ID, DiscountPercent: 10, Active: true, CreatedBy: admin.ID}
	if err := repo.CreateCampaign(ctx, c, []string{"QRA", "QRB"}); err != nil {
		t.Fatalf("CreateCampaign: %v", err)
	}
	if err := repo.AddQRCodes(ctx, c.ID, []string{"QRA"}); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("duplicate qr code: want ErrConflict, got %v", err)
	}
	if err := repo.IncrementScan(ctx, "QRA"); err != nil {
		t.Fatalf("IncrementScan: %v", err)
	}
	codes, err := repo.ListQRCodes(ctx, c.ID)
	if err != nil || len(codes) != 2 || codes[0].Scans != 1 {
		t.Fatalf("ListQRCodes = %+v, %v", codes, err)
	}

	d := domain.DiscountCode{Code: "DISC-INTEG", GuestID: guest.ID, CampaignID: c.ID, Percent: 10,
		ExpiresAt: time.Now().UTC().Add(24 * time.Hour)}
	if err := repo.CreateDiscountCode(ctx, d); err != nil {
		t.Fatalf("CreateDiscountCode: %v", err)
	}

	in := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	book := func(ref string) error {
		return repo.CreateBooking(ctx, &domain.Booking{
			Reference: ref, GuestID: guest.ID, HomestayID: h.ID, RoomID: room.ID,
			CheckIn: in, CheckOut: in.AddDate(0, 0, 1), Guests: 1, Nights: 1,
			Subtotal: decimal.RequireFromString("50"), DiscountCode: pstr(d.Code),
			DiscountAmount: decimal.RequireFromString("5"), Total: decimal.RequireFromString("45"),
			Status: domain.BookingPending,
		}, room.Quantity)
	}
	if err := book("BK-DISC0001"); err != nil {
		t.Fatalf("first discounted booking: %v", err)
	}
	if err := book("BK-DISC0002"); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("reused discount: want ErrConflict, got %v", err)
	}
	stored, err := repo.GetDiscountCode(ctx, d.Code)
	if err != nil || stored.UsedAt == nil {
		t.Fatalf("discount not consumed: %+v, %v", stored, err)
	}
}

func ptrDec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}
