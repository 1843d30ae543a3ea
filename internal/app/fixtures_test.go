package app

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"homestay_hub/internal/auth"
	"homestay_hub/internal/domain"
	"homestay_hub/internal/storage/memory"
)

// ---- fakes ----

type fakeCache struct {
	mu   sync.Mutex
	data map[string][]byte
	dels []string
}

func (c *fakeCache) Get(_ context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (c *fakeCache) Set(_ context.Context, key string, v any, _ int) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.data == nil {
		c.data = map[string][]byte{}
	}
	c.data[key] = b
	return nil
}

func (c *fakeCache) Del(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	c.dels = append(c.dels, key)
	return nil
}

func (c *fakeCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.data[key]
	return ok
}

type sms struct{ phone, text string }

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sms
	err  error
}

func (n *fakeNotifier) SendSMS(_ context.Context, phone, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, sms{phone, text})
	return nil
}

type fakeChallenges struct {
	mu sync.Mutex
	m  map[string]domain.Challenge
}

func (f *fakeChallenges) SaveChallenge(_ context.Context, c domain.Challenge, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.m == nil {
		f.m = map[string]domain.Challenge{}
	}
	f.m[c.Phone] = c
	return nil
}

func (f *fakeChallenges) GetChallenge(_ context.Context, phone string) (domain.Challenge, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.m[phone]
	return c, ok, nil
}

func (f *fakeChallenges) DeleteChallenge(_ context.Context, phone string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.m, phone)
	return nil
}

// fakeOTP accepts "123456" for every secret it handed out.
type fakeOTP struct{}

func (fakeOTP) NewSecret(account string) (string, string, error) {
	return "SECRET-" + account, "123456", nil
}
func (fakeOTP) Validate(secret, code string) bool { return secret != "" && code == "123456" }

type fakeQR struct {
	content string
	size    int
}

func (q *fakeQR) PNG(content string, size int) ([]byte, error) {
	q.content, q.size = content, size
	return []byte("\x89PNG"), nil
}

type fakeExporter struct{ rows []domain.BookingRow }

func (x *fakeExporter) BookingsXLSX(rows []domain.BookingRow) ([]byte, error) {
	x.rows = rows
	return []byte("xlsx"), nil
}

// ---- fixture ----

var fixedNow = time.Date(2026, 6, 10, 9, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func day(offset int) time.Time { return dateOnly(fixedNow).AddDate(0, 0, offset) }

type fixture struct {
	ctx   context.Context
	store *memory.Store
	cache *fakeCache

	dest, amenity, ptype domain.MasterItem
	admin, host, guest   domain.User
	homestay             domain.Homestay
	room                 domain.Room
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{ctx: context.Background(), store: memory.New(), cache: &fakeCache{}}

	f.dest = domain.MasterItem{Kind: domain.KindDestination, Name: "Da Lat", Slug: "da-lat"}
	f.amenity = domain.MasterItem{Kind: domain.KindAmenity, Name: "Wifi"}
	f.ptype = domain.MasterItem{Kind: domain.KindPropertyType, Name: "Villa"}
	for _, it := range []*domain.MasterItem{&f.dest, &f.amenity, &f.ptype} {
		require.NoError(t, f.store.CreateMaster(f.ctx, it))
	}

	f.admin = f.user(t, "Ada", domain.RoleAdmin)
	f.host = f.user(t, "Hoa", domain.RoleHost)
	f.guest = f.user(t, "Gia", domain.RoleGuest)

	f.homestay = domain.Homestay{
		HostID:         f.host.ID,
		Name:           "Pine Hill",
		Slug:           "pine-hill",
		PropertyTypeID: f.ptype.ID,
		DestinationID:  f.dest.ID,
		City:           "Da Lat",
		Address:        "1 Hill Rd",
		AmenityIDs:     []int64{f.amenity.ID},
		Images:         []string{"https://img.example/1.jpg"},
		Status:         domain.HomestayApproved,
		OnboardingStep: 4,
	}
	require.NoError(t, f.store.CreateHomestay(f.ctx, &f.homestay))
	f.room = domain.Room{
		HomestayID:    f.homestay.ID,
		Name:          "Double",
		Capacity:      2,
		PricePerNight: decimal.RequireFromString("50.00"),
		Quantity:      1,
		Active:        true,
	}
	require.NoError(t, f.store.CreateRoom(f.ctx, &f.room))
	return f
}

func (f *fixture) user(t *testing.T, name string, role domain.Role) domain.User {
	t.Helper()
	email := name + "@example.com"
	u := domain.User{Name: name, Email: &email, Role: role}
	require.NoError(t, f.store.CreateUser(f.ctx, &u))
	return u
}

func (f *fixture) hostP() domain.Principal {
	return domain.Principal{UserID: f.host.ID, Role: domain.RoleHost}
}
func (f *fixture) guestP() domain.Principal {
	return domain.Principal{UserID: f.guest.ID, Role: domain.RoleGuest}
}

func (f *fixture) tokens() *auth.Tokens { return auth.NewTokens("test-secret-0123456789", time.Hour) }

// booking inserts a booking in the given status without going through the guest flow.
func (f *fixture) booking(t *testing.T, in, out int, st domain.BookingStatus) domain.Booking {
	t.Helper()
	b := domain.Booking{
		Reference:  newReference(),
		GuestID:    f.guest.ID,
		HomestayID: f.homestay.ID,
		RoomID:     f.room.ID,
		CheckIn:    day(in),
		CheckOut:   day(out),
		Guests:     2,
		Nights:     out - in,
		Subtotal:   f.room.PricePerNight.Mul(decimal.NewFromInt(int64(out - in))),
		Status:     st,
	}
	b.Total = b.Subtotal
	require.NoError(t, f.store.CreateBooking(f.ctx, &b, 10))
	return b
}
