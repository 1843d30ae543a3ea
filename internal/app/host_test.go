package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homestay_hub/internal/domain"
)

func newHost(f *fixture) (*HostService, *fakeExporter) {
	x := &fakeExporter{}
	s := NewHostService(f.store, f.cache, x)
	s.clock = fixedClock
	return s, x
}

func TestHost_Ownership(t *testing.T) {
	f := newFixture(t)
	s, _ := newHost(f)
	other := domain.Principal{UserID: f.guest.ID, Role: domain.RoleHost}

	_, err := s.Homestay(f.ctx, other, f.homestay.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	b := f.booking(t, 1, 3, domain.BookingPending)
	_, err = s.Act(f.ctx, other, b.ID, "confirm", "")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	page, err := s.Bookings(f.ctx, other, nil, nil, domain.Page{})
	require.NoError(t, err)
	assert.Zero(t, page.Total)

	page, err = s.Bookings(f.ctx, f.hostP(), nil, nil, domain.Page{})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
}

func TestHost_BookingLifecycle(t *testing.T) {
	f := newFixture(t)
	s, _ := newHost(f)
	p := f.hostP()

	b := f.booking(t, 0, 2, domain.BookingPending)
	_, err := s.Act(f.ctx, p, b.ID, "check-in", "")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	got, err := s.Act(f.ctx, p, b.ID, "confirm", "")
	require.NoError(t, err)
	assert.Equal(t, domain.BookingConfirmed, got.Status)

	got, err = s.Act(f.ctx, p, b.ID, "check-in", "")
	require.NoError(t, err)
	assert.Equal(t, domain.BookingCheckedIn, got.Status)

	_, err = s.Act(f.ctx, p, b.ID, "cancel", "")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	got, err = s.Act(f.ctx, p, b.ID, "complete", "")
	require.NoError(t, err)
	assert.Equal(t, domain.BookingCompleted, got.Status)

	_, err = s.Act(f.ctx, p, b.ID, "teleport", "")
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestHost_CheckInNotBeforeArrival(t *testing.T) {
	f := newFixture(t)
	s, _ := newHost(f)
	b := f.booking(t, 3, 5, domain.BookingConfirmed)

	_, err := s.Act(f.ctx, f.hostP(), b.ID, "check-in", "")
	assert.ErrorIs(t, err, domain.ErrConflict)
	_, err = s.Act(f.ctx, f.hostP(), b.ID, "no-show", "")
	assert.ErrorIs(t, err, domain.ErrConflict)

	got, err := s.Act(f.ctx, f.hostP(), b.ID, "cancel", "flooded road")
	require.NoError(t, err)
	require.NotNil(t, got.CancelReason)
	assert.Equal(t, "flooded road", *got.CancelReason)
}

func TestHost_DeleteRoomWithFutureBookingsDeactivates(t *testing.T) {
	f := newFixture(t)
	s, _ := newHost(f)
	f.booking(t, 5, 7, domain.BookingConfirmed)

	deactivated, err := s.DeleteRoom(f.ctx, f.hostP(), f.room.ID)
	require.NoError(t, err)
	assert.True(t, deactivated)
	r, err := f.store.GetRoom(f.ctx, f.room.ID)
	require.NoError(t, err)
	assert.False(t, r.Active)

	extra, err := s.CreateRoom(f.ctx, f.hostP(), f.homestay.ID, RoomInput{Name: "Loft", Capacity: 3, Price: "70", Quantity: 1})
	require.NoError(t, err)
	deactivated, err = s.DeleteRoom(f.ctx, f.hostP(), extra.ID)
	require.NoError(t, err)
	assert.False(t, deactivated)
	_, err = f.store.GetRoom(f.ctx, extra.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestHost_UpdateHomestay(t *testing.T) {
	f := newFixture(t)
	s, _ := newHost(f)

	edit := HomestayEdit{
		Basics:     Basics{Name: "Pine Hill Lodge", PropertyTypeID: f.ptype.ID, DestinationID: f.dest.ID},
		Location:   Location{Address: "1 Hill Rd", City: "Da Lat"},
		AmenityIDs: []int64{f.amenity.ID},
		Images:     []string{"https://img.example/2.jpg"},
	}
	h, err := s.UpdateHomestay(f.ctx, f.hostP(), f.homestay.ID, edit)
	require.NoError(t, err)
	assert.Equal(t, domain.HomestayApproved, h.Status)
	assert.Contains(t, f.cache.dels, homestayKey(f.homestay.ID))

	rej := f.homestay
	rej.Status = domain.HomestayRejected
	rej.RejectionReason = ptr("dark photos")
	require.NoError(t, f.store.UpdateHomestay(f.ctx, rej))
	h, err = s.UpdateHomestay(f.ctx, f.hostP(), f.homestay.ID, edit)
	require.NoError(t, err)
	assert.Equal(t, domain.HomestayPending, h.Status)
	assert.Nil(t, h.RejectionReason)
}

func TestHost_ExportAndSummary(t *testing.T) {
	f := newFixture(t)
	s, x := newHost(f)
	f.booking(t, 1, 2, domain.BookingConfirmed)
	f.booking(t, 40, 42, domain.BookingPending)
	done := f.booking(t, -5, -3, domain.BookingCompleted)

	out, err := s.Export(f.ctx, f.hostP(), day(-10), day(10))
	require.NoError(t, err)
	assert.Equal(t, []byte("xlsx"), out)
	require.Len(t, x.rows, 2)
	assert.Equal(t, "Pine Hill", x.rows[0].Homestay)
	assert.Equal(t, "Gia", x.rows[0].GuestName)

	_, err = s.Export(f.ctx, f.hostP(), day(10), day(-10))
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)

	sum, err := s.Summary(f.ctx, f.hostP())
	require.NoError(t, err)
	assert.Equal(t, 1, sum.UpcomingCheckIns)
	assert.True(t, done.Total.Equal(sum.Revenue))
	assert.Equal(t, 1, sum.Homestays)
}

func TestHost_Reply(t *testing.T) {
	f := newFixture(t)
	s, _ := newHost(f)
	r := domain.Review{HomestayID: f.homestay.ID, GuestID: f.guest.ID, Rating: 4, Source: domain.ReviewFromQR, CampaignID: ptr(int64(1))}
	require.NoError(t, f.store.CreateReview(f.ctx, &r))

	_, err := s.Reply(f.ctx, domain.Principal{UserID: f.admin.ID, Role: domain.RoleHost}, r.ID, "thanks")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	got, err := s.Reply(f.ctx, f.hostP(), r.ID, "Thanks for staying!")
	require.NoError(t, err)
	require.NotNil(t, got.HostReply)

	_, err = s.Reply(f.ctx, f.hostP(), r.ID, "again")
	assert.ErrorIs(t, err, domain.ErrConflict)

	page, err := s.Reviews(f.ctx, f.hostP(), domain.Page{})
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
}
