package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"homestay_hub/internal/domain"
)

const maxExportDays = 366

type HostService struct {
	store    domain.Store
	exporter domain.BookingExporter
	inv      invalidator
	clock    clock
}

func NewHostService(s domain.Store, c domain.Cache, x domain.BookingExporter) *HostService {
	return &HostService{store: s, exporter: x, inv: invalidator{cache: c}}
}

func (s *HostService) Summary(ctx context.Context, p domain.Principal) (domain.HostSummary, error) {
	return s.store.HostSummary(ctx, p.UserID, s.clock.now())
}

// owned loads a homestay and hides it from everyone but its host.
func (s *HostService) owned(ctx context.Context, p domain.Principal, id int64) (domain.Homestay, error) {
	h, err := s.store.GetHomestay(ctx, id)
	if err != nil {
		return domain.Homestay{}, err
	}
	if h.HostID != p.UserID {
		return domain.Homestay{}, domain.ErrNotFound
	}
	return h, nil
}

func (s *HostService) Homestays(ctx context.Context, p domain.Principal, pg domain.Page) (domain.HomestaysPage, error) {
	uid := p.UserID
	return s.store.ListHomestays(ctx, domain.HomestaysQuery{HostID: &uid, Page: normPage(pg)})
}

func (s *HostService) Homestay(ctx context.Context, p domain.Principal, id int64) (HomestayDetail, error) {
	h, err := s.owned(ctx, p, id)
	if err != nil {
		return HomestayDetail{}, err
	}
	rooms, err := s.store.ListRooms(ctx, id)
	if err != nil {
		return HomestayDetail{}, err
	}
	return HomestayDetail{Homestay: h, Rooms: rooms}, nil
}

type HomestayEdit struct {
	Basics
	Location
	AmenityIDs []int64
	Images     []string
}

// UpdateHomestay edits a submitted listing. Approved listings stay live; a
// rejected listing goes back to the approval queue.
func (s *HostService) UpdateHomestay(ctx context.Context, p domain.Principal, id int64, in HomestayEdit) (domain.Homestay, error) {
	h, err := s.owned(ctx, p, id)
	if err != nil {
		return domain.Homestay{}, err
	}
	if h.Status == domain.HomestayDraft {
		return domain.Homestay{}, fmt.Errorf("%w: finish onboarding first", domain.ErrConflict)
	}

	ob := OnboardingService{store: s.store}
	verr := &domain.ValidationError{}
	if strings.TrimSpace(in.Name) == "" {
		verr.Add("name", "is required")
	}
	if strings.TrimSpace(in.Address) == "" {
		verr.Add("address", "is required")
	}
	if strings.TrimSpace(in.City) == "" {
		verr.Add("city", "is required")
	}
	if err := ob.checkMaster(ctx, verr, "property_type_id", domain.KindPropertyType, in.PropertyTypeID); err != nil {
		return domain.Homestay{}, err
	}
	if err := ob.checkMaster(ctx, verr, "destination_id", domain.KindDestination, in.DestinationID); err != nil {
		return domain.Homestay{}, err
	}
	images := validImages(verr, in.Images)
	amenities, err := ob.amenities(ctx, verr, in.AmenityIDs)
	if err != nil {
		return domain.Homestay{}, err
	}
	if err := verr.OrNil(); err != nil {
		return domain.Homestay{}, err
	}

	h.Name = strings.TrimSpace(in.Name)
	h.Slug = slugify(h.Name)
	h.Description = strings.TrimSpace(in.Description)
	h.PropertyTypeID = in.PropertyTypeID
	h.DestinationID = in.DestinationID
	h.Address = strings.TrimSpace(in.Address)
	h.City = strings.TrimSpace(in.City)
	h.Lat, h.Lon = in.Lat, in.Lon
	h.AmenityIDs = amenities
	h.Images = images
	if h.Status == domain.HomestayRejected {
		h.Status = domain.HomestayPending
		h.RejectionReason = nil
	}
	if err := s.store.UpdateHomestay(ctx, h); err != nil {
		return domain.Homestay{}, err
	}
	s.inv.homestay(ctx, h.ID)
	return h, nil
}

/********** rooms **********/

func (s *HostService) CreateRoom(ctx context.Context, p domain.Principal, homestayID int64, in RoomInput) (domain.Room, error) {
	if _, err := s.owned(ctx, p, homestayID); err != nil {
		return domain.Room{}, err
	}
	r, err := parseRoom(in)
	if err != nil {
		return domain.Room{}, err
	}
	r.HomestayID = homestayID
	if err := s.store.CreateRoom(ctx, &r); err != nil {
		return domain.Room{}, err
	}
	s.inv.homestay(ctx, homestayID)
	return r, nil
}

func (s *HostService) ownedRoom(ctx context.Context, p domain.Principal, id int64) (domain.Room, error) {
	r, err := s.store.GetRoom(ctx, id)
	if err != nil {
		return domain.Room{}, err
	}
	if _, err := s.owned(ctx, p, r.HomestayID); err != nil {
		return domain.Room{}, err
	}
	return r, nil
}

func (s *HostService) UpdateRoom(ctx context.Context, p domain.Principal, id int64, in RoomInput, active *bool) (domain.Room, error) {
	old, err := s.ownedRoom(ctx, p, id)
	if err != nil {
		return domain.Room{}, err
	}
	r, err := parseRoom(in)
	if err != nil {
		return domain.Room{}, err
	}
	r.ID, r.HomestayID, r.Active = old.ID, old.HomestayID, old.Active
	if active != nil {
		r.Active = *active
	}
	if err := s.store.UpdateRoom(ctx, r); err != nil {
		return domain.Room{}, err
	}
	s.inv.homestay(ctx, r.HomestayID)
	return r, nil
}

// DeleteRoom removes a room, or only deactivates it when guests still hold
// bookings for it. The returned flag reports the latter.
func (s *HostService) DeleteRoom(ctx context.Context, p domain.Principal, id int64) (deactivated bool, err error) {
	r, err := s.ownedRoom(ctx, p, id)
	if err != nil {
		return false, err
	}
	busy, err := s.store.HasFutureBookings(ctx, id, dateOnly(s.clock.now()))
	if err != nil {
		return false, err
	}
	defer s.inv.homestay(ctx, r.HomestayID)
	if busy {
		r.Active = false
		return true, s.store.UpdateRoom(ctx, r)
	}
	return false, s.store.DeleteRoom(ctx, id)
}

/********** bookings **********/

func (s *HostService) Bookings(ctx context.Context, p domain.Principal, status *domain.BookingStatus, homestayID *int64, pg domain.Page) (domain.BookingsPage, error) {
	if homestayID != nil {
		if _, err := s.owned(ctx, p, *homestayID); err != nil {
			return domain.BookingsPage{}, err
		}
	}
	uid := p.UserID
	return s.store.ListBookings(ctx, domain.BookingFilter{
		HostID:     &uid,
		HomestayID: homestayID,
		Status:     status,
		Page:       normPage(pg),
	})
}

func (s *HostService) Booking(ctx context.Context, p domain.Principal, id int64) (domain.BookingRow, error) {
	b, err := s.ownedBooking(ctx, p, id)
	if err != nil {
		return domain.BookingRow{}, err
	}
	rows, err := bookingRows(ctx, s.store, []domain.Booking{b})
	if err != nil {
		return domain.BookingRow{}, err
	}
	return rows[0], nil
}

func (s *HostService) ownedBooking(ctx context.Context, p domain.Principal, id int64) (domain.Booking, error) {
	b, err := s.store.GetBooking(ctx, id)
	if err != nil {
		return domain.Booking{}, err
	}
	if _, err := s.owned(ctx, p, b.HomestayID); err != nil {
		return domain.Booking{}, err
	}
	return b, nil
}

// HostActions maps the dashboard's booking actions to target statuses.
var HostActions = map[string]domain.BookingStatus{
	"confirm":  domain.BookingConfirmed,
	"reject":   domain.BookingRejected,
	"check-in": domain.BookingCheckedIn,
	"complete": domain.BookingCompleted,
	"no-show":  domain.BookingNoShow,
	"cancel":   domain.BookingCancelled,
}

func (s *HostService) Act(ctx context.Context, p domain.Principal, id int64, action, reason string) (domain.Booking, error) {
	to, ok := HostActions[action]
	if !ok {
		return domain.Booking{}, domain.NewValidationError("action", "unknown booking action")
	}
	b, err := s.ownedBooking(ctx, p, id)
	if err != nil {
		return domain.Booking{}, err
	}
	today := dateOnly(s.clock.now())
	switch to {
	case domain.BookingCheckedIn, domain.BookingNoShow:
		if today.Before(b.CheckIn) {
			return domain.Booking{}, fmt.Errorf("%w: stay has not started", domain.ErrConflict)
		}
	}
	var why *string
	if r := strings.TrimSpace(reason); r != "" {
		why = &r
	}
	out, err := transition(ctx, s.store, b, to, "host", why)
	if err != nil {
		return domain.Booking{}, err
	}
	return out, nil
}

// Export renders the host's bookings checking in between from and to.
func (s *HostService) Export(ctx context.Context, p domain.Principal, from, to time.Time) ([]byte, error) {
	from, to = dateOnly(from), dateOnly(to)
	if to.Before(from) {
		return nil, domain.NewValidationError("to", "must not be before from")
	}
	if to.Sub(from) > maxExportDays*24*time.Hour {
		return nil, domain.NewValidationError("to", fmt.Sprintf("range is limited to %d days", maxExportDays))
	}
	uid := p.UserID
	page, err := s.store.ListBookings(ctx, domain.BookingFilter{HostID: &uid})
	if err != nil {
		return nil, err
	}
	var picked []domain.Booking
	for _, b := range page.Items {
		if !b.CheckIn.Before(from) && !b.CheckIn.After(to) {
			picked = append(picked, b)
		}
	}
	rows, err := bookingRows(ctx, s.store, picked)
	if err != nil {
		return nil, err
	}
	log.Debug().Int64("host_id", uid).Int("rows", len(rows)).Msg("bookings export")
	return s.exporter.BookingsXLSX(rows)
}

/********** reviews **********/

func (s *HostService) Reviews(ctx context.Context, p domain.Principal, pg domain.Page) (domain.ReviewsPage, error) {
	return s.store.ListHostReviews(ctx, p.UserID, normPage(pg))
}

func (s *HostService) Reply(ctx context.Context, p domain.Principal, reviewID int64, reply string) (domain.Review, error) {
	reply = strings.TrimSpace(reply)
	if reply == "" || len([]rune(reply)) > 1000 {
		return domain.Review{}, domain.NewValidationError("reply", "must be 1 to 1000 characters")
	}
	r, err := s.store.GetReview(ctx, reviewID)
	if err != nil {
		return domain.Review{}, err
	}
	if _, err := s.owned(ctx, p, r.HomestayID); err != nil {
		return domain.Review{}, err
	}
	if r.HostReply != nil {
		return domain.Review{}, fmt.Errorf("%w: review already answered", domain.ErrConflict)
	}
	if err := s.store.ReplyToReview(ctx, reviewID, reply); err != nil {
		return domain.Review{}, err
	}
	r.HostReply = &reply
	s.inv.reviews(ctx, r.HomestayID)
	return r, nil
}
