package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"homestay_hub/internal/domain"
)

const maxNights = 30

type GuestService struct {
	store domain.Store
	inv   invalidator
	clock clock
}

func NewGuestService(s domain.Store, c domain.Cache) *GuestService {
	return &GuestService{store: s, inv: invalidator{cache: c}}
}

type NewBooking struct {
	HomestayID   int64
	RoomID       int64
	CheckIn      time.Time
	CheckOut     time.Time
	Guests       int
	DiscountCode string
}

func newReference() string { return "BK-" + newCode()[:8] }

func (s *GuestService) Book(ctx context.Context, p domain.Principal, in NewBooking) (domain.Booking, error) {
	now := s.clock.now()
	in.CheckIn, in.CheckOut = dateOnly(in.CheckIn), dateOnly(in.CheckOut)

	verr := &domain.ValidationError{}
	if in.CheckIn.Before(dateOnly(now)) {
		verr.Add("check_in", "must not be in the past")
	}
	nights := domain.Nights(in.CheckIn, in.CheckOut)
	if nights < 1 {
		verr.Add("check_out", "must be after check_in")
	} else if nights > maxNights {
		verr.Add("check_out", fmt.Sprintf("stays are limited to %d nights", maxNights))
	}
	if in.Guests < 1 {
		verr.Add("guests", "must be at least 1")
	}
	if err := verr.OrNil(); err != nil {
		return domain.Booking{}, err
	}

	h, err := s.store.GetHomestay(ctx, in.HomestayID)
	if err != nil {
		return domain.Booking{}, err
	}
	if !h.Public() {
		return domain.Booking{}, domain.ErrNotFound
	}
	room, err := s.store.GetRoom(ctx, in.RoomID)
	if errors.Is(err, domain.ErrNotFound) || (err == nil && (room.HomestayID != h.ID || !room.Active)) {
		return domain.Booking{}, domain.NewValidationError("room_id", "room is not offered by this homestay")
	}
	if err != nil {
		return domain.Booking{}, err
	}
	if in.Guests > room.Capacity {
		return domain.Booking{}, domain.NewValidationError("guests", fmt.Sprintf("room sleeps at most %d", room.Capacity))
	}

	b := domain.Booking{
		Reference:      newReference(),
		GuestID:        p.UserID,
		HomestayID:     h.ID,
		RoomID:         room.ID,
		CheckIn:        in.CheckIn,
		CheckOut:       in.CheckOut,
		Guests:         in.Guests,
		Nights:         nights,
		Subtotal:       room.PricePerNight.Mul(decimal.NewFromInt(int64(nights))),
		DiscountAmount: decimal.Zero,
		Status:         domain.BookingPending,
	}
	if code := strings.ToUpper(strings.TrimSpace(in.DiscountCode)); code != "" {
		d, err := s.store.GetDiscountCode(ctx, code)
		if errors.Is(err, domain.ErrNotFound) || (err == nil && !d.Usable(p.UserID, now)) {
			return domain.Booking{}, domain.NewValidationError("discount_code", "is invalid or expired")
		}
		if err != nil {
			return domain.Booking{}, err
		}
		b.DiscountCode = &d.Code
		b.DiscountAmount = b.Subtotal.Mul(decimal.NewFromInt(int64(d.Percent))).Div(decimal.NewFromInt(100)).Round(2)
	}
	b.Total = b.Subtotal.Sub(b.DiscountAmount)

	if err := s.store.CreateBooking(ctx, &b, room.Quantity); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return domain.Booking{}, fmt.Errorf("%w: room is not available for those dates", domain.ErrConflict)
		}
		return domain.Booking{}, err
	}
	return b, nil
}

func (s *GuestService) Bookings(ctx context.Context, p domain.Principal, pg domain.Page) (domain.BookingsPage, error) {
	uid := p.UserID
	return s.store.ListBookings(ctx, domain.BookingFilter{GuestID: &uid, Page: normPage(pg)})
}

func (s *GuestService) Booking(ctx context.Context, p domain.Principal, id int64) (domain.Booking, error) {
	b, err := s.store.GetBooking(ctx, id)
	if err != nil {
		return domain.Booking{}, err
	}
	if b.GuestID != p.UserID {
		return domain.Booking{}, domain.ErrNotFound
	}
	return b, nil
}

// Cancel is open to the guest until the check-in day.
func (s *GuestService) Cancel(ctx context.Context, p domain.Principal, id int64, reason string) (domain.Booking, error) {
	b, err := s.Booking(ctx, p, id)
	if err != nil {
		return domain.Booking{}, err
	}
	if b.Status != domain.BookingPending && b.Status != domain.BookingConfirmed {
		return domain.Booking{}, fmt.Errorf("%w: %s bookings cannot be cancelled", domain.ErrInvalidTransition, b.Status)
	}
	if !dateOnly(s.clock.now()).Before(b.CheckIn) {
		return domain.Booking{}, fmt.Errorf("%w: cancellation closes on the check-in day", domain.ErrConflict)
	}
	var why *string
	if r := strings.TrimSpace(reason); r != "" {
		why = &r
	}
	return transition(ctx, s.store, b, domain.BookingCancelled, "guest", why)
}

func (s *GuestService) Review(ctx context.Context, p domain.Principal, id int64, rating int, comment string) (domain.Review, error) {
	if err := validateRating(rating, comment); err != nil {
		return domain.Review{}, err
	}
	b, err := s.Booking(ctx, p, id)
	if err != nil {
		return domain.Review{}, err
	}
	if b.Status != domain.BookingCompleted {
		return domain.Review{}, fmt.Errorf("%w: only completed stays can be reviewed", domain.ErrConflict)
	}
	done, err := s.store.ReviewForBooking(ctx, b.ID)
	if err != nil {
		return domain.Review{}, err
	}
	if done {
		return domain.Review{}, fmt.Errorf("%w: booking already reviewed", domain.ErrConflict)
	}
	bid := b.ID
	r := domain.Review{
		HomestayID: b.HomestayID,
		BookingID:  &bid,
		GuestID:    p.UserID,
		Rating:     rating,
		Comment:    strings.TrimSpace(comment),
		Source:     domain.ReviewFromBooking,
	}
	if err := s.store.CreateReview(ctx, &r); err != nil {
		return domain.Review{}, err
	}
	s.inv.reviews(ctx, b.HomestayID)
	return r, nil
}

type ReceiptLine struct {
	Description string
	Amount      decimal.Decimal
}

type Receipt struct {
	Row      domain.BookingRow
	Lines    []ReceiptLine
	Subtotal decimal.Decimal
	Discount decimal.Decimal
	Total    decimal.Decimal
	IssuedAt time.Time
}

func (s *GuestService) Receipt(ctx context.Context, p domain.Principal, id int64) (Receipt, error) {
	b, err := s.Booking(ctx, p, id)
	if err != nil {
		return Receipt{}, err
	}
	rows, err := bookingRows(ctx, s.store, []domain.Booking{b})
	if err != nil {
		return Receipt{}, err
	}
	nightly := decimal.Zero
	if b.Nights > 0 {
		nightly = b.Subtotal.Div(decimal.NewFromInt(int64(b.Nights))).Round(2)
	}
	out := Receipt{
		Row: rows[0],
		Lines: []ReceiptLine{{
			Description: fmt.Sprintf("%s, %d night(s) x %s", rows[0].Room, b.Nights, nightly.StringFixed(2)),
			Amount:      b.Subtotal,
		}},
		Subtotal: b.Subtotal,
		Discount: b.DiscountAmount,
		Total:    b.Total,
		IssuedAt: s.clock.now().UTC(),
	}
	if b.DiscountCode != nil && b.DiscountAmount.IsPositive() {
		out.Lines = append(out.Lines, ReceiptLine{
			Description: "Discount " + *b.DiscountCode,
			Amount:      b.DiscountAmount.Neg(),
		})
	}
	return out, nil
}
