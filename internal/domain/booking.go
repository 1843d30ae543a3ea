package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingRejected  BookingStatus = "rejected"
	BookingCancelled BookingStatus = "cancelled"
	BookingCheckedIn BookingStatus = "checked_in"
	BookingCompleted BookingStatus = "completed"
	BookingNoShow    BookingStatus = "no_show"
)

var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingPending:   {BookingConfirmed, BookingRejected, BookingCancelled},
	BookingConfirmed: {BookingCheckedIn, BookingCancelled, BookingNoShow},
	BookingCheckedIn: {BookingCompleted},
}

// CanTransition reports whether from -> to is an edge of the booking lifecycle.
func CanTransition(from, to BookingStatus) bool {
	for _, s := range bookingTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func (s BookingStatus) Terminal() bool { return len(bookingTransitions[s]) == 0 }

// Open bookings still hold room inventory.
func (s BookingStatus) Open() bool {
	return s == BookingPending || s == BookingConfirmed || s == BookingCheckedIn
}

func ParseBookingStatus(s string) (BookingStatus, bool) {
	st := BookingStatus(s)
	switch st {
	case BookingPending, BookingConfirmed, BookingRejected, BookingCancelled,
		BookingCheckedIn, BookingCompleted, BookingNoShow:
		return st, true
	}
	return "", false
}

type Booking struct {
	ID             int64
	Reference      string
	GuestID        int64
	HomestayID     int64
	RoomID         int64
	CheckIn        time.Time // date, UTC midnight
	CheckOut       time.Time
	Guests         int
	Nights         int
	Subtotal       decimal.Decimal
	DiscountCode   *string
	DiscountAmount decimal.Decimal
	Total          decimal.Decimal
	Status         BookingStatus
	CancelReason   *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Nights between two calendar dates.
func Nights(checkIn, checkOut time.Time) int {
	return int(checkOut.Sub(checkIn).Hours() / 24)
}

// Overlaps reports whether the stay [in, out) intersects the booking's stay.
func (b Booking) Overlaps(in, out time.Time) bool {
	return in.Before(b.CheckOut) && b.CheckIn.Before(out)
}

type BookingFilter struct {
	HostID     *int64
	GuestID    *int64
	HomestayID *int64
	Status     *BookingStatus
	Page       Page
}

type BookingsPage struct {
	Items []Booking
	Total int
}

type HostSummary struct {
	ByStatus         map[BookingStatus]int
	UpcomingCheckIns int
	Revenue          decimal.Decimal
	Rating           RatingSummary
	Homestays        int
}
