package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"homestay_hub/internal/adapters/observability"
	"homestay_hub/internal/domain"
)

// transition moves b to the next status if the lifecycle allows it. The
// store rejects the write with ErrConflict when someone else moved b first.
func transition(ctx context.Context, st domain.BookingRepository, b domain.Booking, to domain.BookingStatus, actor string, reason *string) (domain.Booking, error) {
	if !domain.CanTransition(b.Status, to) {
		return domain.Booking{}, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, b.Status, to)
	}
	if err := st.UpdateBookingStatus(ctx, b.ID, b.Status, to, reason); err != nil {
		return domain.Booking{}, err
	}
	observability.ObserveBooking(string(b.Status), string(to), actor)
	log.Info().
		Int64("booking_id", b.ID).
		Str("from", string(b.Status)).
		Str("to", string(to)).
		Str("actor", actor).
		Msg("booking status changed")
	b.Status = to
	if reason != nil {
		r := *reason
		b.CancelReason = &r
	}
	return b, nil
}

// bookingRows resolves the display names a booking list needs.
func bookingRows(ctx context.Context, st domain.Store, bs []domain.Booking) ([]domain.BookingRow, error) {
	homestays := map[int64]string{}
	rooms := map[int64]string{}
	guests := map[int64]string{}
	out := make([]domain.BookingRow, 0, len(bs))
	for _, b := range bs {
		if _, ok := homestays[b.HomestayID]; !ok {
			h, err := st.GetHomestay(ctx, b.HomestayID)
			if err != nil {
				return nil, err
			}
			homestays[b.HomestayID] = h.Name
		}
		if _, ok := rooms[b.RoomID]; !ok {
			r, err := st.GetRoom(ctx, b.RoomID)
			if err != nil && !errors.Is(err, domain.ErrNotFound) {
				return nil, err
			}
			rooms[b.RoomID] = r.Name
		}
		if _, ok := guests[b.GuestID]; !ok {
			u, err := st.GetUser(ctx, b.GuestID)
			if err != nil {
				return nil, err
			}
			guests[b.GuestID] = u.Name
		}
		out = append(out, domain.BookingRow{
			Booking:   b,
			Homestay:  homestays[b.HomestayID],
			Room:      rooms[b.RoomID],
			GuestName: guests[b.GuestID],
		})
	}
	return out, nil
}
