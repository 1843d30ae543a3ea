package memory

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"homestay_hub/internal/domain"
)

func (s *Store) CreateBooking(_ context.Context, b *domain.Booking, roomQuantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	taken := 0
	for _, o := range s.bookings {
		if o.RoomID == b.RoomID && o.Status.Open() && o.Overlaps(b.CheckIn, b.CheckOut) {
			taken++
		}
	}
	if taken >= roomQuantity {
		return domain.ErrConflict
	}

	if b.DiscountCode != nil {
		d, ok := s.discounts[*b.DiscountCode]
		if !ok || d.UsedAt != nil {
			return domain.ErrConflict
		}
		used := s.now()
		d.UsedAt = &used
		s.discounts[d.Code] = d
	}

	b.ID = s.nextID()
	b.CreatedAt = s.now()
	b.UpdatedAt = b.CreatedAt
	s.bookings[b.ID] = *b
	return nil
}

func (s *Store) GetBooking(_ context.Context, id int64) (domain.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bookings[id]
	if !ok {
		return domain.Booking{}, domain.ErrNotFound
	}
	return b, nil
}

func (s *Store) ListBookings(_ context.Context, f domain.BookingFilter) (domain.BookingsPage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Booking
	for _, b := range s.bookings {
		if f.GuestID != nil && b.GuestID != *f.GuestID {
			continue
		}
		if f.HomestayID != nil && b.HomestayID != *f.HomestayID {
			continue
		}
		if f.Status != nil && b.Status != *f.Status {
			continue
		}
		if f.HostID != nil {
			h, ok := s.homestays[b.HomestayID]
			if !ok || h.HostID != *f.HostID {
				continue
			}
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CheckIn.Equal(out[j].CheckIn) {
			return out[i].CheckIn.After(out[j].CheckIn)
		}
		return out[i].ID > out[j].ID
	})
	return domain.BookingsPage{Items: paginate(out, f.Page), Total: len(out)}, nil
}

func (s *Store) UpdateBookingStatus(_ context.Context, id int64, from, to domain.BookingStatus, reason *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return domain.ErrNotFound
	}
	if b.Status != from {
		return domain.ErrConflict
	}
	b.Status = to
	if reason != nil {
		r := *reason
		b.CancelReason = &r
	}
	b.UpdatedAt = s.now()
	s.bookings[id] = b
	return nil
}

func (s *Store) HasFutureBookings(_ context.Context, roomID int64, from time.Time) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, b := range s.bookings {
		if b.RoomID == roomID && b.Status.Open() && b.CheckOut.After(from) {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) HomestaysWithOpenBookings(_ context.Context) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := map[int64]struct{}{}
	var out []int64
	for _, b := range s.bookings {
		if !b.Status.Open() {
			continue
		}
		if _, ok := seen[b.HomestayID]; ok {
			continue
		}
		seen[b.HomestayID] = struct{}{}
		out = append(out, b.HomestayID)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (s *Store) HostSummary(_ context.Context, hostID int64, now time.Time) (domain.HostSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := domain.HostSummary{ByStatus: map[domain.BookingStatus]int{}, Revenue: decimal.Zero}
	mine := map[int64]bool{}
	for id, h := range s.homestays {
		if h.HostID == hostID {
			mine[id] = true
			out.Homestays++
		}
	}
	today := now.UTC().Truncate(24 * time.Hour)
	horizon := today.AddDate(0, 0, 7)
	for _, b := range s.bookings {
		if !mine[b.HomestayID] {
			continue
		}
		out.ByStatus[b.Status]++
		if b.Status == domain.BookingConfirmed && !b.CheckIn.Before(today) && b.CheckIn.Before(horizon) {
			out.UpcomingCheckIns++
		}
		if b.Status == domain.BookingCompleted {
			out.Revenue = out.Revenue.Add(b.Total)
		}
	}
	sum := 0
	for _, r := range s.reviews {
		if mine[r.HomestayID] {
			out.Rating.Count++
			sum += r.Rating
		}
	}
	if out.Rating.Count > 0 {
		out.Rating.Average = float64(sum) / float64(out.Rating.Count)
	}
	return out, nil
}
