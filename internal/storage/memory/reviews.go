package memory

import (
	"context"
	"sort"

	"homestay_hub/internal/domain"
)

func (s *Store) withGuestName(r domain.Review) domain.Review {
	if u, ok := s.users[r.GuestID]; ok {
		r.GuestName = u.Name
	}
	return r
}

func (s *Store) CreateReview(_ context.Context, r *domain.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertReview(r)
}

// CreateRewardedReview stores a QR review and its discount code together.
func (s *Store) CreateRewardedReview(_ context.Context, r *domain.Review, d *domain.DiscountCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d != nil {
		if _, ok := s.discounts[d.Code]; ok {
			return domain.ErrConflict
		}
	}
	if err := s.insertReview(r); err != nil {
		return err
	}
	if d != nil {
		s.discounts[d.Code] = *d
	}
	return nil
}

func (s *Store) insertReview(r *domain.Review) error {
	for _, o := range s.reviews {
		if r.BookingID != nil && o.BookingID != nil && *o.BookingID == *r.BookingID {
			return domain.ErrConflict
		}
		if r.CampaignID != nil && o.CampaignID != nil && *o.CampaignID == *r.CampaignID && o.GuestID == r.GuestID {
			return domain.ErrConflict
		}
	}
	r.ID = s.nextID()
	r.CreatedAt = s.now()
	s.reviews[r.ID] = *r
	return nil
}

func (s *Store) GetReview(_ context.Context, id int64) (domain.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reviews[id]
	if !ok {
		return domain.Review{}, domain.ErrNotFound
	}
	return s.withGuestName(r), nil
}

func newestFirst(out []domain.Review) {
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
}

func (s *Store) ListReviews(_ context.Context, homestayID int64, pg domain.PageQuery) (domain.ReviewsPage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Review
	for _, r := range s.reviews {
		if r.HomestayID == homestayID {
			out = append(out, s.withGuestName(r))
		}
	}
	newestFirst(out)
	if pg.Limit > 0 && len(out) > pg.Limit {
		out = out[:pg.Limit]
	}
	return domain.ReviewsPage{Items: out}, nil
}

func (s *Store) ListHostReviews(_ context.Context, hostID int64, pg domain.Page) (domain.ReviewsPage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Review
	for _, r := range s.reviews {
		if h, ok := s.homestays[r.HomestayID]; ok && h.HostID == hostID {
			out = append(out, s.withGuestName(r))
		}
	}
	newestFirst(out)
	return domain.ReviewsPage{Items: paginate(out, pg)}, nil
}

func (s *Store) ReplyToReview(_ context.Context, id int64, reply string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reviews[id]
	if !ok {
		return domain.ErrNotFound
	}
	r.HostReply = &reply
	s.reviews[id] = r
	return nil
}

func (s *Store) ReviewForBooking(_ context.Context, bookingID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.reviews {
		if r.BookingID != nil && *r.BookingID == bookingID {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) ReviewForCampaign(_ context.Context, campaignID, guestID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.reviews {
		if r.CampaignID != nil && *r.CampaignID == campaignID && r.GuestID == guestID {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) RatingSummary(_ context.Context, homestayID int64) (domain.RatingSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out domain.RatingSummary
	sum := 0
	for _, r := range s.reviews {
		if r.HomestayID == homestayID {
			out.Count++
			sum += r.Rating
		}
	}
	if out.Count > 0 {
		out.Average = float64(sum) / float64(out.Count)
	}
	return out, nil
}
