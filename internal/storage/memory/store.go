// Package memory is an in-process Store used by tests and APP_STORAGE=memory.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"homestay_hub/internal/domain"
)

type Store struct {
	mu  sync.RWMutex
	now func() time.Time
	seq int64

	homestays   map[int64]domain.Homestay
	rooms       map[int64]domain.Room
	bookings    map[int64]domain.Booking
	reviews     map[int64]domain.Review
	campaigns   map[int64]domain.Campaign
	qrcodes     map[string]domain.QRCode
	discounts   map[string]domain.DiscountCode
	blogs       map[int64]domain.Blog
	communities map[int64]domain.Community
	managers    map[int64]domain.CommunityManager
	master      map[domain.MasterKind]map[int64]domain.MasterItem
	users       map[int64]domain.User
}

var _ domain.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		now:         time.Now,
		homestays:   map[int64]domain.Homestay{},
		rooms:       map[int64]domain.Room{},
		bookings:    map[int64]domain.Booking{},
		reviews:     map[int64]domain.Review{},
		campaigns:   map[int64]domain.Campaign{},
		qrcodes:     map[string]domain.QRCode{},
		discounts:   map[string]domain.DiscountCode{},
		blogs:       map[int64]domain.Blog{},
		communities: map[int64]domain.Community{},
		managers:    map[int64]domain.CommunityManager{},
		master: map[domain.MasterKind]map[int64]domain.MasterItem{
			domain.KindDestination:  {},
			domain.KindAmenity:      {},
			domain.KindPropertyType: {},
		},
		users: map[int64]domain.User{},
	}
}

func (s *Store) nextID() int64 {
	s.seq++
	return s.seq
}

func paginate[T any](items []T, p domain.Page) []T {
	if p.Limit <= 0 {
		return items
	}
	off := p.Offset()
	if off >= len(items) {
		return nil
	}
	end := off + p.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[off:end]
}

func cloneHomestay(h domain.Homestay) domain.Homestay {
	h.AmenityIDs = append([]int64(nil), h.AmenityIDs...)
	h.Images = append([]string(nil), h.Images...)
	return h
}

/********** homestays & rooms **********/

func (s *Store) CreateHomestay(_ context.Context, h *domain.Homestay) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	h.ID = s.nextID()
	h.CreatedAt = s.now()
	h.UpdatedAt = h.CreatedAt
	s.homestays[h.ID] = cloneHomestay(*h)
	return nil
}

func (s *Store) UpdateHomestay(_ context.Context, h domain.Homestay) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.homestays[h.ID]
	if !ok {
		return domain.ErrNotFound
	}
	h.CreatedAt = old.CreatedAt
	h.UpdatedAt = s.now()
	s.homestays[h.ID] = cloneHomestay(h)
	return nil
}

func (s *Store) GetHomestay(_ context.Context, id int64) (domain.Homestay, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.homestays[id]
	if !ok {
		return domain.Homestay{}, domain.ErrNotFound
	}
	return cloneHomestay(h), nil
}

func (s *Store) DraftByHost(_ context.Context, hostID int64) (domain.Homestay, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var best *domain.Homestay
	for _, h := range s.homestays {
		if h.HostID != hostID || h.Status != domain.HomestayDraft {
			continue
		}
		if best == nil || h.ID > best.ID {
			h := h
			best = &h
		}
	}
	if best == nil {
		return domain.Homestay{}, domain.ErrNotFound
	}
	return cloneHomestay(*best), nil
}

// minPrice of the active rooms of a homestay; caller holds the lock.
func (s *Store) minPrice(homestayID int64, guests int) (decimal.Decimal, bool) {
	var out decimal.Decimal
	found := false
	for _, r := range s.rooms {
		if r.HomestayID != homestayID || !r.Active || r.Capacity < guests {
			continue
		}
		if !found || r.PricePerNight.LessThan(out) {
			out = r.PricePerNight
			found = true
		}
	}
	return out, found
}

func (s *Store) ListHomestays(_ context.Context, q domain.HomestaysQuery) (domain.HomestaysPage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	needle := strings.ToLower(strings.TrimSpace(q.Q))
	var out []domain.Homestay
	for _, h := range s.homestays {
		switch {
		case q.Status != nil && h.Status != *q.Status,
			q.HostID != nil && h.HostID != *q.HostID,
			q.DestinationID != nil && h.DestinationID != *q.DestinationID,
			q.CommunityID != nil && (h.CommunityID == nil || *h.CommunityID != *q.CommunityID):
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(h.Name), needle) &&
			!strings.Contains(strings.ToLower(h.City), needle) {
			continue
		}
		if q.Guests > 0 || q.MinPrice != nil || q.MaxPrice != nil {
			p, ok := s.minPrice(h.ID, q.Guests)
			if !ok {
				continue
			}
			if q.MinPrice != nil && p.LessThan(*q.MinPrice) {
				continue
			}
			if q.MaxPrice != nil && p.GreaterThan(*q.MaxPrice) {
				continue
			}
		}
		out = append(out, cloneHomestay(h))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return domain.HomestaysPage{Items: paginate(out, q.Page), Total: len(out)}, nil
}

func (s *Store) SetFeatured(_ context.Context, ids []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		if _, ok := s.homestays[id]; !ok {
			return domain.ErrNotFound
		}
	}
	for id, h := range s.homestays {
		h.FeaturedRank = nil
		s.homestays[id] = h
	}
	for i, id := range ids {
		h := s.homestays[id]
		rank := i + 1
		h.FeaturedRank = &rank
		s.homestays[id] = h
	}
	return nil
}

func (s *Store) ListFeatured(_ context.Context) ([]domain.Homestay, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Homestay
	for _, h := range s.homestays {
		if h.FeaturedRank != nil && h.Status == domain.HomestayApproved {
			out = append(out, cloneHomestay(h))
		}
	}
	sort.Slice(out, func(i, j int) bool { return *out[i].FeaturedRank < *out[j].FeaturedRank })
	return out, nil
}

func (s *Store) AssignCommunity(_ context.Context, communityID int64, ids []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.communities[communityID]; !ok {
		return domain.ErrNotFound
	}
	for _, id := range ids {
		if _, ok := s.homestays[id]; !ok {
			return domain.ErrNotFound
		}
	}
	for id, h := range s.homestays {
		if h.CommunityID != nil && *h.CommunityID == communityID {
			h.CommunityID = nil
			s.homestays[id] = h
		}
	}
	for _, id := range ids {
		h := s.homestays[id]
		cid := communityID
		h.CommunityID = &cid
		s.homestays[id] = h
	}
	return nil
}

func (s *Store) ReplaceRooms(_ context.Context, homestayID int64, rooms []domain.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, r := range s.rooms {
		if r.HomestayID == homestayID {
			delete(s.rooms, id)
		}
	}
	for _, r := range rooms {
		r.ID = s.nextID()
		r.HomestayID = homestayID
		s.rooms[r.ID] = r
	}
	return nil
}

func (s *Store) CreateRoom(_ context.Context, r *domain.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.homestays[r.HomestayID]; !ok {
		return domain.ErrNotFound
	}
	r.ID = s.nextID()
	s.rooms[r.ID] = *r
	return nil
}

func (s *Store) UpdateRoom(_ context.Context, r domain.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.rooms[r.ID]
	if !ok {
		return domain.ErrNotFound
	}
	r.HomestayID = old.HomestayID
	s.rooms[r.ID] = r
	return nil
}

func (s *Store) DeleteRoom(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.rooms, id)
	return nil
}

func (s *Store) GetRoom(_ context.Context, id int64) (domain.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rooms[id]
	if !ok {
		return domain.Room{}, domain.ErrNotFound
	}
	return r, nil
}

func (s *Store) ListRooms(_ context.Context, homestayID int64) ([]domain.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Room
	for _, r := range s.rooms {
		if r.HomestayID == homestayID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
