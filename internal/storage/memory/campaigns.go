package memory

import (
	"context"
	"sort"

	"homestay_hub/internal/domain"
)

func (s *Store) CreateCampaign(_ context.Context, c *domain.Campaign, codes []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, code := range codes {
		if _, ok := s.qrcodes[code]; ok {
			return domain.ErrConflict
		}
	}
	c.ID = s.nextID()
	c.CreatedAt = s.now()
	s.campaigns[c.ID] = *c
	for _, code := range codes {
		s.qrcodes[code] = domain.QRCode{Code: code, CampaignID: c.ID, CreatedAt: c.CreatedAt}
	}
	return nil
}

func (s *Store) GetCampaign(_ context.Context, id int64) (domain.Campaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.campaigns[id]
	if !ok {
		return domain.Campaign{}, domain.ErrNotFound
	}
	return c, nil
}

func (s *Store) ListCampaigns(_ context.Context, pg domain.Page) ([]domain.Campaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Campaign, 0, len(s.campaigns))
	for _, c := range s.campaigns {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return paginate(out, pg), nil
}

func (s *Store) DeactivateCampaign(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.campaigns[id]
	if !ok {
		return domain.ErrNotFound
	}
	c.Active = false
	s.campaigns[id] = c
	return nil
}

func (s *Store) AddQRCodes(_ context.Context, campaignID int64, codes []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.campaigns[campaignID]; !ok {
		return domain.ErrNotFound
	}
	for _, code := range codes {
		if _, ok := s.qrcodes[code]; ok {
			return domain.ErrConflict
		}
	}
	for _, code := range codes {
		s.qrcodes[code] = domain.QRCode{Code: code, CampaignID: campaignID, CreatedAt: s.now()}
	}
	return nil
}

func (s *Store) ListQRCodes(_ context.Context, campaignID int64) ([]domain.QRCode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.QRCode
	for _, q := range s.qrcodes {
		if q.CampaignID == campaignID {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (s *Store) GetQRCode(_ context.Context, code string) (domain.QRCode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.qrcodes[code]
	if !ok {
		return domain.QRCode{}, domain.ErrNotFound
	}
	return q, nil
}

func (s *Store) bumpQR(code string, f func(*domain.QRCode)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.qrcodes[code]
	if !ok {
		return domain.ErrNotFound
	}
	f(&q)
	s.qrcodes[code] = q
	return nil
}

func (s *Store) IncrementScan(_ context.Context, code string) error {
	return s.bumpQR(code, func(q *domain.QRCode) { q.Scans++ })
}

func (s *Store) IncrementSubmission(_ context.Context, code string) error {
	return s.bumpQR(code, func(q *domain.QRCode) { q.Submissions++ })
}

func (s *Store) CreateDiscountCode(_ context.Context, d domain.DiscountCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.discounts[d.Code]; ok {
		return domain.ErrConflict
	}
	s.discounts[d.Code] = d
	return nil
}

func (s *Store) GetDiscountCode(_ context.Context, code string) (domain.DiscountCode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.discounts[code]
	if !ok {
		return domain.DiscountCode{}, domain.ErrNotFound
	}
	return d, nil
}
