package memory

import (
	"context"
	"sort"

	"homestay_hub/internal/domain"
)

/********** blogs **********/

func cloneBlog(b domain.Blog) domain.Blog {
	b.Tags = append([]string(nil), b.Tags...)
	return b
}

func (s *Store) CreateBlog(_ context.Context, b *domain.Blog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.blogs {
		if o.Slug == b.Slug {
			return domain.ErrConflict
		}
	}
	b.ID = s.nextID()
	b.CreatedAt = s.now()
	b.UpdatedAt = b.CreatedAt
	s.blogs[b.ID] = cloneBlog(*b)
	return nil
}

func (s *Store) UpdateBlog(_ context.Context, b domain.Blog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.blogs[b.ID]
	if !ok {
		return domain.ErrNotFound
	}
	for _, o := range s.blogs {
		if o.ID != b.ID && o.Slug == b.Slug {
			return domain.ErrConflict
		}
	}
	b.CreatedAt = old.CreatedAt
	b.UpdatedAt = s.now()
	s.blogs[b.ID] = cloneBlog(b)
	return nil
}

func (s *Store) DeleteBlog(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blogs[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.blogs, id)
	return nil
}

func (s *Store) GetBlog(_ context.Context, id int64) (domain.Blog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.blogs[id]
	if !ok {
		return domain.Blog{}, domain.ErrNotFound
	}
	return cloneBlog(b), nil
}

func (s *Store) GetBlogBySlug(_ context.Context, slug string) (domain.Blog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, b := range s.blogs {
		if b.Slug == slug {
			return cloneBlog(b), nil
		}
	}
	return domain.Blog{}, domain.ErrNotFound
}

func (s *Store) ListBlogs(_ context.Context, f domain.BlogFilter) ([]domain.Blog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Blog
	for _, b := range s.blogs {
		if f.Status != nil && b.Status != *f.Status {
			continue
		}
		if f.Tag != "" && !hasTag(b.Tags, f.Tag) {
			continue
		}
		out = append(out, cloneBlog(b))
	}
	sort.Slice(out, func(i, j int) bool {
		ti, tj := out[i].CreatedAt, out[j].CreatedAt
		if out[i].PublishedAt != nil {
			ti = *out[i].PublishedAt
		}
		if out[j].PublishedAt != nil {
			tj = *out[j].PublishedAt
		}
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return out[i].ID > out[j].ID
	})
	return paginate(out, f.Page), nil
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

func (s *Store) SlugTaken(_ context.Context, slug string, exceptID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, b := range s.blogs {
		if b.Slug == slug && b.ID != exceptID {
			return true, nil
		}
	}
	return false, nil
}

/********** communities **********/

func (s *Store) CreateCommunity(_ context.Context, c *domain.Community) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.communities {
		if o.Slug == c.Slug {
			return domain.ErrConflict
		}
	}
	c.ID = s.nextID()
	s.communities[c.ID] = *c
	return nil
}

func (s *Store) UpdateCommunity(_ context.Context, c domain.Community) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.communities[c.ID]; !ok {
		return domain.ErrNotFound
	}
	for _, o := range s.communities {
		if o.ID != c.ID && o.Slug == c.Slug {
			return domain.ErrConflict
		}
	}
	s.communities[c.ID] = c
	return nil
}

func (s *Store) DeleteCommunity(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.communities[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.communities, id)
	for hid, h := range s.homestays {
		if h.CommunityID != nil && *h.CommunityID == id {
			h.CommunityID = nil
			s.homestays[hid] = h
		}
	}
	return nil
}

func (s *Store) GetCommunity(_ context.Context, id int64) (domain.Community, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.communities[id]
	if !ok {
		return domain.Community{}, domain.ErrNotFound
	}
	return c, nil
}

func (s *Store) GetCommunityBySlug(_ context.Context, slug string) (domain.Community, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.communities {
		if c.Slug == slug {
			return c, nil
		}
	}
	return domain.Community{}, domain.ErrNotFound
}

func (s *Store) ListCommunities(_ context.Context) ([]domain.Community, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Community, 0, len(s.communities))
	for _, c := range s.communities {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) CreateManager(_ context.Context, m *domain.CommunityManager) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m.ID = s.nextID()
	s.managers[m.ID] = *m
	return nil
}

func (s *Store) UpdateManager(_ context.Context, m domain.CommunityManager) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.managers[m.ID]; !ok {
		return domain.ErrNotFound
	}
	s.managers[m.ID] = m
	return nil
}

func (s *Store) DeleteManager(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.managers[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.managers, id)
	for cid, c := range s.communities {
		if c.ManagerID != nil && *c.ManagerID == id {
			c.ManagerID = nil
			s.communities[cid] = c
		}
	}
	return nil
}

func (s *Store) GetManager(_ context.Context, id int64) (domain.CommunityManager, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.managers[id]
	if !ok {
		return domain.CommunityManager{}, domain.ErrNotFound
	}
	return m, nil
}

func (s *Store) ListManagers(_ context.Context) ([]domain.CommunityManager, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.CommunityManager, 0, len(s.managers))
	for _, m := range s.managers {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

/********** master data **********/

func (s *Store) CreateMaster(_ context.Context, it *domain.MasterItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tbl, ok := s.master[it.Kind]
	if !ok {
		return domain.ErrNotFound
	}
	for _, o := range tbl {
		if o.Name == it.Name || (it.Slug != "" && o.Slug == it.Slug) {
			return domain.ErrConflict
		}
	}
	it.ID = s.nextID()
	tbl[it.ID] = *it
	return nil
}

func (s *Store) UpdateMaster(_ context.Context, it domain.MasterItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tbl, ok := s.master[it.Kind]
	if !ok {
		return domain.ErrNotFound
	}
	if _, ok := tbl[it.ID]; !ok {
		return domain.ErrNotFound
	}
	for _, o := range tbl {
		if o.ID != it.ID && (o.Name == it.Name || (it.Slug != "" && o.Slug == it.Slug)) {
			return domain.ErrConflict
		}
	}
	tbl[it.ID] = it
	return nil
}

func (s *Store) masterInUse(kind domain.MasterKind, id int64) bool {
	for _, h := range s.homestays {
		switch kind {
		case domain.KindDestination:
			if h.DestinationID == id {
				return true
			}
		case domain.KindPropertyType:
			if h.PropertyTypeID == id {
				return true
			}
		case domain.KindAmenity:
			for _, a := range h.AmenityIDs {
				if a == id {
					return true
				}
			}
		}
	}
	if kind == domain.KindDestination {
		for _, c := range s.communities {
			if c.DestinationID == id {
				return true
			}
		}
	}
	return false
}

func (s *Store) DeleteMaster(_ context.Context, kind domain.MasterKind, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tbl, ok := s.master[kind]
	if !ok {
		return domain.ErrNotFound
	}
	if _, ok := tbl[id]; !ok {
		return domain.ErrNotFound
	}
	if s.masterInUse(kind, id) {
		return domain.ErrConflict
	}
	delete(tbl, id)
	return nil
}

func (s *Store) GetMaster(_ context.Context, kind domain.MasterKind, id int64) (domain.MasterItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	it, ok := s.master[kind][id]
	if !ok {
		return domain.MasterItem{}, domain.ErrNotFound
	}
	return it, nil
}

func (s *Store) GetDestinationBySlug(_ context.Context, slug string) (domain.MasterItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, it := range s.master[domain.KindDestination] {
		if it.Slug == slug {
			return it, nil
		}
	}
	return domain.MasterItem{}, domain.ErrNotFound
}

func (s *Store) ListMaster(_ context.Context, kind domain.MasterKind) ([]domain.MasterItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.MasterItem, 0, len(s.master[kind]))
	for _, it := range s.master[kind] {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

/********** users **********/

func (s *Store) CreateUser(_ context.Context, u *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.users {
		if u.Email != nil && o.Email != nil && *o.Email == *u.Email {
			return domain.ErrConflict
		}
		if u.Phone != nil && o.Phone != nil && *o.Phone == *u.Phone {
			return domain.ErrConflict
		}
	}
	u.ID = s.nextID()
	u.CreatedAt = s.now()
	s.users[u.ID] = *u
	return nil
}

func (s *Store) GetUser(_ context.Context, id int64) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email != nil && *u.Email == email {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrNotFound
}

func (s *Store) GetUserByPhone(_ context.Context, phone string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Phone != nil && *u.Phone == phone {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrNotFound
}

func (s *Store) SetRole(_ context.Context, id int64, role domain.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return domain.ErrNotFound
	}
	u.Role = role
	s.users[id] = u
	return nil
}
