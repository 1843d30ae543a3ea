package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"

	"homestay_hub/internal/domain"
)

/********** blogs **********/

func scanBlog(s rowScanner) (domain.Blog, error) {
	var (
		b         domain.Blog
		tags      []byte
		status    string
		published sql.NullTime
	)
	err := s.Scan(&b.ID, &b.Title, &b.Slug, &b.Excerpt, &b.ContentHTML, &b.CoverImage, &tags,
		&status, &b.AuthorID, &published, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return domain.Blog{}, mapErr(err)
	}
	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &b.Tags); err != nil {
			return domain.Blog{}, fmt.Errorf("blog %d tags: %w", b.ID, err)
		}
	}
	b.Status = domain.BlogStatus(status)
	b.PublishedAt = timePtr(published)
	b.CreatedAt, b.UpdatedAt = b.CreatedAt.UTC(), b.UpdatedAt.UTC()
	return b, nil
}

func (r *Repo) CreateBlog(ctx context.Context, b *domain.Blog) error {
	now := r.now()
	res, err := r.db.ExecContext(ctx, insertBlogSQL,
		b.Title, b.Slug, b.Excerpt, b.ContentHTML, b.CoverImage, valJSON(b.Tags),
		string(b.Status), b.AuthorID, valTime(b.PublishedAt), now, now)
	if err != nil {
		return mapErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID, b.CreatedAt, b.UpdatedAt = id, now, now
	return nil
}

func (r *Repo) UpdateBlog(ctx context.Context, b domain.Blog) error {
	res, err := r.db.ExecContext(ctx, updateBlogSQL,
		b.Title, b.Slug, b.Excerpt, b.ContentHTML, b.CoverImage, valJSON(b.Tags),
		string(b.Status), b.AuthorID, valTime(b.PublishedAt), r.now(), b.ID)
	if err != nil {
		return mapErr(err)
	}
	return touched(ctx, r.db, res, blogExistsSQL, b.ID)
}

func (r *Repo) DeleteBlog(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, deleteBlogSQL, id)
	if err != nil {
		return err
	}
	return touched(ctx, r.db, res, "")
}

func (r *Repo) GetBlog(ctx context.Context, id int64) (domain.Blog, error) {
	return scanBlog(r.db.QueryRowContext(ctx, selectBlogSQL, id))
}

func (r *Repo) GetBlogBySlug(ctx context.Context, slug string) (domain.Blog, error) {
	return scanBlog(r.db.QueryRowContext(ctx, selectBlogBySlugSQL, slug))
}

func (r *Repo) ListBlogs(ctx context.Context, f domain.BlogFilter) ([]domain.Blog, error) {
	var w where
	if f.Status != nil {
		w.add("status = ?", string(*f.Status))
	}
	if f.Tag != "" {
		w.add("JSON_CONTAINS(tags, JSON_QUOTE(?))", f.Tag)
	}
	limit, largs := limitClause(f.Page)
	rows, err := r.db.QueryContext(ctx, "SELECT "+blogCols+" FROM blogs"+w.String()+blogOrder+limit,
		append(w.args, largs...)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Blog
	for rows.Next() {
		b, err := scanBlog(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *Repo) SlugTaken(ctx context.Context, slug string, exceptID int64) (bool, error) {
	return exists(ctx, r.db, blogSlugTakenSQL, slug, exceptID)
}

/********** communities & managers **********/

func scanCommunity(s rowScanner) (domain.Community, error) {
	var (
		c       domain.Community
		manager sql.NullInt64
	)
	if err := s.Scan(&c.ID, &c.Name, &c.Slug, &c.Description, &c.DestinationID, &manager); err != nil {
		return domain.Community{}, mapErr(err)
	}
	c.ManagerID = int64Ptr(manager)
	return c, nil
}

func (r *Repo) CreateCommunity(ctx context.Context, c *domain.Community) error {
	res, err := r.db.ExecContext(ctx, insertCommunitySQL,
		c.Name, c.Slug, c.Description, c.DestinationID, valInt64(c.ManagerID))
	if err != nil {
		return mapErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = id
	return nil
}

func (r *Repo) UpdateCommunity(ctx context.Context, c domain.Community) error {
	res, err := r.db.ExecContext(ctx, updateCommunitySQL,
		c.Name, c.Slug, c.Description, c.DestinationID, valInt64(c.ManagerID), c.ID)
	if err != nil {
		return mapErr(err)
	}
	return touched(ctx, r.db, res, communityExistsSQL, c.ID)
}

// DeleteCommunity relies on ON DELETE SET NULL to release member homestays.
func (r *Repo) DeleteCommunity(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, deleteCommunitySQL, id)
	if err != nil {
		return mapErr(err)
	}
	return touched(ctx, r.db, res, "")
}

func (r *Repo) GetCommunity(ctx context.Context, id int64) (domain.Community, error) {
	return scanCommunity(r.db.QueryRowContext(ctx, selectCommunitySQL, id))
}

func (r *Repo) GetCommunityBySlug(ctx context.Context, slug string) (domain.Community, error) {
	return scanCommunity(r.db.QueryRowContext(ctx, selectCommunityBySlugSQL, slug))
}

func (r *Repo) ListCommunities(ctx context.Context) ([]domain.Community, error) {
	rows, err := r.db.QueryContext(ctx, listCommunitiesSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Community
	for rows.Next() {
		c, err := scanCommunity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanManager(s rowScanner) (domain.CommunityManager, error) {
	var m domain.CommunityManager
	if err := s.Scan(&m.ID, &m.Name, &m.Email, &m.Phone); err != nil {
		return domain.CommunityManager{}, mapErr(err)
	}
	return m, nil
}

func (r *Repo) CreateManager(ctx context.Context, m *domain.CommunityManager) error {
	res, err := r.db.ExecContext(ctx, insertManagerSQL, m.Name, m.Email, m.Phone)
	if err != nil {
		return mapErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	m.ID = id
	return nil
}

func (r *Repo) UpdateManager(ctx context.Context, m domain.CommunityManager) error {
	res, err := r.db.ExecContext(ctx, updateManagerSQL, m.Name, m.Email, m.Phone, m.ID)
	if err != nil {
		return mapErr(err)
	}
	return touched(ctx, r.db, res, managerExistsSQL, m.ID)
}

func (r *Repo) DeleteManager(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, deleteManagerSQL, id)
	if err != nil {
		return mapErr(err)
	}
	return touched(ctx, r.db, res, "")
}

func (r *Repo) GetManager(ctx context.Context, id int64) (domain.CommunityManager, error) {
	return scanManager(r.db.QueryRowContext(ctx, selectManagerSQL, id))
}

func (r *Repo) ListManagers(ctx context.Context) ([]domain.CommunityManager, error) {
	rows, err := r.db.QueryContext(ctx, listManagersSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.CommunityManager
	for rows.Next() {
		m, err := scanManager(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

/********** master data **********/

func scanMaster(s rowScanner) (domain.MasterItem, error) {
	var (
		it                      domain.MasterItem
		kind                    string
		slug, desc, image, icon sql.NullString
	)
	if err := s.Scan(&it.ID, &kind, &it.Name, &slug, &desc, &image, &icon); err != nil {
		return domain.MasterItem{}, mapErr(err)
	}
	it.Kind = domain.MasterKind(kind)
	it.Slug, it.Description, it.Image, it.Icon = slug.String, desc.String, image.String, icon.String
	return it, nil
}

func (r *Repo) CreateMaster(ctx context.Context, it *domain.MasterItem) error {
	res, err := r.db.ExecContext(ctx, insertMasterSQL,
		string(it.Kind), it.Name, valEmpty(it.Slug), valEmpty(it.Description), valEmpty(it.Image), valEmpty(it.Icon))
	if err != nil {
		return mapErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	it.ID = id
	return nil
}

func (r *Repo) UpdateMaster(ctx context.Context, it domain.MasterItem) error {
	res, err := r.db.ExecContext(ctx, updateMasterSQL,
		it.Name, valEmpty(it.Slug), valEmpty(it.Description), valEmpty(it.Image), valEmpty(it.Icon),
		it.ID, string(it.Kind))
	if err != nil {
		return mapErr(err)
	}
	return touched(ctx, r.db, res, masterExistsSQL, it.ID, string(it.Kind))
}

func (r *Repo) masterInUse(ctx context.Context, q querier, kind domain.MasterKind, id int64) (bool, error) {
	switch kind {
	case domain.KindDestination:
		return exists(ctx, q, destinationInUseSQL, id, id)
	case domain.KindPropertyType:
		return exists(ctx, q, propertyTypeInUseSQL, id)
	case domain.KindAmenity:
		return exists(ctx, q, amenityInUseSQL, strconv.FormatInt(id, 10))
	}
	return false, nil
}

func (r *Repo) DeleteMaster(ctx context.Context, kind domain.MasterKind, id int64) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		used, err := r.masterInUse(ctx, tx, kind, id)
		if err != nil {
			return err
		}
		if used {
			return fmt.Errorf("%w: %s %d is still referenced", domain.ErrConflict, kind, id)
		}
		res, err := tx.ExecContext(ctx, deleteMasterSQL, id, string(kind))
		if err != nil {
			return mapErr(err)
		}
		return touched(ctx, tx, res, "")
	})
}

func (r *Repo) GetMaster(ctx context.Context, kind domain.MasterKind, id int64) (domain.MasterItem, error) {
	return scanMaster(r.db.QueryRowContext(ctx, selectMasterSQL, id, string(kind)))
}

func (r *Repo) GetDestinationBySlug(ctx context.Context, slug string) (domain.MasterItem, error) {
	return scanMaster(r.db.QueryRowContext(ctx, selectDestinationBySlugSQL, slug))
}

func (r *Repo) ListMaster(ctx context.Context, kind domain.MasterKind) ([]domain.MasterItem, error) {
	rows, err := r.db.QueryContext(ctx, listMasterSQL, string(kind))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.MasterItem
	for rows.Next() {
		it, err := scanMaster(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}
