package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"homestay_hub/internal/domain"
)

func scanHomestay(s rowScanner) (domain.Homestay, error) {
	var (
		h                 domain.Homestay
		community         sql.NullInt64
		lat, lon          sql.NullFloat64
		amenities, images []byte
		status            string
		reason            sql.NullString
		rank              sql.NullInt64
	)
	err := s.Scan(&h.ID, &h.HostID, &h.Name, &h.Slug, &h.Description, &h.PropertyTypeID,
		&h.DestinationID, &community, &h.Address, &h.City, &lat, &lon, &amenities,
		&images, &status, &reason, &rank, &h.OnboardingStep, &h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		return domain.Homestay{}, mapErr(err)
	}
	h.CommunityID = int64Ptr(community)
	if lat.Valid {
		v := lat.Float64
		h.Lat = &v
	}
	if lon.Valid {
		v := lon.Float64
		h.Lon = &v
	}
	if len(amenities) > 0 {
		if err := json.Unmarshal(amenities, &h.AmenityIDs); err != nil {
			return domain.Homestay{}, fmt.Errorf("homestay %d amenity_ids: %w", h.ID, err)
		}
	}
	if len(images) > 0 {
		if err := json.Unmarshal(images, &h.Images); err != nil {
			return domain.Homestay{}, fmt.Errorf("homestay %d images: %w", h.ID, err)
		}
	}
	h.Status = domain.HomestayStatus(status)
	h.RejectionReason = strPtr(reason)
	if rank.Valid {
		v := int(rank.Int64)
		h.FeaturedRank = &v
	}
	h.CreatedAt = h.CreatedAt.UTC()
	h.UpdatedAt = h.UpdatedAt.UTC()
	return h, nil
}

func collectHomestays(rows *sql.Rows) ([]domain.Homestay, error) {
	defer rows.Close()
	var out []domain.Homestay
	for rows.Next() {
		h, err := scanHomestay(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (r *Repo) CreateHomestay(ctx context.Context, h *domain.Homestay) error {
	now := r.now()
	res, err := r.db.ExecContext(ctx, insertHomestaySQL,
		h.HostID, h.Name, h.Slug, h.Description, h.PropertyTypeID, h.DestinationID,
		valInt64(h.CommunityID), h.Address, h.City, valF64(h.Lat), valF64(h.Lon),
		valJSON(h.AmenityIDs), valJSON(h.Images), string(h.Status), valStr(h.RejectionReason),
		valInt(h.FeaturedRank), h.OnboardingStep, now, now)
	if err != nil {
		return mapErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	h.ID, h.CreatedAt, h.UpdatedAt = id, now, now
	return nil
}

func (r *Repo) UpdateHomestay(ctx context.Context, h domain.Homestay) error {
	res, err := r.db.ExecContext(ctx, updateHomestaySQL,
		h.HostID, h.Name, h.Slug, h.Description, h.PropertyTypeID, h.DestinationID,
		valInt64(h.CommunityID), h.Address, h.City, valF64(h.Lat), valF64(h.Lon),
		valJSON(h.AmenityIDs), valJSON(h.Images), string(h.Status), valStr(h.RejectionReason),
		valInt(h.FeaturedRank), h.OnboardingStep, r.now(), h.ID)
	if err != nil {
		return mapErr(err)
	}
	return touched(ctx, r.db, res, homestayExistsSQL, h.ID)
}

func (r *Repo) GetHomestay(ctx context.Context, id int64) (domain.Homestay, error) {
	return scanHomestay(r.db.QueryRowContext(ctx, selectHomestaySQL, id))
}

func (r *Repo) ListHomestays(ctx context.Context, q domain.HomestaysQuery) (domain.HomestaysPage, error) {
	var (
		join string
		w    where
	)
	if q.Guests > 0 || q.MinPrice != nil || q.MaxPrice != nil {
		join = cheapestRoomJoin
		w.args = append(w.args, q.Guests)
		if q.MinPrice != nil {
			w.add("mp.min_price >= ?", *q.MinPrice)
		}
		if q.MaxPrice != nil {
			w.add("mp.min_price <= ?", *q.MaxPrice)
		}
	}
	if q.Status != nil {
		w.add("h.status = ?", string(*q.Status))
	}
	if q.HostID != nil {
		w.add("h.host_id = ?", *q.HostID)
	}
	if q.DestinationID != nil {
		w.add("h.destination_id = ?", *q.DestinationID)
	}
	if q.CommunityID != nil {
		w.add("h.community_id = ?", *q.CommunityID)
	}
	if s := strings.TrimSpace(q.Q); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		w.add("(LOWER(h.name) LIKE ? OR LOWER(h.city) LIKE ?)", like, like)
	}

	from := " FROM homestays h" + join + w.String()
	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*)"+from, w.args...).Scan(&total); err != nil {
		return domain.HomestaysPage{}, err
	}
	limit, largs := limitClause(q.Page)
	rows, err := r.db.QueryContext(ctx, "SELECT "+homestayCols+from+" ORDER BY h.id DESC"+limit,
		append(append([]any(nil), w.args...), largs...)...)
	if err != nil {
		return domain.HomestaysPage{}, err
	}
	items, err := collectHomestays(rows)
	if err != nil {
		return domain.HomestaysPage{}, err
	}
	return domain.HomestaysPage{Items: items, Total: total}, nil
}

func (r *Repo) DraftByHost(ctx context.Context, hostID int64) (domain.Homestay, error) {
	return scanHomestay(r.db.QueryRowContext(ctx, draftByHostSQL, hostID))
}

func (r *Repo) SetFeatured(ctx context.Context, ids []int64) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		for _, id := range ids {
			ok, err := exists(ctx, tx, homestayExistsSQL, id)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: homestay %d", domain.ErrNotFound, id)
			}
		}
		if _, err := tx.ExecContext(ctx, clearFeaturedSQL); err != nil {
			return err
		}
		for i, id := range ids {
			if _, err := tx.ExecContext(ctx, setFeaturedSQL, i+1, id); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *Repo) ListFeatured(ctx context.Context) ([]domain.Homestay, error) {
	rows, err := r.db.QueryContext(ctx, listFeaturedSQL)
	if err != nil {
		return nil, err
	}
	return collectHomestays(rows)
}

func (r *Repo) AssignCommunity(ctx context.Context, communityID int64, homestayIDs []int64) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		ok, err := exists(ctx, tx, communityExistsSQL, communityID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: community %d", domain.ErrNotFound, communityID)
		}
		for _, id := range homestayIDs {
			ok, err := exists(ctx, tx, homestayExistsSQL, id)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: homestay %d", domain.ErrNotFound, id)
			}
		}
		if _, err := tx.ExecContext(ctx, clearCommunitySQL, communityID); err != nil {
			return err
		}
		for _, id := range homestayIDs {
			if _, err := tx.ExecContext(ctx, setCommunitySQL, communityID, id); err != nil {
				return err
			}
		}
		return nil
	})
}

/********** rooms **********/

func scanRoom(s rowScanner) (domain.Room, error) {
	var rm domain.Room
	if err := s.Scan(&rm.ID, &rm.HomestayID, &rm.Name, &rm.Capacity, &rm.PricePerNight,
		&rm.Quantity, &rm.Active); err != nil {
		return domain.Room{}, mapErr(err)
	}
	return rm, nil
}

func insertRoom(ctx context.Context, q querier, rm *domain.Room) error {
	res, err := q.ExecContext(ctx, insertRoomSQL,
		rm.HomestayID, rm.Name, rm.Capacity, rm.PricePerNight, rm.Quantity, rm.Active)
	if err != nil {
		return mapErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rm.ID = id
	return nil
}

func (r *Repo) ReplaceRooms(ctx context.Context, homestayID int64, rooms []domain.Room) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, deleteRoomsSQL, homestayID); err != nil {
			return mapErr(err)
		}
		for i := range rooms {
			rooms[i].HomestayID = homestayID
			if err := insertRoom(ctx, tx, &rooms[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *Repo) CreateRoom(ctx context.Context, rm *domain.Room) error {
	return insertRoom(ctx, r.db, rm)
}

func (r *Repo) UpdateRoom(ctx context.Context, rm domain.Room) error {
	res, err := r.db.ExecContext(ctx, updateRoomSQL,
		rm.Name, rm.Capacity, rm.PricePerNight, rm.Quantity, rm.Active, rm.ID)
	if err != nil {
		return mapErr(err)
	}
	return touched(ctx, r.db, res, roomExistsSQL, rm.ID)
}

func (r *Repo) DeleteRoom(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, deleteRoomSQL, id)
	if err != nil {
		return mapErr(err)
	}
	return touched(ctx, r.db, res, "")
}

func (r *Repo) GetRoom(ctx context.Context, id int64) (domain.Room, error) {
	return scanRoom(r.db.QueryRowContext(ctx, selectRoomSQL, id))
}

func (r *Repo) ListRooms(ctx context.Context, homestayID int64) ([]domain.Room, error) {
	rows, err := r.db.QueryContext(ctx, listRoomsSQL, homestayID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Room
	for rows.Next() {
		rm, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rm)
	}
	return out, rows.Err()
}
