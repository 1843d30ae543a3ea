package mysql

import (
	"context"
	"database/sql"
	"time"

	"homestay_hub/internal/domain"
)

func scanReview(s rowScanner) (domain.Review, error) {
	var (
		rv                domain.Review
		booking, campaign sql.NullInt64
		reply             sql.NullString
		source            string
	)
	err := s.Scan(&rv.ID, &rv.HomestayID, &booking, &rv.GuestID, &rv.GuestName, &campaign,
		&rv.Rating, &rv.Comment, &reply, &source, &rv.CreatedAt)
	if err != nil {
		return domain.Review{}, mapErr(err)
	}
	rv.BookingID = int64Ptr(booking)
	rv.CampaignID = int64Ptr(campaign)
	rv.HostReply = strPtr(reply)
	rv.Source = domain.ReviewSource(source)
	rv.CreatedAt = rv.CreatedAt.UTC()
	return rv, nil
}

func (r *Repo) queryReviews(ctx context.Context, query string, args ...any) ([]domain.Review, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Review
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rv)
	}
	return out, rows.Err()
}

func (r *Repo) CreateReview(ctx context.Context, rv *domain.Review) error {
	return insertReview(ctx, r.db, rv, r.now())
}

// CreateRewardedReview stores a QR review and its discount code together.
func (r *Repo) CreateRewardedReview(ctx context.Context, rv *domain.Review, d *domain.DiscountCode) error {
	now := r.now()
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if err := insertReview(ctx, tx, rv, now); err != nil {
			return err
		}
		if d == nil {
			return nil
		}
		return insertDiscount(ctx, tx, *d)
	})
}

func insertReview(ctx context.Context, q querier, rv *domain.Review, now time.Time) error {
	res, err := q.ExecContext(ctx, insertReviewSQL,
		rv.HomestayID, valInt64(rv.BookingID), rv.GuestID, valInt64(rv.CampaignID),
		rv.Rating, rv.Comment, valStr(rv.HostReply), string(rv.Source), now)
	if err != nil {
		return mapErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rv.ID, rv.CreatedAt = id, now
	return nil
}

func (r *Repo) GetReview(ctx context.Context, id int64) (domain.Review, error) {
	return scanReview(r.db.QueryRowContext(ctx, selectReviewSQL, id))
}

func (r *Repo) ListReviews(ctx context.Context, homestayID int64, pg domain.PageQuery) (domain.ReviewsPage, error) {
	query, args := listReviewsSQL, []any{homestayID}
	if pg.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, pg.Limit)
	}
	items, err := r.queryReviews(ctx, query, args...)
	if err != nil {
		return domain.ReviewsPage{}, err
	}
	return domain.ReviewsPage{Items: items}, nil
}

func (r *Repo) ListHostReviews(ctx context.Context, hostID int64, pg domain.Page) (domain.ReviewsPage, error) {
	limit, largs := limitClause(pg)
	items, err := r.queryReviews(ctx, listHostReviewsSQL+limit, append([]any{hostID}, largs...)...)
	if err != nil {
		return domain.ReviewsPage{}, err
	}
	return domain.ReviewsPage{Items: items}, nil
}

func (r *Repo) ReplyToReview(ctx context.Context, id int64, reply string) error {
	res, err := r.db.ExecContext(ctx, replyReviewSQL, reply, id)
	if err != nil {
		return err
	}
	return touched(ctx, r.db, res, reviewExistsSQL, id)
}

func (r *Repo) ReviewForBooking(ctx context.Context, bookingID int64) (bool, error) {
	return exists(ctx, r.db, reviewForBookingSQL, bookingID)
}

func (r *Repo) ReviewForCampaign(ctx context.Context, campaignID, guestID int64) (bool, error) {
	return exists(ctx, r.db, reviewForCampaignSQL, campaignID, guestID)
}

func (r *Repo) RatingSummary(ctx context.Context, homestayID int64) (domain.RatingSummary, error) {
	var out domain.RatingSummary
	err := r.db.QueryRowContext(ctx, ratingSummarySQL, homestayID).Scan(&out.Count, &out.Average)
	return out, err
}
