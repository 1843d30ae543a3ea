package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"homestay_hub/internal/domain"
)

func scanCampaign(s rowScanner) (domain.Campaign, error) {
	var (
		c     domain.Campaign
		until sql.NullTime
	)
	if err := s.Scan(&c.ID, &c.Name, &c.HomestayID, &c.DiscountPercent, &until, &c.Active,
		&c.CreatedBy, &c.CreatedAt); err != nil {
		return domain.Campaign{}, mapErr(err)
	}
	c.ValidUntil = timePtr(until)
	c.CreatedAt = c.CreatedAt.UTC()
	return c, nil
}

func scanQRCode(s rowScanner) (domain.QRCode, error) {
	var q domain.QRCode
	if err := s.Scan(&q.Code, &q.CampaignID, &q.Scans, &q.Submissions, &q.CreatedAt); err != nil {
		return domain.QRCode{}, mapErr(err)
	}
	q.CreatedAt = q.CreatedAt.UTC()
	return q, nil
}

// insertQRCodes writes all codes in one multi-row INSERT.
func insertQRCodes(ctx context.Context, q querier, campaignID int64, codes []string, at time.Time) error {
	if len(codes) == 0 {
		return nil
	}
	var sb strings.Builder
	sb.WriteString(insertQRCodesPrefix)
	args := make([]any, 0, len(codes)*5)
	for i, code := range codes {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString("(?, ?, 0, 0, ?)")
		args = append(args, code, campaignID, at)
	}
	_, err := q.ExecContext(ctx, sb.String(), args...)
	return mapErr(err)
}

func (r *Repo) CreateCampaign(ctx context.Context, c *domain.Campaign, codes []string) error {
	now := r.now()
	return r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, insertCampaignSQL,
			c.Name, c.HomestayID, c.DiscountPercent, valTime(c.ValidUntil), c.Active, c.CreatedBy, now)
		if err != nil {
			return mapErr(err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		if err := insertQRCodes(ctx, tx, id, codes, now); err != nil {
			return err
		}
		c.ID, c.CreatedAt = id, now
		return nil
	})
}

func (r *Repo) GetCampaign(ctx context.Context, id int64) (domain.Campaign, error) {
	return scanCampaign(r.db.QueryRowContext(ctx, selectCampaignSQL, id))
}

func (r *Repo) ListCampaigns(ctx context.Context, pg domain.Page) ([]domain.Campaign, error) {
	limit, largs := limitClause(pg)
	rows, err := r.db.QueryContext(ctx, listCampaignsSQL+limit, largs...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repo) DeactivateCampaign(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, deactivateCampaignSQL, id)
	if err != nil {
		return err
	}
	return touched(ctx, r.db, res, campaignExistsSQL, id)
}

func (r *Repo) AddQRCodes(ctx context.Context, campaignID int64, codes []string) error {
	ok, err := exists(ctx, r.db, campaignExistsSQL, campaignID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: campaign %d", domain.ErrNotFound, campaignID)
	}
	return insertQRCodes(ctx, r.db, campaignID, codes, r.now())
}

func (r *Repo) ListQRCodes(ctx context.Context, campaignID int64) ([]domain.QRCode, error) {
	rows, err := r.db.QueryContext(ctx, listQRCodesSQL, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.QRCode
	for rows.Next() {
		q, err := scanQRCode(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (r *Repo) GetQRCode(ctx context.Context, code string) (domain.QRCode, error) {
	return scanQRCode(r.db.QueryRowContext(ctx, selectQRCodeSQL, code))
}

func (r *Repo) IncrementScan(ctx context.Context, code string) error {
	res, err := r.db.ExecContext(ctx, incrementScanSQL, code)
	if err != nil {
		return err
	}
	return touched(ctx, r.db, res, "")
}

func (r *Repo) IncrementSubmission(ctx context.Context, code string) error {
	res, err := r.db.ExecContext(ctx, incrementSubmissionSQL, code)
	if err != nil {
		return err
	}
	return touched(ctx, r.db, res, "")
}

func (r *Repo) CreateDiscountCode(ctx context.Context, d domain.DiscountCode) error {
	return insertDiscount(ctx, r.db, d)
}

func insertDiscount(ctx context.Context, q querier, d domain.DiscountCode) error {
	_, err := q.ExecContext(ctx, insertDiscountSQL,
		d.Code, d.GuestID, d.CampaignID, d.Percent, d.ExpiresAt.UTC(), valTime(d.UsedAt))
	return mapErr(err)
}

func (r *Repo) GetDiscountCode(ctx context.Context, code string) (domain.DiscountCode, error) {
	var (
		d    domain.DiscountCode
		used sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, selectDiscountSQL, code).
		Scan(&d.Code, &d.GuestID, &d.CampaignID, &d.Percent, &d.ExpiresAt, &used)
	if err != nil {
		return domain.DiscountCode{}, mapErr(err)
	}
	d.ExpiresAt = d.ExpiresAt.UTC()
	d.UsedAt = timePtr(used)
	return d, nil
}
