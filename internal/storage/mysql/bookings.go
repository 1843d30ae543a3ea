package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"homestay_hub/internal/domain"
)

func scanBooking(s rowScanner) (domain.Booking, error) {
	var (
		b            domain.Booking
		code, reason sql.NullString
		status       string
	)
	err := s.Scan(&b.ID, &b.Reference, &b.GuestID, &b.HomestayID, &b.RoomID, &b.CheckIn,
		&b.CheckOut, &b.Guests, &b.Nights, &b.Subtotal, &code, &b.DiscountAmount,
		&b.Total, &status, &reason, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return domain.Booking{}, mapErr(err)
	}
	b.DiscountCode = strPtr(code)
	b.CancelReason = strPtr(reason)
	b.Status = domain.BookingStatus(status)
	b.CheckIn, b.CheckOut = b.CheckIn.UTC(), b.CheckOut.UTC()
	b.CreatedAt, b.UpdatedAt = b.CreatedAt.UTC(), b.UpdatedAt.UTC()
	return b, nil
}

func (r *Repo) CreateBooking(ctx context.Context, b *domain.Booking, roomQuantity int) error {
	now := r.now()
	return r.withTx(ctx, func(tx *sql.Tx) error {
		var roomID int64
		if err := tx.QueryRowContext(ctx, lockRoomSQL, b.RoomID).Scan(&roomID); err != nil {
			return mapErr(err)
		}
		var taken int
		if err := tx.QueryRowContext(ctx, countOverlapSQL, b.RoomID, b.CheckOut, b.CheckIn).Scan(&taken); err != nil {
			return err
		}
		if taken >= roomQuantity {
			return fmt.Errorf("%w: room %d is fully booked", domain.ErrConflict, b.RoomID)
		}
		if b.DiscountCode != nil {
			res, err := tx.ExecContext(ctx, consumeDiscountSQL, now, *b.DiscountCode)
			if err != nil {
				return err
			}
			if n, err := res.RowsAffected(); err != nil {
				return err
			} else if n == 0 {
				return fmt.Errorf("%w: discount code already used", domain.ErrConflict)
			}
		}
		res, err := tx.ExecContext(ctx, insertBookingSQL,
			b.Reference, b.GuestID, b.HomestayID, b.RoomID, b.CheckIn, b.CheckOut, b.Guests,
			b.Nights, b.Subtotal, valStr(b.DiscountCode), b.DiscountAmount, b.Total,
			string(b.Status), valStr(b.CancelReason), now, now)
		if err != nil {
			return mapErr(err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		b.ID, b.CreatedAt, b.UpdatedAt = id, now, now
		return nil
	})
}

func (r *Repo) GetBooking(ctx context.Context, id int64) (domain.Booking, error) {
	return scanBooking(r.db.QueryRowContext(ctx, selectBookingSQL, id))
}

func (r *Repo) ListBookings(ctx context.Context, f domain.BookingFilter) (domain.BookingsPage, error) {
	var (
		join string
		w    where
	)
	if f.HostID != nil {
		join = " JOIN homestays h ON h.id = b.homestay_id"
		w.add("h.host_id = ?", *f.HostID)
	}
	if f.GuestID != nil {
		w.add("b.guest_id = ?", *f.GuestID)
	}
	if f.HomestayID != nil {
		w.add("b.homestay_id = ?", *f.HomestayID)
	}
	if f.Status != nil {
		w.add("b.status = ?", string(*f.Status))
	}
	from := " FROM bookings b" + join + w.String()

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*)"+from, w.args...).Scan(&total); err != nil {
		return domain.BookingsPage{}, err
	}
	limit, largs := limitClause(f.Page)
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+bookingCols+from+" ORDER BY b.check_in DESC, b.id DESC"+limit,
		append(append([]any(nil), w.args...), largs...)...)
	if err != nil {
		return domain.BookingsPage{}, err
	}
	defer rows.Close()
	out := domain.BookingsPage{Total: total}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return domain.BookingsPage{}, err
		}
		out.Items = append(out.Items, b)
	}
	return out, rows.Err()
}

func (r *Repo) UpdateBookingStatus(ctx context.Context, id int64, from, to domain.BookingStatus, reason *string) error {
	res, err := r.db.ExecContext(ctx, updateBookingStatusSQL, string(to), valStr(reason), r.now(), id, string(from))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	ok, err := exists(ctx, r.db, bookingExistsSQL, id)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrNotFound
	}
	return fmt.Errorf("%w: booking %d is no longer %s", domain.ErrConflict, id, from)
}

func (r *Repo) HasFutureBookings(ctx context.Context, roomID int64, from time.Time) (bool, error) {
	return exists(ctx, r.db, hasFutureBookingsSQL, roomID, from.UTC())
}

func (r *Repo) HomestaysWithOpenBookings(ctx context.Context) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, openBookingHomestaysSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (r *Repo) HostSummary(ctx context.Context, hostID int64, now time.Time) (domain.HostSummary, error) {
	out := domain.HostSummary{ByStatus: map[domain.BookingStatus]int{}, Revenue: decimal.Zero}
	if err := r.db.QueryRowContext(ctx, hostHomestayCountSQL, hostID).Scan(&out.Homestays); err != nil {
		return domain.HostSummary{}, err
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	rows, err := r.db.QueryContext(ctx, hostBookingStatsSQL, today, today.AddDate(0, 0, 7), hostID)
	if err != nil {
		return domain.HostSummary{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			status  string
			n, soon int
			revenue decimal.Decimal
		)
		if err := rows.Scan(&status, &n, &revenue, &soon); err != nil {
			return domain.HostSummary{}, err
		}
		out.ByStatus[domain.BookingStatus(status)] = n
		out.Revenue = out.Revenue.Add(revenue)
		out.UpcomingCheckIns += soon
	}
	if err := rows.Err(); err != nil {
		return domain.HostSummary{}, err
	}

	if err := r.db.QueryRowContext(ctx, hostRatingSQL, hostID).Scan(&out.Rating.Count, &out.Rating.Average); err != nil {
		return domain.HostSummary{}, err
	}
	return out, nil
}
