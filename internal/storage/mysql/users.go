package mysql

import (
	"context"
	"database/sql"

	"homestay_hub/internal/domain"
)

func scanUser(s rowScanner) (domain.User, error) {
	var (
		u            domain.User
		email, phone sql.NullString
		role         string
	)
	if err := s.Scan(&u.ID, &u.Name, &email, &phone, &u.PasswordHash, &role, &u.CreatedAt); err != nil {
		return domain.User{}, mapErr(err)
	}
	u.Email, u.Phone = strPtr(email), strPtr(phone)
	u.Role = domain.Role(role)
	u.CreatedAt = u.CreatedAt.UTC()
	return u, nil
}

func (r *Repo) CreateUser(ctx context.Context, u *domain.User) error {
	now := r.now()
	res, err := r.db.ExecContext(ctx, insertUserSQL,
		u.Name, valStr(u.Email), valStr(u.Phone), u.PasswordHash, string(u.Role), now)
	if err != nil {
		return mapErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID, u.CreatedAt = id, now
	return nil
}

func (r *Repo) GetUser(ctx context.Context, id int64) (domain.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, selectUserSQL, id))
}

func (r *Repo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, selectUserByEmailSQL, email))
}

func (r *Repo) GetUserByPhone(ctx context.Context, phone string) (domain.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, selectUserByPhoneSQL, phone))
}

func (r *Repo) SetRole(ctx context.Context, id int64, role domain.Role) error {
	res, err := r.db.ExecContext(ctx, setRoleSQL, string(role), id)
	if err != nil {
		return err
	}
	return touched(ctx, r.db, res, userExistsSQL, id)
}
