package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/hotel-booking/internal/model"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// ErrUserNotFound is returned when no user matches the lookup.
var ErrUserNotFound = errors.New("user not found")

const userCols = "id,first_name,username,email,password_hash,is_admin,created_at"

// Create inserts a non-admin user with an already hashed password and
// returns its ID.  Admin rights are never granted here.
func (r *UserRepo) Create(ctx context.Context, u *model.User) (uint64, error) {
	email := normalizeEmail(u.Email)
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (first_name, username, email, password_hash) VALUES (?,?,?,?)",
		strings.TrimSpace(u.FirstName), strings.TrimSpace(u.Username), email, u.PasswordHash)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	return r.getOne(ctx, "SELECT "+userCols+" FROM users WHERE email=? LIMIT 1", normalizeEmail(email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return r.getOne(ctx, "SELECT "+userCols+" FROM users WHERE id=? LIMIT 1", id)
}

func (r *UserRepo) getOne(ctx context.Context, q string, arg interface{}) (model.User, error) {
	var u model.User
	err := r.DB.QueryRowContext(ctx, q, arg).Scan(
		&u.ID, &u.FirstName, &u.Username, &u.Email, &u.PasswordHash, &u.IsAdmin, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return u, ErrUserNotFound
	}
	return u, err
}

// SetAdmin grants or revokes administrator rights for the user with the
// given email.  It is only reachable from the grantadmin command.
func (r *UserRepo) SetAdmin(ctx context.Context, email string, admin bool) error {
	res, err := r.DB.ExecContext(ctx, "UPDATE users SET is_admin=? WHERE email=?", admin, normalizeEmail(email))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// MySQL reports 0 affected rows when the flag already has the value.
		if _, err := r.GetByEmail(ctx, email); err != nil {
			return err
		}
	}
	return nil
}

func normalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
