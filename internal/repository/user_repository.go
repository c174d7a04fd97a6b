package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/hotelhq/room-reservation/internal/model"
)

// UserRepo reads the staff directory.  Only the login flow needs it; actor
// identity elsewhere comes from JWT claims.
type UserRepo struct {
	db *sql.DB
}

// NewUserRepo returns a new UserRepo bound to the given database.
func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{db: db} }

// GetByEmail returns an active staff user by email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	const q = `SELECT id, hotel_id, email, password_hash, full_name, role, is_active, created_at
	           FROM users WHERE email = ? AND is_active = 1`
	var u model.User
	err := r.db.QueryRowContext(ctx, q, email).Scan(
		&u.ID, &u.HotelID, &u.Email, &u.PasswordHash, &u.FullName, &u.Role, &u.IsActive, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}
