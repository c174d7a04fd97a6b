package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/hotelhq/room-reservation/internal/model"
)

// GuestRepo provides read access to the guest directory.  The reservation
// core never edits guest identity fields; it only bumps the stay counters
// when a booking is accepted.
type GuestRepo struct {
	db *sql.DB
}

// NewGuestRepo returns a new GuestRepo bound to the given database.
func NewGuestRepo(db *sql.DB) *GuestRepo { return &GuestRepo{db: db} }

const guestCols = `id, hotel_id, first_name, last_name, email, phone,
	is_blacklisted, blacklist_reason, total_stays, last_stay_date, is_active, created_at`

func scanGuest(row *sql.Row) (*model.Guest, error) {
	var g model.Guest
	var phone, reason sql.NullString
	var lastStay sql.NullTime
	err := row.Scan(&g.ID, &g.HotelID, &g.FirstName, &g.LastName, &g.Email, &phone,
		&g.IsBlacklisted, &reason, &g.TotalStays, &lastStay, &g.IsActive, &g.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGuestNotFound
		}
		return nil, err
	}
	g.Phone = phone.String
	g.BlacklistReason = reason.String
	if lastStay.Valid {
		t := lastStay.Time
		g.LastStayDate = &t
	}
	return &g, nil
}

// GetByID returns an active guest scoped to the hotel.
func (r *GuestRepo) GetByID(ctx context.Context, guestID, hotelID uint64) (*model.Guest, error) {
	q := `SELECT ` + guestCols + ` FROM guests WHERE id = ? AND hotel_id = ? AND is_active = 1`
	return scanGuest(r.db.QueryRowContext(ctx, q, guestID, hotelID))
}

// GetByIDTx is GetByID inside an existing transaction, used by the booking
// path so the blacklist gate reads the same snapshot the insert commits
// against.
func (r *GuestRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, guestID, hotelID uint64) (*model.Guest, error) {
	q := `SELECT ` + guestCols + ` FROM guests WHERE id = ? AND hotel_id = ? AND is_active = 1`
	return scanGuest(tx.QueryRowContext(ctx, q, guestID, hotelID))
}

// BumpStayTx increments the guest's stay counter and records the upcoming
// stay date.  Called once per accepted reservation.
func (r *GuestRepo) BumpStayTx(ctx context.Context, tx *sql.Tx, guestID uint64, stayDate time.Time) error {
	const q = `UPDATE guests SET total_stays = total_stays + 1, last_stay_date = ? WHERE id = ?`
	_, err := tx.ExecContext(ctx, q, stayDate.UTC().Format("2006-01-02"), guestID)
	return err
}
