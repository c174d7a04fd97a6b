package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/hotelhq/room-reservation/internal/model"
)

// RoomRepo provides read access to the room directory plus the operational
// status mutations the reservation lifecycle performs as side effects.
type RoomRepo struct {
	db *sql.DB
}

// NewRoomRepo returns a new RoomRepo bound to the given database.
func NewRoomRepo(db *sql.DB) *RoomRepo { return &RoomRepo{db: db} }

// DB exposes the underlying handle so handlers can open transactions that
// span rooms, reservations and payments.
func (r *RoomRepo) DB() *sql.DB { return r.db }

const roomCols = `id, hotel_id, number, type, max_occupancy, base_rate_cents,
	currency, status, cleaning_status, is_active, created_at, updated_at`

func scanRoom(row *sql.Row) (*model.Room, error) {
	var rm model.Room
	err := row.Scan(&rm.ID, &rm.HotelID, &rm.Number, &rm.Type, &rm.MaxOccupancy,
		&rm.BaseRateCents, &rm.Currency, &rm.Status, &rm.CleaningStatus,
		&rm.IsActive, &rm.CreatedAt, &rm.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	return &rm, nil
}

// GetByID returns an active room scoped to the hotel.
func (r *RoomRepo) GetByID(ctx context.Context, roomID, hotelID uint64) (*model.Room, error) {
	q := `SELECT ` + roomCols + ` FROM rooms WHERE id = ? AND hotel_id = ? AND is_active = 1`
	return scanRoom(r.db.QueryRowContext(ctx, q, roomID, hotelID))
}

// GetForUpdateTx loads the room row with a FOR UPDATE lock.  Admission
// control takes this lock before running the overlap check so concurrent
// bookings for the same room serialize instead of both passing the check.
func (r *RoomRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, roomID, hotelID uint64) (*model.Room, error) {
	q := `SELECT ` + roomCols + ` FROM rooms WHERE id = ? AND hotel_id = ? AND is_active = 1 FOR UPDATE`
	return scanRoom(tx.QueryRowContext(ctx, q, roomID, hotelID))
}

// UpdateStatusTx sets the room's operational and cleaning status inside the
// caller's transaction, so a lifecycle transition and its room side effect
// commit atomically.
func (r *RoomRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, roomID uint64, status model.RoomStatus, cleaning model.CleaningStatus) error {
	const q = `UPDATE rooms SET status = ?, cleaning_status = ?, updated_at = UTC_TIMESTAMP() WHERE id = ?`
	res, err := tx.ExecContext(ctx, q, status, cleaning, roomID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrRoomNotFound
	}
	return nil
}

// CreateCleaningRequestTx files a housekeeping work order.  Check-out calls
// this inside the same transaction that flips the room to cleaning.
func (r *RoomRepo) CreateCleaningRequestTx(ctx context.Context, tx *sql.Tx, req *model.CleaningRequest) error {
	const q = `INSERT INTO room_cleaning_requests (room_id, requested_by, priority, notes, status)
	           VALUES (?, ?, ?, ?, 'pending')`
	res, err := tx.ExecContext(ctx, q, req.RoomID, req.RequestedBy, req.Priority, req.Notes)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	req.ID = uint64(id)
	req.Status = "pending"
	return nil
}

// CompleteCleaning marks the oldest pending request done and returns the
// room to service.  When maintenance is not blocking, the room becomes
// available again.
func (r *RoomRepo) CompleteCleaning(ctx context.Context, roomID, hotelID, completedBy uint64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	rm, err := r.GetForUpdateTx(ctx, tx, roomID, hotelID)
	if err != nil {
		return err
	}
	const done = `UPDATE room_cleaning_requests
	              SET status = 'completed', completed_at = UTC_TIMESTAMP(), completed_by = ?
	              WHERE room_id = ? AND status IN ('pending', 'in_progress')
	              ORDER BY created_at LIMIT 1`
	if _, err := tx.ExecContext(ctx, done, completedBy, roomID); err != nil {
		return err
	}
	next := model.RoomAvailable
	if rm.Status == model.RoomMaintenance || rm.Status == model.RoomOutOfOrder {
		next = rm.Status
	}
	if err := r.UpdateStatusTx(ctx, tx, roomID, next, model.CleaningClean); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}
