package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Counter scopes for the daily_counters table.
const (
	ScopeReservation = "reservation"
	ScopePayment     = "payment"
)

// SequenceRepo mints the daily sequence numbers embedded in reservation and
// payment identifiers.  The increment is a single atomic upsert, so two
// concurrent bookings can never observe the same sequence value; the
// read-the-max-and-add-one approach this replaces is racy by construction.
type SequenceRepo struct {
	db *sql.DB
}

// NewSequenceRepo returns a SequenceRepo bound to the given database.
func NewSequenceRepo(db *sql.DB) *SequenceRepo { return &SequenceRepo{db: db} }

// NextTx atomically increments and returns the counter for the given scope
// and day within the provided transaction.  LAST_INSERT_ID(expr) makes the
// post-increment value readable without a second round trip and without a
// gap for another writer to slip into.
func (r *SequenceRepo) NextTx(ctx context.Context, tx *sql.Tx, scope string, day time.Time) (int, error) {
	const up = `INSERT INTO daily_counters (scope, day, seq) VALUES (?, ?, 1)
	            ON DUPLICATE KEY UPDATE seq = LAST_INSERT_ID(seq + 1)`
	res, err := tx.ExecContext(ctx, up, scope, day.UTC().Format("2006-01-02"))
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	// A fresh row reports the auto-increment id, not the counter; the first
	// sequence of a day is always 1.
	if n, _ := res.RowsAffected(); n == 1 {
		return 1, nil
	}
	return int(id), nil
}

// FormatReservationNumber renders a reservation number as YYMMDD followed
// by the 4-digit daily sequence.
func FormatReservationNumber(day time.Time, seq int) string {
	return fmt.Sprintf("%s%04d", day.UTC().Format("060102"), seq)
}

// FormatPaymentNumber renders a payment number with the PAY prefix and the
// same daily-sequence layout.
func FormatPaymentNumber(day time.Time, seq int) string {
	return fmt.Sprintf("PAY%s%04d", day.UTC().Format("060102"), seq)
}
