package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hotelhq/room-reservation/internal/model"
)

// PaymentRepo persists payment records and their append-only audit trail.
// Payments are created once and never deleted; only the status and refund
// fields mutate afterwards, and each mutation appends an audit entry.
type PaymentRepo struct {
	db *sql.DB
}

// NewPaymentRepo returns a new PaymentRepo bound to the given database.
func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{db: db} }

// DB exposes the underlying handle for transaction management in handlers.
func (r *PaymentRepo) DB() *sql.DB { return r.db }

const paymentCols = `id, payment_number, hotel_id, reservation_id, amount_cents, currency,
	method, status, transaction_id, reference, notes, refunded_cents, refund_reason,
	refunded_at, refunded_by, processed_by, payment_date, created_at, updated_at`

func scanPayment(row rowScanner) (*model.Payment, error) {
	var p model.Payment
	var txnID, ref, notes, refundReason sql.NullString
	var refundedAt sql.NullTime
	var refundedBy sql.NullInt64
	err := row.Scan(
		&p.ID, &p.PaymentNumber, &p.HotelID, &p.ReservationID, &p.AmountCents, &p.Currency,
		&p.Method, &p.Status, &txnID, &ref, &notes, &p.RefundedCents, &refundReason,
		&refundedAt, &refundedBy, &p.ProcessedBy, &p.PaymentDate, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	p.TransactionID = txnID.String
	p.Reference = ref.String
	p.Notes = notes.String
	p.RefundReason = refundReason.String
	if refundedAt.Valid {
		t := refundedAt.Time
		p.RefundedAt = &t
	}
	if refundedBy.Valid {
		v := uint64(refundedBy.Int64)
		p.RefundedBy = &v
	}
	return &p, nil
}

// CreateTx inserts a payment within the caller's transaction and populates
// the generated ID.  A duplicate payment number maps to ErrConflict.
func (r *PaymentRepo) CreateTx(ctx context.Context, tx *sql.Tx, p *model.Payment) error {
	const q = `INSERT INTO payments
		(payment_number, hotel_id, reservation_id, amount_cents, currency, method, status,
		 transaction_id, reference, notes, processed_by, payment_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, UTC_TIMESTAMP())`
	res, err := tx.ExecContext(ctx, q,
		p.PaymentNumber, p.HotelID, p.ReservationID, p.AmountCents, p.Currency,
		p.Method, p.Status, p.TransactionID, p.Reference, p.Notes, p.ProcessedBy)
	if err != nil {
		if isDuplicate(err) {
			return ErrConflict
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}

// GetByID returns a payment scoped to the hotel.
func (r *PaymentRepo) GetByID(ctx context.Context, id, hotelID uint64) (*model.Payment, error) {
	q := `SELECT ` + paymentCols + ` FROM payments WHERE id = ? AND hotel_id = ?`
	return scanPayment(r.db.QueryRowContext(ctx, q, id, hotelID))
}

// GetForUpdateTx loads the payment row with a FOR UPDATE lock so concurrent
// refunds against the same payment serialize.
func (r *PaymentRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id, hotelID uint64) (*model.Payment, error) {
	q := `SELECT ` + paymentCols + ` FROM payments WHERE id = ? AND hotel_id = ? FOR UPDATE`
	return scanPayment(tx.QueryRowContext(ctx, q, id, hotelID))
}

// SumPaidTx returns the reservation's net paid amount and cumulative
// refunded amount within the caller's transaction.  Completed payments
// count in full, partial refunds contribute their net, fully refunded
// payments contribute zero.
func (r *PaymentRepo) SumPaidTx(ctx context.Context, tx *sql.Tx, reservationID uint64) (paidCents, refundedCents int64, err error) {
	const q = `SELECT
		COALESCE(SUM(CASE
			WHEN status = 'completed' THEN amount_cents
			WHEN status = 'partial_refund' THEN amount_cents - refunded_cents
			ELSE 0 END), 0),
		COALESCE(SUM(refunded_cents), 0)
		FROM payments WHERE reservation_id = ?`
	err = tx.QueryRowContext(ctx, q, reservationID).Scan(&paidCents, &refundedCents)
	return paidCents, refundedCents, err
}

// UpdateRefundTx persists the refund fields and status after ApplyRefund
// has mutated the model.
func (r *PaymentRepo) UpdateRefundTx(ctx context.Context, tx *sql.Tx, p *model.Payment) error {
	const q = `UPDATE payments SET status = ?, refunded_cents = ?, refund_reason = ?,
	           refunded_at = ?, refunded_by = ?, updated_at = UTC_TIMESTAMP() WHERE id = ?`
	var by interface{}
	if p.RefundedBy != nil {
		by = *p.RefundedBy
	}
	var at interface{}
	if p.RefundedAt != nil {
		at = p.RefundedAt.UTC()
	}
	_, err := tx.ExecContext(ctx, q, p.Status, p.RefundedCents, p.RefundReason, at, by, p.ID)
	return err
}

// AppendAuditTx adds one entry to the payment's audit trail.  The table is
// insert-only; nothing in this codebase updates or deletes audit rows.
func (r *PaymentRepo) AppendAuditTx(ctx context.Context, tx *sql.Tx, e *model.AuditEntry) error {
	const q = `INSERT INTO payment_audit_log (payment_id, action, user_id, details, old_value, new_value)
	           VALUES (?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, e.PaymentID, e.Action, e.UserID, e.Details, e.OldValue, e.NewValue)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = uint64(id)
	return nil
}

// ListAudit returns a payment's audit trail oldest first.
func (r *PaymentRepo) ListAudit(ctx context.Context, paymentID uint64) ([]model.AuditEntry, error) {
	const q = `SELECT id, payment_id, action, user_id, details, old_value, new_value, created_at
	           FROM payment_audit_log WHERE payment_id = ? ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q, paymentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	entries := make([]model.AuditEntry, 0)
	for rows.Next() {
		var e model.AuditEntry
		var details, oldV, newV sql.NullString
		if err := rows.Scan(&e.ID, &e.PaymentID, &e.Action, &e.UserID, &details, &oldV, &newV, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Details = details.String
		e.OldValue = oldV.String
		e.NewValue = newV.String
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// PaymentFilter narrows the payment listing.  Zero values mean "no filter".
type PaymentFilter struct {
	Status        model.PayState
	Method        string
	ReservationID uint64
	DateFrom      time.Time
	DateTo        time.Time
	Page          int
	PerPage       int
}

// List returns payments for the hotel, newest first, with the total count.
func (r *PaymentRepo) List(ctx context.Context, hotelID uint64, f PaymentFilter) ([]*model.Payment, int, error) {
	where := []string{"hotel_id = ?"}
	args := []interface{}{hotelID}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, f.Status)
	}
	if f.Method != "" {
		where = append(where, "method = ?")
		args = append(args, f.Method)
	}
	if f.ReservationID != 0 {
		where = append(where, "reservation_id = ?")
		args = append(args, f.ReservationID)
	}
	if !f.DateFrom.IsZero() {
		where = append(where, "payment_date >= ?")
		args = append(args, f.DateFrom.UTC())
	}
	if !f.DateTo.IsZero() {
		where = append(where, "payment_date <= ?")
		args = append(args, f.DateTo.UTC())
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM payments WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	if f.PerPage <= 0 {
		f.PerPage = 20
	}
	if f.Page <= 0 {
		f.Page = 1
	}
	q := fmt.Sprintf("SELECT %s FROM payments WHERE %s ORDER BY payment_date DESC LIMIT ? OFFSET ?",
		paymentCols, cond)
	args = append(args, f.PerPage, (f.Page-1)*f.PerPage)
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items := make([]*model.Payment, 0)
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// MethodCount is one row of the by-method stats breakdown.
type MethodCount struct {
	Method      string `json:"method"`
	Count       int    `json:"count"`
	AmountCents int64  `json:"amount_cents"`
}

// PayStateCount is one row of the by-status stats breakdown.
type PayStateCount struct {
	Status      model.PayState `json:"status"`
	Count       int            `json:"count"`
	AmountCents int64          `json:"amount_cents"`
}

// StatsSummary aggregates payments by method and status over an optional
// date range and returns gross revenue and total refunds for the period.
func (r *PaymentRepo) StatsSummary(ctx context.Context, hotelID uint64, from, to time.Time) ([]MethodCount, []PayStateCount, int64, int64, error) {
	where := "hotel_id = ?"
	args := []interface{}{hotelID}
	if !from.IsZero() {
		where += " AND payment_date >= ?"
		args = append(args, from.UTC())
	}
	if !to.IsZero() {
		where += " AND payment_date <= ?"
		args = append(args, to.UTC())
	}

	byMethod := make([]MethodCount, 0)
	rows, err := r.db.QueryContext(ctx,
		`SELECT method, COUNT(*), COALESCE(SUM(amount_cents), 0) FROM payments WHERE `+where+` GROUP BY method`, args...)
	if err != nil {
		return nil, nil, 0, 0, err
	}
	for rows.Next() {
		var mc MethodCount
		if err := rows.Scan(&mc.Method, &mc.Count, &mc.AmountCents); err != nil {
			rows.Close()
			return nil, nil, 0, 0, err
		}
		byMethod = append(byMethod, mc)
	}
	if err := rows.Close(); err != nil {
		return nil, nil, 0, 0, err
	}

	byStatus := make([]PayStateCount, 0)
	rows, err = r.db.QueryContext(ctx,
		`SELECT status, COUNT(*), COALESCE(SUM(amount_cents), 0) FROM payments WHERE `+where+` GROUP BY status`, args...)
	if err != nil {
		return nil, nil, 0, 0, err
	}
	for rows.Next() {
		var sc PayStateCount
		if err := rows.Scan(&sc.Status, &sc.Count, &sc.AmountCents); err != nil {
			rows.Close()
			return nil, nil, 0, 0, err
		}
		byStatus = append(byStatus, sc)
	}
	if err := rows.Close(); err != nil {
		return nil, nil, 0, 0, err
	}

	var revenue, refunds int64
	err = r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(CASE WHEN status IN ('completed', 'partial_refund', 'refunded') THEN amount_cents ELSE 0 END), 0),
		        COALESCE(SUM(refunded_cents), 0)
		 FROM payments WHERE `+where, args...).Scan(&revenue, &refunds)
	if err != nil {
		return nil, nil, 0, 0, err
	}
	return byMethod, byStatus, revenue, refunds, nil
}
