package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/hotelhq/room-reservation/internal/model"
)

// ReservationRepo provides persistence for reservations and their
// append-only sub-ledgers (charges, discounts, services).  It also owns the
// overlap query the availability engine runs; the caller is responsible for
// holding the room lock while that query and the subsequent insert execute.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// DB exposes the underlying handle for transaction management in handlers.
func (r *ReservationRepo) DB() *sql.DB { return r.db }

// isDuplicate reports whether err is a MySQL duplicate-key violation, which
// surfaces a generated-number collision as ErrConflict instead of a 500.
func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}

const reservationCols = `id, reservation_number, hotel_id, guest_id, room_id, created_by,
	check_in_date, check_out_date, actual_check_in, actual_check_out, checked_in_by, checked_out_by,
	adults, children, infants, room_rate_cents, total_amount_cents, paid_amount_cents, currency,
	status, payment_status, source, notes, special_requests, check_in_notes, check_out_notes,
	cancellation_reason, cancellation_fee_cents, cancelled_at, version, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanReservation(row rowScanner) (*model.Reservation, error) {
	var res model.Reservation
	var actualIn, actualOut, cancelledAt sql.NullTime
	var inBy, outBy sql.NullInt64
	var notes, special, inNotes, outNotes, cancelReason sql.NullString
	err := row.Scan(
		&res.ID, &res.ReservationNumber, &res.HotelID, &res.GuestID, &res.RoomID, &res.CreatedBy,
		&res.CheckInDate, &res.CheckOutDate, &actualIn, &actualOut, &inBy, &outBy,
		&res.Adults, &res.Children, &res.Infants, &res.RoomRateCents, &res.TotalAmountCents,
		&res.PaidAmountCents, &res.Currency, &res.Status, &res.PaymentStatus, &res.Source,
		&notes, &special, &inNotes, &outNotes, &cancelReason, &res.CancelFeeCents, &cancelledAt,
		&res.Version, &res.CreatedAt, &res.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReservationNotFound
		}
		return nil, err
	}
	if actualIn.Valid {
		t := actualIn.Time
		res.ActualCheckIn = &t
	}
	if actualOut.Valid {
		t := actualOut.Time
		res.ActualCheckOut = &t
	}
	if cancelledAt.Valid {
		t := cancelledAt.Time
		res.CancelledAt = &t
	}
	if inBy.Valid {
		v := uint64(inBy.Int64)
		res.CheckedInBy = &v
	}
	if outBy.Valid {
		v := uint64(outBy.Int64)
		res.CheckedOutBy = &v
	}
	res.Notes = notes.String
	res.SpecialRequests = special.String
	res.CheckInNotes = inNotes.String
	res.CheckOutNotes = outNotes.String
	res.CancelReason = cancelReason.String
	return &res, nil
}

// CreateTx inserts a new reservation within the caller's transaction and
// populates the generated ID.  The reservation number must already be
// minted; a duplicate number maps to ErrConflict.
func (r *ReservationRepo) CreateTx(ctx context.Context, tx *sql.Tx, res *model.Reservation) error {
	const q = `INSERT INTO reservations
		(reservation_number, hotel_id, guest_id, room_id, created_by,
		 check_in_date, check_out_date, adults, children, infants,
		 room_rate_cents, total_amount_cents, paid_amount_cents, currency,
		 status, payment_status, source, notes, special_requests)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?, ?, ?, ?, ?)`
	result, err := tx.ExecContext(ctx, q,
		res.ReservationNumber, res.HotelID, res.GuestID, res.RoomID, res.CreatedBy,
		res.CheckInDate.Format("2006-01-02"), res.CheckOutDate.Format("2006-01-02"),
		res.Adults, res.Children, res.Infants,
		res.RoomRateCents, res.TotalAmountCents, res.Currency,
		res.Status, res.PaymentStatus, res.Source, res.Notes, res.SpecialRequests,
	)
	if err != nil {
		if isDuplicate(err) {
			return ErrConflict
		}
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	res.ID = uint64(id)
	return nil
}

// GetByID returns a reservation scoped to the hotel.
func (r *ReservationRepo) GetByID(ctx context.Context, id, hotelID uint64) (*model.Reservation, error) {
	q := `SELECT ` + reservationCols + ` FROM reservations WHERE id = ? AND hotel_id = ?`
	return scanReservation(r.db.QueryRowContext(ctx, q, id, hotelID))
}

// GetForUpdateTx loads the reservation row with a FOR UPDATE lock.  Every
// lifecycle transition and ledger mutation takes this lock first, which
// linearizes concurrent operations on the same reservation.
func (r *ReservationRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id, hotelID uint64) (*model.Reservation, error) {
	q := `SELECT ` + reservationCols + ` FROM reservations WHERE id = ? AND hotel_id = ? FOR UPDATE`
	return scanReservation(tx.QueryRowContext(ctx, q, id, hotelID))
}

// ConflictSummary describes one reservation blocking a requested interval.
// It carries enough detail for the caller to present a useful message.
type ConflictSummary struct {
	ReservationID     uint64       `json:"reservation_id"`
	ReservationNumber string       `json:"reservation_number"`
	GuestName         string       `json:"guest_name"`
	CheckInDate       string       `json:"check_in_date"`
	CheckOutDate      string       `json:"check_out_date"`
	Status            model.Status `json:"status"`
}

// overlapQuery finds reservations occupying the room for any part of the
// half-open interval [in, out).  Only confirmed and checked-in reservations
// block; pending, cancelled, no-show and checked-out never do.  The strict
// inequalities implement half-open semantics, so same-day turnover is not a
// conflict.
const overlapQuery = `SELECT r.id, r.reservation_number,
		CONCAT(g.first_name, ' ', g.last_name),
		DATE_FORMAT(r.check_in_date, '%Y-%m-%d'), DATE_FORMAT(r.check_out_date, '%Y-%m-%d'),
		r.status
	FROM reservations r
	JOIN guests g ON g.id = r.guest_id
	WHERE r.room_id = ?
	  AND r.status IN ('confirmed', 'checked_in')
	  AND r.check_in_date < ?
	  AND r.check_out_date > ?
	  AND r.id <> ?
	ORDER BY r.check_in_date`

// overlapQueryLocked is the transactional variant.  Under REPEATABLE READ
// the transaction's first plain SELECT pins its snapshot, so a consistent
// read here could miss a conflicting reservation committed after the
// snapshot was taken even though the room row is already locked.  The
// locking read always sees the latest committed rows.
const overlapQueryLocked = overlapQuery + `
	FOR UPDATE`

func collectConflicts(rows *sql.Rows) ([]ConflictSummary, error) {
	defer rows.Close()
	conflicts := make([]ConflictSummary, 0)
	for rows.Next() {
		var c ConflictSummary
		if err := rows.Scan(&c.ReservationID, &c.ReservationNumber, &c.GuestName,
			&c.CheckInDate, &c.CheckOutDate, &c.Status); err != nil {
			return nil, err
		}
		conflicts = append(conflicts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return conflicts, nil
}

// FindOverlapping runs the overlap query outside a transaction, for the
// read-only availability endpoint.  excludeID may be zero.
func (r *ReservationRepo) FindOverlapping(ctx context.Context, roomID uint64, in, out time.Time, excludeID uint64) ([]ConflictSummary, error) {
	rows, err := r.db.QueryContext(ctx, overlapQuery,
		roomID, out.Format("2006-01-02"), in.Format("2006-01-02"), excludeID)
	if err != nil {
		return nil, err
	}
	return collectConflicts(rows)
}

// FindOverlappingTx runs the locking overlap query inside the booking
// transaction, after the room row has been locked.  It must read the latest
// committed rows, not the transaction snapshot, so two concurrent bookings
// serialized on the room lock cannot both see an empty result.
func (r *ReservationRepo) FindOverlappingTx(ctx context.Context, tx *sql.Tx, roomID uint64, in, out time.Time, excludeID uint64) ([]ConflictSummary, error) {
	rows, err := tx.QueryContext(ctx, overlapQueryLocked,
		roomID, out.Format("2006-01-02"), in.Format("2006-01-02"), excludeID)
	if err != nil {
		return nil, err
	}
	return collectConflicts(rows)
}

// ListFilter narrows the reservation listing.  Zero values mean "no
// filter".  Page is 1-based.
type ListFilter struct {
	Status    model.Status
	RoomID    uint64
	GuestID   uint64
	DateFrom  time.Time
	DateTo    time.Time
	Page      int
	PerPage   int
}

// List returns reservations for the hotel, newest first, with the total
// count for pagination.
func (r *ReservationRepo) List(ctx context.Context, hotelID uint64, f ListFilter) ([]*model.Reservation, int, error) {
	where := []string{"hotel_id = ?"}
	args := []interface{}{hotelID}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, f.Status)
	}
	if f.RoomID != 0 {
		where = append(where, "room_id = ?")
		args = append(args, f.RoomID)
	}
	if f.GuestID != 0 {
		where = append(where, "guest_id = ?")
		args = append(args, f.GuestID)
	}
	if !f.DateFrom.IsZero() {
		where = append(where, "check_in_date >= ?")
		args = append(args, f.DateFrom.Format("2006-01-02"))
	}
	if !f.DateTo.IsZero() {
		where = append(where, "check_in_date <= ?")
		args = append(args, f.DateTo.Format("2006-01-02"))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM reservations WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	if f.PerPage <= 0 {
		f.PerPage = 20
	}
	if f.Page <= 0 {
		f.Page = 1
	}
	q := fmt.Sprintf("SELECT %s FROM reservations WHERE %s ORDER BY created_at DESC LIMIT ? OFFSET ?",
		reservationCols, cond)
	args = append(args, f.PerPage, (f.Page-1)*f.PerPage)
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items := make([]*model.Reservation, 0)
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, res)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// UpdateStayTx rewrites the mutable stay fields (dates, occupancy, rate
// snapshot, notes) and bumps the version.  The caller must already hold the
// row lock and have re-validated availability and capacity.
func (r *ReservationRepo) UpdateStayTx(ctx context.Context, tx *sql.Tx, res *model.Reservation) error {
	const q = `UPDATE reservations SET
		check_in_date = ?, check_out_date = ?, adults = ?, children = ?, infants = ?,
		room_rate_cents = ?, source = ?, notes = ?, special_requests = ?,
		version = version + 1, updated_at = UTC_TIMESTAMP()
		WHERE id = ?`
	_, err := tx.ExecContext(ctx, q,
		res.CheckInDate.Format("2006-01-02"), res.CheckOutDate.Format("2006-01-02"),
		res.Adults, res.Children, res.Infants, res.RoomRateCents,
		res.Source, res.Notes, res.SpecialRequests, res.ID)
	return err
}

// SetStatusTx persists a lifecycle transition together with the transition
// metadata (actual timestamps, actor, notes, cancellation details).  Which
// of the optional fields apply depends on the target status.
func (r *ReservationRepo) SetStatusTx(ctx context.Context, tx *sql.Tx, res *model.Reservation) error {
	const q = `UPDATE reservations SET
		status = ?, actual_check_in = ?, actual_check_out = ?, checked_in_by = ?, checked_out_by = ?,
		check_in_notes = ?, check_out_notes = ?, cancellation_reason = ?, cancellation_fee_cents = ?,
		cancelled_at = ?, version = version + 1, updated_at = UTC_TIMESTAMP()
		WHERE id = ?`
	var inBy, outBy interface{}
	if res.CheckedInBy != nil {
		inBy = *res.CheckedInBy
	}
	if res.CheckedOutBy != nil {
		outBy = *res.CheckedOutBy
	}
	var actualIn, actualOut, cancelledAt interface{}
	if res.ActualCheckIn != nil {
		actualIn = res.ActualCheckIn.UTC()
	}
	if res.ActualCheckOut != nil {
		actualOut = res.ActualCheckOut.UTC()
	}
	if res.CancelledAt != nil {
		cancelledAt = res.CancelledAt.UTC()
	}
	_, err := tx.ExecContext(ctx, q,
		res.Status, actualIn, actualOut, inBy, outBy,
		res.CheckInNotes, res.CheckOutNotes, res.CancelReason, res.CancelFeeCents,
		cancelledAt, res.ID)
	return err
}

// AddChargeTx appends an additional charge to the reservation's ledger.
func (r *ReservationRepo) AddChargeTx(ctx context.Context, tx *sql.Tx, c *model.Charge) error {
	const q = `INSERT INTO reservation_charges (reservation_id, description, amount_cents) VALUES (?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, c.ReservationID, c.Description, c.AmountCents)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)
	return nil
}

// AddDiscountTx appends a discount, already resolved to cents.
func (r *ReservationRepo) AddDiscountTx(ctx context.Context, tx *sql.Tx, d *model.Discount) error {
	const q = `INSERT INTO reservation_discounts (reservation_id, description, amount_cents, percent) VALUES (?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, d.ReservationID, d.Description, d.AmountCents, d.Percent)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	d.ID = uint64(id)
	return nil
}

// AddServiceTx appends a rendered service.
func (r *ReservationRepo) AddServiceTx(ctx context.Context, tx *sql.Tx, s *model.ServiceItem) error {
	const q = `INSERT INTO reservation_services (reservation_id, name, price_cents, quantity) VALUES (?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, s.ReservationID, s.Name, s.PriceCents, s.Quantity)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return nil
}

// LedgerSums aggregates the sub-ledgers feeding the total recompute.
type LedgerSums struct {
	ChargesCents   int64
	ServicesCents  int64
	DiscountsCents int64
}

// SumLedgerTx totals the reservation's charges, services and discounts
// within the caller's transaction so the recompute sees a consistent
// snapshot.
func (r *ReservationRepo) SumLedgerTx(ctx context.Context, tx *sql.Tx, reservationID uint64) (LedgerSums, error) {
	var s LedgerSums
	const q = `SELECT
		(SELECT COALESCE(SUM(amount_cents), 0) FROM reservation_charges WHERE reservation_id = ?),
		(SELECT COALESCE(SUM(price_cents * quantity), 0) FROM reservation_services WHERE reservation_id = ?),
		(SELECT COALESCE(SUM(amount_cents), 0) FROM reservation_discounts WHERE reservation_id = ?)`
	err := tx.QueryRowContext(ctx, q, reservationID, reservationID, reservationID).
		Scan(&s.ChargesCents, &s.ServicesCents, &s.DiscountsCents)
	return s, err
}

// UpdateAmountsTx persists the recomputed financial state.  This is the
// only statement that writes the derived amount and payment-status fields.
func (r *ReservationRepo) UpdateAmountsTx(ctx context.Context, tx *sql.Tx, id uint64, totalCents, paidCents int64, ps model.PaymentStatus) error {
	const q = `UPDATE reservations SET total_amount_cents = ?, paid_amount_cents = ?, payment_status = ?,
	           version = version + 1, updated_at = UTC_TIMESTAMP() WHERE id = ?`
	_, err := tx.ExecContext(ctx, q, totalCents, paidCents, ps, id)
	return err
}

// StatusCount is one row of the stats breakdown.
type StatusCount struct {
	Status       model.Status `json:"status"`
	Count        int          `json:"count"`
	RevenueCents int64        `json:"revenue_cents"`
	PaidCents    int64        `json:"paid_cents"`
}

// StatsSummary aggregates reservations by status over an optional check-in
// date range, plus today's arrivals, departures and current occupancy.
func (r *ReservationRepo) StatsSummary(ctx context.Context, hotelID uint64, from, to time.Time) ([]StatusCount, int, int, int, error) {
	where := "hotel_id = ?"
	args := []interface{}{hotelID}
	if !from.IsZero() {
		where += " AND check_in_date >= ?"
		args = append(args, from.Format("2006-01-02"))
	}
	if !to.IsZero() {
		where += " AND check_in_date <= ?"
		args = append(args, to.Format("2006-01-02"))
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT status, COUNT(*), COALESCE(SUM(total_amount_cents), 0), COALESCE(SUM(paid_amount_cents), 0)
		 FROM reservations WHERE `+where+` GROUP BY status`, args...)
	if err != nil {
		return nil, 0, 0, 0, err
	}
	defer rows.Close()
	breakdown := make([]StatusCount, 0)
	for rows.Next() {
		var sc StatusCount
		if err := rows.Scan(&sc.Status, &sc.Count, &sc.RevenueCents, &sc.PaidCents); err != nil {
			return nil, 0, 0, 0, err
		}
		breakdown = append(breakdown, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, 0, 0, err
	}

	var arrivals, departures, occupancy int
	const todayQ = `SELECT
		(SELECT COUNT(*) FROM reservations WHERE hotel_id = ? AND check_in_date = CURDATE() AND status IN ('confirmed', 'checked_in')),
		(SELECT COUNT(*) FROM reservations WHERE hotel_id = ? AND check_out_date = CURDATE() AND status = 'checked_in'),
		(SELECT COUNT(*) FROM reservations WHERE hotel_id = ? AND status = 'checked_in')`
	if err := r.db.QueryRowContext(ctx, todayQ, hotelID, hotelID, hotelID).
		Scan(&arrivals, &departures, &occupancy); err != nil {
		return nil, 0, 0, 0, err
	}
	return breakdown, arrivals, departures, occupancy, nil
}
