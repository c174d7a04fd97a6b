package model

import (
	"fmt"
	"time"
)

// Status enumerates the lifecycle states of a reservation.  checked_out and
// cancelled are terminal: once reached, only the refund path against the
// reservation's payments remains open.
type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusCheckedIn  Status = "checked_in"
	StatusCheckedOut Status = "checked_out"
	StatusCancelled  Status = "cancelled"
	StatusNoShow     Status = "no_show"
)

// PaymentStatus classifies a reservation's financial state.  It is always
// derived from the paid and total amounts via DerivePaymentStatus and never
// set directly by callers.
type PaymentStatus string

const (
	PayPending  PaymentStatus = "pending"
	PayPartial  PaymentStatus = "partial"
	PayPaid     PaymentStatus = "paid"
	PayRefunded PaymentStatus = "refunded"
)

// transitions lists the allowed lifecycle moves.  no_show is reachable only
// from confirmed via an external trigger and has no outgoing transitions.
var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCheckedIn, StatusCancelled, StatusNoShow},
	StatusCheckedIn: {StatusCheckedOut, StatusCancelled},
}

// ValidStatus reports whether s names a known lifecycle state.
func ValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCheckedIn, StatusCheckedOut, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

// CanTransition reports whether a reservation may move from one status to
// another.  Self transitions are rejected.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Reservation is the central entity: a stay interval on a room for a guest,
// together with the derived financial state of its ledger.  All monetary
// fields are integer minor units.
type Reservation struct {
	ID                uint64        `json:"id"`
	ReservationNumber string        `json:"reservation_number"`
	HotelID           uint64        `json:"hotel_id"`
	GuestID           uint64        `json:"guest_id"`
	RoomID            uint64        `json:"room_id"`
	CreatedBy         uint64        `json:"created_by"`
	CheckInDate       time.Time     `json:"check_in_date"`
	CheckOutDate      time.Time     `json:"check_out_date"`
	ActualCheckIn     *time.Time    `json:"actual_check_in,omitempty"`
	ActualCheckOut    *time.Time    `json:"actual_check_out,omitempty"`
	CheckedInBy       *uint64       `json:"checked_in_by,omitempty"`
	CheckedOutBy      *uint64       `json:"checked_out_by,omitempty"`
	Adults            int           `json:"adults"`
	Children          int           `json:"children"`
	Infants           int           `json:"infants"`
	RoomRateCents     int64         `json:"room_rate_cents"`
	TotalAmountCents  int64         `json:"total_amount_cents"`
	PaidAmountCents   int64         `json:"paid_amount_cents"`
	Currency          string        `json:"currency"`
	Status            Status        `json:"status"`
	PaymentStatus     PaymentStatus `json:"payment_status"`
	Source            string        `json:"source"`
	Notes             string        `json:"notes,omitempty"`
	SpecialRequests   string        `json:"special_requests,omitempty"`
	CheckInNotes      string        `json:"check_in_notes,omitempty"`
	CheckOutNotes     string        `json:"check_out_notes,omitempty"`
	CancelReason      string        `json:"cancellation_reason,omitempty"`
	CancelFeeCents    int64         `json:"cancellation_fee_cents,omitempty"`
	CancelledAt       *time.Time    `json:"cancelled_at,omitempty"`
	Version           uint32        `json:"version"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

// Charge is an append-only additional charge on a reservation's ledger.
type Charge struct {
	ID            uint64    `json:"id"`
	ReservationID uint64    `json:"reservation_id"`
	Description   string    `json:"description"`
	AmountCents   int64     `json:"amount_cents"`
	CreatedAt     time.Time `json:"created_at"`
}

// Discount is an append-only ledger entry reducing the total.  Percentage
// discounts are resolved to cents at application time; the Percent field is
// retained only for display.
type Discount struct {
	ID            uint64    `json:"id"`
	ReservationID uint64    `json:"reservation_id"`
	Description   string    `json:"description"`
	AmountCents   int64     `json:"amount_cents"`
	Percent       float64   `json:"percent,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// ServiceItem records a rendered service (minibar, laundry, ...) billed to
// the reservation.
type ServiceItem struct {
	ID            uint64    `json:"id"`
	ReservationID uint64    `json:"reservation_id"`
	Name          string    `json:"name"`
	PriceCents    int64     `json:"price_cents"`
	Quantity      int       `json:"quantity"`
	CreatedAt     time.Time `json:"created_at"`
}

// Nights returns the length of the stay in nights, rounding partial days up.
// Callers must have validated that out is after in.
func Nights(in, out time.Time) int {
	d := out.Sub(in)
	nights := int(d / (24 * time.Hour))
	if d%(24*time.Hour) != 0 {
		nights++
	}
	return nights
}

// Overlaps reports whether the half-open intervals [a1,a2) and [b1,b2)
// intersect.  Touching endpoints do not overlap, which is what permits
// same-day turnover: one guest checks out the morning another checks in.
func Overlaps(a1, a2, b1, b2 time.Time) bool {
	return a1.Before(b2) && b1.Before(a2)
}

// ValidateStay checks the basic shape of a requested interval.  Zero-night
// stays are invalid input, not a vacuously available booking.
func ValidateStay(in, out time.Time) error {
	if in.IsZero() || out.IsZero() {
		return fmt.Errorf("check-in and check-out dates are required")
	}
	if !out.After(in) {
		return fmt.Errorf("check-out date must be after check-in date")
	}
	return nil
}

// ComputeTotal derives the reservation total from the rate snapshot and the
// ledger sums: rate x nights + services + charges - discounts, floored at
// zero so a discount can never drive the total negative.
func ComputeTotal(rateCents int64, nights int, chargesCents, servicesCents, discountsCents int64) int64 {
	total := rateCents*int64(nights) + chargesCents + servicesCents - discountsCents
	if total < 0 {
		total = 0
	}
	return total
}

// DerivePaymentStatus maps the paid/total pair onto the payment status enum.
// refundedCents is the cumulative amount returned across the reservation's
// payments; a reservation whose payments were driven back to zero by refunds
// is refunded, not pending.
func DerivePaymentStatus(paidCents, totalCents, refundedCents int64) PaymentStatus {
	switch {
	case paidCents <= 0 && refundedCents > 0:
		return PayRefunded
	case paidCents <= 0:
		return PayPending
	case paidCents < totalCents:
		return PayPartial
	default:
		return PayPaid
	}
}

// PercentToCents resolves a percentage discount against the current total,
// rounding to the nearest cent, half up.
func PercentToCents(totalCents int64, percent float64) int64 {
	v := float64(totalCents) * percent / 100.0
	return int64(v + 0.5)
}

// RemainingBalance is the amount still owed on the reservation.
func (r *Reservation) RemainingBalance() int64 {
	return r.TotalAmountCents - r.PaidAmountCents
}

// IsTerminal reports whether the reservation has reached a state after which
// dates, occupancy, rate and status may no longer change.
func (r *Reservation) IsTerminal() bool {
	return r.Status == StatusCheckedOut || r.Status == StatusCancelled
}

// Occupancy returns the total requested guest count.
func (r *Reservation) Occupancy() int {
	return r.Adults + r.Children + r.Infants
}

// CanCheckIn evaluates the check-in guard: the reservation must be
// confirmed, the stay must have started (date comparison, not clock), and at
// least a partial payment must have been taken.  The returned error names
// the violated precondition.
func (r *Reservation) CanCheckIn(now time.Time) error {
	if r.Status != StatusConfirmed {
		return &TransitionError{From: r.Status, To: StatusCheckedIn}
	}
	today := now.UTC().Truncate(24 * time.Hour)
	if r.CheckInDate.After(today) {
		return &StateError{Op: "check-in", Reason: fmt.Sprintf("check-in date %s is in the future", r.CheckInDate.Format("2006-01-02"))}
	}
	if r.PaymentStatus == PayPending {
		return &StateError{Op: "check-in", Reason: "payment status is pending; take a payment first"}
	}
	return nil
}

// CanCheckOut evaluates the check-out guard.
func (r *Reservation) CanCheckOut() error {
	if r.Status != StatusCheckedIn {
		return &TransitionError{From: r.Status, To: StatusCheckedOut}
	}
	return nil
}

// CanCancel evaluates the cancellation guard.  Already-terminal
// reservations and no-shows cannot be cancelled.
func (r *Reservation) CanCancel() error {
	if !CanTransition(r.Status, StatusCancelled) {
		return &TransitionError{From: r.Status, To: StatusCancelled}
	}
	return nil
}
