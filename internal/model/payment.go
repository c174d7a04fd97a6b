package model

import (
	"fmt"
	"time"
)

// PayState enumerates the states of an individual payment record.  A
// payment counts toward the reservation's paid amount only while completed
// or partially refunded; a fully refunded payment contributes zero.
type PayState string

const (
	PaymentPending       PayState = "pending"
	PaymentCompleted     PayState = "completed"
	PaymentFailed        PayState = "failed"
	PaymentCancelled     PayState = "cancelled"
	PaymentRefunded      PayState = "refunded"
	PaymentPartialRefund PayState = "partial_refund"
)

// Payment methods accepted at the desk.  Gateway processing is opaque to
// this service; TransactionID carries the external reference when present.
const (
	MethodCash     = "cash"
	MethodCard     = "card"
	MethodTransfer = "transfer"
	MethodOther    = "other"
)

// ValidMethod reports whether m names a known settlement method.
func ValidMethod(m string) bool {
	switch m {
	case MethodCash, MethodCard, MethodTransfer, MethodOther:
		return true
	}
	return false
}

// Payment is an immutable settlement record tied to one reservation.  Only
// the status and refund fields ever change after creation, and every such
// change is mirrored into the append-only audit log.
type Payment struct {
	ID            uint64     `json:"id"`
	PaymentNumber string     `json:"payment_number"`
	HotelID       uint64     `json:"hotel_id"`
	ReservationID uint64     `json:"reservation_id"`
	AmountCents   int64      `json:"amount_cents"`
	Currency      string     `json:"currency"`
	Method        string     `json:"method"`
	Status        PayState   `json:"status"`
	TransactionID string     `json:"transaction_id,omitempty"`
	Reference     string     `json:"reference,omitempty"`
	Notes         string     `json:"notes,omitempty"`
	RefundedCents int64      `json:"refunded_cents"`
	RefundReason  string     `json:"refund_reason,omitempty"`
	RefundedAt    *time.Time `json:"refunded_at,omitempty"`
	RefundedBy    *uint64    `json:"refunded_by,omitempty"`
	ProcessedBy   uint64     `json:"processed_by"`
	PaymentDate   time.Time  `json:"payment_date"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// AuditEntry is one line of a payment's append-only audit trail.  Entries
// are never mutated or deleted.
type AuditEntry struct {
	ID        uint64    `json:"id"`
	PaymentID uint64    `json:"payment_id"`
	Action    string    `json:"action"`
	UserID    uint64    `json:"user_id"`
	Details   string    `json:"details,omitempty"`
	OldValue  string    `json:"old_value,omitempty"`
	NewValue  string    `json:"new_value,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NetCents is the amount this payment currently contributes to the owning
// reservation's paid total.
func (p *Payment) NetCents() int64 {
	switch p.Status {
	case PaymentCompleted:
		return p.AmountCents
	case PaymentPartialRefund:
		return p.AmountCents - p.RefundedCents
	default:
		return 0
	}
}

// RefundableCents is the amount still available for refund.
func (p *Payment) RefundableCents() int64 {
	return p.AmountCents - p.RefundedCents
}

// ApplyRefund validates and applies a refund against the payment, updating
// the cumulative refunded amount and the status.  The refund is all or
// nothing: an amount exceeding the refundable remainder is rejected, never
// partially applied.
func (p *Payment) ApplyRefund(amountCents int64, reason string, actor uint64, at time.Time) error {
	if amountCents <= 0 {
		return &StateError{Op: "refund", Reason: "refund amount must be positive"}
	}
	if p.Status != PaymentCompleted && p.Status != PaymentPartialRefund {
		return &StateError{Op: "refund", Reason: fmt.Sprintf("payment in status %s cannot be refunded", p.Status)}
	}
	if avail := p.RefundableCents(); amountCents > avail {
		return &StateError{Op: "refund", Reason: fmt.Sprintf("refund of %d exceeds refundable amount of %d", amountCents, avail)}
	}
	p.RefundedCents += amountCents
	p.RefundReason = reason
	p.RefundedAt = &at
	p.RefundedBy = &actor
	if p.RefundedCents >= p.AmountCents {
		p.Status = PaymentRefunded
	} else {
		p.Status = PaymentPartialRefund
	}
	return nil
}
