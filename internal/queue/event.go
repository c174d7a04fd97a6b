// Package queue defines message payloads exchanged over the message broker
// and the background consumer that processes them.
package queue

// ReservationConfirmedEvent is published when a reservation reaches the
// confirmed state.  It carries enough information for downstream consumers
// to log, notify or feed analytics without querying the primary database.
type ReservationConfirmedEvent struct {
	ReservationID     uint64 `json:"reservation_id"`
	ReservationNumber string `json:"reservation_number"`
	HotelID           uint64 `json:"hotel_id"`
	GuestID           uint64 `json:"guest_id"`
	GuestName         string `json:"guest_name"`
	RoomID            uint64 `json:"room_id"`
	RoomNumber        string `json:"room_number"`
	CheckInDate       string `json:"check_in_date"`
	CheckOutDate      string `json:"check_out_date"`
	Nights            int    `json:"nights"`
	TotalAmountCents  int64  `json:"total_amount_cents"`
	Currency          string `json:"currency"`
	ConfirmedBy       uint64 `json:"confirmed_by"`
	ConfirmedAt       string `json:"confirmed_at"`
}

// PaymentRecordedEvent is published when a payment settles against a
// reservation, including the reservation's financial state after the
// ledger recompute.
type PaymentRecordedEvent struct {
	PaymentID         uint64 `json:"payment_id"`
	PaymentNumber     string `json:"payment_number"`
	HotelID           uint64 `json:"hotel_id"`
	ReservationID     uint64 `json:"reservation_id"`
	ReservationNumber string `json:"reservation_number"`
	AmountCents       int64  `json:"amount_cents"`
	Currency          string `json:"currency"`
	Method            string `json:"method"`
	PaidAmountCents   int64  `json:"paid_amount_cents"`
	TotalAmountCents  int64  `json:"total_amount_cents"`
	PaymentStatus     string `json:"payment_status"`
	ProcessedBy       uint64 `json:"processed_by"`
	RecordedAt        string `json:"recorded_at"`
}
