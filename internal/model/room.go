package model

import "time"

// RoomStatus is the operational state of a room.  It is mutated by the
// reservation lifecycle as a side effect (check-in occupies, check-out and
// cancellation release to cleaning) and by the housekeeping flow.
type RoomStatus string

const (
	RoomAvailable   RoomStatus = "available"
	RoomOccupied    RoomStatus = "occupied"
	RoomCleaning    RoomStatus = "cleaning"
	RoomMaintenance RoomStatus = "maintenance"
	RoomOutOfOrder  RoomStatus = "out_of_order"
)

// CleaningStatus tracks housekeeping separately from the operational state.
type CleaningStatus string

const (
	CleaningClean      CleaningStatus = "clean"
	CleaningDirty      CleaningStatus = "dirty"
	CleaningInProgress CleaningStatus = "in_progress"
)

// Room is an entry in the room directory.  The reservation core reads the
// identity fields and mutates only Status and CleaningStatus.
type Room struct {
	ID             uint64         `json:"id"`
	HotelID        uint64         `json:"hotel_id"`
	Number         string         `json:"number"`
	Type           string         `json:"type"`
	MaxOccupancy   int            `json:"max_occupancy"`
	BaseRateCents  int64          `json:"base_rate_cents"`
	Currency       string         `json:"currency"`
	Status         RoomStatus     `json:"status"`
	CleaningStatus CleaningStatus `json:"cleaning_status"`
	IsActive       bool           `json:"is_active"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// Bookable reports whether the room's physical state admits new
// reservations.  Cleaning and occupancy do not block future-dated bookings;
// maintenance and out-of-order rooms are off the market.
func (r *Room) Bookable() bool {
	if !r.IsActive {
		return false
	}
	switch r.Status {
	case RoomMaintenance, RoomOutOfOrder:
		return false
	}
	return true
}

// CleaningRequest is a housekeeping work order.  One is auto-filed at every
// check-out; staff may also file them directly.
type CleaningRequest struct {
	ID          uint64     `json:"id"`
	RoomID      uint64     `json:"room_id"`
	RequestedBy uint64     `json:"requested_by"`
	Priority    string     `json:"priority"`
	Notes       string     `json:"notes,omitempty"`
	Status      string     `json:"status"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CompletedBy *uint64    `json:"completed_by,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}
