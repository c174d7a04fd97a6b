package model

import "time"

// Staff roles.  Authorization beyond role gating is enforced upstream of
// this service.
const (
	RoleManager   = "MANAGER"
	RoleReception = "RECEPTION"
)

// User is a staff member in the user directory.  The core consumes it for
// actor identity on lifecycle transitions and payment records.
type User struct {
	ID           uint64    `json:"id"`
	HotelID      uint64    `json:"hotel_id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FullName     string    `json:"full_name"`
	Role         string    `json:"role"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}
