package model

import "time"

// Guest is an entry in the guest directory.  The reservation core never
// mutates identity fields; it reads the blacklist flag as an admission gate
// and bumps the stay statistics when a booking is accepted.
type Guest struct {
	ID              uint64     `json:"id"`
	HotelID         uint64     `json:"hotel_id"`
	FirstName       string     `json:"first_name"`
	LastName        string     `json:"last_name"`
	Email           string     `json:"email"`
	Phone           string     `json:"phone,omitempty"`
	IsBlacklisted   bool       `json:"is_blacklisted"`
	BlacklistReason string     `json:"blacklist_reason,omitempty"`
	TotalStays      int        `json:"total_stays"`
	LastStayDate    *time.Time `json:"last_stay_date,omitempty"`
	IsActive        bool       `json:"is_active"`
	CreatedAt       time.Time  `json:"created_at"`
}

// FullName joins the guest's name parts for display in conflict summaries
// and check-in responses.
func (g *Guest) FullName() string {
	return g.FirstName + " " + g.LastName
}
