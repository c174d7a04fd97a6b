// Package repository implements the persistence layer over MySQL.  It
// defines sentinel error values reused across repositories so handlers can
// distinguish failure scenarios: ErrConflict signals a scheduling overlap
// or a duplicate generated number, while the NotFound values cover missing
// or inactive referenced entities.
package repository

import "errors"

// ErrReservationNotFound is returned when a reservation does not exist for
// the caller's hotel.  Handlers translate it into HTTP 404.
var ErrReservationNotFound = errors.New("reservation not found")

// ErrPaymentNotFound is returned when a payment does not exist for the
// caller's hotel.
var ErrPaymentNotFound = errors.New("payment not found")

// ErrRoomNotFound is returned when a room does not exist or is inactive.
var ErrRoomNotFound = errors.New("room not found")

// ErrGuestNotFound is returned when a guest does not exist or is inactive.
var ErrGuestNotFound = errors.New("guest not found")

// ErrUserNotFound is returned when a staff user lookup fails.
var ErrUserNotFound = errors.New("user not found")

// ErrConflict is returned when an insert or update cannot proceed because
// of conflicting state, such as a duplicate reservation number.  Handlers
// translate it into HTTP 409.
var ErrConflict = errors.New("conflict")
