// Package model holds the domain entities and the pure decision logic of
// the reservation core: the lifecycle state machine, the interval overlap
// predicate and the ledger arithmetic.  Nothing in this package touches the
// database, which keeps every rule unit testable.
package model

import "fmt"

// TransitionError reports an attempted lifecycle move the state machine
// does not allow.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid status transition from %s to %s", e.From, e.To)
}

// StateError reports an operation rejected because of the reservation's or
// payment's current state (terminal mutation, unmet guard, over-payment,
// over-refund).  Reason names the violated precondition so callers can
// surface it verbatim.
type StateError struct {
	Op     string
	Reason string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s rejected: %s", e.Op, e.Reason)
}

// CapacityError reports an occupancy request exceeding the room's maximum.
// It is deliberately distinct from a scheduling conflict.
type CapacityError struct {
	MaxOccupancy int
	Requested    int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("capacity exceeded: room allows %d, requested %d", e.MaxOccupancy, e.Requested)
}
