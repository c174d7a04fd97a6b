package repository

import (
	"strings"
	"testing"
)

// The availability endpoint reads outside any transaction and must not take
// row locks; the booking transaction must.  A plain consistent read inside
// the booking transaction reads the transaction snapshot and can miss a
// conflicting reservation committed after the snapshot was taken, so the
// transactional variant has to be a locking read.
func TestOverlapQueryLocking(t *testing.T) {
	if strings.Contains(overlapQuery, "FOR UPDATE") {
		t.Error("availability overlap query must not be a locking read")
	}
	if !strings.HasSuffix(strings.TrimSpace(overlapQueryLocked), "FOR UPDATE") {
		t.Error("transactional overlap query must end with FOR UPDATE")
	}
	if !strings.HasPrefix(overlapQueryLocked, overlapQuery) {
		t.Error("locked variant must not diverge from the base overlap query")
	}
}

func TestOverlapQueryHalfOpenPredicate(t *testing.T) {
	for _, q := range []string{overlapQuery, overlapQueryLocked} {
		if !strings.Contains(q, "r.check_in_date < ?") || !strings.Contains(q, "r.check_out_date > ?") {
			t.Error("overlap predicate must use strict inequalities so same-day turnover is not a conflict")
		}
		if !strings.Contains(q, "r.status IN ('confirmed', 'checked_in')") {
			t.Error("only confirmed and checked-in reservations may block a room")
		}
	}
}
