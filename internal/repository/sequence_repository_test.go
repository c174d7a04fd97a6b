package repository

import (
	"testing"
	"time"
)

func TestFormatReservationNumber(t *testing.T) {
	day := time.Date(2026, 3, 7, 15, 30, 0, 0, time.UTC)
	tests := []struct {
		seq  int
		want string
	}{
		{seq: 1, want: "2603070001"},
		{seq: 42, want: "2603070042"},
		{seq: 9999, want: "2603079999"},
	}
	for _, tt := range tests {
		if got := FormatReservationNumber(day, tt.seq); got != tt.want {
			t.Errorf("FormatReservationNumber(seq=%d) = %q, want %q", tt.seq, got, tt.want)
		}
	}
}

func TestFormatPaymentNumber(t *testing.T) {
	day := time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)
	if got := FormatPaymentNumber(day, 7); got != "PAY2612310007" {
		t.Errorf("FormatPaymentNumber = %q, want PAY2612310007", got)
	}
}

// Times east of UTC can already be on the next day locally; numbers must
// derive from the UTC date.
func TestFormatUsesUTCDate(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*3600)
	day := time.Date(2026, 3, 8, 2, 0, 0, 0, loc) // still 2026-03-07 in UTC
	if got := FormatReservationNumber(day, 1); got != "2603070001" {
		t.Errorf("FormatReservationNumber across zones = %q, want 2603070001", got)
	}
}
