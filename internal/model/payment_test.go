package model

import (
	"testing"
	"time"
)

func TestValidMethod(t *testing.T) {
	for _, m := range []string{MethodCash, MethodCard, MethodTransfer, MethodOther} {
		if !ValidMethod(m) {
			t.Errorf("ValidMethod(%q) = false, want true", m)
		}
	}
	for _, m := range []string{"", "check", "CASH", "crypto"} {
		if ValidMethod(m) {
			t.Errorf("ValidMethod(%q) = true, want false", m)
		}
	}
}

func TestNetCents(t *testing.T) {
	tests := []struct {
		name string
		p    Payment
		want int64
	}{
		{name: "completed", p: Payment{Status: PaymentCompleted, AmountCents: 5000}, want: 5000},
		{name: "partialRefund", p: Payment{Status: PaymentPartialRefund, AmountCents: 5000, RefundedCents: 2000}, want: 3000},
		{name: "fullyRefunded", p: Payment{Status: PaymentRefunded, AmountCents: 5000, RefundedCents: 5000}, want: 0},
		{name: "pending", p: Payment{Status: PaymentPending, AmountCents: 5000}, want: 0},
		{name: "failed", p: Payment{Status: PaymentFailed, AmountCents: 5000}, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.p.NetCents(); got != tt.want {
				t.Errorf("NetCents() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestApplyRefund(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	t.Run("partialThenFull", func(t *testing.T) {
		p := Payment{Status: PaymentCompleted, AmountCents: 10000}
		if err := p.ApplyRefund(4000, "overcharge", 7, now); err != nil {
			t.Fatalf("first refund failed: %v", err)
		}
		if p.Status != PaymentPartialRefund || p.RefundedCents != 4000 {
			t.Errorf("after partial refund: status=%s refunded=%d", p.Status, p.RefundedCents)
		}
		if got := p.RefundableCents(); got != 6000 {
			t.Errorf("RefundableCents = %d, want 6000", got)
		}
		if err := p.ApplyRefund(6000, "stay cancelled", 7, now); err != nil {
			t.Fatalf("second refund failed: %v", err)
		}
		if p.Status != PaymentRefunded || p.RefundedCents != 10000 {
			t.Errorf("after full refund: status=%s refunded=%d", p.Status, p.RefundedCents)
		}
		if p.RefundedBy == nil || *p.RefundedBy != 7 {
			t.Error("refund actor not recorded")
		}
	})

	t.Run("exceedsRemainder", func(t *testing.T) {
		p := Payment{Status: PaymentPartialRefund, AmountCents: 10000, RefundedCents: 8000}
		if err := p.ApplyRefund(3000, "too much", 1, now); err == nil {
			t.Error("over-refund accepted, want error")
		}
		if p.RefundedCents != 8000 {
			t.Errorf("over-refund mutated payment: refunded=%d", p.RefundedCents)
		}
	})

	t.Run("nonPositiveAmount", func(t *testing.T) {
		p := Payment{Status: PaymentCompleted, AmountCents: 10000}
		if err := p.ApplyRefund(0, "zero", 1, now); err == nil {
			t.Error("zero refund accepted, want error")
		}
		if err := p.ApplyRefund(-100, "negative", 1, now); err == nil {
			t.Error("negative refund accepted, want error")
		}
	})

	t.Run("wrongStatus", func(t *testing.T) {
		for _, s := range []PayState{PaymentPending, PaymentFailed, PaymentCancelled, PaymentRefunded} {
			p := Payment{Status: s, AmountCents: 10000, RefundedCents: 10000}
			if s != PaymentRefunded {
				p.RefundedCents = 0
			}
			if err := p.ApplyRefund(1000, "status check", 1, now); err == nil {
				t.Errorf("refund against %s payment accepted, want error", s)
			}
		}
	})
}
