package model

import (
	"math/rand"
	"testing"
	"time"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name           string
		a1, a2, b1, b2 string
		want           bool
	}{
		{name: "identicalIntervals", a1: "2026-03-01", a2: "2026-03-05", b1: "2026-03-01", b2: "2026-03-05", want: true},
		{name: "containedInterval", a1: "2026-03-01", a2: "2026-03-10", b1: "2026-03-03", b2: "2026-03-05", want: true},
		{name: "partialOverlap", a1: "2026-03-01", a2: "2026-03-05", b1: "2026-03-04", b2: "2026-03-08", want: true},
		{name: "backToBackSameDay", a1: "2026-03-01", a2: "2026-03-05", b1: "2026-03-05", b2: "2026-03-08", want: false},
		{name: "backToBackReversed", a1: "2026-03-05", a2: "2026-03-08", b1: "2026-03-01", b2: "2026-03-05", want: false},
		{name: "disjoint", a1: "2026-03-01", a2: "2026-03-03", b1: "2026-03-10", b2: "2026-03-12", want: false},
		{name: "oneNightInside", a1: "2026-03-01", a2: "2026-03-02", b1: "2026-03-01", b2: "2026-03-05", want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Overlaps(date(tt.a1), date(tt.a2), date(tt.b1), date(tt.b2))
			if got != tt.want {
				t.Errorf("Overlaps(%s..%s, %s..%s) = %v, want %v", tt.a1, tt.a2, tt.b1, tt.b2, got, tt.want)
			}
		})
	}
}

func TestNights(t *testing.T) {
	tests := []struct {
		name    string
		in, out string
		want    int
	}{
		{name: "oneNight", in: "2026-03-01", out: "2026-03-02", want: 1},
		{name: "fourNights", in: "2026-03-01", out: "2026-03-05", want: 4},
		{name: "acrossMonthEnd", in: "2026-02-27", out: "2026-03-02", want: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Nights(date(tt.in), date(tt.out)); got != tt.want {
				t.Errorf("Nights(%s, %s) = %d, want %d", tt.in, tt.out, got, tt.want)
			}
		})
	}
	// Partial days round up.
	in := date("2026-03-01").Add(15 * time.Hour)
	out := date("2026-03-02").Add(11 * time.Hour)
	if got := Nights(in, out); got != 1 {
		t.Errorf("Nights with partial day = %d, want 1", got)
	}
}

func TestValidateStay(t *testing.T) {
	if err := ValidateStay(date("2026-03-01"), date("2026-03-05")); err != nil {
		t.Errorf("valid stay rejected: %v", err)
	}
	if err := ValidateStay(date("2026-03-01"), date("2026-03-01")); err == nil {
		t.Error("zero-night stay accepted, want error")
	}
	if err := ValidateStay(date("2026-03-05"), date("2026-03-01")); err == nil {
		t.Error("reversed dates accepted, want error")
	}
	if err := ValidateStay(time.Time{}, date("2026-03-01")); err == nil {
		t.Error("zero check-in accepted, want error")
	}
}

func TestComputeTotal(t *testing.T) {
	tests := []struct {
		name                                string
		rate                                int64
		nights                              int
		charges, services, discounts, want int64
	}{
		{name: "rateOnly", rate: 10000, nights: 3, want: 30000},
		{name: "withCharges", rate: 10000, nights: 2, charges: 1500, want: 21500},
		{name: "withServices", rate: 10000, nights: 1, services: 2500, want: 12500},
		{name: "withDiscount", rate: 10000, nights: 2, discounts: 5000, want: 15000},
		{name: "discountFloorsAtZero", rate: 5000, nights: 1, discounts: 99999, want: 0},
		{name: "everything", rate: 8000, nights: 3, charges: 1200, services: 800, discounts: 2000, want: 24000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeTotal(tt.rate, tt.nights, tt.charges, tt.services, tt.discounts)
			if got != tt.want {
				t.Errorf("ComputeTotal = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestDerivePaymentStatus(t *testing.T) {
	tests := []struct {
		name                   string
		paid, total, refunded  int64
		want                   PaymentStatus
	}{
		{name: "nothingPaid", paid: 0, total: 10000, want: PayPending},
		{name: "partiallyPaid", paid: 4000, total: 10000, want: PayPartial},
		{name: "fullyPaid", paid: 10000, total: 10000, want: PayPaid},
		{name: "overTotalAfterDiscount", paid: 12000, total: 10000, want: PayPaid},
		{name: "refundedToZero", paid: 0, total: 10000, refunded: 10000, want: PayRefunded},
		{name: "partialRefundStillPartial", paid: 3000, total: 10000, refunded: 2000, want: PayPartial},
		{name: "zeroTotalNothingPaid", paid: 0, total: 0, want: PayPending},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DerivePaymentStatus(tt.paid, tt.total, tt.refunded)
			if got != tt.want {
				t.Errorf("DerivePaymentStatus(%d, %d, %d) = %s, want %s", tt.paid, tt.total, tt.refunded, got, tt.want)
			}
		})
	}
}

func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to Status }{
		{StatusPending, StatusConfirmed},
		{StatusPending, StatusCancelled},
		{StatusConfirmed, StatusCheckedIn},
		{StatusConfirmed, StatusCancelled},
		{StatusConfirmed, StatusNoShow},
		{StatusCheckedIn, StatusCheckedOut},
		{StatusCheckedIn, StatusCancelled},
	}
	for _, tr := range allowed {
		if !CanTransition(tr.from, tr.to) {
			t.Errorf("CanTransition(%s, %s) = false, want true", tr.from, tr.to)
		}
	}
	denied := []struct{ from, to Status }{
		{StatusPending, StatusCheckedIn},
		{StatusPending, StatusCheckedOut},
		{StatusConfirmed, StatusCheckedOut},
		{StatusCheckedOut, StatusCancelled},
		{StatusCancelled, StatusConfirmed},
		{StatusNoShow, StatusConfirmed},
		{StatusNoShow, StatusCancelled},
		{StatusConfirmed, StatusConfirmed},
	}
	for _, tr := range denied {
		if CanTransition(tr.from, tr.to) {
			t.Errorf("CanTransition(%s, %s) = true, want false", tr.from, tr.to)
		}
	}
}

func TestPercentToCents(t *testing.T) {
	tests := []struct {
		name    string
		total   int64
		percent float64
		want    int64
	}{
		{name: "tenPercent", total: 10000, percent: 10, want: 1000},
		{name: "roundsHalfUp", total: 10050, percent: 10, want: 1005},
		{name: "halfCentRoundsUp", total: 1001, percent: 50, want: 501},
		{name: "fullDiscount", total: 12345, percent: 100, want: 12345},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PercentToCents(tt.total, tt.percent); got != tt.want {
				t.Errorf("PercentToCents(%d, %v) = %d, want %d", tt.total, tt.percent, got, tt.want)
			}
		})
	}
}

func TestCanCheckIn(t *testing.T) {
	now := date("2026-03-03").Add(14 * time.Hour)
	base := Reservation{
		Status:        StatusConfirmed,
		CheckInDate:   date("2026-03-03"),
		CheckOutDate:  date("2026-03-06"),
		PaymentStatus: PayPartial,
	}

	ok := base
	if err := ok.CanCheckIn(now); err != nil {
		t.Errorf("eligible reservation rejected: %v", err)
	}

	pending := base
	pending.Status = StatusPending
	if err := pending.CanCheckIn(now); err == nil {
		t.Error("pending reservation checked in, want TransitionError")
	}

	future := base
	future.CheckInDate = date("2026-03-04")
	if err := future.CanCheckIn(now); err == nil {
		t.Error("future-dated reservation checked in, want StateError")
	}

	unpaid := base
	unpaid.PaymentStatus = PayPending
	if err := unpaid.CanCheckIn(now); err == nil {
		t.Error("unpaid reservation checked in, want StateError")
	}

	// Walking in a day late is fine.
	late := base
	late.CheckInDate = date("2026-03-02")
	if err := late.CanCheckIn(now); err != nil {
		t.Errorf("late arrival rejected: %v", err)
	}
}

func TestCanCheckOutAndCancel(t *testing.T) {
	r := Reservation{Status: StatusCheckedIn}
	if err := r.CanCheckOut(); err != nil {
		t.Errorf("checked-in reservation cannot check out: %v", err)
	}
	if err := r.CanCancel(); err != nil {
		t.Errorf("checked-in reservation cannot cancel: %v", err)
	}

	r.Status = StatusCheckedOut
	if err := r.CanCheckOut(); err == nil {
		t.Error("double check-out allowed, want error")
	}
	if err := r.CanCancel(); err == nil {
		t.Error("cancelling a checked-out reservation allowed, want error")
	}

	r.Status = StatusNoShow
	if err := r.CanCancel(); err == nil {
		t.Error("cancelling a no-show allowed, want error")
	}
}

func TestRemainingBalanceAndTerminal(t *testing.T) {
	r := Reservation{TotalAmountCents: 30000, PaidAmountCents: 12000, Status: StatusConfirmed}
	if got := r.RemainingBalance(); got != 18000 {
		t.Errorf("RemainingBalance = %d, want 18000", got)
	}
	if r.IsTerminal() {
		t.Error("confirmed reservation reported terminal")
	}
	r.Status = StatusCancelled
	if !r.IsTerminal() {
		t.Error("cancelled reservation not reported terminal")
	}
}

// TestPartialPaymentLifecycle walks the financial state of one reservation
// through booking, two payments and a refund, checking the derived status
// at every step the way the recompute would.
func TestPartialPaymentLifecycle(t *testing.T) {
	rate := int64(10000)
	nights := Nights(date("2026-03-01"), date("2026-03-04"))
	total := ComputeTotal(rate, nights, 0, 0, 0)
	if total != 30000 {
		t.Fatalf("initial total = %d, want 30000", total)
	}

	if got := DerivePaymentStatus(0, total, 0); got != PayPending {
		t.Errorf("after booking: %s, want pending", got)
	}

	paid := int64(10000)
	if got := DerivePaymentStatus(paid, total, 0); got != PayPartial {
		t.Errorf("after first payment: %s, want partial", got)
	}

	paid += 20000
	if got := DerivePaymentStatus(paid, total, 0); got != PayPaid {
		t.Errorf("after second payment: %s, want paid", got)
	}

	// A service charge reopens the balance.
	total = ComputeTotal(rate, nights, 0, 4000, 0)
	if got := DerivePaymentStatus(paid, total, 0); got != PayPartial {
		t.Errorf("after service charge: %s, want partial", got)
	}

	// Refund everything: paid drops to zero with refunds on record.
	refunded := paid
	paid = 0
	if got := DerivePaymentStatus(paid, total, refunded); got != PayRefunded {
		t.Errorf("after full refund: %s, want refunded", got)
	}
}

// TestLedgerRandomSequences drives random sequences of charges, services,
// discounts, payments and refunds through the same arithmetic the recompute
// uses.  Payments are capped at the remaining balance the way the handler
// caps them; refunds go through ApplyRefund with whatever amount the
// sequence produced, including over-asks that must be rejected whole.
func TestLedgerRandomSequences(t *testing.T) {
	rng := rand.New(rand.NewSource(20260828))
	refundDate := date("2026-03-10")

	for seq := 0; seq < 50; seq++ {
		rate := int64(rng.Intn(20)+1) * 2500
		nights := rng.Intn(7) + 1
		var charges, services, discounts int64
		var payments []*Payment

		recompute := func() (paid, refunded, total int64, status PaymentStatus) {
			for _, p := range payments {
				paid += p.NetCents()
				refunded += p.RefundedCents
			}
			total = ComputeTotal(rate, nights, charges, services, discounts)
			return paid, refunded, total, DerivePaymentStatus(paid, total, refunded)
		}

		for step := 0; step < 40; step++ {
			switch rng.Intn(5) {
			case 0:
				charges += int64(rng.Intn(5000) + 1)
			case 1:
				services += int64(rng.Intn(5000) + 1)
			case 2:
				discounts += int64(rng.Intn(8000) + 1)
			case 3:
				paid, _, total, _ := recompute()
				remaining := total - paid
				if remaining <= 0 {
					continue
				}
				amount := int64(rng.Intn(int(remaining))) + 1
				payments = append(payments, &Payment{AmountCents: amount, Status: PaymentCompleted})
			case 4:
				if len(payments) == 0 {
					continue
				}
				p := payments[rng.Intn(len(payments))]
				prev := p.Status
				avail := p.RefundableCents()
				amount := int64(rng.Intn(int(p.AmountCents))) + 1
				err := p.ApplyRefund(amount, "adjustment", 7, refundDate)
				wantOK := (prev == PaymentCompleted || prev == PaymentPartialRefund) && amount <= avail
				if (err == nil) != wantOK {
					t.Fatalf("seq %d step %d: refund of %d with %d refundable in status %s: err = %v",
						seq, step, amount, avail, prev, err)
				}
			}

			paid, refunded, total, status := recompute()
			if total < 0 {
				t.Fatalf("seq %d step %d: total = %d", seq, step, total)
			}
			if paid < 0 || refunded < 0 {
				t.Fatalf("seq %d step %d: paid = %d, refunded = %d", seq, step, paid, refunded)
			}
			var gross int64
			for _, p := range payments {
				if p.RefundedCents < 0 || p.RefundedCents > p.AmountCents {
					t.Fatalf("seq %d step %d: payment refunded %d of %d", seq, step, p.RefundedCents, p.AmountCents)
				}
				if p.Status == PaymentRefunded && p.RefundedCents != p.AmountCents {
					t.Fatalf("seq %d step %d: refunded status with %d of %d returned", seq, step, p.RefundedCents, p.AmountCents)
				}
				gross += p.AmountCents
			}
			if paid+refunded != gross {
				t.Fatalf("seq %d step %d: paid %d + refunded %d != gross %d", seq, step, paid, refunded, gross)
			}
			switch status {
			case PayPending:
				if paid > 0 || refunded > 0 {
					t.Fatalf("seq %d step %d: pending with paid %d refunded %d", seq, step, paid, refunded)
				}
			case PayPartial:
				if paid <= 0 || paid >= total {
					t.Fatalf("seq %d step %d: partial with paid %d of %d", seq, step, paid, total)
				}
			case PayPaid:
				if paid < total || paid <= 0 {
					t.Fatalf("seq %d step %d: paid status with paid %d of %d", seq, step, paid, total)
				}
			case PayRefunded:
				if paid > 0 || refunded <= 0 {
					t.Fatalf("seq %d step %d: refunded status with paid %d refunded %d", seq, step, paid, refunded)
				}
			}
		}
	}
}
