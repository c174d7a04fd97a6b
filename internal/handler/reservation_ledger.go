package handler

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hotelhq/room-reservation/internal/model"
	"github.com/hotelhq/room-reservation/internal/queue"
	"github.com/hotelhq/room-reservation/internal/repository"
	queue_publisher "github.com/hotelhq/room-reservation/internal/service"
)

// recomputeAmountsTx re-derives the reservation's total, paid amount and
// payment status from the ledger and payment tables inside the caller's
// transaction, persists them, and mirrors them back onto the model.  Every
// mutation that can move the balance calls this before committing, so the
// derived fields are never observed reflecting half of a change.
func recomputeAmountsTx(ctx context.Context, tx *sql.Tx, resRepo *repository.ReservationRepo,
	payRepo *repository.PaymentRepo, res *model.Reservation) error {
	sums, err := resRepo.SumLedgerTx(ctx, tx, res.ID)
	if err != nil {
		return err
	}
	paid, refunded, err := payRepo.SumPaidTx(ctx, tx, res.ID)
	if err != nil {
		return err
	}
	nights := model.Nights(res.CheckInDate, res.CheckOutDate)
	total := model.ComputeTotal(res.RoomRateCents, nights, sums.ChargesCents, sums.ServicesCents, sums.DiscountsCents)
	ps := model.DerivePaymentStatus(paid, total, refunded)
	if err := resRepo.UpdateAmountsTx(ctx, tx, res.ID, total, paid, ps); err != nil {
		return err
	}
	res.TotalAmountCents = total
	res.PaidAmountCents = paid
	res.PaymentStatus = ps
	return nil
}

// ledgerMutable reports whether the reservation's ledger still accepts
// charges, services, discounts and payments.  Terminal reservations keep
// only the refund path open.
func ledgerMutable(res *model.Reservation) bool {
	switch res.Status {
	case model.StatusPending, model.StatusConfirmed, model.StatusCheckedIn:
		return true
	}
	return false
}

type addPaymentReq struct {
	AmountCents   int64  `json:"amount_cents"`
	Method        string `json:"method"`
	TransactionID string `json:"transaction_id"`
	Reference     string `json:"reference"`
	Notes         string `json:"notes"`
}

// AddPayment handles POST /v1/reservations/:id/payments.  It records a
// completed settlement against the reservation, capped at the remaining
// balance: overpayment is rejected with the exact remainder, never silently
// clamped.  The payment insert, audit entry and ledger recompute commit in
// one transaction.
func (h *ReservationHandler) AddPayment(c echo.Context) error {
	userID, hotelID, err := identity(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	resID, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	var req addPaymentReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.AmountCents <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "amount_cents must be positive"})
	}
	if !model.ValidMethod(req.Method) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "method must be one of cash, card, transfer, other"})
	}

	ctx := c.Request().Context()
	tx, err := h.Reservations.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	res, err := h.Reservations.GetForUpdateTx(ctx, tx, resID, hotelID)
	if err != nil {
		if err == repository.ErrReservationNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if !ledgerMutable(res) {
		return c.JSON(http.StatusConflict, echo.Map{
			"error": "reservation in status " + string(res.Status) + " does not accept payments",
		})
	}
	if remaining := res.RemainingBalance(); req.AmountCents > remaining {
		return c.JSON(http.StatusConflict, echo.Map{
			"error":                   fmt.Sprintf("payment exceeds remaining balance of %d", remaining),
			"remaining_balance_cents": remaining,
		})
	}

	now := time.Now().UTC()
	seq, err := h.Sequences.NextTx(ctx, tx, repository.ScopePayment, now)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to generate payment number"})
	}

	p := &model.Payment{
		PaymentNumber: repository.FormatPaymentNumber(now, seq),
		HotelID:       hotelID,
		ReservationID: res.ID,
		AmountCents:   req.AmountCents,
		Currency:      res.Currency,
		Method:        req.Method,
		Status:        model.PaymentCompleted,
		TransactionID: req.TransactionID,
		Reference:     req.Reference,
		Notes:         req.Notes,
		ProcessedBy:   userID,
	}
	if err := h.Payments.CreateTx(ctx, tx, p); err != nil {
		if err == repository.ErrConflict {
			return c.JSON(http.StatusConflict, echo.Map{"error": "payment number collision, retry"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create payment"})
	}
	audit := &model.AuditEntry{
		PaymentID: p.ID,
		Action:    "created",
		UserID:    userID,
		Details:   fmt.Sprintf("payment of %d %s via %s against reservation %s", p.AmountCents, p.Currency, p.Method, res.ReservationNumber),
		NewValue:  fmt.Sprintf("%d", p.AmountCents),
	}
	if err := h.Payments.AppendAuditTx(ctx, tx, audit); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to write audit entry"})
	}
	if err := recomputeAmountsTx(ctx, tx, h.Reservations, h.Payments, res); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to recompute balance"})
	}

	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true

	h.publishPaymentRecorded(p, res)

	return c.JSON(http.StatusCreated, echo.Map{
		"payment":        p,
		"payment_status": res.PaymentStatus,
		"paid_cents":     res.PaidAmountCents,
		"total_cents":    res.TotalAmountCents,
	})
}

func (h *ReservationHandler) publishPaymentRecorded(p *model.Payment, res *model.Reservation) {
	ev := queue.PaymentRecordedEvent{
		PaymentID:         p.ID,
		PaymentNumber:     p.PaymentNumber,
		HotelID:           p.HotelID,
		ReservationID:     res.ID,
		ReservationNumber: res.ReservationNumber,
		AmountCents:       p.AmountCents,
		Currency:          p.Currency,
		Method:            p.Method,
		PaidAmountCents:   res.PaidAmountCents,
		TotalAmountCents:  res.TotalAmountCents,
		PaymentStatus:     string(res.PaymentStatus),
		ProcessedBy:       p.ProcessedBy,
		RecordedAt:        time.Now().UTC().Format(time.RFC3339),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = queue_publisher.PublishPaymentRecorded(ctx, ev)
	}()
}

type addChargeReq struct {
	Description string `json:"description"`
	AmountCents int64  `json:"amount_cents"`
}

// AddCharge handles POST /v1/reservations/:id/charges.  Charges are
// append-only; the total recomputes in the same transaction.
func (h *ReservationHandler) AddCharge(c echo.Context) error {
	_, hotelID, err := identity(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	resID, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	var req addChargeReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.Description == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "description is required"})
	}
	if req.AmountCents <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "amount_cents must be positive"})
	}

	ctx := c.Request().Context()
	tx, err := h.Reservations.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	res, err := h.Reservations.GetForUpdateTx(ctx, tx, resID, hotelID)
	if err != nil {
		if err == repository.ErrReservationNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if !ledgerMutable(res) {
		return c.JSON(http.StatusConflict, echo.Map{
			"error": "reservation in status " + string(res.Status) + " does not accept charges",
		})
	}

	charge := &model.Charge{ReservationID: res.ID, Description: req.Description, AmountCents: req.AmountCents}
	if err := h.Reservations.AddChargeTx(ctx, tx, charge); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to add charge"})
	}
	if err := recomputeAmountsTx(ctx, tx, h.Reservations, h.Payments, res); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to recompute balance"})
	}

	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true
	return c.JSON(http.StatusCreated, echo.Map{
		"charge":      charge,
		"total_cents": res.TotalAmountCents,
	})
}

type addServiceReq struct {
	Name       string `json:"name"`
	PriceCents int64  `json:"price_cents"`
	Quantity   int    `json:"quantity"`
}

// AddService handles POST /v1/reservations/:id/services and bills a
// rendered service (minibar, laundry, ...) to the reservation.
func (h *ReservationHandler) AddService(c echo.Context) error {
	_, hotelID, err := identity(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	resID, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	var req addServiceReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}
	if req.PriceCents <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "price_cents must be positive"})
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	if req.Quantity < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "quantity must be positive"})
	}

	ctx := c.Request().Context()
	tx, err := h.Reservations.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	res, err := h.Reservations.GetForUpdateTx(ctx, tx, resID, hotelID)
	if err != nil {
		if err == repository.ErrReservationNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if !ledgerMutable(res) {
		return c.JSON(http.StatusConflict, echo.Map{
			"error": "reservation in status " + string(res.Status) + " does not accept services",
		})
	}

	svc := &model.ServiceItem{ReservationID: res.ID, Name: req.Name, PriceCents: req.PriceCents, Quantity: req.Quantity}
	if err := h.Reservations.AddServiceTx(ctx, tx, svc); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to add service"})
	}
	if err := recomputeAmountsTx(ctx, tx, h.Reservations, h.Payments, res); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to recompute balance"})
	}

	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true
	return c.JSON(http.StatusCreated, echo.Map{
		"service":     svc,
		"total_cents": res.TotalAmountCents,
	})
}

type applyDiscountReq struct {
	Description string  `json:"description"`
	AmountCents int64   `json:"amount_cents"`
	Percent     float64 `json:"percent"`
}

// ApplyDiscount handles POST /v1/reservations/:id/discounts.  A discount is
// either a fixed amount or a percentage of the current total; percentages
// are resolved to cents once, at application time, so later charges do not
// retroactively grow an already-applied discount.
func (h *ReservationHandler) ApplyDiscount(c echo.Context) error {
	_, hotelID, err := identity(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	resID, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	var req applyDiscountReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.Description == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "description is required"})
	}
	if (req.AmountCents <= 0) == (req.Percent <= 0) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "exactly one of amount_cents or percent is required"})
	}
	if req.Percent < 0 || req.Percent > 100 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "percent must be between 0 and 100"})
	}

	ctx := c.Request().Context()
	tx, err := h.Reservations.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	res, err := h.Reservations.GetForUpdateTx(ctx, tx, resID, hotelID)
	if err != nil {
		if err == repository.ErrReservationNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if !ledgerMutable(res) {
		return c.JSON(http.StatusConflict, echo.Map{
			"error": "reservation in status " + string(res.Status) + " does not accept discounts",
		})
	}

	amount := req.AmountCents
	if req.Percent > 0 {
		// Resolve against the current total before this discount lands.
		sums, err := h.Reservations.SumLedgerTx(ctx, tx, res.ID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to read ledger"})
		}
		nights := model.Nights(res.CheckInDate, res.CheckOutDate)
		current := model.ComputeTotal(res.RoomRateCents, nights, sums.ChargesCents, sums.ServicesCents, sums.DiscountsCents)
		amount = model.PercentToCents(current, req.Percent)
	}

	disc := &model.Discount{ReservationID: res.ID, Description: req.Description, AmountCents: amount, Percent: req.Percent}
	if err := h.Reservations.AddDiscountTx(ctx, tx, disc); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to apply discount"})
	}
	if err := recomputeAmountsTx(ctx, tx, h.Reservations, h.Payments, res); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to recompute balance"})
	}

	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true
	return c.JSON(http.StatusCreated, echo.Map{
		"discount":    disc,
		"total_cents": res.TotalAmountCents,
	})
}
