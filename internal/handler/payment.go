package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hotelhq/room-reservation/internal/model"
	"github.com/hotelhq/room-reservation/internal/repository"
)

// PaymentHandler exposes the payment read surface and the refund path.
// Payments are created through the reservation endpoints; nothing here
// deletes or edits a settled payment outside the refund fields.
type PaymentHandler struct {
	Payments     *repository.PaymentRepo
	Reservations *repository.ReservationRepo
}

func NewPaymentHandler(pay *repository.PaymentRepo, res *repository.ReservationRepo) *PaymentHandler {
	if pay == nil || res == nil {
		panic("nil repository passed to NewPaymentHandler")
	}
	return &PaymentHandler{Payments: pay, Reservations: res}
}

// List handles GET /v1/payments with optional status, method,
// reservation_id and date-range filters.
func (h *PaymentHandler) List(c echo.Context) error {
	_, hotelID, err := identity(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var f repository.PaymentFilter
	if s := c.QueryParam("status"); s != "" {
		f.Status = model.PayState(s)
	}
	if m := c.QueryParam("method"); m != "" {
		if !model.ValidMethod(m) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown method " + m})
		}
		f.Method = m
	}
	if v := c.QueryParam("reservation_id"); v != "" {
		f.ReservationID, _ = strconv.ParseUint(v, 10, 64)
	}
	if f.DateFrom, err = parseDateQuery(c, "date_from"); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid date_from"})
	}
	if f.DateTo, err = parseDateQuery(c, "date_to"); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid date_to"})
	}
	f.Page, f.PerPage = pageParams(c)

	items, total, err := h.Payments.List(c.Request().Context(), hotelID, f)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load payments"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"items":    items,
		"total":    total,
		"page":     f.Page,
		"per_page": f.PerPage,
	})
}

// Get handles GET /v1/payments/:id.
func (h *PaymentHandler) Get(c echo.Context) error {
	_, hotelID, err := identity(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	payID, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payment id"})
	}
	p, err := h.Payments.GetByID(c.Request().Context(), payID, hotelID)
	if err != nil {
		if err == repository.ErrPaymentNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "payment not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch payment"})
	}
	return c.JSON(http.StatusOK, echo.Map{"payment": p})
}

// Audit handles GET /v1/payments/:id/audit and returns the payment's
// append-only audit trail, oldest first.
func (h *PaymentHandler) Audit(c echo.Context) error {
	_, hotelID, err := identity(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	payID, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payment id"})
	}
	ctx := c.Request().Context()
	if _, err := h.Payments.GetByID(ctx, payID, hotelID); err != nil {
		if err == repository.ErrPaymentNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "payment not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch payment"})
	}
	entries, err := h.Payments.ListAudit(ctx, payID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load audit trail"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": entries})
}

type refundReq struct {
	AmountCents int64  `json:"amount_cents"`
	Reason      string `json:"reason"`
}

// Refund handles POST /v1/payments/:id/refund.  The refund is capped at
// the payment's unrefunded remainder and rejected, never clamped, beyond
// it.  The payment update, the audit entry and the owning reservation's
// ledger recompute commit in one transaction; both rows are locked so
// concurrent refunds against the same payment serialize.
func (h *PaymentHandler) Refund(c echo.Context) error {
	userID, hotelID, err := identity(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	payID, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payment id"})
	}
	var req refundReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.AmountCents <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "amount_cents must be positive"})
	}
	if req.Reason == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "reason is required"})
	}

	ctx := c.Request().Context()
	tx, err := h.Payments.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	// Lock the reservation first, then the payment; the same order the
	// payment-creation path uses, so the two paths cannot deadlock.
	p, err := h.Payments.GetByID(ctx, payID, hotelID)
	if err != nil {
		if err == repository.ErrPaymentNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "payment not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	res, err := h.Reservations.GetForUpdateTx(ctx, tx, p.ReservationID, hotelID)
	if err != nil {
		if err == repository.ErrReservationNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	p, err = h.Payments.GetForUpdateTx(ctx, tx, payID, hotelID)
	if err != nil {
		if err == repository.ErrPaymentNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "payment not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	before := p.RefundedCents
	now := time.Now().UTC()
	if err := p.ApplyRefund(req.AmountCents, req.Reason, userID, now); err != nil {
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	}
	if err := h.Payments.UpdateRefundTx(ctx, tx, p); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update payment"})
	}
	audit := &model.AuditEntry{
		PaymentID: p.ID,
		Action:    "refunded",
		UserID:    userID,
		Details:   fmt.Sprintf("refund of %d %s: %s", req.AmountCents, p.Currency, req.Reason),
		OldValue:  fmt.Sprintf("%d", before),
		NewValue:  fmt.Sprintf("%d", p.RefundedCents),
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
	return c.JSON(http.StatusOK, echo.Map{
		"payment":        p,
		"payment_status": res.PaymentStatus,
		"paid_cents":     res.PaidAmountCents,
	})
}

// Stats handles GET /v1/payments/stats: breakdowns by method and status
// over an optional date range plus gross revenue and refund totals.
func (h *PaymentHandler) Stats(c echo.Context) error {
	_, hotelID, err := identity(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	from, err := parseDateQuery(c, "date_from")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid date_from"})
	}
	to, err := parseDateQuery(c, "date_to")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid date_to"})
	}

	byMethod, byStatus, revenue, refunds, err := h.Payments.StatsSummary(c.Request().Context(), hotelID, from, to)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load stats"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"by_method":     byMethod,
		"by_status":     byStatus,
		"revenue_cents": revenue,
		"refunds_cents": refunds,
	})
}
