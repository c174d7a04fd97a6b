package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hotelhq/room-reservation/internal/model"
	"github.com/hotelhq/room-reservation/internal/repository"
)

type updateStatusReq struct {
	Status string `json:"status"`
	Notes  string `json:"notes"`
}

// UpdateStatus handles PUT /v1/reservations/:id/status.  It covers the
// transitions that have no dedicated endpoint: confirming a pending
// reservation and marking a confirmed one as a no-show.  Check-in,
// check-out and cancellation carry extra guard logic and side effects and
// live on their own routes.
func (h *ReservationHandler) UpdateStatus(c echo.Context) error {
	userID, hotelID, err := identity(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	resID, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	var req updateStatusReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	target := model.Status(req.Status)
	if !model.ValidStatus(target) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown status " + req.Status})
	}
	switch target {
	case model.StatusCheckedIn, model.StatusCheckedOut, model.StatusCancelled:
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "use the dedicated check-in, check-out or cancel endpoint for this transition",
		})
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
	if !model.CanTransition(res.Status, target) {
		trErr := &model.TransitionError{From: res.Status, To: target}
		return c.JSON(http.StatusConflict, echo.Map{"error": trErr.Error()})
	}

	// Confirming must re-validate the interval: the reservation was pending,
	// so it did not block other bookings while it waited.
	if target == model.StatusConfirmed {
		if _, err := h.Rooms.GetForUpdateTx(ctx, tx, res.RoomID, hotelID); err != nil {
			if err == repository.ErrRoomNotFound {
				return c.JSON(http.StatusNotFound, echo.Map{"error": "room not found"})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
		conflicts, err := h.Reservations.FindOverlappingTx(ctx, tx, res.RoomID, res.CheckInDate, res.CheckOutDate, res.ID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to check availability"})
		}
		if len(conflicts) > 0 {
			return c.JSON(http.StatusConflict, echo.Map{
				"error":     "room is already booked for the requested dates",
				"conflicts": conflicts,
			})
		}
	}

	res.Status = target
	if req.Notes != "" {
		res.Notes = req.Notes
	}
	if err := h.Reservations.SetStatusTx(ctx, tx, res); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update status"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true

	if target == model.StatusConfirmed {
		guest, gErr := h.Guests.GetByID(ctx, res.GuestID, hotelID)
		room, rErr := h.Rooms.GetByID(ctx, res.RoomID, hotelID)
		if gErr == nil && rErr == nil {
			h.publishConfirmed(res, guest.FullName(), room.Number, userID)
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"reservation": res})
}

type checkInReq struct {
	Notes string `json:"notes"`
}

// CheckIn handles POST /v1/reservations/:id/check-in.  The guards are hard
// preconditions: the reservation must be confirmed, the stay must have
// started, and at least a partial payment must be on record.  The status
// change and the room flipping to occupied commit atomically.
func (h *ReservationHandler) CheckIn(c echo.Context) error {
	userID, hotelID, err := identity(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	resID, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	var req checkInReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
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
	now := time.Now().UTC()
	if err := res.CanCheckIn(now); err != nil {
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	}

	room, err := h.Rooms.GetForUpdateTx(ctx, tx, res.RoomID, hotelID)
	if err != nil {
		if err == repository.ErrRoomNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "room not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	res.Status = model.StatusCheckedIn
	res.ActualCheckIn = &now
	res.CheckedInBy = &userID
	res.CheckInNotes = req.Notes
	if err := h.Reservations.SetStatusTx(ctx, tx, res); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update status"})
	}
	if err := h.Rooms.UpdateStatusTx(ctx, tx, room.ID, model.RoomOccupied, room.CleaningStatus); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update room status"})
	}

	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true
	return c.JSON(http.StatusOK, echo.Map{"reservation": res})
}

type checkOutReq struct {
	Notes   string `json:"notes"`
	Charges []struct {
		Description string `json:"description"`
		AmountCents int64  `json:"amount_cents"`
	} `json:"charges"`
}

// CheckOut handles POST /v1/reservations/:id/check-out.  Any late charges
// in the body land on the ledger before the final recompute, the room flips
// to cleaning with a housekeeping work order auto-filed, and everything
// commits in one transaction.
func (h *ReservationHandler) CheckOut(c echo.Context) error {
	userID, hotelID, err := identity(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	resID, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	var req checkOutReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	for _, ch := range req.Charges {
		if ch.Description == "" || ch.AmountCents <= 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "each charge needs a description and a positive amount"})
		}
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
	if err := res.CanCheckOut(); err != nil {
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	}

	room, err := h.Rooms.GetForUpdateTx(ctx, tx, res.RoomID, hotelID)
	if err != nil {
		if err == repository.ErrRoomNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "room not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	for _, ch := range req.Charges {
		charge := &model.Charge{ReservationID: res.ID, Description: ch.Description, AmountCents: ch.AmountCents}
		if err := h.Reservations.AddChargeTx(ctx, tx, charge); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to add charge"})
		}
	}

	now := time.Now().UTC()
	res.Status = model.StatusCheckedOut
	res.ActualCheckOut = &now
	res.CheckedOutBy = &userID
	res.CheckOutNotes = req.Notes
	if err := h.Reservations.SetStatusTx(ctx, tx, res); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update status"})
	}
	if err := recomputeAmountsTx(ctx, tx, h.Reservations, h.Payments, res); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to recompute balance"})
	}

	if err := h.Rooms.UpdateStatusTx(ctx, tx, room.ID, model.RoomCleaning, model.CleaningDirty); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update room status"})
	}
	cleaning := &model.CleaningRequest{
		RoomID:      room.ID,
		RequestedBy: userID,
		Priority:    "normal",
		Notes:       "post check-out cleaning for reservation " + res.ReservationNumber,
	}
	if err := h.Rooms.CreateCleaningRequestTx(ctx, tx, cleaning); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to file cleaning request"})
	}

	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true
	return c.JSON(http.StatusOK, echo.Map{
		"reservation":       res,
		"balance_due_cents": res.RemainingBalance(),
		"cleaning_request":  cleaning,
	})
}

type cancelReq struct {
	Reason   string `json:"reason"`
	FeeCents int64  `json:"fee_cents"`
}

// Cancel handles POST /v1/reservations/:id/cancel.  Cancellation records
// the reason, an optional fee and the timestamp.  When the guest was
// already checked in, the room releases to cleaning rather than staying
// occupied.
func (h *ReservationHandler) Cancel(c echo.Context) error {
	userID, hotelID, err := identity(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	resID, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	var req cancelReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.Reason == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "reason is required"})
	}
	if req.FeeCents < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "fee_cents must be non-negative"})
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
	if err := res.CanCancel(); err != nil {
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	}
	wasCheckedIn := res.Status == model.StatusCheckedIn

	now := time.Now().UTC()
	res.Status = model.StatusCancelled
	res.CancelReason = req.Reason
	res.CancelFeeCents = req.FeeCents
	res.CancelledAt = &now
	if err := h.Reservations.SetStatusTx(ctx, tx, res); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update status"})
	}

	if wasCheckedIn {
		room, err := h.Rooms.GetForUpdateTx(ctx, tx, res.RoomID, hotelID)
		if err != nil {
			if err == repository.ErrRoomNotFound {
				return c.JSON(http.StatusNotFound, echo.Map{"error": "room not found"})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
		if err := h.Rooms.UpdateStatusTx(ctx, tx, room.ID, model.RoomCleaning, model.CleaningDirty); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update room status"})
		}
		cleaning := &model.CleaningRequest{
			RoomID:      room.ID,
			RequestedBy: userID,
			Priority:    "normal",
			Notes:       "cleaning after cancelled stay " + res.ReservationNumber,
		}
		if err := h.Rooms.CreateCleaningRequestTx(ctx, tx, cleaning); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to file cleaning request"})
		}
	}

	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true
	return c.JSON(http.StatusOK, echo.Map{"reservation": res})
}
