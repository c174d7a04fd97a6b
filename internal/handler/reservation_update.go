package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hotelhq/room-reservation/internal/model"
	"github.com/hotelhq/room-reservation/internal/repository"
)

type updateReservationReq struct {
	CheckInDate     *string `json:"check_in_date"`
	CheckOutDate    *string `json:"check_out_date"`
	Adults          *int    `json:"adults"`
	Children        *int    `json:"children"`
	Infants         *int    `json:"infants"`
	RoomRateCents   *int64  `json:"room_rate_cents"`
	Source          *string `json:"source"`
	Notes           *string `json:"notes"`
	SpecialRequests *string `json:"special_requests"`
}

// Update handles PUT /v1/reservations/:id.  Partial updates to the stay
// fields; terminal reservations are immutable.  When the dates change the
// availability check re-runs with this reservation excluded, and when the
// occupancy changes the capacity check re-runs, both under the room lock.
// Any change that affects the total triggers a ledger recompute in the same
// transaction.
func (h *ReservationHandler) Update(c echo.Context) error {
	_, hotelID, err := identity(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	resID, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	var req updateReservationReq
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
	if res.IsTerminal() || res.Status == model.StatusNoShow {
		return c.JSON(http.StatusConflict, echo.Map{
			"error": "reservation in status " + string(res.Status) + " cannot be modified",
		})
	}

	datesChanged := false
	if req.CheckInDate != nil {
		d, err := parseDate(*req.CheckInDate)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid check_in_date"})
		}
		res.CheckInDate = d
		datesChanged = true
	}
	if req.CheckOutDate != nil {
		d, err := parseDate(*req.CheckOutDate)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid check_out_date"})
		}
		res.CheckOutDate = d
		datesChanged = true
	}
	if datesChanged {
		if err := model.ValidateStay(res.CheckInDate, res.CheckOutDate); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}
	}
	occupancyChanged := false
	if req.Adults != nil {
		if *req.Adults < 1 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "at least one adult is required"})
		}
		res.Adults = *req.Adults
		occupancyChanged = true
	}
	if req.Children != nil {
		res.Children = *req.Children
		occupancyChanged = true
	}
	if req.Infants != nil {
		res.Infants = *req.Infants
		occupancyChanged = true
	}
	if req.RoomRateCents != nil {
		if *req.RoomRateCents < 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "room_rate_cents must be non-negative"})
		}
		res.RoomRateCents = *req.RoomRateCents
	}
	if req.Source != nil {
		res.Source = *req.Source
	}
	if req.Notes != nil {
		res.Notes = *req.Notes
	}
	if req.SpecialRequests != nil {
		res.SpecialRequests = *req.SpecialRequests
	}

	if datesChanged || occupancyChanged {
		room, err := h.Rooms.GetForUpdateTx(ctx, tx, res.RoomID, hotelID)
		if err != nil {
			if err == repository.ErrRoomNotFound {
				return c.JSON(http.StatusNotFound, echo.Map{"error": "room not found"})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
		if occ := res.Occupancy(); occ > room.MaxOccupancy {
			capErr := &model.CapacityError{MaxOccupancy: room.MaxOccupancy, Requested: occ}
			return c.JSON(http.StatusBadRequest, echo.Map{"error": capErr.Error()})
		}
		if datesChanged {
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
	}

	if err := h.Reservations.UpdateStayTx(ctx, tx, res); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update reservation"})
	}
	if err := recomputeAmountsTx(ctx, tx, h.Reservations, h.Payments, res); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to recompute balance"})
	}

	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true
	return c.JSON(http.StatusOK, echo.Map{"reservation": res})
}
