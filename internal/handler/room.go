package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hotelhq/room-reservation/internal/model"
	"github.com/hotelhq/room-reservation/internal/repository"
)

// RoomHandler exposes the read-only availability query and the
// housekeeping flow.  Room inventory management itself lives upstream;
// this service only consumes the directory and mutates operational state.
type RoomHandler struct {
	Rooms        *repository.RoomRepo
	Reservations *repository.ReservationRepo
}

func NewRoomHandler(rooms *repository.RoomRepo, res *repository.ReservationRepo) *RoomHandler {
	if rooms == nil || res == nil {
		panic("nil repository passed to NewRoomHandler")
	}
	return &RoomHandler{Rooms: rooms, Reservations: res}
}

// Availability handles GET /v1/rooms/:id/availability.  It is a read-only
// dry run of the admission check: no locks are taken, so the answer is
// advisory and the booking transaction re-validates it.
func (h *RoomHandler) Availability(c echo.Context) error {
	_, hotelID, err := identity(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	roomID, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid room id"})
	}
	checkIn, err := parseDate(c.QueryParam("check_in"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid check_in"})
	}
	checkOut, err := parseDate(c.QueryParam("check_out"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid check_out"})
	}
	if err := model.ValidateStay(checkIn, checkOut); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	ctx := c.Request().Context()
	room, err := h.Rooms.GetByID(ctx, roomID, hotelID)
	if err != nil {
		if err == repository.ErrRoomNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "room not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	conflicts, err := h.Reservations.FindOverlapping(ctx, roomID, checkIn, checkOut, 0)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to check availability"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"available": room.Bookable() && len(conflicts) == 0,
		"bookable":  room.Bookable(),
		"conflicts": conflicts,
	})
}

type cleaningReq struct {
	Priority string `json:"priority"`
	Notes    string `json:"notes"`
}

// RequestCleaning handles POST /v1/rooms/:id/cleaning and files a
// housekeeping work order.  An available room moves to cleaning; an
// occupied room keeps its operational status and only the cleaning flag
// changes.
func (h *RoomHandler) RequestCleaning(c echo.Context) error {
	userID, hotelID, err := identity(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	roomID, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid room id"})
	}
	var req cleaningReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	switch req.Priority {
	case "":
		req.Priority = "normal"
	case "low", "normal", "high":
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "priority must be low, normal or high"})
	}

	ctx := c.Request().Context()
	tx, err := h.Rooms.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	room, err := h.Rooms.GetForUpdateTx(ctx, tx, roomID, hotelID)
	if err != nil {
		if err == repository.ErrRoomNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "room not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	cleaning := &model.CleaningRequest{
		RoomID:      room.ID,
		RequestedBy: userID,
		Priority:    req.Priority,
		Notes:       req.Notes,
	}
	if err := h.Rooms.CreateCleaningRequestTx(ctx, tx, cleaning); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to file cleaning request"})
	}
	status := room.Status
	if status == model.RoomAvailable {
		status = model.RoomCleaning
	}
	if err := h.Rooms.UpdateStatusTx(ctx, tx, room.ID, status, model.CleaningDirty); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update room status"})
	}

	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true
	return c.JSON(http.StatusCreated, echo.Map{"cleaning_request": cleaning})
}

// CompleteCleaning handles POST /v1/rooms/:id/cleaning/complete.  The
// oldest open work order closes and the room returns to service unless
// maintenance is blocking it.
func (h *RoomHandler) CompleteCleaning(c echo.Context) error {
	userID, hotelID, err := identity(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	roomID, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid room id"})
	}
	if err := h.Rooms.CompleteCleaning(c.Request().Context(), roomID, hotelID, userID); err != nil {
		if err == repository.ErrRoomNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "room not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to complete cleaning"})
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "completed"})
}
