package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/hotelhq/room-reservation/internal/model"
	"github.com/hotelhq/room-reservation/internal/repository"
)

// List handles GET /v1/reservations with optional status, room_id,
// guest_id, date_from and date_to filters plus pagination.
func (h *ReservationHandler) List(c echo.Context) error {
	_, hotelID, err := identity(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var f repository.ListFilter
	if s := c.QueryParam("status"); s != "" {
		if !model.ValidStatus(model.Status(s)) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown status " + s})
		}
		f.Status = model.Status(s)
	}
	if v := c.QueryParam("room_id"); v != "" {
		f.RoomID, _ = strconv.ParseUint(v, 10, 64)
	}
	if v := c.QueryParam("guest_id"); v != "" {
		f.GuestID, _ = strconv.ParseUint(v, 10, 64)
	}
	if f.DateFrom, err = parseDateQuery(c, "date_from"); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid date_from"})
	}
	if f.DateTo, err = parseDateQuery(c, "date_to"); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid date_to"})
	}
	f.Page, f.PerPage = pageParams(c)

	items, total, err := h.Reservations.List(c.Request().Context(), hotelID, f)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load reservations"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"items":    items,
		"total":    total,
		"page":     f.Page,
		"per_page": f.PerPage,
	})
}

// Get handles GET /v1/reservations/:id.
func (h *ReservationHandler) Get(c echo.Context) error {
	_, hotelID, err := identity(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	resID, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	res, err := h.Reservations.GetByID(c.Request().Context(), resID, hotelID)
	if err != nil {
		if err == repository.ErrReservationNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch reservation"})
	}
	return c.JSON(http.StatusOK, echo.Map{"reservation": res})
}

// Stats handles GET /v1/reservations/stats: a per-status breakdown over an
// optional check-in date range plus today's arrivals, departures and
// current occupancy.
func (h *ReservationHandler) Stats(c echo.Context) error {
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

	breakdown, arrivals, departures, occupancy, err := h.Reservations.StatsSummary(c.Request().Context(), hotelID, from, to)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load stats"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"by_status":          breakdown,
		"arrivals_today":     arrivals,
		"departures_today":   departures,
		"currently_occupied": occupancy,
	})
}
