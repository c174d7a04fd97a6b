package router

import (
	"github.com/labstack/echo/v4"

	"github.com/hotelhq/room-reservation/internal/handler"
)

// RegisterRooms mounts the availability query and the housekeeping flow.
func RegisterRooms(g *echo.Group, h *handler.RoomHandler) {
	g.GET("/rooms/:id/availability", h.Availability)
	g.POST("/rooms/:id/cleaning", h.RequestCleaning)
	g.POST("/rooms/:id/cleaning/complete", h.CompleteCleaning)
}
