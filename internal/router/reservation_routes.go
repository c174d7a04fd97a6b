package router

import (
	"github.com/labstack/echo/v4"

	"github.com/hotelhq/room-reservation/internal/handler"
)

// RegisterReservations mounts the reservation surface on the protected
// group.  The stats route is registered before the :id routes so Echo
// does not swallow it as a path parameter.
func RegisterReservations(g *echo.Group, h *handler.ReservationHandler) {
	g.POST("/reservations", h.Create)
	g.GET("/reservations", h.List)
	g.GET("/reservations/stats", h.Stats)
	g.GET("/reservations/:id", h.Get)
	g.PUT("/reservations/:id", h.Update)
	g.PUT("/reservations/:id/status", h.UpdateStatus)
	g.POST("/reservations/:id/check-in", h.CheckIn)
	g.POST("/reservations/:id/check-out", h.CheckOut)
	g.POST("/reservations/:id/cancel", h.Cancel)
	g.POST("/reservations/:id/payments", h.AddPayment)
	g.POST("/reservations/:id/charges", h.AddCharge)
	g.POST("/reservations/:id/services", h.AddService)
	g.POST("/reservations/:id/discounts", h.ApplyDiscount)
}
