package router

import (
	"github.com/labstack/echo/v4"

	"github.com/hotelhq/room-reservation/internal/handler"
)

// RegisterPayments mounts the payment read surface and the refund path.
func RegisterPayments(g *echo.Group, h *handler.PaymentHandler) {
	g.GET("/payments", h.List)
	g.GET("/payments/stats", h.Stats)
	g.GET("/payments/:id", h.Get)
	g.GET("/payments/:id/audit", h.Audit)
	g.POST("/payments/:id/refund", h.Refund)
}
