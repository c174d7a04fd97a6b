// Package router wires the HTTP surface: the public health and login
// endpoints, and the protected /v1 group every staff endpoint hangs off.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/hotelhq/room-reservation/internal/handler"
	"github.com/hotelhq/room-reservation/internal/middleware"
	"github.com/hotelhq/room-reservation/internal/model"
)

// RegisterRoutes registers routes that require no authentication.
// Currently that is only the health check used by load balancers.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the login endpoint under /v1/auth.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler) {
	g := e.Group("/v1/auth")
	g.POST("/login", a.Login)
}

// Protected creates the authenticated /v1 group.  Every route registered
// on it passes JWT validation and the role gate; both staff roles may hit
// every endpoint — finer authorization is out of scope for this service.
// Extra middleware (rate limiting, response caching) is appended in order.
func Protected(e *echo.Echo, jwtSecret string, a *handler.AuthHandler, extra ...echo.MiddlewareFunc) *echo.Group {
	g := e.Group("/v1")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole(model.RoleManager, model.RoleReception))
	for _, m := range extra {
		g.Use(m)
	}
	g.GET("/me", a.Me)
	return g
}
