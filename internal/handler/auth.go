package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hotelhq/room-reservation/internal/config"
	"github.com/hotelhq/room-reservation/internal/repository"
	"github.com/hotelhq/room-reservation/internal/utils"
)

// AuthHandler bundles dependencies for the staff login endpoint.
type AuthHandler struct {
	Cfg   config.Config
	Users *repository.UserRepo
}

func NewAuthHandler(cfg config.Config, u *repository.UserRepo) *AuthHandler {
	if u == nil {
		panic("nil repository passed to NewAuthHandler")
	}
	return &AuthHandler{Cfg: cfg, Users: u}
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

type userPart struct {
	ID       uint64 `json:"id"`
	HotelID  uint64 `json:"hotel_id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

// Login handles POST /v1/auth/login.  It verifies the staff member's
// credentials and issues an access token carrying the user, hotel and role
// claims.  Unknown emails and bad passwords produce the same 401 so the
// endpoint cannot be used to enumerate accounts.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if err == repository.ErrUserNotFound {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.HotelID, u.Role, h.Cfg.AccessTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"user":   userPart{ID: u.ID, HotelID: u.HotelID, Email: u.Email, FullName: u.FullName, Role: u.Role},
		"access": tokenPart{Token: access.Token, Expires: access.Exp},
	})
}

// Me handles GET /v1/me and echoes the authenticated identity claims.
func (h *AuthHandler) Me(c echo.Context) error {
	userID, hotelID, err := identity(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	role, _ := c.Get("role").(string)
	return c.JSON(http.StatusOK, echo.Map{
		"user_id":  userID,
		"hotel_id": hotelID,
		"role":     role,
	})
}
