package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/hotelhq/room-reservation/internal/utils"
)

const testSecret = "test-secret"

func runProtected(t *testing.T, authHeader string, roles ...string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := func(c echo.Context) error { return c.String(http.StatusOK, "ok") }
	mw := JWTAuth(testSecret)(RequireRole(roles...)(handler))
	if err := mw(c); err != nil {
		t.Fatalf("middleware chain returned error: %v", err)
	}
	return rec
}

func TestJWTAuthMissingToken(t *testing.T) {
	rec := runProtected(t, "", "MANAGER")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestJWTAuthBadToken(t *testing.T) {
	rec := runProtected(t, "Bearer not-a-token", "MANAGER")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestJWTAuthWrongSecret(t *testing.T) {
	tok, err := utils.NewAccessToken("another-secret", 1, 1, "MANAGER", 15)
	if err != nil {
		t.Fatal(err)
	}
	rec := runProtected(t, "Bearer "+tok.Token, "MANAGER")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestJWTAuthValidTokenAndRole(t *testing.T) {
	tok, err := utils.NewAccessToken(testSecret, 42, 3, "RECEPTION", 15)
	if err != nil {
		t.Fatal(err)
	}
	rec := runProtected(t, "Bearer "+tok.Token, "MANAGER", "RECEPTION")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200; body=%s", rec.Code, rec.Body.String())
	}
}

func TestRequireRoleRejectsWrongRole(t *testing.T) {
	tok, err := utils.NewAccessToken(testSecret, 42, 3, "RECEPTION", 15)
	if err != nil {
		t.Fatal(err)
	}
	rec := runProtected(t, "Bearer "+tok.Token, "MANAGER")
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}
