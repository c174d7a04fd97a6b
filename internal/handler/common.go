package handler

import (
	"errors"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
)

// getUserID extracts the authenticated staff user's ID from the context.
func getUserID(c echo.Context) (uint64, error) {
	switch t := c.Get("user_id").(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// getHotelID extracts the tenant claim.  Every query downstream is scoped
// by this value, so a missing claim is a hard authentication failure.
func getHotelID(c echo.Context) (uint64, error) {
	switch t := c.Get("hotel_id").(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid hotel_id in context")
}

// identity bundles the two claims nearly every handler needs.
func identity(c echo.Context) (userID, hotelID uint64, err error) {
	if userID, err = getUserID(c); err != nil {
		return 0, 0, err
	}
	if hotelID, err = getHotelID(c); err != nil {
		return 0, 0, err
	}
	return userID, hotelID, nil
}

// parseID parses a positive numeric path parameter.
func parseID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid " + name)
	}
	return id, nil
}

// parseDate parses a calendar date in YYYY-MM-DD form as UTC midnight.
func parseDate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}

// parseDateQuery parses an optional date query parameter; the zero time
// means the parameter was absent.
func parseDateQuery(c echo.Context, name string) (time.Time, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return time.Time{}, nil
	}
	return parseDate(raw)
}

// pageParams reads the ?page and ?per_page query parameters with defaults.
func pageParams(c echo.Context) (page, perPage int) {
	page, _ = strconv.Atoi(c.QueryParam("page"))
	perPage, _ = strconv.Atoi(c.QueryParam("per_page"))
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 || perPage > 100 {
		perPage = 20
	}
	return page, perPage
}
