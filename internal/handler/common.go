package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/slot-reservation/internal/repository"
)

// identityFromContext returns the requester identity used for ownership
// checks.  The JWT middleware stores the token's email claim; the email is
// preferred because booking contacts are keyed by address, with the
// numeric subject as fallback.  An empty string means unauthenticated.
func identityFromContext(c echo.Context) string {
	if v, ok := c.Get("email").(string); ok && v != "" {
		return v
	}
	switch t := c.Get("user_id").(type) {
	case string:
		return t
	case float64:
		return strconv.FormatUint(uint64(t), 10)
	case uint64:
		return strconv.FormatUint(t, 10)
	case int64:
		return strconv.FormatInt(t, 10)
	}
	return ""
}

// pageParams reads ?page=&limit=&sort= with the original defaults
// (-created_at means descending creation time).
func pageParams(c echo.Context) (page, limit int, sortBy string, sortDesc bool) {
	page, _ = strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	limit, _ = strconv.Atoi(c.QueryParam("limit"))
	if limit < 1 || limit > 100 {
		limit = 20
	}
	raw := strings.TrimSpace(c.QueryParam("sort"))
	if raw == "" {
		raw = "-created_at"
	}
	sortDesc = strings.HasPrefix(raw, "-")
	sortBy = strings.TrimPrefix(raw, "-")
	return page, limit, sortBy, sortDesc
}

// lifecycleError translates resolver errors into the HTTP responses shared
// by every confirmation/cancellation entry point.  currentStatus may be
// empty when no record was loaded.
func lifecycleError(c echo.Context, err error, currentStatus string) error {
	switch {
	case errors.Is(err, repository.ErrReservationNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not_found_or_forbidden"})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not_found_or_forbidden"})
	case errors.Is(err, repository.ErrConflict):
		resp := echo.Map{"error": "operation not valid in current status"}
		if currentStatus != "" {
			resp["status"] = currentStatus
		}
		return c.JSON(http.StatusConflict, resp)
	case errors.Is(err, repository.ErrDataIntegrity):
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "data integrity error"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
}

// clip bounds free-text input without failing the request.
func clip(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}
