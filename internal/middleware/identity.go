package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

const (
	// UserContextKey is the echo context key holding the requesting user ID.
	UserContextKey = "user_id"

	// UserIDHeader may carry the user ID instead of the userId query parameter.
	UserIDHeader = "X-User-ID"
)

// RequireUser reads the requesting user from the userId query parameter or the
// X-User-ID header and rejects requests that carry neither. The ID is trusted
// as given; there is no authentication in front of it.
func RequireUser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID := c.QueryParam("userId")
		if userID == "" {
			userID = c.Request().Header.Get(UserIDHeader)
		}
		if userID == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "userId is required")
		}

		c.Set(UserContextKey, userID)
		return next(c)
	}
}

// UserID returns the user stored by RequireUser, or "".
func UserID(c echo.Context) string {
	id, _ := c.Get(UserContextKey).(string)
	return id
}
