package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/nfrund/campus/internal/domain"
	"github.com/nfrund/campus/internal/middleware"
)

// statusFor maps domain errors to an HTTP status and error code.
func statusFor(err error) (int, string, bool) {
	switch {
	case errors.Is(err, domain.ErrSenderNotFound):
		return http.StatusNotFound, "sender_not_found", true
	case errors.Is(err, domain.ErrCommunityNotFound):
		return http.StatusNotFound, "community_not_found", true
	case errors.Is(err, domain.ErrExamNotFound):
		return http.StatusNotFound, "exam_not_found", true
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not_found", true
	case errors.Is(err, domain.ErrInvalidMessage):
		return http.StatusBadRequest, "invalid_message", true
	case errors.Is(err, domain.ErrExamAlreadyTaken):
		return http.StatusConflict, "already_taken", true
	case errors.Is(err, domain.ErrExamNotPublished):
		return http.StatusUnprocessableEntity, "not_published", true
	case errors.Is(err, domain.ErrPersistence):
		return http.StatusBadGateway, "persistence_error", true
	}
	return 0, "", false
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that renders domain
// errors as ErrorResponse JSON and leaves everything else to echo's default.
func NewHTTPErrorHandler(e *echo.Echo) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, code, ok := statusFor(err)
		if !ok {
			e.DefaultHTTPErrorHandler(err, c)
			return
		}

		logger := middleware.FromContext(c.Request().Context())
		if status >= http.StatusInternalServerError {
			logger.Error("Request failed", "path", c.Path(), "error", err)
		} else {
			logger.Debug("Request rejected", "path", c.Path(), "code", code, "error", err)
		}

		message := err.Error()
		if status == http.StatusBadGateway {
			message = "storage is unavailable"
		}
		if werr := c.JSON(status, ErrorResponse{Code: code, Message: message}); werr != nil {
			logger.Error("Failed to write error response", "error", werr)
		}
	}
}

// IsDomainError reports whether err maps to a known API error response.
func IsDomainError(err error) bool {
	_, _, ok := statusFor(err)
	return ok
}
