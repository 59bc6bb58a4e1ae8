package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/calchat/scheduling-system/internal/core/domain"
	"github.com/calchat/scheduling-system/internal/core/schedule"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error string `json:"error"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain errors to their appropriate HTTP status codes.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders a consistent JSON envelope: {"error": "<message>"}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, msg := resolveError(err, log, c)
		_ = c.JSON(code, errorResponse{Error: msg})
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, string) {
	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, fmt.Sprintf("%v", he.Message)
	}

	// Known domain errors → deterministic HTTP codes.
	switch {
	case errors.Is(err, domain.ErrMalformedRequest):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrMissingAppointmentID):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrWorkerNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound, "user not found"
	case errors.Is(err, domain.ErrAppointmentNotFound):
		return http.StatusNotFound, "appointment not found or access denied"
	case errors.Is(err, domain.ErrPastAppointment):
		return http.StatusUnprocessableEntity, "cannot create appointments in the past"
	case errors.Is(err, domain.ErrAppointmentTooLong):
		return http.StatusUnprocessableEntity, "appointment exceeds the 4 hour maximum"
	case errors.Is(err, schedule.ErrInvalidTimeZone):
		return http.StatusUnprocessableEntity, "unknown time zone"
	case errors.Is(err, schedule.ErrAmbiguousLocalTime):
		return http.StatusUnprocessableEntity, "requested local time is ambiguous or does not exist"
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid credentials"
	case errors.Is(err, domain.ErrAccountNotFound):
		return http.StatusNotFound, "account not found"
	case errors.Is(err, domain.ErrAccountExists):
		return http.StatusConflict, "account already exists"
	}

	// Unexpected error (store unavailable, oracle transport failure): log
	// the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, "internal server error"
}
