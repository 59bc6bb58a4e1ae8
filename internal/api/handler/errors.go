package handler

import (
	"errors"

	"github.com/calchat/scheduling-system/internal/core/domain"
	"github.com/calchat/scheduling-system/internal/core/schedule"
)

// errorReason maps a handling failure to a short metric label.
func errorReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrMalformedRequest):
		return "malformed_request"
	case errors.Is(err, domain.ErrWorkerNotFound):
		return "worker_not_found"
	case errors.Is(err, domain.ErrUserNotFound):
		return "user_not_found"
	case errors.Is(err, domain.ErrAppointmentNotFound):
		return "appointment_not_found"
	case errors.Is(err, domain.ErrMissingAppointmentID):
		return "missing_appointment_id"
	case errors.Is(err, domain.ErrPastAppointment):
		return "past_appointment"
	case errors.Is(err, domain.ErrAppointmentTooLong):
		return "appointment_too_long"
	case errors.Is(err, schedule.ErrInvalidTimeZone):
		return "invalid_time_zone"
	case errors.Is(err, schedule.ErrAmbiguousLocalTime):
		return "ambiguous_local_time"
	default:
		return "store_error"
	}
}
