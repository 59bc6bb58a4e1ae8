package domain

import (
	"errors"
	"fmt"
	"time"
)

var ErrMalformedRequest = errors.New("malformed request")

// Intent identifies what the user asked for. It is a closed set: the
// lifecycle manager dispatches on it with an exhaustive switch, so adding an
// intent is a compile-time-checked change.
type Intent string

const (
	IntentCreate       Intent = "create_appointment"
	IntentCancel       Intent = "cancel_appointment"
	IntentReschedule   Intent = "reschedule_appointment"
	IntentAvailability Intent = "get_availability"
)

// Known reports whether the intent is one of the supported values.
func (i Intent) Known() bool {
	switch i {
	case IntentCreate, IntentCancel, IntentReschedule, IntentAvailability:
		return true
	}
	return false
}

// ParsedRequest is the structured form of a natural-language request, as
// produced by the parsing oracle. LocalTime is a naive wall-clock timestamp
// in the target worker's zone; DurationMinutes of zero means unspecified.
type ParsedRequest struct {
	Intent          Intent
	UserID          string
	WorkerName      string
	LocalTime       time.Time
	DurationMinutes int
	AppointmentID   string
}

// Validate enforces the intent-dependent field requirements before any store
// access. All violations are reported as ErrMalformedRequest.
func (r *ParsedRequest) Validate() error {
	if r.UserID == "" {
		return fmt.Errorf("%w: user_id is required", ErrMalformedRequest)
	}
	if r.DurationMinutes != 0 && (r.DurationMinutes < 15 || r.DurationMinutes > 240) {
		return fmt.Errorf("%w: duration must be between 15 and 240 minutes", ErrMalformedRequest)
	}

	switch r.Intent {
	case IntentCreate:
		if r.WorkerName == "" {
			return fmt.Errorf("%w: worker_name is required for creating appointments", ErrMalformedRequest)
		}
		if r.LocalTime.IsZero() {
			return fmt.Errorf("%w: datetime is required for creating appointments", ErrMalformedRequest)
		}
	case IntentCancel:
		// A worker name alone is enough: the fuzzy search anchors on "now"
		// when no datetime is given.
		if r.AppointmentID == "" && r.WorkerName == "" {
			return fmt.Errorf("%w: either appointment_id or worker_name is required for cancelling", ErrMalformedRequest)
		}
	case IntentReschedule:
		if r.LocalTime.IsZero() {
			return fmt.Errorf("%w: datetime is required for rescheduling", ErrMalformedRequest)
		}
		if r.AppointmentID == "" && r.WorkerName == "" {
			return fmt.Errorf("%w: either appointment_id or worker_name is required for rescheduling", ErrMalformedRequest)
		}
	case IntentAvailability:
		if r.WorkerName == "" {
			return fmt.Errorf("%w: worker_name is required for availability checks", ErrMalformedRequest)
		}
		if r.LocalTime.IsZero() {
			return fmt.Errorf("%w: datetime is required for availability checks", ErrMalformedRequest)
		}
	default:
		return fmt.Errorf("%w: unknown intent %q", ErrMalformedRequest, r.Intent)
	}
	return nil
}

// Duration returns the requested duration, falling back to the default.
func (r *ParsedRequest) Duration() time.Duration {
	minutes := r.DurationMinutes
	if minutes == 0 {
		minutes = DefaultDurationMinutes
	}
	return time.Duration(minutes) * time.Minute
}
