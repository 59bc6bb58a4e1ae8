package ports

import (
	"context"
	"time"

	"github.com/calchat/scheduling-system/internal/core/domain"
)

// Outcome statuses carried by ScheduleOutcome. A conflict is a normal result
// variant, not an error: it carries alternative slots instead.
const (
	OutcomeScheduled   = "scheduled"
	OutcomeConflict    = "conflict"
	OutcomeCancelled   = "cancelled"
	OutcomeRescheduled = "rescheduled"
	OutcomeAvailable   = "available"
	OutcomeUnavailable = "unavailable"
)

// ScheduleOutcome is the structured result of handling one parsed request.
// Exactly the fields relevant to Status are populated.
type ScheduleOutcome struct {
	Status        string    `json:"status"`
	Message       string    `json:"message,omitempty"`
	AppointmentID string    `json:"appointment_id,omitempty"`
	WorkerID      string    `json:"worker_id,omitempty"`
	WorkerName    string    `json:"worker_name,omitempty"`
	StartTime     time.Time `json:"start_time,omitempty"`
	EndTime       time.Time `json:"end_time,omitempty"`
	CancelledAt   time.Time `json:"cancelled_at,omitempty"`
	// Alternatives are candidate start times rendered in the worker's local
	// zone (RFC 3339), in order of discovery. At most three.
	Alternatives []string `json:"alternatives,omitempty"`
}

// SchedulingService is the appointment lifecycle manager: it validates a
// parsed request, applies the scheduling rules against the store, and returns
// a structured outcome.
type SchedulingService interface {
	// Handle dispatches on the request intent. The request must already have
	// passed ParsedRequest.Validate.
	Handle(ctx context.Context, req *domain.ParsedRequest) (*ScheduleOutcome, error)

	Create(ctx context.Context, req *domain.ParsedRequest) (*ScheduleOutcome, error)
	Cancel(ctx context.Context, req *domain.ParsedRequest) (*ScheduleOutcome, error)
	Reschedule(ctx context.Context, req *domain.ParsedRequest) (*ScheduleOutcome, error)
	GetAvailability(ctx context.Context, req *domain.ParsedRequest) (*ScheduleOutcome, error)

	// ListUserAppointments returns the user's upcoming non-cancelled
	// appointments for the read-only listing endpoint.
	ListUserAppointments(ctx context.Context, userID string) ([]*domain.Appointment, error)
}
