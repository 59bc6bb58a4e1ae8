package ports

import (
	"context"
	"time"

	"github.com/calchat/scheduling-system/internal/core/domain"
)

// SchedulingStore is the persistence boundary of the scheduling core. All
// time arguments and stored timestamps are naive UTC by convention: callers
// strip zone information before persisting and treat retrieved values as UTC.
//
// The store, not the core, is responsible for conflict freedom under
// concurrent requests: CommitAppointment and CommitReschedule re-check the
// overlap predicate and write atomically with respect to other commits for
// the same worker, returning domain.ErrSlotTaken when the slot was taken in
// between.
type SchedulingStore interface {
	// FindUser retrieves a booking user's profile by id.
	FindUser(ctx context.Context, userID string) (*domain.User, error)

	FindWorkerByName(ctx context.Context, name string) (*domain.Worker, error)
	FindWorkerByID(ctx context.Context, workerID string) (*domain.Worker, error)
	ListWorkerNames(ctx context.Context) ([]string, error)

	// CountOverlaps returns the number of non-terminal appointments for the
	// worker whose half-open interval intersects [start, end). When excludeID
	// is non-empty that appointment is removed from consideration.
	CountOverlaps(ctx context.Context, workerID string, start, end time.Time, excludeID string) (int64, error)

	// FindAppointment retrieves an appointment by id, scoped to the owning user.
	FindAppointment(ctx context.Context, appointmentID, userID string) (*domain.Appointment, error)

	// FindAppointmentNear returns the first non-cancelled appointment of the
	// user with the given worker whose start falls within [center-window,
	// center+window].
	FindAppointmentNear(ctx context.Context, userID, workerID string, center time.Time, window time.Duration) (*domain.Appointment, error)

	// CommitAppointment inserts a new appointment if its interval is still
	// free for the worker.
	CommitAppointment(ctx context.Context, appt *domain.Appointment) error

	// CommitReschedule updates start/end in place and marks the appointment
	// rescheduled, if the new interval is still free (the appointment's own
	// row is excluded from the overlap check).
	CommitReschedule(ctx context.Context, appointmentID, userID string, start, end time.Time) error

	// CancelAppointment flips the status to cancelled. The record is never
	// physically deleted.
	CancelAppointment(ctx context.Context, appointmentID, userID string) error

	// ListUserAppointments returns the user's non-cancelled appointments,
	// most recent start first.
	ListUserAppointments(ctx context.Context, userID string) ([]*domain.Appointment, error)
}
