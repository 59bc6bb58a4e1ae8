package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/calchat/scheduling-system/internal/core/domain"
	"github.com/calchat/scheduling-system/internal/core/ports"
	"github.com/calchat/scheduling-system/internal/core/schedule"
)

// SchedulingService is the appointment lifecycle manager. It holds no shared
// mutable state: every request runs independently against the store, and
// conflict freedom under concurrency is enforced by the store's commit
// methods (see ports.SchedulingStore).
type SchedulingService struct {
	store ports.SchedulingStore
	log   zerolog.Logger
	now   func() time.Time
}

func NewSchedulingService(store ports.SchedulingStore, log zerolog.Logger) *SchedulingService {
	return &SchedulingService{store: store, log: log, now: time.Now}
}

// Handle dispatches a validated parsed request by intent. The switch is
// exhaustive over domain.Intent; an unknown intent can only reach here if
// validation was skipped.
func (s *SchedulingService) Handle(ctx context.Context, req *domain.ParsedRequest) (*ports.ScheduleOutcome, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	switch req.Intent {
	case domain.IntentCreate:
		return s.Create(ctx, req)
	case domain.IntentCancel:
		return s.Cancel(ctx, req)
	case domain.IntentReschedule:
		return s.Reschedule(ctx, req)
	case domain.IntentAvailability:
		return s.GetAvailability(ctx, req)
	default:
		return nil, fmt.Errorf("%w: unknown intent %q", domain.ErrMalformedRequest, req.Intent)
	}
}

// Create books a new appointment, or returns a conflict outcome carrying up
// to three alternative slots when the requested interval is taken.
func (s *SchedulingService) Create(ctx context.Context, req *domain.ParsedRequest) (*ports.ScheduleOutcome, error) {
	// Appointment records reference the user; refuse to book for unknown ones.
	if _, err := s.store.FindUser(ctx, req.UserID); err != nil {
		return nil, err
	}

	worker, err := s.resolveWorker(ctx, req.WorkerName)
	if err != nil {
		return nil, err
	}

	start, err := schedule.ToUTC(req.LocalTime, worker.Timezone)
	if err != nil {
		return nil, err
	}
	end := start.Add(req.Duration())

	now := s.now().UTC()
	if start.Before(now) {
		return nil, domain.ErrPastAppointment
	}
	if end.Sub(start) > domain.MaxAppointmentSpan {
		return nil, domain.ErrAppointmentTooLong
	}

	free, err := s.isAvailable(ctx, worker.WorkerID, start, end, "")
	if err != nil {
		return nil, err
	}
	if !free {
		return s.conflictOutcome(ctx, worker, start, req.Duration(), "requested time unavailable"), nil
	}

	appt := &domain.Appointment{
		AppointmentID: domain.NewAppointmentID(start, worker.WorkerID),
		UserID:        req.UserID,
		WorkerID:      worker.WorkerID,
		StartTime:     start,
		EndTime:       end,
		Status:        domain.StatusScheduled,
		CreatedAt:     now,
	}
	if err := appt.Validate(); err != nil {
		return nil, err
	}

	if err := s.store.CommitAppointment(ctx, appt); err != nil {
		// Lost the race between the availability check and the commit:
		// another request took the slot. Same outcome as a plain conflict.
		if errors.Is(err, domain.ErrSlotTaken) {
			s.log.Info().Str("worker_id", worker.WorkerID).Time("start", start).Msg("slot taken during commit")
			return s.conflictOutcome(ctx, worker, start, req.Duration(), "requested time unavailable"), nil
		}
		s.log.Error().Err(err).Str("worker_id", worker.WorkerID).Msg("failed to create appointment")
		return nil, err
	}

	s.log.Info().
		Str("appointment_id", appt.AppointmentID).
		Str("user_id", req.UserID).
		Str("worker_id", worker.WorkerID).
		Time("start", start).
		Msg("appointment created")

	return &ports.ScheduleOutcome{
		Status:        ports.OutcomeScheduled,
		AppointmentID: appt.AppointmentID,
		WorkerID:      worker.WorkerID,
		WorkerName:    worker.Name,
		StartTime:     start,
		EndTime:       end,
	}, nil
}

// Cancel locates the target appointment by id, or by a fuzzy match on
// (user, worker, local time), and flips it to cancelled.
func (s *SchedulingService) Cancel(ctx context.Context, req *domain.ParsedRequest) (*ports.ScheduleOutcome, error) {
	existing, err := s.locateForCancel(ctx, req)
	if err != nil {
		return nil, err
	}

	if !existing.Status.CanTransitionTo(domain.StatusCancelled) {
		// Terminal appointments behave as if filtered out of the search.
		return nil, domain.ErrAppointmentNotFound
	}

	if err := s.store.CancelAppointment(ctx, existing.AppointmentID, req.UserID); err != nil {
		s.log.Error().Err(err).Str("appointment_id", existing.AppointmentID).Msg("failed to cancel appointment")
		return nil, err
	}

	cancelledAt := s.now().UTC()
	s.log.Info().
		Str("appointment_id", existing.AppointmentID).
		Str("user_id", req.UserID).
		Msg("appointment cancelled")

	return &ports.ScheduleOutcome{
		Status:        ports.OutcomeCancelled,
		AppointmentID: existing.AppointmentID,
		WorkerID:      existing.WorkerID,
		CancelledAt:   cancelledAt,
	}, nil
}

// Reschedule moves an existing appointment to a new interval, mutating the
// record in place and marking it rescheduled.
func (s *SchedulingService) Reschedule(ctx context.Context, req *domain.ParsedRequest) (*ports.ScheduleOutcome, error) {
	if req.AppointmentID == "" {
		return nil, domain.ErrMissingAppointmentID
	}

	existing, err := s.store.FindAppointment(ctx, req.AppointmentID, req.UserID)
	if err != nil {
		return nil, err
	}
	if !existing.Status.CanTransitionTo(domain.StatusRescheduled) {
		return nil, domain.ErrAppointmentNotFound
	}

	worker, err := s.store.FindWorkerByID(ctx, existing.WorkerID)
	if err != nil {
		return nil, err
	}

	newStart, err := schedule.ToUTC(req.LocalTime, worker.Timezone)
	if err != nil {
		return nil, err
	}
	newEnd := newStart.Add(req.Duration())

	if newStart.Before(s.now().UTC()) {
		return nil, domain.ErrPastAppointment
	}
	if newEnd.Sub(newStart) > domain.MaxAppointmentSpan {
		return nil, domain.ErrAppointmentTooLong
	}

	// The appointment must not conflict with itself: exclude its own id.
	free, err := s.isAvailable(ctx, worker.WorkerID, newStart, newEnd, existing.AppointmentID)
	if err != nil {
		return nil, err
	}
	if !free {
		return s.conflictOutcome(ctx, worker, newStart, req.Duration(), "new time unavailable"), nil
	}

	if err := s.store.CommitReschedule(ctx, existing.AppointmentID, req.UserID, newStart, newEnd); err != nil {
		if errors.Is(err, domain.ErrSlotTaken) {
			return s.conflictOutcome(ctx, worker, newStart, req.Duration(), "new time unavailable"), nil
		}
		s.log.Error().Err(err).Str("appointment_id", existing.AppointmentID).Msg("failed to reschedule appointment")
		return nil, err
	}

	s.log.Info().
		Str("appointment_id", existing.AppointmentID).
		Str("user_id", req.UserID).
		Time("new_start", newStart).
		Msg("appointment rescheduled")

	return &ports.ScheduleOutcome{
		Status:        ports.OutcomeRescheduled,
		AppointmentID: existing.AppointmentID,
		WorkerID:      worker.WorkerID,
		WorkerName:    worker.Name,
		StartTime:     newStart,
		EndTime:       newEnd,
	}, nil
}

// GetAvailability reports whether the requested slot is open, without
// persisting anything. Unavailable slots carry alternatives.
func (s *SchedulingService) GetAvailability(ctx context.Context, req *domain.ParsedRequest) (*ports.ScheduleOutcome, error) {
	worker, err := s.resolveWorker(ctx, req.WorkerName)
	if err != nil {
		return nil, err
	}

	start, err := schedule.ToUTC(req.LocalTime, worker.Timezone)
	if err != nil {
		return nil, err
	}
	end := start.Add(req.Duration())

	// Same validity rules as booking: a past or over-long slot is an error,
	// not "available".
	if start.Before(s.now().UTC()) {
		return nil, domain.ErrPastAppointment
	}
	if end.Sub(start) > domain.MaxAppointmentSpan {
		return nil, domain.ErrAppointmentTooLong
	}

	free, err := s.isAvailable(ctx, worker.WorkerID, start, end, "")
	if err != nil {
		return nil, err
	}
	if !free {
		out := s.conflictOutcome(ctx, worker, start, req.Duration(), "requested time unavailable")
		out.Status = ports.OutcomeUnavailable
		return out, nil
	}

	return &ports.ScheduleOutcome{
		Status:     ports.OutcomeAvailable,
		WorkerID:   worker.WorkerID,
		WorkerName: worker.Name,
		StartTime:  start,
		EndTime:    end,
	}, nil
}

// ListUserAppointments returns the user's non-cancelled appointments, most
// recent start first.
func (s *SchedulingService) ListUserAppointments(ctx context.Context, userID string) ([]*domain.Appointment, error) {
	return s.store.ListUserAppointments(ctx, userID)
}

// resolveWorker looks a worker up by case-insensitive name. The not-found
// error enumerates all known worker names for diagnostics.
func (s *SchedulingService) resolveWorker(ctx context.Context, name string) (*domain.Worker, error) {
	worker, err := s.store.FindWorkerByName(ctx, strings.TrimSpace(name))
	if err == nil {
		return worker, nil
	}
	if errors.Is(err, domain.ErrWorkerNotFound) {
		names, listErr := s.store.ListWorkerNames(ctx)
		if listErr != nil {
			s.log.Warn().Err(listErr).Msg("failed to list worker names for diagnostics")
			return nil, err
		}
		return nil, fmt.Errorf("%w: %q (known workers: %s)", domain.ErrWorkerNotFound, name, strings.Join(names, ", "))
	}
	return nil, err
}

// locateForCancel implements the two cancel lookup paths: by id when given,
// otherwise a fuzzy search in a ±2h window around the requested local time
// ("now" when the request carries no datetime).
func (s *SchedulingService) locateForCancel(ctx context.Context, req *domain.ParsedRequest) (*domain.Appointment, error) {
	if req.AppointmentID != "" {
		return s.store.FindAppointment(ctx, req.AppointmentID, req.UserID)
	}

	worker, err := s.store.FindWorkerByName(ctx, strings.TrimSpace(req.WorkerName))
	if err != nil {
		// The fuzzy path degrades every lookup failure to "not found": the
		// caller asked to cancel something that cannot be located.
		s.log.Debug().Err(err).Str("worker_name", req.WorkerName).Msg("cancel fuzzy lookup: worker unknown")
		return nil, domain.ErrAppointmentNotFound
	}

	center := s.now().UTC()
	if !req.LocalTime.IsZero() {
		center, err = schedule.ToUTC(req.LocalTime, worker.Timezone)
		if err != nil {
			return nil, err
		}
	}

	return s.store.FindAppointmentNear(ctx, req.UserID, worker.WorkerID, center, 2*time.Hour)
}
