package service

import (
	"context"
	"time"

	"github.com/calchat/scheduling-system/internal/core/domain"
	"github.com/calchat/scheduling-system/internal/core/ports"
	"github.com/calchat/scheduling-system/internal/core/schedule"
)

const (
	// slotStep is the fixed increment the alternative finder walks forward by.
	slotStep = 30 * time.Minute
	// maxSlotAttempts bounds the search regardless of store contents.
	maxSlotAttempts = 10
	// maxAlternatives caps how many open slots a conflict outcome carries.
	maxAlternatives = 3
)

// isAvailable reports whether [start, end) is free of non-terminal
// appointments for the worker. excludeID, when non-empty, removes that one
// appointment from consideration (used during reschedule so an appointment
// does not conflict with itself).
func (s *SchedulingService) isAvailable(ctx context.Context, workerID string, start, end time.Time, excludeID string) (bool, error) {
	conflicts, err := s.store.CountOverlaps(ctx, workerID, start, end, excludeID)
	if err != nil {
		return false, err
	}
	return conflicts == 0, nil
}

// suggestAlternatives walks forward from origin in fixed steps, collecting
// candidate starts that fall inside the worker's working hours and are free
// for the requested duration. The attempt budget guarantees termination; an
// all-booked calendar legitimately yields zero alternatives. Store failures
// during the search degrade to "no more alternatives" rather than aborting
// the surrounding request.
func (s *SchedulingService) suggestAlternatives(ctx context.Context, worker *domain.Worker, origin time.Time, duration time.Duration) []string {
	alternatives := make([]string, 0, maxAlternatives)
	candidate := origin

	for attempt := 0; attempt < maxSlotAttempts && len(alternatives) < maxAlternatives; attempt++ {
		candidate = candidate.Add(slotStep)

		if !schedule.InWorkingHours(candidate, worker) {
			continue
		}

		free, err := s.isAvailable(ctx, worker.WorkerID, candidate, candidate.Add(duration), "")
		if err != nil {
			s.log.Warn().Err(err).Str("worker_id", worker.WorkerID).Msg("alternative search aborted")
			break
		}
		if !free {
			continue
		}

		local, err := schedule.InZone(candidate, worker.Timezone)
		if err != nil {
			s.log.Warn().Err(err).Str("worker_id", worker.WorkerID).Msg("cannot render alternative in worker zone")
			continue
		}
		alternatives = append(alternatives, local.Format(time.RFC3339))
	}

	return alternatives
}

// conflictOutcome builds the normal-result variant for an occupied slot.
func (s *SchedulingService) conflictOutcome(ctx context.Context, worker *domain.Worker, start time.Time, duration time.Duration, message string) *ports.ScheduleOutcome {
	return &ports.ScheduleOutcome{
		Status:       ports.OutcomeConflict,
		Message:      message,
		WorkerID:     worker.WorkerID,
		WorkerName:   worker.Name,
		StartTime:    start,
		Alternatives: s.suggestAlternatives(ctx, worker, start, duration),
	}
}
