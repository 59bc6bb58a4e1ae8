package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrWorkerNotFound = errors.New("worker not found")

// WorkingHours is a worker's recurring daily availability window, expressed
// as local time-of-day bounds in HH:MM form. Start must precede End.
type WorkingHours struct {
	Start string `json:"start" bson:"start"`
	End   string `json:"end" bson:"end"`
}

// Minutes returns the window bounds as minutes since local midnight.
func (wh WorkingHours) Minutes() (start, end int, err error) {
	start, err = parseClock(wh.Start)
	if err != nil {
		return 0, 0, err
	}
	end, err = parseClock(wh.End)
	if err != nil {
		return 0, 0, err
	}
	if start >= end {
		return 0, 0, fmt.Errorf("working hours start %s not before end %s", wh.Start, wh.End)
	}
	return start, end, nil
}

func parseClock(s string) (int, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time of day %q, want HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	return h*60 + m, nil
}

// Worker is a bookable single resource. Records are read-only from the
// scheduling core's perspective.
type Worker struct {
	WorkerID     string       `json:"worker_id" bson:"worker_id"`
	Name         string       `json:"name" bson:"name"`
	Role         string       `json:"role" bson:"role"`
	WorkingHours WorkingHours `json:"working_hours" bson:"working_hours"`
	Timezone     string       `json:"timezone" bson:"timezone"`
}
