// Package schedule holds the pure time arithmetic the scheduling core is
// built on: naive-local to UTC conversion and working-hours checks. It has no
// dependencies beyond the domain types and performs no I/O.
package schedule

import (
	"errors"
	"time"

	"github.com/calchat/scheduling-system/internal/core/domain"
)

var ErrInvalidTimeZone = errors.New("invalid time zone")

// ErrAmbiguousLocalTime is returned when a naive local time falls in a DST
// gap (never occurs on the wall clock) or a DST fold (occurs twice). Policy:
// reject rather than guess.
var ErrAmbiguousLocalTime = errors.New("ambiguous or invalid local time")

// ToUTC interprets naive as wall-clock time in the named IANA zone and
// returns the equivalent absolute instant in UTC. Any location attached to
// naive is ignored; only its clock fields are read.
func ToUTC(naive time.Time, zone string) (time.Time, error) {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return time.Time{}, ErrInvalidTimeZone
	}

	t := time.Date(naive.Year(), naive.Month(), naive.Day(),
		naive.Hour(), naive.Minute(), naive.Second(), 0, loc)

	// time.Date normalises wall clocks that fall in a DST gap; a changed
	// clock reading means the requested local time never existed.
	if t.Hour() != naive.Hour() || t.Minute() != naive.Minute() || t.Day() != naive.Day() {
		return time.Time{}, ErrAmbiguousLocalTime
	}

	// A repeated wall clock (DST fold) maps one local time to two instants.
	// DST shifts are one hour in every zone we care about, so probing an
	// hour to either side finds the twin.
	for _, delta := range []time.Duration{-time.Hour, time.Hour} {
		twin := t.Add(delta).In(loc)
		if twin.Hour() == naive.Hour() && twin.Minute() == naive.Minute() && twin.Day() == naive.Day() {
			return time.Time{}, ErrAmbiguousLocalTime
		}
	}

	return t.UTC(), nil
}

// InZone converts an absolute instant to the named zone for presentation.
func InZone(instant time.Time, zone string) (time.Time, error) {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return time.Time{}, ErrInvalidTimeZone
	}
	return instant.In(loc), nil
}

// InWorkingHours reports whether the instant, viewed on the worker's local
// clock, falls inside the worker's working-hours window. Bounds are
// inclusive. Malformed windows and unknown zones report false.
func InWorkingHours(instant time.Time, w *domain.Worker) bool {
	loc, err := time.LoadLocation(w.Timezone)
	if err != nil {
		return false
	}
	start, end, err := w.WorkingHours.Minutes()
	if err != nil {
		return false
	}

	local := instant.In(loc)
	minuteOfDay := local.Hour()*60 + local.Minute()
	return minuteOfDay >= start && minuteOfDay <= end
}
