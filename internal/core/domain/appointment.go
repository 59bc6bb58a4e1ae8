package domain

import (
	"errors"
	"fmt"
	"time"
)

// AppointmentStatus represents the lifecycle state of an appointment.
type AppointmentStatus string

const (
	StatusScheduled   AppointmentStatus = "scheduled"
	StatusCancelled   AppointmentStatus = "cancelled"
	StatusRescheduled AppointmentStatus = "rescheduled"
)

// MaxAppointmentSpan is the longest interval a single appointment may cover.
const MaxAppointmentSpan = 4 * time.Hour

// DefaultDurationMinutes is applied when a request carries no duration.
const DefaultDurationMinutes = 30

// validTransitions defines the allowed state machine transitions.
// Cancelled and rescheduled are terminal: they are excluded from overlap
// queries and no operation moves an appointment out of them.
var validTransitions = map[AppointmentStatus][]AppointmentStatus{
	StatusScheduled: {StatusCancelled, StatusRescheduled},
}

var ErrAppointmentNotFound = errors.New("appointment not found")
var ErrMissingAppointmentID = errors.New("appointment id required")
var ErrPastAppointment = errors.New("appointment starts in the past")
var ErrAppointmentTooLong = errors.New("appointment exceeds maximum duration")
var ErrSlotTaken = errors.New("slot no longer available")
var ErrInvalidTransition = errors.New("invalid status transition")

// CanTransitionTo reports whether a transition from current status to next is valid.
func (s AppointmentStatus) CanTransitionTo(next AppointmentStatus) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether the status excludes the appointment from conflict checks.
func (s AppointmentStatus) Terminal() bool {
	return s == StatusCancelled || s == StatusRescheduled
}

// Appointment is the core aggregate root. StartTime and EndTime are stored as
// naive timestamps whose frame is UTC by convention of the store; zone
// information is stripped before persisting and retrieved values are treated
// as UTC.
type Appointment struct {
	AppointmentID string            `json:"appointment_id" bson:"appointment_id"`
	UserID        string            `json:"user_id" bson:"user_id"`
	WorkerID      string            `json:"worker_id" bson:"worker_id"`
	StartTime     time.Time         `json:"start_time" bson:"start_time"`
	EndTime       time.Time         `json:"end_time" bson:"end_time"`
	Status        AppointmentStatus `json:"status" bson:"status"`
	CreatedAt     time.Time         `json:"created_at" bson:"created_at"`
}

// NewAppointmentID derives a deterministic identifier from the start instant
// and the worker, e.g. APT-1742670000-WORKER003.
func NewAppointmentID(start time.Time, workerID string) string {
	return fmt.Sprintf("APT-%d-%s", start.Unix(), workerID)
}

// Overlaps reports whether the half-open interval [s, e) intersects this
// appointment's interval. Touching endpoints do not count.
func (a *Appointment) Overlaps(s, e time.Time) bool {
	return a.StartTime.Before(e) && a.EndTime.After(s)
}

// Validate enforces the appointment invariants at the persistence boundary.
func (a *Appointment) Validate() error {
	if !a.EndTime.After(a.StartTime) {
		return fmt.Errorf("end time %s must be after start time %s", a.EndTime, a.StartTime)
	}
	if a.EndTime.Sub(a.StartTime) > MaxAppointmentSpan {
		return ErrAppointmentTooLong
	}
	return nil
}
