package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/calchat/scheduling-system/internal/core/domain"
	"github.com/calchat/scheduling-system/internal/core/ports"
	"github.com/calchat/scheduling-system/internal/core/schedule"
)

type stubSchedulingStore struct {
	users        map[string]*domain.User
	workers      map[string]*domain.Worker
	appointments map[string]*domain.Appointment
	countErr     error
	commitErr    error
}

func newStubSchedulingStore(workers ...*domain.Worker) *stubSchedulingStore {
	s := &stubSchedulingStore{
		users:        make(map[string]*domain.User),
		workers:      make(map[string]*domain.Worker),
		appointments: make(map[string]*domain.Appointment),
	}
	for _, id := range []string{"USER001", "USER046", "USER048", "USER099"} {
		s.users[id] = &domain.User{UserID: id, Timezone: "America/New_York"}
	}
	for _, w := range workers {
		s.workers[w.WorkerID] = w
	}
	return s
}

func (s *stubSchedulingStore) FindUser(_ context.Context, userID string) (*domain.User, error) {
	if u, ok := s.users[userID]; ok {
		return u, nil
	}
	return nil, domain.ErrUserNotFound
}

func (s *stubSchedulingStore) FindWorkerByName(_ context.Context, name string) (*domain.Worker, error) {
	for _, w := range s.workers {
		if strings.EqualFold(w.Name, name) {
			return w, nil
		}
	}
	return nil, domain.ErrWorkerNotFound
}

func (s *stubSchedulingStore) FindWorkerByID(_ context.Context, workerID string) (*domain.Worker, error) {
	if w, ok := s.workers[workerID]; ok {
		return w, nil
	}
	return nil, domain.ErrWorkerNotFound
}

func (s *stubSchedulingStore) ListWorkerNames(_ context.Context) ([]string, error) {
	names := make([]string, 0, len(s.workers))
	for _, w := range s.workers {
		names = append(names, w.Name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *stubSchedulingStore) CountOverlaps(_ context.Context, workerID string, start, end time.Time, excludeID string) (int64, error) {
	if s.countErr != nil {
		return 0, s.countErr
	}
	var n int64
	for _, a := range s.appointments {
		if a.WorkerID != workerID || a.Status.Terminal() {
			continue
		}
		if excludeID != "" && a.AppointmentID == excludeID {
			continue
		}
		if a.Overlaps(start, end) {
			n++
		}
	}
	return n, nil
}

func (s *stubSchedulingStore) FindAppointment(_ context.Context, appointmentID, userID string) (*domain.Appointment, error) {
	a, ok := s.appointments[appointmentID]
	if !ok || a.UserID != userID {
		return nil, domain.ErrAppointmentNotFound
	}
	return a, nil
}

func (s *stubSchedulingStore) FindAppointmentNear(_ context.Context, userID, workerID string, center time.Time, window time.Duration) (*domain.Appointment, error) {
	var best *domain.Appointment
	for _, a := range s.appointments {
		if a.UserID != userID || a.WorkerID != workerID || a.Status == domain.StatusCancelled {
			continue
		}
		if a.StartTime.Before(center.Add(-window)) || a.StartTime.After(center.Add(window)) {
			continue
		}
		if best == nil || a.StartTime.Before(best.StartTime) {
			best = a
		}
	}
	if best == nil {
		return nil, domain.ErrAppointmentNotFound
	}
	return best, nil
}

func (s *stubSchedulingStore) CommitAppointment(ctx context.Context, appt *domain.Appointment) error {
	if s.commitErr != nil {
		return s.commitErr
	}
	conflicts, err := s.CountOverlaps(ctx, appt.WorkerID, appt.StartTime, appt.EndTime, "")
	if err != nil {
		return err
	}
	if conflicts > 0 {
		return domain.ErrSlotTaken
	}
	clone := *appt
	s.appointments[appt.AppointmentID] = &clone
	return nil
}

func (s *stubSchedulingStore) CommitReschedule(ctx context.Context, appointmentID, userID string, start, end time.Time) error {
	a, ok := s.appointments[appointmentID]
	if !ok || a.UserID != userID {
		return domain.ErrAppointmentNotFound
	}
	conflicts, err := s.CountOverlaps(ctx, a.WorkerID, start, end, appointmentID)
	if err != nil {
		return err
	}
	if conflicts > 0 {
		return domain.ErrSlotTaken
	}
	a.StartTime = start
	a.EndTime = end
	a.Status = domain.StatusRescheduled
	return nil
}

func (s *stubSchedulingStore) CancelAppointment(_ context.Context, appointmentID, userID string) error {
	a, ok := s.appointments[appointmentID]
	if !ok || a.UserID != userID {
		return domain.ErrAppointmentNotFound
	}
	a.Status = domain.StatusCancelled
	return nil
}

func (s *stubSchedulingStore) ListUserAppointments(_ context.Context, userID string) ([]*domain.Appointment, error) {
	var out []*domain.Appointment
	for _, a := range s.appointments {
		if a.UserID == userID && a.Status != domain.StatusCancelled {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.After(out[j].StartTime) })
	return out, nil
}

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func tylerNY() *domain.Worker {
	return &domain.Worker{
		WorkerID:     "WORKER001",
		Name:         "Tyler",
		Role:         "Therapist",
		WorkingHours: domain.WorkingHours{Start: "09:00", End: "17:00"},
		Timezone:     "America/New_York",
	}
}

func newTestService(store *stubSchedulingStore) *SchedulingService {
	svc := NewSchedulingService(store, zerolog.Nop())
	svc.now = func() time.Time { return testNow }
	return svc
}

func seedAppointment(store *stubSchedulingStore, userID, workerID string, start time.Time, duration time.Duration) *domain.Appointment {
	a := &domain.Appointment{
		AppointmentID: domain.NewAppointmentID(start, workerID),
		UserID:        userID,
		WorkerID:      workerID,
		StartTime:     start,
		EndTime:       start.Add(duration),
		Status:        domain.StatusScheduled,
		CreatedAt:     testNow,
	}
	store.appointments[a.AppointmentID] = a
	return a
}

func TestCreate_Success(t *testing.T) {
	store := newStubSchedulingStore(tylerNY())
	svc := newTestService(store)

	// 15:00 Mar 22 in New York is EDT (UTC-4): 19:00 UTC.
	req := &domain.ParsedRequest{
		Intent:     domain.IntentCreate,
		UserID:     "USER046",
		WorkerName: "Tyler",
		LocalTime:  time.Date(2025, 3, 22, 15, 0, 0, 0, time.UTC),
	}

	out, err := svc.Create(context.Background(), req)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if out.Status != ports.OutcomeScheduled {
		t.Fatalf("expected scheduled, got %s", out.Status)
	}

	wantStart := time.Date(2025, 3, 22, 19, 0, 0, 0, time.UTC)
	if !out.StartTime.Equal(wantStart) {
		t.Fatalf("expected start %s, got %s", wantStart, out.StartTime)
	}
	if !out.EndTime.Equal(wantStart.Add(30 * time.Minute)) {
		t.Fatalf("expected default 30 minute duration, got end %s", out.EndTime)
	}
	if out.AppointmentID != domain.NewAppointmentID(wantStart, "WORKER001") {
		t.Fatalf("unexpected appointment id %s", out.AppointmentID)
	}
	if _, ok := store.appointments[out.AppointmentID]; !ok {
		t.Fatalf("appointment not persisted")
	}
}

func TestCreate_WorkerNameCaseInsensitive(t *testing.T) {
	store := newStubSchedulingStore(tylerNY())
	svc := newTestService(store)

	req := &domain.ParsedRequest{
		Intent:     domain.IntentCreate,
		UserID:     "USER046",
		WorkerName: "tyler",
		LocalTime:  time.Date(2025, 3, 22, 15, 0, 0, 0, time.UTC),
	}

	out, err := svc.Create(context.Background(), req)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if out.WorkerName != "Tyler" {
		t.Fatalf("expected canonical worker name, got %s", out.WorkerName)
	}
}

func TestCreate_UnknownWorkerListsKnownNames(t *testing.T) {
	store := newStubSchedulingStore(tylerNY())
	svc := newTestService(store)

	req := &domain.ParsedRequest{
		Intent:     domain.IntentCreate,
		UserID:     "USER046",
		WorkerName: "Nadia",
		LocalTime:  time.Date(2025, 3, 22, 15, 0, 0, 0, time.UTC),
	}

	_, err := svc.Create(context.Background(), req)
	if !errors.Is(err, domain.ErrWorkerNotFound) {
		t.Fatalf("expected ErrWorkerNotFound, got %v", err)
	}
	if !strings.Contains(err.Error(), "Tyler") {
		t.Fatalf("expected known worker names in error, got %q", err.Error())
	}
}

func TestCreate_UnknownUser(t *testing.T) {
	store := newStubSchedulingStore(tylerNY())
	svc := newTestService(store)

	req := &domain.ParsedRequest{
		Intent:     domain.IntentCreate,
		UserID:     "GHOST",
		WorkerName: "Tyler",
		LocalTime:  time.Date(2025, 3, 22, 15, 0, 0, 0, time.UTC),
	}

	if _, err := svc.Create(context.Background(), req); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestCreate_PastRejected(t *testing.T) {
	store := newStubSchedulingStore(tylerNY())
	svc := newTestService(store)

	req := &domain.ParsedRequest{
		Intent:     domain.IntentCreate,
		UserID:     "USER046",
		WorkerName: "Tyler",
		LocalTime:  time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC),
	}

	if _, err := svc.Create(context.Background(), req); !errors.Is(err, domain.ErrPastAppointment) {
		t.Fatalf("expected ErrPastAppointment, got %v", err)
	}
}

func TestCreate_ExactlyNowAccepted(t *testing.T) {
	store := newStubSchedulingStore(tylerNY())
	svc := newTestService(store)

	// testNow is 12:00 UTC = 07:00 EST on Mar 1. A request for exactly that
	// wall-clock instant is not "in the past".
	req := &domain.ParsedRequest{
		Intent:     domain.IntentCreate,
		UserID:     "USER046",
		WorkerName: "Tyler",
		LocalTime:  time.Date(2025, 3, 1, 7, 0, 0, 0, time.UTC),
	}

	out, err := svc.Create(context.Background(), req)
	if err != nil {
		t.Fatalf("expected boundary instant to be accepted, got %v", err)
	}
	if !out.StartTime.Equal(testNow) {
		t.Fatalf("expected start %s, got %s", testNow, out.StartTime)
	}
}

func TestCreate_MaxDurationBoundary(t *testing.T) {
	store := newStubSchedulingStore(tylerNY())
	svc := newTestService(store)

	// 240 minutes is exactly the 4 hour cap: allowed.
	req := &domain.ParsedRequest{
		Intent:          domain.IntentCreate,
		UserID:          "USER046",
		WorkerName:      "Tyler",
		LocalTime:       time.Date(2025, 3, 22, 9, 0, 0, 0, time.UTC),
		DurationMinutes: 240,
	}

	out, err := svc.Create(context.Background(), req)
	if err != nil {
		t.Fatalf("expected 4h appointment to be accepted, got %v", err)
	}
	if out.EndTime.Sub(out.StartTime) != 4*time.Hour {
		t.Fatalf("unexpected span %s", out.EndTime.Sub(out.StartTime))
	}
}

func TestCreate_InvalidWorkerTimezone(t *testing.T) {
	w := tylerNY()
	w.Timezone = "Mars/Olympus"
	store := newStubSchedulingStore(w)
	svc := newTestService(store)

	req := &domain.ParsedRequest{
		Intent:     domain.IntentCreate,
		UserID:     "USER046",
		WorkerName: "Tyler",
		LocalTime:  time.Date(2025, 3, 22, 15, 0, 0, 0, time.UTC),
	}

	if _, err := svc.Create(context.Background(), req); !errors.Is(err, schedule.ErrInvalidTimeZone) {
		t.Fatalf("expected ErrInvalidTimeZone, got %v", err)
	}
}

func TestCreate_ConflictSuggestsAlternatives(t *testing.T) {
	store := newStubSchedulingStore(tylerNY())
	svc := newTestService(store)

	// Occupy 19:00-19:30 UTC (15:00 local).
	busy := time.Date(2025, 3, 22, 19, 0, 0, 0, time.UTC)
	seedAppointment(store, "USER001", "WORKER001", busy, 30*time.Minute)

	req := &domain.ParsedRequest{
		Intent:     domain.IntentCreate,
		UserID:     "USER046",
		WorkerName: "Tyler",
		LocalTime:  time.Date(2025, 3, 22, 15, 0, 0, 0, time.UTC),
	}

	out, err := svc.Create(context.Background(), req)
	if err != nil {
		t.Fatalf("conflict must be a normal outcome, got error %v", err)
	}
	if out.Status != ports.OutcomeConflict {
		t.Fatalf("expected conflict, got %s", out.Status)
	}
	if len(out.Alternatives) == 0 || len(out.Alternatives) > 3 {
		t.Fatalf("expected 1..3 alternatives, got %d", len(out.Alternatives))
	}
	// First open slot is one step later, rendered in the worker's zone.
	if out.Alternatives[0] != "2025-03-22T15:30:00-04:00" {
		t.Fatalf("unexpected first alternative %s", out.Alternatives[0])
	}
	if out.AppointmentID != "" {
		t.Fatalf("conflict outcome must not carry an appointment id")
	}
}

func TestCreate_AlternativesRespectWorkingHours(t *testing.T) {
	store := newStubSchedulingStore(tylerNY())
	svc := newTestService(store)

	// Occupy 16:30 local; the only in-hours candidate after it is 17:00
	// (inclusive end bound). Everything later falls outside working hours.
	busy := time.Date(2025, 3, 22, 20, 30, 0, 0, time.UTC)
	seedAppointment(store, "USER001", "WORKER001", busy, 30*time.Minute)

	req := &domain.ParsedRequest{
		Intent:     domain.IntentCreate,
		UserID:     "USER046",
		WorkerName: "Tyler",
		LocalTime:  time.Date(2025, 3, 22, 16, 30, 0, 0, time.UTC),
	}

	out, err := svc.Create(context.Background(), req)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if out.Status != ports.OutcomeConflict {
		t.Fatalf("expected conflict, got %s", out.Status)
	}
	if len(out.Alternatives) != 1 {
		t.Fatalf("expected exactly one in-hours alternative, got %v", out.Alternatives)
	}
	if out.Alternatives[0] != "2025-03-22T17:00:00-04:00" {
		t.Fatalf("unexpected alternative %s", out.Alternatives[0])
	}
}

func TestCreate_AllBookedYieldsNoAlternatives(t *testing.T) {
	store := newStubSchedulingStore(tylerNY())
	svc := newTestService(store)

	// Fill the calendar past the attempt budget: 12 consecutive half-hour
	// slots from 13:00 local onward.
	base := time.Date(2025, 3, 22, 17, 0, 0, 0, time.UTC)
	for i := 0; i < 12; i++ {
		seedAppointment(store, "USER001", "WORKER001", base.Add(time.Duration(i)*30*time.Minute), 30*time.Minute)
	}

	req := &domain.ParsedRequest{
		Intent:     domain.IntentCreate,
		UserID:     "USER046",
		WorkerName: "Tyler",
		LocalTime:  time.Date(2025, 3, 22, 13, 0, 0, 0, time.UTC),
	}

	out, err := svc.Create(context.Background(), req)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if out.Status != ports.OutcomeConflict {
		t.Fatalf("expected conflict, got %s", out.Status)
	}
	if len(out.Alternatives) != 0 {
		t.Fatalf("expected no alternatives on a fully booked day, got %v", out.Alternatives)
	}
}

func TestCreate_TouchingSlotsDoNotConflict(t *testing.T) {
	store := newStubSchedulingStore(tylerNY())
	svc := newTestService(store)

	// Existing 19:00-19:30. Booking 19:30 shares only the endpoint.
	busy := time.Date(2025, 3, 22, 19, 0, 0, 0, time.UTC)
	seedAppointment(store, "USER001", "WORKER001", busy, 30*time.Minute)

	req := &domain.ParsedRequest{
		Intent:     domain.IntentCreate,
		UserID:     "USER046",
		WorkerName: "Tyler",
		LocalTime:  time.Date(2025, 3, 22, 15, 30, 0, 0, time.UTC),
	}

	out, err := svc.Create(context.Background(), req)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if out.Status != ports.OutcomeScheduled {
		t.Fatalf("back-to-back booking should succeed, got %s", out.Status)
	}
}

func TestCreate_SlotTakenDuringCommit(t *testing.T) {
	store := newStubSchedulingStore(tylerNY())
	store.commitErr = domain.ErrSlotTaken
	svc := newTestService(store)

	req := &domain.ParsedRequest{
		Intent:     domain.IntentCreate,
		UserID:     "USER046",
		WorkerName: "Tyler",
		LocalTime:  time.Date(2025, 3, 22, 15, 0, 0, 0, time.UTC),
	}

	out, err := svc.Create(context.Background(), req)
	if err != nil {
		t.Fatalf("losing the commit race must degrade to a conflict, got %v", err)
	}
	if out.Status != ports.OutcomeConflict {
		t.Fatalf("expected conflict, got %s", out.Status)
	}
}

func TestCancel_ByID(t *testing.T) {
	store := newStubSchedulingStore(tylerNY())
	svc := newTestService(store)

	start := time.Date(2025, 3, 22, 19, 0, 0, 0, time.UTC)
	appt := seedAppointment(store, "USER046", "WORKER001", start, 30*time.Minute)

	req := &domain.ParsedRequest{
		Intent:        domain.IntentCancel,
		UserID:        "USER046",
		AppointmentID: appt.AppointmentID,
	}

	out, err := svc.Cancel(context.Background(), req)
	if err != nil {
		t.Fatalf("Cancel returned error: %v", err)
	}
	if out.Status != ports.OutcomeCancelled {
		t.Fatalf("expected cancelled, got %s", out.Status)
	}
	if out.CancelledAt.IsZero() {
		t.Fatalf("expected cancellation timestamp")
	}
	if store.appointments[appt.AppointmentID].Status != domain.StatusCancelled {
		t.Fatalf("store status not flipped")
	}
}

func TestCancel_OtherUsersAppointmentHidden(t *testing.T) {
	store := newStubSchedulingStore(tylerNY())
	svc := newTestService(store)

	start := time.Date(2025, 3, 22, 19, 0, 0, 0, time.UTC)
	appt := seedAppointment(store, "USER001", "WORKER001", start, 30*time.Minute)

	req := &domain.ParsedRequest{
		Intent:        domain.IntentCancel,
		UserID:        "USER046",
		AppointmentID: appt.AppointmentID,
	}

	if _, err := svc.Cancel(context.Background(), req); !errors.Is(err, domain.ErrAppointmentNotFound) {
		t.Fatalf("expected ErrAppointmentNotFound for foreign appointment, got %v", err)
	}
}

func TestCancel_AlreadyCancelled(t *testing.T) {
	store := newStubSchedulingStore(tylerNY())
	svc := newTestService(store)

	start := time.Date(2025, 3, 22, 19, 0, 0, 0, time.UTC)
	appt := seedAppointment(store, "USER046", "WORKER001", start, 30*time.Minute)
	appt.Status = domain.StatusCancelled

	req := &domain.ParsedRequest{
		Intent:        domain.IntentCancel,
		UserID:        "USER046",
		AppointmentID: appt.AppointmentID,
	}

	if _, err := svc.Cancel(context.Background(), req); !errors.Is(err, domain.ErrAppointmentNotFound) {
		t.Fatalf("expected terminal appointment to read as not found, got %v", err)
	}
}

func TestCancel_FuzzyMatch(t *testing.T) {
	store := newStubSchedulingStore(tylerNY())
	svc := newTestService(store)

	// Appointment at 16:00 local (21:00 UTC, EST); the request names 15:00
	// local, inside the two hour search window.
	start := time.Date(2025, 3, 4, 21, 0, 0, 0, time.UTC)
	appt := seedAppointment(store, "USER048", "WORKER001", start, 30*time.Minute)

	req := &domain.ParsedRequest{
		Intent:     domain.IntentCancel,
		UserID:     "USER048",
		WorkerName: "Tyler",
		LocalTime:  time.Date(2025, 3, 4, 15, 0, 0, 0, time.UTC),
	}

	out, err := svc.Cancel(context.Background(), req)
	if err != nil {
		t.Fatalf("Cancel returned error: %v", err)
	}
	if out.AppointmentID != appt.AppointmentID {
		t.Fatalf("fuzzy match picked %s, want %s", out.AppointmentID, appt.AppointmentID)
	}
}

func TestCancel_FuzzyOutsideWindow(t *testing.T) {
	store := newStubSchedulingStore(tylerNY())
	svc := newTestService(store)

	// Appointment starts three hours after the requested time: out of range.
	start := time.Date(2025, 3, 4, 23, 0, 0, 0, time.UTC)
	seedAppointment(store, "USER048", "WORKER001", start, 30*time.Minute)

	req := &domain.ParsedRequest{
		Intent:     domain.IntentCancel,
		UserID:     "USER048",
		WorkerName: "Tyler",
		LocalTime:  time.Date(2025, 3, 4, 15, 0, 0, 0, time.UTC),
	}

	if _, err := svc.Cancel(context.Background(), req); !errors.Is(err, domain.ErrAppointmentNotFound) {
		t.Fatalf("expected ErrAppointmentNotFound, got %v", err)
	}
}

func TestCancel_FuzzyUnknownWorker(t *testing.T) {
	store := newStubSchedulingStore(tylerNY())
	svc := newTestService(store)

	req := &domain.ParsedRequest{
		Intent:     domain.IntentCancel,
		UserID:     "USER048",
		WorkerName: "Nadia",
	}

	if _, err := svc.Cancel(context.Background(), req); !errors.Is(err, domain.ErrAppointmentNotFound) {
		t.Fatalf("fuzzy path must degrade unknown worker to not found, got %v", err)
	}
}

func TestCancel_FreesSlot(t *testing.T) {
	store := newStubSchedulingStore(tylerNY())
	svc := newTestService(store)

	start := time.Date(2025, 3, 22, 19, 0, 0, 0, time.UTC)
	appt := seedAppointment(store, "USER046", "WORKER001", start, 30*time.Minute)

	cancelReq := &domain.ParsedRequest{
		Intent:        domain.IntentCancel,
		UserID:        "USER046",
		AppointmentID: appt.AppointmentID,
	}
	if _, err := svc.Cancel(context.Background(), cancelReq); err != nil {
		t.Fatalf("Cancel returned error: %v", err)
	}

	createReq := &domain.ParsedRequest{
		Intent:     domain.IntentCreate,
		UserID:     "USER099",
		WorkerName: "Tyler",
		LocalTime:  time.Date(2025, 3, 22, 15, 0, 0, 0, time.UTC),
	}
	out, err := svc.Create(context.Background(), createReq)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if out.Status != ports.OutcomeScheduled {
		t.Fatalf("cancelled slot must be bookable again, got %s", out.Status)
	}
}

func TestReschedule_Success(t *testing.T) {
	store := newStubSchedulingStore(tylerNY())
	svc := newTestService(store)

	start := time.Date(2025, 3, 22, 19, 0, 0, 0, time.UTC)
	appt := seedAppointment(store, "USER046", "WORKER001", start, 30*time.Minute)

	req := &domain.ParsedRequest{
		Intent:        domain.IntentReschedule,
		UserID:        "USER046",
		AppointmentID: appt.AppointmentID,
		LocalTime:     time.Date(2025, 3, 23, 11, 0, 0, 0, time.UTC),
	}

	out, err := svc.Reschedule(context.Background(), req)
	if err != nil {
		t.Fatalf("Reschedule returned error: %v", err)
	}
	if out.Status != ports.OutcomeRescheduled {
		t.Fatalf("expected rescheduled, got %s", out.Status)
	}

	wantStart := time.Date(2025, 3, 23, 15, 0, 0, 0, time.UTC)
	if !out.StartTime.Equal(wantStart) {
		t.Fatalf("expected new start %s, got %s", wantStart, out.StartTime)
	}

	stored := store.appointments[appt.AppointmentID]
	if !stored.StartTime.Equal(wantStart) || stored.Status != domain.StatusRescheduled {
		t.Fatalf("record not moved: %+v", stored)
	}
}

func TestReschedule_MissingID(t *testing.T) {
	store := newStubSchedulingStore(tylerNY())
	svc := newTestService(store)

	req := &domain.ParsedRequest{
		Intent:     domain.IntentReschedule,
		UserID:     "USER046",
		WorkerName: "Tyler",
		LocalTime:  time.Date(2025, 3, 23, 11, 0, 0, 0, time.UTC),
	}

	if _, err := svc.Reschedule(context.Background(), req); !errors.Is(err, domain.ErrMissingAppointmentID) {
		t.Fatalf("expected ErrMissingAppointmentID, got %v", err)
	}
}

func TestReschedule_SelfOverlapAllowed(t *testing.T) {
	store := newStubSchedulingStore(tylerNY())
	svc := newTestService(store)

	start := time.Date(2025, 3, 22, 19, 0, 0, 0, time.UTC)
	appt := seedAppointment(store, "USER046", "WORKER001", start, 30*time.Minute)

	// Shift by 15 minutes: the new interval overlaps the old one, which must
	// not count as a conflict.
	req := &domain.ParsedRequest{
		Intent:        domain.IntentReschedule,
		UserID:        "USER046",
		AppointmentID: appt.AppointmentID,
		LocalTime:     time.Date(2025, 3, 22, 15, 15, 0, 0, time.UTC),
	}

	out, err := svc.Reschedule(context.Background(), req)
	if err != nil {
		t.Fatalf("Reschedule returned error: %v", err)
	}
	if out.Status != ports.OutcomeRescheduled {
		t.Fatalf("self-overlap must not conflict, got %s", out.Status)
	}
}

func TestReschedule_ConflictLeavesRecordUnchanged(t *testing.T) {
	store := newStubSchedulingStore(tylerNY())
	svc := newTestService(store)

	start := time.Date(2025, 3, 22, 19, 0, 0, 0, time.UTC)
	appt := seedAppointment(store, "USER046", "WORKER001", start, 30*time.Minute)

	// Someone else holds the target slot.
	target := time.Date(2025, 3, 23, 15, 0, 0, 0, time.UTC)
	seedAppointment(store, "USER001", "WORKER001", target, 30*time.Minute)

	req := &domain.ParsedRequest{
		Intent:        domain.IntentReschedule,
		UserID:        "USER046",
		AppointmentID: appt.AppointmentID,
		LocalTime:     time.Date(2025, 3, 23, 11, 0, 0, 0, time.UTC),
	}

	out, err := svc.Reschedule(context.Background(), req)
	if err != nil {
		t.Fatalf("conflict must be a normal outcome, got %v", err)
	}
	if out.Status != ports.OutcomeConflict {
		t.Fatalf("expected conflict, got %s", out.Status)
	}

	stored := store.appointments[appt.AppointmentID]
	if !stored.StartTime.Equal(start) || stored.Status != domain.StatusScheduled {
		t.Fatalf("failed reschedule must not mutate the record: %+v", stored)
	}
}

func TestReschedule_TerminalAppointment(t *testing.T) {
	store := newStubSchedulingStore(tylerNY())
	svc := newTestService(store)

	start := time.Date(2025, 3, 22, 19, 0, 0, 0, time.UTC)
	appt := seedAppointment(store, "USER046", "WORKER001", start, 30*time.Minute)
	appt.Status = domain.StatusRescheduled

	req := &domain.ParsedRequest{
		Intent:        domain.IntentReschedule,
		UserID:        "USER046",
		AppointmentID: appt.AppointmentID,
		LocalTime:     time.Date(2025, 3, 23, 11, 0, 0, 0, time.UTC),
	}

	if _, err := svc.Reschedule(context.Background(), req); !errors.Is(err, domain.ErrAppointmentNotFound) {
		t.Fatalf("expected terminal appointment to read as not found, got %v", err)
	}
}

func TestGetAvailability_Available(t *testing.T) {
	store := newStubSchedulingStore(tylerNY())
	svc := newTestService(store)

	req := &domain.ParsedRequest{
		Intent:     domain.IntentAvailability,
		UserID:     "USER046",
		WorkerName: "Tyler",
		LocalTime:  time.Date(2025, 3, 22, 15, 0, 0, 0, time.UTC),
	}

	out, err := svc.GetAvailability(context.Background(), req)
	if err != nil {
		t.Fatalf("GetAvailability returned error: %v", err)
	}
	if out.Status != ports.OutcomeAvailable {
		t.Fatalf("expected available, got %s", out.Status)
	}
	if len(store.appointments) != 0 {
		t.Fatalf("availability check must not persist anything")
	}
}

func TestGetAvailability_Unavailable(t *testing.T) {
	store := newStubSchedulingStore(tylerNY())
	svc := newTestService(store)

	busy := time.Date(2025, 3, 22, 19, 0, 0, 0, time.UTC)
	seedAppointment(store, "USER001", "WORKER001", busy, 30*time.Minute)

	req := &domain.ParsedRequest{
		Intent:     domain.IntentAvailability,
		UserID:     "USER046",
		WorkerName: "Tyler",
		LocalTime:  time.Date(2025, 3, 22, 15, 0, 0, 0, time.UTC),
	}

	out, err := svc.GetAvailability(context.Background(), req)
	if err != nil {
		t.Fatalf("GetAvailability returned error: %v", err)
	}
	if out.Status != ports.OutcomeUnavailable {
		t.Fatalf("expected unavailable, got %s", out.Status)
	}
	if len(out.Alternatives) == 0 {
		t.Fatalf("unavailable outcome should carry alternatives")
	}
}

func TestGetAvailability_PastRejected(t *testing.T) {
	store := newStubSchedulingStore(tylerNY())
	svc := newTestService(store)

	req := &domain.ParsedRequest{
		Intent:     domain.IntentAvailability,
		UserID:     "USER046",
		WorkerName: "Tyler",
		LocalTime:  time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC),
	}

	if _, err := svc.GetAvailability(context.Background(), req); !errors.Is(err, domain.ErrPastAppointment) {
		t.Fatalf("a past slot must not read as available, got %v", err)
	}
}

func TestGetAvailability_TooLongRejected(t *testing.T) {
	store := newStubSchedulingStore(tylerNY())
	svc := newTestService(store)

	// Bypasses Validate deliberately: the manager enforces the span cap on
	// its own as well.
	req := &domain.ParsedRequest{
		Intent:          domain.IntentAvailability,
		UserID:          "USER046",
		WorkerName:      "Tyler",
		LocalTime:       time.Date(2025, 3, 22, 9, 0, 0, 0, time.UTC),
		DurationMinutes: 300,
	}

	if _, err := svc.GetAvailability(context.Background(), req); !errors.Is(err, domain.ErrAppointmentTooLong) {
		t.Fatalf("an over-long slot must not read as available, got %v", err)
	}
}

func TestHandle_ValidatesAndDispatches(t *testing.T) {
	store := newStubSchedulingStore(tylerNY())
	svc := newTestService(store)

	bad := &domain.ParsedRequest{Intent: "order_pizza", UserID: "USER046"}
	if _, err := svc.Handle(context.Background(), bad); !errors.Is(err, domain.ErrMalformedRequest) {
		t.Fatalf("expected ErrMalformedRequest for unknown intent, got %v", err)
	}

	good := &domain.ParsedRequest{
		Intent:     domain.IntentCreate,
		UserID:     "USER046",
		WorkerName: "Tyler",
		LocalTime:  time.Date(2025, 3, 22, 15, 0, 0, 0, time.UTC),
	}
	out, err := svc.Handle(context.Background(), good)
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	if out.Status != ports.OutcomeScheduled {
		t.Fatalf("expected scheduled, got %s", out.Status)
	}
}

func TestListUserAppointments_SkipsCancelled(t *testing.T) {
	store := newStubSchedulingStore(tylerNY())
	svc := newTestService(store)

	a := seedAppointment(store, "USER046", "WORKER001", time.Date(2025, 3, 22, 19, 0, 0, 0, time.UTC), 30*time.Minute)
	b := seedAppointment(store, "USER046", "WORKER001", time.Date(2025, 3, 23, 19, 0, 0, 0, time.UTC), 30*time.Minute)
	b.Status = domain.StatusCancelled

	appts, err := svc.ListUserAppointments(context.Background(), "USER046")
	if err != nil {
		t.Fatalf("ListUserAppointments returned error: %v", err)
	}
	if len(appts) != 1 || appts[0].AppointmentID != a.AppointmentID {
		t.Fatalf("unexpected listing: %+v", appts)
	}
}
