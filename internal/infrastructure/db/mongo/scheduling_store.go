package mongo

import (
	"context"
	"errors"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/calchat/scheduling-system/internal/core/domain"
)

const (
	collectionUsers        = "users"
	collectionWorkers      = "workers"
	collectionAppointments = "appointments"
)

// WorkerLocker serializes appointment commits per worker. Acquire blocks (up
// to its own bounded retry budget) until the worker's lock is held, then
// returns a release function.
type WorkerLocker interface {
	Acquire(ctx context.Context, workerID string) (release func(), err error)
}

// SchedulingStore implements ports.SchedulingStore on MongoDB. The
// check-then-write race inherent in "count overlaps, then insert" is closed
// by taking a per-worker lock around both steps inside the commit methods, so
// two concurrent bookings for the same worker cannot both pass the re-check.
type SchedulingStore struct {
	db    *mongo.Database
	locks WorkerLocker
}

func NewSchedulingStore(db *mongo.Database, locks WorkerLocker) *SchedulingStore {
	return &SchedulingStore{db: db, locks: locks}
}

func (s *SchedulingStore) users() *mongo.Collection        { return s.db.Collection(collectionUsers) }
func (s *SchedulingStore) workers() *mongo.Collection      { return s.db.Collection(collectionWorkers) }
func (s *SchedulingStore) appointments() *mongo.Collection { return s.db.Collection(collectionAppointments) }

func (s *SchedulingStore) FindUser(ctx context.Context, userID string) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var u domain.User
	if err := s.users().FindOne(ctx, bson.M{"user_id": userID}).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

// FindWorkerByName retrieves a worker by case-insensitive exact name match.
func (s *SchedulingStore) FindWorkerByName(ctx context.Context, name string) (*domain.Worker, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{"name": bson.M{
		"$regex":   "^" + regexp.QuoteMeta(name) + "$",
		"$options": "i",
	}}

	var w domain.Worker
	if err := s.workers().FindOne(ctx, filter).Decode(&w); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrWorkerNotFound
		}
		return nil, err
	}
	return &w, nil
}

func (s *SchedulingStore) FindWorkerByID(ctx context.Context, workerID string) (*domain.Worker, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var w domain.Worker
	if err := s.workers().FindOne(ctx, bson.M{"worker_id": workerID}).Decode(&w); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrWorkerNotFound
		}
		return nil, err
	}
	return &w, nil
}

func (s *SchedulingStore) ListWorkerNames(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	raw, err := s.workers().Distinct(ctx, "name", bson.M{})
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(raw))
	for _, v := range raw {
		if name, ok := v.(string); ok {
			names = append(names, name)
		}
	}
	return names, nil
}

// overlapFilter matches non-terminal appointments of the worker whose
// half-open interval intersects [start, end).
func overlapFilter(workerID string, start, end time.Time, excludeID string) bson.M {
	filter := bson.M{
		"worker_id":  workerID,
		"status":     bson.M{"$nin": []string{string(domain.StatusCancelled), string(domain.StatusRescheduled)}},
		"start_time": bson.M{"$lt": end},
		"end_time":   bson.M{"$gt": start},
	}
	if excludeID != "" {
		filter["appointment_id"] = bson.M{"$ne": excludeID}
	}
	return filter
}

func (s *SchedulingStore) CountOverlaps(ctx context.Context, workerID string, start, end time.Time, excludeID string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	return s.appointments().CountDocuments(ctx, overlapFilter(workerID, start.UTC(), end.UTC(), excludeID))
}

func (s *SchedulingStore) FindAppointment(ctx context.Context, appointmentID, userID string) (*domain.Appointment, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var a domain.Appointment
	err := s.appointments().FindOne(ctx, bson.M{
		"appointment_id": appointmentID,
		"user_id":        userID,
	}).Decode(&a)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrAppointmentNotFound
		}
		return nil, err
	}
	return &a, nil
}

// FindAppointmentNear returns the first non-cancelled appointment of the user
// with the worker whose start falls within [center-window, center+window].
func (s *SchedulingStore) FindAppointmentNear(ctx context.Context, userID, workerID string, center time.Time, window time.Duration) (*domain.Appointment, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	center = center.UTC()
	filter := bson.M{
		"user_id":   userID,
		"worker_id": workerID,
		"status":    bson.M{"$ne": string(domain.StatusCancelled)},
		"start_time": bson.M{
			"$gte": center.Add(-window),
			"$lte": center.Add(window),
		},
	}
	opts := options.FindOne().SetSort(bson.D{{Key: "start_time", Value: 1}})

	var a domain.Appointment
	if err := s.appointments().FindOne(ctx, filter, opts).Decode(&a); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrAppointmentNotFound
		}
		return nil, err
	}
	return &a, nil
}

// CommitAppointment inserts the appointment if its interval is still free.
// The overlap predicate is re-checked under the worker's lock, which makes
// the check-and-insert atomic with respect to other commits for this worker.
func (s *SchedulingStore) CommitAppointment(ctx context.Context, appt *domain.Appointment) error {
	release, err := s.locks.Acquire(ctx, appt.WorkerID)
	if err != nil {
		return err
	}
	defer release()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	conflicts, err := s.appointments().CountDocuments(ctx,
		overlapFilter(appt.WorkerID, appt.StartTime.UTC(), appt.EndTime.UTC(), ""))
	if err != nil {
		return err
	}
	if conflicts > 0 {
		return domain.ErrSlotTaken
	}

	stored := *appt
	stored.StartTime = appt.StartTime.UTC()
	stored.EndTime = appt.EndTime.UTC()
	stored.CreatedAt = appt.CreatedAt.UTC()

	_, err = s.appointments().InsertOne(ctx, &stored)
	return err
}

// CommitReschedule updates start/end in place and marks the appointment
// rescheduled, if the new interval is still free for its worker.
func (s *SchedulingStore) CommitReschedule(ctx context.Context, appointmentID, userID string, start, end time.Time) error {
	existing, err := s.FindAppointment(ctx, appointmentID, userID)
	if err != nil {
		return err
	}

	release, err := s.locks.Acquire(ctx, existing.WorkerID)
	if err != nil {
		return err
	}
	defer release()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	conflicts, err := s.appointments().CountDocuments(ctx,
		overlapFilter(existing.WorkerID, start.UTC(), end.UTC(), appointmentID))
	if err != nil {
		return err
	}
	if conflicts > 0 {
		return domain.ErrSlotTaken
	}

	res, err := s.appointments().UpdateOne(ctx,
		bson.M{"appointment_id": appointmentID, "user_id": userID},
		bson.M{"$set": bson.M{
			"start_time": start.UTC(),
			"end_time":   end.UTC(),
			"status":     string(domain.StatusRescheduled),
		}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrAppointmentNotFound
	}
	return nil
}

func (s *SchedulingStore) CancelAppointment(ctx context.Context, appointmentID, userID string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := s.appointments().UpdateOne(ctx,
		bson.M{"appointment_id": appointmentID, "user_id": userID},
		bson.M{"$set": bson.M{"status": string(domain.StatusCancelled)}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrAppointmentNotFound
	}
	return nil
}

func (s *SchedulingStore) ListUserAppointments(ctx context.Context, userID string) ([]*domain.Appointment, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{
		"user_id": userID,
		"status":  bson.M{"$ne": string(domain.StatusCancelled)},
	}
	opts := options.Find().SetSort(bson.D{{Key: "start_time", Value: -1}})

	cur, err := s.appointments().Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []*domain.Appointment
	for cur.Next(ctx) {
		var a domain.Appointment
		if err := cur.Decode(&a); err != nil {
			return nil, err
		}
		out = append(out, &a)
	}
	return out, cur.Err()
}

// EnsureIndexes creates the indexes the overlap and lookup queries rely on.
func (s *SchedulingStore) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	apptIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "appointment_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "worker_id", Value: 1}, {Key: "start_time", Value: 1}}},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "start_time", Value: -1}}},
	}
	if _, err := s.appointments().Indexes().CreateMany(ctx, apptIndexes); err != nil {
		return err
	}

	workerIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "worker_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "name", Value: 1}}},
	}
	if _, err := s.workers().Indexes().CreateMany(ctx, workerIndexes); err != nil {
		return err
	}

	_, err := s.users().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}
