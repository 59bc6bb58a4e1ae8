package redis

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	lockTTL        = 10 * time.Second
	lockRetryDelay = 50 * time.Millisecond
	lockRetries    = 40
)

// releaseScript deletes the lock key only when it still holds our token, so
// a lock that expired and was re-acquired by another request is not released
// from under it.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// WorkerLock serializes appointment commits per worker via Redis.
// Key format: lock:worker:<worker_id>
type WorkerLock struct {
	client *redis.Client
}

// NewWorkerLock creates a WorkerLock wrapping the given Redis client.
func NewWorkerLock(client *redis.Client) *WorkerLock {
	return &WorkerLock{client: client}
}

// Acquire takes the worker's lock, retrying for a bounded interval, and
// returns a release function. The TTL guards against a crashed holder
// leaving the worker permanently locked.
func (l *WorkerLock) Acquire(ctx context.Context, workerID string) (func(), error) {
	key := l.key(workerID)
	token := lockToken()

	for attempt := 0; attempt < lockRetries; attempt++ {
		ok, err := l.client.SetNX(ctx, key, token, lockTTL).Result()
		if err != nil {
			return nil, fmt.Errorf("worker lock: %w", err)
		}
		if ok {
			return func() {
				_, _ = releaseScript.Run(context.Background(), l.client, []string{key}, token).Result()
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockRetryDelay):
		}
	}

	return nil, fmt.Errorf("worker lock: %s not acquired within retry budget", workerID)
}

func (l *WorkerLock) key(workerID string) string {
	return "lock:worker:" + workerID
}

func lockToken() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b)
}
