package booking

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Locker serialises booking attempts per business so the conflict recheck
// and the insert behave as a single writer. The database exclusion
// constraint remains the backstop if locking is unavailable.
type Locker interface {
	Acquire(ctx context.Context, businessID string) (release func(), err error)
}

var ErrLockUnavailable = errors.New("booking lock unavailable")

// RedisLocker takes a per-business lease with SET NX PX. Suitable when
// several service instances book concurrently.
type RedisLocker struct {
	rdb    *redis.Client
	lease  time.Duration
	prefix string
}

var redisUnlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

func NewRedisLocker(rdb *redis.Client, lease time.Duration) *RedisLocker {
	if lease <= 0 {
		lease = 5 * time.Second
	}
	return &RedisLocker{rdb: rdb, lease: lease, prefix: "booklock"}
}

func (l *RedisLocker) Acquire(ctx context.Context, businessID string) (func(), error) {
	key := l.prefix + ":" + businessID
	token := uuid.NewString()

	deadline := time.Now().Add(l.lease)
	for {
		ok, err := l.rdb.SetNX(ctx, key, token, l.lease).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			return func() {
				releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				_, _ = redisUnlockScript.Run(releaseCtx, l.rdb, []string{key}, token).Result()
			}, nil
		}
		if time.Now().After(deadline) {
			return nil, ErrLockUnavailable
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(25 * time.Millisecond):
		}
	}
}

// MemoryLocker is the single-instance fallback: one mutex per business.
type MemoryLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{locks: map[string]*sync.Mutex{}}
}

func (l *MemoryLocker) Acquire(_ context.Context, businessID string) (func(), error) {
	l.mu.Lock()
	m, ok := l.locks[businessID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[businessID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock, nil
}
