package redisclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrLockNotAcquired is returned when another holder owns the key. Callers
// translate it into their own "busy" error.
var ErrLockNotAcquired = errors.New("lock not acquired")

const releaseTimeout = time.Second

// Locker guards a critical section shared by every API replica. Keys look
// like "room:3" or "stage:payment".
type Locker interface {
	WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

type LockerOption func(*redisLocker)

// WithKeyPrefix namespaces every key, e.g. "clinic" gives "clinic:lock:room:3".
func WithKeyPrefix(prefix string) LockerOption {
	return func(l *redisLocker) { l.prefix = prefix }
}

// WithLockLogger reports locks that could not be released and would only
// clear on TTL expiry.
func WithLockLogger(logger *zap.Logger) LockerOption {
	return func(l *redisLocker) { l.logger = logger }
}

type redisLocker struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
	logger *zap.Logger
}

// NewRedisLocker creates a fail-fast locker backed by SET NX. Each holder
// writes a random token so it can only ever release its own lock.
func NewRedisLocker(client *redis.Client, ttl time.Duration, opts ...LockerOption) Locker {
	l := &redisLocker{client: client, ttl: ttl, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *redisLocker) key(name string) string {
	if l.prefix == "" {
		return "lock:" + name
	}
	return l.prefix + ":lock:" + name
}

// WithLock runs fn while holding key. fn gets a context bounded by the lock
// TTL, so work never outlives the lock it was granted under.
func (l *redisLocker) WithLock(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	key := l.key(name)
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return fmt.Errorf("acquire lock %s: %w", name, err)
	}
	if !ok {
		return ErrLockNotAcquired
	}

	defer func() {
		// A cancelled request must still free the key.
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
		defer cancel()
		released, err := l.release(releaseCtx, key, token)
		switch {
		case err != nil:
			l.logger.Warn("release lock failed", zap.String("key", key), zap.Error(err))
		case !released:
			l.logger.Warn("lock expired before release", zap.String("key", key), zap.Duration("ttl", l.ttl))
		}
	}()

	lockCtx, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()

	return fn(lockCtx)
}

// compare-and-delete
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

func (l *redisLocker) release(ctx context.Context, key, token string) (bool, error) {
	n, err := unlockScript.Run(ctx, l.client, []string{key}, token).Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		return false, fmt.Errorf("release lock: %w", err)
	}
	return n == 1, nil
}
