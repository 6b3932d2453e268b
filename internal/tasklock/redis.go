package tasklock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"server/internal/infra"
)

// RedisLocker implements Locker against a shared Redis store. Acquire is a
// single atomic SET NX EX, so two concurrent acquires for the same key
// resolve to exactly one holder.
type RedisLocker struct {
	rdb    *redis.Client
	logger infra.Logger
}

// NewRedisLocker wraps an already connected Redis client.
func NewRedisLocker(rdb *redis.Client, logger infra.Logger) *RedisLocker {
	return &RedisLocker{rdb: rdb, logger: logger}
}

// Acquire sets the lock key if absent, with expiry.
func (l *RedisLocker) Acquire(ctx context.Context, name string, args []string, ttl time.Duration) (bool, error) {
	key := Key(name, args)
	token := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		l.logger.Error().Err(err).Str("lock_key", key).Msg("tasklock: redis acquire failed")
		return false, err
	}
	return ok, nil
}

// Release deletes the lock key. Releasing a lock that expired or was never
// held is not an error; the lock is advisory.
func (l *RedisLocker) Release(ctx context.Context, name string, args []string) error {
	if err := l.rdb.Del(ctx, Key(name, args)).Err(); err != nil {
		l.logger.Error().Err(err).Msg("tasklock: redis release failed")
		return err
	}
	return nil
}

// IsLocked reports whether the key currently exists.
func (l *RedisLocker) IsLocked(ctx context.Context, name string, args []string) (bool, error) {
	_, err := l.rdb.Get(ctx, Key(name, args)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

var _ Locker = (*RedisLocker)(nil)
