package licenses

import (
	"context"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/gymdesk-backend/pkg/errors"
	"github.com/angelmondragon/gymdesk-backend/pkg/logger"
)

const lockRetryInterval = 50 * time.Millisecond

// Locker serialises activations of one gym across API instances.
type Locker interface {
	Acquire(ctx context.Context, gymID string) (release func(), err error)
}

type lockClient interface {
	AcquireLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key, token string) (bool, error)
	ActivationLockKey(gymID string) string
}

// RedisLocker takes a per-gym SETNX lock. Redis errors fail open: the
// transactional guarantees in the store still hold without the lock.
type RedisLocker struct {
	client lockClient
	ttl    time.Duration
	wait   time.Duration
	retry  time.Duration
	logg   *logger.Logger
}

// NewRedisLocker returns a locker whose lock expires after ttl. Callers wait
// at most ttl for a held lock.
func NewRedisLocker(client lockClient, ttl time.Duration, logg *logger.Logger) *RedisLocker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &RedisLocker{client: client, ttl: ttl, wait: ttl, retry: lockRetryInterval, logg: logg}
}

func (l *RedisLocker) Acquire(ctx context.Context, gymID string) (func(), error) {
	key := l.client.ActivationLockKey(gymID)
	token := uuid.NewString()
	deadline := time.Now().Add(l.wait)

	for {
		ok, err := l.client.AcquireLock(ctx, key, token, l.ttl)
		if err != nil {
			l.logg.Warn(l.logg.WithField(ctx, "error", err.Error()), "license.activation_lock.unavailable")
			return func() {}, nil
		}
		if ok {
			return func() {
				if _, err := l.client.ReleaseLock(context.WithoutCancel(ctx), key, token); err != nil {
					l.logg.Warn(l.logg.WithField(ctx, "error", err.Error()), "license.activation_lock.release_failed")
				}
			}, nil
		}
		if time.Now().After(deadline) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "license activation already in progress")
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.retry):
		}
	}
}
