package redisclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/hackgods/care-scheduling/internal/apperr"
)

var (
	ErrLockNotAcquired = apperr.Conflict("professional agenda is being booked, please retry")
)

// ProfessionalLocker guards the conflict check and write of a booking per professional.
type ProfessionalLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewProfessionalLocker creates a locker that uses a per professional Redis key
func NewProfessionalLocker(client *redis.Client, ttl time.Duration) *ProfessionalLocker {
	return &ProfessionalLocker{
		client: client,
		ttl:    ttl,
	}
}

func lockKey(professionalID uuid.UUID) string {
	return fmt.Sprintf("lock:professional:%s", professionalID.String())
}

func (l *ProfessionalLocker) WithProfessionalLock(ctx context.Context, professionalID uuid.UUID, fn func(ctx context.Context) error) error {
	key := lockKey(professionalID)
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return apperr.Dependency("acquire professional lock", err)
	}
	if !ok {
		return ErrLockNotAcquired
	}

	defer func() {
		// The caller's context may already be done; release must still run.
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		_ = l.release(releaseCtx, key, token)
	}()

	ctxWithTimeout, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()

	return fn(ctxWithTimeout)
}

var unlockScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

func (l *ProfessionalLocker) release(ctx context.Context, key, token string) error {
	_, err := unlockScript.Run(ctx, l.client, []string{key}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release professional lock: %w", err)
	}
	return nil
}
