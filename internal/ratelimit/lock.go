package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock key only while it still holds the caller's
// token. A plain DEL could drop a lease that expired and was re-acquired by
// another instance.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker serializes the scheduler jobs across instances with a redis SETNX
// lease. Losing the lease mid-run is tolerated; the jobs are idempotent.
type Locker struct {
	client *redis.Client
}

// NewLocker returns nil when redis is not configured. A nil Locker never
// grants a lease and TryLock reports the misconfiguration.
func NewLocker(client *redis.Client) *Locker {
	if client == nil {
		return nil
	}
	return &Locker{client: client}
}

// TryLock attempts to take the named lease for ttl. The returned token must
// be handed back to Release.
func (l *Locker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	switch {
	case l == nil || l.client == nil:
		return "", false, errors.New("lock client not configured")
	case key == "":
		return "", false, errors.New("lock key is empty")
	case ttl <= 0:
		return "", false, errors.New("lock ttl must be positive")
	}

	token := uuid.NewString()
	acquired, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return "", false, err
	}
	return token, acquired, nil
}

// Release gives the lease back. Releasing a lease that was never held, or
// that already expired, is a no-op.
func (l *Locker) Release(ctx context.Context, key, token string) error {
	if l == nil || l.client == nil || key == "" || token == "" {
		return nil
	}
	return releaseScript.Run(ctx, l.client, []string{key}, token).Err()
}
