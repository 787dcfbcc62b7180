package cache

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLeaseHeld is returned by Acquire when another holder owns the lease.
var ErrLeaseHeld = errors.New("lease held by another instance")

// releaseScript deletes the lease key only when the stored token matches,
// so a holder whose lease expired cannot release a successor's lease.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Lease is a crash-safe, time-bounded mutual exclusion primitive backed by
// Redis SET NX PX. The TTL bounds how long a crashed holder can block
// successors; no manual cleanup is ever required.
type Lease struct {
	rdb   *redis.Client
	key   string
	ttl   time.Duration
	token string
}

// NewLease returns a lease on the given key. The TTL should comfortably
// exceed the expected hold time.
func NewLease(rdb *redis.Client, key string, ttl time.Duration) *Lease {
	return &Lease{rdb: rdb, key: key, ttl: ttl}
}

// Acquire attempts to take the lease. It returns ErrLeaseHeld when another
// instance currently owns it. With no Redis client configured the lease
// degrades to a no-op grant (single-instance deployments).
func (l *Lease) Acquire(ctx context.Context) error {
	if l.rdb == nil {
		return nil
	}
	token := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrLeaseHeld
	}
	l.token = token
	return nil
}

// Release gives the lease back if this instance still holds it. Releasing
// an expired or never-acquired lease is a no-op.
func (l *Lease) Release(ctx context.Context) error {
	if l.rdb == nil || l.token == "" {
		return nil
	}
	defer func() { l.token = "" }()
	return releaseScript.Run(ctx, l.rdb, []string{l.key}, l.token).Err()
}
