package cron

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/tradedesk-backend/pkg/instance"
)

const defaultLockTTL = 10 * time.Minute

// Lock coordinates exclusive cron runs across worker replicas.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// leaseStore is the slice of the redis client a lease needs.
type leaseStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	CompareAndDelete(ctx context.Context, key, expected string) (bool, error)
}

// RedisLock is a TTL lease on one redis key. The value written is a token
// unique to each acquisition, so a worker whose lease expired and was taken
// over cannot delete its successor's key.
type RedisLock struct {
	store leaseStore
	key   string
	ttl   time.Duration
	owner string

	mu    sync.Mutex
	token string
}

// NewRedisLock constructs a lease on key. A non-positive ttl falls back to
// ten minutes.
func NewRedisLock(store leaseStore, key string, ttl time.Duration) (*RedisLock, error) {
	switch {
	case store == nil:
		return nil, errors.New("redis client required for lock")
	case key == "":
		return nil, errors.New("lock key is required")
	case ttl <= 0:
		ttl = defaultLockTTL
	}
	return &RedisLock{store: store, key: key, ttl: ttl, owner: instance.ID("")}, nil
}

// SetOwner prefixes later lease tokens with id so the key shows which worker
// holds it.
func (l *RedisLock) SetOwner(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.owner = instance.ID(id)
}

// Acquire reports whether the caller now holds the lease. An overlapping
// run in the same process loses just like another replica would.
func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.token != "" {
		return false, nil
	}
	token := l.owner + ":" + uuid.NewString()
	won, err := l.store.SetNX(ctx, l.key, token, l.ttl)
	if err != nil {
		return false, fmt.Errorf("acquire lock %s: %w", l.key, err)
	}
	if won {
		l.token = token
	}
	return won, nil
}

// Release gives the lease back. It is a no-op when nothing is held. The token
// is forgotten even when the delete fails; the TTL frees the key instead.
func (l *RedisLock) Release(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.token == "" {
		return nil
	}
	token := l.token
	l.token = ""
	if _, err := l.store.CompareAndDelete(ctx, l.key, token); err != nil {
		return fmt.Errorf("release lock %s: %w", l.key, err)
	}
	return nil
}
