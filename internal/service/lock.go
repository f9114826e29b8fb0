package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrLockBusy is returned by a Locker when another holder owns the key.
	ErrLockBusy = errors.New("lock busy")
	// ErrLockUnavailable means the lock backend could not be asked at all.
	ErrLockUnavailable = errors.New("lock unavailable")
)

// Locker serializes work on a key across processes. Acquire does not wait:
// a held key fails fast with ErrLockBusy.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// RedsyncLocker implements Locker on Redis with redsync.
type RedsyncLocker struct {
	rs  *redsync.Redsync
	ttl time.Duration
}

// NewRedsyncLocker returns nil when rdb is nil; callers then run unlocked
// and rely on the live payment index alone.
func NewRedsyncLocker(rdb *redis.Client, ttl time.Duration) Locker {
	if rdb == nil {
		return nil
	}
	return &RedsyncLocker{rs: redsync.New(goredis.NewPool(rdb)), ttl: ttl}
}

func (l *RedsyncLocker) Acquire(ctx context.Context, key string) (func(), error) {
	m := l.rs.NewMutex("lock:"+key, redsync.WithExpiry(l.ttl), redsync.WithTries(1))
	if err := m.LockContext(ctx); err != nil {
		if lockTaken(err) {
			return nil, ErrLockBusy
		}
		return nil, fmt.Errorf("%w: %v", ErrLockUnavailable, err)
	}
	return func() {
		if _, err := m.UnlockContext(context.Background()); err != nil {
			log.Printf("lock: release %s: %v", key, err)
		}
	}, nil
}

// lockTaken reports whether redsync failed because another holder owns the
// key, as opposed to Redis being unreachable.
func lockTaken(err error) bool {
	var (
		taken     *redsync.ErrTaken
		nodeTaken *redsync.ErrNodeTaken
		redisErr  *redsync.RedisError
	)
	switch {
	case errors.As(err, &taken), errors.As(err, &nodeTaken):
		return true
	case errors.As(err, &redisErr):
		return false
	}
	return errors.Is(err, redsync.ErrFailed)
}
