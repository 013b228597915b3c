package redis

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var (
	// ErrLockNotAcquired is returned when a lock cannot be acquired before the wait deadline
	ErrLockNotAcquired = errors.New("lock not acquired")
	// ErrLockNotHeld is returned when releasing a lock that expired or changed owner
	ErrLockNotHeld = errors.New("lock not held")
)

const (
	defaultKeyPrefix = "identity:lock:"
	initialBackoff   = 10 * time.Millisecond
	maxBackoff       = 500 * time.Millisecond
	releaseTimeout   = 2 * time.Second
)

var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

type heldLock struct {
	key   string
	token string
}

// Locker serializes identity resolutions across processes. Each resolution
// key maps to one Redis key held with SET NX and released with a
// compare-and-delete script.
type Locker struct {
	client    *Client
	keyPrefix string
	ttl       time.Duration
	wait      time.Duration
}

// NewLocker creates a Locker. ttl bounds how long a crashed holder keeps a
// key; wait bounds how long Lock retries before giving up.
//
// Leases are never extended, so ttl must exceed the longest a holder can
// run (the request timeout). A holder that outlives its lease loses the key
// silently and its release only logs ErrLockNotHeld.
func NewLocker(client *Client, keyPrefix string, ttl, wait time.Duration) *Locker {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	return &Locker{
		client:    client,
		keyPrefix: keyPrefix,
		ttl:       ttl,
		wait:      wait,
	}
}

// Lock acquires every key in sorted order and returns a release func.
// On failure any keys already taken are released before returning.
func (l *Locker) Lock(ctx context.Context, keys []string) (func(), error) {
	ordered := slices.Compact(slices.Sorted(slices.Values(keys)))
	held := make([]heldLock, 0, len(ordered))

	deadline := time.Now().Add(l.wait)
	for _, key := range ordered {
		lock, err := l.acquire(ctx, l.keyPrefix+key, deadline)
		if err != nil {
			l.releaseAll(held)
			return nil, fmt.Errorf("failed to lock %s: %w", key, err)
		}
		held = append(held, lock)
	}

	return func() { l.releaseAll(held) }, nil
}

func (l *Locker) acquire(ctx context.Context, key string, deadline time.Time) (heldLock, error) {
	token := uuid.New().String()
	backoff := initialBackoff

	for {
		ok, err := l.client.rdb.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return heldLock{}, err
		}
		if ok {
			l.client.logger.Debug("acquired lock", zap.String("key", key))
			return heldLock{key: key, token: token}, nil
		}
		if !time.Now().Before(deadline) {
			return heldLock{}, ErrLockNotAcquired
		}

		select {
		case <-ctx.Done():
			return heldLock{}, ctx.Err()
		case <-time.After(backoff):
			backoff = nextBackoff(backoff)
		}
	}
}

func nextBackoff(current time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

// releaseAll runs detached from the request context so a cancelled request
// still frees its keys.
func (l *Locker) releaseAll(held []heldLock) {
	ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()

	for i := len(held) - 1; i >= 0; i-- {
		if err := l.release(ctx, held[i]); err != nil {
			l.client.logger.Warn("failed to release lock", zap.String("key", held[i].key), zap.Error(err))
		}
	}
}

func (l *Locker) release(ctx context.Context, lock heldLock) error {
	result, err := releaseScript.Run(ctx, l.client.rdb, []string{lock.key}, lock.token).Int64()
	if err != nil {
		return err
	}
	if result == 0 {
		return ErrLockNotHeld
	}
	l.client.logger.Debug("released lock", zap.String("key", lock.key))
	return nil
}
