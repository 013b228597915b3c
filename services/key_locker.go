package services

import (
	"context"
	"slices"
	"sync"
)

// KeyLocker serializes resolutions that touch the same email or phone key.
// The returned unlock func releases every key acquired by the call.
type KeyLocker interface {
	Lock(ctx context.Context, keys []string) (unlock func(), err error)
}

// ResolutionKeys returns the lock keys for a request, sorted so that callers
// always acquire overlapping keys in the same order.
func ResolutionKeys(email, phone *string) []string {
	keys := make([]string, 0, 2)
	if email != nil {
		keys = append(keys, "email:"+*email)
	}
	if phone != nil {
		keys = append(keys, "phone:"+*phone)
	}
	slices.Sort(keys)
	return keys
}

// NoopKeyLocker performs no locking.
type NoopKeyLocker struct{}

func (NoopKeyLocker) Lock(context.Context, []string) (func(), error) {
	return func() {}, nil
}

// LocalKeyLocker serializes resolutions inside one process.
type LocalKeyLocker struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	token chan struct{}
	refs  int
}

func NewLocalKeyLocker() *LocalKeyLocker {
	return &LocalKeyLocker{locks: make(map[string]*keyLock)}
}

func (l *LocalKeyLocker) Lock(ctx context.Context, keys []string) (func(), error) {
	keys = slices.Compact(slices.Sorted(slices.Values(keys)))

	acquired := make([]string, 0, len(keys))
	release := func() {
		for i := len(acquired) - 1; i >= 0; i-- {
			l.release(acquired[i])
		}
	}
	for _, key := range keys {
		if err := l.acquire(ctx, key); err != nil {
			release()
			return nil, err
		}
		acquired = append(acquired, key)
	}
	return release, nil
}

func (l *LocalKeyLocker) acquire(ctx context.Context, key string) error {
	l.mu.Lock()
	kl, ok := l.locks[key]
	if !ok {
		kl = &keyLock{token: make(chan struct{}, 1)}
		l.locks[key] = kl
	}
	kl.refs++
	l.mu.Unlock()

	select {
	case kl.token <- struct{}{}:
		return nil
	case <-ctx.Done():
		l.mu.Lock()
		l.unref(key, kl)
		l.mu.Unlock()
		return ctx.Err()
	}
}

func (l *LocalKeyLocker) release(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	kl := l.locks[key]
	<-kl.token
	l.unref(key, kl)
}

// unref must be called with l.mu held.
func (l *LocalKeyLocker) unref(key string, kl *keyLock) {
	kl.refs--
	if kl.refs == 0 {
		delete(l.locks, key)
	}
}
