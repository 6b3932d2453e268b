package tasklock

import (
	"context"
	"sync"
	"time"
)

// MemoryLocker reproduces the Redis lock atomicity within a single process.
// It does NOT exclude across processes; use it only for single-process
// deployments and tests. State lives in the struct, owned by whoever built
// it at bootstrap, so tests never leak locks into each other.
type MemoryLocker struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

// NewMemoryLocker creates an empty in-process locker.
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

// Acquire takes the lock when the key is absent or its previous holder
// expired.
func (l *MemoryLocker) Acquire(ctx context.Context, name string, args []string, ttl time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	key := Key(name, args)
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if expires, ok := l.entries[key]; ok && now.Before(expires) {
		return false, nil
	}
	l.entries[key] = now.Add(ttl)
	return true, nil
}

// Release drops the lock entry if present.
func (l *MemoryLocker) Release(ctx context.Context, name string, args []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, Key(name, args))
	return nil
}

// IsLocked reports whether a non-expired entry exists. Expired entries are
// removed lazily here rather than by a background sweeper.
func (l *MemoryLocker) IsLocked(ctx context.Context, name string, args []string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	key := Key(name, args)

	l.mu.Lock()
	defer l.mu.Unlock()

	expires, ok := l.entries[key]
	if !ok {
		return false, nil
	}
	if !l.now().Before(expires) {
		delete(l.entries, key)
		return false, nil
	}
	return true, nil
}

var _ Locker = (*MemoryLocker)(nil)
