// Package tasklock provides an advisory, time-bounded mutual exclusion
// signal keyed by task identity and arguments. It prevents duplicate work,
// never duplicate correctness: the document store stays the single source of
// truth and losing a lock race must not corrupt it.
package tasklock

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Locker grants an at-most-one-holder lock per (name, args) key until the
// TTL expires or the holder releases it.
type Locker interface {
	// Acquire returns true when the caller now holds the lock, false when
	// another holder already does.
	Acquire(ctx context.Context, name string, args []string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, name string, args []string) error
	IsLocked(ctx context.Context, name string, args []string) (bool, error)
}

// Key derives the deterministic lock key for a task invocation. Arguments
// are hashed so arbitrary values cannot produce colliding or malformed keys.
func Key(name string, args []string) string {
	h := sha256.Sum256([]byte(strings.Join(args, "\x1f")))
	return "task_lock:" + name + ":" + hex.EncodeToString(h[:])[:32]
}
