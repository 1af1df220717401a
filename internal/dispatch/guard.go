package dispatch

import (
	"context"
	"time"
)

// Guard provides per-note mutual exclusion across dispatch paths. Workers
// acquire the note's work-item key before a delivery attempt so that
// overlapping discovery sweeps, the retry scanner, and replay can never drive
// two concurrent attempts for the same note.
type Guard interface {
	// Acquire claims key for ttl. It returns false without error when the key
	// is already held by another worker.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Release drops a held key. Releasing a key that expired or is held by
	// someone else is a no-op.
	Release(ctx context.Context, key string) error
}
