// Package lock serializes payment initiation per application. Two concurrent
// initiate calls for one application must not both reach the ledger; the lock
// closes the race window and the store's unique partial index backstops it.
package lock

import (
	"context"
	"time"
)

// Locker grants short-lived exclusive locks keyed by application ID.
type Locker interface {
	// Acquire returns a release function, or sentinel.ErrConflict when the
	// lock is already held.
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}
