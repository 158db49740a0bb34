package ports

import (
	"context"
	"time"
)

// UnlockFunc releases a lock.
type UnlockFunc func(ctx context.Context) error

// Locker guards a migration against concurrent runs, across processes when the
// implementation is distributed.
type Locker interface {
	// Lock blocks until the lock for key is held or ctx is done. ttl bounds how long an
	// abandoned lock survives its holder. The returned UnlockFunc must be called.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
