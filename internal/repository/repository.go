package repository

import (
	"context"
	"fmt"
	"time"

	app_errors "chatstore/internal/errors"
)

// Locker serialises read-modify-write sequences per chat id.
// *lock.KeyedMutex is the production implementation.
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

// withChatLock runs fn while holding the write lock of chatID. Waiting is
// bounded by ctx and by timeout (when positive). Once the lock is held fn
// runs with a context that is not cancelled by the caller, so a client
// that disconnects mid-write cannot interrupt a publish that has started.
func withChatLock(ctx context.Context, locks Locker, timeout time.Duration, chatID string, fn func(ctx context.Context) error) error {
	lockCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		lockCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	unlock, err := locks.Lock(lockCtx, chatID)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: chat %s: %w", app_errors.ErrConcurrentWrite, chatID, err)
	}
	defer unlock()

	return fn(context.WithoutCancel(ctx))
}
