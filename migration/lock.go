/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package migration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/acronis/go-appkit/log"
	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
)

const (
	// lockVersion is the sentinel version of the lock row in the state table.
	// QueryApplied filters on version > 0, so the row never shows up as an applied migration.
	lockVersion = -1

	// lockName is the name stored in the lock row.
	lockName = "LOCK"
)

// DefaultLockTimeout is the default bound on waiting for the migration lock.
const DefaultLockTimeout = time.Minute

const (
	lockRetryInitialInterval = 100 * time.Millisecond
	lockRetryMaxInterval     = 2 * time.Second
	lockReleaseTimeout       = 10 * time.Second
)

// LockCoordinator serializes migration runs across processes using a sentinel
// row in the migration state table. Insert of the row acquires the lock,
// delete releases it. A unique holder token is stored in the row's checksum
// column for diagnostics.
type LockCoordinator struct {
	store   *StateStore
	logger  log.FieldLogger
	timeout time.Duration
}

// NewLockCoordinator creates a new LockCoordinator on top of the passed store.
func NewLockCoordinator(store *StateStore, logger log.FieldLogger, timeout time.Duration) *LockCoordinator {
	if timeout <= 0 {
		timeout = DefaultLockTimeout
	}
	return &LockCoordinator{store: store, logger: logger, timeout: timeout}
}

// Acquire inserts the lock row, retrying with backoff while another process
// holds it. If the lock is not acquired within the coordinator's timeout,
// a LockTimeoutError is returned.
func (c *LockCoordinator) Acquire(ctx context.Context) error {
	token := uuid.NewString()
	rec := AppliedRecord{
		Version:   lockVersion,
		Name:      lockName,
		Checksum:  token,
		AppliedAt: time.Now().UTC(),
		Success:   true,
	}

	bOff := backoff.NewExponentialBackOff()
	bOff.InitialInterval = lockRetryInitialInterval
	bOff.MaxInterval = lockRetryMaxInterval
	bOff.MaxElapsedTime = c.timeout

	tryAcquire := func() error {
		err := c.store.Insert(ctx, c.store.db, rec)
		if err == nil {
			return nil
		}
		if c.store.IsDuplicateKeyError(err) {
			return ErrLockAlreadyHeld
		}
		return backoff.Permanent(err)
	}
	if err := backoff.Retry(tryAcquire, backoff.WithContext(bOff, ctx)); err != nil {
		if errors.Is(err, ErrLockAlreadyHeld) {
			return &LockTimeoutError{Timeout: c.timeout}
		}
		var permanentErr *backoff.PermanentError
		if errors.As(err, &permanentErr) {
			err = permanentErr.Err
		}
		return fmt.Errorf("acquire migration lock: %w", err)
	}

	c.logger.Info(fmt.Sprintf("migration lock acquired, holder token %s", token))
	return nil
}

// Release deletes the lock row. ErrLockNotHeld is returned when the row was
// already gone, which indicates a coordination bug or manual intervention.
func (c *LockCoordinator) Release(ctx context.Context) error {
	existed, err := c.store.Delete(ctx, c.store.db, lockVersion)
	if err != nil {
		return fmt.Errorf("release migration lock: %w", err)
	}
	if !existed {
		return ErrLockNotHeld
	}
	c.logger.Info("migration lock released")
	return nil
}

// WithLock runs fn under the migration lock. The lock is released on every
// exit path, including fn returning an error or panicking. Release uses a
// fresh context so that a canceled caller context cannot leave the lock stuck.
func (c *LockCoordinator) WithLock(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := c.Acquire(ctx); err != nil {
		return err
	}
	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), lockReleaseTimeout)
		defer cancel()
		if err := c.Release(releaseCtx); err != nil {
			c.logger.Error(fmt.Sprintf("failed to release migration lock: %v", err))
		}
	}()
	return fn(ctx)
}
