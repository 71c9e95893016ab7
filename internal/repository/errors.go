package repository

import (
	"context"
	"errors"
	"fmt"

	app_errors "chatstore/internal/errors"
	"chatstore/internal/storage"
)

// This file translates backend and codec failures into the application's
// sentinel errors, so callers never depend on a particular storage driver.

// storageError wraps err with the matching application sentinel. Decode
// failures of a stored record count as storage I/O errors.
func storageError(op, chatID string, err error) error {
	switch {
	case errors.Is(err, storage.ErrRecordNotFound):
		return fmt.Errorf("%w: %s chat %s", app_errors.ErrNotFound, op, chatID)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("%w: %s chat %s: %w", app_errors.ErrStorageIO, op, chatID, err)
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, app_errors.ErrNotFound)
}
