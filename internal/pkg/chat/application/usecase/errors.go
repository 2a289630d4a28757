package usecase

import (
	"errors"
	"fmt"

	chat "birdconnect/internal/pkg/chat/application/domain"
)

// ErrPersistence indicates an infrastructure/repository failure inside a use case.
// Nothing was committed, or the outcome is unknown; the caller may retry.
var ErrPersistence = fmt.Errorf("chat use case persistence error")

// IsRetryable reports whether err is a transient store failure.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrPersistence)
}

// storeError passes domain classes reported by adapters through unchanged and
// wraps everything else as ErrPersistence. The cause stays matchable, so
// errors.Is(err, context.Canceled) still works on the result.
func storeError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, chat.ErrNotFound) || errors.Is(err, chat.ErrUnauthorized) || errors.Is(err, chat.ErrInvalidInput) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrPersistence, err)
}
