package service

import (
	"errors"
	"fmt"

	"github.com/nzoschke/studyvault/internal/metrics"
	"github.com/nzoschke/studyvault/internal/validation"
)

var (
	// ErrInvalidInput is a caller error: bad filename, size or extension.
	ErrInvalidInput = validation.ErrInvalidInput
	// ErrUserNotFound means the identity could not be resolved to an owner.
	ErrUserNotFound = errors.New("user not found")
	// ErrNotFound covers both missing records and records owned by someone else.
	ErrNotFound = errors.New("file not found")
	// ErrStorageFailure means the operation did not complete.
	ErrStorageFailure = errors.New("storage failure")
	// ErrStorageInconsistency is a storage failure after a compensating action ran.
	ErrStorageInconsistency = fmt.Errorf("%w: blob and metadata disagree", ErrStorageFailure)
)

func storageFailure(msg string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorageFailure, msg, err)
}

// result maps an operation error onto its metrics label
func result(err error) string {
	switch {
	case err == nil:
		return metrics.ResultOK
	case errors.Is(err, ErrInvalidInput):
		return metrics.ResultInvalid
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrUserNotFound):
		return metrics.ResultNotFound
	default:
		return metrics.ResultError
	}
}
