package repositories

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mrniikke/fitness-challange/internal/pkg/apperrors"
	"github.com/mrniikke/fitness-challange/internal/pkg/dberrors"
)

// storeError classifies a failed statement. Connectivity problems become
// retryable store errors; everything else is wrapped with context.
func storeError(err error, action string) error {
	if err == nil {
		return nil
	}
	if dberrors.IsTransient(err) {
		return apperrors.NewTransientStoreError(err, "failed to "+action)
	}
	return fmt.Errorf("failed to %s: %w", action, err)
}

// notFoundOr maps pgx.ErrNoRows to a not-found error with message
func notFoundOr(err error, message, action string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewResourceNotFoundError(message)
	}
	return storeError(err, action)
}
