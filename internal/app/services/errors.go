package services

import (
	"github.com/mrniikke/fitness-challange/internal/pkg/apperrors"
)

// storeFailure keeps categorized errors and marks everything else as a
// retryable store failure.
func storeFailure(err error, message string) error {
	if err == nil {
		return nil
	}
	if apperrors.Is(err, apperrors.ErrValidationFailed,
		apperrors.ErrResourceNotFound,
		apperrors.ErrConflict,
		apperrors.ErrTransientStore,
	) {
		return err
	}
	return apperrors.NewTransientStoreError(err, message)
}
