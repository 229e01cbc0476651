package service

import (
	"errors"

	"github.com/noah-isme/uninotes-api/internal/repository"
	appErrors "github.com/noah-isme/uninotes-api/pkg/errors"
	"github.com/noah-isme/uninotes-api/pkg/kvstore"
)

// storeError maps repository and store failures onto the API error taxonomy.
// message describes the operation that failed.
func storeError(err error, message string) error {
	if err == nil {
		return nil
	}
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, message)
	case errors.Is(err, kvstore.ErrMalformed):
		return appErrors.Wrap(err, appErrors.ErrMalformedData.Code, appErrors.ErrMalformedData.Status, appErrors.ErrMalformedData.Message)
	case errors.Is(err, kvstore.ErrQuotaExceeded):
		return appErrors.Wrap(err, appErrors.ErrStorageQuota.Code, appErrors.ErrStorageQuota.Status, appErrors.ErrStorageQuota.Message)
	case errors.Is(err, repository.ErrWriteConflict), errors.Is(err, kvstore.ErrVersionConflict):
		return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "concurrent update, please retry")
	default:
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
	}
}
