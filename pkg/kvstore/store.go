// Package kvstore is the document store every repository persists through.
// Each key holds one JSON document plus a version used for compare-and-swap writes.
package kvstore

import (
	"context"
	"errors"
)

// AnyVersion skips the version check on Set.
const AnyVersion int64 = -1

var (
	// ErrNotFound is returned when a key holds no document.
	ErrNotFound = errors.New("kvstore: key not found")
	// ErrVersionConflict is returned when the stored version differs from the expected one.
	ErrVersionConflict = errors.New("kvstore: version conflict")
	// ErrQuotaExceeded is returned when a document exceeds the configured size limit.
	ErrQuotaExceeded = errors.New("kvstore: document exceeds quota")
	// ErrMalformed is returned when a stored document cannot be decoded.
	ErrMalformed = errors.New("kvstore: malformed document")
)

// Document is a stored value and the version it was read at.
type Document struct {
	Value   []byte
	Version int64
}

// Store is implemented by every backend.
//
// Set with expectedVersion 0 requires the key to be absent, a positive value
// requires an exact match, and AnyVersion writes unconditionally. It returns
// the new version.
type Store interface {
	Get(ctx context.Context, key string) (*Document, error)
	Set(ctx context.Context, key string, value []byte, expectedVersion int64) (int64, error)
	Delete(ctx context.Context, key string) error
	Close() error
}

// Observer receives timings for store operations. MetricsService implements it.
type Observer interface {
	ObserveStoreOp(op string, err error, seconds float64)
}

func checkVersion(current int64, exists bool, expected int64) error {
	switch {
	case expected == AnyVersion:
		return nil
	case expected == 0 && exists:
		return ErrVersionConflict
	case expected > 0 && (!exists || current != expected):
		return ErrVersionConflict
	}
	return nil
}

func checkQuota(limit int64, value []byte) error {
	if limit > 0 && int64(len(value)) > limit {
		return ErrQuotaExceeded
	}
	return nil
}
