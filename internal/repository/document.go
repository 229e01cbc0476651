package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/noah-isme/uninotes-api/pkg/kvstore"
)

var (
	// ErrNotFound is returned when the addressed record does not exist.
	ErrNotFound = errors.New("repository: record not found")
	// ErrWriteConflict is returned when a write kept losing races after every retry.
	ErrWriteConflict = errors.New("repository: write conflict")
)

// DefaultWriteRetries bounds the read-modify-write loop when no value is configured.
const DefaultWriteRetries = 3

// document is one versioned JSON value under a fixed key.
type document[T any] struct {
	store   kvstore.Store
	key     string
	retries int
	empty   func() T
}

func newDocument[T any](store kvstore.Store, key string, retries int, empty func() T) document[T] {
	if retries <= 0 {
		retries = DefaultWriteRetries
	}
	return document[T]{store: store, key: key, retries: retries, empty: empty}
}

// load returns the stored value, or empty() at version 0 when the key is absent.
// A stored JSON null also reads as empty(), keeping its version for the next write.
func (d document[T]) load(ctx context.Context) (T, int64, error) {
	var value *T
	version, err := kvstore.GetJSON(ctx, d.store, d.key, &value)
	if errors.Is(err, kvstore.ErrNotFound) {
		return d.empty(), 0, nil
	}
	if err != nil {
		return d.empty(), 0, fmt.Errorf("load %s: %w", d.key, err)
	}
	if value == nil {
		return d.empty(), version, nil
	}
	return *value, version, nil
}

// mutate applies fn to the current value and writes the result if the version
// has not moved. On conflict the value is re-read and fn runs again. An error
// from fn aborts without writing.
func (d document[T]) mutate(ctx context.Context, fn func(T) (T, error)) (T, error) {
	for attempt := 0; attempt <= d.retries; attempt++ {
		current, version, err := d.load(ctx)
		if err != nil {
			return current, err
		}
		next, err := fn(current)
		if err != nil {
			return current, err
		}
		_, err = kvstore.PutJSON(ctx, d.store, d.key, next, version)
		if errors.Is(err, kvstore.ErrVersionConflict) {
			if err := ctx.Err(); err != nil {
				return current, err
			}
			continue
		}
		if err != nil {
			return current, fmt.Errorf("save %s: %w", d.key, err)
		}
		return next, nil
	}
	return d.empty(), fmt.Errorf("%w: %s after %d attempts", ErrWriteConflict, d.key, d.retries+1)
}

// errUnchanged lets a mutate callback skip the write when nothing changed.
var errUnchanged = errors.New("repository: unchanged")
