package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// GetJSON decodes the document at key into dest and returns its version.
// A missing key leaves dest untouched and returns version 0 with ErrNotFound.
func GetJSON(ctx context.Context, s Store, key string, dest interface{}) (int64, error) {
	doc, err := s.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	if err := json.Unmarshal(doc.Value, dest); err != nil {
		return doc.Version, fmt.Errorf("%w: key %s: %v", ErrMalformed, key, err)
	}
	return doc.Version, nil
}

// PutJSON encodes v and writes it under key, honouring expectedVersion.
func PutJSON(ctx context.Context, s Store, key string, v interface{}, expectedVersion int64) (int64, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return 0, fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Set(ctx, key, payload, expectedVersion)
}

// Exists reports whether key holds a document.
func Exists(ctx context.Context, s Store, key string) (bool, error) {
	_, err := s.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
