package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"
)

// FileStore persists one JSON envelope per key under a base directory.
// Values must be JSON documents so the files stay readable on disk.
type FileStore struct {
	mu       sync.Mutex
	baseDir  string
	maxBytes int64
}

type fileEnvelope struct {
	Version int64           `json:"version"`
	Deleted bool            `json:"deleted,omitempty"`
	Value   json.RawMessage `json:"value,omitempty"`
}

// NewFileStore ensures the base directory exists and returns a handle.
func NewFileStore(baseDir string, maxBytes int64) (*FileStore, error) {
	if baseDir == "" {
		baseDir = "./data"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	return &FileStore{baseDir: baseDir, maxBytes: maxBytes}, nil
}

func (s *FileStore) Get(ctx context.Context, key string) (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	env, err := s.read(key)
	if err != nil {
		return nil, err
	}
	if env == nil || env.Deleted {
		return nil, ErrNotFound
	}
	return &Document{Value: []byte(env.Value), Version: env.Version}, nil
}

func (s *FileStore) Set(ctx context.Context, key string, value []byte, expectedVersion int64) (int64, error) {
	if err := checkQuota(s.maxBytes, value); err != nil {
		return 0, err
	}
	if !json.Valid(value) {
		return 0, fmt.Errorf("%w: key %s: file store accepts JSON only", ErrMalformed, key)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	env, err := s.read(key)
	if err != nil {
		return 0, err
	}
	var current int64
	exists := false
	if env != nil {
		current = env.Version
		exists = !env.Deleted
	}
	if err := checkVersion(current, exists, expectedVersion); err != nil {
		return 0, err
	}
	next := current + 1
	if err := s.write(key, fileEnvelope{Version: next, Value: json.RawMessage(value)}); err != nil {
		return 0, err
	}
	return next, nil
}

// Delete leaves a tombstone so the version sequence survives recreation.
func (s *FileStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	env, err := s.read(key)
	if errors.Is(err, ErrMalformed) {
		if rmErr := os.Remove(s.Path(key)); rmErr != nil && !os.IsNotExist(rmErr) {
			return fmt.Errorf("delete %s: %w", key, rmErr)
		}
		return nil
	}
	if err != nil {
		return err
	}
	if env == nil || env.Deleted {
		return nil
	}
	return s.write(key, fileEnvelope{Version: env.Version, Deleted: true})
}

func (s *FileStore) Close() error { return nil }

// Path exposes the file backing key (useful for debugging).
func (s *FileStore) Path(key string) string {
	return filepath.Join(s.baseDir, url.PathEscape(key)+".json")
}

func (s *FileStore) read(key string) (*fileEnvelope, error) {
	raw, err := os.ReadFile(s.Path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	var env fileEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: key %s: %v", ErrMalformed, key, err)
	}
	return &env, nil
}

func (s *FileStore) write(key string, env fileEnvelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	tmp, err := os.CreateTemp(s.baseDir, ".kv-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck
	if _, err := tmp.Write(payload); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.Path(key)); err != nil {
		return fmt.Errorf("replace %s: %w", key, err)
	}
	return nil
}
