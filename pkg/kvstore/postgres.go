package kvstore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// Migrate creates the kv_documents table using the embedded goose migrations.
func Migrate(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if err := gooseUpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("migrate kv_documents: %w", err)
	}
	return nil
}

// A NULL value marks a deleted key; the row keeps its version.
const (
	pgSelectDocument = `SELECT value, version FROM kv_documents WHERE key = $1 AND value IS NOT NULL`
	pgInsertDocument = `INSERT INTO kv_documents (key, value, version, updated_at)
VALUES ($1, $2::jsonb, 1, NOW())
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, version = kv_documents.version + 1, updated_at = NOW()
WHERE kv_documents.value IS NULL
RETURNING version`
	pgUpsertDocument = `INSERT INTO kv_documents (key, value, version, updated_at)
VALUES ($1, $2::jsonb, 1, NOW())
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, version = kv_documents.version + 1, updated_at = NOW()
RETURNING version`
	pgUpdateDocument = `UPDATE kv_documents SET value = $2::jsonb, version = version + 1, updated_at = NOW()
WHERE key = $1 AND version = $3 AND value IS NOT NULL
RETURNING version`
	pgDeleteDocument = `UPDATE kv_documents SET value = NULL, updated_at = NOW() WHERE key = $1 AND value IS NOT NULL`
)

type pgDocument struct {
	Value   []byte `db:"value"`
	Version int64  `db:"version"`
}

// PostgresStore keeps documents in the kv_documents table.
type PostgresStore struct {
	db       *sqlx.DB
	maxBytes int64
}

// NewPostgresStore wraps an open connection. Call Migrate before first use.
func NewPostgresStore(db *sqlx.DB, maxBytes int64) *PostgresStore {
	return &PostgresStore{db: db, maxBytes: maxBytes}
}

func (s *PostgresStore) Get(ctx context.Context, key string) (*Document, error) {
	var row pgDocument
	if err := s.db.GetContext(ctx, &row, pgSelectDocument, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select %s: %w", key, err)
	}
	return &Document{Value: row.Value, Version: row.Version}, nil
}

func (s *PostgresStore) Set(ctx context.Context, key string, value []byte, expectedVersion int64) (int64, error) {
	if err := checkQuota(s.maxBytes, value); err != nil {
		return 0, err
	}

	var (
		version int64
		err     error
	)
	switch {
	case expectedVersion == AnyVersion:
		err = s.db.QueryRowxContext(ctx, pgUpsertDocument, key, string(value)).Scan(&version)
	case expectedVersion == 0:
		err = s.db.QueryRowxContext(ctx, pgInsertDocument, key, string(value)).Scan(&version)
	case expectedVersion > 0:
		err = s.db.QueryRowxContext(ctx, pgUpdateDocument, key, string(value), expectedVersion).Scan(&version)
	default:
		return 0, fmt.Errorf("invalid expected version %d", expectedVersion)
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrVersionConflict
		}
		return 0, fmt.Errorf("write %s: %w", key, err)
	}
	return version, nil
}

func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, pgDeleteDocument, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
