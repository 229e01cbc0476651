package kvstore

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreRoundTripAcrossHandles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := NewFileStore(dir, 0)
	require.NoError(t, err)

	v, err := store.Set(ctx, "uninotes_all_posts", []byte(`[{"id":"1"}]`), 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)

	reopened, err := NewFileStore(dir, 0)
	require.NoError(t, err)
	doc, err := reopened.Get(ctx, "uninotes_all_posts")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"1"}]`, string(doc.Value))
	assert.Equal(t, int64(1), doc.Version)

	_, err = reopened.Set(ctx, "uninotes_all_posts", []byte(`[]`), 0)
	assert.ErrorIs(t, err, ErrVersionConflict)
}

func TestFileStoreDeleteLeavesTombstone(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(t.TempDir(), 0)
	require.NoError(t, err)

	v, err := store.Set(ctx, "k", []byte(`{}`), 0)
	require.NoError(t, err)
	require.NoError(t, store.Delete(ctx, "k"))

	_, err = store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.Set(ctx, "k", []byte(`{}`), v)
	assert.ErrorIs(t, err, ErrVersionConflict)

	next, err := store.Set(ctx, "k", []byte(`{}`), 0)
	require.NoError(t, err)
	assert.Equal(t, v+1, next)
}

func TestFileStoreRejectsInvalidInput(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(t.TempDir(), 8)
	require.NoError(t, err)

	_, err = store.Set(ctx, "k", []byte(`not json`), AnyVersion)
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = store.Set(ctx, "k", []byte(`"0123456789"`), AnyVersion)
	assert.ErrorIs(t, err, ErrQuotaExceeded)
}

func TestFileStoreCorruptFile(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(t.TempDir(), 0)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(store.Path("weird/key"), []byte("garbage"), 0o644))
	_, err = store.Get(ctx, "weird/key")
	assert.ErrorIs(t, err, ErrMalformed)

	require.NoError(t, store.Delete(ctx, "weird/key"))
	_, err = store.Get(ctx, "weird/key")
	assert.ErrorIs(t, err, ErrNotFound)
}
