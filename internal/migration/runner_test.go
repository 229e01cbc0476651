package migration

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/uninotes-api/internal/models"
	"github.com/noah-isme/uninotes-api/internal/repository"
	"github.com/noah-isme/uninotes-api/pkg/kvstore"
)

func putRaw(t *testing.T, store kvstore.Store, key, value string) {
	t.Helper()
	_, err := store.Set(context.Background(), key, []byte(value), kvstore.AnyVersion)
	require.NoError(t, err)
}

func TestRunnerAppliesPendingStepsOnce(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemoryStore(0)
	var calls []int
	step := func(v int) Step {
		return Step{Version: v, Name: "step", Apply: func(context.Context, kvstore.Store) error {
			calls = append(calls, v)
			return nil
		}}
	}
	runner := NewRunnerWithSteps(store, []Step{step(1), step(2)}, nil)

	applied, err := runner.Up(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, applied)

	applied, err = runner.Up(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, applied)
	assert.Equal(t, []int{1, 2}, calls)

	version, err := runner.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, version)

	extended := NewRunnerWithSteps(store, []Step{step(1), step(2), step(3)}, nil)
	applied, err = extended.Up(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, applied)
	assert.Equal(t, []int{1, 2, 3}, calls)
	assert.Equal(t, 3, extended.Latest())
}

func TestRunnerStopsAtFailingStep(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemoryStore(0)
	runner := NewRunnerWithSteps(store, []Step{
		{Version: 1, Name: "ok", Apply: func(context.Context, kvstore.Store) error { return nil }},
		{Version: 2, Name: "boom", Apply: func(context.Context, kvstore.Store) error { return errors.New("boom") }},
	}, nil)

	applied, err := runner.Up(ctx)
	assert.ErrorContains(t, err, "boom")
	assert.Equal(t, 1, applied)

	version, err := runner.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, version)
}

func TestMergeLegacyNoteKeys(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemoryStore(0)
	putRaw(t, store, repository.KeyLegacyUploadedNotes, `[{"id":"1","title":"old"}]`)
	putRaw(t, store, repository.KeyLegacyUserUploads, `[{"id":"2","title":"user"}]`)

	require.NoError(t, MergeLegacyNoteKeys(ctx, store))

	var notes []models.Note
	_, err := kvstore.GetJSON(ctx, store, repository.KeyNotes, &notes)
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, "1", notes[0].ID)
	assert.Equal(t, "2", notes[1].ID)

	for _, key := range []string{repository.KeyLegacyUploadedNotes, repository.KeyLegacyUserUploads} {
		ok, err := kvstore.Exists(ctx, store, key)
		require.NoError(t, err)
		assert.False(t, ok, key)
	}

	// second run is a no-op
	require.NoError(t, MergeLegacyNoteKeys(ctx, store))
	_, err = kvstore.GetJSON(ctx, store, repository.KeyNotes, &notes)
	require.NoError(t, err)
	assert.Len(t, notes, 2)
}

func TestMergeLegacyNoteKeysLeavesLegacyWhenCurrentExists(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemoryStore(0)
	putRaw(t, store, repository.KeyNotes, `[]`)
	putRaw(t, store, repository.KeyLegacyUploadedNotes, `[{"id":"1"}]`)

	require.NoError(t, MergeLegacyNoteKeys(ctx, store))

	ok, err := kvstore.Exists(ctx, store, repository.KeyLegacyUploadedNotes)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMergeLegacyNoteKeysNothingStored(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemoryStore(0)
	require.NoError(t, MergeLegacyNoteKeys(ctx, store))
	for _, key := range []string{repository.KeyNotes, repository.KeyLegacyUploadedNotes, repository.KeyLegacyUserUploads} {
		ok, err := kvstore.Exists(ctx, store, key)
		require.NoError(t, err)
		assert.False(t, ok, key)
	}
}

func TestNormalizeNoteFields(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemoryStore(0)
	putRaw(t, store, repository.KeyNotes, `[
		{"id":1700000000000,"semester":3,"title":"legacy","uploadDate":"2024-01-02T03:04:05Z","type":"IMG","fileData":"data:image/png;base64,AA==","extra":"kept"},
		{"id":"2","title":"bare","createdAt":"2024-02-02T00:00:00Z"}
	]`)

	require.NoError(t, NormalizeNoteFields(ctx, store))

	var notes []models.Note
	_, err := kvstore.GetJSON(ctx, store, repository.KeyNotes, &notes)
	require.NoError(t, err)
	require.Len(t, notes, 2)

	legacy := notes[0]
	assert.Equal(t, "1700000000000", legacy.ID)
	assert.Equal(t, "3", legacy.Semester)
	assert.Equal(t, "2024-01-02T03:04:05Z", legacy.CreatedAt)
	assert.Equal(t, models.FileTypeIMG, legacy.FileType)
	assert.Equal(t, "unknown", legacy.FileName)
	assert.Equal(t, "N/A", legacy.FileSize)
	assert.Equal(t, "Unknown", legacy.Author)
	assert.Equal(t, "Unknown", legacy.UploadedBy)
	assert.Equal(t, models.UploadComplete, legacy.UploadStatus)

	bare := notes[1]
	assert.Equal(t, "2024-02-02T00:00:00Z", bare.UploadDate)
	assert.Equal(t, models.FileTypePDF, bare.FileType)
	assert.Equal(t, models.FileTypePDF, bare.Type)
	assert.Empty(t, bare.UploadStatus)

	var raw []map[string]interface{}
	_, err = kvstore.GetJSON(ctx, store, repository.KeyNotes, &raw)
	require.NoError(t, err)
	assert.Equal(t, "kept", raw[0]["extra"])

	before, err := store.Get(ctx, repository.KeyNotes)
	require.NoError(t, err)
	require.NoError(t, NormalizeNoteFields(ctx, store))
	after, err := store.Get(ctx, repository.KeyNotes)
	require.NoError(t, err)
	assert.Equal(t, before.Version, after.Version, "second pass must not rewrite")
}

func TestDefaultUserRoles(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemoryStore(0)
	putRaw(t, store, repository.KeyUsers, `{"a@x.com":{"email":"a@x.com"},"b@x.com":{"email":"b@x.com","role":"admin"}}`)

	require.NoError(t, DefaultUserRoles(ctx, store))

	var users map[string]models.User
	_, err := kvstore.GetJSON(ctx, store, repository.KeyUsers, &users)
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, users["a@x.com"].Role)
	assert.Equal(t, models.RoleAdmin, users["b@x.com"].Role)
}

func TestDefaultStepsFullRun(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemoryStore(0)
	putRaw(t, store, repository.KeyLegacyUserUploads, `[{"id":"9","title":"from user uploads","uploadDate":"2024-01-01T00:00:00Z"}]`)

	runner := NewRunner(store, nil)
	applied, err := runner.Up(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, applied)

	notes, err := repository.NewNoteRepository(store, 0).GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "2024-01-01T00:00:00Z", notes[0].CreatedAt)
	assert.Equal(t, "Unknown", notes[0].Faculty)
}
