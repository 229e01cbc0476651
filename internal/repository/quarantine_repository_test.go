package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/uninotes-api/internal/models"
	"github.com/noah-isme/uninotes-api/pkg/kvstore"
)

func TestQuarantineRepositoryAddListTake(t *testing.T) {
	ctx := context.Background()
	repo := NewQuarantineRepository(kvstore.NewMemoryStore(0), 0)
	now := time.Now().UTC()

	require.NoError(t, repo.Add(ctx))
	require.NoError(t, repo.Add(ctx,
		models.QuarantinedNote{Note: sampleNote("1", "a@x.com"), Reason: models.QuarantineMissingFile, QuarantinedAt: now},
		models.QuarantinedNote{Note: sampleNote("2", "b@x.com"), Reason: models.QuarantineUploadExpired, QuarantinedAt: now},
	))

	items, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)

	taken, err := repo.Take(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, models.QuarantineUploadExpired, taken.Reason)

	_, err = repo.Take(ctx, "2")
	assert.ErrorIs(t, err, ErrNotFound)

	items, err = repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "1", items[0].Note.ID)
}

func TestQuarantineRepositoryAddReplacesSameNote(t *testing.T) {
	ctx := context.Background()
	repo := NewQuarantineRepository(kvstore.NewMemoryStore(0), 0)
	first := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	second := first.Add(time.Hour)

	require.NoError(t, repo.Add(ctx, models.QuarantinedNote{Note: sampleNote("1", "a@x.com"), Reason: models.QuarantineUploadExpired, QuarantinedAt: first}))
	require.NoError(t, repo.Add(ctx, models.QuarantinedNote{Note: sampleNote("1", "a@x.com"), Reason: models.QuarantineMissingFile, QuarantinedAt: second}))

	items, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, models.QuarantineMissingFile, items[0].Reason)
	assert.True(t, second.Equal(items[0].QuarantinedAt))
}
