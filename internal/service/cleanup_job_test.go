package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/uninotes-api/internal/models"
	"github.com/noah-isme/uninotes-api/pkg/jobs"
)

func TestCleanupJobHandlerQuarantinesBrokenNotes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.notes.Create(ctx, models.Note{ID: "broken"}))

	handler := CleanupJobHandler(f.noteSvc, zap.NewNop())
	require.NoError(t, handler(ctx, jobs.Job{ID: "j1", Type: CleanupJobType}))

	notes, err := f.notes.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, notes)

	quarantined, err := f.quarantine.List(ctx)
	require.NoError(t, err)
	assert.Len(t, quarantined, 1)
}

func TestCleanupJobHandlerIgnoresOtherTypes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.notes.Create(ctx, models.Note{ID: "broken"}))

	require.NoError(t, CleanupJobHandler(f.noteSvc, nil)(ctx, jobs.Job{Type: "other"}))
	notes, err := f.notes.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, notes, 1)
}
