package service

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/uninotes-api/internal/models"
	appErrors "github.com/noah-isme/uninotes-api/pkg/errors"
)

func TestExportServiceCSV(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.notes.Create(ctx, models.Note{ID: "1", CourseCode: "IF101", Title: "Sorting", Faculty: "Engineering", FileData: "data:,x"}))
	require.NoError(t, f.notes.Create(ctx, models.Note{ID: "2", CourseCode: "EC101", Title: "Markets", Faculty: "Economics", UploadStatus: models.UploadPending}))

	svc := NewExportService(f.notes, zap.NewNop())
	result, err := svc.Notes(ctx, models.AdminPostFilter{Faculty: "Engineering"}, "")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Rows)
	assert.Equal(t, "text/csv; charset=utf-8", result.ContentType)
	assert.True(t, strings.HasSuffix(result.FileName, ".csv"))

	lines := strings.Split(strings.TrimSpace(strings.TrimPrefix(string(result.Content), "\ufeff")), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "ID,Course Code,Course Title,Title"))
	assert.Contains(t, lines[1], "IF101")
	assert.Contains(t, lines[1], "complete")
}

func TestExportServicePDF(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.notes.Create(context.Background(), models.Note{ID: "1", Title: "Sorting"}))

	result, err := NewExportService(f.notes, nil).Notes(context.Background(), models.AdminPostFilter{}, "PDF")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", result.ContentType)
	assert.True(t, bytes.HasPrefix(result.Content, []byte("%PDF")))
}

func TestExportServiceRejectsUnknownFormat(t *testing.T) {
	f := newFixture(t)
	_, err := NewExportService(f.notes, nil).Notes(context.Background(), models.AdminPostFilter{}, "xlsx")
	requireCode(t, err, appErrors.ErrValidation)
}
