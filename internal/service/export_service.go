package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/uninotes-api/internal/models"
	appErrors "github.com/noah-isme/uninotes-api/pkg/errors"
	"github.com/noah-isme/uninotes-api/pkg/export"
)

// Export formats.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

type noteSearcher interface {
	SearchPosts(ctx context.Context, filter models.AdminPostFilter) ([]models.Note, error)
}

type datasetRenderer interface {
	Render(data export.Dataset) ([]byte, error)
	ContentType() string
	Extension() string
}

// ExportResult is a rendered export ready to stream.
type ExportResult struct {
	FileName    string
	ContentType string
	Content     []byte
	Rows        int
}

// ExportService renders note listings as CSV or PDF.
type ExportService struct {
	notes     noteSearcher
	renderers map[string]datasetRenderer
	logger    *zap.Logger
	now       func() time.Time
}

// NewExportService constructs an ExportService with the CSV and PDF exporters.
func NewExportService(notes noteSearcher, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		notes: notes,
		renderers: map[string]datasetRenderer{
			ExportFormatCSV: export.NewCSVExporter(),
			ExportFormatPDF: export.NewPDFExporter(),
		},
		logger: logger,
		now:    time.Now,
	}
}

var noteColumns = []export.Column{
	{Key: "id", Header: "ID", Width: 1.2},
	{Key: "courseCode", Header: "Course Code", Width: 1},
	{Key: "courseTitle", Header: "Course Title", Width: 2},
	{Key: "title", Header: "Title", Width: 2.2},
	{Key: "type", Header: "Type", Width: 0.6},
	{Key: "semester", Header: "Semester", Width: 0.8},
	{Key: "faculty", Header: "Faculty", Width: 1.5},
	{Key: "prodi", Header: "Prodi", Width: 1.5},
	{Key: "author", Header: "Author", Width: 1.4},
	{Key: "uploadedBy", Header: "Uploaded By", Width: 1.8},
	{Key: "fileSize", Header: "Size", Width: 0.8},
	{Key: "status", Header: "Status", Width: 0.8},
	{Key: "createdAt", Header: "Created At", Width: 1.6},
}

// Notes renders the admin post listing narrowed by filter.
func (s *ExportService) Notes(ctx context.Context, filter models.AdminPostFilter, format string) (*ExportResult, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = ExportFormatCSV
	}
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	notes, err := s.notes.SearchPosts(ctx, filter)
	if err != nil {
		return nil, storeError(err, "failed to load notes")
	}

	dataset := export.Dataset{Title: "UniNotes Posts", Columns: noteColumns, Rows: make([]map[string]string, 0, len(notes))}
	for _, n := range notes {
		status := string(n.UploadStatus)
		if status == "" {
			status = string(models.UploadComplete)
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"id":          n.ID,
			"courseCode":  n.CourseCode,
			"courseTitle": n.CourseTitle,
			"title":       n.Title,
			"type":        string(n.Kind()),
			"semester":    n.Semester,
			"faculty":     n.Faculty,
			"prodi":       n.Prodi,
			"author":      n.Author,
			"uploadedBy":  n.UploadedBy,
			"fileSize":    n.FileSize,
			"status":      status,
			"createdAt":   n.CreatedAt,
		})
	}

	content, err := renderer.Render(dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	s.logger.Info("notes exported", zap.String("format", format), zap.Int("rows", len(notes)))
	return &ExportResult{
		FileName:    fmt.Sprintf("uninotes_posts_%s.%s", s.now().UTC().Format("20060102_150405"), renderer.Extension()),
		ContentType: renderer.ContentType(),
		Content:     content,
		Rows:        len(notes),
	}, nil
}
