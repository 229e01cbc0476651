package repository

import (
	"context"
	"fmt"

	"github.com/noah-isme/uninotes-api/internal/models"
	"github.com/noah-isme/uninotes-api/pkg/kvstore"
)

// racingStore runs interfere before the first n writes, simulating another
// writer that lands between our read and our write.
type racingStore struct {
	*kvstore.MemoryStore
	n         int
	interfere func(ctx context.Context, s *kvstore.MemoryStore)
}

func (r *racingStore) Set(ctx context.Context, key string, value []byte, expected int64) (int64, error) {
	if r.n > 0 {
		r.n--
		r.interfere(ctx, r.MemoryStore)
	}
	return r.MemoryStore.Set(ctx, key, value, expected)
}

func sampleNote(id, owner string) models.Note {
	return models.Note{
		ID:           id,
		CourseCode:   "IF101",
		CourseTitle:  "Algoritma dan Pemrograman",
		Faculty:      "Engineering",
		Prodi:        "CS",
		Semester:     "1",
		Type:         models.FileTypePDF,
		FileType:     models.FileTypePDF,
		Title:        fmt.Sprintf("Notes %s", id),
		Description:  "Week one summary",
		FileName:     "notes.pdf",
		FileSize:     "1.00 KB",
		FileData:     "data:application/pdf;base64,JVBERi0=",
		Author:       "Alice",
		UploadedBy:   owner,
		CreatedAt:    "2024-03-01T10:00:00Z",
		UploadDate:   "2024-03-01T10:00:00Z",
		UploadStatus: models.UploadComplete,
	}
}

func strPtr(s string) *string { return &s }
