package repository

import (
	"context"

	"github.com/noah-isme/uninotes-api/internal/models"
	"github.com/noah-isme/uninotes-api/pkg/kvstore"
)

// QuarantineRepository holds notes that cleanup pulled out of the live list.
type QuarantineRepository struct {
	doc document[[]models.QuarantinedNote]
}

// NewQuarantineRepository creates a new instance of QuarantineRepository.
func NewQuarantineRepository(store kvstore.Store, writeRetries int) *QuarantineRepository {
	return &QuarantineRepository{doc: newDocument(store, KeyQuarantine, writeRetries, func() []models.QuarantinedNote { return []models.QuarantinedNote{} })}
}

// Add appends entries, replacing any earlier entry for the same note id.
func (r *QuarantineRepository) Add(ctx context.Context, entries ...models.QuarantinedNote) error {
	if len(entries) == 0 {
		return nil
	}
	_, err := r.doc.mutate(ctx, func(items []models.QuarantinedNote) ([]models.QuarantinedNote, error) {
		for _, entry := range entries {
			if i := quarantineIndex(items, entry.Note.ID); i >= 0 {
				items[i] = entry
				continue
			}
			items = append(items, entry)
		}
		return items, nil
	})
	return err
}

// List returns quarantined notes in the order they were removed.
func (r *QuarantineRepository) List(ctx context.Context) ([]models.QuarantinedNote, error) {
	items, _, err := r.doc.load(ctx)
	return items, err
}

// Take removes and returns the entry for the given note id.
func (r *QuarantineRepository) Take(ctx context.Context, noteID string) (*models.QuarantinedNote, error) {
	var taken models.QuarantinedNote
	_, err := r.doc.mutate(ctx, func(items []models.QuarantinedNote) ([]models.QuarantinedNote, error) {
		for i, item := range items {
			if item.Note.ID == noteID {
				taken = item
				return append(items[:i], items[i+1:]...), nil
			}
		}
		return nil, ErrNotFound
	})
	if err != nil {
		return nil, err
	}
	return &taken, nil
}

func quarantineIndex(items []models.QuarantinedNote, noteID string) int {
	for i, item := range items {
		if item.Note.ID == noteID {
			return i
		}
	}
	return -1
}
