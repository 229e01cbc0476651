package repository

import (
	"context"
	"strings"

	"github.com/noah-isme/uninotes-api/internal/models"
	"github.com/noah-isme/uninotes-api/pkg/kvstore"
)

// NoteRepository stores every note as one ordered list under KeyNotes.
type NoteRepository struct {
	doc document[[]models.Note]
}

// NewNoteRepository creates a new instance of NoteRepository.
func NewNoteRepository(store kvstore.Store, writeRetries int) *NoteRepository {
	return &NoteRepository{doc: newDocument(store, KeyNotes, writeRetries, func() []models.Note { return []models.Note{} })}
}

// GetAll returns notes in stored order, or an empty slice when nothing is stored.
func (r *NoteRepository) GetAll(ctx context.Context) ([]models.Note, error) {
	notes, _, err := r.doc.load(ctx)
	return notes, err
}

// GetByID returns the first note with the given id.
func (r *NoteRepository) GetByID(ctx context.Context, id string) (*models.Note, error) {
	notes, err := r.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	if idx := indexOf(notes, id); idx >= 0 {
		note := notes[idx]
		return &note, nil
	}
	return nil, ErrNotFound
}

// GetByUser returns the notes uploaded by email.
func (r *NoteRepository) GetByUser(ctx context.Context, email string) ([]models.Note, error) {
	notes, err := r.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	result := make([]models.Note, 0)
	for _, n := range notes {
		if n.UploadedBy == email {
			result = append(result, n)
		}
	}
	return result, nil
}

// GetFiltered applies every non-empty filter field conjunctively.
func (r *NoteRepository) GetFiltered(ctx context.Context, filter models.NoteFilter) ([]models.Note, error) {
	notes, err := r.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	result := make([]models.Note, 0, len(notes))
	for _, n := range notes {
		if MatchesFilter(n, filter) {
			result = append(result, n)
		}
	}
	return result, nil
}

// SearchPosts backs the admin post listing.
func (r *NoteRepository) SearchPosts(ctx context.Context, filter models.AdminPostFilter) ([]models.Note, error) {
	notes, err := r.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	query := strings.ToLower(strings.TrimSpace(filter.Search))
	result := make([]models.Note, 0, len(notes))
	for _, n := range notes {
		if filter.Faculty != "" && n.Faculty != filter.Faculty {
			continue
		}
		if query != "" && !containsFold(query, n.Title, n.CourseCode, n.Author) {
			continue
		}
		result = append(result, n)
	}
	return result, nil
}

// Create appends note. Ids are not checked for uniqueness here.
func (r *NoteRepository) Create(ctx context.Context, note models.Note) error {
	_, err := r.doc.mutate(ctx, func(notes []models.Note) ([]models.Note, error) {
		return append(notes, note), nil
	})
	return err
}

// Update merges patch over the first note with the given id.
func (r *NoteRepository) Update(ctx context.Context, id string, patch models.NotePatch) (*models.Note, error) {
	var updated models.Note
	_, err := r.doc.mutate(ctx, func(notes []models.Note) ([]models.Note, error) {
		idx := indexOf(notes, id)
		if idx < 0 {
			return nil, ErrNotFound
		}
		patch.Apply(&notes[idx])
		updated = notes[idx]
		return notes, nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete removes the first note with the given id.
func (r *NoteRepository) Delete(ctx context.Context, id string) error {
	_, err := r.doc.mutate(ctx, func(notes []models.Note) ([]models.Note, error) {
		idx := indexOf(notes, id)
		if idx < 0 {
			return nil, ErrNotFound
		}
		return append(notes[:idx], notes[idx+1:]...), nil
	})
	return err
}

// Clear removes every note and reports how many were stored.
func (r *NoteRepository) Clear(ctx context.Context) (int, error) {
	var removed int
	_, err := r.doc.mutate(ctx, func(notes []models.Note) ([]models.Note, error) {
		removed = len(notes)
		return []models.Note{}, nil
	})
	return removed, err
}

// RemoveWhere drops every note matching pred and returns them in stored order.
func (r *NoteRepository) RemoveWhere(ctx context.Context, pred func(models.Note) bool) ([]models.Note, error) {
	var removed []models.Note
	_, err := r.doc.mutate(ctx, func(notes []models.Note) ([]models.Note, error) {
		removed = removed[:0]
		kept := make([]models.Note, 0, len(notes))
		for _, n := range notes {
			if pred(n) {
				removed = append(removed, n)
				continue
			}
			kept = append(kept, n)
		}
		return kept, nil
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

// MatchesFilter reports whether n satisfies every constraint in filter.
func MatchesFilter(n models.Note, filter models.NoteFilter) bool {
	if filter.Faculty != "" && n.Faculty != filter.Faculty {
		return false
	}
	if filter.Prodi != "" && n.Prodi != filter.Prodi {
		return false
	}
	if filter.Semester != "" && n.Semester != filter.Semester {
		return false
	}
	if filter.Type != "" && !strings.EqualFold(filter.Type, "ALL") && string(n.Kind()) != strings.ToUpper(filter.Type) {
		return false
	}
	if filter.SearchQuery != "" {
		query := strings.ToLower(filter.SearchQuery)
		if !containsFold(query, n.Title, n.Description, n.CourseTitle, n.CourseCode) {
			return false
		}
	}
	return true
}

// containsFold reports whether lowered query occurs in any of fields, ignoring case.
func containsFold(query string, fields ...string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), query) {
			return true
		}
	}
	return false
}

func indexOf(notes []models.Note, id string) int {
	for i, n := range notes {
		if n.ID == id {
			return i
		}
	}
	return -1
}
