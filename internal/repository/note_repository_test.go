package repository

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/noah-isme/uninotes-api/internal/models"
	"github.com/noah-isme/uninotes-api/pkg/kvstore"
)

func TestNoteRepositoryEmptyStore(t *testing.T) {
	repo := NewNoteRepository(kvstore.NewMemoryStore(0), 0)

	notes, err := repo.GetAll(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, notes)
	assert.Empty(t, notes)

	_, err = repo.GetByID(context.Background(), "1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNoteRepositoryCRUD(t *testing.T) {
	ctx := context.Background()
	repo := NewNoteRepository(kvstore.NewMemoryStore(0), 0)

	require.NoError(t, repo.Create(ctx, sampleNote("1", "a@x.com")))
	require.NoError(t, repo.Create(ctx, sampleNote("2", "b@x.com")))

	mine, err := repo.GetByUser(ctx, "a@x.com")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "1", mine[0].ID)

	none, err := repo.GetByUser(ctx, "nobody@x.com")
	require.NoError(t, err)
	assert.Empty(t, none)

	updated, err := repo.Update(ctx, "2", models.NotePatch{Title: strPtr("Renamed")})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)

	_, err = repo.Update(ctx, "404", models.NotePatch{Title: strPtr("x")})
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, repo.Delete(ctx, "1"))
	assert.ErrorIs(t, repo.Delete(ctx, "1"), ErrNotFound)

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "2", all[0].ID)

	removed, err := repo.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	all, err = repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestNoteRepositoryUpdateChangesOnlyPatchedField(t *testing.T) {
	ctx := context.Background()
	repo := NewNoteRepository(kvstore.NewMemoryStore(0), 0)
	original := sampleNote("1", "a@x.com")
	require.NoError(t, repo.Create(ctx, original))

	_, err := repo.Update(ctx, "1", models.NotePatch{Title: strPtr("X")})
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, "1")
	require.NoError(t, err)
	expected := original
	expected.Title = "X"
	assert.Equal(t, expected, *got)
}

func TestNoteRepositoryFilters(t *testing.T) {
	ctx := context.Background()
	repo := NewNoteRepository(kvstore.NewMemoryStore(0), 0)

	pdf := sampleNote("1", "a@x.com")
	img := sampleNote("2", "b@x.com")
	img.Type, img.FileType = models.FileTypeIMG, models.FileTypeIMG
	img.Faculty, img.Prodi, img.Semester = "Economics", "Accounting", "3"
	img.CourseCode, img.CourseTitle, img.Title, img.Description = "EK201", "Makroekonomi", "Diagram", "Inflasi"
	require.NoError(t, repo.Create(ctx, pdf))
	require.NoError(t, repo.Create(ctx, img))

	tests := []struct {
		name   string
		filter models.NoteFilter
		ids    []string
	}{
		{"no filter", models.NoteFilter{}, []string{"1", "2"}},
		{"type all", models.NoteFilter{Type: "ALL"}, []string{"1", "2"}},
		{"type img", models.NoteFilter{Type: "IMG"}, []string{"2"}},
		{"faculty", models.NoteFilter{Faculty: "Engineering"}, []string{"1"}},
		{"prodi and semester", models.NoteFilter{Prodi: "Accounting", Semester: "3"}, []string{"2"}},
		{"conjunction misses", models.NoteFilter{Faculty: "Engineering", Type: "IMG"}, nil},
		{"search course code", models.NoteFilter{SearchQuery: "ek2"}, []string{"2"}},
		{"search course title", models.NoteFilter{SearchQuery: "ALGORITMA"}, []string{"1"}},
		{"search description", models.NoteFilter{SearchQuery: "inflasi"}, []string{"2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			notes, err := repo.GetFiltered(ctx, tt.filter)
			require.NoError(t, err)
			var ids []string
			for _, n := range notes {
				ids = append(ids, n.ID)
			}
			assert.Equal(t, tt.ids, ids)
		})
	}
}

func TestNoteRepositorySearchPosts(t *testing.T) {
	ctx := context.Background()
	repo := NewNoteRepository(kvstore.NewMemoryStore(0), 0)
	a := sampleNote("1", "a@x.com")
	b := sampleNote("2", "b@x.com")
	b.Author, b.Faculty, b.Description = "Bob Builder", "Economics", "contains alice"
	require.NoError(t, repo.Create(ctx, a))
	require.NoError(t, repo.Create(ctx, b))

	byAuthor, err := repo.SearchPosts(ctx, models.AdminPostFilter{Search: "bob"})
	require.NoError(t, err)
	require.Len(t, byAuthor, 1)
	assert.Equal(t, "2", byAuthor[0].ID)

	// description is not searched in the admin listing
	byDescription, err := repo.SearchPosts(ctx, models.AdminPostFilter{Search: "contains alice"})
	require.NoError(t, err)
	assert.Empty(t, byDescription)

	byFaculty, err := repo.SearchPosts(ctx, models.AdminPostFilter{Faculty: "Engineering"})
	require.NoError(t, err)
	require.Len(t, byFaculty, 1)
	assert.Equal(t, "1", byFaculty[0].ID)
}

func TestNoteRepositoryRemoveWhere(t *testing.T) {
	ctx := context.Background()
	repo := NewNoteRepository(kvstore.NewMemoryStore(0), 0)
	good := sampleNote("1", "a@x.com")
	broken := sampleNote("2", "b@x.com")
	broken.FileData = ""
	require.NoError(t, repo.Create(ctx, good))
	require.NoError(t, repo.Create(ctx, broken))

	removed, err := repo.RemoveWhere(ctx, func(n models.Note) bool { return !n.HasFile() })
	require.NoError(t, err)
	require.Len(t, removed, 1)
	assert.Equal(t, "2", removed[0].ID)

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "1", all[0].ID)
}

func TestNoteRepositoryRetriesOnConflict(t *testing.T) {
	ctx := context.Background()
	racing := &racingStore{MemoryStore: kvstore.NewMemoryStore(0), n: 1}
	other := NewNoteRepository(racing.MemoryStore, 0)
	racing.interfere = func(ctx context.Context, _ *kvstore.MemoryStore) {
		require.NoError(t, other.Create(ctx, sampleNote("theirs", "b@x.com")))
	}
	repo := NewNoteRepository(racing, 0)

	require.NoError(t, repo.Create(ctx, sampleNote("mine", "a@x.com")))

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2, "neither write may be lost")
	assert.Equal(t, "theirs", all[0].ID)
	assert.Equal(t, "mine", all[1].ID)
}

func TestNoteRepositoryGivesUpAfterRetries(t *testing.T) {
	ctx := context.Background()
	racing := &racingStore{MemoryStore: kvstore.NewMemoryStore(0), n: 100}
	racing.interfere = func(ctx context.Context, s *kvstore.MemoryStore) {
		_, err := s.Set(ctx, KeyNotes, []byte(`[]`), kvstore.AnyVersion)
		require.NoError(t, err)
	}
	repo := NewNoteRepository(racing, 2)

	err := repo.Create(ctx, sampleNote("1", "a@x.com"))
	assert.ErrorIs(t, err, ErrWriteConflict)
}

func TestNoteRepositoryMalformedDocument(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemoryStore(0)
	_, err := store.Set(ctx, KeyNotes, []byte(`{"not":"a list"}`), kvstore.AnyVersion)
	require.NoError(t, err)

	repo := NewNoteRepository(store, 0)
	_, err = repo.GetAll(ctx)
	assert.ErrorIs(t, err, kvstore.ErrMalformed)

	err = repo.Create(ctx, sampleNote("1", "a@x.com"))
	assert.ErrorIs(t, err, kvstore.ErrMalformed)
}

func TestNoteRepositoryQuotaExceeded(t *testing.T) {
	repo := NewNoteRepository(kvstore.NewMemoryStore(64), 0)
	err := repo.Create(context.Background(), sampleNote("1", "a@x.com"))
	assert.ErrorIs(t, err, kvstore.ErrQuotaExceeded)
}

func noteGen() *rapid.Generator[models.Note] {
	return rapid.Custom(func(t *rapid.T) models.Note {
		n := sampleNote(
			rapid.StringMatching(`[0-9]{1,6}`).Draw(t, "id"),
			rapid.SampledFrom([]string{"a@x.com", "b@x.com", "c@x.com"}).Draw(t, "owner"),
		)
		n.Title = rapid.StringMatching(`[A-Za-z ]{1,20}`).Draw(t, "title")
		n.Description = rapid.StringMatching(`[A-Za-z ]{1,30}`).Draw(t, "description")
		n.CourseTitle = rapid.StringMatching(`[A-Za-z ]{1,20}`).Draw(t, "courseTitle")
		n.CourseCode = rapid.StringMatching(`[A-Z]{2}[0-9]{3}`).Draw(t, "courseCode")
		n.Faculty = rapid.SampledFrom([]string{"Engineering", "Economics"}).Draw(t, "faculty")
		return n
	})
}

func TestNoteRepositoryProperties(t *testing.T) {
	t.Run("create then getAll contains the note once", func(t *testing.T) {
		rapid.Check(t, func(t *rapid.T) {
			ctx := context.Background()
			repo := NewNoteRepository(kvstore.NewMemoryStore(0), 0)
			existing := rapid.SliceOf(noteGen()).Draw(t, "existing")
			for _, n := range existing {
				n.ID = "old-" + n.ID
				if err := repo.Create(ctx, n); err != nil {
					t.Fatal(err)
				}
			}
			note := noteGen().Draw(t, "note")
			if err := repo.Create(ctx, note); err != nil {
				t.Fatal(err)
			}
			all, err := repo.GetAll(ctx)
			if err != nil {
				t.Fatal(err)
			}
			count := 0
			for _, n := range all {
				if n == note {
					count++
				}
			}
			if count != 1 {
				t.Fatalf("note stored %d times", count)
			}
		})
	})

	t.Run("getByUser is exactly the owner subset", func(t *testing.T) {
		rapid.Check(t, func(t *rapid.T) {
			ctx := context.Background()
			repo := NewNoteRepository(kvstore.NewMemoryStore(0), 0)
			notes := rapid.SliceOf(noteGen()).Draw(t, "notes")
			for _, n := range notes {
				if err := repo.Create(ctx, n); err != nil {
					t.Fatal(err)
				}
			}
			email := rapid.SampledFrom([]string{"a@x.com", "b@x.com", "c@x.com", "d@x.com"}).Draw(t, "email")
			got, err := repo.GetByUser(ctx, email)
			if err != nil {
				t.Fatal(err)
			}
			var want []models.Note
			for _, n := range notes {
				if n.UploadedBy == email {
					want = append(want, n)
				}
			}
			if len(got) != len(want) {
				t.Fatalf("got %d notes, want %d", len(got), len(want))
			}
			for i := range want {
				if got[i] != want[i] {
					t.Fatalf("note %d differs", i)
				}
			}
		})
	})

	t.Run("empty filter is identity and search matches substrings", func(t *testing.T) {
		rapid.Check(t, func(t *rapid.T) {
			ctx := context.Background()
			repo := NewNoteRepository(kvstore.NewMemoryStore(0), 0)
			notes := rapid.SliceOfN(noteGen(), 1, 10).Draw(t, "notes")
			for _, n := range notes {
				if err := repo.Create(ctx, n); err != nil {
					t.Fatal(err)
				}
			}
			all, _ := repo.GetAll(ctx)
			unfiltered, _ := repo.GetFiltered(ctx, models.NoteFilter{})
			if len(all) != len(unfiltered) {
				t.Fatalf("identity law broken: %d vs %d", len(all), len(unfiltered))
			}

			q := rapid.StringMatching(`[A-Za-z]{1,3}`).Draw(t, "q")
			matched, _ := repo.GetFiltered(ctx, models.NoteFilter{SearchQuery: q})
			lower := strings.ToLower(q)
			want := 0
			for _, n := range all {
				if strings.Contains(strings.ToLower(n.Title), lower) ||
					strings.Contains(strings.ToLower(n.Description), lower) ||
					strings.Contains(strings.ToLower(n.CourseTitle), lower) ||
					strings.Contains(strings.ToLower(n.CourseCode), lower) {
					want++
				}
			}
			if len(matched) != want {
				t.Fatalf("search %q matched %d, want %d", q, len(matched), want)
			}
		})
	})

	t.Run("update and delete on missing ids leave the list unchanged", func(t *testing.T) {
		rapid.Check(t, func(t *rapid.T) {
			ctx := context.Background()
			store := kvstore.NewMemoryStore(0)
			repo := NewNoteRepository(store, 0)
			notes := rapid.SliceOfN(noteGen(), 1, 8).Draw(t, "notes")
			for _, n := range notes {
				if err := repo.Create(ctx, n); err != nil {
					t.Fatal(err)
				}
			}
			before, _ := store.Get(ctx, KeyNotes)
			if _, err := repo.Update(ctx, "missing-id", models.NotePatch{Title: strPtr("X")}); err != ErrNotFound {
				t.Fatalf("update: %v", err)
			}
			if err := repo.Delete(ctx, "missing-id"); err != ErrNotFound {
				t.Fatalf("delete: %v", err)
			}
			after, _ := store.Get(ctx, KeyNotes)
			if string(before.Value) != string(after.Value) || before.Version != after.Version {
				t.Fatal("stored list changed")
			}

			target := notes[rapid.IntRange(0, len(notes)-1).Draw(t, "target")]
			countBefore := len(notes)
			if err := repo.Delete(ctx, target.ID); err != nil {
				t.Fatal(err)
			}
			remaining, _ := repo.GetAll(ctx)
			if len(remaining) != countBefore-1 {
				t.Fatalf("delete removed %d records", countBefore-len(remaining))
			}
		})
	})
}

func TestCleanupScenarioKeepsOnlyNotesWithFiles(t *testing.T) {
	ctx := context.Background()
	repo := NewNoteRepository(kvstore.NewMemoryStore(0), 0)
	withFile := sampleNote("1", "a@x.com")
	withoutFile := sampleNote("2", "b@x.com")
	withoutFile.FileData = ""
	require.NoError(t, repo.Create(ctx, withFile))
	require.NoError(t, repo.Create(ctx, withoutFile))

	_, err := repo.RemoveWhere(ctx, func(n models.Note) bool { return !n.HasFile() })
	require.NoError(t, err)

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "1", all[0].ID)
}

func TestNoteRepositoryNullDocumentReadsAsEmpty(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemoryStore(0)
	_, err := store.Set(ctx, KeyNotes, []byte("null"), 0)
	require.NoError(t, err)
	repo := NewNoteRepository(store, 0)

	notes, err := repo.GetAll(ctx)
	require.NoError(t, err)
	assert.NotNil(t, notes)
	assert.Empty(t, notes)

	require.NoError(t, repo.Create(ctx, sampleNote("1", "a@x.com")))
	notes, err = repo.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "1", notes[0].ID)
}
