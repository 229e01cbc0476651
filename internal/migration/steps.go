package migration

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/noah-isme/uninotes-api/internal/repository"
	"github.com/noah-isme/uninotes-api/pkg/kvstore"
)

// DefaultSteps lists the schema history in order.
func DefaultSteps() []Step {
	return []Step{
		{Version: 1, Name: "merge_legacy_note_keys", Apply: MergeLegacyNoteKeys},
		{Version: 2, Name: "normalize_note_fields", Apply: NormalizeNoteFields},
		{Version: 3, Name: "default_user_roles", Apply: DefaultUserRoles},
	}
}

type record = map[string]interface{}

// MergeLegacyNoteKeys moves notes from the two legacy keys into the notes key.
// When the notes key already exists the legacy keys are left alone.
func MergeLegacyNoteKeys(ctx context.Context, store kvstore.Store) error {
	exists, err := kvstore.Exists(ctx, store, repository.KeyNotes)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	merged := make([]record, 0)
	found := false
	for _, key := range []string{repository.KeyLegacyUploadedNotes, repository.KeyLegacyUserUploads} {
		var legacy []record
		_, err := kvstore.GetJSON(ctx, store, key, &legacy)
		if errors.Is(err, kvstore.ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		found = true
		merged = append(merged, legacy...)
	}
	if !found {
		return nil
	}

	if _, err := kvstore.PutJSON(ctx, store, repository.KeyNotes, merged, 0); err != nil {
		return fmt.Errorf("write merged notes: %w", err)
	}
	for _, key := range []string{repository.KeyLegacyUploadedNotes, repository.KeyLegacyUserUploads} {
		if err := store.Delete(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

// NormalizeNoteFields fills fields older records lack. Unknown fields are kept.
func NormalizeNoteFields(ctx context.Context, store kvstore.Store) error {
	var notes []record
	version, err := kvstore.GetJSON(ctx, store, repository.KeyNotes, &notes)
	if errors.Is(err, kvstore.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	changed := false
	for _, n := range notes {
		if n != nil && normalizeNote(n) {
			changed = true
		}
	}
	if !changed {
		return nil
	}
	_, err = kvstore.PutJSON(ctx, store, repository.KeyNotes, notes, version)
	return err
}

func normalizeNote(n record) bool {
	changed := false
	fill := func(field, value string) {
		if value == "" || stringField(n, field) != "" {
			return
		}
		n[field] = value
		changed = true
	}

	// numeric ids and semesters from older builds become strings
	for _, field := range []string{"id", "semester"} {
		if num, ok := n[field].(float64); ok {
			n[field] = strconv.FormatFloat(num, 'f', -1, 64)
			changed = true
		}
	}

	fill("createdAt", stringField(n, "uploadDate"))
	fill("uploadDate", stringField(n, "createdAt"))

	kind := stringField(n, "fileType")
	if kind == "" {
		kind = stringField(n, "type")
	}
	if kind == "" {
		kind = "PDF"
	}
	fill("fileType", kind)
	fill("type", kind)

	fill("fileName", "unknown")
	fill("fileSize", "N/A")
	for _, field := range []string{"author", "uploadedBy", "faculty", "prodi"} {
		fill(field, "Unknown")
	}
	if stringField(n, "fileData") != "" {
		if stringField(n, "uploadStatus") != "complete" {
			n["uploadStatus"] = "complete"
			changed = true
		}
	}
	return changed
}

// DefaultUserRoles gives every user without a role the plain user role.
func DefaultUserRoles(ctx context.Context, store kvstore.Store) error {
	var users map[string]record
	version, err := kvstore.GetJSON(ctx, store, repository.KeyUsers, &users)
	if errors.Is(err, kvstore.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	changed := false
	for _, u := range users {
		if u != nil && stringField(u, "role") == "" {
			u["role"] = "user"
			changed = true
		}
	}
	if !changed {
		return nil
	}
	_, err = kvstore.PutJSON(ctx, store, repository.KeyUsers, users, version)
	return err
}

func stringField(r record, field string) string {
	if v, ok := r[field].(string); ok {
		return v
	}
	return ""
}
