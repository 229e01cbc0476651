package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/uninotes-api/internal/dto"
	"github.com/noah-isme/uninotes-api/internal/models"
	"github.com/noah-isme/uninotes-api/internal/repository"
	"github.com/noah-isme/uninotes-api/pkg/datauri"
	appErrors "github.com/noah-isme/uninotes-api/pkg/errors"
	"github.com/noah-isme/uninotes-api/pkg/storage"
	"github.com/noah-isme/uninotes-api/pkg/validation"
)

// timestampLayout matches the millisecond ISO-8601 form stored on notes.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

var allowedMimeTypes = map[models.FileType][]string{
	models.FileTypePDF: {"application/pdf"},
	models.FileTypeIMG: {"image/jpeg", "image/png", "image/gif"},
}

type noteRepository interface {
	GetAll(ctx context.Context) ([]models.Note, error)
	GetByID(ctx context.Context, id string) (*models.Note, error)
	GetByUser(ctx context.Context, email string) ([]models.Note, error)
	GetFiltered(ctx context.Context, filter models.NoteFilter) ([]models.Note, error)
	SearchPosts(ctx context.Context, filter models.AdminPostFilter) ([]models.Note, error)
	Create(ctx context.Context, note models.Note) error
	Update(ctx context.Context, id string, patch models.NotePatch) (*models.Note, error)
	Delete(ctx context.Context, id string) error
	Clear(ctx context.Context) (int, error)
	RemoveWhere(ctx context.Context, pred func(models.Note) bool) ([]models.Note, error)
}

type quarantineRepository interface {
	Add(ctx context.Context, entries ...models.QuarantinedNote) error
	List(ctx context.Context) ([]models.QuarantinedNote, error)
	Take(ctx context.Context, noteID string) (*models.QuarantinedNote, error)
}

type profileLookup interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

type markdownRenderer interface {
	Render(source string) (string, error)
}

type downloadSigner interface {
	Generate(noteID string) (string, time.Time, error)
	Parse(token string) (string, time.Time, error)
}

// NoteConfig bounds uploads and the draft lifecycle.
type NoteConfig struct {
	MaxFileSize     int64
	PendingTTL      time.Duration
	DownloadBaseURL string
}

// NoteService implements the note use cases on top of the note and quarantine repositories.
type NoteService struct {
	notes      noteRepository
	quarantine quarantineRepository
	users      profileLookup
	logs       adminLogAppender
	cache      *CacheService
	renderer   markdownRenderer
	signer     downloadSigner
	validator  *validation.Validator
	logger     *zap.Logger
	config     NoteConfig
	now        func() time.Time
}

// NewNoteService wires the note use cases.
func NewNoteService(
	notes noteRepository,
	quarantine quarantineRepository,
	users profileLookup,
	logs adminLogAppender,
	cache *CacheService,
	renderer markdownRenderer,
	signer downloadSigner,
	validate *validation.Validator,
	logger *zap.Logger,
	config NoteConfig,
) *NoteService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validation.New()
	}
	if config.MaxFileSize <= 0 {
		config.MaxFileSize = 10 * 1024 * 1024
	}
	if config.PendingTTL <= 0 {
		config.PendingTTL = 24 * time.Hour
	}
	return &NoteService{
		notes:      notes,
		quarantine: quarantine,
		users:      users,
		logs:       logs,
		cache:      cache,
		renderer:   renderer,
		signer:     signer,
		validator:  validate,
		logger:     logger,
		config:     config,
		now:        time.Now,
	}
}

// List returns notes matching filter, without file payloads.
func (s *NoteService) List(ctx context.Context, filter models.NoteFilter) ([]models.NoteSummary, error) {
	notes, err := s.notes.GetFiltered(ctx, filter)
	if err != nil {
		return nil, storeError(err, "failed to list notes")
	}
	return summarize(notes), nil
}

// Timeline returns complete notes, newest first.
func (s *NoteService) Timeline(ctx context.Context) ([]models.NoteSummary, error) {
	notes, err := s.notes.GetAll(ctx)
	if err != nil {
		return nil, storeError(err, "failed to list notes")
	}
	complete := make([]models.Note, 0, len(notes))
	for _, n := range notes {
		if n.HasFile() {
			complete = append(complete, n)
		}
	}
	sort.SliceStable(complete, func(i, j int) bool {
		return complete[i].Created().After(complete[j].Created())
	})
	return summarize(complete), nil
}

// Mine returns the notes uploaded by email, drafts included.
func (s *NoteService) Mine(ctx context.Context, email string) ([]models.NoteSummary, error) {
	notes, err := s.notes.GetByUser(ctx, repository.NormalizeEmail(email))
	if err != nil {
		return nil, storeError(err, "failed to list notes")
	}
	return summarize(notes), nil
}

// SearchPosts backs the admin post listing.
func (s *NoteService) SearchPosts(ctx context.Context, filter models.AdminPostFilter) ([]models.NoteSummary, error) {
	notes, err := s.notes.SearchPosts(ctx, filter)
	if err != nil {
		return nil, storeError(err, "failed to list posts")
	}
	return summarize(notes), nil
}

// Detail returns a note with its description rendered to HTML.
func (s *NoteService) Detail(ctx context.Context, id string) (*models.NoteDetail, error) {
	note, err := s.notes.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "note not found")
	}
	detail := &models.NoteDetail{Note: *note}
	if s.renderer != nil {
		html, err := s.renderer.Render(note.Description)
		if err != nil {
			s.logger.Warn("failed to render description", zap.String("note_id", id), zap.Error(err))
		} else {
			detail.DescriptionHTML = html
		}
	}
	return detail, nil
}

// Upload stores a complete note with its file attached.
func (s *NoteService) Upload(ctx context.Context, actor models.Actor, meta dto.NoteMetadata, file dto.FileUpload) (*models.Note, error) {
	meta = normalizeMetadata(meta)
	if err := s.validator.Struct(meta); err != nil {
		return nil, err
	}
	fileType := models.FileType(meta.Type)
	mimeType, err := s.checkFile(fileType, file)
	if err != nil {
		return nil, err
	}
	note, err := s.newNote(ctx, actor, meta)
	if err != nil {
		return nil, err
	}
	note.FileName = file.Name
	note.FileSize = datauri.FormatSize(int64(len(file.Content)))
	note.FileData = datauri.Encode(mimeType, file.Content)
	note.UploadStatus = models.UploadComplete

	if err := s.notes.Create(ctx, note); err != nil {
		return nil, storeError(err, "failed to save note")
	}
	s.invalidateStats(ctx)
	s.logger.Info("note uploaded", zap.String("note_id", note.ID), zap.String("uploaded_by", note.UploadedBy))
	return &note, nil
}

// CreateDraft stores a pending note whose file is attached later.
func (s *NoteService) CreateDraft(ctx context.Context, actor models.Actor, meta dto.NoteMetadata) (*models.Note, error) {
	meta = normalizeMetadata(meta)
	if err := s.validator.Struct(meta); err != nil {
		return nil, err
	}
	note, err := s.newNote(ctx, actor, meta)
	if err != nil {
		return nil, err
	}
	note.FileName = "unknown"
	note.FileSize = "N/A"
	note.UploadStatus = models.UploadPending

	if err := s.notes.Create(ctx, note); err != nil {
		return nil, storeError(err, "failed to save note")
	}
	s.invalidateStats(ctx)
	return &note, nil
}

// AttachFile completes a note by attaching its file. Only the owner or an admin may do this.
func (s *NoteService) AttachFile(ctx context.Context, actor models.Actor, id string, file dto.FileUpload) (*models.Note, error) {
	current, err := s.owned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	mimeType, err := s.checkFile(current.Kind(), file)
	if err != nil {
		return nil, err
	}
	patch := filePatch(file, mimeType)
	updated, err := s.notes.Update(ctx, id, patch)
	if err != nil {
		return nil, storeError(err, "note not found")
	}
	s.invalidateStats(ctx)
	return updated, nil
}

// Edit replaces the course, type, title and description of a note and, when file is
// given, its file fields. id and createdAt never change.
func (s *NoteService) Edit(ctx context.Context, actor models.Actor, id string, meta dto.NoteMetadata, file *dto.FileUpload) (*models.Note, error) {
	meta = normalizeMetadata(meta)
	if err := s.validator.Struct(meta); err != nil {
		return nil, err
	}
	if _, err := s.owned(ctx, actor, id); err != nil {
		return nil, err
	}
	fileType := models.FileType(meta.Type)
	patch := models.NotePatch{
		CourseCode:  &meta.CourseCode,
		CourseTitle: &meta.CourseTitle,
		Semester:    &meta.Semester,
		Type:        &fileType,
		Title:       &meta.Title,
		Description: &meta.Description,
	}
	if file != nil && len(file.Content) > 0 {
		mimeType, err := s.checkFile(fileType, *file)
		if err != nil {
			return nil, err
		}
		fp := filePatch(*file, mimeType)
		patch.FileName, patch.FileSize, patch.FileData, patch.UploadStatus = fp.FileName, fp.FileSize, fp.FileData, fp.UploadStatus
	}
	updated, err := s.notes.Update(ctx, id, patch)
	if err != nil {
		return nil, storeError(err, "note not found")
	}
	s.invalidateStats(ctx)
	return updated, nil
}

// Delete removes a note. Owners delete their own notes; admins may delete any note,
// which is recorded as delete_post.
func (s *NoteService) Delete(ctx context.Context, actor models.Actor, id string) error {
	note, err := s.owned(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.notes.Delete(ctx, id); err != nil {
		return storeError(err, "note not found")
	}
	if !isOwner(actor, note) {
		recordAdminAction(ctx, s.logs, s.logger, actor, models.ActionDeletePost, id)
	}
	s.invalidateStats(ctx)
	return nil
}

// ClearAll removes every note and reports how many were removed.
func (s *NoteService) ClearAll(ctx context.Context) (int, error) {
	removed, err := s.notes.Clear(ctx)
	if err != nil {
		return 0, storeError(err, "failed to clear notes")
	}
	s.invalidateStats(ctx)
	return removed, nil
}

// Cleanup moves notes without a file out of the live list into quarantine.
// Pending drafts younger than the configured TTL are kept.
func (s *NoteService) Cleanup(ctx context.Context) ([]models.QuarantinedNote, error) {
	now := s.now().UTC()
	notes, err := s.notes.GetAll(ctx)
	if err != nil {
		return nil, storeError(err, "failed to clean up notes")
	}
	candidates := make(map[string]models.QuarantinedNote)
	staged := make([]models.QuarantinedNote, 0)
	for _, n := range notes {
		if reason, stale := s.quarantineReason(n, now); stale {
			entry := models.QuarantinedNote{Note: n, Reason: reason, QuarantinedAt: now}
			candidates[n.ID] = entry
			staged = append(staged, entry)
		}
	}
	if len(staged) == 0 {
		return []models.QuarantinedNote{}, nil
	}

	// Entries are written before notes are removed: an interrupted pass leaves a
	// note in both lists, never in neither.
	if err := s.quarantine.Add(ctx, staged...); err != nil {
		return nil, storeError(err, "failed to quarantine notes")
	}
	removed, err := s.notes.RemoveWhere(ctx, func(n models.Note) bool {
		entry, ok := candidates[n.ID]
		return ok && entry.Note == n
	})
	if err != nil {
		s.withdraw(ctx, staged)
		return nil, storeError(err, "failed to clean up notes")
	}

	entries := make([]models.QuarantinedNote, 0, len(removed))
	for _, n := range removed {
		if entry, ok := candidates[n.ID]; ok {
			entries = append(entries, entry)
			delete(candidates, n.ID)
		}
	}
	// notes edited since they were staged stay live
	if len(candidates) > 0 {
		kept := make([]models.QuarantinedNote, 0, len(candidates))
		for _, entry := range candidates {
			kept = append(kept, entry)
		}
		s.withdraw(ctx, kept)
	}
	if len(entries) == 0 {
		return entries, nil
	}

	s.invalidateStats(ctx)
	s.logger.Info("note cleanup finished", zap.Int("removed", len(entries)))
	return entries, nil
}

// Quarantine lists notes removed by cleanup.
func (s *NoteService) Quarantine(ctx context.Context) ([]models.QuarantinedNote, error) {
	items, err := s.quarantine.List(ctx)
	if err != nil {
		return nil, storeError(err, "failed to list quarantine")
	}
	return items, nil
}

// Restore puts a quarantined note back as a fresh pending draft so its owner can attach the file.
func (s *NoteService) Restore(ctx context.Context, id string) (*models.Note, error) {
	if _, err := s.notes.GetByID(ctx, id); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a live note already uses this id")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, storeError(err, "failed to load note")
	}

	entry, err := s.quarantine.Take(ctx, id)
	if err != nil {
		return nil, storeError(err, "quarantined note not found")
	}
	note := entry.Note
	stamp := s.now().UTC().Format(timestampLayout)
	note.CreatedAt = stamp
	note.UploadDate = stamp
	note.FileData = ""
	note.UploadStatus = models.UploadPending

	if err := s.notes.Create(ctx, note); err != nil {
		if addErr := s.quarantine.Add(ctx, *entry); addErr != nil {
			s.logger.Error("failed to return note to quarantine", zap.String("note_id", id), zap.Error(addErr))
		}
		return nil, storeError(err, "failed to restore note")
	}
	s.invalidateStats(ctx)
	return &note, nil
}

// DownloadURL issues a signed, expiring link to the note's file.
func (s *NoteService) DownloadURL(ctx context.Context, id string) (*models.DownloadLink, error) {
	note, err := s.notes.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "note not found")
	}
	if !note.HasFile() {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "note has no file attached")
	}
	token, expiresAt, err := s.signer.Generate(note.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download link")
	}
	return &models.DownloadLink{Token: token, URL: s.config.DownloadBaseURL + token, ExpiresAt: expiresAt}, nil
}

// Download resolves a signed token to the decoded file.
func (s *NoteService) Download(ctx context.Context, token string) (*models.NoteFile, error) {
	id, _, err := s.signer.Parse(token)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "download link expired")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid download link")
	}
	note, err := s.notes.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "note not found")
	}
	if !note.HasFile() {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "note has no file attached")
	}
	mimeType, content, err := datauri.Decode(note.FileData)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrMalformedData.Code, appErrors.ErrMalformedData.Status, "stored file is malformed")
	}
	return &models.NoteFile{FileName: downloadName(*note), MimeType: mimeType, Content: content}, nil
}

// owned loads a note and checks that actor may change it.
func (s *NoteService) owned(ctx context.Context, actor models.Actor, id string) (*models.Note, error) {
	note, err := s.notes.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "note not found")
	}
	if !isOwner(actor, note) && !actor.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the owner or an admin can change this note")
	}
	return note, nil
}

func (s *NoteService) newNote(ctx context.Context, actor models.Actor, meta dto.NoteMetadata) (models.Note, error) {
	profile, err := s.users.FindByEmail(ctx, actor.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return models.Note{}, appErrors.Clone(appErrors.ErrUnauthorized, "account no longer exists")
		}
		return models.Note{}, storeError(err, "failed to load profile")
	}
	now := s.now().UTC()
	id, err := s.nextID(ctx, now)
	if err != nil {
		return models.Note{}, err
	}
	stamp := now.Format(timestampLayout)
	fileType := models.FileType(meta.Type)
	return models.Note{
		ID:          id,
		CourseCode:  meta.CourseCode,
		CourseTitle: meta.CourseTitle,
		Faculty:     profile.Faculty,
		Prodi:       profile.Prodi,
		Semester:    meta.Semester,
		Type:        fileType,
		FileType:    fileType,
		Title:       meta.Title,
		Description: meta.Description,
		Author:      profile.FullName,
		UploadedBy:  profile.Email,
		CreatedAt:   stamp,
		UploadDate:  stamp,
	}, nil
}

// nextID derives the id from the creation time in milliseconds, adding a suffix on collision.
func (s *NoteService) nextID(ctx context.Context, now time.Time) (string, error) {
	id := strconv.FormatInt(now.UnixMilli(), 10)
	_, err := s.notes.GetByID(ctx, id)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return id, nil
	case err != nil:
		return "", storeError(err, "failed to allocate note id")
	default:
		return id + "-" + uuid.NewString()[:8], nil
	}
}

// checkFile validates size and detected MIME type against the declared note type.
func (s *NoteService) checkFile(fileType models.FileType, file dto.FileUpload) (string, error) {
	if len(file.Content) == 0 {
		return "", fileError("file is required")
	}
	if int64(len(file.Content)) > s.config.MaxFileSize {
		return "", fileError(fmt.Sprintf("file must not exceed %s", datauri.FormatSize(s.config.MaxFileSize)))
	}
	allowed, ok := allowedMimeTypes[fileType]
	if !ok {
		return "", fileError("type must be PDF or IMG")
	}
	detected := mimetype.Detect(file.Content)
	for _, candidate := range allowed {
		if detected.Is(candidate) {
			return candidate, nil
		}
	}
	return "", fileError(fmt.Sprintf("%s is not an accepted %s file", detected.String(), fileType))
}

func (s *NoteService) quarantineReason(n models.Note, now time.Time) (models.QuarantineReason, bool) {
	if n.HasFile() {
		return "", false
	}
	if n.UploadStatus != models.UploadPending {
		return models.QuarantineMissingFile, true
	}
	if now.Sub(n.Created()) > s.config.PendingTTL {
		return models.QuarantineUploadExpired, true
	}
	return "", false
}

// withdraw drops staged quarantine entries for notes that stayed live.
func (s *NoteService) withdraw(ctx context.Context, staged []models.QuarantinedNote) {
	for _, entry := range staged {
		if _, err := s.quarantine.Take(ctx, entry.Note.ID); err != nil && !errors.Is(err, repository.ErrNotFound) {
			s.logger.Error("failed to withdraw quarantine entry", zap.String("note_id", entry.Note.ID), zap.Error(err))
		}
	}
}

func (s *NoteService) invalidateStats(ctx context.Context) {
	s.cache.Invalidate(ctx, StatsCacheKey)
}

func filePatch(file dto.FileUpload, mimeType string) models.NotePatch {
	name := file.Name
	size := datauri.FormatSize(int64(len(file.Content)))
	data := datauri.Encode(mimeType, file.Content)
	status := models.UploadComplete
	return models.NotePatch{FileName: &name, FileSize: &size, FileData: &data, UploadStatus: &status}
}

func fileError(message string) error {
	return appErrors.FieldError("file", message)
}

func normalizeMetadata(meta dto.NoteMetadata) dto.NoteMetadata {
	meta.CourseCode = strings.TrimSpace(meta.CourseCode)
	meta.CourseTitle = strings.TrimSpace(meta.CourseTitle)
	meta.Semester = strings.TrimSpace(meta.Semester)
	meta.Type = strings.ToUpper(strings.TrimSpace(meta.Type))
	meta.Title = strings.TrimSpace(meta.Title)
	meta.Description = strings.TrimSpace(meta.Description)
	return meta
}

func isOwner(actor models.Actor, note *models.Note) bool {
	return repository.NormalizeEmail(actor.Email) == repository.NormalizeEmail(note.UploadedBy)
}

func downloadName(n models.Note) string {
	if n.FileName != "" && n.FileName != "unknown" {
		return n.FileName
	}
	if n.Kind() == models.FileTypeIMG {
		return n.Title + ".png"
	}
	return n.Title + ".pdf"
}

func summarize(notes []models.Note) []models.NoteSummary {
	result := make([]models.NoteSummary, 0, len(notes))
	for _, n := range notes {
		result = append(result, models.Summarize(n))
	}
	return result
}
