package service

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"github.com/noah-isme/uninotes-api/internal/models"
	appErrors "github.com/noah-isme/uninotes-api/pkg/errors"
)

type adminLogReader interface {
	List(ctx context.Context) ([]models.AdminLog, error)
}

type statsInvalidator interface {
	Invalidate(ctx context.Context)
}

// AdminService groups moderation actions. Every action that changes data is logged.
type AdminService struct {
	notes   *NoteService
	logs    adminLogAppender
	history adminLogReader
	stats   statsInvalidator
	logger  *zap.Logger
}

// NewAdminService constructs an AdminService.
func NewAdminService(notes *NoteService, logs adminLogAppender, history adminLogReader, stats statsInvalidator, logger *zap.Logger) *AdminService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminService{notes: notes, logs: logs, history: history, stats: stats, logger: logger}
}

// ListPosts searches posts by title, course code or author, optionally within one faculty.
func (s *AdminService) ListPosts(ctx context.Context, actor models.Actor, filter models.AdminPostFilter) ([]models.NoteSummary, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.notes.SearchPosts(ctx, filter)
}

// DeletePost removes any post and records delete_post.
func (s *AdminService) DeletePost(ctx context.Context, actor models.Actor, id string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if err := s.notes.notes.Delete(ctx, id); err != nil {
		return storeError(err, "note not found")
	}
	s.record(ctx, actor, models.ActionDeletePost, id)
	return nil
}

// ClearAll removes every post and records clear_all_posts.
func (s *AdminService) ClearAll(ctx context.Context, actor models.Actor) (int, error) {
	if err := requireAdmin(actor); err != nil {
		return 0, err
	}
	removed, err := s.notes.ClearAll(ctx)
	if err != nil {
		return 0, err
	}
	s.record(ctx, actor, models.ActionClearAllPosts, models.ClearAllPostsTarget)
	return removed, nil
}

// Cleanup runs the cleanup pass on demand and records cleanup_corrupted_posts with the removed count.
func (s *AdminService) Cleanup(ctx context.Context, actor models.Actor) ([]models.QuarantinedNote, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	removed, err := s.notes.Cleanup(ctx)
	if err != nil {
		return nil, err
	}
	s.record(ctx, actor, models.ActionCleanupPosts, models.CleanupTargetPrefix+strconv.Itoa(len(removed)))
	return removed, nil
}

// Quarantine lists notes removed by cleanup.
func (s *AdminService) Quarantine(ctx context.Context, actor models.Actor) ([]models.QuarantinedNote, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.notes.Quarantine(ctx)
}

// Restore returns a quarantined note to the live list and records restore_post.
func (s *AdminService) Restore(ctx context.Context, actor models.Actor, id string) (*models.Note, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	note, err := s.notes.Restore(ctx, id)
	if err != nil {
		return nil, err
	}
	s.record(ctx, actor, models.ActionRestorePost, id)
	return note, nil
}

// Logs returns the admin log in append order.
func (s *AdminService) Logs(ctx context.Context, actor models.Actor) ([]models.AdminLog, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	logs, err := s.history.List(ctx)
	if err != nil {
		return nil, storeError(err, "failed to load admin log")
	}
	return logs, nil
}

// record appends to the admin log, then drops cached stats since they include
// the most recent actions.
func (s *AdminService) record(ctx context.Context, actor models.Actor, action, target string) {
	recordAdminAction(ctx, s.logs, s.logger, actor, action, target)
	if s.stats != nil {
		s.stats.Invalidate(ctx)
	}
}

func requireAdmin(actor models.Actor) error {
	if !actor.IsAdmin() {
		return appErrors.Clone(appErrors.ErrForbidden, "admin role required")
	}
	return nil
}
