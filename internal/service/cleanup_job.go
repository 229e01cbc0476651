package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/uninotes-api/pkg/jobs"
)

// CleanupJobType identifies the periodic note cleanup on the job queue.
const CleanupJobType = "notes.cleanup"

// CleanupJobHandler returns a jobs.Handler running the note cleanup pass.
func CleanupJobHandler(notes *NoteService, logger *zap.Logger) jobs.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(ctx context.Context, job jobs.Job) error {
		if job.Type != CleanupJobType {
			logger.Warn("unknown job type", zap.String("type", job.Type), zap.String("job_id", job.ID))
			return nil
		}
		removed, err := notes.Cleanup(ctx)
		if err != nil {
			return err
		}
		if len(removed) > 0 {
			logger.Info("sweeper quarantined notes", zap.Int("removed", len(removed)), zap.String("job_id", job.ID))
		}
		return nil
	}
}
