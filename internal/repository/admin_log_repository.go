package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/uninotes-api/internal/models"
	"github.com/noah-isme/uninotes-api/pkg/kvstore"
)

// AdminLogRepository persists the append-only admin action log.
type AdminLogRepository struct {
	doc document[[]models.AdminLog]
	now func() time.Time
}

// NewAdminLogRepository creates a new instance of AdminLogRepository.
func NewAdminLogRepository(store kvstore.Store, writeRetries int) *AdminLogRepository {
	return &AdminLogRepository{
		doc: newDocument(store, KeyAdminLogs, writeRetries, func() []models.AdminLog { return []models.AdminLog{} }),
		now: time.Now,
	}
}

// Append adds entry at the end of the log, filling id and timestamp when unset.
func (r *AdminLogRepository) Append(ctx context.Context, entry models.AdminLog) (*models.AdminLog, error) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = r.now().UTC()
	}
	_, err := r.doc.mutate(ctx, func(logs []models.AdminLog) ([]models.AdminLog, error) {
		return append(logs, entry), nil
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// List returns the whole log in append order.
func (r *AdminLogRepository) List(ctx context.Context) ([]models.AdminLog, error) {
	logs, _, err := r.doc.load(ctx)
	return logs, err
}

// Recent returns up to n entries, newest first.
func (r *AdminLogRepository) Recent(ctx context.Context, n int) ([]models.AdminLog, error) {
	logs, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	if n > len(logs) || n <= 0 {
		n = len(logs)
	}
	result := make([]models.AdminLog, 0, n)
	for i := len(logs) - 1; i >= len(logs)-n; i-- {
		result = append(result, logs[i])
	}
	return result, nil
}
