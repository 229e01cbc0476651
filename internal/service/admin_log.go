package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/uninotes-api/internal/models"
	applog "github.com/noah-isme/uninotes-api/pkg/logger"
)

type adminLogAppender interface {
	Append(ctx context.Context, entry models.AdminLog) (*models.AdminLog, error)
}

// recordAdminAction appends to the admin log. A failed append only warns: the action itself already happened.
func recordAdminAction(ctx context.Context, logs adminLogAppender, logger *zap.Logger, actor models.Actor, action, target string) {
	if logs == nil {
		return
	}
	log := applog.WithContext(ctx, logger).With(
		zap.String("action", action),
		zap.String("target", target),
		zap.String("admin", actor.Email))
	if _, err := logs.Append(ctx, models.AdminLog{AdminEmail: actor.Email, ActionType: action, TargetID: target}); err != nil {
		log.Warn("failed to record admin action", zap.Error(err))
		return
	}
	log.Info("admin action recorded")
}
