// Package app assembles the store, repositories, services and HTTP router and
// runs the startup sequence.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/uninotes-api/internal/handler"
	"github.com/noah-isme/uninotes-api/internal/migration"
	"github.com/noah-isme/uninotes-api/internal/repository"
	"github.com/noah-isme/uninotes-api/internal/service"
	"github.com/noah-isme/uninotes-api/pkg/cache"
	"github.com/noah-isme/uninotes-api/pkg/config"
	"github.com/noah-isme/uninotes-api/pkg/jobs"
	"github.com/noah-isme/uninotes-api/pkg/kvstore"
	"github.com/noah-isme/uninotes-api/pkg/markdown"
	"github.com/noah-isme/uninotes-api/pkg/storage"
	"github.com/noah-isme/uninotes-api/pkg/validation"
)

const cleanupQueue = "cleanup"

// App holds the long-lived state of a running server.
type App struct {
	Config  *config.Config
	Router  *gin.Engine
	Metrics *service.MetricsService
	Notes   *service.NoteService
	Auth    *service.AuthService

	store     kvstore.Store
	cacheConn *redis.Client
	queue     *jobs.Queue
	scheduler *jobs.Scheduler
	logger    *zap.Logger
}

// New opens the configured store and prepares it for serving: schema migrations,
// admin bootstrap, an initial cleanup pass and session restore.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := service.NewMetricsService()

	base, err := kvstore.Open(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return build(ctx, cfg, kvstore.WithObserver(base, metrics), metrics, logger)
}

// NewWithStore is New over an already opened store.
func NewWithStore(ctx context.Context, cfg *config.Config, store kvstore.Store, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := service.NewMetricsService()
	return build(ctx, cfg, kvstore.WithObserver(store, metrics), metrics, logger)
}

func build(ctx context.Context, cfg *config.Config, store kvstore.Store, metrics *service.MetricsService, logger *zap.Logger) (*App, error) {
	a := &App{Config: cfg, Metrics: metrics, store: store, logger: logger}

	runner := migration.NewRunner(store, logger)
	applied, err := runner.Up(ctx)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("migrate store: %w", err)
	}
	if applied > 0 {
		logger.Info("store schema upgraded", zap.Int("applied", applied), zap.Int("version", runner.Latest()))
	}

	retries := cfg.Store.WriteRetries
	notes := repository.NewNoteRepository(store, retries)
	users := repository.NewUserRepository(store, retries)
	logs := repository.NewAdminLogRepository(store, retries)
	sessions := repository.NewSessionRepository(store)
	quarantine := repository.NewQuarantineRepository(store, retries)

	cacheSvc := a.openCache(ctx, cfg, metrics)
	validate := validation.New()

	a.Auth = service.NewAuthService(users, sessions, validate, logger, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
	})
	userSvc := service.NewUserService(users, sessions, logs, cacheSvc, validate, logger)
	a.Notes = service.NewNoteService(notes, quarantine, users, logs, cacheSvc, markdown.NewRenderer(),
		storage.NewSignedURLSigner(cfg.Uploads.DownloadURLSecret, cfg.Uploads.DownloadURLTTL), validate, logger,
		service.NoteConfig{
			MaxFileSize:     cfg.Uploads.MaxFileSizeBytes,
			PendingTTL:      cfg.Uploads.PendingTTL,
			DownloadBaseURL: cfg.APIPrefix + "/downloads/",
		})

	if err := a.startup(ctx, users); err != nil {
		a.Close()
		return nil, err
	}

	statsSvc := service.NewStatsService(notes, users, logs, cacheSvc, cfg.Cache.StatsTTL, logger)
	a.Router = handler.NewRouter(cfg, handler.Services{
		Auth:    a.Auth,
		Users:   userSvc,
		Notes:   a.Notes,
		Admin:   service.NewAdminService(a.Notes, logs, logs, statsSvc, logger),
		Stats:   statsSvc,
		Export:  service.NewExportService(notes, logger),
		Metrics: metrics,
		Ready: func(ctx context.Context) error {
			_, err := runner.Version(ctx)
			return err
		},
	}, logger)

	a.queue = jobs.NewQueue(cleanupQueue, service.CleanupJobHandler(a.Notes, logger), jobs.QueueConfig{
		Workers:    1,
		MaxRetries: 3,
		RetryDelay: 5 * time.Second,
		JobTimeout: time.Minute,
		Coalesce:   true,
		Logger:     logger,
		OnResult:   metrics.ObserveJob,
	})
	a.scheduler = jobs.NewScheduler(a.queue, service.CleanupJobType, cfg.Uploads.SweepInterval, logger)
	return a, nil
}

func (a *App) startup(ctx context.Context, users *repository.UserRepository) error {
	created, err := users.EnsureAdminBootstrap(ctx, a.Config.Admin.Email, func() (string, error) {
		return service.HashPassword(a.Config.Admin.Password)
	})
	if err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	if created {
		a.logger.Info("super admin account created", zap.String("email", a.Config.Admin.Email))
	}

	removed, err := a.Notes.Cleanup(ctx)
	if err != nil {
		return fmt.Errorf("initial cleanup: %w", err)
	}
	if len(removed) > 0 {
		a.logger.Info("quarantined notes without files", zap.Int("removed", len(removed)))
	}

	current, err := a.Auth.CurrentSession(ctx)
	if err != nil {
		a.logger.Warn("failed to restore session", zap.Error(err))
		return nil
	}
	if current != nil {
		a.logger.Info("session restored", zap.String("email", current.Email), zap.String("role", string(current.Role)))
	}
	return nil
}

func (a *App) openCache(ctx context.Context, cfg *config.Config, metrics *service.MetricsService) *service.CacheService {
	if !cfg.Cache.Enabled {
		return nil
	}
	client, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		a.logger.Warn("stats cache disabled: redis unavailable", zap.Error(err))
		return nil
	}
	a.cacheConn = client
	repo := repository.NewCacheRepository(client, a.logger)
	return service.NewCacheService(repo, metrics, cfg.Cache.StatsTTL, a.logger, true)
}

// Start runs the cleanup sweeper until ctx ends or Close is called.
func (a *App) Start(ctx context.Context) {
	a.queue.Start(ctx)
	a.scheduler.Start(ctx)
}

// Close stops background work and releases the store and cache connections.
func (a *App) Close() {
	if a.scheduler != nil {
		a.scheduler.Stop()
	}
	if a.queue != nil {
		a.queue.Stop()
	}
	if a.cacheConn != nil {
		if err := a.cacheConn.Close(); err != nil {
			a.logger.Warn("failed to close cache connection", zap.Error(err))
		}
	}
	if err := a.store.Close(); err != nil {
		a.logger.Warn("failed to close store", zap.Error(err))
	}
}
