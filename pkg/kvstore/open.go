package kvstore

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/uninotes-api/pkg/cache"
	"github.com/noah-isme/uninotes-api/pkg/config"
	"github.com/noah-isme/uninotes-api/pkg/database"
)

const redisKeyPrefix = "kv:"

// Open builds the backend selected by cfg.Store.Driver.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := cfg.Store.MaxDocumentBytes

	switch cfg.Store.Driver {
	case "", config.StoreMemory:
		logger.Warn("using in-memory document store; data is lost on restart")
		return NewMemoryStore(limit), nil
	case config.StoreFile:
		return NewFileStore(cfg.Store.FileDir, limit)
	case config.StorePostgres:
		db, err := database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := Migrate(ctx, db.DB); err != nil {
			_ = db.Close()
			return nil, err
		}
		return NewPostgresStore(db, limit), nil
	case config.StoreRedis:
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		return NewRedisStore(client, redisKeyPrefix, limit), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
