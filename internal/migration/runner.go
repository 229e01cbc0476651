// Package migration upgrades stored documents to the current schema version.
package migration

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/uninotes-api/internal/repository"
	"github.com/noah-isme/uninotes-api/pkg/kvstore"
)

// Step is one ordered, idempotent schema change.
type Step struct {
	Version int
	Name    string
	Apply   func(ctx context.Context, store kvstore.Store) error
}

// Runner applies Steps above the stored schema version.
type Runner struct {
	store  kvstore.Store
	steps  []Step
	logger *zap.Logger
}

// NewRunner returns a runner over the default steps.
func NewRunner(store kvstore.Store, logger *zap.Logger) *Runner {
	return NewRunnerWithSteps(store, DefaultSteps(), logger)
}

// NewRunnerWithSteps returns a runner over steps, which must be in ascending version order.
func NewRunnerWithSteps(store kvstore.Store, steps []Step, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{store: store, steps: steps, logger: logger}
}

// Latest is the version the runner migrates to.
func (r *Runner) Latest() int {
	if len(r.steps) == 0 {
		return 0
	}
	return r.steps[len(r.steps)-1].Version
}

// Version reports the stored schema version, 0 when none is recorded.
func (r *Runner) Version(ctx context.Context) (int, error) {
	version, _, err := r.read(ctx)
	return version, err
}

// Up applies every pending step in order and records the version after each one.
// It returns the number of steps applied.
func (r *Runner) Up(ctx context.Context) (int, error) {
	current, docVersion, err := r.read(ctx)
	if err != nil {
		return 0, err
	}
	applied := 0
	for _, step := range r.steps {
		if step.Version <= current {
			continue
		}
		if err := step.Apply(ctx, r.store); err != nil {
			return applied, fmt.Errorf("migration %d %s: %w", step.Version, step.Name, err)
		}
		docVersion, err = kvstore.PutJSON(ctx, r.store, repository.KeySchemaVersion, step.Version, docVersion)
		if err != nil {
			return applied, fmt.Errorf("record schema version %d: %w", step.Version, err)
		}
		current = step.Version
		applied++
		r.logger.Info("schema migration applied", zap.Int("version", step.Version), zap.String("name", step.Name))
	}
	return applied, nil
}

func (r *Runner) read(ctx context.Context) (int, int64, error) {
	var version int
	docVersion, err := kvstore.GetJSON(ctx, r.store, repository.KeySchemaVersion, &version)
	if errors.Is(err, kvstore.ErrNotFound) {
		return 0, 0, nil
	}
	if err != nil {
		return 0, 0, fmt.Errorf("read schema version: %w", err)
	}
	return version, docVersion, nil
}
