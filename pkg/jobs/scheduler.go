package jobs

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Scheduler enqueues a job of a fixed type on a queue at a fixed interval.
type Scheduler struct {
	queue    *Queue
	jobType  string
	interval time.Duration
	logger   *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewScheduler builds a scheduler. Start does nothing when interval <= 0.
func NewScheduler(queue *Queue, jobType string, interval time.Duration, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{queue: queue, jobType: jobType, interval: interval, logger: logger}
}

// Start launches the ticker loop. Safe to call once.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil || s.interval <= 0 {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go s.loop(ctx)
	s.logger.Info("scheduler started", zap.String("job_type", s.jobType), zap.Duration("interval", s.interval))
}

// Stop ends the ticker loop and waits for it to exit.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := s.queue.Enqueue(Job{Type: s.jobType})
			switch {
			case errors.Is(err, ErrAlreadyPending):
				s.logger.Debug("previous run still pending, skipping tick", zap.String("job_type", s.jobType))
			case err != nil:
				s.logger.Warn("scheduled enqueue failed", zap.String("job_type", s.jobType), zap.Error(err))
			}
		}
	}
}
