package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrAlreadyPending is returned by Enqueue on a coalescing queue when a job of
// the same type is queued or running.
var ErrAlreadyPending = errors.New("job already pending")

// Job is one unit of background work.
type Job struct {
	ID       string
	Type     string
	Attempt  int
	Enqueued time.Time
}

// Handler processes a job.
type Handler func(context.Context, Job) error

// ResultFunc observes every handler run.
type ResultFunc func(queue string, job Job, err error, elapsed time.Duration)

// QueueConfig tunes a Queue. Zero values pick small defaults.
type QueueConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	// RetryDelay is the first backoff; each further attempt doubles it.
	RetryDelay time.Duration
	// JobTimeout bounds a single handler run. Zero means no limit.
	JobTimeout time.Duration
	// Coalesce drops a new job while another of the same type is pending.
	Coalesce bool
	Logger   *zap.Logger
	OnResult ResultFunc
}

// Queue runs jobs on a fixed pool of goroutines and retries failures with backoff.
type Queue struct {
	name    string
	handler Handler
	cfg     QueueConfig
	logger  *zap.Logger

	jobs chan Job

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	pending map[string]int
	wg      sync.WaitGroup
}

// NewQueue builds a stopped queue; call Start before Enqueue.
func NewQueue(name string, handler Handler, cfg QueueConfig) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 4
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{
		name:    name,
		handler: handler,
		cfg:     cfg,
		logger:  logger.With(zap.String("queue", name)),
		jobs:    make(chan Job, cfg.BufferSize),
		pending: make(map[string]int),
	}
}

// Start launches the workers. Calling it twice is a no-op.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.ctx != nil {
		return
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	for i := 0; i < q.cfg.Workers; i++ {
		q.wg.Add(1)
		go q.work()
	}
	q.logger.Info("queue started", zap.Int("workers", q.cfg.Workers))
}

// Stop cancels in-flight work, drops pending retries and waits for workers to exit.
func (q *Queue) Stop() {
	q.mu.Lock()
	cancel := q.cancel
	q.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	q.wg.Wait()
	q.logger.Info("queue stopped")
}

// Enqueue schedules job. It fails when the queue is not running or, for a
// coalescing queue, returns ErrAlreadyPending when the job type is already pending.
func (q *Queue) Enqueue(job Job) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Enqueued.IsZero() {
		job.Enqueued = time.Now().UTC()
	}

	q.mu.Lock()
	ctx := q.ctx
	if ctx == nil {
		q.mu.Unlock()
		return fmt.Errorf("queue %s not started", q.name)
	}
	if q.cfg.Coalesce && job.Attempt == 0 && q.pending[job.Type] > 0 {
		q.mu.Unlock()
		return ErrAlreadyPending
	}
	if job.Attempt == 0 {
		q.pending[job.Type]++
	}
	q.mu.Unlock()

	select {
	case <-ctx.Done():
		if job.Attempt == 0 {
			q.release(job)
		}
		return fmt.Errorf("queue %s stopped: %w", q.name, ctx.Err())
	case q.jobs <- job:
		return nil
	}
}

func (q *Queue) work() {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case job := <-q.jobs:
			q.run(job)
		}
	}
}

func (q *Queue) run(job Job) {
	ctx := q.ctx
	if q.cfg.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.cfg.JobTimeout)
		defer cancel()
	}

	start := time.Now()
	err := q.handler(ctx, job)
	if q.cfg.OnResult != nil {
		q.cfg.OnResult(q.name, job, err, time.Since(start))
	}
	if err == nil {
		q.release(job)
		return
	}
	if job.Attempt >= q.cfg.MaxRetries {
		q.logger.Error("job exhausted retries", zap.String("job_id", job.ID), zap.String("type", job.Type), zap.Int("attempts", job.Attempt+1), zap.Error(err))
		q.release(job)
		return
	}
	q.retry(job, err)
}

func (q *Queue) retry(job Job, cause error) {
	delay := q.cfg.RetryDelay << job.Attempt
	job.Attempt++
	q.logger.Warn("job failed, retrying", zap.String("job_id", job.ID), zap.String("type", job.Type),
		zap.Int("attempt", job.Attempt), zap.Duration("backoff", delay), zap.Error(cause))

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-q.ctx.Done():
			q.release(job)
		case <-timer.C:
			if err := q.Enqueue(job); err != nil {
				q.logger.Error("failed to requeue job", zap.String("job_id", job.ID), zap.Error(err))
				q.release(job)
			}
		}
	}()
}

// release marks job as no longer pending for coalescing.
func (q *Queue) release(job Job) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.pending[job.Type] > 0 {
		q.pending[job.Type]--
	}
}
