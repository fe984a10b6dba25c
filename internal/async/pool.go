package async

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/joseph-ayodele/blotter-tracker/internal/common"
	"github.com/joseph-ayodele/blotter-tracker/internal/pipeline"
)

// FileProcessor is the part of pipeline.Processor the pool drives.
type FileProcessor interface {
	ProcessFile(ctx context.Context, path, countyOverride string) (*pipeline.Result, error)
}

// Pool runs queued jobs on a fixed set of workers.
type Pool struct {
	proc    FileProcessor
	logger  *slog.Logger
	workers int
	timeout time.Duration

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex
	closed bool

	processed atomic.Int64
	failed    atomic.Int64
}

type Option func(*Pool)

func WithWorkers(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.workers = n
		}
	}
}
func WithQueueSize(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.ch = make(chan Job, n)
		}
	}
}
func WithProcessTimeout(d time.Duration) Option {
	return func(p *Pool) {
		if d > 0 {
			p.timeout = d
		}
	}
}

func NewPool(proc FileProcessor, logger *slog.Logger, opts ...Option) *Pool {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pool{
		proc:    proc,
		logger:  logger,
		workers: 2,
		timeout: 2 * time.Minute,
		ch:      make(chan Job, 64),
	}
	for _, o := range opts {
		o(p)
	}
	p.start()
	return p
}

func (p *Pool) start() {
	p.once.Do(func() {
		for i := 0; i < p.workers; i++ {
			p.wg.Add(1)
			go func(workerID int) {
				defer p.wg.Done()
				p.logger.Debug("worker started", "worker_id", workerID)

				for job := range p.ch {
					p.run(workerID, job)
				}

				p.logger.Debug("worker stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (p *Pool) run(workerID int, job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	if job.TraceID != "" {
		ctx = common.WithRequestID(ctx, job.TraceID)
	}

	res, err := p.proc.ProcessFile(ctx, job.Path, job.County)
	if err != nil {
		p.failed.Add(1)
		p.logger.Error("processing failed", "worker_id", workerID, "path", job.Path, "error", err)
		return
	}
	p.processed.Add(1)
	if res.Duplicate {
		p.logger.Info("skipped duplicate document", "worker_id", workerID, "path", job.Path, "batch_id", res.Batch.ID)
		return
	}
	p.logger.Info("processed document",
		"worker_id", workerID,
		"path", job.Path,
		"batch_id", res.Batch.ID,
		"incidents", res.Parse.TotalCount,
		"queued_ms", time.Since(job.SubmittedAt).Milliseconds(),
	)
}

// Enqueue blocks while the buffer is full until ctx is done.
func (p *Pool) Enqueue(ctx context.Context, job Job) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		p.logger.Warn("cannot enqueue: queue is shutting down", "path", job.Path)
		return ErrQueueClosed
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}
	select {
	case p.ch <- job:
		p.logger.Debug("queued document", "path", job.Path)
		return nil
	default:
	}
	p.logger.Warn("queue full, applying backpressure", "path", job.Path)
	select {
	case p.ch <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats reports how many jobs finished and how many failed.
func (p *Pool) Stats() (processed, failed int64) {
	return p.processed.Load(), p.failed.Load()
}

// Shutdown stops accepting jobs and waits for queued ones to drain or ctx to end.
func (p *Pool) Shutdown(ctx context.Context) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.ch)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); p.wg.Wait() }()

	select {
	case <-ctx.Done():
		p.logger.Warn("shutdown interrupted by context")
	case <-done:
		p.logger.Info("queue drained, shutdown complete")
	}
}

var _ Queue = (*Pool)(nil)
