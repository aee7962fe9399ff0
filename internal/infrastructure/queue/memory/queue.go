// Package memory is the in-process compression job queue: a bounded channel
// served by a fixed worker pool.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rushabh-runwal/ai-quote-generator/internal/core/domain"
	"github.com/rushabh-runwal/ai-quote-generator/internal/observability/logging"
)

var (
	errQueueFull   = errors.New("compression queue is full")
	errQueueClosed = errors.New("compression queue is closed")
)

type Options struct {
	Workers      int
	Buffer       int
	JobTimeout   time.Duration
	DrainTimeout time.Duration
}

func (o Options) normalize() Options {
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.Buffer < 0 {
		o.Buffer = 0
	}
	if o.JobTimeout <= 0 {
		o.JobTimeout = 5 * time.Minute
	}
	if o.DrainTimeout <= 0 {
		o.DrainTimeout = 30 * time.Second
	}
	return o
}

type Queue struct {
	opts Options
	jobs chan domain.CompressionJob
	log  logging.Logger

	mu     sync.RWMutex
	closed bool
}

func New(opts Options, log logging.Logger) *Queue {
	opts = opts.normalize()
	if log == nil {
		log = logging.NewNop()
	}
	return &Queue{
		opts: opts,
		jobs: make(chan domain.CompressionJob, opts.Buffer),
		log:  log.With(logging.Fields{"component": "memory_queue"}),
	}
}

// Enqueue never blocks: a full buffer fails with a temporary error.
func (q *Queue) Enqueue(ctx context.Context, job domain.CompressionJob) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return domain.WrapError(domain.ErrTemporary, "enqueue compression job", errQueueClosed)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case q.jobs <- job:
		return nil
	default:
		return domain.WrapError(domain.ErrTemporary, "enqueue compression job", errQueueFull)
	}
}

// Len is the number of jobs waiting for a worker.
func (q *Queue) Len() int {
	return len(q.jobs)
}

// Subscribe runs the worker pool until ctx is done, then stops accepting jobs
// and drains the buffer. Jobs still running after the drain timeout are
// cancelled through their context.
func (q *Queue) Subscribe(ctx context.Context, handler func(context.Context, domain.CompressionJob) error) error {
	if handler == nil {
		return fmt.Errorf("memory queue: handler is nil")
	}
	q.mu.RLock()
	closed := q.closed
	q.mu.RUnlock()
	if closed {
		return errQueueClosed
	}

	jobCtx, cancelJobs := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelJobs()

	var wg sync.WaitGroup
	for i := 0; i < q.opts.Workers; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for job := range q.jobs {
				q.run(jobCtx, worker, handler, job)
			}
		}(i)
	}

	<-ctx.Done()
	q.close()
	q.log.Info("queue_draining", logging.Fields{"pending": len(q.jobs)})

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(q.opts.DrainTimeout)
	defer timer.Stop()
	select {
	case <-done:
		q.log.Info("queue_drained", nil)
		return nil
	case <-timer.C:
		cancelJobs()
		<-done
		return fmt.Errorf("memory queue: drain exceeded %s, remaining jobs cancelled", q.opts.DrainTimeout)
	}
}

func (q *Queue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.jobs)
}

func (q *Queue) run(ctx context.Context, worker int, handler func(context.Context, domain.CompressionJob) error, job domain.CompressionJob) {
	jobCtx, cancel := context.WithTimeout(ctx, q.opts.JobTimeout)
	defer cancel()

	defer func() {
		if rec := recover(); rec != nil {
			q.log.Error("compression_job_panic", logging.Fields{"job_id": job.JobID, "worker": worker, "panic": fmt.Sprint(rec)})
		}
	}()

	if err := handler(jobCtx, job); err != nil {
		q.log.Error("compression_job_failed", logging.Fields{"job_id": job.JobID, "worker": worker, "error": err.Error()})
	}
}
