// Package dispatch owns job execution: one goroutine per submitted job,
// bounded total concurrency, and a guarantee that every job ends in a
// terminal state no matter how its pipeline dies.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/codebuildervaibhav/media-pipeline/internal/pipeline"
	"github.com/codebuildervaibhav/media-pipeline/internal/progress"
	"github.com/codebuildervaibhav/media-pipeline/internal/types"
)

// ErrNotRunning is returned when cancelling a job with no active executor.
var ErrNotRunning = errors.New("job is not running")

// ErrCanceled is the terminal cause recorded for a cancelled job.
var ErrCanceled = errors.New("job canceled")

// Records is the durable side of submission and completion. All calls
// are best-effort; a nil Records degrades to in-memory-only operation.
type Records interface {
	Insert(job *types.Job) error
	Finish(jobID string, status types.Status, resultText string, resultFiles []string, errMsg string) error
}

// Dispatcher launches one execution goroutine per submitted job. The
// goroutine is the only writer to that job's progress record and
// durable row for its whole lifetime.
type Dispatcher struct {
	pipeline *pipeline.Pipeline
	store    *progress.Store
	records  Records
	logger   *slog.Logger

	// sem bounds how many jobs execute at once; a saturated semaphore
	// queues the goroutine, it never blocks the submitting caller.
	sem chan struct{}

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a dispatcher running at most maxConcurrent jobs at once.
// records may be nil when the durable store is unreachable.
func New(p *pipeline.Pipeline, store *progress.Store, records Records, maxConcurrent int, logger *slog.Logger) *Dispatcher {
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	return &Dispatcher{
		pipeline: p,
		store:    store,
		records:  records,
		logger:   logger,
		sem:      make(chan struct{}, maxConcurrent),
		cancels:  make(map[string]context.CancelFunc),
	}
}

// Submit registers the job and spawns its executor, returning the job
// ID immediately. The job starts in pending and is observable by
// pollers before any stage has run.
func (d *Dispatcher) Submit(job *types.Job) (string, error) {
	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	job.Status = types.StatusPending
	job.Progress = 0
	job.CreatedAt = time.Now()
	job.UpdatedAt = job.CreatedAt

	if _, err := d.store.Create(job.ID); err != nil {
		return "", fmt.Errorf("failed to register job: %w", err)
	}

	if d.records != nil {
		if err := d.records.Insert(job); err != nil {
			d.logger.Warn("durable job insert failed, continuing in-memory only", "job_id", job.ID, "error", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	d.mu.Lock()
	d.cancels[job.ID] = cancel
	d.mu.Unlock()

	d.wg.Add(1)
	go d.run(ctx, cancel, job)

	d.logger.Info("job submitted", "job_id", job.ID, "type", job.Type, "source", job.InputType)
	return job.ID, nil
}

// Cancel requests cooperative cancellation of a running job. The
// executor notices between stages and records a failed terminal state.
func (d *Dispatcher) Cancel(jobID string) error {
	d.mu.Lock()
	cancel, ok := d.cancels[jobID]
	d.mu.Unlock()
	if !ok {
		return ErrNotRunning
	}
	cancel()
	return nil
}

// Wait blocks until all in-flight jobs have reached a terminal state.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// run is the executor body. A panic anywhere inside the pipeline is
// converted into a failed terminal state so a crashed worker can never
// leave its job stuck in processing.
func (d *Dispatcher) run(ctx context.Context, cancel context.CancelFunc, job *types.Job) {
	defer d.wg.Done()
	defer func() {
		cancel()
		d.mu.Lock()
		delete(d.cancels, job.ID)
		d.mu.Unlock()
	}()
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("panic processing job",
				"job_id", job.ID, "panic", r, "stack", string(debug.Stack()))
			d.finalize(job, fmt.Errorf("worker panic: %v", r))
		}
	}()

	d.sem <- struct{}{}
	defer func() { <-d.sem }()

	if ctx.Err() != nil {
		d.finalize(job, ErrCanceled)
		return
	}

	d.logger.Info("job started", "job_id", job.ID, "type", job.Type)
	err := d.pipeline.Run(ctx, job)
	d.finalize(job, err)
}

// finalize writes the terminal state exactly once, to both stores.
func (d *Dispatcher) finalize(job *types.Job, err error) {
	if err != nil {
		if errors.Is(err, context.Canceled) {
			err = ErrCanceled
		}
		job.Status = types.StatusFailed
		job.ErrorMessage = err.Error()
		job.UpdatedAt = time.Now()

		d.store.Fail(job.ID, job.ErrorMessage)
		d.logger.Warn("job failed", "job_id", job.ID, "error", err)
	} else {
		job.Status = types.StatusCompleted
		job.Progress = 100
		job.UpdatedAt = time.Now()

		d.store.Complete(job.ID, job.ResultText, job.ResultFiles)
		d.logger.Info("job completed", "job_id", job.ID, "result_files", len(job.ResultFiles))
	}

	if d.records != nil {
		if ferr := d.records.Finish(job.ID, job.Status, job.ResultText, job.ResultFiles, job.ErrorMessage); ferr != nil {
			d.logger.Warn("durable finish write failed", "job_id", job.ID, "error", ferr)
		}
	}
}
