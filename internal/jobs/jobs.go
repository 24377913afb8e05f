// Package jobs runs the periodic maintenance work: story expiry sweeps,
// notification retention and follow graph reconciliation.
package jobs

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"socialhub/internal/models"
	"socialhub/internal/observability"
)

// Job is one unit of periodic work.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

type scheduled struct {
	job   Job
	every time.Duration
}

// Runner ticks each registered job on its own interval.
type Runner struct {
	jobs []scheduled
	wg   sync.WaitGroup
}

// NewRunner creates an empty Runner.
func NewRunner() *Runner {
	return &Runner{}
}

// Add schedules job every interval. Non-positive intervals disable the job.
func (r *Runner) Add(job Job, every time.Duration) *Runner {
	if every > 0 {
		r.jobs = append(r.jobs, scheduled{job: job, every: every})
	}
	return r
}

// Start launches one goroutine per job. They stop when ctx is cancelled.
func (r *Runner) Start(ctx context.Context) {
	for _, s := range r.jobs {
		r.wg.Add(1)
		go func(s scheduled) {
			defer r.wg.Done()
			r.loop(ctx, s)
		}(s)
	}
}

// Wait blocks until every job goroutine has returned.
func (r *Runner) Wait() {
	r.wg.Wait()
}

func (r *Runner) loop(ctx context.Context, s scheduled) {
	ticker := time.NewTicker(s.every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = RunOnce(ctx, s.job)
		}
	}
}

// RunOnce executes job with a fresh correlation ID, recovering panics and
// recording the outcome.
func RunOnce(ctx context.Context, job Job) (err error) {
	ctx = observability.WithCorrelationID(ctx, observability.GenerateCorrelationID())
	name := job.Name()
	observability.LogAsyncOperationStart(ctx, name, nil)

	defer func() {
		if rec := recover(); rec != nil {
			err = models.NewInternalError(fmt.Errorf("job %s panicked: %v", name, rec))
			observability.GlobalLogger.ErrorContext(ctx, "job panic", "job", name, "stack", string(debug.Stack()))
		}
		if err != nil {
			observability.JobRuns.WithLabelValues(name, "error").Inc()
			observability.LogAsyncOperationError(ctx, name, err, nil)
			return
		}
		observability.JobRuns.WithLabelValues(name, "ok").Inc()
		observability.LogAsyncOperationEnd(ctx, name, nil)
	}()

	return job.Run(ctx)
}
