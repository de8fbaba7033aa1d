package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"promptforge/apps/backend/internal/backoff"
)

// LifecycleNotifier receives job state transitions. Notifications are
// best-effort; implementations must not block processing.
type LifecycleNotifier interface {
	JobCompleted(ctx context.Context, jobID, jobType string)
	JobFailed(ctx context.Context, jobID, jobType, reason string, terminal bool)
}

// Dispatcher runs a claimed job through its registered handler and owns the
// retry/terminal-failure bookkeeping afterwards.
type Dispatcher struct {
	registry   *Registry
	repo       Repository
	backoff    backoff.Strategy
	maxAttempt int
	notifier   LifecycleNotifier
	clock      func() time.Time
}

func NewDispatcher(registry *Registry, repo Repository, strategy backoff.Strategy, maxAttempts int, notifier LifecycleNotifier) *Dispatcher {
	return &Dispatcher{
		registry:   registry,
		repo:       repo,
		backoff:    strategy,
		maxAttempt: maxAttempts,
		notifier:   notifier,
		clock:      time.Now,
	}
}

// Process executes job's handler and writes the outcome back to the store.
// Handler errors and unknown job types never escape: they consume the attempt
// and either re-arm the job with a backoff delay or, once the attempt ceiling
// is reached, mark it failed for good. The returned error is reserved for
// store write-back failures.
func (d *Dispatcher) Process(ctx context.Context, job *Job) error {
	handler, ok := d.registry.Get(job.Type)
	if !ok {
		return d.writeFailure(ctx, job, fmt.Errorf("no handler registered for type %q", job.Type))
	}

	if err := d.run(ctx, handler, job); err != nil {
		return d.writeFailure(ctx, job, err)
	}

	if err := d.repo.MarkCompleted(ctx, job.ID); err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}
	if d.notifier != nil {
		d.notifier.JobCompleted(ctx, job.ID, job.Type)
	}
	slog.InfoContext(ctx, "job completed", "job_id", job.ID, "type", job.Type, "attempts", job.Attempts)
	return nil
}

// run executes the handler with a panic boundary. A panicking handler must
// not take down the polling loop; it is recorded like any other failure.
func (d *Dispatcher) run(ctx context.Context, handler HandlerFunc, job *Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return handler(ctx, job.Payload)
}

func (d *Dispatcher) writeFailure(ctx context.Context, job *Job, cause error) error {
	if job.Attempts >= d.maxAttempt {
		if err := d.repo.MarkFailed(ctx, job.ID, cause.Error()); err != nil {
			return fmt.Errorf("mark failed: %w", err)
		}
		if d.notifier != nil {
			d.notifier.JobFailed(ctx, job.ID, job.Type, cause.Error(), true)
		}
		slog.ErrorContext(ctx, "job failed permanently", "job_id", job.ID, "type", job.Type, "attempts", job.Attempts, "error", cause)
		return nil
	}

	runAt := d.clock().Add(d.backoff.Delay(job.Attempts))
	if err := d.repo.RetryLater(ctx, job.ID, runAt, cause.Error()); err != nil {
		return fmt.Errorf("retry later: %w", err)
	}
	if d.notifier != nil {
		d.notifier.JobFailed(ctx, job.ID, job.Type, cause.Error(), false)
	}
	slog.WarnContext(ctx, "job attempt failed, re-armed", "job_id", job.ID, "type", job.Type, "attempts", job.Attempts, "retry_at", runAt, "error", cause)
	return nil
}
