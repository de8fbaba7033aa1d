// Package worker pulls jobs from the queue store and runs them through the
// dispatcher. Workers are stateless: any number of them may poll the same
// store concurrently, the claim statement is the only coordination point.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"promptforge/apps/backend/features/queue"
)

// Result describes the outcome of a single poll.
type Result struct {
	Processed bool   `json:"processed"`
	JobID     string `json:"job_id,omitempty"`
	Status    string `json:"status,omitempty"`
}

type Worker struct {
	repo       queue.Repository
	dispatcher *queue.Dispatcher
	lease      time.Duration
	interval   time.Duration
}

func New(repo queue.Repository, dispatcher *queue.Dispatcher, lease, interval time.Duration) *Worker {
	return &Worker{repo: repo, dispatcher: dispatcher, lease: lease, interval: interval}
}

// ProcessOne claims and dispatches at most one job. Handler failures are
// recorded in job state and do not surface here; only store-level failures
// return an error, so callers (the poll endpoint, the loop) fail loudly when
// the queue itself is unreachable.
func (w *Worker) ProcessOne(ctx context.Context) (Result, error) {
	job, err := w.repo.ClaimNext(ctx, w.lease)
	if err != nil {
		return Result{}, fmt.Errorf("claim next: %w", err)
	}
	if job == nil {
		return Result{}, nil
	}

	if err := w.dispatcher.Process(ctx, job); err != nil {
		return Result{Processed: true, JobID: job.ID}, err
	}

	after, err := w.repo.Get(ctx, job.ID)
	if err != nil {
		return Result{Processed: true, JobID: job.ID}, fmt.Errorf("reload job: %w", err)
	}
	return Result{Processed: true, JobID: after.ID, Status: after.Status}, nil
}

// Run polls until ctx is cancelled. One job per tick; bursts are absorbed by
// tick frequency, not batch draining.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	slog.Info("worker started", "interval", w.interval, "lease", w.lease)
	for {
		select {
		case <-ctx.Done():
			slog.Info("worker stopped")
			return
		case <-ticker.C:
			if _, err := w.ProcessOne(ctx); err != nil {
				slog.Error("worker poll failed", "error", err)
			}
		}
	}
}
