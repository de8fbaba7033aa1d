package queue

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
)

// EnqueueNotifier is notified after a job is persisted. Best-effort.
type EnqueueNotifier interface {
	JobEnqueued(ctx context.Context, jobID, jobType string)
}

// Service is the enqueue-side API. Enqueue is fire-and-forget from the
// caller's point of view: request handlers log a failed enqueue and carry on
// with their primary response.
type Service struct {
	repo     Repository
	notifier EnqueueNotifier
}

func NewService(repo Repository, notifier EnqueueNotifier) *Service {
	return &Service{repo: repo, notifier: notifier}
}

func (s *Service) Enqueue(ctx context.Context, jobType string, payload any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	id, err := s.repo.Enqueue(ctx, jobType, body)
	if err != nil {
		return "", err
	}
	if s.notifier != nil {
		s.notifier.JobEnqueued(ctx, id, jobType)
	}
	return id, nil
}

// EnqueueBestEffort swallows enqueue failures after logging them. For side
// effects of a request that has already succeeded.
func (s *Service) EnqueueBestEffort(ctx context.Context, jobType string, payload any) {
	if _, err := s.Enqueue(ctx, jobType, payload); err != nil {
		slog.WarnContext(ctx, "best-effort enqueue failed", "type", jobType, "error", err)
	}
}

func (s *Service) Get(ctx context.Context, id string) (*Job, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, status string) ([]Job, error) {
	return s.repo.List(ctx, status)
}

func (s *Service) ClaimNext(ctx context.Context, lease time.Duration) (*Job, error) {
	return s.repo.ClaimNext(ctx, lease)
}
