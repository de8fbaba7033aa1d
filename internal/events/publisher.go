// Package events publishes job lifecycle events to NSQ for downstream
// analytics. Publishing is fire-and-forget: a failed publish is logged and
// never affects job processing.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"promptforge/apps/backend/internal/config"
	"promptforge/apps/backend/internal/middleware"
)

type NSQPublisher interface {
	Publish(topic string, body []byte) error
}

type Event struct {
	Kind          string `json:"kind"`
	JobID         string `json:"job_id"`
	JobType       string `json:"job_type"`
	Reason        string `json:"reason,omitempty"`
	Terminal      bool   `json:"terminal,omitempty"`
	CorrelationID string `json:"correlation_id,omitempty"`
	OccurredAt    string `json:"occurred_at"`
}

// Publisher is nil-safe: a nil *Publisher drops all events, so wiring can
// leave it out when NSQ is disabled.
type Publisher struct {
	pub NSQPublisher
}

func NewPublisher(pub NSQPublisher) *Publisher {
	return &Publisher{pub: pub}
}

func (p *Publisher) JobEnqueued(ctx context.Context, jobID, jobType string) {
	p.publish(ctx, Event{Kind: "enqueued", JobID: jobID, JobType: jobType})
}

func (p *Publisher) JobCompleted(ctx context.Context, jobID, jobType string) {
	p.publish(ctx, Event{Kind: "completed", JobID: jobID, JobType: jobType})
}

func (p *Publisher) JobFailed(ctx context.Context, jobID, jobType, reason string, terminal bool) {
	p.publish(ctx, Event{Kind: "failed", JobID: jobID, JobType: jobType, Reason: reason, Terminal: terminal})
}

func (p *Publisher) publish(ctx context.Context, ev Event) {
	if p == nil || p.pub == nil {
		return
	}
	ev.CorrelationID = middleware.GetCorrelationID(ctx)
	ev.OccurredAt = time.Now().UTC().Format(time.RFC3339Nano)

	body, err := json.Marshal(ev)
	if err != nil {
		slog.ErrorContext(ctx, "failed to marshal lifecycle event", "error", err)
		return
	}
	if err := p.pub.Publish(config.TopicJobLifecycle, body); err != nil {
		slog.WarnContext(ctx, "failed to publish lifecycle event", "kind", ev.Kind, "job_id", ev.JobID, "error", err)
	}
}
