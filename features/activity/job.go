package activity

import (
	"context"
	"encoding/json"
	"fmt"

	"promptforge/apps/backend/features/queue"
)

// JobType is the registry key for the activity logging handler.
const JobType = "activity_log"

// NewJobHandler returns the queue handler that persists activity entries.
// Idempotent by construction: the insert is keyed by the payload's event id.
func NewJobHandler(repo Repository) queue.HandlerFunc {
	return func(ctx context.Context, payload json.RawMessage) error {
		var p LogPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return fmt.Errorf("decode activity_log payload: %w", err)
		}
		if p.EventID == "" || p.UserID == "" || p.Action == "" {
			return fmt.Errorf("activity_log payload missing event_id, user_id or action")
		}
		return repo.Insert(ctx, &Entry{
			EventID:  p.EventID,
			UserID:   p.UserID,
			Action:   p.Action,
			Metadata: p.Metadata,
		})
	}
}
