package activity

import (
	"encoding/json"
	"time"
)

// Entry is one recorded user action. EventID is the idempotency key: the same
// logical event inserted twice (at-least-once job redelivery) lands exactly
// one row.
type Entry struct {
	ID        string          `json:"id"`
	EventID   string          `json:"event_id"`
	UserID    string          `json:"user_id"`
	Action    string          `json:"action"`
	Metadata  json.RawMessage `json:"metadata"`
	CreatedAt time.Time       `json:"created_at"`
}

// LogPayload is the payload contract for the activity_log job type.
type LogPayload struct {
	EventID  string          `json:"event_id"`
	UserID   string          `json:"user_id"`
	Action   string          `json:"action"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}
