package achievement

import "time"

// Award is one achievement granted to a user. (user_id, code) is the primary
// key, which makes granting idempotent at the storage layer.
type Award struct {
	UserID    string    `json:"user_id"`
	Code      string    `json:"code"`
	AwardedAt time.Time `json:"awarded_at"`
}

// CheckPayload is the payload contract for the achievement_check job type.
type CheckPayload struct {
	UserID string `json:"userId"`
}

// Codes evaluated by the check handler, with their activity thresholds.
const (
	CodeFirstPrompt    = "first_prompt"
	CodeProlificAuthor = "prolific_author"
)

const prolificThreshold = 50
