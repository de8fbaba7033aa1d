package prompt

import "time"

// Template is a stored prompt template. Bodies use text/template syntax; the
// real generation engine downstream is out of scope here, rendering is plain
// variable substitution.
type Template struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GenerateRequest is the request-path entry into the gating sequence.
type GenerateRequest struct {
	UserID     string            `json:"user_id"`
	TemplateID string            `json:"template_id"`
	Vars       map[string]string `json:"vars"`
}

// GenerateResult is the primary response of a successful generation.
type GenerateResult struct {
	Rendered string `json:"rendered"`
	Balance  int    `json:"credits_balance"`
}
