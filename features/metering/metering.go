package metering

import (
	"errors"
	"time"
)

var (
	// ErrInsufficientBalance means the conditional decrement matched the
	// profile but the balance could not cover the amount.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrProfileNotFound means no balance record exists for the user. Distinct
	// from exhaustion: it signals a provisioning gap.
	ErrProfileNotFound = errors.New("profile not found")
)

// Profile carries a user's consumable credit balance. The balance is only
// ever mutated through the atomic gate, never read-then-written.
type Profile struct {
	UserID         string    `json:"user_id"`
	CreditsBalance int       `json:"credits_balance"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
