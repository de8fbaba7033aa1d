// Package admission sequences the per-request gating checks: rate limit
// first, then the atomic credit decrement. One shot per request; the caller
// retries after ResetAt if it wants to.
package admission

import (
	"context"
	"time"

	"promptforge/apps/backend/features/metering"
	"promptforge/apps/backend/internal/ratelimit"
)

// Outcome of a gating sequence.
const (
	Admitted            = "admitted"
	RateLimited         = "rate_limited"
	InsufficientCredits = "insufficient_credits"
	ProfileMissing      = "profile_missing"
)

type RateLimiter interface {
	Check(ctx context.Context, identifier, tier string) ratelimit.Decision
}

type Meter interface {
	CheckAndDecrement(ctx context.Context, userID string, amount int) (metering.Result, error)
}

// Admission is the decision for one request.
type Admission struct {
	Outcome string
	// ResetAt is set when Outcome is RateLimited.
	ResetAt time.Time
	// Balance is the current balance when credits were checked.
	Balance int
}

type Gate struct {
	limiter RateLimiter
	meter   Meter
}

func NewGate(limiter RateLimiter, meter Meter) *Gate {
	return &Gate{limiter: limiter, meter: meter}
}

// Admit runs the gating sequence for one request. The returned error is an
// infrastructure failure in the metering store; gate rejections are carried
// in the Admission value.
func (g *Gate) Admit(ctx context.Context, userID, identifier, tier string, cost int) (Admission, error) {
	decision := g.limiter.Check(ctx, identifier, tier)
	if !decision.Allowed {
		return Admission{Outcome: RateLimited, ResetAt: decision.ResetAt}, nil
	}

	res, err := g.meter.CheckAndDecrement(ctx, userID, cost)
	if err != nil {
		return Admission{}, err
	}
	if !res.Success {
		if res.Error == "profile_not_found" {
			return Admission{Outcome: ProfileMissing}, nil
		}
		return Admission{Outcome: InsufficientCredits, Balance: res.CurrentBalance}, nil
	}
	return Admission{Outcome: Admitted, Balance: res.CurrentBalance}, nil
}
