// Package ratelimit implements a tiered fixed-window admission check backed
// by Redis. Each identifier gets an independent counter per window; counters
// carry a TTL equal to the window, so stale state expires on its own.
//
// Degraded mode is fail-open: when Redis is unreachable the request is
// allowed and the outage is logged. Admission control must not become a
// single point of total outage.
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Tier is a named rate-limit class with its own quota and window.
type Tier struct {
	Name   string
	Quota  int64
	Window time.Duration
}

// Decision is the outcome of one admission check.
type Decision struct {
	Allowed   bool
	Remaining int64
	ResetAt   time.Time
}

type Limiter struct {
	client *redis.Client
	tiers  map[string]Tier
	clock  func() time.Time
}

func New(client *redis.Client, tiers []Tier) *Limiter {
	m := make(map[string]Tier, len(tiers))
	for _, t := range tiers {
		m[t.Name] = t
	}
	return &Limiter{client: client, tiers: m, clock: time.Now}
}

// Check counts the request against identifier's window for the given tier.
// Unknown tiers are denied outright; guessing a quota would be unsafe.
func (l *Limiter) Check(ctx context.Context, identifier, tier string) Decision {
	t, ok := l.tiers[tier]
	if !ok {
		slog.WarnContext(ctx, "rate limit check for unknown tier", "tier", tier)
		return Decision{Allowed: false, ResetAt: l.clock()}
	}

	key := fmt.Sprintf("ratelimit:%s:%s", t.Name, identifier)

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, t.Window)
	ttl := pipe.PTTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		// Fail-open: admission control degrades to allow, loudly.
		slog.WarnContext(ctx, "rate limit store unreachable, failing open", "error", err)
		return Decision{Allowed: true, Remaining: t.Quota, ResetAt: l.clock().Add(t.Window)}
	}

	count := incr.Val()
	resetAt := l.clock().Add(t.Window)
	if d := ttl.Val(); d > 0 {
		resetAt = l.clock().Add(d)
	}

	remaining := t.Quota - count
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   count <= t.Quota,
		Remaining: remaining,
		ResetAt:   resetAt,
	}
}
