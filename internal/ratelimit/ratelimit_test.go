package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func testTiers() []Tier {
	return []Tier{
		{Name: "guest", Quota: 3, Window: time.Minute},
		{Name: "pro", Quota: 100, Window: time.Minute},
	}
}

func TestLimiter_UnknownTierIsDenied(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	defer client.Close()
	l := New(client, testTiers())

	d := l.Check(context.Background(), "u1", "enterprise")
	assert.False(t, d.Allowed)
}

func TestLimiter_FailsOpenWhenStoreUnreachable(t *testing.T) {
	// Nothing listens on port 1; the pipeline errors and the limiter must
	// degrade to allowing the request.
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond, MaxRetries: -1})
	defer client.Close()
	l := New(client, testTiers())

	d := l.Check(context.Background(), "u1", "guest")
	assert.True(t, d.Allowed)
	assert.False(t, d.ResetAt.IsZero())
}
