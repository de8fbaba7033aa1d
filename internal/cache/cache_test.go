package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCache_ExpiryWithInjectedClock(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	c := New[string](time.Minute, clock)

	c.Set("k", "v")

	got, ok := c.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "v", got)

	// Advance past the TTL: the entry must be evicted on read.
	now = now.Add(61 * time.Second)
	_, ok = c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestCache_MissAndDelete(t *testing.T) {
	c := New[int](time.Minute, nil)

	_, ok := c.Get("absent")
	assert.False(t, ok)

	c.Set("k", 42)
	c.Delete("k")
	_, ok = c.Get("k")
	assert.False(t, ok)
}

func TestCache_SetRefreshesTTL(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	c := New[string](time.Minute, clock)

	c.Set("k", "v1")
	now = now.Add(50 * time.Second)
	c.Set("k", "v2")
	now = now.Add(30 * time.Second)

	got, ok := c.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "v2", got)
}
