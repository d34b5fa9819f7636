package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetAndGet(t *testing.T) {
	t.Parallel()

	c := NewMemoryCache[string, int]()
	c.Set("a", 1, 0)

	got, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, got)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestExpiry(t *testing.T) {
	t.Parallel()

	c := NewMemoryCache[string, string]()
	c.Set("k", "v", 10*time.Millisecond)

	_, ok := c.Get("k")
	assert.True(t, ok)

	time.Sleep(20 * time.Millisecond)
	_, ok = c.Get("k")
	assert.False(t, ok)
}

func TestDeleteAndClear(t *testing.T) {
	t.Parallel()

	c := NewMemoryCache[string, int]()
	c.Set("a", 1, 0)
	c.Set("b", 2, 0)

	c.Delete("a")
	_, ok := c.Get("a")
	assert.False(t, ok)

	c.Clear()
	_, ok = c.Get("b")
	assert.False(t, ok)
}

func TestWithTTLWrapper(t *testing.T) {
	t.Parallel()

	c := WithTTL(NewMemoryCache[string, int](), 10*time.Millisecond)
	c.Set("a", 1, time.Hour) // wrapper overrides the per-call TTL

	time.Sleep(20 * time.Millisecond)
	_, ok := c.Get("a")
	assert.False(t, ok)
}
