package cache

import (
	"fmt"
	"testing"
	"time"

	"kick-analyzer/shared/clock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFakeClock() *clock.Fake {
	return clock.NewFake(time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC))
}

func TestCacheRoundTrip(t *testing.T) {
	clk := newFakeClock()
	c := New[string](DefaultMaxEntries, DefaultMaxAge, clk)

	c.Put("k", "v")
	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", v)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestCacheExpiry(t *testing.T) {
	clk := newFakeClock()
	c := New[int](DefaultMaxEntries, DefaultMaxAge, clk)
	c.Put("k", 1)

	clk.Advance(30 * time.Minute)
	_, ok := c.Get("k")
	assert.True(t, ok, "entry exactly at max age is still valid")

	clk.Advance(time.Millisecond)
	_, ok = c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len(), "expired entry is evicted on read")
}

func TestCacheCapacityEvictsFirstInserted(t *testing.T) {
	clk := newFakeClock()
	c := New[int](DefaultMaxEntries, DefaultMaxAge, clk)

	for i := 0; i < 100; i++ {
		c.Put(fmt.Sprintf("k%d", i), i)
	}
	// reads do not refresh position
	_, ok := c.Get("k0")
	require.True(t, ok)

	c.Put("k100", 100)

	assert.Equal(t, 100, c.Len())
	_, ok = c.Get("k0")
	assert.False(t, ok)
	for i := 1; i <= 100; i++ {
		_, ok := c.Get(fmt.Sprintf("k%d", i))
		assert.True(t, ok, "k%d should remain", i)
	}
}

func TestCacheReplaceMovesToBack(t *testing.T) {
	c := New[int](2, time.Minute, newFakeClock())

	c.Put("a", 1)
	c.Put("b", 2)
	c.Put("a", 3)
	c.Put("c", 4)

	_, ok := c.Get("b")
	assert.False(t, ok)
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 3, v)
}

func TestCacheClearAndSweep(t *testing.T) {
	clk := newFakeClock()
	c := New[int](10, time.Minute, clk)

	c.Put("old", 1)
	clk.Advance(2 * time.Minute)
	c.Put("new", 2)

	assert.Equal(t, 1, c.Sweep())
	assert.Equal(t, 1, c.Len())

	c.Clear()
	assert.Equal(t, 0, c.Len())
	_, ok := c.Get("new")
	assert.False(t, ok)
}
