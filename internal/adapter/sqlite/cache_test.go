package sqlite

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/rangeguard/zone-conflict-notifier/internal/observability"
)

func TestRouteCache_CountsHitsAndMisses(t *testing.T) {
	m := observability.NewMetricsForTesting()
	c := NewRouteCache(10, m)
	path := orb.LineString{{1, 2}, {3, 4}}

	_, ok := c.Get("r1")
	assert.False(t, ok)

	c.Put("r1", path)
	got, ok := c.Get("r1")
	assert.True(t, ok)
	assert.Equal(t, path, got)

	c.Invalidate("r1")
	_, ok = c.Get("r1")
	assert.False(t, ok)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RouteCache.WithLabelValues("hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RouteCache.WithLabelValues("miss")))
}

// --- LRU cache unit tests ---

func TestLRUCache_BasicGetPut(t *testing.T) {
	c := newLRUCache[string](3)

	c.put("a", "A")
	c.put("b", "B")

	result, ok := c.get("a")
	assert.True(t, ok)
	assert.Equal(t, "A", result)

	_, ok = c.get("missing")
	assert.False(t, ok)
}

func TestLRUCache_Eviction(t *testing.T) {
	c := newLRUCache[string](2)

	c.put("a", "A")
	c.put("b", "B")
	c.put("c", "C") // evicts "a"

	_, ok := c.get("a")
	assert.False(t, ok, "a should have been evicted")

	result, ok := c.get("b")
	assert.True(t, ok)
	assert.Equal(t, "B", result)

	result, ok = c.get("c")
	assert.True(t, ok)
	assert.Equal(t, "C", result)
	assert.Equal(t, 2, c.size())
}

func TestLRUCache_AccessPromotesEntry(t *testing.T) {
	c := newLRUCache[string](2)

	c.put("a", "A")
	c.put("b", "B")
	c.get("a")
	c.put("c", "C")

	_, ok := c.get("a")
	assert.True(t, ok, "a was accessed recently, should not be evicted")

	_, ok = c.get("b")
	assert.False(t, ok, "b should have been evicted")
}

func TestLRUCache_UpdateExisting(t *testing.T) {
	c := newLRUCache[string](2)

	c.put("a", "A1")
	c.put("a", "A2")

	result, ok := c.get("a")
	assert.True(t, ok)
	assert.Equal(t, "A2", result)
	assert.Equal(t, 1, c.size())
}

func TestLRUCache_Delete(t *testing.T) {
	c := newLRUCache[string](3)

	c.put("a", "A")
	c.put("b", "B")
	c.put("c", "C")
	c.delete("b")
	c.delete("missing")

	assert.Equal(t, 2, c.size())
	c.put("d", "D")
	c.put("e", "E") // evicts "a", the tail after "b" was unlinked

	_, ok := c.get("a")
	assert.False(t, ok)
	for _, k := range []string{"c", "d", "e"} {
		_, ok := c.get(k)
		assert.True(t, ok, k)
	}
}
