package cache

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bonvoyage/voyage/internal/vehicle"
	"github.com/bonvoyage/voyage/pkg/core"
)

var kerbin = core.Body{Name: "Kerbin", Radius: 600000, RotationPeriod: 21549.425}

func newController(id string) *vehicle.Controller {
	return vehicle.New(id, "Rover "+id, kerbin, core.Waypoint{}, vehicle.Config{}, vehicle.Dependencies{})
}

func TestControllerCache_NewControllerCache(t *testing.T) {
	cache := NewControllerCache()

	require.NotNil(t, cache)
	assert.NotNil(t, cache.Controllers)
	assert.Equal(t, 0, cache.Len())
	assert.Empty(t, cache.All())
}

func TestControllerCache_AddAndGet(t *testing.T) {
	cache := NewControllerCache()
	ctrl := newController("v1")
	cache.Add(ctrl)

	got, ok := cache.Get("v1")
	require.True(t, ok, "expected to find controller v1")
	assert.Same(t, ctrl, got)
	assert.Equal(t, "Rover v1", got.Name())
}

func TestControllerCache_GetNotFound(t *testing.T) {
	cache := NewControllerCache()
	_, ok := cache.Get("missing")
	assert.False(t, ok)
}

func TestControllerCache_AddReplaces(t *testing.T) {
	cache := NewControllerCache()
	cache.Add(newController("v1"))
	replacement := newController("v1")
	cache.Add(replacement)

	got, _ := cache.Get("v1")
	assert.Same(t, replacement, got)
	assert.Equal(t, 1, cache.Len())
}

func TestControllerCache_Remove(t *testing.T) {
	cache := NewControllerCache()
	cache.Add(newController("v1"))

	assert.True(t, cache.Remove("v1"))
	assert.False(t, cache.Remove("v1"))
	assert.Equal(t, 0, cache.Len())
}

func TestControllerCache_AllSorted(t *testing.T) {
	cache := NewControllerCache()
	for _, id := range []string{"c", "a", "b"} {
		cache.Add(newController(id))
	}

	var ids []string
	for _, ctrl := range cache.All() {
		ids = append(ids, ctrl.ID())
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}

func TestControllerCache_Reset(t *testing.T) {
	cache := NewControllerCache()
	cache.Add(newController("v1"))
	cache.Add(newController("v2"))

	cache.Reset()
	assert.Equal(t, 0, cache.Len())
	_, ok := cache.Get("v1")
	assert.False(t, ok)
}

func TestControllerCache_ConcurrentAccess(t *testing.T) {
	cache := NewControllerCache()
	ids := []string{"v0", "v1", "v2", "v3", "v4", "v5", "v6", "v7", "v8", "v9"}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			cache.Add(newController(id))
			cache.Get(id)
			cache.All()
		}(id)
	}
	wg.Wait()

	assert.Equal(t, len(ids), cache.Len())
}

func TestSafeCounter(t *testing.T) {
	var c SafeCounter
	assert.Equal(t, 0, c.Value())

	c.Set(5)
	assert.Equal(t, 5, c.Value())

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Inc()
		}()
	}
	wg.Wait()
	assert.Equal(t, 105, c.Value())
}
