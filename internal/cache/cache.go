package cache

import (
	"sort"
	"sync"

	"github.com/bonvoyage/voyage/internal/vehicle"
)

// ControllerCache holds the live controllers keyed by vehicle ID. Ticks and
// commands look controllers up here instead of rebuilding them from storage.
type ControllerCache struct {
	m           sync.Mutex
	Controllers map[string]*vehicle.Controller
}

func NewControllerCache() *ControllerCache {
	return &ControllerCache{
		m:           sync.Mutex{},
		Controllers: make(map[string]*vehicle.Controller),
	}
}

func (c *ControllerCache) Reset() {
	c.m.Lock()
	defer c.m.Unlock()
	c.Controllers = make(map[string]*vehicle.Controller)
}

func (c *ControllerCache) Get(id string) (*vehicle.Controller, bool) {
	c.m.Lock()
	defer c.m.Unlock()
	ctrl, ok := c.Controllers[id]
	return ctrl, ok
}

// Add stores ctrl under its ID, replacing any previous controller.
func (c *ControllerCache) Add(ctrl *vehicle.Controller) {
	c.m.Lock()
	defer c.m.Unlock()
	c.Controllers[ctrl.ID()] = ctrl
}

// Remove deletes the controller and reports whether it was present.
func (c *ControllerCache) Remove(id string) bool {
	c.m.Lock()
	defer c.m.Unlock()
	_, ok := c.Controllers[id]
	delete(c.Controllers, id)
	return ok
}

func (c *ControllerCache) Len() int {
	c.m.Lock()
	defer c.m.Unlock()
	return len(c.Controllers)
}

// All returns the controllers ordered by ID.
func (c *ControllerCache) All() []*vehicle.Controller {
	c.m.Lock()
	out := make([]*vehicle.Controller, 0, len(c.Controllers))
	for _, ctrl := range c.Controllers {
		out = append(out, ctrl)
	}
	c.m.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// SafeCounter is a thread-safe counter
type SafeCounter struct {
	mu sync.Mutex
	v  int
}

func (c *SafeCounter) Value() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.v
}

func (c *SafeCounter) Set(v int) {
	c.mu.Lock()
	c.v = v
	c.mu.Unlock()
}

func (c *SafeCounter) Inc() {
	c.mu.Lock()
	c.v++
	c.mu.Unlock()
}
