// Package world holds host-supplied state that ticks read: known bodies,
// the vessel under live control and the pause flag.
package world

import (
	"sync"

	"github.com/bonvoyage/voyage/internal/resource"
	"github.com/bonvoyage/voyage/pkg/core"
)

// ActiveVessel is the vessel the user is flying.
type ActiveVessel struct {
	ID        string
	Body      string
	Latitude  float64
	Longitude float64
	Altitude  float64
}

// Context holds the current world state
type Context struct {
	mu     sync.RWMutex
	bodies map[string]core.Body
	suns   map[string]resource.SunModel
	active *ActiveVessel
	paused bool
}

// NewContext creates an empty Context
func NewContext() *Context {
	return &Context{
		bodies: make(map[string]core.Body),
		suns:   make(map[string]resource.SunModel),
	}
}

// SetBody registers or replaces a body. With a nil sun a RotatingSun follows the
// body's rotation period, and any other model is kept.
func (c *Context) SetBody(b core.Body, sun resource.SunModel) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bodies[b.Name] = b
	if sun != nil {
		c.suns[b.Name] = sun
		return
	}
	switch prev := c.suns[b.Name].(type) {
	case nil:
		c.suns[b.Name] = resource.RotatingSun{RotationPeriod: b.RotationPeriod}
	case resource.RotatingSun:
		prev.RotationPeriod = b.RotationPeriod
		c.suns[b.Name] = prev
	}
}

// Body returns a registered body
func (c *Context) Body(name string) (core.Body, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.bodies[name]
	return b, ok
}

// Bodies returns every registered body.
func (c *Context) Bodies() []core.Body {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]core.Body, 0, len(c.bodies))
	for _, b := range c.bodies {
		out = append(out, b)
	}
	return out
}

// Sun returns the sun model for a body, or nil when the body is unknown.
func (c *Context) Sun(body string) resource.SunModel {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.suns[body]
}

// SetActiveVessel records the vessel under live control. nil clears it.
func (c *Context) SetActiveVessel(v *ActiveVessel) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v == nil {
		c.active = nil
		return
	}
	cp := *v
	c.active = &cp
}

// ActiveVessel returns a copy of the vessel under live control, or nil.
func (c *Context) ActiveVessel() *ActiveVessel {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.active == nil {
		return nil
	}
	cp := *c.active
	return &cp
}

// SetPaused sets the pause flag
func (c *Context) SetPaused(p bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paused = p
}

// Paused reports whether the host is paused
func (c *Context) Paused() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.paused
}
