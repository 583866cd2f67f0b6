package vehicle

import (
	"context"
	"sync"

	"github.com/bonvoyage/voyage/pkg/core"
)

// CapabilityProvider reports the aggregated capabilities of a vehicle.
type CapabilityProvider interface {
	Capabilities(ctx context.Context) (core.Capabilities, error)
}

// StaticCapabilities is a CapabilityProvider holding values pushed by the host.
type StaticCapabilities struct {
	mu   sync.RWMutex
	caps core.Capabilities
}

// NewStaticCapabilities creates a provider with initial values
func NewStaticCapabilities(caps core.Capabilities) *StaticCapabilities {
	return &StaticCapabilities{caps: caps}
}

// Capabilities implements CapabilityProvider.
func (s *StaticCapabilities) Capabilities(context.Context) (core.Capabilities, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.caps, nil
}

// Set replaces the stored values
func (s *StaticCapabilities) Set(caps core.Capabilities) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.caps = caps
}

// Notifier receives arrival and stop events. Implementations must not block.
type Notifier interface {
	Arrived(core.ArrivalEvent)
	Stopped(core.StopEvent)
}

// ProgressRecorder receives a progress event after every tick that moved a vehicle.
type ProgressRecorder interface {
	RecordProgress(core.ProgressEvent)
}

type nopNotifier struct{}

func (nopNotifier) Arrived(core.ArrivalEvent)         {}
func (nopNotifier) Stopped(core.StopEvent)            {}
func (nopNotifier) RecordProgress(core.ProgressEvent) {}
