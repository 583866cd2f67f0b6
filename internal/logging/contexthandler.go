package logging

import (
	"context"
	"log/slog"
)

// FleetInfo is the fleet state attached to log records.
type FleetInfo struct {
	Vehicles int
	Paused   bool
}

// FleetContext reports the current fleet state. It is called once per record,
// so it must not take locks a logging caller may hold.
type FleetContext func() FleetInfo

func (f FleetInfo) attr() slog.Attr {
	return slog.Group("fleet",
		slog.Int("vehicles", f.Vehicles),
		slog.Bool("paused", f.Paused),
	)
}

// FleetHandler adds a "fleet" group to every record before passing it on.
type FleetHandler struct {
	inner slog.Handler
	fleet FleetContext
}

// NewFleetHandler wraps inner. A nil fleet context leaves records unchanged.
func NewFleetHandler(inner slog.Handler, fleet FleetContext) *FleetHandler {
	return &FleetHandler{inner: inner, fleet: fleet}
}

func (h *FleetHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *FleetHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.fleet != nil {
		r.AddAttrs(h.fleet().attr())
	}
	return h.inner.Handle(ctx, r)
}

func (h *FleetHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &FleetHandler{inner: h.inner.WithAttrs(attrs), fleet: h.fleet}
}

func (h *FleetHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &FleetHandler{inner: h.inner.WithGroup(name), fleet: h.fleet}
}
