// Package notify delivers journey events raised by vehicle controllers.
//
// Controllers call their sinks from inside a tick, so every sink here returns
// without waiting on I/O: network sinks hand messages to an Outbox that is
// drained by its own goroutine.
package notify

import (
	"log/slog"

	"github.com/bonvoyage/voyage/internal/vehicle"
	"github.com/bonvoyage/voyage/pkg/core"
)

// Sink receives every event a controller emits.
type Sink interface {
	vehicle.Notifier
	vehicle.ProgressRecorder
}

// Multi fans events out to several sinks in order.
type Multi []Sink

// NewMulti drops nil sinks.
func NewMulti(sinks ...Sink) Multi {
	out := make(Multi, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (m Multi) Arrived(e core.ArrivalEvent) {
	for _, s := range m {
		s.Arrived(e)
	}
}

func (m Multi) Stopped(e core.StopEvent) {
	for _, s := range m {
		s.Stopped(e)
	}
}

func (m Multi) RecordProgress(e core.ProgressEvent) {
	for _, s := range m {
		s.RecordProgress(e)
	}
}

// LogSink writes events to a structured logger.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a LogSink. A nil logger uses slog.Default.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Arrived(e core.ArrivalEvent) {
	s.logger.Info("vehicle reached its destination",
		"vehicle", e.VehicleID,
		"name", e.VehicleName,
		"body", e.Body,
		"latitude", e.Latitude,
		"longitude", e.Longitude,
		"ut", e.UniversalTime)
}

func (s *LogSink) Stopped(e core.StopEvent) {
	s.logger.Warn("vehicle stopped",
		"vehicle", e.VehicleID,
		"name", e.VehicleName,
		"body", e.Body,
		"reason", string(e.Reason),
		"latitude", e.Latitude,
		"longitude", e.Longitude,
		"ut", e.UniversalTime)
}

func (s *LogSink) RecordProgress(e core.ProgressEvent) {
	s.logger.Debug("vehicle progress",
		"vehicle", e.VehicleID,
		"state", e.State,
		"travelled", e.DistanceTravelled,
		"remaining", e.DistanceToTarget-e.DistanceTravelled,
		"speed", e.Speed)
}
