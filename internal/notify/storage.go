package notify

import (
	"log/slog"

	"github.com/bonvoyage/voyage/internal/storage"
	"github.com/bonvoyage/voyage/pkg/core"
)

// StorageSink records events in a storage backend. Write errors are logged
// and do not reach the controller.
type StorageSink struct {
	backend storage.Backend
	logger  *slog.Logger
}

func NewStorageSink(backend storage.Backend, logger *slog.Logger) *StorageSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &StorageSink{backend: backend, logger: logger}
}

func (s *StorageSink) Arrived(e core.ArrivalEvent) {
	if err := s.backend.RecordArrival(e); err != nil {
		s.logger.Error("failed to record arrival", "vehicle", e.VehicleID, "error", err)
	}
}

func (s *StorageSink) Stopped(e core.StopEvent) {
	if err := s.backend.RecordStop(e); err != nil {
		s.logger.Error("failed to record stop", "vehicle", e.VehicleID, "error", err)
	}
}

func (s *StorageSink) RecordProgress(e core.ProgressEvent) {
	if err := s.backend.RecordProgress(e); err != nil {
		s.logger.Error("failed to record progress", "vehicle", e.VehicleID, "error", err)
	}
}
