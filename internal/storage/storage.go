package storage

import (
	"errors"

	"github.com/bonvoyage/voyage/pkg/core"
)

// ErrNotFound is returned when no record exists for a vehicle ID.
var ErrNotFound = errors.New("vehicle record not found")

// Backend is the interface all storage implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Controller snapshots, keyed by vehicle ID
	SaveVehicle(rec core.VehicleRecord) error
	LoadVehicle(id string) (core.VehicleRecord, error)
	ListVehicles() ([]core.VehicleRecord, error)
	DeleteVehicle(id string) error

	// Journey history
	RecordProgress(e core.ProgressEvent) error
	RecordArrival(e core.ArrivalEvent) error
	RecordStop(e core.StopEvent) error
}

// Exporter is an optional interface for backends that can write their
// contents to a file.
type Exporter interface {
	Export(path string) error
}
