package memory

import (
	"fmt"
	"sort"
	"sync"

	"github.com/bonvoyage/voyage/internal/config"
	"github.com/bonvoyage/voyage/internal/storage"
	"github.com/bonvoyage/voyage/pkg/core"
)

// Backend keeps vehicle records and journey history in memory and exports
// them to JSON on Close.
type Backend struct {
	cfg config.MemoryConfig

	vehicles map[string]core.VehicleRecord
	progress map[string][]core.ProgressEvent // keyed by vehicle ID
	arrivals []core.ArrivalEvent
	stops    []core.StopEvent

	lastExportPath string
	mu             sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{
		cfg:      cfg,
		vehicles: make(map[string]core.VehicleRecord),
		progress: make(map[string][]core.ProgressEvent),
	}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close writes an export when an output directory is configured.
func (b *Backend) Close() error {
	if b.cfg.OutputDir == "" {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.exportJSON()
}

func cloneRecord(rec core.VehicleRecord) core.VehicleRecord {
	rec.State.Path = rec.State.Path.Clone()
	rec.FuelCells = rec.FuelCells.Clone()
	return rec
}

// SaveVehicle stores a copy of rec, replacing any previous record with the same ID.
func (b *Backend) SaveVehicle(rec core.VehicleRecord) error {
	if rec.ID == "" {
		return fmt.Errorf("vehicle record without id")
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.vehicles[rec.ID] = cloneRecord(rec)
	return nil
}

// LoadVehicle returns a copy of the stored record.
func (b *Backend) LoadVehicle(id string) (core.VehicleRecord, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	rec, ok := b.vehicles[id]
	if !ok {
		return core.VehicleRecord{}, fmt.Errorf("vehicle %s: %w", id, storage.ErrNotFound)
	}
	return cloneRecord(rec), nil
}

// ListVehicles returns all records ordered by ID.
func (b *Backend) ListVehicles() ([]core.VehicleRecord, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]core.VehicleRecord, 0, len(b.vehicles))
	for _, rec := range b.vehicles {
		out = append(out, cloneRecord(rec))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// DeleteVehicle removes the record and its progress history.
func (b *Backend) DeleteVehicle(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.vehicles, id)
	delete(b.progress, id)
	return nil
}

// RecordProgress appends a progress point to the vehicle's track.
func (b *Backend) RecordProgress(e core.ProgressEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.progress[e.VehicleID] = append(b.progress[e.VehicleID], e)
	return nil
}

// RecordArrival records an arrival event
func (b *Backend) RecordArrival(e core.ArrivalEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.arrivals = append(b.arrivals, e)
	return nil
}

// RecordStop records a forced stop
func (b *Backend) RecordStop(e core.StopEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.stops = append(b.stops, e)
	return nil
}

// Progress returns a copy of the recorded track of one vehicle.
func (b *Backend) Progress(id string) []core.ProgressEvent {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return append([]core.ProgressEvent(nil), b.progress[id]...)
}

// Arrivals returns a copy of all arrival events.
func (b *Backend) Arrivals() []core.ArrivalEvent {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return append([]core.ArrivalEvent(nil), b.arrivals...)
}

// Stops returns a copy of all stop events.
func (b *Backend) Stops() []core.StopEvent {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return append([]core.StopEvent(nil), b.stops...)
}

// GetExportedFilePath returns the path of the last export written by Close.
func (b *Backend) GetExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}
