// Package gormstorage implements the storage.Backend interface on top of GORM.
// Vehicle snapshots are upserted synchronously; progress points and journey
// events go through internal queues drained by a background writer.
package gormstorage

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bonvoyage/voyage/internal/database"
	"github.com/bonvoyage/voyage/internal/logging"
	"github.com/bonvoyage/voyage/internal/model"
	"github.com/bonvoyage/voyage/internal/model/convert"
	"github.com/bonvoyage/voyage/internal/queue"
	"github.com/bonvoyage/voyage/internal/storage"
	"github.com/bonvoyage/voyage/pkg/core"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const defaultFlushInterval = 2 * time.Second

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB         *gorm.DB
	LogManager *logging.SlogManager
	// FlushInterval is how often queued rows are written. Zero means 2s.
	FlushInterval time.Duration
}

// queues holds all the write queues for batch DB insertion.
type queues struct {
	Progress *queue.Queue[model.VehicleProgress]
	Events   *queue.Queue[model.JourneyEvent]
}

func newQueues() *queues {
	return &queues{
		Progress: queue.New[model.VehicleProgress](),
		Events:   queue.New[model.JourneyEvent](),
	}
}

// Backend implements storage.Backend using GORM with queue-based batch writes.
type Backend struct {
	deps     Dependencies
	queues   *queues
	stopChan chan struct{}
	done     chan struct{}
	closed   sync.Once
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager()
	}
	if deps.FlushInterval <= 0 {
		deps.FlushInterval = defaultFlushInterval
	}
	return &Backend{
		deps:   deps,
		queues: newQueues(),
	}
}

// DB returns the underlying connection.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// SetDB injects a connection before Init. Used by backends that open their
// own connection.
func (b *Backend) SetDB(db *gorm.DB) {
	b.deps.DB = db
}

// Init runs schema migration and starts the DB writer goroutine.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		return errors.New("gorm backend: no database connection")
	}

	if err := database.Setup(b.deps.DB, b.deps.LogManager.WriteLog); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}

	b.stopChan = make(chan struct{})
	b.done = make(chan struct{})
	b.startDBWriters()
	return nil
}

// Close stops the DB writer goroutine and writes whatever is still queued.
func (b *Backend) Close() error {
	b.closed.Do(func() {
		if b.stopChan == nil {
			return
		}
		close(b.stopChan)
		<-b.done
		b.Flush()
	})
	return nil
}

// SaveVehicle upserts the vehicle row.
func (b *Backend) SaveVehicle(rec core.VehicleRecord) error {
	if rec.ID == "" {
		return errors.New("vehicle record without id")
	}
	row := convert.CoreToVehicle(rec)
	err := b.deps.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to save vehicle %s: %w", rec.ID, err)
	}
	return nil
}

// LoadVehicle reads one vehicle row.
func (b *Backend) LoadVehicle(id string) (core.VehicleRecord, error) {
	var row model.Vehicle
	err := b.deps.DB.Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return core.VehicleRecord{}, fmt.Errorf("vehicle %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return core.VehicleRecord{}, fmt.Errorf("failed to load vehicle %s: %w", id, err)
	}
	return convert.VehicleToCore(row)
}

// ListVehicles reads all vehicle rows ordered by ID.
func (b *Backend) ListVehicles() ([]core.VehicleRecord, error) {
	var rows []model.Vehicle
	if err := b.deps.DB.Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list vehicles: %w", err)
	}

	out := make([]core.VehicleRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := convert.VehicleToCore(row)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// DeleteVehicle soft-deletes the vehicle row. Its history is kept.
func (b *Backend) DeleteVehicle(id string) error {
	if err := b.deps.DB.Where("id = ?", id).Delete(&model.Vehicle{}).Error; err != nil {
		return fmt.Errorf("failed to delete vehicle %s: %w", id, err)
	}
	return nil
}

// RecordProgress converts and queues a progress point.
func (b *Backend) RecordProgress(e core.ProgressEvent) error {
	b.queues.Progress.Push(convert.CoreToVehicleProgress(e))
	return nil
}

// RecordArrival converts and queues an arrival.
func (b *Backend) RecordArrival(e core.ArrivalEvent) error {
	b.queues.Events.Push(convert.CoreArrivalToJourneyEvent(e))
	return nil
}

// RecordStop converts and queues a forced stop.
func (b *Backend) RecordStop(e core.StopEvent) error {
	b.queues.Events.Push(convert.CoreStopToJourneyEvent(e))
	return nil
}

// Progress reads the stored track of one vehicle in time order.
func (b *Backend) Progress(id string) ([]core.ProgressEvent, error) {
	var rows []model.VehicleProgress
	if err := b.deps.DB.Where("vehicle_id = ?", id).Order("universal_time").Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to read progress of %s: %w", id, err)
	}
	out := make([]core.ProgressEvent, len(rows))
	for i, row := range rows {
		out[i] = convert.VehicleProgressToCore(row)
	}
	return out, nil
}

// Flush writes all queued rows now.
func (b *Backend) Flush() {
	log := b.deps.LogManager.WriteLog
	writeQueue(b.deps.DB, b.queues.Progress, "vehicle progress", log)
	writeQueue(b.deps.DB, b.queues.Events, "journey events", log)
}

// writeQueue writes all items from a queue to the database in a transaction.
// On failure the items go back to the head of the queue for the next cycle.
func writeQueue[T any](db *gorm.DB, q *queue.Queue[T], name string, log func(string, string, string)) {
	if q.Empty() {
		return
	}

	tx := db.Begin()
	items := q.GetAndEmpty()
	if err := tx.Create(&items).Error; err != nil {
		log(":DB:WRITER:", fmt.Sprintf("Error creating %s: %v", name, err), "ERROR")
		tx.Rollback()
		q.PushFront(items...)
		return
	}

	tx.Commit()
}

// startDBWriters starts the background goroutine that periodically drains queues into the DB.
func (b *Backend) startDBWriters() {
	go func() {
		defer close(b.done)

		ticker := time.NewTicker(b.deps.FlushInterval)
		defer ticker.Stop()

		for {
			select {
			case <-b.stopChan:
				return
			case <-ticker.C:
				b.Flush()
			}
		}
	}()
}
