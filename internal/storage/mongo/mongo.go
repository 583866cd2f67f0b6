// Package mongostorage implements the storage.Backend interface on MongoDB.
// Vehicle records are stored whole, keyed by vehicle ID; progress points and
// journey events are appended to their own collections.
package mongostorage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bonvoyage/voyage/internal/logging"
	"github.com/bonvoyage/voyage/internal/storage"
	"github.com/bonvoyage/voyage/pkg/core"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	vehiclesCollection = "vehicles"
	progressCollection = "vehicle_progress"
	eventsCollection   = "journey_events"
)

// Config holds configuration for the MongoDB storage backend.
type Config struct {
	URI      string
	Database string
	Timeout  time.Duration // per operation, default 10s
}

// Backend stores vehicle records as documents.
type Backend struct {
	cfg    Config
	log    *logging.SlogManager
	client *mongo.Client

	vehicles *mongo.Collection
	progress *mongo.Collection
	events   *mongo.Collection
}

// New creates a new MongoDB storage backend. Init connects.
func New(cfg Config, logManager *logging.SlogManager) *Backend {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Database == "" {
		cfg.Database = "voyage"
	}
	if logManager == nil {
		logManager = logging.NewSlogManager()
	}
	return &Backend{cfg: cfg, log: logManager}
}

// Init connects to MongoDB and verifies the connection.
func (b *Backend) Init() error {
	if b.cfg.URI == "" {
		return errors.New("mongo uri not set")
	}
	client, err := mongo.Connect(context.Background(), options.Client().ApplyURI(b.cfg.URI))
	if err != nil {
		return fmt.Errorf("mongo connect error: %w", err)
	}

	ctx, cancel := b.ctx()
	defer cancel()
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return fmt.Errorf("mongo ping error: %w", err)
	}

	b.client = client
	db := client.Database(b.cfg.Database)
	b.vehicles = db.Collection(vehiclesCollection)
	b.progress = db.Collection(progressCollection)
	b.events = db.Collection(eventsCollection)

	b.log.WriteLog("mongo:Init", fmt.Sprintf("Connected to database %s", b.cfg.Database), "INFO")
	return nil
}

// Close disconnects the client.
func (b *Backend) Close() error {
	if b.client == nil {
		return nil
	}
	ctx, cancel := b.ctx()
	defer cancel()
	err := b.client.Disconnect(ctx)
	b.client = nil
	return err
}

func (b *Backend) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), b.cfg.Timeout)
}

func (b *Backend) ready() error {
	if b.vehicles == nil {
		return errors.New("mongo collection is nil")
	}
	return nil
}

// SaveVehicle replaces the vehicle document, inserting it when absent.
func (b *Backend) SaveVehicle(rec core.VehicleRecord) error {
	if err := b.ready(); err != nil {
		return err
	}
	if rec.ID == "" {
		return errors.New("vehicle record without id")
	}
	ctx, cancel := b.ctx()
	defer cancel()

	_, err := b.vehicles.ReplaceOne(ctx, bson.M{"_id": rec.ID}, rec, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to save vehicle %s: %w", rec.ID, err)
	}
	return nil
}

// LoadVehicle finds a vehicle document by ID.
func (b *Backend) LoadVehicle(id string) (core.VehicleRecord, error) {
	if err := b.ready(); err != nil {
		return core.VehicleRecord{}, err
	}
	ctx, cancel := b.ctx()
	defer cancel()

	var rec core.VehicleRecord
	err := b.vehicles.FindOne(ctx, bson.M{"_id": id}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return core.VehicleRecord{}, fmt.Errorf("vehicle %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return core.VehicleRecord{}, fmt.Errorf("failed to load vehicle %s: %w", id, err)
	}
	return rec, nil
}

// ListVehicles returns all vehicle documents ordered by ID.
func (b *Backend) ListVehicles() ([]core.VehicleRecord, error) {
	if err := b.ready(); err != nil {
		return nil, err
	}
	ctx, cancel := b.ctx()
	defer cancel()

	cursor, err := b.vehicles.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list vehicles: %w", err)
	}
	defer cursor.Close(ctx)

	var out []core.VehicleRecord
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode vehicles: %w", err)
	}
	return out, nil
}

// DeleteVehicle removes the vehicle document. Its history is kept.
func (b *Backend) DeleteVehicle(id string) error {
	if err := b.ready(); err != nil {
		return err
	}
	ctx, cancel := b.ctx()
	defer cancel()

	if _, err := b.vehicles.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("failed to delete vehicle %s: %w", id, err)
	}
	return nil
}

// RecordProgress inserts a progress document.
func (b *Backend) RecordProgress(e core.ProgressEvent) error {
	if err := b.ready(); err != nil {
		return err
	}
	ctx, cancel := b.ctx()
	defer cancel()

	_, err := b.progress.InsertOne(ctx, e)
	return err
}

// RecordArrival inserts an arrival into the journey events collection.
func (b *Backend) RecordArrival(e core.ArrivalEvent) error {
	return b.insertEvent("arrival", e)
}

// RecordStop inserts a forced stop into the journey events collection.
func (b *Backend) RecordStop(e core.StopEvent) error {
	return b.insertEvent("stop", e)
}

func (b *Backend) insertEvent(kind string, e any) error {
	if err := b.ready(); err != nil {
		return err
	}
	ctx, cancel := b.ctx()
	defer cancel()

	_, err := b.events.InsertOne(ctx, bson.M{"kind": kind, "event": e})
	return err
}
