// Package postgres implements the storage.Backend interface on PostgreSQL with
// PostGIS. It opens its own connection from the db.* configuration when none is
// injected and otherwise defers to the GORM backend.
package postgres

import (
	"fmt"

	"github.com/bonvoyage/voyage/internal/database"
	"github.com/bonvoyage/voyage/internal/logging"
	gormstorage "github.com/bonvoyage/voyage/internal/storage/gorm"

	"gorm.io/gorm"
)

// Dependencies holds all dependencies for the Postgres storage backend.
type Dependencies struct {
	DB         *gorm.DB
	LogManager *logging.SlogManager
	// MaxOpenConns limits the pool of a connection opened by Init.
	MaxOpenConns int
}

// Backend implements storage.Backend using GORM/PostgreSQL with queue-based batch writes.
type Backend struct {
	*gormstorage.Backend
	deps Dependencies
}

// New creates a new Postgres storage backend.
func New(deps Dependencies) *Backend {
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager()
	}
	if deps.MaxOpenConns <= 0 {
		deps.MaxOpenConns = 10
	}
	return &Backend{
		Backend: gormstorage.New(gormstorage.Dependencies{
			DB:         deps.DB,
			LogManager: deps.LogManager,
		}),
		deps: deps,
	}
}

// Init connects if needed, then migrates the schema and starts the DB writer.
func (b *Backend) Init() error {
	if b.DB() == nil {
		db, err := connect(b.deps.MaxOpenConns)
		if err != nil {
			return err
		}
		b.SetDB(db)
	}
	return b.Backend.Init()
}

func connect(maxOpenConns int) (*gorm.DB, error) {
	db, err := database.GetPostgresDBStandalone()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access sql interface: %w", err)
	}
	if err = sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to validate connection: %w", err)
	}
	sqlDB.SetMaxOpenConns(maxOpenConns)
	return db, nil
}
