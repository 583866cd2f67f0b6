// Package sqlitestorage implements the storage.Backend interface using an in-memory
// SQLite database with periodic disk dumps via VACUUM INTO.
// It wraps the GORM backend; the SQLite-specific parts are creating the
// in-memory DB, seeding it from the last dump, and the periodic dump itself.
package sqlitestorage

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/bonvoyage/voyage/internal/database"
	"github.com/bonvoyage/voyage/internal/logging"
	"github.com/bonvoyage/voyage/internal/model"
	gormstorage "github.com/bonvoyage/voyage/internal/storage/gorm"

	"gorm.io/gorm"
)

// Config holds configuration for the SQLite storage backend.
type Config struct {
	DumpInterval time.Duration
	DumpPath     string // Path for periodic VACUUM INTO dumps, also read on Init
	// Name selects a named in-memory database. Empty uses the shared default.
	Name string
}

// Backend wraps the GORM backend for SQLite-specific behavior.
type Backend struct {
	*gormstorage.Backend
	db       *gorm.DB
	cfg      Config
	log      *logging.SlogManager
	stopChan chan struct{}
	done     chan struct{}
	started  bool
}

// New creates a new SQLite storage backend.
func New(cfg Config, logManager *logging.SlogManager) (*Backend, error) {
	if logManager == nil {
		logManager = logging.NewSlogManager()
	}

	dsn := ""
	if cfg.Name != "" {
		dsn = fmt.Sprintf("file:%s?mode=memory&cache=shared", cfg.Name)
	}
	db, err := database.GetSqliteDBStandalone(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite DB: %w", err)
	}

	gormBackend := gormstorage.New(gormstorage.Dependencies{
		DB:         db,
		LogManager: logManager,
	})

	return &Backend{
		Backend:  gormBackend,
		db:       db,
		cfg:      cfg,
		log:      logManager,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

// Init migrates the schema, seeds it from the last dump and starts the dump goroutine.
func (b *Backend) Init() error {
	if err := b.Backend.Init(); err != nil {
		return err
	}

	if err := b.restore(); err != nil {
		return fmt.Errorf("failed to restore from %s: %w", b.cfg.DumpPath, err)
	}

	b.started = true
	if b.cfg.DumpPath != "" && b.cfg.DumpInterval > 0 {
		go b.dumpLoop()
	} else {
		close(b.done)
	}

	return nil
}

// Close stops the dump goroutine, flushes queued rows and writes a final dump.
func (b *Backend) Close() error {
	if !b.started {
		return b.Backend.Close()
	}
	b.started = false
	close(b.stopChan)
	<-b.done
	if err := b.Backend.Close(); err != nil {
		return err
	}
	return b.Dump()
}

// Dump writes the in-memory database to DumpPath. A no-op without a path.
func (b *Backend) Dump() error {
	if b.cfg.DumpPath == "" {
		return nil
	}
	return database.DumpMemoryDBToDisk(b.db, b.cfg.DumpPath)
}

// restore copies all rows of the previous dump into the in-memory database.
func (b *Backend) restore() error {
	if b.cfg.DumpPath == "" {
		return nil
	}
	if _, err := os.Stat(b.cfg.DumpPath); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	disk, err := database.GetSqliteDBStandalone(b.cfg.DumpPath)
	if err != nil {
		return err
	}
	if sqlDB, err := disk.DB(); err == nil {
		defer sqlDB.Close()
	}

	if err := copyTable[model.Vehicle](disk, b.db); err != nil {
		return err
	}
	if err := copyTable[model.VehicleProgress](disk, b.db); err != nil {
		return err
	}
	if err := copyTable[model.JourneyEvent](disk, b.db); err != nil {
		return err
	}

	b.log.WriteLog("sqlite:restore", fmt.Sprintf("Restored from %s", b.cfg.DumpPath), "INFO")
	return nil
}

func copyTable[T any](src, dst *gorm.DB) error {
	var rows []T
	if !src.Migrator().HasTable(new(T)) {
		return nil
	}
	if err := src.Unscoped().Find(&rows).Error; err != nil {
		return fmt.Errorf("reading %T: %w", rows, err)
	}
	if len(rows) == 0 {
		return nil
	}
	if err := dst.CreateInBatches(&rows, 500).Error; err != nil {
		return fmt.Errorf("writing %T: %w", rows, err)
	}
	return nil
}

// dumpLoop periodically dumps the in-memory SQLite database to disk via VACUUM INTO.
// VACUUM INTO creates a point-in-time snapshot, so no pause mechanism is needed.
func (b *Backend) dumpLoop() {
	defer close(b.done)

	ticker := time.NewTicker(b.cfg.DumpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			start := time.Now()
			b.Flush()
			if err := b.Dump(); err != nil {
				b.log.WriteLog("sqlite:dumpLoop", fmt.Sprintf("Error dumping to disk: %v", err), "ERROR")
			} else {
				b.log.WriteLog("sqlite:dumpLoop", fmt.Sprintf("Dumped to disk in %s", time.Since(start)), "DEBUG")
			}
		}
	}
}
