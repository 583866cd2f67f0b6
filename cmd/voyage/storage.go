package main

import (
	"fmt"

	"github.com/bonvoyage/voyage/internal/config"
	"github.com/bonvoyage/voyage/internal/logging"
	"github.com/bonvoyage/voyage/internal/storage"
	"github.com/bonvoyage/voyage/internal/storage/memory"
	mongostorage "github.com/bonvoyage/voyage/internal/storage/mongo"
	pgstorage "github.com/bonvoyage/voyage/internal/storage/postgres"
	sqlitestorage "github.com/bonvoyage/voyage/internal/storage/sqlite"
)

// openStorage creates and initializes the configured backend.
func openStorage(storageCfg config.StorageConfig, logManager *logging.SlogManager) (storage.Backend, error) {
	backend, err := createStorageBackend(storageCfg, logManager)
	if err != nil {
		return nil, err
	}
	if err := backend.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize %s storage: %w", storageCfg.Type, err)
	}
	return backend, nil
}

func createStorageBackend(storageCfg config.StorageConfig, logManager *logging.SlogManager) (storage.Backend, error) {
	logger := logManager.Logger()

	switch storageCfg.Type {
	case "postgres":
		logger.Info("Postgres storage backend selected")
		return pgstorage.New(pgstorage.Dependencies{
			LogManager: logManager,
		}), nil

	case "sqlite":
		backend, err := sqlitestorage.New(sqlitestorage.Config{
			DumpInterval: storageCfg.SQLite.DumpInterval,
			DumpPath:     storageCfg.SQLite.DumpPath,
		}, logManager)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite backend: %w", err)
		}
		logger.Info("SQLite storage backend selected", "dumpPath", storageCfg.SQLite.DumpPath)
		return backend, nil

	case "mongo":
		logger.Info("MongoDB storage backend selected", "database", storageCfg.Mongo.Database)
		return mongostorage.New(mongostorage.Config{
			URI:      storageCfg.Mongo.URI,
			Database: storageCfg.Mongo.Database,
			Timeout:  storageCfg.Mongo.Timeout,
		}, logManager), nil

	case "memory", "":
		logger.Info("Memory storage backend selected")
		return memory.New(storageCfg.Memory), nil

	default:
		return nil, fmt.Errorf("unknown storage type %q", storageCfg.Type)
	}
}
