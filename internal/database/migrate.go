package database

import (
	"fmt"
	"os"

	"github.com/bonvoyage/voyage/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MigrateBackup copies every row of the SQLite file at path into dst in one
// transaction. Vehicles already present in dst win; progress and journey rows
// are inserted with new IDs.
func MigrateBackup(path string, dst *gorm.DB) error {
	src, err := GetSqliteDBStandalone(path)
	if err != nil {
		return fmt.Errorf("error opening %s: %w", path, err)
	}
	if sqlDB, err := src.DB(); err == nil {
		defer sqlDB.Close()
	}

	return dst.Transaction(func(tx *gorm.DB) error {
		if err := migrateTable(src, tx, func(*model.Vehicle) {}); err != nil {
			return err
		}
		if err := migrateTable(src, tx, func(p *model.VehicleProgress) { p.ID = 0 }); err != nil {
			return err
		}
		return migrateTable(src, tx, func(e *model.JourneyEvent) { e.ID = 0 })
	})
}

// MigrateBackups migrates every .db file in dir into dst and renames each one
// to <name>.migrated. It stops at the first file that fails and returns the
// files migrated so far.
func MigrateBackups(dir string, dst *gorm.DB, log func(functionName, data, level string)) ([]string, error) {
	if log == nil {
		log = func(string, string, string) {}
	}

	paths, err := GetBackupDBPaths(dir)
	if err != nil {
		return nil, fmt.Errorf("error getting backup database paths: %w", err)
	}

	migrated := make([]string, 0, len(paths))
	for _, path := range paths {
		if err := MigrateBackup(path, dst); err != nil {
			return migrated, fmt.Errorf("error migrating %s: %w", path, err)
		}
		if err := os.Rename(path, path+".migrated"); err != nil {
			log("migrateBackups", fmt.Sprintf("Error renaming %s: %v", path, err), "ERROR")
		}
		log("migrateBackups", fmt.Sprintf("Migrated %s", path), "INFO")
		migrated = append(migrated, path)
	}
	return migrated, nil
}

func migrateTable[T any](src, dst *gorm.DB, reset func(*T)) error {
	if !src.Migrator().HasTable(new(T)) {
		return nil
	}
	var rows []T
	if err := src.Unscoped().Find(&rows).Error; err != nil {
		return fmt.Errorf("reading %T: %w", rows, err)
	}
	if len(rows) == 0 {
		return nil
	}
	for i := range rows {
		reset(&rows[i])
	}
	err := dst.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(&rows, 500).Error
	if err != nil {
		return fmt.Errorf("writing %T: %w", rows, err)
	}
	return nil
}
