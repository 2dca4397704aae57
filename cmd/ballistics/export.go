package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/OCAP2/ballistics/internal/config"
	"github.com/OCAP2/ballistics/internal/database"
	"github.com/OCAP2/ballistics/internal/geo"
	gormstorage "github.com/OCAP2/ballistics/internal/storage/gorm"
	"github.com/OCAP2/ballistics/internal/storage/memory"
	v1 "github.com/OCAP2/ballistics/internal/storage/memory/export/v1"
	"gorm.io/gorm"
)

var errNoDatabase = errors.New("export needs the postgres or sqlite storage type")

// exportSessions writes the stored sessions with the given IDs as JSON
// recordings into the memory output directory.
func exportSessions(configDir string, sessionIDs []string) error {
	if err := config.Load(configDir); err != nil {
		return err
	}
	cfg := config.GetStorageConfig()

	db, err := openRecordingDB(cfg)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	world := config.GetWorldConfig()
	anchor, err := geo.NewAnchor(world.Latitude, world.Longitude)
	if err != nil {
		return fmt.Errorf("invalid world anchor: %w", err)
	}

	if err := os.MkdirAll(cfg.Memory.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	fmt.Println("Getting JSON for session IDs: ", sessionIDs)
	for _, arg := range sessionIDs {
		id, err := strconv.ParseUint(arg, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid session ID %q: %w", arg, err)
		}

		start := time.Now()
		session, shots, err := gormstorage.LoadSession(db, uint(id), anchor)
		if err != nil {
			return fmt.Errorf("session %d: %w", id, err)
		}

		path := filepath.Join(cfg.Memory.OutputDir, exportFileName(id, cfg.Memory.CompressOutput))
		export := v1.Build(&v1.SessionData{Session: session, Shots: shots})
		if err := memory.WriteExport(path, export, cfg.Memory.CompressOutput); err != nil {
			return fmt.Errorf("session %d: %w", id, err)
		}
		fmt.Printf("Exported session %d (%d shots) to %s in %s\n", id, len(shots), path, time.Since(start))
	}
	return nil
}

func openRecordingDB(cfg config.StorageConfig) (*gorm.DB, error) {
	switch cfg.Type {
	case "postgres":
		db, err := database.OpenPostgres(config.GetDBConfig())
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		return db, nil
	case "sqlite":
		path := cfg.SQLite.Path
		if path == "" {
			path = cfg.SQLite.DumpPath
		}
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("sqlite database not found: %w", err)
		}
		return database.OpenSQLite(path)
	default:
		return nil, fmt.Errorf("%w, got %q", errNoDatabase, cfg.Type)
	}
}

func exportFileName(id uint64, compress bool) string {
	name := fmt.Sprintf("session_%d.json", id)
	if compress {
		name += ".gz"
	}
	return name
}
