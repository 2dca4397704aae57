// internal/storage/factory.go
package storage

import (
	"errors"
	"fmt"

	"github.com/OCAP2/ballistics/internal/config"
	"github.com/OCAP2/ballistics/internal/database"
	"github.com/OCAP2/ballistics/internal/geo"
	gormstorage "github.com/OCAP2/ballistics/internal/storage/gorm"
	"github.com/OCAP2/ballistics/internal/storage/memory"
	sqlitestorage "github.com/OCAP2/ballistics/internal/storage/sqlite"
	"github.com/rs/zerolog"
)

// ErrUnknownStorage is returned for an unsupported storage type.
var ErrUnknownStorage = errors.New("unknown storage type")

// Options carries what the database backends need besides StorageConfig.
type Options struct {
	DB     config.DBConfig
	Anchor geo.Anchor
	Logger zerolog.Logger
}

// NewBackend creates a storage backend based on configuration. The
// postgres backend falls back to an in-memory SQLite database dumped to
// cfg.SQLite.DumpPath when the server cannot be reached.
func NewBackend(cfg config.StorageConfig, opts Options) (Backend, error) {
	switch cfg.Type {
	case "postgres":
		m := database.NewManager(opts.DB, cfg.SQLite.DumpPath, opts.Logger)
		if err := m.Connect(); err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if m.ShouldSaveLocal {
			fallback := cfg.SQLite
			fallback.Path = ""
			return sqlitestorage.NewWithDB(m.DB, fallback, cfg.FlushInterval, opts.Anchor, opts.Logger), nil
		}
		return gormstorage.New(gormstorage.Dependencies{
			DB:            m.DB,
			Anchor:        opts.Anchor,
			Logger:        opts.Logger,
			FlushInterval: cfg.FlushInterval,
			CloseDB:       true,
		}), nil
	case "sqlite":
		return sqlitestorage.New(cfg.SQLite, cfg.FlushInterval, opts.Anchor, opts.Logger)
	case "memory":
		return memory.New(cfg.Memory), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownStorage, cfg.Type)
	}
}
