// Package sqlitestorage implements the storage.Backend interface on SQLite.
// It wraps the GORM backend via composition; the only SQLite-specific
// concern is the periodic VACUUM INTO dump of an in-memory database.
package sqlitestorage

import (
	"fmt"
	"time"

	"github.com/OCAP2/ballistics/internal/config"
	"github.com/OCAP2/ballistics/internal/database"
	"github.com/OCAP2/ballistics/internal/geo"
	gormstorage "github.com/OCAP2/ballistics/internal/storage/gorm"
	"github.com/rs/zerolog"

	"gorm.io/gorm"
)

// Backend wraps the GORM backend for SQLite-specific behavior.
type Backend struct {
	*gormstorage.Backend
	db       *gorm.DB
	cfg      config.SQLiteConfig
	log      zerolog.Logger
	stopChan chan struct{}
	dumpDone chan struct{}
	started  bool
}

// New opens the database at cfg.Path, or an in-memory database dumped to
// cfg.DumpPath when the path is empty.
func New(cfg config.SQLiteConfig, flushInterval time.Duration, anchor geo.Anchor, log zerolog.Logger) (*Backend, error) {
	db, err := database.OpenSQLite(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite DB: %w", err)
	}
	if cfg.Path == "" {
		log.Info().Str("dumpPath", cfg.DumpPath).Msg("Using local SQLite DB in memory with periodic disk dump")
	} else {
		log.Info().Str("path", cfg.Path).Msg("Using local SQLite DB")
		cfg.DumpPath = ""
	}
	return NewWithDB(db, cfg, flushInterval, anchor, log), nil
}

// NewWithDB wraps an already open SQLite connection. The backend owns db and
// closes it on Close.
func NewWithDB(db *gorm.DB, cfg config.SQLiteConfig, flushInterval time.Duration, anchor geo.Anchor, log zerolog.Logger) *Backend {
	gormBackend := gormstorage.New(gormstorage.Dependencies{
		DB:            db,
		Anchor:        anchor,
		Logger:        log,
		FlushInterval: flushInterval,
	})

	return &Backend{
		Backend:  gormBackend,
		db:       db,
		cfg:      cfg,
		log:      log,
		stopChan: make(chan struct{}),
		dumpDone: make(chan struct{}),
	}
}

// Init initializes the embedded GORM backend and starts the dump goroutine.
func (b *Backend) Init() error {
	if err := b.Backend.Init(); err != nil {
		return err
	}
	b.started = true

	if b.cfg.DumpPath != "" && b.cfg.DumpInterval > 0 {
		go b.dumpLoop()
	} else {
		close(b.dumpDone)
	}

	return nil
}

// Close flushes the GORM backend, writes a final dump and closes the DB.
func (b *Backend) Close() error {
	select {
	case <-b.stopChan:
		return nil
	default:
	}
	close(b.stopChan)
	if b.started {
		<-b.dumpDone
	}

	if err := b.Backend.Close(); err != nil {
		return err
	}

	if b.cfg.DumpPath != "" {
		if err := b.dump(); err != nil {
			return err
		}
	}

	sqlDB, err := b.db.DB()
	if err != nil {
		return fmt.Errorf("failed to access sql interface: %w", err)
	}
	return sqlDB.Close()
}

func (b *Backend) dump() error {
	start := time.Now()
	if err := database.DumpMemoryDBToDisk(b.db, b.cfg.DumpPath); err != nil {
		return err
	}
	b.log.Debug().Dur("duration", time.Since(start)).Str("path", b.cfg.DumpPath).Msg("Dumped to disk")
	return nil
}

// dumpLoop periodically dumps the in-memory SQLite database to disk via VACUUM INTO.
// VACUUM INTO creates a point-in-time snapshot, so no pause mechanism is needed.
func (b *Backend) dumpLoop() {
	defer close(b.dumpDone)

	ticker := time.NewTicker(b.cfg.DumpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			if err := b.dump(); err != nil {
				b.log.Error().Err(err).Msg("Error dumping to disk")
			}
		}
	}
}
