// Package gormstorage implements the storage.Backend interface using GORM
// with an internal queue and a background DB writer goroutine.
package gormstorage

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/OCAP2/ballistics/internal/database"
	"github.com/OCAP2/ballistics/internal/geo"
	"github.com/OCAP2/ballistics/internal/model"
	"github.com/OCAP2/ballistics/internal/model/convert"
	"github.com/OCAP2/ballistics/internal/queue"
	"github.com/OCAP2/ballistics/pkg/core"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DefaultFlushInterval is used when Dependencies.FlushInterval is not set.
const DefaultFlushInterval = 2 * time.Second

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB            *gorm.DB
	Anchor        geo.Anchor
	Logger        zerolog.Logger
	FlushInterval time.Duration
	// CloseDB closes the connection pool after the final flush.
	CloseDB bool
}

// Backend implements storage.Backend using GORM with queue-based batch writes.
type Backend struct {
	deps      Dependencies
	shots     *queue.Queue[model.Shot]
	sessionID atomic.Uint64
	written   atomic.Int64
	failed    atomic.Int64

	writeMu   sync.Mutex
	stopChan  chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.FlushInterval <= 0 {
		deps.FlushInterval = DefaultFlushInterval
	}
	return &Backend{
		deps:  deps,
		shots: queue.New[model.Shot](),
	}
}

// Init runs schema migration and starts the DB writer goroutine. Without a
// DB the backend only queues.
func (b *Backend) Init() error {
	b.stopChan = make(chan struct{})
	b.done = make(chan struct{})

	if b.deps.DB == nil {
		close(b.done)
		return nil
	}

	if err := database.Setup(b.deps.DB, b.deps.Logger); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}

	go b.writerLoop()
	return nil
}

// Close stops the writer goroutine after a final flush.
func (b *Backend) Close() error {
	var err error
	b.closeOnce.Do(func() {
		if b.stopChan == nil {
			return
		}
		close(b.stopChan)
		<-b.done

		if b.deps.CloseDB && b.deps.DB != nil {
			sqlDB, dbErr := b.deps.DB.DB()
			if dbErr != nil {
				err = fmt.Errorf("failed to access sql interface: %w", dbErr)
				return
			}
			err = sqlDB.Close()
		}
	})
	return err
}

// DB returns the underlying connection.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// StartSession inserts the session row; shots recorded afterwards reference it.
func (b *Backend) StartSession(s *core.Session) error {
	if b.deps.DB == nil {
		return nil
	}

	settings := datatypes.JSON("{}")
	if len(s.Settings) > 0 {
		data, err := json.Marshal(s.Settings)
		if err != nil {
			return fmt.Errorf("failed to encode session settings: %w", err)
		}
		settings = datatypes.JSON(data)
	}

	row := model.Session{
		Name:      s.Name,
		StartedAt: s.StartedAt,
		Latitude:  s.Latitude,
		Longitude: s.Longitude,
		Location:  b.deps.Anchor.Point(core.Vec3{}),
		Settings:  settings,
	}
	if err := b.deps.DB.Create(&row).Error; err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	b.sessionID.Store(uint64(row.ID))
	b.deps.Logger.Info().Uint("sessionId", row.ID).Str("name", s.Name).Msg("Session started")
	return nil
}

// SessionID returns the current session row ID, 0 before StartSession.
func (b *Backend) SessionID() uint {
	return uint(b.sessionID.Load())
}

// RecordShot converts the shot and queues it for the writer.
func (b *Backend) RecordShot(s *core.ShotRecord) error {
	if s == nil {
		return errors.New("nil shot")
	}
	b.shots.Push(convert.CoreToShot(*s, b.deps.Anchor))
	return nil
}

// Pending returns the number of queued shots.
func (b *Backend) Pending() int {
	return b.shots.Len()
}

// Written returns the number of shots committed to the DB.
func (b *Backend) Written() int64 {
	return b.written.Load()
}

// Failed returns how many shot writes were rolled back and requeued.
func (b *Backend) Failed() int64 {
	return b.failed.Load()
}

// Flush writes all queued shots now. Shots stay queued until a session
// has been started.
func (b *Backend) Flush() {
	sessionID := uint(b.sessionID.Load())
	if b.deps.DB == nil || sessionID == 0 {
		return
	}

	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	writeQueue(b.deps.DB, b.shots, "shots", b.deps.Logger,
		func(items []model.Shot) {
			for i := range items {
				items[i].SessionID = sessionID
			}
		},
		func(items []model.Shot) {
			b.written.Add(int64(len(items)))
		},
		func(items []model.Shot) {
			b.failed.Add(int64(len(items)))
		},
	)
}

// writeQueue writes all items from a queue to the database in a transaction.
// Failed batches are pushed back for the next cycle.
func writeQueue[T any](db *gorm.DB, q *queue.Queue[T], name string, log zerolog.Logger, prepare, onSuccess, onFailure func([]T)) {
	if q.Len() == 0 {
		return
	}

	tx := db.Begin()
	items := q.Drain()
	if prepare != nil {
		prepare(items)
	}
	if err := tx.Create(&items).Error; err != nil {
		log.Error().Err(err).Str("queue", name).Int("count", len(items)).Msg("Error writing batch")
		tx.Rollback()
		q.Push(items...)
		if onFailure != nil {
			onFailure(items)
		}
		return
	}

	if err := tx.Commit().Error; err != nil {
		log.Error().Err(err).Str("queue", name).Msg("Error committing batch")
		q.Push(items...)
		if onFailure != nil {
			onFailure(items)
		}
		return
	}
	log.Debug().Str("queue", name).Int("count", len(items)).Msg("Batch written")
	if onSuccess != nil {
		onSuccess(items)
	}
}

// writerLoop periodically drains the queue into the DB until Close.
func (b *Backend) writerLoop() {
	defer close(b.done)

	ticker := time.NewTicker(b.deps.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			b.Flush()
			if n := b.shots.Len(); n > 0 {
				b.deps.Logger.Warn().Int("count", n).Msg("Shots left unwritten at close")
			}
			return
		case <-ticker.C:
			b.Flush()
		}
	}
}

// LoadSession reads a stored session and its shots ordered by firing time.
func LoadSession(db *gorm.DB, id uint, anchor geo.Anchor) (*core.Session, []core.ShotRecord, error) {
	var row model.Session
	if err := db.First(&row, id).Error; err != nil {
		return nil, nil, fmt.Errorf("error getting session: %w", err)
	}

	session := &core.Session{
		Name:      row.Name,
		StartedAt: row.StartedAt,
		Latitude:  row.Latitude,
		Longitude: row.Longitude,
	}
	if len(row.Settings) > 0 {
		if err := json.Unmarshal(row.Settings, &session.Settings); err != nil {
			return nil, nil, fmt.Errorf("error decoding session settings: %w", err)
		}
	}

	var shots []model.Shot
	err := db.Preload("Impacts").
		Where("session_id = ?", id).
		Order("fired_at").
		Find(&shots).Error
	if err != nil {
		return nil, nil, fmt.Errorf("error getting shots: %w", err)
	}

	records := make([]core.ShotRecord, 0, len(shots))
	for _, s := range shots {
		records = append(records, convert.ShotToCore(s, anchor))
	}
	return session, records, nil
}
