// internal/storage/memory/memory.go
package memory

import (
	"sync"

	"github.com/OCAP2/ballistics/internal/config"
	"github.com/OCAP2/ballistics/pkg/core"
)

// Backend keeps recorded shots in memory and exports them to JSON on Close.
type Backend struct {
	cfg     config.MemoryConfig
	session *core.Session
	shots   []core.ShotRecord

	lastExportPath string
	closed         bool
	mu             sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{
		cfg: cfg,
	}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close exports the session when an output directory is configured.
// Subsequent calls are no-ops.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	if b.cfg.OutputDir == "" {
		return nil
	}
	return b.exportJSON()
}

// StartSession begins recording a new session, discarding earlier shots.
func (b *Backend) StartSession(s *core.Session) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.session = s
	b.shots = nil
	return nil
}

// RecordShot stores a copy of the shot.
func (b *Backend) RecordShot(s *core.ShotRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.shots = append(b.shots, *s)
	return nil
}

// Shots returns the recorded shots in arrival order.
func (b *Backend) Shots() []core.ShotRecord {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return append([]core.ShotRecord(nil), b.shots...)
}

// GetExportedFilePath returns the path of the last export, if any.
func (b *Backend) GetExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.lastExportPath
}
