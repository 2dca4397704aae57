// internal/storage/storage.go
package storage

import (
	"errors"

	"github.com/OCAP2/ballistics/pkg/core"
)

// Backend is the interface all storage implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Session management
	StartSession(s *core.Session) error

	// Recording
	RecordShot(s *core.ShotRecord) error
}

// Recorder receives finished shots.
type Recorder interface {
	RecordShot(s *core.ShotRecord) error
}

// Exporter is an optional interface for storage backends that write a
// file when closed.
type Exporter interface {
	GetExportedFilePath() string
}

// Tee forwards every shot to all recorders. Nil recorders are skipped and
// errors are joined.
func Tee(recorders ...Recorder) Recorder {
	var out tee
	for _, r := range recorders {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

type tee []Recorder

func (t tee) RecordShot(s *core.ShotRecord) error {
	var errs []error
	for _, r := range t {
		if err := r.RecordShot(s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
