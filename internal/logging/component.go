package logging

import (
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// NewComponentLogger returns a zerolog logger for a long-lived component
// (database, influx, storage). Records go to w as JSON and, when console is
// non-nil, also to console in human-readable form.
func NewComponentLogger(w, console io.Writer, component, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	var out io.Writer = w
	if console != nil {
		out = zerolog.MultiLevelWriter(
			w,
			zerolog.ConsoleWriter{
				Out:        console,
				TimeFormat: time.RFC3339,
				NoColor:    true,
			},
		)
	}

	return zerolog.New(out).Level(lvl).With().
		Timestamp().
		Str("component", component).
		Logger()
}
