package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// InstrumentationName names the OTel logger of the bridge handler.
const InstrumentationName = "ballistics"

// swapped in tests
var osStdout io.Writer = os.Stdout

// Options configure SlogManager.Setup.
type Options struct {
	// Writer receives text records; stdout when nil.
	Writer io.Writer
	Level  string
	// JSON switches Writer to the JSON handler.
	JSON bool
	// LogProvider enables the otelslog bridge when set.
	LogProvider *sdklog.LoggerProvider
	Source      AttrSource
}

// SlogManager owns the simulation logger.
type SlogManager struct {
	logger      *slog.Logger
	logProvider *sdklog.LoggerProvider
}

func NewSlogManager() *SlogManager {
	return &SlogManager{}
}

// parseLevel accepts the slog level names in any case, e.g. "warn" or
// "DEBUG+2". Anything else is info.
func parseLevel(level string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// Setup replaces the logger. Calling it again drops the previous outputs.
func (m *SlogManager) Setup(opts Options) {
	handlerOpts := &slog.HandlerOptions{
		Level: parseLevel(opts.Level),
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if t, ok := a.Value.Any().(time.Time); ok && a.Key == slog.TimeKey {
				a.Value = slog.StringValue(t.UTC().Format(time.RFC3339))
			}
			return a
		},
	}

	w := opts.Writer
	if w == nil {
		w = osStdout
	}
	var out slog.Handler = slog.NewTextHandler(w, handlerOpts)
	if opts.JSON {
		out = slog.NewJSONHandler(w, handlerOpts)
	}

	var bridge slog.Handler
	if opts.LogProvider != nil {
		bridge = otelslog.NewHandler(InstrumentationName, otelslog.WithLoggerProvider(opts.LogProvider))
	}

	m.logProvider = opts.LogProvider
	m.logger = slog.New(WithSource(NewMultiHandler(out, bridge), opts.Source))
	m.logger.Info("Logging initialized", "level", handlerOpts.Level.Level().String())
}

// Logger returns slog.Default until Setup has run.
func (m *SlogManager) Logger() *slog.Logger {
	if m.logger == nil {
		return slog.Default()
	}
	return m.logger
}

// Flush forces the OTel log exporter, if any.
func (m *SlogManager) Flush(ctx context.Context) error {
	if m.logProvider == nil {
		return nil
	}
	return m.logProvider.ForceFlush(ctx)
}
