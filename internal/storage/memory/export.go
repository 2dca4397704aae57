// internal/storage/memory/export.go
package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	v1 "github.com/OCAP2/ballistics/internal/storage/memory/export/v1"
)

// exportJSON writes the session to a JSON file, gzipped when configured.
// Callers hold b.mu.
func (b *Backend) exportJSON() error {
	export := v1.Build(&v1.SessionData{
		Session: b.session,
		Shots:   b.shots,
	})

	outputPath := filepath.Join(b.cfg.OutputDir, b.exportFileName())

	// Ensure output directory exists
	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := WriteExport(outputPath, export, b.cfg.CompressOutput); err != nil {
		return err
	}

	b.lastExportPath = outputPath
	return nil
}

func (b *Backend) exportFileName() string {
	name := "session"
	started := time.Now().UTC()
	if b.session != nil {
		if b.session.Name != "" {
			name = sanitizeFileName(b.session.Name)
		}
		if !b.session.StartedAt.IsZero() {
			started = b.session.StartedAt.UTC()
		}
	}
	timestamp := started.Format("20060102_150405")

	if b.cfg.CompressOutput {
		return fmt.Sprintf("%s_%s.json.gz", name, timestamp)
	}
	return fmt.Sprintf("%s_%s.json", name, timestamp)
}

func sanitizeFileName(name string) string {
	return strings.NewReplacer(" ", "_", ":", "_", "/", "_", "\\", "_").Replace(name)
}

// WriteExport writes export to path as JSON, gzipped when compress is set.
func WriteExport(path string, export v1.Export, compress bool) error {
	if compress {
		return writeGzipJSON(path, export)
	}
	return writeJSON(path, export)
}

func writeJSON(path string, data v1.Export) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	return encoder.Encode(data)
}

func writeGzipJSON(path string, data v1.Export) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gzWriter := gzip.NewWriter(f)
	if err := json.NewEncoder(gzWriter).Encode(data); err != nil {
		_ = gzWriter.Close()
		return fmt.Errorf("failed to encode export: %w", err)
	}
	return gzWriter.Close()
}
