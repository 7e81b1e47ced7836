// Package file holds the per-file facts that drive converter routing.
package file

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Signals is an immutable descriptor of a source file used for routing decisions.
type Signals struct {
	path       string
	extension  string
	sizeBytes  int64
	mimeType   string
	historical map[string]float64
}

// NewSignals builds Signals from known values. The extension is lowercased.
func NewSignals(path string, sizeBytes int64, mimeType string, historical map[string]float64) Signals {
	return Signals{
		path:       path,
		extension:  strings.ToLower(filepath.Ext(path)),
		sizeBytes:  sizeBytes,
		mimeType:   mimeType,
		historical: maps.Clone(historical),
	}
}

// Gather stats and sniffs path. MIME detection is best-effort and left empty on failure.
func Gather(path string, historical map[string]float64) (Signals, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Signals{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return Signals{}, fmt.Errorf("%s is a directory", path)
	}

	var mimeType string
	if m, err := mimetype.DetectFile(path); err == nil {
		mimeType = m.String()
	}

	return NewSignals(path, info.Size(), mimeType, historical), nil
}

// Path returns the file path.
func (s Signals) Path() string { return s.path }

// Extension returns the lowercase extension including the dot.
func (s Signals) Extension() string { return s.extension }

// SizeBytes returns the file size.
func (s Signals) SizeBytes() int64 { return s.sizeBytes }

// SizeMegabytes returns the size in decimal megabytes.
func (s Signals) SizeMegabytes() float64 {
	if s.sizeBytes <= 0 {
		return 0
	}
	return float64(s.sizeBytes) / 1_000_000
}

// MIMEType returns the detected MIME type or "".
func (s Signals) MIMEType() string { return s.mimeType }

// HistoricalSuccess returns the smoothed success score for a converter and whether one is known.
func (s Signals) HistoricalSuccess(converter string) (float64, bool) {
	v, ok := s.historical[converter]
	return v, ok
}

// HasHistory reports whether any converter history is attached.
func (s Signals) HasHistory() bool { return len(s.historical) > 0 }
