// Package record holds the persisted shapes of an indexed document.
package record

import (
	"mime"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

// UnknownConverter marks metadata rebuilt from an existing markdown file.
const UnknownConverter = "unknown"

const fallbackMIME = "application/octet-stream"

// Metadata is the single metadata row of an indexed source file.
type Metadata struct {
	SourcePath    string
	MarkdownPath  string
	Converter     string
	SizeBytes     int64
	IndexedAt     time.Time
	ModifiedAt    time.Time
	FileName      string
	FileExtension string
	FileType      string
	Description   string
	Tags          []string
}

// Source describes the file a metadata row is built from.
type Source struct {
	Path       string
	SizeBytes  int64
	ModifiedAt time.Time
}

// NewMetadata builds a metadata row with an empty description and no tags.
func NewMetadata(src Source, markdownPath, converter string, indexedAt time.Time) Metadata {
	if converter == "" {
		converter = UnknownConverter
	}
	return Metadata{
		SourcePath:    src.Path,
		MarkdownPath:  markdownPath,
		Converter:     converter,
		SizeBytes:     src.SizeBytes,
		IndexedAt:     indexedAt.UTC(),
		ModifiedAt:    src.ModifiedAt.UTC(),
		FileName:      filepath.Base(src.Path),
		FileExtension: strings.ToLower(filepath.Ext(src.Path)),
		FileType:      guessType(src.Path),
		Tags:          []string{},
	}
}

// WithSummary returns a copy carrying the description and normalized tags.
func (m Metadata) WithSummary(description string, tags []string) Metadata {
	m.Description = strings.TrimSpace(description)
	m.Tags = NormalizeTags(tags)
	return m
}

func guessType(path string) string {
	if t := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); t != "" {
		return t
	}
	if m, err := mimetype.DetectFile(path); err == nil && m.String() != "" {
		return m.String()
	}
	return fallbackMIME
}

var tagDisallowed = regexp.MustCompile(`[^a-z0-9\s\-]`)

// NormalizeTags lowercases, strips punctuation, trims and dedupes tags preserving order.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(tagDisallowed.ReplaceAllString(strings.ToLower(t), ""))
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
