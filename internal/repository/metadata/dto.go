package metadata

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/kailas-cloud/semdesk/internal/domain/record"
)

const (
	fieldSourcePath    = "source_path"
	fieldMarkdownPath  = "markdown_path"
	fieldConverter     = "converter"
	fieldSizeBytes     = "size_bytes"
	fieldIndexedAt     = "indexed_at"
	fieldModifiedAt    = "modified_at"
	fieldFileName      = "file_name"
	fieldFileExtension = "file_extension"
	fieldFileType      = "file_type"
	fieldDescription   = "description"
	fieldTags          = "tags"
)

// buildHashFields flattens a row for HSET. Tags are a JSON array, times RFC 3339.
func buildHashFields(m record.Metadata) (map[string]string, error) {
	tags := m.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return nil, fmt.Errorf("marshal tags: %w", err)
	}

	return map[string]string{
		fieldSourcePath:    m.SourcePath,
		fieldMarkdownPath:  m.MarkdownPath,
		fieldConverter:     m.Converter,
		fieldSizeBytes:     strconv.FormatInt(m.SizeBytes, 10),
		fieldIndexedAt:     m.IndexedAt.UTC().Format(time.RFC3339),
		fieldModifiedAt:    m.ModifiedAt.UTC().Format(time.RFC3339),
		fieldFileName:      m.FileName,
		fieldFileExtension: m.FileExtension,
		fieldFileType:      m.FileType,
		fieldDescription:   m.Description,
		fieldTags:          string(tagsJSON),
	}, nil
}

// parseHashFields rebuilds a row from a hash. Malformed optional fields fall back to zero values.
func parseHashFields(h map[string]string) (record.Metadata, error) {
	if h[fieldSourcePath] == "" {
		return record.Metadata{}, fmt.Errorf("missing %s", fieldSourcePath)
	}

	m := record.Metadata{
		SourcePath:    h[fieldSourcePath],
		MarkdownPath:  h[fieldMarkdownPath],
		Converter:     h[fieldConverter],
		FileName:      h[fieldFileName],
		FileExtension: h[fieldFileExtension],
		FileType:      h[fieldFileType],
		Description:   h[fieldDescription],
		Tags:          []string{},
	}
	if n, err := strconv.ParseInt(h[fieldSizeBytes], 10, 64); err == nil {
		m.SizeBytes = n
	}
	if t, err := time.Parse(time.RFC3339, h[fieldIndexedAt]); err == nil {
		m.IndexedAt = t.UTC()
	}
	if t, err := time.Parse(time.RFC3339, h[fieldModifiedAt]); err == nil {
		m.ModifiedAt = t.UTC()
	}
	if raw := h[fieldTags]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &m.Tags); err != nil {
			return record.Metadata{}, fmt.Errorf("unmarshal tags: %w", err)
		}
	}
	return m, nil
}
