package embedding

import (
	"encoding/binary"
	"math"

	"github.com/kailas-cloud/semdesk/internal/domain/record"
)

const (
	fieldSourcePath   = "source_path"
	fieldMarkdownPath = "markdown_path"
	fieldVariant      = "variant"
	fieldLabel        = "label"
	fieldVector       = "__vector"
	vectorAlias       = "vector"
)

// buildHashFields converts an embedding row into a flat map for HSET.
func buildHashFields(row record.Embedding) map[string]string {
	return map[string]string{
		fieldSourcePath:   row.SourcePath,
		fieldMarkdownPath: row.MarkdownPath,
		fieldVariant:      string(row.Variant),
		fieldLabel:        row.Label,
		fieldVector:       vectorToBytes(row.Vector),
	}
}

// vectorToBytes serializes []float32 to a binary string (4 bytes per float, little-endian).
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
