package record

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/kailas-cloud/semdesk/internal/domain"
)

// Neighbor is one embedding row returned by a similarity search.
// Distance is the raw cosine distance, lower is closer.
type Neighbor struct {
	SourcePath   string
	MarkdownPath string
	Variant      domain.Variant
	Label        string
	Distance     float64
}

// SourceID derives a stable storage identifier from a path or label.
func SourceID(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:16])
}
