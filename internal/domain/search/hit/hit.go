package hit

import (
	"strings"

	"github.com/kailas-cloud/semdesk/internal/domain"
)

// Hit is a single ranked document returned by a query.
type Hit struct {
	sourcePath   string
	markdownPath string
	description  string
	tags         []string
	score        float64
	variant      domain.Variant
	matchedTag   string
}

// New creates a hit. score is clamped to [-1, 1].
func New(
	sourcePath, markdownPath, description string, tags []string,
	score float64, variant domain.Variant, matchedTag string,
) Hit {
	return Hit{
		sourcePath: sourcePath, markdownPath: markdownPath, description: description,
		tags: tags, score: Clamp(score), variant: variant, matchedTag: matchedTag,
	}
}

// SimilarityFromDistance maps a cosine distance in [0, 2] to a similarity in [-1, 1].
func SimilarityFromDistance(distance float64) float64 {
	return Clamp(1 - distance)
}

// Clamp bounds a similarity to [-1, 1].
func Clamp(s float64) float64 {
	return max(-1, min(1, s))
}

// SourcePath returns the original file location.
func (h *Hit) SourcePath() string { return h.sourcePath }

// MarkdownPath returns the converted markdown location.
func (h *Hit) MarkdownPath() string { return h.markdownPath }

// Description returns the stored summary.
func (h *Hit) Description() string { return h.description }

// Tags returns the stored tags.
func (h *Hit) Tags() []string { return h.tags }

// Score returns the similarity, higher is better.
func (h *Hit) Score() float64 { return h.score }

// Variant returns the embedding variant that produced the hit.
func (h *Hit) Variant() domain.Variant { return h.variant }

// MatchedTag returns the tag row that matched, empty for document hits.
func (h *Hit) MatchedTag() string { return h.matchedTag }

// HasTag reports whether the hit carries tag, ignoring case and surrounding space.
func (h *Hit) HasTag(tag string) bool {
	tag = strings.ToLower(strings.TrimSpace(tag))
	for _, t := range h.tags {
		if strings.ToLower(t) == tag {
			return true
		}
	}
	return false
}

// Boost forces the score to the maximum similarity.
func (h *Hit) Boost() { h.score = 1 }
