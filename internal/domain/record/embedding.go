package record

import "github.com/kailas-cloud/semdesk/internal/domain"

// Embedding is one vector row keyed by (source, variant[, label]).
type Embedding struct {
	SourcePath   string
	MarkdownPath string
	Variant      domain.Variant
	Label        string
	Vector       []float32
}

// DocumentEmbedding builds the single document-variant row of a source.
func DocumentEmbedding(source, markdownPath string, vec []float32) Embedding {
	return Embedding{
		SourcePath:   source,
		MarkdownPath: markdownPath,
		Variant:      domain.VariantDocument,
		Vector:       vec,
	}
}

// TagEmbedding builds a tags-variant row labeled with the tag text.
func TagEmbedding(source, markdownPath, tag string, vec []float32) Embedding {
	return Embedding{
		SourcePath:   source,
		MarkdownPath: markdownPath,
		Variant:      domain.VariantTags,
		Label:        tag,
		Vector:       vec,
	}
}
