package search

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/kailas-cloud/semdesk/internal/domain"
	"github.com/kailas-cloud/semdesk/internal/domain/search/hit"
	"github.com/kailas-cloud/semdesk/internal/metrics"
)

const (
	// DefaultTopK is used when a caller passes a non-positive topK.
	DefaultTopK = 5
	// DefaultAnswerTopK is the number of documents pulled in to answer a question.
	DefaultAnswerTopK = 3

	// NoMatchAnswer is returned when no document matches a question.
	NoMatchAnswer = "No matching documents were found."
)

// Options tune the engine.
type Options struct {
	// TagOversample multiplies the neighbor limit for tag queries, since one source owns many tag rows.
	TagOversample int
	// SnippetChars bounds the markdown read per document when answering.
	SnippetChars int
}

func (o Options) withDefaults() Options {
	if o.TagOversample <= 0 {
		o.TagOversample = 5
	}
	if o.SnippetChars <= 0 {
		o.SnippetChars = 2500
	}
	return o
}

// Answer is a grounded reply together with the hits it was built from.
type Answer struct {
	Text string
	Hits []hit.Hit
}

// Engine ranks documents by embedding similarity and answers questions over them.
type Engine struct {
	metadata   MetadataReader
	embeddings NeighborSearcher
	embed      Embedder
	answerer   Answerer
	opts       Options
}

// New creates a search engine. answerer may be nil when question answering is disabled.
func New(metadata MetadataReader, embeddings NeighborSearcher, embed Embedder, answerer Answerer, opts Options) *Engine {
	return &Engine{
		metadata:   metadata,
		embeddings: embeddings,
		embed:      embed,
		answerer:   answerer,
		opts:       opts.withDefaults(),
	}
}

// SearchContext ranks documents by whole-document similarity.
func (e *Engine) SearchContext(ctx context.Context, query string, topK int) ([]hit.Hit, error) {
	return e.Search(ctx, query, domain.VariantDocument, topK)
}

// SearchTags ranks documents by tag similarity. Exact tag matches score 1.
func (e *Engine) SearchTags(ctx context.Context, query string, topK int) ([]hit.Hit, error) {
	return e.Search(ctx, query, domain.VariantTags, topK)
}

// Search embeds query and returns at most topK hits, one per source, best first.
func (e *Engine) Search(ctx context.Context, query string, v domain.Variant, topK int) (hits []hit.Hit, err error) {
	start := time.Now()
	defer func() {
		status := "ok"
		if err != nil {
			status = "error"
		}
		metrics.SearchRequestsTotal.WithLabelValues(string(v), status).Inc()
		metrics.SearchRequestDuration.WithLabelValues(string(v)).Observe(time.Since(start).Seconds())
	}()

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("query must contain text: %w", domain.ErrInvalidInput)
	}
	if !v.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownVariant, v)
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	res, err := e.embed.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	limit := topK
	if v == domain.VariantTags {
		limit = max(topK, topK*max(1, e.opts.TagOversample))
	}
	neighbors, err := e.embeddings.Search(ctx, res.Embedding, v, limit)
	if err != nil {
		return nil, fmt.Errorf("search %s embeddings: %w", v, err)
	}
	if len(neighbors) == 0 {
		return []hit.Hit{}, nil
	}

	paths := make([]string, 0, len(neighbors))
	for _, n := range neighbors {
		paths = append(paths, n.SourcePath)
	}
	meta, err := e.metadata.FetchByPaths(ctx, paths)
	if err != nil {
		return nil, fmt.Errorf("fetch metadata: %w", err)
	}

	normalized := strings.ToLower(query)
	best := make(map[string]hit.Hit, len(neighbors))
	for _, n := range neighbors {
		m := meta[n.SourcePath]
		h := hit.New(n.SourcePath, n.MarkdownPath, m.Description, m.Tags,
			hit.SimilarityFromDistance(n.Distance), n.Variant, n.Label)
		if v == domain.VariantTags && h.HasTag(normalized) {
			h.Boost()
		}
		if prev, ok := best[n.SourcePath]; !ok || h.Score() > prev.Score() {
			best[n.SourcePath] = h
		}
	}

	hits = make([]hit.Hit, 0, len(best))
	for _, h := range best {
		hits = append(hits, h)
	}
	slices.SortFunc(hits, func(a, b hit.Hit) int {
		switch {
		case a.Score() > b.Score():
			return -1
		case a.Score() < b.Score():
			return 1
		default:
			return strings.Compare(a.SourcePath(), b.SourcePath())
		}
	})
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

// AnswerQuestion answers question from the topK most similar documents.
// Without matches it returns NoMatchAnswer, even when no answerer is configured.
func (e *Engine) AnswerQuestion(ctx context.Context, question string, topK int) (Answer, error) {
	if topK <= 0 {
		topK = DefaultAnswerTopK
	}

	hits, err := e.SearchContext(ctx, question, topK)
	if err != nil {
		return Answer{}, err
	}
	if len(hits) == 0 {
		return Answer{Text: NoMatchAnswer, Hits: []hit.Hit{}}, nil
	}
	if e.answerer == nil {
		return Answer{}, fmt.Errorf("question answering is not configured: %w", domain.ErrGeneratorError)
	}

	contexts := make([]Context, 0, len(hits))
	for _, h := range hits {
		content := e.snippet(h.MarkdownPath())
		if content == "" {
			content = h.Description()
		}
		contexts = append(contexts, Context{SourcePath: h.SourcePath(), Content: content})
	}

	text, err := e.answerer.Answer(ctx, question, contexts)
	if err != nil {
		return Answer{}, fmt.Errorf("answer question: %w", err)
	}
	return Answer{Text: text, Hits: hits}, nil
}

// snippet returns the first SnippetChars runes of the markdown file, or "" when unreadable.
func (e *Engine) snippet(path string) string {
	if path == "" {
		return ""
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return truncateRunes(string(data), e.opts.SnippetChars)
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
