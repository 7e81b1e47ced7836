package indexing

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/semdesk/internal/domain"
	"github.com/kailas-cloud/semdesk/internal/domain/batch"
	"github.com/kailas-cloud/semdesk/internal/domain/record"
	"github.com/kailas-cloud/semdesk/internal/metrics"
)

// Deps are the collaborators of a pipeline. Summarizer and Embedder may be nil.
type Deps struct {
	Stage      Converter
	Summarizer Summarizer
	Embedder   Embedder
	Metadata   MetadataStore
	Embeddings EmbeddingStore
	Logger     *zap.Logger
}

// Options tune a pipeline run.
type Options struct {
	// OutputRoot holds generated markdown. Empty means <parent>/.semantic_index/markdown.
	OutputRoot string
	Extensions []string
	// Force reconverts every file regardless of existing output.
	Force bool
	// Lock serializes runs sharing OutputRoot across processes.
	Lock bool
	Now  func() time.Time
}

// Pipeline turns a folder of documents into markdown, metadata and embeddings.
type Pipeline struct {
	deps Deps
	opts Options
	log  *zap.Logger
}

// NewPipeline creates a pipeline.
func NewPipeline(deps Deps, opts Options) *Pipeline {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if len(opts.Extensions) == 0 {
		opts.Extensions = DefaultExtensions
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Pipeline{deps: deps, opts: opts, log: deps.Logger.Named("indexing")}
}

// Report summarizes one run.
type Report struct {
	// Written lists freshly written markdown files, sorted.
	Written []string
	Items   []batch.Result
}

// Count returns the number of items with action a.
func (r Report) Count(a batch.Action) int {
	n := 0
	for _, it := range r.Items {
		if it.Action() == a {
			n++
		}
	}
	return n
}

type task struct {
	source      record.Source
	destination string
}

type converted struct {
	task
	markdown  string
	converter string
}

type enrichment struct {
	description string
	tags        []string
	embeddings  []record.Embedding
	degraded    bool
}

// Build indexes every matching file under folder.
func (p *Pipeline) Build(ctx context.Context, folder string) (Report, error) {
	base, err := resolveFolder(folder)
	if err != nil {
		return Report{}, err
	}
	targetRoot := p.targetRoot(base)

	if p.opts.Lock {
		lock := NewFileLock(filepath.Dir(targetRoot))
		if err := lock.Acquire(ctx, p.log); err != nil {
			return Report{}, err
		}
		defer func() {
			if err := lock.Unlock(); err != nil {
				p.log.Warn("Failed to release index lock", zap.Error(err))
			}
		}()
	}

	files, err := ListFiles(base, p.opts.Extensions)
	if err != nil {
		return Report{}, err
	}
	p.log.Info("Indexing folder",
		zap.String("folder", base),
		zap.String("output", targetRoot),
		zap.Int("files", len(files)),
	)

	var report Report
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("indexing canceled: %w", err)
		}
		item, written := p.indexFile(ctx, base, targetRoot, path)
		if written != "" {
			report.Written = append(report.Written, written)
		}
		report.Items = append(report.Items, item)
		metrics.IndexedFilesTotal.WithLabelValues(string(item.Action())).Inc()
	}
	slices.Sort(report.Written)

	p.log.Info("Indexing finished",
		zap.Int("written", len(report.Written)),
		zap.Int("converted", report.Count(batch.ActionConverted)),
		zap.Int("backfilled", report.Count(batch.ActionBackfilled)),
		zap.Int("skipped", report.Count(batch.ActionSkipped)),
		zap.Int("failed", report.Count(batch.ActionFailed)),
	)
	return report, nil
}

// Forget removes the markdown and index records of sources deleted from folder.
// Paths that still exist are left alone.
func (p *Pipeline) Forget(ctx context.Context, folder string, sources []string) (int, error) {
	base, err := filepath.Abs(folder)
	if err != nil {
		return 0, fmt.Errorf("resolve %s: %w", folder, err)
	}
	targetRoot := p.targetRoot(base)

	removed := 0
	for _, src := range sources {
		if _, err := os.Stat(src); err == nil {
			continue
		}
		if err := p.deps.Embeddings.Delete(ctx, src); err != nil {
			return removed, fmt.Errorf("delete embeddings of %s: %w", src, err)
		}
		if err := p.deps.Metadata.Delete(ctx, src); err != nil {
			return removed, fmt.Errorf("delete metadata of %s: %w", src, err)
		}
		if dest, err := destination(targetRoot, base, src); err == nil {
			if err := os.Remove(dest); err != nil && !errors.Is(err, os.ErrNotExist) {
				p.log.Warn("Failed to remove markdown", zap.String("markdown", dest), zap.Error(err))
			}
		}
		metrics.IndexedFilesTotal.WithLabelValues("removed").Inc()
		removed++
	}
	if removed > 0 {
		p.log.Info("Removed deleted sources", zap.Int("count", removed))
	}
	return removed, nil
}

func (p *Pipeline) targetRoot(base string) string {
	root := p.opts.OutputRoot
	if root == "" {
		root = DefaultOutputRoot(base)
	}
	return filepath.Join(root, filepath.Base(base))
}

// indexFile handles one source and returns its result and the markdown path when freshly written.
func (p *Pipeline) indexFile(ctx context.Context, base, targetRoot, path string) (batch.Result, string) {
	info, err := os.Stat(path)
	if err != nil {
		return batch.NewFailed(path, fmt.Errorf("stat %s: %w", path, err)), ""
	}
	dest, err := destination(targetRoot, base, path)
	if err != nil {
		return batch.NewFailed(path, err), ""
	}
	t := task{
		source:      record.Source{Path: path, SizeBytes: info.Size(), ModifiedAt: info.ModTime()},
		destination: dest,
	}

	fresh, err := p.needsConversion(t, info)
	if err != nil {
		return batch.NewFailed(path, err), ""
	}
	if fresh {
		return p.runFresh(ctx, t)
	}
	return p.backfill(ctx, t), ""
}

func (p *Pipeline) needsConversion(t task, src os.FileInfo) (bool, error) {
	if p.opts.Force {
		return true, nil
	}
	dst, err := os.Stat(t.destination)
	if errors.Is(err, os.ErrNotExist) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat %s: %w", t.destination, err)
	}
	return src.ModTime().After(dst.ModTime()), nil
}

func (p *Pipeline) runFresh(ctx context.Context, t task) (batch.Result, string) {
	c, err := p.convert(ctx, t)
	if err != nil {
		p.log.Warn("Skipping file", zap.String("source", t.source.Path), zap.Error(err))
		return batch.NewFailed(t.source.Path, err), ""
	}

	e := p.enrich(ctx, t, c.markdown)

	if err := p.persist(ctx, c, e, true); err != nil {
		p.log.Error("Failed to persist file", zap.String("source", t.source.Path), zap.Error(err))
		return batch.NewFailed(t.source.Path, err), ""
	}

	res := batch.NewConverted(t.source.Path, c.converter)
	if e.degraded {
		res = res.WithDegraded()
	}
	return res, t.destination
}

func (p *Pipeline) convert(ctx context.Context, t task) (converted, error) {
	text, conv, err := p.deps.Stage.Convert(ctx, t.source.Path)
	if err != nil {
		return converted{}, fmt.Errorf("convert %s: %w", t.source.Path, err)
	}
	return converted{task: t, markdown: text, converter: conv}, nil
}

// backfill repairs missing metadata or embeddings for an existing markdown file.
func (p *Pipeline) backfill(ctx context.Context, t task) batch.Result {
	hasMeta, hasDoc, err := p.existingRecords(ctx, t.source.Path)
	if err != nil {
		return batch.NewFailed(t.source.Path, err)
	}
	if hasMeta && hasDoc {
		return batch.NewSkipped(t.source.Path)
	}

	data, err := os.ReadFile(t.destination)
	if err != nil {
		p.log.Warn("Cannot read existing markdown, skipping backfill",
			zap.String("markdown", t.destination), zap.Error(err))
		return batch.NewSkipped(t.source.Path)
	}
	// Blank markdown never gets a document row.
	if hasMeta && strings.TrimSpace(string(data)) == "" {
		p.log.Debug("Markdown is empty, nothing to embed", zap.String("markdown", t.destination))
		return batch.NewSkipped(t.source.Path)
	}

	c := converted{task: t, markdown: string(data), converter: record.UnknownConverter}
	e := p.enrich(ctx, t, c.markdown)
	if err := p.persist(ctx, c, e, false); err != nil {
		p.log.Error("Failed to backfill file", zap.String("source", t.source.Path), zap.Error(err))
		return batch.NewFailed(t.source.Path, err)
	}

	p.log.Info("Backfilled index records", zap.String("source", t.source.Path))
	res := batch.NewBackfilled(t.source.Path)
	if e.degraded {
		res = res.WithDegraded()
	}
	return res
}

// existingRecords reports whether source has metadata and a document row.
// Without an embedder the document row counts as present.
func (p *Pipeline) existingRecords(ctx context.Context, source string) (hasMeta, hasDoc bool, err error) {
	hasMeta, err = p.deps.Metadata.Exists(ctx, source)
	if err != nil {
		return false, false, fmt.Errorf("check metadata: %w", err)
	}
	if !hasMeta {
		return false, false, nil
	}
	if p.deps.Embedder == nil {
		return true, true, nil
	}
	hasDoc, err = p.deps.Embeddings.HasVariant(ctx, source, domain.VariantDocument)
	if err != nil {
		return false, false, fmt.Errorf("check embeddings: %w", err)
	}
	return true, hasDoc, nil
}

// enrich summarizes and embeds markdown. Failures degrade the result instead of failing the file.
func (p *Pipeline) enrich(ctx context.Context, t task, markdown string) enrichment {
	var e enrichment

	if p.deps.Summarizer != nil {
		s, err := p.deps.Summarizer.Summarize(ctx, markdown)
		if err != nil {
			p.log.Warn("Summary failed", zap.String("source", t.source.Path), zap.Error(err))
			e.degraded = true
		} else {
			e.description = s.Description
			e.tags = record.NormalizeTags(s.Tags)
		}
	}

	if p.deps.Embedder != nil {
		rows, err := p.embed(ctx, t, markdown, e.tags)
		if err != nil {
			p.log.Warn("Embedding failed, records will be backfilled on the next run",
				zap.String("source", t.source.Path), zap.Error(err))
			e.degraded = true
		} else {
			e.embeddings = rows
		}
	}
	return e
}

// embed returns the document row followed by one row per tag. Any failure discards every row.
func (p *Pipeline) embed(ctx context.Context, t task, markdown string, tags []string) ([]record.Embedding, error) {
	if strings.TrimSpace(markdown) == "" {
		return nil, nil
	}
	doc, err := p.deps.Embedder.Embed(ctx, markdown)
	if err != nil {
		return nil, fmt.Errorf("embed document: %w", err)
	}
	rows := []record.Embedding{record.DocumentEmbedding(t.source.Path, t.destination, doc.Embedding)}

	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		res, err := p.deps.Embedder.Embed(ctx, tag)
		if err != nil {
			return nil, fmt.Errorf("embed tag %q: %w", tag, err)
		}
		rows = append(rows, record.TagEmbedding(t.source.Path, t.destination, tag, res.Embedding))
	}
	return rows, nil
}

// persist writes markdown when writeMarkdown is set, then metadata, then embeddings.
func (p *Pipeline) persist(ctx context.Context, c converted, e enrichment, writeMarkdown bool) error {
	if writeMarkdown {
		if err := os.MkdirAll(filepath.Dir(c.destination), 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
		if err := os.WriteFile(c.destination, []byte(c.markdown), 0o644); err != nil { //nolint:gosec // markdown is user-readable output
			return fmt.Errorf("write markdown: %w", err)
		}
	}

	meta := record.NewMetadata(c.source, c.destination, c.converter, p.opts.Now()).
		WithSummary(e.description, e.tags)
	if err := p.deps.Metadata.Upsert(ctx, meta); err != nil {
		return fmt.Errorf("upsert metadata: %w", err)
	}

	// Without an embedder existing rows are left alone. A failed embed clears them so the next run backfills.
	if p.deps.Embedder == nil {
		return nil
	}
	if err := p.deps.Embeddings.Replace(ctx, c.source.Path, e.embeddings); err != nil {
		return fmt.Errorf("replace embeddings: %w", err)
	}
	return nil
}
