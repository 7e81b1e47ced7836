package cmd

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/semdesk/internal/config"
	"github.com/kailas-cloud/semdesk/internal/db"
	"github.com/kailas-cloud/semdesk/internal/db/memory"
	dbRedis "github.com/kailas-cloud/semdesk/internal/db/redis"
	"github.com/kailas-cloud/semdesk/internal/domain"
	logpkg "github.com/kailas-cloud/semdesk/internal/logger"
	"github.com/kailas-cloud/semdesk/internal/metrics"
	"github.com/kailas-cloud/semdesk/internal/repository/embcache"
	embeddingrepo "github.com/kailas-cloud/semdesk/internal/repository/embedding"
	"github.com/kailas-cloud/semdesk/internal/repository/history"
	metadatarepo "github.com/kailas-cloud/semdesk/internal/repository/metadata"
	"github.com/kailas-cloud/semdesk/internal/transport/docling"
	"github.com/kailas-cloud/semdesk/internal/transport/markitdown"
	openaiTransport "github.com/kailas-cloud/semdesk/internal/transport/openai"
	"github.com/kailas-cloud/semdesk/internal/usecase/conversion"
	embeddinguc "github.com/kailas-cloud/semdesk/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/semdesk/internal/usecase/health"
	"github.com/kailas-cloud/semdesk/internal/usecase/indexing"
	"github.com/kailas-cloud/semdesk/internal/usecase/routing"
	searchuc "github.com/kailas-cloud/semdesk/internal/usecase/search"
	"github.com/kailas-cloud/semdesk/internal/usecase/summary"
	"github.com/kailas-cloud/semdesk/internal/watcher"
)

const probeTimeout = 3 * time.Second

// errEmbeddingDisabled is returned by query commands when no embedder is configured.
var errEmbeddingDisabled = errors.New("embedding is disabled in the configuration; search needs an embedder")

// app is the composition root shared by every command.
type app struct {
	cfg config.Config
	log *zap.Logger

	store      db.Store
	history    *history.Repo
	router     *routing.Router
	metadata   *metadatarepo.Repo
	embeddings *embeddingrepo.Repo

	// Interface fields stay nil (not typed nil pointers) when a feature is off.
	docEmbedder   domain.Embedder
	queryEmbedder domain.Embedder
	generator     domain.Generator
	summarizer    indexing.Summarizer

	stage      *conversion.Stage
	components map[string]healthuc.Checker
	outputRoot string

	// indexMu serializes pipeline runs inside one process; the index lock covers other processes.
	indexMu sync.Mutex
}

// newApp loads configuration and wires every component. logEnv selects the
// logger flavor: "cli" for one-shot commands, the config env for long-running ones.
func newApp(ctx context.Context, opts *globalOptions, logEnv string) (*app, error) {
	cfg, err := opts.loadConfig()
	if err != nil {
		return nil, err
	}

	level := opts.logLevel
	if level == "" && logEnv != "cli" {
		level = cfg.Logging.Level
	}
	logger, err := logpkg.NewLogger(logEnv, level)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	metrics.Register()

	a := &app{
		cfg:        cfg,
		log:        logger,
		components: make(map[string]healthuc.Checker),
		outputRoot: cfg.Indexing.OutputRoot,
	}
	if err := a.openStore(ctx); err != nil {
		_ = logger.Sync()
		return nil, err
	}

	a.history = history.New(a.store)
	a.metadata = metadatarepo.New(a.store)
	algo, err := db.ParseVectorAlgorithm(cfg.Indexing.VectorAlgorithm)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("vector algorithm: %w", err)
	}
	a.embeddings = embeddingrepo.New(a.store, embeddingrepo.Options{
		Algorithm:      algo,
		M:              cfg.Indexing.HNSWM,
		EFConstruction: cfg.Indexing.HNSWEFConstruct,
	})

	a.wireEmbedders()
	a.wireGenerator()
	a.wireConversion(ctx)
	return a, nil
}

// Close releases the store and flushes the logger.
func (a *app) Close() {
	if a.store != nil {
		a.store.Close()
	}
	_ = a.log.Sync()
}

func (a *app) openStore(ctx context.Context) error {
	cfg := a.cfg.Database
	switch cfg.Driver {
	case "memory":
		a.store = memory.NewStore()
	case "redis":
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Addrs,
			Username: cfg.Username,
			Password: cfg.Password,
			DB:       cfg.DB,
		})
		if err != nil {
			return fmt.Errorf("create database store: %w", err)
		}
		a.store = s
	default:
		return fmt.Errorf("unknown database driver %q", cfg.Driver)
	}

	if err := a.store.WaitForReady(ctx, time.Duration(cfg.ReadinessTimeout)*time.Second); err != nil {
		a.store.Close()
		return fmt.Errorf("database not ready: %w", err)
	}
	a.log.Debug("Connected to database", zap.String("driver", cfg.Driver), zap.Strings("addrs", cfg.Addrs))
	return nil
}

func (a *app) wireEmbedders() {
	cfg := a.cfg.Embedding
	if cfg.Disabled {
		a.log.Warn("Embedding disabled; documents are indexed without vectors")
		return
	}
	a.docEmbedder = a.buildEmbedder(cfg.DocumentInstruction)
	a.queryEmbedder = a.buildEmbedder(cfg.QueryInstruction)
	if hc, ok := a.docEmbedder.(healthuc.Checker); ok {
		a.components["embedding"] = hc
	}
	a.log.Debug("Embedders created",
		zap.String("provider", cfg.Provider),
		zap.String("model", cfg.Model),
		zap.Int("dimensions", cfg.Dimensions),
	)
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented -> Instruction.
func (a *app) buildEmbedder(instruction string) domain.Embedder {
	cfg := a.cfg.Embedding
	base := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Model:      cfg.Model,
		Dimensions: cfg.Dimensions,
		MaxChars:   cfg.MaxChars,
		Timeout:    time.Duration(cfg.TimeoutSec) * time.Second,
		Provider:   cfg.Provider,
		Logger:     a.log,
	})

	var embedder domain.Embedder = base
	if !cfg.NoCache {
		embedder = embcache.New(base, a.store, embcache.Options{
			Model:   cfg.Model,
			Lookups: metrics.EmbeddingCacheTotal,
			Logger:  a.log,
		})
	}
	embedder = embeddinguc.NewInstrumentedEmbedder(embedder, cfg.Provider, cfg.Model, a.log)

	// Instruction prefix is outermost so the cache key includes it.
	if instruction != "" {
		return domain.NewInstructionEmbedder(embedder, instruction)
	}
	return embedder
}

func (a *app) wireGenerator() {
	cfg := a.cfg.Generator
	if cfg.Disabled {
		a.log.Warn("Generator disabled; documents get no summary and questions cannot be answered")
		return
	}
	gen := embeddinguc.NewInstrumentedGenerator(openaiTransport.NewGenerator(&openaiTransport.GeneratorConfig{
		APIKey:      cfg.APIKey,
		BaseURL:     cfg.BaseURL,
		Temperature: cfg.Temperature,
		Timeout:     time.Duration(cfg.TimeoutSec) * time.Second,
		Logger:      a.log,
	}), a.log)
	a.generator = gen
	a.summarizer = summary.New(gen, summary.Options{Model: cfg.Model, MaxChars: cfg.SummaryMaxChars})
	a.components["generator"] = gen
}

func (a *app) wireConversion(ctx context.Context) {
	seed, err := a.history.Load(ctx)
	if err != nil {
		a.log.Warn("Failed to load routing history; starting fresh", zap.Error(err))
		seed = nil
	}
	a.router = routing.New(routing.Config{
		LargeFileThresholdMB: a.cfg.Routing.LargeFileThresholdMB,
		ExpectedCharRatio:    a.cfg.Routing.ExpectedCharRatio,
		HistoryWeight:        a.cfg.Routing.HistoryWeight,
	}, seed)

	converters := make(map[string]conversion.Converter, 2)

	mcfg := a.cfg.Converters.Markitdown
	if !mcfg.Disabled {
		md := markitdown.New(markitdown.Config{
			Binary:  mcfg.Binary,
			Timeout: time.Duration(mcfg.TimeoutSec) * time.Second,
		})
		if md.Available() {
			converters[routing.Markitdown] = conversion.Adapt(md.Convert, markitdown.ExtractText)
			a.components[routing.Markitdown] = md
		} else {
			a.log.Warn("markitdown not found; converter disabled", zap.String("binary", mcfg.Binary))
		}
	}

	dcfg := a.cfg.Converters.Docling
	if !dcfg.Disabled {
		dc := docling.New(docling.Config{
			BaseURL: dcfg.URL,
			Timeout: time.Duration(dcfg.TimeoutSec) * time.Second,
		})
		probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
		err := dc.HealthCheck(probeCtx)
		cancel()
		if err == nil {
			converters[routing.Docling] = conversion.Adapt(dc.Convert, docling.ExtractText)
			a.components[routing.Docling] = dc
		} else {
			a.log.Warn("docling-serve unreachable; converter disabled", zap.String("url", dcfg.URL), zap.Error(err))
		}
	}

	if len(converters) == 0 {
		a.log.Warn("No converter available; every file will fail to convert")
	}
	a.stage = conversion.NewStage(a.router, converters, a.log)
}

// pipeline builds an indexing pipeline over the wired components.
func (a *app) pipeline(force bool) *indexing.Pipeline {
	deps := indexing.Deps{
		Stage:      a.stage,
		Summarizer: a.summarizer,
		Embedder:   a.docEmbedder,
		Metadata:   a.metadata,
		Embeddings: a.embeddings,
		Logger:     a.log,
	}
	return indexing.NewPipeline(deps, indexing.Options{
		OutputRoot: a.outputRoot,
		Extensions: a.cfg.Indexing.Extensions,
		Force:      force,
		Lock:       !a.cfg.Indexing.NoLock,
	})
}

// Index runs one pipeline pass over folder and persists the router history
// when any conversion was attempted.
func (a *app) Index(ctx context.Context, folder string, force bool) (indexing.Report, error) {
	a.indexMu.Lock()
	defer a.indexMu.Unlock()

	attempts := len(a.router.Telemetry())
	report, err := a.pipeline(force).Build(ctx, folder)
	if len(a.router.Telemetry()) > attempts {
		a.saveHistory(ctx)
	}
	return report, err
}

// Forget drops the records of deleted sources under folder.
func (a *app) Forget(ctx context.Context, folder string, sources []string) (int, error) {
	a.indexMu.Lock()
	defer a.indexMu.Unlock()

	return a.pipeline(false).Forget(ctx, folder, sources)
}

func (a *app) saveHistory(ctx context.Context) {
	// Persist even when the run was canceled.
	ctx = context.WithoutCancel(ctx)
	if err := a.history.Save(ctx, a.router.History()); err != nil {
		a.log.Warn("Failed to save routing history", zap.Error(err))
		return
	}
	a.log.Debug("Saved routing history", zap.Int("attempts", len(a.router.Telemetry())))
}

// engine builds the search engine. It fails when no embedder is configured.
func (a *app) engine() (*searchuc.Engine, error) {
	if a.queryEmbedder == nil {
		return nil, errEmbeddingDisabled
	}
	var answerer searchuc.Answerer
	if a.generator != nil {
		s := a.cfg.Search
		answerer = searchuc.NewContextAnswerer(a.generator, searchuc.AnswererOptions{
			Model:          a.cfg.Generator.Model,
			MaxDocuments:   s.AnswerMaxDocuments,
			MaxCharsPerDoc: s.AnswerMaxCharsPerDoc,
		})
	}
	return searchuc.New(a.metadata, a.embeddings, a.queryEmbedder, answerer, searchuc.Options{
		TagOversample: a.cfg.Search.TagOversample,
		SnippetChars:  a.cfg.Search.SnippetChars,
	}), nil
}

func (a *app) health() *healthuc.Service {
	return healthuc.New(a.store, a.components)
}

// onChange reacts to a debounced batch under folder: deleted sources are
// forgotten, anything else triggers an incremental pipeline run.
func (a *app) onChange(folder string) watcher.Handler {
	return func(ctx context.Context, events []watcher.Event) error {
		var deleted []string
		for _, e := range events {
			if e.Operation == watcher.OpDelete {
				deleted = append(deleted, e.Path)
			}
		}
		if len(deleted) > 0 {
			n, err := a.Forget(ctx, folder, deleted)
			if err != nil {
				return fmt.Errorf("forget deleted sources: %w", err)
			}
			a.log.Info("Removed deleted sources", zap.Int("count", n))
		}
		if len(deleted) == len(events) {
			return nil
		}
		report, err := a.Index(ctx, folder, false)
		if err != nil {
			return fmt.Errorf("reindex %s: %w", folder, err)
		}
		a.log.Info("Reindexed after change",
			zap.Int("events", len(events)),
			zap.Int("written", len(report.Written)),
		)
		return nil
	}
}

func (a *app) newWatcher() *watcher.Watcher {
	return watcher.New(watcher.Options{
		Window:     time.Duration(a.cfg.Indexing.WatchDebounceMs) * time.Millisecond,
		Extensions: indexing.NormalizeExtensions(a.watchExtensions()),
		IgnoreDirs: a.cfg.Indexing.IgnoreDirs,
		Logger:     a.log,
	})
}

func (a *app) watchExtensions() []string {
	if len(a.cfg.Indexing.Extensions) > 0 {
		return a.cfg.Indexing.Extensions
	}
	return indexing.DefaultExtensions
}
