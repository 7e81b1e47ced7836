package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/semdesk/internal/domain"
	"github.com/kailas-cloud/semdesk/internal/domain/batch"
	"github.com/kailas-cloud/semdesk/internal/domain/search/hit"
	logpkg "github.com/kailas-cloud/semdesk/internal/logger"
	"github.com/kailas-cloud/semdesk/internal/metrics"
	healthuc "github.com/kailas-cloud/semdesk/internal/usecase/health"
	"github.com/kailas-cloud/semdesk/internal/usecase/indexing"
)

const maxBodyBytes = 1 << 20

type errorCode string

const (
	codeBadRequest             errorCode = "bad_request"
	codeUnauthorized           errorCode = "unauthorized"
	codeForbidden              errorCode = "forbidden"
	codeValidationFailed       errorCode = "validation_failed"
	codeUnknownVariant         errorCode = "unknown_variant"
	codeNotFound               errorCode = "not_found"
	codeConversionFailed       errorCode = "conversion_failed"
	codeEmbeddingProviderError errorCode = "embedding_provider_error"
	codeGeneratorError         errorCode = "generator_error"
	codeInternalError          errorCode = "internal_error"
)

type errorResponse struct {
	Code    errorCode `json:"code"`
	Message string    `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server serves search, question answering and indexing over HTTP.
type Server struct {
	search        Searcher
	indexer       Indexer
	health        HealthReporter
	logger        *zap.Logger
	allowedRoots  []string
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(search Searcher, indexer Indexer, health HealthReporter, logger *zap.Logger) *Server {
	s := &Server{
		search:  search,
		indexer: indexer,
		health:  health,
		logger:  logger.Named("http"),
	}
	s.errorHandlers = []errorHandler{
		validationHandler(domain.ErrInvalidInput, codeValidationFailed),
		validationHandler(domain.ErrUnknownVariant, codeUnknownVariant),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, codeNotFound),
		sentinelHandler(domain.ErrConversionFailed, http.StatusUnprocessableEntity, codeConversionFailed),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, codeEmbeddingProviderError),
		sentinelHandler(domain.ErrGeneratorError, http.StatusBadGateway, codeGeneratorError),
	}
	return s
}

// WithAllowedRoots restricts POST /index to folders under one of roots.
// Without roots any readable folder may be indexed.
func (s *Server) WithAllowedRoots(roots ...string) *Server {
	for _, r := range roots {
		if r == "" {
			continue
		}
		if abs, err := filepath.Abs(r); err == nil {
			s.allowedRoots = append(s.allowedRoots, filepath.Clean(abs))
		}
	}
	return s
}

// Handler builds the chi router with the full middleware chain.
func (s *Server) Handler(apiKeys []string) http.Handler {
	r := chi.NewRouter()
	r.Use(JSONRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(WideEventMiddleware(s.logger))
	r.Use(BearerAuthMiddleware(apiKeys))
	r.Use(metrics.Middleware())

	r.Get("/search", s.handleSearch)
	r.Get("/tags", s.handleTags)
	r.Post("/ask", s.handleAsk)
	r.Post("/index", s.handleIndex)
	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, codeNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, codeBadRequest, "method not allowed")
	})
	return r
}

type hitResponse struct {
	SourcePath   string   `json:"source_path"`
	MarkdownPath string   `json:"markdown_path,omitempty"`
	Description  string   `json:"description"`
	Tags         []string `json:"tags"`
	Score        float64  `json:"score"`
	Variant      string   `json:"variant"`
	MatchedTag   string   `json:"matched_tag,omitempty"`
}

type searchResponse struct {
	Query   string        `json:"query"`
	Variant string        `json:"variant"`
	Items   []hitResponse `json:"items"`
	Total   int           `json:"total"`
}

// handleSearch handles GET /search?q=&top_k=&variant=.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	v, err := domain.ParseVariant(r.URL.Query().Get("variant"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	s.runSearch(w, r, v)
}

// handleTags handles GET /tags?q=&top_k=.
func (s *Server) handleTags(w http.ResponseWriter, r *http.Request) {
	s.runSearch(w, r, domain.VariantTags)
}

func (s *Server) runSearch(w http.ResponseWriter, r *http.Request, v domain.Variant) {
	q := r.URL.Query()
	topK, ok := parseTopK(w, q.Get("top_k"))
	if !ok {
		return
	}
	query := q.Get("q")

	hits, err := s.search.Search(r.Context(), query, v, topK)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, searchResponse{
		Query:   query,
		Variant: string(v),
		Items:   hitsToResponse(hits),
		Total:   len(hits),
	})
}

type askRequest struct {
	Question string `json:"question"`
	TopK     int    `json:"top_k"`
}

type askResponse struct {
	Answer  string        `json:"answer"`
	Sources []hitResponse `json:"sources"`
}

// handleAsk handles POST /ask.
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if !decodeBody(w, r, &req) {
		return
	}
	ans, err := s.search.AnswerQuestion(r.Context(), req.Question, req.TopK)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, askResponse{
		Answer:  ans.Text,
		Sources: hitsToResponse(ans.Hits),
	})
}

type indexRequest struct {
	Folder string `json:"folder"`
	Force  bool   `json:"force"`
}

type indexItemResponse struct {
	Source    string `json:"source"`
	Action    string `json:"action"`
	Converter string `json:"converter,omitempty"`
	Degraded  bool   `json:"degraded,omitempty"`
	Error     string `json:"error,omitempty"`
}

type indexResponse struct {
	Folder     string              `json:"folder"`
	Written    []string            `json:"written"`
	Converted  int                 `json:"converted"`
	Backfilled int                 `json:"backfilled"`
	Skipped    int                 `json:"skipped"`
	Failed     int                 `json:"failed"`
	Items      []indexItemResponse `json:"items"`
}

// handleIndex handles POST /index. The run is synchronous.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	var req indexRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Folder) == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "folder is required")
		return
	}
	folder, err := filepath.Abs(req.Folder)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "folder is not a valid path")
		return
	}
	if !s.folderAllowed(folder) {
		writeError(w, http.StatusForbidden, codeForbidden, "folder is outside the allowed roots")
		return
	}

	report, err := s.indexer.Index(r.Context(), folder, req.Force)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reportToResponse(folder, report))
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// handleHealth handles GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, healthResponse{Status: string(report.Status), Checks: checks})
}

func (s *Server) folderAllowed(folder string) bool {
	if len(s.allowedRoots) == 0 {
		return true
	}
	for _, root := range s.allowedRoots {
		rel, err := filepath.Rel(root, folder)
		if err != nil {
			continue
		}
		if rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func parseTopK(w http.ResponseWriter, raw string) (int, bool) {
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "top_k must be an integer")
		return 0, false
	}
	return n, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body")
		return false
	}
	return true
}

func hitsToResponse(hits []hit.Hit) []hitResponse {
	out := make([]hitResponse, 0, len(hits))
	for i := range hits {
		h := &hits[i]
		tags := h.Tags()
		if tags == nil {
			tags = []string{}
		}
		out = append(out, hitResponse{
			SourcePath:   h.SourcePath(),
			MarkdownPath: h.MarkdownPath(),
			Description:  h.Description(),
			Tags:         tags,
			Score:        h.Score(),
			Variant:      string(h.Variant()),
			MatchedTag:   h.MatchedTag(),
		})
	}
	return out
}

func reportToResponse(folder string, report indexing.Report) indexResponse {
	written := report.Written
	if written == nil {
		written = []string{}
	}
	resp := indexResponse{
		Folder:     folder,
		Written:    written,
		Converted:  report.Count(batch.ActionConverted),
		Backfilled: report.Count(batch.ActionBackfilled),
		Skipped:    report.Count(batch.ActionSkipped),
		Failed:     report.Count(batch.ActionFailed),
		Items:      make([]indexItemResponse, 0, len(report.Items)),
	}
	for _, it := range report.Items {
		item := indexItemResponse{
			Source:    it.Source(),
			Action:    string(it.Action()),
			Converter: it.Converter(),
			Degraded:  it.Degraded(),
		}
		if it.Err() != nil {
			item.Error = safeDomainMessage(it.Err())
		}
		resp.Items = append(resp.Items, item)
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code errorCode, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidInput,
		domain.ErrUnknownVariant,
		domain.ErrNotFound,
		domain.ErrConversionFailed,
		domain.ErrEmbeddingProviderError,
		domain.ErrGeneratorError,
		domain.ErrInvalidSummary,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code errorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// validationHandler answers 400 with the full error text. Validation messages
// are built from caller input before any I/O, so they carry nothing internal.
func validationHandler(sentinel error, code errorCode) errorHandler {
	return func(w http.ResponseWriter, err error, _ string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, http.StatusBadRequest, code, err.Error())
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logpkg.FromContext(r.Context())
	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.String("path", r.URL.Path), zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
