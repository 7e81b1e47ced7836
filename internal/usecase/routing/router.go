// Package routing picks the converter to try first for a file, scores converter
// output and learns per-extension success rates from recorded outcomes.
package routing

import (
	"maps"
	"math"
	"regexp"
	"slices"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/kailas-cloud/semdesk/internal/domain/file"
	"github.com/kailas-cloud/semdesk/internal/metrics"
)

// Converter names known to the router.
const (
	Markitdown = "markitdown"
	Docling    = "docling"
)

// DefaultOrder is the attempt order when no signal prefers either converter.
var DefaultOrder = []string{Markitdown, Docling}

var (
	doclingFirst = map[string]struct{}{
		".pdf": {}, ".ppt": {}, ".pptx": {}, ".xls": {}, ".xlsx": {}, ".doc": {},
		".docx": {}, ".odt": {}, ".rtf": {}, ".jpeg": {}, ".jpg": {}, ".png": {},
	}
	markitdownFirst = map[string]struct{}{
		".txt": {}, ".md": {}, ".markdown": {}, ".json": {},
		".yaml": {}, ".yml": {}, ".csv": {}, ".tsv": {},
	}

	headingRe = regexp.MustCompile(`(?m)^#{1,6}\s`)
	tableRe   = regexp.MustCompile(`\|.+\|`)
)

const (
	smallFileMB      = 1.5
	priorSuccess     = 0.5
	smoothingKeep    = 0.7
	smoothingObserve = 0.3
)

// Config holds router tuning. Zero fields take defaults.
type Config struct {
	LargeFileThresholdMB float64
	ExpectedCharRatio    float64
	// HistoryWeight scales past success into the plan. Nil means 0.5; zero ignores history.
	HistoryWeight *float64
}

func (c Config) withDefaults() Config {
	if c.LargeFileThresholdMB <= 0 {
		c.LargeFileThresholdMB = 8.0
	}
	if c.ExpectedCharRatio <= 0 {
		c.ExpectedCharRatio = 0.15
	}
	if c.HistoryWeight == nil {
		w := 0.5
		c.HistoryWeight = &w
	}
	return c
}

// Outcome is one recorded converter attempt.
type Outcome struct {
	Path      string
	Extension string
	Converter string
	Success   bool
	Quality   float64
	Error     string
}

// Router scores converters per file and keeps smoothed success history.
// Safe for concurrent use.
type Router struct {
	cfg Config

	mu        sync.Mutex
	history   map[string]map[string]float64
	telemetry []Outcome
}

// New creates a router seeded with extension → converter → success history.
func New(cfg Config, seed map[string]map[string]float64) *Router {
	return &Router{cfg: cfg.withDefaults(), history: cloneHistory(seed)}
}

// PlanOrder returns the converters to try, best first.
func (r *Router) PlanOrder(s file.Signals) []string {
	var mark, doc float64

	if _, ok := doclingFirst[s.Extension()]; ok {
		doc += 2.0
	}
	if _, ok := markitdownFirst[s.Extension()]; ok {
		mark += 1.5
	}

	switch size := s.SizeMegabytes(); {
	case size >= r.cfg.LargeFileThresholdMB:
		doc += 1.5
	case size <= smallFileMB:
		mark += 0.5
	}

	switch mime := s.MIMEType(); {
	case strings.HasPrefix(mime, "application/pdf"):
		doc += 2.5
	case strings.HasPrefix(mime, "text/"):
		mark += 1.0
	}

	if w := *r.cfg.HistoryWeight; w > 0 && s.HasHistory() {
		h, _ := s.HistoricalSuccess(Docling)
		doc += h * w
		h, _ = s.HistoricalSuccess(Markitdown)
		mark += h * w
	}

	switch {
	case doc > mark:
		return []string{Docling, Markitdown}
	case mark > doc:
		return []string{Markitdown, Docling}
	default:
		return slices.Clone(DefaultOrder)
	}
}

// ScoreMarkdown rates converter output in [0, 1] from length against the
// source size, letter density, token diversity and markdown structure.
func (r *Router) ScoreMarkdown(markdown string, s file.Signals) float64 {
	text := strings.TrimSpace(markdown)
	if text == "" {
		return 0
	}

	chars := utf8.RuneCountInString(text)
	letters := 0
	for _, c := range text {
		if unicode.IsLetter(c) {
			letters++
		}
	}
	alpha := float64(letters) / float64(chars)

	expected := max(20, int(float64(s.SizeBytes())*r.cfg.ExpectedCharRatio))
	length := math.Min(1, float64(chars)/float64(expected))

	var bonus float64
	if headingRe.MatchString(text) {
		bonus += 0.1
	}
	if tableRe.MatchString(text) && strings.Contains(text, "---") {
		bonus += 0.1
	}

	tokens := strings.Fields(text)
	unique := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		unique[t] = struct{}{}
	}
	diversity := math.Min(1, float64(len(unique))/float64(max(1, len(tokens))))

	q := 0.55*length + 0.25*alpha + 0.10*diversity + bonus
	return math.Max(0, math.Min(1, q))
}

// IsQualityAcceptable applies a size-dependent threshold: larger sources must score higher.
func (r *Router) IsQualityAcceptable(score float64, s file.Signals) bool {
	threshold := 0.3
	size := s.SizeBytes()
	if size >= 8_000 {
		threshold = 0.45
	}
	if size >= int64(r.cfg.LargeFileThresholdMB*1_000_000) {
		threshold = 0.6
	}
	return score >= threshold
}

// RecordOutcome logs an attempt and folds it into the extension's smoothed history.
// An attempt counts as observed success only when success is set and errMsg is empty.
func (r *Router) RecordOutcome(s file.Signals, converter string, success bool, quality float64, errMsg string) {
	observed := 0.0
	if success && errMsg == "" {
		observed = 1.0
	}

	r.mu.Lock()
	r.telemetry = append(r.telemetry, Outcome{
		Path:      s.Path(),
		Extension: s.Extension(),
		Converter: converter,
		Success:   success,
		Quality:   quality,
		Error:     errMsg,
	})
	stats, ok := r.history[s.Extension()]
	if !ok {
		stats = make(map[string]float64)
		r.history[s.Extension()] = stats
	}
	prev, ok := stats[converter]
	if !ok {
		prev = priorSuccess
	}
	stats[converter] = round3(smoothingKeep*prev + smoothingObserve*observed)
	r.mu.Unlock()

	result := "failure"
	if success {
		result = "success"
		metrics.ConversionQuality.WithLabelValues(converter).Observe(quality)
	}
	metrics.ConversionAttemptsTotal.WithLabelValues(converter, s.Extension(), result).Inc()
}

// HistoricalSuccessFor returns a copy of the converter scores for ext.
func (r *Router) HistoricalSuccessFor(ext string) map[string]float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return maps.Clone(r.history[ext])
}

// History returns a deep copy of all smoothed scores, for persistence.
func (r *Router) History() map[string]map[string]float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneHistory(r.history)
}

// Telemetry returns a copy of the recorded outcomes in order.
func (r *Router) Telemetry() []Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.telemetry)
}

func cloneHistory(h map[string]map[string]float64) map[string]map[string]float64 {
	out := make(map[string]map[string]float64, len(h))
	for ext, stats := range h {
		out[ext] = maps.Clone(stats)
	}
	return out
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
