// Package conversion runs converters in routed order with quality-gated fallback.
package conversion

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/semdesk/internal/domain"
	"github.com/kailas-cloud/semdesk/internal/domain/file"
	"github.com/kailas-cloud/semdesk/internal/usecase/routing"
)

const (
	reasonUnavailable = "converter unavailable"
	reasonNoText      = "returned no text"
)

// Stage converts one file by trying converters until one is good enough.
type Stage struct {
	router     Router
	converters map[string]Converter
	logger     *zap.Logger
}

// NewStage creates a conversion stage. A name mapped to nil, or absent, is an unavailable converter.
func NewStage(router Router, converters map[string]Converter, logger *zap.Logger) *Stage {
	return &Stage{router: router, converters: converters, logger: logger.Named("conversion")}
}

type candidate struct {
	text      string
	converter string
	quality   float64
}

// Convert returns the markdown text and the name of the converter that produced it.
// The first acceptable result wins; otherwise the best-scoring non-empty result.
// With no usable text at all it fails with domain.ErrConversionFailed listing every reason.
func (s *Stage) Convert(ctx context.Context, path string) (string, string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	signals, err := file.Gather(path, s.router.HistoricalSuccessFor(ext))
	if err != nil {
		return "", "", fmt.Errorf("gather signals: %w", err)
	}

	var (
		reasons []string
		best    *candidate
	)
	for _, name := range attemptOrder(s.router.PlanOrder(signals)) {
		if err := ctx.Err(); err != nil {
			return "", "", fmt.Errorf("convert %s: %w", path, err)
		}

		conv := s.converters[name]
		if conv == nil {
			s.router.RecordOutcome(signals, name, false, 0, reasonUnavailable)
			reasons = append(reasons, name+": "+reasonUnavailable)
			continue
		}

		text, err := conv.Convert(ctx, path)
		if err != nil {
			s.logger.Debug("Converter failed", zap.String("converter", name), zap.String("path", path), zap.Error(err))
			s.router.RecordOutcome(signals, name, false, 0, err.Error())
			reasons = append(reasons, name+": "+err.Error())
			continue
		}
		if strings.TrimSpace(text) == "" {
			s.router.RecordOutcome(signals, name, false, 0, reasonNoText)
			reasons = append(reasons, name+": "+reasonNoText)
			continue
		}

		quality := s.router.ScoreMarkdown(text, signals)
		s.router.RecordOutcome(signals, name, true, quality, "")
		if s.router.IsQualityAcceptable(quality, signals) {
			return text, name, nil
		}

		s.logger.Debug("Converter output below quality threshold",
			zap.String("converter", name), zap.String("path", path), zap.Float64("quality", quality))
		reasons = append(reasons, fmt.Sprintf("%s: below quality threshold (%.2f)", name, quality))
		if best == nil || quality > best.quality {
			best = &candidate{text: text, converter: name, quality: quality}
		}
	}

	if best != nil {
		return best.text, best.converter, nil
	}
	return "", "", fmt.Errorf("unable to convert %s to markdown (%s): %w",
		path, strings.Join(reasons, "; "), domain.ErrConversionFailed)
}

// attemptOrder keeps planned names that are known converters, once each,
// then appends any known converter the plan left out.
func attemptOrder(plan []string) []string {
	order := make([]string, 0, len(routing.DefaultOrder))
	for _, name := range plan {
		if slices.Contains(routing.DefaultOrder, name) && !slices.Contains(order, name) {
			order = append(order, name)
		}
	}
	for _, name := range routing.DefaultOrder {
		if !slices.Contains(order, name) {
			order = append(order, name)
		}
	}
	return order
}
