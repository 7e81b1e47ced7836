package conversion

import (
	"context"

	"github.com/kailas-cloud/semdesk/internal/domain/file"
)

// Converter turns a source file into markdown text.
type Converter interface {
	Convert(ctx context.Context, path string) (string, error)
}

// Router plans attempt order, scores output and records outcomes.
type Router interface {
	PlanOrder(s file.Signals) []string
	ScoreMarkdown(markdown string, s file.Signals) float64
	IsQualityAcceptable(score float64, s file.Signals) bool
	RecordOutcome(s file.Signals, converter string, success bool, quality float64, errMsg string)
	HistoricalSuccessFor(ext string) map[string]float64
}
