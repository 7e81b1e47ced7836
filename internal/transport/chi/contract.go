package chi

import (
	"context"

	"github.com/kailas-cloud/semdesk/internal/domain"
	"github.com/kailas-cloud/semdesk/internal/domain/search/hit"
	healthuc "github.com/kailas-cloud/semdesk/internal/usecase/health"
	"github.com/kailas-cloud/semdesk/internal/usecase/indexing"
	searchuc "github.com/kailas-cloud/semdesk/internal/usecase/search"
)

// Searcher ranks indexed documents and answers questions over them.
type Searcher interface {
	Search(ctx context.Context, query string, v domain.Variant, topK int) ([]hit.Hit, error)
	AnswerQuestion(ctx context.Context, question string, topK int) (searchuc.Answer, error)
}

// Indexer runs the indexing pipeline over one folder.
type Indexer interface {
	Index(ctx context.Context, folder string, force bool) (indexing.Report, error)
}

// HealthReporter aggregates component health.
type HealthReporter interface {
	Check(ctx context.Context) healthuc.Report
}
