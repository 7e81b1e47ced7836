package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var registerOnce sync.Once

// Register registers every semdesk collector with the default registry. Safe to call repeatedly.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			EmbeddingRequestsTotal,
			EmbeddingRequestDuration,
			EmbeddingTokensTotal,
			EmbeddingErrorsTotal,
			EmbeddingCacheTotal,
			ConversionAttemptsTotal,
			ConversionQuality,
			GeneratorRequestsTotal,
			GeneratorRequestDuration,
			SearchRequestsTotal,
			SearchRequestDuration,
			IndexedFilesTotal,
			httpRequestDuration,
			httpRequestsTotal,
		)
	})
}
