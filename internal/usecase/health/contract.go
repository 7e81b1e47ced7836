package health

import "context"

// DBPinger checks database availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// Checker checks availability of an optional collaborator (embedder, generator, converter).
type Checker interface {
	HealthCheck(ctx context.Context) error
}
