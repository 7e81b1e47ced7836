package health

import (
	"context"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates an optional component is failing.
	Degraded Status = "degraded"
	// Unhealthy indicates the database is unreachable.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

const databaseCheck = "database"

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	db         DBPinger
	components map[string]Checker
}

// New creates a Service. Nil entries in components are skipped.
func New(db DBPinger, components map[string]Checker) *Service {
	live := make(map[string]Checker, len(components))
	for name, c := range components {
		if c != nil && name != databaseCheck {
			live[name] = c
		}
	}
	return &Service{db: db, components: live}
}

// Components returns the names of the checked optional components, sorted.
func (s *Service) Components() []string {
	names := make([]string, 0, len(s.components))
	for name := range s.components {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Check runs every health check concurrently.
func (s *Service) Check(ctx context.Context) Report {
	var (
		mu     sync.Mutex
		checks = make(map[string]CheckResult, len(s.components)+1)
	)
	record := func(name string, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			checks[name] = CheckError
			return
		}
		checks[name] = CheckOK
	}

	var g errgroup.Group
	g.Go(func() error {
		record(databaseCheck, s.db.Ping(ctx))
		return nil
	})
	for name, c := range s.components {
		g.Go(func() error {
			record(name, c.HealthCheck(ctx))
			return nil
		})
	}
	_ = g.Wait()

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}
	if checks[databaseCheck] == CheckError {
		status = Unhealthy
	}

	return Report{Status: status, Checks: checks}
}
