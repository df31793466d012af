package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	cache   CachePinger
	records RecordsPinger
}

// New creates a Service. records can be nil.
func New(cache CachePinger, records RecordsPinger) *Service {
	return &Service{cache: cache, records: records}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	if err := s.cache.Ping(ctx); err != nil {
		checks["cache"] = CheckError
	} else {
		checks["cache"] = CheckOK
	}

	if s.records != nil {
		if err := s.records.Ping(ctx); err != nil {
			checks["records"] = CheckError
		} else {
			checks["records"] = CheckOK
		}
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}

	return Report{Status: status, Checks: checks}
}
