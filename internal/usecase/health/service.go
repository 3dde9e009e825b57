// Package health aggregates component checks for the health endpoint.
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
	db       DBPinger
	dataset  DatasetChecker
	geocoder GeocoderChecker
}

// New creates a Service. geocoder can be nil (offline/injected-provider mode).
func New(db DBPinger, dataset DatasetChecker, geocoder GeocoderChecker) *Service {
	return &Service{db: db, dataset: dataset, geocoder: geocoder}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	if err := s.db.Ping(ctx); err != nil {
		checks["database"] = CheckError
	} else {
		checks["database"] = CheckOK
	}

	if s.dataset.Loaded() {
		checks["dataset"] = CheckOK
	} else {
		checks["dataset"] = CheckError
	}

	if s.geocoder != nil {
		if err := s.geocoder.HealthCheck(ctx); err != nil {
			checks["geocoder"] = CheckError
		} else {
			checks["geocoder"] = CheckOK
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
