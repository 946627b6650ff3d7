package chiserver

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/irislabs/iris-serving/pkg/logging"
)

// HealthCheckFunc probes one dependency and returns nil when it is healthy.
type HealthCheckFunc func(ctx context.Context) error

// CheckResult is the outcome of one health check.
type CheckResult struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// HealthStatus is the /health response body.
type HealthStatus struct {
	Status      string                 `json:"status"`
	Service     string                 `json:"service"`
	Version     string                 `json:"version"`
	Environment string                 `json:"environment"`
	Timestamp   time.Time              `json:"timestamp"`
	Checks      map[string]CheckResult `json:"checks,omitempty"`
}

// runHealthChecks executes all checks concurrently with a shared timeout.
func runHealthChecks(
	ctx context.Context,
	checks map[string]HealthCheckFunc,
	timeout time.Duration,
) (map[string]CheckResult, bool) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var (
		mu        sync.Mutex
		wg        sync.WaitGroup
		results   = make(map[string]CheckResult, len(checks))
		hasErrors bool
	)

	for name, check := range checks {
		wg.Add(1)
		go func(name string, check HealthCheckFunc) {
			defer wg.Done()

			result := CheckResult{Status: "healthy"}
			if err := check(ctx); err != nil {
				result = CheckResult{Status: "unhealthy", Error: err.Error()}
			}

			mu.Lock()
			results[name] = result
			if result.Status == "unhealthy" {
				hasErrors = true
			}
			mu.Unlock()
		}(name, check)
	}
	wg.Wait()

	return results, hasErrors
}

// healthHandler returns a handler for the /health endpoint with detailed
// check results.
func healthHandler(
	cfg Config,
	checks map[string]HealthCheckFunc,
	logger logging.Logger,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const healthCheckTimeout = 5 * time.Second

		results, hasErrors := runHealthChecks(r.Context(), checks, healthCheckTimeout)

		status := "healthy"
		statusCode := http.StatusOK

		if hasErrors {
			status = "unhealthy"
			statusCode = http.StatusServiceUnavailable

			for name, result := range results {
				if result.Status == "unhealthy" {
					logger.Warn(r.Context(), "health check failed",
						logging.String("check", name),
						logging.String("error", result.Error),
					)
				}
			}
		}

		health := HealthStatus{
			Status:      status,
			Service:     cfg.ServiceName,
			Version:     cfg.ServiceVersion,
			Environment: cfg.Environment,
			Timestamp:   time.Now(),
			Checks:      results,
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		_ = json.NewEncoder(w).Encode(health)
	}
}

// readyHandler returns a handler for the /ready endpoint.
func readyHandler(checks map[string]HealthCheckFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const readinessCheckTimeout = 3 * time.Second

		_, hasErrors := runHealthChecks(r.Context(), checks, readinessCheckTimeout)
		if hasErrors {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("Service Unavailable"))
			return
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}

// liveHandler returns a handler for the /live endpoint.
func liveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}
