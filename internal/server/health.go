// Package server exposes the knowledge base over HTTP: health probes, a
// question endpoint, and a webhook that runs the RFP drafting flow.
package server

import (
	"context"
	"time"
)

// HealthStatus represents the health state of a component.
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
	HealthStatusDegraded  HealthStatus = "degraded"
)

// HealthCheck is the result of probing a single dependency.
type HealthCheck struct {
	Name    string       `json:"name"`
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
}

// HealthResponse is the body of the health endpoints.
type HealthResponse struct {
	Status    HealthStatus  `json:"status"`
	Timestamp time.Time     `json:"timestamp"`
	Version   string        `json:"version,omitempty"`
	Checks    []HealthCheck `json:"checks,omitempty"`
}

// HealthChecker probes one dependency.
type HealthChecker func(ctx context.Context) HealthCheck

// StoreHealthCheck probes the vector store with a minimal query.
func StoreHealthCheck(ping func(ctx context.Context) error) HealthChecker {
	return func(ctx context.Context) HealthCheck {
		if err := ping(ctx); err != nil {
			return HealthCheck{Status: HealthStatusUnhealthy, Message: err.Error()}
		}
		return HealthCheck{Status: HealthStatusHealthy}
	}
}

// runChecks executes all checks and folds their results into one response.
// Any unhealthy check makes the whole response unhealthy; degraded wins
// over healthy.
func runChecks(ctx context.Context, version string, checks map[string]HealthChecker) HealthResponse {
	resp := HealthResponse{
		Status:    HealthStatusHealthy,
		Timestamp: time.Now().UTC(),
		Version:   version,
		Checks:    make([]HealthCheck, 0, len(checks)),
	}
	for name, checker := range checks {
		check := checker(ctx)
		check.Name = name
		resp.Checks = append(resp.Checks, check)

		if check.Status == HealthStatusUnhealthy {
			resp.Status = HealthStatusUnhealthy
		} else if check.Status == HealthStatusDegraded && resp.Status == HealthStatusHealthy {
			resp.Status = HealthStatusDegraded
		}
	}
	return resp
}
