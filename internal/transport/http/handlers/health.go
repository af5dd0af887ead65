package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// ReadinessCheck probes one dependency for readiness.
type ReadinessCheck struct {
	Name  string
	Probe func(ctx context.Context) error
}

// HealthHandler exposes liveness and readiness information.
type HealthHandler struct {
	startedAt time.Time
	checks    []ReadinessCheck
}

// HealthOption configures optional HealthHandler behaviour.
type HealthOption func(*HealthHandler)

// WithReadinessCheck registers a named dependency probe for the readiness endpoint.
func WithReadinessCheck(name string, probe func(ctx context.Context) error) HealthOption {
	return func(h *HealthHandler) {
		if probe != nil {
			h.checks = append(h.checks, ReadinessCheck{Name: name, Probe: probe})
		}
	}
}

// NewHealthHandler builds a new health handler instance.
func NewHealthHandler(opts ...HealthOption) *HealthHandler {
	handler := &HealthHandler{startedAt: time.Now().UTC()}
	for _, opt := range opts {
		if opt != nil {
			opt(handler)
		}
	}
	return handler
}

// Status reports the service as alive along with its start time.
func (h *HealthHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "ok",
		StartedAt: h.startedAt,
	})
}

// Readiness probes every registered dependency and reports per-check results.
func (h *HealthHandler) Readiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	results := make(map[string]string, len(h.checks))
	ready := true
	for _, check := range h.checks {
		if err := check.Probe(ctx); err != nil {
			results[check.Name] = err.Error()
			ready = false
			continue
		}
		results[check.Name] = "ok"
	}

	status := http.StatusOK
	overall := "ready"
	if !ready {
		status = http.StatusServiceUnavailable
		overall = "not ready"
	}

	c.JSON(status, gin.H{"status": overall, "checks": results})
}
