// Package health provides liveness and readiness endpoints backed by the
// directory store.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/orgstack/orgdir/internal/store"
)

// HealthCheck manages health check functionality.
type HealthCheck struct {
	store         store.DirectoryStore
	logger        *zap.Logger
	mu            sync.RWMutex
	ready         bool
	lastCheck     time.Time
	checkInterval time.Duration
}

// NewHealthCheck creates a new HealthCheck instance and starts its
// background probe.
func NewHealthCheck(directoryStore store.DirectoryStore, logger *zap.Logger) *HealthCheck {
	hc := &HealthCheck{
		store:         directoryStore,
		logger:        logger,
		checkInterval: 5 * time.Second,
	}

	go hc.backgroundCheck()
	return hc
}

// LivenessResponse represents the response for the liveness check.
type LivenessResponse struct {
	Status string `json:"status"`
}

// ReadinessResponse represents the response for the readiness check.
type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
	Error  string            `json:"error,omitempty"`
}

// LivenessHandler handles GET /health requests. Returns 200 OK if the
// process is running.
func (hc *HealthCheck) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	resp := LivenessResponse{Status: "healthy"}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(resp)
}

// ReadinessHandler handles GET /ready requests. Returns 200 OK when the
// backing store responds to pings.
func (hc *HealthCheck) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	hc.mu.RLock()
	isReady := hc.ready
	hc.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")

	if isReady {
		resp := ReadinessResponse{
			Status: "ready",
			Checks: map[string]string{"store": "healthy"},
		}
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(resp)
		return
	}

	resp := ReadinessResponse{
		Status: "not_ready",
		Checks: map[string]string{"store": "unhealthy"},
		Error:  "backing store unreachable",
	}
	w.WriteHeader(http.StatusServiceUnavailable)
	json.NewEncoder(w).Encode(resp)
}

// backgroundCheck probes the store periodically and caches the result so
// readiness requests never block on the store themselves.
func (hc *HealthCheck) backgroundCheck() {
	hc.probe()

	ticker := time.NewTicker(hc.checkInterval)
	defer ticker.Stop()

	for range ticker.C {
		hc.probe()
	}
}

func (hc *HealthCheck) probe() {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	err := hc.store.Ping(ctx)

	hc.mu.Lock()
	hc.ready = err == nil
	hc.lastCheck = time.Now()
	hc.mu.Unlock()

	if err != nil {
		hc.logger.Warn("Store health check failed", zap.Error(err))
	}
}
