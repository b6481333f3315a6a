package service

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/orgstack/orgdir/internal/metrics"
	"github.com/orgstack/orgdir/internal/store"
)

// Registry maps tenant ids to their facades. It is created once at process
// start and passed by reference to every caller; there is no package-level
// state.
//
// First access for a tenant constructs exactly one facade even under
// concurrent load: a read-locked probe covers the warm path, and the
// check-construct-insert sequence runs under the write lock, so a second
// caller that lost the race finds the facade on its re-check and never
// triggers a second backing-store load.
type Registry struct {
	store   store.DirectoryStore
	logger  *zap.Logger
	metrics *metrics.Metrics

	mu      sync.RWMutex
	facades map[int64]*Facade
}

// NewRegistry creates an empty facade registry backed by the given store.
func NewRegistry(directoryStore store.DirectoryStore, logger *zap.Logger, m *metrics.Metrics) *Registry {
	return &Registry{
		store:   directoryStore,
		logger:  logger,
		metrics: m,
		facades: make(map[int64]*Facade),
	}
}

// GetFacade returns the facade for the tenant, constructing it on first
// access. All concurrent callers for the same tenant observe the same
// instance. Construction failures are not cached; a later call retries.
func (r *Registry) GetFacade(ctx context.Context, tenantID int64) (*Facade, error) {
	r.mu.RLock()
	facade := r.facades[tenantID]
	r.mu.RUnlock()
	if facade != nil {
		return facade, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if facade := r.facades[tenantID]; facade != nil {
		return facade, nil
	}

	facade, err := NewFacade(ctx, tenantID, r.store, r.logger, r.metrics)
	if err != nil {
		r.logger.Error("Failed to construct tenant facade",
			zap.Int64("tenant_id", tenantID),
			zap.Error(err))
		return nil, err
	}

	r.facades[tenantID] = facade
	if r.metrics != nil {
		r.metrics.FacadesActive.Inc()
	}
	return facade, nil
}

// Size returns the number of constructed facades.
func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.facades)
}
