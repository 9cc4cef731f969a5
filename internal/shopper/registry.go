// Package shopper keeps the per-client state containers. Each shopper owns an
// independent set of stores, none of which knows about the others.
package shopper

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sabowaryan/sabowaryantech/internal/cart"
	"github.com/sabowaryan/sabowaryantech/internal/compare"
	"github.com/sabowaryan/sabowaryantech/internal/persist"
	"github.com/sabowaryan/sabowaryantech/internal/platform/metrics"
	"github.com/sabowaryan/sabowaryantech/internal/preferences"
	"github.com/sabowaryan/sabowaryantech/internal/session"
)

// Shopper is the state of one client.
type Shopper struct {
	ID          string
	Cart        *cart.Store
	Additions   *cart.Optimistic
	Compare     *compare.Selection
	Session     *session.Store
	Preferences *preferences.Store

	lastSeen time.Time
}

// Registry creates shoppers on first use and drops them after IdleTTL without
// requests. Durable slices survive eviction in the repository.
type Registry struct {
	mu        sync.Mutex
	shoppers  map[string]*Shopper
	repo      persist.Repository
	confirmer cart.Confirmer
	idleTTL   time.Duration
	base      *slog.Logger
	logger    *slog.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

// NewRegistry creates an empty Registry. A zero idleTTL disables eviction.
func NewRegistry(repo persist.Repository, confirmer cart.Confirmer, idleTTL time.Duration, logger *slog.Logger, m *metrics.Metrics) *Registry {
	return &Registry{
		shoppers:  make(map[string]*Shopper),
		repo:      repo,
		confirmer: confirmer,
		idleTTL:   idleTTL,
		base:      logger,
		logger:    logger.With("component", "shopper-registry"),
		metrics:   m,
		now:       time.Now,
	}
}

// Get returns the shopper for clientID, restoring it from the repository on first use.
func (r *Registry) Get(ctx context.Context, clientID string) *Shopper {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.shoppers[clientID]; ok {
		s.lastSeen = r.now()
		return s
	}

	store := cart.New(ctx, r.repo, persist.Key(persist.CartNamespace, clientID), r.base, r.metrics)
	s := &Shopper{
		ID:          clientID,
		Cart:        store,
		Additions:   cart.NewOptimistic(store, r.confirmer, r.base),
		Compare:     compare.New(r.metrics),
		Session:     session.NewStore(r.metrics),
		Preferences: preferences.New(ctx, r.repo, persist.Key(persist.PreferencesNamespace, clientID), r.base, r.metrics),
		lastSeen:    r.now(),
	}
	r.shoppers[clientID] = s
	r.metrics.SetActiveShoppers(len(r.shoppers))
	r.logger.DebugContext(ctx, "Shopper restored", "client_id", clientID)
	return s
}

// Len returns the number of shoppers held in memory.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.shoppers)
}

// Sweep drops shoppers idle for longer than the TTL and returns how many it dropped.
// Shoppers with cart confirmations still running are kept until a later sweep,
// so a compensation never lands after a fresh copy was restored.
func (r *Registry) Sweep() int {
	if r.idleTTL <= 0 {
		return 0
	}
	r.mu.Lock()
	cutoff := r.now().Add(-r.idleTTL)
	var evicted []*Shopper
	for id, s := range r.shoppers {
		if s.lastSeen.Before(cutoff) && s.Additions.Pending() == 0 {
			evicted = append(evicted, s)
			delete(r.shoppers, id)
		}
	}
	r.metrics.SetActiveShoppers(len(r.shoppers))
	r.mu.Unlock()

	if len(evicted) > 0 {
		r.logger.Info("Evicted idle shoppers", "count", len(evicted))
	}
	return len(evicted)
}

// Run sweeps periodically until ctx is done, then waits for pending cart confirmations.
func (r *Registry) Run(ctx context.Context) error {
	defer r.Close()
	if r.idleTTL <= 0 {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(max(r.idleTTL/2, time.Second))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// Close waits for pending cart confirmations of every shopper.
func (r *Registry) Close() {
	r.mu.Lock()
	shoppers := make([]*Shopper, 0, len(r.shoppers))
	for _, s := range r.shoppers {
		shoppers = append(shoppers, s)
	}
	r.mu.Unlock()
	for _, s := range shoppers {
		s.Additions.Wait()
	}
}
