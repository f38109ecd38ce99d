package store

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/myrjola/billeffect/internal/playback"
)

type entry struct {
	store    *Store
	lastSeen time.Time
}

// Registry keeps one [Store] per workspace.
type Registry struct {
	mu         sync.Mutex
	stores     map[string]*entry
	engineOpts []playback.Option
	logger     *slog.Logger
}

// NewRegistry creates an empty registry. New stores get engines configured with engineOpts.
func NewRegistry(logger *slog.Logger, engineOpts ...playback.Option) *Registry {
	return &Registry{ //nolint:exhaustruct // mu zero value is ready to use.
		stores:     map[string]*entry{},
		engineOpts: engineOpts,
		logger:     logger,
	}
}

// Get returns the store of workspace id, creating it on first use.
func (r *Registry) Get(id string) *Store {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.stores[id]
	if !ok {
		e = &entry{store: New(r.engineOpts...), lastSeen: time.Time{}}
		r.stores[id] = e
		r.logger.LogAttrs(context.Background(), slog.LevelDebug, "created workspace", slog.String("workspace_id", id))
	}
	e.lastSeen = time.Now()
	return e.store
}

// Len is the number of live workspaces.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stores)
}

// Evict closes and forgets the store of workspace id.
func (r *Registry) Evict(id string) {
	r.mu.Lock()
	e, ok := r.stores[id]
	delete(r.stores, id)
	r.mu.Unlock()
	if ok {
		e.store.Close()
	}
}

// EvictIdle evicts the workspaces not accessed within idle before now and returns how many were evicted.
// Workspaces with an analysis in flight are kept.
func (r *Registry) EvictIdle(now time.Time, idle time.Duration) int {
	var evicted []*Store
	r.mu.Lock()
	for id, e := range r.stores {
		if now.Sub(e.lastSeen) < idle || e.store.Status().Analyzing {
			continue
		}
		delete(r.stores, id)
		evicted = append(evicted, e.store)
	}
	r.mu.Unlock()
	for _, s := range evicted {
		s.Close()
	}
	return len(evicted)
}

// StartJanitor evicts idle workspaces every interval until ctx is cancelled.
func (r *Registry) StartJanitor(ctx context.Context, idle, interval time.Duration) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
		if n := r.EvictIdle(time.Now(), idle); n > 0 {
			r.logger.LogAttrs(ctx, slog.LevelInfo, "evicted idle workspaces",
				slog.Int("count", n), slog.Int("remaining", r.Len()))
		}
	}
}

// Close evicts every workspace.
func (r *Registry) Close() {
	r.mu.Lock()
	stores := r.stores
	r.stores = map[string]*entry{}
	r.mu.Unlock()
	for _, e := range stores {
		e.store.Close()
	}
}
