package orchestrator

import (
	"context"
	"fmt"
	"sync"

	"github.com/sitelens/sitelens/internal/metrics"
	"github.com/sitelens/sitelens/internal/store"
	"go.uber.org/zap"
)

// Registry tracks every crawl currently running in this process, keyed by
// crawl ID. Grounded on the original's module-level `active_crawls` dict
// (backend/app/crawler/engine.py) used by the pause/resume/stop API
// handlers to find a running crawl's engine, generalized per spec §4.5 into
// an explicit owned struct (constructed by the application root) instead of
// global state, so multiple Registries can coexist in tests.
type Registry struct {
	mu      sync.Mutex
	engines map[int64]*Engine
	store   store.Store
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewRegistry creates an empty Registry bound to a Store used to construct
// new Engines. m may be nil to disable metrics recording.
func NewRegistry(st store.Store, logger *zap.Logger, m *metrics.Metrics) *Registry {
	return &Registry{
		engines: make(map[int64]*Engine),
		store:   st,
		logger:  logger,
		metrics: m,
	}
}

// Start creates an Engine for crawlID and runs it in a new goroutine,
// registering it for the duration of the run and removing it on exit
// (matching the original's `finally: active_crawls.pop(crawl_id, None)`).
// Returns an error if crawlID is already running.
func (r *Registry) Start(ctx context.Context, crawlID int64, startURL string, cfg Config) error {
	r.mu.Lock()
	if _, exists := r.engines[crawlID]; exists {
		r.mu.Unlock()
		return fmt.Errorf("orchestrator: crawl %d is already running", crawlID)
	}
	engine := New(crawlID, startURL, r.store, r.logger, r.metrics, cfg)
	r.engines[crawlID] = engine
	r.mu.Unlock()
	r.trackActive()

	go func() {
		defer r.remove(crawlID)
		if err := engine.Run(ctx); err != nil {
			r.logger.Error("crawl run failed", zap.Int64("crawl_id", crawlID), zap.Error(err))
		}
	}()
	return nil
}

// Resume re-registers a previously stopped crawl, preloading its visited
// set from already-saved page records before starting a fresh Engine.
func (r *Registry) Resume(ctx context.Context, crawlID int64, startURL string, cfg Config) error {
	urls, err := r.store.ListPageURLs(ctx, crawlID)
	if err != nil {
		return err
	}

	r.mu.Lock()
	if _, exists := r.engines[crawlID]; exists {
		r.mu.Unlock()
		return fmt.Errorf("orchestrator: crawl %d is already running", crawlID)
	}
	engine := New(crawlID, startURL, r.store, r.logger, r.metrics, cfg)
	engine.PreloadVisited(urls)
	r.engines[crawlID] = engine
	r.mu.Unlock()
	r.trackActive()

	go func() {
		defer r.remove(crawlID)
		if err := engine.Run(ctx); err != nil {
			r.logger.Error("crawl resume failed", zap.Int64("crawl_id", crawlID), zap.Error(err))
		}
	}()
	return nil
}

func (r *Registry) remove(crawlID int64) {
	r.mu.Lock()
	delete(r.engines, crawlID)
	r.mu.Unlock()
	r.trackActive()
}

// trackActive reports the current number of registered engines to the
// active_crawls gauge, if metrics are enabled.
func (r *Registry) trackActive() {
	if r.metrics == nil {
		return
	}
	r.metrics.ActiveCrawls.Set(float64(len(r.Active())))
}

// Get returns the running Engine for crawlID, or nil if no crawl with that
// ID is currently active.
func (r *Registry) Get(crawlID int64) *Engine {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.engines[crawlID]
}

// Pause pauses a running crawl. Returns false if crawlID is not active.
func (r *Registry) Pause(crawlID int64) bool {
	e := r.Get(crawlID)
	if e == nil {
		return false
	}
	e.Pause()
	return true
}

// ResumeActive unpauses a paused crawl already tracked by the Registry (distinct
// from the Resume method above, which restarts a stopped crawl from
// scratch). Returns false if crawlID is not active.
func (r *Registry) ResumeActive(crawlID int64) bool {
	e := r.Get(crawlID)
	if e == nil {
		return false
	}
	e.Resume()
	return true
}

// Stop stops a running or paused crawl. Returns false if crawlID is not
// active.
func (r *Registry) Stop(crawlID int64) bool {
	e := r.Get(crawlID)
	if e == nil {
		return false
	}
	e.Stop()
	return true
}

// Active returns the crawl IDs currently registered.
func (r *Registry) Active() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]int64, 0, len(r.engines))
	for id := range r.engines {
		ids = append(ids, id)
	}
	return ids
}
