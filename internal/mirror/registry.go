package mirror

import (
	"context"
	"log/slog"
	"sync"
)

// Collection is the non-generic surface shared by all mirrors; the registry
// drives lifecycle through it and the resolver looks handles up through it.
type Collection interface {
	Name() string
	Start(ctx context.Context) error
	Clear()
	HandleFor(id int64) (string, bool)
}

// Registry owns the shared lifecycle of every mirror. The session manager
// starts and stops the whole set on principal changes; it never reaches into
// individual subscriptions.
type Registry struct {
	status *Status
	logger *slog.Logger

	mu      sync.Mutex
	mirrors map[string]Collection
	order   []string
	cancel  context.CancelFunc
	running bool
}

func NewRegistry(status *Status, logger *slog.Logger) *Registry {
	return &Registry{
		status:  status,
		logger:  logger,
		mirrors: make(map[string]Collection),
	}
}

func (r *Registry) Register(c Collection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.mirrors[c.Name()]; !ok {
		r.order = append(r.order, c.Name())
	}
	r.mirrors[c.Name()] = c
}

// StartAll subscribes every mirror under one cancelable context. Individual
// start failures are already classified by the mirror; the rest of the set
// still starts. No-op while running.
func (r *Registry) StartAll(parent context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return
	}
	ctx, cancel := context.WithCancel(parent)
	r.cancel = cancel
	r.running = true
	for _, name := range r.order {
		if err := r.mirrors[name].Start(ctx); err != nil {
			r.logger.Warn("mirror failed to start", "collection", name, "error", err)
		}
	}
	r.logger.Info("mirrors started", "count", len(r.order))
}

// StopAll cancels every subscription. Snapshots stay at their last value
// until ClearAll.
func (r *Registry) StopAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return
	}
	r.cancel()
	r.cancel = nil
	r.running = false
	r.logger.Info("mirrors stopped")
}

// ClearAll empties every snapshot, used on sign-out.
func (r *Registry) ClearAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, name := range r.order {
		r.mirrors[name].Clear()
	}
}

// HandleFor looks up the last-seen document handle for a logical id in the
// named collection.
func (r *Registry) HandleFor(collection string, id int64) (string, bool) {
	r.mu.Lock()
	c, ok := r.mirrors[collection]
	r.mu.Unlock()
	if !ok {
		return "", false
	}
	return c.HandleFor(id)
}

func (r *Registry) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

func (r *Registry) Status() *Status { return r.status }
