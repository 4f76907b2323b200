package mirror

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/staffsync/staff-management/internal/docstore"
)

// Status carries the process-wide sync health shared by every mirror.
// Permission failures latch a flag and log operator guidance exactly once;
// transient failures are forwarded to an optional handler, typically the
// notification center.
type Status struct {
	logger *slog.Logger

	permission   atomic.Bool
	guidanceOnce sync.Once

	mu          sync.RWMutex
	onTransient func(collection string, err error)
}

func NewStatus(logger *slog.Logger) *Status {
	return &Status{logger: logger}
}

// SetOnTransient installs the handler invoked for every transient delivery
// failure. Wired by the core after the notification center exists.
func (s *Status) SetOnTransient(fn func(collection string, err error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onTransient = fn
}

// PermissionError reports whether any mirror has hit a permission failure.
func (s *Status) PermissionError() bool {
	return s.permission.Load()
}

// Report classifies a subscription failure for a collection: permission
// denials latch the permission flag, everything else counts as transient.
func (s *Status) Report(collection string, err error) {
	if errors.Is(err, docstore.ErrPermissionDenied) {
		s.reportPermission(collection, err)
		return
	}
	s.reportTransient(collection, err)
}

func (s *Status) reportPermission(collection string, err error) {
	s.permission.Store(true)
	s.guidanceOnce.Do(func() {
		s.logger.Error("store denied collection access; check the store's access rules for this deployment",
			"collection", collection, "error", err)
	})
}

func (s *Status) reportTransient(collection string, err error) {
	s.logger.Warn("subscription delivery failed, keeping last snapshot", "collection", collection, "error", err)
	s.mu.RLock()
	fn := s.onTransient
	s.mu.RUnlock()
	if fn != nil {
		fn(collection, err)
	}
}
