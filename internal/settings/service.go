// Package settings maintains the live view of the singleton company
// configuration document. It provisions the defaults when no document
// exists yet and rewrites legacy-shaped documents into the current shape,
// each at most once per session.
package settings

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/staffsync/staff-management/internal"
	"github.com/staffsync/staff-management/internal/audit"
	"github.com/staffsync/staff-management/internal/core/datamodel"
	"github.com/staffsync/staff-management/internal/docstore"
	"github.com/staffsync/staff-management/internal/mirror"
)

// Service is the settings-flavored mirror. It satisfies mirror.Collection so
// the registry starts and clears it together with the entity mirrors.
type Service struct {
	store  docstore.Store
	status *mirror.Status
	sink   *audit.Sink
	logger *slog.Logger

	mu       sync.RWMutex
	current  datamodel.Settings
	loaded   bool
	ready    chan struct{}
	provided bool
	upgraded bool
}

func NewService(store docstore.Store, status *mirror.Status, sink *audit.Sink, logger *slog.Logger) *Service {
	return &Service{
		store:   store,
		status:  status,
		sink:    sink,
		logger:  logger,
		current: datamodel.DefaultSettings(),
		ready:   make(chan struct{}),
	}
}

func (s *Service) Name() string { return docstore.CollectionConfig }

// HandleFor satisfies mirror.Collection; the settings document has no
// logical id to resolve.
func (s *Service) HandleFor(id int64) (string, bool) { return "", false }

// Start subscribes to the settings document and keeps the in-memory view
// current until ctx is done.
func (s *Service) Start(ctx context.Context) error {
	batches, err := s.store.SubscribeDocument(ctx, docstore.CollectionConfig, datamodel.SettingsHandle)
	if err != nil {
		return fmt.Errorf("subscribe settings: %w", err)
	}
	go s.consume(ctx, batches)
	return nil
}

func (s *Service) consume(ctx context.Context, batches <-chan docstore.Batch) {
	for batch := range batches {
		if batch.Err != nil {
			s.status.Report(docstore.CollectionConfig, batch.Err)
			continue
		}
		s.apply(ctx, batch.Docs)
	}
}

func (s *Service) apply(ctx context.Context, docs []docstore.Document) {
	if len(docs) == 0 {
		s.provisionDefaults(ctx)
		return
	}

	doc := docs[0]
	decoded, legacy, err := datamodel.DecodeSettings(doc.Handle, doc.Data)
	if err != nil {
		s.logger.Warn("settings document undecodable, keeping previous view", "error", err)
		return
	}

	s.mu.Lock()
	s.current = decoded
	if !s.loaded {
		s.loaded = true
		close(s.ready)
	}
	shouldUpgrade := legacy && !s.upgraded
	if shouldUpgrade {
		s.upgraded = true
	}
	s.mu.Unlock()

	if shouldUpgrade {
		s.logger.Info("legacy settings document found, rewriting in current shape")
		if err := s.store.Set(ctx, docstore.CollectionConfig, datamodel.SettingsHandle, decoded.Document()); err != nil {
			s.logger.Warn("settings upgrade write failed", "error", err)
		}
	}
}

// provisionDefaults writes the default settings document the first time the
// subscription reports it absent. Later absences within the same session
// fall back to defaults in memory without writing again, so two sessions
// racing cannot ping-pong writes.
func (s *Service) provisionDefaults(ctx context.Context) {
	s.mu.Lock()
	s.current = datamodel.DefaultSettings()
	if !s.loaded {
		s.loaded = true
		close(s.ready)
	}
	shouldProvision := !s.provided
	if shouldProvision {
		s.provided = true
	}
	s.mu.Unlock()

	if !shouldProvision {
		return
	}
	s.logger.Info("no settings document found, provisioning defaults")
	if err := s.store.Set(ctx, docstore.CollectionConfig, datamodel.SettingsHandle, datamodel.DefaultSettings().Document()); err != nil {
		s.logger.Warn("settings provisioning failed", "error", err)
	}
}

// Clear resets the view to defaults and re-arms readiness and the one-time
// provisioning and upgrade passes for the next session.
func (s *Service) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = datamodel.DefaultSettings()
	if s.loaded {
		s.loaded = false
		s.ready = make(chan struct{})
	}
	s.provided = false
	s.upgraded = false
}

// Current returns the latest decoded settings, defaults until the first
// snapshot arrives.
func (s *Service) Current() datamodel.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Ready is closed once the first snapshot, present or absent, has been seen.
func (s *Service) Ready() <-chan struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// Update replaces the settings document.
func (s *Service) Update(ctx context.Context, dto UpdateSettingsDTO) (datamodel.Settings, error) {
	if err := dto.Validate(); err != nil {
		return datamodel.Settings{}, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	old := s.Current()
	updated := dto.apply(old)

	if err := s.store.Set(ctx, docstore.CollectionConfig, datamodel.SettingsHandle, updated.Document()); err != nil {
		s.logger.Error("settings update write failed", "error", err)
		s.sink.Failure(ctx, "settings.update", "Could not save the settings")
		return datamodel.Settings{}, internal.ErrSyncTransient.WithCause(err)
	}

	s.mu.Lock()
	s.current = updated
	s.mu.Unlock()

	s.logger.Info("settings updated")
	s.sink.Success(ctx, "settings.update", fmt.Sprintf("settings updated, %s", audit.FieldDiff(old.Document(), updated.Document())))
	return updated, nil
}
