// Package audit records mutation outcomes: one immutable audit log document
// per successful action plus a transient user-facing notification, both also
// published on the core event bus.
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/staffsync/staff-management/internal"
	"github.com/staffsync/staff-management/internal/core/datamodel"
	"github.com/staffsync/staff-management/internal/core/events"
	"github.com/staffsync/staff-management/internal/docstore"
)

// systemActor attributes entries produced outside a principal's action, such
// as provisioning and bootstrap writes.
const systemActor = "system"

type Sink struct {
	store         docstore.Store
	notifications *Center
	bus           *events.EventBus
	logger        *slog.Logger
}

func NewSink(store docstore.Store, notifications *Center, bus *events.EventBus, logger *slog.Logger) *Sink {
	return &Sink{
		store:         store,
		notifications: notifications,
		bus:           bus,
		logger:        logger,
	}
}

// Success appends an audit entry for a completed mutation and pushes a
// success notification. The audit write itself is best-effort: the action
// already happened, so a failed append is logged and swallowed.
func (s *Sink) Success(ctx context.Context, action, detail string) {
	actor := internal.ActorFromContext(ctx)
	if actor == "" {
		actor = systemActor
	}
	entry := datamodel.AuditEntry{
		At:     time.Now().UTC(),
		Actor:  actor,
		Action: action,
		Detail: detail,
	}
	if _, err := s.store.Add(ctx, docstore.CollectionAuditLog, entry.Document()); err != nil {
		s.logger.Warn("audit append failed", "action", action, "error", err)
	}
	s.notifications.Push(SeveritySuccess, detail)
	s.bus.Publish(ctx, events.NewBaseEvent(events.TypeMutationRecorded, map[string]interface{}{
		"actor":  entry.Actor,
		"action": entry.Action,
		"detail": entry.Detail,
	}))
	s.logger.Info("mutation recorded", "actor", entry.Actor, "action", action, "detail", detail)
}

// Failure pushes an error notification for a rejected or failed action. No
// audit entry is written; the log only ever contains actions that happened.
func (s *Sink) Failure(ctx context.Context, action, message string) {
	s.notifications.Push(SeverityError, message)
	s.logger.Warn("action failed", "actor", internal.ActorFromContext(ctx), "action", action, "message", message)
}

// Info pushes a neutral notification without touching the audit log.
func (s *Sink) Info(ctx context.Context, message string) {
	s.notifications.Push(SeverityInfo, message)
}
