// Package docstore defines the remote document store capability the core
// consumes: loosely typed collections of documents keyed by a physical
// handle, with live full-snapshot subscriptions, equality-filtered queries
// and a bounded existence probe.
package docstore

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when an operation targets a handle that holds
	// no document, including deletes that removed nothing.
	ErrNotFound = errors.New("document not found")
	// ErrPermissionDenied is returned when the store rejects access to a
	// collection. Mirrors treat it as a process-wide condition.
	ErrPermissionDenied = errors.New("permission denied by store")
	// ErrUnavailable is returned when the store cannot be reached. Callers
	// treat it as transient.
	ErrUnavailable = errors.New("store unavailable")
)

// Collection names used by the core. The settings document lives in
// CollectionConfig under datamodel.SettingsHandle; local identity
// credentials live in CollectionAuthUsers.
const (
	CollectionEmployees = "employees"
	CollectionTeams     = "teams"
	CollectionAccounts  = "accounts"
	CollectionPlanning  = "planning"
	CollectionBonuses   = "bonuses"
	CollectionTrainings = "trainings"
	CollectionAuditLog  = "audit_log"
	CollectionConfig    = "config"
	CollectionAuthUsers = "auth_users"
)

// Document is one stored record together with the handle the backend
// currently holds it under. Handles are not guaranteed stable across the
// historical write paths, which is why they are carried alongside the data.
type Document struct {
	Handle string
	Data   map[string]any
}

// Batch is one delivery on a subscription stream: either a full snapshot of
// the subscribed collection (or single document) or a delivery failure. A
// batch with Err set carries no documents and does not invalidate the
// subscriber's last known snapshot.
type Batch struct {
	Docs []Document
	Err  error
}

// Store is the document store contract. Implementations must deliver an
// initial snapshot on subscribe and a fresh full snapshot after every write
// that touches the subscribed collection; within one subscription the newest
// snapshot supersedes all prior ones.
type Store interface {
	// Subscribe streams full snapshots of a collection until ctx is done.
	Subscribe(ctx context.Context, collection string) (<-chan Batch, error)
	// SubscribeDocument streams single-document snapshots for one handle; an
	// empty batch means the document is absent.
	SubscribeDocument(ctx context.Context, collection, handle string) (<-chan Batch, error)
	// Set writes the full document under handle, creating it if absent.
	Set(ctx context.Context, collection, handle string, data map[string]any) error
	// Update merges partial into an existing document; ErrNotFound if absent.
	Update(ctx context.Context, collection, handle string, partial map[string]any) error
	// Delete removes the document; ErrNotFound when nothing was removed.
	Delete(ctx context.Context, collection, handle string) error
	// QueryEquals returns every document whose field equals value. Matching
	// is type-sensitive the way document backends index values: numeric
	// values match numerically across integer widths, strings match strings,
	// and a numeric value never matches its string rendering.
	QueryEquals(ctx context.Context, collection, field string, value any) ([]Document, error)
	// List returns up to limit documents from the collection in handle
	// order; limit <= 0 means no limit.
	List(ctx context.Context, collection string, limit int) ([]Document, error)
	// Add stores data under a backend-generated handle and returns it.
	Add(ctx context.Context, collection string, data map[string]any) (string, error)
}
