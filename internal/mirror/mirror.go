// Package mirror keeps live local copies of remote collections. Each mirror
// owns the snapshot of exactly one collection: subscription batches fully
// replace it (never incremental patches), a monotonically increasing version
// accompanies every publication, and the physical handle of each record is
// captured alongside the decoded entity for the identity resolver.
package mirror

import (
	"context"
	"log/slog"
	"sync"

	"github.com/staffsync/staff-management/internal/docstore"
)

// Decoder turns one stored document into the mirror's entity type.
type Decoder[T any] func(doc docstore.Document) (T, error)

// IDFunc extracts the logical id used for the handle table. Mirrors of
// composite-keyed collections (planning, bonuses, audit log) pass nil.
type IDFunc[T any] func(item T) int64

// Entry pairs a decoded record with the document handle the store currently
// holds it under. Handles are captured because they are not stable across
// the historical write paths.
type Entry[T any] struct {
	Item   T
	Handle string
}

// Mirror is the live local copy of one collection.
type Mirror[T any] struct {
	collection string
	store      docstore.Store
	decode     Decoder[T]
	idOf       IDFunc[T]
	status     *Status
	logger     *slog.Logger

	mu        sync.RWMutex
	entries   []Entry[T]
	handles   map[int64]string
	version   uint64
	maxSeen   int64
	lastMint  int64
	ready     chan struct{}
	readyDone bool
	watchers  map[int]chan uint64
	nextWatch int
}

func New[T any](collection string, store docstore.Store, decode Decoder[T], idOf IDFunc[T], status *Status, logger *slog.Logger) *Mirror[T] {
	return &Mirror[T]{
		collection: collection,
		store:      store,
		decode:     decode,
		idOf:       idOf,
		status:     status,
		logger:     logger,
		handles:    make(map[int64]string),
		ready:      make(chan struct{}),
		watchers:   make(map[int]chan uint64),
	}
}

func (m *Mirror[T]) Name() string { return m.collection }

// Start subscribes and consumes batches until ctx is done. Subscription
// failures are classified like delivery failures; the mirror then stays
// empty until the next start.
func (m *Mirror[T]) Start(ctx context.Context) error {
	ch, err := m.store.Subscribe(ctx, m.collection)
	if err != nil {
		m.classify(err)
		return err
	}
	go m.consume(ctx, ch)
	return nil
}

func (m *Mirror[T]) consume(ctx context.Context, ch <-chan docstore.Batch) {
	for {
		select {
		case <-ctx.Done():
			return
		case batch, ok := <-ch:
			if !ok {
				return
			}
			if batch.Err != nil {
				m.classify(batch.Err)
				continue
			}
			m.apply(batch.Docs)
		}
	}
}

// apply replaces the snapshot with the decoded batch. Documents that fail to
// decode are dropped with a warning; one malformed record must not blank the
// rest of the collection.
func (m *Mirror[T]) apply(docs []docstore.Document) {
	entries := make([]Entry[T], 0, len(docs))
	handles := make(map[int64]string, len(docs))
	var maxSeen int64
	for _, doc := range docs {
		item, err := m.decode(doc)
		if err != nil {
			m.logger.Warn("dropping undecodable document", "collection", m.collection, "handle", doc.Handle, "error", err)
			continue
		}
		entries = append(entries, Entry[T]{Item: item, Handle: doc.Handle})
		if m.idOf != nil {
			id := m.idOf(item)
			handles[id] = doc.Handle
			if id > maxSeen {
				maxSeen = id
			}
		}
	}

	m.mu.Lock()
	m.entries = entries
	m.handles = handles
	if maxSeen > m.maxSeen {
		m.maxSeen = maxSeen
	}
	m.version++
	version := m.version
	if !m.readyDone {
		m.readyDone = true
		close(m.ready)
	}
	for _, ch := range m.watchers {
		sendVersion(ch, version)
	}
	m.mu.Unlock()

	m.logger.Debug("snapshot replaced", "collection", m.collection, "version", version, "items", len(entries))
}

func (m *Mirror[T]) classify(err error) {
	m.status.Report(m.collection, err)
}

// Snapshot returns a copy of the current items and the snapshot version.
func (m *Mirror[T]) Snapshot() ([]T, uint64) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	items := make([]T, len(m.entries))
	for i, e := range m.entries {
		items[i] = e.Item
	}
	return items, m.version
}

// Items returns a copy of the current items.
func (m *Mirror[T]) Items() []T {
	items, _ := m.Snapshot()
	return items
}

// Entries returns the current items together with their document handles.
func (m *Mirror[T]) Entries() []Entry[T] {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entries := make([]Entry[T], len(m.entries))
	copy(entries, m.entries)
	return entries
}

// Get looks an item up by logical id. Always false for mirrors without an
// id extractor.
func (m *Mirror[T]) Get(id int64) (T, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var zero T
	if m.idOf == nil {
		return zero, false
	}
	for _, e := range m.entries {
		if m.idOf(e.Item) == id {
			return e.Item, true
		}
	}
	return zero, false
}

// HandleFor returns the document handle last seen for a logical id.
func (m *Mirror[T]) HandleFor(id int64) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.handles[id]
	return h, ok
}

// Mint allocates the next logical id: one past the highest id ever observed
// or minted, so two creations in the same process cannot collide even while
// the snapshot still lags the first write.
func (m *Mirror[T]) Mint() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	next := m.maxSeen
	if m.lastMint > next {
		next = m.lastMint
	}
	next++
	m.lastMint = next
	return next
}

// Version returns the current snapshot version.
func (m *Mirror[T]) Version() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.version
}

// Ready returns a channel closed once the mirror has applied its first
// snapshot since construction or the last Clear.
func (m *Mirror[T]) Ready() <-chan struct{} {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ready
}

// WaitReady blocks until the first snapshot or ctx expiry.
func (m *Mirror[T]) WaitReady(ctx context.Context) error {
	select {
	case <-m.Ready():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Watch streams snapshot versions until ctx is done. A slow consumer only
// coalesces intermediate versions, never misses the newest.
func (m *Mirror[T]) Watch(ctx context.Context) <-chan uint64 {
	m.mu.Lock()
	ch := make(chan uint64, 1)
	id := m.nextWatch
	m.nextWatch++
	m.watchers[id] = ch
	if m.version > 0 {
		sendVersion(ch, m.version)
	}
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		delete(m.watchers, id)
		m.mu.Unlock()
		close(ch)
	}()
	return ch
}

// Clear empties the snapshot and re-arms readiness for the next session.
// Versions keep increasing and minted ids are remembered, so entities
// created after a sign-out/sign-in cycle still get fresh ids.
func (m *Mirror[T]) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = nil
	m.handles = make(map[int64]string)
	m.version++
	if m.readyDone {
		m.readyDone = false
		m.ready = make(chan struct{})
	}
	for _, ch := range m.watchers {
		sendVersion(ch, m.version)
	}
}

// sendVersion replaces any pending version with the newest one.
func sendVersion(ch chan uint64, v uint64) {
	for {
		select {
		case ch <- v:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
