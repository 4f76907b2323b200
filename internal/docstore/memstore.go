package docstore

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// MemStore is an in-process Store used for development and tests. All data
// lives behind one RWMutex; subscribers receive deep-copied snapshots so a
// consumer can never mutate stored state.
type MemStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]map[string]any
	hub         *Hub
	injected    map[string]error
}

func NewMemStore() *MemStore {
	return &MemStore{
		collections: make(map[string]map[string]map[string]any),
		hub:         NewHub(),
		injected:    make(map[string]error),
	}
}

// InjectError makes the named operation ("set", "update", "delete", "query",
// "list", "add", "subscribe") fail with err until cleared with nil. Test
// hook only.
func (m *MemStore) InjectError(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.injected, op)
		return
	}
	m.injected[op] = err
}

// EmitError pushes a delivery failure to every subscriber of collection,
// leaving the stored data untouched. Test hook only.
func (m *MemStore) EmitError(collection string, err error) {
	m.hub.PublishError(collection, err)
}

// errFor reads an injected failure. Callers must hold m.mu.
func (m *MemStore) errFor(op string) error {
	return m.injected[op]
}

func (m *MemStore) Subscribe(ctx context.Context, collection string) (<-chan Batch, error) {
	return m.subscribe(ctx, collection, "")
}

func (m *MemStore) SubscribeDocument(ctx context.Context, collection, handle string) (<-chan Batch, error) {
	return m.subscribe(ctx, collection, handle)
}

func (m *MemStore) subscribe(ctx context.Context, collection, handle string) (<-chan Batch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.errFor("subscribe"); err != nil {
		return nil, err
	}
	return m.hub.Subscribe(ctx, collection, handle, m.snapshot(collection, handle)), nil
}

func (m *MemStore) Set(ctx context.Context, collection, handle string, data map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.errFor("set"); err != nil {
		return err
	}
	if m.collections[collection] == nil {
		m.collections[collection] = make(map[string]map[string]any)
	}
	m.collections[collection][handle] = deepCopyMap(data)
	m.hub.Publish(collection, m.snapshot)
	return nil
}

func (m *MemStore) Update(ctx context.Context, collection, handle string, partial map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.errFor("update"); err != nil {
		return err
	}
	doc, ok := m.collections[collection][handle]
	if !ok {
		return ErrNotFound
	}
	for k, v := range deepCopyMap(partial) {
		doc[k] = v
	}
	m.hub.Publish(collection, m.snapshot)
	return nil
}

func (m *MemStore) Delete(ctx context.Context, collection, handle string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.errFor("delete"); err != nil {
		return err
	}
	if _, ok := m.collections[collection][handle]; !ok {
		return ErrNotFound
	}
	delete(m.collections[collection], handle)
	m.hub.Publish(collection, m.snapshot)
	return nil
}

func (m *MemStore) QueryEquals(ctx context.Context, collection, field string, value any) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.errFor("query"); err != nil {
		return nil, err
	}
	var out []Document
	for _, handle := range sortedHandles(m.collections[collection]) {
		data := m.collections[collection][handle]
		if ValueEquals(data[field], value) {
			out = append(out, Document{Handle: handle, Data: deepCopyMap(data)})
		}
	}
	return out, nil
}

func (m *MemStore) List(ctx context.Context, collection string, limit int) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.errFor("list"); err != nil {
		return nil, err
	}
	var out []Document
	for _, handle := range sortedHandles(m.collections[collection]) {
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, Document{Handle: handle, Data: deepCopyMap(m.collections[collection][handle])})
	}
	return out, nil
}

func (m *MemStore) Add(ctx context.Context, collection string, data map[string]any) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.errFor("add"); err != nil {
		return "", err
	}
	handle := uuid.NewString()
	if m.collections[collection] == nil {
		m.collections[collection] = make(map[string]map[string]any)
	}
	m.collections[collection][handle] = deepCopyMap(data)
	m.hub.Publish(collection, m.snapshot)
	return handle, nil
}

// snapshot builds the deep-copied batch for one subscription target.
// Callers must hold m.mu.
func (m *MemStore) snapshot(collection, handle string) Batch {
	docs := m.collections[collection]
	var batch Batch
	if handle != "" {
		if data, ok := docs[handle]; ok {
			batch.Docs = []Document{{Handle: handle, Data: deepCopyMap(data)}}
		}
		return batch
	}
	for _, h := range sortedHandles(docs) {
		batch.Docs = append(batch.Docs, Document{Handle: h, Data: deepCopyMap(docs[h])})
	}
	return batch
}

func sortedHandles(docs map[string]map[string]any) []string {
	handles := make([]string, 0, len(docs))
	for h := range docs {
		handles = append(handles, h)
	}
	sort.Strings(handles)
	return handles
}

func deepCopyMap(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = deepCopyValue(v)
	}
	return dst
}

func deepCopyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return deepCopyMap(t)
	case []any:
		out := make([]any, len(t))
		for i, el := range t {
			out[i] = deepCopyValue(el)
		}
		return out
	default:
		return v
	}
}
