package docstore

import (
	"context"
	"sync"
)

// Snapshotter builds the current batch for one subscription target; handle
// is empty for whole-collection subscriptions.
type Snapshotter func(collection, handle string) Batch

// Hub fans full snapshots out to subscription channels. Store
// implementations publish after every committed write; the newest batch
// replaces any undelivered one so a lagging consumer coalesces intermediate
// snapshots instead of blocking writers.
type Hub struct {
	mu   sync.Mutex
	subs map[int]*hubSub
	next int
}

type hubSub struct {
	collection string
	handle     string
	ch         chan Batch
}

func NewHub() *Hub {
	return &Hub{subs: make(map[int]*hubSub)}
}

// Subscribe registers a subscription and delivers initial as its first
// batch. The channel closes when ctx is done.
func (h *Hub) Subscribe(ctx context.Context, collection, handle string, initial Batch) <-chan Batch {
	h.mu.Lock()
	sub := &hubSub{collection: collection, handle: handle, ch: make(chan Batch, 1)}
	id := h.next
	h.next++
	h.subs[id] = sub
	send(sub.ch, initial)
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		delete(h.subs, id)
		h.mu.Unlock()
		close(sub.ch)
	}()
	return sub.ch
}

// Publish delivers a fresh snapshot, built per subscription by snap, to
// every subscriber of collection.
func (h *Hub) Publish(collection string, snap Snapshotter) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, sub := range h.subs {
		if sub.collection == collection {
			send(sub.ch, snap(sub.collection, sub.handle))
		}
	}
}

// PublishError delivers a failure batch to every subscriber of collection,
// leaving their last known snapshots intact.
func (h *Hub) PublishError(collection string, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, sub := range h.subs {
		if sub.collection == collection {
			send(sub.ch, Batch{Err: err})
		}
	}
}

// send replaces any pending batch with the newest one. Only one publisher
// runs at a time (callers hold h.mu), so draining one slot always makes the
// retry succeed.
func send(ch chan Batch, batch Batch) {
	for {
		select {
		case ch <- batch:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
