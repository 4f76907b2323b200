package audit

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/staffsync/staff-management/internal/core/events"
)

type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
	SeverityInfo    Severity = "info"
)

// Notification is one transient user-facing status message.
type Notification struct {
	ID       string    `json:"id"`
	Severity Severity  `json:"severity"`
	Message  string    `json:"message"`
	At       time.Time `json:"at"`
}

// Center holds the active notifications. Every pushed notification expires
// on its own after the configured TTL; nothing is persisted.
type Center struct {
	ttl    time.Duration
	bus    *events.EventBus
	logger *slog.Logger

	mu    sync.Mutex
	items map[string]Notification
}

func NewCenter(ttl time.Duration, bus *events.EventBus, logger *slog.Logger) *Center {
	if ttl <= 0 {
		ttl = 6 * time.Second
	}
	return &Center{
		ttl:    ttl,
		bus:    bus,
		logger: logger,
		items:  make(map[string]Notification),
	}
}

func (c *Center) Push(severity Severity, message string) Notification {
	n := Notification{
		ID:       uuid.NewString(),
		Severity: severity,
		Message:  message,
		At:       time.Now(),
	}
	c.mu.Lock()
	c.items[n.ID] = n
	c.mu.Unlock()

	time.AfterFunc(c.ttl, func() { c.expire(n.ID) })
	c.bus.Publish(context.Background(), events.NewBaseEvent(events.TypeNotificationAdded, map[string]interface{}{
		"id":       n.ID,
		"severity": string(severity),
		"message":  message,
	}))
	return n
}

// Active returns the not-yet-expired notifications, oldest first.
func (c *Center) Active() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Notification, 0, len(c.items))
	cutoff := time.Now().Add(-c.ttl)
	for _, n := range c.items {
		if n.At.After(cutoff) {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].At.Before(out[j].At) })
	return out
}

// Dismiss removes one notification before its TTL runs out.
func (c *Center) Dismiss(id string) {
	c.expire(id)
}

func (c *Center) expire(id string) {
	c.mu.Lock()
	delete(c.items, id)
	c.mu.Unlock()
}
