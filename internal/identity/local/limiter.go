package local

import (
	"sync"
	"time"
)

// attemptLimiter is a fixed-window failed-attempt counter per key. A key is
// allowed until it accumulates max failures inside one window; the window
// resets when it expires or on successful sign-in.
type attemptLimiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	entries map[string]*attemptWindow
}

type attemptWindow struct {
	count int
	start time.Time
}

func newAttemptLimiter(max int, window time.Duration) *attemptLimiter {
	return &attemptLimiter{
		max:     max,
		window:  window,
		entries: make(map[string]*attemptWindow),
	}
}

func (l *attemptLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[key]
	if !ok {
		return true
	}
	if time.Since(e.start) >= l.window {
		delete(l.entries, key)
		return true
	}
	return e.count < l.max
}

func (l *attemptLimiter) Record(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[key]
	if !ok || time.Since(e.start) >= l.window {
		l.entries[key] = &attemptWindow{count: 1, start: time.Now()}
		return
	}
	e.count++
}

func (l *attemptLimiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, key)
}
