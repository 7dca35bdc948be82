package services

import (
	"sync"
	"time"
)

type clientWindow struct {
	start time.Time
	count int
}

// RateGate admits at most `limit` requests per client key per window.
// Counting resets at the window boundary, there is no partial credit.
type RateGate struct {
	mu      sync.Mutex
	clients map[string]*clientWindow
	limit   int
	window  time.Duration
	now     func() time.Time
}

func NewRateGate(limit int, window time.Duration) *RateGate {
	return &RateGate{
		clients: make(map[string]*clientWindow),
		limit:   limit,
		window:  window,
		now:     time.Now,
	}
}

// Admit reports whether the client may proceed, counting the admission
// when it does.
func (g *RateGate) Admit(clientKey string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()

	w, ok := g.clients[clientKey]
	if !ok {
		w = &clientWindow{start: now}
		g.clients[clientKey] = w
	}

	if now.Sub(w.start) >= g.window {
		w.start = now
		w.count = 0
	}

	if w.count >= g.limit {
		return false
	}

	w.count++
	return true
}

// CleanupStale drops windows that have been idle longer than maxAge, so
// one-off clients do not accumulate forever.
func (g *RateGate) CleanupStale(maxAge time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()

	cutoff := g.now().Add(-maxAge)
	for key, w := range g.clients {
		if w.start.Before(cutoff) {
			delete(g.clients, key)
		}
	}
}
