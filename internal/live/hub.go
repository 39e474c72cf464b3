// Package live fans out statistics updates to clients watching an event.
package live

import (
	"sync"

	"github.com/Shivanand-hulikatti/lets-meet/internal/model"
)

// topic holds the subscribers of one event and the response count of the
// newest snapshot handed out.
type topic struct {
	subs map[chan model.EventStats]struct{}
	last int
}

// Hub keeps subscribers per event code.
type Hub struct {
	mu     sync.Mutex
	topics map[string]*topic
}

// NewHub returns an empty Hub.
func NewHub() *Hub {
	return &Hub{topics: make(map[string]*topic)}
}

// Subscribe registers interest in code. The returned channel holds at most
// one pending snapshot; the cancel func must be called to release it.
func (h *Hub) Subscribe(code string) (<-chan model.EventStats, func()) {
	ch := make(chan model.EventStats, 1)

	h.mu.Lock()
	tp, ok := h.topics[code]
	if !ok {
		tp = &topic{subs: make(map[chan model.EventStats]struct{})}
		h.topics[code] = tp
	}
	tp.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(tp.subs, ch)
			if len(tp.subs) == 0 && h.topics[code] == tp {
				delete(h.topics, code)
			}
		})
	}
}

// Publish hands stats to every subscriber of code without blocking.
// A subscriber that has not consumed the previous snapshot gets it replaced.
// Responses are append-only, so a snapshot counting fewer responses than one
// already published is stale and dropped.
func (h *Hub) Publish(code string, stats model.EventStats) {
	h.mu.Lock()
	defer h.mu.Unlock()

	tp, ok := h.topics[code]
	if !ok || stats.TotalResponses < tp.last {
		return
	}
	tp.last = stats.TotalResponses
	for ch := range tp.subs {
		select {
		case <-ch:
		default:
		}
		ch <- stats
	}
}

// Subscribers returns the number of active subscribers for code.
func (h *Hub) Subscribers(code string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if tp, ok := h.topics[code]; ok {
		return len(tp.subs)
	}
	return 0
}
