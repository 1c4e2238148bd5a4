package server

import (
	"sync"

	"bourse/feed"
)

// hub fans feed events out to websocket observers. Unlike the
// datastream registry it is decoupled by buffered channels: a slow
// websocket loses events rather than stalling message processing.
type hub struct {
	mu   sync.RWMutex
	subs map[*subscription]struct{}
}

type subscription struct {
	ch chan feed.Event
}

func newHub() *hub {
	return &hub{subs: make(map[*subscription]struct{})}
}

func (h *hub) Subscribe(buffer int) *subscription {
	sub := &subscription{ch: make(chan feed.Event, buffer)}
	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

func (h *hub) Unsubscribe(sub *subscription) {
	h.mu.Lock()
	delete(h.subs, sub)
	h.mu.Unlock()
	close(sub.ch)
}

func (h *hub) Broadcast(e feed.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs {
		select {
		case sub.ch <- e:
		default:
		}
	}
}
