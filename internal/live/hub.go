package live

import (
	"log/slog"
	"sync"

	"dialer-platform/internal/dialer"
)

const subscriberBuffer = 32

// subscriber is one connected live client. Outbound frames go through a
// buffered channel; a client that stops draining overflows the buffer and is
// marked dead instead of blocking broadcasts.
type subscriber struct {
	out chan any

	mu   sync.Mutex
	dead bool
}

func newSubscriber() *subscriber {
	return &subscriber{out: make(chan any, subscriberBuffer)}
}

// push enqueues a frame without blocking. Returns false once the subscriber
// is dead or its buffer overflowed.
func (s *subscriber) push(frame any) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dead {
		return false
	}
	select {
	case s.out <- frame:
		return true
	default:
		s.dead = true
		close(s.out)
		return false
	}
}

func (s *subscriber) kill() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.dead {
		s.dead = true
		close(s.out)
	}
}

// Hub fans engine events out to live subscribers, keyed by session id.
// A client sees only the sessions it subscribed to. Delivery is best-effort;
// clients reconcile via the session snapshot endpoint.
type Hub struct {
	mu       sync.Mutex
	sessions map[string]map[*subscriber]struct{}
	subs     map[*subscriber]map[string]struct{}
	log      *slog.Logger
}

func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		sessions: make(map[string]map[*subscriber]struct{}),
		subs:     make(map[*subscriber]map[string]struct{}),
		log:      log,
	}
}

func (h *Hub) attach(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subs[sub] = make(map[string]struct{})
}

func (h *Hub) detach(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.detachLocked(sub)
}

func (h *Hub) detachLocked(sub *subscriber) {
	for sessionID := range h.subs[sub] {
		delete(h.sessions[sessionID], sub)
		if len(h.sessions[sessionID]) == 0 {
			delete(h.sessions, sessionID)
		}
	}
	delete(h.subs, sub)
	sub.kill()
}

func (h *Hub) subscribe(sub *subscriber, sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, attached := h.subs[sub]; !attached {
		return
	}
	if h.sessions[sessionID] == nil {
		h.sessions[sessionID] = make(map[*subscriber]struct{})
	}
	h.sessions[sessionID][sub] = struct{}{}
	h.subs[sub][sessionID] = struct{}{}
}

func (h *Hub) unsubscribe(sub *subscriber, sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.sessions[sessionID], sub)
	if len(h.sessions[sessionID]) == 0 {
		delete(h.sessions, sessionID)
	}
	if set, ok := h.subs[sub]; ok {
		delete(set, sessionID)
	}
}

// Broadcast delivers an engine event to every subscriber of its session.
// Subscribers that overflow are dropped from the hub.
func (h *Hub) Broadcast(ev dialer.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.sessions[ev.SessionID] {
		if !sub.push(ev) {
			h.log.Warn("live subscriber overflowed, dropping", "session_id", ev.SessionID)
			h.detachLocked(sub)
		}
	}
}

// SubscriberCount reports attached clients, for the health endpoint.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
