package sqlitegw

import (
	"sync"
	"time"

	"github.com/tobyns/CoveChat/internal/gateway"
	"github.com/tobyns/CoveChat/internal/presence"
)

// typingScope is the in-memory presence channel for one chat scope. Typing
// marks decay via the expiring set; a broadcast is scheduled after each TTL
// so watchers see the decay without an explicit untrack.
type typingScope struct {
	mu       sync.Mutex
	set      *presence.ExpiringSet
	nextID   int
	watchers map[int]*typingWatcher
}

type typingWatcher struct {
	userID   string
	onUpdate func([]gateway.TypingPeer)
}

func (s *Store) typingScopeFor(scopeID string) *typingScope {
	s.typingMu.Lock()
	defer s.typingMu.Unlock()
	scope, ok := s.typing[scopeID]
	if !ok {
		scope = &typingScope{
			set:      presence.NewExpiringSet(s.cfg.Limits.TypingTTL),
			watchers: make(map[int]*typingWatcher),
		}
		s.typing[scopeID] = scope
	}
	return scope
}

// broadcast pushes the current peer set to every watcher, excluding each
// watcher's own user from its view.
func (t *typingScope) broadcast(now time.Time) {
	t.mu.Lock()
	watchers := make([]*typingWatcher, 0, len(t.watchers))
	for _, w := range t.watchers {
		watchers = append(watchers, w)
	}
	t.mu.Unlock()

	active := t.set.Active(now)
	for _, w := range watchers {
		peers := make([]gateway.TypingPeer, 0, len(active))
		for _, peer := range active {
			if peer.ID == w.userID {
				continue
			}
			peers = append(peers, gateway.TypingPeer{ID: peer.ID, DisplayName: peer.DisplayName})
		}
		w.onUpdate(peers)
	}
}

type typingHandle struct {
	store   *Store
	scope   *typingScope
	scopeID string
	userID  string
	id      int
	once    sync.Once
}

// SubscribeTyping joins a scope's typing presence channel.
func (s *Store) SubscribeTyping(scopeID, userID string, onUpdate func([]gateway.TypingPeer)) gateway.TypingHandle {
	scope := s.typingScopeFor(scopeID)
	scope.mu.Lock()
	id := scope.nextID
	scope.nextID++
	scope.watchers[id] = &typingWatcher{userID: userID, onUpdate: onUpdate}
	scope.mu.Unlock()

	handle := &typingHandle{store: s, scope: scope, scopeID: scopeID, userID: userID, id: id}
	// Deliver the current peer set so a fresh subscriber is not blind until
	// the next keystroke.
	go scope.broadcast(time.Now())
	return handle
}

// Track marks the local user as typing. The mark decays after the TTL; a
// follow-up broadcast makes the decay visible to watchers.
func (h *typingHandle) Track(displayName string) {
	now := time.Now()
	h.scope.set.Track(h.userID, displayName, now)
	h.scope.broadcast(now)
	ttl := h.store.cfg.Limits.TypingTTL
	time.AfterFunc(ttl+50*time.Millisecond, func() {
		h.scope.broadcast(time.Now())
	})
}

// Untrack clears the typing mark immediately.
func (h *typingHandle) Untrack() {
	h.scope.set.Remove(h.userID)
	h.scope.broadcast(time.Now())
}

// Close leaves the presence channel.
func (h *typingHandle) Close() {
	h.once.Do(func() {
		h.Untrack()
		h.scope.mu.Lock()
		delete(h.scope.watchers, h.id)
		h.scope.mu.Unlock()
	})
}
