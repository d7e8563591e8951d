// Package presence implements a time-windowed set with automatic eviction,
// used for typing indicators: track is insert-with-TTL, expiry replaces
// explicit removal.
package presence

import (
	"sort"
	"sync"
	"time"
)

type entry struct {
	displayName string
	expiresAt   time.Time
}

// ExpiringSet holds peers that decay after a fixed TTL. Safe for concurrent use.
type ExpiringSet struct {
	mu  sync.Mutex
	ttl time.Duration
	set map[string]entry
}

// NewExpiringSet returns a set whose entries live for ttl after their last Track.
func NewExpiringSet(ttl time.Duration) *ExpiringSet {
	return &ExpiringSet{ttl: ttl, set: make(map[string]entry)}
}

// Track inserts or refreshes a peer as of now.
func (s *ExpiringSet) Track(id, displayName string, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.set[id] = entry{displayName: displayName, expiresAt: now.Add(s.ttl)}
}

// Remove drops a peer immediately.
func (s *ExpiringSet) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.set, id)
}

// Active prunes expired entries and returns the survivors ordered by id.
func (s *ExpiringSet) Active(now time.Time) []Peer {
	s.mu.Lock()
	defer s.mu.Unlock()
	peers := make([]Peer, 0, len(s.set))
	for id, e := range s.set {
		if !e.expiresAt.After(now) {
			delete(s.set, id)
			continue
		}
		peers = append(peers, Peer{ID: id, DisplayName: e.displayName})
	}
	sort.Slice(peers, func(i, j int) bool { return peers[i].ID < peers[j].ID })
	return peers
}

// Len reports the live entry count as of now.
func (s *ExpiringSet) Len(now time.Time) int {
	return len(s.Active(now))
}

// Peer is a surviving set member.
type Peer struct {
	ID          string
	DisplayName string
}
