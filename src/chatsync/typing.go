package chatsync

import (
	"sort"
	"sync"
	"time"
)

// typingSet is an explicit expiring-entry map: each observation carries its
// own timestamp and expired entries are swept on read, so expiry is local
// and testable.
type typingSet struct {
	mu      sync.Mutex
	entries map[uint64]TypingUser
}

func newTypingSet() *typingSet {
	return &typingSet{entries: make(map[uint64]TypingUser)}
}

// Observe records or refreshes a typing marker.
func (s *typingSet) Observe(u TypingUser) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.entries[u.UserID]; !ok || u.UpdatedAt.After(cur.UpdatedAt) {
		s.entries[u.UserID] = u
	}
}

// Drop removes a user's marker immediately.
func (s *typingSet) Drop(userID uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, userID)
}

// Live sweeps expired entries and returns the survivors, oldest first.
func (s *typingSet) Live(now time.Time, ttl time.Duration) []TypingUser {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := now.Add(-ttl)
	var live []TypingUser
	for id, u := range s.entries {
		if u.UpdatedAt.Before(cutoff) {
			delete(s.entries, id)
			continue
		}
		live = append(live, u)
	}
	sort.Slice(live, func(i, j int) bool { return live[i].UpdatedAt.Before(live[j].UpdatedAt) })
	return live
}
