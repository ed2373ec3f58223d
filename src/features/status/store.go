// Package status keeps a live playback snapshot per player in sync with
// its backend.
package status

import (
	"sync"

	"maestro/src/player"
)

// Store holds the latest snapshot published for each player. Readers get
// whatever was published last; a player that never published reads as
// disconnected.
type Store struct {
	mu        sync.RWMutex
	snapshots map[string]*player.Snapshot
}

// NewStore creates an empty snapshot store.
func NewStore() *Store {
	return &Store{snapshots: make(map[string]*player.Snapshot)}
}

// Set publishes the snapshot for a player, replacing the previous one.
func (s *Store) Set(playerID string, snap *player.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[playerID] = snap
}

// Get returns the latest snapshot for a player.
func (s *Store) Get(playerID string) (*player.Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snapshots[playerID]
	return snap, ok
}

// All returns a copy of the current snapshot map.
func (s *Store) All() map[string]*player.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]*player.Snapshot, len(s.snapshots))
	for id, snap := range s.snapshots {
		out[id] = snap
	}
	return out
}

// Remove drops the snapshot for a player that no longer exists.
func (s *Store) Remove(playerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.snapshots, playerID)
}
