package session

import "sync"

// Store owns the session maps of a process. Implementations must keep maps
// of different sessions fully independent.
type Store interface {
	// Get returns the map of an existing session.
	Get(id string) (*Map, bool)
	// GetOrCreate returns the session's map, creating an empty one if absent.
	GetOrCreate(id string) *Map
	// Delete discards and closes the session's map, returning its final
	// stats. It reports whether one existed.
	Delete(id string) (Stats, bool)
	// Len returns the number of live sessions.
	Len() int
}

// MemoryStore keeps session maps in process memory. The store lock only
// guards the index; work on a session happens under that session's own lock.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Map
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*Map)}
}

// Get returns the map of an existing session.
func (s *MemoryStore) Get(id string) (*Map, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.sessions[id]
	return m, ok
}

// GetOrCreate returns the session's map, creating it lazily.
func (s *MemoryStore) GetOrCreate(id string) *Map {
	if m, ok := s.Get(id); ok {
		return m
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Double-check after acquiring write lock
	if m, ok := s.sessions[id]; ok {
		return m
	}
	m := NewMap(id)
	s.sessions[id] = m
	return m
}

// Delete discards the session's map. Allocation on the removed map fails
// with ErrClosed, so the returned stats are final.
func (s *MemoryStore) Delete(id string) (Stats, bool) {
	s.mu.Lock()
	m, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
	}
	s.mu.Unlock()

	if !ok {
		return Stats{}, false
	}
	return m.close(), true
}

// Len returns the number of live sessions.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
