package checkpoint

import (
	"context"
	"sync"
)

// Memory implements Store in process memory.
// Safe for concurrent use.
type Memory struct {
	data map[string]*Checkpoint
	mu   sync.RWMutex
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		data: make(map[string]*Checkpoint),
	}
}

// Save stores a deep copy of the checkpoint so later mutations by the
// caller cannot leak into the stored snapshot.
func (s *Memory) Save(_ context.Context, sessionID string, cp *Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[sessionID] = cp.Clone()
	return nil
}

// Load returns a copy of the stored checkpoint.
func (s *Memory) Load(_ context.Context, sessionID string) (*Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cp, ok := s.data[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	return cp.Clone(), nil
}

// Delete removes the checkpoint.
func (s *Memory) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, sessionID)
	return nil
}

// List returns all session IDs with a stored checkpoint.
func (s *Memory) List(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := make([]string, 0, len(s.data))
	for id := range s.data {
		sessions = append(sessions, id)
	}
	return sessions, nil
}
