package session

import (
	"context"
	"encoding/json"
	"slices"
	"sync"
)

// bucket holds one session's values and their insertion order.
type bucket struct {
	order  []string
	values map[string]json.RawMessage
}

// MemoryStore implements Store with in-process maps. Data does not survive
// a restart.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*bucket
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*bucket)}
}

// NewSessionID returns a fresh session id.
func (*MemoryStore) NewSessionID() string {
	return NewID()
}

// Put creates or replaces the value under key. A replaced key keeps its
// original position.
func (s *MemoryStore) Put(_ context.Context, sessionID, key string, value json.RawMessage) error {
	if err := CheckKey(sessionID, key); err != nil {
		return err
	}
	if err := CheckValue(value); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.sessions[sessionID]
	if !ok {
		b = &bucket{values: make(map[string]json.RawMessage)}
		s.sessions[sessionID] = b
	}
	if _, exists := b.values[key]; !exists {
		b.order = append(b.order, key)
	}
	b.values[key] = slices.Clone(value)
	return nil
}

// Get returns the value under key.
func (s *MemoryStore) Get(_ context.Context, sessionID, key string) (json.RawMessage, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.sessions[sessionID]
	if !ok {
		return nil, false, nil
	}
	v, ok := b.values[key]
	if !ok {
		return nil, false, nil
	}
	return slices.Clone(v), true, nil
}

// ListKeys returns keys in insertion order.
func (s *MemoryStore) ListKeys(_ context.Context, sessionID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.sessions[sessionID]
	if !ok {
		return []string{}, nil
	}
	return slices.Clone(b.order), nil
}

// Delete removes one key.
func (s *MemoryStore) Delete(_ context.Context, sessionID, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.sessions[sessionID]
	if !ok {
		return nil
	}
	if _, exists := b.values[key]; !exists {
		return nil
	}
	delete(b.values, key)
	b.order = slices.DeleteFunc(b.order, func(k string) bool { return k == key })
	if len(b.order) == 0 {
		delete(s.sessions, sessionID)
	}
	return nil
}

// DeleteSession removes all keys of a session.
func (s *MemoryStore) DeleteSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, sessionID)
	return nil
}

// Ping always succeeds.
func (*MemoryStore) Ping(_ context.Context) error {
	return nil
}

// Close is a no-op.
func (*MemoryStore) Close() error {
	return nil
}

// Verify interface compliance.
var _ Store = (*MemoryStore)(nil)
