// Package session provides a keyed blob store for research data.
//
// A store holds arbitrary JSON values addressed by (session id, key). Put is
// an upsert that keeps a key's original position, ListKeys returns keys in
// the order they were first stored, and DeleteSession removes every row of a
// session. Backends live in this package (memory) and in the postgres and
// sqlite subpackages.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrEmptyID is returned when a session id or key is empty.
var ErrEmptyID = errors.New("session id and key are required")

// ErrReservedID is returned when a caller addresses a session id the server
// keeps for itself.
var ErrReservedID = errors.New("session id is reserved")

// Store defines the keyed blob store contract.
type Store interface {
	// NewSessionID returns a fresh, unique session id.
	NewSessionID() string

	// Put creates or replaces the value stored under key.
	Put(ctx context.Context, sessionID, key string, value json.RawMessage) error

	// Get returns the value stored under key. The bool is false when absent.
	Get(ctx context.Context, sessionID, key string) (json.RawMessage, bool, error)

	// ListKeys returns the session's keys in insertion order.
	ListKeys(ctx context.Context, sessionID string) ([]string, error)

	// Delete removes one key. Deleting an absent key is not an error.
	Delete(ctx context.Context, sessionID, key string) error

	// DeleteSession removes every key of the session.
	DeleteSession(ctx context.Context, sessionID string) error

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// NewID generates a session id. Backends share it so ids look the same
// regardless of where the data lives. A reserved id is never returned.
func NewID() string {
	for {
		if id := uuid.NewString(); !IsReserved(id) {
			return id
		}
	}
}

// IsReserved reports whether id is kept for server-internal data.
func IsReserved(id string) bool {
	return id == ResearchNamespace
}

// PutJSON encodes v and stores it under key.
func PutJSON(ctx context.Context, s Store, sessionID, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s/%s: %w", sessionID, key, err)
	}
	return s.Put(ctx, sessionID, key, raw)
}

// GetJSON decodes the value stored under key into v. The bool is false when
// the key is absent, in which case v is left untouched.
func GetJSON(ctx context.Context, s Store, sessionID, key string, v any) (bool, error) {
	raw, ok, err := s.Get(ctx, sessionID, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("decoding %s/%s: %w", sessionID, key, err)
	}
	return true, nil
}

// CheckKey validates a (session id, key) pair before it reaches a backend.
func CheckKey(sessionID, key string) error {
	if sessionID == "" || key == "" {
		return ErrEmptyID
	}
	return nil
}

// CheckSessionID validates a session id supplied by a tool caller. Reserved
// ids are rejected so callers cannot read or overwrite server-internal rows.
func CheckSessionID(sessionID string) error {
	if sessionID == "" {
		return ErrEmptyID
	}
	if IsReserved(sessionID) {
		return fmt.Errorf("%w: %s", ErrReservedID, sessionID)
	}
	return nil
}

// CheckCallerKey validates a (session id, key) pair supplied by a tool
// caller.
func CheckCallerKey(sessionID, key string) error {
	if err := CheckKey(sessionID, key); err != nil {
		return err
	}
	return CheckSessionID(sessionID)
}

// CheckValue rejects values that are not valid JSON.
func CheckValue(value json.RawMessage) error {
	if !json.Valid(value) {
		return errors.New("value is not valid JSON")
	}
	return nil
}
