// Package passthrough records pass-through API calls in the session data
// store. Toolkits that surface upstream responses unmodified use a Recorder
// to resolve the caller's session, keep the request parameters and keep the
// response under a well-known key.
package passthrough

import (
	"context"
	"encoding/json"

	"github.com/txn2/mcp-prospect-research/pkg/session"
)

// Gateway posts a payload upstream and returns the body unmodified.
type Gateway interface {
	Raw(ctx context.Context, operation, path string, payload any) (json.RawMessage, error)
}

// Recorder pairs a gateway with the session data store.
type Recorder struct {
	gw    Gateway
	store session.Store
}

// New creates a Recorder.
func New(gw Gateway, store session.Store) *Recorder {
	return &Recorder{gw: gw, store: store}
}

// SessionID returns id, or a fresh session id when id is empty. Reserved
// ids are rejected.
func (r *Recorder) SessionID(id string) (string, error) {
	if id == "" {
		return r.store.NewSessionID(), nil
	}
	if err := session.CheckSessionID(id); err != nil {
		return "", err
	}
	return id, nil
}

// Save stores v under key.
func (r *Recorder) Save(ctx context.Context, sessionID, key string, v any) error {
	return session.PutJSON(ctx, r.store, sessionID, key, v)
}

// Forward posts payload upstream and records the response under key.
func (r *Recorder) Forward(ctx context.Context, sessionID, key, operation, path string, payload any) (map[string]any, error) {
	raw, err := r.gw.Raw(ctx, operation, path, payload)
	if err != nil {
		return nil, err
	}
	return r.Record(ctx, sessionID, key, raw)
}

// Record stores raw under key and returns it with session_id attached.
func (r *Recorder) Record(ctx context.Context, sessionID, key string, raw json.RawMessage) (map[string]any, error) {
	if len(raw) == 0 {
		raw = json.RawMessage("null")
	}
	if err := r.store.Put(ctx, sessionID, key, raw); err != nil {
		return nil, err
	}
	return WithSessionID(raw, sessionID), nil
}

// WithSessionID adds session_id to an object response. Anything else is
// wrapped as {"data": ..., "session_id": ...}.
func WithSessionID(raw json.RawMessage, sessionID string) map[string]any {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err == nil && obj != nil {
		out := make(map[string]any, len(obj)+1)
		for k, v := range obj {
			out[k] = v
		}
		out["session_id"] = sessionID
		return out
	}
	return map[string]any{"data": raw, "session_id": sessionID}
}

// Paging fills the defaults of a paginated fetch.
func Paging(size, pageSize, page, defaultSize, defaultPageSize int) (int, int, int) {
	if size <= 0 {
		size = defaultSize
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if page <= 0 {
		page = 1
	}
	return size, pageSize, page
}
