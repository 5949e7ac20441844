package session

import (
	"context"
	"fmt"

	"github.com/txn2/mcp-prospect-research/pkg/research"
)

// ResearchNamespace is the reserved session id under which research sessions
// are stored, one key per research session id.
const ResearchNamespace = "__research_sessions__"

// ResearchPersister stores research sessions in a blob Store.
type ResearchPersister struct {
	store Store
}

// Verify interface compliance.
var _ research.Persister = (*ResearchPersister)(nil)

// NewResearchPersister wraps store.
func NewResearchPersister(store Store) *ResearchPersister {
	return &ResearchPersister{store: store}
}

// Save writes every session and removes rows of sessions that are gone.
func (p *ResearchPersister) Save(ctx context.Context, sessions []*research.Session) error {
	existing, err := p.store.ListKeys(ctx, ResearchNamespace)
	if err != nil {
		return fmt.Errorf("listing persisted sessions: %w", err)
	}

	keep := make(map[string]bool, len(sessions))
	for _, s := range sessions {
		if err := PutJSON(ctx, p.store, ResearchNamespace, s.ID, s); err != nil {
			return fmt.Errorf("saving session %s: %w", s.ID, err)
		}
		keep[s.ID] = true
	}

	for _, id := range existing {
		if keep[id] {
			continue
		}
		if err := p.store.Delete(ctx, ResearchNamespace, id); err != nil {
			return fmt.Errorf("removing session %s: %w", id, err)
		}
	}
	return nil
}

// Load reads all persisted sessions. Expiry is left to the caller.
func (p *ResearchPersister) Load(ctx context.Context) ([]*research.Session, error) {
	ids, err := p.store.ListKeys(ctx, ResearchNamespace)
	if err != nil {
		return nil, fmt.Errorf("listing persisted sessions: %w", err)
	}

	out := make([]*research.Session, 0, len(ids))
	for _, id := range ids {
		var s research.Session
		ok, err := GetJSON(ctx, p.store, ResearchNamespace, id, &s)
		if err != nil {
			return nil, fmt.Errorf("loading session %s: %w", id, err)
		}
		if !ok {
			continue
		}
		if s.ID == "" {
			s.ID = id
		}
		out = append(out, &s)
	}
	return out, nil
}
