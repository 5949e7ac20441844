// Package research manages stateful research sessions over the business data
// API.
//
// A session is a working set of companies built incrementally: seeded from a
// filtered search (then paged with LoadMore) or from direct matches, and then
// enriched and annotated with events. The Manager owns every session; all
// operations are serialized and run to completion before the next begins.
// After each mutating operation the full session set is handed to the
// configured Persister. Persistence is best-effort: failures are logged and
// never fail the operation.
package research

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/txn2/mcp-prospect-research/pkg/filters"
	"github.com/txn2/mcp-prospect-research/pkg/gateway"
)

// Gateway is the subset of the remote API client the Manager uses.
type Gateway interface {
	SearchBusinesses(ctx context.Context, req gateway.SearchRequest) (*gateway.SearchResponse, error)
	MatchBusinesses(ctx context.Context, inputs []gateway.MatchInput) (*gateway.MatchResponse, error)
	Enrich(ctx context.Context, path string, businessIDs []string) (*gateway.EnrichResponse, error)
	FetchEvents(ctx context.Context, req gateway.EventsRequest) (*gateway.EventsResponse, error)
}

// Verify interface compliance.
var _ Gateway = (*gateway.Client)(nil)

// Manager owns the in-memory set of research sessions.
type Manager struct {
	mu       sync.Mutex
	gw       Gateway
	opts     Options
	sessions map[string]*Session
}

// NewManager creates a Manager with no sessions. Call Restore to load
// persisted sessions.
func NewManager(gw Gateway, opts ...Option) *Manager {
	var o Options
	for _, opt := range opts {
		opt(&o)
	}
	o.applyDefaults()

	return &Manager{
		gw:       gw,
		opts:     o,
		sessions: make(map[string]*Session),
	}
}

// CreateResult is returned by the create operations.
type CreateResult struct {
	SessionID string            `json:"session_id"`
	Details   Details           `json:"session_details"`
	Sample    []json.RawMessage `json:"sample_data"`
}

// LoadResult is returned by LoadMore.
type LoadResult struct {
	Loaded  int     `json:"loaded"`
	Message string  `json:"message"`
	Details Details `json:"session_details"`
}

// CreateSearchSession registers a new session for the filters and loads its
// first page. If the first load fails the session stays registered and the
// returned result carries its id alongside the error.
func (m *Manager) CreateSearchSession(ctx context.Context, spec filters.Spec, maxResults int) (*CreateResult, error) {
	if err := spec.RequireCriteria(); err != nil {
		return nil, invalid(err)
	}
	if maxResults == 0 {
		maxResults = DefaultMaxResults
	}
	if maxResults < 1 || maxResults > MaxPageSize {
		return nil, invalidf("max_results must be between 1 and %d, got %d", MaxPageSize, maxResults)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.opts.Now()
	s := newSession(m.opts.NewID(), SourceSearch, &spec, maxResults, now)
	m.sessions[s.ID] = s

	slog.Info("created search session", "session_id", s.ID, "filters", spec.Fields(), "max_results", maxResults)

	added, err := m.loadMore(ctx, s)
	if err != nil {
		return &CreateResult{SessionID: s.ID, Details: s.details()}, err
	}
	if added > 0 {
		m.persist(ctx)
	}

	return &CreateResult{
		SessionID: s.ID,
		Details:   s.details(),
		Sample:    s.sample(m.opts.SampleSize),
	}, nil
}

// CreateMatchSession resolves the inputs with a direct match and seeds a new
// session with the matched businesses. On zero matches no session is
// registered.
func (m *Manager) CreateMatchSession(ctx context.Context, inputs []gateway.MatchInput) (*CreateResult, error) {
	if len(inputs) == 0 {
		return nil, invalidf("at least one company input is required")
	}
	if len(inputs) > m.opts.MatchBatchSize {
		return nil, invalidf("at most %d company inputs are allowed, got %d", m.opts.MatchBatchSize, len(inputs))
	}
	for i, in := range inputs {
		if strings.TrimSpace(in.Name) == "" && strings.TrimSpace(in.Domain) == "" {
			return nil, invalidf("company input %d needs a name or a domain", i)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	resp, err := m.gw.MatchBusinesses(ctx, inputs)
	if err != nil {
		return nil, fmt.Errorf("matching businesses: %w", err)
	}
	if resp.Message != "" {
		return nil, fmt.Errorf("matching businesses: %s", resp.Message)
	}

	s := newSession(m.opts.NewID(), SourceMatch, nil, 1, m.opts.Now())
	for _, rec := range resp.MatchedBusinesses {
		if rec.BusinessID == "" {
			continue
		}
		s.Entities.Add(newEntity(rec.BusinessID, rec.Raw))
	}
	if s.Entities.Len() == 0 {
		return nil, ErrNoMatches
	}

	m.sessions[s.ID] = s
	slog.Info("created match session", "session_id", s.ID, "inputs", len(inputs), "matched", s.Entities.Len())
	m.persist(ctx)

	return &CreateResult{
		SessionID: s.ID,
		Details:   s.details(),
		Sample:    s.sample(m.opts.SampleSize),
	}, nil
}

// LoadMore fetches the next page of a search session.
func (m *Manager) LoadMore(ctx context.Context, id string) (*LoadResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, notFound(id)
	}
	if s.Source == SourceMatch {
		return nil, invalidf("session %s was seeded by direct match and has no further pages", id)
	}

	added, err := m.loadMore(ctx, s)
	s.Touch(m.opts.Now())
	if err != nil {
		return nil, err
	}
	if added > 0 {
		m.persist(ctx)
	}

	return &LoadResult{
		Loaded:  added,
		Message: fmt.Sprintf("Loaded %d results for session %s.", added, id),
		Details: s.details(),
	}, nil
}

// loadMore fetches page CurrentPage+1 into s. The page index advances only
// when the response carried at least one entity; totals are captured from
// the first page only.
func (m *Manager) loadMore(ctx context.Context, s *Session) (int, error) {
	next := s.CurrentPage + 1

	var payload map[string]any
	if s.Filters != nil {
		payload = s.Filters.Payload()
	}
	resp, err := m.gw.SearchBusinesses(ctx, gateway.SearchRequest{
		Filters:  payload,
		Page:     next,
		PageSize: s.MaxPageSize,
		Size:     s.MaxPageSize,
	})
	if err != nil {
		return 0, fmt.Errorf("loading page %d: %w", next, err)
	}

	var records []gateway.Record
	for _, rec := range resp.Data {
		if rec.BusinessID != "" {
			records = append(records, rec)
		}
	}
	if len(records) == 0 {
		return 0, fmt.Errorf("loading page %d: %w", next, ErrEmptyResult)
	}

	added := 0
	for _, rec := range records {
		if s.Entities.Add(newEntity(rec.BusinessID, rec.Raw)) {
			added++
		}
	}

	if s.CurrentPage == 0 {
		totalPages, totalResults := resp.TotalPages, resp.TotalResults
		s.TotalPages = &totalPages
		s.TotalResults = &totalResults
	}
	s.CurrentPage = next

	slog.Debug("loaded page", "session_id", s.ID, "page", next, "returned", len(records), "added", added)
	return added, nil
}

// Details returns the projection of one session.
func (m *Manager) Details(id string) (Details, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.lookup(id)
	if err != nil {
		return Details{}, err
	}
	return s.details(), nil
}

// List returns summaries of every session, oldest first.
func (m *Manager) List() []Summary {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Summary, 0, len(m.sessions))
	for _, s := range m.sortedSessions() {
		out = append(out, Summary{SessionID: s.ID, Filters: s.Filters})
	}
	return out
}

// ViewData returns the full serialized entity map of a session.
func (m *Manager) ViewData(id string) (json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.lookup(id)
	if err != nil {
		return nil, err
	}

	b, err := json.Marshal(s.Entities)
	if err != nil {
		return nil, fmt.Errorf("encoding session %s: %w", id, err)
	}
	return b, nil
}

// EntityID looks up the entity whose base record has the given name and
// domain, compared case-insensitively, within one session only. ok is false
// when no entity matches.
func (m *Manager) EntityID(id, name, domain string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.lookup(id)
	if err != nil {
		return "", false, err
	}

	for _, eid := range s.Entities.order {
		var base struct {
			Name   string `json:"name"`
			Domain string `json:"domain"`
		}
		if err := json.Unmarshal(s.Entities.byID[eid].Data, &base); err != nil {
			continue
		}
		if strings.EqualFold(base.Name, name) && strings.EqualFold(base.Domain, domain) {
			return eid, true, nil
		}
	}
	return "", false, nil
}

// DeleteSession removes a session.
func (m *Manager) DeleteSession(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; !ok {
		return notFound(id)
	}
	delete(m.sessions, id)
	slog.Info("deleted research session", "session_id", id)
	m.persist(ctx)
	return nil
}

// Sweep removes sessions idle longer than the TTL and persists the reduced
// set if any were removed. It returns the number removed.
func (m *Manager) Sweep(ctx context.Context) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := m.sweep()
	if removed > 0 {
		m.persist(ctx)
	}
	return removed
}

func (m *Manager) sweep() int {
	now := m.opts.Now()
	removed := 0
	for id, s := range m.sessions {
		if s.IsExpired(now, m.opts.TTL) {
			delete(m.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		slog.Info("swept expired research sessions", "removed", removed, "remaining", len(m.sessions))
	}
	return removed
}

// Restore loads persisted sessions, dropping any already expired, then
// sweeps. Sessions already registered with the same id are replaced.
func (m *Manager) Restore(ctx context.Context) error {
	loaded, err := m.opts.Persister.Load(ctx)
	if err != nil {
		return fmt.Errorf("restoring research sessions: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.opts.Now()
	skipped := 0
	for _, s := range loaded {
		if s == nil || s.ID == "" || s.IsExpired(now, m.opts.TTL) {
			skipped++
			continue
		}
		m.sessions[s.ID] = s
	}

	removed := m.sweep()
	if skipped+removed > 0 {
		m.persist(ctx)
	}

	slog.Info("restored research sessions", "loaded", len(loaded)-skipped, "expired", skipped+removed)
	return nil
}

// Len returns the number of registered sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// persist hands every session to the persister. Callers hold m.mu.
func (m *Manager) persist(ctx context.Context) {
	if err := m.opts.Persister.Save(ctx, m.sortedSessions()); err != nil {
		slog.Error("persisting research sessions failed", "error", err)
	}
}

func (m *Manager) sortedSessions() []*Session {
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// lookup returns a session and touches it. Callers hold m.mu.
func (m *Manager) lookup(id string) (*Session, error) {
	s, ok := m.sessions[id]
	if !ok {
		return nil, notFound(id)
	}
	s.Touch(m.opts.Now())
	return s, nil
}

// IsNotFound reports whether err is ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// batches splits ids into chunks of at most size.
func batches(ids []string, size int) [][]string {
	var out [][]string
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		out = append(out, ids[start:end])
	}
	return out
}
