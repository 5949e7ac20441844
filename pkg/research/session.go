package research

import (
	"encoding/json"
	"time"

	"github.com/txn2/mcp-prospect-research/pkg/filters"
)

// Source records how a session was seeded.
type Source string

const (
	// SourceSearch sessions are populated page by page from a filtered search.
	SourceSearch Source = "search"
	// SourceMatch sessions are seeded once from direct business matches.
	SourceMatch Source = "match"
)

// Session is one bounded research task.
type Session struct {
	ID            string        `json:"session_id"`
	Source        Source        `json:"source"`
	Filters       *filters.Spec `json:"filters"`
	MaxPageSize   int           `json:"max_page_size"`
	CurrentPage   int           `json:"current_page_index"`
	TotalPages    *int          `json:"total_pages"`
	TotalResults  *int          `json:"total_results"`
	CreatedAt     time.Time     `json:"created_at"`
	LastTouchedAt time.Time     `json:"last_touched_at"`
	Entities      *EntitySet    `json:"entities"`
}

func newSession(id string, source Source, spec *filters.Spec, pageSize int, now time.Time) *Session {
	return &Session{
		ID:            id,
		Source:        source,
		Filters:       spec,
		MaxPageSize:   pageSize,
		CreatedAt:     now,
		LastTouchedAt: now,
		Entities:      NewEntitySet(),
	}
}

// Touch records an access at now.
func (s *Session) Touch(now time.Time) {
	s.LastTouchedAt = now
}

// IsExpired reports whether the session has been idle longer than ttl.
func (s *Session) IsExpired(now time.Time, ttl time.Duration) bool {
	return now.Sub(s.LastTouchedAt) > ttl
}

// UnmarshalJSON fills defaults missing from older snapshots.
func (s *Session) UnmarshalJSON(b []byte) error {
	type plain Session
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	if p.Entities == nil {
		p.Entities = NewEntitySet()
	}
	if p.Source == "" {
		p.Source = SourceSearch
		if p.Filters == nil {
			p.Source = SourceMatch
		}
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = p.LastTouchedAt
	}
	*s = Session(p)
	return nil
}

// Details is the read-only projection of one session.
type Details struct {
	SessionID      string        `json:"session_id"`
	Source         Source        `json:"source"`
	Filters        *filters.Spec `json:"filters"`
	TotalResults   *int          `json:"total_results"`
	TotalPages     *int          `json:"total_pages"`
	CurrentPage    int           `json:"current_page_index"`
	MaxPageSize    int           `json:"max_page_size"`
	LoadedEntities int           `json:"loaded_entities"`
	LastTouchedAt  time.Time     `json:"last_touched_at"`
}

// Summary is the list projection of one session.
type Summary struct {
	SessionID string        `json:"session_id"`
	Filters   *filters.Spec `json:"filters"`
}

func (s *Session) details() Details {
	return Details{
		SessionID:      s.ID,
		Source:         s.Source,
		Filters:        s.Filters,
		TotalResults:   copyInt(s.TotalResults),
		TotalPages:     copyInt(s.TotalPages),
		CurrentPage:    s.CurrentPage,
		MaxPageSize:    s.MaxPageSize,
		LoadedEntities: s.Entities.Len(),
		LastTouchedAt:  s.LastTouchedAt,
	}
}

// sample returns the base records of the first n entities.
func (s *Session) sample(n int) []json.RawMessage {
	out := make([]json.RawMessage, 0, n)
	for _, id := range s.Entities.order {
		if len(out) >= n {
			break
		}
		out = append(out, s.Entities.byID[id].Data)
	}
	return out
}

func copyInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
