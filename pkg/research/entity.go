package research

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/txn2/mcp-prospect-research/pkg/enrichment"
)

// Entity is one researched business within a session.
type Entity struct {
	ID          string                        `json:"entity_id"`
	Data        json.RawMessage               `json:"data"`
	Enrichments map[enrichment.Kind]Enrichment `json:"enrichments"`
	Events      []json.RawMessage             `json:"events"`
}

func newEntity(id string, data json.RawMessage) *Entity {
	return &Entity{
		ID:          id,
		Data:        data,
		Enrichments: make(map[enrichment.Kind]Enrichment),
		Events:      []json.RawMessage{},
	}
}

// Enrichment is the slot for one kind on one entity: either the payload the
// API returned or a "no results" marker.
type Enrichment struct {
	Data json.RawMessage
	Info string
}

// NoResults builds the marker for a kind that returned nothing.
func NoResults(kind enrichment.Kind) Enrichment {
	return Enrichment{Info: kind.NoResultsInfo()}
}

// Found reports whether the slot holds a payload rather than a marker.
func (e Enrichment) Found() bool {
	return e.Info == "" && len(e.Data) > 0
}

// MarshalJSON writes the payload as-is, or {"info": ...} for a marker.
func (e Enrichment) MarshalJSON() ([]byte, error) {
	if !e.Found() {
		return json.Marshal(map[string]string{"info": e.Info})
	}
	return e.Data, nil
}

// UnmarshalJSON keeps the value as a payload. Entity decoding turns the
// marker of the slot's kind back into a marker.
func (e *Enrichment) UnmarshalJSON(b []byte) error {
	*e = Enrichment{Data: append(json.RawMessage(nil), b...)}
	return nil
}

// restore returns the marker of kind when the payload is exactly that
// marker, and e otherwise.
func (e Enrichment) restore(kind enrichment.Kind) Enrichment {
	if !e.Found() {
		return e
	}
	var marker map[string]string
	if json.Unmarshal(e.Data, &marker) != nil || len(marker) != 1 {
		return e
	}
	if info, ok := marker["info"]; ok && info == kind.NoResultsInfo() {
		return NoResults(kind)
	}
	return e
}

// UnmarshalJSON decodes an entity and restores its "no results" markers.
func (e *Entity) UnmarshalJSON(b []byte) error {
	type plain Entity
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	for kind, enr := range p.Enrichments {
		p.Enrichments[kind] = enr.restore(kind)
	}
	*e = Entity(p)
	return nil
}

// EntitySet is an insertion-ordered set of entities keyed by id.
type EntitySet struct {
	order []string
	byID  map[string]*Entity
}

// NewEntitySet returns an empty set.
func NewEntitySet() *EntitySet {
	return &EntitySet{byID: make(map[string]*Entity)}
}

// Len returns the number of entities.
func (s *EntitySet) Len() int { return len(s.order) }

// Get returns the entity with id, or nil.
func (s *EntitySet) Get(id string) *Entity { return s.byID[id] }

// IDs returns entity ids in first-seen order.
func (s *EntitySet) IDs() []string { return append([]string(nil), s.order...) }

// Add inserts e unless an entity with the same id exists. It reports
// whether e was inserted; an existing entity is never replaced.
func (s *EntitySet) Add(e *Entity) bool {
	if _, ok := s.byID[e.ID]; ok {
		return false
	}
	s.byID[e.ID] = e
	s.order = append(s.order, e.ID)
	return true
}

// MarshalJSON writes the set as a JSON object keyed by entity id, in
// insertion order.
func (s *EntitySet) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, id := range s.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(id)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(s.byID[id])
		if err != nil {
			return nil, fmt.Errorf("encoding entity %s: %w", id, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an object written by MarshalJSON, keeping key order.
func (s *EntitySet) UnmarshalJSON(b []byte) error {
	*s = EntitySet{byID: make(map[string]*Entity)}
	if string(bytes.TrimSpace(b)) == "null" {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(b))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("decoding entities: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return errors.New("decoding entities: expected object")
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("decoding entities: %w", err)
		}
		id, ok := tok.(string)
		if !ok {
			return errors.New("decoding entities: expected string key")
		}
		var e Entity
		if err := dec.Decode(&e); err != nil {
			return fmt.Errorf("decoding entity %s: %w", id, err)
		}
		if e.ID == "" {
			e.ID = id
		}
		if e.Enrichments == nil {
			e.Enrichments = make(map[enrichment.Kind]Enrichment)
		}
		if e.Events == nil {
			e.Events = []json.RawMessage{}
		}
		s.Add(&e)
	}
	return nil
}
