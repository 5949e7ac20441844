// Package filters translates structured business search criteria into the
// wire-level filter payload of the remote API.
//
// Each field carries exactly one criterion, a tagged union of Includes (a set
// of values), Equals (a single value) or Exists (a boolean). Criteria are
// validated against a closed Schema when a Spec is built; unknown fields are
// rejected rather than passed through. The package is pure and performs no I/O.
package filters

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Variant identifies which kind of criterion a field holds.
type Variant int

const (
	// VariantIncludes matches any of a set of values.
	VariantIncludes Variant = iota + 1
	// VariantEquals matches one exact value.
	VariantEquals
	// VariantExists matches on presence of the attribute.
	VariantExists
)

// String returns the variant name.
func (v Variant) String() string {
	switch v {
	case VariantIncludes:
		return "includes"
	case VariantEquals:
		return "equals"
	case VariantExists:
		return "exists"
	default:
		return "unknown"
	}
}

// Criterion is a single field condition.
type Criterion struct {
	variant Variant
	values  []string
	value   string
	exists  bool
}

// Includes builds a set-membership criterion.
func Includes(values ...string) Criterion {
	return Criterion{variant: VariantIncludes, values: append([]string(nil), values...)}
}

// Equals builds an exact-value criterion.
func Equals(value string) Criterion {
	return Criterion{variant: VariantEquals, value: value}
}

// Exists builds a presence criterion.
func Exists(present bool) Criterion {
	return Criterion{variant: VariantExists, exists: present}
}

// Values returns the set of an Includes criterion.
func (c Criterion) Values() []string { return append([]string(nil), c.values...) }

// wire renders the criterion in the upstream request format.
func (c Criterion) wire() map[string]any {
	switch c.variant {
	case VariantIncludes:
		return map[string]any{"values": c.Values()}
	case VariantEquals:
		return map[string]any{"value": c.value}
	default:
		return map[string]any{"value": c.exists}
	}
}

// user renders the criterion in the caller-facing form.
func (c Criterion) user() any {
	switch c.variant {
	case VariantIncludes:
		return c.Values()
	case VariantEquals:
		return c.value
	default:
		return c.exists
	}
}

// Spec is a validated set of criteria keyed by field name. The zero value is
// an empty spec.
type Spec struct {
	criteria map[string]Criterion
}

// Len returns the number of fields with a criterion.
func (s Spec) Len() int { return len(s.criteria) }

// IsEmpty reports whether the spec has no criteria.
func (s Spec) IsEmpty() bool { return len(s.criteria) == 0 }

// Get returns the criterion for field.
func (s Spec) Get(field string) (Criterion, bool) {
	c, ok := s.criteria[field]
	return c, ok
}

// Fields returns the constrained field names in sorted order.
func (s Spec) Fields() []string {
	out := make([]string, 0, len(s.criteria))
	for f := range s.criteria {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// RequireCriteria fails when the spec is empty. Search requests need at
// least one criterion.
func (s Spec) RequireCriteria() error {
	if s.IsEmpty() {
		return &ValidationError{Reason: "at least one filter is required"}
	}
	return nil
}

// Payload returns the wire-level filters object.
func (s Spec) Payload() map[string]any {
	out := make(map[string]any, len(s.criteria))
	for f, c := range s.criteria {
		out[f] = c.wire()
	}
	return out
}

// MarshalJSON writes the caller-facing form: lists for Includes, strings for
// Equals and booleans for Exists.
func (s Spec) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(s.criteria))
	for f, c := range s.criteria {
		out[f] = c.user()
	}
	return json.Marshal(out)
}

// UnmarshalJSON restores a spec written by MarshalJSON. The variant of each
// field is recovered from its JSON type; no schema validation is applied.
func (s *Spec) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("decoding filters: %w", err)
	}
	criteria := make(map[string]Criterion, len(raw))
	for f, v := range raw {
		c, ok, err := decodeCriterion(f, v)
		if err != nil {
			return err
		}
		if ok {
			criteria[f] = c
		}
	}
	s.criteria = criteria
	return nil
}

// decodeCriterion interprets one field value by its JSON type. Null and empty
// lists yield ok=false.
func decodeCriterion(field string, v json.RawMessage) (Criterion, bool, error) {
	var decoded any
	if err := json.Unmarshal(v, &decoded); err != nil {
		return Criterion{}, false, invalid(field, "malformed value")
	}
	switch t := decoded.(type) {
	case nil:
		return Criterion{}, false, nil
	case bool:
		return Exists(t), true, nil
	case string:
		return Equals(t), true, nil
	case []any:
		if len(t) == 0 {
			return Criterion{}, false, nil
		}
		values := make([]string, 0, len(t))
		for _, item := range t {
			str, ok := item.(string)
			if !ok {
				return Criterion{}, false, invalid(field, "list values must be strings")
			}
			values = append(values, str)
		}
		return Includes(values...), true, nil
	default:
		return Criterion{}, false, invalid(field, "expected a list, string or boolean")
	}
}
