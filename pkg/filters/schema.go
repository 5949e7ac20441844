package filters

import (
	"encoding/json"
	"strings"
)

// Field describes one filterable attribute.
type Field struct {
	Name    string
	Variant Variant

	// Allowed, when set, is the closed set of accepted values. Matching is
	// case-insensitive and values are normalized to the listed spelling.
	Allowed []string
}

// Schema is a closed set of filterable fields.
type Schema struct {
	fields    map[string]Field
	exclusive [][]string
}

// NewSchema creates a schema. Each exclusive group names fields of which at
// most one may be constrained in a single spec.
func NewSchema(fields []Field, exclusive ...[]string) *Schema {
	s := &Schema{
		fields:    make(map[string]Field, len(fields)),
		exclusive: exclusive,
	}
	for _, f := range fields {
		s.fields[f.Name] = f
	}
	return s
}

// Parse decodes and validates the caller-facing JSON form of a filter spec.
// Null values and empty lists are dropped. An absent or null document
// yields an empty spec.
func (s *Schema) Parse(raw json.RawMessage) (Spec, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return Spec{}, nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Spec{}, &ValidationError{Reason: "filters must be a JSON object"}
	}

	criteria := make(map[string]Criterion, len(fields))
	for name, v := range fields {
		if _, known := s.fields[name]; !known {
			return Spec{}, invalid(name, "unknown filter field")
		}
		c, ok, err := decodeCriterion(name, v)
		if err != nil {
			return Spec{}, err
		}
		if ok {
			criteria[name] = c
		}
	}
	return s.Build(criteria)
}

// Build validates criteria against the schema and returns the spec.
func (s *Schema) Build(criteria map[string]Criterion) (Spec, error) {
	out := make(map[string]Criterion, len(criteria))
	for name, c := range criteria {
		f, ok := s.fields[name]
		if !ok {
			return Spec{}, invalid(name, "unknown filter field")
		}
		if c.variant != f.Variant {
			return Spec{}, invalid(name, "expects an %s criterion, got %s", f.Variant, c.variant)
		}
		normalized, keep, err := f.normalize(c)
		if err != nil {
			return Spec{}, err
		}
		if keep {
			out[name] = normalized
		}
	}

	for _, group := range s.exclusive {
		var set []string
		for _, name := range group {
			if _, ok := out[name]; ok {
				set = append(set, name)
			}
		}
		if len(set) > 1 {
			return Spec{}, invalid(set[1], "cannot be combined with %s; use only one of %s",
				set[0], strings.Join(group, ", "))
		}
	}

	return Spec{criteria: out}, nil
}

// normalize checks values against the allowed set. keep is false when an
// Includes criterion has no values left.
func (f Field) normalize(c Criterion) (Criterion, bool, error) {
	switch c.variant {
	case VariantIncludes:
		if len(c.values) == 0 {
			return c, false, nil
		}
		values := make([]string, 0, len(c.values))
		for _, v := range c.values {
			canonical, err := f.canonical(v)
			if err != nil {
				return c, false, err
			}
			values = append(values, canonical)
		}
		return Includes(values...), true, nil
	case VariantEquals:
		canonical, err := f.canonical(c.value)
		if err != nil {
			return c, false, err
		}
		return Equals(canonical), true, nil
	default:
		return c, true, nil
	}
}

func (f Field) canonical(v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", invalid(f.Name, "values must not be empty")
	}
	if len(f.Allowed) == 0 {
		return v, nil
	}
	for _, a := range f.Allowed {
		if strings.EqualFold(a, v) {
			return a, nil
		}
	}
	return "", invalid(f.Name, "%q is not one of: %s", v, strings.Join(f.Allowed, ", "))
}
