// Package record holds the one mutable in-progress record of a conversational
// session and enforces field-level validation against its schema.
package record

import (
	"fmt"
	"strings"
	"time"

	"github.com/voxdesk/voxdesk/internal/schema"
)

// ValidationError reports a field value that failed a schema rule. It is
// recoverable: the session continues and the caller re-asks for the field.
type ValidationError struct {
	Field       string
	Rule        string
	Alternative string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("field %q: %s", e.Field, e.Rule)
}

// UpdateResult reports the outcome of a partial update: which fields were
// applied and which were refused, with the violated rule per refusal.
type UpdateResult struct {
	Applied  []string
	Rejected map[string]*ValidationError
}

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Store owns exactly one mutable record for the duration of a session.
// It is exclusively owned by that session and needs no internal locking.
type Store struct {
	schema      *schema.Schema
	values      map[string]any
	lastUpdated time.Time
	clock       Clock
}

// New creates an empty Store for the given schema.
func New(s *schema.Schema) *Store {
	return &Store{
		schema: s,
		values: make(map[string]any),
		clock:  realClock{},
	}
}

// NewWithClock creates a Store with a custom clock (for testing).
func NewWithClock(s *schema.Schema, clock Clock) *Store {
	st := New(s)
	st.clock = clock
	return st
}

// Schema returns the schema this store validates against.
func (s *Store) Schema() *schema.Schema { return s.schema }

// Update applies each provided field. Nil values are ignored, so a caller
// may pass only the fields it has learned so far. A field that fails a
// schema rule is refused with the rule text, but every other field in the
// same call still applies (partial-failure semantics). Unknown field names
// are refused outright.
func (s *Store) Update(fields map[string]any) UpdateResult {
	res := UpdateResult{Rejected: make(map[string]*ValidationError)}

	// Walk in schema order so Applied is deterministic.
	for _, f := range s.schema.Fields() {
		raw, present := fields[f.Name]
		if !present || raw == nil {
			continue
		}

		val, err := normalize(f, raw)
		if err != nil {
			res.Rejected[f.Name] = &ValidationError{Field: f.Name, Rule: err.Error()}
			continue
		}

		if rej := s.schema.Validate(f.Name, val, s.values); rej != nil {
			res.Rejected[f.Name] = &ValidationError{
				Field:       f.Name,
				Rule:        rej.Rule,
				Alternative: rej.Alternative,
			}
			continue
		}

		s.values[f.Name] = val
		s.lastUpdated = s.clock.Now()
		res.Applied = append(res.Applied, f.Name)
	}

	for name := range fields {
		if _, ok := s.schema.Field(name); !ok && fields[name] != nil {
			res.Rejected[name] = &ValidationError{
				Field: name,
				Rule:  fmt.Sprintf("unknown field %q", name),
			}
		}
	}

	return res
}

// MissingFields returns the names of required fields still unset, in schema
// declaration order (not insertion order), so prompts are deterministic.
func (s *Store) MissingFields() []string {
	var missing []string
	for _, f := range s.schema.Fields() {
		if !f.Required {
			continue
		}
		if _, set := s.values[f.Name]; !set {
			missing = append(missing, f.Name)
		}
	}
	return missing
}

// MissingPrompts returns the prompt labels for the missing fields, resolving
// record-dependent labels (espresso shot size) against current values.
func (s *Store) MissingPrompts() []string {
	var prompts []string
	for _, f := range s.schema.Fields() {
		if !f.Required {
			continue
		}
		if _, set := s.values[f.Name]; !set {
			prompts = append(prompts, f.LabelFor(s.values))
		}
	}
	return prompts
}

// IsComplete reports whether every required field is set.
func (s *Store) IsComplete() bool {
	return len(s.MissingFields()) == 0
}

// Get returns the current value of a field, if set.
func (s *Store) Get(name string) (any, bool) {
	v, ok := s.values[name]
	return v, ok
}

// LastUpdated is the time of the most recent applied update.
func (s *Store) LastUpdated() time.Time { return s.lastUpdated }

// Snapshot copies the current field values. List values are copied so the
// snapshot cannot alias store state.
func (s *Store) Snapshot() map[string]any {
	out := make(map[string]any, len(s.values))
	for k, v := range s.values {
		if list, ok := v.([]string); ok {
			cp := make([]string, len(list))
			copy(cp, list)
			out[k] = cp
			continue
		}
		out[k] = v
	}
	return out
}

// Reset clears every field back to unset. Nothing leaks into the next
// session: the backing map is replaced, not emptied in place.
func (s *Store) Reset() {
	s.values = make(map[string]any)
	s.lastUpdated = time.Time{}
}

// normalize coerces a raw input value into the field's kind.
func normalize(f schema.Field, raw any) (any, error) {
	switch f.Kind {
	case schema.KindString:
		str, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("expected a string, got %T", raw)
		}
		str = strings.TrimSpace(str)
		if str == "" {
			return nil, fmt.Errorf("value must not be empty")
		}
		if f.Lowercase {
			str = strings.ToLower(str)
		}
		return str, nil

	case schema.KindList:
		switch list := raw.(type) {
		case []string:
			return list, nil
		case []any:
			out := make([]string, 0, len(list))
			for _, item := range list {
				str, ok := item.(string)
				if !ok {
					return nil, fmt.Errorf("expected a list of strings, got element %T", item)
				}
				out = append(out, str)
			}
			return out, nil
		default:
			return nil, fmt.Errorf("expected a list of strings, got %T", raw)
		}

	case schema.KindNumber:
		switch n := raw.(type) {
		case float64:
			return n, nil
		case int:
			return float64(n), nil
		case int64:
			return float64(n), nil
		default:
			return nil, fmt.Errorf("expected a number, got %T", raw)
		}
	}
	return nil, fmt.Errorf("unsupported field kind %d", f.Kind)
}
