package schema

import "fmt"

// Kind is the value type a field accepts.
type Kind int

const (
	KindString Kind = iota
	KindList
	KindNumber
)

// Field is a named slot in a record schema. Declaration order is significant:
// MissingFields reports required fields in the order they were declared, so
// the conversation layer asks for them deterministically.
type Field struct {
	Name     string
	Label    string // human prompt label, e.g. "milk preference"
	Required bool
	Kind     Kind

	// Lowercase normalizes string values before validation and storage.
	Lowercase bool

	// DynamicLabel, when set, overrides Label based on the current record
	// (espresso asks for a shot size, not a cup size).
	DynamicLabel func(current map[string]any) string
}

// LabelFor resolves the prompt label for a field given the current record.
func (f Field) LabelFor(current map[string]any) string {
	if f.DynamicLabel != nil {
		if l := f.DynamicLabel(current); l != "" {
			return l
		}
	}
	if f.Label != "" {
		return f.Label
	}
	return f.Name
}

// Rejection describes why a candidate value was refused, including what the
// caller should ask for instead.
type Rejection struct {
	Rule        string
	Alternative string
}

func (r Rejection) String() string {
	if r.Alternative == "" {
		return r.Rule
	}
	return r.Rule + " " + r.Alternative
}

// Rule validates a candidate value for one field against the rest of the
// record. Returning a non-nil Rejection refuses that field's value only;
// other fields in the same update still apply.
type Rule struct {
	Field string
	Check func(value any, current map[string]any) *Rejection
}

// Schema is a fixed set of fields plus cross-field validation rules.
// Field names are fixed at definition time; updates naming unknown fields
// are rejected.
type Schema struct {
	Name   string
	fields []Field
	byName map[string]Field
	rules  []Rule
}

// New builds a Schema from ordered field declarations.
func New(name string, fields []Field, rules ...Rule) (*Schema, error) {
	byName := make(map[string]Field, len(fields))
	for _, f := range fields {
		if f.Name == "" {
			return nil, fmt.Errorf("schema %q: field with empty name", name)
		}
		if _, dup := byName[f.Name]; dup {
			return nil, fmt.Errorf("schema %q: duplicate field %q", name, f.Name)
		}
		byName[f.Name] = f
	}
	for _, r := range rules {
		if _, ok := byName[r.Field]; !ok {
			return nil, fmt.Errorf("schema %q: rule references unknown field %q", name, r.Field)
		}
	}
	return &Schema{
		Name:   name,
		fields: fields,
		byName: byName,
		rules:  rules,
	}, nil
}

// MustNew is New for preset schemas whose definitions are static.
func MustNew(name string, fields []Field, rules ...Rule) *Schema {
	s, err := New(name, fields, rules...)
	if err != nil {
		panic(err)
	}
	return s
}

// Fields returns the fields in declaration order.
func (s *Schema) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// Field looks up a field by name.
func (s *Schema) Field(name string) (Field, bool) {
	f, ok := s.byName[name]
	return f, ok
}

// Validate runs the schema's rules for one candidate field value against the
// current record. A nil result means the value is acceptable.
func (s *Schema) Validate(field string, value any, current map[string]any) *Rejection {
	for _, r := range s.rules {
		if r.Field != field {
			continue
		}
		if rej := r.Check(value, current); rej != nil {
			return rej
		}
	}
	return nil
}
