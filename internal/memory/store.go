// Package memory provides the per-agent dual-layer memory: a schema-validated
// state map and an append-only episodic stream with semantic retrieval.
// Each store is owned exclusively by one agent — no cross-agent access.
package memory

import (
	"errors"
	"fmt"
)

// Errors returned by state map operations. Both are usage errors: the caller
// asked for something the declared schema does not allow.
var (
	ErrUnknownAttribute = errors.New("memory: unknown attribute")
	ErrTypeMismatch     = errors.New("memory: type mismatch")
)

// Kind enumerates the value types an attribute may declare.
type Kind uint8

const (
	KindNumber Kind = iota
	KindText
	KindBool
	KindList
	KindRecord
)

// KindName returns a readable name for error messages.
func KindName(k Kind) string {
	switch k {
	case KindNumber:
		return "number"
	case KindText:
		return "text"
	case KindBool:
		return "bool"
	case KindList:
		return "list"
	case KindRecord:
		return "record"
	}
	return "unknown"
}

// AttributeSpec declares one attribute of the state map.
type AttributeSpec struct {
	Name    string
	Kind    Kind
	Default any
}

// Store is one agent's memory: typed attributes plus the episodic stream.
type Store struct {
	schema map[string]AttributeSpec
	state  map[string]any

	records []Record
	lastTS  uint64
	clock   func() uint64
}

// NewStore builds a store from the declared schema. The clock supplies
// timestamps for episodic records (the simulation's logical tick); a nil
// clock starts an internal counter at zero.
func NewStore(schema []AttributeSpec, clock func() uint64) (*Store, error) {
	s := &Store{
		schema: make(map[string]AttributeSpec, len(schema)),
		state:  make(map[string]any, len(schema)),
		clock:  clock,
	}
	if s.clock == nil {
		s.clock = func() uint64 { return 0 }
	}
	for _, spec := range schema {
		if _, dup := s.schema[spec.Name]; dup {
			return nil, fmt.Errorf("memory: duplicate attribute %q", spec.Name)
		}
		def, ok := normalize(spec.Kind, spec.Default)
		if spec.Default != nil && !ok {
			return nil, fmt.Errorf("%w: default for %q is not %s",
				ErrTypeMismatch, spec.Name, KindName(spec.Kind))
		}
		if spec.Default == nil {
			def = zeroValue(spec.Kind)
		}
		s.schema[spec.Name] = spec
		s.state[spec.Name] = def
	}
	return s, nil
}

// Get returns the current value of a declared attribute.
func (s *Store) Get(name string) (any, error) {
	v, ok := s.state[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAttribute, name)
	}
	return v, nil
}

// Number returns a number-typed attribute.
func (s *Store) Number(name string) (float64, error) {
	v, err := s.Get(name)
	if err != nil {
		return 0, err
	}
	f, ok := v.(float64)
	if !ok {
		return 0, fmt.Errorf("%w: %q is not a number", ErrTypeMismatch, name)
	}
	return f, nil
}

// Text returns a text-typed attribute.
func (s *Store) Text(name string) (string, error) {
	v, err := s.Get(name)
	if err != nil {
		return "", err
	}
	t, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %q is not text", ErrTypeMismatch, name)
	}
	return t, nil
}

// Set replaces the value of a declared attribute. The value must match the
// declared kind; numbers accept any Go integer or float and store float64.
func (s *Store) Set(name string, value any) error {
	spec, ok := s.schema[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownAttribute, name)
	}
	v, ok := normalize(spec.Kind, value)
	if !ok {
		return fmt.Errorf("%w: %q wants %s, got %T",
			ErrTypeMismatch, name, KindName(spec.Kind), value)
	}
	s.state[name] = v
	return nil
}

// Merge appends items to a list-typed attribute.
func (s *Store) Merge(name string, items ...any) error {
	spec, ok := s.schema[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownAttribute, name)
	}
	if spec.Kind != KindList {
		return fmt.Errorf("%w: %q is not a list", ErrTypeMismatch, name)
	}
	list := s.state[name].([]any)
	s.state[name] = append(list, items...)
	return nil
}

// normalize coerces value to the canonical representation of kind.
// Returns false when the value cannot represent the kind.
func normalize(k Kind, value any) (any, bool) {
	switch k {
	case KindNumber:
		switch n := value.(type) {
		case float64:
			return n, true
		case float32:
			return float64(n), true
		case int:
			return float64(n), true
		case int64:
			return float64(n), true
		case uint64:
			return float64(n), true
		}
	case KindText:
		if t, ok := value.(string); ok {
			return t, true
		}
	case KindBool:
		if b, ok := value.(bool); ok {
			return b, true
		}
	case KindList:
		if l, ok := value.([]any); ok {
			return l, true
		}
	case KindRecord:
		if r, ok := value.(map[string]any); ok {
			return r, true
		}
	}
	return nil, false
}

func zeroValue(k Kind) any {
	switch k {
	case KindNumber:
		return float64(0)
	case KindText:
		return ""
	case KindBool:
		return false
	case KindList:
		return []any{}
	case KindRecord:
		return map[string]any{}
	}
	return nil
}
