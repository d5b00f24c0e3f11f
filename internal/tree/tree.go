// Package tree implements the canonical document tree: the sole input shape
// consumed by the path and predicate engines. A tree is a closed sum type —
// scalar, ordered sequence, or string-keyed mapping — so every consumer
// dispatches on a concrete type instead of probing a bare map[string]any.
package tree

import "strconv"

// Node is a value in a canonical document tree.
type Node interface {
	node()
}

// Scalar wraps a leaf value: string, float64, bool, or nil.
type Scalar struct {
	Value any
}

// Sequence is an ordered list of child nodes.
type Sequence struct {
	Items []Node
}

// Mapping is a string-keyed collection of child nodes. Key order is
// preserved for deterministic serialization.
type Mapping struct {
	Keys   []string
	Values map[string]Node
}

func (Scalar) node()   {}
func (Sequence) node() {}
func (Mapping) node()  {}

// NewMapping returns an empty, ready-to-use Mapping.
func NewMapping() *Mapping {
	return &Mapping{Values: make(map[string]Node)}
}

// Set assigns key to value, appending key to Keys on first write.
func (m *Mapping) Set(key string, value Node) {
	if _, ok := m.Values[key]; !ok {
		m.Keys = append(m.Keys, key)
	}
	m.Values[key] = value
}

// Get returns the child at key, or nil if absent.
func (m *Mapping) Get(key string) (Node, bool) {
	v, ok := m.Values[key]
	return v, ok
}

// Append appends a value to an existing sequence under key, creating the
// sequence (or converting a prior single value into a one-element sequence)
// on first collision — this is how repeated XML elements become an ordered
// sequence instead of silently overwriting one another.
func (m *Mapping) Append(key string, value Node) {
	existing, ok := m.Values[key]
	if !ok {
		m.Set(key, value)
		return
	}
	if seq, ok := existing.(*Sequence); ok {
		seq.Items = append(seq.Items, value)
		return
	}
	m.Values[key] = &Sequence{Items: []Node{existing, value}}
}

// String renders a scalar's underlying value as a string for comparisons
// that need text (identity keys, canonicalization heuristics).
func (s Scalar) String() string {
	if s.Value == nil {
		return ""
	}
	switch v := s.Value.(type) {
	case string:
		return v
	case bool:
		if v {
			return "true"
		}
		return "false"
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	default:
		return ""
	}
}

// AsSequence returns n as a sequence of items, coalescing a nil node into an
// empty sequence and a scalar/mapping node into a one-element sequence. This
// mirrors the path engine's wildcard tolerance: mappings written against "a
// list of one" keep working after XML singleton collapsing.
func AsSequence(n Node) []Node {
	switch v := n.(type) {
	case nil:
		return nil
	case *Sequence:
		return v.Items
	default:
		return []Node{v}
	}
}

// Equal reports whether a and b are structurally identical, used by the
// canonicalization round-trip property test.
func Equal(a, b Node) bool {
	switch av := a.(type) {
	case *Scalar:
		bv, ok := b.(*Scalar)
		return ok && av.Value == bv.Value
	case *Sequence:
		bv, ok := b.(*Sequence)
		if !ok || len(av.Items) != len(bv.Items) {
			return false
		}
		for i := range av.Items {
			if !Equal(av.Items[i], bv.Items[i]) {
				return false
			}
		}
		return true
	case *Mapping:
		bv, ok := b.(*Mapping)
		if !ok || len(av.Keys) != len(bv.Keys) {
			return false
		}
		for _, k := range av.Keys {
			ac, _ := av.Get(k)
			bc, ok := bv.Get(k)
			if !ok || !Equal(ac, bc) {
				return false
			}
		}
		return true
	case nil:
		return b == nil
	default:
		return false
	}
}
