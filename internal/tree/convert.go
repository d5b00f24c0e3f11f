package tree

import "sort"

// NewScalar wraps v as a *Scalar node.
func NewScalar(v any) *Scalar { return &Scalar{Value: v} }

// FromAny builds a tree from a generic decoded value (as produced by
// encoding/json or goccy/go-json into map[string]any / []any / scalars).
// Map key order is not preserved by Go's decoders, so FromAny sorts keys to
// give each Mapping a deterministic key order regardless of which decoder
// produced the value. canonical_hash does not depend on this order: it is
// computed from ToAny's plain maps, whose keys the JSON encoder sorts.
func FromAny(v any) Node {
	switch val := v.(type) {
	case nil:
		return NewScalar(nil)
	case map[string]any:
		m := NewMapping()
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			m.Set(k, FromAny(val[k]))
		}
		return m
	case []any:
		seq := &Sequence{Items: make([]Node, 0, len(val))}
		for _, item := range val {
			seq.Items = append(seq.Items, FromAny(item))
		}
		return seq
	default:
		return NewScalar(val)
	}
}

// ToAny converts a tree back into plain Go values suitable for JSON
// marshaling — map[string]any, []any, or scalars — used for serialization
// and for equality checks against a freshly decoded document.
func ToAny(n Node) any {
	switch v := n.(type) {
	case nil:
		return nil
	case *Scalar:
		return v.Value
	case *Sequence:
		out := make([]any, 0, len(v.Items))
		for _, item := range v.Items {
			out = append(out, ToAny(item))
		}
		return out
	case *Mapping:
		out := make(map[string]any, len(v.Keys))
		for _, k := range v.Keys {
			child, _ := v.Get(k)
			out[k] = ToAny(child)
		}
		return out
	default:
		return nil
	}
}
