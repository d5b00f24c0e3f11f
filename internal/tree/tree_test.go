package tree

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMappingAppendCollapsesRepeatsIntoSequence(t *testing.T) {
	m := NewMapping()
	m.Append("document", NewScalar("a"))
	m.Append("document", NewScalar("b"))

	got, ok := m.Get("document")
	require.True(t, ok)
	seq, ok := got.(*Sequence)
	require.True(t, ok, "expected repeated key to collapse into a sequence")
	require.Len(t, seq.Items, 2)
}

func TestAsSequenceToleratesSingletons(t *testing.T) {
	require.Len(t, AsSequence(NewScalar("x")), 1)
	require.Len(t, AsSequence(nil), 0)

	seq := &Sequence{Items: []Node{NewScalar(1), NewScalar(2)}}
	require.Len(t, AsSequence(seq), 2)
}

func TestFromAnyToAnyRoundTrip(t *testing.T) {
	in := map[string]any{
		"b": 1.0,
		"a": []any{"x", "y"},
	}
	n := FromAny(in)
	out := ToAny(n)
	require.Equal(t, in, out)
}

func TestEqualStructural(t *testing.T) {
	a := FromAny(map[string]any{"k": []any{"1", "2"}})
	b := FromAny(map[string]any{"k": []any{"1", "2"}})
	require.True(t, Equal(a, b))

	c := FromAny(map[string]any{"k": []any{"1", "3"}})
	require.False(t, Equal(a, c))
}
