package pathexpr

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dataregistry/ingestpipe/internal/tree"
)

func doc() tree.Node {
	return tree.FromAny(map[string]any{
		"root": map[string]any{
			"result": map[string]any{
				"unzr":      "U1",
				"last_name": "Ivanov",
				"documents": []any{
					map[string]any{"series": "AA", "number": "123"},
				},
			},
		},
	})
}

func TestValuesRootMemberIndex(t *testing.T) {
	d := doc()

	v, err := First(d, "$.root.result.unzr")
	require.NoError(t, err)
	require.Equal(t, "U1", v.(*tree.Scalar).Value)

	v, err = First(d, "$.root.result.documents[0].series")
	require.NoError(t, err)
	require.Equal(t, "AA", v.(*tree.Scalar).Value)
}

func TestValuesWildcardOverSequence(t *testing.T) {
	d := doc()
	vals, err := Values(d, "$.root.result.documents[*].number")
	require.NoError(t, err)
	require.Len(t, vals, 1)
	require.Equal(t, "123", vals[0].(*tree.Scalar).Value)
}

func TestWildcardToleratesSingleton(t *testing.T) {
	d := tree.FromAny(map[string]any{"item": "solo"})
	vals, err := Values(d, "$.item[*]")
	require.NoError(t, err)
	require.Len(t, vals, 1)
	require.Equal(t, "solo", vals[0].(*tree.Scalar).Value)
}

func TestMissingKeyYieldsEmptyNotError(t *testing.T) {
	d := doc()
	vals, err := Values(d, "$.root.result.nope")
	require.NoError(t, err)
	require.Empty(t, vals)
}

func TestTypeMismatchYieldsEmpty(t *testing.T) {
	d := doc()
	// Indexing a mapping.
	vals, err := Values(d, "$.root.result[0]")
	require.NoError(t, err)
	require.Empty(t, vals)

	// Naming a scalar.
	vals, err = Values(d, "$.root.result.unzr.nested")
	require.NoError(t, err)
	require.Empty(t, vals)
}

func TestExists(t *testing.T) {
	d := doc()
	ok, err := Exists(d, "$.root.result.unzr")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = Exists(d, "$.root.result.missing")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCompileErrorOnMalformedPath(t *testing.T) {
	_, err := Compile("$.")
	require.Error(t, err)

	_, err = Compile("$[abc]")
	require.Error(t, err)

	_, err = Compile("")
	require.Error(t, err)
}

func TestCompileCachesByLiteralString(t *testing.T) {
	p1, err := Compile("$.root.result.unzr")
	require.NoError(t, err)
	p2, err := Compile("$.root.result.unzr")
	require.NoError(t, err)
	require.Same(t, p1, p2)
}
