package predicate

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dataregistry/ingestpipe/internal/tree"
)

func sampleDoc() tree.Node {
	return tree.FromAny(map[string]any{
		"meta": map[string]any{"registry_code": "EIS"},
		"root": map[string]any{
			"result": map[string]any{"unzr": "U1", "last_name": "Ivanov"},
		},
	})
}

func TestEvaluateAllMustMatch(t *testing.T) {
	doc := sampleDoc()
	pred := Predicate{All: []Rule{
		{Kind: KindExists, Path: "$.root.result.unzr"},
		{Kind: KindEquals, Path: "$.meta.registry_code", Value: "EIS"},
	}}
	res := Evaluate(doc, pred)
	require.True(t, res.Matched)
	require.Equal(t, 2, res.Score)
	require.Empty(t, res.Reasons)
}

func TestEvaluateShortCircuitsOnFirstAllFailure(t *testing.T) {
	doc := sampleDoc()
	pred := Predicate{All: []Rule{
		{Kind: KindEquals, Path: "$.meta.registry_code", Value: "WRONG"},
		{Kind: KindExists, Path: "$.root.result.unzr"},
	}}
	res := Evaluate(doc, pred)
	require.False(t, res.Matched)
	require.Equal(t, 0, res.Score)
	require.Len(t, res.Reasons, 1)
}

func TestEvaluateNoneHitFailsMatch(t *testing.T) {
	doc := sampleDoc()
	pred := Predicate{
		All:  []Rule{{Kind: KindExists, Path: "$.root.result.unzr"}},
		None: []Rule{{Kind: KindExists, Path: "$.root.result.last_name"}},
	}
	res := Evaluate(doc, pred)
	require.False(t, res.Matched)
	require.Equal(t, 1, res.Score)
}

func TestEvaluateInAndRegex(t *testing.T) {
	doc := sampleDoc()
	pred := Predicate{All: []Rule{
		{Kind: KindIn, Path: "$.meta.registry_code", Values: []any{"EIS", "DRFO"}},
		{Kind: KindRegex, Path: "$.root.result.last_name", Pattern: "^Iv.*v$"},
	}}
	res := Evaluate(doc, pred)
	require.True(t, res.Matched)
	require.Equal(t, 2, res.Score)
}

func TestUnknownRuleKindNeitherScoresNorFails(t *testing.T) {
	doc := sampleDoc()
	pred := Predicate{All: []Rule{
		{Kind: KindExists, Path: "$.root.result.unzr"},
		{Kind: "json_weird", Path: "$.meta.registry_code"},
	}}
	res := Evaluate(doc, pred)
	// The unknown rule does not short-circuit (unlike a failed known rule)
	// and does not contribute to the score either.
	require.Equal(t, 1, res.Score)
	require.Contains(t, res.Reasons, "unsupported_type:json_weird")
}

func TestMonotonicity_AddingRuleNeverIncreasesScore(t *testing.T) {
	doc := sampleDoc()
	base := Predicate{All: []Rule{{Kind: KindExists, Path: "$.root.result.unzr"}}}
	extended := Predicate{All: append(append([]Rule{}, base.All...),
		Rule{Kind: KindEquals, Path: "$.meta.registry_code", Value: "NOPE"})}

	baseRes := Evaluate(doc, base)
	extRes := Evaluate(doc, extended)
	require.GreaterOrEqual(t, baseRes.Score, extRes.Score)
}
