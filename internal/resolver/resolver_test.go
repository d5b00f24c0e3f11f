package resolver

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dataregistry/ingestpipe/internal/predicate"
	"github.com/dataregistry/ingestpipe/internal/schemamodel"
	"github.com/dataregistry/ingestpipe/internal/tree"
)

// docWithUnzr builds the merged {meta, data} envelope the resolver actually
// evaluates against (matching canonical.CanonicalDocument.Wrap and the
// original's "$.data.root.result.unzr"-style schema-authored paths).
func docWithUnzr() tree.Node {
	root := tree.NewMapping()
	result := tree.NewMapping()
	result.Set("unzr", tree.NewScalar("1234567890"))
	dataRoot := tree.NewMapping()
	dataRoot.Set("result", result)
	data := tree.NewMapping()
	data.Set("root", dataRoot)
	root.Set("data", data)
	meta := tree.NewMapping()
	meta.Set("registry_code", tree.NewScalar("WRONG_CODE"))
	root.Set("meta", meta)
	return root
}

func eisPersonRegister() schemamodel.RegisterSchema {
	return schemamodel.RegisterSchema{
		RegistryCode: "EIS",
		ServiceCode:  "PERSON",
		Variants: []schemamodel.Variant{
			{
				VariantID: "eis_person_v1",
				Priority:  100,
				MatchPredicate: predicate.Predicate{
					All: []predicate.Rule{{Kind: predicate.KindExists, Path: "$.data.root.result.unzr"}},
				},
			},
		},
	}
}

func TestResolveIgnoresMetaRegistryCodeMismatch(t *testing.T) {
	// The document's meta.registry_code does not match "EIS" at all, but
	// the resolver must not pre-filter on it — only the predicate matters.
	res := Resolve(docWithUnzr(), []schemamodel.RegisterSchema{eisPersonRegister()})
	require.Equal(t, OutcomeMatched, res.Outcome)
	require.Equal(t, "eis_person_v1", res.Variant.VariantID)
}

func TestResolveNoMatchWhenNoPredicateSatisfied(t *testing.T) {
	root := tree.NewMapping()
	res := Resolve(root, []schemamodel.RegisterSchema{eisPersonRegister()})
	require.Equal(t, OutcomeNoMatch, res.Outcome)
	require.NotNil(t, res.Diagnostic)
	require.Len(t, res.Candidates, 1)
	require.False(t, res.Candidates[0].Matched)
}

func TestResolveAmbiguousOnTiedTopScore(t *testing.T) {
	doc := docWithUnzr()
	rsA := schemamodel.RegisterSchema{
		RegistryCode: "A",
		Variants: []schemamodel.Variant{
			{VariantID: "a_v1", MatchPredicate: predicate.Predicate{
				All: []predicate.Rule{{Kind: predicate.KindExists, Path: "$.data.root.result.unzr"}},
			}},
		},
	}
	rsB := schemamodel.RegisterSchema{
		RegistryCode: "B",
		Variants: []schemamodel.Variant{
			{VariantID: "b_v1", MatchPredicate: predicate.Predicate{
				All: []predicate.Rule{{Kind: predicate.KindExists, Path: "$.data.root.result.unzr"}},
			}},
		},
	}
	res := Resolve(doc, []schemamodel.RegisterSchema{rsA, rsB})
	require.Equal(t, OutcomeAmbiguous, res.Outcome)
	require.NotNil(t, res.Diagnostic)
	ids := res.Diagnostic.Params["VariantIDs"].([]string)
	require.ElementsMatch(t, []string{"a_v1", "b_v1"}, ids)
}

func TestResolvePrefersHigherScoreOverTie(t *testing.T) {
	doc := docWithUnzr()
	lowScore := schemamodel.RegisterSchema{
		Variants: []schemamodel.Variant{
			{VariantID: "low", MatchPredicate: predicate.Predicate{
				All: []predicate.Rule{{Kind: predicate.KindExists, Path: "$.data.root.result.unzr"}},
			}},
		},
	}
	highScore := schemamodel.RegisterSchema{
		Variants: []schemamodel.Variant{
			{VariantID: "high", MatchPredicate: predicate.Predicate{
				All: []predicate.Rule{
					{Kind: predicate.KindExists, Path: "$.data.root.result.unzr"},
					{Kind: predicate.KindExists, Path: "$.meta.registry_code"},
				},
			}},
		},
	}
	res := Resolve(doc, []schemamodel.RegisterSchema{lowScore, highScore})
	require.Equal(t, OutcomeMatched, res.Outcome)
	require.Equal(t, "high", res.Variant.VariantID)
}

func TestResolveDiagnosticRendersCode(t *testing.T) {
	root := tree.NewMapping()
	res := Resolve(root, []schemamodel.RegisterSchema{eisPersonRegister()})
	msg := res.Diagnostic.Error()
	require.Contains(t, msg, "resolver.no_match")
}
