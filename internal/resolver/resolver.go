// Package resolver implements C5: selecting which register schema variant
// governs a canonical document, purely by predicate score.
//
// This deliberately diverges from the original resolve_variant_impl, which
// pre-filters register schemas by meta.registry_code/service_code/method_code
// before scoring variants. Spec §4.5 states registry codes in this corpus
// are unreliable and mandates predicate-only matching; a variant that still
// wants to require a registry code can express it as a meta.* predicate
// rule instead.
package resolver

import (
	"sort"

	"github.com/dataregistry/ingestpipe/internal/diag"
	"github.com/dataregistry/ingestpipe/internal/predicate"
	"github.com/dataregistry/ingestpipe/internal/schemamodel"
	"github.com/dataregistry/ingestpipe/internal/tree"
)

// Outcome classifies how resolution ended.
type Outcome string

const (
	OutcomeMatched   Outcome = "matched"
	OutcomeNoMatch   Outcome = "no_match"
	OutcomeAmbiguous Outcome = "ambiguous"
)

// Candidate is one variant that was scored during resolution.
type Candidate struct {
	Variant  schemamodel.Variant
	Register schemamodel.RegisterSchema
	Score    int
	Matched  bool
	Reasons  []string
}

// Result is the full outcome of a resolution attempt: the winning variant
// (only set when Outcome is OutcomeMatched), every candidate considered (for
// schema-authoring feedback), and — on no_match/ambiguous — a localizable
// Diagnostic.
type Result struct {
	Outcome    Outcome
	Variant    *schemamodel.Variant
	Register   *schemamodel.RegisterSchema
	Candidates []Candidate
	Diagnostic *diag.Diagnostic
}

// Resolve evaluates every variant of every register schema against doc and
// picks the unique top-scoring match, per spec §4.5.
func Resolve(doc tree.Node, registers []schemamodel.RegisterSchema) Result {
	var all []Candidate
	var matched []Candidate

	for _, rs := range registers {
		for _, v := range rs.Variants {
			res := predicate.Evaluate(doc, v.MatchPredicate)
			c := Candidate{Variant: v, Register: rs, Score: res.Score, Matched: res.Matched, Reasons: res.Reasons}
			all = append(all, c)
			if res.Matched {
				matched = append(matched, c)
			}
		}
	}

	if len(matched) == 0 {
		d := diag.New(diag.CodeResolverNoMatch, map[string]any{"Count": len(all)})
		return Result{Outcome: OutcomeNoMatch, Candidates: all, Diagnostic: &d}
	}

	sort.SliceStable(matched, func(i, j int) bool { return matched[i].Score > matched[j].Score })
	topScore := matched[0].Score

	var top []Candidate
	for _, c := range matched {
		if c.Score == topScore {
			top = append(top, c)
		}
	}

	if len(top) > 1 {
		ids := make([]string, len(top))
		for i, c := range top {
			ids[i] = c.Variant.VariantID
		}
		d := diag.New(diag.CodeResolverAmbiguous, map[string]any{
			"Count":      len(top),
			"Score":      topScore,
			"VariantIDs": ids,
		})
		return Result{Outcome: OutcomeAmbiguous, Candidates: all, Diagnostic: &d}
	}

	winner := top[0]
	return Result{
		Outcome:    OutcomeMatched,
		Variant:    &winner.Variant,
		Register:   &winner.Register,
		Candidates: all,
	}
}

// VariantIDs extracts the variant ids from a candidate slice, preserving
// order — for callers building a no_match diagnostic listing.
func VariantIDs(candidates []Candidate) []string {
	ids := make([]string, len(candidates))
	for i, c := range candidates {
		ids[i] = c.Variant.VariantID
	}
	return ids
}
