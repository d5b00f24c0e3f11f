// Package predicate evaluates match predicates — the all/none rule sets a
// register schema variant (or a mapping filter) is selected by. Rule kinds
// are dispatched through a table built once at init, the way the teacher
// compiler resolves JSON Schema keywords through a fixed dispatch table
// rather than a type switch sprinkled through the evaluator.
package predicate

import (
	"fmt"

	"github.com/dataregistry/ingestpipe/internal/pathexpr"
	"github.com/dataregistry/ingestpipe/internal/regexcache"
	"github.com/dataregistry/ingestpipe/internal/tree"
)

// Kind identifies a predicate rule's comparison.
type Kind string

const (
	KindExists Kind = "json_exists"
	KindEquals Kind = "json_equals"
	KindIn     Kind = "json_in"
	KindRegex  Kind = "json_regex"
)

// Rule is one clause of a match predicate.
type Rule struct {
	Kind    Kind
	Path    string
	Value   any
	Values  []any
	Pattern string
}

// Predicate is the all/none pair evaluated against a document.
type Predicate struct {
	All  []Rule
	None []Rule
}

// Result is the outcome of evaluating a Predicate: whether it matched, how
// many "all" rules were satisfied (used by the resolver to rank variants),
// and human-readable reasons for unsatisfied or unknown rules.
type Result struct {
	Matched bool
	Score   int
	Reasons []string
}

type ruleFunc func(doc tree.Node, r Rule) (bool, error)

var dispatch = map[Kind]ruleFunc{
	KindExists: evalExists,
	KindEquals: evalEquals,
	KindIn:     evalIn,
	KindRegex:  evalRegex,
}

// Evaluate runs pred against doc. On the first unsatisfied "all" rule it
// short-circuits and returns matched=false with the partial score, matching
// the original resolver's early-exit semantics. An unknown rule kind
// contributes a reason but affects neither score nor the matched verdict —
// callers (the resolver) decide how to treat it.
func Evaluate(doc tree.Node, pred Predicate) Result {
	var reasons []string
	score := 0
	unknown := 0

	for _, r := range pred.All {
		fn, ok := dispatch[r.Kind]
		if !ok {
			reasons = append(reasons, fmt.Sprintf("unsupported_type:%s", r.Kind))
			unknown++
			continue
		}
		ok2, err := fn(doc, r)
		if err != nil {
			reasons = append(reasons, fmt.Sprintf("error_%s:%s: %v", r.Kind, r.Path, err))
			return Result{Matched: false, Score: score, Reasons: reasons}
		}
		if ok2 {
			score++
			continue
		}
		reasons = append(reasons, fmt.Sprintf("failed_%s:%s", r.Kind, r.Path))
		return Result{Matched: false, Score: score, Reasons: reasons}
	}

	for _, r := range pred.None {
		fn, ok := dispatch[r.Kind]
		if !ok {
			continue
		}
		hit, err := fn(doc, r)
		if err == nil && hit {
			reasons = append(reasons, fmt.Sprintf("none_failed_%s:%s", r.Kind, r.Path))
			return Result{Matched: false, Score: score, Reasons: reasons}
		}
	}

	matched := score == len(pred.All)-unknown
	return Result{Matched: matched, Score: score, Reasons: reasons}
}

func firstValue(doc tree.Node, path string) (any, error) {
	n, err := pathexpr.First(doc, path)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, nil
	}
	s, ok := n.(*tree.Scalar)
	if !ok {
		// Non-scalar match (sequence/mapping); expose it as plain Go values
		// (map[string]any / []any) rather than failing the rule outright.
		// json_regex never matches such a value.
		return tree.ToAny(n), nil
	}
	return s.Value, nil
}

func evalExists(doc tree.Node, r Rule) (bool, error) {
	v, err := firstValue(doc, r.Path)
	if err != nil {
		return false, err
	}
	return v != nil, nil
}

func evalEquals(doc tree.Node, r Rule) (bool, error) {
	v, err := firstValue(doc, r.Path)
	if err != nil {
		return false, err
	}
	return v == r.Value, nil
}

func evalIn(doc tree.Node, r Rule) (bool, error) {
	v, err := firstValue(doc, r.Path)
	if err != nil {
		return false, err
	}
	for _, candidate := range r.Values {
		if v == candidate {
			return true, nil
		}
	}
	return false, nil
}

func evalRegex(doc tree.Node, r Rule) (bool, error) {
	v, err := firstValue(doc, r.Path)
	if err != nil {
		return false, err
	}
	s, ok := v.(string)
	if !ok {
		return false, nil
	}
	re, err := regexcache.Compile(r.Pattern)
	if err != nil {
		return false, fmt.Errorf("predicate: compile regex %q: %w", r.Pattern, err)
	}
	matched, err := re.MatchString(s)
	if err != nil {
		return false, err
	}
	return matched, nil
}
