// Package pathexpr implements the JSONPath-lite subset used by mapping
// scopes, sources, and predicates: $, .key, [n], and [*]. It is intentionally
// far smaller than a general JSONPath implementation — exactly the subset
// the schema registry's mappings and predicates are authored against.
package pathexpr

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/dataregistry/ingestpipe/internal/tree"
)

// tokenKind identifies one compiled path step.
type tokenKind int

const (
	tokenRoot tokenKind = iota
	tokenKey
	tokenWild
	tokenIndex
)

type token struct {
	kind tokenKind
	key  string
	idx  int
}

// Path is a compiled path expression, safe for concurrent evaluation once
// compiled — paths never mutate after Compile returns.
type Path struct {
	raw    string
	tokens []token
}

var (
	cacheMu sync.RWMutex
	cache   = map[string]*Path{}
)

// Compile parses expr into a Path, caching by literal string so repeated
// mapping/predicate evaluation across documents never re-tokenizes the same
// expression. An invalid expression is a compile-time error: it can only
// originate from a malformed schema, never from document content.
func Compile(expr string) (*Path, error) {
	cacheMu.RLock()
	if p, ok := cache[expr]; ok {
		cacheMu.RUnlock()
		return p, nil
	}
	cacheMu.RUnlock()

	toks, err := tokenize(expr)
	if err != nil {
		return nil, fmt.Errorf("pathexpr: compile %q: %w", expr, err)
	}
	p := &Path{raw: expr, tokens: toks}

	cacheMu.Lock()
	cache[expr] = p
	cacheMu.Unlock()
	return p, nil
}

// MustCompile is Compile but panics on error; intended for code paths that
// already validated expr (e.g. schema load, where a bad path is itself the
// reported load error).
func MustCompile(expr string) *Path {
	p, err := Compile(expr)
	if err != nil {
		panic(err)
	}
	return p
}

func (p *Path) String() string { return p.raw }

func tokenize(expr string) ([]token, error) {
	s := strings.TrimSpace(expr)
	if s == "" {
		return nil, fmt.Errorf("empty path")
	}

	var toks []token
	i := 0
	n := len(s)

	readKey := func(start int) (string, int) {
		j := start
		for j < n && s[j] != '.' && s[j] != '[' {
			j++
		}
		return s[start:j], j
	}

	for i < n {
		switch {
		case s[i] == '$':
			toks = append(toks, token{kind: tokenRoot})
			i++
		case s[i] == '.':
			i++
			if i >= n {
				return nil, fmt.Errorf("trailing '.' in path")
			}
			key, next := readKey(i)
			if key == "" {
				return nil, fmt.Errorf("empty member name at offset %d", i)
			}
			toks = append(toks, token{kind: tokenKey, key: key})
			i = next
		case s[i] == '[':
			end := strings.IndexByte(s[i:], ']')
			if end < 0 {
				return nil, fmt.Errorf("unterminated '[' at offset %d", i)
			}
			inner := s[i+1 : i+end]
			i += end + 1
			if inner == "*" {
				toks = append(toks, token{kind: tokenWild})
				continue
			}
			idx, err := strconv.Atoi(inner)
			if err != nil {
				return nil, fmt.Errorf("bad index %q at offset %d", inner, i)
			}
			toks = append(toks, token{kind: tokenIndex, idx: idx})
		default:
			// Bare key with no leading '.', e.g. a path that starts past '$'.
			key, next := readKey(i)
			if key == "" {
				return nil, fmt.Errorf("unexpected character %q at offset %d", s[i], i)
			}
			toks = append(toks, token{kind: tokenKey, key: key})
			i = next
		}
	}
	return toks, nil
}

// Values evaluates p against root, returning every matched value in
// traversal order. Missing keys, out-of-range indices, and type mismatches
// (indexing a mapping, naming a scalar) all yield no values — never an
// error; only the path string itself can be malformed.
func (p *Path) Values(root tree.Node) []tree.Node {
	cur := []tree.Node{root}
	for _, t := range p.tokens {
		if len(cur) == 0 {
			break
		}
		var next []tree.Node
		switch t.kind {
		case tokenRoot:
			next = cur
		case tokenKey:
			for _, item := range cur {
				m, ok := item.(*tree.Mapping)
				if !ok {
					continue
				}
				if v, ok := m.Get(t.key); ok {
					next = append(next, v)
				}
			}
		case tokenIndex:
			for _, item := range cur {
				seq, ok := item.(*tree.Sequence)
				if !ok {
					continue
				}
				if t.idx >= 0 && t.idx < len(seq.Items) {
					next = append(next, seq.Items[t.idx])
				}
			}
		case tokenWild:
			for _, item := range cur {
				next = append(next, tree.AsSequence(item)...)
			}
		}
		cur = next
	}
	return cur
}

// First returns the first value matched by p, or nil if none.
func (p *Path) First(root tree.Node) tree.Node {
	vals := p.Values(root)
	if len(vals) == 0 {
		return nil
	}
	return vals[0]
}

// Exists reports whether p matches at least one value in root.
func (p *Path) Exists(root tree.Node) bool {
	return p.First(root) != nil
}

// Values compiles expr and evaluates it against root in one call; callers
// that evaluate the same expression across many documents should Compile
// once and reuse the Path instead.
func Values(root tree.Node, expr string) ([]tree.Node, error) {
	p, err := Compile(expr)
	if err != nil {
		return nil, err
	}
	return p.Values(root), nil
}

// First compiles expr and returns the first matched value, or nil.
func First(root tree.Node, expr string) (tree.Node, error) {
	p, err := Compile(expr)
	if err != nil {
		return nil, err
	}
	return p.First(root), nil
}

// Exists compiles expr and reports whether it matches in root.
func Exists(root tree.Node, expr string) (bool, error) {
	p, err := Compile(expr)
	if err != nil {
		return false, err
	}
	return p.Exists(root), nil
}
