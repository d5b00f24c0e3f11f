// Package transform implements the mapper's value-to-value transform
// kinds (constant, trim, collapse_spaces, upper/lower, to_int, split,
// regex, map, clean). Transforms never panic or return an error to the
// caller: an incompatible input simply yields nil, matching the source
// pipeline's apply_transforms/apply_transformation semantics. Dispatch is a
// table built once, not a type switch repeated at every call site — the
// same shape as the teacher's keyword dispatch table.
package transform

import (
	"strconv"
	"strings"

	"github.com/dataregistry/ingestpipe/internal/regexcache"
	"github.com/dataregistry/ingestpipe/internal/schemamodel"
)

// Func applies one transform kind to a value.
type Func func(value any, spec *schemamodel.TransformSpec) any

var dispatch = map[string]Func{
	"constant":        constantFn,
	"trim":            trimFn,
	"collapse_spaces": collapseSpacesFn,
	"upper":           upperFn,
	"lower":           lowerFn,
	"to_int":          toIntFn,
	"split":           splitFn,
	"regex":           regexFn,
	"map":             mapFn,
	"clean":           cleanFn,
}

// Apply runs spec against value. An unrecognized kind passes value through
// unchanged, mirroring the original's "else: return value" fallthrough.
func Apply(value any, spec *schemamodel.TransformSpec) any {
	if spec == nil {
		return value
	}
	if value == nil && spec.Kind != "constant" {
		return nil
	}
	fn, ok := dispatch[spec.Kind]
	if !ok {
		return value
	}
	return fn(value, spec)
}

func constantFn(_ any, spec *schemamodel.TransformSpec) any { return spec.Value }

func trimFn(value any, _ *schemamodel.TransformSpec) any {
	s, ok := value.(string)
	if !ok {
		return nil
	}
	return strings.TrimSpace(s)
}

func collapseWhitespace(s string) string {
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}

func collapseSpacesFn(value any, _ *schemamodel.TransformSpec) any {
	s, ok := value.(string)
	if !ok {
		return nil
	}
	return collapseWhitespace(s)
}

func upperFn(value any, _ *schemamodel.TransformSpec) any {
	s, ok := value.(string)
	if !ok {
		return nil
	}
	return strings.ToUpper(s)
}

func lowerFn(value any, _ *schemamodel.TransformSpec) any {
	s, ok := value.(string)
	if !ok {
		return nil
	}
	return strings.ToLower(s)
}

func toIntFn(value any, _ *schemamodel.TransformSpec) any {
	s := toComparableString(value)
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return nil
	}
	return n
}

func toComparableString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	default:
		return ""
	}
}

func splitFn(value any, spec *schemamodel.TransformSpec) any {
	s, ok := value.(string)
	if !ok {
		return nil
	}
	delim := spec.Delimiter
	if delim == "" {
		delim = ","
	}
	parts := strings.Split(s, delim)
	if spec.Index < 0 || spec.Index >= len(parts) {
		return nil
	}
	return strings.TrimSpace(parts[spec.Index])
}

func regexFn(value any, spec *schemamodel.TransformSpec) any {
	s, ok := value.(string)
	if !ok {
		return nil
	}
	re, err := regexcache.Compile(spec.Pattern)
	if err != nil {
		return nil
	}
	m, err := re.FindStringMatch(s)
	if err != nil || m == nil {
		return nil
	}
	group := spec.Group
	if group == 0 {
		group = 1
	}
	groups := m.Groups()
	if group < 0 || group >= len(groups) {
		return nil
	}
	g := groups[group]
	if len(g.Captures) == 0 {
		return nil
	}
	return g.String()
}

func mapFn(value any, spec *schemamodel.TransformSpec) any {
	key := toComparableString(value)
	if v, ok := spec.Mapping[key]; ok {
		return v
	}
	if spec.HasDefault {
		return spec.Default
	}
	return value
}

func cleanFn(value any, _ *schemamodel.TransformSpec) any {
	s, ok := value.(string)
	if !ok {
		return nil
	}
	return collapseWhitespace(strings.TrimSpace(s))
}
