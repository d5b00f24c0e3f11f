// Package mapper implements C6: executing a variant's mappings against a
// canonical document to produce entity instances. Scopes and sources are
// resolved with the path engine, filters with the predicate engine, and
// values are transformed through the transform dispatch table before being
// routed to targets.
package mapper

import (
	"fmt"

	"github.com/dataregistry/ingestpipe/internal/graphmodel"
	"github.com/dataregistry/ingestpipe/internal/pathexpr"
	"github.com/dataregistry/ingestpipe/internal/predicate"
	"github.com/dataregistry/ingestpipe/internal/schemamodel"
	"github.com/dataregistry/ingestpipe/internal/transform"
	"github.com/dataregistry/ingestpipe/internal/tree"
)

// MappingError reports a required-source or path failure in one mapping,
// classified under the "mapping_error" quarantine category.
type MappingError struct {
	MappingID string
	Path      string
	Reason    string
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("mapper: mapping %q: %s (path %q)", e.MappingID, e.Reason, e.Path)
}

// Arena is the append-only store of entity instances for one document,
// referenced by instance key so the mapper never holds aliasing pointers
// across scope iterations — matching the "arena + index" design note.
type Arena struct {
	order     []string
	instances map[string]*graphmodel.EntityInstance
	// mergeWarnings records properties that received more than one non-null
	// write within the document; first write wins, later ones are reported
	// here for the orchestrator's structured log.
	mergeWarnings []string
}

func newArena() *Arena {
	return &Arena{instances: make(map[string]*graphmodel.EntityInstance)}
}

func (a *Arena) getOrCreate(label, entityRef, scopeRoot string) *graphmodel.EntityInstance {
	key := scopeRoot + ":" + entityRef
	if inst, ok := a.instances[key]; ok {
		return inst
	}
	inst := &graphmodel.EntityInstance{
		Label:      label,
		EntityRef:  entityRef,
		ScopeRoot:  scopeRoot,
		ScopeID:    key,
		Properties: map[string]any{},
	}
	a.instances[key] = inst
	a.order = append(a.order, key)
	return inst
}

// Instances returns the arena's entity instances in creation order, which
// is deterministic for a given document and variant (mapping declaration
// order, then scope index order).
func (a *Arena) Instances() []*graphmodel.EntityInstance {
	out := make([]*graphmodel.EntityInstance, 0, len(a.order))
	for _, k := range a.order {
		out = append(out, a.instances[k])
	}
	return out
}

// MergeWarnings reports "(scope_root, property)" pairs where a second
// non-null write was dropped in favor of the first.
func (a *Arena) MergeWarnings() []string { return a.mergeWarnings }

// Map executes every mapping in variant against doc, in declaration order,
// and returns the resulting entity instances plus any merge warnings. It
// returns a *MappingError only when a `required` source is missing or a
// mapping's path strings fail to compile — both terminal, quarantine-worthy
// conditions; a missing optional source simply contributes nothing.
func Map(doc tree.Node, documentID string, variant schemamodel.Variant) ([]*graphmodel.EntityInstance, []string, error) {
	arena := newArena()

	for _, m := range variant.Mappings {
		if err := applyMapping(doc, documentID, m, arena); err != nil {
			return nil, nil, err
		}
	}
	return arena.Instances(), arena.MergeWarnings(), nil
}

func applyMapping(doc tree.Node, documentID string, m schemamodel.Mapping, arena *Arena) error {
	scopeItems, err := resolveScope(doc, m)
	if err != nil {
		return &MappingError{MappingID: m.MappingID, Path: m.ScopeForeach, Reason: err.Error()}
	}

	for i, item := range scopeItems {
		if m.Filter != nil {
			res := predicate.Evaluate(item, *m.Filter)
			if !res.Matched {
				continue
			}
		}

		sourceRoot := item
		if m.UseRootContext {
			sourceRoot = doc
		}

		var value any
		if m.SourcePath != "" {
			val, err := pathexpr.First(sourceRoot, m.SourcePath)
			if err != nil {
				return &MappingError{MappingID: m.MappingID, Path: m.SourcePath, Reason: err.Error()}
			}
			if val == nil {
				if m.Required {
					return &MappingError{MappingID: m.MappingID, Path: m.SourcePath, Reason: "required source missing"}
				}
			} else if s, ok := val.(*tree.Scalar); ok {
				value = s.Value
			} else {
				value = tree.ToAny(val)
			}
		}

		value = transform.Apply(value, m.Transform)

		// scope_root is keyed by this mapping's own id (falling back to
		// "map"), matching the original pipeline's scheme: targets within the
		// same mapping share an instance per scope index, but sibling
		// mappings only merge onto the same instance when relationship
		// building later groups by entity_ref within a shared scope_root —
		// deliberately not merged here.
		scopeRoot := fmt.Sprintf("%s:%s:%d", documentID, mappingKey(m.MappingID), i)
		routeToTargets(arena, m, scopeRoot, documentID, value)
	}
	return nil
}

func mappingKey(id string) string {
	if id == "" {
		return "map"
	}
	return id
}

func resolveScope(doc tree.Node, m schemamodel.Mapping) ([]tree.Node, error) {
	if m.ScopeForeach == "" {
		return []tree.Node{doc}, nil
	}
	items, err := pathexpr.Values(doc, m.ScopeForeach)
	if err != nil {
		return nil, err
	}
	return items, nil
}

func routeToTargets(arena *Arena, m schemamodel.Mapping, scopeRoot, documentID string, value any) {
	for _, t := range m.Targets {
		entityRef := t.EntityRef
		if entityRef == "" {
			entityRef = t.Entity
		}
		inst := arena.getOrCreate(t.Entity, entityRef, scopeRoot)

		if value != nil {
			if _, exists := inst.Properties[t.Property]; exists {
				arena.mergeWarnings = append(arena.mergeWarnings,
					fmt.Sprintf("%s:%s", scopeRoot, t.Property))
			} else {
				inst.Properties[t.Property] = value
			}
		}
		inst.Properties["source_doc_id"] = documentID
	}
}
