// Package relbuild implements C8: deriving relationship records from the
// entity instances the mapper produced for one document, by grouping
// instances under each relationship schema's creation rules.
package relbuild

import (
	"github.com/dataregistry/ingestpipe/internal/graphmodel"
	"github.com/dataregistry/ingestpipe/internal/schemamodel"
)

// Build derives relationship records for documentID's entity instances
// against every relationship schema, grouping by scope_root and
// cross-producing from_ref/to_ref pairs within each scope — exactly
// `pipeline.py`'s `_build_relationships`. Results are deduplicated by
// RelRecord.Key() so a creation rule that would otherwise fire twice for the
// same endpoint pair (e.g. a rule listed twice, or two scope groups whose
// instances carry the same node ids) only yields one edge.
func Build(documentID string, instances []*graphmodel.EntityInstance, schemas []schemamodel.RelationshipSchema) []graphmodel.RelRecord {
	scopeOrder, byScope := groupByScopeRoot(instances)

	var out []graphmodel.RelRecord
	seen := make(map[[5]string]bool)

	for _, rs := range schemas {
		for _, rule := range rs.CreationRules {
			for _, scopeRoot := range scopeOrder {
				group := byScope[scopeRoot]
				fromNodes := byEntityRef(group, rule.FromRef)
				toNodes := byEntityRef(group, rule.ToRef)

				for _, from := range fromNodes {
					for _, to := range toNodes {
						rec := graphmodel.RelRecord{
							Type:       rs.Type,
							FromLabel:  from.Label,
							FromID:     from.NodeID,
							ToLabel:    to.Label,
							ToID:       to.NodeID,
							Properties: ruleProperties(rule, from, to, documentID),
							SourceDoc:  documentID,
							ScopeRoot:  scopeRoot,
							Name:       rs.Name,
						}
						key := rec.Key()
						if seen[key] {
							continue
						}
						seen[key] = true
						out = append(out, rec)
					}
				}
			}
		}
	}
	return out
}

// groupByScopeRoot groups instances by scope_root, also returning the
// scope_roots in first-seen order so Build's output stays deterministic for
// a given input order (Go map iteration is not).
func groupByScopeRoot(instances []*graphmodel.EntityInstance) ([]string, map[string][]*graphmodel.EntityInstance) {
	out := map[string][]*graphmodel.EntityInstance{}
	var order []string
	for _, inst := range instances {
		if _, ok := out[inst.ScopeRoot]; !ok {
			order = append(order, inst.ScopeRoot)
		}
		out[inst.ScopeRoot] = append(out[inst.ScopeRoot], inst)
	}
	return order, out
}

func byEntityRef(group []*graphmodel.EntityInstance, ref string) []*graphmodel.EntityInstance {
	var out []*graphmodel.EntityInstance
	for _, inst := range group {
		if inst.EntityRef == ref {
			out = append(out, inst)
		}
	}
	return out
}

// ruleProperties materializes a creation rule's edge properties: a constant
// Value, or — a supplement the original left as a TODO
// ("value_from support could be added here") — a ValueFrom lookup against
// the from-entity's extracted properties by plain key name.
func ruleProperties(rule schemamodel.CreationRule, from, to *graphmodel.EntityInstance, documentID string) map[string]any {
	props := map[string]any{"source_doc": documentID}
	for _, p := range rule.Properties {
		if p.ValueFrom != "" {
			if v, ok := from.Properties[p.ValueFrom]; ok && v != nil {
				props[p.Name] = v
				continue
			}
			if v, ok := to.Properties[p.ValueFrom]; ok && v != nil {
				props[p.Name] = v
			}
			continue
		}
		if p.Value != nil {
			props[p.Name] = p.Value
		}
	}
	return props
}
