// Package registry implements C4: loading entity, register, and relationship
// schemas from either a directory of schema files or a document-store
// backend, and exposing them as frozen, read-only collections for the
// resolver and mapper.
//
// This file defines the on-disk/on-wire schema DTOs — the authored shape of
// a schema document — and their translation into the pure schemamodel types
// the rest of the pipeline interprets. Keeping the DTO layer separate from
// schemamodel mirrors the teacher's struct_tags.go: tag-driven decoding lives
// at the edge, evaluation logic never sees a raw tag.
package registry

import (
	"fmt"

	"github.com/dataregistry/ingestpipe/internal/predicate"
	"github.com/dataregistry/ingestpipe/internal/schemamodel"
)

type entityFileDTO struct {
	EntityName   string            `json:"entity_name" yaml:"entity_name"`
	IdentityKeys []identityKeyDTO  `json:"identity_keys" yaml:"identity_keys"`
	Properties   []propertyDTO     `json:"properties" yaml:"properties"`
	MergePolicy  *mergePolicyDTO   `json:"merge_policy" yaml:"merge_policy"`
}

type identityKeyDTO struct {
	Priority   int      `json:"priority" yaml:"priority"`
	When       whenDTO  `json:"when" yaml:"when"`
	Properties []string `json:"properties" yaml:"properties"`
}

type whenDTO struct {
	Exists []string `json:"exists" yaml:"exists"`
}

type propertyDTO struct {
	Name       string   `json:"name" yaml:"name"`
	Type       string   `json:"type" yaml:"type"`
	Required   bool     `json:"required" yaml:"required"`
	ChangeType string   `json:"change_type" yaml:"change_type"`
	Normalize  []string `json:"normalize" yaml:"normalize"`
}

type mergePolicyDTO struct {
	ImmutableConflict     string `json:"immutable_conflict" yaml:"immutable_conflict"`
	RarelyChangedConflict string `json:"rarely_changed_conflict" yaml:"rarely_changed_conflict"`
	DynamicConflict       string `json:"dynamic_conflict" yaml:"dynamic_conflict"`
}

func (d entityFileDTO) build() *schemamodel.EntitySchema {
	es := &schemamodel.EntitySchema{
		Label:       d.EntityName,
		MergePolicy: schemamodel.DefaultMergePolicy(),
	}
	for _, k := range d.IdentityKeys {
		es.IdentityKeys = append(es.IdentityKeys, schemamodel.IdentityKey{
			Priority:   k.Priority,
			WhenExists: k.When.Exists,
			Properties: k.Properties,
		})
	}
	for _, p := range d.Properties {
		es.Properties = append(es.Properties, schemamodel.PropertySchema{
			Name:       p.Name,
			Type:       p.Type,
			Required:   p.Required,
			ChangeType: schemamodel.ChangeType(orDefault(p.ChangeType, string(schemamodel.ChangeRarelyChanged))),
			Normalize:  p.Normalize,
		})
	}
	if d.MergePolicy != nil {
		mp := schemamodel.DefaultMergePolicy()
		if d.MergePolicy.ImmutableConflict != "" {
			mp.ImmutableConflict = d.MergePolicy.ImmutableConflict
		}
		if d.MergePolicy.RarelyChangedConflict != "" {
			mp.RarelyChangedConflict = d.MergePolicy.RarelyChangedConflict
		}
		if d.MergePolicy.DynamicConflict != "" {
			mp.DynamicConflict = d.MergePolicy.DynamicConflict
		}
		es.MergePolicy = mp
	}
	return es
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

type registerFileDTO struct {
	RegistryCode string       `json:"registry_code" yaml:"registry_code"`
	ServiceCode  string       `json:"service_code" yaml:"service_code"`
	MethodCode   string       `json:"method_code" yaml:"method_code"`
	Variants     []variantDTO `json:"variants" yaml:"variants"`
}

type variantDTO struct {
	VariantID      string       `json:"variant_id" yaml:"variant_id"`
	Priority       int          `json:"priority" yaml:"priority"`
	MatchPredicate predicateDTO `json:"match_predicate" yaml:"match_predicate"`
	Mappings       []mappingDTO `json:"mappings" yaml:"mappings"`
}

type predicateDTO struct {
	All  []ruleDTO `json:"all" yaml:"all"`
	None []ruleDTO `json:"none" yaml:"none"`
}

type ruleDTO struct {
	Type    string   `json:"type" yaml:"type"`
	Path    string   `json:"path" yaml:"path"`
	Value   any      `json:"value" yaml:"value"`
	Values  []any    `json:"values" yaml:"values"`
	Pattern string   `json:"pattern" yaml:"pattern"`
}

func (d predicateDTO) build() predicate.Predicate {
	return predicate.Predicate{All: buildRules(d.All), None: buildRules(d.None)}
}

func buildRules(rules []ruleDTO) []predicate.Rule {
	out := make([]predicate.Rule, 0, len(rules))
	for _, r := range rules {
		out = append(out, predicate.Rule{
			Kind:    predicate.Kind(r.Type),
			Path:    r.Path,
			Value:   r.Value,
			Values:  r.Values,
			Pattern: r.Pattern,
		})
	}
	return out
}

type scopeDTO struct {
	Foreach string `json:"foreach" yaml:"foreach"`
}

type sourceDTO struct {
	JSONPath       string `json:"json_path" yaml:"json_path"`
	UseRootContext bool   `json:"use_root_context" yaml:"use_root_context"`
}

type mappingDTO struct {
	MappingID string        `json:"mapping_id" yaml:"mapping_id"`
	Scope     scopeDTO      `json:"scope" yaml:"scope"`
	Source    sourceDTO     `json:"source" yaml:"source"`
	Filter    *predicateDTO `json:"filter" yaml:"filter"`
	Transform *transformDTO `json:"transform" yaml:"transform"`
	Targets   []targetDTO   `json:"targets" yaml:"targets"`
	Required  bool          `json:"required" yaml:"required"`
}

type targetDTO struct {
	Entity    string `json:"entity" yaml:"entity"`
	Property  string `json:"property" yaml:"property"`
	EntityRef string `json:"entity_ref" yaml:"entity_ref"`
}

type transformDTO struct {
	Kind      string            `json:"kind" yaml:"kind"`
	Value     any               `json:"value" yaml:"value"`
	Delimiter string            `json:"delimiter" yaml:"delimiter"`
	Index     int               `json:"index" yaml:"index"`
	Pattern   string            `json:"pattern" yaml:"pattern"`
	Group     int               `json:"group" yaml:"group"`
	Mapping   map[string]string `json:"mapping" yaml:"mapping"`
	Default   *any              `json:"default" yaml:"default"`
}

func (d *transformDTO) build() *schemamodel.TransformSpec {
	if d == nil {
		return nil
	}
	spec := &schemamodel.TransformSpec{
		Kind:      d.Kind,
		Value:     d.Value,
		Delimiter: d.Delimiter,
		Index:     d.Index,
		Pattern:   d.Pattern,
		Group:     d.Group,
		Mapping:   d.Mapping,
	}
	if d.Default != nil {
		spec.HasDefault = true
		spec.Default = *d.Default
	}
	return spec
}

func (d mappingDTO) build() schemamodel.Mapping {
	m := schemamodel.Mapping{
		MappingID:      d.MappingID,
		ScopeForeach:   d.Scope.Foreach,
		SourcePath:     d.Source.JSONPath,
		UseRootContext: d.Source.UseRootContext,
		Transform:      d.Transform.build(),
		Required:       d.Required,
	}
	if d.Filter != nil {
		f := d.Filter.build()
		m.Filter = &f
	}
	for _, t := range d.Targets {
		m.Targets = append(m.Targets, schemamodel.MappingTarget{
			Entity:    t.Entity,
			Property:  t.Property,
			EntityRef: t.EntityRef,
		})
	}
	return m
}

func (d variantDTO) build() schemamodel.Variant {
	v := schemamodel.Variant{
		VariantID:      d.VariantID,
		Priority:       d.Priority,
		MatchPredicate: d.MatchPredicate.build(),
	}
	for _, m := range d.Mappings {
		v.Mappings = append(v.Mappings, m.build())
	}
	return v
}

func (d registerFileDTO) build() schemamodel.RegisterSchema {
	rs := schemamodel.RegisterSchema{
		RegistryCode: d.RegistryCode,
		ServiceCode:  d.ServiceCode,
		MethodCode:   d.MethodCode,
	}
	for _, v := range d.Variants {
		rs.Variants = append(rs.Variants, v.build())
	}
	return rs
}

type relationshipFileDTO struct {
	RelationshipName string            `json:"relationship_name" yaml:"relationship_name"`
	Type             string            `json:"type" yaml:"type"`
	FromLabel        string            `json:"from_label" yaml:"from_label"`
	ToLabel          string            `json:"to_label" yaml:"to_label"`
	CreationRules    []creationRuleDTO `json:"creation_rules" yaml:"creation_rules"`
}

type creationRuleDTO struct {
	FromRef    string            `json:"from_ref" yaml:"from_ref"`
	ToRef      string            `json:"to_ref" yaml:"to_ref"`
	Properties []rulePropertyDTO `json:"properties" yaml:"properties"`
}

type rulePropertyDTO struct {
	Name      string `json:"name" yaml:"name"`
	Value     any    `json:"value" yaml:"value"`
	ValueFrom string `json:"value_from" yaml:"value_from"`
}

func (d relationshipFileDTO) build() schemamodel.RelationshipSchema {
	rs := schemamodel.RelationshipSchema{
		Name:      d.RelationshipName,
		FromLabel: d.FromLabel,
		Type:      d.Type,
		ToLabel:   d.ToLabel,
	}
	for _, r := range d.CreationRules {
		rule := schemamodel.CreationRule{FromRef: r.FromRef, ToRef: r.ToRef}
		for _, p := range r.Properties {
			rule.Properties = append(rule.Properties, schemamodel.RuleProperty{
				Name:      p.Name,
				Value:     p.Value,
				ValueFrom: p.ValueFrom,
			})
		}
		rs.CreationRules = append(rs.CreationRules, rule)
	}
	return rs
}

// kindOf inspects a generically-decoded schema document for its
// discriminator field, the same dispatch the original JsonSchemaRegistry.load
// used ("entity_name" / "registry_code" / "relationship_name").
func kindOf(doc map[string]any) (string, error) {
	switch {
	case doc["entity_name"] != nil:
		return "entity", nil
	case doc["registry_code"] != nil:
		return "register", nil
	case doc["relationship_name"] != nil:
		return "relationship", nil
	default:
		return "", fmt.Errorf("registry: schema document has no recognized discriminator field")
	}
}
