// Package schemamodel defines the declarative schema types loaded by the
// registry: entity schemas, relationship schemas, and register schemas with
// their variants and mappings. These are pure data — no evaluation logic
// lives here; the predicate, path, transform, and identity packages
// interpret them.
package schemamodel

import "github.com/dataregistry/ingestpipe/internal/predicate"

// ChangeType classifies how a property is expected to evolve across
// documents, and therefore which merge policy applies on conflict.
type ChangeType string

const (
	ChangeImmutable     ChangeType = "immutable"
	ChangeRarelyChanged ChangeType = "rarely_changed"
	ChangeDynamic       ChangeType = "dynamic"
)

// PropertySchema describes one property of an entity.
type PropertySchema struct {
	Name       string
	Type       string
	Required   bool
	ChangeType ChangeType
	Normalize  []string // e.g. "trim", "lower" — applied before identity hashing
}

// IdentityKey is one candidate identity strategy for an entity, tried in
// priority order by the identity engine.
type IdentityKey struct {
	Priority   int
	WhenExists []string // properties that must all be present (non-null)
	Properties []string // properties joined (in order) to form the identity string
}

// MergePolicy maps each ChangeType to how conflicting values are reconciled.
type MergePolicy struct {
	ImmutableConflict     string // "quarantine"
	RarelyChangedConflict string // "keep_existing_and_warn"
	DynamicConflict       string // "latest_by_source_time"
}

// DefaultMergePolicy matches the original EntitySchema.merge_policy defaults.
func DefaultMergePolicy() MergePolicy {
	return MergePolicy{
		ImmutableConflict:     "quarantine",
		RarelyChangedConflict: "keep_existing_and_warn",
		DynamicConflict:       "latest_by_source_time",
	}
}

// EntitySchema declares one entity label's identity strategy, properties,
// and merge policy.
type EntitySchema struct {
	Label        string
	IdentityKeys []IdentityKey
	Properties   []PropertySchema
	MergePolicy  MergePolicy
}

// PropertyByName looks up a property schema by name.
func (e *EntitySchema) PropertyByName(name string) (PropertySchema, bool) {
	for _, p := range e.Properties {
		if p.Name == name {
			return p, true
		}
	}
	return PropertySchema{}, false
}

// RuleProperty is a relationship creation rule's constant or
// property-sourced assignment.
type RuleProperty struct {
	Name      string
	Value     any    // constant, if ValueFrom is empty
	ValueFrom string // a property name, read from the from-entity, else the to-entity, if non-empty
}

// CreationRule binds from/to entity references within a shared scope and
// attaches optional edge properties.
type CreationRule struct {
	FromRef    string
	ToRef      string
	Properties []RuleProperty
}

// RelationshipSchema declares one directed, typed edge kind.
type RelationshipSchema struct {
	Name         string
	FromLabel    string
	Type         string
	ToLabel      string
	CreationRules []CreationRule
}

// MappingTarget assigns one extracted/transformed value to a property of an
// entity instance.
type MappingTarget struct {
	Entity     string
	Property   string
	EntityRef  string
}

// TransformSpec configures one of the mapper's recognized transform kinds;
// see the transform package for the dispatch table this drives.
type TransformSpec struct {
	Kind      string
	Value     any               // constant
	Delimiter string            // split
	Index     int               // split
	Pattern   string            // regex
	Group     int               // regex
	Mapping   map[string]string // map
	Default   any               // map
	HasDefault bool
}

// Mapping is one declarative extraction rule within a variant.
type Mapping struct {
	MappingID       string
	ScopeForeach    string // path, relative to document root; empty = document root
	SourcePath      string // path, relative to scope item (or root, see UseRootContext)
	UseRootContext  bool
	Filter          *predicate.Predicate
	Transform       *TransformSpec
	Targets         []MappingTarget
	Required        bool
}

// Variant is one selectable configuration within a register schema.
type Variant struct {
	VariantID      string
	Priority       int
	MatchPredicate predicate.Predicate
	Mappings       []Mapping
}

// RegisterSchema groups variants under a registry/service/method
// classification.
type RegisterSchema struct {
	RegistryCode string
	ServiceCode  string
	MethodCode   string
	Variants     []Variant
}
