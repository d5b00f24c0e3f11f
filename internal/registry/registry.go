package registry

import (
	"fmt"

	"github.com/dataregistry/ingestpipe/internal/schemamodel"
)

// Collections is the frozen set of schemas a Backend produces. Once Load
// returns one, the registry treats it as read-only for the lifetime of the
// run — no hot reload, per spec §4.4.
type Collections struct {
	EntitySchemas       map[string]*schemamodel.EntitySchema
	RegisterSchemas     []schemamodel.RegisterSchema
	RelationshipSchemas []schemamodel.RelationshipSchema
}

// Backend loads schema collections from some storage medium (a directory of
// files, or a document-store connection).
type Backend interface {
	Load() (*Collections, error)
}

// Registry wraps a loaded Backend's Collections behind read-only accessors.
// It is safe for concurrent reads from many worker goroutines once Load has
// returned — no lock is taken because nothing ever mutates it afterward.
type Registry struct {
	collections *Collections
}

// New loads backend and returns an immutable Registry.
func New(backend Backend) (*Registry, error) {
	c, err := backend.Load()
	if err != nil {
		return nil, fmt.Errorf("registry: load: %w", err)
	}
	return &Registry{collections: c}, nil
}

func (r *Registry) EntitySchemas() map[string]*schemamodel.EntitySchema {
	return r.collections.EntitySchemas
}

func (r *Registry) RegisterSchemas() []schemamodel.RegisterSchema {
	return r.collections.RegisterSchemas
}

func (r *Registry) RelationshipSchemas() []schemamodel.RelationshipSchema {
	return r.collections.RelationshipSchemas
}

// EntityByLabel looks up one entity schema.
func (r *Registry) EntityByLabel(label string) (*schemamodel.EntitySchema, bool) {
	es, ok := r.collections.EntitySchemas[label]
	return es, ok
}

// ParentRegisterSchema finds the RegisterSchema that declares variantID, for
// classification bookkeeping — mirrors pipeline.py's _find_parent_schema.
func (r *Registry) ParentRegisterSchema(variantID string) (*schemamodel.RegisterSchema, bool) {
	for i := range r.collections.RegisterSchemas {
		rs := &r.collections.RegisterSchemas[i]
		for _, v := range rs.Variants {
			if v.VariantID == variantID {
				return rs, true
			}
		}
	}
	return nil, false
}
