package relbuild

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dataregistry/ingestpipe/internal/graphmodel"
	"github.com/dataregistry/ingestpipe/internal/schemamodel"
)

func TestBuildCrossProductsWithinSharedScope(t *testing.T) {
	instances := []*graphmodel.EntityInstance{
		{Label: "Person", EntityRef: "person", ScopeRoot: "doc-1:m1:0", NodeID: "p1"},
		{Label: "Vehicle", EntityRef: "vehicle", ScopeRoot: "doc-1:m1:0", NodeID: "v1"},
	}
	schemas := []schemamodel.RelationshipSchema{
		{
			Name:      "owns",
			Type:      "OWNS",
			FromLabel: "Person",
			ToLabel:   "Vehicle",
			CreationRules: []schemamodel.CreationRule{
				{FromRef: "person", ToRef: "vehicle"},
			},
		},
	}
	rels := Build("doc-1", instances, schemas)
	require.Len(t, rels, 1)
	require.Equal(t, "OWNS", rels[0].Type)
	require.Equal(t, "p1", rels[0].FromID)
	require.Equal(t, "v1", rels[0].ToID)
	require.Equal(t, "doc-1", rels[0].Properties["source_doc"])
}

func TestBuildDoesNotCrossScopeBoundaries(t *testing.T) {
	instances := []*graphmodel.EntityInstance{
		{Label: "Person", EntityRef: "person", ScopeRoot: "doc-1:m1:0", NodeID: "p1"},
		{Label: "Vehicle", EntityRef: "vehicle", ScopeRoot: "doc-1:m2:0", NodeID: "v1"},
	}
	schemas := []schemamodel.RelationshipSchema{
		{Type: "OWNS", CreationRules: []schemamodel.CreationRule{{FromRef: "person", ToRef: "vehicle"}}},
	}
	rels := Build("doc-1", instances, schemas)
	require.Empty(t, rels)
}

func TestBuildDeduplicatesByKey(t *testing.T) {
	instances := []*graphmodel.EntityInstance{
		{Label: "Person", EntityRef: "person", ScopeRoot: "doc-1:m1:0", NodeID: "p1"},
		{Label: "Vehicle", EntityRef: "vehicle", ScopeRoot: "doc-1:m1:0", NodeID: "v1"},
	}
	schemas := []schemamodel.RelationshipSchema{
		{Type: "OWNS", CreationRules: []schemamodel.CreationRule{
			{FromRef: "person", ToRef: "vehicle"},
			{FromRef: "person", ToRef: "vehicle"},
		}},
	}
	rels := Build("doc-1", instances, schemas)
	require.Len(t, rels, 1)
}

func TestBuildConstantAndValueFromProperties(t *testing.T) {
	instances := []*graphmodel.EntityInstance{
		{Label: "Person", EntityRef: "person", ScopeRoot: "doc-1:m1:0", NodeID: "p1",
			Properties: map[string]any{"role": "primary"}},
		{Label: "Vehicle", EntityRef: "vehicle", ScopeRoot: "doc-1:m1:0", NodeID: "v1"},
	}
	schemas := []schemamodel.RelationshipSchema{
		{Type: "OWNS", CreationRules: []schemamodel.CreationRule{
			{
				FromRef: "person", ToRef: "vehicle",
				Properties: []schemamodel.RuleProperty{
					{Name: "since", Value: "2020"},
					{Name: "role", ValueFrom: "role"},
				},
			},
		}},
	}
	rels := Build("doc-1", instances, schemas)
	require.Len(t, rels, 1)
	require.Equal(t, "2020", rels[0].Properties["since"])
	require.Equal(t, "primary", rels[0].Properties["role"])
}
