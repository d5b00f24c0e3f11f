package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dataregistry/ingestpipe/internal/graphmodel"
	"github.com/dataregistry/ingestpipe/internal/schemamodel"
)

func hashOf(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func TestAssignUsesIdentityKeyWhenPresent(t *testing.T) {
	schemas := map[string]*schemamodel.EntitySchema{
		"Person": {
			Label: "Person",
			IdentityKeys: []schemamodel.IdentityKey{
				{Priority: 1, WhenExists: []string{"taxpayer_id"}, Properties: []string{"taxpayer_id"}},
			},
		},
	}
	inst := &graphmodel.EntityInstance{
		Label:      "Person",
		ScopeID:    "doc-1:m1:0:Person",
		Properties: map[string]any{"taxpayer_id": "12345"},
	}
	Assign([]*graphmodel.EntityInstance{inst}, "doc-1", schemas)
	require.Equal(t, hashOf("Person|12345"), inst.NodeID)
}

func TestAssignNormalizesPropertyValuesBeforeHashing(t *testing.T) {
	schemas := map[string]*schemamodel.EntitySchema{
		"Person": {
			Label: "Person",
			Properties: []schemamodel.PropertySchema{
				{Name: "name", Normalize: []string{"trim", "lower"}},
			},
			IdentityKeys: []schemamodel.IdentityKey{
				{Priority: 1, WhenExists: []string{"name"}, Properties: []string{"name"}},
			},
		},
	}
	inst := &graphmodel.EntityInstance{
		Label:      "Person",
		ScopeID:    "x",
		Properties: map[string]any{"name": "  Alice  "},
	}
	Assign([]*graphmodel.EntityInstance{inst}, "doc-1", schemas)
	require.Equal(t, hashOf("Person|alice"), inst.NodeID)
}

func TestAssignPrefersLowerPriorityKey(t *testing.T) {
	schemas := map[string]*schemamodel.EntitySchema{
		"Person": {
			Label: "Person",
			IdentityKeys: []schemamodel.IdentityKey{
				{Priority: 2, WhenExists: []string{"name"}, Properties: []string{"name"}},
				{Priority: 1, WhenExists: []string{"taxpayer_id"}, Properties: []string{"taxpayer_id"}},
			},
		},
	}
	inst := &graphmodel.EntityInstance{
		Label:      "Person",
		ScopeID:    "doc-1:m1:0:Person",
		Properties: map[string]any{"name": "Alice", "taxpayer_id": "999"},
	}
	Assign([]*graphmodel.EntityInstance{inst}, "doc-1", schemas)
	require.Equal(t, hashOf("Person|999"), inst.NodeID)
}

func TestAssignSkipsKeyMissingRequiredProperty(t *testing.T) {
	schemas := map[string]*schemamodel.EntitySchema{
		"Person": {
			Label: "Person",
			IdentityKeys: []schemamodel.IdentityKey{
				{Priority: 1, WhenExists: []string{"taxpayer_id"}, Properties: []string{"taxpayer_id"}},
				{Priority: 2, WhenExists: []string{"name"}, Properties: []string{"name"}},
			},
		},
	}
	inst := &graphmodel.EntityInstance{
		Label:      "Person",
		ScopeID:    "doc-1:m1:0:Person",
		Properties: map[string]any{"name": "Alice"},
	}
	Assign([]*graphmodel.EntityInstance{inst}, "doc-1", schemas)
	require.Equal(t, hashOf("Person|Alice"), inst.NodeID)
}

func TestAssignFallsBackWhenNoIdentityKeyMatches(t *testing.T) {
	schemas := map[string]*schemamodel.EntitySchema{
		"Person": {Label: "Person", IdentityKeys: []schemamodel.IdentityKey{
			{Priority: 1, WhenExists: []string{"taxpayer_id"}, Properties: []string{"taxpayer_id"}},
		}},
	}
	inst := &graphmodel.EntityInstance{
		Label:      "Person",
		ScopeID:    "doc-1:m1:0:Person",
		Properties: map[string]any{"name": "Alice"},
	}
	Assign([]*graphmodel.EntityInstance{inst}, "doc-1", schemas)
	require.Equal(t, "DOCSCOPED:doc-1:doc-1:m1:0:Person", inst.NodeID)
}

func TestAssignFallsBackWhenLabelUnknown(t *testing.T) {
	inst := &graphmodel.EntityInstance{Label: "Unknown", ScopeID: "doc-1:m1:0:Unknown"}
	Assign([]*graphmodel.EntityInstance{inst}, "doc-1", map[string]*schemamodel.EntitySchema{})
	require.Equal(t, "DOCSCOPED:doc-1:doc-1:m1:0:Unknown", inst.NodeID)
}

func TestAssignIsDeterministicAcrossCalls(t *testing.T) {
	schemas := map[string]*schemamodel.EntitySchema{
		"Person": {Label: "Person", IdentityKeys: []schemamodel.IdentityKey{
			{Priority: 1, WhenExists: []string{"taxpayer_id"}, Properties: []string{"taxpayer_id"}},
		}},
	}
	mk := func() *graphmodel.EntityInstance {
		return &graphmodel.EntityInstance{Label: "Person", ScopeID: "x", Properties: map[string]any{"taxpayer_id": "1"}}
	}
	a, b := mk(), mk()
	Assign([]*graphmodel.EntityInstance{a}, "doc-1", schemas)
	Assign([]*graphmodel.EntityInstance{b}, "doc-2", schemas)
	require.Equal(t, a.NodeID, b.NodeID)
}
