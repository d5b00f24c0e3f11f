package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const personEntityJSON = `{
  "entity_name": "Person",
  "identity_keys": [
    {"priority": 1, "when": {"exists": ["taxpayer_id"]}, "properties": ["taxpayer_id"]}
  ],
  "properties": [
    {"name": "taxpayer_id", "type": "string", "change_type": "immutable"},
    {"name": "name", "type": "string", "normalize": ["trim", "lower"]}
  ]
}`

const eisRegisterYAML = `
registry_code: EIS
service_code: PERSON
variants:
  - variant_id: eis_person_v1
    priority: 100
    match_predicate:
      all:
        - type: json_exists
          path: "$.data.root.result.unzr"
    mappings:
      - mapping_id: person
        source:
          json_path: "$.unzr"
        targets:
          - entity: Person
            property: taxpayer_id
`

const ownsRelationshipJSON = `{
  "relationship_name": "owns_vehicle",
  "type": "OWNS_VEHICLE",
  "from_label": "Person",
  "to_label": "Vehicle",
  "creation_rules": [
    {"from_ref": "Person", "to_ref": "Vehicle", "properties": [{"name": "since", "value": "2020"}]}
  ]
}`

func writeSchemaFiles(t *testing.T, dir string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "person.json"), []byte(personEntityJSON), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "eis_register.yaml"), []byte(eisRegisterYAML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "owns_vehicle.json"), []byte(ownsRelationshipJSON), 0o644))
}

func TestFileBackendLoadsAllThreeKinds(t *testing.T) {
	dir := t.TempDir()
	writeSchemaFiles(t, dir)

	reg, err := New(NewFileBackend(dir))
	require.NoError(t, err)

	require.Len(t, reg.EntitySchemas(), 1)
	person, ok := reg.EntityByLabel("Person")
	require.True(t, ok)
	require.Equal(t, "taxpayer_id", person.IdentityKeys[0].Properties[0])
	nameProp, ok := person.PropertyByName("name")
	require.True(t, ok)
	require.Equal(t, []string{"trim", "lower"}, nameProp.Normalize)

	require.Len(t, reg.RegisterSchemas(), 1)
	require.Equal(t, "EIS", reg.RegisterSchemas()[0].RegistryCode)
	require.Len(t, reg.RegisterSchemas()[0].Variants, 1)
	require.Equal(t, "eis_person_v1", reg.RegisterSchemas()[0].Variants[0].VariantID)

	require.Len(t, reg.RelationshipSchemas(), 1)
	require.Equal(t, "OWNS_VEHICLE", reg.RelationshipSchemas()[0].Type)
}

func TestFileBackendSkipsUnderscoredAndUnrecognizedFiles(t *testing.T) {
	dir := t.TempDir()
	writeSchemaFiles(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "_draft.json"), []byte(`{"entity_name":"Draft"}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("not a schema"), 0o644))

	reg, err := New(NewFileBackend(dir))
	require.NoError(t, err)
	require.Len(t, reg.EntitySchemas(), 1)
	_, ok := reg.EntityByLabel("Draft")
	require.False(t, ok)
}

func TestFileBackendRejectsUnrecognizedDiscriminator(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mystery.json"), []byte(`{"foo":"bar"}`), 0o644))

	_, err := New(NewFileBackend(dir))
	require.Error(t, err)
}

func TestParentRegisterSchema(t *testing.T) {
	dir := t.TempDir()
	writeSchemaFiles(t, dir)
	reg, err := New(NewFileBackend(dir))
	require.NoError(t, err)

	parent, ok := reg.ParentRegisterSchema("eis_person_v1")
	require.True(t, ok)
	require.Equal(t, "EIS", parent.RegistryCode)

	_, ok = reg.ParentRegisterSchema("nonexistent")
	require.False(t, ok)
}
