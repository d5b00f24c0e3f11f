package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dataregistry/ingestpipe/internal/canonical"
	"github.com/dataregistry/ingestpipe/internal/docstore"
	"github.com/dataregistry/ingestpipe/internal/graphsink"
	"github.com/dataregistry/ingestpipe/internal/registry"
)

// eisPersonEntityJSON and eisRegisterJSON together ground the S1 seed
// scenario from spec §8: one Person, one Document, linked by HAS_DOCUMENT,
// extracted from an EIS-style person record. All four Document-targeting
// mappings and the three Person-targeting mappings share mapping_id "case" so
// they land in the same scope_root and relbuild can cross-product the edge.
const eisPersonEntityJSON = `{
  "entity_name": "Person",
  "identity_keys": [
    {"priority": 1, "when": {"exists": ["taxpayer_id"]}, "properties": ["taxpayer_id"]}
  ],
  "properties": [
    {"name": "taxpayer_id", "type": "string"},
    {"name": "name", "type": "string"},
    {"name": "birth_date", "type": "string", "change_type": "immutable"}
  ]
}`

const eisRegisterJSON = `{
  "registry_code": "EIS",
  "service_code": "PERSON",
  "variants": [
    {
      "variant_id": "eis_person_v1",
      "priority": 100,
      "match_predicate": {"all": [{"type": "json_exists", "path": "$.data.root.result.unzr"}]},
      "mappings": [
        {"mapping_id": "case", "source": {"json_path": "$.data.root.result.unzr"}, "required": true,
         "targets": [{"entity": "Person", "property": "taxpayer_id"}]},
        {"mapping_id": "case", "source": {"json_path": "$.data.root.result.last_name"},
         "targets": [{"entity": "Person", "property": "name"}]},
        {"mapping_id": "case", "source": {"json_path": "$.data.root.result.birth_date"},
         "targets": [{"entity": "Person", "property": "birth_date"}]},
        {"mapping_id": "case", "scope": {"foreach": "$.data.root.result.documents"},
         "source": {"json_path": "$.series"},
         "targets": [{"entity": "Document", "property": "series", "entity_ref": "Document"}]},
        {"mapping_id": "case", "scope": {"foreach": "$.data.root.result.documents"},
         "source": {"json_path": "$.number"},
         "targets": [{"entity": "Document", "property": "number", "entity_ref": "Document"}]},
        {"mapping_id": "case", "scope": {"foreach": "$.data.root.result.documents"},
         "source": {"json_path": "$.date_issue"},
         "targets": [{"entity": "Document", "property": "date_issue", "entity_ref": "Document"}]},
        {"mapping_id": "case", "scope": {"foreach": "$.data.root.result.documents"},
         "source": {"json_path": "$.dep_out"},
         "targets": [{"entity": "Document", "property": "dep_out", "entity_ref": "Document"}]}
      ]
    }
  ]
}`

const hasDocumentRelationshipJSON = `{
  "relationship_name": "has_document",
  "type": "HAS_DOCUMENT",
  "from_label": "Person",
  "to_label": "Document",
  "creation_rules": [{"from_ref": "Person", "to_ref": "Document"}]
}`

func writeSchemas(t *testing.T, dir string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "person.json"), []byte(eisPersonEntityJSON), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "eis_register.json"), []byte(eisRegisterJSON), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "has_document.json"), []byte(hasDocumentRelationshipJSON), 0o644))
}

func newOrchestrator(t *testing.T, schemasDir, outDir, runID string) (*Orchestrator, *graphsink.FileSink, *docstore.FileBackend) {
	t.Helper()
	reg, err := registry.New(registry.NewFileBackend(schemasDir))
	require.NoError(t, err)

	sink, err := graphsink.NewFileSink(outDir, reg.EntitySchemas())
	require.NoError(t, err)

	store, err := docstore.NewFileBackend(outDir)
	require.NoError(t, err)

	logger := zap.NewNop()

	return &Orchestrator{
		RunID:         runID,
		Canonicalizer: canonical.New(),
		Registry:      reg,
		GraphSink:     sink,
		DocStore:      store,
		Logger:        logger,
		WorkerCount:   2,
	}, sink, store
}

const s1Body = `{"root":{"result":{"unzr":"U1","last_name":"Ivanov","documents":[{"series":"AA","number":"123","date_issue":"2020-01-01","dep_out":"Org"}]}}}`

func TestOrchestratorS1PersonWithDocument(t *testing.T) {
	schemasDir := t.TempDir()
	outDir := t.TempDir()
	writeSchemas(t, schemasDir)

	orch, sink, store := newOrchestrator(t, schemasDir, outDir, "run1")
	defer sink.Close()
	defer store.Close()

	run := orch.Run(context.Background(), []InputDocument{{FilePath: "s1.json", Bytes: []byte(s1Body)}})
	require.Equal(t, docstore.RunSuccess, run.Status)
	require.Equal(t, 1, run.Metrics.RelationshipsCreated)

	wantPersonID := canonical.Sha256Hex([]byte("Person|U1"))

	found := false
	for _, n := range sink.Snapshot() {
		if n.Label == "Person" && n.NodeID == wantPersonID {
			found = true
			require.Equal(t, "Ivanov", n.Properties["name"])
		}
	}
	require.True(t, found, "expected a Person node with id sha256(Person|U1)")
}

func TestOrchestratorS4ImmutableConflictQuarantines(t *testing.T) {
	schemasDir := t.TempDir()
	outDir := t.TempDir()
	writeSchemas(t, schemasDir)

	orch, sink, store := newOrchestrator(t, schemasDir, outDir, "run1")
	defer sink.Close()
	defer store.Close()

	bodyA := `{"root":{"result":{"unzr":"U1","last_name":"Ivanov","birth_date":"1990-01-01","documents":[]}}}`
	runA := orch.Run(context.Background(), []InputDocument{{FilePath: "a.json", Bytes: []byte(bodyA)}})
	require.Equal(t, docstore.RunSuccess, runA.Status)

	bodyB := `{"root":{"result":{"unzr":"U1","last_name":"Ivanov","birth_date":"1990-01-02","documents":[]}}}`
	runB := orch.Run(context.Background(), []InputDocument{{FilePath: "b.json", Bytes: []byte(bodyB)}})
	require.Equal(t, docstore.RunWarning, runB.Status)
	require.Equal(t, 1, runB.Metrics.ImmutableConflicts)

	personID := canonical.Sha256Hex([]byte("Person|U1"))
	for _, n := range sink.Snapshot() {
		if n.Label == "Person" && n.NodeID == personID {
			require.Equal(t, "1990-01-01", n.Properties["birth_date"])
		}
	}
}

func TestOrchestratorS3AmbiguousQuarantines(t *testing.T) {
	schemasDir := t.TempDir()
	outDir := t.TempDir()
	writeSchemas(t, schemasDir)

	// A second register schema whose variant matches the same document with
	// an identical score (one json_exists rule), forcing a tie.
	dupRegister := `{
      "registry_code": "DUP",
      "service_code": "PERSON",
      "variants": [
        {"variant_id": "dup_person_v1", "priority": 50,
         "match_predicate": {"all": [{"type": "json_exists", "path": "$.data.root.result.unzr"}]},
         "mappings": []}
      ]
    }`
	require.NoError(t, os.WriteFile(filepath.Join(schemasDir, "dup_register.json"), []byte(dupRegister), 0o644))

	orch, sink, store := newOrchestrator(t, schemasDir, outDir, "run1")
	defer sink.Close()
	defer store.Close()

	run := orch.Run(context.Background(), []InputDocument{{FilePath: "s1.json", Bytes: []byte(s1Body)}})
	require.Equal(t, docstore.RunWarning, run.Status)
	require.Empty(t, sink.Snapshot())
}
