package graphsink

import (
	"os"
	"path/filepath"
	"sync"

	gojson "github.com/goccy/go-json"

	"github.com/dataregistry/ingestpipe/internal/graphmodel"
	"github.com/dataregistry/ingestpipe/internal/schemamodel"
)

// FileSink is the file-backed graph sink: newline-delimited JSON append
// logs under outDir, plus a final graph_snapshot.json written on Close —
// grounded on the original's JsonGraphSink, extended with the mergeEngine
// so conflicts are actually detected rather than blindly appended.
type FileSink struct {
	outDir   string
	merge    *mergeEngine
	mu       sync.Mutex
	nodesLog *os.File
	relsLog  *os.File
	rels     []graphmodel.RelRecord
}

func NewFileSink(outDir string, entities map[string]*schemamodel.EntitySchema) (*FileSink, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, err
	}
	nodesLog, err := os.OpenFile(filepath.Join(outDir, "graph_nodes.jsonl"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	relsLog, err := os.OpenFile(filepath.Join(outDir, "graph_rels.jsonl"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return &FileSink{
		outDir:   outDir,
		merge:    newMergeEngine(entities),
		nodesLog: nodesLog,
		relsLog:  relsLog,
	}, nil
}

func (s *FileSink) UpsertNodes(nodes []graphmodel.NodeRecord) (Counts, []Conflict, error) {
	var allConflicts []Conflict
	count := 0
	for _, n := range nodes {
		created, conflicts := s.merge.upsert(n)
		allConflicts = append(allConflicts, conflicts...)
		count++
		_ = created

		s.mu.Lock()
		line := map[string]any{"label": n.Label, "id": n.NodeID, "properties": n.Properties}
		err := appendJSONLine(s.nodesLog, line)
		s.mu.Unlock()
		if err != nil {
			return Counts{}, allConflicts, err
		}
	}
	return Counts{NodesUpserted: count}, allConflicts, nil
}

func (s *FileSink) UpsertRelationships(rels []graphmodel.RelRecord) (Counts, error) {
	count := 0
	for _, r := range rels {
		s.merge.softCreate(r.FromLabel, r.FromID)
		s.merge.softCreate(r.ToLabel, r.ToID)

		if !s.merge.upsertRel(r) {
			continue // already persisted — same from/to/type 5-tuple
		}

		s.mu.Lock()
		s.rels = append(s.rels, r)
		line := map[string]any{
			"type":       r.Type,
			"from":       map[string]string{"label": r.FromLabel, "id": r.FromID},
			"to":         map[string]string{"label": r.ToLabel, "id": r.ToID},
			"properties": r.Properties,
		}
		err := appendJSONLine(s.relsLog, line)
		s.mu.Unlock()
		if err != nil {
			return Counts{}, err
		}
		count++
	}
	return Counts{RelationshipsCreated: count}, nil
}

// Snapshot returns the current merge table, for tests and callers that want
// an in-process view without waiting for Close to flush graph_snapshot.json.
func (s *FileSink) Snapshot() []storedNode {
	return s.merge.snapshot()
}

// Close writes the round-trip snapshot and releases the append logs.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	nodes := s.merge.snapshot()
	snapshotNodes := make([]map[string]any, 0, len(nodes))
	for _, n := range nodes {
		snapshotNodes = append(snapshotNodes, map[string]any{
			"label": n.Label, "id": n.NodeID, "properties": n.Properties,
		})
	}
	snapshotRels := make([]map[string]any, 0, len(s.rels))
	for _, r := range s.rels {
		snapshotRels = append(snapshotRels, map[string]any{
			"type":       r.Type,
			"from":       map[string]string{"label": r.FromLabel, "id": r.FromID},
			"to":         map[string]string{"label": r.ToLabel, "id": r.ToID},
			"properties": r.Properties,
		})
	}
	snapshot := map[string]any{"nodes": snapshotNodes, "relationships": snapshotRels}
	data, err := gojson.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(s.outDir, "graph_snapshot.json"), data, 0o644); err != nil {
		return err
	}
	if err := s.nodesLog.Close(); err != nil {
		return err
	}
	return s.relsLog.Close()
}

func appendJSONLine(f *os.File, v any) error {
	data, err := gojson.Marshal(v)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = f.Write(data)
	return err
}
