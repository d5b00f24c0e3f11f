package graphsink

import (
	"database/sql"
	"fmt"

	gojson "github.com/goccy/go-json"
	_ "modernc.org/sqlite"

	"github.com/dataregistry/ingestpipe/internal/graphmodel"
	"github.com/dataregistry/ingestpipe/internal/schemamodel"
)

// SQLiteSink persists the merged node/relationship table into sqlite,
// standing in for the original's Neo4jGraphSink (no labeled-property-graph
// driver exists in the retrieved corpus — see DESIGN.md). The in-memory
// mergeEngine remains the source of truth for conflict detection; this
// backend durably reflects it after every batch.
type SQLiteSink struct {
	db    *sql.DB
	merge *mergeEngine
}

func NewSQLiteSink(db *sql.DB, entities map[string]*schemamodel.EntitySchema) (*SQLiteSink, error) {
	s := &SQLiteSink{db: db, merge: newMergeEngine(entities)}
	if err := s.ensureSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteSink) ensureSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS graph_nodes (label TEXT NOT NULL, node_id TEXT NOT NULL, properties TEXT NOT NULL, PRIMARY KEY (label, node_id))`,
		`CREATE TABLE IF NOT EXISTS graph_relationships (type TEXT NOT NULL, from_label TEXT NOT NULL, from_id TEXT NOT NULL, to_label TEXT NOT NULL, to_id TEXT NOT NULL, properties TEXT NOT NULL, PRIMARY KEY (type, from_label, from_id, to_label, to_id))`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("graphsink: ensure schema: %w", err)
		}
	}
	return nil
}

func (s *SQLiteSink) UpsertNodes(nodes []graphmodel.NodeRecord) (Counts, []Conflict, error) {
	var allConflicts []Conflict
	for _, n := range nodes {
		_, conflicts := s.merge.upsert(n)
		allConflicts = append(allConflicts, conflicts...)

		stored, ok := s.merge.nodes[nodeKey(n.Label, n.NodeID)]
		if !ok {
			continue
		}
		data, err := gojson.Marshal(stored.Properties)
		if err != nil {
			return Counts{}, allConflicts, err
		}
		_, err = s.db.Exec(
			`INSERT INTO graph_nodes (label, node_id, properties) VALUES (?, ?, ?)
			 ON CONFLICT(label, node_id) DO UPDATE SET properties = excluded.properties`,
			n.Label, n.NodeID, string(data),
		)
		if err != nil {
			return Counts{}, allConflicts, fmt.Errorf("graphsink: upsert node: %w", err)
		}
	}
	return Counts{NodesUpserted: len(nodes)}, allConflicts, nil
}

func (s *SQLiteSink) UpsertRelationships(rels []graphmodel.RelRecord) (Counts, error) {
	for _, r := range rels {
		s.merge.softCreate(r.FromLabel, r.FromID)
		s.merge.softCreate(r.ToLabel, r.ToID)
		if err := s.persistSoftCreated(r.FromLabel, r.FromID); err != nil {
			return Counts{}, err
		}
		if err := s.persistSoftCreated(r.ToLabel, r.ToID); err != nil {
			return Counts{}, err
		}

		data, err := gojson.Marshal(r.Properties)
		if err != nil {
			return Counts{}, err
		}
		_, err = s.db.Exec(
			`INSERT INTO graph_relationships (type, from_label, from_id, to_label, to_id, properties) VALUES (?, ?, ?, ?, ?, ?)
			 ON CONFLICT(type, from_label, from_id, to_label, to_id) DO UPDATE SET properties = excluded.properties`,
			r.Type, r.FromLabel, r.FromID, r.ToLabel, r.ToID, string(data),
		)
		if err != nil {
			return Counts{}, fmt.Errorf("graphsink: upsert relationship: %w", err)
		}
	}
	return Counts{RelationshipsCreated: len(rels)}, nil
}

func (s *SQLiteSink) persistSoftCreated(label, id string) error {
	var exists int
	err := s.db.QueryRow(`SELECT 1 FROM graph_nodes WHERE label = ? AND node_id = ?`, label, id).Scan(&exists)
	if err == nil {
		return nil
	}
	if err != sql.ErrNoRows {
		return fmt.Errorf("graphsink: check soft-created node: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO graph_nodes (label, node_id, properties) VALUES (?, ?, '{}')
		 ON CONFLICT(label, node_id) DO NOTHING`,
		label, id,
	)
	if err != nil {
		return fmt.Errorf("graphsink: insert soft-created node: %w", err)
	}
	return nil
}

func (s *SQLiteSink) Close() error { return nil }
