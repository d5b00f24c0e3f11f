package docstore

import (
	"database/sql"
	"fmt"

	gojson "github.com/goccy/go-json"
	_ "modernc.org/sqlite"
)

// SQLiteBackend persists the same four collections into sqlite tables,
// standing in for the original's Mongo-backed stores (MongoDocumentStore,
// MongoLogStore, MongoQuarantineStore) — see DESIGN.md's networked-store
// Open Question decision.
type SQLiteBackend struct {
	db *sql.DB
}

func NewSQLiteBackend(db *sql.DB) (*SQLiteBackend, error) {
	b := &SQLiteBackend{db: db}
	if err := b.ensureSchema(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *SQLiteBackend) ensureSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS ingested_documents (document_id TEXT PRIMARY KEY, data TEXT NOT NULL)`,
		`CREATE TABLE IF NOT EXISTS ingestion_runs (run_id TEXT PRIMARY KEY, data TEXT NOT NULL)`,
		`CREATE TABLE IF NOT EXISTS ingestion_logs (id INTEGER PRIMARY KEY AUTOINCREMENT, data TEXT NOT NULL)`,
		`CREATE TABLE IF NOT EXISTS quarantined_documents (file_path TEXT PRIMARY KEY, data TEXT NOT NULL)`,
	}
	for _, s := range stmts {
		if _, err := b.db.Exec(s); err != nil {
			return fmt.Errorf("docstore: ensure schema: %w", err)
		}
	}
	return nil
}

func (b *SQLiteBackend) WriteIngested(doc IngestedDocument) error {
	data, err := gojson.Marshal(doc)
	if err != nil {
		return err
	}
	_, err = b.db.Exec(
		`INSERT INTO ingested_documents (document_id, data) VALUES (?, ?)
		 ON CONFLICT(document_id) DO UPDATE SET data = excluded.data`,
		doc.DocumentID, string(data),
	)
	if err != nil {
		return fmt.Errorf("docstore: write ingested document: %w", err)
	}
	return nil
}

func (b *SQLiteBackend) WriteRun(run IngestionRun) error {
	data, err := gojson.Marshal(run)
	if err != nil {
		return err
	}
	_, err = b.db.Exec(
		`INSERT INTO ingestion_runs (run_id, data) VALUES (?, ?)
		 ON CONFLICT(run_id) DO UPDATE SET data = excluded.data`,
		run.RunID, string(data),
	)
	if err != nil {
		return fmt.Errorf("docstore: write run: %w", err)
	}
	return nil
}

// Quarantine replaces any open quarantine row for the same file path,
// matching the original's delete-then-insert MongoQuarantineStore behavior.
func (b *SQLiteBackend) Quarantine(q QuarantinedDocument) error {
	data, err := gojson.Marshal(q)
	if err != nil {
		return err
	}
	_, err = b.db.Exec(
		`INSERT INTO quarantined_documents (file_path, data) VALUES (?, ?)
		 ON CONFLICT(file_path) DO UPDATE SET data = excluded.data`,
		q.FilePath, string(data),
	)
	if err != nil {
		return fmt.Errorf("docstore: quarantine: %w", err)
	}
	return nil
}

func (b *SQLiteBackend) Log(entry IngestionLog) error {
	data, err := gojson.Marshal(entry)
	if err != nil {
		return err
	}
	_, err = b.db.Exec(`INSERT INTO ingestion_logs (data) VALUES (?)`, string(data))
	if err != nil {
		return fmt.Errorf("docstore: log: %w", err)
	}
	return nil
}

func (b *SQLiteBackend) Close() error { return nil }
