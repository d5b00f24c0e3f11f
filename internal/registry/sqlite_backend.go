package registry

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/dataregistry/ingestpipe/internal/schemamodel"
)

// SQLiteBackend is the document-store-backed registry backend, standing in
// for the original's Mongo collections (entity_schemas, register_schemas,
// relationship_schemas) — see DESIGN.md for why sqlite rather than Mongo.
// Each table holds one JSON document per row in a `data` column; the schema
// documents are identical in shape to what FileBackend reads from disk.
type SQLiteBackend struct {
	DB *sql.DB
}

func NewSQLiteBackend(db *sql.DB) *SQLiteBackend { return &SQLiteBackend{DB: db} }

// EnsureSchema creates the three collections if they don't already exist.
func (b *SQLiteBackend) EnsureSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS entity_schemas (entity_name TEXT PRIMARY KEY, data TEXT NOT NULL)`,
		`CREATE TABLE IF NOT EXISTS register_schemas (id INTEGER PRIMARY KEY AUTOINCREMENT, data TEXT NOT NULL)`,
		`CREATE TABLE IF NOT EXISTS relationship_schemas (id INTEGER PRIMARY KEY AUTOINCREMENT, data TEXT NOT NULL)`,
	}
	for _, s := range stmts {
		if _, err := b.DB.Exec(s); err != nil {
			return fmt.Errorf("registry: ensure schema: %w", err)
		}
	}
	return nil
}

func (b *SQLiteBackend) Load() (*Collections, error) {
	out := &Collections{EntitySchemas: map[string]*schemamodel.EntitySchema{}}

	if err := b.loadEntities(out); err != nil {
		return nil, err
	}
	if err := b.loadRegisters(out); err != nil {
		return nil, err
	}
	if err := b.loadRelationships(out); err != nil {
		return nil, err
	}
	return out, nil
}

func (b *SQLiteBackend) loadEntities(out *Collections) error {
	rows, err := b.DB.Query(`SELECT data FROM entity_schemas`)
	if err != nil {
		return fmt.Errorf("registry: query entity_schemas: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return fmt.Errorf("registry: scan entity_schemas row: %w", err)
		}
		var dto entityFileDTO
		if err := decode([]byte(raw), &dto, true); err != nil {
			return fmt.Errorf("registry: decode entity_schemas row: %w", err)
		}
		es := dto.build()
		out.EntitySchemas[es.Label] = es
	}
	return rows.Err()
}

func (b *SQLiteBackend) loadRegisters(out *Collections) error {
	rows, err := b.DB.Query(`SELECT data FROM register_schemas`)
	if err != nil {
		return fmt.Errorf("registry: query register_schemas: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return fmt.Errorf("registry: scan register_schemas row: %w", err)
		}
		var dto registerFileDTO
		if err := decode([]byte(raw), &dto, true); err != nil {
			return fmt.Errorf("registry: decode register_schemas row: %w", err)
		}
		out.RegisterSchemas = append(out.RegisterSchemas, dto.build())
	}
	return rows.Err()
}

func (b *SQLiteBackend) loadRelationships(out *Collections) error {
	rows, err := b.DB.Query(`SELECT data FROM relationship_schemas`)
	if err != nil {
		return fmt.Errorf("registry: query relationship_schemas: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return fmt.Errorf("registry: scan relationship_schemas row: %w", err)
		}
		var dto relationshipFileDTO
		if err := decode([]byte(raw), &dto, true); err != nil {
			return fmt.Errorf("registry: decode relationship_schemas row: %w", err)
		}
		out.RelationshipSchemas = append(out.RelationshipSchemas, dto.build())
	}
	return rows.Err()
}
