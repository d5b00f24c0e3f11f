package docstore

import (
	"os"
	"path/filepath"
	"sync"

	gojson "github.com/goccy/go-json"
)

// FileBackend appends newline-delimited JSON records under outDir, mirroring
// the original's JsonLogStore/JsonDocumentStore/JsonQuarantineStore layout
// (ingested_documents.jsonl, ingestion_runs.jsonl, logs/ingestion_logs.jsonl,
// quarantine/quarantined.jsonl) — one shared file handle set guarded by a
// mutex, since many workers call into this concurrently per spec §5's
// "thread-safe append" discipline.
type FileBackend struct {
	mu        sync.Mutex
	docsFile  *os.File
	runsFile  *os.File
	logFile   *os.File
	quarFile  *os.File
}

func NewFileBackend(outDir string) (*FileBackend, error) {
	if err := os.MkdirAll(filepath.Join(outDir, "logs"), 0o755); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Join(outDir, "quarantine"), 0o755); err != nil {
		return nil, err
	}
	open := func(path string) (*os.File, error) {
		return os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	}
	docsFile, err := open(filepath.Join(outDir, "ingested_documents.jsonl"))
	if err != nil {
		return nil, err
	}
	runsFile, err := open(filepath.Join(outDir, "ingestion_runs.jsonl"))
	if err != nil {
		return nil, err
	}
	logFile, err := open(filepath.Join(outDir, "logs", "ingestion_logs.jsonl"))
	if err != nil {
		return nil, err
	}
	quarFile, err := open(filepath.Join(outDir, "quarantine", "quarantined.jsonl"))
	if err != nil {
		return nil, err
	}
	return &FileBackend{docsFile: docsFile, runsFile: runsFile, logFile: logFile, quarFile: quarFile}, nil
}

func (b *FileBackend) WriteIngested(doc IngestedDocument) error {
	return b.append(b.docsFile, doc)
}

func (b *FileBackend) WriteRun(run IngestionRun) error {
	return b.append(b.runsFile, run)
}

// Quarantine appends the record. Unlike the original's MongoQuarantineStore
// (which deletes any open quarantine row for the same file_path before
// inserting), an append-only file log has no update-in-place; the reader of
// this file is expected to take the last record per file_path as current,
// which achieves the same "replaces any open quarantine" semantics spec §6
// calls for without a destructive rewrite.
func (b *FileBackend) Quarantine(q QuarantinedDocument) error {
	return b.append(b.quarFile, q)
}

func (b *FileBackend) Log(entry IngestionLog) error {
	return b.append(b.logFile, entry)
}

func (b *FileBackend) append(f *os.File, v any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, err := gojson.Marshal(v)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = f.Write(data)
	return err
}

func (b *FileBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, f := range []*os.File{b.docsFile, b.runsFile, b.logFile, b.quarFile} {
		if err := f.Close(); err != nil {
			return err
		}
	}
	return nil
}
