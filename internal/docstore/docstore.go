// Package docstore models the document-store collections the orchestrator
// writes provenance to — IngestedDocument, IngestionRun, QuarantinedDocument,
// IngestionLog — and the Backend interface spec §6 calls for, grounded on
// the original's models/mongo.py and services/sinks/{base,json_store}.py.
package docstore

import "time"

type IngestionStatus string

const (
	StatusPending     IngestionStatus = "pending"
	StatusProcessed   IngestionStatus = "processed"
	StatusQuarantined IngestionStatus = "quarantined"
	StatusFailed      IngestionStatus = "failed"
	StatusSkipped     IngestionStatus = "skipped"
)

type ParseStatus string

const (
	ParseOK          ParseStatus = "ok"
	ParseError       ParseStatus = "parse_error"
	ParseCorrupt     ParseStatus = "corrupt"
	ParseUnsupported ParseStatus = "unsupported"
)

type FailureCategory string

const (
	FailureSchemaNotFound   FailureCategory = "schema_not_found"
	FailureVariantAmbiguous FailureCategory = "variant_ambiguous"
	FailureImmutableConflict FailureCategory = "immutable_conflict"
	FailureMappingError     FailureCategory = "mapping_error"
	FailureParseError       FailureCategory = "parse_error"
	FailureSinkError        FailureCategory = "sink_error"
	FailureTimeout          FailureCategory = "timeout"
	FailureOther            FailureCategory = "other"
)

type RunStatus string

const (
	RunRunning RunStatus = "running"
	RunSuccess RunStatus = "success"
	RunWarning RunStatus = "warning"
	RunFailed  RunStatus = "failed"
)

type LogStatus string

const (
	LogSuccess LogStatus = "success"
	LogWarning LogStatus = "warning"
	LogError   LogStatus = "error"
	LogSkipped LogStatus = "skipped"
)

// RawContent records the provenance of the bytes read from the input
// source, before canonicalization.
type RawContent struct {
	FilePath     string
	ContentType  string
	Encoding     string
	ContentHash  string
}

// CanonicalContent records the hash of the canonicalized {meta, data}
// document, used by spec §8's round-trip and stability properties.
type CanonicalContent struct {
	Format string
	Hash   string
}

// Classification records the registry/service/method codes the chosen
// variant's parent register schema declares.
type Classification struct {
	RegistryCode string
	ServiceCode  string
	MethodCode   string
}

// SchemaRef identifies which variant governed this document.
type SchemaRef struct {
	VariantID string
}

// FailureInfo is attached to a document on quarantine or failure.
type FailureInfo struct {
	Category FailureCategory
	Message  string
	Details  map[string]any
}

// WriteSummary mirrors the counts the graph sink returns for one document.
type WriteSummary struct {
	NodesUpserted        int
	RelationshipsCreated int
}

// IngestedDocument is the per-document provenance record, upserted by
// document_id at every pipeline stage transition.
type IngestedDocument struct {
	DocumentID      string
	RunID           string
	Raw             RawContent
	Canonical       *CanonicalContent
	Classification  *Classification
	SchemaRef       *SchemaRef
	ParseStatus     ParseStatus
	IngestionStatus IngestionStatus
	Failure         *FailureInfo
	WriteSummary    WriteSummary
	DiscoveredAt    time.Time
	LastUpdatedAt   time.Time
}

// RunMetrics accumulates counters across every document in a run.
type RunMetrics struct {
	EntitiesExtracted    int
	EntitiesUpserted     int
	RelationshipsCreated int
	ImmutableConflicts   int
}

// IngestionRun is the per-run provenance record.
type IngestionRun struct {
	RunID       string
	Status      RunStatus
	StartedAt   time.Time
	FinishedAt  *time.Time
	Metrics     RunMetrics
}

// IngestionLog is one append-only structured log line, per spec §6.
type IngestionLog struct {
	RunID      string
	DocumentID string
	Timestamp  time.Time
	Step       string
	Status     LogStatus
	Message    string
	Details    map[string]any
}

// QuarantinedDocument records a document routed to quarantine; a later
// quarantine for the same file path supersedes the old one (spec §6:
// "insert; replaces any open quarantine for the same file_path").
type QuarantinedDocument struct {
	DocumentID  string
	FilePath    string
	ContentHash string
	Reason      FailureCategory
	Message     string
	Details     map[string]any
	CreatedAt   time.Time
}

// Backend is the document-store contract spec §6 names: write_ingested,
// write_run, quarantine, log.
type Backend interface {
	WriteIngested(doc IngestedDocument) error
	WriteRun(run IngestionRun) error
	Quarantine(q QuarantinedDocument) error
	Log(entry IngestionLog) error
	Close() error
}
