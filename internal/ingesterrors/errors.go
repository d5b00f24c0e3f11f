// Package ingesterrors is the sentinel error catalog for the pipeline,
// grouped by stage the way the teacher's errors.go groups by concern.
package ingesterrors

import "errors"

// === Canonicalization Related Errors ===
var (
	// ErrParseError is returned when a raw document cannot be parsed into
	// the canonical tree (malformed XML/JSON, unsupported encoding).
	ErrParseError = errors.New("document parse failed")

	// ErrUnsupportedFormat is returned when a document's declared or
	// detected format has no registered canonicalizer.
	ErrUnsupportedFormat = errors.New("unsupported document format")
)

// === Schema Registry Related Errors ===
var (
	// ErrSchemaNotFound is returned when a referenced entity or
	// relationship schema has no registry entry.
	ErrSchemaNotFound = errors.New("schema not found")

	// ErrSchemaFileInvalid is returned when a schema file's discriminator
	// field doesn't match any recognized schema kind.
	ErrSchemaFileInvalid = errors.New("schema file has no recognized discriminator")
)

// === Variant Resolution Related Errors ===
var (
	// ErrVariantNoMatch is returned when no register schema variant's
	// predicate matches a document.
	ErrVariantNoMatch = errors.New("no variant matched document")

	// ErrVariantAmbiguous is returned when two or more variants tie at the
	// top predicate score.
	ErrVariantAmbiguous = errors.New("variant resolution is ambiguous")
)

// === Mapping Related Errors ===
var (
	// ErrMappingError is returned when a required mapping source path
	// resolves to nothing, or a scope/source path expression is malformed.
	ErrMappingError = errors.New("mapping error")
)

// === Merge and Identity Related Errors ===
var (
	// ErrImmutableConflict is returned when an incoming value for an
	// immutable property disagrees with the value already stored.
	ErrImmutableConflict = errors.New("immutable property conflict")
)

// === Sink and Storage Related Errors ===
var (
	// ErrSinkError is returned when the graph or document store backend
	// fails to persist a batch.
	ErrSinkError = errors.New("sink write failed")

	// ErrDocumentStoreError is returned when the document store backend
	// fails to persist an ingestion record.
	ErrDocumentStoreError = errors.New("document store write failed")
)

// === Orchestration Related Errors ===
var (
	// ErrTimeout is returned when processing a single document exceeds its
	// configured deadline.
	ErrTimeout = errors.New("ingestion timed out")

	// ErrQuarantined is returned (wrapping a more specific cause) when a
	// document was routed to quarantine instead of being ingested.
	ErrQuarantined = errors.New("document quarantined")
)
