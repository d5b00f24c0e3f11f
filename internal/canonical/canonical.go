// Package canonical implements C3: format sniffing and normalization of raw
// document bytes into the canonical {meta, data} tree. It tries a chain of
// adapters (JSON, XML) and falls back to an opaque preview when none can
// structurally decode the bytes, so every raw document — however malformed —
// produces a CanonicalDocument rather than an error return.
package canonical

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/goccy/go-json"

	"github.com/dataregistry/ingestpipe/internal/tree"
)

// RawDocument is the canonicalizer's input: immutable bytes plus provenance.
// Never mutated after construction.
type RawDocument struct {
	FilePath    string
	ContentType string
	Bytes       []byte
	Encoding    string
	ContentHash string
}

// Sha256Hex hashes b and renders it as lowercase hex.
func Sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// NewRawDocument reads no I/O itself; it wraps bytes already read by the
// caller (the orchestrator's reader), sniffing content type and hashing.
func NewRawDocument(filePath string, data []byte) RawDocument {
	return RawDocument{
		FilePath:    filePath,
		ContentType: DetectContentType(filePath, data),
		Bytes:       data,
		Encoding:    "utf-8",
		ContentHash: Sha256Hex(data),
	}
}

// DetectContentType sniffs content type from leading bytes, then file
// extension, then falls back to application/octet-stream.
func DetectContentType(filePath string, raw []byte) string {
	s := strings.TrimSpace(string(firstN(raw, 64)))
	switch {
	case strings.HasPrefix(s, "{"), strings.HasPrefix(s, "["):
		return "application/json"
	case strings.HasPrefix(s, "<"):
		return "application/xml"
	}

	lower := strings.ToLower(filePath)
	switch {
	case strings.HasSuffix(lower, ".json"):
		return "application/json"
	case strings.HasSuffix(lower, ".xml"):
		return "application/xml"
	}
	return "application/octet-stream"
}

func firstN(b []byte, n int) []byte {
	if len(b) < n {
		return b
	}
	return b[:n]
}

// CanonicalDocument is the canonicalizer's output: the uniform tree every
// downstream component (path engine, predicate engine, mapper) consumes.
type CanonicalDocument struct {
	FilePath      string
	ContentType   string
	RawHash       string
	CanonicalHash string
	Meta          map[string]any
	Data          tree.Node
	ParseError    string
}

// Adapter decodes one content type into a canonical tree.
type Adapter interface {
	CanHandle(raw RawDocument) bool
	Process(raw RawDocument) CanonicalDocument
}

// Canonicalizer chains adapters in priority order.
type Canonicalizer struct {
	adapters []Adapter
}

// New returns a Canonicalizer wired with the JSON and XML adapters, in the
// order the original pipeline tries them.
func New() *Canonicalizer {
	return &Canonicalizer{adapters: []Adapter{
		&JSONAdapter{},
		&XMLAdapter{},
	}}
}

// Canonicalize runs raw through the first adapter that claims it, or falls
// back to an opaque preview document for content types no adapter handles.
func (c *Canonicalizer) Canonicalize(raw RawDocument) CanonicalDocument {
	for _, a := range c.adapters {
		if a.CanHandle(raw) {
			return a.Process(raw)
		}
	}
	return fallbackDocument(raw)
}

func fallbackDocument(raw RawDocument) CanonicalDocument {
	rawHash := raw.ContentHash
	if rawHash == "" {
		rawHash = Sha256Hex(raw.Bytes)
	}
	meta := map[string]any{"file_path": raw.FilePath, "content_type": raw.ContentType}
	preview := previewString(raw.Bytes)
	data := tree.FromAny(map[string]any{"_raw_preview": preview})

	canonicalBytes := serialize(meta, data)
	return CanonicalDocument{
		FilePath:      raw.FilePath,
		ContentType:   raw.ContentType,
		RawHash:       rawHash,
		CanonicalHash: Sha256Hex(canonicalBytes),
		Meta:          meta,
		Data:          data,
		ParseError:    "unsupported_content_type: " + raw.ContentType,
	}
}

func previewString(b []byte) string {
	const max = 500
	if len(b) > max {
		b = b[:max]
	}
	return strings.ToValidUTF8(string(b), "�")
}

// Wrap builds the merged {meta, data} tree that the resolver and mapper
// actually evaluate paths against — matching the original's
// `canonical_dict = {"meta": ..., "data": ...}` convention, where every
// schema-authored path is written relative to this envelope (e.g.
// "$.data.root.result.unzr", "$.meta.registry_code").
func (c CanonicalDocument) Wrap() tree.Node {
	root := tree.NewMapping()
	root.Set("meta", tree.FromAny(c.Meta))
	root.Set("data", c.Data)
	return root
}

// serialize renders {meta, data} deterministically: sorted keys, no
// insignificant whitespace — the exact shape canonical_hash is computed
// over, and the shape the round-trip property test re-parses.
func serialize(meta map[string]any, data tree.Node) []byte {
	payload := map[string]any{"meta": meta, "data": tree.ToAny(data)}
	// goccy/go-json sorts map keys by default (encoding/json-compatible),
	// which is what makes canonical_hash stable across runs.
	b, err := json.Marshal(payload)
	if err != nil {
		// payload is built entirely from tree.ToAny output (maps, slices,
		// scalars); this would indicate a Node producing an unencodable value.
		return nil
	}
	return b
}
