// Package orchestrator implements C10: the document pipeline tying the
// canonicalizer, variant resolver, mapper, identity engine, relationship
// builder, and the graph/document sinks into the single per-document
// sequence spec §4.10 names, run across a bounded worker pool per §5.
// Grounded on the original's services/pipeline.py IngestionPipeline /
// ingest_file / _handle_quarantine.
package orchestrator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dataregistry/ingestpipe/internal/canonical"
	"github.com/dataregistry/ingestpipe/internal/diag"
	"github.com/dataregistry/ingestpipe/internal/docstore"
	"github.com/dataregistry/ingestpipe/internal/graphmodel"
	"github.com/dataregistry/ingestpipe/internal/graphsink"
	"github.com/dataregistry/ingestpipe/internal/identity"
	"github.com/dataregistry/ingestpipe/internal/ingestlog"
	"github.com/dataregistry/ingestpipe/internal/mapper"
	"github.com/dataregistry/ingestpipe/internal/registry"
	"github.com/dataregistry/ingestpipe/internal/relbuild"
	"github.com/dataregistry/ingestpipe/internal/resolver"
)

// InputDocument is one (file_path, bytes) pair from the reader; §6 leaves
// the reader itself (filesystem or object store) out of scope.
type InputDocument struct {
	FilePath string
	Bytes    []byte
}

// Orchestrator wires the pipeline stages together for one run.
type Orchestrator struct {
	RunID string

	Canonicalizer *canonical.Canonicalizer
	Registry      *registry.Registry
	GraphSink     graphsink.Sink
	DocStore      docstore.Backend
	Logger        *zap.Logger

	DocumentTimeout time.Duration
	RetryAttempts   int
	WorkerCount     int

	mu      sync.Mutex
	metrics docstore.RunMetrics
}

// DocumentIDFor assigns the stable document id spec §4.10 step 1 names:
// hash(file_path || run_id).
func DocumentIDFor(filePath, runID string) string {
	sum := sha256.Sum256([]byte(filePath + "|" + runID))
	return hex.EncodeToString(sum[:])
}

// Run processes docs across a bounded worker pool (typical concurrency
// 4-16 per §5) and returns the finished IngestionRun record.
func (o *Orchestrator) Run(ctx context.Context, docs []InputDocument) docstore.IngestionRun {
	startedAt := time.Now()
	run := docstore.IngestionRun{RunID: o.RunID, Status: docstore.RunRunning, StartedAt: startedAt}
	_ = o.DocStore.WriteRun(run)

	o.mu.Lock()
	o.metrics = docstore.RunMetrics{}
	o.mu.Unlock()

	workers := o.WorkerCount
	if workers <= 0 {
		workers = 8
	}
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	var anyQuarantined, anyFailed bool
	var mu sync.Mutex

	for _, d := range docs {
		sem <- struct{}{}
		wg.Add(1)
		go func(d InputDocument) {
			defer wg.Done()
			defer func() { <-sem }()

			docCtx, cancel := context.WithTimeout(ctx, o.documentTimeout())
			defer cancel()

			status := o.processOne(docCtx, d)
			mu.Lock()
			switch status {
			case docstore.StatusQuarantined:
				anyQuarantined = true
			case docstore.StatusFailed:
				anyFailed = true
			}
			mu.Unlock()
		}(d)
	}
	wg.Wait()

	finishedAt := time.Now()
	run.FinishedAt = &finishedAt
	o.mu.Lock()
	run.Metrics = o.metrics
	o.mu.Unlock()

	// Per spec §7: the run is "failed" only if the orchestrator itself
	// raises (e.g. registry failed to load, handled by the caller before
	// Run() is ever invoked). Per-document quarantine or failure — which
	// stays local to that document — only ever downgrades the run to
	// "warning".
	if anyQuarantined || anyFailed {
		run.Status = docstore.RunWarning
	} else {
		run.Status = docstore.RunSuccess
	}
	_ = o.DocStore.WriteRun(run)
	return run
}

func (o *Orchestrator) documentTimeout() time.Duration {
	if o.DocumentTimeout > 0 {
		return o.DocumentTimeout
	}
	return 60 * time.Second
}

func (o *Orchestrator) retryAttempts() int {
	if o.RetryAttempts > 0 {
		return o.RetryAttempts
	}
	return 3
}

func (o *Orchestrator) log(runID, documentID, step, status, message string) {
	if o.Logger != nil {
		ingestlog.Step(o.Logger, runID, documentID, step, status, message)
	}
	_ = o.DocStore.Log(docstore.IngestionLog{
		RunID:      runID,
		DocumentID: documentID,
		Timestamp:  time.Now(),
		Step:       step,
		Status:     docstore.LogStatus(status),
		Message:    message,
	})
}

// processOne runs the §4.10 step sequence for one document and returns its
// final IngestionStatus.
func (o *Orchestrator) processOne(ctx context.Context, d InputDocument) docstore.IngestionStatus {
	documentID := DocumentIDFor(d.FilePath, o.RunID)

	// Step 1: raw hash.
	raw := canonical.NewRawDocument(d.FilePath, d.Bytes)
	o.log(o.RunID, documentID, "read_document", "success", "read raw document")

	// Step 2: idempotence check — not performed here. Backend exposes no
	// read path (write-only per §6), so every InputDocument passed to Run is
	// processed, even one already recorded as "processed" with the same raw
	// hash; filtering such documents out is left to the caller. See
	// DESIGN.md for this Open Question's resolution.

	ingested := docstore.IngestedDocument{
		DocumentID: documentID,
		RunID:      o.RunID,
		Raw: docstore.RawContent{
			FilePath:    raw.FilePath,
			ContentType: raw.ContentType,
			Encoding:    raw.Encoding,
			ContentHash: raw.ContentHash,
		},
		ParseStatus:     docstore.ParseOK,
		IngestionStatus: docstore.StatusPending,
		DiscoveredAt:    time.Now(),
		LastUpdatedAt:   time.Now(),
	}
	_ = o.DocStore.WriteIngested(ingested)

	// Step 4: canonicalize.
	cdoc := o.Canonicalizer.Canonicalize(raw)
	ingested.Canonical = &docstore.CanonicalContent{Format: cdoc.ContentType, Hash: cdoc.CanonicalHash}
	if cdoc.ParseError != "" {
		return o.quarantine(documentID, ingested, docstore.FailureParseError,
			diag.New(diag.CodeQuarantineParseError, map[string]any{"Reason": cdoc.ParseError}).Error(), nil)
	}

	// Step 5: resolve variant against the merged {meta, data} envelope.
	envelope := cdoc.Wrap()
	res := resolver.Resolve(envelope, o.Registry.RegisterSchemas())
	switch res.Outcome {
	case resolver.OutcomeNoMatch:
		return o.quarantine(documentID, ingested, docstore.FailureSchemaNotFound, res.Diagnostic.Error(), nil)
	case resolver.OutcomeAmbiguous:
		return o.quarantine(documentID, ingested, docstore.FailureVariantAmbiguous, res.Diagnostic.Error(), nil)
	}
	ingested.SchemaRef = &docstore.SchemaRef{VariantID: res.Variant.VariantID}
	ingested.Classification = &docstore.Classification{
		RegistryCode: res.Register.RegistryCode,
		ServiceCode:  res.Register.ServiceCode,
		MethodCode:   res.Register.MethodCode,
	}
	o.log(o.RunID, documentID, "resolve_variant", "success", "resolved variant "+res.Variant.VariantID)

	// Step 6: map, identify, build relationships.
	instances, warnings, err := mapper.Map(envelope, documentID, *res.Variant)
	if err != nil {
		return o.quarantine(documentID, ingested, docstore.FailureMappingError, err.Error(), nil)
	}
	for _, w := range warnings {
		o.log(o.RunID, documentID, "map", "warning", w)
	}

	identity.Assign(instances, documentID, o.Registry.EntitySchemas())

	nodes := make([]graphmodel.NodeRecord, 0, len(instances))
	now := time.Now()
	for _, inst := range instances {
		nodes = append(nodes, graphmodel.NodeRecord{
			Label:      inst.Label,
			NodeID:     inst.NodeID,
			Properties: inst.Properties,
			SourceDoc:  documentID,
			ScopeRoot:  inst.ScopeRoot,
			EntityRef:  inst.EntityRef,
			SourceTime: now,
		})
	}
	rels := relbuild.Build(documentID, instances, o.Registry.RelationshipSchemas())

	// Step 7: upsert, with bounded retries for transient sink errors.
	nodeCounts, conflicts, err := o.upsertNodesWithRetry(ctx, nodes)
	if err != nil {
		return o.finalizeFailed(documentID, ingested, docstore.FailureSinkError, err.Error())
	}
	if len(conflicts) > 0 {
		o.mu.Lock()
		o.metrics.ImmutableConflicts += len(conflicts)
		o.mu.Unlock()
		d := diag.New(diag.CodeMergeImmutableConflict, map[string]any{"Count": len(conflicts)})
		return o.quarantine(documentID, ingested, docstore.FailureImmutableConflict, d.Error(), nil)
	}
	relCounts, err := o.upsertRelsWithRetry(ctx, rels)
	if err != nil {
		return o.finalizeFailed(documentID, ingested, docstore.FailureSinkError, err.Error())
	}

	ingested.WriteSummary = docstore.WriteSummary{
		NodesUpserted:        nodeCounts.NodesUpserted,
		RelationshipsCreated: relCounts.RelationshipsCreated,
	}
	ingested.IngestionStatus = docstore.StatusProcessed
	ingested.LastUpdatedAt = time.Now()
	_ = o.DocStore.WriteIngested(ingested)

	o.mu.Lock()
	o.metrics.EntitiesExtracted += len(instances)
	o.metrics.EntitiesUpserted += nodeCounts.NodesUpserted
	o.metrics.RelationshipsCreated += relCounts.RelationshipsCreated
	o.mu.Unlock()

	o.log(o.RunID, documentID, "upsert", "success", "document processed")
	return docstore.StatusProcessed
}

func (o *Orchestrator) upsertNodesWithRetry(ctx context.Context, nodes []graphmodel.NodeRecord) (graphsink.Counts, []graphsink.Conflict, error) {
	var counts graphsink.Counts
	var conflicts []graphsink.Conflict
	var err error
	err = retry(ctx, o.retryAttempts(), func() error {
		counts, conflicts, err = o.GraphSink.UpsertNodes(nodes)
		return err
	})
	return counts, conflicts, err
}

func (o *Orchestrator) upsertRelsWithRetry(ctx context.Context, rels []graphmodel.RelRecord) (graphsink.Counts, error) {
	var counts graphsink.Counts
	var err error
	err = retry(ctx, o.retryAttempts(), func() error {
		counts, err = o.GraphSink.UpsertRelationships(rels)
		return err
	})
	return counts, err
}

// retry runs fn up to attempts times with exponential backoff, stopping
// early if ctx is canceled (the §5 per-document timeout).
func retry(ctx context.Context, attempts int, fn func() error) error {
	var err error
	backoff := 50 * time.Millisecond
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
		backoff *= 2
	}
	return err
}

func (o *Orchestrator) quarantine(documentID string, ingested docstore.IngestedDocument, category docstore.FailureCategory, message string, details map[string]any) docstore.IngestionStatus {
	ingested.Failure = &docstore.FailureInfo{Category: category, Message: message, Details: details}
	ingested.IngestionStatus = docstore.StatusQuarantined
	ingested.LastUpdatedAt = time.Now()
	_ = o.DocStore.WriteIngested(ingested)
	_ = o.DocStore.Quarantine(docstore.QuarantinedDocument{
		DocumentID:  documentID,
		FilePath:    ingested.Raw.FilePath,
		ContentHash: ingested.Raw.ContentHash,
		Reason:      category,
		Message:     message,
		Details:     details,
		CreatedAt:   time.Now(),
	})
	o.log(o.RunID, documentID, string(category), "error", message)
	return docstore.StatusQuarantined
}

func (o *Orchestrator) finalizeFailed(documentID string, ingested docstore.IngestedDocument, category docstore.FailureCategory, message string) docstore.IngestionStatus {
	ingested.Failure = &docstore.FailureInfo{Category: category, Message: message}
	ingested.IngestionStatus = docstore.StatusFailed
	ingested.LastUpdatedAt = time.Now()
	_ = o.DocStore.WriteIngested(ingested)
	o.log(o.RunID, documentID, string(category), "error", message)
	return docstore.StatusFailed
}
