// Command ingest is the thin outer CLI spec §6 calls for: it assembles
// configuration, constructs the orchestrator, feeds it file paths, and
// prints exit status. Grounded on codenerd's cmd/nerd/main.go root-command
// + PersistentPreRunE zap-bootstrap idiom.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dataregistry/ingestpipe/internal/canonical"
	"github.com/dataregistry/ingestpipe/internal/config"
	"github.com/dataregistry/ingestpipe/internal/docstore"
	"github.com/dataregistry/ingestpipe/internal/graphsink"
	"github.com/dataregistry/ingestpipe/internal/ingestlog"
	"github.com/dataregistry/ingestpipe/internal/orchestrator"
	"github.com/dataregistry/ingestpipe/internal/registry"

	_ "modernc.org/sqlite"
)

var (
	verbose    bool
	configPath string
	schemasDir string
	outDir     string
	runID      string
)

var rootCmd = &cobra.Command{
	Use:   "ingest [files...]",
	Short: "Schema-driven document ingestion pipeline",
	Long: `ingest reads raw documents, canonicalizes them, resolves the
governing register-schema variant, maps and identifies entities, derives
relationships, and upserts the result into a property graph with
provenance recorded in a document store.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug-level logging")
	rootCmd.Flags().StringVar(&configPath, "config", "", "path to a YAML config file")
	rootCmd.Flags().StringVar(&schemasDir, "schemas", "", "schema directory (overrides config)")
	rootCmd.Flags().StringVar(&outDir, "out", "", "output directory (overrides config)")
	rootCmd.Flags().StringVar(&runID, "run-id", "", "run id (defaults to a random UUID)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFile(config.Default(), configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if schemasDir != "" {
		cfg.SchemasDir = schemasDir
	}
	if outDir != "" {
		cfg.OutDir = outDir
	}
	if runID != "" {
		cfg.RunID = runID
	}
	if cfg.RunID == "" {
		cfg.RunID = uuid.NewString()
	}

	logger, err := ingestlog.New(verbose)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	if err := os.MkdirAll(cfg.OutDir, 0o755); err != nil {
		return fmt.Errorf("create out dir: %w", err)
	}

	reg, err := registry.New(registry.NewFileBackend(cfg.SchemasDir))
	if err != nil {
		return fmt.Errorf("load schema registry: %w", err)
	}

	sink, err := buildGraphSink(cfg, reg)
	if err != nil {
		return fmt.Errorf("build graph sink: %w", err)
	}
	defer sink.Close()

	store, err := buildDocStore(cfg)
	if err != nil {
		return fmt.Errorf("build document store: %w", err)
	}
	defer store.Close()

	docs := make([]orchestrator.InputDocument, 0, len(args))
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		docs = append(docs, orchestrator.InputDocument{FilePath: filepath.Clean(path), Bytes: data})
	}

	orch := &orchestrator.Orchestrator{
		RunID:           cfg.RunID,
		Canonicalizer:   canonical.New(),
		Registry:        reg,
		GraphSink:       sink,
		DocStore:        store,
		Logger:          logger,
		DocumentTimeout: cfg.DocumentTimeout,
		RetryAttempts:   cfg.RetryAttempts,
		WorkerCount:     cfg.WorkerCount,
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DocumentTimeout*time.Duration(len(docs)+1))
	defer cancel()

	run := orch.Run(ctx, docs)
	fmt.Printf("run %s: status=%s entities_upserted=%d relationships_created=%d\n",
		run.RunID, run.Status, run.Metrics.EntitiesUpserted, run.Metrics.RelationshipsCreated)

	if run.Status == docstore.RunFailed {
		return fmt.Errorf("run failed")
	}
	return nil
}

func buildGraphSink(cfg config.Config, reg *registry.Registry) (graphsink.Sink, error) {
	switch cfg.GraphBackend {
	case config.BackendSQLite:
		db, err := sql.Open("sqlite", cfg.GraphSQLitePath)
		if err != nil {
			return nil, err
		}
		return graphsink.NewSQLiteSink(db, reg.EntitySchemas())
	default:
		return graphsink.NewFileSink(cfg.OutDir, reg.EntitySchemas())
	}
}

func buildDocStore(cfg config.Config) (docstore.Backend, error) {
	switch cfg.DocStoreBackend {
	case config.BackendSQLite:
		db, err := sql.Open("sqlite", cfg.DocStoreSQLitePath)
		if err != nil {
			return nil, err
		}
		return docstore.NewSQLiteBackend(db)
	default:
		return docstore.NewFileBackend(cfg.OutDir)
	}
}
