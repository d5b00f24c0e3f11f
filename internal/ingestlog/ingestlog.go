// Package ingestlog wraps go.uber.org/zap construction for the
// orchestrator's operational logging, grounded on codenerd's
// cmd/nerd/main.go PersistentPreRunE bootstrap (zap.NewProductionConfig,
// zap.NewAtomicLevelAt(zapcore.DebugLevel) under verbose). This is separate
// from docstore.IngestionLog: that is the durable per-document audit trail
// written to the document store; this is the developer-facing structured
// logger the orchestrator calls alongside it on every state transition.
package ingestlog

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a zap logger, production-leveled unless verbose requests debug
// output.
func New(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return cfg.Build()
}

// Step logs one orchestrator state transition with the fields spec §4.10/§6
// call for: run id, optional document id, step name, and status.
func Step(logger *zap.Logger, runID, documentID, step, status, message string) {
	fields := []zap.Field{
		zap.String("run_id", runID),
		zap.String("step", step),
		zap.String("status", status),
	}
	if documentID != "" {
		fields = append(fields, zap.String("document_id", documentID))
	}
	switch status {
	case "error":
		logger.Error(message, fields...)
	case "warning":
		logger.Warn(message, fields...)
	default:
		logger.Info(message, fields...)
	}
}
