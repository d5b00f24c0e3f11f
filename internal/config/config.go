// Package config assembles the single configuration record spec §6 calls
// for: backend selection (file vs. sqlite-backed document/graph stores),
// connection strings, output directory, and operational tunables. Layering
// follows the teacher's general idiom of defaults -> file -> flags, with
// goccy/go-yaml for the file layer (the same decoder the registry's file
// backend already depends on) and cobra/pflag binding the CLI layer.
package config

import (
	"os"
	"time"

	goyaml "github.com/goccy/go-yaml"
)

// Backend selects which concrete implementation a store uses.
type Backend string

const (
	BackendFile   Backend = "file"
	BackendSQLite Backend = "sqlite"
)

// Config is the orchestrator's single configuration record.
type Config struct {
	SchemasDir string `yaml:"schemas_dir"`
	OutDir     string `yaml:"out_dir"`

	DocStoreBackend Backend `yaml:"docstore_backend"`
	GraphBackend    Backend `yaml:"graph_backend"`
	RegistryBackend Backend `yaml:"registry_backend"`

	DocStoreSQLitePath string `yaml:"docstore_sqlite_path"`
	GraphSQLitePath     string `yaml:"graph_sqlite_path"`

	WorkerCount     int           `yaml:"worker_count"`
	DocumentTimeout time.Duration `yaml:"document_timeout"`
	BatchSize       int           `yaml:"batch_size"`
	RetryAttempts   int           `yaml:"retry_attempts"`

	RunID string `yaml:"run_id"`
}

// Default returns the baseline configuration every layer starts from.
func Default() Config {
	return Config{
		SchemasDir:          "schemas",
		OutDir:              "out",
		DocStoreBackend:     BackendFile,
		GraphBackend:        BackendFile,
		RegistryBackend:     BackendFile,
		DocStoreSQLitePath:  "out/docstore.sqlite",
		GraphSQLitePath:     "out/graph.sqlite",
		WorkerCount:         8,
		DocumentTimeout:     60 * time.Second,
		BatchSize:           100,
		RetryAttempts:       3,
	}
}

// LoadFile overlays a YAML config file onto base, leaving base untouched
// where the file is silent. A missing file is not an error — not every
// deployment needs one.
func LoadFile(base Config, path string) (Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return base, nil
	}
	if err != nil {
		return base, err
	}
	out := base
	if err := goyaml.Unmarshal(data, &out); err != nil {
		return base, err
	}
	return out, nil
}
