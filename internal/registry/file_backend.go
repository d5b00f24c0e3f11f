package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	gojson "github.com/goccy/go-json"
	goyaml "github.com/goccy/go-yaml"

	"github.com/dataregistry/ingestpipe/internal/schemamodel"
)

// FileBackend loads one schema document per file from a directory, in both
// JSON and YAML: each entity, register, and relationship schema is its own
// file, classified by its discriminator field the way the original
// JsonSchemaRegistry.load dispatched on "entity_name" / "registry_code" /
// "relationship_name".
type FileBackend struct {
	Dir string
}

func NewFileBackend(dir string) *FileBackend { return &FileBackend{Dir: dir} }

func (b *FileBackend) Load() (*Collections, error) {
	entries, err := os.ReadDir(b.Dir)
	if err != nil {
		return nil, fmt.Errorf("registry: read schema dir %q: %w", b.Dir, err)
	}

	out := &Collections{EntitySchemas: map[string]*schemamodel.EntitySchema{}}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if ext != ".json" && ext != ".yaml" && ext != ".yml" {
			continue
		}
		if strings.HasPrefix(name, "_") {
			continue
		}

		path := filepath.Join(b.Dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("registry: read %q: %w", path, err)
		}

		if err := loadOne(out, data, ext == ".json"); err != nil {
			return nil, fmt.Errorf("registry: %q: %w", path, err)
		}
	}
	return out, nil
}

func loadOne(out *Collections, data []byte, isJSON bool) error {
	var generic map[string]any
	if err := decode(data, &generic, isJSON); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	kind, err := kindOf(generic)
	if err != nil {
		return err
	}

	switch kind {
	case "entity":
		var dto entityFileDTO
		if err := decode(data, &dto, isJSON); err != nil {
			return fmt.Errorf("decode entity schema: %w", err)
		}
		es := dto.build()
		out.EntitySchemas[es.Label] = es
	case "register":
		var dto registerFileDTO
		if err := decode(data, &dto, isJSON); err != nil {
			return fmt.Errorf("decode register schema: %w", err)
		}
		out.RegisterSchemas = append(out.RegisterSchemas, dto.build())
	case "relationship":
		var dto relationshipFileDTO
		if err := decode(data, &dto, isJSON); err != nil {
			return fmt.Errorf("decode relationship schema: %w", err)
		}
		out.RelationshipSchemas = append(out.RelationshipSchemas, dto.build())
	}
	return nil
}

func decode(data []byte, v any, isJSON bool) error {
	if isJSON {
		return gojson.Unmarshal(data, v)
	}
	return goyaml.Unmarshal(data, v)
}
