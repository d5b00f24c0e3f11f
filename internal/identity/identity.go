// Package identity implements C7: assigning a stable node_id to each entity
// instance produced by the mapper. An entity with a usable identity key gets
// a content-addressed hash over its label and normalized identity
// properties; everything else falls back to a document-scoped id that can
// never collide across documents but also never merges across them.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/dataregistry/ingestpipe/internal/graphmodel"
	"github.com/dataregistry/ingestpipe/internal/schemamodel"
)

// Assign computes NodeID for every instance in place, given the entity
// schemas keyed by label. An instance whose label has no known schema, or
// whose identity keys all fail their `when_exists` guard, receives a
// doc-scoped fallback id of the form "DOCSCOPED:<document_id>:<scope_id>".
func Assign(instances []*graphmodel.EntityInstance, documentID string, entitySchemas map[string]*schemamodel.EntitySchema) {
	for _, inst := range instances {
		inst.NodeID = nodeIDFor(inst, documentID, entitySchemas[inst.Label])
	}
}

func nodeIDFor(inst *graphmodel.EntityInstance, documentID string, es *schemamodel.EntitySchema) string {
	if es == nil {
		return fallbackID(documentID, inst.ScopeID)
	}

	keys := make([]schemamodel.IdentityKey, len(es.IdentityKeys))
	copy(keys, es.IdentityKeys)
	sort.SliceStable(keys, func(i, j int) bool { return keys[i].Priority < keys[j].Priority })

	for _, key := range keys {
		if !allPresent(inst.Properties, key.WhenExists) {
			continue
		}
		identity := canonicalIdentityString(inst, es, key)
		raw := inst.Label + "|" + identity
		sum := sha256.Sum256([]byte(raw))
		return hex.EncodeToString(sum[:])
	}

	return fallbackID(documentID, inst.ScopeID)
}

// canonicalIdentityString joins key.Properties' values, in declared order,
// with "|", after trimming and case-folding each one according to its
// PropertySchema.Normalize list — per spec §4.7 step 2.
func canonicalIdentityString(inst *graphmodel.EntityInstance, es *schemamodel.EntitySchema, key schemamodel.IdentityKey) string {
	parts := make([]string, len(key.Properties))
	for i, name := range key.Properties {
		v := stringify(inst.Properties[name])
		if prop, ok := es.PropertyByName(name); ok {
			v = normalize(v, prop.Normalize)
		}
		parts[i] = v
	}
	return strings.Join(parts, "|")
}

func normalize(v string, steps []string) string {
	for _, step := range steps {
		switch step {
		case "trim":
			v = strings.TrimSpace(v)
		case "lower":
			v = strings.ToLower(v)
		case "upper":
			v = strings.ToUpper(v)
		case "collapse_spaces":
			v = strings.Join(strings.Fields(v), " ")
		}
	}
	return v
}

func allPresent(props map[string]any, required []string) bool {
	for _, f := range required {
		if props[f] == nil {
			return false
		}
	}
	return true
}

func stringify(v any) string {
	if v == nil {
		return ""
	}
	switch s := v.(type) {
	case string:
		return s
	default:
		return fmt.Sprintf("%v", s)
	}
}

func fallbackID(documentID, scopeID string) string {
	return fmt.Sprintf("DOCSCOPED:%s:%s", documentID, scopeID)
}
