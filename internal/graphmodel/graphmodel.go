// Package graphmodel holds the ephemeral, per-document records that flow
// from the mapper through identity and relationship building to the upsert
// engine: EntityInstance, NodeRecord, and RelRecord.
package graphmodel

import "time"

// EntityInstance is a per-document staging record produced by the mapper,
// before identity assignment. Instances are kept in an append-only arena
// (see mapper.Arena) and referenced by instance key, never aliased by
// pointer across goroutines — each document's arena is owned by exactly one
// worker.
type EntityInstance struct {
	Label      string
	EntityRef  string
	ScopeRoot  string
	ScopeID    string // instance key: scope_root + entity_ref
	Properties map[string]any
	NodeID     string // assigned by the identity engine; empty until then
}

// NodeRecord is a labeled property record ready for the upsert engine,
// carrying provenance back to the document and scope that produced it.
type NodeRecord struct {
	Label      string
	NodeID     string
	Properties map[string]any
	SourceDoc  string
	ScopeRoot  string
	EntityRef  string
	// SourceTime orders "dynamic" property conflicts (see schemamodel.ChangeDynamic);
	// the upsert engine keeps whichever write carries the later SourceTime.
	SourceTime time.Time
}

// RelRecord is a directed, typed edge ready for the upsert engine.
type RelRecord struct {
	Type       string
	FromLabel  string
	FromID     string
	ToLabel    string
	ToID       string
	Properties map[string]any
	SourceDoc  string
	ScopeRoot  string
	Name       string
}

// Key returns the relationship's uniqueness tuple, per spec §4.8:
// (from_label, from_id, type, to_label, to_id).
func (r RelRecord) Key() [5]string {
	return [5]string{r.FromLabel, r.FromID, r.Type, r.ToLabel, r.ToID}
}
