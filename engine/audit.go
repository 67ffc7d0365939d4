/*
audit.go - Mandatory before/after audit records

PURPOSE:
  Every mutating operation writes exactly one audit entry keyed by actor and
  entity, inside the same transaction as the mutation. This is a collaborator
  the domain packages always call, not optional logging. Validation failures
  produce no entry (nothing mutated); terminal workflow failures that persist
  a state (payout rejected, discount expired) do.

SNAPSHOTS:
  Before/After are JSON snapshots of the entity around the mutation. Creation
  entries have a null Before; nothing ever has a null After (deletes are
  modelled as status transitions or sale reversals, both of which snapshot
  the surviving entity).
*/
package engine

import (
	"context"
	"encoding/json"
	"time"
)

// AuditEntry records who changed what, with entity snapshots around the
// mutation.
type AuditEntry struct {
	ID        string
	Entity    string
	EntityID  string
	Action    string
	ActorID   string
	ActorRole Role
	Before    json.RawMessage
	After     json.RawMessage
	CreatedAt time.Time
}

// AuditFilter narrows audit queries. Nil/empty fields match everything.
type AuditFilter struct {
	Entity   string
	EntityID string
	ActorID  string
	Action   string
	Limit    int
}

// Snapshot marshals an entity state for an audit entry. A nil value yields a
// null snapshot (used for Before on creation).
func Snapshot(v any) json.RawMessage {
	if v == nil {
		return json.RawMessage("null")
	}
	b, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage("null")
	}
	return b
}

// Recorder is the audit sink. The SQLite store implements it; domain
// packages call it through the Store they already hold so the entry commits
// or rolls back with the mutation.
type Recorder interface {
	AppendAudit(ctx context.Context, entry AuditEntry) error
	QueryAudit(ctx context.Context, filter AuditFilter) ([]AuditEntry, error)
}
