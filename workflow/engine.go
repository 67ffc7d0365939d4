/*
Package workflow holds the decision engines for seller-initiated requests:
discounts, returns, and disputes.

PURPOSE:
  Every workflow follows the same shape: a request opens in a pending state,
  an admin decision moves it forward or rejects it, and at most one step has
  side effects beyond the status change (return completion restocks items and
  reverses wallet credits; discount acceptance changes effective pricing only
  indirectly, through the sale pipeline's price resolution).

STATE MACHINES:
  Discount: pending → accepted | rejected | expired (sweep)
  Return:   requested → approved | rejected, approved → completed
  Dispute:  open → resolved | rejected

SWEEP IDEMPOTENCE:
  The discount expiry sweep selects on status=pending, so a re-run finds no
  candidates and writes no duplicate audit rows. It expires discounts past
  expires_at and pending requests older than the stale grace window.

SEE ALSO:
  - discount.go: request/decide/expiry sweep
  - returns.go:  request/decide/complete with restock side effects
  - dispute.go:  free-form annotations
*/
package workflow

import (
	"time"

	"github.com/google/uuid"

	"github.com/sellershop/inventory-engine/engine"
	"github.com/sellershop/inventory-engine/ledger"
)

// DefaultStalePendingGrace is how long a pending discount may sit undecided
// before the sweep auto-expires it.
const DefaultStalePendingGrace = 48 * time.Hour

// Engine exposes the workflow operations. Grace and Now are injectable.
type Engine struct {
	Store  engine.Store
	Ledger *ledger.Ledger

	// StalePendingGrace is the undecided-discount cutoff used by the sweep.
	StalePendingGrace time.Duration
	Now               func() time.Time
}

// New creates a workflow engine over the given store and ledger.
func New(store engine.Store, l *ledger.Ledger) *Engine {
	return &Engine{
		Store:             store,
		Ledger:            l,
		StalePendingGrace: DefaultStalePendingGrace,
		Now:               time.Now,
	}
}

func (e *Engine) audit(actor engine.Actor, entity, entityID, action string, before, after any) engine.AuditEntry {
	return engine.AuditEntry{
		ID:        uuid.NewString(),
		Entity:    entity,
		EntityID:  entityID,
		Action:    action,
		ActorID:   actor.ID,
		ActorRole: actor.Role,
		Before:    engine.Snapshot(before),
		After:     engine.Snapshot(after),
		CreatedAt: e.Now().UTC(),
	}
}
