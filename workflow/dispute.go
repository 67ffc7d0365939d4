// dispute.go - free-form annotations any party can raise against any entity.
// No side effects beyond the status change and the audit trail.
package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/sellershop/inventory-engine/engine"
)

// CreateDispute opens a dispute from any role against any entity id.
func (e *Engine) CreateDispute(ctx context.Context, actor engine.Actor, entity, entityID, message string) (*engine.Dispute, error) {
	if strings.TrimSpace(entity) == "" || strings.TrimSpace(entityID) == "" {
		return nil, fmt.Errorf("dispute entity and entity id are required: %w", engine.ErrValidation)
	}
	if strings.TrimSpace(message) == "" {
		return nil, fmt.Errorf("dispute message is required: %w", engine.ErrValidation)
	}

	now := e.Now().UTC()
	dispute := engine.Dispute{
		ID:        uuid.NewString(),
		CreatedBy: actor.ID,
		Role:      actor.Role,
		Entity:    entity,
		EntityID:  entityID,
		Message:   message,
		Status:    engine.DisputeOpen,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := e.Store.WithTx(ctx, func(st engine.Store) error {
		if err := st.InsertDispute(ctx, dispute); err != nil {
			return err
		}
		return st.AppendAudit(ctx, e.audit(actor, "dispute", dispute.ID, "dispute.create", nil, dispute))
	})
	if err != nil {
		return nil, fmt.Errorf("create dispute: %w", err)
	}
	return &dispute, nil
}

// DecideDispute resolves or rejects an open dispute. Admin only.
func (e *Engine) DecideDispute(ctx context.Context, actor engine.Actor, disputeID string, status engine.DisputeStatus, note string) (*engine.Dispute, error) {
	if actor.Role != engine.RoleAdmin {
		return nil, fmt.Errorf("only admins decide disputes: %w", engine.ErrNotOwner)
	}
	if status != engine.DisputeResolved && status != engine.DisputeRejected {
		return nil, fmt.Errorf("dispute decision must be %s or %s, got %s: %w",
			engine.DisputeResolved, engine.DisputeRejected, status, engine.ErrValidation)
	}

	var updated engine.Dispute
	err := e.Store.WithTx(ctx, func(st engine.Store) error {
		dispute, err := st.GetDispute(ctx, disputeID)
		if err != nil {
			return err
		}
		if dispute.Status != engine.DisputeOpen {
			return &engine.TransitionError{
				Entity:   "dispute",
				EntityID: disputeID,
				From:     string(dispute.Status),
				To:       string(status),
			}
		}

		before := *dispute
		updated = *dispute
		updated.Status = status
		if strings.TrimSpace(note) != "" {
			updated.AdminNote = note
		}
		updated.UpdatedAt = e.Now().UTC()
		if err := st.UpdateDispute(ctx, updated); err != nil {
			return err
		}
		return st.AppendAudit(ctx, e.audit(actor, "dispute", disputeID, "dispute.decide", before, updated))
	})
	if err != nil {
		return nil, fmt.Errorf("decide dispute %s: %w", disputeID, err)
	}
	return &updated, nil
}

// Disputes lists disputes, optionally filtered by status.
func (e *Engine) Disputes(ctx context.Context, status engine.DisputeStatus) ([]engine.Dispute, error) {
	return e.Store.ListDisputes(ctx, status)
}
