/*
batch.go - batch lifecycle and admin overrides

A batch's quantity is its capacity, not a live count. Base price is editable
by the owning seller only while the batch is still in its initial state;
after that, only an admin override with a mandatory reason can change it.
Quantity adjustments likewise require an admin and a reason, and can never
cut below the number of items already created.
*/
package inventory

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sellershop/inventory-engine/engine"
)

// CreateBatch declares a new lot of an existing, unarchived product. Sellers
// may only start batches for their own products.
func (s *Service) CreateBatch(ctx context.Context, actor engine.Actor, productID string, basePrice decimal.Decimal, quantity int) (*engine.Batch, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("batch quantity must be positive, got %d: %w", quantity, engine.ErrValidation)
	}
	if !basePrice.IsPositive() {
		return nil, fmt.Errorf("base price must be positive, got %s: %w", basePrice, engine.ErrValidation)
	}

	var batch engine.Batch
	err := s.Store.WithTx(ctx, func(st engine.Store) error {
		product, err := st.GetProduct(ctx, productID)
		if err != nil {
			return err
		}
		if err := requireOwner(actor, product.OwnerID); err != nil {
			return err
		}
		if product.Archived() {
			return fmt.Errorf("product %s is archived and cannot start new batches: %w", productID, engine.ErrArchived)
		}

		batch = engine.Batch{
			ID:        uuid.NewString(),
			SellerID:  product.OwnerID,
			ProductID: productID,
			BasePrice: basePrice,
			Quantity:  quantity,
			Status:    engine.BatchCreated,
			CreatedAt: s.Now().UTC(),
		}
		if err := st.InsertBatch(ctx, batch); err != nil {
			return err
		}
		return st.AppendAudit(ctx, s.audit(actor, "batch", batch.ID, "batch.create", nil, batch))
	})
	if err != nil {
		return nil, fmt.Errorf("create batch: %w", err)
	}
	return &batch, nil
}

// AdjustBatchQuantity force-changes a batch's declared capacity. Admin only,
// reason mandatory, refused on terminal-sold batches and below the number of
// items already created.
func (s *Service) AdjustBatchQuantity(ctx context.Context, actor engine.Actor, batchID string, quantity int, reason string) (*engine.Batch, error) {
	if actor.Role != engine.RoleAdmin {
		return nil, fmt.Errorf("only admins adjust batch quantity: %w", engine.ErrNotOwner)
	}
	if quantity <= 0 {
		return nil, fmt.Errorf("batch quantity must be positive, got %d: %w", quantity, engine.ErrValidation)
	}
	if strings.TrimSpace(reason) == "" {
		return nil, fmt.Errorf("quantity adjustment requires a reason: %w", engine.ErrValidation)
	}

	var updated engine.Batch
	err := s.Store.WithTx(ctx, func(st engine.Store) error {
		batch, err := st.GetBatch(ctx, batchID)
		if err != nil {
			return err
		}
		if batch.Status == engine.BatchFullySold {
			return &engine.TransitionError{Entity: "batch", EntityID: batchID, From: string(batch.Status), To: string(batch.Status)}
		}
		existing, err := st.CountItems(ctx, batchID)
		if err != nil {
			return err
		}
		if quantity < existing {
			return &engine.CapacityError{BatchID: batchID, Capacity: quantity, Existing: existing, Requested: 0}
		}

		before := *batch
		updated = *batch
		updated.Quantity = quantity
		if err := st.UpdateBatch(ctx, updated); err != nil {
			return err
		}
		return st.AppendAudit(ctx, s.audit(actor, "batch", batchID, "batch.adjust_quantity",
			before, overrideSnapshot{Batch: updated, Reason: reason}))
	})
	if err != nil {
		return nil, fmt.Errorf("adjust batch %s quantity: %w", batchID, err)
	}
	return &updated, nil
}

// OverrideBatchPrice changes a batch's base price. The owning seller may do
// this only while the batch is still created; an admin may do it at any
// non-terminal status, with a mandatory reason.
func (s *Service) OverrideBatchPrice(ctx context.Context, actor engine.Actor, batchID string, price decimal.Decimal, reason string) (*engine.Batch, error) {
	if !price.IsPositive() {
		return nil, fmt.Errorf("base price must be positive, got %s: %w", price, engine.ErrValidation)
	}
	if actor.Role == engine.RoleAdmin && strings.TrimSpace(reason) == "" {
		return nil, fmt.Errorf("admin price override requires a reason: %w", engine.ErrValidation)
	}

	var updated engine.Batch
	err := s.Store.WithTx(ctx, func(st engine.Store) error {
		batch, err := st.GetBatch(ctx, batchID)
		if err != nil {
			return err
		}
		if batch.Status == engine.BatchFullySold {
			return &engine.TransitionError{Entity: "batch", EntityID: batchID, From: string(batch.Status), To: string(batch.Status)}
		}
		if actor.Role != engine.RoleAdmin {
			if err := requireOwner(actor, batch.SellerID); err != nil {
				return err
			}
			if batch.Status != engine.BatchCreated {
				return fmt.Errorf("sellers may only edit the price of a batch still in %s: %w",
					engine.BatchCreated, engine.ErrInvalidTransition)
			}
		}

		before := *batch
		updated = *batch
		updated.BasePrice = price
		if err := st.UpdateBatch(ctx, updated); err != nil {
			return err
		}
		return st.AppendAudit(ctx, s.audit(actor, "batch", batchID, "batch.override_price",
			before, overrideSnapshot{Batch: updated, Reason: reason}))
	})
	if err != nil {
		return nil, fmt.Errorf("override batch %s price: %w", batchID, err)
	}
	return &updated, nil
}

// SetSlowMoving flags a batch as slow moving. Orthogonal to the main state
// machine; admin only.
func (s *Service) SetSlowMoving(ctx context.Context, actor engine.Actor, batchID string, flag bool) (*engine.Batch, error) {
	if actor.Role != engine.RoleAdmin {
		return nil, fmt.Errorf("only admins flag slow-moving batches: %w", engine.ErrNotOwner)
	}

	var updated engine.Batch
	err := s.Store.WithTx(ctx, func(st engine.Store) error {
		batch, err := st.GetBatch(ctx, batchID)
		if err != nil {
			return err
		}
		if batch.SlowMoving == flag {
			updated = *batch
			return nil
		}

		before := *batch
		updated = *batch
		updated.SlowMoving = flag
		if err := st.UpdateBatch(ctx, updated); err != nil {
			return err
		}
		return st.AppendAudit(ctx, s.audit(actor, "batch", batchID, "batch.set_slow_moving", before, updated))
	})
	if err != nil {
		return nil, fmt.Errorf("set slow-moving on batch %s: %w", batchID, err)
	}
	return &updated, nil
}

// Batches lists batches, scoped to one seller when sellerID is non-empty.
func (s *Service) Batches(ctx context.Context, sellerID string) ([]engine.Batch, error) {
	return s.Store.ListBatches(ctx, sellerID)
}

// GetBatch returns one batch.
func (s *Service) GetBatch(ctx context.Context, batchID string) (*engine.Batch, error) {
	return s.Store.GetBatch(ctx, batchID)
}

// overrideSnapshot carries the mandatory reason alongside the batch state in
// the audit trail.
type overrideSnapshot struct {
	Batch  engine.Batch
	Reason string
}
