/*
discount.go - discount request, decision, and expiry sweep

A discount prices a whole batch down until it expires or its item_limit is
consumed. Only accepted discounts affect pricing; the sale pipeline reads
them through ActiveDiscount at quote and commit time.
*/
package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sellershop/inventory-engine/engine"
)

// RequestDiscount opens a pending discount for a batch the acting seller
// owns.
func (e *Engine) RequestDiscount(ctx context.Context, actor engine.Actor, batchID string, discountPrice decimal.Decimal, itemLimit *int, expiresAt time.Time) (*engine.Discount, error) {
	if !discountPrice.IsPositive() {
		return nil, fmt.Errorf("discount price must be positive, got %s: %w", discountPrice, engine.ErrValidation)
	}
	if itemLimit != nil && *itemLimit <= 0 {
		return nil, fmt.Errorf("item limit must be positive, got %d: %w", *itemLimit, engine.ErrValidation)
	}
	if !expiresAt.After(e.Now()) {
		return nil, fmt.Errorf("discount expiry must be in the future: %w", engine.ErrValidation)
	}

	var discount engine.Discount
	err := e.Store.WithTx(ctx, func(st engine.Store) error {
		batch, err := st.GetBatch(ctx, batchID)
		if err != nil {
			return err
		}
		if actor.Role != engine.RoleAdmin && actor.ID != batch.SellerID {
			return fmt.Errorf("actor %s does not own batch %s: %w", actor.ID, batchID, engine.ErrNotOwner)
		}
		if discountPrice.GreaterThanOrEqual(batch.BasePrice) {
			return fmt.Errorf("discount price %s must undercut base price %s: %w",
				discountPrice, batch.BasePrice, engine.ErrValidation)
		}

		discount = engine.Discount{
			ID:            uuid.NewString(),
			BatchID:       batchID,
			DiscountPrice: discountPrice,
			ItemLimit:     itemLimit,
			Status:        engine.DiscountPending,
			ExpiresAt:     expiresAt.UTC(),
			CreatedAt:     e.Now().UTC(),
		}
		if err := st.InsertDiscount(ctx, discount); err != nil {
			return err
		}
		return st.AppendAudit(ctx, e.audit(actor, "discount", discount.ID, "discount.request", nil, discount))
	})
	if err != nil {
		return nil, fmt.Errorf("request discount for batch %s: %w", batchID, err)
	}
	return &discount, nil
}

// DecideDiscount accepts or rejects a pending discount. Admin only.
func (e *Engine) DecideDiscount(ctx context.Context, actor engine.Actor, discountID string, status engine.DiscountStatus) (*engine.Discount, error) {
	if actor.Role != engine.RoleAdmin {
		return nil, fmt.Errorf("only admins decide discounts: %w", engine.ErrNotOwner)
	}
	if status != engine.DiscountAccepted && status != engine.DiscountRejected {
		return nil, fmt.Errorf("discount decision must be %s or %s, got %s: %w",
			engine.DiscountAccepted, engine.DiscountRejected, status, engine.ErrValidation)
	}

	var updated engine.Discount
	err := e.Store.WithTx(ctx, func(st engine.Store) error {
		discount, err := st.GetDiscount(ctx, discountID)
		if err != nil {
			return err
		}
		if discount.Status != engine.DiscountPending {
			return &engine.TransitionError{
				Entity:   "discount",
				EntityID: discountID,
				From:     string(discount.Status),
				To:       string(status),
			}
		}

		before := *discount
		updated = *discount
		updated.Status = status
		if err := st.UpdateDiscount(ctx, updated); err != nil {
			return err
		}
		return st.AppendAudit(ctx, e.audit(actor, "discount", discountID, "discount.decide", before, updated))
	})
	if err != nil {
		return nil, fmt.Errorf("decide discount %s: %w", discountID, err)
	}
	return &updated, nil
}

// RunDiscountExpirySweep expires pending discounts past expires_at or older
// than the stale grace window, and returns how many it transitioned.
// Idempotent: the pending-status guard means a re-run finds nothing.
func (e *Engine) RunDiscountExpirySweep(ctx context.Context, actor engine.Actor) (int, error) {
	now := e.Now().UTC()
	cutoff := now.Add(-e.StalePendingGrace)

	var expired int
	err := e.Store.WithTx(ctx, func(st engine.Store) error {
		candidates, err := st.ListExpirablePending(ctx, now, cutoff)
		if err != nil {
			return err
		}
		for _, d := range candidates {
			before := d
			d.Status = engine.DiscountExpired
			if err := st.UpdateDiscount(ctx, d); err != nil {
				return err
			}
			if err := st.AppendAudit(ctx, e.audit(actor, "discount", d.ID, "discount.expire", before, d)); err != nil {
				return err
			}
			expired++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("discount expiry sweep: %w", err)
	}
	return expired, nil
}

// Discounts lists discounts, optionally scoped to one batch.
func (e *Engine) Discounts(ctx context.Context, batchID string) ([]engine.Discount, error) {
	return e.Store.ListDiscounts(ctx, batchID)
}
