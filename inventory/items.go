/*
items.go - item prep and stocking

Items are created by the admin prep workflow once a batch is being picked up,
one row per physical unit, capped at batch.quantity. Barcodes are globally
unique; the store's unique index is the backstop behind the in-transaction
duplicate check.
*/
package inventory

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/sellershop/inventory-engine/engine"
)

// CreateItems bulk-inserts one item per barcode. All-or-nothing: a capacity
// overflow or duplicate barcode rolls back the whole call.
func (s *Service) CreateItems(ctx context.Context, actor engine.Actor, batchID string, barcodes []string, initialStatus engine.ItemStatus) ([]engine.Item, error) {
	if len(barcodes) == 0 {
		return nil, fmt.Errorf("at least one barcode is required: %w", engine.ErrValidation)
	}
	if initialStatus == "" {
		initialStatus = engine.ItemCreated
	}
	if initialStatus != engine.ItemCreated && initialStatus != engine.ItemInTransit {
		return nil, fmt.Errorf("initial item status must be %s or %s, got %s: %w",
			engine.ItemCreated, engine.ItemInTransit, initialStatus, engine.ErrValidation)
	}
	seen := make(map[string]bool, len(barcodes))
	for _, b := range barcodes {
		if strings.TrimSpace(b) == "" {
			return nil, fmt.Errorf("empty barcode: %w", engine.ErrValidation)
		}
		if seen[b] {
			return nil, fmt.Errorf("barcode %s repeated in request: %w", b, engine.ErrDuplicateBarcode)
		}
		seen[b] = true
	}

	var items []engine.Item
	err := s.Store.WithTx(ctx, func(st engine.Store) error {
		batch, err := st.GetBatch(ctx, batchID)
		if err != nil {
			return err
		}
		if batch.Status == engine.BatchCreated || batch.Status == engine.BatchFullySold {
			return &engine.TransitionError{
				Entity:   "batch",
				EntityID: batchID,
				From:     string(batch.Status),
				To:       string(batch.Status),
			}
		}
		existing, err := st.CountItems(ctx, batchID)
		if err != nil {
			return err
		}
		if existing+len(barcodes) > batch.Quantity {
			return &engine.CapacityError{
				BatchID:   batchID,
				Capacity:  batch.Quantity,
				Existing:  existing,
				Requested: len(barcodes),
			}
		}

		now := s.Now().UTC()
		items = make([]engine.Item, 0, len(barcodes))
		for _, b := range barcodes {
			items = append(items, engine.Item{
				ID:        uuid.NewString(),
				BatchID:   batchID,
				Barcode:   b,
				Status:    initialStatus,
				CreatedAt: now,
			})
		}
		if err := st.InsertItems(ctx, items); err != nil {
			return err
		}
		return st.AppendAudit(ctx, s.audit(actor, "batch", batchID, "item.create_bulk", nil, items))
	})
	if err != nil {
		return nil, fmt.Errorf("create items for batch %s: %w", batchID, err)
	}
	return items, nil
}

// StockItemToShop puts one scanned unit on a shop shelf. The first stocked
// item moves a collected batch in_shop.
func (s *Service) StockItemToShop(ctx context.Context, actor engine.Actor, barcode, shopID string) (*engine.Item, error) {
	if strings.TrimSpace(shopID) == "" {
		return nil, fmt.Errorf("shop id is required: %w", engine.ErrValidation)
	}

	var updated engine.Item
	err := s.Store.WithTx(ctx, func(st engine.Store) error {
		item, err := st.GetItemByBarcode(ctx, barcode)
		if err != nil {
			return err
		}
		if item.Status != engine.ItemCreated && item.Status != engine.ItemInTransit {
			return &engine.TransitionError{
				Entity:   "item",
				EntityID: item.ID,
				From:     string(item.Status),
				To:       string(engine.ItemInShop),
			}
		}

		before := *item
		updated = *item
		updated.Status = engine.ItemInShop
		updated.CurrentShopID = shopID
		if err := st.UpdateItem(ctx, updated); err != nil {
			return err
		}
		if err := st.AppendAudit(ctx, s.audit(actor, "item", item.ID, "item.stock", before, updated)); err != nil {
			return err
		}

		batch, err := st.GetBatch(ctx, item.BatchID)
		if err != nil {
			return err
		}
		if batch.Status != engine.BatchCollected {
			return nil
		}
		batchBefore := *batch
		batch.Status = engine.BatchInShop
		if err := st.UpdateBatch(ctx, *batch); err != nil {
			return err
		}
		return st.AppendAudit(ctx, s.audit(actor, "batch", batch.ID, "batch.in_shop", batchBefore, *batch))
	})
	if err != nil {
		return nil, fmt.Errorf("stock item %s: %w", barcode, err)
	}
	return &updated, nil
}
