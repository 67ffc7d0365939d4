/*
collection.go - collector pickups, seller confirmation, shop handover

One Collection row per pickup event. Partial pickups are legal. Two flags
complete a collection independently: the seller confirms receipt of payment
terms (seller_confirmed) and the collector records delivery to a shop
(handed_to_shop). Whichever flag lands second drives the batch's
collecting → collected transition.

Handover also stocks items: it assigns collected_quantity unassigned units
to the target shop in one transaction, refusing with InsufficientItems when
the batch does not have enough prepared units left.
*/
package inventory

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/sellershop/inventory-engine/engine"
)

// CreateCollection records a pickup against a batch. The first collection
// moves the batch from created to collecting.
func (s *Service) CreateCollection(ctx context.Context, actor engine.Actor, batchID string, collectedQuantity int) (*engine.Collection, error) {
	if collectedQuantity <= 0 {
		return nil, fmt.Errorf("collected quantity must be positive, got %d: %w", collectedQuantity, engine.ErrValidation)
	}

	var collection engine.Collection
	err := s.Store.WithTx(ctx, func(st engine.Store) error {
		batch, err := st.GetBatch(ctx, batchID)
		if err != nil {
			return err
		}
		if batch.Status != engine.BatchCreated && batch.Status != engine.BatchCollecting {
			return &engine.TransitionError{
				Entity:   "batch",
				EntityID: batchID,
				From:     string(batch.Status),
				To:       string(engine.BatchCollecting),
			}
		}
		if collectedQuantity > batch.Quantity {
			return fmt.Errorf("collected quantity %d exceeds batch quantity %d: %w",
				collectedQuantity, batch.Quantity, engine.ErrValidation)
		}

		collection = engine.Collection{
			ID:                uuid.NewString(),
			BatchID:           batchID,
			CollectorID:       actor.ID,
			CollectedQuantity: collectedQuantity,
			CreatedAt:         s.Now().UTC(),
		}
		if err := st.InsertCollection(ctx, collection); err != nil {
			return err
		}

		if batch.Status == engine.BatchCreated {
			before := *batch
			batch.Status = engine.BatchCollecting
			if err := st.UpdateBatch(ctx, *batch); err != nil {
				return err
			}
			if err := st.AppendAudit(ctx, s.audit(actor, "batch", batchID, "batch.start_collecting", before, *batch)); err != nil {
				return err
			}
		}
		return st.AppendAudit(ctx, s.audit(actor, "collection", collection.ID, "collection.create", nil, collection))
	})
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}
	return &collection, nil
}

// ConfirmCollection records the seller's confirmation. Re-confirming is a
// no-op. If the collection was already handed to a shop, this confirmation is
// the second condition and completes the batch's collection phase.
func (s *Service) ConfirmCollection(ctx context.Context, actor engine.Actor, collectionID string) (*engine.Collection, error) {
	var updated engine.Collection
	err := s.Store.WithTx(ctx, func(st engine.Store) error {
		collection, err := st.GetCollection(ctx, collectionID)
		if err != nil {
			return err
		}
		batch, err := st.GetBatch(ctx, collection.BatchID)
		if err != nil {
			return err
		}
		if err := requireOwner(actor, batch.SellerID); err != nil {
			return err
		}
		if collection.SellerConfirmed {
			updated = *collection
			return nil
		}

		before := *collection
		updated = *collection
		updated.SellerConfirmed = true
		if err := st.UpdateCollection(ctx, updated); err != nil {
			return err
		}
		if err := st.AppendAudit(ctx, s.audit(actor, "collection", collectionID, "collection.confirm", before, updated)); err != nil {
			return err
		}
		return s.completeCollectionPhase(ctx, st, actor, batch, updated)
	})
	if err != nil {
		return nil, fmt.Errorf("confirm collection %s: %w", collectionID, err)
	}
	return &updated, nil
}

// HandoverCollectionToShop marks the collection delivered and stocks
// collected_quantity unassigned items to the target shop. Fails with
// InsufficientItems when the batch has fewer prepared units than the
// collection claims.
func (s *Service) HandoverCollectionToShop(ctx context.Context, actor engine.Actor, collectionID, shopID, proof string) (*engine.Collection, error) {
	if strings.TrimSpace(shopID) == "" {
		return nil, fmt.Errorf("shop id is required: %w", engine.ErrValidation)
	}

	var updated engine.Collection
	err := s.Store.WithTx(ctx, func(st engine.Store) error {
		collection, err := st.GetCollection(ctx, collectionID)
		if err != nil {
			return err
		}
		if collection.HandedToShop {
			return &engine.TransitionError{
				Entity:   "collection",
				EntityID: collectionID,
				From:     "handed_to_shop",
				To:       "handed_to_shop",
			}
		}
		batch, err := st.GetBatch(ctx, collection.BatchID)
		if err != nil {
			return err
		}

		unassigned, err := st.ListItems(ctx, collection.BatchID, engine.ItemCreated, engine.ItemInTransit)
		if err != nil {
			return err
		}
		if len(unassigned) < collection.CollectedQuantity {
			return fmt.Errorf("not enough items available to hand over (%d of %d): %w",
				len(unassigned), collection.CollectedQuantity, engine.ErrInsufficientItems)
		}

		now := s.Now().UTC()
		for _, it := range unassigned[:collection.CollectedQuantity] {
			itemBefore := it
			it.Status = engine.ItemInShop
			it.CurrentShopID = shopID
			if err := st.UpdateItem(ctx, it); err != nil {
				return err
			}
			if err := st.AppendAudit(ctx, s.audit(actor, "item", it.ID, "item.stock", itemBefore, it)); err != nil {
				return err
			}
		}

		before := *collection
		updated = *collection
		updated.HandedToShop = true
		updated.HandoverProof = proof
		updated.HandedToShopAt = &now
		if err := st.UpdateCollection(ctx, updated); err != nil {
			return err
		}
		if err := st.AppendAudit(ctx, s.audit(actor, "collection", collectionID, "collection.handover", before, updated)); err != nil {
			return err
		}
		return s.completeCollectionPhase(ctx, st, actor, batch, updated)
	})
	if err != nil {
		return nil, fmt.Errorf("handover collection %s: %w", collectionID, err)
	}
	return &updated, nil
}

// Collections lists a batch's pickups.
func (s *Service) Collections(ctx context.Context, batchID string) ([]engine.Collection, error) {
	return s.Store.ListCollections(ctx, batchID)
}

// completeCollectionPhase advances the batch once both completion flags are
// set, then immediately moves it in_shop if units were already stocked (the
// confirm-after-handover ordering).
func (s *Service) completeCollectionPhase(ctx context.Context, st engine.Store, actor engine.Actor, batch *engine.Batch, c engine.Collection) error {
	if !c.SellerConfirmed || !c.HandedToShop {
		return nil
	}
	if batch.Status != engine.BatchCollecting {
		return nil
	}

	before := *batch
	batch.Status = engine.BatchCollected
	if err := st.UpdateBatch(ctx, *batch); err != nil {
		return err
	}
	if err := st.AppendAudit(ctx, s.audit(actor, "batch", batch.ID, "batch.collected", before, *batch)); err != nil {
		return err
	}

	stocked, err := st.CountItemsByStatus(ctx, batch.ID,
		engine.ItemInShop, engine.ItemSold, engine.ItemReturned)
	if err != nil {
		return err
	}
	if stocked == 0 {
		return nil
	}
	before = *batch
	batch.Status = engine.BatchInShop
	if err := st.UpdateBatch(ctx, *batch); err != nil {
		return err
	}
	if err := st.AppendAudit(ctx, s.audit(actor, "batch", batch.ID, "batch.in_shop", before, *batch)); err != nil {
		return err
	}
	// Units stocked at handover may already have sold before this late
	// confirmation; recompute the sold bucket so the batch does not stall
	// at in_shop.
	return ReconcileBatchSales(ctx, st, batch.ID)
}
