/*
Package inventory drives the product/batch/item/collection state machines.

PURPOSE:
  Everything between "seller declares a lot" and "unit is sitting on a shop
  shelf" lives here: product catalogue upkeep, batch lifecycle, collector
  pickups with seller confirmation, item prep and stocking.

STATE MACHINES:
  Batch:  created → collecting → collected → in_shop → partially_sold → fully_sold
  Item:   created → in_transit → in_shop → sold, with in_shop → returned as the
          alternate terminal edge.

  The batch machine is driven by events on its children, never set directly:
  first collection starts collecting; seller confirmation plus shop handover
  (second one wins) completes collection; the first stocked item moves the
  batch in_shop; sales and returns move it through the sold bucket via
  ReconcileBatchSales.

CRITICAL INVARIANTS:
  1. count(items of batch) <= batch.quantity, enforced before insert and
     backstopped by the capacity check running inside the same transaction.
  2. Barcodes are globally unique (store unique index backstop).
  3. Handover never stocks more units than the batch has unassigned items.

TRANSACTION MODEL:
  Each operation is one Store.WithTx unit with its audit row appended inside
  the transaction.

SEE ALSO:
  - batch.go:      batch lifecycle and admin overrides
  - collection.go: pickup, confirmation, handover
  - items.go:      item prep and stocking
*/
package inventory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sellershop/inventory-engine/engine"
)

// Service exposes the inventory operations. Now is injectable for tests.
type Service struct {
	Store engine.Store
	Now   func() time.Time
}

// New creates an inventory service over the given store.
func New(store engine.Store) *Service {
	return &Service{Store: store, Now: time.Now}
}

// =============================================================================
// PRODUCTS
// =============================================================================

// CreateProduct adds a catalogue entry owned by the acting party.
func (s *Service) CreateProduct(ctx context.Context, actor engine.Actor, name, description string) (*engine.Product, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("product name is required: %w", engine.ErrValidation)
	}

	product := engine.Product{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		OwnerID:     actor.ID,
		CreatedAt:   s.Now().UTC(),
	}

	err := s.Store.WithTx(ctx, func(st engine.Store) error {
		if err := st.InsertProduct(ctx, product); err != nil {
			return err
		}
		return st.AppendAudit(ctx, s.audit(actor, "product", product.ID, "product.create", nil, product))
	})
	if err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	return &product, nil
}

// UpdateProduct edits name/description. Owners only; archived products are
// read-only.
func (s *Service) UpdateProduct(ctx context.Context, actor engine.Actor, productID, name, description string) (*engine.Product, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("product name is required: %w", engine.ErrValidation)
	}

	var updated engine.Product
	err := s.Store.WithTx(ctx, func(st engine.Store) error {
		product, err := st.GetProduct(ctx, productID)
		if err != nil {
			return err
		}
		if err := requireOwner(actor, product.OwnerID); err != nil {
			return err
		}
		if product.Archived() {
			return fmt.Errorf("product %s is archived: %w", productID, engine.ErrArchived)
		}

		before := *product
		updated = *product
		updated.Name = name
		updated.Description = description
		if err := st.UpdateProduct(ctx, updated); err != nil {
			return err
		}
		return st.AppendAudit(ctx, s.audit(actor, "product", productID, "product.update", before, updated))
	})
	if err != nil {
		return nil, fmt.Errorf("update product %s: %w", productID, err)
	}
	return &updated, nil
}

// ArchiveProduct soft-hides a product. Archived products cannot start new
// batches; existing batches are unaffected. Re-archiving is a no-op.
func (s *Service) ArchiveProduct(ctx context.Context, actor engine.Actor, productID string) (*engine.Product, error) {
	var updated engine.Product
	err := s.Store.WithTx(ctx, func(st engine.Store) error {
		product, err := st.GetProduct(ctx, productID)
		if err != nil {
			return err
		}
		if err := requireOwner(actor, product.OwnerID); err != nil {
			return err
		}
		if product.Archived() {
			updated = *product
			return nil
		}

		before := *product
		now := s.Now().UTC()
		updated = *product
		updated.ArchivedAt = &now
		if err := st.UpdateProduct(ctx, updated); err != nil {
			return err
		}
		return st.AppendAudit(ctx, s.audit(actor, "product", productID, "product.archive", before, updated))
	})
	if err != nil {
		return nil, fmt.Errorf("archive product %s: %w", productID, err)
	}
	return &updated, nil
}

// Products lists the catalogue, scoped to one owner when ownerID is non-empty.
func (s *Service) Products(ctx context.Context, ownerID string) ([]engine.Product, error) {
	return s.Store.ListProducts(ctx, ownerID)
}

// =============================================================================
// INVENTORY VIEWS
// =============================================================================

// BatchInventory is one batch with its live item counts.
type BatchInventory struct {
	Batch    engine.Batch
	Total    int
	InShop   int
	Sold     int
	Returned int
}

// ListInventory returns per-batch stock counts, scoped to one seller when
// sellerID is non-empty.
func (s *Service) ListInventory(ctx context.Context, sellerID string) ([]BatchInventory, error) {
	batches, err := s.Store.ListBatches(ctx, sellerID)
	if err != nil {
		return nil, err
	}

	out := make([]BatchInventory, 0, len(batches))
	for _, b := range batches {
		total, err := s.Store.CountItems(ctx, b.ID)
		if err != nil {
			return nil, err
		}
		inShop, err := s.Store.CountItemsByStatus(ctx, b.ID, engine.ItemInShop)
		if err != nil {
			return nil, err
		}
		sold, err := s.Store.CountItemsByStatus(ctx, b.ID, engine.ItemSold)
		if err != nil {
			return nil, err
		}
		returned, err := s.Store.CountItemsByStatus(ctx, b.ID, engine.ItemReturned)
		if err != nil {
			return nil, err
		}
		out = append(out, BatchInventory{
			Batch:    b,
			Total:    total,
			InShop:   inShop,
			Sold:     sold,
			Returned: returned,
		})
	}
	return out, nil
}

// ListBatchItems returns a batch's items with barcodes, for the prep/print
// view.
func (s *Service) ListBatchItems(ctx context.Context, batchID string) ([]engine.Item, error) {
	return s.Store.ListItems(ctx, batchID)
}

// ListCollectedBatches returns batches awaiting item prep or stocking.
func (s *Service) ListCollectedBatches(ctx context.Context) ([]engine.Batch, error) {
	return s.Store.ListCollectedBatches(ctx)
}

// ShopInventory returns the items currently stocked in a shop.
func (s *Service) ShopInventory(ctx context.Context, shopID string) ([]engine.Item, error) {
	return s.Store.ListShopInventory(ctx, shopID)
}

// =============================================================================
// SHARED HELPERS
// =============================================================================

// requireOwner enforces the ownership predicate as a second line of defense;
// role checks proper are the auth layer's job. Admins pass.
func requireOwner(actor engine.Actor, ownerID string) error {
	if actor.Role == engine.RoleAdmin || actor.ID == ownerID {
		return nil
	}
	return fmt.Errorf("actor %s does not own this record: %w", actor.ID, engine.ErrNotOwner)
}

func (s *Service) audit(actor engine.Actor, entity, entityID, action string, before, after any) engine.AuditEntry {
	return engine.AuditEntry{
		ID:        uuid.NewString(),
		Entity:    entity,
		EntityID:  entityID,
		Action:    action,
		ActorID:   actor.ID,
		ActorRole: actor.Role,
		Before:    engine.Snapshot(before),
		After:     engine.Snapshot(after),
		CreatedAt: s.Now().UTC(),
	}
}

// ReconcileBatchSales recomputes the batch's sold bucket from item counts.
// Called by the sale pipeline after a commit and by the return flow after a
// completion, inside their transactions.
//
// A batch enters partially_sold on its first sale and fully_sold when every
// item is terminal. A completed return that re-stocks items pulls a
// fully_sold batch back to partially_sold; a partially_sold batch stays in
// its bucket even if the sold count drops to zero.
func ReconcileBatchSales(ctx context.Context, st engine.Store, batchID string) error {
	batch, err := st.GetBatch(ctx, batchID)
	if err != nil {
		return err
	}
	switch batch.Status {
	case engine.BatchInShop, engine.BatchPartiallySold, engine.BatchFullySold:
	default:
		return nil
	}

	total, err := st.CountItems(ctx, batchID)
	if err != nil {
		return err
	}
	terminal, err := st.CountItemsByStatus(ctx, batchID, engine.ItemSold, engine.ItemReturned)
	if err != nil {
		return err
	}
	sold, err := st.CountItemsByStatus(ctx, batchID, engine.ItemSold)
	if err != nil {
		return err
	}

	next := batch.Status
	switch {
	case total > 0 && terminal == total:
		next = engine.BatchFullySold
	case batch.Status == engine.BatchFullySold:
		next = engine.BatchPartiallySold
	case batch.Status == engine.BatchInShop && sold > 0:
		next = engine.BatchPartiallySold
	}
	if next == batch.Status {
		return nil
	}
	batch.Status = next
	return st.UpdateBatch(ctx, *batch)
}
