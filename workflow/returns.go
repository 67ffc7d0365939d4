/*
returns.go - return request lifecycle with restock side effects

Completion is the only step that touches inventory and money: it picks
requested_quantity sold items of the batch, deletes their sales, reverses
their wallet credits, and puts the items back in_shop. "A Sale exists iff
its item is sold" survives the whole flow.
*/
package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/sellershop/inventory-engine/engine"
	"github.com/sellershop/inventory-engine/inventory"
	"github.com/sellershop/inventory-engine/ledger"
)

// RequestReturn opens a return request for sold units of the seller's batch.
func (e *Engine) RequestReturn(ctx context.Context, actor engine.Actor, batchID string, requestedQuantity int, reason string) (*engine.ReturnRequest, error) {
	if requestedQuantity <= 0 {
		return nil, fmt.Errorf("requested quantity must be positive, got %d: %w", requestedQuantity, engine.ErrValidation)
	}

	var request engine.ReturnRequest
	err := e.Store.WithTx(ctx, func(st engine.Store) error {
		batch, err := st.GetBatch(ctx, batchID)
		if err != nil {
			return err
		}
		if actor.Role != engine.RoleAdmin && actor.ID != batch.SellerID {
			return fmt.Errorf("actor %s does not own batch %s: %w", actor.ID, batchID, engine.ErrNotOwner)
		}

		now := e.Now().UTC()
		request = engine.ReturnRequest{
			ID:                uuid.NewString(),
			SellerID:          batch.SellerID,
			BatchID:           batchID,
			RequestedQuantity: requestedQuantity,
			Status:            engine.ReturnRequested,
			Reason:            reason,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		if err := st.InsertReturnRequest(ctx, request); err != nil {
			return err
		}
		return st.AppendAudit(ctx, e.audit(actor, "return_request", request.ID, "return.request", nil, request))
	})
	if err != nil {
		return nil, fmt.Errorf("request return for batch %s: %w", batchID, err)
	}
	return &request, nil
}

// DecideReturn approves or rejects a requested return. Admin only; no
// inventory side effects yet.
func (e *Engine) DecideReturn(ctx context.Context, actor engine.Actor, requestID string, status engine.ReturnStatus, note string) (*engine.ReturnRequest, error) {
	if actor.Role != engine.RoleAdmin {
		return nil, fmt.Errorf("only admins decide returns: %w", engine.ErrNotOwner)
	}
	if status != engine.ReturnApproved && status != engine.ReturnRejected {
		return nil, fmt.Errorf("return decision must be %s or %s, got %s: %w",
			engine.ReturnApproved, engine.ReturnRejected, status, engine.ErrValidation)
	}

	var updated engine.ReturnRequest
	err := e.Store.WithTx(ctx, func(st engine.Store) error {
		request, err := st.GetReturnRequest(ctx, requestID)
		if err != nil {
			return err
		}
		if request.Status != engine.ReturnRequested {
			return &engine.TransitionError{
				Entity:   "return_request",
				EntityID: requestID,
				From:     string(request.Status),
				To:       string(status),
			}
		}

		before := *request
		updated = *request
		updated.Status = status
		if strings.TrimSpace(note) != "" {
			updated.AdminNote = note
		}
		updated.UpdatedAt = e.Now().UTC()
		if err := st.UpdateReturnRequest(ctx, updated); err != nil {
			return err
		}
		return st.AppendAudit(ctx, e.audit(actor, "return_request", requestID, "return.decide", before, updated))
	})
	if err != nil {
		return nil, fmt.Errorf("decide return %s: %w", requestID, err)
	}
	return &updated, nil
}

// CompleteReturn confirms the physical return of an approved request: the
// requested number of sold items go back in_shop, their sales are deleted,
// and their wallet credits are reversed, all in one transaction.
func (e *Engine) CompleteReturn(ctx context.Context, actor engine.Actor, requestID string) (*engine.ReturnRequest, error) {
	if actor.Role != engine.RoleAdmin {
		return nil, fmt.Errorf("only admins complete returns: %w", engine.ErrNotOwner)
	}

	var updated engine.ReturnRequest
	err := e.Store.WithTx(ctx, func(st engine.Store) error {
		request, err := st.GetReturnRequest(ctx, requestID)
		if err != nil {
			return err
		}
		if request.Status != engine.ReturnApproved {
			return &engine.TransitionError{
				Entity:   "return_request",
				EntityID: requestID,
				From:     string(request.Status),
				To:       string(engine.ReturnCompleted),
			}
		}

		sold, err := st.ListItems(ctx, request.BatchID, engine.ItemSold)
		if err != nil {
			return err
		}
		if len(sold) < request.RequestedQuantity {
			return fmt.Errorf("batch %s has %d sold items, return asks for %d: %w",
				request.BatchID, len(sold), request.RequestedQuantity, engine.ErrInsufficientItems)
		}

		txLedger := ledger.Ledger{Store: st, Now: e.Now}
		for _, item := range sold[:request.RequestedQuantity] {
			sale, err := st.GetSaleByItem(ctx, item.ID)
			if err != nil {
				return err
			}
			if _, err := txLedger.ReverseSale(ctx, actor, request.SellerID, sale.ID); err != nil {
				return err
			}
			if err := st.DeleteSale(ctx, sale.ID); err != nil {
				return err
			}
			itemBefore := item
			item.Status = engine.ItemInShop
			if err := st.UpdateItem(ctx, item); err != nil {
				return err
			}
			if err := st.AppendAudit(ctx, e.audit(actor, "item", item.ID, "item.restock", itemBefore, item)); err != nil {
				return err
			}
		}
		if err := inventory.ReconcileBatchSales(ctx, st, request.BatchID); err != nil {
			return err
		}

		before := *request
		updated = *request
		updated.Status = engine.ReturnCompleted
		updated.UpdatedAt = e.Now().UTC()
		if err := st.UpdateReturnRequest(ctx, updated); err != nil {
			return err
		}
		return st.AppendAudit(ctx, e.audit(actor, "return_request", requestID, "return.complete", before, updated))
	})
	if err != nil {
		return nil, fmt.Errorf("complete return %s: %w", requestID, err)
	}
	return &updated, nil
}

// Returns lists return requests, optionally scoped to one seller.
func (e *Engine) Returns(ctx context.Context, sellerID string) ([]engine.ReturnRequest, error) {
	return e.Store.ListReturnRequests(ctx, sellerID)
}
