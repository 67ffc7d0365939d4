/*
Package sales is the sale event ingestion pipeline: exactly-once sale
commitment from untrusted, possibly-retried, possibly-offline clients.

PURPOSE:
  Point-of-sale clients queue sale attempts offline and replay them when
  connectivity returns. The pipeline makes replay safe: the client-generated
  client_event_id is the idempotency boundary, and every attempt lands as an
  append-only SaleEvent in a terminal status.

THE CONTRACT WITH OFFLINE CLIENTS:
  - accepted:  sale committed, drop from the queue.
  - rejected:  permanently refused (unknown barcode, wrong status, price
               mismatch), drop from the queue. Returned as a value, never as
               an error.
  - duplicate: this client_event_id was already processed; the original
               outcome is echoed back with no new side effects.
  - error:     infrastructure failure, keep queued and retry.

CRITICAL INVARIANTS:
  1. At most one Sale per item (unique index backstop); concurrent
     submissions for one barcode serialize so exactly one is accepted.
  2. Submitted prices are re-quoted server-side; a deviation beyond the
     configured tolerance is rejected so stale offline quotes cannot
     under- or over-charge.
  3. Accept path is one atomic unit: Sale row, item → sold, wallet credit,
     accepted SaleEvent, batch bucket update. All or nothing.

SEE ALSO:
  - quote.go:       read-only price resolution
  - ledger package: commission evaluation and wallet credit
*/
package sales

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sellershop/inventory-engine/engine"
	"github.com/sellershop/inventory-engine/inventory"
	"github.com/sellershop/inventory-engine/ledger"
)

// DefaultPriceTolerance is the maximum absolute deviation allowed between a
// client-submitted price and the server re-quote.
var DefaultPriceTolerance = engine.MustDecimal("0.01")

// Pipeline exposes quoting and sale event submission. Tolerance and Now are
// injectable; zero Tolerance means exact price match required.
type Pipeline struct {
	Store     engine.Store
	Ledger    *ledger.Ledger
	Tolerance decimal.Decimal
	Now       func() time.Time
}

// New creates a pipeline with the default price tolerance.
func New(store engine.Store, l *ledger.Ledger) *Pipeline {
	return &Pipeline{
		Store:     store,
		Ledger:    l,
		Tolerance: DefaultPriceTolerance,
		Now:       time.Now,
	}
}

// SubmitSaleParams is one attempt from a point-of-sale client.
type SubmitSaleParams struct {
	ClientEventID string
	Barcode       string
	SoldPrice     decimal.Decimal
	DeviceID      string
	OccurredAt    time.Time
}

// SubmitSaleEvent processes one sale attempt to a terminal SaleEvent.
// Business rejections come back as a rejected event with a nil error; only
// infrastructure failures surface as errors.
func (p *Pipeline) SubmitSaleEvent(ctx context.Context, actor engine.Actor, params SubmitSaleParams) (*engine.SaleEvent, error) {
	if params.ClientEventID == "" {
		return nil, fmt.Errorf("client event id is required: %w", engine.ErrValidation)
	}
	if params.Barcode == "" {
		return nil, fmt.Errorf("barcode is required: %w", engine.ErrValidation)
	}

	var result engine.SaleEvent
	err := p.Store.WithTx(ctx, func(st engine.Store) error {
		existing, err := st.GetSaleEventByClientID(ctx, params.ClientEventID)
		if err == nil {
			result = duplicateOf(*existing)
			return nil
		}
		if !engine.IsNotFound(err) {
			return err
		}

		outcome, err := p.process(ctx, st, actor, params)
		if err != nil {
			return err
		}
		if err := st.InsertSaleEvent(ctx, *outcome); err != nil {
			// Lost a race on client_event_id: echo the winner.
			if errors.Is(err, engine.ErrDuplicateEvent) {
				winner, gerr := st.GetSaleEventByClientID(ctx, params.ClientEventID)
				if gerr != nil {
					return gerr
				}
				result = duplicateOf(*winner)
				return nil
			}
			return err
		}
		result = *outcome
		return st.AppendAudit(ctx, engine.AuditEntry{
			ID:        uuid.NewString(),
			Entity:    "sale_event",
			EntityID:  outcome.ID,
			Action:    "sale_event.submit",
			ActorID:   actor.ID,
			ActorRole: actor.Role,
			After:     engine.Snapshot(outcome),
			CreatedAt: p.Now().UTC(),
		})
	})
	if err != nil {
		return nil, fmt.Errorf("submit sale event %s: %w", params.ClientEventID, err)
	}
	return &result, nil
}

// process validates and, on pass, commits the sale. Always returns a terminal
// event; business failures become rejected events, not errors.
func (p *Pipeline) process(ctx context.Context, st engine.Store, actor engine.Actor, params SubmitSaleParams) (*engine.SaleEvent, error) {
	now := p.Now().UTC()
	event := engine.SaleEvent{
		ID:            uuid.NewString(),
		ClientEventID: params.ClientEventID,
		ShopID:        actor.ID,
		Barcode:       params.Barcode,
		SoldPrice:     params.SoldPrice,
		SellerAmount:  decimal.Zero,
		DeviceID:      params.DeviceID,
		OccurredAt:    params.OccurredAt,
		ReceivedAt:    now,
	}
	reject := func(reason string) (*engine.SaleEvent, error) {
		event.Status = engine.SaleEventRejected
		event.Reason = reason
		return &event, nil
	}

	item, err := st.GetItemByBarcode(ctx, params.Barcode)
	if engine.IsNotFound(err) {
		return reject("barcode not found")
	}
	if err != nil {
		return nil, err
	}
	if item.Status != engine.ItemInShop {
		return reject(fmt.Sprintf("item is %s, not available for sale", item.Status))
	}
	if actor.Role == engine.RoleShop && item.CurrentShopID != actor.ID {
		return reject("item is stocked in a different shop")
	}

	batch, err := st.GetBatch(ctx, item.BatchID)
	if err != nil {
		return nil, err
	}
	price, discountID, err := p.effectivePrice(ctx, st, batch, now)
	if err != nil {
		return nil, err
	}
	if params.SoldPrice.Sub(price).Abs().GreaterThan(p.Tolerance) {
		mismatch := &engine.PriceMismatchError{
			Barcode:   params.Barcode,
			Quoted:    price,
			Submitted: params.SoldPrice,
			Tolerance: p.Tolerance,
		}
		return reject(mismatch.Error())
	}

	sale := engine.Sale{
		ID:         uuid.NewString(),
		ItemID:     item.ID,
		ShopID:     actor.ID,
		SoldPrice:  price,
		DiscountID: discountID,
		SoldAt:     now,
	}
	if err := st.InsertSale(ctx, sale); err != nil {
		// Lost a race on the item: the other submission's sale stands.
		if errors.Is(err, engine.ErrAlreadySold) {
			return reject("item already sold")
		}
		return nil, err
	}

	itemBefore := *item
	item.Status = engine.ItemSold
	if err := st.UpdateItem(ctx, *item); err != nil {
		return nil, err
	}
	if err := st.AppendAudit(ctx, engine.AuditEntry{
		ID:        uuid.NewString(),
		Entity:    "sale",
		EntityID:  sale.ID,
		Action:    "sale.commit",
		ActorID:   actor.ID,
		ActorRole: actor.Role,
		Before:    engine.Snapshot(itemBefore),
		After:     engine.Snapshot(item),
		CreatedAt: now,
	}); err != nil {
		return nil, err
	}

	txLedger := *p.Ledger
	txLedger.Store = st
	credit, err := txLedger.CreditSale(ctx, actor, batch.SellerID, sale.ID, price)
	if err != nil {
		return nil, err
	}
	if err := inventory.ReconcileBatchSales(ctx, st, batch.ID); err != nil {
		return nil, err
	}

	event.SoldPrice = price
	event.SellerAmount = credit.Amount
	event.Status = engine.SaleEventAccepted
	return &event, nil
}

// duplicateOf echoes a stored event back with the duplicate classification.
// The stored row keeps its original terminal status.
func duplicateOf(e engine.SaleEvent) engine.SaleEvent {
	e.Status = engine.SaleEventDuplicate
	return e
}

// ListSales returns committed sales, optionally scoped to one shop.
func (p *Pipeline) ListSales(ctx context.Context, shopID string) ([]engine.Sale, error) {
	return p.Store.ListSales(ctx, shopID)
}

// ListSaleEvents returns recent sale events for the reconciliation screen.
func (p *Pipeline) ListSaleEvents(ctx context.Context, shopID string, limit int) ([]engine.SaleEvent, error) {
	return p.Store.ListSaleEvents(ctx, shopID, limit)
}
