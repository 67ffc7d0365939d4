/*
quote.go - read-only price resolution for the point-of-sale screen

A quote fails softly: the Status field says whether the barcode can be sold
right now, and callers must check it before enabling the sell action. The
effective price is the batch's active accepted discount when one exists,
is unexpired, and still has item_limit headroom; otherwise the base price.
*/
package sales

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sellershop/inventory-engine/engine"
)

// QuoteStatus classifies a quote outcome.
type QuoteStatus string

const (
	QuoteOK        QuoteStatus = "ok"
	QuoteNotFound  QuoteStatus = "not_found"
	QuoteNotInShop QuoteStatus = "not_in_shop"
)

// Quote is the priced answer to "can this barcode be sold, and for how much".
type Quote struct {
	Status       QuoteStatus
	Barcode      string
	ItemID       string
	BatchID      string
	SalePrice    decimal.Decimal
	SellerAmount decimal.Decimal
	DiscountID   string
}

// QuoteSale resolves the current effective price for a barcode. Read-only;
// unsellable barcodes come back with a non-ok Status, not an error.
func (p *Pipeline) QuoteSale(ctx context.Context, barcode string) (*Quote, error) {
	item, err := p.Store.GetItemByBarcode(ctx, barcode)
	if engine.IsNotFound(err) {
		return &Quote{Status: QuoteNotFound, Barcode: barcode}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("quote %s: %w", barcode, err)
	}
	if item.Status != engine.ItemInShop {
		return &Quote{Status: QuoteNotInShop, Barcode: barcode, ItemID: item.ID, BatchID: item.BatchID}, nil
	}

	batch, err := p.Store.GetBatch(ctx, item.BatchID)
	if err != nil {
		return nil, fmt.Errorf("quote %s: %w", barcode, err)
	}

	price, discountID, err := p.effectivePrice(ctx, p.Store, batch, p.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("quote %s: %w", barcode, err)
	}
	sellerAmount, err := p.Ledger.ApplyCommission(ctx, batch.SellerID, price)
	if err != nil {
		return nil, fmt.Errorf("quote %s: %w", barcode, err)
	}

	return &Quote{
		Status:       QuoteOK,
		Barcode:      barcode,
		ItemID:       item.ID,
		BatchID:      item.BatchID,
		SalePrice:    price,
		SellerAmount: sellerAmount,
		DiscountID:   discountID,
	}, nil
}

// effectivePrice returns the discount price when an accepted, unexpired
// discount with item_limit headroom exists, else the base price. The second
// return value is the discount id that applied, empty when none did.
func (p *Pipeline) effectivePrice(ctx context.Context, st engine.Store, batch *engine.Batch, at time.Time) (decimal.Decimal, string, error) {
	discount, err := st.ActiveDiscount(ctx, batch.ID, at)
	if engine.IsNotFound(err) {
		return batch.BasePrice, "", nil
	}
	if err != nil {
		return decimal.Zero, "", err
	}
	if discount.ItemLimit != nil {
		used, err := st.CountDiscountedSales(ctx, discount.ID)
		if err != nil {
			return decimal.Zero, "", err
		}
		if used >= *discount.ItemLimit {
			return batch.BasePrice, "", nil
		}
	}
	return discount.DiscountPrice, discount.ID, nil
}
