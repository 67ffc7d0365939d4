package sales_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sellershop/inventory-engine/engine"
	"github.com/sellershop/inventory-engine/inventory"
	"github.com/sellershop/inventory-engine/ledger"
	"github.com/sellershop/inventory-engine/sales"
	"github.com/sellershop/inventory-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var (
	admin     = engine.Actor{ID: "admin-1", Role: engine.RoleAdmin}
	seller    = engine.Actor{ID: "seller-1", Role: engine.RoleSeller}
	collector = engine.Actor{ID: "collector-1", Role: engine.RoleCollector}
	shop      = engine.Actor{ID: "shop-1", Role: engine.RoleShop}
)

type fixture struct {
	pipeline *sales.Pipeline
	ledger   *ledger.Ledger
	inv      *inventory.Service
	store    *sqlite.Store
	batch    *engine.Batch
}

// newFixture stands up a batch of 2 items ("BC-1", "BC-2") stocked in shop-1
// at base price 50.00.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	inv := inventory.New(store)
	l := ledger.New(store)

	product, err := inv.CreateProduct(ctx, seller, "Handwoven scarf", "")
	require.NoError(t, err)
	batch, err := inv.CreateBatch(ctx, seller, product.ID, engine.MustDecimal("50.00"), 2)
	require.NoError(t, err)
	collection, err := inv.CreateCollection(ctx, collector, batch.ID, 2)
	require.NoError(t, err)
	_, err = inv.CreateItems(ctx, admin, batch.ID, []string{"BC-1", "BC-2"}, engine.ItemCreated)
	require.NoError(t, err)
	_, err = inv.ConfirmCollection(ctx, seller, collection.ID)
	require.NoError(t, err)
	_, err = inv.HandoverCollectionToShop(ctx, collector, collection.ID, shop.ID, "")
	require.NoError(t, err)

	return &fixture{
		pipeline: sales.New(store, l),
		ledger:   l,
		inv:      inv,
		store:    store,
		batch:    batch,
	}
}

func submit(clientEventID, barcode, price string) sales.SubmitSaleParams {
	return sales.SubmitSaleParams{
		ClientEventID: clientEventID,
		Barcode:       barcode,
		SoldPrice:     engine.MustDecimal(price),
		DeviceID:      "pos-1",
		OccurredAt:    time.Now().UTC(),
	}
}

// =============================================================================
// QUOTE TESTS
// =============================================================================

func TestQuoteSale_BasePrice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	quote, err := f.pipeline.QuoteSale(ctx, "BC-1")
	require.NoError(t, err)
	assert.Equal(t, sales.QuoteOK, quote.Status)
	assert.True(t, engine.MustDecimal("50.00").Equal(quote.SalePrice))
	assert.True(t, engine.MustDecimal("50.00").Equal(quote.SellerAmount), "no commission rule yet")
	assert.Empty(t, quote.DiscountID)
}

func TestQuoteSale_FailsSoftly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	quote, err := f.pipeline.QuoteSale(ctx, "BC-MISSING")
	require.NoError(t, err, "unknown barcode is a soft failure")
	assert.Equal(t, sales.QuoteNotFound, quote.Status)

	_, err = f.pipeline.SubmitSaleEvent(ctx, shop, submit(uuid.NewString(), "BC-1", "50.00"))
	require.NoError(t, err)

	quote, err = f.pipeline.QuoteSale(ctx, "BC-1")
	require.NoError(t, err)
	assert.Equal(t, sales.QuoteNotInShop, quote.Status)
}

func TestQuoteSale_DiscountWithinLimitAndWindow(t *testing.T) {
	// GIVEN: An accepted, unexpired discount with item_limit 1
	// WHEN: Quoting before and after the limit is consumed
	// THEN: First quote sees the discount, the next falls back to base price

	f := newFixture(t)
	ctx := context.Background()

	limit := 1
	require.NoError(t, f.store.InsertDiscount(ctx, engine.Discount{
		ID:            uuid.NewString(),
		BatchID:       f.batch.ID,
		DiscountPrice: engine.MustDecimal("40.00"),
		ItemLimit:     &limit,
		Status:        engine.DiscountAccepted,
		ExpiresAt:     time.Now().UTC().Add(24 * time.Hour),
		CreatedAt:     time.Now().UTC(),
	}))

	quote, err := f.pipeline.QuoteSale(ctx, "BC-1")
	require.NoError(t, err)
	assert.True(t, engine.MustDecimal("40.00").Equal(quote.SalePrice))
	assert.NotEmpty(t, quote.DiscountID)

	event, err := f.pipeline.SubmitSaleEvent(ctx, shop, submit(uuid.NewString(), "BC-1", "40.00"))
	require.NoError(t, err)
	require.Equal(t, engine.SaleEventAccepted, event.Status)

	quote, err = f.pipeline.QuoteSale(ctx, "BC-2")
	require.NoError(t, err)
	assert.True(t, engine.MustDecimal("50.00").Equal(quote.SalePrice), "limit consumed, back to base price")
	assert.Empty(t, quote.DiscountID)
}

// =============================================================================
// SUBMISSION TESTS
// =============================================================================

func TestSubmitSaleEvent_AcceptedCommitsEverything(t *testing.T) {
	// GIVEN: A stocked item and a 10% commission rule
	// WHEN: Submitting a sale at the quoted price
	// THEN: Sale row, item sold, wallet credited net, batch partially_sold

	f := newFixture(t)
	ctx := context.Background()

	_, err := f.ledger.SetCommission(ctx, admin, seller.ID, engine.CommissionPercentage, engine.MustDecimal("10"))
	require.NoError(t, err)

	event, err := f.pipeline.SubmitSaleEvent(ctx, shop, submit("evt-1", "BC-1", "50.00"))
	require.NoError(t, err)
	assert.Equal(t, engine.SaleEventAccepted, event.Status)
	assert.True(t, engine.MustDecimal("45.00").Equal(event.SellerAmount))

	item, err := f.store.GetItemByBarcode(ctx, "BC-1")
	require.NoError(t, err)
	assert.Equal(t, engine.ItemSold, item.Status)

	sale, err := f.store.GetSaleByItem(ctx, item.ID)
	require.NoError(t, err)
	assert.True(t, engine.MustDecimal("50.00").Equal(sale.SoldPrice))

	wallet, err := f.ledger.WalletBalance(ctx, seller.ID)
	require.NoError(t, err)
	assert.True(t, engine.MustDecimal("45.00").Equal(wallet.Balance))

	batch, err := f.store.GetBatch(ctx, f.batch.ID)
	require.NoError(t, err)
	assert.Equal(t, engine.BatchPartiallySold, batch.Status)
}

func TestSubmitSaleEvent_AllItemsSold_BatchFullySold(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, bc := range []string{"BC-1", "BC-2"} {
		event, err := f.pipeline.SubmitSaleEvent(ctx, shop, submit(uuid.NewString(), bc, "50.00"))
		require.NoError(t, err)
		require.Equal(t, engine.SaleEventAccepted, event.Status)
	}

	batch, err := f.store.GetBatch(ctx, f.batch.ID)
	require.NoError(t, err)
	assert.Equal(t, engine.BatchFullySold, batch.Status)
}

func TestSubmitSaleEvent_Idempotent(t *testing.T) {
	// GIVEN: A processed sale event
	// WHEN: Resubmitting the same client_event_id, even with another price
	// THEN: duplicate with the original outcome, no new side effects

	f := newFixture(t)
	ctx := context.Background()

	first, err := f.pipeline.SubmitSaleEvent(ctx, shop, submit("evt-1", "BC-1", "50.00"))
	require.NoError(t, err)
	require.Equal(t, engine.SaleEventAccepted, first.Status)

	second, err := f.pipeline.SubmitSaleEvent(ctx, shop, submit("evt-1", "BC-1", "99.99"))
	require.NoError(t, err)
	assert.Equal(t, engine.SaleEventDuplicate, second.Status)
	assert.Equal(t, first.ID, second.ID, "the original event is echoed back")
	assert.True(t, first.SoldPrice.Equal(second.SoldPrice))

	wallet, err := f.ledger.WalletBalance(ctx, seller.ID)
	require.NoError(t, err)
	assert.True(t, engine.MustDecimal("50.00").Equal(wallet.Balance), "second call must not credit again")

	committed, err := f.pipeline.ListSales(ctx, shop.ID)
	require.NoError(t, err)
	assert.Len(t, committed, 1, "exactly one Sale row")

	// The stored row keeps its terminal status.
	stored, err := f.store.GetSaleEventByClientID(ctx, "evt-1")
	require.NoError(t, err)
	assert.Equal(t, engine.SaleEventAccepted, stored.Status)
}

func TestSubmitSaleEvent_PriceMismatchRejected(t *testing.T) {
	// GIVEN: A stale offline quote well below the current price
	// WHEN: Submitting it
	// THEN: rejected event (nil error), no sale, no credit

	f := newFixture(t)
	ctx := context.Background()

	event, err := f.pipeline.SubmitSaleEvent(ctx, shop, submit("evt-1", "BC-1", "30.00"))
	require.NoError(t, err, "business rejections are values, not errors")
	assert.Equal(t, engine.SaleEventRejected, event.Status)
	assert.Contains(t, event.Reason, "price")

	item, err := f.store.GetItemByBarcode(ctx, "BC-1")
	require.NoError(t, err)
	assert.Equal(t, engine.ItemInShop, item.Status, "item stays sellable")

	wallet, err := f.ledger.WalletBalance(ctx, seller.ID)
	require.NoError(t, err)
	assert.True(t, wallet.Balance.IsZero())

	// The rejection is still on record for reconciliation.
	events, err := f.pipeline.ListSaleEvents(ctx, shop.ID, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, engine.SaleEventRejected, events[0].Status)
}

func TestSubmitSaleEvent_WithinToleranceAccepted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	event, err := f.pipeline.SubmitSaleEvent(ctx, shop, submit("evt-1", "BC-1", "49.99"))
	require.NoError(t, err)
	assert.Equal(t, engine.SaleEventAccepted, event.Status)
	assert.True(t, engine.MustDecimal("50.00").Equal(event.SoldPrice), "committed at the server price")
}

func TestSubmitSaleEvent_UnknownBarcodeRejected(t *testing.T) {
	f := newFixture(t)

	event, err := f.pipeline.SubmitSaleEvent(context.Background(), shop, submit("evt-1", "BC-MISSING", "50.00"))
	require.NoError(t, err)
	assert.Equal(t, engine.SaleEventRejected, event.Status)
	assert.Contains(t, event.Reason, "not found")
}

func TestSubmitSaleEvent_AlreadySoldRejected(t *testing.T) {
	// GIVEN: An item sold through one event
	// WHEN: A different client event tries to sell the same barcode
	// THEN: rejected (not duplicate; it is a distinct attempt)

	f := newFixture(t)
	ctx := context.Background()

	first, err := f.pipeline.SubmitSaleEvent(ctx, shop, submit("evt-1", "BC-1", "50.00"))
	require.NoError(t, err)
	require.Equal(t, engine.SaleEventAccepted, first.Status)

	second, err := f.pipeline.SubmitSaleEvent(ctx, shop, submit("evt-2", "BC-1", "50.00"))
	require.NoError(t, err)
	assert.Equal(t, engine.SaleEventRejected, second.Status)

	committed, err := f.pipeline.ListSales(ctx, shop.ID)
	require.NoError(t, err)
	assert.Len(t, committed, 1)
}

func TestSubmitSaleEvent_ConcurrentSameBarcode(t *testing.T) {
	// GIVEN: 8 point-of-sale clients racing distinct events for one barcode
	// WHEN: All submissions run concurrently
	// THEN: Exactly one is accepted, the rest are terminally rejected, and
	//       exactly one Sale row exists

	f := newFixture(t)
	ctx := context.Background()

	const attempts = 8
	statuses := make(chan engine.SaleEventStatus, attempts)
	errs := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			event, err := f.pipeline.SubmitSaleEvent(ctx, shop,
				submit(fmt.Sprintf("evt-race-%d", n), "BC-1", "50.00"))
			if err != nil {
				errs <- err
				return
			}
			statuses <- event.Status
		}(i)
	}
	wg.Wait()
	close(statuses)
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	accepted, rejected := 0, 0
	for status := range statuses {
		switch status {
		case engine.SaleEventAccepted:
			accepted++
		case engine.SaleEventRejected:
			rejected++
		}
	}
	assert.Equal(t, 1, accepted)
	assert.Equal(t, attempts-1, rejected)

	committed, err := f.pipeline.ListSales(ctx, shop.ID)
	require.NoError(t, err)
	assert.Len(t, committed, 1)

	wallet, err := f.ledger.WalletBalance(ctx, seller.ID)
	require.NoError(t, err)
	assert.True(t, engine.MustDecimal("50.00").Equal(wallet.Balance), "one credit only")
}

func TestSubmitSaleEvent_WrongShopRejected(t *testing.T) {
	f := newFixture(t)
	otherShop := engine.Actor{ID: "shop-2", Role: engine.RoleShop}

	event, err := f.pipeline.SubmitSaleEvent(context.Background(), otherShop, submit("evt-1", "BC-1", "50.00"))
	require.NoError(t, err)
	assert.Equal(t, engine.SaleEventRejected, event.Status)
	assert.Contains(t, event.Reason, "different shop")
}
