package workflow_test

import (
	"context"
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
	"github.com/sellershop/inventory-engine/workflow"
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
	engine   *workflow.Engine
	ledger   *ledger.Ledger
	pipeline *sales.Pipeline
	store    *sqlite.Store
	batch    *engine.Batch
}

// newFixture stands up a batch of 3 items stocked in shop-1 at 20.00.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	inv := inventory.New(store)
	l := ledger.New(store)

	product, err := inv.CreateProduct(ctx, seller, "Pressed flower frame", "")
	require.NoError(t, err)
	batch, err := inv.CreateBatch(ctx, seller, product.ID, engine.MustDecimal("20.00"), 3)
	require.NoError(t, err)
	collection, err := inv.CreateCollection(ctx, collector, batch.ID, 3)
	require.NoError(t, err)
	_, err = inv.CreateItems(ctx, admin, batch.ID, []string{"WF-1", "WF-2", "WF-3"}, engine.ItemCreated)
	require.NoError(t, err)
	_, err = inv.ConfirmCollection(ctx, seller, collection.ID)
	require.NoError(t, err)
	_, err = inv.HandoverCollectionToShop(ctx, collector, collection.ID, shop.ID, "")
	require.NoError(t, err)

	return &fixture{
		engine:   workflow.New(store, l),
		ledger:   l,
		pipeline: sales.New(store, l),
		store:    store,
		batch:    batch,
	}
}

// sell commits one barcode at the base price.
func (f *fixture) sell(t *testing.T, barcode string) {
	t.Helper()
	event, err := f.pipeline.SubmitSaleEvent(context.Background(), shop, sales.SubmitSaleParams{
		ClientEventID: uuid.NewString(),
		Barcode:       barcode,
		SoldPrice:     engine.MustDecimal("20.00"),
		OccurredAt:    time.Now().UTC(),
	})
	require.NoError(t, err)
	require.Equal(t, engine.SaleEventAccepted, event.Status)
}

// =============================================================================
// DISCOUNT TESTS
// =============================================================================

func TestRequestDiscount_MustUndercutBasePrice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tomorrow := time.Now().Add(24 * time.Hour)

	_, err := f.engine.RequestDiscount(ctx, seller, f.batch.ID, engine.MustDecimal("25.00"), nil, tomorrow)
	assert.ErrorIs(t, err, engine.ErrValidation)

	other := engine.Actor{ID: "seller-2", Role: engine.RoleSeller}
	_, err = f.engine.RequestDiscount(ctx, other, f.batch.ID, engine.MustDecimal("15.00"), nil, tomorrow)
	assert.ErrorIs(t, err, engine.ErrNotOwner)

	discount, err := f.engine.RequestDiscount(ctx, seller, f.batch.ID, engine.MustDecimal("15.00"), nil, tomorrow)
	require.NoError(t, err)
	assert.Equal(t, engine.DiscountPending, discount.Status)
}

func TestDecideDiscount_PendingOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	discount, err := f.engine.RequestDiscount(ctx, seller, f.batch.ID, engine.MustDecimal("15.00"), nil, time.Now().Add(time.Hour))
	require.NoError(t, err)

	_, err = f.engine.DecideDiscount(ctx, seller, discount.ID, engine.DiscountAccepted)
	assert.ErrorIs(t, err, engine.ErrNotOwner, "admin only")

	accepted, err := f.engine.DecideDiscount(ctx, admin, discount.ID, engine.DiscountAccepted)
	require.NoError(t, err)
	assert.Equal(t, engine.DiscountAccepted, accepted.Status)

	_, err = f.engine.DecideDiscount(ctx, admin, discount.ID, engine.DiscountRejected)
	assert.ErrorIs(t, err, engine.ErrInvalidTransition, "already decided")
}

func TestDiscountExpirySweep_Idempotent(t *testing.T) {
	// GIVEN: A pending discount already past expires_at
	// WHEN: Running the sweep twice
	// THEN: First run expires it, second run is a no-op with no new audit rows

	f := newFixture(t)
	ctx := context.Background()

	f.engine.Now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	discount, err := f.engine.RequestDiscount(ctx, seller, f.batch.ID, engine.MustDecimal("15.00"), nil, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	f.engine.Now = time.Now

	expired, err := f.engine.RunDiscountExpirySweep(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, 1, expired)

	got, err := f.store.GetDiscount(ctx, discount.ID)
	require.NoError(t, err)
	assert.Equal(t, engine.DiscountExpired, got.Status)

	expired, err = f.engine.RunDiscountExpirySweep(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, 0, expired, "re-run finds no pending candidates")

	entries, err := f.store.QueryAudit(ctx, engine.AuditFilter{Action: "discount.expire"})
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestDiscountExpirySweep_StalePendingGrace(t *testing.T) {
	// GIVEN: A pending discount with a far-future expiry but created before
	//        the grace cutoff
	// WHEN: Running the sweep
	// THEN: It is auto-expired as stale

	f := newFixture(t)
	ctx := context.Background()

	f.engine.Now = func() time.Time { return time.Now().Add(-72 * time.Hour) }
	_, err := f.engine.RequestDiscount(ctx, seller, f.batch.ID, engine.MustDecimal("15.00"), nil, time.Now().Add(240*time.Hour))
	require.NoError(t, err)
	f.engine.Now = time.Now

	expired, err := f.engine.RunDiscountExpirySweep(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, 1, expired)
}

// =============================================================================
// RETURN TESTS
// =============================================================================

func TestReturnFlow_CompleteRestocksAndReverses(t *testing.T) {
	// GIVEN: All 3 items sold (batch fully_sold, wallet credited 60.00) and
	//        an approved return for 2 units
	// WHEN: Completing the return
	// THEN: 2 items back in_shop, their sales gone, 40.00 reversed, batch
	//       back to partially_sold

	f := newFixture(t)
	ctx := context.Background()
	f.sell(t, "WF-1")
	f.sell(t, "WF-2")
	f.sell(t, "WF-3")

	request, err := f.engine.RequestReturn(ctx, seller, f.batch.ID, 2, "unsold season stock")
	require.NoError(t, err)

	_, err = f.engine.CompleteReturn(ctx, admin, request.ID)
	assert.ErrorIs(t, err, engine.ErrInvalidTransition, "must be approved first")

	_, err = f.engine.DecideReturn(ctx, admin, request.ID, engine.ReturnApproved, "ok")
	require.NoError(t, err)

	completed, err := f.engine.CompleteReturn(ctx, admin, request.ID)
	require.NoError(t, err)
	assert.Equal(t, engine.ReturnCompleted, completed.Status)

	inShop, err := f.store.CountItemsByStatus(ctx, f.batch.ID, engine.ItemInShop)
	require.NoError(t, err)
	assert.Equal(t, 2, inShop)

	wallet, err := f.ledger.WalletBalance(ctx, seller.ID)
	require.NoError(t, err)
	assert.True(t, engine.MustDecimal("20.00").Equal(wallet.Balance), "60 credited, 40 reversed")

	sum, err := f.store.SumWalletTransactions(ctx, seller.ID)
	require.NoError(t, err)
	assert.True(t, wallet.Balance.Equal(sum), "conservation holds through reversals")

	batch, err := f.store.GetBatch(ctx, f.batch.ID)
	require.NoError(t, err)
	assert.Equal(t, engine.BatchPartiallySold, batch.Status)

	remaining, err := f.pipeline.ListSales(ctx, shop.ID)
	require.NoError(t, err)
	assert.Len(t, remaining, 1, "a Sale exists iff its item is sold")
}

func TestCompleteReturn_InsufficientSoldItems(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.sell(t, "WF-1")

	request, err := f.engine.RequestReturn(ctx, seller, f.batch.ID, 2, "")
	require.NoError(t, err)
	_, err = f.engine.DecideReturn(ctx, admin, request.ID, engine.ReturnApproved, "")
	require.NoError(t, err)

	_, err = f.engine.CompleteReturn(ctx, admin, request.ID)
	assert.ErrorIs(t, err, engine.ErrInsufficientItems)

	// Nothing moved.
	sold, err := f.store.CountItemsByStatus(ctx, f.batch.ID, engine.ItemSold)
	require.NoError(t, err)
	assert.Equal(t, 1, sold)
}

func TestDecideReturn_AdminOnlyAndRequestedOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	request, err := f.engine.RequestReturn(ctx, seller, f.batch.ID, 1, "")
	require.NoError(t, err)

	_, err = f.engine.DecideReturn(ctx, seller, request.ID, engine.ReturnApproved, "")
	assert.ErrorIs(t, err, engine.ErrNotOwner)

	_, err = f.engine.DecideReturn(ctx, admin, request.ID, engine.ReturnRejected, "damaged claim unverified")
	require.NoError(t, err)

	_, err = f.engine.DecideReturn(ctx, admin, request.ID, engine.ReturnApproved, "")
	assert.ErrorIs(t, err, engine.ErrInvalidTransition)
}

// =============================================================================
// DISPUTE TESTS
// =============================================================================

func TestDisputeLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	dispute, err := f.engine.CreateDispute(ctx, seller, "batch", f.batch.ID, "collector count does not match mine")
	require.NoError(t, err)
	assert.Equal(t, engine.DisputeOpen, dispute.Status)
	assert.Equal(t, seller.ID, dispute.CreatedBy)

	_, err = f.engine.DecideDispute(ctx, seller, dispute.ID, engine.DisputeResolved, "")
	assert.ErrorIs(t, err, engine.ErrNotOwner)

	resolved, err := f.engine.DecideDispute(ctx, admin, dispute.ID, engine.DisputeResolved, "recounted, corrected")
	require.NoError(t, err)
	assert.Equal(t, engine.DisputeResolved, resolved.Status)
	assert.Equal(t, "recounted, corrected", resolved.AdminNote)

	_, err = f.engine.DecideDispute(ctx, admin, dispute.ID, engine.DisputeRejected, "")
	assert.ErrorIs(t, err, engine.ErrInvalidTransition)
}

func TestCreateDispute_RequiresMessage(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.CreateDispute(context.Background(), seller, "batch", f.batch.ID, "  ")
	assert.ErrorIs(t, err, engine.ErrValidation)
}
