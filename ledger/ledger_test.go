package ledger_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopspring/decimal"

	"github.com/sellershop/inventory-engine/engine"
	"github.com/sellershop/inventory-engine/ledger"
	"github.com/sellershop/inventory-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var admin = engine.Actor{ID: "admin-1", Role: engine.RoleAdmin}

func newTestLedger(t *testing.T) (*ledger.Ledger, *sqlite.Store) {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return ledger.New(store), store
}

// assertDecimal compares decimals by value, not representation.
func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, engine.MustDecimal(want).Equal(got), "want %s, got %s", want, got)
}

// =============================================================================
// COMMISSION EVALUATION TESTS
// =============================================================================

func TestApplyCommission_NoRule_PassesGrossThrough(t *testing.T) {
	// GIVEN: Seller with no commission rule
	// WHEN: Evaluating a 100.00 gross sale
	// THEN: Net equals gross

	l, _ := newTestLedger(t)
	ctx := context.Background()

	net, err := l.ApplyCommission(ctx, "seller-1", engine.MustDecimal("100.00"))
	require.NoError(t, err)
	assertDecimal(t, "100.00", net)
}

func TestApplyCommission_Percentage(t *testing.T) {
	// GIVEN: 15% commission rule
	// WHEN: Evaluating a 200.00 gross sale
	// THEN: Net is 170.00

	l, _ := newTestLedger(t)
	ctx := context.Background()

	_, err := l.SetCommission(ctx, admin, "seller-1", engine.CommissionPercentage, engine.MustDecimal("15"))
	require.NoError(t, err)

	net, err := l.ApplyCommission(ctx, "seller-1", engine.MustDecimal("200.00"))
	require.NoError(t, err)
	assertDecimal(t, "170.00", net)
}

func TestApplyCommission_Fixed_ClampedAtZero(t *testing.T) {
	// GIVEN: Fixed 50.00 commission rule
	// WHEN: Evaluating a 30.00 gross sale
	// THEN: Net clamps to zero, never negative

	l, _ := newTestLedger(t)
	ctx := context.Background()

	_, err := l.SetCommission(ctx, admin, "seller-1", engine.CommissionFixed, engine.MustDecimal("50.00"))
	require.NoError(t, err)

	net, err := l.ApplyCommission(ctx, "seller-1", engine.MustDecimal("30.00"))
	require.NoError(t, err)
	assert.True(t, net.IsZero(), "net should clamp to zero, got %s", net)
}

func TestSetCommission_ReplacesActiveRule(t *testing.T) {
	// GIVEN: Seller with a 10% rule
	// WHEN: Admin sets a fixed 5.00 rule
	// THEN: Only the new rule is active

	l, _ := newTestLedger(t)
	ctx := context.Background()

	_, err := l.SetCommission(ctx, admin, "seller-1", engine.CommissionPercentage, engine.MustDecimal("10"))
	require.NoError(t, err)
	_, err = l.SetCommission(ctx, admin, "seller-1", engine.CommissionFixed, engine.MustDecimal("5.00"))
	require.NoError(t, err)

	rule, err := l.ActiveRule(ctx, "seller-1")
	require.NoError(t, err)
	assert.Equal(t, engine.CommissionFixed, rule.Type)

	net, err := l.ApplyCommission(ctx, "seller-1", engine.MustDecimal("100.00"))
	require.NoError(t, err)
	assertDecimal(t, "95.00", net)
}

func TestSetCommission_Validation(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	_, err := l.SetCommission(ctx, admin, "seller-1", engine.CommissionPercentage, engine.MustDecimal("150"))
	assert.ErrorIs(t, err, engine.ErrValidation, "percentage above 100 should be rejected")

	_, err = l.SetCommission(ctx, admin, "seller-1", engine.CommissionFixed, engine.MustDecimal("-1"))
	assert.ErrorIs(t, err, engine.ErrValidation, "negative fixed value should be rejected")

	seller := engine.Actor{ID: "seller-1", Role: engine.RoleSeller}
	_, err = l.SetCommission(ctx, seller, "seller-1", engine.CommissionFixed, engine.MustDecimal("1"))
	assert.ErrorIs(t, err, engine.ErrNotOwner, "non-admin should be rejected")
}

// =============================================================================
// SALE SETTLEMENT TESTS
// =============================================================================

func TestCreditSale_AppliesCommissionAndUpdatesBalance(t *testing.T) {
	// GIVEN: Seller with a 20% commission rule
	// WHEN: Crediting a 100.00 sale
	// THEN: Wallet holds 80.00 and the balance matches the transaction sum

	l, store := newTestLedger(t)
	ctx := context.Background()

	_, err := l.SetCommission(ctx, admin, "seller-1", engine.CommissionPercentage, engine.MustDecimal("20"))
	require.NoError(t, err)

	tx, err := l.CreditSale(ctx, admin, "seller-1", "sale-1", engine.MustDecimal("100.00"))
	require.NoError(t, err)
	assert.Equal(t, engine.TxSaleCredit, tx.Kind)
	assertDecimal(t, "80.00", tx.Amount)

	wallet, err := l.WalletBalance(ctx, "seller-1")
	require.NoError(t, err)
	assertDecimal(t, "80.00", wallet.Balance)

	sum, err := store.SumWalletTransactions(ctx, "seller-1")
	require.NoError(t, err)
	assert.True(t, wallet.Balance.Equal(sum), "cached balance must equal transaction sum")
}

func TestCreditSale_SecondCreditForSameSale_Rejected(t *testing.T) {
	// GIVEN: A sale already credited
	// WHEN: Crediting the same sale again
	// THEN: The unique index rejects it and the balance is unchanged

	l, _ := newTestLedger(t)
	ctx := context.Background()

	_, err := l.CreditSale(ctx, admin, "seller-1", "sale-1", engine.MustDecimal("40.00"))
	require.NoError(t, err)

	_, err = l.CreditSale(ctx, admin, "seller-1", "sale-1", engine.MustDecimal("40.00"))
	assert.Error(t, err, "double credit should be rejected")

	wallet, err := l.WalletBalance(ctx, "seller-1")
	require.NoError(t, err)
	assertDecimal(t, "40.00", wallet.Balance)
}

func TestReverseSale_NegatesOriginalCredit(t *testing.T) {
	// GIVEN: A credited sale
	// WHEN: Reversing it
	// THEN: A sale_reversal row negates the credit and the balance returns to zero

	l, _ := newTestLedger(t)
	ctx := context.Background()

	_, err := l.CreditSale(ctx, admin, "seller-1", "sale-1", engine.MustDecimal("55.50"))
	require.NoError(t, err)

	rev, err := l.ReverseSale(ctx, admin, "seller-1", "sale-1")
	require.NoError(t, err)
	assert.Equal(t, engine.TxSaleReversal, rev.Kind)
	assertDecimal(t, "-55.50", rev.Amount)

	wallet, err := l.WalletBalance(ctx, "seller-1")
	require.NoError(t, err)
	assert.True(t, wallet.Balance.IsZero())
}

func TestReverseSale_UnknownSale_NotFound(t *testing.T) {
	l, _ := newTestLedger(t)

	_, err := l.ReverseSale(context.Background(), admin, "seller-1", "sale-missing")
	assert.ErrorIs(t, err, engine.ErrNotFound)
}

// =============================================================================
// PAYOUT LIFECYCLE TESTS
// =============================================================================

func TestRequestPayout_InsufficientBalance(t *testing.T) {
	// GIVEN: Seller with a 30.00 balance
	// WHEN: Requesting a 50.00 payout
	// THEN: Rejected with InsufficientBalanceError carrying both amounts

	l, _ := newTestLedger(t)
	ctx := context.Background()
	seller := engine.Actor{ID: "seller-1", Role: engine.RoleSeller}

	_, err := l.CreditSale(ctx, admin, "seller-1", "sale-1", engine.MustDecimal("30.00"))
	require.NoError(t, err)

	_, err = l.RequestPayout(ctx, seller, "seller-1", engine.MustDecimal("50.00"))
	require.Error(t, err)

	var insufficient *engine.InsufficientBalanceError
	require.ErrorAs(t, err, &insufficient)
	assertDecimal(t, "30.00", insufficient.Available)
	assertDecimal(t, "50.00", insufficient.Requested)
}

func TestRequestPayout_SellerCannotRequestForAnother(t *testing.T) {
	l, _ := newTestLedger(t)
	seller := engine.Actor{ID: "seller-1", Role: engine.RoleSeller}

	_, err := l.RequestPayout(context.Background(), seller, "seller-2", engine.MustDecimal("10.00"))
	assert.ErrorIs(t, err, engine.ErrNotOwner)
}

func TestDecidePayout_FullLifecycle_DebitsOnPaid(t *testing.T) {
	// GIVEN: Seller with 100.00 and a requested 60.00 payout
	// WHEN: Admin approves, then marks paid
	// THEN: The wallet is debited exactly once, at the paid transition

	l, store := newTestLedger(t)
	ctx := context.Background()
	seller := engine.Actor{ID: "seller-1", Role: engine.RoleSeller}

	_, err := l.CreditSale(ctx, admin, "seller-1", "sale-1", engine.MustDecimal("100.00"))
	require.NoError(t, err)

	payout, err := l.RequestPayout(ctx, seller, "seller-1", engine.MustDecimal("60.00"))
	require.NoError(t, err)

	approved, err := l.DecidePayout(ctx, admin, payout.ID, engine.PayoutApproved, "ok")
	require.NoError(t, err)
	assert.Equal(t, engine.PayoutApproved, approved.Status)

	// Approval must not move money.
	wallet, err := l.WalletBalance(ctx, "seller-1")
	require.NoError(t, err)
	assertDecimal(t, "100.00", wallet.Balance)

	paid, err := l.DecidePayout(ctx, admin, payout.ID, engine.PayoutPaid, "")
	require.NoError(t, err)
	assert.Equal(t, engine.PayoutPaid, paid.Status)

	wallet, err = l.WalletBalance(ctx, "seller-1")
	require.NoError(t, err)
	assertDecimal(t, "40.00", wallet.Balance)

	sum, err := store.SumWalletTransactions(ctx, "seller-1")
	require.NoError(t, err)
	assert.True(t, wallet.Balance.Equal(sum))

	txs, err := l.Transactions(ctx, "seller-1")
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, engine.TxPayoutDebit, txs[1].Kind)
	assert.Equal(t, payout.ID, txs[1].ReferenceID)
}

func TestDecidePayout_IllegalTransitions(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	seller := engine.Actor{ID: "seller-1", Role: engine.RoleSeller}

	_, err := l.CreditSale(ctx, admin, "seller-1", "sale-1", engine.MustDecimal("20.00"))
	require.NoError(t, err)
	payout, err := l.RequestPayout(ctx, seller, "seller-1", engine.MustDecimal("10.00"))
	require.NoError(t, err)

	// requested → paid skips approval
	_, err = l.DecidePayout(ctx, admin, payout.ID, engine.PayoutPaid, "")
	var transition *engine.TransitionError
	require.ErrorAs(t, err, &transition)
	assert.Equal(t, "requested", transition.From)

	// rejected is terminal
	_, err = l.DecidePayout(ctx, admin, payout.ID, engine.PayoutRejected, "no")
	require.NoError(t, err)
	_, err = l.DecidePayout(ctx, admin, payout.ID, engine.PayoutApproved, "")
	assert.ErrorIs(t, err, engine.ErrInvalidTransition)
}

func TestDecidePayout_PaidRechecksBalance(t *testing.T) {
	// GIVEN: An approved payout whose seller balance has since been reversed away
	// WHEN: Admin marks it paid
	// THEN: The debit is refused rather than driving the balance negative

	l, _ := newTestLedger(t)
	ctx := context.Background()
	seller := engine.Actor{ID: "seller-1", Role: engine.RoleSeller}

	_, err := l.CreditSale(ctx, admin, "seller-1", "sale-1", engine.MustDecimal("80.00"))
	require.NoError(t, err)
	payout, err := l.RequestPayout(ctx, seller, "seller-1", engine.MustDecimal("80.00"))
	require.NoError(t, err)
	_, err = l.DecidePayout(ctx, admin, payout.ID, engine.PayoutApproved, "")
	require.NoError(t, err)

	_, err = l.ReverseSale(ctx, admin, "seller-1", "sale-1")
	require.NoError(t, err)

	_, err = l.DecidePayout(ctx, admin, payout.ID, engine.PayoutPaid, "")
	assert.ErrorIs(t, err, engine.ErrInsufficientBalance)
}

// =============================================================================
// AUDIT TRAIL TESTS
// =============================================================================

func TestLedger_WritesAuditEntries(t *testing.T) {
	l, store := newTestLedger(t)
	ctx := context.Background()

	_, err := l.CreditSale(ctx, admin, "seller-1", "sale-1", engine.MustDecimal("10.00"))
	require.NoError(t, err)

	entries, err := store.QueryAudit(ctx, engine.AuditFilter{Entity: "wallet", EntityID: "seller-1"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "wallet.credit_sale", entries[0].Action)
	assert.Equal(t, "admin-1", entries[0].ActorID)
	assert.NotEmpty(t, entries[0].Before)
	assert.NotEmpty(t, entries[0].After)
}
