/*
Package ledger is the settlement core: seller wallets, commission evaluation,
and the payout lifecycle.

PURPOSE:
  Authoritative seller balance. Every balance change is a wallet transaction
  row written atomically with the cached wallet balance, so
  sum(transactions) == balance at every commit point. Pure accounting - no
  external I/O beyond the store.

CRITICAL INVARIANTS:
  1. One sale_credit per sale (unique index backstop).
  2. Corrections are reversal rows, never edits.
  3. The wallet is debited exactly once, at the approved → paid payout
     transition, with the balance re-checked inside that transaction.

COMMISSION:
  net = gross * (1 - value/100)  for percentage rules
  net = max(gross - value, 0)    for fixed rules
  net = gross                    when the seller has no active rule
  Percentage values are validated to [0,100] when the rule is written;
  the evaluator never clamps.

TRANSACTION MODEL:
  Every method is its own transaction unit via Store.WithTx. WithTx is
  reentrant, so the sale pipeline can run CreditSale inside its own commit
  scope and the credit joins the sale's transaction.

SEE ALSO:
  - commission.go: rule writes and evaluation
  - payout.go:     request/decide lifecycle
*/
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sellershop/inventory-engine/engine"
)

// Ledger exposes the settlement operations. Now is injectable for tests.
type Ledger struct {
	Store engine.Store
	Now   func() time.Time
}

// New creates a ledger over the given store.
func New(store engine.Store) *Ledger {
	return &Ledger{Store: store, Now: time.Now}
}

// =============================================================================
// SALE SETTLEMENT
// =============================================================================

// CreditSale settles one sale into the seller's wallet: computes the
// net-of-commission amount, inserts the sale_credit transaction, and
// increments the balance. Must be called exactly once per sale; the unique
// sale_credit index rejects a second attempt.
func (l *Ledger) CreditSale(ctx context.Context, actor engine.Actor, sellerID, saleID string, gross decimal.Decimal) (*engine.WalletTransaction, error) {
	net, err := l.ApplyCommission(ctx, sellerID, gross)
	if err != nil {
		return nil, err
	}

	tx := engine.WalletTransaction{
		ID:          uuid.NewString(),
		SellerID:    sellerID,
		Kind:        engine.TxSaleCredit,
		ReferenceID: saleID,
		Amount:      net,
		CreatedAt:   l.Now().UTC(),
	}

	err = l.Store.WithTx(ctx, func(s engine.Store) error {
		before, err := s.GetWallet(ctx, sellerID)
		if err != nil {
			return err
		}
		if err := s.InsertWalletTransaction(ctx, tx); err != nil {
			return err
		}
		if err := s.ApplyWalletDelta(ctx, sellerID, net); err != nil {
			return err
		}
		after, err := s.GetWallet(ctx, sellerID)
		if err != nil {
			return err
		}
		return s.AppendAudit(ctx, engine.AuditEntry{
			ID:        uuid.NewString(),
			Entity:    "wallet",
			EntityID:  sellerID,
			Action:    "wallet.credit_sale",
			ActorID:   actor.ID,
			ActorRole: actor.Role,
			Before:    engine.Snapshot(before),
			After:     engine.Snapshot(after),
			CreatedAt: l.Now().UTC(),
		})
	})
	if err != nil {
		return nil, fmt.Errorf("credit sale %s: %w", saleID, err)
	}
	return &tx, nil
}

// ReverseSale undoes a sale's settlement: inserts a sale_reversal row for the
// negated credit amount and decrements the balance. Used by the return flow.
func (l *Ledger) ReverseSale(ctx context.Context, actor engine.Actor, sellerID, saleID string) (*engine.WalletTransaction, error) {
	var reversal engine.WalletTransaction

	err := l.Store.WithTx(ctx, func(s engine.Store) error {
		txs, err := s.ListWalletTransactions(ctx, sellerID)
		if err != nil {
			return err
		}
		var credit *engine.WalletTransaction
		for i := range txs {
			if txs[i].Kind == engine.TxSaleCredit && txs[i].ReferenceID == saleID {
				credit = &txs[i]
				break
			}
		}
		if credit == nil {
			return fmt.Errorf("sale credit for sale %s: %w", saleID, engine.ErrNotFound)
		}

		reversal = engine.WalletTransaction{
			ID:          uuid.NewString(),
			SellerID:    sellerID,
			Kind:        engine.TxSaleReversal,
			ReferenceID: saleID,
			Amount:      credit.Amount.Neg(),
			CreatedAt:   l.Now().UTC(),
		}

		before, err := s.GetWallet(ctx, sellerID)
		if err != nil {
			return err
		}
		if err := s.InsertWalletTransaction(ctx, reversal); err != nil {
			return err
		}
		if err := s.ApplyWalletDelta(ctx, sellerID, reversal.Amount); err != nil {
			return err
		}
		after, err := s.GetWallet(ctx, sellerID)
		if err != nil {
			return err
		}
		return s.AppendAudit(ctx, engine.AuditEntry{
			ID:        uuid.NewString(),
			Entity:    "wallet",
			EntityID:  sellerID,
			Action:    "wallet.reverse_sale",
			ActorID:   actor.ID,
			ActorRole: actor.Role,
			Before:    engine.Snapshot(before),
			After:     engine.Snapshot(after),
			CreatedAt: l.Now().UTC(),
		})
	})
	if err != nil {
		return nil, fmt.Errorf("reverse sale %s: %w", saleID, err)
	}
	return &reversal, nil
}

// =============================================================================
// QUERIES
// =============================================================================

// WalletBalance returns the seller's wallet; zero-balance for sellers with
// no settlement history.
func (l *Ledger) WalletBalance(ctx context.Context, sellerID string) (*engine.Wallet, error) {
	return l.Store.GetWallet(ctx, sellerID)
}

// Transactions returns the seller's wallet transaction history, oldest first.
func (l *Ledger) Transactions(ctx context.Context, sellerID string) ([]engine.WalletTransaction, error) {
	return l.Store.ListWalletTransactions(ctx, sellerID)
}
