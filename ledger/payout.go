/*
payout.go - payout request and decision lifecycle

Legal transitions:

	requested → approved | rejected   (admin decision)
	approved  → paid                  (admin marks disbursed)

The wallet is touched only at the approved → paid transition: the balance is
re-checked inside the transaction and a negative payout_debit row is written
alongside the status change. Approval alone never moves money, so a seller can
keep selling between approval and disbursement without the numbers drifting.
*/
package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sellershop/inventory-engine/engine"
)

// RequestPayout opens a payout request against the seller's current balance.
// Sellers may only request against their own wallet.
func (l *Ledger) RequestPayout(ctx context.Context, actor engine.Actor, sellerID string, amount decimal.Decimal) (*engine.Payout, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("payout amount must be positive, got %s: %w", amount, engine.ErrValidation)
	}
	if actor.Role == engine.RoleSeller && actor.ID != sellerID {
		return nil, fmt.Errorf("seller %s cannot request a payout for seller %s: %w", actor.ID, sellerID, engine.ErrNotOwner)
	}

	now := l.Now().UTC()
	payout := engine.Payout{
		ID:        uuid.NewString(),
		SellerID:  sellerID,
		Amount:    amount,
		Status:    engine.PayoutRequested,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := l.Store.WithTx(ctx, func(s engine.Store) error {
		wallet, err := s.GetWallet(ctx, sellerID)
		if err != nil {
			return err
		}
		if amount.GreaterThan(wallet.Balance) {
			return &engine.InsufficientBalanceError{
				SellerID:  sellerID,
				Available: wallet.Balance,
				Requested: amount,
			}
		}
		if err := s.InsertPayout(ctx, payout); err != nil {
			return err
		}
		return s.AppendAudit(ctx, engine.AuditEntry{
			ID:        uuid.NewString(),
			Entity:    "payout",
			EntityID:  payout.ID,
			Action:    "payout.request",
			ActorID:   actor.ID,
			ActorRole: actor.Role,
			After:     engine.Snapshot(payout),
			CreatedAt: now,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("request payout for seller %s: %w", sellerID, err)
	}
	return &payout, nil
}

// DecidePayout moves a payout through its lifecycle. Admin only.
func (l *Ledger) DecidePayout(ctx context.Context, actor engine.Actor, payoutID string, status engine.PayoutStatus, note string) (*engine.Payout, error) {
	if actor.Role != engine.RoleAdmin {
		return nil, fmt.Errorf("only admins decide payouts: %w", engine.ErrNotOwner)
	}

	var updated engine.Payout
	err := l.Store.WithTx(ctx, func(s engine.Store) error {
		payout, err := s.GetPayout(ctx, payoutID)
		if err != nil {
			return err
		}
		if !payoutTransitionAllowed(payout.Status, status) {
			return &engine.TransitionError{
				Entity:   "payout",
				EntityID: payoutID,
				From:     string(payout.Status),
				To:       string(status),
			}
		}

		before := *payout
		now := l.Now().UTC()
		updated = *payout
		updated.Status = status
		if note != "" {
			updated.Note = note
		}
		updated.UpdatedAt = now

		if status == engine.PayoutPaid {
			wallet, err := s.GetWallet(ctx, payout.SellerID)
			if err != nil {
				return err
			}
			if payout.Amount.GreaterThan(wallet.Balance) {
				return &engine.InsufficientBalanceError{
					SellerID:  payout.SellerID,
					Available: wallet.Balance,
					Requested: payout.Amount,
				}
			}
			debit := engine.WalletTransaction{
				ID:          uuid.NewString(),
				SellerID:    payout.SellerID,
				Kind:        engine.TxPayoutDebit,
				ReferenceID: payout.ID,
				Amount:      payout.Amount.Neg(),
				CreatedAt:   now,
			}
			if err := s.InsertWalletTransaction(ctx, debit); err != nil {
				return err
			}
			if err := s.ApplyWalletDelta(ctx, payout.SellerID, debit.Amount); err != nil {
				return err
			}
		}

		if err := s.UpdatePayout(ctx, updated); err != nil {
			return err
		}
		return s.AppendAudit(ctx, engine.AuditEntry{
			ID:        uuid.NewString(),
			Entity:    "payout",
			EntityID:  payout.ID,
			Action:    "payout.decide",
			ActorID:   actor.ID,
			ActorRole: actor.Role,
			Before:    engine.Snapshot(before),
			After:     engine.Snapshot(updated),
			CreatedAt: now,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("decide payout %s: %w", payoutID, err)
	}
	return &updated, nil
}

// Payouts lists payout requests, optionally filtered to one seller.
func (l *Ledger) Payouts(ctx context.Context, sellerID string) ([]engine.Payout, error) {
	return l.Store.ListPayouts(ctx, sellerID)
}

func payoutTransitionAllowed(from, to engine.PayoutStatus) bool {
	switch from {
	case engine.PayoutRequested:
		return to == engine.PayoutApproved || to == engine.PayoutRejected
	case engine.PayoutApproved:
		return to == engine.PayoutPaid
	default:
		return false
	}
}
