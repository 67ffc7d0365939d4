// commission.go - per-seller commission rules and their evaluation.
//
// One active rule per seller. SetCommission deactivates the previous rule and
// inserts the new one in the same transaction; historical rules are kept
// inactive so past settlements stay explainable.
package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sellershop/inventory-engine/engine"
)

var hundred = decimal.NewFromInt(100)

// ApplyCommission returns the seller's net amount for a gross sale price under
// the currently active rule. No rule means no deduction.
func (l *Ledger) ApplyCommission(ctx context.Context, sellerID string, gross decimal.Decimal) (decimal.Decimal, error) {
	rule, err := l.Store.ActiveCommission(ctx, sellerID)
	if engine.IsNotFound(err) {
		return gross, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("active commission for seller %s: %w", sellerID, err)
	}

	switch rule.Type {
	case engine.CommissionPercentage:
		factor := decimal.NewFromInt(1).Sub(rule.Value.Div(hundred))
		return gross.Mul(factor), nil
	case engine.CommissionFixed:
		net := gross.Sub(rule.Value)
		if net.IsNegative() {
			return decimal.Zero, nil
		}
		return net, nil
	default:
		return decimal.Zero, fmt.Errorf("commission type %q: %w", rule.Type, engine.ErrValidation)
	}
}

// SetCommission replaces the seller's active commission rule. Admin only.
func (l *Ledger) SetCommission(ctx context.Context, actor engine.Actor, sellerID string, ctype engine.CommissionType, value decimal.Decimal) (*engine.Commission, error) {
	if actor.Role != engine.RoleAdmin {
		return nil, fmt.Errorf("only admins set commission rules: %w", engine.ErrNotOwner)
	}
	switch ctype {
	case engine.CommissionPercentage:
		if value.IsNegative() || value.GreaterThan(hundred) {
			return nil, fmt.Errorf("percentage commission must be within [0,100], got %s: %w", value, engine.ErrValidation)
		}
	case engine.CommissionFixed:
		if value.IsNegative() {
			return nil, fmt.Errorf("fixed commission must not be negative, got %s: %w", value, engine.ErrValidation)
		}
	default:
		return nil, fmt.Errorf("commission type %q: %w", ctype, engine.ErrValidation)
	}

	rule := engine.Commission{
		ID:        uuid.NewString(),
		SellerID:  sellerID,
		Type:      ctype,
		Value:     value,
		Active:    true,
		CreatedAt: l.Now().UTC(),
	}

	err := l.Store.WithTx(ctx, func(s engine.Store) error {
		previous, err := s.ActiveCommission(ctx, sellerID)
		if err != nil && !engine.IsNotFound(err) {
			return err
		}
		if err := s.DeactivateCommissions(ctx, sellerID); err != nil {
			return err
		}
		if err := s.InsertCommission(ctx, rule); err != nil {
			return err
		}
		return s.AppendAudit(ctx, engine.AuditEntry{
			ID:        uuid.NewString(),
			Entity:    "commission",
			EntityID:  rule.ID,
			Action:    "commission.set",
			ActorID:   actor.ID,
			ActorRole: actor.Role,
			Before:    engine.Snapshot(previous),
			After:     engine.Snapshot(rule),
			CreatedAt: l.Now().UTC(),
		})
	})
	if err != nil {
		return nil, fmt.Errorf("set commission for seller %s: %w", sellerID, err)
	}
	return &rule, nil
}

// ActiveRule returns the seller's current commission rule, if any.
func (l *Ledger) ActiveRule(ctx context.Context, sellerID string) (*engine.Commission, error) {
	return l.Store.ActiveCommission(ctx, sellerID)
}
