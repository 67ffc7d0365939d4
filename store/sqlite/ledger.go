/*
ledger.go - wallets, wallet transactions, payouts, commissions

The wallet row is the cached balance; the transaction rows are the source of
truth. Both are written in the same WithTx scope by the ledger package, so
sum(wallet_transactions.amount) == wallets.balance holds at every commit
point. SumWalletTransactions exists so tests and reconciliation can verify
exactly that.
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sellershop/inventory-engine/engine"
)

// =============================================================================
// WALLETS
// =============================================================================

func (s *session) GetWallet(ctx context.Context, sellerID string) (*engine.Wallet, error) {
	row := s.c.QueryRowContext(ctx,
		"SELECT seller_id, balance, updated_at FROM wallets WHERE seller_id = ?", sellerID)

	var (
		w         engine.Wallet
		balance   string
		updatedAt string
	)
	err := row.Scan(&w.SellerID, &balance, &updatedAt)
	if err == sql.ErrNoRows {
		// A seller with no transactions yet has an empty wallet, not a
		// missing one.
		return &engine.Wallet{SellerID: sellerID, Balance: decimal.Zero}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan wallet: %w", err)
	}
	w.Balance = parseDecimal(balance)
	w.UpdatedAt = parseTime(updatedAt)
	return &w, nil
}

func (s *session) ApplyWalletDelta(ctx context.Context, sellerID string, delta decimal.Decimal) error {
	wallet, err := s.GetWallet(ctx, sellerID)
	if err != nil {
		return err
	}
	next := wallet.Balance.Add(delta)

	query := `
		INSERT INTO wallets (seller_id, balance, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(seller_id) DO UPDATE SET
			balance = excluded.balance,
			updated_at = excluded.updated_at
	`
	_, err = s.c.ExecContext(ctx, query, sellerID, next.String(), formatTime(time.Now().UTC()))
	if err != nil {
		return fmt.Errorf("failed to apply wallet delta: %w", err)
	}
	return nil
}

func (s *session) InsertWalletTransaction(ctx context.Context, tx engine.WalletTransaction) error {
	query := `
		INSERT INTO wallet_transactions (id, seller_id, kind, reference_id, amount, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := s.c.ExecContext(ctx, query,
		tx.ID, tx.SellerID, tx.Kind, tx.ReferenceID, tx.Amount.String(), formatTime(tx.CreatedAt),
	)
	if err != nil {
		if mapped := mapUniqueError(err); mapped != err {
			return mapped
		}
		return fmt.Errorf("failed to insert wallet transaction: %w", err)
	}
	return nil
}

func (s *session) ListWalletTransactions(ctx context.Context, sellerID string) ([]engine.WalletTransaction, error) {
	query := `
		SELECT id, seller_id, kind, reference_id, amount, created_at
		FROM wallet_transactions
		WHERE seller_id = ?
		ORDER BY created_at ASC, id ASC
	`
	rows, err := s.c.QueryContext(ctx, query, sellerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query wallet transactions: %w", err)
	}
	defer rows.Close()

	var txs []engine.WalletTransaction
	for rows.Next() {
		var (
			tx        engine.WalletTransaction
			amount    string
			createdAt string
		)
		if err := rows.Scan(&tx.ID, &tx.SellerID, &tx.Kind, &tx.ReferenceID, &amount, &createdAt); err != nil {
			return nil, err
		}
		tx.Amount = parseDecimal(amount)
		tx.CreatedAt = parseTime(createdAt)
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

func (s *session) SumWalletTransactions(ctx context.Context, sellerID string) (decimal.Decimal, error) {
	// Amounts are decimal strings; summing happens in Go to avoid SQLite
	// float arithmetic.
	txs, err := s.ListWalletTransactions(ctx, sellerID)
	if err != nil {
		return decimal.Zero, err
	}
	sum := decimal.Zero
	for _, tx := range txs {
		sum = sum.Add(tx.Amount)
	}
	return sum, nil
}

// =============================================================================
// PAYOUTS
// =============================================================================

func (s *session) InsertPayout(ctx context.Context, p engine.Payout) error {
	query := `
		INSERT INTO payouts (id, seller_id, amount, status, note, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.c.ExecContext(ctx, query,
		p.ID, p.SellerID, p.Amount.String(), p.Status, nullString(p.Note),
		formatTime(p.CreatedAt), formatTime(p.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert payout: %w", err)
	}
	return nil
}

func (s *session) GetPayout(ctx context.Context, id string) (*engine.Payout, error) {
	row := s.c.QueryRowContext(ctx,
		`SELECT id, seller_id, amount, status, note, created_at, updated_at
		 FROM payouts WHERE id = ?`, id)

	var (
		p         engine.Payout
		amount    string
		note      sql.NullString
		createdAt string
		updatedAt string
	)
	err := row.Scan(&p.ID, &p.SellerID, &amount, &p.Status, &note, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, notFound("payout", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan payout: %w", err)
	}
	p.Amount = parseDecimal(amount)
	p.Note = note.String
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)
	return &p, nil
}

func (s *session) UpdatePayout(ctx context.Context, p engine.Payout) error {
	query := `
		UPDATE payouts SET status = ?, note = ?, updated_at = ?
		WHERE id = ?
	`
	res, err := s.c.ExecContext(ctx, query, p.Status, nullString(p.Note), formatTime(p.UpdatedAt), p.ID)
	if err != nil {
		return fmt.Errorf("failed to update payout: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound("payout", p.ID)
	}
	return nil
}

func (s *session) ListPayouts(ctx context.Context, sellerID string) ([]engine.Payout, error) {
	query := `
		SELECT id, seller_id, amount, status, note, created_at, updated_at
		FROM payouts
	`
	var args []any
	if sellerID != "" {
		query += " WHERE seller_id = ?"
		args = append(args, sellerID)
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.c.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query payouts: %w", err)
	}
	defer rows.Close()

	var payouts []engine.Payout
	for rows.Next() {
		var (
			p         engine.Payout
			amount    string
			note      sql.NullString
			createdAt string
			updatedAt string
		)
		if err := rows.Scan(&p.ID, &p.SellerID, &amount, &p.Status, &note, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		p.Amount = parseDecimal(amount)
		p.Note = note.String
		p.CreatedAt = parseTime(createdAt)
		p.UpdatedAt = parseTime(updatedAt)
		payouts = append(payouts, p)
	}
	return payouts, rows.Err()
}

// =============================================================================
// COMMISSIONS
// =============================================================================

func (s *session) InsertCommission(ctx context.Context, c engine.Commission) error {
	query := `
		INSERT INTO commissions (id, seller_id, type, value, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := s.c.ExecContext(ctx, query,
		c.ID, c.SellerID, c.Type, c.Value.String(), c.Active, formatTime(c.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert commission: %w", err)
	}
	return nil
}

func (s *session) DeactivateCommissions(ctx context.Context, sellerID string) error {
	_, err := s.c.ExecContext(ctx,
		"UPDATE commissions SET active = FALSE WHERE seller_id = ? AND active = TRUE", sellerID)
	if err != nil {
		return fmt.Errorf("failed to deactivate commissions: %w", err)
	}
	return nil
}

func (s *session) ActiveCommission(ctx context.Context, sellerID string) (*engine.Commission, error) {
	// Latest active rule wins if duplicates exist.
	row := s.c.QueryRowContext(ctx,
		`SELECT id, seller_id, type, value, active, created_at
		 FROM commissions
		 WHERE seller_id = ? AND active = TRUE
		 ORDER BY created_at DESC, id DESC
		 LIMIT 1`, sellerID)

	var (
		c         engine.Commission
		value     string
		createdAt string
	)
	err := row.Scan(&c.ID, &c.SellerID, &c.Type, &value, &c.Active, &createdAt)
	if err == sql.ErrNoRows {
		return nil, notFound("active commission for seller", sellerID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan commission: %w", err)
	}
	c.Value = parseDecimal(value)
	c.CreatedAt = parseTime(createdAt)
	return &c, nil
}
