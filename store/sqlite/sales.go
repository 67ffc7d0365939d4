/*
sales.go - sale commitment and the append-only sale event intake

The unique index on sales.item_id is the no-double-sell backstop; the unique
index on sale_events.client_event_id is the idempotency backstop. Both are
surfaced as engine sentinels by mapUniqueError so the pipeline can classify
races without touching driver errors.
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sellershop/inventory-engine/engine"
)

// =============================================================================
// SALES
// =============================================================================

func (s *session) InsertSale(ctx context.Context, sale engine.Sale) error {
	query := `
		INSERT INTO sales (id, item_id, shop_id, sold_price, discount_id, sold_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := s.c.ExecContext(ctx, query,
		sale.ID, sale.ItemID, sale.ShopID, sale.SoldPrice.String(),
		nullString(sale.DiscountID), formatTime(sale.SoldAt),
	)
	if err != nil {
		if mapped := mapUniqueError(err); mapped != err {
			return mapped
		}
		return fmt.Errorf("failed to insert sale: %w", err)
	}
	return nil
}

func (s *session) GetSaleByItem(ctx context.Context, itemID string) (*engine.Sale, error) {
	row := s.c.QueryRowContext(ctx,
		`SELECT id, item_id, shop_id, sold_price, discount_id, sold_at
		 FROM sales WHERE item_id = ?`, itemID)

	var (
		sale       engine.Sale
		soldPrice  string
		discountID sql.NullString
		soldAt     string
	)
	err := row.Scan(&sale.ID, &sale.ItemID, &sale.ShopID, &soldPrice, &discountID, &soldAt)
	if err == sql.ErrNoRows {
		return nil, notFound("sale for item", itemID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan sale: %w", err)
	}
	sale.SoldPrice = parseDecimal(soldPrice)
	sale.DiscountID = discountID.String
	sale.SoldAt = parseTime(soldAt)
	return &sale, nil
}

func (s *session) DeleteSale(ctx context.Context, id string) error {
	res, err := s.c.ExecContext(ctx, "DELETE FROM sales WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete sale: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound("sale", id)
	}
	return nil
}

func (s *session) ListSales(ctx context.Context, shopID string) ([]engine.Sale, error) {
	query := `
		SELECT id, item_id, shop_id, sold_price, discount_id, sold_at
		FROM sales
	`
	var args []any
	if shopID != "" {
		query += " WHERE shop_id = ?"
		args = append(args, shopID)
	}
	query += " ORDER BY sold_at DESC"
	return s.querySales(ctx, query, args...)
}

func (s *session) ListSalesByBatch(ctx context.Context, batchID string) ([]engine.Sale, error) {
	query := `
		SELECT s.id, s.item_id, s.shop_id, s.sold_price, s.discount_id, s.sold_at
		FROM sales s
		JOIN items i ON i.id = s.item_id
		WHERE i.batch_id = ?
		ORDER BY s.sold_at ASC
	`
	return s.querySales(ctx, query, batchID)
}

func (s *session) CountDiscountedSales(ctx context.Context, discountID string) (int, error) {
	var count int
	err := s.c.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sales WHERE discount_id = ?", discountID,
	).Scan(&count)
	return count, err
}

func (s *session) querySales(ctx context.Context, query string, args ...any) ([]engine.Sale, error) {
	rows, err := s.c.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sales: %w", err)
	}
	defer rows.Close()

	var sales []engine.Sale
	for rows.Next() {
		var (
			sale       engine.Sale
			soldPrice  string
			discountID sql.NullString
			soldAt     string
		)
		if err := rows.Scan(&sale.ID, &sale.ItemID, &sale.ShopID, &soldPrice, &discountID, &soldAt); err != nil {
			return nil, err
		}
		sale.SoldPrice = parseDecimal(soldPrice)
		sale.DiscountID = discountID.String
		sale.SoldAt = parseTime(soldAt)
		sales = append(sales, sale)
	}
	return sales, rows.Err()
}

// =============================================================================
// SALE EVENTS
// =============================================================================

func (s *session) InsertSaleEvent(ctx context.Context, e engine.SaleEvent) error {
	query := `
		INSERT INTO sale_events
		(id, client_event_id, shop_id, barcode, sold_price, seller_amount, device_id,
		 occurred_at, received_at, status, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.c.ExecContext(ctx, query,
		e.ID, e.ClientEventID, e.ShopID, e.Barcode,
		e.SoldPrice.String(), e.SellerAmount.String(), nullString(e.DeviceID),
		formatTime(e.OccurredAt), formatTime(e.ReceivedAt), e.Status, nullString(e.Reason),
	)
	if err != nil {
		if mapped := mapUniqueError(err); mapped != err {
			return mapped
		}
		return fmt.Errorf("failed to insert sale event: %w", err)
	}
	return nil
}

func (s *session) GetSaleEventByClientID(ctx context.Context, clientEventID string) (*engine.SaleEvent, error) {
	row := s.c.QueryRowContext(ctx,
		`SELECT id, client_event_id, shop_id, barcode, sold_price, seller_amount, device_id,
		        occurred_at, received_at, status, reason
		 FROM sale_events WHERE client_event_id = ?`, clientEventID)

	e, err := scanSaleEventRow(row)
	if err == sql.ErrNoRows {
		return nil, notFound("sale event", clientEventID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan sale event: %w", err)
	}
	return e, nil
}

func (s *session) ListSaleEvents(ctx context.Context, shopID string, limit int) ([]engine.SaleEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT id, client_event_id, shop_id, barcode, sold_price, seller_amount, device_id,
		       occurred_at, received_at, status, reason
		FROM sale_events
	`
	var args []any
	if shopID != "" {
		query += " WHERE shop_id = ?"
		args = append(args, shopID)
	}
	query += " ORDER BY received_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.c.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sale events: %w", err)
	}
	defer rows.Close()

	var events []engine.SaleEvent
	for rows.Next() {
		e, err := scanSaleEventRow(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSaleEventRow(row rowScanner) (*engine.SaleEvent, error) {
	var (
		e            engine.SaleEvent
		soldPrice    string
		sellerAmount string
		deviceID     sql.NullString
		occurredAt   string
		receivedAt   string
		reason       sql.NullString
	)
	err := row.Scan(&e.ID, &e.ClientEventID, &e.ShopID, &e.Barcode,
		&soldPrice, &sellerAmount, &deviceID, &occurredAt, &receivedAt, &e.Status, &reason)
	if err != nil {
		return nil, err
	}
	e.SoldPrice = parseDecimal(soldPrice)
	e.SellerAmount = parseDecimal(sellerAmount)
	e.DeviceID = deviceID.String
	e.OccurredAt = parseTime(occurredAt)
	e.ReceivedAt = parseTime(receivedAt)
	e.Reason = reason.String
	return &e, nil
}
