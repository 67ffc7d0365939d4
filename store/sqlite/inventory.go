/*
inventory.go - products, batches, items, collections

Persistence for the inventory state machines. Status transition legality is
enforced by the inventory package; this layer only guarantees the structural
invariants (barcode uniqueness, stable item ordering).
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/sellershop/inventory-engine/engine"
)

// =============================================================================
// PRODUCTS
// =============================================================================

func (s *session) InsertProduct(ctx context.Context, p engine.Product) error {
	query := `
		INSERT INTO products (id, name, description, owner_id, archived_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := s.c.ExecContext(ctx, query,
		p.ID, p.Name, nullString(p.Description), p.OwnerID,
		nullTime(p.ArchivedAt), formatTime(p.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert product: %w", err)
	}
	return nil
}

func (s *session) UpdateProduct(ctx context.Context, p engine.Product) error {
	query := `
		UPDATE products SET name = ?, description = ?, archived_at = ?
		WHERE id = ?
	`
	res, err := s.c.ExecContext(ctx, query,
		p.Name, nullString(p.Description), nullTime(p.ArchivedAt), p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound("product", p.ID)
	}
	return nil
}

func (s *session) GetProduct(ctx context.Context, id string) (*engine.Product, error) {
	row := s.c.QueryRowContext(ctx,
		`SELECT id, name, description, owner_id, archived_at, created_at
		 FROM products WHERE id = ?`, id)
	return scanProduct(row, id)
}

func (s *session) ListProducts(ctx context.Context, ownerID string) ([]engine.Product, error) {
	query := `
		SELECT id, name, description, owner_id, archived_at, created_at
		FROM products
	`
	var args []any
	if ownerID != "" {
		query += " WHERE owner_id = ?"
		args = append(args, ownerID)
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.c.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []engine.Product
	for rows.Next() {
		var (
			p           engine.Product
			description sql.NullString
			archivedAt  sql.NullString
			createdAt   string
		)
		if err := rows.Scan(&p.ID, &p.Name, &description, &p.OwnerID, &archivedAt, &createdAt); err != nil {
			return nil, err
		}
		p.Description = description.String
		p.ArchivedAt = parseNullTime(archivedAt)
		p.CreatedAt = parseTime(createdAt)
		products = append(products, p)
	}
	return products, rows.Err()
}

func scanProduct(row *sql.Row, id string) (*engine.Product, error) {
	var (
		p           engine.Product
		description sql.NullString
		archivedAt  sql.NullString
		createdAt   string
	)
	err := row.Scan(&p.ID, &p.Name, &description, &p.OwnerID, &archivedAt, &createdAt)
	if err == sql.ErrNoRows {
		return nil, notFound("product", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan product: %w", err)
	}
	p.Description = description.String
	p.ArchivedAt = parseNullTime(archivedAt)
	p.CreatedAt = parseTime(createdAt)
	return &p, nil
}

// =============================================================================
// BATCHES
// =============================================================================

func (s *session) InsertBatch(ctx context.Context, b engine.Batch) error {
	query := `
		INSERT INTO batches (id, seller_id, product_id, base_price, quantity, status, slow_moving, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.c.ExecContext(ctx, query,
		b.ID, b.SellerID, b.ProductID, b.BasePrice.String(),
		b.Quantity, b.Status, b.SlowMoving, formatTime(b.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert batch: %w", err)
	}
	return nil
}

func (s *session) UpdateBatch(ctx context.Context, b engine.Batch) error {
	query := `
		UPDATE batches SET base_price = ?, quantity = ?, status = ?, slow_moving = ?
		WHERE id = ?
	`
	res, err := s.c.ExecContext(ctx, query,
		b.BasePrice.String(), b.Quantity, b.Status, b.SlowMoving, b.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update batch: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound("batch", b.ID)
	}
	return nil
}

func (s *session) GetBatch(ctx context.Context, id string) (*engine.Batch, error) {
	row := s.c.QueryRowContext(ctx,
		`SELECT id, seller_id, product_id, base_price, quantity, status, slow_moving, created_at
		 FROM batches WHERE id = ?`, id)

	var (
		b         engine.Batch
		basePrice string
		createdAt string
	)
	err := row.Scan(&b.ID, &b.SellerID, &b.ProductID, &basePrice, &b.Quantity, &b.Status, &b.SlowMoving, &createdAt)
	if err == sql.ErrNoRows {
		return nil, notFound("batch", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan batch: %w", err)
	}
	b.BasePrice = parseDecimal(basePrice)
	b.CreatedAt = parseTime(createdAt)
	return &b, nil
}

func (s *session) ListBatches(ctx context.Context, sellerID string) ([]engine.Batch, error) {
	query := `
		SELECT id, seller_id, product_id, base_price, quantity, status, slow_moving, created_at
		FROM batches
	`
	var args []any
	if sellerID != "" {
		query += " WHERE seller_id = ?"
		args = append(args, sellerID)
	}
	query += " ORDER BY created_at DESC"
	return s.queryBatches(ctx, query, args...)
}

func (s *session) ListCollectedBatches(ctx context.Context) ([]engine.Batch, error) {
	query := `
		SELECT id, seller_id, product_id, base_price, quantity, status, slow_moving, created_at
		FROM batches
		WHERE status = ?
		ORDER BY created_at ASC
	`
	return s.queryBatches(ctx, query, engine.BatchCollected)
}

func (s *session) queryBatches(ctx context.Context, query string, args ...any) ([]engine.Batch, error) {
	rows, err := s.c.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query batches: %w", err)
	}
	defer rows.Close()

	var batches []engine.Batch
	for rows.Next() {
		var (
			b         engine.Batch
			basePrice string
			createdAt string
		)
		if err := rows.Scan(&b.ID, &b.SellerID, &b.ProductID, &basePrice, &b.Quantity, &b.Status, &b.SlowMoving, &createdAt); err != nil {
			return nil, err
		}
		b.BasePrice = parseDecimal(basePrice)
		b.CreatedAt = parseTime(createdAt)
		batches = append(batches, b)
	}
	return batches, rows.Err()
}

// =============================================================================
// ITEMS
// =============================================================================

func (s *session) InsertItems(ctx context.Context, items []engine.Item) error {
	query := `
		INSERT INTO items (id, batch_id, barcode, status, current_shop_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	for _, it := range items {
		_, err := s.c.ExecContext(ctx, query,
			it.ID, it.BatchID, it.Barcode, it.Status,
			nullString(it.CurrentShopID), formatTime(it.CreatedAt),
		)
		if err != nil {
			if mapped := mapUniqueError(err); mapped != err {
				return fmt.Errorf("barcode %s: %w", it.Barcode, mapped)
			}
			return fmt.Errorf("failed to insert item: %w", err)
		}
	}
	return nil
}

func (s *session) GetItem(ctx context.Context, id string) (*engine.Item, error) {
	row := s.c.QueryRowContext(ctx,
		`SELECT id, batch_id, barcode, status, current_shop_id, created_at
		 FROM items WHERE id = ?`, id)
	return scanItem(row, id)
}

func (s *session) GetItemByBarcode(ctx context.Context, barcode string) (*engine.Item, error) {
	row := s.c.QueryRowContext(ctx,
		`SELECT id, batch_id, barcode, status, current_shop_id, created_at
		 FROM items WHERE barcode = ?`, barcode)
	return scanItem(row, barcode)
}

func scanItem(row *sql.Row, key string) (*engine.Item, error) {
	var (
		it        engine.Item
		shopID    sql.NullString
		createdAt string
	)
	err := row.Scan(&it.ID, &it.BatchID, &it.Barcode, &it.Status, &shopID, &createdAt)
	if err == sql.ErrNoRows {
		return nil, notFound("item", key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan item: %w", err)
	}
	it.CurrentShopID = shopID.String
	it.CreatedAt = parseTime(createdAt)
	return &it, nil
}

func (s *session) UpdateItem(ctx context.Context, it engine.Item) error {
	query := `
		UPDATE items SET status = ?, current_shop_id = ?
		WHERE id = ?
	`
	res, err := s.c.ExecContext(ctx, query, it.Status, nullString(it.CurrentShopID), it.ID)
	if err != nil {
		return fmt.Errorf("failed to update item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound("item", it.ID)
	}
	return nil
}

func (s *session) CountItems(ctx context.Context, batchID string) (int, error) {
	var count int
	err := s.c.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM items WHERE batch_id = ?", batchID,
	).Scan(&count)
	return count, err
}

func (s *session) CountItemsByStatus(ctx context.Context, batchID string, statuses ...engine.ItemStatus) (int, error) {
	query, args := itemStatusQuery(
		"SELECT COUNT(*) FROM items WHERE batch_id = ?", batchID, statuses)

	var count int
	err := s.c.QueryRowContext(ctx, query, args...).Scan(&count)
	return count, err
}

func (s *session) ListItems(ctx context.Context, batchID string, statuses ...engine.ItemStatus) ([]engine.Item, error) {
	query, args := itemStatusQuery(
		`SELECT id, batch_id, barcode, status, current_shop_id, created_at
		 FROM items WHERE batch_id = ?`, batchID, statuses)
	query += " ORDER BY barcode ASC"
	return s.queryItems(ctx, query, args...)
}

func (s *session) ListShopInventory(ctx context.Context, shopID string) ([]engine.Item, error) {
	query := `
		SELECT id, batch_id, barcode, status, current_shop_id, created_at
		FROM items
		WHERE current_shop_id = ? AND status = ?
		ORDER BY barcode ASC
	`
	return s.queryItems(ctx, query, shopID, engine.ItemInShop)
}

func itemStatusQuery(base, batchID string, statuses []engine.ItemStatus) (string, []any) {
	args := []any{batchID}
	if len(statuses) > 0 {
		placeholders := make([]string, len(statuses))
		for i, st := range statuses {
			placeholders[i] = "?"
			args = append(args, st)
		}
		base += " AND status IN (" + strings.Join(placeholders, ", ") + ")"
	}
	return base, args
}

func (s *session) queryItems(ctx context.Context, query string, args ...any) ([]engine.Item, error) {
	rows, err := s.c.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	var items []engine.Item
	for rows.Next() {
		var (
			it        engine.Item
			shopID    sql.NullString
			createdAt string
		)
		if err := rows.Scan(&it.ID, &it.BatchID, &it.Barcode, &it.Status, &shopID, &createdAt); err != nil {
			return nil, err
		}
		it.CurrentShopID = shopID.String
		it.CreatedAt = parseTime(createdAt)
		items = append(items, it)
	}
	return items, rows.Err()
}

// =============================================================================
// COLLECTIONS
// =============================================================================

func (s *session) InsertCollection(ctx context.Context, c engine.Collection) error {
	query := `
		INSERT INTO collections
		(id, batch_id, collector_id, collected_quantity, seller_confirmed, handed_to_shop,
		 handover_proof, handed_to_shop_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.c.ExecContext(ctx, query,
		c.ID, c.BatchID, c.CollectorID, c.CollectedQuantity,
		c.SellerConfirmed, c.HandedToShop, nullString(c.HandoverProof),
		nullTime(c.HandedToShopAt), formatTime(c.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert collection: %w", err)
	}
	return nil
}

func (s *session) UpdateCollection(ctx context.Context, c engine.Collection) error {
	query := `
		UPDATE collections SET seller_confirmed = ?, handed_to_shop = ?,
			handover_proof = ?, handed_to_shop_at = ?
		WHERE id = ?
	`
	res, err := s.c.ExecContext(ctx, query,
		c.SellerConfirmed, c.HandedToShop, nullString(c.HandoverProof),
		nullTime(c.HandedToShopAt), c.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update collection: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound("collection", c.ID)
	}
	return nil
}

func (s *session) GetCollection(ctx context.Context, id string) (*engine.Collection, error) {
	row := s.c.QueryRowContext(ctx,
		`SELECT id, batch_id, collector_id, collected_quantity, seller_confirmed,
		        handed_to_shop, handover_proof, handed_to_shop_at, created_at
		 FROM collections WHERE id = ?`, id)

	var (
		c              engine.Collection
		proof          sql.NullString
		handedToShopAt sql.NullString
		createdAt      string
	)
	err := row.Scan(&c.ID, &c.BatchID, &c.CollectorID, &c.CollectedQuantity,
		&c.SellerConfirmed, &c.HandedToShop, &proof, &handedToShopAt, &createdAt)
	if err == sql.ErrNoRows {
		return nil, notFound("collection", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan collection: %w", err)
	}
	c.HandoverProof = proof.String
	c.HandedToShopAt = parseNullTime(handedToShopAt)
	c.CreatedAt = parseTime(createdAt)
	return &c, nil
}

func (s *session) ListCollections(ctx context.Context, batchID string) ([]engine.Collection, error) {
	query := `
		SELECT id, batch_id, collector_id, collected_quantity, seller_confirmed,
		       handed_to_shop, handover_proof, handed_to_shop_at, created_at
		FROM collections
		WHERE batch_id = ?
		ORDER BY created_at ASC
	`
	rows, err := s.c.QueryContext(ctx, query, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query collections: %w", err)
	}
	defer rows.Close()

	var collections []engine.Collection
	for rows.Next() {
		var (
			c              engine.Collection
			proof          sql.NullString
			handedToShopAt sql.NullString
			createdAt      string
		)
		if err := rows.Scan(&c.ID, &c.BatchID, &c.CollectorID, &c.CollectedQuantity,
			&c.SellerConfirmed, &c.HandedToShop, &proof, &handedToShopAt, &createdAt); err != nil {
			return nil, err
		}
		c.HandoverProof = proof.String
		c.HandedToShopAt = parseNullTime(handedToShopAt)
		c.CreatedAt = parseTime(createdAt)
		collections = append(collections, c)
	}
	return collections, rows.Err()
}

// =============================================================================
// PARTIES
// =============================================================================

func (s *session) SaveParty(ctx context.Context, p engine.Party) error {
	query := `
		INSERT INTO parties (id, role, display_name, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			role = excluded.role,
			display_name = excluded.display_name
	`
	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.c.ExecContext(ctx, query, p.ID, p.Role, p.DisplayName, formatTime(createdAt))
	if err != nil {
		return fmt.Errorf("failed to save party: %w", err)
	}
	return nil
}

func (s *session) GetParty(ctx context.Context, id string) (*engine.Party, error) {
	row := s.c.QueryRowContext(ctx,
		"SELECT id, role, display_name, created_at FROM parties WHERE id = ?", id)

	var (
		p         engine.Party
		createdAt string
	)
	err := row.Scan(&p.ID, &p.Role, &p.DisplayName, &createdAt)
	if err == sql.ErrNoRows {
		return nil, notFound("party", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan party: %w", err)
	}
	p.CreatedAt = parseTime(createdAt)
	return &p, nil
}
