/*
workflow.go - discounts, return requests, disputes

The expiry sweep reads candidates through ListExpirablePending and transitions
them row by row inside the sweep's transaction, so each expiry gets its own
audit entry and a re-run finds no pending candidates (idempotence guard lives
in the WHERE status = 'pending' predicate).
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sellershop/inventory-engine/engine"
)

// =============================================================================
// DISCOUNTS
// =============================================================================

func (s *session) InsertDiscount(ctx context.Context, d engine.Discount) error {
	query := `
		INSERT INTO discounts (id, batch_id, discount_price, item_limit, status, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.c.ExecContext(ctx, query,
		d.ID, d.BatchID, d.DiscountPrice.String(), nullInt(d.ItemLimit),
		d.Status, formatTime(d.ExpiresAt), formatTime(d.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert discount: %w", err)
	}
	return nil
}

func (s *session) GetDiscount(ctx context.Context, id string) (*engine.Discount, error) {
	row := s.c.QueryRowContext(ctx,
		`SELECT id, batch_id, discount_price, item_limit, status, expires_at, created_at
		 FROM discounts WHERE id = ?`, id)

	d, err := scanDiscount(row)
	if err == sql.ErrNoRows {
		return nil, notFound("discount", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan discount: %w", err)
	}
	return d, nil
}

func (s *session) UpdateDiscount(ctx context.Context, d engine.Discount) error {
	query := `
		UPDATE discounts SET status = ?, discount_price = ?, item_limit = ?, expires_at = ?
		WHERE id = ?
	`
	res, err := s.c.ExecContext(ctx, query,
		d.Status, d.DiscountPrice.String(), nullInt(d.ItemLimit), formatTime(d.ExpiresAt), d.ID)
	if err != nil {
		return fmt.Errorf("failed to update discount: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound("discount", d.ID)
	}
	return nil
}

func (s *session) ActiveDiscount(ctx context.Context, batchID string, at time.Time) (*engine.Discount, error) {
	row := s.c.QueryRowContext(ctx,
		`SELECT id, batch_id, discount_price, item_limit, status, expires_at, created_at
		 FROM discounts
		 WHERE batch_id = ? AND status = ? AND expires_at > ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT 1`,
		batchID, engine.DiscountAccepted, formatTime(at))

	d, err := scanDiscount(row)
	if err == sql.ErrNoRows {
		return nil, notFound("active discount for batch", batchID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan discount: %w", err)
	}
	return d, nil
}

func (s *session) ListExpirablePending(ctx context.Context, now, createdBefore time.Time) ([]engine.Discount, error) {
	query := `
		SELECT id, batch_id, discount_price, item_limit, status, expires_at, created_at
		FROM discounts
		WHERE status = ? AND (expires_at <= ? OR created_at < ?)
		ORDER BY created_at ASC
	`
	return s.queryDiscounts(ctx, query,
		engine.DiscountPending, formatTime(now), formatTime(createdBefore))
}

func (s *session) ListDiscounts(ctx context.Context, batchID string) ([]engine.Discount, error) {
	query := `
		SELECT id, batch_id, discount_price, item_limit, status, expires_at, created_at
		FROM discounts
	`
	var args []any
	if batchID != "" {
		query += " WHERE batch_id = ?"
		args = append(args, batchID)
	}
	query += " ORDER BY created_at DESC"
	return s.queryDiscounts(ctx, query, args...)
}

func (s *session) queryDiscounts(ctx context.Context, query string, args ...any) ([]engine.Discount, error) {
	rows, err := s.c.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query discounts: %w", err)
	}
	defer rows.Close()

	var discounts []engine.Discount
	for rows.Next() {
		d, err := scanDiscount(rows)
		if err != nil {
			return nil, err
		}
		discounts = append(discounts, *d)
	}
	return discounts, rows.Err()
}

func scanDiscount(row rowScanner) (*engine.Discount, error) {
	var (
		d         engine.Discount
		price     string
		itemLimit sql.NullInt64
		expiresAt string
		createdAt string
	)
	err := row.Scan(&d.ID, &d.BatchID, &price, &itemLimit, &d.Status, &expiresAt, &createdAt)
	if err != nil {
		return nil, err
	}
	d.DiscountPrice = parseDecimal(price)
	if itemLimit.Valid {
		v := int(itemLimit.Int64)
		d.ItemLimit = &v
	}
	d.ExpiresAt = parseTime(expiresAt)
	d.CreatedAt = parseTime(createdAt)
	return &d, nil
}

// =============================================================================
// RETURN REQUESTS
// =============================================================================

func (s *session) InsertReturnRequest(ctx context.Context, r engine.ReturnRequest) error {
	query := `
		INSERT INTO return_requests
		(id, seller_id, batch_id, requested_quantity, status, reason, admin_note, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.c.ExecContext(ctx, query,
		r.ID, r.SellerID, r.BatchID, r.RequestedQuantity, r.Status,
		nullString(r.Reason), nullString(r.AdminNote),
		formatTime(r.CreatedAt), formatTime(r.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert return request: %w", err)
	}
	return nil
}

func (s *session) GetReturnRequest(ctx context.Context, id string) (*engine.ReturnRequest, error) {
	row := s.c.QueryRowContext(ctx,
		`SELECT id, seller_id, batch_id, requested_quantity, status, reason, admin_note, created_at, updated_at
		 FROM return_requests WHERE id = ?`, id)

	r, err := scanReturnRequest(row)
	if err == sql.ErrNoRows {
		return nil, notFound("return request", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan return request: %w", err)
	}
	return r, nil
}

func (s *session) UpdateReturnRequest(ctx context.Context, r engine.ReturnRequest) error {
	query := `
		UPDATE return_requests SET status = ?, admin_note = ?, updated_at = ?
		WHERE id = ?
	`
	res, err := s.c.ExecContext(ctx, query,
		r.Status, nullString(r.AdminNote), formatTime(r.UpdatedAt), r.ID)
	if err != nil {
		return fmt.Errorf("failed to update return request: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound("return request", r.ID)
	}
	return nil
}

func (s *session) ListReturnRequests(ctx context.Context, sellerID string) ([]engine.ReturnRequest, error) {
	query := `
		SELECT id, seller_id, batch_id, requested_quantity, status, reason, admin_note, created_at, updated_at
		FROM return_requests
	`
	var args []any
	if sellerID != "" {
		query += " WHERE seller_id = ?"
		args = append(args, sellerID)
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.c.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query return requests: %w", err)
	}
	defer rows.Close()

	var requests []engine.ReturnRequest
	for rows.Next() {
		r, err := scanReturnRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, *r)
	}
	return requests, rows.Err()
}

func scanReturnRequest(row rowScanner) (*engine.ReturnRequest, error) {
	var (
		r         engine.ReturnRequest
		reason    sql.NullString
		adminNote sql.NullString
		createdAt string
		updatedAt string
	)
	err := row.Scan(&r.ID, &r.SellerID, &r.BatchID, &r.RequestedQuantity, &r.Status,
		&reason, &adminNote, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	r.Reason = reason.String
	r.AdminNote = adminNote.String
	r.CreatedAt = parseTime(createdAt)
	r.UpdatedAt = parseTime(updatedAt)
	return &r, nil
}

// =============================================================================
// DISPUTES
// =============================================================================

func (s *session) InsertDispute(ctx context.Context, d engine.Dispute) error {
	query := `
		INSERT INTO disputes
		(id, created_by, role, entity, entity_id, message, status, admin_note, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.c.ExecContext(ctx, query,
		d.ID, d.CreatedBy, d.Role, d.Entity, d.EntityID, d.Message, d.Status,
		nullString(d.AdminNote), formatTime(d.CreatedAt), formatTime(d.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert dispute: %w", err)
	}
	return nil
}

func (s *session) GetDispute(ctx context.Context, id string) (*engine.Dispute, error) {
	row := s.c.QueryRowContext(ctx,
		`SELECT id, created_by, role, entity, entity_id, message, status, admin_note, created_at, updated_at
		 FROM disputes WHERE id = ?`, id)

	d, err := scanDispute(row)
	if err == sql.ErrNoRows {
		return nil, notFound("dispute", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan dispute: %w", err)
	}
	return d, nil
}

func (s *session) UpdateDispute(ctx context.Context, d engine.Dispute) error {
	query := `
		UPDATE disputes SET status = ?, admin_note = ?, updated_at = ?
		WHERE id = ?
	`
	res, err := s.c.ExecContext(ctx, query, d.Status, nullString(d.AdminNote), formatTime(d.UpdatedAt), d.ID)
	if err != nil {
		return fmt.Errorf("failed to update dispute: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound("dispute", d.ID)
	}
	return nil
}

func (s *session) ListDisputes(ctx context.Context, status engine.DisputeStatus) ([]engine.Dispute, error) {
	query := `
		SELECT id, created_by, role, entity, entity_id, message, status, admin_note, created_at, updated_at
		FROM disputes
	`
	var args []any
	if status != "" {
		query += " WHERE status = ?"
		args = append(args, status)
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.c.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query disputes: %w", err)
	}
	defer rows.Close()

	var disputes []engine.Dispute
	for rows.Next() {
		d, err := scanDispute(rows)
		if err != nil {
			return nil, err
		}
		disputes = append(disputes, *d)
	}
	return disputes, rows.Err()
}

func scanDispute(row rowScanner) (*engine.Dispute, error) {
	var (
		d         engine.Dispute
		adminNote sql.NullString
		createdAt string
		updatedAt string
	)
	err := row.Scan(&d.ID, &d.CreatedBy, &d.Role, &d.Entity, &d.EntityID, &d.Message,
		&d.Status, &adminNote, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	d.AdminNote = adminNote.String
	d.CreatedAt = parseTime(createdAt)
	d.UpdatedAt = parseTime(updatedAt)
	return &d, nil
}
