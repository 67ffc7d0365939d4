// audit.go - append-only audit log. No UPDATE, no DELETE.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/sellershop/inventory-engine/engine"
)

func (s *session) AppendAudit(ctx context.Context, entry engine.AuditEntry) error {
	query := `
		INSERT INTO audit_logs
		(id, entity, entity_id, action, actor_id, actor_role, before_json, after_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.c.ExecContext(ctx, query,
		entry.ID, entry.Entity, entry.EntityID, entry.Action,
		entry.ActorID, entry.ActorRole,
		nullString(string(entry.Before)), nullString(string(entry.After)),
		formatTime(entry.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

func (s *session) QueryAudit(ctx context.Context, filter engine.AuditFilter) ([]engine.AuditEntry, error) {
	query := `
		SELECT id, entity, entity_id, action, actor_id, actor_role, before_json, after_json, created_at
		FROM audit_logs
		WHERE 1=1
	`
	var args []any
	if filter.Entity != "" {
		query += " AND entity = ?"
		args = append(args, filter.Entity)
	}
	if filter.EntityID != "" {
		query += " AND entity_id = ?"
		args = append(args, filter.EntityID)
	}
	if filter.ActorID != "" {
		query += " AND actor_id = ?"
		args = append(args, filter.ActorID)
	}
	if filter.Action != "" {
		query += " AND action = ?"
		args = append(args, filter.Action)
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 200
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.c.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer rows.Close()

	var entries []engine.AuditEntry
	for rows.Next() {
		var (
			e          engine.AuditEntry
			beforeJSON sql.NullString
			afterJSON  sql.NullString
			createdAt  string
		)
		if err := rows.Scan(&e.ID, &e.Entity, &e.EntityID, &e.Action,
			&e.ActorID, &e.ActorRole, &beforeJSON, &afterJSON, &createdAt); err != nil {
			return nil, err
		}
		if beforeJSON.Valid {
			e.Before = json.RawMessage(beforeJSON.String)
		}
		if afterJSON.Valid {
			e.After = json.RawMessage(afterJSON.String)
		}
		e.CreatedAt = parseTime(createdAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
