/*
Package sqlite provides the SQLite-backed implementation of engine.Store.

PURPOSE:
  Implements every persistence interface the engine defines using SQLite.
  In production the same patterns apply to PostgreSQL - only minor SQL
  dialect differences.

KEY TABLES:
  products, batches, items, collections:  inventory state machines
  sales, sale_events:                     sale commitment + idempotent intake
  wallets, wallet_transactions, payouts,
  commissions:                            settlement ledger
  discounts, return_requests, disputes:   workflow decision engines
  parties, audit_logs:                    identity lookup + mandatory audit

INVARIANT BACKSTOPS (unique indexes):
  items.barcode                  - barcodes are globally unique
  sales.item_id                  - an item sells at most once
  sale_events.client_event_id    - one terminal outcome per client event
  idx_wallet_tx_sale_credit      - one sale_credit per sale

CONCURRENCY:
  WithTx serializes writers behind a store-level mutex; SQLite runs in WAL
  mode so readers don't block. With PostgreSQL, row-level locking would
  replace the mutex - the unique indexes above hold either way.

USAGE:
  store, err := sqlite.New("./data/sellershop.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper migration
  tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - engine/store.go: Interface definitions and the not-found convention
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/sellershop/inventory-engine/engine"
)

// dbtx abstracts *sql.DB and *sql.Tx so every query runs unchanged inside or
// outside a transaction.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// session implements every engine.Store method except WithTx over either the
// root connection or an open transaction. The per-table method files
// (inventory.go, sales.go, ledger.go, workflow.go, audit.go) all hang off it.
type session struct {
	c dbtx
}

// Store is the root handle. It embeds a session over the raw connection and
// adds transaction management.
type Store struct {
	session
	db *sql.DB
	mu sync.Mutex
}

// New creates a SQLite store at the given path. Use ":memory:" for tests.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps :memory: databases coherent and matches the
	// single-writer model.
	db.SetMaxOpenConns(1)

	store := &Store{session: session{c: db}, db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// WithTx executes fn within a database transaction, serialized against all
// other transactions on this store.
func (s *Store) WithTx(ctx context.Context, fn func(engine.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&txSession{session{c: tx}}); err != nil {
		return err
	}
	return tx.Commit()
}

// txSession is the Store view handed to WithTx callbacks. A nested WithTx
// joins the enclosing transaction instead of opening a new one.
type txSession struct {
	session
}

func (t *txSession) WithTx(ctx context.Context, fn func(engine.Store) error) error {
	return fn(t)
}

func (s *Store) migrate() error {
	schema := `
	-- Identity: one row per principal, replacing the four role tables
	CREATE TABLE IF NOT EXISTS parties (
		id TEXT PRIMARY KEY,
		role TEXT NOT NULL,
		display_name TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	-- Catalogue
	CREATE TABLE IF NOT EXISTS products (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT,
		owner_id TEXT NOT NULL,
		archived_at TEXT,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_products_owner ON products(owner_id);

	-- Batches (primary state machine)
	CREATE TABLE IF NOT EXISTS batches (
		id TEXT PRIMARY KEY,
		seller_id TEXT NOT NULL,
		product_id TEXT NOT NULL,
		base_price TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		status TEXT NOT NULL,
		slow_moving BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_batches_seller ON batches(seller_id);
	CREATE INDEX IF NOT EXISTS idx_batches_status ON batches(status);

	-- Items: one row per physical unit
	-- CRITICAL: barcode is globally unique, not per-batch
	CREATE TABLE IF NOT EXISTS items (
		id TEXT PRIMARY KEY,
		batch_id TEXT NOT NULL,
		barcode TEXT NOT NULL UNIQUE,
		status TEXT NOT NULL,
		current_shop_id TEXT,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_items_batch_status ON items(batch_id, status);
	CREATE INDEX IF NOT EXISTS idx_items_shop
		ON items(current_shop_id) WHERE current_shop_id IS NOT NULL;

	-- Collections (pickup events)
	CREATE TABLE IF NOT EXISTS collections (
		id TEXT PRIMARY KEY,
		batch_id TEXT NOT NULL,
		collector_id TEXT NOT NULL,
		collected_quantity INTEGER NOT NULL,
		seller_confirmed BOOLEAN NOT NULL DEFAULT FALSE,
		handed_to_shop BOOLEAN NOT NULL DEFAULT FALSE,
		handover_proof TEXT,
		handed_to_shop_at TEXT,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_collections_batch ON collections(batch_id);

	-- Sales
	-- CRITICAL: an item sells at most once; this index is the no-double-sell
	-- backstop for concurrent submissions
	CREATE TABLE IF NOT EXISTS sales (
		id TEXT PRIMARY KEY,
		item_id TEXT NOT NULL UNIQUE,
		shop_id TEXT NOT NULL,
		sold_price TEXT NOT NULL,
		discount_id TEXT,
		sold_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sales_shop ON sales(shop_id);
	CREATE INDEX IF NOT EXISTS idx_sales_discount
		ON sales(discount_id) WHERE discount_id IS NOT NULL;

	-- Sale events (append-only intake audit)
	-- CRITICAL: client_event_id is the idempotency key
	CREATE TABLE IF NOT EXISTS sale_events (
		id TEXT PRIMARY KEY,
		client_event_id TEXT NOT NULL UNIQUE,
		shop_id TEXT NOT NULL,
		barcode TEXT NOT NULL,
		sold_price TEXT NOT NULL,
		seller_amount TEXT NOT NULL,
		device_id TEXT,
		occurred_at TEXT NOT NULL,
		received_at TEXT NOT NULL,
		status TEXT NOT NULL,
		reason TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_sale_events_shop ON sale_events(shop_id, received_at DESC);

	-- Wallets and their transaction rows. sum(amount) == balance, always.
	CREATE TABLE IF NOT EXISTS wallets (
		seller_id TEXT PRIMARY KEY,
		balance TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS wallet_transactions (
		id TEXT PRIMARY KEY,
		seller_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		reference_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_wallet_tx_seller ON wallet_transactions(seller_id);
	-- One credit per settled sale
	CREATE UNIQUE INDEX IF NOT EXISTS idx_wallet_tx_sale_credit
		ON wallet_transactions(reference_id) WHERE kind = 'sale_credit';

	CREATE TABLE IF NOT EXISTS payouts (
		id TEXT PRIMARY KEY,
		seller_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		status TEXT NOT NULL,
		note TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_payouts_seller ON payouts(seller_id);

	CREATE TABLE IF NOT EXISTS commissions (
		id TEXT PRIMARY KEY,
		seller_id TEXT NOT NULL,
		type TEXT NOT NULL,
		value TEXT NOT NULL,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_commissions_seller_active ON commissions(seller_id, active);

	CREATE TABLE IF NOT EXISTS discounts (
		id TEXT PRIMARY KEY,
		batch_id TEXT NOT NULL,
		discount_price TEXT NOT NULL,
		item_limit INTEGER,
		status TEXT NOT NULL,
		expires_at TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_discounts_batch_status ON discounts(batch_id, status);

	CREATE TABLE IF NOT EXISTS return_requests (
		id TEXT PRIMARY KEY,
		seller_id TEXT NOT NULL,
		batch_id TEXT NOT NULL,
		requested_quantity INTEGER NOT NULL,
		status TEXT NOT NULL,
		reason TEXT,
		admin_note TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_return_requests_seller ON return_requests(seller_id);

	CREATE TABLE IF NOT EXISTS disputes (
		id TEXT PRIMARY KEY,
		created_by TEXT NOT NULL,
		role TEXT NOT NULL,
		entity TEXT NOT NULL,
		entity_id TEXT NOT NULL,
		message TEXT NOT NULL,
		status TEXT NOT NULL,
		admin_note TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_disputes_status ON disputes(status);

	-- Audit (append-only, one row per mutation)
	CREATE TABLE IF NOT EXISTS audit_logs (
		id TEXT PRIMARY KEY,
		entity TEXT NOT NULL,
		entity_id TEXT NOT NULL,
		action TEXT NOT NULL,
		actor_id TEXT NOT NULL,
		actor_role TEXT NOT NULL,
		before_json TEXT,
		after_json TEXT,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_audit_entity ON audit_logs(entity, entity_id);
	CREATE INDEX IF NOT EXISTS idx_audit_actor ON audit_logs(actor_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// HELPERS
// =============================================================================

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339), Valid: true}
}

func nullInt(i *int) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*i), Valid: true}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

func parseNullTime(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	t := parseTime(ns.String)
	return &t
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// mapUniqueError translates SQLite unique-constraint failures into the
// engine's sentinel errors so domain code never inspects driver strings.
func mapUniqueError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if !strings.Contains(msg, "UNIQUE constraint failed") {
		return err
	}
	switch {
	case strings.Contains(msg, "items.barcode"):
		return engine.ErrDuplicateBarcode
	case strings.Contains(msg, "sales.item_id"):
		return engine.ErrAlreadySold
	case strings.Contains(msg, "sale_events.client_event_id"):
		return engine.ErrDuplicateEvent
	default:
		return engine.ErrConcurrentModification
	}
}

func notFound(entity, id string) error {
	return fmt.Errorf("%s %s: %w", entity, id, engine.ErrNotFound)
}
