/*
store.go - Persistence contract between domain logic and the database

PURPOSE:
  One composite Store interface covering every table the engine owns, plus
  WithTx for atomic multi-table sequences. The SQLite implementation lives in
  store/sqlite; tests run it against :memory:.

TRANSACTION MODEL:
  Every read-then-write sequence in the domain packages runs inside a single
  WithTx call. The implementation serializes writers (store-level lock +
  SQLite WAL) so two concurrent transitions on the same row cannot interleave;
  the unique indexes on items.barcode, sales.item_id,
  sale_events.client_event_id and wallet sale credits are the enforcement
  backstops even if locking were imperfect.

NOT-FOUND CONVENTION:
  Get* methods return an error wrapping ErrNotFound when no row matches,
  never (nil, nil). List* methods return empty slices.

SEE ALSO:
  - store/sqlite/sqlite.go: Session/WithTx implementation
  - audit.go:               Recorder (embedded here)
*/
package engine

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Store is the engine's persistence contract. Implementations must make
// WithTx reentrant: a nested call joins the enclosing transaction.
type Store interface {
	ProductStore
	BatchStore
	ItemStore
	CollectionStore
	SaleStore
	SaleEventStore
	WalletStore
	PayoutStore
	CommissionStore
	DiscountStore
	ReturnStore
	DisputeStore
	PartyStore
	Recorder

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise committed.
	WithTx(ctx context.Context, fn func(Store) error) error
}

type ProductStore interface {
	InsertProduct(ctx context.Context, p Product) error
	UpdateProduct(ctx context.Context, p Product) error
	GetProduct(ctx context.Context, id string) (*Product, error)
	// ListProducts returns all products, or only ownerID's when non-empty.
	ListProducts(ctx context.Context, ownerID string) ([]Product, error)
}

type BatchStore interface {
	InsertBatch(ctx context.Context, b Batch) error
	UpdateBatch(ctx context.Context, b Batch) error
	GetBatch(ctx context.Context, id string) (*Batch, error)
	// ListBatches returns all batches, or only sellerID's when non-empty.
	ListBatches(ctx context.Context, sellerID string) ([]Batch, error)
	// ListCollectedBatches returns batches awaiting item prep or stocking
	// (status collected), oldest first.
	ListCollectedBatches(ctx context.Context) ([]Batch, error)
}

type ItemStore interface {
	// InsertItems bulk-inserts. Fails with ErrDuplicateBarcode if any barcode
	// exists anywhere; the batch insert is all-or-nothing.
	InsertItems(ctx context.Context, items []Item) error
	GetItem(ctx context.Context, id string) (*Item, error)
	GetItemByBarcode(ctx context.Context, barcode string) (*Item, error)
	UpdateItem(ctx context.Context, it Item) error
	// CountItems counts all items of a batch regardless of status.
	CountItems(ctx context.Context, batchID string) (int, error)
	// CountItemsByStatus counts batch items in any of the given statuses.
	CountItemsByStatus(ctx context.Context, batchID string, statuses ...ItemStatus) (int, error)
	// ListItems returns batch items, optionally filtered by status, ordered
	// by barcode for stable assignment.
	ListItems(ctx context.Context, batchID string, statuses ...ItemStatus) ([]Item, error)
	// ListShopInventory returns items currently stocked in a shop.
	ListShopInventory(ctx context.Context, shopID string) ([]Item, error)
}

type CollectionStore interface {
	InsertCollection(ctx context.Context, c Collection) error
	UpdateCollection(ctx context.Context, c Collection) error
	GetCollection(ctx context.Context, id string) (*Collection, error)
	ListCollections(ctx context.Context, batchID string) ([]Collection, error)
}

type SaleStore interface {
	// InsertSale fails with ErrAlreadySold on the item_id unique index.
	InsertSale(ctx context.Context, s Sale) error
	GetSaleByItem(ctx context.Context, itemID string) (*Sale, error)
	DeleteSale(ctx context.Context, id string) error
	// ListSales returns sales, newest first, optionally scoped to a shop.
	ListSales(ctx context.Context, shopID string) ([]Sale, error)
	ListSalesByBatch(ctx context.Context, batchID string) ([]Sale, error)
	// CountDiscountedSales counts sales settled under a discount, for
	// item_limit enforcement.
	CountDiscountedSales(ctx context.Context, discountID string) (int, error)
}

type SaleEventStore interface {
	// InsertSaleEvent fails with ErrDuplicateEvent on the client_event_id
	// unique index.
	InsertSaleEvent(ctx context.Context, e SaleEvent) error
	GetSaleEventByClientID(ctx context.Context, clientEventID string) (*SaleEvent, error)
	ListSaleEvents(ctx context.Context, shopID string, limit int) ([]SaleEvent, error)
}

type WalletStore interface {
	// GetWallet returns a zero-balance wallet (not ErrNotFound) for sellers
	// with no transactions yet.
	GetWallet(ctx context.Context, sellerID string) (*Wallet, error)
	// ApplyWalletDelta upserts the wallet row and adjusts balance by delta.
	ApplyWalletDelta(ctx context.Context, sellerID string, delta decimal.Decimal) error
	InsertWalletTransaction(ctx context.Context, tx WalletTransaction) error
	ListWalletTransactions(ctx context.Context, sellerID string) ([]WalletTransaction, error)
	// SumWalletTransactions recomputes the balance from rows; used by the
	// conservation checks.
	SumWalletTransactions(ctx context.Context, sellerID string) (decimal.Decimal, error)
}

type PayoutStore interface {
	InsertPayout(ctx context.Context, p Payout) error
	GetPayout(ctx context.Context, id string) (*Payout, error)
	UpdatePayout(ctx context.Context, p Payout) error
	ListPayouts(ctx context.Context, sellerID string) ([]Payout, error)
}

type CommissionStore interface {
	InsertCommission(ctx context.Context, c Commission) error
	// DeactivateCommissions clears the active flag on all of a seller's rules.
	DeactivateCommissions(ctx context.Context, sellerID string) error
	// ActiveCommission returns the most recently created active rule, or an
	// ErrNotFound-wrapping error when the seller has none.
	ActiveCommission(ctx context.Context, sellerID string) (*Commission, error)
}

type DiscountStore interface {
	InsertDiscount(ctx context.Context, d Discount) error
	GetDiscount(ctx context.Context, id string) (*Discount, error)
	UpdateDiscount(ctx context.Context, d Discount) error
	// ActiveDiscount returns the accepted, unexpired discount for a batch at
	// the given instant, newest first, or ErrNotFound.
	ActiveDiscount(ctx context.Context, batchID string, at time.Time) (*Discount, error)
	// ListExpirablePending returns pending discounts past their expiry at
	// now, or created before createdBefore (the stale-pending grace cutoff).
	ListExpirablePending(ctx context.Context, now, createdBefore time.Time) ([]Discount, error)
	ListDiscounts(ctx context.Context, batchID string) ([]Discount, error)
}

type ReturnStore interface {
	InsertReturnRequest(ctx context.Context, r ReturnRequest) error
	GetReturnRequest(ctx context.Context, id string) (*ReturnRequest, error)
	UpdateReturnRequest(ctx context.Context, r ReturnRequest) error
	ListReturnRequests(ctx context.Context, sellerID string) ([]ReturnRequest, error)
}

type DisputeStore interface {
	InsertDispute(ctx context.Context, d Dispute) error
	GetDispute(ctx context.Context, id string) (*Dispute, error)
	UpdateDispute(ctx context.Context, d Dispute) error
	// ListDisputes returns disputes, optionally filtered by status.
	ListDisputes(ctx context.Context, status DisputeStatus) ([]Dispute, error)
}

type PartyStore interface {
	SaveParty(ctx context.Context, p Party) error
	GetParty(ctx context.Context, id string) (*Party, error)
}
