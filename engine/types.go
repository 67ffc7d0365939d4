/*
Package engine provides the shared core of the inventory & settlement system.

PURPOSE:
  This package contains the domain types and contracts every other package
  builds on: the entities moving through the supply chain (products, batches,
  items, collections), the settlement records (sales, wallets, payouts), the
  workflow records (discounts, returns, disputes), and the storage/audit
  contracts they are persisted through.

KEY CONCEPTS IN THIS FILE (types.go):
  - Batch/Item: the two-level inventory model. A batch is a seller's declared
    lot; an item is one barcode-identified physical unit inside it.
  - SaleEvent: the idempotent record of one attempted sale, terminal from the
    moment it is written (accepted or rejected, never pending).
  - Wallet/WalletTransaction: derived balance plus the transaction rows that
    must always sum to it.
  - Actor/Party: who is calling. Role checks proper live outside the engine;
    ownership predicates are still validated here as a second line of defense.

DESIGN PRINCIPLES:
  1. Precision: all money is decimal.Decimal, never float.
  2. Statuses are closed string enums; transitions are enforced in the
     domain packages, unique indexes in the store are the backstop.
  3. Sale events are append-only. Corrections to settled sales happen via
     reversal wallet transactions, not edits.

SEE ALSO:
  - errors.go: Error taxonomy and retry/rejection classification
  - store.go:  Persistence contract (Store, WithTx)
  - audit.go:  Mandatory per-mutation audit records
*/
package engine

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// ACTORS AND PARTIES
// =============================================================================

// Role tags the four caller kinds plus admin.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleSeller    Role = "seller"
	RoleCollector Role = "collector"
	RoleShop      Role = "shop"
)

// Actor identifies the caller of an operation. Identity and role are
// established by the (external) auth layer; the engine trusts them for audit
// attribution and uses them for ownership predicates only.
type Actor struct {
	ID   string
	Role Role
}

// Party is the polymorphic lookup behind the original four role tables
// (admins/sellers/collectors/shops). One row per principal, keyed by id with
// a role tag.
type Party struct {
	ID          string
	Role        Role
	DisplayName string
	CreatedAt   time.Time
}

// =============================================================================
// PRODUCTS AND BATCHES
// =============================================================================

// Product is a seller's catalogue entry. Archiving is a soft hide: archived
// products cannot start new batches, existing batches are unaffected.
type Product struct {
	ID          string
	Name        string
	Description string
	OwnerID     string
	ArchivedAt  *time.Time
	CreatedAt   time.Time
}

func (p Product) Archived() bool { return p.ArchivedAt != nil }

// BatchStatus is the primary batch state machine:
//
//	created → collecting → collected → in_shop → partially_sold → fully_sold
//
// Returns re-enter quantity but the batch stays in its sold bucket unless
// the sold-item count actually drops (see workflow.CompleteReturn).
type BatchStatus string

const (
	BatchCreated       BatchStatus = "created"
	BatchCollecting    BatchStatus = "collecting"
	BatchCollected     BatchStatus = "collected"
	BatchInShop        BatchStatus = "in_shop"
	BatchPartiallySold BatchStatus = "partially_sold"
	BatchFullySold     BatchStatus = "fully_sold"
)

// Batch is a seller's declared lot of one product. Quantity is the capacity
// against which item rows are created, never a live stock count.
type Batch struct {
	ID         string
	SellerID   string
	ProductID  string
	BasePrice  decimal.Decimal
	Quantity   int
	Status     BatchStatus
	SlowMoving bool
	CreatedAt  time.Time
}

// =============================================================================
// ITEMS AND COLLECTIONS
// =============================================================================

// ItemStatus is the per-unit state machine:
//
//	created → in_transit → in_shop → sold
//
// with in_shop → returned as the alternate terminal edge. A completed return
// that re-stocks is modelled as a fresh in_shop transition.
type ItemStatus string

const (
	ItemCreated   ItemStatus = "created"
	ItemInTransit ItemStatus = "in_transit"
	ItemInShop    ItemStatus = "in_shop"
	ItemSold      ItemStatus = "sold"
	ItemReturned  ItemStatus = "returned"
)

// Terminal reports whether the status is one of the two end states.
func (s ItemStatus) Terminal() bool { return s == ItemSold || s == ItemReturned }

// Item is one physical unit. Barcode is the external scan key and is unique
// across the whole system, not per batch. CurrentShopID is empty until the
// item is stocked.
type Item struct {
	ID            string
	BatchID       string
	Barcode       string
	Status        ItemStatus
	CurrentShopID string
	CreatedAt     time.Time
}

// Collection is one collector pickup event against a batch. Partial pickups
// are legal; handover must never exceed the batch's unassigned item count.
// SellerConfirmed and HandedToShop are independently settable; the second one
// to complete drives the batch's collecting → collected transition.
type Collection struct {
	ID                string
	BatchID           string
	CollectorID       string
	CollectedQuantity int
	SellerConfirmed   bool
	HandedToShop      bool
	HandoverProof     string
	HandedToShopAt    *time.Time
	CreatedAt         time.Time
}

// =============================================================================
// SALES AND SALE EVENTS
// =============================================================================

// Sale is the committed record of one item changing hands. Immutable once
// created; a return deletes it (and reverses the wallet credit) rather than
// editing it, so "a Sale exists iff its item is sold" always holds.
type Sale struct {
	ID         string
	ItemID     string
	ShopID     string
	SoldPrice  decimal.Decimal
	DiscountID string
	SoldAt     time.Time
}

// SaleEventStatus classifies a submission outcome. Stored rows are only ever
// accepted or rejected; duplicate is a response-only classification returned
// when a client retries an already-processed client_event_id.
type SaleEventStatus string

const (
	SaleEventAccepted  SaleEventStatus = "accepted"
	SaleEventRejected  SaleEventStatus = "rejected"
	SaleEventDuplicate SaleEventStatus = "duplicate"
)

// SaleEvent is the append-only record of one sale attempt, successful or not.
// ClientEventID is the client-generated idempotency key that lets offline
// point-of-sale queues resync safely.
type SaleEvent struct {
	ID            string
	ClientEventID string
	ShopID        string
	Barcode       string
	SoldPrice     decimal.Decimal
	SellerAmount  decimal.Decimal
	DeviceID      string
	OccurredAt    time.Time
	ReceivedAt    time.Time
	Status        SaleEventStatus
	Reason        string
}

// =============================================================================
// LEDGER
// =============================================================================

// Wallet holds a seller's settled balance. The balance is maintained
// atomically with its transaction rows: sum(transactions) == balance, always.
type Wallet struct {
	SellerID  string
	Balance   decimal.Decimal
	UpdatedAt time.Time
}

// TransactionKind tags wallet transaction rows. Credits and their reversals
// reference a sale; debits reference a payout.
type TransactionKind string

const (
	TxSaleCredit   TransactionKind = "sale_credit"
	TxSaleReversal TransactionKind = "sale_reversal"
	TxPayoutDebit  TransactionKind = "payout_debit"
)

// WalletTransaction is one signed balance change. At most one sale_credit
// may exist per sale (unique index backstop).
type WalletTransaction struct {
	ID          string
	SellerID    string
	Kind        TransactionKind
	ReferenceID string
	Amount      decimal.Decimal
	CreatedAt   time.Time
}

// CommissionType selects the deduction rule applied at settlement.
type CommissionType string

const (
	CommissionPercentage CommissionType = "percentage"
	CommissionFixed      CommissionType = "fixed"
)

// Commission is a seller's take-rate rule. Only one rule should be active per
// seller; if duplicates exist the evaluator deterministically picks the most
// recently created active one.
type Commission struct {
	ID        string
	SellerID  string
	Type      CommissionType
	Value     decimal.Decimal
	Active    bool
	CreatedAt time.Time
}

// PayoutStatus: requested → approved → paid, or requested → rejected.
// Only the approved → paid transition debits the wallet.
type PayoutStatus string

const (
	PayoutRequested PayoutStatus = "requested"
	PayoutApproved  PayoutStatus = "approved"
	PayoutRejected  PayoutStatus = "rejected"
	PayoutPaid      PayoutStatus = "paid"
)

// Payout is a seller's withdrawal request. Funds are not reserved at request
// time; balance is re-validated when the payout is marked paid.
type Payout struct {
	ID        string
	SellerID  string
	Amount    decimal.Decimal
	Status    PayoutStatus
	Note      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// =============================================================================
// WORKFLOWS
// =============================================================================

type DiscountStatus string

const (
	DiscountPending  DiscountStatus = "pending"
	DiscountAccepted DiscountStatus = "accepted"
	DiscountRejected DiscountStatus = "rejected"
	DiscountExpired  DiscountStatus = "expired"
)

// Discount is a seller-requested price override for a batch. ItemLimit, when
// set, caps how many sales may use the discounted price.
type Discount struct {
	ID            string
	BatchID       string
	DiscountPrice decimal.Decimal
	ItemLimit     *int
	Status        DiscountStatus
	ExpiresAt     time.Time
	CreatedAt     time.Time
}

type ReturnStatus string

const (
	ReturnRequested ReturnStatus = "requested"
	ReturnApproved  ReturnStatus = "approved"
	ReturnRejected  ReturnStatus = "rejected"
	ReturnCompleted ReturnStatus = "completed"
)

// ReturnRequest asks for requested_quantity units of a batch back. Completion
// is the only step with inventory/ledger side effects.
type ReturnRequest struct {
	ID                string
	SellerID          string
	BatchID           string
	RequestedQuantity int
	Status            ReturnStatus
	Reason            string
	AdminNote         string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type DisputeStatus string

const (
	DisputeOpen     DisputeStatus = "open"
	DisputeResolved DisputeStatus = "resolved"
	DisputeRejected DisputeStatus = "rejected"
)

// Dispute is a free-form cross-entity annotation. No side effects beyond
// audit; not state-machine-governed beyond open/closed.
type Dispute struct {
	ID        string
	CreatedBy string
	Role      Role
	Entity    string
	EntityID  string
	Message   string
	Status    DisputeStatus
	AdminNote string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// =============================================================================
// MONEY HELPERS
// =============================================================================

// MustDecimal parses a decimal literal, returning zero on malformed input.
// For trusted literals (tests, defaults) only.
func MustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
