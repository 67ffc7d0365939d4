/*
dto.go - request and response shapes for the REST surface

PURPOSE:
  Decouples the wire contract from the domain model. Money travels as decimal
  strings, timestamps as RFC 3339. Validation happens in handlers; these are
  pure data carriers.

NAMING CONVENTION:
  - *DTO:     response types returned to clients
  - *Request: request body types from clients

SEE ALSO:
  - handlers.go: converts between these and the domain types
*/
package api

import (
	"encoding/json"
	"time"

	"github.com/sellershop/inventory-engine/engine"
	"github.com/sellershop/inventory-engine/inventory"
	"github.com/sellershop/inventory-engine/sales"
)

// ErrorResponse is the uniform error payload.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// PRODUCTS AND BATCHES
// =============================================================================

type ProductDTO struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	OwnerID     string     `json:"owner_id"`
	ArchivedAt  *time.Time `json:"archived_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

type ProductRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type BatchDTO struct {
	ID         string    `json:"id"`
	SellerID   string    `json:"seller_id"`
	ProductID  string    `json:"product_id"`
	BasePrice  string    `json:"base_price"`
	Quantity   int       `json:"quantity"`
	Status     string    `json:"status"`
	SlowMoving bool      `json:"slow_moving"`
	CreatedAt  time.Time `json:"created_at"`
}

type CreateBatchRequest struct {
	ProductID string `json:"product_id"`
	BasePrice string `json:"base_price"`
	Quantity  int    `json:"quantity"`
}

type AdjustQuantityRequest struct {
	Quantity int    `json:"quantity"`
	Reason   string `json:"reason"`
}

type OverridePriceRequest struct {
	Price  string `json:"price"`
	Reason string `json:"reason"`
}

type SlowMovingRequest struct {
	SlowMoving bool `json:"slow_moving"`
}

type InventoryRowDTO struct {
	Batch    BatchDTO `json:"batch"`
	Total    int      `json:"total"`
	InShop   int      `json:"in_shop"`
	Sold     int      `json:"sold"`
	Returned int      `json:"returned"`
}

// =============================================================================
// ITEMS AND COLLECTIONS
// =============================================================================

type ItemDTO struct {
	ID            string    `json:"id"`
	BatchID       string    `json:"batch_id"`
	Barcode       string    `json:"barcode"`
	Status        string    `json:"status"`
	CurrentShopID string    `json:"current_shop_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

type CreateItemsRequest struct {
	Barcodes      []string `json:"barcodes"`
	InitialStatus string   `json:"initial_status,omitempty"`
}

type StockItemRequest struct {
	Barcode string `json:"barcode"`
	ShopID  string `json:"shop_id"`
}

type CollectionDTO struct {
	ID                string     `json:"id"`
	BatchID           string     `json:"batch_id"`
	CollectorID       string     `json:"collector_id"`
	CollectedQuantity int        `json:"collected_quantity"`
	SellerConfirmed   bool       `json:"seller_confirmed"`
	HandedToShop      bool       `json:"handed_to_shop"`
	HandoverProof     string     `json:"handover_proof,omitempty"`
	HandedToShopAt    *time.Time `json:"handed_to_shop_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

type CreateCollectionRequest struct {
	BatchID           string `json:"batch_id"`
	CollectedQuantity int    `json:"collected_quantity"`
}

type HandoverRequest struct {
	ShopID string `json:"shop_id"`
	Proof  string `json:"proof"`
}

// =============================================================================
// SALES
// =============================================================================

type QuoteDTO struct {
	Status       string `json:"status"`
	Barcode      string `json:"barcode"`
	ItemID       string `json:"item_id,omitempty"`
	BatchID      string `json:"batch_id,omitempty"`
	SalePrice    string `json:"sale_price,omitempty"`
	SellerAmount string `json:"seller_amount,omitempty"`
	DiscountID   string `json:"discount_id,omitempty"`
}

type SaleDTO struct {
	ID         string    `json:"id"`
	ItemID     string    `json:"item_id"`
	ShopID     string    `json:"shop_id"`
	SoldPrice  string    `json:"sold_price"`
	DiscountID string    `json:"discount_id,omitempty"`
	SoldAt     time.Time `json:"sold_at"`
}

type SaleEventDTO struct {
	ID            string    `json:"id"`
	ClientEventID string    `json:"client_event_id"`
	ShopID        string    `json:"shop_id"`
	Barcode       string    `json:"barcode"`
	SoldPrice     string    `json:"sold_price"`
	SellerAmount  string    `json:"seller_amount"`
	DeviceID      string    `json:"device_id,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
	ReceivedAt    time.Time `json:"received_at"`
	Status        string    `json:"status"`
	Reason        string    `json:"reason,omitempty"`
}

type SubmitSaleRequest struct {
	ClientEventID string    `json:"client_event_id"`
	Barcode       string    `json:"barcode"`
	SoldPrice     string    `json:"sold_price"`
	DeviceID      string    `json:"device_id"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// =============================================================================
// LEDGER
// =============================================================================

type WalletDTO struct {
	SellerID  string    `json:"seller_id"`
	Balance   string    `json:"balance"`
	UpdatedAt time.Time `json:"updated_at"`
}

type TransactionDTO struct {
	ID          string    `json:"id"`
	SellerID    string    `json:"seller_id"`
	Kind        string    `json:"kind"`
	ReferenceID string    `json:"reference_id"`
	Amount      string    `json:"amount"`
	CreatedAt   time.Time `json:"created_at"`
}

type PayoutDTO struct {
	ID        string    `json:"id"`
	SellerID  string    `json:"seller_id"`
	Amount    string    `json:"amount"`
	Status    string    `json:"status"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type RequestPayoutRequest struct {
	SellerID string `json:"seller_id"`
	Amount   string `json:"amount"`
}

type CommissionDTO struct {
	ID        string    `json:"id"`
	SellerID  string    `json:"seller_id"`
	Type      string    `json:"type"`
	Value     string    `json:"value"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

type SetCommissionRequest struct {
	SellerID string `json:"seller_id"`
	Type     string `json:"type"`
	Value    string `json:"value"`
}

// =============================================================================
// WORKFLOWS
// =============================================================================

type DiscountDTO struct {
	ID            string    `json:"id"`
	BatchID       string    `json:"batch_id"`
	DiscountPrice string    `json:"discount_price"`
	ItemLimit     *int      `json:"item_limit,omitempty"`
	Status        string    `json:"status"`
	ExpiresAt     time.Time `json:"expires_at"`
	CreatedAt     time.Time `json:"created_at"`
}

type RequestDiscountRequest struct {
	BatchID       string    `json:"batch_id"`
	DiscountPrice string    `json:"discount_price"`
	ItemLimit     *int      `json:"item_limit,omitempty"`
	ExpiresAt     time.Time `json:"expires_at"`
}

type ReturnDTO struct {
	ID                string    `json:"id"`
	SellerID          string    `json:"seller_id"`
	BatchID           string    `json:"batch_id"`
	RequestedQuantity int       `json:"requested_quantity"`
	Status            string    `json:"status"`
	Reason            string    `json:"reason,omitempty"`
	AdminNote         string    `json:"admin_note,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

type RequestReturnRequest struct {
	BatchID  string `json:"batch_id"`
	Quantity int    `json:"quantity"`
	Reason   string `json:"reason"`
}

type DecideRequest struct {
	Status string `json:"status"`
	Note   string `json:"note"`
}

type DisputeDTO struct {
	ID        string    `json:"id"`
	CreatedBy string    `json:"created_by"`
	Role      string    `json:"role"`
	Entity    string    `json:"entity"`
	EntityID  string    `json:"entity_id"`
	Message   string    `json:"message"`
	Status    string    `json:"status"`
	AdminNote string    `json:"admin_note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CreateDisputeRequest struct {
	Entity   string `json:"entity"`
	EntityID string `json:"entity_id"`
	Message  string `json:"message"`
}

// =============================================================================
// SWEEPS, AUDIT, PARTIES
// =============================================================================

type SweepResultDTO struct {
	Expired int       `json:"expired"`
	RanAt   time.Time `json:"ran_at"`
}

type AuditEntryDTO struct {
	ID        string    `json:"id"`
	Entity    string    `json:"entity"`
	EntityID  string    `json:"entity_id"`
	Action    string    `json:"action"`
	ActorID   string    `json:"actor_id"`
	ActorRole string    `json:"actor_role"`
	Before    any       `json:"before,omitempty"`
	After     any       `json:"after,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type PartyDTO struct {
	ID          string    `json:"id"`
	Role        string    `json:"role"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
}

type SavePartyRequest struct {
	ID          string `json:"id"`
	Role        string `json:"role"`
	DisplayName string `json:"display_name"`
}

// =============================================================================
// CONVERTERS
// =============================================================================

func toProductDTO(p engine.Product) ProductDTO {
	return ProductDTO{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		OwnerID:     p.OwnerID,
		ArchivedAt:  p.ArchivedAt,
		CreatedAt:   p.CreatedAt,
	}
}

func toBatchDTO(b engine.Batch) BatchDTO {
	return BatchDTO{
		ID:         b.ID,
		SellerID:   b.SellerID,
		ProductID:  b.ProductID,
		BasePrice:  b.BasePrice.String(),
		Quantity:   b.Quantity,
		Status:     string(b.Status),
		SlowMoving: b.SlowMoving,
		CreatedAt:  b.CreatedAt,
	}
}

func toItemDTO(it engine.Item) ItemDTO {
	return ItemDTO{
		ID:            it.ID,
		BatchID:       it.BatchID,
		Barcode:       it.Barcode,
		Status:        string(it.Status),
		CurrentShopID: it.CurrentShopID,
		CreatedAt:     it.CreatedAt,
	}
}

func toCollectionDTO(c engine.Collection) CollectionDTO {
	return CollectionDTO{
		ID:                c.ID,
		BatchID:           c.BatchID,
		CollectorID:       c.CollectorID,
		CollectedQuantity: c.CollectedQuantity,
		SellerConfirmed:   c.SellerConfirmed,
		HandedToShop:      c.HandedToShop,
		HandoverProof:     c.HandoverProof,
		HandedToShopAt:    c.HandedToShopAt,
		CreatedAt:         c.CreatedAt,
	}
}

func toInventoryRowDTO(row inventory.BatchInventory) InventoryRowDTO {
	return InventoryRowDTO{
		Batch:    toBatchDTO(row.Batch),
		Total:    row.Total,
		InShop:   row.InShop,
		Sold:     row.Sold,
		Returned: row.Returned,
	}
}

func toQuoteDTO(q sales.Quote) QuoteDTO {
	dto := QuoteDTO{
		Status:     string(q.Status),
		Barcode:    q.Barcode,
		ItemID:     q.ItemID,
		BatchID:    q.BatchID,
		DiscountID: q.DiscountID,
	}
	if q.Status == sales.QuoteOK {
		dto.SalePrice = q.SalePrice.String()
		dto.SellerAmount = q.SellerAmount.String()
	}
	return dto
}

func toSaleDTO(s engine.Sale) SaleDTO {
	return SaleDTO{
		ID:         s.ID,
		ItemID:     s.ItemID,
		ShopID:     s.ShopID,
		SoldPrice:  s.SoldPrice.String(),
		DiscountID: s.DiscountID,
		SoldAt:     s.SoldAt,
	}
}

func toSaleEventDTO(e engine.SaleEvent) SaleEventDTO {
	return SaleEventDTO{
		ID:            e.ID,
		ClientEventID: e.ClientEventID,
		ShopID:        e.ShopID,
		Barcode:       e.Barcode,
		SoldPrice:     e.SoldPrice.String(),
		SellerAmount:  e.SellerAmount.String(),
		DeviceID:      e.DeviceID,
		OccurredAt:    e.OccurredAt,
		ReceivedAt:    e.ReceivedAt,
		Status:        string(e.Status),
		Reason:        e.Reason,
	}
}

func toWalletDTO(w engine.Wallet) WalletDTO {
	return WalletDTO{SellerID: w.SellerID, Balance: w.Balance.String(), UpdatedAt: w.UpdatedAt}
}

func toTransactionDTO(tx engine.WalletTransaction) TransactionDTO {
	return TransactionDTO{
		ID:          tx.ID,
		SellerID:    tx.SellerID,
		Kind:        string(tx.Kind),
		ReferenceID: tx.ReferenceID,
		Amount:      tx.Amount.String(),
		CreatedAt:   tx.CreatedAt,
	}
}

func toPayoutDTO(p engine.Payout) PayoutDTO {
	return PayoutDTO{
		ID:        p.ID,
		SellerID:  p.SellerID,
		Amount:    p.Amount.String(),
		Status:    string(p.Status),
		Note:      p.Note,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func toCommissionDTO(c engine.Commission) CommissionDTO {
	return CommissionDTO{
		ID:        c.ID,
		SellerID:  c.SellerID,
		Type:      string(c.Type),
		Value:     c.Value.String(),
		Active:    c.Active,
		CreatedAt: c.CreatedAt,
	}
}

func toDiscountDTO(d engine.Discount) DiscountDTO {
	return DiscountDTO{
		ID:            d.ID,
		BatchID:       d.BatchID,
		DiscountPrice: d.DiscountPrice.String(),
		ItemLimit:     d.ItemLimit,
		Status:        string(d.Status),
		ExpiresAt:     d.ExpiresAt,
		CreatedAt:     d.CreatedAt,
	}
}

func toReturnDTO(r engine.ReturnRequest) ReturnDTO {
	return ReturnDTO{
		ID:                r.ID,
		SellerID:          r.SellerID,
		BatchID:           r.BatchID,
		RequestedQuantity: r.RequestedQuantity,
		Status:            string(r.Status),
		Reason:            r.Reason,
		AdminNote:         r.AdminNote,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
}

func toDisputeDTO(d engine.Dispute) DisputeDTO {
	return DisputeDTO{
		ID:        d.ID,
		CreatedBy: d.CreatedBy,
		Role:      string(d.Role),
		Entity:    d.Entity,
		EntityID:  d.EntityID,
		Message:   d.Message,
		Status:    string(d.Status),
		AdminNote: d.AdminNote,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

func toAuditEntryDTO(e engine.AuditEntry) AuditEntryDTO {
	dto := AuditEntryDTO{
		ID:        e.ID,
		Entity:    e.Entity,
		EntityID:  e.EntityID,
		Action:    e.Action,
		ActorID:   e.ActorID,
		ActorRole: string(e.ActorRole),
		CreatedAt: e.CreatedAt,
	}
	if len(e.Before) > 0 {
		dto.Before = json.RawMessage(e.Before)
	}
	if len(e.After) > 0 {
		dto.After = json.RawMessage(e.After)
	}
	return dto
}

func toPartyDTO(p engine.Party) PartyDTO {
	return PartyDTO{ID: p.ID, Role: string(p.Role), DisplayName: p.DisplayName, CreatedAt: p.CreatedAt}
}
