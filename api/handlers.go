/*
handlers.go - HTTP handlers for the inventory & settlement engine

PURPOSE:
  Exposes the engine via REST. Handles HTTP request/response, JSON
  serialization, and delegates to the domain services.

ACTOR IDENTITY:
  Authentication and role routing live outside this service. The upstream
  layer forwards the established identity via X-Actor-ID and X-Actor-Role
  headers; the engine uses it for audit attribution and ownership predicates.

ERROR HANDLING:
  - 400: validation errors, malformed bodies
  - 404: missing entities
  - 409: business-rule rejections (wrong state, capacity, balance, ...)
  - 500: infrastructure failures
  Sale event submissions are the exception: business rejections come back as
  200 with a terminal rejected payload, so offline clients can distinguish
  "drop from queue" from "retry later".

SEE ALSO:
  - dto.go:    request/response shapes
  - server.go: router setup and middleware
*/
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/sellershop/inventory-engine/engine"
	"github.com/sellershop/inventory-engine/inventory"
	"github.com/sellershop/inventory-engine/ledger"
	"github.com/sellershop/inventory-engine/sales"
	"github.com/sellershop/inventory-engine/store/sqlite"
	"github.com/sellershop/inventory-engine/workflow"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store     *sqlite.Store
	Inventory *inventory.Service
	Ledger    *ledger.Ledger
	Sales     *sales.Pipeline
	Workflow  *workflow.Engine
}

// NewHandler wires the domain services over one store.
func NewHandler(store *sqlite.Store) *Handler {
	l := ledger.New(store)
	return &Handler{
		Store:     store,
		Inventory: inventory.New(store),
		Ledger:    l,
		Sales:     sales.New(store, l),
		Workflow:  workflow.New(store, l),
	}
}

// actorFrom reads the forwarded identity headers. Unauthenticated local use
// falls back to an anonymous admin, matching the trust model of a service
// deployed behind the auth layer.
func actorFrom(r *http.Request) engine.Actor {
	actor := engine.Actor{
		ID:   r.Header.Get("X-Actor-ID"),
		Role: engine.Role(r.Header.Get("X-Actor-Role")),
	}
	if actor.ID == "" {
		actor.ID = "anonymous"
	}
	if actor.Role == "" {
		actor.Role = engine.RoleAdmin
	}
	return actor
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps the engine's error taxonomy onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case engine.IsValidation(err):
		writeError(w, http.StatusBadRequest, "Validation failed", err)
	case engine.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Not found", err)
	case engine.IsBusinessRejection(err):
		writeError(w, http.StatusConflict, "Rejected", err)
	default:
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	return true
}

func parseMoney(w http.ResponseWriter, field, value string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid decimal in "+field, err)
		return decimal.Zero, false
	}
	return d, true
}

// =============================================================================
// PRODUCT HANDLERS
// =============================================================================

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.Inventory.Products(r.Context(), r.URL.Query().Get("owner"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dtos := make([]ProductDTO, 0, len(products))
	for _, p := range products {
		dtos = append(dtos, toProductDTO(p))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest
	if !decodeBody(w, r, &req) {
		return
	}
	product, err := h.Inventory.CreateProduct(r.Context(), actorFrom(r), req.Name, req.Description)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toProductDTO(*product))
}

func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest
	if !decodeBody(w, r, &req) {
		return
	}
	product, err := h.Inventory.UpdateProduct(r.Context(), actorFrom(r), chi.URLParam(r, "id"), req.Name, req.Description)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductDTO(*product))
}

func (h *Handler) ArchiveProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.Inventory.ArchiveProduct(r.Context(), actorFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductDTO(*product))
}

// =============================================================================
// BATCH HANDLERS
// =============================================================================

func (h *Handler) ListBatches(w http.ResponseWriter, r *http.Request) {
	batches, err := h.Inventory.Batches(r.Context(), r.URL.Query().Get("seller"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dtos := make([]BatchDTO, 0, len(batches))
	for _, b := range batches {
		dtos = append(dtos, toBatchDTO(b))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateBatch(w http.ResponseWriter, r *http.Request) {
	var req CreateBatchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	price, ok := parseMoney(w, "base_price", req.BasePrice)
	if !ok {
		return
	}
	batch, err := h.Inventory.CreateBatch(r.Context(), actorFrom(r), req.ProductID, price, req.Quantity)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toBatchDTO(*batch))
}

func (h *Handler) AdjustBatchQuantity(w http.ResponseWriter, r *http.Request) {
	var req AdjustQuantityRequest
	if !decodeBody(w, r, &req) {
		return
	}
	batch, err := h.Inventory.AdjustBatchQuantity(r.Context(), actorFrom(r), chi.URLParam(r, "id"), req.Quantity, req.Reason)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBatchDTO(*batch))
}

func (h *Handler) OverrideBatchPrice(w http.ResponseWriter, r *http.Request) {
	var req OverridePriceRequest
	if !decodeBody(w, r, &req) {
		return
	}
	price, ok := parseMoney(w, "price", req.Price)
	if !ok {
		return
	}
	batch, err := h.Inventory.OverrideBatchPrice(r.Context(), actorFrom(r), chi.URLParam(r, "id"), price, req.Reason)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBatchDTO(*batch))
}

func (h *Handler) SetSlowMoving(w http.ResponseWriter, r *http.Request) {
	var req SlowMovingRequest
	if !decodeBody(w, r, &req) {
		return
	}
	batch, err := h.Inventory.SetSlowMoving(r.Context(), actorFrom(r), chi.URLParam(r, "id"), req.SlowMoving)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBatchDTO(*batch))
}

func (h *Handler) ListCollectedBatches(w http.ResponseWriter, r *http.Request) {
	batches, err := h.Inventory.ListCollectedBatches(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dtos := make([]BatchDTO, 0, len(batches))
	for _, b := range batches {
		dtos = append(dtos, toBatchDTO(b))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) ListBatchItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.Inventory.ListBatchItems(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dtos := make([]ItemDTO, 0, len(items))
	for _, it := range items {
		dtos = append(dtos, toItemDTO(it))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateItems(w http.ResponseWriter, r *http.Request) {
	var req CreateItemsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	items, err := h.Inventory.CreateItems(r.Context(), actorFrom(r), chi.URLParam(r, "id"),
		req.Barcodes, engine.ItemStatus(req.InitialStatus))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dtos := make([]ItemDTO, 0, len(items))
	for _, it := range items {
		dtos = append(dtos, toItemDTO(it))
	}
	writeJSON(w, http.StatusCreated, dtos)
}

// =============================================================================
// COLLECTION HANDLERS
// =============================================================================

func (h *Handler) ListCollections(w http.ResponseWriter, r *http.Request) {
	collections, err := h.Inventory.Collections(r.Context(), r.URL.Query().Get("batch"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dtos := make([]CollectionDTO, 0, len(collections))
	for _, c := range collections {
		dtos = append(dtos, toCollectionDTO(c))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateCollection(w http.ResponseWriter, r *http.Request) {
	var req CreateCollectionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	collection, err := h.Inventory.CreateCollection(r.Context(), actorFrom(r), req.BatchID, req.CollectedQuantity)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCollectionDTO(*collection))
}

func (h *Handler) ConfirmCollection(w http.ResponseWriter, r *http.Request) {
	collection, err := h.Inventory.ConfirmCollection(r.Context(), actorFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCollectionDTO(*collection))
}

func (h *Handler) HandoverCollection(w http.ResponseWriter, r *http.Request) {
	var req HandoverRequest
	if !decodeBody(w, r, &req) {
		return
	}
	collection, err := h.Inventory.HandoverCollectionToShop(r.Context(), actorFrom(r), chi.URLParam(r, "id"), req.ShopID, req.Proof)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCollectionDTO(*collection))
}

// =============================================================================
// ITEM AND INVENTORY HANDLERS
// =============================================================================

func (h *Handler) StockItem(w http.ResponseWriter, r *http.Request) {
	var req StockItemRequest
	if !decodeBody(w, r, &req) {
		return
	}
	item, err := h.Inventory.StockItemToShop(r.Context(), actorFrom(r), req.Barcode, req.ShopID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toItemDTO(*item))
}

func (h *Handler) ListInventory(w http.ResponseWriter, r *http.Request) {
	rows, err := h.Inventory.ListInventory(r.Context(), r.URL.Query().Get("seller"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dtos := make([]InventoryRowDTO, 0, len(rows))
	for _, row := range rows {
		dtos = append(dtos, toInventoryRowDTO(row))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) ShopInventory(w http.ResponseWriter, r *http.Request) {
	items, err := h.Inventory.ShopInventory(r.Context(), chi.URLParam(r, "shopID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dtos := make([]ItemDTO, 0, len(items))
	for _, it := range items {
		dtos = append(dtos, toItemDTO(it))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// SALES HANDLERS
// =============================================================================

func (h *Handler) QuoteSale(w http.ResponseWriter, r *http.Request) {
	barcode := r.URL.Query().Get("barcode")
	if barcode == "" {
		writeError(w, http.StatusBadRequest, "barcode query parameter is required", nil)
		return
	}
	quote, err := h.Sales.QuoteSale(r.Context(), barcode)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toQuoteDTO(*quote))
}

func (h *Handler) SubmitSaleEvent(w http.ResponseWriter, r *http.Request) {
	var req SubmitSaleRequest
	if !decodeBody(w, r, &req) {
		return
	}
	price, ok := parseMoney(w, "sold_price", req.SoldPrice)
	if !ok {
		return
	}
	event, err := h.Sales.SubmitSaleEvent(r.Context(), actorFrom(r), sales.SubmitSaleParams{
		ClientEventID: req.ClientEventID,
		Barcode:       req.Barcode,
		SoldPrice:     price,
		DeviceID:      req.DeviceID,
		OccurredAt:    req.OccurredAt,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	// Terminal business outcomes (accepted, rejected, duplicate) are all 200:
	// the client keys off the payload status, and a non-2xx must mean "retry".
	writeJSON(w, http.StatusOK, toSaleEventDTO(*event))
}

func (h *Handler) ListSales(w http.ResponseWriter, r *http.Request) {
	committed, err := h.Sales.ListSales(r.Context(), r.URL.Query().Get("shop"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dtos := make([]SaleDTO, 0, len(committed))
	for _, s := range committed {
		dtos = append(dtos, toSaleDTO(s))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) ListSaleEvents(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	events, err := h.Sales.ListSaleEvents(r.Context(), r.URL.Query().Get("shop"), limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dtos := make([]SaleEventDTO, 0, len(events))
	for _, e := range events {
		dtos = append(dtos, toSaleEventDTO(e))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// LEDGER HANDLERS
// =============================================================================

func (h *Handler) GetWallet(w http.ResponseWriter, r *http.Request) {
	wallet, err := h.Ledger.WalletBalance(r.Context(), chi.URLParam(r, "sellerID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toWalletDTO(*wallet))
}

func (h *Handler) ListWalletTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := h.Ledger.Transactions(r.Context(), chi.URLParam(r, "sellerID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dtos := make([]TransactionDTO, 0, len(txs))
	for _, tx := range txs {
		dtos = append(dtos, toTransactionDTO(tx))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) RequestPayout(w http.ResponseWriter, r *http.Request) {
	var req RequestPayoutRequest
	if !decodeBody(w, r, &req) {
		return
	}
	amount, ok := parseMoney(w, "amount", req.Amount)
	if !ok {
		return
	}
	actor := actorFrom(r)
	sellerID := req.SellerID
	if sellerID == "" {
		sellerID = actor.ID
	}
	payout, err := h.Ledger.RequestPayout(r.Context(), actor, sellerID, amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPayoutDTO(*payout))
}

func (h *Handler) DecidePayout(w http.ResponseWriter, r *http.Request) {
	var req DecideRequest
	if !decodeBody(w, r, &req) {
		return
	}
	payout, err := h.Ledger.DecidePayout(r.Context(), actorFrom(r), chi.URLParam(r, "id"),
		engine.PayoutStatus(req.Status), req.Note)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPayoutDTO(*payout))
}

func (h *Handler) ListPayouts(w http.ResponseWriter, r *http.Request) {
	payouts, err := h.Ledger.Payouts(r.Context(), r.URL.Query().Get("seller"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dtos := make([]PayoutDTO, 0, len(payouts))
	for _, p := range payouts {
		dtos = append(dtos, toPayoutDTO(p))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) SetCommission(w http.ResponseWriter, r *http.Request) {
	var req SetCommissionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	value, ok := parseMoney(w, "value", req.Value)
	if !ok {
		return
	}
	commission, err := h.Ledger.SetCommission(r.Context(), actorFrom(r), req.SellerID,
		engine.CommissionType(req.Type), value)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCommissionDTO(*commission))
}

// =============================================================================
// WORKFLOW HANDLERS
// =============================================================================

func (h *Handler) RequestDiscount(w http.ResponseWriter, r *http.Request) {
	var req RequestDiscountRequest
	if !decodeBody(w, r, &req) {
		return
	}
	price, ok := parseMoney(w, "discount_price", req.DiscountPrice)
	if !ok {
		return
	}
	discount, err := h.Workflow.RequestDiscount(r.Context(), actorFrom(r), req.BatchID, price, req.ItemLimit, req.ExpiresAt)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toDiscountDTO(*discount))
}

func (h *Handler) DecideDiscount(w http.ResponseWriter, r *http.Request) {
	var req DecideRequest
	if !decodeBody(w, r, &req) {
		return
	}
	discount, err := h.Workflow.DecideDiscount(r.Context(), actorFrom(r), chi.URLParam(r, "id"),
		engine.DiscountStatus(req.Status))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDiscountDTO(*discount))
}

func (h *Handler) ListDiscounts(w http.ResponseWriter, r *http.Request) {
	discounts, err := h.Workflow.Discounts(r.Context(), r.URL.Query().Get("batch"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dtos := make([]DiscountDTO, 0, len(discounts))
	for _, d := range discounts {
		dtos = append(dtos, toDiscountDTO(d))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) RunDiscountExpirySweep(w http.ResponseWriter, r *http.Request) {
	expired, err := h.Workflow.RunDiscountExpirySweep(r.Context(), actorFrom(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SweepResultDTO{Expired: expired, RanAt: time.Now().UTC()})
}

func (h *Handler) RequestReturn(w http.ResponseWriter, r *http.Request) {
	var req RequestReturnRequest
	if !decodeBody(w, r, &req) {
		return
	}
	request, err := h.Workflow.RequestReturn(r.Context(), actorFrom(r), req.BatchID, req.Quantity, req.Reason)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toReturnDTO(*request))
}

func (h *Handler) DecideReturn(w http.ResponseWriter, r *http.Request) {
	var req DecideRequest
	if !decodeBody(w, r, &req) {
		return
	}
	request, err := h.Workflow.DecideReturn(r.Context(), actorFrom(r), chi.URLParam(r, "id"),
		engine.ReturnStatus(req.Status), req.Note)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReturnDTO(*request))
}

func (h *Handler) CompleteReturn(w http.ResponseWriter, r *http.Request) {
	request, err := h.Workflow.CompleteReturn(r.Context(), actorFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReturnDTO(*request))
}

func (h *Handler) ListReturns(w http.ResponseWriter, r *http.Request) {
	requests, err := h.Workflow.Returns(r.Context(), r.URL.Query().Get("seller"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dtos := make([]ReturnDTO, 0, len(requests))
	for _, req := range requests {
		dtos = append(dtos, toReturnDTO(req))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateDispute(w http.ResponseWriter, r *http.Request) {
	var req CreateDisputeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	dispute, err := h.Workflow.CreateDispute(r.Context(), actorFrom(r), req.Entity, req.EntityID, req.Message)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toDisputeDTO(*dispute))
}

func (h *Handler) DecideDispute(w http.ResponseWriter, r *http.Request) {
	var req DecideRequest
	if !decodeBody(w, r, &req) {
		return
	}
	dispute, err := h.Workflow.DecideDispute(r.Context(), actorFrom(r), chi.URLParam(r, "id"),
		engine.DisputeStatus(req.Status), req.Note)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDisputeDTO(*dispute))
}

func (h *Handler) ListDisputes(w http.ResponseWriter, r *http.Request) {
	disputes, err := h.Workflow.Disputes(r.Context(), engine.DisputeStatus(r.URL.Query().Get("status")))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dtos := make([]DisputeDTO, 0, len(disputes))
	for _, d := range disputes {
		dtos = append(dtos, toDisputeDTO(d))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// AUDIT AND PARTY HANDLERS
// =============================================================================

func (h *Handler) QueryAudit(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	entries, err := h.Store.QueryAudit(r.Context(), engine.AuditFilter{
		Entity:   q.Get("entity"),
		EntityID: q.Get("entity_id"),
		ActorID:  q.Get("actor"),
		Action:   q.Get("action"),
		Limit:    limit,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dtos := make([]AuditEntryDTO, 0, len(entries))
	for _, e := range entries {
		dtos = append(dtos, toAuditEntryDTO(e))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) SaveParty(w http.ResponseWriter, r *http.Request) {
	var req SavePartyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ID == "" || req.Role == "" {
		writeError(w, http.StatusBadRequest, "party id and role are required", nil)
		return
	}
	party := engine.Party{
		ID:          req.ID,
		Role:        engine.Role(req.Role),
		DisplayName: req.DisplayName,
		CreatedAt:   time.Now().UTC(),
	}
	if err := h.Store.SaveParty(r.Context(), party); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPartyDTO(party))
}

func (h *Handler) GetParty(w http.ResponseWriter, r *http.Request) {
	party, err := h.Store.GetParty(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPartyDTO(*party))
}
