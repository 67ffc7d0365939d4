/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for POS and seller frontends

ROUTE GROUPS:
  /api/products/*      Product catalog
  /api/batches/*       Batch lifecycle and per-item stock
  /api/collections/*   Collector pickups and shop handovers
  /api/sales/*         Quoting and offline sale event ingestion
  /api/wallets/*       Seller balances and transaction history
  /api/payouts/*       Payout requests and decisions
  /api/discounts/*     Discount requests, decisions, expiry sweep
  /api/returns/*       Return requests through physical completion
  /api/disputes/*      Free-form disputes
  /api/admin/*         Admin-only operations (commissions, sweeps)
  /api/audit           Audit trail queries
  /api/parties/*       Party registry

SECURITY NOTE:
  No authentication middleware. Identity arrives via X-Actor-ID and
  X-Actor-Role headers from the upstream auth layer.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Actor-ID", "X-Actor-Role"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Product routes
		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.ListProducts)
			r.Post("/", h.CreateProduct)
			r.Put("/{id}", h.UpdateProduct)
			r.Post("/{id}/archive", h.ArchiveProduct)
		})

		// Batch routes
		r.Route("/batches", func(r chi.Router) {
			r.Get("/", h.ListBatches)
			r.Post("/", h.CreateBatch)
			r.Get("/collected", h.ListCollectedBatches)
			r.Post("/{id}/quantity", h.AdjustBatchQuantity)
			r.Post("/{id}/price", h.OverrideBatchPrice)
			r.Post("/{id}/slow-moving", h.SetSlowMoving)
			r.Get("/{id}/items", h.ListBatchItems)
			r.Post("/{id}/items", h.CreateItems)
		})

		// Collection routes
		r.Route("/collections", func(r chi.Router) {
			r.Get("/", h.ListCollections)
			r.Post("/", h.CreateCollection)
			r.Post("/{id}/confirm", h.ConfirmCollection)
			r.Post("/{id}/handover", h.HandoverCollection)
		})

		// Item and inventory routes
		r.Post("/items/stock", h.StockItem)
		r.Get("/inventory", h.ListInventory)
		r.Get("/shops/{shopID}/inventory", h.ShopInventory)

		// Sales routes
		r.Route("/sales", func(r chi.Router) {
			r.Get("/", h.ListSales)
			r.Get("/quote", h.QuoteSale)
			r.Get("/events", h.ListSaleEvents)
			r.Post("/events", h.SubmitSaleEvent)
		})

		// Wallet routes
		r.Route("/wallets", func(r chi.Router) {
			r.Get("/{sellerID}", h.GetWallet)
			r.Get("/{sellerID}/transactions", h.ListWalletTransactions)
		})

		// Payout routes
		r.Route("/payouts", func(r chi.Router) {
			r.Get("/", h.ListPayouts)
			r.Post("/", h.RequestPayout)
			r.Post("/{id}/decide", h.DecidePayout)
		})

		// Discount routes
		r.Route("/discounts", func(r chi.Router) {
			r.Get("/", h.ListDiscounts)
			r.Post("/", h.RequestDiscount)
			r.Post("/{id}/decide", h.DecideDiscount)
		})

		// Return routes
		r.Route("/returns", func(r chi.Router) {
			r.Get("/", h.ListReturns)
			r.Post("/", h.RequestReturn)
			r.Post("/{id}/decide", h.DecideReturn)
			r.Post("/{id}/complete", h.CompleteReturn)
		})

		// Dispute routes
		r.Route("/disputes", func(r chi.Router) {
			r.Get("/", h.ListDisputes)
			r.Post("/", h.CreateDispute)
			r.Post("/{id}/decide", h.DecideDispute)
		})

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Post("/commissions", h.SetCommission)
			r.Post("/sweeps/discount-expiry", h.RunDiscountExpirySweep)
		})

		// Audit trail
		r.Get("/audit", h.QueryAudit)

		// Party registry
		r.Route("/parties", func(r chi.Router) {
			r.Post("/", h.SaveParty)
			r.Get("/{id}", h.GetParty)
		})
	})

	return r
}
