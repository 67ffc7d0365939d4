/*
handlers_test.go - HTTP-level tests for the REST surface

Tests for:
- Full seller-to-sale flow over HTTP
- Error status mapping (400/404/409)
- Sale event terminal outcomes always returning 200
*/
package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sellershop/inventory-engine/engine"
	"github.com/sellershop/inventory-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

type actorHeader struct {
	ID   string
	Role string
}

var (
	adminHdr     = actorHeader{"admin-1", "admin"}
	sellerHdr    = actorHeader{"seller-1", "seller"}
	collectorHdr = actorHeader{"collector-1", "collector"}
	shopHdr      = actorHeader{"shop-1", "shop"}
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	srv := httptest.NewServer(NewRouter(NewHandler(store)))
	t.Cleanup(srv.Close)
	return srv
}

// call issues a request as the given actor and decodes the JSON response
// into out (when out is non-nil). Returns the status code.
func call(t *testing.T, srv *httptest.Server, method, path string, actor actorHeader, body, out any) int {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Actor-ID", actor.ID)
	req.Header.Set("X-Actor-Role", actor.Role)

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

// seedStockedBatch drives a batch of 2 items through collection and handover
// into shop-1 at 30.00, entirely over HTTP.
func seedStockedBatch(t *testing.T, srv *httptest.Server) BatchDTO {
	t.Helper()

	var product ProductDTO
	status := call(t, srv, http.MethodPost, "/api/products", sellerHdr,
		ProductRequest{Name: "Ceramic mug"}, &product)
	require.Equal(t, http.StatusCreated, status)

	var batch BatchDTO
	status = call(t, srv, http.MethodPost, "/api/batches", sellerHdr,
		CreateBatchRequest{ProductID: product.ID, BasePrice: "30.00", Quantity: 2}, &batch)
	require.Equal(t, http.StatusCreated, status)

	var collection CollectionDTO
	status = call(t, srv, http.MethodPost, "/api/collections", collectorHdr,
		CreateCollectionRequest{BatchID: batch.ID, CollectedQuantity: 2}, &collection)
	require.Equal(t, http.StatusCreated, status)

	status = call(t, srv, http.MethodPost, "/api/batches/"+batch.ID+"/items", adminHdr,
		CreateItemsRequest{Barcodes: []string{"HTTP-1", "HTTP-2"}}, nil)
	require.Equal(t, http.StatusCreated, status)

	status = call(t, srv, http.MethodPost, "/api/collections/"+collection.ID+"/confirm", sellerHdr, nil, nil)
	require.Equal(t, http.StatusOK, status)

	status = call(t, srv, http.MethodPost, "/api/collections/"+collection.ID+"/handover", collectorHdr,
		HandoverRequest{ShopID: shopHdr.ID, Proof: "sig-123"}, nil)
	require.Equal(t, http.StatusOK, status)

	return batch
}

// =============================================================================
// FLOW TESTS
// =============================================================================

func TestSellerToSaleFlow(t *testing.T) {
	// GIVEN: A stocked batch of 2 items at 30.00 and a 10% commission
	// WHEN: Quoting and selling one item, then paying the seller out
	// THEN: Every hop reports the expected state over the wire

	srv := newTestServer(t)
	batch := seedStockedBatch(t, srv)

	status := call(t, srv, http.MethodPost, "/api/admin/commissions", adminHdr,
		SetCommissionRequest{SellerID: sellerHdr.ID, Type: "percentage", Value: "10"}, nil)
	require.Equal(t, http.StatusCreated, status)

	var quote QuoteDTO
	status = call(t, srv, http.MethodGet, "/api/sales/quote?barcode=HTTP-1", shopHdr, nil, &quote)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", quote.Status)
	assert.Equal(t, "30", quote.SalePrice)
	assert.Equal(t, "27", quote.SellerAmount)

	var event SaleEventDTO
	status = call(t, srv, http.MethodPost, "/api/sales/events", shopHdr, SubmitSaleRequest{
		ClientEventID: "evt-http-1",
		Barcode:       "HTTP-1",
		SoldPrice:     "30.00",
		OccurredAt:    time.Now().UTC(),
	}, &event)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "accepted", event.Status)
	assert.Equal(t, "27", event.SellerAmount)

	var wallet WalletDTO
	status = call(t, srv, http.MethodGet, "/api/wallets/"+sellerHdr.ID, sellerHdr, nil, &wallet)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, engine.MustDecimal("27").Equal(engine.MustDecimal(wallet.Balance)))

	var rows []InventoryRowDTO
	status = call(t, srv, http.MethodGet, "/api/inventory?seller="+sellerHdr.ID, sellerHdr, nil, &rows)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, rows, 1)
	assert.Equal(t, batch.ID, rows[0].Batch.ID)
	assert.Equal(t, 1, rows[0].Sold)
	assert.Equal(t, 1, rows[0].InShop)
	assert.Equal(t, "partially_sold", rows[0].Batch.Status)

	var payout PayoutDTO
	status = call(t, srv, http.MethodPost, "/api/payouts", sellerHdr,
		RequestPayoutRequest{Amount: "20.00"}, &payout)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "requested", payout.Status)

	status = call(t, srv, http.MethodPost, "/api/payouts/"+payout.ID+"/decide", adminHdr,
		DecideRequest{Status: "approved"}, &payout)
	require.Equal(t, http.StatusOK, status)
	status = call(t, srv, http.MethodPost, "/api/payouts/"+payout.ID+"/decide", adminHdr,
		DecideRequest{Status: "paid"}, &payout)
	require.Equal(t, http.StatusOK, status)

	status = call(t, srv, http.MethodGet, "/api/wallets/"+sellerHdr.ID, sellerHdr, nil, &wallet)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, engine.MustDecimal("7").Equal(engine.MustDecimal(wallet.Balance)))
}

func TestSaleEvent_RejectionAndDuplicateAre200(t *testing.T) {
	// GIVEN: A stocked batch
	// WHEN: Submitting a mispriced event, then replaying an accepted one
	// THEN: Both come back 200 with terminal payload statuses, never an error
	//       status that would make the client retry

	srv := newTestServer(t)
	seedStockedBatch(t, srv)

	var rejected SaleEventDTO
	status := call(t, srv, http.MethodPost, "/api/sales/events", shopHdr, SubmitSaleRequest{
		ClientEventID: "evt-bad-price",
		Barcode:       "HTTP-1",
		SoldPrice:     "9.99",
		OccurredAt:    time.Now().UTC(),
	}, &rejected)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "rejected", rejected.Status)
	assert.NotEmpty(t, rejected.Reason)

	submit := SubmitSaleRequest{
		ClientEventID: "evt-good",
		Barcode:       "HTTP-1",
		SoldPrice:     "30.00",
		OccurredAt:    time.Now().UTC(),
	}
	var first, replay SaleEventDTO
	status = call(t, srv, http.MethodPost, "/api/sales/events", shopHdr, submit, &first)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "accepted", first.Status)

	status = call(t, srv, http.MethodPost, "/api/sales/events", shopHdr, submit, &replay)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "duplicate", replay.Status)
	assert.Equal(t, first.ID, replay.ID)
}

// =============================================================================
// ERROR MAPPING TESTS
// =============================================================================

func TestErrorMapping(t *testing.T) {
	srv := newTestServer(t)
	batch := seedStockedBatch(t, srv)

	t.Run("validation is 400", func(t *testing.T) {
		var errResp ErrorResponse
		status := call(t, srv, http.MethodPost, "/api/products", sellerHdr,
			ProductRequest{Name: ""}, &errResp)
		assert.Equal(t, http.StatusBadRequest, status)
		assert.NotEmpty(t, errResp.Details)
	})

	t.Run("missing entity is 404", func(t *testing.T) {
		status := call(t, srv, http.MethodGet, "/api/wallets/nobody/transactions", adminHdr, nil, nil)
		// Transactions on an unknown wallet are an empty list, not an error.
		assert.Equal(t, http.StatusOK, status)

		var errResp ErrorResponse
		status = call(t, srv, http.MethodPost, "/api/batches/no-such-batch/quantity", adminHdr,
			AdjustQuantityRequest{Quantity: 5, Reason: "recount"}, &errResp)
		assert.Equal(t, http.StatusNotFound, status)
	})

	t.Run("business rejection is 409", func(t *testing.T) {
		var errResp ErrorResponse
		status := call(t, srv, http.MethodPost, "/api/payouts", sellerHdr,
			RequestPayoutRequest{Amount: "999.00"}, &errResp)
		assert.Equal(t, http.StatusConflict, status)
	})

	t.Run("ownership rejection is 409", func(t *testing.T) {
		other := actorHeader{"seller-2", "seller"}
		var errResp ErrorResponse
		status := call(t, srv, http.MethodPost, "/api/batches/"+batch.ID+"/price", other,
			OverridePriceRequest{Price: "25.00"}, &errResp)
		assert.Equal(t, http.StatusConflict, status)
	})

	t.Run("malformed body is 400", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/products", bytes.NewBufferString("{not json"))
		require.NoError(t, err)
		resp, err := srv.Client().Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestAuditQueryOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	batch := seedStockedBatch(t, srv)

	var entries []AuditEntryDTO
	status := call(t, srv, http.MethodGet, "/api/audit?entity=batch&entity_id="+batch.ID, adminHdr, nil, &entries)
	require.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, entries, "batch lifecycle leaves a trail")
	for _, e := range entries {
		assert.Equal(t, "batch", e.Entity)
		assert.Equal(t, batch.ID, e.EntityID)
	}
}
