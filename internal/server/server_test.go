package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cheq-app/cheq-backend/internal/auth"
	"github.com/cheq-app/cheq-backend/internal/ledger"
	"github.com/cheq-app/cheq-backend/internal/models"
	"github.com/cheq-app/cheq-backend/internal/notify"
	"github.com/cheq-app/cheq-backend/internal/ocr"
	"github.com/cheq-app/cheq-backend/internal/service"
	"github.com/cheq-app/cheq-backend/internal/storage/sqlite"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	tempDir, err := os.MkdirTemp("", "cheq-server-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	store, err := sqlite.New(filepath.Join(tempDir, "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	broker := notify.NewBroker()
	tokens := auth.NewHostTokenManager("test-secret", time.Hour)
	svc := service.NewBillService(store, ledger.NewRegistry(store, broker), ocr.NewClient("", ""), tokens)

	ts := httptest.NewServer(New(svc, broker, tokens).Router())
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url, token string, body any) *http.Response {
	t.Helper()
	return doJSON(t, http.MethodPost, url, token, body)
}

func doJSON(t *testing.T, method, url, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("Failed to encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("Failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
}

func createBill(t *testing.T, ts *httptest.Server) *service.CreateBillResult {
	t.Helper()
	resp := postJSON(t, ts.URL+"/api/bills", "", service.CreateBillRequest{
		Items: []service.NewItem{
			{Name: "Pad Thai", Price: 1000},
			{Name: "Steak", Price: 2000, ClaimedByHost: true},
			{Name: "Beer", Price: 500},
		},
		TaxRate: 0.08,
		TipRate: 0.20,
		Payment: models.PaymentHandles{Venmo: "host-venmo"},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("CreateBill status = %d, want 201", resp.StatusCode)
	}
	var result service.CreateBillResult
	decodeBody(t, resp, &result)
	return &result
}

func TestCreateAndGetBill(t *testing.T) {
	ts := newTestServer(t)
	created := createBill(t, ts)

	if created.HostToken == "" {
		t.Error("expected host token in creation response")
	}

	resp, err := http.Get(ts.URL + "/api/bills/" + created.Bill.ID)
	if err != nil {
		t.Fatalf("GetBill failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GetBill status = %d, want 200", resp.StatusCode)
	}
	var body billResponse
	decodeBody(t, resp, &body)

	if body.Bill.ID != created.Bill.ID {
		t.Errorf("bill ID = %q, want %q", body.Bill.ID, created.Bill.ID)
	}
	if len(body.Items) != 3 {
		t.Errorf("got %d items, want 3", len(body.Items))
	}
	if body.Settlement.Bill.Subtotal != 3500 {
		t.Errorf("bill subtotal = %d, want 3500", body.Settlement.Bill.Subtotal)
	}
}

func TestGetBillNotFound(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/bills/no-such-bill")
	if err != nil {
		t.Fatalf("GetBill failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestClaimReturnsRejectedIDs(t *testing.T) {
	ts := newTestServer(t)
	created := createBill(t, ts)
	billURL := ts.URL + "/api/bills/" + created.Bill.ID

	resp := postJSON(t, billURL+"/claims", "", claimRequest{
		ClaimantName: "Alice",
		ItemIDs:      []string{created.Items[0].ID},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("first claim status = %d, want 200", resp.StatusCode)
	}
	var first models.ClaimResult
	decodeBody(t, resp, &first)
	if len(first.Claimed) != 1 || len(first.Rejected) != 0 {
		t.Fatalf("first claim = %+v, want one granted", first)
	}

	// Bob races for the same item plus a free one; the contested item
	// comes back rejected in a 200, not an error.
	resp = postJSON(t, billURL+"/claims", "", claimRequest{
		ClaimantName: "Bob",
		ItemIDs:      []string{created.Items[0].ID, created.Items[2].ID},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("second claim status = %d, want 200", resp.StatusCode)
	}
	var second models.ClaimResult
	decodeBody(t, resp, &second)
	if len(second.Claimed) != 1 || second.Claimed[0] != created.Items[2].ID {
		t.Errorf("second claim granted = %v, want only the free item", second.Claimed)
	}
	if len(second.Rejected) != 1 || second.Rejected[0] != created.Items[0].ID {
		t.Errorf("second claim rejected = %v, want the contested item", second.Rejected)
	}
}

func TestClaimValidation(t *testing.T) {
	ts := newTestServer(t)
	created := createBill(t, ts)
	billURL := ts.URL + "/api/bills/" + created.Bill.ID

	tests := []struct {
		name string
		req  claimRequest
	}{
		{"empty claimant", claimRequest{ItemIDs: []string{created.Items[0].ID}}},
		{"reserved claimant", claimRequest{ClaimantName: models.HostClaimant, ItemIDs: []string{created.Items[0].ID}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, billURL+"/claims", "", tt.req)
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.StatusCode)
			}
		})
	}
}

func TestHostEndpointsRequireToken(t *testing.T) {
	ts := newTestServer(t)
	created := createBill(t, ts)
	billURL := ts.URL + "/api/bills/" + created.Bill.ID

	// No token.
	resp := postJSON(t, billURL+"/items", "", addItemRequest{Name: "Soda", Price: 300})
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("no token: status = %d, want 401", resp.StatusCode)
	}

	// Garbage token.
	resp = postJSON(t, billURL+"/items", "not-a-token", addItemRequest{Name: "Soda", Price: 300})
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("bad token: status = %d, want 401", resp.StatusCode)
	}

	// Token for a different bill.
	other := createBill(t, ts)
	resp = postJSON(t, billURL+"/items", other.HostToken, addItemRequest{Name: "Soda", Price: 300})
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("wrong bill token: status = %d, want 401", resp.StatusCode)
	}

	// The right token works.
	resp = postJSON(t, billURL+"/items", created.HostToken, addItemRequest{Name: "Soda", Price: 300})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("valid token: status = %d, want 201", resp.StatusCode)
	}
	var item models.Item
	decodeBody(t, resp, &item)
	if item.Name != "Soda" || item.Price != 300 {
		t.Errorf("added item = %+v, want Soda/300", item)
	}
}

func TestSplitAndRemoveItems(t *testing.T) {
	ts := newTestServer(t)
	created := createBill(t, ts)
	billURL := ts.URL + "/api/bills/" + created.Bill.ID

	resp := postJSON(t, billURL+"/items/"+created.Items[0].ID+"/split", created.HostToken, splitRequest{Ways: 3})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("split status = %d, want 200", resp.StatusCode)
	}
	var parts []models.Item
	decodeBody(t, resp, &parts)
	if len(parts) != 3 {
		t.Fatalf("got %d parts, want 3", len(parts))
	}
	var total int64
	for _, p := range parts {
		total += int64(p.Price)
	}
	if total != 1000 {
		t.Errorf("split parts sum to %d, want 1000", total)
	}

	resp = doJSON(t, http.MethodDelete, billURL+"/items/"+created.Items[2].ID, created.HostToken, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("delete status = %d, want 204", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodDelete, billURL+"/items/no-such-item", created.HostToken, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("delete missing item status = %d, want 404", resp.StatusCode)
	}
}

func TestSetPaymentAndPaylinks(t *testing.T) {
	ts := newTestServer(t)
	created := createBill(t, ts)
	billURL := ts.URL + "/api/bills/" + created.Bill.ID

	resp := doJSON(t, http.MethodPut, billURL+"/payment", created.HostToken, models.PaymentHandles{
		Venmo:   "new-venmo",
		CashApp: "newcash",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("set payment status = %d, want 204", resp.StatusCode)
	}

	// Alice claims the Pad Thai, then fetches her pay links.
	resp = postJSON(t, billURL+"/claims", "", claimRequest{
		ClaimantName: "Alice",
		ItemIDs:      []string{created.Items[0].ID},
	})
	resp.Body.Close()

	resp, err := http.Get(billURL + "/paylinks?claimant=Alice")
	if err != nil {
		t.Fatalf("paylinks failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("paylinks status = %d, want 200", resp.StatusCode)
	}
	var links paylinksResponse
	decodeBody(t, resp, &links)

	// 1000 + 8% tax + 20% tip.
	if links.Amount != 1280 {
		t.Errorf("amount = %d, want 1280", links.Amount)
	}
	if len(links.Links) != 2 {
		t.Fatalf("got %d links, want 2", len(links.Links))
	}
	for _, l := range links.Links {
		if !strings.Contains(l.URL, "12.80") && l.URL != "" {
			t.Errorf("link %s URL %q does not carry the amount", l.Rail, l.URL)
		}
	}

	resp, err = http.Get(billURL + "/paylinks")
	if err != nil {
		t.Fatalf("paylinks failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("missing claimant status = %d, want 400", resp.StatusCode)
	}
}

func TestScanUnavailableWhenUnconfigured(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/scan", "", scanRequest{Image: "aGVsbG8="})
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}
}

func TestEventStreamDeliversClaims(t *testing.T) {
	ts := newTestServer(t)
	created := createBill(t, ts)
	billURL := ts.URL + "/api/bills/" + created.Bill.ID

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, billURL+"/events", nil)
	if err != nil {
		t.Fatalf("Failed to build request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("events request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("events status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q, want text/event-stream", ct)
	}

	// Trigger a claim once the stream is open.
	claimResp := postJSON(t, billURL+"/claims", "", claimRequest{
		ClaimantName: "Alice",
		ItemIDs:      []string{created.Items[0].ID},
	})
	claimResp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	var data string
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "data: ") {
			data = strings.TrimPrefix(line, "data: ")
			break
		}
	}
	if data == "" {
		t.Fatalf("no data line before stream ended: %v", scanner.Err())
	}

	var delta models.Delta
	if err := json.Unmarshal([]byte(data), &delta); err != nil {
		t.Fatalf("Failed to decode delta %q: %v", data, err)
	}
	if delta.ItemID != created.Items[0].ID || delta.ClaimedBy != "Alice" {
		t.Errorf("delta = %+v, want item %s claimed by Alice", delta, created.Items[0].ID)
	}
}

func TestEventStreamUnknownBill(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/bills/no-such-bill/events")
	if err != nil {
		t.Fatalf("events request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("healthz failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestSettlementReflectsClaims(t *testing.T) {
	ts := newTestServer(t)
	created := createBill(t, ts)
	billURL := ts.URL + "/api/bills/" + created.Bill.ID

	for i, name := range []string{"Alice", "", "Bob"} {
		if name == "" {
			continue // item 1 is the host's
		}
		resp := postJSON(t, billURL+"/claims", "", claimRequest{
			ClaimantName: name,
			ItemIDs:      []string{created.Items[i].ID},
		})
		resp.Body.Close()
	}

	resp, err := http.Get(billURL)
	if err != nil {
		t.Fatalf("GetBill failed: %v", err)
	}
	var body billResponse
	decodeBody(t, resp, &body)

	if body.Settlement.Unclaimed.Subtotal != 0 {
		t.Errorf("unclaimed subtotal = %d, want 0", body.Settlement.Unclaimed.Subtotal)
	}
	if !body.Settlement.Settled {
		t.Error("expected bill to be settled once every guest item is claimed")
	}
	if len(body.Settlement.Guests) != 2 {
		t.Errorf("got %d guests, want 2", len(body.Settlement.Guests))
	}
}
