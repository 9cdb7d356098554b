package server

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/cheq-app/cheq-backend/internal/models"
	"github.com/cheq-app/cheq-backend/internal/money"
	"github.com/cheq-app/cheq-backend/internal/paylink"
	"github.com/cheq-app/cheq-backend/internal/service"
	"github.com/cheq-app/cheq-backend/internal/settlement"
)

type billResponse struct {
	Bill       *models.Bill       `json:"bill"`
	Items      []models.Item      `json:"items"`
	Settlement settlement.Summary `json:"settlement"`
}

type claimRequest struct {
	ClaimantName string   `json:"claimant_name"`
	ItemIDs      []string `json:"item_ids"`
}

type addItemRequest struct {
	Name  string      `json:"name"`
	Price money.Cents `json:"price_cents"`
}

type splitRequest struct {
	Ways int `json:"ways"`
}

type scanRequest struct {
	Image string `json:"image"`
}

type paylinksResponse struct {
	Claimant string         `json:"claimant"`
	Amount   money.Cents    `json:"amount_cents"`
	Links    []paylink.Link `json:"links"`
}

func (s *Server) handleCreateBill(w http.ResponseWriter, r *http.Request) {
	var req service.CreateBillRequest
	if err := parseJSONBody(r, &req); err != nil {
		errorResponse(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	result, err := s.svc.CreateBill(r.Context(), &req)
	if err != nil {
		serviceError(w, err)
		return
	}

	billsCreated.Inc()
	jsonResponse(w, http.StatusCreated, result)
}

func (s *Server) handleGetBill(w http.ResponseWriter, r *http.Request) {
	bill, items, summary, err := s.svc.GetBill(r.Context(), chi.URLParam(r, "billID"))
	if err != nil {
		serviceError(w, err)
		return
	}

	jsonResponse(w, http.StatusOK, billResponse{Bill: bill, Items: items, Settlement: summary})
}

// handleClaim grants whatever subset of the requested items is still
// unclaimed. Losing a race is not an error; the rejected IDs come back in a
// 200 so the client can refresh and re-pick.
func (s *Server) handleClaim(w http.ResponseWriter, r *http.Request) {
	var req claimRequest
	if err := parseJSONBody(r, &req); err != nil {
		errorResponse(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	result, err := s.svc.Claim(r.Context(), chi.URLParam(r, "billID"), req.ItemIDs, req.ClaimantName)
	if err != nil {
		serviceError(w, err)
		return
	}

	claimsGranted.Add(float64(len(result.Claimed)))
	claimsRejected.Add(float64(len(result.Rejected)))
	jsonResponse(w, http.StatusOK, result)
}

func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := parseJSONBody(r, &req); err != nil {
		errorResponse(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	item, err := s.svc.AddItem(r.Context(), chi.URLParam(r, "billID"), req.Name, req.Price)
	if err != nil {
		serviceError(w, err)
		return
	}

	jsonResponse(w, http.StatusCreated, item)
}

func (s *Server) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	err := s.svc.RemoveItem(r.Context(), chi.URLParam(r, "billID"), chi.URLParam(r, "itemID"))
	if err != nil {
		serviceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSplitItem(w http.ResponseWriter, r *http.Request) {
	var req splitRequest
	if err := parseJSONBody(r, &req); err != nil {
		errorResponse(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	parts, err := s.svc.SplitItem(r.Context(), chi.URLParam(r, "billID"), chi.URLParam(r, "itemID"), req.Ways)
	if err != nil {
		serviceError(w, err)
		return
	}

	jsonResponse(w, http.StatusOK, parts)
}

func (s *Server) handleSetPayment(w http.ResponseWriter, r *http.Request) {
	var handles models.PaymentHandles
	if err := parseJSONBody(r, &handles); err != nil {
		errorResponse(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := s.svc.SetPaymentHandles(r.Context(), chi.URLParam(r, "billID"), handles); err != nil {
		serviceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleScan extracts line items from a receipt image before any bill
// exists, so the host can review them on the creation screen.
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := parseJSONBody(r, &req); err != nil {
		errorResponse(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	result, err := s.svc.ScanReceipt(r.Context(), req.Image)
	if err != nil {
		serviceError(w, err)
		return
	}

	jsonResponse(w, http.StatusOK, result)
}

func (s *Server) handleIngestScan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := parseJSONBody(r, &req); err != nil {
		errorResponse(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	items, err := s.svc.IngestScan(r.Context(), chi.URLParam(r, "billID"), req.Image)
	if err != nil {
		serviceError(w, err)
		return
	}

	scanIngests.Inc()
	jsonResponse(w, http.StatusOK, items)
}

// handlePaylinks returns deep links for paying the host a claimant's share.
func (s *Server) handlePaylinks(w http.ResponseWriter, r *http.Request) {
	claimant := strings.TrimSpace(r.URL.Query().Get("claimant"))
	if claimant == "" {
		errorResponse(w, http.StatusBadRequest, "claimant query parameter is required")
		return
	}

	bill, items, _, err := s.svc.GetBill(r.Context(), chi.URLParam(r, "billID"))
	if err != nil {
		serviceError(w, err)
		return
	}

	share := settlement.Party(bill, items, claimant)
	links := paylink.Links(bill.Payment, share.Total, "Bill "+bill.ID)
	jsonResponse(w, http.StatusOK, paylinksResponse{
		Claimant: claimant,
		Amount:   share.Total,
		Links:    links,
	})
}
