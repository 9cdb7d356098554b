// Package server exposes the bill engine over JSON-over-HTTP plus a
// server-sent-events delta stream.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cheq-app/cheq-backend/internal/auth"
	"github.com/cheq-app/cheq-backend/internal/notify"
	"github.com/cheq-app/cheq-backend/internal/service"
)

type Server struct {
	svc    *service.BillService
	broker *notify.Broker
	tokens *auth.HostTokenManager
}

func New(svc *service.BillService, broker *notify.Broker, tokens *auth.HostTokenManager) *Server {
	return &Server{svc: svc, broker: broker, tokens: tokens}
}

// Router builds the full route table. Host-only mutations sit behind the
// host token minted at bill creation; everything else is open to guests.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(requestLogger)
	r.Use(corsMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/scan", s.handleScan)
		r.Post("/bills", s.handleCreateBill)

		r.Route("/bills/{billID}", func(r chi.Router) {
			r.Get("/", s.handleGetBill)
			r.Post("/claims", s.handleClaim)
			r.Get("/events", s.handleEvents)
			r.Get("/paylinks", s.handlePaylinks)

			r.Group(func(r chi.Router) {
				r.Use(s.requireHost)
				r.Post("/items", s.handleAddItem)
				r.Delete("/items/{itemID}", s.handleRemoveItem)
				r.Post("/items/{itemID}/split", s.handleSplitItem)
				r.Put("/payment", s.handleSetPayment)
				r.Post("/scan", s.handleIngestScan)
			})
		})
	})

	return r
}
