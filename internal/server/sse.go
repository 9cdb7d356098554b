package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

const heartbeatInterval = 15 * time.Second

// handleEvents streams claim deltas for a bill as server-sent events. The
// stream is best-effort: a client that falls behind is evicted by the broker
// and must reconnect and refetch the bill to resynchronize.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	billID := chi.URLParam(r, "billID")
	if _, _, _, err := s.svc.GetBill(r.Context(), billID); err != nil {
		serviceError(w, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		errorResponse(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	// Subscribe before the 200 goes out so no delta can slip between the
	// client seeing the stream open and the subscription existing.
	sub := s.broker.Subscribe(billID)
	defer s.broker.Unsubscribe(sub)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	sseSubscribers.Inc()
	defer sseSubscribers.Dec()

	slog.Info("delta stream opened", "bill_id", billID, "remote", r.RemoteAddr)
	defer slog.Info("delta stream closed", "bill_id", billID, "remote", r.RemoteAddr)

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case delta, ok := <-sub.C:
			if !ok {
				// Evicted for falling behind.
				return
			}
			data, err := json.Marshal(delta)
			if err != nil {
				slog.Error("failed to encode delta", "error", err)
				continue
			}
			fmt.Fprintf(w, "event: claim\ndata: %s\n\n", data)
			flusher.Flush()
		case <-heartbeat.C:
			fmt.Fprint(w, ": heartbeat\n\n")
			flusher.Flush()
		}
	}
}
