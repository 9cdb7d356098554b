package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cheq-app/cheq-backend/internal/auth"
	"github.com/cheq-app/cheq-backend/internal/models"
)

// requestLogger logs request start and completion with duration.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		slog.Info("request started",
			"method", r.Method,
			"path", r.URL.Path,
			"remote", r.RemoteAddr,
		)

		next.ServeHTTP(w, r)

		slog.Info("request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// corsMiddleware allows cross-origin requests from the frontend.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// requireHost validates the Bearer host token and checks that it was
// minted for the bill in the URL.
func (s *Server) requireHost(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			errorResponse(w, http.StatusUnauthorized, "missing host token")
			return
		}
		token := strings.TrimPrefix(header, "Bearer ")
		claims, err := s.tokens.Validate(token)
		if err != nil {
			errorResponse(w, http.StatusUnauthorized, "invalid host token")
			return
		}
		if claims.BillID != chi.URLParam(r, "billID") {
			errorResponse(w, http.StatusUnauthorized, "token is for a different bill")
			return
		}

		next.ServeHTTP(w, r)
	})
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// jsonResponse writes a JSON response.
func jsonResponse(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

// errorResponse writes a JSON error response.
func errorResponse(w http.ResponseWriter, statusCode int, message string) {
	jsonResponse(w, statusCode, errorBody{
		Error:   http.StatusText(statusCode),
		Message: message,
	})
}

// serviceError maps service sentinels to HTTP statuses.
func serviceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrInvalidInput):
		errorResponse(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrNotFound):
		errorResponse(w, http.StatusNotFound, err.Error())
	case errors.Is(err, models.ErrUnauthorized), errors.Is(err, auth.ErrInvalidToken):
		errorResponse(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, models.ErrUnavailable):
		errorResponse(w, http.StatusServiceUnavailable, err.Error())
	default:
		slog.Error("internal error", "error", err)
		errorResponse(w, http.StatusInternalServerError, "internal error")
	}
}

// parseJSONBody parses the request body into the given struct.
func parseJSONBody(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
