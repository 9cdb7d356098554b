package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/cheq-app/cheq-backend/internal/auth"
	"github.com/cheq-app/cheq-backend/internal/config"
	"github.com/cheq-app/cheq-backend/internal/ledger"
	"github.com/cheq-app/cheq-backend/internal/notify"
	"github.com/cheq-app/cheq-backend/internal/ocr"
	"github.com/cheq-app/cheq-backend/internal/server"
	"github.com/cheq-app/cheq-backend/internal/service"
	"github.com/cheq-app/cheq-backend/internal/storage/sqlite"
	"github.com/cheq-app/cheq-backend/pkg/logging"
)

func main() {
	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logging.SetupWithLevel(logging.ParseLevel(cfg.LogLevel))

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("Storage initialized", "database", cfg.DBPath)

	scanner := ocr.NewClient(cfg.OCRBaseURL, cfg.OCRToken)
	if scanner.Enabled() {
		slog.Info("Receipt OCR enabled", "url", cfg.OCRBaseURL)
	} else {
		slog.Info("Receipt OCR disabled; scan endpoints will report unavailable")
	}

	broker := notify.NewBroker()
	tokens := auth.NewHostTokenManager(cfg.HostTokenSecret, cfg.HostTokenTTL)
	svc := service.NewBillService(store, ledger.NewRegistry(store, broker), scanner, tokens)
	srv := server.New(svc, broker, tokens)

	// h2c lets browsers multiplex the delta stream alongside API calls over
	// HTTP/2 without TLS termination in front.
	handler := h2c.NewHandler(srv.Router(), &http2.Server{})

	addr := fmt.Sprintf(":%d", cfg.Port)
	slog.Info("Server starting", "address", addr, "url", fmt.Sprintf("http://localhost%s", addr))
	if err := http.ListenAndServe(addr, handler); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}
