// Package config parses server configuration from flags and environment
// variables. Flags win over env vars; a .env file, when present, seeds the
// environment for local development.
package config

import (
	"errors"
	"flag"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port            int
	DBPath          string
	HostTokenSecret string
	HostTokenTTL    time.Duration
	OCRBaseURL      string
	OCRToken        string
	LogLevel        string
}

const defaultHostTokenTTL = 24 * time.Hour

// Parse validates flags and fills in env-var fallbacks. args excludes the
// program name, as with flag.FlagSet.Parse.
func Parse(args []string) (Config, error) {
	// Best effort; absence of a .env file is the normal production case.
	_ = godotenv.Load()

	var cfg Config
	fs := flag.NewFlagSet("cheq-server", flag.ContinueOnError)

	fs.IntVar(&cfg.Port, "p", 0, "Server port")
	fs.StringVar(&cfg.DBPath, "d", "", "SQLite database path")
	fs.StringVar(&cfg.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")

	// Secrets (prefer env variables, but allow CLI for dev)
	fs.StringVar(&cfg.HostTokenSecret, "host-secret", "", "Host token signing secret (prefer env)")
	fs.StringVar(&cfg.OCRBaseURL, "ocr-url", "", "Receipt OCR service base URL (prefer env)")
	fs.StringVar(&cfg.OCRToken, "ocr-token", "", "Receipt OCR service token (prefer env)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if cfg.Port == 0 {
		if portStr := os.Getenv("PORT"); portStr != "" {
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return Config{}, errors.New("invalid PORT env variable")
			}
			cfg.Port = port
		} else {
			cfg.Port = 8080
		}
	}

	if cfg.DBPath == "" {
		cfg.DBPath = os.Getenv("DB_PATH")
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "./data/bills.db"
	}

	if cfg.HostTokenSecret == "" {
		cfg.HostTokenSecret = os.Getenv("HOST_TOKEN_SECRET")
	}
	if cfg.HostTokenSecret == "" {
		return Config{}, errors.New("HOST_TOKEN_SECRET required")
	}

	cfg.HostTokenTTL = defaultHostTokenTTL
	if ttlStr := os.Getenv("HOST_TOKEN_TTL"); ttlStr != "" {
		ttl, err := time.ParseDuration(ttlStr)
		if err != nil {
			return Config{}, errors.New("invalid HOST_TOKEN_TTL env variable")
		}
		cfg.HostTokenTTL = ttl
	}

	// OCR is optional; the scan endpoints report unavailable when unset.
	if cfg.OCRBaseURL == "" {
		cfg.OCRBaseURL = os.Getenv("OCR_URL")
	}
	if cfg.OCRToken == "" {
		cfg.OCRToken = os.Getenv("OCR_TOKEN")
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = os.Getenv("LOG_LEVEL")
	}

	return cfg, nil
}
