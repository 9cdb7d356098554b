// Package ocr talks to the external receipt-extraction service.
//
// The service receives a base64-encoded receipt image and answers with a
// flat list of {name, price} line items plus optional receipt metadata. The
// core never performs extraction itself; extraction results are just an
// alternate source of item additions, and empty or partial results must not
// fail the rest of the flow.
package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cheq-app/cheq-backend/internal/models"
	"github.com/cheq-app/cheq-backend/internal/money"
)

// ScannedItem is one extracted line item, price already in cents.
type ScannedItem struct {
	Name  string      `json:"name"`
	Price money.Cents `json:"price_cents"`
}

// Meta is optional receipt-level metadata the extractor may return.
type Meta struct {
	Store string       `json:"store,omitempty"`
	Date  string       `json:"date,omitempty"`
	Tax   *money.Cents `json:"tax_cents,omitempty"`
	Tip   *money.Cents `json:"tip_cents,omitempty"`
}

// ScanResult is the parsed extraction outcome. Items may be empty.
type ScanResult struct {
	Items []ScannedItem `json:"items"`
	Meta  Meta          `json:"meta"`
}

// Client calls the extraction service. A nil or unconfigured client reports
// models.ErrUnavailable rather than failing requests downstream.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewClient builds a client for the service at baseURL. An empty baseURL
// yields a disabled client.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// Enabled reports whether a service URL is configured.
func (c *Client) Enabled() bool {
	return c != nil && c.baseURL != ""
}

// wire mirrors the extractor's JSON shape: prices are decimal major units.
type wire struct {
	Items []struct {
		Name  string  `json:"name"`
		Price float64 `json:"price"`
	} `json:"items"`
	Meta struct {
		Store string   `json:"store"`
		Date  string   `json:"date"`
		Tax   *float64 `json:"tax"`
		Tip   *float64 `json:"tip"`
	} `json:"meta"`
}

// Scan submits a base64-encoded image and returns the extracted items.
// Items with no name get a placeholder; items with non-positive prices are
// dropped, matching what a receipt line with no amount is worth.
func (c *Client) Scan(ctx context.Context, imageBase64 string) (ScanResult, error) {
	if !c.Enabled() {
		return ScanResult{}, fmt.Errorf("%w: no receipt scanner configured", models.ErrUnavailable)
	}
	if imageBase64 == "" {
		return ScanResult{}, fmt.Errorf("%w: image required", models.ErrInvalidInput)
	}

	payload, err := json.Marshal(map[string]string{"image": imageBase64})
	if err != nil {
		return ScanResult{}, fmt.Errorf("failed to marshal scan request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return ScanResult{}, fmt.Errorf("failed to create scan request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return ScanResult{}, fmt.Errorf("%w: scan request failed: %v", models.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return ScanResult{}, fmt.Errorf("failed to read scan response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return ScanResult{}, fmt.Errorf("%w: scanner returned status %d", models.ErrUnavailable, resp.StatusCode)
	}

	var w wire
	if err := json.Unmarshal(body, &w); err != nil {
		return ScanResult{}, fmt.Errorf("failed to parse scan response: %w", err)
	}

	result := ScanResult{
		Meta: Meta{Store: w.Meta.Store, Date: w.Meta.Date},
	}
	if w.Meta.Tax != nil {
		v := money.FromFloat(*w.Meta.Tax)
		result.Meta.Tax = &v
	}
	if w.Meta.Tip != nil {
		v := money.FromFloat(*w.Meta.Tip)
		result.Meta.Tip = &v
	}
	for _, item := range w.Items {
		price := money.FromFloat(item.Price)
		if price <= 0 {
			continue
		}
		name := strings.TrimSpace(item.Name)
		if name == "" {
			name = "Item"
		}
		result.Items = append(result.Items, ScannedItem{Name: name, Price: price})
	}
	return result, nil
}
