// Package service orchestrates the ledger, storage mirror, and notifier.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cheq-app/cheq-backend/internal/auth"
	"github.com/cheq-app/cheq-backend/internal/ledger"
	"github.com/cheq-app/cheq-backend/internal/models"
	"github.com/cheq-app/cheq-backend/internal/money"
	"github.com/cheq-app/cheq-backend/internal/ocr"
	"github.com/cheq-app/cheq-backend/internal/settlement"
	"github.com/cheq-app/cheq-backend/internal/storage"
)

// BillService wires the per-bill ledgers to the storage mirror. The ledger
// is authoritative and publishes its own deltas at the commit point: once a
// mutation commits there, a failing mirror write is logged and retried on
// the next edit, never rolled back.
type BillService struct {
	store   storage.Store
	ledgers *ledger.Registry
	scanner *ocr.Client
	tokens  *auth.HostTokenManager
}

// NewBillService creates a BillService with the given collaborators.
func NewBillService(store storage.Store, ledgers *ledger.Registry, scanner *ocr.Client, tokens *auth.HostTokenManager) *BillService {
	return &BillService{
		store:   store,
		ledgers: ledgers,
		scanner: scanner,
		tokens:  tokens,
	}
}

// NewItem is one line item supplied at bill creation. ClaimedByHost marks
// items the host kept for themselves; they are inserted already claimed.
type NewItem struct {
	Name          string      `json:"name"`
	Price         money.Cents `json:"price_cents"`
	ClaimedByHost bool        `json:"claimed_by_host,omitempty"`
}

// CreateBillRequest carries everything needed to open a bill session.
type CreateBillRequest struct {
	Items       []NewItem             `json:"items"`
	TaxRate     float64               `json:"tax_rate"`
	TipRate     float64               `json:"tip_rate"`
	TaxAbsolute *money.Cents          `json:"tax_absolute_cents,omitempty"`
	TipAbsolute *money.Cents          `json:"tip_absolute_cents,omitempty"`
	Payment     models.PaymentHandles `json:"payment"`
}

// CreateBillResult is the creation outcome, including the host token that
// authorizes subsequent host-only operations.
type CreateBillResult struct {
	Bill      *models.Bill  `json:"bill"`
	Items     []models.Item `json:"items"`
	HostToken string        `json:"host_token"`
}

func (r *CreateBillRequest) validate() error {
	if r.TaxRate < 0 || r.TipRate < 0 {
		return fmt.Errorf("%w: tax/tip rates must not be negative", models.ErrInvalidInput)
	}
	if r.TaxAbsolute != nil && *r.TaxAbsolute < 0 {
		return fmt.Errorf("%w: tax override must not be negative", models.ErrInvalidInput)
	}
	if r.TipAbsolute != nil && *r.TipAbsolute < 0 {
		return fmt.Errorf("%w: tip override must not be negative", models.ErrInvalidInput)
	}
	for i, item := range r.Items {
		if strings.TrimSpace(item.Name) == "" {
			return fmt.Errorf("%w: item %d has no name", models.ErrInvalidInput, i)
		}
		if item.Price < 0 {
			return fmt.Errorf("%w: item %d has a negative price", models.ErrInvalidInput, i)
		}
	}
	return nil
}

// CreateBill opens a new bill session and mints its host token.
func (s *BillService) CreateBill(ctx context.Context, req *CreateBillRequest) (*CreateBillResult, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	bill := &models.Bill{
		ID:          uuid.New().String(),
		TaxRate:     req.TaxRate,
		TipRate:     req.TipRate,
		TaxAbsolute: req.TaxAbsolute,
		TipAbsolute: req.TipAbsolute,
		Payment:     req.Payment,
		CreatedAt:   time.Now().Unix(),
	}

	items := make([]models.Item, len(req.Items))
	for i, in := range req.Items {
		items[i] = models.Item{
			ID:         uuid.New().String(),
			BillID:     bill.ID,
			Name:       strings.TrimSpace(in.Name),
			Price:      in.Price,
			OrderIndex: i,
		}
		if in.ClaimedByHost {
			items[i].ClaimedBy = models.HostClaimant
		}
	}

	if err := s.store.CreateBill(ctx, bill, items); err != nil {
		slog.Error("CreateBill failed", "error", err)
		return nil, err
	}
	s.ledgers.Create(bill.ID, items)

	token, err := s.tokens.Generate(bill.ID)
	if err != nil {
		slog.Error("host token generation failed", "bill_id", bill.ID, "error", err)
		return nil, err
	}

	slog.Info("bill created", "bill_id", bill.ID, "items", len(items))
	return &CreateBillResult{Bill: bill, Items: items, HostToken: token}, nil
}

// GetBill returns the bill header, the current ordered snapshot, and the
// settlement summary derived from it.
func (s *BillService) GetBill(ctx context.Context, billID string) (*models.Bill, []models.Item, settlement.Summary, error) {
	bill, _, err := s.store.GetBill(ctx, billID)
	if err != nil {
		return nil, nil, settlement.Summary{}, err
	}

	l, err := s.ledgers.Get(ctx, billID)
	if err != nil {
		return nil, nil, settlement.Summary{}, err
	}
	items := l.Snapshot()

	return bill, items, settlement.Summarize(bill, items), nil
}

// Claim submits a claim attempt. Partial success is normal: ids lost to an
// earlier claimant come back in Rejected, and the caller should refresh its
// snapshot to show the guest what was lost.
func (s *BillService) Claim(ctx context.Context, billID string, itemIDs []string, claimant string) (models.ClaimResult, error) {
	l, err := s.ledgers.Get(ctx, billID)
	if err != nil {
		return models.ClaimResult{}, err
	}

	result, err := l.TryClaim(itemIDs, claimant)
	if err != nil {
		return models.ClaimResult{}, err
	}

	if len(result.Claimed) > 0 {
		// Mirror failure does not undo the claim; the ledger committed.
		if err := s.store.ClaimItems(ctx, billID, result.Claimed, strings.TrimSpace(claimant)); err != nil {
			slog.Error("claim mirror failed", "bill_id", billID, "error", err)
		}
	}

	slog.Info("claim processed",
		"bill_id", billID,
		"claimant", claimant,
		"claimed", len(result.Claimed),
		"rejected", len(result.Rejected),
	)
	return result, nil
}

// AddItem appends a host-added item to the bill.
func (s *BillService) AddItem(ctx context.Context, billID, name string, price money.Cents) (models.Item, error) {
	l, err := s.ledgers.Get(ctx, billID)
	if err != nil {
		return models.Item{}, err
	}

	item, err := l.AddItem(name, price)
	if err != nil {
		return models.Item{}, err
	}
	s.mirror(ctx, billID, l)
	return item, nil
}

// RemoveItem deletes an item. A claim on it is discarded and broadcast.
func (s *BillService) RemoveItem(ctx context.Context, billID, itemID string) error {
	l, err := s.ledgers.Get(ctx, billID)
	if err != nil {
		return err
	}

	if err := l.RemoveItem(itemID); err != nil {
		return err
	}
	s.mirror(ctx, billID, l)
	return nil
}

// SplitItem replaces one item with ways equal parts. A claim on the
// original is discarded and broadcast.
func (s *BillService) SplitItem(ctx context.Context, billID, itemID string, ways int) ([]models.Item, error) {
	l, err := s.ledgers.Get(ctx, billID)
	if err != nil {
		return nil, err
	}

	parts, err := l.SplitItem(itemID, ways)
	if err != nil {
		return nil, err
	}
	s.mirror(ctx, billID, l)
	return parts, nil
}

// SetPaymentHandles updates the bill's payment destinations.
func (s *BillService) SetPaymentHandles(ctx context.Context, billID string, handles models.PaymentHandles) error {
	return s.store.SetPaymentHandles(ctx, billID, handles)
}

// ScanReceipt runs extraction without touching any bill, for the
// scan-then-create flow.
func (s *BillService) ScanReceipt(ctx context.Context, imageBase64 string) (ocr.ScanResult, error) {
	return s.scanner.Scan(ctx, imageBase64)
}

// IngestScan extracts items from a receipt image and adds them to an
// existing bill, recording any tax/tip amounts the receipt carried. Empty
// extraction results are a successful no-op.
func (s *BillService) IngestScan(ctx context.Context, billID, imageBase64 string) ([]models.Item, error) {
	result, err := s.scanner.Scan(ctx, imageBase64)
	if err != nil {
		return nil, err
	}

	l, err := s.ledgers.Get(ctx, billID)
	if err != nil {
		return nil, err
	}

	added := make([]models.Item, 0, len(result.Items))
	for _, in := range result.Items {
		item, err := l.AddItem(in.Name, in.Price)
		if err != nil {
			slog.Warn("skipping scanned item", "bill_id", billID, "name", in.Name, "error", err)
			continue
		}
		added = append(added, item)
	}
	if len(added) > 0 {
		s.mirror(ctx, billID, l)
	}

	if result.Meta.Tax != nil || result.Meta.Tip != nil {
		if err := s.store.SetAbsoluteAmounts(ctx, billID, result.Meta.Tax, result.Meta.Tip); err != nil {
			slog.Error("recording scanned amounts failed", "bill_id", billID, "error", err)
		}
	}

	slog.Info("scan ingested", "bill_id", billID, "items_added", len(added))
	return added, nil
}

// mirror rewrites the bill's item rows to match the ledger. Best-effort:
// the ledger already committed, so failures are logged and the next edit
// retries implicitly.
func (s *BillService) mirror(ctx context.Context, billID string, l *ledger.Ledger) {
	if err := s.store.ReplaceItems(ctx, billID, l.Snapshot()); err != nil {
		slog.Error("item mirror failed", "bill_id", billID, "error", err)
	}
}
