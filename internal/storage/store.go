// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"

	"github.com/cheq-app/cheq-backend/internal/models"
	"github.com/cheq-app/cheq-backend/internal/money"
)

// Store is the persistence mirror behind the in-memory ledgers. The ledger
// is authoritative during a session; the store rehydrates it after a restart
// and keeps a durable copy of every committed mutation. A committed claim is
// never rolled back because a Store call failed; callers log and retry.
//
// The abstraction allows swapping storage backends (SQLite, PostgreSQL, ...)
// without changing the service layer.
type Store interface {
	// CreateBill persists a new bill header and its initial items.
	CreateBill(ctx context.Context, bill *models.Bill, items []models.Item) error

	// GetBill retrieves a bill header and its items ordered by
	// OrderIndex. Returns models.ErrNotFound if the bill does not exist.
	GetBill(ctx context.Context, billID string) (*models.Bill, []models.Item, error)

	// ReplaceItems swaps the full item set for a bill. Used to mirror
	// host edits (add/remove/split), which restructure the list.
	ReplaceItems(ctx context.Context, billID string, items []models.Item) error

	// ClaimItems mirrors granted claims: each id is updated to claimant
	// only where claimed_by is still empty, matching the ledger's
	// compare-and-set.
	ClaimItems(ctx context.Context, billID string, itemIDs []string, claimant string) error

	// SetPaymentHandles updates the bill's payment rail handles.
	SetPaymentHandles(ctx context.Context, billID string, handles models.PaymentHandles) error

	// SetAbsoluteAmounts records tax/tip overrides supplied after
	// creation (e.g. from a receipt scan). Nil leaves a field unchanged.
	SetAbsoluteAmounts(ctx context.Context, billID string, tax, tip *money.Cents) error

	// Close releases any resources held by the store.
	Close() error
}
