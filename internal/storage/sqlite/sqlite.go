// Package sqlite provides a SQLite-backed implementation of the
// storage.Store interface.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/cheq-app/cheq-backend/internal/models"
	"github.com/cheq-app/cheq-backend/internal/money"
	"github.com/cheq-app/cheq-backend/internal/storage"
)

// Ensure SQLiteStore implements storage.Store
var _ storage.Store = (*SQLiteStore)(nil)

// SQLiteStore implements storage.Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLiteStore with the given database path.
// It creates the parent directories and runs migrations automatically.
func New(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateBill persists a new bill header and its initial items.
func (s *SQLiteStore) CreateBill(ctx context.Context, bill *models.Bill, items []models.Item) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO bills (id, tax_rate, tip_rate, tax_absolute, tip_absolute, venmo, cashapp, zelle, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		bill.ID, bill.TaxRate, bill.TipRate,
		centsValue(bill.TaxAbsolute), centsValue(bill.TipAbsolute),
		bill.Payment.Venmo, bill.Payment.CashApp, bill.Payment.Zelle,
		bill.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert bill: %w", err)
	}

	if err := insertItems(ctx, tx, bill.ID, items); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetBill retrieves a bill header and its items ordered by order_index.
func (s *SQLiteStore) GetBill(ctx context.Context, billID string) (*models.Bill, []models.Item, error) {
	bill := &models.Bill{}
	var taxAbs, tipAbs sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT id, tax_rate, tip_rate, tax_absolute, tip_absolute, venmo, cashapp, zelle, created_at
		 FROM bills WHERE id = ?`,
		billID,
	).Scan(&bill.ID, &bill.TaxRate, &bill.TipRate, &taxAbs, &tipAbs,
		&bill.Payment.Venmo, &bill.Payment.CashApp, &bill.Payment.Zelle, &bill.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil, fmt.Errorf("%w: bill %s", models.ErrNotFound, billID)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get bill: %w", err)
	}
	if taxAbs.Valid {
		v := money.Cents(taxAbs.Int64)
		bill.TaxAbsolute = &v
	}
	if tipAbs.Valid {
		v := money.Cents(tipAbs.Int64)
		bill.TipAbsolute = &v
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, price_cents, order_index, claimed_by
		 FROM items WHERE bill_id = ? ORDER BY order_index`,
		billID,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get items: %w", err)
	}
	defer rows.Close()

	var items []models.Item
	for rows.Next() {
		item := models.Item{BillID: billID}
		if err := rows.Scan(&item.ID, &item.Name, &item.Price, &item.OrderIndex, &item.ClaimedBy); err != nil {
			return nil, nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to iterate items: %w", err)
	}

	return bill, items, nil
}

// ReplaceItems swaps the full item set for a bill.
func (s *SQLiteStore) ReplaceItems(ctx context.Context, billID string, items []models.Item) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := billExists(ctx, tx, billID); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM items WHERE bill_id = ?", billID); err != nil {
		return fmt.Errorf("failed to clear items: %w", err)
	}
	if err := insertItems(ctx, tx, billID, items); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ClaimItems mirrors granted claims with the same conditional update the
// ledger applied: only rows still unclaimed are written.
func (s *SQLiteStore) ClaimItems(ctx context.Context, billID string, itemIDs []string, claimant string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, id := range itemIDs {
		_, err := tx.ExecContext(ctx,
			"UPDATE items SET claimed_by = ? WHERE bill_id = ? AND id = ? AND claimed_by = ''",
			claimant, billID, id,
		)
		if err != nil {
			return fmt.Errorf("failed to claim item %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// SetPaymentHandles updates the bill's payment rail handles.
func (s *SQLiteStore) SetPaymentHandles(ctx context.Context, billID string, handles models.PaymentHandles) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE bills SET venmo = ?, cashapp = ?, zelle = ? WHERE id = ?",
		handles.Venmo, handles.CashApp, handles.Zelle, billID,
	)
	if err != nil {
		return fmt.Errorf("failed to update payment handles: %w", err)
	}
	return requireRow(res, billID)
}

// SetAbsoluteAmounts records tax/tip overrides. Nil leaves a field unchanged.
func (s *SQLiteStore) SetAbsoluteAmounts(ctx context.Context, billID string, tax, tip *money.Cents) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE bills SET
		   tax_absolute = COALESCE(?, tax_absolute),
		   tip_absolute = COALESCE(?, tip_absolute)
		 WHERE id = ?`,
		centsValue(tax), centsValue(tip), billID,
	)
	if err != nil {
		return fmt.Errorf("failed to update absolute amounts: %w", err)
	}
	return requireRow(res, billID)
}

// insertItems writes item rows inside an open transaction.
func insertItems(ctx context.Context, tx *sql.Tx, billID string, items []models.Item) error {
	for _, item := range items {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO items (id, bill_id, name, price_cents, order_index, claimed_by)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			item.ID, billID, item.Name, item.Price, item.OrderIndex, item.ClaimedBy,
		)
		if err != nil {
			return fmt.Errorf("failed to insert item: %w", err)
		}
	}
	return nil
}

// billExists verifies the bill row inside an open transaction.
func billExists(ctx context.Context, tx *sql.Tx, billID string) error {
	var one int
	err := tx.QueryRowContext(ctx, "SELECT 1 FROM bills WHERE id = ?", billID).Scan(&one)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: bill %s", models.ErrNotFound, billID)
	}
	if err != nil {
		return fmt.Errorf("failed to check bill: %w", err)
	}
	return nil
}

// requireRow converts a zero-row update into ErrNotFound.
func requireRow(res sql.Result, billID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: bill %s", models.ErrNotFound, billID)
	}
	return nil
}

// centsValue converts an optional Cents to a driver-friendly value.
func centsValue(c *money.Cents) interface{} {
	if c == nil {
		return nil
	}
	return int64(*c)
}
