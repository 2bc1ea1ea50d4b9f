package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/diboas/diboas-go/internal/model"
)

// querier covers the read methods shared by *sql.DB and *sql.Tx.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// GetBalance loads a user's balance buckets and per-asset breakdown. A user
// with no stored balance gets an empty one rather than an error: a fresh
// wallet simply holds nothing.
func (s *SQLiteStorage) GetBalance(ctx context.Context, userID string) (*model.Balance, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}
	return s.getBalance(ctx, s.db, userID)
}

func (s *SQLiteStorage) getBalance(ctx context.Context, q querier, userID string) (*model.Balance, error) {
	balance := &model.Balance{
		UserID: userID,
		Assets: make(map[string]model.AssetBalance),
	}

	err := q.QueryRowContext(ctx, `
		SELECT available, invested, strategy, updated_at
		FROM balances WHERE user_id = ?`, userID).
		Scan(&balance.Available, &balance.Invested, &balance.Strategy, &balance.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return balance, nil
		}
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}

	rows, err := q.QueryContext(ctx, `
		SELECT asset, invested_amount, quantity
		FROM balance_assets WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query balance assets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var asset model.AssetBalance
		if err := rows.Scan(&asset.Asset, &asset.InvestedAmount, &asset.Quantity); err != nil {
			return nil, fmt.Errorf("failed to scan balance asset: %w", err)
		}
		balance.Assets[asset.Asset] = asset
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate balance assets: %w", err)
	}

	return balance, nil
}

// SaveBalance upserts a user's balance buckets and asset breakdown.
func (s *SQLiteStorage) SaveBalance(ctx context.Context, balance *model.Balance) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateBalance(balance); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.saveBalanceTx(ctx, tx, balance); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *SQLiteStorage) saveBalanceTx(ctx context.Context, tx *sql.Tx, balance *model.Balance) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO balances (user_id, available, invested, strategy, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(user_id) DO UPDATE SET
			available = excluded.available,
			invested = excluded.invested,
			strategy = excluded.strategy,
			updated_at = CURRENT_TIMESTAMP`,
		balance.UserID, balance.Available, balance.Invested, balance.Strategy)
	if err != nil {
		return fmt.Errorf("failed to save balance: %w", err)
	}

	// Replace the asset breakdown wholesale; it is small and derived.
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM balance_assets WHERE user_id = ?`, balance.UserID); err != nil {
		return fmt.Errorf("failed to clear balance assets: %w", err)
	}

	for _, asset := range balance.Assets {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO balance_assets (user_id, asset, invested_amount, quantity)
			VALUES (?, ?, ?, ?)`,
			balance.UserID, asset.Asset, asset.InvestedAmount, asset.Quantity); err != nil {
			return fmt.Errorf("failed to save balance asset %s: %w", asset.Asset, err)
		}
	}

	return nil
}

// ApplyTransaction writes a history record and its balance mutation in one
// database transaction, so history and balances can never drift apart.
// Records with a zero amount (failed launches) leave the balance untouched
// but are still written for the audit trail.
func (s *SQLiteStorage) ApplyTransaction(ctx context.Context, record *model.TransactionRecord, balance *model.Balance) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRecord(record); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.saveTransactionTx(ctx, tx, record); err != nil {
		return err
	}

	if balance != nil {
		if err := validateBalance(balance); err != nil {
			return err
		}
		if err := s.saveBalanceTx(ctx, tx, balance); err != nil {
			return err
		}
	}

	return tx.Commit()
}
