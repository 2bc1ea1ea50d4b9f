package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/diboas/diboas-go/internal/common"
	"github.com/diboas/diboas-go/internal/model"
	"github.com/diboas/diboas-go/internal/service"
)

// SaveTransaction appends a record to the transaction history. History is
// append-only: records are never updated after the fact.
func (s *SQLiteStorage) SaveTransaction(ctx context.Context, record *model.TransactionRecord) error {
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

	return tx.Commit()
}

func (s *SQLiteStorage) saveTransactionTx(ctx context.Context, tx *sql.Tx, record *model.TransactionRecord) error {
	if record.Hash == "" {
		record.Hash = record.GenerateHash()
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO transactions (
			id, hash, user_id, type, status, amount, investment_amount,
			fee_total, asset, chain, payment_method, recipient, tx_hash,
			explorer_link, description, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.Hash,
		record.UserID,
		string(record.Type),
		string(record.Status),
		record.Amount,
		record.InvestmentAmount,
		record.FeeTotal,
		record.Asset,
		string(record.Chain),
		string(record.PaymentMethod),
		record.Recipient,
		record.TxHash,
		record.ExplorerLink,
		record.Description,
		record.CreatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("%w: transaction %s", common.ErrDuplicateEntry, record.ID)
		}
		return fmt.Errorf("failed to save transaction: %w", err)
	}
	return nil
}

// GetTransactionByID retrieves a single history record.
func (s *SQLiteStorage) GetTransactionByID(ctx context.Context, id string) (*model.TransactionRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, hash, user_id, type, status, amount, investment_amount,
		       fee_total, asset, chain, payment_method, recipient, tx_hash,
		       explorer_link, description, created_at
		FROM transactions WHERE id = ?`, id)

	record, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: transaction %s", common.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return record, nil
}

// GetTransactions returns a user's history, newest first, honoring the filter.
func (s *SQLiteStorage) GetTransactions(ctx context.Context, userID string, filter service.TransactionFilter) ([]model.TransactionRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}

	query := `
		SELECT id, hash, user_id, type, status, amount, investment_amount,
		       fee_total, asset, chain, payment_method, recipient, tx_hash,
		       explorer_link, description, created_at
		FROM transactions WHERE user_id = ?`
	args := []any{userID}

	if filter.Type != "" {
		query += " AND type = ?"
		args = append(args, string(filter.Type))
	}
	if filter.StartDate != nil {
		query += " AND created_at >= ?"
		args = append(args, *filter.StartDate)
	}
	if filter.EndDate != nil {
		query += " AND created_at <= ?"
		args = append(args, *filter.EndDate)
	}

	query += " ORDER BY created_at DESC"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []model.TransactionRecord
	for rows.Next() {
		record, scanErr := scanTransaction(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", scanErr)
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}

	return records, nil
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*model.TransactionRecord, error) {
	var record model.TransactionRecord
	var txType, status, chain, method string
	var asset, recipient, txHash, explorerLink, description sql.NullString

	err := row.Scan(
		&record.ID,
		&record.Hash,
		&record.UserID,
		&txType,
		&status,
		&record.Amount,
		&record.InvestmentAmount,
		&record.FeeTotal,
		&asset,
		&chain,
		&method,
		&recipient,
		&txHash,
		&explorerLink,
		&description,
		&record.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	record.Type = model.TransactionType(txType)
	record.Status = model.RecordStatus(status)
	record.Chain = model.Chain(chain)
	record.PaymentMethod = model.PaymentMethod(method)
	record.Asset = asset.String
	record.Recipient = recipient.String
	record.TxHash = txHash.String
	record.ExplorerLink = explorerLink.String
	record.Description = description.String

	return &record, nil
}
