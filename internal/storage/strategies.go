package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/diboas/diboas-go/internal/common"
	"github.com/diboas/diboas-go/internal/model"
)

// SaveStrategy upserts a strategy position.
func (s *SQLiteStorage) SaveStrategy(ctx context.Context, strategy *model.Strategy) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if strategy == nil {
		return fmt.Errorf("%w: strategy", ErrNilParameter)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.saveStrategyTx(ctx, tx, strategy); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *SQLiteStorage) saveStrategyTx(ctx context.Context, tx *sql.Tx, strategy *model.Strategy) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO strategies (
			id, user_id, name, template_id, protocol, chain, status,
			invested_amount, current_value, apy, created_at, stopped_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			invested_amount = excluded.invested_amount,
			current_value = excluded.current_value,
			apy = excluded.apy,
			stopped_at = excluded.stopped_at`,
		strategy.ID,
		strategy.UserID,
		strategy.Name,
		strategy.TemplateID,
		strategy.Protocol,
		string(strategy.Chain),
		string(strategy.Status),
		strategy.InvestedAmount,
		strategy.CurrentValue,
		strategy.APY,
		strategy.CreatedAt,
		strategy.StoppedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save strategy: %w", err)
	}
	return nil
}

// GetStrategy retrieves a strategy position by ID.
func (s *SQLiteStorage) GetStrategy(ctx context.Context, id string) (*model.Strategy, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, template_id, protocol, chain, status,
		       invested_amount, current_value, apy, created_at, stopped_at
		FROM strategies WHERE id = ?`, id)

	strategy, err := scanStrategy(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: strategy %s", common.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get strategy: %w", err)
	}
	return strategy, nil
}

// GetStrategiesByUser returns all of a user's strategy positions, newest first.
func (s *SQLiteStorage) GetStrategiesByUser(ctx context.Context, userID string) ([]model.Strategy, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, name, template_id, protocol, chain, status,
		       invested_amount, current_value, apy, created_at, stopped_at
		FROM strategies WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query strategies: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var strategies []model.Strategy
	for rows.Next() {
		strategy, scanErr := scanStrategy(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan strategy: %w", scanErr)
		}
		strategies = append(strategies, *strategy)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate strategies: %w", err)
	}

	return strategies, nil
}

// UpdateStrategyStatus transitions a strategy position to a new status.
// Moving to stopped also stamps stopped_at.
func (s *SQLiteStorage) UpdateStrategyStatus(ctx context.Context, id string, status model.StrategyStatus) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	var result sql.Result
	var err error
	if status == model.StrategyStopped {
		result, err = s.db.ExecContext(ctx,
			`UPDATE strategies SET status = ?, stopped_at = CURRENT_TIMESTAMP WHERE id = ?`,
			string(status), id)
	} else {
		result, err = s.db.ExecContext(ctx,
			`UPDATE strategies SET status = ? WHERE id = ?`,
			string(status), id)
	}
	if err != nil {
		return fmt.Errorf("failed to update strategy status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: strategy %s", common.ErrNotFound, id)
	}

	return nil
}

func scanStrategy(row rowScanner) (*model.Strategy, error) {
	var strategy model.Strategy
	var chain, status string
	var protocol sql.NullString
	var stoppedAt sql.NullTime

	err := row.Scan(
		&strategy.ID,
		&strategy.UserID,
		&strategy.Name,
		&strategy.TemplateID,
		&protocol,
		&chain,
		&status,
		&strategy.InvestedAmount,
		&strategy.CurrentValue,
		&strategy.APY,
		&strategy.CreatedAt,
		&stoppedAt,
	)
	if err != nil {
		return nil, err
	}

	strategy.Protocol = protocol.String
	strategy.Chain = model.Chain(chain)
	strategy.Status = model.StrategyStatus(status)
	if stoppedAt.Valid {
		strategy.StoppedAt = &stoppedAt.Time
	}

	return &strategy, nil
}
