package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/diboas/diboas-go/internal/common"
	"github.com/diboas/diboas-go/internal/model"
)

// SaveSession upserts a wizard session. The wizard saves after every
// transition so an interrupted flow resumes exactly where it stopped.
func (s *SQLiteStorage) SaveSession(ctx context.Context, session *model.StrategySession) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if session == nil {
		return fmt.Errorf("%w: session", ErrNilParameter)
	}
	if session.ID == "" || session.UserID == "" || session.FlowKind == "" {
		return fmt.Errorf("%w: missing identifiers", ErrInvalidSession)
	}

	config, err := json.Marshal(session.Config)
	if err != nil {
		return fmt.Errorf("failed to marshal session config: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO wizard_sessions (id, user_id, flow_kind, step, config, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT(user_id, flow_kind) DO UPDATE SET
			step = excluded.step,
			config = excluded.config,
			updated_at = CURRENT_TIMESTAMP`,
		session.ID, session.UserID, session.FlowKind, session.Step, string(config))
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	return nil
}

// GetSession loads the persisted wizard session for a user and flow kind.
func (s *SQLiteStorage) GetSession(ctx context.Context, userID, flowKind string) (*model.StrategySession, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}
	if err := validateString(flowKind, "flowKind"); err != nil {
		return nil, err
	}

	var session model.StrategySession
	var config string

	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, flow_kind, step, config, created_at, updated_at
		FROM wizard_sessions WHERE user_id = ? AND flow_kind = ?`,
		userID, flowKind).
		Scan(&session.ID, &session.UserID, &session.FlowKind, &session.Step,
			&config, &session.CreatedAt, &session.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: session for %s/%s", common.ErrNotFound, userID, flowKind)
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	if err := json.Unmarshal([]byte(config), &session.Config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session config: %w", err)
	}

	return &session, nil
}

// DeleteSession removes a persisted wizard session. Deleting a session that
// does not exist is not an error.
func (s *SQLiteStorage) DeleteSession(ctx context.Context, userID, flowKind string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(userID, "userID"); err != nil {
		return err
	}
	if err := validateString(flowKind, "flowKind"); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx,
		`DELETE FROM wizard_sessions WHERE user_id = ? AND flow_kind = ?`,
		userID, flowKind)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	return nil
}
