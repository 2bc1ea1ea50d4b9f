// Package storage provides the data persistence layer for the diBoaS core.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/diboas/diboas-go/internal/model"
)

// Validation errors.
var (
	ErrNilContext     = errors.New("context cannot be nil")
	ErrEmptyString    = errors.New("string parameter cannot be empty")
	ErrNilParameter   = errors.New("parameter cannot be nil")
	ErrInvalidRecord  = errors.New("invalid transaction record")
	ErrInvalidBalance = errors.New("invalid balance")
	ErrInvalidSession = errors.New("invalid wizard session")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateRecord validates a transaction record before persistence.
func validateRecord(record *model.TransactionRecord) error {
	if record == nil {
		return fmt.Errorf("%w: record", ErrNilParameter)
	}
	if record.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidRecord)
	}
	if record.UserID == "" {
		return fmt.Errorf("%w: missing user ID", ErrInvalidRecord)
	}
	if !record.Type.IsValid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidRecord, record.Type)
	}
	if record.Status == model.RecordFailed && record.Amount != 0 {
		return fmt.Errorf("%w: failed records must carry a zero amount", ErrInvalidRecord)
	}
	return nil
}

// validateBalance validates a balance before persistence.
func validateBalance(balance *model.Balance) error {
	if balance == nil {
		return fmt.Errorf("%w: balance", ErrNilParameter)
	}
	if balance.UserID == "" {
		return fmt.Errorf("%w: missing user ID", ErrInvalidBalance)
	}
	if balance.Available < 0 || balance.Invested < 0 || balance.Strategy < 0 {
		return fmt.Errorf("%w: negative bucket", ErrInvalidBalance)
	}
	return nil
}
