package bank

import (
	"context"

	"github.com/diboas/diboas-go/internal/service"
)

// MockProvider is a test double for service.BankProvider.
type MockProvider struct {
	// Functions that can be set by tests to control behavior
	CreateLinkTokenFn     func(ctx context.Context, userID string) (string, error)
	ExchangePublicTokenFn func(ctx context.Context, publicToken string) (string, error)
	GetAccountsFn         func(ctx context.Context, accessToken string) ([]service.BankAccount, error)

	// Call tracking
	CreateLinkTokenCalls     []string
	ExchangePublicTokenCalls []string
	GetAccountsCalls         []string
}

// NewMockProvider creates a mock bank provider.
func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

// CreateLinkToken implements service.BankProvider.
func (m *MockProvider) CreateLinkToken(ctx context.Context, userID string) (string, error) {
	m.CreateLinkTokenCalls = append(m.CreateLinkTokenCalls, userID)
	if m.CreateLinkTokenFn != nil {
		return m.CreateLinkTokenFn(ctx, userID)
	}
	return "link-sandbox-token", nil
}

// ExchangePublicToken implements service.BankProvider.
func (m *MockProvider) ExchangePublicToken(ctx context.Context, publicToken string) (string, error) {
	m.ExchangePublicTokenCalls = append(m.ExchangePublicTokenCalls, publicToken)
	if m.ExchangePublicTokenFn != nil {
		return m.ExchangePublicTokenFn(ctx, publicToken)
	}
	return "access-sandbox-token", nil
}

// GetAccounts implements service.BankProvider.
func (m *MockProvider) GetAccounts(ctx context.Context, accessToken string) ([]service.BankAccount, error) {
	m.GetAccountsCalls = append(m.GetAccountsCalls, accessToken)
	if m.GetAccountsFn != nil {
		return m.GetAccountsFn(ctx, accessToken)
	}
	return []service.BankAccount{}, nil
}
