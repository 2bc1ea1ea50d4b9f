// Package bank links external bank accounts through Plaid, backing the
// bank-funded payment methods for adding and withdrawing funds.
package bank

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/plaid/plaid-go/v20/plaid"

	"github.com/diboas/diboas-go/internal/common"
	"github.com/diboas/diboas-go/internal/service"
)

// Config holds Plaid API configuration.
type Config struct {
	ClientID    string
	Secret      string
	Environment string // sandbox or production
}

// Validate ensures all required fields are present.
func (c *Config) Validate() error {
	if c.ClientID == "" {
		return fmt.Errorf("%w: plaid client ID is required", common.ErrMissingConfig)
	}
	if c.Secret == "" {
		return fmt.Errorf("%w: plaid secret is required", common.ErrMissingConfig)
	}
	switch c.Environment {
	case "sandbox", "production":
		return nil
	case "":
		return fmt.Errorf("%w: plaid environment is required", common.ErrMissingConfig)
	default:
		return fmt.Errorf("%w: plaid environment must be sandbox or production", common.ErrInvalidConfig)
	}
}

// Client implements service.BankProvider against the Plaid API.
type Client struct {
	client      *plaid.APIClient
	logger      *slog.Logger
	retryOpts   service.RetryOptions
	environment string
}

// NewClient creates a Plaid-backed bank provider.
func NewClient(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	configuration := plaid.NewConfiguration()
	configuration.AddDefaultHeader("PLAID-CLIENT-ID", cfg.ClientID)
	configuration.AddDefaultHeader("PLAID-SECRET", cfg.Secret)

	switch cfg.Environment {
	case "sandbox":
		configuration.UseEnvironment(plaid.Sandbox)
	case "production":
		configuration.UseEnvironment(plaid.Production)
	}

	return &Client{
		client:      plaid.NewAPIClient(configuration),
		environment: cfg.Environment,
		logger:      slog.Default().With("component", "bank"),
		retryOpts: service.RetryOptions{
			MaxAttempts:  3,
			InitialDelay: 1 * time.Second,
			MaxDelay:     30 * time.Second,
			Multiplier:   2.0,
		},
	}, nil
}

// CreateLinkToken creates a Link token to initialize the account linking
// flow for a user.
func (c *Client) CreateLinkToken(ctx context.Context, userID string) (string, error) {
	user := plaid.LinkTokenCreateRequestUser{
		ClientUserId: userID,
	}

	request := plaid.NewLinkTokenCreateRequest(
		"diBoaS",
		"en",
		[]plaid.CountryCode{plaid.COUNTRYCODE_US},
		user,
	)
	request.SetProducts([]plaid.Products{plaid.PRODUCTS_AUTH})

	// OAuth banks require a redirect URI in production; it must match the
	// Plaid dashboard configuration.
	if c.environment == "production" {
		request.SetRedirectUri("https://app.diboas.com/bank/callback")
	}

	resp, _, err := c.client.PlaidApi.LinkTokenCreate(ctx).LinkTokenCreateRequest(*request).Execute()
	if err != nil {
		return "", c.wrapError("failed to create link token", err)
	}

	c.logger.Info("Created bank link token", "user_id", userID)
	return resp.GetLinkToken(), nil
}

// ExchangePublicToken exchanges the public token from a completed Link
// flow for a persistent access token.
func (c *Client) ExchangePublicToken(ctx context.Context, publicToken string) (string, error) {
	request := plaid.NewItemPublicTokenExchangeRequest(publicToken)
	resp, _, err := c.client.PlaidApi.ItemPublicTokenExchange(ctx).ItemPublicTokenExchangeRequest(*request).Execute()
	if err != nil {
		return "", c.wrapError("failed to exchange public token", err)
	}
	return resp.GetAccessToken(), nil
}

// GetAccounts fetches the linked accounts for an access token.
func (c *Client) GetAccounts(ctx context.Context, accessToken string) ([]service.BankAccount, error) {
	var fetched []plaid.AccountBase

	retryErr := common.WithRetry(ctx, func() error {
		request := plaid.NewAccountsGetRequest(accessToken)
		resp, _, err := c.client.PlaidApi.AccountsGet(ctx).AccountsGetRequest(*request).Execute()
		if err != nil {
			if plaidError := extractPlaidError(err); plaidError != nil {
				if plaidError.ErrorCode == "RATE_LIMIT_EXCEEDED" {
					c.logger.Warn("Rate limit hit, will retry", "error", plaidError.ErrorMessage)
					return &common.RetryableError{Err: err, Retryable: true}
				}
				return fmt.Errorf("plaid API error: %s - %s", plaidError.ErrorCode, plaidError.ErrorMessage)
			}
			return fmt.Errorf("failed to fetch accounts: %w", err)
		}
		fetched = resp.GetAccounts()
		return nil
	}, c.retryOpts)

	if retryErr != nil {
		return nil, retryErr
	}

	accounts := make([]service.BankAccount, 0, len(fetched))
	for _, account := range fetched {
		accounts = append(accounts, mapAccount(account))
	}

	c.logger.Info("Fetched linked bank accounts", "count", len(accounts))
	return accounts, nil
}

// mapAccount converts a Plaid account to the service representation.
func mapAccount(account plaid.AccountBase) service.BankAccount {
	mapped := service.BankAccount{
		ID:   account.GetAccountId(),
		Name: account.GetName(),
		Mask: account.GetMask(),
	}

	balances := account.GetBalances()
	if available, ok := balances.GetAvailableOk(); ok && available != nil {
		mapped.AvailableBalance = *available
	}
	if currency, ok := balances.GetIsoCurrencyCodeOk(); ok && currency != nil {
		mapped.Currency = *currency
	}
	if name, ok := account.GetOfficialNameOk(); ok && name != nil && *name != "" {
		mapped.InstitutionName = *name
	}

	return mapped
}

// wrapError surfaces a structured Plaid error when one is present.
func (c *Client) wrapError(msg string, err error) error {
	if plaidError := extractPlaidError(err); plaidError != nil {
		return fmt.Errorf("%s: %w: %s - %s", msg, common.ErrBankConnection,
			plaidError.ErrorCode, plaidError.ErrorMessage)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// extractPlaidError attempts to extract a Plaid error from a generic error.
func extractPlaidError(err error) *plaid.PlaidError {
	plaidErr, convErr := plaid.ToPlaidError(err)
	if convErr != nil {
		return nil
	}
	return &plaidErr
}
