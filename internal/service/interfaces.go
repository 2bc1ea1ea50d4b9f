// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/diboas/diboas-go/internal/model"
)

// TransactionFilter defines filtering options for history queries.
type TransactionFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
	Type      model.TransactionType
	Limit     int
	Offset    int
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	// Transaction history
	SaveTransaction(ctx context.Context, record *model.TransactionRecord) error
	GetTransactionByID(ctx context.Context, id string) (*model.TransactionRecord, error)
	GetTransactions(ctx context.Context, userID string, filter TransactionFilter) ([]model.TransactionRecord, error)

	// Balances
	GetBalance(ctx context.Context, userID string) (*model.Balance, error)
	SaveBalance(ctx context.Context, balance *model.Balance) error
	// ApplyTransaction atomically writes the history record and the balance
	// mutation it implies. A failed record never mutates the balance.
	ApplyTransaction(ctx context.Context, record *model.TransactionRecord, balance *model.Balance) error

	// Wizard sessions
	SaveSession(ctx context.Context, session *model.StrategySession) error
	GetSession(ctx context.Context, userID, flowKind string) (*model.StrategySession, error)
	DeleteSession(ctx context.Context, userID, flowKind string) error

	// Strategies
	SaveStrategy(ctx context.Context, strategy *model.Strategy) error
	GetStrategy(ctx context.Context, id string) (*model.Strategy, error)
	GetStrategiesByUser(ctx context.Context, userID string) ([]model.Strategy, error)
	UpdateStrategyStatus(ctx context.Context, id string, status model.StrategyStatus) error

	// Database management
	Migrate(ctx context.Context) error
	BeginTx(ctx context.Context) (Transaction, error)
	Close() error
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit() error
	Rollback() error
	// GetBalance reads inside the transaction, so a balance mutation can
	// start from the current row instead of an earlier snapshot.
	GetBalance(ctx context.Context, userID string) (*model.Balance, error)
	SaveTransaction(ctx context.Context, record *model.TransactionRecord) error
	SaveBalance(ctx context.Context, balance *model.Balance) error
	SaveStrategy(ctx context.Context, strategy *model.Strategy) error
}

// BalanceProvider exposes the balance buckets the validator checks against.
// Storage satisfies this; tests substitute lighter fakes.
type BalanceProvider interface {
	GetBalance(ctx context.Context, userID string) (*model.Balance, error)
}

// ExecutionResult is what the transaction executor reports back.
type ExecutionResult struct {
	Success      bool
	TxID         string
	TxHash       string
	ExplorerLink string
	// Pending is true when the submission was accepted but on-chain
	// confirmation is not yet final.
	Pending bool
	Error   string
}

// TransactionExecutor submits transactions for on-chain execution.
type TransactionExecutor interface {
	Execute(ctx context.Context, userID string, descriptor model.TransactionDescriptor) (*ExecutionResult, error)
}

// OnChainStatus is a point-in-time view of a submitted transaction.
type OnChainStatus struct {
	TxID                  string
	Status                string // pending, confirmed, failed
	Confirmations         int
	RequiredConfirmations int
	ExplorerLink          string
}

// StatusProvider exposes on-chain confirmation progress for submitted
// transactions. Subscribe delivers updates until the context is cancelled
// or the transaction reaches a final status.
type StatusProvider interface {
	Status(ctx context.Context, txID string) (*OnChainStatus, error)
	Subscribe(ctx context.Context, txID string) (<-chan OnChainStatus, error)
}

// StrategySearcher finds strategy templates that can meet a goal.
type StrategySearcher interface {
	Search(ctx context.Context, goal model.StrategyGoal, config model.WizardConfiguration) (*model.SearchResult, error)
}

// BankAccount is an external account linked through the bank provider.
type BankAccount struct {
	ID               string
	Name             string
	Mask             string
	InstitutionName  string
	AvailableBalance float64
	Currency         string
}

// BankProvider links external bank accounts for on/off-ramp payment methods.
type BankProvider interface {
	CreateLinkToken(ctx context.Context, userID string) (string, error)
	ExchangePublicToken(ctx context.Context, publicToken string) (string, error)
	GetAccounts(ctx context.Context, accessToken string) ([]BankAccount, error)
}

// RetryOptions configures retry behavior for transient failures.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
