// Package model defines the core domain models used throughout the application.
package model

import (
	"crypto/sha256"
	"fmt"
	"time"
)

// TransactionType identifies the kind of operation a user is performing.
type TransactionType string

// Transaction type constants.
const (
	TypeAdd           TransactionType = "add"
	TypeWithdraw      TransactionType = "withdraw"
	TypeSend          TransactionType = "send"
	TypeTransfer      TransactionType = "transfer"
	TypeBuy           TransactionType = "buy"
	TypeSell          TransactionType = "sell"
	TypeStartStrategy TransactionType = "start_strategy"
	TypeStopStrategy  TransactionType = "stop_strategy"
)

// AllTransactionTypes lists every supported transaction type.
var AllTransactionTypes = []TransactionType{
	TypeAdd, TypeWithdraw, TypeSend, TypeTransfer,
	TypeBuy, TypeSell, TypeStartStrategy, TypeStopStrategy,
}

// IsValid reports whether t is a known transaction type.
func (t TransactionType) IsValid() bool {
	for _, known := range AllTransactionTypes {
		if t == known {
			return true
		}
	}
	return false
}

// RequiresRecipient reports whether the type needs a recipient field.
// Send expects a diBoaS username, transfer an external wallet address.
func (t TransactionType) RequiresRecipient() bool {
	return t == TypeSend || t == TypeTransfer
}

// IsStrategy reports whether the type is a yield-strategy operation.
func (t TransactionType) IsStrategy() bool {
	return t == TypeStartStrategy || t == TypeStopStrategy
}

// IsOffRamp reports whether the type moves value out of the platform.
func (t TransactionType) IsOffRamp() bool {
	return t == TypeWithdraw || t == TypeTransfer
}

// Chain identifies a supported blockchain network.
type Chain string

// Supported chains.
const (
	ChainSOL Chain = "SOL"
	ChainETH Chain = "ETH"
	ChainBTC Chain = "BTC"
	ChainSUI Chain = "SUI"
)

// AllChains lists every supported chain.
var AllChains = []Chain{ChainSOL, ChainETH, ChainBTC, ChainSUI}

// IsValid reports whether c is a known chain.
func (c Chain) IsValid() bool {
	for _, known := range AllChains {
		if c == known {
			return true
		}
	}
	return false
}

// PaymentMethod identifies how a transaction is funded or paid out.
type PaymentMethod string

// Payment method constants.
const (
	MethodDiBoaSWallet   PaymentMethod = "diboas_wallet"
	MethodCreditCard     PaymentMethod = "credit_debit_card"
	MethodBankAccount    PaymentMethod = "bank_account"
	MethodApplePay       PaymentMethod = "apple_pay"
	MethodGooglePay      PaymentMethod = "google_pay"
	MethodPayPal         PaymentMethod = "paypal"
	MethodExternalWallet PaymentMethod = "external_wallet"
)

// IsFiatOnRamp reports whether the method pulls funds from outside the
// platform through a payment provider.
func (m PaymentMethod) IsFiatOnRamp() bool {
	switch m {
	case MethodCreditCard, MethodBankAccount, MethodApplePay, MethodGooglePay, MethodPayPal:
		return true
	default:
		return false
	}
}

// TransactionDescriptor describes a proposed transaction before execution.
type TransactionDescriptor struct {
	Type          TransactionType
	Amount        float64
	Asset         string // currency or token code, e.g. USDC, BTC
	PaymentMethod PaymentMethod
	Chain         Chain
	Recipient     string // username for send, wallet address for transfer
	StrategyID    string // set for stop_strategy
}

// RecordStatus indicates the final disposition of a recorded transaction.
type RecordStatus string

// Record status constants.
const (
	RecordCompleted   RecordStatus = "completed"
	RecordFailed      RecordStatus = "failed"
	RecordUnconfirmed RecordStatus = "completed_unconfirmed"
)

// TransactionRecord is a single entry in the persistent transaction history.
//
// For a successful strategy launch, Amount holds investment plus fees so the
// balance deduction is correct, while InvestmentAmount holds the bare figure
// shown to the user. A failed transaction is always recorded with Amount 0:
// failures never move funds.
type TransactionRecord struct {
	CreatedAt        time.Time
	ID               string
	UserID           string
	Hash             string
	Type             TransactionType
	Status           RecordStatus
	Asset            string
	Chain            Chain
	PaymentMethod    PaymentMethod
	Recipient        string
	TxHash           string
	ExplorerLink     string
	Description      string
	Amount           float64
	InvestmentAmount float64
	FeeTotal         float64
}

// GenerateHash creates a unique hash for duplicate detection.
func (r *TransactionRecord) GenerateHash() string {
	data := fmt.Sprintf("%s:%s:%s:%.2f:%s:%s",
		r.UserID,
		r.CreatedAt.Format(time.RFC3339),
		r.Type,
		r.Amount,
		r.Chain,
		r.TxHash)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}
