// Package validation checks proposed transactions and strategy goals
// against balances, minimums and per-type business rules.
//
// Expected-invalid input never produces a Go error: callers get a Result
// with field-scoped messages they can render inline. Only infrastructure
// failures (the balance provider being unreachable) propagate as errors.
package validation

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/diboas/diboas-go/internal/model"
	"github.com/diboas/diboas-go/internal/service"
)

// Amount limits in USD.
const (
	MinGeneralAmount  = 10.0
	MinSendAmount     = 5.0
	MinStrategyAmount = 50.0
	MaxAmount         = 50000.0
)

// Result is the outcome of validating a descriptor or goal. Errors is
// keyed by field name so forms can surface messages inline.
type Result struct {
	Errors  map[string]string
	IsValid bool
}

func newResult() *Result {
	return &Result{Errors: make(map[string]string), IsValid: true}
}

func (r *Result) addError(field, message string) {
	r.Errors[field] = message
	r.IsValid = false
}

// Summary flattens the field errors into one line, in stable field order,
// for callers that report through a plain error instead of a form.
func (r *Result) Summary() string {
	fields := make([]string, 0, len(r.Errors))
	for field := range r.Errors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+": "+r.Errors[field])
	}
	return strings.Join(parts, "; ")
}

// Validator checks proposed transactions against business rules and the
// user's balance buckets.
type Validator struct {
	balances service.BalanceProvider
	now      func() time.Time
}

// NewValidator creates a validator backed by the given balance provider.
func NewValidator(balances service.BalanceProvider) *Validator {
	return &Validator{balances: balances, now: time.Now}
}

// Validate checks a proposed transaction. The returned error is non-nil
// only for infrastructure failures; business rejections land in Result.
func (v *Validator) Validate(ctx context.Context, userID string, d model.TransactionDescriptor) (*Result, error) {
	result := newResult()

	if !d.Type.IsValid() {
		result.addError("type", fmt.Sprintf("unknown transaction type %q", d.Type))
		return result, nil
	}

	v.validateAmount(d, result)
	v.validateRecipient(d, result)
	v.validatePaymentMethod(d, result)

	// Balance checks only make sense for an amount that passed the basic
	// checks, and only for operations that spend an existing bucket.
	if _, bad := result.Errors["amount"]; !bad && v.spendsBalance(d) {
		balance, err := v.balances.GetBalance(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to check balance for %s: %w", userID, err)
		}
		v.validateBalance(d, balance, result)
	}

	return result, nil
}

// ValidateGoal checks a strategy goal configuration.
func (v *Validator) ValidateGoal(goal model.StrategyGoal) *Result {
	result := newResult()

	switch goal.Type {
	case model.GoalTargetDate:
		if goal.TargetAmount <= 0 {
			result.addError("targetAmount", "target amount must be greater than zero")
		}
		if !goal.TargetDate.After(v.now()) {
			result.addError("targetDate", "target date must be in the future")
		}
	case model.GoalPeriodicIncome:
		if goal.RecurringAmount <= 0 {
			result.addError("recurringAmount", "recurring income amount must be greater than zero")
		}
		if goal.Frequency == "" {
			result.addError("frequency", "select how often you want income paid out")
		}
	default:
		result.addError("goalType", fmt.Sprintf("unknown goal type %q", goal.Type))
	}

	return result
}

func (v *Validator) validateAmount(d model.TransactionDescriptor, result *Result) {
	if math.IsNaN(d.Amount) || math.IsInf(d.Amount, 0) {
		result.addError("amount", "amount must be a valid number")
		return
	}
	if d.Amount <= 0 {
		result.addError("amount", "amount must be greater than zero")
		return
	}
	if d.Amount > MaxAmount {
		result.addError("amount", fmt.Sprintf("amount exceeds the $%.0f per-transaction limit", MaxAmount))
		return
	}

	min := minimumFor(d.Type)
	if d.Amount < min {
		result.addError("amount", fmt.Sprintf("minimum amount for %s is $%.0f", d.Type, min))
	}
}

// minimumFor returns the per-type minimum amount.
func minimumFor(t model.TransactionType) float64 {
	switch t {
	case model.TypeStartStrategy:
		return MinStrategyAmount
	case model.TypeSend:
		return MinSendAmount
	case model.TypeStopStrategy:
		// Stopping is a full or partial exit; any positive amount is fine.
		return 0
	default:
		return MinGeneralAmount
	}
}

func (v *Validator) validateRecipient(d model.TransactionDescriptor, result *Result) {
	if !d.Type.RequiresRecipient() {
		return
	}
	if d.Recipient == "" {
		result.addError("recipient", "recipient is required")
		return
	}

	switch d.Type {
	case model.TypeSend:
		if !ValidUsername(d.Recipient) {
			result.addError("recipient", "enter a valid diBoaS username, e.g. @maria")
		}
	case model.TypeTransfer:
		if !d.Chain.IsValid() {
			result.addError("chain", fmt.Sprintf("unknown chain %q", d.Chain))
			return
		}
		if !ValidAddress(d.Chain, d.Recipient) {
			result.addError("recipient", fmt.Sprintf("not a valid %s address", d.Chain))
		}
	}
}

func (v *Validator) validatePaymentMethod(d model.TransactionDescriptor, result *Result) {
	switch d.Type {
	case model.TypeAdd:
		if !d.PaymentMethod.IsFiatOnRamp() {
			result.addError("paymentMethod", "adding funds requires a bank, card or pay wallet")
		}
	case model.TypeWithdraw:
		if !d.PaymentMethod.IsFiatOnRamp() && d.PaymentMethod != model.MethodExternalWallet {
			result.addError("paymentMethod", "choose where the withdrawal should go")
		}
	case model.TypeSell:
		if d.Asset == "" {
			result.addError("asset", "select the asset to sell")
		}
	}
}

// spendsBalance reports whether the operation draws on a platform balance
// bucket. Fiat-funded adds and buys bring outside money in and need no
// balance check.
func (v *Validator) spendsBalance(d model.TransactionDescriptor) bool {
	switch d.Type {
	case model.TypeAdd:
		return false
	case model.TypeBuy:
		return !d.PaymentMethod.IsFiatOnRamp()
	default:
		return true
	}
}

func (v *Validator) validateBalance(d model.TransactionDescriptor, balance *model.Balance, result *Result) {
	switch d.Type {
	case model.TypeSell:
		invested := balance.InvestedIn(d.Asset)
		if d.Amount > invested {
			result.addError("amount", fmt.Sprintf(
				"you only have $%.2f invested in %s", invested, d.Asset))
		}
	case model.TypeStopStrategy:
		if d.Amount > balance.Strategy {
			result.addError("amount", fmt.Sprintf(
				"your strategies hold $%.2f", balance.Strategy))
		}
	default:
		if d.Amount > balance.Available {
			result.addError("amount", fmt.Sprintf(
				"insufficient balance: $%.2f available; add funds to continue", balance.Available))
		}
	}
}
