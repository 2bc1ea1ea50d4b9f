// Package fees computes fee breakdowns for proposed transactions.
package fees

import (
	"github.com/diboas/diboas-go/internal/model"
	"github.com/shopspring/decimal"
)

// Platform fee rates per transaction-type class. Off-ramp operations
// (withdraw, transfer) carry the higher rate; everything else pays the
// base platform rate.
var (
	platformBaseRate    = decimal.RequireFromString("0.0009") // 0.09%
	platformOffRampRate = decimal.RequireFromString("0.009")  // 0.9%
)

// networkRates is keyed by chain. These mirror the live network cost
// estimates the pricing service publishes, expressed as a fraction of the
// transaction amount.
var networkRates = map[model.Chain]decimal.Decimal{
	model.ChainSOL: decimal.RequireFromString("0.000001"), // 0.0001%
	model.ChainSUI: decimal.RequireFromString("0.000003"), // 0.0003%
	model.ChainETH: decimal.RequireFromString("0.005"),    // 0.5%
	model.ChainBTC: decimal.RequireFromString("0.01"),     // 1%
}

// providerRates is keyed by payment method and applies to fiat on/off-ramp
// funding only. Wallet-funded transactions never pay a provider fee.
var providerRates = map[model.PaymentMethod]decimal.Decimal{
	model.MethodApplePay:    decimal.RequireFromString("0.005"),
	model.MethodGooglePay:   decimal.RequireFromString("0.005"),
	model.MethodCreditCard:  decimal.RequireFromString("0.01"),
	model.MethodBankAccount: decimal.RequireFromString("0.01"),
	model.MethodPayPal:      decimal.RequireFromString("0.03"),
}

// dexRate is the flat decentralized-exchange fee for wallet-funded buy/sell
// swaps. Native SOL swaps route through the platform's own liquidity and
// pay no DEX fee.
var dexRate = decimal.RequireFromString("0.008") // 0.8%

// defiRates is keyed by chain and applies to strategy start/stop
// operations in place of the DEX fee.
var defiRates = map[model.Chain]decimal.Decimal{
	model.ChainSOL: decimal.RequireFromString("0.007"),
	model.ChainSUI: decimal.RequireFromString("0.007"),
	model.ChainETH: decimal.RequireFromString("0.007"),
	model.ChainBTC: decimal.RequireFromString("0.007"),
}

// platformRate returns the diBoaS platform rate for a transaction type.
func platformRate(t model.TransactionType) decimal.Decimal {
	if t.IsOffRamp() {
		return platformOffRampRate
	}
	return platformBaseRate
}
