package fees

import (
	"log/slog"

	"github.com/diboas/diboas-go/internal/model"
	"github.com/shopspring/decimal"
)

// Calculator computes fee breakdowns from the static rate tables. It has
// no side effects and never fails: an unknown type or chain produces a
// zero rate and a logged warning rather than an error.
type Calculator struct{}

// NewCalculator creates a fee calculator.
func NewCalculator() *Calculator {
	return &Calculator{}
}

// Calculate returns the full fee breakdown for a proposed transaction.
//
// Component applicability:
//   - platform fee: every transaction, rate per type class
//   - network fee: every transaction, rate per chain
//   - provider fee: fiat on/off-ramp funding only
//   - DEX fee: wallet-funded buy/sell on non-SOL chains only
//   - DeFi fee: strategy start/stop only (substitutes for the DEX fee)
//
// All math is decimal; Total is the exact sum of the components.
func (c *Calculator) Calculate(d model.TransactionDescriptor) *model.FeeBreakdown {
	if !d.Type.IsValid() {
		slog.Warn("Unknown transaction type for fee calculation, using zero rates",
			"type", d.Type)
		return model.ZeroFeeBreakdown()
	}

	amount := decimal.NewFromFloat(d.Amount)
	breakdown := model.ZeroFeeBreakdown()

	pRate := platformRate(d.Type)
	breakdown.Platform = amount.Mul(pRate)
	breakdown.Breakdown = append(breakdown.Breakdown, model.FeeComponent{
		Name: "diBoaS", Rate: pRate, Amount: breakdown.Platform,
	})

	nRate, ok := networkRates[d.Chain]
	if !ok {
		slog.Warn("Unknown chain for fee calculation, using zero network rate",
			"chain", d.Chain, "type", d.Type)
		nRate = decimal.Zero
	}
	breakdown.Network = amount.Mul(nRate)
	breakdown.Breakdown = append(breakdown.Breakdown, model.FeeComponent{
		Name: "network", Rate: nRate, Amount: breakdown.Network,
	})

	if provRate := c.providerRate(d); !provRate.IsZero() {
		breakdown.Provider = amount.Mul(provRate)
		breakdown.Breakdown = append(breakdown.Breakdown, model.FeeComponent{
			Name: "provider", Rate: provRate, Amount: breakdown.Provider,
		})
	}

	if dRate := c.dexRate(d); !dRate.IsZero() {
		breakdown.DEX = amount.Mul(dRate)
		breakdown.Breakdown = append(breakdown.Breakdown, model.FeeComponent{
			Name: "dex", Rate: dRate, Amount: breakdown.DEX,
		})
	}

	if d.Type.IsStrategy() {
		fRate, ok := defiRates[d.Chain]
		if !ok {
			fRate = decimal.Zero
		}
		breakdown.DeFi = amount.Mul(fRate)
		breakdown.Breakdown = append(breakdown.Breakdown, model.FeeComponent{
			Name: "defi", Rate: fRate, Amount: breakdown.DeFi,
		})
	}

	breakdown.Total = breakdown.Platform.
		Add(breakdown.Network).
		Add(breakdown.Provider).
		Add(breakdown.DEX).
		Add(breakdown.DeFi)

	return breakdown
}

// providerRate returns the payment provider rate, or zero when the
// transaction is not funded through a fiat provider. Strategy operations
// always settle from the diBoaS wallet and never pay a provider fee.
func (c *Calculator) providerRate(d model.TransactionDescriptor) decimal.Decimal {
	if d.Type.IsStrategy() {
		return decimal.Zero
	}
	if rate, ok := providerRates[d.PaymentMethod]; ok {
		return rate
	}
	return decimal.Zero
}

// dexRate returns the DEX swap rate. It applies only to wallet-funded
// buy/sell: a fiat-funded buy is an on-ramp purchase through the provider,
// not a DEX swap, and SOL swaps are always free of DEX fees.
func (c *Calculator) dexRate(d model.TransactionDescriptor) decimal.Decimal {
	if d.Type != model.TypeBuy && d.Type != model.TypeSell {
		return decimal.Zero
	}
	if d.PaymentMethod.IsFiatOnRamp() {
		return decimal.Zero
	}
	if d.Chain == model.ChainSOL {
		return decimal.Zero
	}
	return dexRate
}
