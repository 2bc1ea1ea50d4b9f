package model

import "github.com/shopspring/decimal"

// FeeComponent is one line of a fee breakdown: the rate that was applied
// and the resulting amount.
type FeeComponent struct {
	Name   string
	Rate   decimal.Decimal // fractional rate, e.g. 0.0009 for 0.09%
	Amount decimal.Decimal
}

// FeeBreakdown is the full fee picture for a proposed transaction.
//
// Every component is always present; a component that does not apply to the
// transaction type is zero rather than omitted, so the shape stays stable
// for display. Total is the exact decimal sum of the five components.
type FeeBreakdown struct {
	Platform decimal.Decimal // diBoaS platform fee
	Network  decimal.Decimal
	Provider decimal.Decimal // payment provider fee
	DEX      decimal.Decimal
	DeFi     decimal.Decimal
	Total    decimal.Decimal

	Breakdown []FeeComponent
}

// ZeroFeeBreakdown returns a breakdown with every component present and zero.
func ZeroFeeBreakdown() *FeeBreakdown {
	zero := decimal.Zero
	return &FeeBreakdown{
		Platform: zero,
		Network:  zero,
		Provider: zero,
		DEX:      zero,
		DeFi:     zero,
		Total:    zero,
	}
}

// Consistent reports whether Total equals the sum of the components.
func (f *FeeBreakdown) Consistent() bool {
	sum := f.Platform.Add(f.Network).Add(f.Provider).Add(f.DEX).Add(f.DeFi)
	return f.Total.Equal(sum)
}

// TotalFloat returns the total as a float64 for storage and balance math.
func (f *FeeBreakdown) TotalFloat() float64 {
	v, _ := f.Total.Float64()
	return v
}
