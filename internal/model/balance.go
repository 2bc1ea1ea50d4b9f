package model

import "time"

// AssetBalance tracks the invested position in a single asset.
type AssetBalance struct {
	Asset          string
	InvestedAmount float64 // fiat value at purchase
	Quantity       float64 // asset units held
}

// Balance is a user's wallet balance split into the buckets the
// platform reasons about.
//
// Available covers spending-side operations (buy, send, transfer,
// withdraw, strategy start). Invested is the fiat value locked in bought
// assets; selling an asset checks the per-asset breakdown, not the
// aggregate. Strategy is the value locked in running yield strategies.
type Balance struct {
	UpdatedAt time.Time
	UserID    string
	Available float64
	Invested  float64
	Strategy  float64
	Assets    map[string]AssetBalance
}

// InvestedIn returns the invested fiat amount for one asset.
func (b *Balance) InvestedIn(asset string) float64 {
	if b.Assets == nil {
		return 0
	}
	return b.Assets[asset].InvestedAmount
}

// Total returns the sum of all buckets.
func (b *Balance) Total() float64 {
	return b.Available + b.Invested + b.Strategy
}
