// Package search implements the strategy search provider: given a goal it
// computes the APY required to reach it and finds catalog strategies that
// can deliver it.
package search

import "github.com/diboas/diboas-go/internal/model"

// catalog is the built-in strategy template catalog. In production this is
// refreshed from the protocol integrations; the shape and ordering rules
// are what matter here.
var catalog = []model.StrategyTemplate{
	{
		ID:         "sol-marinade-staking",
		Name:       "Marinade Staking",
		Protocol:   "Marinade",
		Chain:      model.ChainSOL,
		Asset:      "SOL",
		APY:        0.065,
		Risk:       model.RiskConservative,
		MinDeposit: 50,
	},
	{
		ID:         "sol-kamino-usdc",
		Name:       "Kamino USDC Lending",
		Protocol:   "Kamino",
		Chain:      model.ChainSOL,
		Asset:      "USDC",
		APY:        0.082,
		Risk:       model.RiskModerate,
		MinDeposit: 50,
	},
	{
		ID:         "sol-orca-lp",
		Name:       "Orca SOL/USDC LP",
		Protocol:   "Orca",
		Chain:      model.ChainSOL,
		Asset:      "SOL",
		APY:        0.145,
		Risk:       model.RiskAggressive,
		MinDeposit: 100,
	},
	{
		ID:         "eth-aave-usdc",
		Name:       "Aave USDC Lending",
		Protocol:   "Aave",
		Chain:      model.ChainETH,
		Asset:      "USDC",
		APY:        0.048,
		Risk:       model.RiskConservative,
		MinDeposit: 50,
	},
	{
		ID:         "eth-lido-staking",
		Name:       "Lido Staked ETH",
		Protocol:   "Lido",
		Chain:      model.ChainETH,
		Asset:      "ETH",
		APY:        0.038,
		Risk:       model.RiskConservative,
		MinDeposit: 50,
	},
	{
		ID:         "eth-compound-usdt",
		Name:       "Compound USDT Lending",
		Protocol:   "Compound",
		Chain:      model.ChainETH,
		Asset:      "USDT",
		APY:        0.071,
		Risk:       model.RiskModerate,
		MinDeposit: 50,
	},
	{
		ID:         "btc-babylon-staking",
		Name:       "Babylon BTC Staking",
		Protocol:   "Babylon",
		Chain:      model.ChainBTC,
		Asset:      "BTC",
		APY:        0.041,
		Risk:       model.RiskModerate,
		MinDeposit: 100,
	},
	{
		ID:         "sui-navi-usdc",
		Name:       "Navi USDC Lending",
		Protocol:   "Navi",
		Chain:      model.ChainSUI,
		Asset:      "USDC",
		APY:        0.093,
		Risk:       model.RiskModerate,
		MinDeposit: 50,
	},
	{
		ID:         "sui-cetus-lp",
		Name:       "Cetus SUI/USDC LP",
		Protocol:   "Cetus",
		Chain:      model.ChainSUI,
		Asset:      "SUI",
		APY:        0.168,
		Risk:       model.RiskAggressive,
		MinDeposit: 100,
	},
}

// Catalog returns a copy of the built-in strategy templates.
func Catalog() []model.StrategyTemplate {
	out := make([]model.StrategyTemplate, len(catalog))
	copy(out, catalog)
	return out
}
