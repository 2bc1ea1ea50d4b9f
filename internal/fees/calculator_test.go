package fees

import (
	"testing"

	"github.com/diboas/diboas-go/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculator_Calculate(t *testing.T) {
	calc := NewCalculator()

	tests := []struct {
		name         string
		descriptor   model.TransactionDescriptor
		wantPlatform string
		wantNetwork  string
		wantProvider string
		wantDEX      string
		wantDeFi     string
		wantTotal    string
	}{
		{
			name: "strategy start on SOL funded from wallet",
			descriptor: model.TransactionDescriptor{
				Type:          model.TypeStartStrategy,
				Amount:        1000,
				Chain:         model.ChainSOL,
				PaymentMethod: model.MethodDiBoaSWallet,
			},
			wantPlatform: "0.9",
			wantNetwork:  "0.001",
			wantProvider: "0",
			wantDEX:      "0",
			wantDeFi:     "7",
			wantTotal:    "7.901",
		},
		{
			name: "buy on ETH funded by card",
			descriptor: model.TransactionDescriptor{
				Type:          model.TypeBuy,
				Amount:        1000,
				Chain:         model.ChainETH,
				PaymentMethod: model.MethodCreditCard,
			},
			wantPlatform: "0.9",
			wantNetwork:  "5",
			wantProvider: "10",
			wantDEX:      "0",
			wantDeFi:     "0",
			wantTotal:    "15.9",
		},
		{
			name: "wallet-funded buy on ETH pays the DEX fee",
			descriptor: model.TransactionDescriptor{
				Type:          model.TypeBuy,
				Amount:        1000,
				Chain:         model.ChainETH,
				PaymentMethod: model.MethodDiBoaSWallet,
			},
			wantPlatform: "0.9",
			wantNetwork:  "5",
			wantProvider: "0",
			wantDEX:      "8",
			wantDeFi:     "0",
			wantTotal:    "13.9",
		},
		{
			name: "wallet-funded sell on SOL pays no DEX fee",
			descriptor: model.TransactionDescriptor{
				Type:          model.TypeSell,
				Amount:        500,
				Chain:         model.ChainSOL,
				PaymentMethod: model.MethodDiBoaSWallet,
			},
			wantPlatform: "0.45",
			wantNetwork:  "0.0005",
			wantProvider: "0",
			wantDEX:      "0",
			wantDeFi:     "0",
			wantTotal:    "0.4505",
		},
		{
			name: "withdraw to bank pays off-ramp platform rate",
			descriptor: model.TransactionDescriptor{
				Type:          model.TypeWithdraw,
				Amount:        1000,
				Chain:         model.ChainSOL,
				PaymentMethod: model.MethodBankAccount,
			},
			wantPlatform: "9",
			wantNetwork:  "0.001",
			wantProvider: "10",
			wantDEX:      "0",
			wantDeFi:     "0",
			wantTotal:    "19.001",
		},
		{
			name: "transfer to external wallet pays off-ramp platform rate",
			descriptor: model.TransactionDescriptor{
				Type:          model.TypeTransfer,
				Amount:        200,
				Chain:         model.ChainETH,
				PaymentMethod: model.MethodExternalWallet,
			},
			wantPlatform: "1.8",
			wantNetwork:  "1",
			wantProvider: "0",
			wantDEX:      "0",
			wantDeFi:     "0",
			wantTotal:    "2.8",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calc.Calculate(tt.descriptor)
			require.NotNil(t, got)

			assert.True(t, got.Platform.Equal(decimal.RequireFromString(tt.wantPlatform)),
				"platform fee: got %s, want %s", got.Platform, tt.wantPlatform)
			assert.True(t, got.Network.Equal(decimal.RequireFromString(tt.wantNetwork)),
				"network fee: got %s, want %s", got.Network, tt.wantNetwork)
			assert.True(t, got.Provider.Equal(decimal.RequireFromString(tt.wantProvider)),
				"provider fee: got %s, want %s", got.Provider, tt.wantProvider)
			assert.True(t, got.DEX.Equal(decimal.RequireFromString(tt.wantDEX)),
				"dex fee: got %s, want %s", got.DEX, tt.wantDEX)
			assert.True(t, got.DeFi.Equal(decimal.RequireFromString(tt.wantDeFi)),
				"defi fee: got %s, want %s", got.DeFi, tt.wantDeFi)
			assert.True(t, got.Total.Equal(decimal.RequireFromString(tt.wantTotal)),
				"total: got %s, want %s", got.Total, tt.wantTotal)
			assert.True(t, got.Consistent(), "total must equal sum of components")
		})
	}
}

func TestCalculator_DEXFeeByChain(t *testing.T) {
	calc := NewCalculator()

	for _, chain := range model.AllChains {
		got := calc.Calculate(model.TransactionDescriptor{
			Type:          model.TypeBuy,
			Amount:        1000,
			Chain:         chain,
			PaymentMethod: model.MethodDiBoaSWallet,
		})

		if chain == model.ChainSOL {
			assert.True(t, got.DEX.IsZero(), "SOL swaps must have zero DEX fee")
		} else {
			assert.True(t, got.DEX.IsPositive(), "%s swaps must have a positive DEX fee", chain)
		}
	}
}

func TestCalculator_StrategyStartStopSymmetry(t *testing.T) {
	calc := NewCalculator()

	for _, chain := range model.AllChains {
		start := calc.Calculate(model.TransactionDescriptor{
			Type:          model.TypeStartStrategy,
			Amount:        2500,
			Chain:         chain,
			PaymentMethod: model.MethodDiBoaSWallet,
		})
		stop := calc.Calculate(model.TransactionDescriptor{
			Type:          model.TypeStopStrategy,
			Amount:        2500,
			Chain:         chain,
			PaymentMethod: model.MethodDiBoaSWallet,
		})

		assert.True(t, start.Total.Equal(stop.Total),
			"start and stop fees must match on %s: %s vs %s", chain, start.Total, stop.Total)
		assert.True(t, start.Provider.IsZero(), "strategy ops never pay provider fees")
		assert.True(t, stop.Provider.IsZero(), "strategy ops never pay provider fees")
		assert.True(t, start.DEX.IsZero(), "strategy ops never pay DEX fees")
		assert.True(t, stop.DEX.IsZero(), "strategy ops never pay DEX fees")
	}
}

func TestCalculator_TotalEqualsSumForAllTypes(t *testing.T) {
	calc := NewCalculator()

	for _, txType := range model.AllTransactionTypes {
		for _, chain := range model.AllChains {
			for _, method := range []model.PaymentMethod{
				model.MethodDiBoaSWallet,
				model.MethodCreditCard,
				model.MethodPayPal,
			} {
				got := calc.Calculate(model.TransactionDescriptor{
					Type:          txType,
					Amount:        1234.56,
					Chain:         chain,
					PaymentMethod: method,
				})
				assert.True(t, got.Consistent(),
					"total != sum for %s/%s/%s", txType, chain, method)
			}
		}
	}
}

func TestCalculator_UnknownInputsNeverPanic(t *testing.T) {
	calc := NewCalculator()

	got := calc.Calculate(model.TransactionDescriptor{
		Type:   model.TransactionType("mystery"),
		Amount: 100,
		Chain:  model.ChainSOL,
	})
	require.NotNil(t, got)
	assert.True(t, got.Total.IsZero(), "unknown type must quote zero fees")

	got = calc.Calculate(model.TransactionDescriptor{
		Type:          model.TypeAdd,
		Amount:        100,
		Chain:         model.Chain("DOGE"),
		PaymentMethod: model.MethodCreditCard,
	})
	require.NotNil(t, got)
	assert.True(t, got.Network.IsZero(), "unknown chain must quote zero network fee")
	assert.True(t, got.Consistent())
}
