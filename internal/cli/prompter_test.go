package cli

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diboas/diboas-go/internal/fees"
	"github.com/diboas/diboas-go/internal/model"
)

func sendDescriptor() model.TransactionDescriptor {
	return model.TransactionDescriptor{
		Type:          model.TypeSend,
		Amount:        100,
		Chain:         model.ChainSOL,
		PaymentMethod: model.MethodDiBoaSWallet,
		Recipient:     "@maria",
	}
}

func TestConfirmTransaction(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{name: "yes", input: "y\n", want: true},
		{name: "full yes", input: "yes\n", want: true},
		{name: "uppercase yes", input: "YES\n", want: true},
		{name: "no", input: "n\n", want: false},
		{name: "empty defaults to no", input: "\n", want: false},
		{name: "garbage defaults to no", input: "sure\n", want: false},
	}

	quote := fees.NewCalculator().Calculate(sendDescriptor())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			prompter := NewPrompter(strings.NewReader(tt.input), &out)

			confirmed, err := prompter.ConfirmTransaction(context.Background(), sendDescriptor(), quote)
			require.NoError(t, err)
			assert.Equal(t, tt.want, confirmed)
			assert.Contains(t, out.String(), "@maria")
			assert.Contains(t, out.String(), "total")
		})
	}
}

func TestConfirmTransaction_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	var out bytes.Buffer
	// A pipe with no writer never delivers a line
	blocked, w := io.Pipe()
	defer w.Close()
	prompter := NewPrompter(blocked, &out)

	_, err := prompter.ConfirmTransaction(ctx, sendDescriptor(), nil)
	require.ErrorIs(t, err, ErrInputCancelled)
}

func TestFormatFee(t *testing.T) {
	tests := []struct {
		amount float64
		want   string
	}{
		{amount: 7.901, want: "$7.901"},
		{amount: 0.0001, want: "$0.0001"},
		{amount: 10, want: "$10.00"},
		{amount: 15.9, want: "$15.9"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatFee(tt.amount))
	}
}

func TestRenderFeeBreakdown_NilQuote(t *testing.T) {
	out := RenderFeeBreakdown(nil)
	assert.Contains(t, out, "no fee quote")
}

func TestRenderBalance_IncludesPositions(t *testing.T) {
	balance := &model.Balance{
		Available: 100,
		Invested:  50,
		Strategy:  25,
		Assets: map[string]model.AssetBalance{
			"BTC": {Asset: "BTC", InvestedAmount: 50},
		},
	}
	out := RenderBalance(balance)
	assert.Contains(t, out, "Available")
	assert.Contains(t, out, "$175.00")
	assert.Contains(t, out, "BTC")
}
