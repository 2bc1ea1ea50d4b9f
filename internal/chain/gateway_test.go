package chain

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/diboas/diboas-go/internal/common"
	"github.com/diboas/diboas-go/internal/model"
	"github.com/diboas/diboas-go/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDescriptor() model.TransactionDescriptor {
	return model.TransactionDescriptor{
		Type:          model.TypeTransfer,
		Amount:        100,
		Chain:         model.ChainETH,
		PaymentMethod: model.MethodExternalWallet,
		Recipient:     "0x742d35Cc6634C0532925a3b844Bc454e4438f44e",
	}
}

func TestGateway_Execute(t *testing.T) {
	g := NewGateway()
	ctx := context.Background()

	result, err := g.Execute(ctx, "user-1", testDescriptor())
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.True(t, result.Pending)
	assert.NotEmpty(t, result.TxID)
	assert.NotEmpty(t, result.TxHash)
	assert.Contains(t, result.ExplorerLink, "etherscan.io/tx/")

	second, err := g.Execute(ctx, "user-1", testDescriptor())
	require.NoError(t, err)
	assert.NotEqual(t, result.TxID, second.TxID)
	assert.NotEqual(t, result.TxHash, second.TxHash, "sequence keeps hashes unique")
}

func TestGateway_ExecuteUnknownChain(t *testing.T) {
	g := NewGateway()

	d := testDescriptor()
	d.Chain = model.Chain("DOGE")

	result, err := g.Execute(context.Background(), "user-1", d)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "unsupported chain")
}

func TestGateway_FailureInjection(t *testing.T) {
	g := NewGateway()
	ctx := context.Background()

	t.Run("on-chain failure", func(t *testing.T) {
		g.FailNextSubmission("insufficient gas")

		result, err := g.Execute(ctx, "user-1", testDescriptor())
		require.NoError(t, err)
		assert.False(t, result.Success)
		assert.Equal(t, "insufficient gas", result.Error)

		status, err := g.Status(ctx, result.TxID)
		require.NoError(t, err)
		assert.Equal(t, "failed", status.Status)
	})

	t.Run("gateway unreachable", func(t *testing.T) {
		g.ErrNextSubmission(errors.New("connection refused"))

		_, err := g.Execute(ctx, "user-1", testDescriptor())
		require.Error(t, err)
		assert.ErrorIs(t, err, common.ErrChainUnreachable)
	})

	t.Run("injection only affects one submission", func(t *testing.T) {
		result, err := g.Execute(ctx, "user-1", testDescriptor())
		require.NoError(t, err)
		assert.True(t, result.Success)
	})
}

func TestGateway_StatusProgresses(t *testing.T) {
	g := NewGateway(WithCadence(10 * time.Millisecond))
	ctx := context.Background()

	d := testDescriptor()
	d.Chain = model.ChainSUI // single confirmation, finalizes fast

	result, err := g.Execute(ctx, "user-1", d)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		status, statusErr := g.Status(ctx, result.TxID)
		return statusErr == nil && status.Status == "confirmed"
	}, time.Second, 5*time.Millisecond)

	status, err := g.Status(ctx, result.TxID)
	require.NoError(t, err)
	assert.Equal(t, 1, status.RequiredConfirmations)
	assert.Equal(t, 1, status.Confirmations)
}

func TestGateway_StatusUnknownTx(t *testing.T) {
	g := NewGateway()

	_, err := g.Status(context.Background(), "tx-999999")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestGateway_SubscribeDeliversFinalStatus(t *testing.T) {
	g := NewGateway(WithCadence(10 * time.Millisecond))
	ctx := context.Background()

	d := testDescriptor()
	d.Chain = model.ChainBTC

	result, err := g.Execute(ctx, "user-1", d)
	require.NoError(t, err)

	updates, err := g.Subscribe(ctx, result.TxID)
	require.NoError(t, err)

	var last service.OnChainStatus
	for status := range updates {
		assert.LessOrEqual(t, status.Confirmations, status.RequiredConfirmations)
		last = status
	}
	assert.Equal(t, "confirmed", last.Status)
}

func TestGateway_SubscribeHonorsCancellation(t *testing.T) {
	g := NewGateway(WithCadence(50 * time.Millisecond))

	result, err := g.Execute(context.Background(), "user-1", testDescriptor())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	updates, err := g.Subscribe(ctx, result.TxID)
	require.NoError(t, err)

	cancel()

	require.Eventually(t, func() bool {
		select {
		case _, open := <-updates:
			return !open
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond, "channel must close after cancellation")
}
