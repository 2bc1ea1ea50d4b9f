package flow

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diboas/diboas-go/internal/chain"
	"github.com/diboas/diboas-go/internal/common"
	"github.com/diboas/diboas-go/internal/fees"
	"github.com/diboas/diboas-go/internal/model"
	"github.com/diboas/diboas-go/internal/service"
	"github.com/diboas/diboas-go/internal/storage"
	"github.com/diboas/diboas-go/internal/validation"
)

// newTestFlow wires an orchestrator against real storage and the simulated
// gateway, with a funded balance for user-1. The gateway cadence and the
// pending timeout are tightened so lifecycle tests finish in milliseconds.
func newTestFlow(t *testing.T, gateway *chain.Gateway, opts ...Option) (*Orchestrator, service.Storage) {
	t.Helper()

	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "flow.db"))
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, store.Migrate(ctx))
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.SaveBalance(ctx, &model.Balance{
		UserID:    "user-1",
		Available: 5000,
		Strategy:  2000,
		UpdatedAt: time.Now(),
	}))

	o, err := NewOrchestrator(Deps{
		Storage:   store,
		Validator: validation.NewValidator(store),
		Fees:      fees.NewCalculator(),
		Executor:  gateway,
		Status:    gateway,
	}, opts...)
	require.NoError(t, err)
	t.Cleanup(o.Close)
	return o, store
}

func sendDescriptor(amount float64) model.TransactionDescriptor {
	return model.TransactionDescriptor{
		Type:          model.TypeSend,
		Amount:        amount,
		Chain:         model.ChainSUI,
		PaymentMethod: model.MethodDiBoaSWallet,
		Recipient:     "@maria",
	}
}

func waitForState(t *testing.T, o *Orchestrator, want model.FlowState) {
	t.Helper()
	require.Eventually(t, func() bool {
		return o.State() == want
	}, 5*time.Second, 5*time.Millisecond, "flow never reached %s (at %s)", want, o.State())
}

func TestNewOrchestrator_RequiresAllDeps(t *testing.T) {
	_, err := NewOrchestrator(Deps{})
	require.ErrorIs(t, err, common.ErrInvalidConfig)
}

func TestBegin_InvalidInputStaysIdle(t *testing.T) {
	o, _ := newTestFlow(t, chain.NewGateway())
	ctx := context.Background()

	result, err := o.Begin(ctx, "user-1", sendDescriptor(2))
	require.NoError(t, err)
	assert.False(t, result.IsValid)
	assert.Contains(t, result.Errors, "amount")
	assert.Equal(t, model.FlowIdle, o.State())
}

func TestBegin_ValidInputQuotesFeesAndConfirms(t *testing.T) {
	o, _ := newTestFlow(t, chain.NewGateway())
	ctx := context.Background()

	result, err := o.Begin(ctx, "user-1", sendDescriptor(100))
	require.NoError(t, err)
	require.True(t, result.IsValid)
	assert.Equal(t, model.FlowConfirming, o.State())

	snap := o.Snapshot()
	require.NotNil(t, snap.Fees)
	assert.True(t, snap.Fees.Total.IsPositive())
}

func TestBegin_RejectsWhenFlowInProgress(t *testing.T) {
	o, _ := newTestFlow(t, chain.NewGateway())
	ctx := context.Background()

	_, err := o.Begin(ctx, "user-1", sendDescriptor(100))
	require.NoError(t, err)
	_, err = o.Begin(ctx, "user-1", sendDescriptor(200))
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestUpdateAmount_DebouncesFeeRecalculation(t *testing.T) {
	o, _ := newTestFlow(t, chain.NewGateway(), WithFeeDebounce(20*time.Millisecond))
	ctx := context.Background()

	_, err := o.Begin(ctx, "user-1", sendDescriptor(100))
	require.NoError(t, err)
	before := o.Snapshot().Fees

	// Rapid edits, only the last one should produce a quote
	require.NoError(t, o.UpdateAmount(200))
	require.NoError(t, o.UpdateAmount(300))
	require.NoError(t, o.UpdateAmount(400))

	// Quote unchanged until the debounce window passes
	assert.Equal(t, before.Total.String(), o.Snapshot().Fees.Total.String())

	require.Eventually(t, func() bool {
		return o.Snapshot().Fees.Total.String() != before.Total.String()
	}, time.Second, 5*time.Millisecond)

	snap := o.Snapshot()
	assert.InDelta(t, 400, snap.Descriptor.Amount, 1e-9)
}

func TestUpdateAmount_OnlyWhileConfirming(t *testing.T) {
	o, _ := newTestFlow(t, chain.NewGateway())
	err := o.UpdateAmount(100)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func withdrawDescriptor(amount float64) model.TransactionDescriptor {
	return model.TransactionDescriptor{
		Type:          model.TypeWithdraw,
		Amount:        amount,
		Chain:         model.ChainSUI,
		PaymentMethod: model.MethodBankAccount,
	}
}

func TestConfirm_RejectsAmountEditedToNegative(t *testing.T) {
	o, store := newTestFlow(t, chain.NewGateway())
	ctx := context.Background()

	result, err := o.Begin(ctx, "user-1", withdrawDescriptor(100))
	require.NoError(t, err)
	require.True(t, result.IsValid)

	// Edit the amount to a negative value after the initial validation
	// passed. Confirm must catch it, not credit the account.
	require.NoError(t, o.UpdateAmount(-50))
	err = o.Confirm(ctx)
	require.ErrorIs(t, err, ErrValidationFailed)
	assert.Contains(t, err.Error(), "amount")

	// The flow stays in confirming with nothing recorded and no balance
	// movement.
	assert.Equal(t, model.FlowConfirming, o.State())
	assert.NotEmpty(t, o.Snapshot().Error)
	records, err := store.GetTransactions(ctx, "user-1", service.TransactionFilter{})
	require.NoError(t, err)
	assert.Empty(t, records)
	balance, err := store.GetBalance(ctx, "user-1")
	require.NoError(t, err)
	assert.InDelta(t, 5000, balance.Available, 1e-9)
}

func TestConfirm_RejectsAmountEditedBelowMinimum(t *testing.T) {
	o, store := newTestFlow(t, chain.NewGateway())
	ctx := context.Background()

	_, err := o.Begin(ctx, "user-1", withdrawDescriptor(100))
	require.NoError(t, err)

	// $5 is under the $10 withdrawal minimum.
	require.NoError(t, o.UpdateAmount(5))
	require.ErrorIs(t, o.Confirm(ctx), ErrValidationFailed)

	assert.Equal(t, model.FlowConfirming, o.State())
	records, err := store.GetTransactions(ctx, "user-1", service.TransactionFilter{})
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestConfirm_CorrectedAmountProceedsAfterRejection(t *testing.T) {
	gateway := chain.NewGateway(chain.WithCadence(5 * time.Millisecond))
	o, _ := newTestFlow(t, gateway, WithPendingTimeout(5*time.Second))
	ctx := context.Background()

	_, err := o.Begin(ctx, "user-1", withdrawDescriptor(100))
	require.NoError(t, err)
	require.NoError(t, o.UpdateAmount(-50))
	require.ErrorIs(t, o.Confirm(ctx), ErrValidationFailed)

	// Fixing the amount clears the rejection and the flow completes.
	require.NoError(t, o.UpdateAmount(40))
	require.NoError(t, o.Confirm(ctx))
	waitForState(t, o, model.FlowCompleted)
	assert.Empty(t, o.Snapshot().Error)
}

func TestConfirm_CompletesThroughConfirmations(t *testing.T) {
	// SUI needs one confirmation, so one cadence tick finalizes it.
	gateway := chain.NewGateway(chain.WithCadence(5 * time.Millisecond))
	o, store := newTestFlow(t, gateway, WithPendingTimeout(5*time.Second))
	ctx := context.Background()

	_, err := o.Begin(ctx, "user-1", sendDescriptor(100))
	require.NoError(t, err)
	require.NoError(t, o.Confirm(ctx))
	waitForState(t, o, model.FlowCompleted)

	snap := o.Snapshot()
	require.NotNil(t, snap.Record)
	assert.Equal(t, model.RecordCompleted, snap.Record.Status)
	assert.Empty(t, snap.Warning)
	assert.NotEmpty(t, snap.Record.TxHash)
	assert.NotEmpty(t, snap.Record.ExplorerLink)

	// Send debits amount plus fees from available
	balance, err := store.GetBalance(ctx, "user-1")
	require.NoError(t, err)
	feeTotal := snap.Record.FeeTotal
	assert.InDelta(t, 5000-100-feeTotal, balance.Available, 1e-9)
}

func TestConfirm_PendingTimeoutCompletesOptimistically(t *testing.T) {
	// SOL needs 32 confirmations; with a slow cadence the timeout wins.
	gateway := chain.NewGateway(chain.WithCadence(time.Hour))
	o, store := newTestFlow(t, gateway, WithPendingTimeout(30*time.Millisecond))
	ctx := context.Background()

	d := sendDescriptor(100)
	d.Chain = model.ChainSOL
	_, err := o.Begin(ctx, "user-1", d)
	require.NoError(t, err)
	require.NoError(t, o.Confirm(ctx))
	waitForState(t, o, model.FlowCompleted)

	snap := o.Snapshot()
	require.NotNil(t, snap.Record)
	assert.Equal(t, model.RecordUnconfirmed, snap.Record.Status)
	assert.Contains(t, snap.Warning, "taking longer than expected")

	// Optimistic completion still applies the balance effect
	balance, err := store.GetBalance(ctx, "user-1")
	require.NoError(t, err)
	assert.Less(t, balance.Available, 5000.0)
}

func TestConfirm_SubmissionRejectionFailsWithZeroAmountRecord(t *testing.T) {
	gateway := chain.NewGateway()
	gateway.FailNextSubmission("insufficient gas")
	o, store := newTestFlow(t, gateway)
	ctx := context.Background()

	_, err := o.Begin(ctx, "user-1", sendDescriptor(100))
	require.NoError(t, err)
	require.NoError(t, o.Confirm(ctx))

	assert.Equal(t, model.FlowFailed, o.State())
	snap := o.Snapshot()
	assert.Contains(t, snap.Error, "insufficient gas")
	assert.Contains(t, snap.Error, "no funds left your account")
	require.NotNil(t, snap.Record)
	assert.Equal(t, model.RecordFailed, snap.Record.Status)
	assert.Zero(t, snap.Record.Amount)

	// Funds untouched
	balance, err := store.GetBalance(ctx, "user-1")
	require.NoError(t, err)
	assert.InDelta(t, 5000, balance.Available, 1e-9)
}

func TestConfirm_GatewayUnreachableFailsFlow(t *testing.T) {
	gateway := chain.NewGateway()
	gateway.ErrNextSubmission(context.DeadlineExceeded)
	o, _ := newTestFlow(t, gateway)
	ctx := context.Background()

	_, err := o.Begin(ctx, "user-1", sendDescriptor(100))
	require.NoError(t, err)
	require.NoError(t, o.Confirm(ctx))
	assert.Equal(t, model.FlowFailed, o.State())
}

func TestRetry_FailedFlowConfirmsAgain(t *testing.T) {
	gateway := chain.NewGateway(chain.WithCadence(5 * time.Millisecond))
	gateway.FailNextSubmission("nonce too low")
	o, _ := newTestFlow(t, gateway, WithPendingTimeout(5*time.Second))
	ctx := context.Background()

	_, err := o.Begin(ctx, "user-1", sendDescriptor(100))
	require.NoError(t, err)
	require.NoError(t, o.Confirm(ctx))
	require.Equal(t, model.FlowFailed, o.State())

	require.NoError(t, o.Retry())
	assert.Equal(t, model.FlowConfirming, o.State())
	assert.Empty(t, o.Snapshot().Error)

	require.NoError(t, o.Confirm(ctx))
	waitForState(t, o, model.FlowCompleted)
}

func TestRetry_OnlyFromFailed(t *testing.T) {
	o, _ := newTestFlow(t, chain.NewGateway())
	require.ErrorIs(t, o.Retry(), ErrInvalidTransition)
}

func TestCancel_ReturnsToIdleAndRecordsNothing(t *testing.T) {
	o, store := newTestFlow(t, chain.NewGateway())
	ctx := context.Background()

	_, err := o.Begin(ctx, "user-1", sendDescriptor(100))
	require.NoError(t, err)
	require.NoError(t, o.Cancel())
	assert.Equal(t, model.FlowIdle, o.State())

	records, err := store.GetTransactions(ctx, "user-1", service.TransactionFilter{})
	require.NoError(t, err)
	assert.Empty(t, records)

	// A fresh flow can begin after cancelling
	_, err = o.Begin(ctx, "user-1", sendDescriptor(200))
	require.NoError(t, err)
}

func TestCancel_CompletedFlowIsFinal(t *testing.T) {
	gateway := chain.NewGateway(chain.WithCadence(5 * time.Millisecond))
	o, _ := newTestFlow(t, gateway, WithPendingTimeout(5*time.Second))
	ctx := context.Background()

	_, err := o.Begin(ctx, "user-1", sendDescriptor(100))
	require.NoError(t, err)
	require.NoError(t, o.Confirm(ctx))
	waitForState(t, o, model.FlowCompleted)

	require.ErrorIs(t, o.Cancel(), ErrInvalidTransition)
}

func TestSubscribe_ObserversSeeLifecycle(t *testing.T) {
	gateway := chain.NewGateway(chain.WithCadence(5 * time.Millisecond))
	o, _ := newTestFlow(t, gateway, WithPendingTimeout(5*time.Second))
	ctx := context.Background()

	updates, cancel := o.Subscribe()
	defer cancel()

	_, err := o.Begin(ctx, "user-1", sendDescriptor(100))
	require.NoError(t, err)
	require.NoError(t, o.Confirm(ctx))
	waitForState(t, o, model.FlowCompleted)

	seen := make(map[model.FlowState]bool)
	deadline := time.After(time.Second)
	for !seen[model.FlowCompleted] {
		select {
		case snap := <-updates:
			seen[snap.State] = true
		case <-deadline:
			t.Fatalf("never observed completion, saw %v", seen)
		}
	}
	assert.True(t, seen[model.FlowConfirming])
	assert.True(t, seen[model.FlowProcessing])
}

func TestApplyBalanceEffect(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name          string
		descriptor    model.TransactionDescriptor
		feeTotal      float64
		wantAvailable float64
		wantInvested  float64
		wantStrategy  float64
	}{
		{
			name:          "add credits net of fees",
			descriptor:    model.TransactionDescriptor{Type: model.TypeAdd, Amount: 100},
			feeTotal:      1,
			wantAvailable: 1099,
		},
		{
			name:          "withdraw debits amount plus fees",
			descriptor:    model.TransactionDescriptor{Type: model.TypeWithdraw, Amount: 100},
			feeTotal:      2,
			wantAvailable: 898,
		},
		{
			name: "wallet buy moves available into invested",
			descriptor: model.TransactionDescriptor{
				Type: model.TypeBuy, Amount: 100, Asset: "BTC",
				PaymentMethod: model.MethodDiBoaSWallet,
			},
			feeTotal:      3,
			wantAvailable: 897,
			wantInvested:  100,
		},
		{
			name: "fiat buy grows position without touching available",
			descriptor: model.TransactionDescriptor{
				Type: model.TypeBuy, Amount: 100, Asset: "BTC",
				PaymentMethod: model.MethodCreditCard,
			},
			feeTotal:      3,
			wantAvailable: 1000,
			wantInvested:  100,
		},
		{
			name:          "strategy start moves principal into strategy bucket",
			descriptor:    model.TransactionDescriptor{Type: model.TypeStartStrategy, Amount: 100},
			feeTotal:      5,
			wantAvailable: 895,
			wantStrategy:  100,
		},
		{
			name:          "strategy stop returns principal net of fees",
			descriptor:    model.TransactionDescriptor{Type: model.TypeStopStrategy, Amount: 100},
			feeTotal:      5,
			wantAvailable: 1095,
			wantStrategy:  -100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			balance := &model.Balance{UserID: "user-1", Available: 1000}
			applyBalanceEffect(balance, tt.descriptor, tt.feeTotal, now)
			assert.InDelta(t, tt.wantAvailable, balance.Available, 1e-9)
			assert.InDelta(t, tt.wantInvested, balance.Invested, 1e-9)
			assert.InDelta(t, tt.wantStrategy, balance.Strategy, 1e-9)
		})
	}
}

func TestApplyBalanceEffect_SellClearsAssetPosition(t *testing.T) {
	balance := &model.Balance{
		UserID:    "user-1",
		Available: 100,
		Invested:  250,
		Assets: map[string]model.AssetBalance{
			"BTC": {Asset: "BTC", InvestedAmount: 250},
		},
	}
	d := model.TransactionDescriptor{
		Type: model.TypeSell, Amount: 250, Asset: "BTC",
		PaymentMethod: model.MethodDiBoaSWallet,
	}
	applyBalanceEffect(balance, d, 4, time.Now())

	assert.InDelta(t, 346, balance.Available, 1e-9)
	assert.Zero(t, balance.Invested)
	assert.NotContains(t, balance.Assets, "BTC")
}
