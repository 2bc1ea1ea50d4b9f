package wizard

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diboas/diboas-go/internal/common"
	"github.com/diboas/diboas-go/internal/fees"
	"github.com/diboas/diboas-go/internal/model"
	"github.com/diboas/diboas-go/internal/service"
	"github.com/diboas/diboas-go/internal/storage"
	"github.com/diboas/diboas-go/internal/validation"
)

// mockSearcher returns canned results or a canned error.
type mockSearcher struct {
	result *model.SearchResult
	err    error
	calls  int
}

func (m *mockSearcher) Search(_ context.Context, _ model.StrategyGoal, _ model.WizardConfiguration) (*model.SearchResult, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

// mockExecutor returns a canned execution result or error. An optional
// onExecute hook runs while the submission is in flight.
type mockExecutor struct {
	result    *service.ExecutionResult
	err       error
	calls     int
	onExecute func()
}

func (m *mockExecutor) Execute(_ context.Context, _ string, _ model.TransactionDescriptor) (*service.ExecutionResult, error) {
	m.calls++
	if m.onExecute != nil {
		m.onExecute()
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

var testTemplate = model.StrategyTemplate{
	ID:         "sol-marinade-staking",
	Name:       "Marinade Staked SOL",
	Protocol:   "Marinade",
	Chain:      model.ChainSOL,
	Asset:      "SOL",
	APY:        0.065,
	Risk:       model.RiskConservative,
	MinDeposit: 10,
}

func testGoal() model.StrategyGoal {
	return model.StrategyGoal{
		Type:            model.GoalPeriodicIncome,
		RecurringAmount: 50,
		Frequency:       "monthly",
	}
}

// newTestWizard wires a wizard against real storage and stub collaborators,
// with a funded balance for user-1.
func newTestWizard(t *testing.T, searcher *mockSearcher, executor *mockExecutor) (*Wizard, service.Storage) {
	t.Helper()

	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "wizard.db"))
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, store.Migrate(ctx))
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.SaveBalance(ctx, &model.Balance{
		UserID:    "user-1",
		Available: 5000,
		UpdatedAt: time.Now(),
	}))

	w, err := NewWizard(Deps{
		Storage:   store,
		Validator: validation.NewValidator(store),
		Fees:      fees.NewCalculator(),
		Searcher:  searcher,
		Executor:  executor,
	})
	require.NoError(t, err)
	return w, store
}

// advanceToSelect walks a full-flow wizard from the naming step through the
// search, leaving it at the selection step.
func advanceToSelect(t *testing.T, w *Wizard) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, w.SetName(ctx, "Rainy Day", "umbrella"))
	res, err := w.Next(ctx)
	require.NoError(t, err)
	require.True(t, res.IsValid)

	require.NoError(t, w.SetInvestment(ctx, 1000, 0, model.MethodDiBoaSWallet, model.ChainSOL))
	res, err = w.Next(ctx)
	require.NoError(t, err)
	require.True(t, res.IsValid, "investment step rejected: %v", res.Errors)

	require.NoError(t, w.SetGoal(ctx, testGoal()))
	res, err = w.Next(ctx)
	require.NoError(t, err)
	require.True(t, res.IsValid)

	require.NoError(t, w.SetTimeline(ctx, 24, model.RiskConservative))
	res, err = w.Next(ctx)
	require.NoError(t, err)
	require.True(t, res.IsValid)

	require.Equal(t, StepSelect, w.CurrentStep())
}

func TestNewWizard_RequiresAllDeps(t *testing.T) {
	_, err := NewWizard(Deps{})
	require.ErrorIs(t, err, common.ErrInvalidConfig)
}

func TestWizard_NavigationRequiresSession(t *testing.T) {
	w, _ := newTestWizard(t, &mockSearcher{}, &mockExecutor{})
	_, err := w.Next(context.Background())
	require.ErrorIs(t, err, ErrNoSession)
}

func TestWizard_InvalidStepDoesNotAdvance(t *testing.T) {
	w, _ := newTestWizard(t, &mockSearcher{}, &mockExecutor{})
	ctx := context.Background()
	require.NoError(t, w.Start(ctx, "user-1", FullFlow()))

	// Empty name rejected at step 1
	res, err := w.Next(ctx)
	require.NoError(t, err)
	assert.False(t, res.IsValid)
	assert.Contains(t, res.Errors, "name")
	assert.Equal(t, 1, w.Step())

	// Below-minimum investment rejected at step 2
	require.NoError(t, w.SetName(ctx, "Rainy Day", ""))
	_, err = w.Next(ctx)
	require.NoError(t, err)
	require.NoError(t, w.SetInvestment(ctx, 20, 0, model.MethodDiBoaSWallet, model.ChainSOL))
	res, err = w.Next(ctx)
	require.NoError(t, err)
	assert.False(t, res.IsValid)
	assert.Contains(t, res.Errors, "amount")
	assert.Equal(t, StepInvestment, w.CurrentStep())
}

func TestWizard_SearchPopulatesResultsAndLandsOnSelect(t *testing.T) {
	searcher := &mockSearcher{result: &model.SearchResult{
		RequiredAPY: 0.06,
		Strategies:  []model.StrategyTemplate{testTemplate},
	}}
	w, _ := newTestWizard(t, searcher, &mockExecutor{})
	ctx := context.Background()
	require.NoError(t, w.Start(ctx, "user-1", FullFlow()))

	advanceToSelect(t, w)

	assert.Equal(t, 1, searcher.calls)
	cfg := w.Config()
	require.Len(t, cfg.SearchResults, 1)
	assert.InDelta(t, 0.06, cfg.RequiredAPY, 1e-9)
}

func TestWizard_SearchFailureReturnsToTimeline(t *testing.T) {
	searcher := &mockSearcher{err: errors.New("catalog unavailable")}
	w, _ := newTestWizard(t, searcher, &mockExecutor{})
	ctx := context.Background()
	require.NoError(t, w.Start(ctx, "user-1", FullFlow()))

	require.NoError(t, w.SetName(ctx, "Rainy Day", ""))
	_, err := w.Next(ctx)
	require.NoError(t, err)
	require.NoError(t, w.SetInvestment(ctx, 1000, 0, model.MethodDiBoaSWallet, model.ChainSOL))
	_, err = w.Next(ctx)
	require.NoError(t, err)
	require.NoError(t, w.SetGoal(ctx, testGoal()))
	_, err = w.Next(ctx)
	require.NoError(t, err)
	require.NoError(t, w.SetTimeline(ctx, 24, model.RiskConservative))

	_, err = w.Next(ctx)
	require.Error(t, err)
	assert.Equal(t, StepTimeline, w.CurrentStep())
}

func TestWizard_PreviousPastSearchClearsResults(t *testing.T) {
	searcher := &mockSearcher{result: &model.SearchResult{
		RequiredAPY: 0.06,
		Strategies:  []model.StrategyTemplate{testTemplate},
	}}
	w, _ := newTestWizard(t, searcher, &mockExecutor{})
	ctx := context.Background()
	require.NoError(t, w.Start(ctx, "user-1", FullFlow()))
	advanceToSelect(t, w)
	require.NoError(t, w.SelectStrategy(ctx, testTemplate.ID))

	// Forward to review, then one step back keeps the selection
	res, err := w.Next(ctx)
	require.NoError(t, err)
	require.True(t, res.IsValid)
	require.Equal(t, StepReview, w.CurrentStep())
	require.NoError(t, w.Previous(ctx))
	require.Equal(t, StepSelect, w.CurrentStep())
	assert.NotNil(t, w.Config().SelectedStrategy)

	// Back past the search step discards results and selection
	require.NoError(t, w.Previous(ctx))
	assert.Equal(t, StepTimeline, w.CurrentStep())
	cfg := w.Config()
	assert.Nil(t, cfg.SelectedStrategy)
	assert.Empty(t, cfg.SearchResults)
	assert.Zero(t, cfg.RequiredAPY)
}

func TestWizard_SelectStrategyRejectsUnknownID(t *testing.T) {
	searcher := &mockSearcher{result: &model.SearchResult{
		Strategies: []model.StrategyTemplate{testTemplate},
	}}
	w, _ := newTestWizard(t, searcher, &mockExecutor{})
	ctx := context.Background()
	require.NoError(t, w.Start(ctx, "user-1", FullFlow()))
	advanceToSelect(t, w)

	err := w.SelectStrategy(ctx, "eth-aave-lending")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestWizard_ReviewStepCarriesFeeQuote(t *testing.T) {
	searcher := &mockSearcher{result: &model.SearchResult{
		Strategies: []model.StrategyTemplate{testTemplate},
	}}
	w, _ := newTestWizard(t, searcher, &mockExecutor{})
	ctx := context.Background()
	require.NoError(t, w.Start(ctx, "user-1", FullFlow()))
	advanceToSelect(t, w)
	require.NoError(t, w.SelectStrategy(ctx, testTemplate.ID))

	res, err := w.Next(ctx)
	require.NoError(t, err)
	require.True(t, res.IsValid)
	require.Equal(t, StepReview, w.CurrentStep())

	quote := w.Config().Fees
	require.NotNil(t, quote)
	// $1000 on SOL: 0.9 platform + 0.001 network + 7 defi
	assert.Equal(t, "7.901", quote.Total.String())
}

func TestWizard_SessionPersistsAcrossInstances(t *testing.T) {
	searcher := &mockSearcher{result: &model.SearchResult{
		Strategies: []model.StrategyTemplate{testTemplate},
	}}
	w, store := newTestWizard(t, searcher, &mockExecutor{})
	ctx := context.Background()
	require.NoError(t, w.Start(ctx, "user-1", FullFlow()))
	advanceToSelect(t, w)
	require.NoError(t, w.SelectStrategy(ctx, testTemplate.ID))

	resumed, err := NewWizard(Deps{
		Storage:   store,
		Validator: validation.NewValidator(store),
		Fees:      fees.NewCalculator(),
		Searcher:  searcher,
		Executor:  &mockExecutor{},
	})
	require.NoError(t, err)
	require.NoError(t, resumed.Resume(ctx, "user-1", "full"))

	assert.Equal(t, StepSelect, resumed.CurrentStep())
	cfg := resumed.Config()
	require.NotNil(t, cfg.SelectedStrategy)
	assert.Equal(t, testTemplate.ID, cfg.SelectedStrategy.ID)
	assert.Equal(t, "Rainy Day", cfg.Name)
}

func TestWizard_ResumeWithoutSession(t *testing.T) {
	w, _ := newTestWizard(t, &mockSearcher{}, &mockExecutor{})
	err := w.Resume(context.Background(), "user-1", "full")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestWizard_CancelRemovesSession(t *testing.T) {
	w, store := newTestWizard(t, &mockSearcher{}, &mockExecutor{})
	ctx := context.Background()
	require.NoError(t, w.Start(ctx, "user-1", FullFlow()))
	require.NoError(t, w.Cancel(ctx))

	_, err := store.GetSession(ctx, "user-1", "full")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestWizard_QuickFlowLaunchesInFiveSteps(t *testing.T) {
	searcher := &mockSearcher{result: &model.SearchResult{
		Strategies: []model.StrategyTemplate{testTemplate},
	}}
	executor := &mockExecutor{result: &service.ExecutionResult{
		Success:      true,
		TxID:         "tx-000001",
		TxHash:       "abcd1234",
		ExplorerLink: "https://solscan.io/tx/abcd1234",
	}}
	w, _ := newTestWizard(t, searcher, executor)
	ctx := context.Background()
	require.NoError(t, w.Start(ctx, "user-1", QuickFlow()))

	require.NoError(t, w.SetInvestment(ctx, 1000, 0, model.MethodDiBoaSWallet, model.ChainSOL))
	res, err := w.Next(ctx)
	require.NoError(t, err)
	require.True(t, res.IsValid)

	require.NoError(t, w.SetGoal(ctx, testGoal()))
	_, err = w.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, StepSelect, w.CurrentStep())

	require.NoError(t, w.SelectStrategy(ctx, testTemplate.ID))
	_, err = w.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, StepLaunch, w.CurrentStep())

	launch, err := w.Launch(ctx)
	require.NoError(t, err)
	assert.True(t, launch.Success)
}

func launchReadyWizard(t *testing.T, executor *mockExecutor) (*Wizard, service.Storage) {
	t.Helper()
	searcher := &mockSearcher{result: &model.SearchResult{
		Strategies: []model.StrategyTemplate{testTemplate},
	}}
	w, store := newTestWizard(t, searcher, executor)
	ctx := context.Background()
	require.NoError(t, w.Start(ctx, "user-1", FullFlow()))
	advanceToSelect(t, w)
	require.NoError(t, w.SelectStrategy(ctx, testTemplate.ID))

	for w.CurrentStep() != StepLaunch {
		res, err := w.Next(ctx)
		require.NoError(t, err)
		require.True(t, res.IsValid)
	}
	return w, store
}

func TestWizard_LaunchSuccess(t *testing.T) {
	executor := &mockExecutor{result: &service.ExecutionResult{
		Success:      true,
		TxID:         "tx-000001",
		TxHash:       "abcd1234",
		ExplorerLink: "https://solscan.io/tx/abcd1234",
	}}
	w, store := launchReadyWizard(t, executor)
	ctx := context.Background()

	launch, err := w.Launch(ctx)
	require.NoError(t, err)
	require.True(t, launch.Success)
	require.NotNil(t, launch.Record)
	require.NotNil(t, launch.Strategy)

	// Record carries investment plus fees; the bare figure stays separate
	assert.InDelta(t, 1007.901, launch.Record.Amount, 1e-9)
	assert.InDelta(t, 1000, launch.Record.InvestmentAmount, 1e-9)
	assert.InDelta(t, 7.901, launch.Record.FeeTotal, 1e-9)
	assert.Equal(t, model.RecordCompleted, launch.Record.Status)

	// Balance moved: total out of available, investment into strategy
	balance, err := store.GetBalance(ctx, "user-1")
	require.NoError(t, err)
	assert.InDelta(t, 5000-1007.901, balance.Available, 1e-9)
	assert.InDelta(t, 1000, balance.Strategy, 1e-9)

	// Strategy is running
	strategy, err := store.GetStrategy(ctx, launch.Strategy.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StrategyRunning, strategy.Status)
	assert.InDelta(t, 1000, strategy.InvestedAmount, 1e-9)

	// Session is gone
	_, err = store.GetSession(ctx, "user-1", "full")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestWizard_LaunchKeepsBalanceWrittenDuringSubmission(t *testing.T) {
	executor := &mockExecutor{result: &service.ExecutionResult{
		Success: true,
		TxID:    "tx-000002",
		TxHash:  "beef5678",
	}}
	w, store := launchReadyWizard(t, executor)
	ctx := context.Background()

	// A deposit lands while the submission is in flight. The launch commit
	// must start from the current balance, not the preflight read.
	executor.onExecute = func() {
		balance, err := store.GetBalance(ctx, "user-1")
		require.NoError(t, err)
		balance.Available += 250
		balance.UpdatedAt = time.Now()
		require.NoError(t, store.SaveBalance(ctx, balance))
	}

	launch, err := w.Launch(ctx)
	require.NoError(t, err)
	require.True(t, launch.Success)

	balance, err := store.GetBalance(ctx, "user-1")
	require.NoError(t, err)
	assert.InDelta(t, 5000+250-1007.901, balance.Available, 1e-9)
	assert.InDelta(t, 1000, balance.Strategy, 1e-9)
}

func TestWizard_LaunchFailureRecordsZeroAmountAndAllowsRetry(t *testing.T) {
	executor := &mockExecutor{result: &service.ExecutionResult{
		Success: false,
		Error:   "insufficient gas on chain",
	}}
	w, store := launchReadyWizard(t, executor)
	ctx := context.Background()

	launch, err := w.Launch(ctx)
	require.NoError(t, err)
	assert.False(t, launch.Success)
	assert.Contains(t, launch.Err, "insufficient gas")

	// Failure recorded with zero amount, funds untouched
	require.NotNil(t, launch.Record)
	assert.Equal(t, model.RecordFailed, launch.Record.Status)
	assert.Zero(t, launch.Record.Amount)

	balance, err := store.GetBalance(ctx, "user-1")
	require.NoError(t, err)
	assert.InDelta(t, 5000, balance.Available, 1e-9)
	assert.Zero(t, balance.Strategy)

	// Wizard parked at review for a retry
	require.Equal(t, StepReview, w.CurrentStep())

	executor.result = &service.ExecutionResult{Success: true, TxID: "tx-000002", TxHash: "ef56"}
	res, err := w.Next(ctx)
	require.NoError(t, err)
	require.True(t, res.IsValid)

	retry, err := w.Launch(ctx)
	require.NoError(t, err)
	assert.True(t, retry.Success)
	assert.Equal(t, 2, executor.calls)
}

func TestWizard_LaunchExecutorErrorAlsoRecordsFailure(t *testing.T) {
	executor := &mockExecutor{err: common.ErrChainUnreachable}
	w, store := launchReadyWizard(t, executor)
	ctx := context.Background()

	launch, err := w.Launch(ctx)
	require.NoError(t, err)
	assert.False(t, launch.Success)

	records, err := store.GetTransactions(ctx, "user-1", service.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, model.RecordFailed, records[0].Status)
	assert.Zero(t, records[0].Amount)
}

func TestWizard_LaunchInsufficientTotalIsRejectedBeforeSubmission(t *testing.T) {
	executor := &mockExecutor{result: &service.ExecutionResult{Success: true}}
	searcher := &mockSearcher{result: &model.SearchResult{
		Strategies: []model.StrategyTemplate{testTemplate},
	}}
	w, store := newTestWizard(t, searcher, executor)
	ctx := context.Background()

	// Available covers the bare investment but not investment plus fees.
	require.NoError(t, store.SaveBalance(ctx, &model.Balance{
		UserID:    "user-1",
		Available: 1000,
		UpdatedAt: time.Now(),
	}))

	require.NoError(t, w.Start(ctx, "user-1", FullFlow()))
	advanceToSelect(t, w)
	require.NoError(t, w.SelectStrategy(ctx, testTemplate.ID))
	for w.CurrentStep() != StepLaunch {
		res, err := w.Next(ctx)
		require.NoError(t, err)
		require.True(t, res.IsValid)
	}

	launch, err := w.Launch(ctx)
	require.NoError(t, err)
	assert.False(t, launch.Success)
	require.NotNil(t, launch.Validation)
	assert.Contains(t, launch.Validation.Errors, "amount")
	assert.Zero(t, executor.calls)

	// Nothing recorded for a pre-flight rejection
	records, err := store.GetTransactions(ctx, "user-1", service.TransactionFilter{})
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestWizard_LaunchOnlyAtFinalStep(t *testing.T) {
	w, _ := newTestWizard(t, &mockSearcher{}, &mockExecutor{})
	ctx := context.Background()
	require.NoError(t, w.Start(ctx, "user-1", FullFlow()))

	_, err := w.Launch(ctx)
	require.ErrorIs(t, err, ErrWrongStep)
}
