package wizard

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/diboas/diboas-go/internal/model"
	"github.com/diboas/diboas-go/internal/validation"
)

// LaunchResult is the outcome of submitting the configured strategy.
type LaunchResult struct {
	Success bool
	// Validation is set when pre-submission checks rejected the launch;
	// nothing was recorded and the user can fix the inputs.
	Validation *validation.Result
	// Err describes a submission failure. A failed submission is recorded
	// with a zero amount: no funds moved.
	Err      string
	TxID     string
	Record   *model.TransactionRecord
	Strategy *model.Strategy
}

// Launch submits the configured strategy at the final step.
//
// A submission failure records a zero-amount failed transaction and moves
// the wizard back to the review step so the user can retry. Success
// atomically records the transaction with amount = investment + fees,
// deducts that total from the available balance, credits the strategy
// bucket with the bare investment, saves the running strategy, and clears
// the persisted session.
func (w *Wizard) Launch(ctx context.Context) (*LaunchResult, error) {
	w.mu.Lock()
	if err := w.readyLocked(); err != nil {
		w.mu.Unlock()
		return nil, err
	}
	if w.flow.StepAt(w.session.Step) != StepLaunch {
		w.mu.Unlock()
		return nil, fmt.Errorf("%w: launch is only available at the final step", ErrWrongStep)
	}
	if w.session.Config.SelectedStrategy == nil {
		w.mu.Unlock()
		return nil, fmt.Errorf("%w: no strategy selected", ErrWrongStep)
	}

	descriptor := w.investmentDescriptorLocked()
	userID := w.session.UserID

	result, err := w.validator.Validate(ctx, userID, descriptor)
	if err != nil {
		w.mu.Unlock()
		return nil, err
	}
	if !result.IsValid {
		w.mu.Unlock()
		return &LaunchResult{Validation: result}, nil
	}

	// The launch deducts investment plus fees, so the balance check must
	// cover the full total, not just the descriptor amount.
	quote := w.fees.Calculate(descriptor)
	total := descriptor.Amount + quote.TotalFloat()
	balance, err := w.storage.GetBalance(ctx, userID)
	if err != nil {
		w.mu.Unlock()
		return nil, fmt.Errorf("failed to check balance before launch: %w", err)
	}
	if balance.Available < total {
		w.mu.Unlock()
		shortfall := &validation.Result{Errors: map[string]string{
			"amount": fmt.Sprintf("insufficient balance: launching needs $%.2f including fees, $%.2f available",
				total, balance.Available),
		}}
		return &LaunchResult{Validation: shortfall}, nil
	}

	w.busy = true
	w.mu.Unlock()

	exec, execErr := w.executor.Execute(ctx, userID, descriptor)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.busy = false

	if execErr != nil || !exec.Success {
		reason := "strategy launch was rejected"
		if execErr != nil {
			reason = execErr.Error()
		} else if exec.Error != "" {
			reason = exec.Error
		}
		return w.recordLaunchFailureLocked(ctx, descriptor, reason)
	}

	return w.recordLaunchSuccessLocked(ctx, descriptor, quote, exec.TxHash, exec.ExplorerLink)
}

// recordLaunchFailureLocked writes the zero-amount failed record and parks
// the wizard at the review step for a retry. Called with w.mu held.
func (w *Wizard) recordLaunchFailureLocked(ctx context.Context, d model.TransactionDescriptor, reason string) (*LaunchResult, error) {
	record := &model.TransactionRecord{
		CreatedAt:     w.now(),
		ID:            model.NewID("txn"),
		UserID:        w.session.UserID,
		Type:          d.Type,
		Status:        model.RecordFailed,
		Asset:         d.Asset,
		Chain:         d.Chain,
		PaymentMethod: d.PaymentMethod,
		Description:   reason,
	}
	record.Hash = record.GenerateHash()

	if err := w.storage.ApplyTransaction(ctx, record, nil); err != nil {
		return nil, fmt.Errorf("failed to record launch failure: %w", err)
	}

	if review := w.flow.IndexOf(StepReview); review > 0 {
		w.session.Step = review
	}
	if err := w.persistLocked(ctx); err != nil {
		slog.Warn("Failed to persist wizard session after launch failure", "error", err)
	}

	slog.Info("Strategy launch failed, no funds moved",
		"user_id", w.session.UserID, "reason", reason)
	return &LaunchResult{Err: reason, Record: record}, nil
}

// recordLaunchSuccessLocked commits the record, the balance mutation and
// the running strategy in one database transaction, then clears the
// session. The balance is read again inside the transaction: the preflight
// copy can be stale by the time the submission returns, and SaveBalance
// rewrites the buckets wholesale. Called with w.mu held.
func (w *Wizard) recordLaunchSuccessLocked(ctx context.Context, d model.TransactionDescriptor, quote *model.FeeBreakdown, txHash, explorerLink string) (*LaunchResult, error) {
	cfg := w.session.Config
	tmpl := cfg.SelectedStrategy
	now := w.now()
	feeTotal := quote.TotalFloat()
	total := d.Amount + feeTotal

	record := &model.TransactionRecord{
		CreatedAt:        now,
		ID:               model.NewID("txn"),
		UserID:           w.session.UserID,
		Type:             d.Type,
		Status:           model.RecordCompleted,
		Asset:            d.Asset,
		Chain:            d.Chain,
		PaymentMethod:    d.PaymentMethod,
		TxHash:           txHash,
		ExplorerLink:     explorerLink,
		Description:      fmt.Sprintf("Launched strategy %s", cfg.Name),
		Amount:           total,
		InvestmentAmount: d.Amount,
		FeeTotal:         feeTotal,
	}
	record.Hash = record.GenerateHash()

	strategy := &model.Strategy{
		CreatedAt:      now,
		ID:             model.NewID("strat"),
		UserID:         w.session.UserID,
		Name:           cfg.Name,
		TemplateID:     tmpl.ID,
		Protocol:       tmpl.Protocol,
		Chain:          tmpl.Chain,
		Status:         model.StrategyRunning,
		InvestedAmount: d.Amount,
		CurrentValue:   d.Amount,
		APY:            tmpl.APY,
	}

	tx, err := w.storage.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin launch transaction: %w", err)
	}
	balance, err := tx.GetBalance(ctx, w.session.UserID)
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to load balance for launch: %w", err)
	}
	balance.Available -= total
	balance.Strategy += d.Amount
	balance.UpdatedAt = now
	if err := tx.SaveTransaction(ctx, record); err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to record launch: %w", err)
	}
	if err := tx.SaveBalance(ctx, balance); err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to update balance for launch: %w", err)
	}
	if err := tx.SaveStrategy(ctx, strategy); err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to save launched strategy: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit launch: %w", err)
	}

	if err := w.storage.DeleteSession(ctx, w.session.UserID, w.session.FlowKind); err != nil {
		slog.Warn("Failed to clear wizard session after launch", "error", err)
	}

	slog.Info("Strategy launched",
		"user_id", w.session.UserID,
		"strategy_id", strategy.ID,
		"invested", d.Amount,
		"fees", feeTotal)

	result := &LaunchResult{
		Success:  true,
		TxID:     record.ID,
		Record:   record,
		Strategy: strategy,
	}
	w.session = nil
	return result, nil
}
