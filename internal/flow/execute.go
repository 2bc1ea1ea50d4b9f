package flow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/diboas/diboas-go/internal/model"
)

// Confirm submits the confirmed transaction for execution.
//
// The descriptor is validated again first: the amount may have changed
// since Begin, and balances may have moved underneath the flow. A
// descriptor that no longer passes comes back as ErrValidationFailed and
// the flow stays in confirming so the user can correct it.
//
// A rejected or errored submission moves the flow to failed and records a
// zero-amount failed transaction. An accepted submission either completes
// immediately or moves to pending_blockchain, where a watcher tracks
// confirmations until the chain reports final status or the pending
// timeout elapses. On timeout the flow completes optimistically: the
// record is written as completed_unconfirmed with a warning, because by
// then the submission has long been accepted and holding the user hostage
// to a slow chain helps nobody.
func (o *Orchestrator) Confirm(ctx context.Context) error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return ErrClosed
	}
	if o.state != model.FlowConfirming {
		o.mu.Unlock()
		return fmt.Errorf("%w: confirm requires the confirming state", ErrInvalidTransition)
	}
	o.stopDebounceLocked()

	result, err := o.validator.Validate(ctx, o.userID, o.descriptor)
	if err != nil {
		o.mu.Unlock()
		return err
	}
	if !result.IsValid {
		o.lastError = result.Summary()
		o.notifyLocked()
		o.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrValidationFailed, result.Summary())
	}
	o.lastError = ""

	o.quote = o.fees.Calculate(o.descriptor)
	o.transitionLocked(model.FlowProcessing)
	userID := o.userID
	descriptor := o.descriptor
	o.mu.Unlock()

	exec, err := o.executor.Execute(ctx, userID, descriptor)

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != model.FlowProcessing {
		// Cancelled while the submission was in flight.
		return nil
	}

	if err != nil {
		return o.failLocked(ctx, err.Error())
	}
	if !exec.Success {
		return o.failLocked(ctx, exec.Error)
	}

	o.txID = exec.TxID
	o.txHash = exec.TxHash
	o.explorerLink = exec.ExplorerLink

	if !exec.Pending {
		return o.completeLocked(ctx, model.RecordCompleted, "")
	}

	o.transitionLocked(model.FlowPendingBlockchain)
	o.startWatchLocked()
	return nil
}

// startWatchLocked launches the confirmation watcher for the pending
// transaction. Called with o.mu held.
func (o *Orchestrator) startWatchLocked() {
	watchCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	o.watchCancel = cancel
	o.watchDone = done
	go o.watch(watchCtx, done, o.txID)
}

// watch consumes confirmation updates until the transaction is final, the
// pending timeout elapses, or the watcher is cancelled.
func (o *Orchestrator) watch(ctx context.Context, done chan struct{}, txID string) {
	defer close(done)

	timeout := time.NewTimer(o.pendingTimeout)
	defer timeout.Stop()

	updates, err := o.status.Subscribe(ctx, txID)
	if err != nil {
		o.mu.Lock()
		defer o.mu.Unlock()
		if o.state == model.FlowPendingBlockchain {
			slog.Warn("Confirmation subscription failed, completing optimistically",
				"tx_id", txID, "error", err)
			o.finishUnconfirmedLocked(ctx)
		}
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-timeout.C:
			o.mu.Lock()
			if o.state == model.FlowPendingBlockchain {
				o.finishUnconfirmedLocked(ctx)
			}
			o.mu.Unlock()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if o.handleUpdate(ctx, update.Status, update.Confirmations, update.RequiredConfirmations) {
				return
			}
		}
	}
}

// handleUpdate applies one confirmation update; reports whether the flow
// reached a final state.
func (o *Orchestrator) handleUpdate(ctx context.Context, status string, confirmations, required int) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != model.FlowPendingBlockchain {
		return true
	}

	o.confirmations = confirmations
	o.requiredConf = required

	switch status {
	case "confirmed":
		if err := o.completeLocked(ctx, model.RecordCompleted, ""); err != nil {
			slog.Error("Failed to record confirmed transaction", "tx_id", o.txID, "error", err)
		}
		return true
	case "failed":
		if err := o.failLocked(ctx, "transaction failed on chain"); err != nil {
			slog.Error("Failed to record on-chain failure", "tx_id", o.txID, "error", err)
		}
		return true
	default:
		o.notifyLocked()
		return false
	}
}

// finishUnconfirmedLocked completes the flow optimistically after the
// pending timeout. Called with o.mu held.
func (o *Orchestrator) finishUnconfirmedLocked(ctx context.Context) {
	warning := fmt.Sprintf("confirmation is taking longer than expected; the transaction was submitted and will settle on chain (track it at %s)", o.explorerLink)
	slog.Warn("Pending timeout reached, completing optimistically",
		"tx_id", o.txID, "timeout", o.pendingTimeout)
	if err := o.completeLocked(ctx, model.RecordUnconfirmed, warning); err != nil {
		slog.Error("Failed to record unconfirmed transaction", "tx_id", o.txID, "error", err)
	}
}

// completeLocked records the outcome with its balance effect and moves the
// flow to completed. Called with o.mu held.
func (o *Orchestrator) completeLocked(ctx context.Context, status model.RecordStatus, warning string) error {
	record := o.buildRecordLocked(status)

	balance, err := o.storage.GetBalance(ctx, o.userID)
	if err != nil {
		return o.failLocked(ctx, fmt.Sprintf("failed to load balance: %v", err))
	}
	applyBalanceEffect(balance, o.descriptor, o.quote.TotalFloat(), o.now())

	if err := o.storage.ApplyTransaction(ctx, record, balance); err != nil {
		return o.failLocked(ctx, fmt.Sprintf("failed to record transaction: %v", err))
	}

	o.stopWatchLocked()
	o.record = record
	o.warning = warning
	o.transitionLocked(model.FlowCompleted)
	slog.Info("Transaction flow completed",
		"tx_id", o.txID, "type", o.descriptor.Type, "status", status)
	return nil
}

// failLocked records the zero-amount failure and moves the flow to failed.
// Called with o.mu held.
func (o *Orchestrator) failLocked(ctx context.Context, reason string) error {
	record := o.buildRecordLocked(model.RecordFailed)
	record.Amount = 0
	record.InvestmentAmount = 0
	record.FeeTotal = 0
	record.Description = reason
	record.Hash = record.GenerateHash()

	if err := o.storage.ApplyTransaction(ctx, record, nil); err != nil {
		slog.Error("Failed to record flow failure", "tx_id", o.txID, "error", err)
	}

	o.stopWatchLocked()
	o.record = record
	o.lastError = fmt.Sprintf("%s; %s", reason, FundsSafeMessage)
	o.transitionLocked(model.FlowFailed)
	return nil
}

// buildRecordLocked assembles the history record for the current flow.
// Called with o.mu held.
func (o *Orchestrator) buildRecordLocked(status model.RecordStatus) *model.TransactionRecord {
	d := o.descriptor
	feeTotal := o.quote.TotalFloat()
	record := &model.TransactionRecord{
		CreatedAt:     o.now(),
		ID:            model.NewID("txn"),
		UserID:        o.userID,
		Type:          d.Type,
		Status:        status,
		Asset:         d.Asset,
		Chain:         d.Chain,
		PaymentMethod: d.PaymentMethod,
		Recipient:     d.Recipient,
		TxHash:        o.txHash,
		ExplorerLink:  o.explorerLink,
		Amount:        d.Amount,
		FeeTotal:      feeTotal,
	}
	if d.Type == model.TypeStartStrategy {
		record.Amount = d.Amount + feeTotal
		record.InvestmentAmount = d.Amount
	}
	record.Hash = record.GenerateHash()
	return record
}

// applyBalanceEffect mutates the balance buckets for a completed
// transaction. Fees are always borne by the user: money coming in credits
// amount minus fees, money going out debits amount plus fees.
func applyBalanceEffect(balance *model.Balance, d model.TransactionDescriptor, feeTotal float64, now time.Time) {
	switch d.Type {
	case model.TypeAdd:
		balance.Available += d.Amount - feeTotal
	case model.TypeWithdraw, model.TypeSend, model.TypeTransfer:
		balance.Available -= d.Amount + feeTotal
	case model.TypeBuy:
		if d.PaymentMethod.IsFiatOnRamp() {
			// External money covers amount and fees; only the position grows.
		} else {
			balance.Available -= d.Amount + feeTotal
		}
		balance.Invested += d.Amount
		creditAsset(balance, d.Asset, d.Amount)
	case model.TypeSell:
		balance.Invested -= d.Amount
		creditAsset(balance, d.Asset, -d.Amount)
		balance.Available += d.Amount - feeTotal
	case model.TypeStartStrategy:
		balance.Available -= d.Amount + feeTotal
		balance.Strategy += d.Amount
	case model.TypeStopStrategy:
		balance.Strategy -= d.Amount
		balance.Available += d.Amount - feeTotal
	}
	balance.UpdatedAt = now
}

func creditAsset(balance *model.Balance, asset string, amount float64) {
	if asset == "" {
		return
	}
	if balance.Assets == nil {
		balance.Assets = make(map[string]model.AssetBalance)
	}
	entry := balance.Assets[asset]
	entry.Asset = asset
	entry.InvestedAmount += amount
	if entry.InvestedAmount <= 0 {
		delete(balance.Assets, asset)
		return
	}
	balance.Assets[asset] = entry
}
