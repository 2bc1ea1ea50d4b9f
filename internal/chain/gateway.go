// Package chain provides the gateway that submits transactions on-chain
// and tracks their confirmation progress.
//
// The simulated gateway stands in for the real chain integrations: it
// produces deterministic transaction hashes and walks confirmations
// forward on a configurable cadence, which is enough for the flow
// orchestrator, the wizard and every test to exercise real lifecycle
// behavior without network access.
package chain

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/diboas/diboas-go/internal/common"
	"github.com/diboas/diboas-go/internal/model"
	"github.com/diboas/diboas-go/internal/service"
)

// requiredConfirmations is the finality threshold per chain.
var requiredConfirmations = map[model.Chain]int{
	model.ChainSOL: 32,
	model.ChainETH: 12,
	model.ChainBTC: 3,
	model.ChainSUI: 1,
}

// explorerBase is the transaction explorer URL prefix per chain.
var explorerBase = map[model.Chain]string{
	model.ChainSOL: "https://solscan.io/tx/",
	model.ChainETH: "https://etherscan.io/tx/",
	model.ChainBTC: "https://mempool.space/tx/",
	model.ChainSUI: "https://suivision.xyz/txblock/",
}

// txState tracks a submitted transaction inside the gateway.
type txState struct {
	submittedAt   time.Time
	chain         model.Chain
	hash          string
	required      int
	failed        bool
	failureReason string
}

// Gateway simulates transaction submission and confirmation tracking.
// It implements service.TransactionExecutor and service.StatusProvider.
type Gateway struct {
	mu      sync.Mutex
	txs     map[string]*txState
	nextErr error
	// failNext marks the next submission as an on-chain failure with the
	// given reason (accepted but reverted), as opposed to nextErr which
	// simulates the gateway itself being unreachable.
	failNext string
	cadence  time.Duration
	seq      int
}

// Option configures the gateway.
type Option func(*Gateway)

// WithCadence sets how often a simulated confirmation lands.
func WithCadence(d time.Duration) Option {
	return func(g *Gateway) { g.cadence = d }
}

// NewGateway creates a simulated chain gateway.
func NewGateway(opts ...Option) *Gateway {
	g := &Gateway{
		txs:     make(map[string]*txState),
		cadence: 250 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// FailNextSubmission makes the next Execute report an on-chain failure.
func (g *Gateway) FailNextSubmission(reason string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failNext = reason
}

// ErrNextSubmission makes the next Execute fail as if the gateway were
// unreachable.
func (g *Gateway) ErrNextSubmission(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nextErr = err
}

// Execute submits a transaction. Submission is immediate; confirmation
// progress is observed through Status or Subscribe.
func (g *Gateway) Execute(_ context.Context, userID string, d model.TransactionDescriptor) (*service.ExecutionResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.nextErr != nil {
		err := g.nextErr
		g.nextErr = nil
		return nil, fmt.Errorf("%w: %v", common.ErrChainUnreachable, err)
	}

	if !d.Chain.IsValid() {
		return &service.ExecutionResult{
			Success: false,
			Error:   fmt.Sprintf("unsupported chain %q", d.Chain),
		}, nil
	}

	g.seq++
	txID := fmt.Sprintf("tx-%06d", g.seq)
	hash := deterministicHash(userID, d, g.seq)

	state := &txState{
		submittedAt: time.Now(),
		chain:       d.Chain,
		hash:        hash,
		required:    requiredConfirmations[d.Chain],
	}
	if g.failNext != "" {
		state.failed = true
		state.failureReason = g.failNext
		g.failNext = ""
	}
	g.txs[txID] = state

	if state.failed {
		slog.Warn("Chain submission rejected",
			"tx_id", txID,
			"chain", d.Chain,
			"reason", state.failureReason)
		return &service.ExecutionResult{
			Success: false,
			TxID:    txID,
			Error:   state.failureReason,
		}, nil
	}

	slog.Info("Transaction submitted",
		"tx_id", txID,
		"chain", d.Chain,
		"type", d.Type,
		"tx_hash", hash)

	return &service.ExecutionResult{
		Success:      true,
		TxID:         txID,
		TxHash:       hash,
		ExplorerLink: explorerBase[d.Chain] + hash,
		Pending:      true,
	}, nil
}

// Status returns the current confirmation progress for a transaction.
func (g *Gateway) Status(_ context.Context, txID string) (*service.OnChainStatus, error) {
	g.mu.Lock()
	state, ok := g.txs[txID]
	cadence := g.cadence
	g.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("%w: transaction %s", common.ErrNotFound, txID)
	}

	status := &service.OnChainStatus{
		TxID:                  txID,
		RequiredConfirmations: state.required,
		ExplorerLink:          explorerBase[state.chain] + state.hash,
	}

	if state.failed {
		status.Status = "failed"
		return status, nil
	}

	elapsed := time.Since(state.submittedAt)
	confirmations := int(elapsed / cadence)
	if confirmations >= state.required {
		status.Status = "confirmed"
		status.Confirmations = state.required
	} else {
		status.Status = "pending"
		status.Confirmations = confirmations
	}

	return status, nil
}

// Subscribe streams confirmation updates until the transaction reaches a
// final status or the context is cancelled. The returned channel is
// closed when the stream ends.
func (g *Gateway) Subscribe(ctx context.Context, txID string) (<-chan service.OnChainStatus, error) {
	if _, err := g.Status(ctx, txID); err != nil {
		return nil, err
	}

	updates := make(chan service.OnChainStatus, 8)

	go func() {
		defer close(updates)

		ticker := time.NewTicker(g.cadence)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				status, err := g.Status(ctx, txID)
				if err != nil {
					return
				}

				select {
				case updates <- *status:
				case <-ctx.Done():
					return
				}

				if status.Status != "pending" {
					return
				}
			}
		}
	}()

	return updates, nil
}

// deterministicHash derives a stable pseudo-hash for a submission.
func deterministicHash(userID string, d model.TransactionDescriptor, seq int) string {
	data := fmt.Sprintf("%s:%s:%.8f:%s:%s:%d", userID, d.Type, d.Amount, d.Chain, d.Recipient, seq)
	sum := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", sum[:16])
}
