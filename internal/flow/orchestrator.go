// Package flow orchestrates a transaction from user intent to final
// disposition: quoting fees while the user edits the amount, confirming,
// submitting for execution, tracking on-chain confirmations, and recording
// the outcome with its balance effect.
package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/diboas/diboas-go/internal/common"
	"github.com/diboas/diboas-go/internal/fees"
	"github.com/diboas/diboas-go/internal/model"
	"github.com/diboas/diboas-go/internal/service"
	"github.com/diboas/diboas-go/internal/validation"
)

// Defaults for the timers the orchestrator owns.
const (
	DefaultFeeDebounce    = 500 * time.Millisecond
	DefaultPendingTimeout = 8 * time.Second
)

// FundsSafeMessage accompanies every failed flow: a failure never moves
// funds, and users need to hear that explicitly.
const FundsSafeMessage = "the transaction failed and no funds left your account"

// Orchestrator errors.
var (
	ErrInvalidTransition = errors.New("flow state does not allow this operation")
	ErrValidationFailed  = errors.New("transaction no longer passes validation")
	ErrClosed            = errors.New("flow orchestrator is closed")
)

// Snapshot is a point-in-time view of the flow, delivered to observers
// after every change.
type Snapshot struct {
	State                 model.FlowState
	Descriptor            model.TransactionDescriptor
	Fees                  *model.FeeBreakdown
	TxID                  string
	ExplorerLink          string
	Confirmations         int
	RequiredConfirmations int
	// Warning is set when the flow completed optimistically before the
	// chain reported final confirmation.
	Warning string
	Error   string
	Record  *model.TransactionRecord
}

// Deps carries the orchestrator's collaborators. All fields are required.
type Deps struct {
	Storage   service.Storage
	Validator *validation.Validator
	Fees      *fees.Calculator
	Executor  service.TransactionExecutor
	Status    service.StatusProvider
}

func (d Deps) validate() error {
	if d.Storage == nil || d.Validator == nil || d.Fees == nil ||
		d.Executor == nil || d.Status == nil {
		return fmt.Errorf("%w: flow orchestrator requires storage, validator, fees, executor and status provider", common.ErrInvalidConfig)
	}
	return nil
}

// Option adjusts orchestrator behavior.
type Option func(*Orchestrator)

// WithFeeDebounce sets how long the orchestrator waits after an amount
// edit before recomputing the fee quote.
func WithFeeDebounce(d time.Duration) Option {
	return func(o *Orchestrator) { o.debounce = d }
}

// WithPendingTimeout sets how long the orchestrator waits for on-chain
// confirmation before completing optimistically.
func WithPendingTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.pendingTimeout = d }
}

// Orchestrator drives one transaction at a time through the flow states.
// It owns every timer it starts and cancels them on state exit, so a
// cancelled flow never fires a stale callback.
type Orchestrator struct {
	storage   service.Storage
	validator *validation.Validator
	fees      *fees.Calculator
	executor  service.TransactionExecutor
	status    service.StatusProvider

	debounce       time.Duration
	pendingTimeout time.Duration
	now            func() time.Time

	mu            sync.Mutex
	closed        bool
	state         model.FlowState
	userID        string
	descriptor    model.TransactionDescriptor
	quote         *model.FeeBreakdown
	txID          string
	explorerLink  string
	txHash        string
	confirmations int
	requiredConf  int
	warning       string
	lastError     string
	record        *model.TransactionRecord

	debounceTimer *time.Timer
	watchCancel   context.CancelFunc
	watchDone     chan struct{}
	observers     map[int]chan Snapshot
	nextObserver  int
}

// NewOrchestrator creates an idle orchestrator.
func NewOrchestrator(deps Deps, opts ...Option) (*Orchestrator, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	o := &Orchestrator{
		storage:        deps.Storage,
		validator:      deps.Validator,
		fees:           deps.Fees,
		executor:       deps.Executor,
		status:         deps.Status,
		debounce:       DefaultFeeDebounce,
		pendingTimeout: DefaultPendingTimeout,
		now:            time.Now,
		state:          model.FlowIdle,
		observers:      make(map[int]chan Snapshot),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// State returns the current flow state.
func (o *Orchestrator) State() model.FlowState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Snapshot returns the current flow view.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotLocked()
}

func (o *Orchestrator) snapshotLocked() Snapshot {
	return Snapshot{
		State:                 o.state,
		Descriptor:            o.descriptor,
		Fees:                  o.quote,
		TxID:                  o.txID,
		ExplorerLink:          o.explorerLink,
		Confirmations:         o.confirmations,
		RequiredConfirmations: o.requiredConf,
		Warning:               o.warning,
		Error:                 o.lastError,
		Record:                o.record,
	}
}

// Subscribe registers an observer. The returned cancel func must be called
// to release the channel; the channel is closed when the orchestrator is.
func (o *Orchestrator) Subscribe() (<-chan Snapshot, func()) {
	o.mu.Lock()
	defer o.mu.Unlock()

	id := o.nextObserver
	o.nextObserver++
	ch := make(chan Snapshot, 16)
	o.observers[id] = ch

	cancel := func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		if existing, ok := o.observers[id]; ok {
			delete(o.observers, id)
			close(existing)
		}
	}
	return ch, cancel
}

// notifyLocked delivers the current snapshot to every observer without
// blocking; an observer that stops draining loses intermediate updates.
func (o *Orchestrator) notifyLocked() {
	snap := o.snapshotLocked()
	for _, ch := range o.observers {
		select {
		case ch <- snap:
		default:
		}
	}
}

// Begin validates a proposed transaction and, when valid, moves the flow
// from idle to confirming with a fee quote attached. Business-invalid
// input comes back in the Result and the flow stays idle.
func (o *Orchestrator) Begin(ctx context.Context, userID string, d model.TransactionDescriptor) (*validation.Result, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return nil, ErrClosed
	}
	if o.state != model.FlowIdle {
		return nil, fmt.Errorf("%w: flow already in progress (%s)", ErrInvalidTransition, o.state)
	}

	result, err := o.validator.Validate(ctx, userID, d)
	if err != nil {
		return nil, err
	}
	if !result.IsValid {
		return result, nil
	}

	o.userID = userID
	o.descriptor = d
	o.quote = o.fees.Calculate(d)
	o.transitionLocked(model.FlowConfirming)
	return result, nil
}

// UpdateAmount changes the amount while the user is still confirming. The
// fee quote recomputes after the debounce window so rapid edits produce
// one recalculation, not one per keystroke.
func (o *Orchestrator) UpdateAmount(amount float64) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != model.FlowConfirming {
		return fmt.Errorf("%w: amount can only change while confirming", ErrInvalidTransition)
	}

	o.descriptor.Amount = amount
	o.stopDebounceLocked()
	o.debounceTimer = time.AfterFunc(o.debounce, o.recalculateFees)
	return nil
}

// recalculateFees is the debounce timer callback.
func (o *Orchestrator) recalculateFees() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != model.FlowConfirming {
		return
	}
	o.quote = o.fees.Calculate(o.descriptor)
	o.notifyLocked()
}

// Cancel aborts a non-terminal flow and returns to idle. Nothing is
// recorded; all timers and watchers stop.
func (o *Orchestrator) Cancel() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state.IsTerminal() {
		return fmt.Errorf("%w: completed flows cannot be cancelled", ErrInvalidTransition)
	}
	if o.state == model.FlowIdle {
		return nil
	}

	o.resetLocked()
	o.transitionLocked(model.FlowIdle)
	return nil
}

// Retry moves a failed flow back to confirming with a fresh fee quote.
func (o *Orchestrator) Retry() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != model.FlowFailed {
		return fmt.Errorf("%w: only failed flows can be retried", ErrInvalidTransition)
	}

	o.lastError = ""
	o.record = nil
	o.quote = o.fees.Calculate(o.descriptor)
	o.transitionLocked(model.FlowConfirming)
	return nil
}

// Close shuts the orchestrator down: timers stop, the watcher exits, and
// observer channels close. Further calls return ErrClosed.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	o.stopDebounceLocked()
	cancel := o.watchCancel
	done := o.watchDone
	o.watchCancel = nil
	o.watchDone = nil
	for id, ch := range o.observers {
		delete(o.observers, id)
		close(ch)
	}
	o.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// transitionLocked moves to the next state, panicking on an illegal edge.
// Every public method checks legality first, so a panic here is a bug.
func (o *Orchestrator) transitionLocked(next model.FlowState) {
	if !o.state.CanTransition(next) {
		panic(fmt.Sprintf("illegal flow transition %s -> %s", o.state, next))
	}
	slog.Debug("Flow state transition", "from", o.state, "to", next, "tx_id", o.txID)
	o.state = next
	o.notifyLocked()
}

// resetLocked clears per-flow state and stops anything still running.
func (o *Orchestrator) resetLocked() {
	o.stopDebounceLocked()
	o.stopWatchLocked()
	o.userID = ""
	o.descriptor = model.TransactionDescriptor{}
	o.quote = nil
	o.txID = ""
	o.explorerLink = ""
	o.txHash = ""
	o.confirmations = 0
	o.requiredConf = 0
	o.warning = ""
	o.lastError = ""
	o.record = nil
}

func (o *Orchestrator) stopDebounceLocked() {
	if o.debounceTimer != nil {
		o.debounceTimer.Stop()
		o.debounceTimer = nil
	}
}

// stopWatchLocked cancels the confirmation watcher without waiting for it;
// the watcher re-checks state under lock before acting, so a cancelled
// watcher can never complete a flow that already moved on.
func (o *Orchestrator) stopWatchLocked() {
	if o.watchCancel != nil {
		o.watchCancel()
		o.watchCancel = nil
		o.watchDone = nil
	}
}
