package wizard

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

// Wizard errors.
var (
	// ErrBusy is returned when a navigation call arrives while the search
	// or the launch submission is still running.
	ErrBusy = errors.New("wizard is busy, wait for the current step to finish")
	// ErrWrongStep is returned when an operation is invoked at a step that
	// does not support it.
	ErrWrongStep = errors.New("operation not available at the current step")
	// ErrNoSession is returned when navigation is attempted before Start
	// or Resume.
	ErrNoSession = errors.New("no active wizard session")
)

// Deps carries the collaborators a wizard needs. All fields are required.
type Deps struct {
	Storage   service.Storage
	Validator *validation.Validator
	Fees      *fees.Calculator
	Searcher  service.StrategySearcher
	Executor  service.TransactionExecutor
}

func (d Deps) validate() error {
	if d.Storage == nil || d.Validator == nil || d.Fees == nil ||
		d.Searcher == nil || d.Executor == nil {
		return fmt.Errorf("%w: wizard requires storage, validator, fees, searcher and executor", common.ErrInvalidConfig)
	}
	return nil
}

// Wizard drives one user's strategy configuration session through a flow's
// steps. The session is persisted after every transition so an interrupted
// flow resumes where it left off.
//
// Methods are safe for concurrent use; navigation during an in-flight
// search or launch returns ErrBusy rather than queueing.
type Wizard struct {
	storage   service.Storage
	validator *validation.Validator
	fees      *fees.Calculator
	searcher  service.StrategySearcher
	executor  service.TransactionExecutor
	now       func() time.Time

	mu      sync.Mutex
	busy    bool
	flow    Flow
	session *model.StrategySession
}

// NewWizard creates a wizard. Call Start or Resume before navigating.
func NewWizard(deps Deps) (*Wizard, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	return &Wizard{
		storage:   deps.Storage,
		validator: deps.Validator,
		fees:      deps.Fees,
		searcher:  deps.Searcher,
		executor:  deps.Executor,
		now:       time.Now,
	}, nil
}

// Start begins a fresh session for the user in the given flow, replacing
// any persisted session of the same kind.
func (w *Wizard) Start(ctx context.Context, userID string, flow Flow) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	w.flow = flow
	w.session = &model.StrategySession{
		CreatedAt: now,
		UpdatedAt: now,
		ID:        model.NewID("ws"),
		UserID:    userID,
		FlowKind:  flow.Kind,
		Step:      1,
	}
	return w.persistLocked(ctx)
}

// Resume loads the user's persisted session of the given flow kind.
// Returns common.ErrNotFound (wrapped) when there is nothing to resume.
func (w *Wizard) Resume(ctx context.Context, userID, kind string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	session, err := w.storage.GetSession(ctx, userID, kind)
	if err != nil {
		return fmt.Errorf("failed to resume wizard session: %w", err)
	}
	w.flow = FlowByKind(kind)
	w.session = session
	return nil
}

// Step returns the current 1-based step number.
func (w *Wizard) Step() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.session == nil {
		return 0
	}
	return w.session.Step
}

// CurrentStep returns the identity of the current step.
func (w *Wizard) CurrentStep() StepID {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.session == nil {
		return ""
	}
	return w.flow.StepAt(w.session.Step)
}

// Config returns a copy of the accumulated configuration.
func (w *Wizard) Config() model.WizardConfiguration {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.session == nil {
		return model.WizardConfiguration{}
	}
	return w.session.Config
}

// SetName records the strategy name and icon for the naming step.
func (w *Wizard) SetName(ctx context.Context, name, icon string) error {
	return w.apply(ctx, func(cfg model.WizardConfiguration) model.WizardConfiguration {
		return applyName(cfg, name, icon)
	})
}

// SetInvestment records the initial amount, optional recurring amount,
// payment method and preferred chain.
func (w *Wizard) SetInvestment(ctx context.Context, amount, recurring float64, method model.PaymentMethod, chain model.Chain) error {
	return w.apply(ctx, func(cfg model.WizardConfiguration) model.WizardConfiguration {
		return applyInvestment(cfg, amount, recurring, method, chain)
	})
}

// SetGoal records the strategy goal.
func (w *Wizard) SetGoal(ctx context.Context, goal model.StrategyGoal) error {
	return w.apply(ctx, func(cfg model.WizardConfiguration) model.WizardConfiguration {
		return applyGoal(cfg, goal)
	})
}

// SetTimeline records the investment horizon and risk preference.
func (w *Wizard) SetTimeline(ctx context.Context, months int, risk model.RiskLevel) error {
	return w.apply(ctx, func(cfg model.WizardConfiguration) model.WizardConfiguration {
		return applyTimeline(cfg, months, risk)
	})
}

// SelectStrategy picks one of the search results by template ID.
func (w *Wizard) SelectStrategy(ctx context.Context, templateID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.readyLocked(); err != nil {
		return err
	}

	for _, tmpl := range w.session.Config.SearchResults {
		if tmpl.ID == templateID {
			w.session.Config = applySelection(w.session.Config, tmpl)
			return w.persistLocked(ctx)
		}
	}
	return fmt.Errorf("strategy %q is not among the search results: %w", templateID, common.ErrNotFound)
}

// apply runs a step reducer against the configuration and persists.
func (w *Wizard) apply(ctx context.Context, reduce func(model.WizardConfiguration) model.WizardConfiguration) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.readyLocked(); err != nil {
		return err
	}
	w.session.Config = reduce(w.session.Config)
	return w.persistLocked(ctx)
}

// Next validates the current step and advances. Business-invalid input
// comes back in the Result with no advance; only infrastructure failures
// return an error. When the step ahead is the search step, Next runs the
// search and lands on the selection step with results populated.
func (w *Wizard) Next(ctx context.Context) (*validation.Result, error) {
	w.mu.Lock()
	if err := w.readyLocked(); err != nil {
		w.mu.Unlock()
		return nil, err
	}
	if w.session.Step >= w.flow.Len() {
		w.mu.Unlock()
		return nil, fmt.Errorf("%w: already at the final step", ErrWrongStep)
	}

	result, err := w.validateStepLocked(ctx)
	if err != nil {
		w.mu.Unlock()
		return nil, err
	}
	if !result.IsValid {
		w.mu.Unlock()
		return result, nil
	}

	if w.flow.StepAt(w.session.Step+1) == StepSearch {
		return w.runSearchLocked(ctx, result)
	}

	w.session.Step++
	w.refreshFeesLocked()
	if err := w.persistLocked(ctx); err != nil {
		w.mu.Unlock()
		return nil, err
	}
	w.mu.Unlock()
	return result, nil
}

// runSearchLocked executes the search step. The wizard is marked busy and
// the lock released for the duration of the search so status queries stay
// responsive; concurrent navigation gets ErrBusy. Called with w.mu held;
// releases it before returning.
func (w *Wizard) runSearchLocked(ctx context.Context, result *validation.Result) (*validation.Result, error) {
	w.busy = true
	w.session.Step = w.flow.SearchIndex()
	goal := w.session.Config.Goal
	cfg := w.session.Config
	w.mu.Unlock()

	found, searchErr := w.searcher.Search(ctx, goal, cfg)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.busy = false

	if searchErr != nil {
		// Back to the step that triggered the search so the user can
		// adjust inputs and retry.
		w.session.Step = w.flow.SearchIndex() - 1
		if err := w.persistLocked(ctx); err != nil {
			slog.Warn("Failed to persist wizard session after search error", "error", err)
		}
		return nil, fmt.Errorf("strategy search failed: %w", searchErr)
	}

	w.session.Config.SearchResults = found.Strategies
	w.session.Config.RequiredAPY = found.RequiredAPY
	w.session.Step = w.flow.SearchIndex() + 1
	if err := w.persistLocked(ctx); err != nil {
		return nil, err
	}
	return result, nil
}

// Previous steps back one step, skipping the transient search step.
// Landing at or before the search step discards search results and the
// selected strategy, since the inputs that produced them may change.
func (w *Wizard) Previous(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.readyLocked(); err != nil {
		return err
	}
	if w.session.Step <= 1 {
		return nil
	}

	target := w.session.Step - 1
	if w.flow.StepAt(target) == StepSearch {
		target--
	}
	if target < 1 {
		target = 1
	}

	w.session.Step = target
	if target <= w.flow.SearchIndex() {
		w.session.Config = clearSearchState(w.session.Config)
	}
	return w.persistLocked(ctx)
}

// Cancel abandons the session and removes its persisted state.
func (w *Wizard) Cancel(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.session == nil {
		return nil
	}
	if w.busy {
		return ErrBusy
	}
	if err := w.storage.DeleteSession(ctx, w.session.UserID, w.session.FlowKind); err != nil {
		return fmt.Errorf("failed to delete wizard session: %w", err)
	}
	w.session = nil
	return nil
}

// validateStepLocked checks the current step's accumulated input.
func (w *Wizard) validateStepLocked(ctx context.Context) (*validation.Result, error) {
	cfg := w.session.Config
	result := &validation.Result{Errors: make(map[string]string), IsValid: true}
	fail := func(field, msg string) {
		result.Errors[field] = msg
		result.IsValid = false
	}

	switch w.flow.StepAt(w.session.Step) {
	case StepName:
		if cfg.Name == "" {
			fail("name", "give your strategy a name")
		}
	case StepInvestment:
		return w.validator.Validate(ctx, w.session.UserID, w.investmentDescriptorLocked())
	case StepGoal:
		return w.validator.ValidateGoal(cfg.Goal), nil
	case StepTimeline:
		if cfg.TimelineMonths <= 0 {
			fail("timeline", "choose an investment horizon")
		}
	case StepSelect:
		if cfg.SelectedStrategy == nil {
			fail("strategy", "choose a strategy to continue")
		}
	case StepReview:
		if cfg.Fees == nil {
			fail("fees", "fee quote unavailable, go back and try again")
		}
	}
	return result, nil
}

// investmentDescriptorLocked builds the transaction the launch will submit,
// from whatever the configuration holds so far. Before a strategy is
// selected the chain is the user's preference; afterwards it follows the
// selected strategy.
func (w *Wizard) investmentDescriptorLocked() model.TransactionDescriptor {
	cfg := w.session.Config
	d := model.TransactionDescriptor{
		Type:          model.TypeStartStrategy,
		Amount:        cfg.InitialAmount,
		PaymentMethod: cfg.PaymentMethod,
		Chain:         cfg.Chain,
	}
	if d.PaymentMethod == "" {
		d.PaymentMethod = model.MethodDiBoaSWallet
	}
	if cfg.SelectedStrategy != nil {
		d.Chain = cfg.SelectedStrategy.Chain
		d.Asset = cfg.SelectedStrategy.Asset
	}
	return d
}

// refreshFeesLocked recomputes the fee quote when the wizard reaches a
// step that displays it.
func (w *Wizard) refreshFeesLocked() {
	step := w.flow.StepAt(w.session.Step)
	if step != StepReview && step != StepLaunch {
		return
	}
	if w.session.Config.SelectedStrategy == nil {
		return
	}
	w.session.Config.Fees = w.fees.Calculate(w.investmentDescriptorLocked())
}

func (w *Wizard) readyLocked() error {
	if w.session == nil {
		return ErrNoSession
	}
	if w.busy {
		return ErrBusy
	}
	return nil
}

func (w *Wizard) persistLocked(ctx context.Context) error {
	w.session.UpdatedAt = w.now()
	if err := w.storage.SaveSession(ctx, w.session); err != nil {
		return fmt.Errorf("failed to persist wizard session: %w", err)
	}
	return nil
}
