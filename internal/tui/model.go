// Package tui is the interactive terminal front end for the strategy
// wizard: one screen per step, driven by the wizard engine underneath.
package tui

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/diboas/diboas-go/internal/cli"
	"github.com/diboas/diboas-go/internal/model"
	"github.com/diboas/diboas-go/internal/validation"
	"github.com/diboas/diboas-go/internal/wizard"
)

var goalTypes = []model.GoalType{model.GoalTargetDate, model.GoalPeriodicIncome}

var riskLevels = []model.RiskLevel{
	model.RiskConservative, model.RiskModerate, model.RiskAggressive,
}

var frequencies = []string{"weekly", "monthly", "yearly"}

// advancedMsg carries the outcome of a Next transition, including the
// search when the wizard just crossed the search step.
type advancedMsg struct {
	result *validation.Result
	err    error
}

// launchedMsg carries the launch outcome.
type launchedMsg struct {
	result *wizard.LaunchResult
	err    error
}

// Model is the bubbletea model for the wizard.
type Model struct {
	ctx    context.Context
	wizard *wizard.Wizard
	keymap KeyMap

	nameInput   textinput.Model
	amountInput textinput.Model
	extraInput  textinput.Model
	spin        spinner.Model

	goalTypeIdx  int
	riskIdx      int
	frequencyIdx int
	monthsInput  textinput.Model
	cursor       int
	field        int

	fieldErrors map[string]string
	flowError   string
	busy        bool
	launched    *wizard.LaunchResult
	quitting    bool
	width       int
}

// NewModel creates the wizard TUI model. The wizard must already have an
// active session (started or resumed).
func NewModel(ctx context.Context, w *wizard.Wizard) Model {
	name := textinput.New()
	name.Placeholder = "Emergency fund"
	name.CharLimit = 40
	name.Focus()

	amount := textinput.New()
	amount.Placeholder = "500"
	amount.CharLimit = 12

	extra := textinput.New()
	extra.Placeholder = "2030-01-01"
	extra.CharLimit = 12

	months := textinput.New()
	months.Placeholder = "24"
	months.CharLimit = 4

	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = lipgloss.NewStyle().Foreground(cli.PrimaryColor)

	m := Model{
		ctx:         ctx,
		wizard:      w,
		keymap:      DefaultKeyMap(),
		nameInput:   name,
		amountInput: amount,
		extraInput:  extra,
		monthsInput: months,
		spin:        spin,
		fieldErrors: map[string]string{},
	}
	m.syncFromSession()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// syncFromSession pre-fills inputs when resuming a saved session.
func (m *Model) syncFromSession() {
	cfg := m.wizard.Config()
	if cfg.Name != "" {
		m.nameInput.SetValue(cfg.Name)
	}
	if cfg.InitialAmount > 0 {
		m.amountInput.SetValue(strconv.FormatFloat(cfg.InitialAmount, 'f', -1, 64))
	}
	if cfg.TimelineMonths > 0 {
		m.monthsInput.SetValue(strconv.Itoa(cfg.TimelineMonths))
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case advancedMsg:
		m.busy = false
		m.fieldErrors = map[string]string{}
		m.flowError = ""
		if msg.err != nil {
			m.flowError = msg.err.Error()
			return m, nil
		}
		if msg.result != nil && !msg.result.IsValid {
			m.fieldErrors = msg.result.Errors
		}
		m.cursor = 0
		return m, nil

	case launchedMsg:
		m.busy = false
		m.flowError = ""
		if msg.err != nil {
			m.flowError = msg.err.Error()
			return m, nil
		}
		if msg.result.Validation != nil {
			m.fieldErrors = msg.result.Validation.Errors
			return m, nil
		}
		if !msg.result.Success {
			m.flowError = msg.result.Err
			return m, nil
		}
		m.launched = msg.result
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m.updateInputs(msg)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keymap.Quit) && (m.launched != nil || msg.String() == "ctrl+c") {
		m.quitting = true
		return m, tea.Quit
	}
	if m.busy {
		return m, nil
	}
	if m.launched != nil {
		// Success screen only quits
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keymap.Next):
		return m.handleEnter()
	case key.Matches(msg, m.keymap.Back):
		if err := m.wizard.Previous(m.ctx); err == nil {
			m.fieldErrors = map[string]string{}
			m.flowError = ""
			m.cursor = 0
		}
		return m, nil
	}

	switch m.wizard.CurrentStep() {
	case wizard.StepGoal:
		return m.handleGoalKey(msg)
	case wizard.StepTimeline:
		if key.Matches(msg, m.keymap.NextItem) {
			m.riskIdx = (m.riskIdx + 1) % len(riskLevels)
			return m, nil
		}
	case wizard.StepSelect:
		results := m.wizard.Config().SearchResults
		switch {
		case key.Matches(msg, m.keymap.Up) && m.cursor > 0:
			m.cursor--
			return m, nil
		case key.Matches(msg, m.keymap.Down) && m.cursor < len(results)-1:
			m.cursor++
			return m, nil
		}
	}

	return m.updateInputs(msg)
}

func (m Model) handleGoalKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keymap.Toggle):
		m.field = (m.field + 1) % 2
		if m.field == 0 {
			m.amountInput.Focus()
			m.extraInput.Blur()
		} else {
			m.amountInput.Blur()
			m.extraInput.Focus()
		}
		return m, nil
	case key.Matches(msg, m.keymap.NextItem):
		if m.goalType() == model.GoalPeriodicIncome {
			m.frequencyIdx = (m.frequencyIdx + 1) % len(frequencies)
		} else {
			m.goalTypeIdx = (m.goalTypeIdx + 1) % len(goalTypes)
		}
		return m, nil
	case msg.String() == "t":
		m.goalTypeIdx = (m.goalTypeIdx + 1) % len(goalTypes)
		return m, nil
	}
	return m.updateInputs(msg)
}

// handleEnter commits the current step's input and advances.
func (m Model) handleEnter() (tea.Model, tea.Cmd) {
	step := m.wizard.CurrentStep()

	switch step {
	case wizard.StepName:
		if err := m.wizard.SetName(m.ctx, m.nameInput.Value(), ""); err != nil {
			m.flowError = err.Error()
			return m, nil
		}
	case wizard.StepInvestment:
		amount, _ := strconv.ParseFloat(strings.TrimSpace(m.amountInput.Value()), 64)
		if err := m.wizard.SetInvestment(m.ctx, amount, 0, model.MethodDiBoaSWallet, ""); err != nil {
			m.flowError = err.Error()
			return m, nil
		}
	case wizard.StepGoal:
		if err := m.wizard.SetGoal(m.ctx, m.buildGoal()); err != nil {
			m.flowError = err.Error()
			return m, nil
		}
	case wizard.StepTimeline:
		months, _ := strconv.Atoi(strings.TrimSpace(m.monthsInput.Value()))
		if err := m.wizard.SetTimeline(m.ctx, months, riskLevels[m.riskIdx]); err != nil {
			m.flowError = err.Error()
			return m, nil
		}
	case wizard.StepSelect:
		results := m.wizard.Config().SearchResults
		if m.cursor < len(results) {
			if err := m.wizard.SelectStrategy(m.ctx, results[m.cursor].ID); err != nil {
				m.flowError = err.Error()
				return m, nil
			}
		}
	case wizard.StepLaunch:
		m.busy = true
		return m, tea.Batch(m.spin.Tick, m.launchCmd())
	}

	m.busy = true
	return m, tea.Batch(m.spin.Tick, m.nextCmd())
}

// buildGoal assembles the goal from the current inputs.
func (m *Model) buildGoal() model.StrategyGoal {
	amount, _ := strconv.ParseFloat(strings.TrimSpace(m.amountInput.Value()), 64)
	goal := model.StrategyGoal{Type: m.goalType()}

	if goal.Type == model.GoalTargetDate {
		goal.TargetAmount = amount
		if date, err := time.Parse("2006-01-02", strings.TrimSpace(m.extraInput.Value())); err == nil {
			goal.TargetDate = date
		}
	} else {
		goal.RecurringAmount = amount
		goal.Frequency = frequencies[m.frequencyIdx]
	}
	return goal
}

func (m Model) goalType() model.GoalType {
	return goalTypes[m.goalTypeIdx]
}

func (m Model) nextCmd() tea.Cmd {
	return func() tea.Msg {
		result, err := m.wizard.Next(m.ctx)
		return advancedMsg{result: result, err: err}
	}
}

func (m Model) launchCmd() tea.Cmd {
	return func() tea.Msg {
		result, err := m.wizard.Launch(m.ctx)
		return launchedMsg{result: result, err: err}
	}
}

func (m Model) updateInputs(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	switch m.wizard.CurrentStep() {
	case wizard.StepName:
		m.nameInput, cmd = m.nameInput.Update(msg)
		cmds = append(cmds, cmd)
	case wizard.StepInvestment:
		if !m.amountInput.Focused() {
			cmds = append(cmds, m.amountInput.Focus())
		}
		m.amountInput, cmd = m.amountInput.Update(msg)
		cmds = append(cmds, cmd)
	case wizard.StepGoal:
		if m.field == 0 && !m.amountInput.Focused() {
			cmds = append(cmds, m.amountInput.Focus())
		}
		m.amountInput, cmd = m.amountInput.Update(msg)
		cmds = append(cmds, cmd)
		m.extraInput, cmd = m.extraInput.Update(msg)
		cmds = append(cmds, cmd)
	case wizard.StepTimeline:
		if !m.monthsInput.Focused() {
			cmds = append(cmds, m.monthsInput.Focus())
		}
		m.monthsInput, cmd = m.monthsInput.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}
