package tui

import (
	"fmt"
	"strings"

	"github.com/diboas/diboas-go/internal/cli"
	"github.com/diboas/diboas-go/internal/model"
	"github.com/diboas/diboas-go/internal/wizard"
)

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.launched != nil {
		return m.successView()
	}

	var b strings.Builder
	b.WriteString(m.header())
	b.WriteString("\n\n")

	if m.busy {
		b.WriteString(m.spin.View() + " working...\n")
		return b.String()
	}

	switch m.wizard.CurrentStep() {
	case wizard.StepName:
		b.WriteString(cli.SubtitleStyle.Render("What is this strategy for?"))
		b.WriteString("\n" + m.nameInput.View())
	case wizard.StepInvestment:
		b.WriteString(cli.SubtitleStyle.Render("How much do you want to start with? (USD)"))
		b.WriteString("\n" + m.amountInput.View())
	case wizard.StepGoal:
		b.WriteString(m.goalView())
	case wizard.StepTimeline:
		b.WriteString(cli.SubtitleStyle.Render("How long will you stay invested? (months)"))
		b.WriteString("\n" + m.monthsInput.View())
		b.WriteString(fmt.Sprintf("\n\nRisk: %s %s",
			cli.BoldStyle.Render(string(riskLevels[m.riskIdx])),
			cli.SubtleStyle.Render("(→ to change)")))
	case wizard.StepSearch:
		b.WriteString(m.spin.View() + " searching strategies...")
	case wizard.StepSelect:
		b.WriteString(m.selectView())
	case wizard.StepReview:
		b.WriteString(m.reviewView())
	case wizard.StepLaunch:
		b.WriteString(m.reviewView())
		b.WriteString("\n\n" + cli.FormatPrompt("Press enter to launch"))
	}

	b.WriteString("\n")
	b.WriteString(m.errorView())
	b.WriteString("\n" + cli.SubtleStyle.Render("enter continue · esc back · ctrl+c quit"))
	return b.String()
}

func (m Model) header() string {
	step := m.wizard.Step()
	return cli.FormatTitle(fmt.Sprintf("Strategy wizard · step %d", step))
}

func (m Model) goalView() string {
	var b strings.Builder
	b.WriteString(cli.SubtitleStyle.Render("What should this strategy achieve?"))
	b.WriteString(fmt.Sprintf("\nGoal type: %s %s\n\n",
		cli.BoldStyle.Render(string(m.goalType())),
		cli.SubtleStyle.Render("(t to change)")))

	if m.goalType() == model.GoalTargetDate {
		b.WriteString("Target amount (USD):\n" + m.amountInput.View())
		b.WriteString("\n\nTarget date (YYYY-MM-DD):\n" + m.extraInput.View())
		b.WriteString("\n" + cli.SubtleStyle.Render("tab switches fields"))
	} else {
		b.WriteString("Income per period (USD):\n" + m.amountInput.View())
		b.WriteString(fmt.Sprintf("\n\nFrequency: %s %s",
			cli.BoldStyle.Render(frequencies[m.frequencyIdx]),
			cli.SubtleStyle.Render("(→ to change)")))
	}
	return b.String()
}

func (m Model) selectView() string {
	cfg := m.wizard.Config()
	var b strings.Builder

	b.WriteString(cli.SubtitleStyle.Render(
		fmt.Sprintf("Strategies for your goal (need %.2f%% APY)", cfg.RequiredAPY*100)))
	b.WriteString("\n\n")

	for i, tmpl := range cfg.SearchResults {
		cursor := "  "
		line := fmt.Sprintf("%-24s %-10s %6.2f%%  %s",
			tmpl.Name, tmpl.Chain, tmpl.APY*100, tmpl.Risk)
		if i == m.cursor {
			cursor = cli.PromptStyle.Render("> ")
			line = cli.BoldStyle.Render(line)
		}
		if tmpl.APY < cfg.RequiredAPY {
			line += cli.WarningStyle.Render("  below goal")
		}
		b.WriteString(cursor + line + "\n")
	}

	if len(cfg.SearchResults) == 0 {
		b.WriteString(cli.SubtleStyle.Render("no strategies matched, go back and adjust your goal"))
	}
	return b.String()
}

func (m Model) reviewView() string {
	cfg := m.wizard.Config()
	var b strings.Builder

	b.WriteString(cli.SubtitleStyle.Render("Review your strategy"))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "  %-12s %s\n", "Name", cfg.Name)
	fmt.Fprintf(&b, "  %-12s %s\n", "Investment", cli.FormatMoney(cfg.InitialAmount))
	if cfg.SelectedStrategy != nil {
		fmt.Fprintf(&b, "  %-12s %s (%s, %.2f%% APY)\n", "Strategy",
			cfg.SelectedStrategy.Name, cfg.SelectedStrategy.Chain, cfg.SelectedStrategy.APY*100)
	}
	b.WriteString("\n" + cli.SubtitleStyle.Render("Fees") + "\n")
	b.WriteString(cli.RenderFeeBreakdown(cfg.Fees))
	return b.String()
}

func (m Model) successView() string {
	var b strings.Builder
	b.WriteString(cli.FormatSuccess("Strategy launched"))
	b.WriteString("\n\n")
	if m.launched.Strategy != nil {
		fmt.Fprintf(&b, "  %-12s %s\n", "Name", m.launched.Strategy.Name)
		fmt.Fprintf(&b, "  %-12s %s\n", "Invested", cli.FormatMoney(m.launched.Strategy.InvestedAmount))
		fmt.Fprintf(&b, "  %-12s %.2f%%\n", "APY", m.launched.Strategy.APY*100)
	}
	if m.launched.Record != nil {
		fmt.Fprintf(&b, "  %-12s %s\n", "Total paid", cli.FormatMoney(m.launched.Record.Amount))
	}
	b.WriteString("\n" + cli.SubtleStyle.Render("q to exit"))
	return b.String()
}

func (m Model) errorView() string {
	var b strings.Builder
	for field, msg := range m.fieldErrors {
		b.WriteString("\n" + cli.FormatError(field+": "+msg))
	}
	if m.flowError != "" {
		b.WriteString("\n" + cli.FormatError(m.flowError))
	}
	return b.String()
}
