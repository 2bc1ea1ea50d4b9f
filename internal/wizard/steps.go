package wizard

import (
	"strings"

	"github.com/diboas/diboas-go/internal/model"
)

// Step reducers: each applies one step's input to a configuration and
// returns the updated copy. Keeping them as pure functions keeps the
// wizard transitions testable without touching storage.

func applyName(cfg model.WizardConfiguration, name, icon string) model.WizardConfiguration {
	cfg.Name = strings.TrimSpace(name)
	cfg.Icon = icon
	return cfg
}

func applyInvestment(cfg model.WizardConfiguration, amount, recurring float64, method model.PaymentMethod, chain model.Chain) model.WizardConfiguration {
	cfg.InitialAmount = amount
	cfg.RecurringAmount = recurring
	cfg.PaymentMethod = method
	cfg.Chain = chain
	return cfg
}

func applyGoal(cfg model.WizardConfiguration, goal model.StrategyGoal) model.WizardConfiguration {
	cfg.Goal = goal
	return cfg
}

func applyTimeline(cfg model.WizardConfiguration, months int, risk model.RiskLevel) model.WizardConfiguration {
	cfg.TimelineMonths = months
	cfg.Risk = risk
	return cfg
}

func applySelection(cfg model.WizardConfiguration, tmpl model.StrategyTemplate) model.WizardConfiguration {
	selected := tmpl
	cfg.SelectedStrategy = &selected
	return cfg
}

// clearSearchState discards everything derived from a completed search.
// Invoked whenever backward navigation lands at or before the search step,
// since the inputs that produced the results may be about to change.
func clearSearchState(cfg model.WizardConfiguration) model.WizardConfiguration {
	cfg.SearchResults = nil
	cfg.SelectedStrategy = nil
	cfg.RequiredAPY = 0
	cfg.Fees = nil
	return cfg
}
