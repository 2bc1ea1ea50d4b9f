package search

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/diboas/diboas-go/internal/model"
)

// maxSolvableAPY caps the required-APY solver. A goal needing more than
// this is unreachable by any catalog strategy and reported as such.
const maxSolvableAPY = 3.0

// Searcher finds strategy templates that can meet a goal. It implements
// service.StrategySearcher.
type Searcher struct {
	templates []model.StrategyTemplate
	now       func() time.Time
}

// NewSearcher creates a searcher over the built-in catalog.
func NewSearcher() *Searcher {
	return &Searcher{templates: Catalog(), now: time.Now}
}

// NewSearcherWithTemplates creates a searcher over a custom template set.
func NewSearcherWithTemplates(templates []model.StrategyTemplate) *Searcher {
	return &Searcher{templates: templates, now: time.Now}
}

// Search computes the APY the goal requires and returns matching
// strategies, best fit first: the cheapest strategy that clears the
// required APY wins, so users are not pushed into more risk than the
// goal needs.
func (s *Searcher) Search(_ context.Context, goal model.StrategyGoal, config model.WizardConfiguration) (*model.SearchResult, error) {
	required, err := s.requiredAPY(goal, config)
	if err != nil {
		return nil, err
	}

	candidates := s.filter(config)

	sufficient := make([]model.StrategyTemplate, 0, len(candidates))
	insufficient := make([]model.StrategyTemplate, 0, len(candidates))
	for _, tmpl := range candidates {
		if tmpl.APY >= required {
			sufficient = append(sufficient, tmpl)
		} else {
			insufficient = append(insufficient, tmpl)
		}
	}

	// Lowest APY first among the sufficient ones; best-effort fallbacks
	// sorted highest first so the nearest miss leads.
	sort.Slice(sufficient, func(i, j int) bool { return sufficient[i].APY < sufficient[j].APY })
	sort.Slice(insufficient, func(i, j int) bool { return insufficient[i].APY > insufficient[j].APY })

	strategies := append(sufficient, insufficient...)

	slog.Info("Strategy search completed",
		"required_apy", required,
		"candidates", len(candidates),
		"sufficient", len(sufficient))

	return &model.SearchResult{
		RequiredAPY: required,
		Strategies:  strategies,
	}, nil
}

// filter narrows the catalog by the user's chain, risk and deposit size.
func (s *Searcher) filter(config model.WizardConfiguration) []model.StrategyTemplate {
	var out []model.StrategyTemplate
	for _, tmpl := range s.templates {
		if config.Chain != "" && tmpl.Chain != config.Chain {
			continue
		}
		if config.Risk != "" && tmpl.Risk != config.Risk {
			continue
		}
		if config.InitialAmount > 0 && config.InitialAmount < tmpl.MinDeposit {
			continue
		}
		out = append(out, tmpl)
	}
	return out
}

// requiredAPY computes the annual yield the goal demands.
func (s *Searcher) requiredAPY(goal model.StrategyGoal, config model.WizardConfiguration) (float64, error) {
	switch goal.Type {
	case model.GoalTargetDate:
		return s.solveTargetDateAPY(goal, config)
	case model.GoalPeriodicIncome:
		return s.periodicIncomeAPY(goal, config)
	default:
		return 0, fmt.Errorf("unknown goal type %q", goal.Type)
	}
}

// periodicIncomeAPY is the income yield: annual income over principal.
func (s *Searcher) periodicIncomeAPY(goal model.StrategyGoal, config model.WizardConfiguration) (float64, error) {
	if config.InitialAmount <= 0 {
		return 0, fmt.Errorf("periodic income goal requires a positive principal")
	}

	perYear := map[string]float64{
		"weekly":  52,
		"monthly": 12,
		"yearly":  1,
	}
	periods, ok := perYear[goal.Frequency]
	if !ok {
		return 0, fmt.Errorf("unknown income frequency %q", goal.Frequency)
	}

	return goal.RecurringAmount * periods / config.InitialAmount, nil
}

// solveTargetDateAPY finds the APY at which the initial deposit plus
// monthly contributions reaches the target amount by the target date.
// There is no closed form once contributions are involved, so bisect:
// future value is monotonic in the rate.
func (s *Searcher) solveTargetDateAPY(goal model.StrategyGoal, config model.WizardConfiguration) (float64, error) {
	months := monthsUntil(s.now(), goal.TargetDate)
	if months <= 0 {
		return 0, fmt.Errorf("target date must be in the future")
	}
	if config.InitialAmount <= 0 && config.RecurringAmount <= 0 {
		return 0, fmt.Errorf("target date goal requires a deposit or contributions")
	}

	if futureValue(config.InitialAmount, config.RecurringAmount, 0, months) >= goal.TargetAmount {
		return 0, nil
	}
	if futureValue(config.InitialAmount, config.RecurringAmount, maxSolvableAPY, months) < goal.TargetAmount {
		return maxSolvableAPY, nil
	}

	lo, hi := 0.0, maxSolvableAPY
	for i := 0; i < 64; i++ {
		mid := (lo + hi) / 2
		if futureValue(config.InitialAmount, config.RecurringAmount, mid, months) < goal.TargetAmount {
			lo = mid
		} else {
			hi = mid
		}
	}
	return hi, nil
}

// futureValue compounds monthly: principal grows the whole time, each
// monthly contribution from its own month onward.
func futureValue(principal, monthly, apy float64, months int) float64 {
	rate := math.Pow(1+apy, 1.0/12) - 1
	value := principal * math.Pow(1+rate, float64(months))
	for m := 1; m <= months; m++ {
		value += monthly * math.Pow(1+rate, float64(months-m))
	}
	return value
}

// monthsUntil counts whole months between two times, rounding up so a
// partial final month still counts as usable time.
func monthsUntil(from, to time.Time) int {
	if !to.After(from) {
		return 0
	}
	days := to.Sub(from).Hours() / 24
	return int(math.Ceil(days / 30.44))
}
