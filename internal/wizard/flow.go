// Package wizard implements the step-by-step strategy configuration flow:
// a linear state machine that accumulates a configuration, validates each
// step before advancing, runs the strategy search at the designated step,
// and launches the configured strategy at the end.
package wizard

// StepID identifies a wizard step by what it collects, independent of its
// position in a particular flow variant.
type StepID string

// Wizard steps.
const (
	StepName       StepID = "name"
	StepInvestment StepID = "investment"
	StepGoal       StepID = "goal"
	StepTimeline   StepID = "timeline"
	StepSearch     StepID = "search"
	StepSelect     StepID = "select"
	StepReview     StepID = "review"
	StepLaunch     StepID = "launch"
)

// Flow is an ordered set of steps. Step numbers are 1-based; the search
// step is the pivot past which cached results are discarded on backward
// navigation.
type Flow struct {
	Kind  string
	Steps []StepID
}

// FullFlow is the complete eight-step strategy configuration.
func FullFlow() Flow {
	return Flow{
		Kind: "full",
		Steps: []StepID{
			StepName, StepInvestment, StepGoal, StepTimeline,
			StepSearch, StepSelect, StepReview, StepLaunch,
		},
	}
}

// QuickFlow is the condensed five-step variant for users who skip the
// naming and timeline refinements.
func QuickFlow() Flow {
	return Flow{
		Kind: "quick",
		Steps: []StepID{
			StepInvestment, StepGoal, StepSearch, StepSelect, StepLaunch,
		},
	}
}

// FlowByKind returns the flow variant for a persisted session kind.
func FlowByKind(kind string) Flow {
	if kind == "quick" {
		return QuickFlow()
	}
	return FullFlow()
}

// Len returns the number of steps.
func (f Flow) Len() int {
	return len(f.Steps)
}

// StepAt returns the step at a 1-based position, or "" when out of range.
func (f Flow) StepAt(n int) StepID {
	if n < 1 || n > len(f.Steps) {
		return ""
	}
	return f.Steps[n-1]
}

// IndexOf returns the 1-based position of a step, or 0 when absent.
func (f Flow) IndexOf(id StepID) int {
	for i, step := range f.Steps {
		if step == id {
			return i + 1
		}
	}
	return 0
}

// SearchIndex returns the 1-based position of the search step.
func (f Flow) SearchIndex() int {
	return f.IndexOf(StepSearch)
}
