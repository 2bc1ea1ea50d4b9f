package model

import "time"

// RiskLevel buckets strategy templates by volatility of the underlying
// protocol position.
type RiskLevel string

// Risk levels.
const (
	RiskConservative RiskLevel = "conservative"
	RiskModerate     RiskLevel = "moderate"
	RiskAggressive   RiskLevel = "aggressive"
)

// StrategyTemplate is a yield strategy offered by the platform: a
// protocol position the user can enter with a configured amount.
type StrategyTemplate struct {
	ID         string
	Name       string
	Protocol   string // e.g. Aave, Compound, Marinade
	Chain      Chain
	Asset      string
	APY        float64 // current advertised APY, fractional (0.05 = 5%)
	Risk       RiskLevel
	MinDeposit float64
}

// GoalType distinguishes the two ways a user can frame a strategy goal.
type GoalType string

// Goal types.
const (
	GoalTargetDate     GoalType = "target-date"
	GoalPeriodicIncome GoalType = "periodic-income"
)

// StrategyGoal captures what the user wants the strategy to achieve.
type StrategyGoal struct {
	Type            GoalType
	TargetAmount    float64   // target-date: amount to reach
	TargetDate      time.Time // target-date: must be strictly in the future
	RecurringAmount float64   // periodic-income: desired income per period
	Frequency       string    // periodic-income: weekly, monthly, yearly
}

// SearchResult is what the strategy search returns for a goal.
type SearchResult struct {
	RequiredAPY float64
	Strategies  []StrategyTemplate
}

// WizardConfiguration accumulates the user's choices across wizard steps.
// Each step reducer returns a new value; the wizard never mutates a shared
// configuration in place.
type WizardConfiguration struct {
	Name            string
	Icon            string
	InitialAmount   float64
	RecurringAmount float64
	PaymentMethod   PaymentMethod
	Chain           Chain
	Goal            StrategyGoal
	TimelineMonths  int
	Risk            RiskLevel

	SearchResults    []StrategyTemplate
	RequiredAPY      float64
	SelectedStrategy *StrategyTemplate
	Fees             *FeeBreakdown
	LaunchedTxID     string
}

// StrategyStatus is the lifecycle state of a running strategy position.
type StrategyStatus string

// Strategy statuses.
const (
	StrategyConfiguring StrategyStatus = "configuring"
	StrategyRunning     StrategyStatus = "running"
	StrategyStopping    StrategyStatus = "stopping"
	StrategyStopped     StrategyStatus = "stopped"
)

// Strategy is a user's position in a strategy template, from launch to stop.
type Strategy struct {
	CreatedAt      time.Time
	StoppedAt      *time.Time
	ID             string
	UserID         string
	Name           string
	TemplateID     string
	Protocol       string
	Chain          Chain
	Status         StrategyStatus
	InvestedAmount float64
	CurrentValue   float64
	APY            float64
}

// StrategySession is a persisted wizard session, saved after every
// transition so an interrupted flow can resume where it left off.
type StrategySession struct {
	CreatedAt time.Time
	UpdatedAt time.Time
	ID        string
	UserID    string
	FlowKind  string // "full" (8 steps) or "quick" (5 steps)
	Step      int
	Config    WizardConfiguration
}
