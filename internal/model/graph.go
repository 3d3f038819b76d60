package model

import "strings"

// DetailKind tags one term of an expression formula. The compiler infers the
// kind from whichever operand fields a raw row populates when the upstream
// label is a generic placeholder.
type DetailKind string

const (
	KindAttributeRef    DetailKind = "AttributeRef"
	KindMeasureResult   DetailKind = "MeasureResult"
	KindComponentResult DetailKind = "ComponentResult"
	KindOperator        DetailKind = "Operator"
	KindConstant        DetailKind = "Constant"

	// KindUnresolved is the degraded fallback: no operand pattern was
	// recognizable and the row's free-text description stands in for the
	// whole formula.
	KindUnresolved DetailKind = "Unresolved"
)

// Label returns the canonical detail type label used in tabular exchanges.
// Unresolved terms label as "Calculation", the generic placeholder.
func (k DetailKind) Label() string {
	switch k {
	case KindAttributeRef:
		return "Primary object attribute"
	case KindMeasureResult:
		return "Measure result"
	case KindComponentResult:
		return "Plan component result"
	case KindOperator:
		return "Math operator"
	case KindConstant:
		return "Constant"
	default:
		return "Calculation"
	}
}

// KindFromLabel is the inverse of Label. Unrecognized labels map to
// KindUnresolved.
func KindFromLabel(label string) DetailKind {
	switch label {
	case "Primary object attribute":
		return KindAttributeRef
	case "Measure result":
		return KindMeasureResult
	case "Plan component result":
		return KindComponentResult
	case "Math operator":
		return KindOperator
	case "Constant":
		return KindConstant
	default:
		return KindUnresolved
	}
}

// ExpressionCategory classifies what a formula computes.
type ExpressionCategory string

const (
	CategoryAttainment         ExpressionCategory = "Attainment"
	CategoryEarnings           ExpressionCategory = "Earnings"
	CategoryRateDimensionInput ExpressionCategory = "RateDimensionInput"
	CategoryWeighted           ExpressionCategory = "Weighted"
)

// ExpressionStatus is the remote-computed validity of an expression. The
// compiler and orchestrator never derive it locally.
type ExpressionStatus string

const (
	StatusUnknown ExpressionStatus = ""
	StatusValid   ExpressionStatus = "VALID"
	StatusInvalid ExpressionStatus = "INVALID"
)

// CreditCategory routes raw transactions into performance measures. Action
// records whether the category is expected to already exist remotely.
type CreditCategory struct {
	Name        string
	Description string
	OrgID       int64
	Action      string // reuse | create | create_with_mapping
}

// Tier is one amount band of a rate dimension. Sequence is assigned at
// creation and immutable in the remote system.
type Tier struct {
	Sequence      int
	MinimumAmount float64
	MaximumAmount float64
}

// RateDimension defines the ordered tier bands a rate table looks rates up in.
type RateDimension struct {
	Name  string
	Type  string // AMOUNT | PERCENT | ...
	OrgID int64
	Tiers []Tier
}

// RateTableRate is one rate value bound to a tier sequence of the owning
// table's dimension.
type RateTableRate struct {
	MinimumAmount float64
	MaximumAmount float64
	RateValue     float64
	TierSequence  int
}

// RateTable owns rate rows and references the dimension whose tiers they
// index into.
type RateTable struct {
	Name          string
	Type          string
	OrgID         int64
	DisplayName   string
	DimensionName string
	Rates         []RateTableRate
}

// UnattachedRate is a rate row whose table name resolves to no declared rate
// table. It stays on the graph so the dangling reference survives to
// validation and round-trips through the tabular format unchanged.
type UnattachedRate struct {
	RateTableName string
	Rate          RateTableRate
}

// ExpressionDetail is one sequence-ordered term of a formula. Exactly the
// operand fields relevant to Kind are populated.
type ExpressionDetail struct {
	Sequence int
	Kind     DetailKind

	// Category as labeled on the raw row. All terms of one expression are
	// expected to agree; the linter flags mixes as a data-quality defect.
	Category ExpressionCategory

	// AttributeRef
	AttributeGroup string
	AttributeName  string

	// MeasureResult
	MeasureName     string
	ResultAttribute string

	// ComponentResult
	ComponentName            string
	ComponentResultAttribute string

	// Operator
	Operator string

	// Constant
	Constant string

	// Unresolved free-text fallback
	Text string
}

// Render returns the term's contribution to the formula text.
func (d ExpressionDetail) Render() string {
	switch d.Kind {
	case KindAttributeRef:
		return d.AttributeGroup + "." + d.AttributeName
	case KindMeasureResult:
		return d.MeasureName + "." + d.ResultAttribute
	case KindComponentResult:
		return d.ComponentName + "." + d.ComponentResultAttribute
	case KindOperator:
		return " " + d.Operator + " "
	case KindConstant:
		return d.Constant
	default:
		return d.Text
	}
}

// Expression is a named formula made of ordered detail terms. Status is only
// ever set from remote responses.
type Expression struct {
	Name        string
	Description string
	Category    ExpressionCategory
	OrgID       int64
	Details     []ExpressionDetail
	Status      ExpressionStatus
}

// Formula concatenates the ordered detail terms into the formula text the
// remote system evaluates, e.g. "Revenue.Amount * 0.05".
func (e Expression) Formula() string {
	var b strings.Builder
	for _, d := range e.Details {
		b.WriteString(d.Render())
	}
	return strings.TrimSpace(b.String())
}

// Shell reports whether the expression has no recognizable formula terms and
// will be deployed as name+description only, to be completed by hand.
func (e Expression) Shell() bool {
	for _, d := range e.Details {
		if d.Kind != KindUnresolved {
			return false
		}
	}
	return true
}

// PerformanceMeasure describes what gets measured and credited.
type PerformanceMeasure struct {
	Name                  string
	Description           string
	UnitOfMeasure         string
	OrgID                 int64
	StartDate             string
	EndDate               string
	FormulaExpressionName string
	ProcessTransactions   string
	PerformanceInterval   string
	ActiveFlag            string
	UseExternalFormula    string
	RunningTotalFlag      string
	FiscalYear            int
	CreditCategoryName    string
	ScorecardRateTable    string
}

// PerformanceGoal is the target attached to a measure per interval.
type PerformanceGoal struct {
	MeasureName string
	Interval    string
	Target      float64
}

// PlanComponent is one calculation unit inside a compensation plan, linking a
// measure, a rate table and the incentive formula expression.
type PlanComponent struct {
	PlanName                 string
	Name                     string
	IncentiveType            string
	StartDate                string
	EndDate                  string
	CalculationMethod        string
	OrgID                    int64
	MeasureName              string
	RateTableName            string
	RateTableStartDate       string
	RateTableEndDate         string
	IncentiveFormula         string
	MeasureWeight            float64
	CalculationSequence      int
	EarningBasis             string
	CalculateIncentive       string
	CalculationPhase         int
	EarningType              int
	PayoutFrequency          string
	SplitAttainment          string
	FixedWithinTier          string
	TrueUp                   string
	TrueUpResetInterval      string
	IncludeIndirectCredits   string
	RateDimensionInputExpr   string
}

// CompensationPlan is the top-level plan container with its ordered component
// attachments.
type CompensationPlan struct {
	Name            string
	StartDate       string
	EndDate         string
	Status          string
	Description     string
	DisplayName     string
	TargetIncentive float64
	OrgID           int64
	ComponentNames  []string
}

// Scorecard maps a measure's output to a score via a rate table.
type Scorecard struct {
	Name                string
	MeasureName         string
	RateTableName       string
	InputExpressionName string
	Description         string
}

// CalculationSetting carries the advanced per-component calculation options.
type CalculationSetting struct {
	ComponentName          string
	CalculateIncentive     string
	ProcessTransactions    string
	PayoutFrequency        string
	SplitAttainment        string
	FixedWithinTier        string
	TrueUp                 string
	TrueUpResetInterval    string
	IncludeIndirectCredits string
	RunningTotal           string
}

// Graph is the compiled, normalized object graph. Slice order is declaration
// order and is preserved end to end so downstream reports are deterministic.
type Graph struct {
	OrgID    int64
	PlanYear int

	CreditCategories    []CreditCategory
	RateDimensions      []RateDimension
	RateTables          []RateTable
	UnattachedRates     []UnattachedRate
	Expressions         []Expression
	PerformanceMeasures []PerformanceMeasure
	PerformanceGoals    []PerformanceGoal
	PlanComponents      []PlanComponent
	CompensationPlans   []CompensationPlan
	Scorecards          []Scorecard
	CalculationSettings []CalculationSetting
}

// Expression returns the named expression, or nil.
func (g *Graph) Expression(name string) *Expression {
	for i := range g.Expressions {
		if g.Expressions[i].Name == name {
			return &g.Expressions[i]
		}
	}
	return nil
}

// RateDimension returns the named dimension, or nil.
func (g *Graph) RateDimension(name string) *RateDimension {
	for i := range g.RateDimensions {
		if g.RateDimensions[i].Name == name {
			return &g.RateDimensions[i]
		}
	}
	return nil
}

// TotalObjects counts every entity in the graph, for report summaries.
func (g *Graph) TotalObjects() int {
	return len(g.CreditCategories) + len(g.RateDimensions) + len(g.RateTables) +
		len(g.Expressions) + len(g.PerformanceMeasures) + len(g.PerformanceGoals) +
		len(g.PlanComponents) + len(g.CompensationPlans) + len(g.Scorecards) +
		len(g.CalculationSettings)
}
