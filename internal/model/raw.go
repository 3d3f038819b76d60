package model

import (
	"encoding/json"
	"fmt"
)

// RawAnalysis is the loosely-structured analysis JSON produced by the
// upstream document/LLM layer. Field names are the upstream contract; every
// field is optional and the compiler substitutes documented defaults.
type RawAnalysis struct {
	CompensationPlans   []RawCompensationPlan   `json:"compensation_plans"`
	PlanComponents      []RawPlanComponent      `json:"plan_components"`
	RateDimensions      []RawRateDimension      `json:"rate_dimensions"`
	RateTables          []RawRateTable          `json:"rate_tables"`
	RateTableRates      []RawRateTableRate      `json:"rate_table_rates"`
	Expressions         []RawExpressionRow      `json:"expressions"`
	PerformanceMeasures []RawPerformanceMeasure `json:"performance_measures"`
	PerformanceGoals    []RawPerformanceGoal    `json:"performance_goals"`
	CreditCategories    []RawCreditCategory     `json:"credit_categories"`
	CalculationSettings []RawCalculationSetting `json:"calculation_settings"`
	Scorecards          []RawScorecard          `json:"scorecards"`
}

// ParseRawAnalysis decodes the upstream JSON, unwrapping the optional
// "oracle_mapping" envelope some producers emit around the collections.
func ParseRawAnalysis(data []byte) (*RawAnalysis, error) {
	var envelope struct {
		OracleMapping json.RawMessage `json:"oracle_mapping"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("analysis input is not valid JSON: %w", err)
	}
	if len(envelope.OracleMapping) > 0 {
		data = envelope.OracleMapping
	}
	var raw RawAnalysis
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode analysis collections: %w", err)
	}
	return &raw, nil
}

type RawCreditCategory struct {
	Name        string `json:"credit_category_name"`
	AltName     string `json:"name"`
	Description string `json:"description"`
	Action      string `json:"action"`
}

type RawRateDimension struct {
	Name          string   `json:"rate_dimension_name"`
	AltName       string   `json:"name"`
	Type          string   `json:"rate_dimension_type"`
	TierSequence  int      `json:"tier_sequence"`
	MinimumAmount *float64 `json:"minimum_amount"`
	MaximumAmount *float64 `json:"maximum_amount"`
}

type RawRateTable struct {
	Name        string `json:"rate_table_name"`
	AltName     string `json:"table_name"`
	Type        string `json:"rate_table_type"`
	DisplayName string `json:"display_name"`
}

type RawRateTableRate struct {
	RateTableName string   `json:"rate_table_name"`
	MinimumAmount *float64 `json:"minimum_amount"`
	MaximumAmount *float64 `json:"maximum_amount"`
	RateValue     float64  `json:"rate_value"`
	TierSequence  int      `json:"tier_sequence"`
}

// RawExpressionRow is one detail term of a named expression. Rows sharing
// ExpressionName form one formula, ordered by Sequence.
type RawExpressionRow struct {
	ExpressionName           string   `json:"expression_name"`
	DetailType               string   `json:"expression_detail_type"`
	Description              string   `json:"description"`
	Category                 string   `json:"expression_category"`
	Sequence                 int      `json:"sequence"`
	MeasureName              string   `json:"measure_name"`
	BasicAttributesGroup     string   `json:"basic_attributes_group"`
	BasicAttributeName       string   `json:"basic_attribute_name"`
	MeasureResultAttribute   string   `json:"measure_result_attribute"`
	PlanComponentName        string   `json:"plan_component_name"`
	ComponentResultAttribute string   `json:"plan_component_result_attribute"`
	ConstantValue            *float64 `json:"constant_value"`
	Operator                 string   `json:"expression_operator"`
}

type RawPerformanceMeasure struct {
	Name                  string `json:"name"`
	Description           string `json:"description"`
	UnitOfMeasure         string `json:"unit_of_measure"`
	StartDate             string `json:"start_date"`
	EndDate               string `json:"end_date"`
	FormulaExpressionName string `json:"measure_formula_expression_name"`
	ProcessTransactions   string `json:"process_transactions"`
	PerformanceInterval   string `json:"performance_interval"`
	ActiveFlag            string `json:"active_flag"`
	UseExternalFormula    string `json:"use_external_formula_flag"`
	RunningTotalFlag      string `json:"running_total_flag"`
	FiscalYear            int    `json:"f_year"`
	CreditCategoryName    string `json:"credit_category_name"`
	ScorecardRateTable    string `json:"scorecard_rate_table_name"`
}

type RawPerformanceGoal struct {
	MeasureName string  `json:"performance_measure_name"`
	Interval    string  `json:"goal_interval"`
	Target      float64 `json:"goal_target"`
}

type RawPlanComponent struct {
	PlanName               string   `json:"plan_name"`
	Name                   string   `json:"plan_component_name"`
	IncentiveType          string   `json:"incentive_type"`
	StartDate              string   `json:"start_date"`
	EndDate                string   `json:"end_date"`
	CalculationMethod      string   `json:"calculation_method"`
	MeasureName            string   `json:"performance_measure_name"`
	RateTableName          string   `json:"rate_table_name"`
	IncentiveFormula       string   `json:"incentive_formula_expression"`
	MeasureWeight          *float64 `json:"performance_measure_weight"`
	CalculationSequence    int      `json:"calculation_sequence"`
	EarningBasis           string   `json:"earning_basis"`
	CalculateIncentive     string   `json:"calculate_incentive"`
	CalculationPhase       *int     `json:"calculation_phase"`
	EarningType            *int     `json:"earning_type"`
	PayoutFrequency        string   `json:"payout_frequency"`
	SplitAttainment        string   `json:"split_attainment"`
	FixedWithinTier        string   `json:"fixed_within_tier"`
	TrueUp                 string   `json:"true_up"`
	TrueUpResetInterval    string   `json:"true_up_reset_interval"`
	IncludeIndirectCredits string   `json:"include_indirect_credits"`
	RateDimensionInputExpr string   `json:"rate_dimension_input_expression"`
}

type RawCompensationPlan struct {
	Name            string  `json:"name"`
	StartDate       string  `json:"start_date"`
	EndDate         string  `json:"end_date"`
	Status          string  `json:"status"`
	Description     string  `json:"description"`
	DisplayName     string  `json:"display_name"`
	TargetIncentive float64 `json:"target_incentive"`
}

type RawScorecard struct {
	Name                string `json:"scorecard_name"`
	AltName             string `json:"name"`
	MeasureName         string `json:"performance_measure_name"`
	RateTableName       string `json:"rate_table_name"`
	InputExpressionName string `json:"input_expression_name"`
	Description         string `json:"description"`
}

type RawCalculationSetting struct {
	ComponentName          string `json:"plan_component_name"`
	CalculateIncentive     string `json:"calculate_incentive"`
	ProcessTransactions    string `json:"process_transactions"`
	PayoutFrequency        string `json:"payout_frequency"`
	SplitAttainment        string `json:"split_attainment"`
	FixedWithinTier        string `json:"fixed_within_tier"`
	TrueUp                 string `json:"true_up"`
	TrueUpResetInterval    string `json:"true_up_reset_interval"`
	IncludeIndirectCredits string `json:"include_indirect_credits"`
	RunningTotal           string `json:"running_total"`
}
