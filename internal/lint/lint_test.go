package lint

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planlytics/planforge/internal/model"
)

func cleanGraph() *model.Graph {
	return &model.Graph{
		OrgID:    204,
		PlanYear: 2026,
		CreditCategories: []model.CreditCategory{
			{Name: "Sales Credit"},
		},
		RateTables: []model.RateTable{
			{Name: "Commission Rates", Rates: []model.RateTableRate{
				{MinimumAmount: 0, MaximumAmount: 100, RateValue: 0.05, TierSequence: 1},
				{MinimumAmount: 100, MaximumAmount: 999999, RateValue: 0.08, TierSequence: 2},
			}},
		},
		Expressions: []model.Expression{
			{Name: "Revenue Calc", Details: []model.ExpressionDetail{
				{Sequence: 1, Kind: model.KindAttributeRef, AttributeGroup: "Revenue", AttributeName: "Amount", Category: model.CategoryEarnings},
			}},
		},
		PerformanceMeasures: []model.PerformanceMeasure{
			{Name: "Revenue Measure", FormulaExpressionName: "Revenue Calc", CreditCategoryName: "Sales Credit"},
		},
		PerformanceGoals: []model.PerformanceGoal{
			{MeasureName: "Revenue Measure", Target: 500000},
		},
		PlanComponents: []model.PlanComponent{
			{
				Name: "Revenue Component", PlanName: "Sales Plan",
				MeasureName: "Revenue Measure", RateTableName: "Commission Rates",
				IncentiveFormula: "Revenue Calc", CalculationMethod: "Tiered",
				CalculateIncentive: "COMMISSION", TrueUp: "No", IncludeIndirectCredits: "None",
			},
		},
		CompensationPlans: []model.CompensationPlan{
			{Name: "Sales Plan", ComponentNames: []string{"Revenue Component"}},
		},
		CalculationSettings: []model.CalculationSetting{
			{ComponentName: "Revenue Component"},
		},
	}
}

func TestAnalyzeCleanConfiguration(t *testing.T) {
	report := Analyze(cleanGraph())
	assert.Equal(t, 100, report.Score)
	assert.Empty(t, report.Findings)
	assert.Equal(t, 0, report.Summary.TotalFindings)
	assert.Equal(t, cleanGraph().TotalObjects(), report.Summary.TotalObjects)
}

func TestAnalyzeMissingGoals(t *testing.T) {
	g := cleanGraph()
	g.PerformanceGoals = nil
	report := Analyze(g)
	assert.Equal(t, 92, report.Score)
	require.Len(t, report.Findings, 1)
	assert.Equal(t, SeverityHigh, report.Findings[0].Severity)
	assert.Contains(t, report.Findings[0].Title, "no performance goals")
	assert.Equal(t, 1, report.Summary.HighSeverity)
}

func TestAnalyzeDuplicateExpressions(t *testing.T) {
	g := cleanGraph()
	dup := g.Expressions[0]
	dup.Name = "Revenue Calc Copy"
	g.Expressions = append(g.Expressions, dup)
	g.PerformanceMeasures = append(g.PerformanceMeasures, model.PerformanceMeasure{
		Name: "Second Measure", FormulaExpressionName: "Revenue Calc Copy", CreditCategoryName: "Sales Credit",
	})
	g.PerformanceGoals = append(g.PerformanceGoals, model.PerformanceGoal{MeasureName: "Second Measure"})
	g.PlanComponents = append(g.PlanComponents, model.PlanComponent{
		Name: "Second Component", PlanName: "Sales Plan", MeasureName: "Second Measure",
		RateTableName: "Commission Rates", IncentiveFormula: "Revenue Calc Copy",
		CalculateIncentive: "COMMISSION", TrueUp: "No", IncludeIndirectCredits: "None",
	})
	g.CalculationSettings = append(g.CalculationSettings, model.CalculationSetting{ComponentName: "Second Component"})

	report := Analyze(g)
	require.Len(t, report.Findings, 1)
	assert.Equal(t, "Duplicate Expressions", report.Findings[0].Category)
	assert.Equal(t, SeverityMedium, report.Findings[0].Severity)
	assert.Contains(t, report.Findings[0].Detail, "Revenue Calc, Revenue Calc Copy")
	assert.Equal(t, 96, report.Score)
}

func TestAnalyzeUnusedObjects(t *testing.T) {
	g := cleanGraph()
	g.RateTables = append(g.RateTables, model.RateTable{Name: "Orphan Rates", Rates: []model.RateTableRate{{}, {}}})
	g.Expressions = append(g.Expressions, model.Expression{Name: "Orphan Calc", Details: []model.ExpressionDetail{
		{Kind: model.KindConstant, Constant: "1", Category: model.CategoryEarnings},
	}})
	g.PerformanceMeasures = append(g.PerformanceMeasures, model.PerformanceMeasure{
		Name: "Orphan Measure", CreditCategoryName: "Sales Credit",
	})
	g.PerformanceGoals = append(g.PerformanceGoals, model.PerformanceGoal{MeasureName: "Orphan Measure"})

	report := Analyze(g)
	categories := map[string]int{}
	for _, f := range report.Findings {
		categories[f.Category]++
	}
	assert.Equal(t, 3, categories["Unused Objects"])
	// two medium (table, measure) and one low (expressions)
	assert.Equal(t, 100-4-4-2, report.Score)
}

func TestAnalyzeSimplification(t *testing.T) {
	t.Run("single tier table", func(t *testing.T) {
		g := cleanGraph()
		g.RateTables[0].Rates = g.RateTables[0].Rates[:1]
		report := Analyze(g)
		require.Len(t, report.Findings, 1)
		assert.Contains(t, report.Findings[0].Title, "only 1 tier")
		assert.Equal(t, 98, report.Score)
	})

	t.Run("tiered without table", func(t *testing.T) {
		g := cleanGraph()
		g.PlanComponents[0].RateTableName = ""
		report := Analyze(g)
		var titles []string
		for _, f := range report.Findings {
			titles = append(titles, f.Title)
		}
		assert.Contains(t, titles, "Component 'Revenue Component' is Tiered without a rate table")
	})
}

func TestAnalyzeMixedCategories(t *testing.T) {
	g := cleanGraph()
	g.Expressions[0].Details = append(g.Expressions[0].Details, model.ExpressionDetail{
		Sequence: 2, Kind: model.KindOperator, Operator: "*", Category: model.CategoryAttainment,
	})
	report := Analyze(g)
	require.Len(t, report.Findings, 1)
	assert.Equal(t, "Data Quality", report.Findings[0].Category)
	assert.Contains(t, report.Findings[0].Title, "mixed categories")
}

func TestAnalyzeScoreClamping(t *testing.T) {
	g := &model.Graph{}
	for i := 0; i < 30; i++ {
		g.PerformanceMeasures = append(g.PerformanceMeasures, model.PerformanceMeasure{
			Name: fmt.Sprintf("Measure %02d", i),
		})
	}
	report := Analyze(g)
	assert.Equal(t, 0, report.Score)
}

func TestAnalyzeTrueUpThreshold(t *testing.T) {
	g := cleanGraph()
	for i := 0; i < 4; i++ {
		name := fmt.Sprintf("Component %d", i)
		g.PlanComponents = append(g.PlanComponents, model.PlanComponent{
			Name: name, PlanName: "Sales Plan", MeasureName: "Revenue Measure",
			RateTableName: "Commission Rates", IncentiveFormula: "Revenue Calc",
			CalculateIncentive: "Per interval", TrueUp: "No", IncludeIndirectCredits: "None",
		})
		g.CalculationSettings = append(g.CalculationSettings, model.CalculationSetting{ComponentName: name})
	}
	report := Analyze(g)
	var found bool
	for _, f := range report.Findings {
		if f.Category == "Best Practice" && f.Severity == SeverityInfo {
			found = true
			assert.Contains(t, f.Title, "without true-up")
		}
	}
	assert.True(t, found)
}

func TestAnalyzeTrueUpFromCalculationSettings(t *testing.T) {
	g := cleanGraph()
	for i := 0; i < 4; i++ {
		name := fmt.Sprintf("Component %d", i)
		g.PlanComponents = append(g.PlanComponents, model.PlanComponent{
			Name: name, PlanName: "Sales Plan", MeasureName: "Revenue Measure",
			RateTableName: "Commission Rates", IncentiveFormula: "Revenue Calc",
			CalculateIncentive: "COMMISSION", TrueUp: "No", IncludeIndirectCredits: "None",
		})
		g.CalculationSettings = append(g.CalculationSettings, model.CalculationSetting{
			ComponentName: name, CalculateIncentive: "Per interval",
		})
	}
	report := Analyze(g)
	var found bool
	for _, f := range report.Findings {
		if f.Category == "Best Practice" && f.Severity == SeverityInfo {
			found = true
			assert.Contains(t, f.Title, "without true-up")
		}
	}
	assert.True(t, found, "per-interval setting must override the component's calculation mode")
}

func TestAnalyzeConsolidationGroupsMeasureResults(t *testing.T) {
	g := cleanGraph()
	for i := 0; i < 3; i++ {
		g.Expressions = append(g.Expressions, model.Expression{
			Name: fmt.Sprintf("Payout Calc %d", i),
			Details: []model.ExpressionDetail{
				{Sequence: 1, Kind: model.KindMeasureResult, MeasureName: "Revenue Measure",
					ResultAttribute: "ITD Output Achieved", Category: model.CategoryEarnings},
			},
		})
	}
	report := Analyze(g)
	var found bool
	for _, f := range report.Findings {
		if f.Category == "Simplification" && strings.Contains(f.Title, "single-step pattern") {
			found = true
			assert.Contains(t, f.Title, "3 expressions")
			assert.Contains(t, f.Detail, "Measure result::")
		}
	}
	assert.True(t, found, "single-term measure results must group by detail type")
}

func TestAnalyzePartialScorecards(t *testing.T) {
	g := cleanGraph()
	g.PerformanceMeasures = append(g.PerformanceMeasures, model.PerformanceMeasure{
		Name: "Units Measure", FormulaExpressionName: "Revenue Calc", CreditCategoryName: "Sales Credit",
	})
	g.PerformanceGoals = append(g.PerformanceGoals, model.PerformanceGoal{MeasureName: "Units Measure"})
	g.PlanComponents = append(g.PlanComponents, model.PlanComponent{
		Name: "Units Component", PlanName: "Sales Plan", MeasureName: "Units Measure",
		RateTableName: "Commission Rates", IncentiveFormula: "Revenue Calc",
		CalculateIncentive: "COMMISSION", TrueUp: "No", IncludeIndirectCredits: "None",
	})
	g.CalculationSettings = append(g.CalculationSettings, model.CalculationSetting{ComponentName: "Units Component"})
	g.Scorecards = []model.Scorecard{{Name: "Revenue Scorecard", MeasureName: "Revenue Measure"}}

	report := Analyze(g)
	require.Len(t, report.Findings, 1)
	assert.Equal(t, "Scorecards configured for some but not all measures", report.Findings[0].Title)
	assert.Contains(t, report.Findings[0].Detail, "Units Measure")
}
