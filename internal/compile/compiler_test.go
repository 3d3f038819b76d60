package compile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planlytics/planforge/internal/model"
)

func f64(v float64) *float64 { return &v }

func sampleAnalysis() *model.RawAnalysis {
	return &model.RawAnalysis{
		CreditCategories: []model.RawCreditCategory{
			{Name: "Sales Credit", Description: "Standard sales credit"},
		},
		RateDimensions: []model.RawRateDimension{
			{Name: "Attainment Bands", TierSequence: 1, MinimumAmount: f64(0), MaximumAmount: f64(100)},
			{Name: "Attainment Bands", TierSequence: 2, MinimumAmount: f64(100), MaximumAmount: f64(999999)},
		},
		RateTables: []model.RawRateTable{
			{Name: "Commission Rates"},
		},
		RateTableRates: []model.RawRateTableRate{
			{RateTableName: "Commission Rates", MinimumAmount: f64(0), MaximumAmount: f64(100), RateValue: 0.05, TierSequence: 1},
			{RateTableName: "Commission Rates", MinimumAmount: f64(100), MaximumAmount: f64(999999), RateValue: 0.08, TierSequence: 2},
		},
		Expressions: []model.RawExpressionRow{
			{ExpressionName: "Revenue Calc", Sequence: 1, BasicAttributesGroup: "Revenue", BasicAttributeName: "Amount", Category: "Earnings"},
			{ExpressionName: "Revenue Calc", Sequence: 2, Operator: "*", Category: "Earnings"},
			{ExpressionName: "Revenue Calc", Sequence: 3, ConstantValue: f64(0.05), Category: "Earnings"},
		},
		PerformanceMeasures: []model.RawPerformanceMeasure{
			{Name: "Revenue Measure", FormulaExpressionName: "Revenue Calc"},
		},
		PerformanceGoals: []model.RawPerformanceGoal{
			{MeasureName: "Revenue Measure", Target: 500000},
		},
		PlanComponents: []model.RawPlanComponent{
			{
				PlanName:         "Sales Plan",
				Name:             "Revenue Component",
				MeasureName:      "Revenue Measure",
				RateTableName:    "Commission Rates",
				IncentiveFormula: "Revenue Calc",
			},
		},
		CompensationPlans: []model.RawCompensationPlan{
			{Name: "Sales Plan"},
		},
	}
}

func TestCompileFormula(t *testing.T) {
	g, warnings := Compile(sampleAnalysis(), Options{OrgID: 204, PlanYear: 2026})
	require.Len(t, g.Expressions, 1)
	assert.Empty(t, warnings)
	assert.Equal(t, "Revenue.Amount * 0.05", g.Expressions[0].Formula())
	assert.False(t, g.Expressions[0].Shell())
}

func TestCompileStampsOrgAndYear(t *testing.T) {
	g, _ := Compile(sampleAnalysis(), Options{OrgID: 204, PlanYear: 2026})

	assert.Equal(t, int64(204), g.OrgID)
	assert.Equal(t, 2026, g.PlanYear)
	for _, cc := range g.CreditCategories {
		assert.Equal(t, int64(204), cc.OrgID)
	}
	for _, rt := range g.RateTables {
		assert.Equal(t, int64(204), rt.OrgID)
	}
	for _, pm := range g.PerformanceMeasures {
		assert.Equal(t, int64(204), pm.OrgID)
		assert.Equal(t, 2026, pm.FiscalYear)
		assert.Equal(t, "2026-01-01", pm.StartDate)
		assert.Equal(t, "2026-12-31", pm.EndDate)
	}
	for _, pc := range g.PlanComponents {
		assert.Equal(t, "2026-01-01", pc.StartDate)
		assert.Equal(t, "2026-01-01", pc.RateTableStartDate)
		assert.Equal(t, "2026-12-31", pc.RateTableEndDate)
	}
}

func TestCompileDeterministic(t *testing.T) {
	a, _ := Compile(sampleAnalysis(), Options{OrgID: 204, PlanYear: 2026})
	b, _ := Compile(sampleAnalysis(), Options{OrgID: 204, PlanYear: 2026})
	assert.Equal(t, a, b)
}

func TestCompileDoesNotMutateInput(t *testing.T) {
	raw := sampleAnalysis()
	raw.CompensationPlans[0].Name = "Sales Plan 2025"
	_, _ = Compile(raw, Options{OrgID: 204, PlanYear: 2026})
	assert.Equal(t, "Sales Plan 2025", raw.CompensationPlans[0].Name)
}

func TestYearSuffixing(t *testing.T) {
	t.Run("replaces prior year and remaps references", func(t *testing.T) {
		raw := sampleAnalysis()
		raw.CompensationPlans[0].Name = "Sales Plan 2025"
		raw.PlanComponents[0].PlanName = "Sales Plan 2025"
		raw.PerformanceMeasures[0].Name = "Revenue Measure 2025"
		raw.PlanComponents[0].MeasureName = "Revenue Measure 2025"
		raw.PerformanceGoals[0].MeasureName = "Revenue Measure 2025"

		g, _ := Compile(raw, Options{OrgID: 204, PlanYear: 2026})

		require.Len(t, g.CompensationPlans, 1)
		assert.Equal(t, "Sales Plan 2026", g.CompensationPlans[0].Name)
		assert.Equal(t, "Sales Plan 2026", g.PlanComponents[0].PlanName)
		assert.Equal(t, []string{"Revenue Component"}, g.CompensationPlans[0].ComponentNames)
		assert.Equal(t, "Revenue Measure 2026", g.PerformanceMeasures[0].Name)
		assert.Equal(t, "Revenue Measure 2026", g.PlanComponents[0].MeasureName)
		assert.Equal(t, "Revenue Measure 2026", g.PerformanceGoals[0].MeasureName)
	})

	t.Run("never touches generic names", func(t *testing.T) {
		g, _ := Compile(sampleAnalysis(), Options{OrgID: 204, PlanYear: 2026})
		assert.Equal(t, "Sales Credit", g.CreditCategories[0].Name)
		assert.Equal(t, "Attainment Bands", g.RateDimensions[0].Name)
		assert.Equal(t, "Sales Plan", g.CompensationPlans[0].Name)
	})

	t.Run("ensureYearSuffix cases", func(t *testing.T) {
		assert.Equal(t, "Sales Commission", ensureYearSuffix("Sales Commission", 2026))
		assert.Equal(t, "Sales Commission 2026", ensureYearSuffix("Sales Commission 2025", 2026))
		assert.Equal(t, "Sales Commission 2026", ensureYearSuffix("Sales Commission 2026", 2026))
		assert.Equal(t, "", ensureYearSuffix("", 2026))
	})
}

func TestRateTableDimensionMatching(t *testing.T) {
	t.Run("matches by range equality", func(t *testing.T) {
		g, warnings := Compile(sampleAnalysis(), Options{OrgID: 204, PlanYear: 2026})
		require.Len(t, g.RateTables, 1)
		assert.Equal(t, "Attainment Bands", g.RateTables[0].DimensionName)
		assert.Empty(t, warnings)
	})

	t.Run("falls back to the only dimension", func(t *testing.T) {
		raw := sampleAnalysis()
		raw.RateTableRates[0].MaximumAmount = f64(50) // ranges no longer align
		g, _ := Compile(raw, Options{OrgID: 204, PlanYear: 2026})
		assert.Equal(t, "Attainment Bands", g.RateTables[0].DimensionName)
	})

	t.Run("warns when ambiguous", func(t *testing.T) {
		raw := sampleAnalysis()
		raw.RateTableRates[0].MaximumAmount = f64(50)
		raw.RateDimensions = append(raw.RateDimensions, model.RawRateDimension{
			Name: "Units Bands", TierSequence: 1, MinimumAmount: f64(0), MaximumAmount: f64(10),
		})
		g, warnings := Compile(raw, Options{OrgID: 204, PlanYear: 2026})
		assert.Empty(t, g.RateTables[0].DimensionName)
		require.NotEmpty(t, warnings)
		assert.Contains(t, warnings[0].String(), "no rate dimension matches")
	})
}

func TestCompileKeepsOrphanRateRows(t *testing.T) {
	raw := sampleAnalysis()
	raw.RateTableRates = append(raw.RateTableRates, model.RawRateTableRate{
		RateTableName: "Ghost Table", MinimumAmount: f64(0), MaximumAmount: f64(100),
		RateValue: 0.07, TierSequence: 1,
	})

	g, _ := Compile(raw, Options{OrgID: 204, PlanYear: 2026})

	require.Len(t, g.RateTables, 1)
	assert.Len(t, g.RateTables[0].Rates, 2)
	require.Len(t, g.UnattachedRates, 1)
	assert.Equal(t, "Ghost Table", g.UnattachedRates[0].RateTableName)
	assert.Equal(t, 0.07, g.UnattachedRates[0].Rate.RateValue)
}

func TestCompileDefaults(t *testing.T) {
	g, _ := Compile(sampleAnalysis(), Options{OrgID: 204, PlanYear: 2026})

	require.Len(t, g.RateTables, 1)
	assert.Equal(t, "PERCENT", g.RateTables[0].Type)
	assert.Equal(t, "Commission Rates", g.RateTables[0].DisplayName)

	require.Len(t, g.PerformanceMeasures, 1)
	pm := g.PerformanceMeasures[0]
	assert.Equal(t, "AMOUNT", pm.UnitOfMeasure)
	assert.Equal(t, "Quarterly", pm.PerformanceInterval)
	assert.Equal(t, "Sales Credit", pm.CreditCategoryName)
	assert.Equal(t, "Y", pm.ActiveFlag)

	require.Len(t, g.PlanComponents, 1)
	pc := g.PlanComponents[0]
	assert.Equal(t, "Tiered", pc.CalculationMethod)
	assert.Equal(t, "Sales", pc.IncentiveType)
	assert.Equal(t, "COMMISSION", pc.CalculateIncentive)
	assert.Equal(t, 1, pc.CalculationPhase)
	assert.Equal(t, -1000, pc.EarningType)
	assert.Equal(t, 1.0, pc.MeasureWeight)
	assert.Equal(t, 1, pc.CalculationSequence)

	require.Len(t, g.PerformanceGoals, 1)
	assert.Equal(t, "Quarterly", g.PerformanceGoals[0].Interval)

	require.Len(t, g.CreditCategories, 1)
	assert.Equal(t, "reuse", g.CreditCategories[0].Action)

	require.Len(t, g.CompensationPlans, 1)
	assert.Equal(t, "Active", g.CompensationPlans[0].Status)
	assert.Equal(t, []string{"Revenue Component"}, g.CompensationPlans[0].ComponentNames)
}

func TestCompileGroupsDimensionTiers(t *testing.T) {
	g, _ := Compile(sampleAnalysis(), Options{OrgID: 204, PlanYear: 2026})
	require.Len(t, g.RateDimensions, 1)
	dim := g.RateDimensions[0]
	require.Len(t, dim.Tiers, 2)
	assert.Equal(t, 1, dim.Tiers[0].Sequence)
	assert.Equal(t, 2, dim.Tiers[1].Sequence)
	assert.Equal(t, "AMOUNT", dim.Type)
}

func TestCompileExpressionOrdering(t *testing.T) {
	raw := sampleAnalysis()
	// Rows arrive out of order; sequence must win.
	raw.Expressions = []model.RawExpressionRow{
		{ExpressionName: "Revenue Calc", Sequence: 3, ConstantValue: f64(0.05)},
		{ExpressionName: "Revenue Calc", Sequence: 1, BasicAttributesGroup: "Revenue", BasicAttributeName: "Amount"},
		{ExpressionName: "Revenue Calc", Sequence: 2, Operator: "times"},
	}
	g, _ := Compile(raw, Options{OrgID: 204, PlanYear: 2026})
	require.Len(t, g.Expressions, 1)
	assert.Equal(t, "Revenue.Amount * 0.05", g.Expressions[0].Formula())
}

func TestCompileShellExpression(t *testing.T) {
	raw := sampleAnalysis()
	raw.Expressions = []model.RawExpressionRow{
		{ExpressionName: "Manual Calc", Sequence: 1, Description: "computed offline"},
	}
	g, warnings := Compile(raw, Options{OrgID: 204, PlanYear: 2026})
	require.Len(t, g.Expressions, 1)
	assert.True(t, g.Expressions[0].Shell())
	assert.NotEmpty(t, warnings)
}

func TestNormalizeOperator(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"*", "*", true},
		{" + ", "+", true},
		{"times", "*", true},
		{"Multiply", "*", true},
		{"divided by", "/", true},
		{"minus", "-", true},
		{"(", "(", true},
		{"modulo", "modulo", false},
	}
	for _, tc := range cases {
		got, ok := NormalizeOperator(tc.in)
		assert.Equal(t, tc.want, got, "input %q", tc.in)
		assert.Equal(t, tc.ok, ok, "input %q", tc.in)
	}
}

func TestDetailFromRow(t *testing.T) {
	t.Run("canonical labels", func(t *testing.T) {
		d := DetailFromRow(model.RawExpressionRow{
			DetailType: "Measure result", MeasureName: "Revenue Measure", MeasureResultAttribute: "ITD Output",
		})
		assert.Equal(t, model.KindMeasureResult, d.Kind)
		assert.Equal(t, "Revenue Measure.ITD Output", d.Render())
	})

	t.Run("generic label infers from operands", func(t *testing.T) {
		d := DetailFromRow(model.RawExpressionRow{
			DetailType: "Calculation", BasicAttributesGroup: "Credit", BasicAttributeName: "Credit Amount",
		})
		assert.Equal(t, model.KindAttributeRef, d.Kind)
		assert.Equal(t, "Credit.Credit Amount", d.Render())
	})

	t.Run("component result", func(t *testing.T) {
		d := DetailFromRow(model.RawExpressionRow{
			PlanComponentName: "Base Component", ComponentResultAttribute: "Output",
		})
		assert.Equal(t, model.KindComponentResult, d.Kind)
	})

	t.Run("constant formatting", func(t *testing.T) {
		d := DetailFromRow(model.RawExpressionRow{ConstantValue: f64(0.05)})
		assert.Equal(t, model.KindConstant, d.Kind)
		assert.Equal(t, "0.05", d.Render())
	})

	t.Run("mislabeled row falls through to inference", func(t *testing.T) {
		d := DetailFromRow(model.RawExpressionRow{
			DetailType: "Constant", Operator: "*",
		})
		assert.Equal(t, model.KindOperator, d.Kind)
		assert.Equal(t, " * ", d.Render())
	})

	t.Run("empty row degrades to free text", func(t *testing.T) {
		d := DetailFromRow(model.RawExpressionRow{Description: "see appendix B"})
		assert.Equal(t, model.KindUnresolved, d.Kind)
		assert.Equal(t, "see appendix B", d.Render())
	})
}
