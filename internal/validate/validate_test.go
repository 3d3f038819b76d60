package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planlytics/planforge/internal/model"
)

func wellFormedGraph() *model.Graph {
	return &model.Graph{
		OrgID:    204,
		PlanYear: 2026,
		CreditCategories: []model.CreditCategory{
			{Name: "Sales Credit"},
		},
		RateTables: []model.RateTable{
			{Name: "Commission Rates"},
		},
		PerformanceMeasures: []model.PerformanceMeasure{
			{Name: "Revenue Measure", CreditCategoryName: "Sales Credit"},
		},
		PerformanceGoals: []model.PerformanceGoal{
			{MeasureName: "Revenue Measure", Target: 500000},
		},
		PlanComponents: []model.PlanComponent{
			{Name: "Revenue Component", PlanName: "Sales Plan", MeasureName: "Revenue Measure", RateTableName: "Commission Rates"},
		},
		CompensationPlans: []model.CompensationPlan{
			{Name: "Sales Plan", ComponentNames: []string{"Revenue Component"}},
		},
		Scorecards: []model.Scorecard{
			{Name: "Revenue Scorecard", MeasureName: "Revenue Measure", RateTableName: "Commission Rates"},
		},
		CalculationSettings: []model.CalculationSetting{
			{ComponentName: "Revenue Component"},
		},
	}
}

func TestValidateCleanGraph(t *testing.T) {
	assert.Empty(t, Validate(wellFormedGraph()))
}

func TestValidateDanglingReferences(t *testing.T) {
	t.Run("component to plan", func(t *testing.T) {
		g := wellFormedGraph()
		g.PlanComponents[0].PlanName = "Ghost Plan"
		warnings := Validate(g)
		require.Len(t, warnings, 1)
		assert.Contains(t, warnings[0], `missing compensation plan "Ghost Plan"`)
	})

	t.Run("component to rate table", func(t *testing.T) {
		g := wellFormedGraph()
		g.PlanComponents[0].RateTableName = "Ghost Rates"
		warnings := Validate(g)
		require.Len(t, warnings, 1)
		assert.Contains(t, warnings[0], `missing rate table "Ghost Rates"`)
	})

	t.Run("component to measure", func(t *testing.T) {
		g := wellFormedGraph()
		g.PlanComponents[0].MeasureName = "Ghost Measure"
		warnings := Validate(g)
		require.Len(t, warnings, 1)
		assert.Contains(t, warnings[0], `plan component "Revenue Component"`)
		assert.Contains(t, warnings[0], `missing performance measure "Ghost Measure"`)
	})

	t.Run("rate row to rate table", func(t *testing.T) {
		g := wellFormedGraph()
		g.UnattachedRates = []model.UnattachedRate{
			{RateTableName: "Ghost Rates", Rate: model.RateTableRate{RateValue: 0.07, TierSequence: 1}},
		}
		warnings := Validate(g)
		require.Len(t, warnings, 1)
		assert.Contains(t, warnings[0], `rate table rate references missing rate table "Ghost Rates"`)
	})

	t.Run("goal to measure", func(t *testing.T) {
		g := wellFormedGraph()
		g.PerformanceGoals[0].MeasureName = "Ghost Measure"
		warnings := Validate(g)
		require.Len(t, warnings, 1)
		assert.Contains(t, warnings[0], "performance goal")
	})

	t.Run("scorecard to measure and table", func(t *testing.T) {
		g := wellFormedGraph()
		g.Scorecards[0].MeasureName = "Ghost Measure"
		g.Scorecards[0].RateTableName = "Ghost Rates"
		warnings := Validate(g)
		assert.Len(t, warnings, 2)
	})

	t.Run("calculation setting to component", func(t *testing.T) {
		g := wellFormedGraph()
		g.CalculationSettings[0].ComponentName = "Ghost Component"
		warnings := Validate(g)
		require.Len(t, warnings, 1)
		assert.Contains(t, warnings[0], `missing plan component "Ghost Component"`)
	})
}

func TestValidateCreditCategorySoftCheck(t *testing.T) {
	t.Run("flags when categories are declared", func(t *testing.T) {
		g := wellFormedGraph()
		g.PerformanceMeasures[0].CreditCategoryName = "Ghost Credit"
		warnings := Validate(g)
		require.Len(t, warnings, 1)
		assert.Contains(t, warnings[0], `missing credit category "Ghost Credit"`)
	})

	t.Run("silent when no categories are declared", func(t *testing.T) {
		g := wellFormedGraph()
		g.CreditCategories = nil
		g.PerformanceMeasures[0].CreditCategoryName = "Preexisting Credit"
		assert.Empty(t, Validate(g))
	})
}

func TestValidateEmptyReferencesAllowed(t *testing.T) {
	g := wellFormedGraph()
	g.PlanComponents[0].RateTableName = ""
	g.Scorecards[0].RateTableName = ""
	assert.Empty(t, Validate(g))
}
