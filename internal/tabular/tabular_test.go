package tabular

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planlytics/planforge/internal/model"
)

func fixtureGraph() *model.Graph {
	return &model.Graph{
		OrgID:    204,
		PlanYear: 2026,
		CreditCategories: []model.CreditCategory{
			{Name: "Sales Credit", Description: "Standard credit", OrgID: 204, Action: "reuse"},
		},
		RateDimensions: []model.RateDimension{
			{Name: "Attainment Bands", Type: "AMOUNT", OrgID: 204, Tiers: []model.Tier{
				{Sequence: 1, MinimumAmount: 0, MaximumAmount: 100},
				{Sequence: 2, MinimumAmount: 100, MaximumAmount: 999999},
			}},
		},
		RateTables: []model.RateTable{
			{Name: "Commission Rates", Type: "PERCENT", OrgID: 204, DisplayName: "Commission Rates",
				DimensionName: "Attainment Bands", Rates: []model.RateTableRate{
					{MinimumAmount: 0, MaximumAmount: 100, RateValue: 0.05, TierSequence: 1},
					{MinimumAmount: 100, MaximumAmount: 999999, RateValue: 0.08, TierSequence: 2},
				}},
		},
		Expressions: []model.Expression{
			{Name: "Revenue Calc", Description: "Revenue times rate", Category: model.CategoryEarnings, OrgID: 204,
				Details: []model.ExpressionDetail{
					{Sequence: 1, Kind: model.KindAttributeRef, Category: model.CategoryEarnings, AttributeGroup: "Revenue", AttributeName: "Amount"},
					{Sequence: 2, Kind: model.KindOperator, Category: model.CategoryEarnings, Operator: "*"},
					{Sequence: 3, Kind: model.KindConstant, Category: model.CategoryEarnings, Constant: "0.05"},
				}},
		},
		PerformanceMeasures: []model.PerformanceMeasure{
			{Name: "Revenue Measure", UnitOfMeasure: "AMOUNT", OrgID: 204,
				StartDate: "2026-01-01", EndDate: "2026-12-31",
				FormulaExpressionName: "Revenue Calc", ProcessTransactions: "Yes",
				PerformanceInterval: "Quarterly", ActiveFlag: "Y", UseExternalFormula: "N",
				RunningTotalFlag: "N", FiscalYear: 2026, CreditCategoryName: "Sales Credit"},
		},
		PerformanceGoals: []model.PerformanceGoal{
			{MeasureName: "Revenue Measure", Interval: "Quarterly", Target: 500000},
		},
		PlanComponents: []model.PlanComponent{
			{PlanName: "Sales Plan", Name: "Revenue Component", IncentiveType: "Sales",
				StartDate: "2026-01-01", EndDate: "2026-12-31", CalculationMethod: "Tiered",
				OrgID: 204, MeasureName: "Revenue Measure", RateTableName: "Commission Rates",
				RateTableStartDate: "2026-01-01", RateTableEndDate: "2026-12-31",
				IncentiveFormula: "Revenue Calc", MeasureWeight: 1, CalculationSequence: 1,
				EarningBasis: "Amount", CalculateIncentive: "COMMISSION", CalculationPhase: 1,
				EarningType: -1000, PayoutFrequency: "Period", SplitAttainment: "No",
				FixedWithinTier: "No", TrueUp: "No", IncludeIndirectCredits: "None"},
		},
		CompensationPlans: []model.CompensationPlan{
			{Name: "Sales Plan", StartDate: "2026-01-01", EndDate: "2026-12-31", Status: "Active",
				DisplayName: "Sales Plan", OrgID: 204, ComponentNames: []string{"Revenue Component"}},
		},
		Scorecards: []model.Scorecard{
			{Name: "Revenue Scorecard", MeasureName: "Revenue Measure", RateTableName: "Commission Rates"},
		},
		CalculationSettings: []model.CalculationSetting{
			{ComponentName: "Revenue Component", CalculateIncentive: "Per interval",
				ProcessTransactions: "Grouped by interval", PayoutFrequency: "Period",
				SplitAttainment: "No", FixedWithinTier: "No", TrueUp: "No",
				IncludeIndirectCredits: "None", RunningTotal: "No"},
		},
	}
}

func TestFromGraphTableOrder(t *testing.T) {
	w := FromGraph(fixtureGraph(), time.Now())
	require.Len(t, w.Tables, len(TableOrder))
	for i, name := range TableOrder {
		assert.Equal(t, name, w.Tables[i].Name)
		assert.Equal(t, Columns[name], w.Tables[i].Columns)
	}
}

func TestFromGraphConfigMetadata(t *testing.T) {
	at := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	w := FromGraph(fixtureGraph(), at)
	config := w.Table(TableConfig)
	require.NotNil(t, config)

	values := map[string]string{}
	for _, row := range config.Rows {
		values[row["Key"].(string)] = row["Value"].(string)
	}
	assert.Equal(t, "2.0", values["Version"])
	assert.Equal(t, "2026", values["Year"])
	assert.Equal(t, "204", values["OrgId"])
	assert.Equal(t, "PlanForge", values["GeneratedBy"])
	assert.Equal(t, "2026-08-25T12:00:00Z", values["GeneratedAt"])
}

func TestFromGraphPlanRowPerComponent(t *testing.T) {
	g := fixtureGraph()
	g.CompensationPlans[0].ComponentNames = []string{"Revenue Component", "Second Component"}
	w := FromGraph(g, time.Now())

	plans := w.Table(TableCompensationPlans)
	require.NotNil(t, plans)
	require.Len(t, plans.Rows, 2)
	assert.Equal(t, "Revenue Component", plans.Rows[0]["Plan Component Name"])
	assert.Equal(t, "Second Component", plans.Rows[1]["Plan Component Name"])
	assert.Equal(t, "Sales Plan", plans.Rows[0]["Name"])

	t.Run("plan without components still emits one row", func(t *testing.T) {
		g := fixtureGraph()
		g.CompensationPlans[0].ComponentNames = nil
		w := FromGraph(g, time.Now())
		rows := w.Table(TableCompensationPlans).Rows
		require.Len(t, rows, 1)
		assert.Equal(t, "", rows[0]["Plan Component Name"])
	})
}

func TestFromGraphExpressionDetailRows(t *testing.T) {
	w := FromGraph(fixtureGraph(), time.Now())
	rows := w.Table(TableExpression).Rows
	require.Len(t, rows, 3)
	assert.Equal(t, "Primary object attribute", rows[0]["Expression Detail Type"])
	assert.Equal(t, "Revenue", rows[0]["Basic Attributes Group"])
	assert.Equal(t, "Math operator", rows[1]["Expression Detail Type"])
	assert.Equal(t, "*", rows[1]["Expression Operator"])
	assert.Equal(t, "Constant", rows[2]["Expression Detail Type"])
	assert.Equal(t, "0.05", rows[2]["Constant Value"])
}

func TestRoundTripThroughJSON(t *testing.T) {
	g := fixtureGraph()
	w := FromGraph(g, time.Now())

	data, err := json.Marshal(w)
	require.NoError(t, err)

	var decoded Workbook
	require.NoError(t, json.Unmarshal(data, &decoded))

	got, err := ToGraph(&decoded)
	require.NoError(t, err)
	assert.Equal(t, g, got)
}

func TestToGraphKeepsOrphanRates(t *testing.T) {
	w := FromGraph(fixtureGraph(), time.Now())
	rates := w.Table(TableRateTableRates)
	rates.Rows = append(rates.Rows, Row{
		"Rate Table Name": "Ghost Table", "Minimum Amount": 0.0,
		"Maximum Amount": 100.0, "Rate Value": 0.07, "TierSequence": 1,
	})

	g, err := ToGraph(w)
	require.NoError(t, err)
	require.Len(t, g.UnattachedRates, 1)
	assert.Equal(t, "Ghost Table", g.UnattachedRates[0].RateTableName)
	assert.Equal(t, 0.07, g.UnattachedRates[0].Rate.RateValue)
	for _, rt := range g.RateTables {
		assert.NotEqual(t, "Ghost Table", rt.Name)
	}
}

func TestRoundTripPreservesOrphanRates(t *testing.T) {
	g := fixtureGraph()
	g.UnattachedRates = []model.UnattachedRate{
		{RateTableName: "Ghost Table", Rate: model.RateTableRate{
			MinimumAmount: 0, MaximumAmount: 100, RateValue: 0.07, TierSequence: 1,
		}},
	}
	w := FromGraph(g, time.Now())

	rates := w.Table(TableRateTableRates)
	require.Len(t, rates.Rows, 3)
	assert.Equal(t, "Ghost Table", rates.Rows[2]["Rate Table Name"])

	data, err := json.Marshal(w)
	require.NoError(t, err)
	var decoded Workbook
	require.NoError(t, json.Unmarshal(data, &decoded))

	got, err := ToGraph(&decoded)
	require.NoError(t, err)
	assert.Equal(t, g, got)
}
