package compile

import (
	"fmt"
	"sort"
	"time"

	"github.com/planlytics/planforge/internal/model"
)

// Options control a compilation run. A zero PlanYear means the current year.
type Options struct {
	OrgID    int64
	PlanYear int
}

// Warning is a non-fatal compilation finding. Compilation always produces a
// graph; warnings report substituted defaults and unrecognizable input.
type Warning struct {
	Section string
	Object  string
	Message string
}

func (w Warning) String() string {
	if w.Object == "" {
		return fmt.Sprintf("%s: %s", w.Section, w.Message)
	}
	return fmt.Sprintf("%s %q: %s", w.Section, w.Object, w.Message)
}

// Compile normalizes a raw analysis into the object graph. It applies plan
// year suffixing, substitutes documented defaults, matches rate tables to
// their dimensions, and assembles the expression IR. The output is
// deterministic: declaration order in, declaration order out.
func Compile(raw *model.RawAnalysis, opts Options) (*model.Graph, []Warning) {
	if opts.PlanYear == 0 {
		opts.PlanYear = time.Now().Year()
	}
	startDate := fmt.Sprintf("%d-01-01", opts.PlanYear)
	endDate := fmt.Sprintf("%d-12-31", opts.PlanYear)

	c := &compilation{
		raw:       cloneRaw(raw),
		opts:      opts,
		startDate: startDate,
		endDate:   endDate,
		renames:   renameMap{},
	}
	c.applyYearSuffixes()

	g := &model.Graph{OrgID: opts.OrgID, PlanYear: opts.PlanYear}
	g.CreditCategories = c.creditCategories()
	g.RateDimensions = c.rateDimensions()
	g.RateTables, g.UnattachedRates = c.rateTables()
	g.Expressions = c.expressions()
	g.PerformanceMeasures = c.performanceMeasures()
	g.PerformanceGoals = c.performanceGoals()
	g.PlanComponents = c.planComponents()
	g.CompensationPlans = c.compensationPlans()
	g.Scorecards = c.scorecards()
	g.CalculationSettings = c.calculationSettings()
	return g, c.warnings
}

type compilation struct {
	raw       *model.RawAnalysis
	opts      Options
	startDate string
	endDate   string
	renames   renameMap
	warnings  []Warning
}

func (c *compilation) warnf(section, object, format string, args ...any) {
	c.warnings = append(c.warnings, Warning{
		Section: section,
		Object:  object,
		Message: fmt.Sprintf(format, args...),
	})
}

// cloneRaw copies the slices so suffixing never mutates the caller's input.
func cloneRaw(raw *model.RawAnalysis) *model.RawAnalysis {
	if raw == nil {
		return &model.RawAnalysis{}
	}
	out := *raw
	out.CompensationPlans = append([]model.RawCompensationPlan(nil), raw.CompensationPlans...)
	out.PlanComponents = append([]model.RawPlanComponent(nil), raw.PlanComponents...)
	out.RateDimensions = append([]model.RawRateDimension(nil), raw.RateDimensions...)
	out.RateTables = append([]model.RawRateTable(nil), raw.RateTables...)
	out.RateTableRates = append([]model.RawRateTableRate(nil), raw.RateTableRates...)
	out.Expressions = append([]model.RawExpressionRow(nil), raw.Expressions...)
	out.PerformanceMeasures = append([]model.RawPerformanceMeasure(nil), raw.PerformanceMeasures...)
	out.PerformanceGoals = append([]model.RawPerformanceGoal(nil), raw.PerformanceGoals...)
	out.CreditCategories = append([]model.RawCreditCategory(nil), raw.CreditCategories...)
	out.CalculationSettings = append([]model.RawCalculationSetting(nil), raw.CalculationSettings...)
	out.Scorecards = append([]model.RawScorecard(nil), raw.Scorecards...)
	return &out
}

// applyYearSuffixes stamps the plan year onto plan-specific object names and
// remaps every cross-reference through the rename map. Credit categories and
// rate dimensions are never touched: categories are reused across years and
// tier structures are year-independent. Dates on dated objects are forced to
// the plan year.
func (c *compilation) applyYearSuffixes() {
	year := c.opts.PlanYear
	raw := c.raw

	for i := range raw.Expressions {
		raw.Expressions[i].ExpressionName = c.renames.rename(raw.Expressions[i].ExpressionName, year)
	}
	for i := range raw.PerformanceMeasures {
		pm := &raw.PerformanceMeasures[i]
		pm.Name = c.renames.rename(pm.Name, year)
		pm.FormulaExpressionName = c.renames.apply(pm.FormulaExpressionName)
	}
	for i := range raw.PlanComponents {
		pc := &raw.PlanComponents[i]
		pc.Name = c.renames.rename(pc.Name, year)
		pc.MeasureName = c.renames.apply(pc.MeasureName)
		pc.IncentiveFormula = c.renames.apply(pc.IncentiveFormula)
		pc.RateDimensionInputExpr = c.renames.apply(pc.RateDimensionInputExpr)
		if pc.PlanName != "" {
			pc.PlanName = c.renames.rename(pc.PlanName, year)
		}
	}
	for i := range raw.CompensationPlans {
		cp := &raw.CompensationPlans[i]
		cp.Name = c.renames.rename(cp.Name, year)
		if cp.DisplayName != "" {
			cp.DisplayName = ensureYearSuffix(cp.DisplayName, year)
		}
	}
	for i := range raw.RateTables {
		rt := &raw.RateTables[i]
		old := coalesce(rt.Name, rt.AltName)
		renamed := c.renames.rename(old, year)
		if renamed != old {
			if rt.Name != "" {
				rt.Name = renamed
			}
			if rt.AltName != "" {
				rt.AltName = renamed
			}
			if rt.DisplayName != "" {
				rt.DisplayName = ensureYearSuffix(rt.DisplayName, year)
			}
		}
	}
	for i := range raw.RateTableRates {
		raw.RateTableRates[i].RateTableName = c.renames.apply(raw.RateTableRates[i].RateTableName)
	}
	for i := range raw.PerformanceGoals {
		raw.PerformanceGoals[i].MeasureName = c.renames.apply(raw.PerformanceGoals[i].MeasureName)
	}
	for i := range raw.Scorecards {
		sc := &raw.Scorecards[i]
		old := coalesce(sc.Name, sc.AltName)
		renamed := c.renames.rename(old, year)
		if renamed != old {
			if sc.Name != "" {
				sc.Name = renamed
			} else {
				sc.AltName = renamed
			}
		}
		sc.MeasureName = c.renames.apply(sc.MeasureName)
		sc.RateTableName = c.renames.apply(sc.RateTableName)
		sc.InputExpressionName = c.renames.apply(sc.InputExpressionName)
	}
	for i := range raw.CalculationSettings {
		raw.CalculationSettings[i].ComponentName = c.renames.apply(raw.CalculationSettings[i].ComponentName)
	}
	for i := range raw.Expressions {
		row := &raw.Expressions[i]
		row.MeasureName = c.renames.apply(row.MeasureName)
		row.PlanComponentName = c.renames.apply(row.PlanComponentName)
	}

	for i := range raw.CompensationPlans {
		raw.CompensationPlans[i].StartDate = c.startDate
		raw.CompensationPlans[i].EndDate = c.endDate
	}
	for i := range raw.PlanComponents {
		raw.PlanComponents[i].StartDate = c.startDate
		raw.PlanComponents[i].EndDate = c.endDate
	}
	for i := range raw.PerformanceMeasures {
		raw.PerformanceMeasures[i].StartDate = c.startDate
		raw.PerformanceMeasures[i].EndDate = c.endDate
		raw.PerformanceMeasures[i].FiscalYear = c.opts.PlanYear
	}
}

func (c *compilation) creditCategories() []model.CreditCategory {
	out := make([]model.CreditCategory, 0, len(c.raw.CreditCategories))
	for _, cc := range c.raw.CreditCategories {
		out = append(out, model.CreditCategory{
			Name:        coalesce(cc.Name, cc.AltName),
			Description: cc.Description,
			OrgID:       c.opts.OrgID,
			Action:      coalesce(cc.Action, "reuse"),
		})
	}
	return out
}

// rateDimensions groups the per-tier raw rows by dimension name, preserving
// first-appearance order.
func (c *compilation) rateDimensions() []model.RateDimension {
	var order []string
	byName := map[string]*model.RateDimension{}
	for _, rd := range c.raw.RateDimensions {
		name := coalesce(rd.Name, rd.AltName)
		dim, ok := byName[name]
		if !ok {
			dim = &model.RateDimension{
				Name:  name,
				Type:  coalesce(rd.Type, "AMOUNT"),
				OrgID: c.opts.OrgID,
			}
			byName[name] = dim
			order = append(order, name)
		}
		dim.Tiers = append(dim.Tiers, model.Tier{
			Sequence:      defaultInt(rd.TierSequence, 1),
			MinimumAmount: deref(rd.MinimumAmount, 0),
			MaximumAmount: deref(rd.MaximumAmount, 999999),
		})
	}
	out := make([]model.RateDimension, 0, len(order))
	for _, name := range order {
		out = append(out, *byName[name])
	}
	return out
}

// rateTables assembles the tables and their rate rows. Rows naming a table
// the analysis never declares are kept on the graph as unattached rates so
// the validator can report the dangling reference.
func (c *compilation) rateTables() ([]model.RateTable, []model.UnattachedRate) {
	tableNames := map[string]bool{}
	for _, rt := range c.raw.RateTables {
		tableNames[coalesce(rt.Name, rt.AltName)] = true
	}
	ratesByTable := map[string][]model.RawRateTableRate{}
	var unattached []model.UnattachedRate
	for _, rtr := range c.raw.RateTableRates {
		if !tableNames[rtr.RateTableName] {
			unattached = append(unattached, model.UnattachedRate{
				RateTableName: rtr.RateTableName,
				Rate: model.RateTableRate{
					MinimumAmount: deref(rtr.MinimumAmount, 0),
					MaximumAmount: deref(rtr.MaximumAmount, 999999),
					RateValue:     rtr.RateValue,
					TierSequence:  defaultInt(rtr.TierSequence, 1),
				},
			})
			continue
		}
		ratesByTable[rtr.RateTableName] = append(ratesByTable[rtr.RateTableName], rtr)
	}
	dims := c.rateDimensions()

	out := make([]model.RateTable, 0, len(c.raw.RateTables))
	for _, rt := range c.raw.RateTables {
		name := coalesce(rt.Name, rt.AltName)
		dimName := matchDimension(ratesByTable[name], dims)
		if dimName == "" {
			c.warnf("rate table", name, "no rate dimension matches the table's rate ranges")
		}
		table := model.RateTable{
			Name:          name,
			Type:          coalesce(rt.Type, "PERCENT"),
			OrgID:         c.opts.OrgID,
			DisplayName:   coalesce(rt.DisplayName, name),
			DimensionName: dimName,
		}
		for _, rtr := range ratesByTable[name] {
			table.Rates = append(table.Rates, model.RateTableRate{
				MinimumAmount: deref(rtr.MinimumAmount, 0),
				MaximumAmount: deref(rtr.MaximumAmount, 999999),
				RateValue:     rtr.RateValue,
				TierSequence:  defaultInt(rtr.TierSequence, 1),
			})
		}
		out = append(out, table)
	}
	return out, unattached
}

// matchDimension finds the dimension whose tier ranges equal the table's rate
// ranges, ignoring order. With no range match and exactly one dimension in
// the analysis, that dimension is assumed.
func matchDimension(rates []model.RawRateTableRate, dims []model.RateDimension) string {
	rateRanges := make([][2]float64, 0, len(rates))
	for _, r := range rates {
		rateRanges = append(rateRanges, [2]float64{deref(r.MinimumAmount, 0), deref(r.MaximumAmount, 0)})
	}
	sortRanges(rateRanges)
	for _, d := range dims {
		dimRanges := make([][2]float64, 0, len(d.Tiers))
		for _, t := range d.Tiers {
			dimRanges = append(dimRanges, [2]float64{t.MinimumAmount, t.MaximumAmount})
		}
		sortRanges(dimRanges)
		if rangesEqual(rateRanges, dimRanges) {
			return d.Name
		}
	}
	if len(dims) == 1 {
		return dims[0].Name
	}
	return ""
}

func sortRanges(rs [][2]float64) {
	sort.Slice(rs, func(i, j int) bool {
		if rs[i][0] != rs[j][0] {
			return rs[i][0] < rs[j][0]
		}
		return rs[i][1] < rs[j][1]
	})
}

func rangesEqual(a, b [][2]float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// expressions groups the flat detail rows by expression name, preserving
// first-appearance order across expressions and sequence order within one.
func (c *compilation) expressions() []model.Expression {
	var order []string
	byName := map[string]*model.Expression{}
	for i, row := range c.raw.Expressions {
		if row.Sequence == 0 {
			row.Sequence = i + 1
		}
		if row.Category == "" {
			row.Category = string(model.CategoryEarnings)
		}
		if row.Operator != "" {
			normalized, ok := NormalizeOperator(row.Operator)
			if !ok {
				c.warnf("expression", row.ExpressionName, "operator %q is not a recognized math operator", row.Operator)
			}
			row.Operator = normalized
		}

		expr, ok := byName[row.ExpressionName]
		if !ok {
			expr = &model.Expression{
				Name:     row.ExpressionName,
				Category: model.ExpressionCategory(row.Category),
				OrgID:    c.opts.OrgID,
			}
			byName[row.ExpressionName] = expr
			order = append(order, row.ExpressionName)
		}
		if expr.Description == "" {
			expr.Description = row.Description
		}

		detail := DetailFromRow(row)
		if detail.Kind == model.KindUnresolved {
			c.warnf("expression", row.ExpressionName, "row %d has no recognizable operands, kept as free text", row.Sequence)
		}
		expr.Details = append(expr.Details, detail)
	}

	out := make([]model.Expression, 0, len(order))
	for _, name := range order {
		expr := byName[name]
		sort.SliceStable(expr.Details, func(i, j int) bool {
			return expr.Details[i].Sequence < expr.Details[j].Sequence
		})
		out = append(out, *expr)
	}
	return out
}

func (c *compilation) performanceMeasures() []model.PerformanceMeasure {
	out := make([]model.PerformanceMeasure, 0, len(c.raw.PerformanceMeasures))
	for _, pm := range c.raw.PerformanceMeasures {
		out = append(out, model.PerformanceMeasure{
			Name:                  pm.Name,
			Description:           pm.Description,
			UnitOfMeasure:         coalesce(pm.UnitOfMeasure, "AMOUNT"),
			OrgID:                 c.opts.OrgID,
			StartDate:             coalesce(pm.StartDate, c.startDate),
			EndDate:               coalesce(pm.EndDate, c.endDate),
			FormulaExpressionName: pm.FormulaExpressionName,
			ProcessTransactions:   coalesce(pm.ProcessTransactions, "Yes"),
			PerformanceInterval:   coalesce(pm.PerformanceInterval, "Quarterly"),
			ActiveFlag:            coalesce(pm.ActiveFlag, "Y"),
			UseExternalFormula:    coalesce(pm.UseExternalFormula, "N"),
			RunningTotalFlag:      coalesce(pm.RunningTotalFlag, "N"),
			FiscalYear:            defaultInt(pm.FiscalYear, c.opts.PlanYear),
			CreditCategoryName:    coalesce(pm.CreditCategoryName, "Sales Credit"),
			ScorecardRateTable:    pm.ScorecardRateTable,
		})
	}
	return out
}

func (c *compilation) performanceGoals() []model.PerformanceGoal {
	out := make([]model.PerformanceGoal, 0, len(c.raw.PerformanceGoals))
	for _, pg := range c.raw.PerformanceGoals {
		out = append(out, model.PerformanceGoal{
			MeasureName: pg.MeasureName,
			Interval:    coalesce(pg.Interval, "Quarterly"),
			Target:      pg.Target,
		})
	}
	return out
}

func (c *compilation) planComponents() []model.PlanComponent {
	out := make([]model.PlanComponent, 0, len(c.raw.PlanComponents))
	for i, pc := range c.raw.PlanComponents {
		out = append(out, model.PlanComponent{
			PlanName:               pc.PlanName,
			Name:                   pc.Name,
			IncentiveType:          coalesce(pc.IncentiveType, "Sales"),
			StartDate:              coalesce(pc.StartDate, c.startDate),
			EndDate:                coalesce(pc.EndDate, c.endDate),
			CalculationMethod:      coalesce(pc.CalculationMethod, "Tiered"),
			OrgID:                  c.opts.OrgID,
			MeasureName:            pc.MeasureName,
			RateTableName:          pc.RateTableName,
			RateTableStartDate:     c.startDate,
			RateTableEndDate:       c.endDate,
			IncentiveFormula:       pc.IncentiveFormula,
			MeasureWeight:          deref(pc.MeasureWeight, 1.0),
			CalculationSequence:    defaultInt(pc.CalculationSequence, i+1),
			EarningBasis:           coalesce(pc.EarningBasis, "Amount"),
			CalculateIncentive:     coalesce(pc.CalculateIncentive, "COMMISSION"),
			CalculationPhase:       derefInt(pc.CalculationPhase, 1),
			EarningType:            derefInt(pc.EarningType, -1000),
			PayoutFrequency:        coalesce(pc.PayoutFrequency, "Period"),
			SplitAttainment:        coalesce(pc.SplitAttainment, "No"),
			FixedWithinTier:        coalesce(pc.FixedWithinTier, "No"),
			TrueUp:                 coalesce(pc.TrueUp, "No"),
			TrueUpResetInterval:    pc.TrueUpResetInterval,
			IncludeIndirectCredits: coalesce(pc.IncludeIndirectCredits, "None"),
			RateDimensionInputExpr: pc.RateDimensionInputExpr,
		})
	}
	return out
}

func (c *compilation) compensationPlans() []model.CompensationPlan {
	componentsByPlan := map[string][]string{}
	for _, pc := range c.raw.PlanComponents {
		if pc.PlanName != "" && pc.Name != "" {
			componentsByPlan[pc.PlanName] = append(componentsByPlan[pc.PlanName], pc.Name)
		}
	}
	out := make([]model.CompensationPlan, 0, len(c.raw.CompensationPlans))
	for _, cp := range c.raw.CompensationPlans {
		out = append(out, model.CompensationPlan{
			Name:            cp.Name,
			StartDate:       coalesce(cp.StartDate, c.startDate),
			EndDate:         coalesce(cp.EndDate, c.endDate),
			Status:          coalesce(cp.Status, "Active"),
			Description:     cp.Description,
			DisplayName:     coalesce(cp.DisplayName, cp.Name),
			TargetIncentive: cp.TargetIncentive,
			OrgID:           c.opts.OrgID,
			ComponentNames:  componentsByPlan[cp.Name],
		})
	}
	return out
}

func (c *compilation) scorecards() []model.Scorecard {
	out := make([]model.Scorecard, 0, len(c.raw.Scorecards))
	for _, sc := range c.raw.Scorecards {
		out = append(out, model.Scorecard{
			Name:                coalesce(sc.Name, sc.AltName),
			MeasureName:         sc.MeasureName,
			RateTableName:       sc.RateTableName,
			InputExpressionName: sc.InputExpressionName,
			Description:         sc.Description,
		})
	}
	return out
}

func (c *compilation) calculationSettings() []model.CalculationSetting {
	out := make([]model.CalculationSetting, 0, len(c.raw.CalculationSettings))
	for _, cs := range c.raw.CalculationSettings {
		out = append(out, model.CalculationSetting{
			ComponentName:          cs.ComponentName,
			CalculateIncentive:     coalesce(cs.CalculateIncentive, "Per interval"),
			ProcessTransactions:    coalesce(cs.ProcessTransactions, "Grouped by interval"),
			PayoutFrequency:        coalesce(cs.PayoutFrequency, "Period"),
			SplitAttainment:        coalesce(cs.SplitAttainment, "No"),
			FixedWithinTier:        coalesce(cs.FixedWithinTier, "No"),
			TrueUp:                 coalesce(cs.TrueUp, "No"),
			TrueUpResetInterval:    cs.TrueUpResetInterval,
			IncludeIndirectCredits: coalesce(cs.IncludeIndirectCredits, "None"),
			RunningTotal:           coalesce(cs.RunningTotal, "No"),
		})
	}
	return out
}

func coalesce(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func deref(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}

func derefInt(v *int, fallback int) int {
	if v == nil {
		return fallback
	}
	return *v
}

func defaultInt(v, fallback int) int {
	if v == 0 {
		return fallback
	}
	return v
}
