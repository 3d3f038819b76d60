// Package lint scores a compiled plan configuration for efficiency and flags
// actionable problems: duplicate or unused objects, simplification
// opportunities, missing goals and settings, and data-quality defects.
package lint

import (
	"fmt"
	"sort"
	"strings"

	"github.com/planlytics/planforge/internal/model"
)

// Severity orders findings by how much they cost the score.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
	SeverityInfo   Severity = "info"
)

func (s Severity) penalty() int {
	switch s {
	case SeverityHigh:
		return 8
	case SeverityMedium:
		return 4
	case SeverityLow:
		return 2
	default:
		return 1
	}
}

// Finding is one actionable observation about the configuration.
type Finding struct {
	Category       string   `json:"category"`
	Severity       Severity `json:"severity"`
	Title          string   `json:"title"`
	Detail         string   `json:"detail"`
	Recommendation string   `json:"recommendation"`
}

// Summary carries the high-level object and finding counts.
type Summary struct {
	TotalFindings  int `json:"total_findings"`
	HighSeverity   int `json:"high_severity"`
	MediumSeverity int `json:"medium_severity"`
	LowSeverity    int `json:"low_severity"`
	Info           int `json:"info"`
	TotalObjects   int `json:"total_objects"`
}

// Report is the full lint result. Score starts at 100 and loses 8, 4, 2 or 1
// points per finding by severity, clamped to 0..100.
type Report struct {
	Score    int       `json:"score"`
	Findings []Finding `json:"findings"`
	Summary  Summary   `json:"summary"`
}

// Analyze runs every check against the graph. Finding order is deterministic:
// checks run in a fixed order and iterate objects in declaration order.
func Analyze(g *model.Graph) *Report {
	l := &linter{g: g}

	l.checkDuplicateExpressions()
	l.checkUnusedRateTables()
	l.checkUnusedExpressions()
	l.checkUnusedMeasures()
	l.checkSingleTierRateTables()
	l.checkTieredWithoutRateTable()
	l.checkExpressionConsolidation()
	l.checkCreditCategoryUsage()
	l.checkMissingCalculationSettings()
	l.checkMissingTrueUp()
	l.checkIndirectCreditConsistency()
	l.checkMissingGoals()
	l.checkPartialScorecards()
	l.checkComponentNaming()
	l.checkMixedExpressionCategories()

	score := 100
	summary := Summary{TotalFindings: len(l.findings), TotalObjects: g.TotalObjects()}
	for _, f := range l.findings {
		score -= f.Severity.penalty()
		switch f.Severity {
		case SeverityHigh:
			summary.HighSeverity++
		case SeverityMedium:
			summary.MediumSeverity++
		case SeverityLow:
			summary.LowSeverity++
		default:
			summary.Info++
		}
	}
	if score < 0 {
		score = 0
	}

	return &Report{Score: score, Findings: l.findings, Summary: summary}
}

type linter struct {
	g        *model.Graph
	findings []Finding
}

func (l *linter) add(category string, severity Severity, title, detail, recommendation string) {
	l.findings = append(l.findings, Finding{
		Category:       category,
		Severity:       severity,
		Title:          title,
		Detail:         detail,
		Recommendation: recommendation,
	})
}

// detailSignature flattens an expression's ordered terms so structurally
// identical formulas compare equal regardless of expression name.
func detailSignature(e model.Expression) string {
	parts := make([]string, 0, len(e.Details))
	for _, d := range e.Details {
		parts = append(parts, strings.Join([]string{
			string(d.Kind), d.AttributeGroup, d.AttributeName, d.MeasureName,
			d.ResultAttribute, d.ComponentName, d.ComponentResultAttribute,
			d.Operator, d.Constant,
		}, "|"))
	}
	return strings.Join(parts, "::")
}

func (l *linter) checkDuplicateExpressions() {
	var order []string
	names := map[string][]string{}
	for _, e := range l.g.Expressions {
		sig := detailSignature(e)
		if _, seen := names[sig]; !seen {
			order = append(order, sig)
		}
		names[sig] = append(names[sig], e.Name)
	}
	for _, sig := range order {
		group := names[sig]
		if len(group) < 2 {
			continue
		}
		l.add("Duplicate Expressions", SeverityMedium,
			fmt.Sprintf("%d expressions have identical formulas", len(group)),
			fmt.Sprintf("Expressions %s compute the same formula. Consider consolidating into a single shared expression.", strings.Join(group, ", ")),
			"Merge into one expression and reference it from all components.")
	}
}

func (l *linter) checkUnusedRateTables() {
	referenced := map[string]bool{}
	for _, pc := range l.g.PlanComponents {
		referenced[pc.RateTableName] = true
	}
	for _, rt := range l.g.RateTables {
		if rt.Name != "" && !referenced[rt.Name] {
			l.add("Unused Objects", SeverityMedium,
				fmt.Sprintf("Rate table '%s' is not used by any component", rt.Name),
				fmt.Sprintf("Rate table '%s' exists but no plan component references it.", rt.Name),
				"Remove unused rate table to reduce deployment complexity.")
		}
	}
}

func (l *linter) checkUnusedExpressions() {
	referenced := map[string]bool{}
	for _, pc := range l.g.PlanComponents {
		referenced[pc.IncentiveFormula] = true
		referenced[pc.RateDimensionInputExpr] = true
	}
	for _, pm := range l.g.PerformanceMeasures {
		referenced[pm.FormulaExpressionName] = true
	}
	var unused []string
	for _, e := range l.g.Expressions {
		if e.Name != "" && !referenced[e.Name] {
			unused = append(unused, e.Name)
		}
	}
	if len(unused) > 0 {
		sort.Strings(unused)
		l.add("Unused Objects", SeverityLow,
			fmt.Sprintf("%d expression(s) not directly referenced", len(unused)),
			fmt.Sprintf("Expressions: %s. These may be intermediate expressions referenced within other formulas, or truly unused.", strings.Join(unused, ", ")),
			"Verify these are needed; remove orphaned expressions.")
	}
}

func (l *linter) checkUnusedMeasures() {
	referenced := map[string]bool{}
	for _, pc := range l.g.PlanComponents {
		referenced[pc.MeasureName] = true
	}
	for _, pm := range l.g.PerformanceMeasures {
		if pm.Name != "" && !referenced[pm.Name] {
			l.add("Unused Objects", SeverityMedium,
				fmt.Sprintf("Performance measure '%s' is not used by any component", pm.Name),
				fmt.Sprintf("Measure '%s' exists but no plan component references it.", pm.Name),
				"Remove unused measure or link it to a component.")
		}
	}
}

func (l *linter) checkSingleTierRateTables() {
	for _, rt := range l.g.RateTables {
		if rt.Name != "" && len(rt.Rates) <= 1 {
			l.add("Simplification", SeverityLow,
				fmt.Sprintf("Rate table '%s' has only 1 tier", rt.Name),
				"A single-tier rate table is functionally a flat rate. Consider using a flat calculation method instead.",
				"Replace single-tier rate table with a flat rate to simplify config.")
		}
	}
}

func (l *linter) checkTieredWithoutRateTable() {
	for _, pc := range l.g.PlanComponents {
		if pc.CalculationMethod == "Tiered" && pc.RateTableName == "" {
			l.add("Simplification", SeverityLow,
				fmt.Sprintf("Component '%s' is Tiered without a rate table", pc.Name),
				"Calculation method is 'Tiered' but no rate table is assigned.",
				"Either assign a rate table or switch to 'Flat' calculation method.")
		}
	}
}

func (l *linter) checkExpressionConsolidation() {
	var order []string
	byPattern := map[string][]string{}
	for _, e := range l.g.Expressions {
		if len(e.Details) != 1 {
			continue
		}
		d := e.Details[0]
		// Keyed by detail type plus attribute operands, so single-term
		// measure and component results group under their detail type.
		pattern := fmt.Sprintf("%s:%s:%s", d.Kind.Label(), d.AttributeGroup, d.AttributeName)
		if _, seen := byPattern[pattern]; !seen {
			order = append(order, pattern)
		}
		byPattern[pattern] = append(byPattern[pattern], e.Name)
	}
	for _, pattern := range order {
		group := byPattern[pattern]
		if len(group) < 3 {
			continue
		}
		sample := group
		if len(sample) > 5 {
			sample = sample[:5]
		}
		l.add("Simplification", SeverityInfo,
			fmt.Sprintf("%d expressions use the same single-step pattern", len(group)),
			fmt.Sprintf("Expressions like %s all use pattern '%s'. If they compute the same value, consider sharing one expression.", strings.Join(sample, ", "), pattern),
			"Consolidate identical single-step expressions into a shared formula.")
	}
}

func (l *linter) checkCreditCategoryUsage() {
	used := map[string]bool{}
	for _, pm := range l.g.PerformanceMeasures {
		used[pm.CreditCategoryName] = true
	}
	for _, cc := range l.g.CreditCategories {
		if cc.Name != "" && !used[cc.Name] {
			l.add("Credit Categories", SeverityInfo,
				fmt.Sprintf("Credit category '%s' not linked to any measure", cc.Name),
				fmt.Sprintf("Category '%s' exists but no performance measure references it.", cc.Name),
				"Verify this category is needed for transaction routing; remove if unused to reduce deployment scope.")
		}
	}
}

func (l *linter) checkMissingCalculationSettings() {
	configured := map[string]bool{}
	for _, cs := range l.g.CalculationSettings {
		configured[cs.ComponentName] = true
	}
	var missing []string
	for _, pc := range l.g.PlanComponents {
		if pc.Name != "" && !configured[pc.Name] {
			missing = append(missing, pc.Name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		l.add("Calculation Settings", SeverityMedium,
			fmt.Sprintf("%d component(s) missing calculation settings", len(missing)),
			fmt.Sprintf("Components without explicit settings: %s. Defaults will be used but explicit settings are recommended.", strings.Join(missing, ", ")),
			"Add calculation settings for all components to ensure correct behavior.")
	}
}

// checkMissingTrueUp counts per-interval components without true-up. The
// calculation setting, when one names the component, is the authoritative
// source for the interval mode.
func (l *linter) checkMissingTrueUp() {
	settings := map[string]string{}
	for _, cs := range l.g.CalculationSettings {
		settings[cs.ComponentName] = cs.CalculateIncentive
	}
	count := 0
	for _, pc := range l.g.PlanComponents {
		calc := pc.CalculateIncentive
		if v, ok := settings[pc.Name]; ok && v != "" {
			calc = v
		}
		if calc == "Per interval" && pc.TrueUp == "No" {
			count++
		}
	}
	if count > 3 {
		l.add("Best Practice", SeverityInfo,
			fmt.Sprintf("%d components use 'Per interval' without true-up", count),
			"Period-based calculations without true-up may lead to over/underpayment when actuals are revised. Consider enabling true-up for critical components.",
			"Evaluate whether true-up should be enabled for payout accuracy.")
	}
}

func (l *linter) checkIndirectCreditConsistency() {
	values := map[string]int{}
	for _, pc := range l.g.PlanComponents {
		v := pc.IncludeIndirectCredits
		if v == "" {
			v = "None"
		}
		values[v]++
	}
	if len(values) > 1 && values["None"] > 0 {
		var nonNone []string
		for v := range values {
			if v != "None" {
				nonNone = append(nonNone, v)
			}
		}
		sort.Strings(nonNone)
		l.add("Best Practice", SeverityInfo,
			"Mixed indirect credit settings across components",
			fmt.Sprintf("Some components use indirect credits (%s) while others don't. Ensure this is intentional for your overlay/split crediting model.", strings.Join(nonNone, ", ")),
			"Verify indirect credit settings align with territory and overlay design.")
	}
}

func (l *linter) checkMissingGoals() {
	withGoals := map[string]bool{}
	for _, goal := range l.g.PerformanceGoals {
		withGoals[goal.MeasureName] = true
	}
	var missing []string
	for _, pm := range l.g.PerformanceMeasures {
		if pm.Name != "" && !withGoals[pm.Name] {
			missing = append(missing, pm.Name)
		}
	}
	if len(missing) > 0 {
		sample := missing
		if len(sample) > 10 {
			sample = sample[:10]
		}
		l.add("Missing Configuration", SeverityHigh,
			fmt.Sprintf("%d measure(s) have no performance goals", len(missing)),
			fmt.Sprintf("Measures without goals: %s. Without goals, attainment cannot be calculated properly.", strings.Join(sample, ", ")),
			"Add performance goals for all measures that require target-based attainment.")
	}
}

func (l *linter) checkPartialScorecards() {
	if len(l.g.Scorecards) == 0 {
		return
	}
	covered := map[string]bool{}
	for _, sc := range l.g.Scorecards {
		covered[sc.MeasureName] = true
	}
	var without []string
	for _, pm := range l.g.PerformanceMeasures {
		if pm.Name != "" && !covered[pm.Name] {
			without = append(without, pm.Name)
		}
	}
	if len(without) > 0 && len(without) < len(l.g.PerformanceMeasures) {
		sample := without
		if len(sample) > 5 {
			sample = sample[:5]
		}
		l.add("Missing Configuration", SeverityLow,
			"Scorecards configured for some but not all measures",
			fmt.Sprintf("Measures without scorecards: %s.", strings.Join(sample, ", ")),
			"Either extend scorecards to all measures or document which are excluded.")
	}
}

func (l *linter) checkComponentNaming() {
	var long []string
	for _, pc := range l.g.PlanComponents {
		if len(pc.Name) > 80 {
			long = append(long, pc.Name)
		}
	}
	if len(long) > 0 {
		l.add("Best Practice", SeverityLow,
			fmt.Sprintf("%d component(s) have names longer than 80 characters", len(long)),
			fmt.Sprintf("Long names may cause display issues downstream. Example: '%s...'", long[0][:60]),
			"Shorten component names while keeping them descriptive.")
	}
}

func (l *linter) checkMixedExpressionCategories() {
	for _, e := range l.g.Expressions {
		seen := map[model.ExpressionCategory]bool{}
		var categories []string
		for _, d := range e.Details {
			if !seen[d.Category] {
				seen[d.Category] = true
				categories = append(categories, string(d.Category))
			}
		}
		if len(categories) > 1 {
			l.add("Data Quality", SeverityMedium,
				fmt.Sprintf("Expression '%s' has mixed categories", e.Name),
				fmt.Sprintf("Categories found: %s. All detail rows should have the same category.", strings.Join(categories, ", ")),
				"Align all expression detail rows to a single category.")
		}
	}
}
