// Package validate checks that names referenced across the compiled graph
// resolve to declared objects. Findings are warnings, not errors: a dangling
// reference may resolve against objects that already exist remotely, so the
// decision to block is left to the caller.
package validate

import (
	"fmt"

	"github.com/planlytics/planforge/internal/model"
)

// Validate returns one warning per dangling cross-reference, in declaration
// order. An empty result means every reference resolves locally.
//
// The measure to credit category check is soft: it only runs when the
// analysis declares credit categories at all, since many plans lean entirely
// on categories that pre-exist remotely.
func Validate(g *model.Graph) []string {
	plans := nameSet(len(g.CompensationPlans), func(i int) string { return g.CompensationPlans[i].Name })
	tables := nameSet(len(g.RateTables), func(i int) string { return g.RateTables[i].Name })
	measures := nameSet(len(g.PerformanceMeasures), func(i int) string { return g.PerformanceMeasures[i].Name })
	categories := nameSet(len(g.CreditCategories), func(i int) string { return g.CreditCategories[i].Name })
	components := nameSet(len(g.PlanComponents), func(i int) string { return g.PlanComponents[i].Name })

	var warnings []string
	check := func(ref, kind, target string, targets map[string]bool) {
		if ref == "" || targets[ref] {
			return
		}
		warnings = append(warnings, fmt.Sprintf("%s references missing %s %q", kind, target, ref))
	}

	for _, pc := range g.PlanComponents {
		check(pc.PlanName, "plan component "+quoted(pc.Name), "compensation plan", plans)
		check(pc.RateTableName, "plan component "+quoted(pc.Name), "rate table", tables)
		check(pc.MeasureName, "plan component "+quoted(pc.Name), "performance measure", measures)
	}
	for _, ur := range g.UnattachedRates {
		check(ur.RateTableName, "rate table rate", "rate table", tables)
	}
	for _, goal := range g.PerformanceGoals {
		check(goal.MeasureName, "performance goal", "performance measure", measures)
	}
	for _, sc := range g.Scorecards {
		check(sc.MeasureName, "scorecard "+quoted(sc.Name), "performance measure", measures)
		check(sc.RateTableName, "scorecard "+quoted(sc.Name), "rate table", tables)
	}
	for _, cs := range g.CalculationSettings {
		check(cs.ComponentName, "calculation setting", "plan component", components)
	}
	if len(categories) > 0 {
		for _, pm := range g.PerformanceMeasures {
			check(pm.CreditCategoryName, "performance measure "+quoted(pm.Name), "credit category", categories)
		}
	}
	return warnings
}

func nameSet(n int, name func(i int) string) map[string]bool {
	set := make(map[string]bool, n)
	for i := 0; i < n; i++ {
		if s := name(i); s != "" {
			set[s] = true
		}
	}
	return set
}

func quoted(name string) string {
	return fmt.Sprintf("%q", name)
}
