// Package deploy pushes a compiled graph to the remote incentive
// compensation system, in dependency order, idempotently: existing objects
// are adopted, missing ones created, and re-running a deployment against an
// already-deployed graph performs no writes.
package deploy

import (
	"context"
	"fmt"
	"net/url"

	"github.com/planlytics/planforge/internal/ctxlog"
	"github.com/planlytics/planforge/internal/dag"
	"github.com/planlytics/planforge/internal/gateway"
	"github.com/planlytics/planforge/internal/model"
)

// Stage names, also used as DAG node ids.
const (
	stageCreditCategories    = "Credit Categories"
	stageRateDimensions      = "Rate Dimensions"
	stageRateTables          = "Rate Tables"
	stageExpressions         = "Expressions"
	stagePerformanceMeasures = "Performance Measures"
	stagePlanComponents      = "Plan Components"
	stageCompensationPlans   = "Compensation Plans"
)

// Options control a deployment run.
type Options struct {
	// Force accumulates per-object errors and continues; without it the
	// run stops at the first hard failure.
	Force bool
	// DryRun validates and previews the plan without any remote call.
	DryRun bool
}

// Orchestrator deploys graphs through a Gateway.
type Orchestrator struct {
	gw gateway.Gateway
}

// New builds an Orchestrator over the given gateway.
func New(gw gateway.Gateway) *Orchestrator {
	return &Orchestrator{gw: gw}
}

// stageGraph builds the object dependency DAG the deployment order derives
// from.
func stageGraph() (*dag.Graph, error) {
	g := dag.New()
	for _, stage := range []string{
		stageCreditCategories, stageRateDimensions, stageRateTables,
		stageExpressions, stagePerformanceMeasures, stagePlanComponents,
		stageCompensationPlans,
	} {
		g.AddNode(stage)
	}
	edges := [][2]string{
		{stageCreditCategories, stagePerformanceMeasures},
		{stageRateDimensions, stageRateTables},
		{stageRateTables, stagePlanComponents},
		{stageExpressions, stagePerformanceMeasures},
		{stageExpressions, stagePlanComponents},
		{stagePerformanceMeasures, stagePlanComponents},
		{stagePlanComponents, stageCompensationPlans},
	}
	for _, e := range edges {
		if err := g.AddEdge(e[0], e[1]); err != nil {
			return nil, err
		}
	}
	if err := g.DetectCycles(); err != nil {
		return nil, err
	}
	return g, nil
}

// Deploy pushes the graph to the remote. The returned Report is non-nil even
// on failure. The returned error is the first hard failure when Force is
// off; with Force on, errors are collected into the report instead.
func (o *Orchestrator) Deploy(ctx context.Context, g *model.Graph, opts Options) (*Report, error) {
	logger := ctxlog.FromContext(ctx)

	stages, err := stageGraph()
	if err != nil {
		return nil, fmt.Errorf("cannot derive deployment order: %w", err)
	}
	order, err := stages.TopologicalOrder()
	if err != nil {
		return nil, fmt.Errorf("cannot derive deployment order: %w", err)
	}

	report := &Report{Success: true, DryRun: opts.DryRun}

	if opts.DryRun {
		for _, stage := range order {
			requires, _ := stages.Dependencies(stage)
			report.addStep(StepResult{
				Name:     stage,
				Success:  true,
				Planned:  plannedObjects(g, stage),
				Requires: requires,
			})
		}
		logger.Info("dry run complete", "stages", len(report.Steps))
		return report, nil
	}

	rec := gateway.NewRecorder(o.gw)
	run := &deployment{gw: rec, graph: g, opts: opts}

	for _, stage := range order {
		rec.SetStep(stage)
		logger.Info("deploying stage", "stage", stage)

		step, err := run.runStage(ctx, stage)
		report.addStep(step)
		if err != nil {
			blocked, _ := stages.Dependents(stage)
			logger.Error("stage failed", "stage", stage, "error", err, "blocks", blocked)
			report.Success = false
			report.Audit = rec.Entries()
			return report, err
		}
	}

	report.Audit = rec.Entries()
	logger.Info("deployment finished",
		"created", report.Created, "reused", report.Reused, "failed", report.Failed)
	return report, nil
}

func plannedObjects(g *model.Graph, stage string) int {
	switch stage {
	case stageCreditCategories:
		return len(g.CreditCategories)
	case stageRateDimensions:
		return len(g.RateDimensions)
	case stageRateTables:
		return len(g.RateTables)
	case stageExpressions:
		return len(g.Expressions)
	case stagePerformanceMeasures:
		return len(g.PerformanceMeasures)
	case stagePlanComponents:
		return len(g.PlanComponents)
	case stageCompensationPlans:
		return len(g.CompensationPlans)
	}
	return 0
}

// deployment carries the per-run state shared by the stage functions.
type deployment struct {
	gw    gateway.Gateway
	graph *model.Graph
	opts  Options
}

func (d *deployment) runStage(ctx context.Context, stage string) (StepResult, error) {
	step := StepResult{Name: stage, Success: true, Planned: plannedObjects(d.graph, stage)}

	var deployOne func(ctx context.Context, i int) (created bool, err error)
	switch stage {
	case stageCreditCategories:
		deployOne = d.deployCreditCategory
	case stageRateDimensions:
		deployOne = d.deployRateDimension
	case stageRateTables:
		deployOne = d.deployRateTable
	case stageExpressions:
		deployOne = d.deployExpression
	case stagePerformanceMeasures:
		deployOne = d.deployPerformanceMeasure
	case stagePlanComponents:
		deployOne = d.deployPlanComponent
	case stageCompensationPlans:
		deployOne = d.deployCompensationPlan
	}

	for i := 0; i < step.Planned; i++ {
		created, err := deployOne(ctx, i)
		if err != nil {
			step.Failed++
			step.Errors = append(step.Errors, err.Error())
			if !d.opts.Force {
				step.Success = false
				return step, err
			}
			continue
		}
		if created {
			step.Created++
		} else {
			step.Reused++
		}
	}
	step.Success = step.Failed == 0
	return step, nil
}

// ensure queries the collection for an object by Name and OrgId, falling
// back to a name-only query, and creates it when absent. A 400 on create is
// treated as a concurrent or pre-existing duplicate and resolved by
// re-querying.
func (d *deployment) ensure(ctx context.Context, collection, object, name string, payload map[string]any, idField string) (id any, created bool, err error) {
	if id = d.lookup(ctx, collection, name, idField); id != nil {
		return id, false, nil
	}

	body, status, err := d.gw.Post(ctx, collection, payload)
	if err != nil {
		return nil, false, err
	}
	switch {
	case status == 201 || status == 200:
		return body[idField], true, nil
	case status == 400:
		if id = d.lookup(ctx, collection, name, idField); id != nil {
			return id, false, nil
		}
		return nil, false, &ConflictError{Object: object, Name: name, Message: message(body)}
	default:
		return nil, false, &RemoteError{Object: object, Name: name, Status: status, Detail: message(body)}
	}
}

// lookup finds an object id by name. The OrgId-scoped query runs first; a
// name-only query covers objects created under a different scope.
func (d *deployment) lookup(ctx context.Context, collection, name, idField string) any {
	queries := []string{
		fmt.Sprintf("%s?q=Name='%s';OrgId=%d", collection, url.QueryEscape(name), d.graph.OrgID),
		fmt.Sprintf("%s?q=Name='%s'", collection, url.QueryEscape(name)),
	}
	for _, q := range queries {
		resp, status, err := d.gw.Get(ctx, q)
		if err != nil || status != 200 {
			continue
		}
		if found := items(resp); len(found) > 0 {
			return found[0][idField]
		}
	}
	return nil
}

func (d *deployment) fetchFirst(ctx context.Context, endpoint string) map[string]any {
	resp, status, err := d.gw.Get(ctx, endpoint)
	if err != nil || status != 200 {
		return nil
	}
	if found := items(resp); len(found) > 0 {
		return found[0]
	}
	return nil
}

// items extracts the record list from a collection response. Decoded JSON
// yields []any; the in-process fake yields []map[string]any directly.
func items(resp map[string]any) []map[string]any {
	switch v := resp["items"].(type) {
	case []map[string]any:
		return v
	case []any:
		out := make([]map[string]any, 0, len(v))
		for _, item := range v {
			if rec, ok := item.(map[string]any); ok {
				out = append(out, rec)
			}
		}
		return out
	default:
		return nil
	}
}

func message(body map[string]any) string {
	if body == nil {
		return "no response body"
	}
	if msg, ok := body["message"].(string); ok {
		return msg
	}
	return fmt.Sprint(body)
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}
