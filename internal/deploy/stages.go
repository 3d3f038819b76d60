package deploy

import (
	"context"
	"fmt"
	"net/url"
	"sort"

	"github.com/planlytics/planforge/internal/model"
)

func (d *deployment) deployCreditCategory(ctx context.Context, i int) (bool, error) {
	cc := d.graph.CreditCategories[i]
	_, created, err := d.ensure(ctx, "creditCategories", "credit category", cc.Name, map[string]any{
		"Name":        cc.Name,
		"Description": cc.Description,
		"OrgId":       d.graph.OrgID,
	}, "CreditCategoryId")
	return created, err
}

// deployRateDimension ensures the dimension and its tiers. Tiers are matched
// by amount range; tier sequences are remote-assigned and never patched.
func (d *deployment) deployRateDimension(ctx context.Context, i int) (bool, error) {
	rd := d.graph.RateDimensions[i]
	id, created, err := d.ensure(ctx, "rateDimensions", "rate dimension", rd.Name, map[string]any{
		"Name":              rd.Name,
		"RateDimensionType": rd.Type,
		"OrgId":             d.graph.OrgID,
	}, "RateDimensionId")
	if err != nil {
		return false, err
	}

	tiersEndpoint := fmt.Sprintf("rateDimensions/%v/child/RateDimensionTiers", id)
	resp, status, err := d.gw.Get(ctx, tiersEndpoint)
	if err != nil {
		return false, err
	}
	if status != 200 {
		return false, &RemoteError{Object: "rate dimension", Name: rd.Name, Status: status, Detail: message(resp)}
	}

	existing := make(map[[2]float64]bool)
	for _, rec := range items(resp) {
		existing[[2]float64{toFloat(rec["MinimumAmount"]), toFloat(rec["MaximumAmount"])}] = true
	}

	for _, tier := range rd.Tiers {
		if existing[[2]float64{tier.MinimumAmount, tier.MaximumAmount}] {
			continue
		}
		body, status, err := d.gw.Post(ctx, tiersEndpoint, map[string]any{
			"MinimumAmount": tier.MinimumAmount,
			"MaximumAmount": tier.MaximumAmount,
		})
		if err != nil {
			return false, err
		}
		if status != 201 && status != 200 {
			return false, &RemoteError{Object: "rate dimension tier", Name: rd.Name, Status: status, Detail: message(body)}
		}
	}
	return created, nil
}

// deployRateTable ensures the table, links its dimension, and reconciles rate
// rows against the dimension's remote tiers. Changed rates are patched with
// the value only.
func (d *deployment) deployRateTable(ctx context.Context, i int) (bool, error) {
	rt := d.graph.RateTables[i]
	id, created, err := d.ensure(ctx, "rateTables", "rate table", rt.Name, map[string]any{
		"Name":          rt.Name,
		"RateTableType": rt.Type,
		"DisplayName":   rt.DisplayName,
		"OrgId":         d.graph.OrgID,
	}, "RateTableId")
	if err != nil {
		return false, err
	}
	if rt.DimensionName == "" {
		return created, nil
	}

	dimID := d.lookup(ctx, "rateDimensions", rt.DimensionName, "RateDimensionId")
	if dimID == nil {
		return false, &DependencyError{
			Object: "rate table", Name: rt.Name,
			Dependency: fmt.Sprintf("rate dimension %q", rt.DimensionName),
			Reason:     "not found remotely",
		}
	}

	linkEndpoint := fmt.Sprintf("rateTables/%v/child/RateTableDimensions", id)
	if d.fetchFirst(ctx, linkEndpoint+"?q=RateDimensionId="+fmt.Sprint(dimID)) == nil {
		body, status, err := d.gw.Post(ctx, linkEndpoint, map[string]any{"RateDimensionId": dimID})
		if err != nil {
			return false, err
		}
		if status != 201 && status != 200 {
			return false, &RemoteError{Object: "rate table dimension", Name: rt.Name, Status: status, Detail: message(body)}
		}
	}

	// Remote tier ids, keyed by sequence, for the rate rows to point at.
	tiersResp, status, err := d.gw.Get(ctx, fmt.Sprintf("rateDimensions/%v/child/RateDimensionTiers", dimID))
	if err != nil {
		return false, err
	}
	if status != 200 {
		return false, &RemoteError{Object: "rate table", Name: rt.Name, Status: status, Detail: message(tiersResp)}
	}
	tierIDs := make(map[int]any)
	for _, rec := range items(tiersResp) {
		tierIDs[int(toFloat(rec["TierSequence"]))] = rec["RateDimTierId"]
	}

	ratesEndpoint := fmt.Sprintf("rateTables/%v/child/RateTableRates", id)
	ratesResp, status, err := d.gw.Get(ctx, ratesEndpoint)
	if err != nil {
		return false, err
	}
	if status != 200 {
		return false, &RemoteError{Object: "rate table", Name: rt.Name, Status: status, Detail: message(ratesResp)}
	}
	remoteRates := make(map[int]map[string]any)
	for _, rec := range items(ratesResp) {
		remoteRates[int(toFloat(rec["TierSequence"]))] = rec
	}

	for _, rate := range rt.Rates {
		if remote, ok := remoteRates[rate.TierSequence]; ok {
			if toFloat(remote["RateValue"]) == rate.RateValue {
				continue
			}
			body, status, err := d.gw.Patch(ctx,
				fmt.Sprintf("%s/%v", ratesEndpoint, remote["RateTableRateId"]),
				map[string]any{"RateValue": rate.RateValue})
			if err != nil {
				return false, err
			}
			if status != 200 {
				return false, &RemoteError{Object: "rate table rate", Name: rt.Name, Status: status, Detail: message(body)}
			}
			continue
		}

		tierID, ok := tierIDs[rate.TierSequence]
		if !ok {
			return false, &DependencyError{
				Object: "rate table", Name: rt.Name,
				Dependency: fmt.Sprintf("tier %d of rate dimension %q", rate.TierSequence, rt.DimensionName),
				Reason:     "not found remotely",
			}
		}
		body, status, err := d.gw.Post(ctx, ratesEndpoint, map[string]any{
			"RateDimTierId": tierID,
			"TierSequence":  rate.TierSequence,
			"RateValue":     rate.RateValue,
		})
		if err != nil {
			return false, err
		}
		if status != 201 && status != 200 {
			return false, &RemoteError{Object: "rate table rate", Name: rt.Name, Status: status, Detail: message(body)}
		}
	}
	return created, nil
}

// deployExpression creates or adopts the expression, reconciles its detail
// terms, and records the validity the remote computed. Shell expressions
// carry no formula terms and skip detail configuration; an invalid status
// here is not an error, it surfaces when a plan component tries to use the
// expression.
func (d *deployment) deployExpression(ctx context.Context, i int) (bool, error) {
	e := &d.graph.Expressions[i]
	query := fmt.Sprintf("incentiveCompensationExpressions?q=Name='%s'", url.QueryEscape(e.Name))
	formula := e.Formula()

	existing := d.fetchFirst(ctx, query)
	created := false
	switch {
	case existing == nil:
		payload := map[string]any{
			"Name":        e.Name,
			"OrgId":       d.graph.OrgID,
			"Description": e.Description,
		}
		if !e.Shell() {
			payload["Expression"] = formula
			payload["ExpressionType"] = "FORMULA"
		}
		body, status, err := d.gw.Post(ctx, "incentiveCompensationExpressions", payload)
		if err != nil {
			return false, err
		}
		switch {
		case status == 201 || status == 200:
			created = true
			existing = body
		case status == 400:
			if existing = d.fetchFirst(ctx, query); existing == nil {
				return false, &ConflictError{Object: "expression", Name: e.Name, Message: message(body)}
			}
		default:
			return false, &RemoteError{Object: "expression", Name: e.Name, Status: status, Detail: message(body)}
		}
	case !e.Shell() && fmt.Sprint(existing["Expression"]) != formula:
		body, status, err := d.gw.Patch(ctx,
			fmt.Sprintf("incentiveCompensationExpressions/%v", existing["ExpressionId"]),
			map[string]any{
				"Expression":     formula,
				"ExpressionType": "FORMULA",
				"Description":    e.Description,
			})
		if err != nil {
			return false, err
		}
		if status != 200 {
			return false, &RemoteError{Object: "expression", Name: e.Name, Status: status, Detail: message(body)}
		}
	}

	if !e.Shell() {
		if err := d.configureExpressionDetails(ctx, e, existing["ExpressionId"]); err != nil {
			return false, err
		}
	}

	if verified := d.fetchFirst(ctx, query); verified != nil {
		e.Status = model.ExpressionStatus(fmt.Sprint(verified["Status"]))
	}
	return created, nil
}

// configureExpressionDetails reconciles the expression's remote detail terms
// with the compiled ones. When no terms exist remotely each is created;
// otherwise terms are matched by position and patched in place, with any
// surplus compiled terms appended. SequenceNumber is immutable after
// creation, so update payloads never carry it.
func (d *deployment) configureExpressionDetails(ctx context.Context, e *model.Expression, exprID any) error {
	endpoint := fmt.Sprintf("incentiveCompensationExpressions/%v/child/ExpressionDetails", exprID)
	resp, status, err := d.gw.Get(ctx, endpoint)
	if err != nil {
		return err
	}
	if status != 200 {
		return &RemoteError{Object: "expression", Name: e.Name, Status: status, Detail: message(resp)}
	}

	remote := items(resp)
	sort.SliceStable(remote, func(i, j int) bool {
		return toFloat(remote[i]["SequenceNumber"]) < toFloat(remote[j]["SequenceNumber"])
	})

	for i, detail := range e.Details {
		if i < len(remote) {
			patch := detailPayload(detail, 0, false)
			if detailMatches(remote[i], patch) {
				continue
			}
			body, status, err := d.gw.Patch(ctx,
				fmt.Sprintf("%s/%v", endpoint, remote[i]["ExpressionDetailId"]), patch)
			if err != nil {
				return err
			}
			if status != 200 {
				return &RemoteError{Object: "expression detail", Name: e.Name, Status: status, Detail: message(body)}
			}
			continue
		}
		body, status, err := d.gw.Post(ctx, endpoint, detailPayload(detail, i+1, true))
		if err != nil {
			return err
		}
		if status != 201 && status != 200 {
			return &RemoteError{Object: "expression detail", Name: e.Name, Status: status, Detail: message(body)}
		}
	}
	return nil
}

// detailPayload renders one detail term as a remote record, populating only
// the operand fields relevant to its kind.
func detailPayload(detail model.ExpressionDetail, seq int, withSequence bool) map[string]any {
	p := map[string]any{"ExpressionDetailType": detail.Kind.Label()}
	switch detail.Kind {
	case model.KindAttributeRef:
		p["BasicAttributesGroup"] = detail.AttributeGroup
		p["BasicAttributeName"] = detail.AttributeName
	case model.KindMeasureResult:
		p["MeasureName"] = detail.MeasureName
		p["MeasureResultAttribute"] = detail.ResultAttribute
	case model.KindComponentResult:
		p["PlanComponentName"] = detail.ComponentName
		p["PlanComponentResultAttribute"] = detail.ComponentResultAttribute
	case model.KindOperator:
		p["ExpressionOperator"] = detail.Operator
	case model.KindConstant:
		p["ConstantValue"] = detail.Constant
	}
	if withSequence {
		p["SequenceNumber"] = seq
	}
	return p
}

func detailMatches(remote map[string]any, desired map[string]any) bool {
	for k, v := range desired {
		if fmt.Sprint(remote[k]) != fmt.Sprint(v) {
			return false
		}
	}
	return true
}

// deployPerformanceMeasure ensures the measure and its credit category
// assignment, creating the category on the fly when it is missing remotely.
func (d *deployment) deployPerformanceMeasure(ctx context.Context, i int) (bool, error) {
	pm := d.graph.PerformanceMeasures[i]
	id, created, err := d.ensure(ctx,
		"incentiveCompensationPerformanceMeasures", "performance measure", pm.Name,
		map[string]any{
			"Name":                pm.Name,
			"DisplayName":         pm.Name,
			"Description":         pm.Description,
			"OrgId":               d.graph.OrgID,
			"StartDate":           pm.StartDate,
			"EndDate":             pm.EndDate,
			"UnitOfMeasure":       pm.UnitOfMeasure,
			"PerformanceInterval": pm.PerformanceInterval,
		}, "PerformanceMeasureId")
	if err != nil {
		return false, err
	}
	if pm.CreditCategoryName == "" {
		return created, nil
	}

	ccID := d.lookup(ctx, "creditCategories", pm.CreditCategoryName, "CreditCategoryId")
	if ccID == nil {
		body, status, err := d.gw.Post(ctx, "creditCategories", map[string]any{
			"Name":  pm.CreditCategoryName,
			"OrgId": d.graph.OrgID,
		})
		if err != nil {
			return false, err
		}
		if status != 201 && status != 200 {
			return false, &RemoteError{Object: "credit category", Name: pm.CreditCategoryName, Status: status, Detail: message(body)}
		}
		ccID = body["CreditCategoryId"]
	}

	assignEndpoint := fmt.Sprintf("incentiveCompensationPerformanceMeasures/%v/child/performanceMeasureCreditCategories", id)
	if d.fetchFirst(ctx, assignEndpoint+"?q=CreditCategoryId="+fmt.Sprint(ccID)) == nil {
		body, status, err := d.gw.Post(ctx, assignEndpoint, map[string]any{
			"CreditCategoryId":   ccID,
			"CreditCategoryName": pm.CreditCategoryName,
		})
		if err != nil {
			return false, err
		}
		if status != 201 && status != 200 {
			return false, &RemoteError{Object: "performance measure credit category", Name: pm.Name, Status: status, Detail: message(body)}
		}
	}
	return created, nil
}

// deployPlanComponent ensures the component, binds the incentive formula to
// the remote-created formula slot, and attaches the rate table.
func (d *deployment) deployPlanComponent(ctx context.Context, i int) (bool, error) {
	pc := d.graph.PlanComponents[i]
	id, created, err := d.ensure(ctx, "planComponents", "plan component", pc.Name, map[string]any{
		"Name":        pc.Name,
		"Description": pc.Name,
		"OrgId":       d.graph.OrgID,
		"StartDate":   pc.StartDate,
		"EndDate":     pc.EndDate,
	}, "PlanComponentId")
	if err != nil {
		return false, err
	}

	formulaEndpoint := fmt.Sprintf("planComponents/%v/child/planComponentIncentiveFormulas", id)
	formula := d.fetchFirst(ctx, formulaEndpoint)
	if formula == nil {
		return false, &RemoteError{Object: "plan component", Name: pc.Name, Status: 200,
			Detail: "remote did not create an incentive formula slot"}
	}
	formulaID := formula["IncentiveFormulaId"]

	if pc.IncentiveFormula != "" {
		expr := d.fetchFirst(ctx, fmt.Sprintf(
			"incentiveCompensationExpressions?q=Name='%s'", url.QueryEscape(pc.IncentiveFormula)))
		if expr == nil {
			return false, &DependencyError{
				Object: "plan component", Name: pc.Name,
				Dependency: fmt.Sprintf("expression %q", pc.IncentiveFormula),
				Reason:     "not found remotely",
			}
		}
		if fmt.Sprint(expr["Status"]) != string(model.StatusValid) {
			return false, &DependencyError{
				Object: "plan component", Name: pc.Name,
				Dependency: fmt.Sprintf("expression %q", pc.IncentiveFormula),
				Reason:     fmt.Sprintf("remote marked it %v", expr["Status"]),
			}
		}
		if fmt.Sprint(formula["ExpressionId"]) != fmt.Sprint(expr["ExpressionId"]) {
			body, status, err := d.gw.Patch(ctx,
				fmt.Sprintf("%s/%v", formulaEndpoint, formulaID),
				map[string]any{"ExpressionId": expr["ExpressionId"]})
			if err != nil {
				return false, err
			}
			if status != 200 {
				return false, &RemoteError{Object: "plan component formula", Name: pc.Name, Status: status, Detail: message(body)}
			}
		}
	}

	if pc.MeasureName != "" {
		pmID := d.lookup(ctx, "incentiveCompensationPerformanceMeasures", pc.MeasureName, "PerformanceMeasureId")
		if pmID == nil {
			return false, &DependencyError{
				Object: "plan component", Name: pc.Name,
				Dependency: fmt.Sprintf("performance measure %q", pc.MeasureName),
				Reason:     "not found remotely",
			}
		}
		measureEndpoint := fmt.Sprintf("planComponents/%v/child/PlanComponentPerformanceMeasures", id)
		if d.fetchFirst(ctx, measureEndpoint+"?q=PerformanceMeasureId="+fmt.Sprint(pmID)) == nil {
			body, status, err := d.gw.Post(ctx, measureEndpoint, map[string]any{
				"PerformanceMeasureId": pmID,
				"Weight":               pc.MeasureWeight,
			})
			if err != nil {
				return false, err
			}
			if status != 201 && status != 200 {
				return false, &RemoteError{Object: "plan component measure", Name: pc.Name, Status: status, Detail: message(body)}
			}
		}
	}

	if pc.RateTableName != "" {
		rtID := d.lookup(ctx, "rateTables", pc.RateTableName, "RateTableId")
		if rtID == nil {
			return false, &DependencyError{
				Object: "plan component", Name: pc.Name,
				Dependency: fmt.Sprintf("rate table %q", pc.RateTableName),
				Reason:     "not found remotely",
			}
		}
		attachEndpoint := fmt.Sprintf("%s/%v/child/planComponentRateTables", formulaEndpoint, formulaID)
		attached := d.fetchFirst(ctx, attachEndpoint+"?q=RateTableId="+fmt.Sprint(rtID))
		if attached == nil {
			body, status, err := d.gw.Post(ctx, attachEndpoint, map[string]any{
				"RateTableId": rtID,
				"StartDate":   pc.RateTableStartDate,
				"EndDate":     pc.RateTableEndDate,
			})
			if err != nil {
				return false, err
			}
			if status != 201 && status != 200 {
				return false, &RemoteError{Object: "plan component rate table", Name: pc.Name, Status: status, Detail: message(body)}
			}
			attached = body
		}

		if pc.RateDimensionInputExpr != "" {
			if err := d.attachRateDimensionInput(ctx, pc, attachEndpoint, attached); err != nil {
				return false, err
			}
		}
	}
	return created, nil
}

// attachRateDimensionInput binds the expression that feeds the rate
// dimension lookup to a component's rate table assignment.
func (d *deployment) attachRateDimensionInput(ctx context.Context, pc model.PlanComponent, attachEndpoint string, attached map[string]any) error {
	expr := d.fetchFirst(ctx, fmt.Sprintf(
		"incentiveCompensationExpressions?q=Name='%s'", url.QueryEscape(pc.RateDimensionInputExpr)))
	if expr == nil {
		return &DependencyError{
			Object: "plan component", Name: pc.Name,
			Dependency: fmt.Sprintf("expression %q", pc.RateDimensionInputExpr),
			Reason:     "not found remotely",
		}
	}

	inputEndpoint := fmt.Sprintf("%s/%v/child/RateDimensionalInputs", attachEndpoint, attached["PlanComponentRateTableId"])
	if d.fetchFirst(ctx, inputEndpoint+"?q=ExpressionId="+fmt.Sprint(expr["ExpressionId"])) != nil {
		return nil
	}
	body, status, err := d.gw.Post(ctx, inputEndpoint, map[string]any{"ExpressionId": expr["ExpressionId"]})
	if err != nil {
		return err
	}
	if status != 201 && status != 200 {
		return &RemoteError{Object: "rate dimensional input", Name: pc.Name, Status: status, Detail: message(body)}
	}
	return nil
}

// deployCompensationPlan ensures the plan and attaches its components in
// calculation order.
func (d *deployment) deployCompensationPlan(ctx context.Context, i int) (bool, error) {
	cp := d.graph.CompensationPlans[i]
	id, created, err := d.ensure(ctx, "compensationPlans", "compensation plan", cp.Name, map[string]any{
		"Name":        cp.Name,
		"DisplayName": cp.DisplayName,
		"Description": cp.Description,
		"OrgId":       d.graph.OrgID,
		"StartDate":   cp.StartDate,
		"EndDate":     cp.EndDate,
	}, "CompensationPlanId")
	if err != nil {
		return false, err
	}

	attachEndpoint := fmt.Sprintf("compensationPlans/%v/child/CompensationPlanComponents", id)
	for seq, componentName := range cp.ComponentNames {
		pcID := d.lookup(ctx, "planComponents", componentName, "PlanComponentId")
		if pcID == nil {
			return false, &DependencyError{
				Object: "compensation plan", Name: cp.Name,
				Dependency: fmt.Sprintf("plan component %q", componentName),
				Reason:     "not found remotely",
			}
		}
		if d.fetchFirst(ctx, attachEndpoint+"?q=PlanComponentId="+fmt.Sprint(pcID)) != nil {
			continue
		}

		sequence := seq + 1
		weight := 1.0
		for _, comp := range d.graph.PlanComponents {
			if comp.Name != componentName {
				continue
			}
			if comp.CalculationSequence > 0 {
				sequence = comp.CalculationSequence
			}
			if comp.MeasureWeight > 0 {
				weight = comp.MeasureWeight
			}
			break
		}
		body, status, err := d.gw.Post(ctx, attachEndpoint, map[string]any{
			"PlanComponentId":        pcID,
			"CalculationSequence":    sequence,
			"TargetIncentivePercent": weight * 100,
		})
		if err != nil {
			return false, err
		}
		if status != 201 && status != 200 {
			return false, &RemoteError{Object: "compensation plan component", Name: cp.Name, Status: status, Detail: message(body)}
		}
	}
	return created, nil
}
