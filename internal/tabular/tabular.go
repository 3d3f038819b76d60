// Package tabular converts the compiled graph to and from the twelve-table
// exchange format consumed by downstream deployment tooling. Column names are
// a fixed external contract and must not change.
package tabular

import (
	"fmt"
	"strconv"
	"time"

	"github.com/planlytics/planforge/internal/model"
)

// Table names, in deployment order.
const (
	TableCreditCategories    = "Credit Categories"
	TableRateDimension       = "Rate Dimension"
	TableRateTable           = "Rate Table"
	TableRateTableRates      = "Rate Table Rates"
	TableExpression          = "Expression"
	TablePerformanceMeasure  = "Performance Measure"
	TablePlanComponents      = "Plan Components"
	TableCompensationPlans   = "Compensation Plans"
	TablePerformanceGoals    = "Performance Goals"
	TableScorecards          = "Scorecards"
	TableCalculationSettings = "Calculation Settings"
	TableConfig              = "Config"
)

// Columns maps each table to its exact column list.
var Columns = map[string][]string{
	TableCreditCategories: {
		"CreditCategoryName", "Description", "OrgId", "Action",
	},
	TableRateDimension: {
		"Rate Dimension Name", "Rate Dimension Type", "Org ID",
		"Tier Sequence", "Minimum Amount", "Maximum Amount",
	},
	TableRateTable: {
		"Rate Table Name", "Rate Table Type", "Org ID", "Display Name",
		"Rate Dimension Name",
	},
	TableRateTableRates: {
		"Rate Table Name", "Minimum Amount", "Maximum Amount",
		"Rate Value", "TierSequence",
	},
	TableExpression: {
		"Expression Name", "Expression ID", "Expression Detail Type",
		"Description", "Expression Type", "ExpressionCategory", "Sequence",
		"Measure Name", "Basic Attributes Group", "Basic Attribute Name",
		"Measure Result Attribute", "Plan Component Name",
		"Plan Component Result Attribute", "Constant Value",
		"Expression Operator", "Expression Detail ID",
	},
	TablePerformanceMeasure: {
		"Name", "Description", "UnitOfMeasure", "OrgId", "StartDate",
		"EndDate", "MeasureFormulaExpressionName", "ProcessTransactions",
		"PerformanceInterval", "ActiveFlag", "UseExternalFormulaFlag",
		"RunningTotalFlag", "FYear", "CreditCategoryName",
		"ScorecardRateTableName",
	},
	TablePlanComponents: {
		"PlanName", "Plan Component Name", "IncentiveType", "StartDate",
		"EndDate", "CalculationMethod", "OrgId", "Performance Measure Name",
		"Rate Table Name", "RTStartDate", "RTEndDate",
		"Incentive Formula Expression", "PerformanceMeasureWeight",
		"CalculationSequence", "EarningBasis",
		"CalculateIncentive", "Calculation Phase", "Earning Type",
		"PayoutFrequency",
		"SplitAttainment", "FixedWithinTier",
		"TrueUp", "TrueUpResetInterval",
		"IncludeIndirectCredits",
		"RateDimensionInputExpression",
	},
	TableCompensationPlans: {
		"Name", "StartDate", "EndDate", "Status", "Description",
		"DisplayName", "TargetIncentive", "OrgId", "Plan Component Name",
	},
	TablePerformanceGoals: {
		"PerformanceMeasureName", "GoalInterval", "GoalTarget",
	},
	TableScorecards: {
		"ScorecardName", "PerformanceMeasureName", "RateTableName",
		"InputExpressionName", "Description",
	},
	TableCalculationSettings: {
		"PlanComponentName", "CalculateIncentive", "ProcessTransactions",
		"PayoutFrequency", "SplitAttainment", "FixedWithinTier",
		"TrueUp", "TrueUpResetInterval",
		"IncludeIndirectCredits", "RunningTotal",
	},
	TableConfig: {
		"Key", "Value",
	},
}

// TableOrder lists the tables in deployment order.
var TableOrder = []string{
	TableCreditCategories, TableRateDimension, TableRateTable,
	TableRateTableRates, TableExpression, TablePerformanceMeasure,
	TablePlanComponents, TableCompensationPlans, TablePerformanceGoals,
	TableScorecards, TableCalculationSettings, TableConfig,
}

// Row is one record keyed by column name.
type Row map[string]any

// Table is an ordered set of rows under the fixed column contract.
type Table struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// Workbook is the full set of tables in deployment order.
type Workbook struct {
	Tables []Table `json:"tables"`
}

// Table returns the named table, or nil.
func (w *Workbook) Table(name string) *Table {
	for i := range w.Tables {
		if w.Tables[i].Name == name {
			return &w.Tables[i]
		}
	}
	return nil
}

// FromGraph renders the graph as a workbook. Compensation plans emit one row
// per attached component so the deployment step can link each attachment; a
// plan without components emits a single row with an empty component name.
func FromGraph(g *model.Graph, generatedAt time.Time) *Workbook {
	w := &Workbook{}
	add := func(name string, rows []Row) {
		w.Tables = append(w.Tables, Table{Name: name, Columns: Columns[name], Rows: rows})
	}

	var ccRows []Row
	for _, cc := range g.CreditCategories {
		ccRows = append(ccRows, Row{
			"CreditCategoryName": cc.Name,
			"Description":        cc.Description,
			"OrgId":              cc.OrgID,
			"Action":             cc.Action,
		})
	}
	add(TableCreditCategories, ccRows)

	var dimRows []Row
	for _, rd := range g.RateDimensions {
		for _, tier := range rd.Tiers {
			dimRows = append(dimRows, Row{
				"Rate Dimension Name": rd.Name,
				"Rate Dimension Type": rd.Type,
				"Org ID":              rd.OrgID,
				"Tier Sequence":       tier.Sequence,
				"Minimum Amount":      tier.MinimumAmount,
				"Maximum Amount":      tier.MaximumAmount,
			})
		}
	}
	add(TableRateDimension, dimRows)

	var rtRows, rateRows []Row
	for _, rt := range g.RateTables {
		rtRows = append(rtRows, Row{
			"Rate Table Name":     rt.Name,
			"Rate Table Type":     rt.Type,
			"Org ID":              rt.OrgID,
			"Display Name":        rt.DisplayName,
			"Rate Dimension Name": rt.DimensionName,
		})
		for _, rate := range rt.Rates {
			rateRows = append(rateRows, Row{
				"Rate Table Name": rt.Name,
				"Minimum Amount":  rate.MinimumAmount,
				"Maximum Amount":  rate.MaximumAmount,
				"Rate Value":      rate.RateValue,
				"TierSequence":    rate.TierSequence,
			})
		}
	}
	for _, ur := range g.UnattachedRates {
		rateRows = append(rateRows, Row{
			"Rate Table Name": ur.RateTableName,
			"Minimum Amount":  ur.Rate.MinimumAmount,
			"Maximum Amount":  ur.Rate.MaximumAmount,
			"Rate Value":      ur.Rate.RateValue,
			"TierSequence":    ur.Rate.TierSequence,
		})
	}
	add(TableRateTable, rtRows)
	add(TableRateTableRates, rateRows)

	var exprRows []Row
	exprID := 0
	detailID := 0
	for _, e := range g.Expressions {
		exprID++
		for _, d := range e.Details {
			detailID++
			row := Row{
				"Expression Name":        e.Name,
				"Expression ID":          exprID,
				"Expression Detail Type": d.Kind.Label(),
				"Description":            e.Description,
				"Expression Type":        "Calculation",
				"ExpressionCategory":     string(d.Category),
				"Sequence":               d.Sequence,
				"Expression Detail ID":   detailID,
			}
			switch d.Kind {
			case model.KindAttributeRef:
				row["Basic Attributes Group"] = d.AttributeGroup
				row["Basic Attribute Name"] = d.AttributeName
			case model.KindMeasureResult:
				row["Measure Name"] = d.MeasureName
				row["Measure Result Attribute"] = d.ResultAttribute
			case model.KindComponentResult:
				row["Plan Component Name"] = d.ComponentName
				row["Plan Component Result Attribute"] = d.ComponentResultAttribute
			case model.KindOperator:
				row["Expression Operator"] = d.Operator
			case model.KindConstant:
				row["Constant Value"] = d.Constant
			default:
				row["Description"] = d.Text
			}
			exprRows = append(exprRows, row)
		}
	}
	add(TableExpression, exprRows)

	var pmRows []Row
	for _, pm := range g.PerformanceMeasures {
		pmRows = append(pmRows, Row{
			"Name":                         pm.Name,
			"Description":                  pm.Description,
			"UnitOfMeasure":                pm.UnitOfMeasure,
			"OrgId":                        pm.OrgID,
			"StartDate":                    pm.StartDate,
			"EndDate":                      pm.EndDate,
			"MeasureFormulaExpressionName": pm.FormulaExpressionName,
			"ProcessTransactions":          pm.ProcessTransactions,
			"PerformanceInterval":          pm.PerformanceInterval,
			"ActiveFlag":                   pm.ActiveFlag,
			"UseExternalFormulaFlag":       pm.UseExternalFormula,
			"RunningTotalFlag":             pm.RunningTotalFlag,
			"FYear":                        pm.FiscalYear,
			"CreditCategoryName":           pm.CreditCategoryName,
			"ScorecardRateTableName":       pm.ScorecardRateTable,
		})
	}
	add(TablePerformanceMeasure, pmRows)

	var pcRows []Row
	for _, pc := range g.PlanComponents {
		pcRows = append(pcRows, Row{
			"PlanName":                     pc.PlanName,
			"Plan Component Name":          pc.Name,
			"IncentiveType":                pc.IncentiveType,
			"StartDate":                    pc.StartDate,
			"EndDate":                      pc.EndDate,
			"CalculationMethod":            pc.CalculationMethod,
			"OrgId":                        pc.OrgID,
			"Performance Measure Name":     pc.MeasureName,
			"Rate Table Name":              pc.RateTableName,
			"RTStartDate":                  pc.RateTableStartDate,
			"RTEndDate":                    pc.RateTableEndDate,
			"Incentive Formula Expression": pc.IncentiveFormula,
			"PerformanceMeasureWeight":     pc.MeasureWeight,
			"CalculationSequence":          pc.CalculationSequence,
			"EarningBasis":                 pc.EarningBasis,
			"CalculateIncentive":           pc.CalculateIncentive,
			"Calculation Phase":            pc.CalculationPhase,
			"Earning Type":                 pc.EarningType,
			"PayoutFrequency":              pc.PayoutFrequency,
			"SplitAttainment":              pc.SplitAttainment,
			"FixedWithinTier":              pc.FixedWithinTier,
			"TrueUp":                       pc.TrueUp,
			"TrueUpResetInterval":          pc.TrueUpResetInterval,
			"IncludeIndirectCredits":       pc.IncludeIndirectCredits,
			"RateDimensionInputExpression": pc.RateDimensionInputExpr,
		})
	}
	add(TablePlanComponents, pcRows)

	var cpRows []Row
	for _, cp := range g.CompensationPlans {
		components := cp.ComponentNames
		if len(components) == 0 {
			components = []string{""}
		}
		for _, comp := range components {
			cpRows = append(cpRows, Row{
				"Name":                cp.Name,
				"StartDate":           cp.StartDate,
				"EndDate":             cp.EndDate,
				"Status":              cp.Status,
				"Description":         cp.Description,
				"DisplayName":         cp.DisplayName,
				"TargetIncentive":     cp.TargetIncentive,
				"OrgId":               cp.OrgID,
				"Plan Component Name": comp,
			})
		}
	}
	add(TableCompensationPlans, cpRows)

	var goalRows []Row
	for _, goal := range g.PerformanceGoals {
		goalRows = append(goalRows, Row{
			"PerformanceMeasureName": goal.MeasureName,
			"GoalInterval":           goal.Interval,
			"GoalTarget":             goal.Target,
		})
	}
	add(TablePerformanceGoals, goalRows)

	var scRows []Row
	for _, sc := range g.Scorecards {
		scRows = append(scRows, Row{
			"ScorecardName":          sc.Name,
			"PerformanceMeasureName": sc.MeasureName,
			"RateTableName":          sc.RateTableName,
			"InputExpressionName":    sc.InputExpressionName,
			"Description":            sc.Description,
		})
	}
	add(TableScorecards, scRows)

	var csRows []Row
	for _, cs := range g.CalculationSettings {
		csRows = append(csRows, Row{
			"PlanComponentName":      cs.ComponentName,
			"CalculateIncentive":     cs.CalculateIncentive,
			"ProcessTransactions":    cs.ProcessTransactions,
			"PayoutFrequency":        cs.PayoutFrequency,
			"SplitAttainment":        cs.SplitAttainment,
			"FixedWithinTier":        cs.FixedWithinTier,
			"TrueUp":                 cs.TrueUp,
			"TrueUpResetInterval":    cs.TrueUpResetInterval,
			"IncludeIndirectCredits": cs.IncludeIndirectCredits,
			"RunningTotal":           cs.RunningTotal,
		})
	}
	add(TableCalculationSettings, csRows)

	add(TableConfig, []Row{
		{"Key": "Version", "Value": "2.0"},
		{"Key": "Year", "Value": strconv.Itoa(g.PlanYear)},
		{"Key": "OrgId", "Value": strconv.FormatInt(g.OrgID, 10)},
		{"Key": "GeneratedBy", "Value": "PlanForge"},
		{"Key": "GeneratedAt", "Value": generatedAt.Format(time.RFC3339)},
	})

	return w
}

// ToGraph reconstructs a graph from a workbook, the inverse of FromGraph.
// Numeric cells may arrive as float64 after a JSON round trip; both forms are
// accepted.
func ToGraph(w *Workbook) (*model.Graph, error) {
	g := &model.Graph{}

	for _, row := range tableRows(w, TableConfig) {
		switch str(row, "Key") {
		case "Year":
			year, err := strconv.Atoi(str(row, "Value"))
			if err != nil {
				return nil, fmt.Errorf("config Year is not an integer: %w", err)
			}
			g.PlanYear = year
		case "OrgId":
			org, err := strconv.ParseInt(str(row, "Value"), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("config OrgId is not an integer: %w", err)
			}
			g.OrgID = org
		}
	}

	for _, row := range tableRows(w, TableCreditCategories) {
		g.CreditCategories = append(g.CreditCategories, model.CreditCategory{
			Name:        str(row, "CreditCategoryName"),
			Description: str(row, "Description"),
			OrgID:       integer64(row, "OrgId"),
			Action:      str(row, "Action"),
		})
	}

	dimIndex := map[string]int{}
	for _, row := range tableRows(w, TableRateDimension) {
		name := str(row, "Rate Dimension Name")
		i, ok := dimIndex[name]
		if !ok {
			g.RateDimensions = append(g.RateDimensions, model.RateDimension{
				Name:  name,
				Type:  str(row, "Rate Dimension Type"),
				OrgID: integer64(row, "Org ID"),
			})
			i = len(g.RateDimensions) - 1
			dimIndex[name] = i
		}
		g.RateDimensions[i].Tiers = append(g.RateDimensions[i].Tiers, model.Tier{
			Sequence:      integer(row, "Tier Sequence"),
			MinimumAmount: num(row, "Minimum Amount"),
			MaximumAmount: num(row, "Maximum Amount"),
		})
	}

	tableIndex := map[string]int{}
	for _, row := range tableRows(w, TableRateTable) {
		name := str(row, "Rate Table Name")
		g.RateTables = append(g.RateTables, model.RateTable{
			Name:          name,
			Type:          str(row, "Rate Table Type"),
			OrgID:         integer64(row, "Org ID"),
			DisplayName:   str(row, "Display Name"),
			DimensionName: str(row, "Rate Dimension Name"),
		})
		tableIndex[name] = len(g.RateTables) - 1
	}
	for _, row := range tableRows(w, TableRateTableRates) {
		name := str(row, "Rate Table Name")
		rate := model.RateTableRate{
			MinimumAmount: num(row, "Minimum Amount"),
			MaximumAmount: num(row, "Maximum Amount"),
			RateValue:     num(row, "Rate Value"),
			TierSequence:  integer(row, "TierSequence"),
		}
		// A row naming an undeclared table is kept unattached so the
		// dangling reference surfaces at validation, not here.
		i, ok := tableIndex[name]
		if !ok {
			g.UnattachedRates = append(g.UnattachedRates, model.UnattachedRate{
				RateTableName: name,
				Rate:          rate,
			})
			continue
		}
		g.RateTables[i].Rates = append(g.RateTables[i].Rates, rate)
	}

	exprIndex := map[string]int{}
	for _, row := range tableRows(w, TableExpression) {
		name := str(row, "Expression Name")
		i, ok := exprIndex[name]
		if !ok {
			g.Expressions = append(g.Expressions, model.Expression{
				Name:        name,
				Description: str(row, "Description"),
				Category:    model.ExpressionCategory(str(row, "ExpressionCategory")),
				OrgID:       g.OrgID,
			})
			i = len(g.Expressions) - 1
			exprIndex[name] = i
		}
		kind := model.KindFromLabel(str(row, "Expression Detail Type"))
		detail := model.ExpressionDetail{
			Sequence: integer(row, "Sequence"),
			Kind:     kind,
			Category: model.ExpressionCategory(str(row, "ExpressionCategory")),
		}
		switch kind {
		case model.KindAttributeRef:
			detail.AttributeGroup = str(row, "Basic Attributes Group")
			detail.AttributeName = str(row, "Basic Attribute Name")
		case model.KindMeasureResult:
			detail.MeasureName = str(row, "Measure Name")
			detail.ResultAttribute = str(row, "Measure Result Attribute")
		case model.KindComponentResult:
			detail.ComponentName = str(row, "Plan Component Name")
			detail.ComponentResultAttribute = str(row, "Plan Component Result Attribute")
		case model.KindOperator:
			detail.Operator = str(row, "Expression Operator")
		case model.KindConstant:
			detail.Constant = str(row, "Constant Value")
		default:
			detail.Text = str(row, "Description")
		}
		g.Expressions[i].Details = append(g.Expressions[i].Details, detail)
	}

	for _, row := range tableRows(w, TablePerformanceMeasure) {
		g.PerformanceMeasures = append(g.PerformanceMeasures, model.PerformanceMeasure{
			Name:                  str(row, "Name"),
			Description:           str(row, "Description"),
			UnitOfMeasure:         str(row, "UnitOfMeasure"),
			OrgID:                 integer64(row, "OrgId"),
			StartDate:             str(row, "StartDate"),
			EndDate:               str(row, "EndDate"),
			FormulaExpressionName: str(row, "MeasureFormulaExpressionName"),
			ProcessTransactions:   str(row, "ProcessTransactions"),
			PerformanceInterval:   str(row, "PerformanceInterval"),
			ActiveFlag:            str(row, "ActiveFlag"),
			UseExternalFormula:    str(row, "UseExternalFormulaFlag"),
			RunningTotalFlag:      str(row, "RunningTotalFlag"),
			FiscalYear:            integer(row, "FYear"),
			CreditCategoryName:    str(row, "CreditCategoryName"),
			ScorecardRateTable:    str(row, "ScorecardRateTableName"),
		})
	}

	for _, row := range tableRows(w, TablePlanComponents) {
		g.PlanComponents = append(g.PlanComponents, model.PlanComponent{
			PlanName:               str(row, "PlanName"),
			Name:                   str(row, "Plan Component Name"),
			IncentiveType:          str(row, "IncentiveType"),
			StartDate:              str(row, "StartDate"),
			EndDate:                str(row, "EndDate"),
			CalculationMethod:      str(row, "CalculationMethod"),
			OrgID:                  integer64(row, "OrgId"),
			MeasureName:            str(row, "Performance Measure Name"),
			RateTableName:          str(row, "Rate Table Name"),
			RateTableStartDate:     str(row, "RTStartDate"),
			RateTableEndDate:       str(row, "RTEndDate"),
			IncentiveFormula:       str(row, "Incentive Formula Expression"),
			MeasureWeight:          num(row, "PerformanceMeasureWeight"),
			CalculationSequence:    integer(row, "CalculationSequence"),
			EarningBasis:           str(row, "EarningBasis"),
			CalculateIncentive:     str(row, "CalculateIncentive"),
			CalculationPhase:       integer(row, "Calculation Phase"),
			EarningType:            integer(row, "Earning Type"),
			PayoutFrequency:        str(row, "PayoutFrequency"),
			SplitAttainment:        str(row, "SplitAttainment"),
			FixedWithinTier:        str(row, "FixedWithinTier"),
			TrueUp:                 str(row, "TrueUp"),
			TrueUpResetInterval:    str(row, "TrueUpResetInterval"),
			IncludeIndirectCredits: str(row, "IncludeIndirectCredits"),
			RateDimensionInputExpr: str(row, "RateDimensionInputExpression"),
		})
	}

	planIndex := map[string]int{}
	for _, row := range tableRows(w, TableCompensationPlans) {
		name := str(row, "Name")
		i, ok := planIndex[name]
		if !ok {
			g.CompensationPlans = append(g.CompensationPlans, model.CompensationPlan{
				Name:            name,
				StartDate:       str(row, "StartDate"),
				EndDate:         str(row, "EndDate"),
				Status:          str(row, "Status"),
				Description:     str(row, "Description"),
				DisplayName:     str(row, "DisplayName"),
				TargetIncentive: num(row, "TargetIncentive"),
				OrgID:           integer64(row, "OrgId"),
			})
			i = len(g.CompensationPlans) - 1
			planIndex[name] = i
		}
		if comp := str(row, "Plan Component Name"); comp != "" {
			g.CompensationPlans[i].ComponentNames = append(g.CompensationPlans[i].ComponentNames, comp)
		}
	}

	for _, row := range tableRows(w, TablePerformanceGoals) {
		g.PerformanceGoals = append(g.PerformanceGoals, model.PerformanceGoal{
			MeasureName: str(row, "PerformanceMeasureName"),
			Interval:    str(row, "GoalInterval"),
			Target:      num(row, "GoalTarget"),
		})
	}

	for _, row := range tableRows(w, TableScorecards) {
		g.Scorecards = append(g.Scorecards, model.Scorecard{
			Name:                str(row, "ScorecardName"),
			MeasureName:         str(row, "PerformanceMeasureName"),
			RateTableName:       str(row, "RateTableName"),
			InputExpressionName: str(row, "InputExpressionName"),
			Description:         str(row, "Description"),
		})
	}

	for _, row := range tableRows(w, TableCalculationSettings) {
		g.CalculationSettings = append(g.CalculationSettings, model.CalculationSetting{
			ComponentName:          str(row, "PlanComponentName"),
			CalculateIncentive:     str(row, "CalculateIncentive"),
			ProcessTransactions:    str(row, "ProcessTransactions"),
			PayoutFrequency:        str(row, "PayoutFrequency"),
			SplitAttainment:        str(row, "SplitAttainment"),
			FixedWithinTier:        str(row, "FixedWithinTier"),
			TrueUp:                 str(row, "TrueUp"),
			TrueUpResetInterval:    str(row, "TrueUpResetInterval"),
			IncludeIndirectCredits: str(row, "IncludeIndirectCredits"),
			RunningTotal:           str(row, "RunningTotal"),
		})
	}

	return g, nil
}

func tableRows(w *Workbook, name string) []Row {
	if t := w.Table(name); t != nil {
		return t.Rows
	}
	return nil
}

func str(row Row, col string) string {
	switch v := row[col].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func num(row Row, col string) float64 {
	switch v := row[col].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		f, _ := strconv.ParseFloat(v, 64)
		return f
	default:
		return 0
	}
}

func integer(row Row, col string) int {
	return int(num(row, col))
}

func integer64(row Row, col string) int64 {
	return int64(num(row, col))
}
