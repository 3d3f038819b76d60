package compile

import (
	"strconv"

	"github.com/planlytics/planforge/internal/model"
)

// DetailFromRow converts one raw expression row into a tagged IR term. It is
// a pure function: the heuristic "guess the kind from whichever fields are
// populated" lives entirely here.
//
// Precedence when the label is generic: measure result, then attribute
// reference, then component result, then operator, then constant. A row with
// no recognizable operand degrades to an Unresolved term carrying the row's
// free-text description.
func DetailFromRow(row model.RawExpressionRow) model.ExpressionDetail {
	d := model.ExpressionDetail{
		Sequence: row.Sequence,
		Category: model.ExpressionCategory(row.Category),
	}

	// Canonical labels win when their operands are present. Anything else
	// (typically "Calculation" or an empty string) is a generic placeholder
	// and the kind is inferred from the populated operands below.
	switch model.KindFromLabel(row.DetailType) {
	case model.KindMeasureResult:
		if row.MeasureName != "" && row.MeasureResultAttribute != "" {
			return measureResult(d, row)
		}
	case model.KindAttributeRef:
		if row.BasicAttributesGroup != "" && row.BasicAttributeName != "" {
			return attributeRef(d, row)
		}
	case model.KindComponentResult:
		if row.PlanComponentName != "" && row.ComponentResultAttribute != "" {
			return componentResult(d, row)
		}
	case model.KindOperator:
		if row.Operator != "" {
			return operator(d, row)
		}
	case model.KindConstant:
		if row.ConstantValue != nil {
			return constant(d, row)
		}
	}

	// Generic or mislabeled row: infer from the operands.
	switch {
	case row.MeasureName != "" && row.MeasureResultAttribute != "":
		return measureResult(d, row)
	case row.BasicAttributesGroup != "" && row.BasicAttributeName != "":
		return attributeRef(d, row)
	case row.PlanComponentName != "" && row.ComponentResultAttribute != "":
		return componentResult(d, row)
	case row.Operator != "":
		return operator(d, row)
	case row.ConstantValue != nil:
		return constant(d, row)
	default:
		d.Kind = model.KindUnresolved
		d.Text = row.Description
		return d
	}
}

func measureResult(d model.ExpressionDetail, row model.RawExpressionRow) model.ExpressionDetail {
	d.Kind = model.KindMeasureResult
	d.MeasureName = row.MeasureName
	d.ResultAttribute = row.MeasureResultAttribute
	return d
}

func attributeRef(d model.ExpressionDetail, row model.RawExpressionRow) model.ExpressionDetail {
	d.Kind = model.KindAttributeRef
	d.AttributeGroup = row.BasicAttributesGroup
	d.AttributeName = row.BasicAttributeName
	return d
}

func componentResult(d model.ExpressionDetail, row model.RawExpressionRow) model.ExpressionDetail {
	d.Kind = model.KindComponentResult
	d.ComponentName = row.PlanComponentName
	d.ComponentResultAttribute = row.ComponentResultAttribute
	return d
}

func operator(d model.ExpressionDetail, row model.RawExpressionRow) model.ExpressionDetail {
	d.Kind = model.KindOperator
	d.Operator = row.Operator
	return d
}

func constant(d model.ExpressionDetail, row model.RawExpressionRow) model.ExpressionDetail {
	d.Kind = model.KindConstant
	d.Constant = strconv.FormatFloat(*row.ConstantValue, 'f', -1, 64)
	return d
}
