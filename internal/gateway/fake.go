package gateway

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
)

// idFields maps a collection's final path segment to the name of the
// identifier the remote assigns on create.
var idFields = map[string]string{
	"creditCategories":                         "CreditCategoryId",
	"rateDimensions":                           "RateDimensionId",
	"rateTables":                               "RateTableId",
	"incentiveCompensationExpressions":         "ExpressionId",
	"ExpressionDetails":                        "ExpressionDetailId",
	"incentiveCompensationPerformanceMeasures": "PerformanceMeasureId",
	"planComponents":                           "PlanComponentId",
	"compensationPlans":                        "CompensationPlanId",
	"RateDimensionTiers":                       "RateDimTierId",
	"RateTableRates":                           "RateTableRateId",
	"RateTableDimensions":                      "RateTableDimensionId",
	"performanceMeasureCreditCategories":       "PerformanceMeasureCreditCategoryId",
	"planComponentIncentiveFormulas":           "IncentiveFormulaId",
	"planComponentRateTables":                  "PlanComponentRateTableId",
	"CompensationPlanComponents":               "CompPlanComponentId",
}

// Fake is an in-memory Gateway that mimics the remote system's REST
// conventions: collections with server-assigned ids, `q=` name queries,
// child collections, 400 on duplicate create, and remote-computed expression
// validity. It exists for orchestrator tests and dry runs against a
// reproducible remote.
type Fake struct {
	mu          sync.Mutex
	collections map[string][]map[string]any
	nextID      int

	// Creates counts successful POSTs, so tests can assert idempotence.
	Creates int

	// ExpressionStatus computes the Status the remote assigns an
	// expression. Defaults to VALID for any non-empty formula.
	ExpressionStatus func(name, formula string) string
}

// NewFake returns an empty fake remote.
func NewFake() *Fake {
	return &Fake{
		collections: make(map[string][]map[string]any),
	}
}

// Seed inserts a record directly into a collection, bypassing POST
// semantics, to model objects that already exist remotely.
func (f *Fake) Seed(collection string, record map[string]any) map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.insert(normalizePath(collection), record)
}

// Records returns the current records of a collection.
func (f *Fake) Records(collection string) []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]map[string]any(nil), f.collections[normalizePath(collection)]...)
}

func normalizePath(endpoint string) string {
	endpoint = strings.TrimPrefix(endpoint, "/")
	endpoint = strings.TrimPrefix(endpoint, strings.TrimPrefix(APIPath, "/")+"/")
	return strings.TrimRight(endpoint, "/")
}

func (f *Fake) insert(collection string, record map[string]any) map[string]any {
	rec := make(map[string]any, len(record)+1)
	for k, v := range record {
		rec[k] = v
	}
	segments := strings.Split(collection, "/")
	idField := idFields[segments[len(segments)-1]]
	if idField == "" {
		idField = "Id"
	}
	if _, ok := rec[idField]; !ok {
		f.nextID++
		rec[idField] = f.nextID
	}
	// The remote assigns tier sequences in creation order.
	if segments[len(segments)-1] == "RateDimensionTiers" {
		if _, ok := rec["TierSequence"]; !ok {
			rec["TierSequence"] = len(f.collections[collection]) + 1
		}
	}
	f.collections[collection] = append(f.collections[collection], rec)

	// The remote auto-creates an incentive formula child per plan component.
	if segments[len(segments)-1] == "planComponents" {
		f.nextID++
		child := fmt.Sprintf("planComponents/%v/child/planComponentIncentiveFormulas", rec["PlanComponentId"])
		f.collections[child] = append(f.collections[child], map[string]any{
			"IncentiveFormulaId": f.nextID,
		})
	}
	return rec
}

func (f *Fake) stampExpressionStatus(rec map[string]any) {
	name, _ := rec["Name"].(string)
	formula, _ := rec["Expression"].(string)
	status := "VALID"
	if f.ExpressionStatus != nil {
		status = f.ExpressionStatus(name, formula)
	}
	rec["Status"] = status
}

// Get implements Gateway. A `q=` query filters the collection; a trailing id
// segment fetches a single record.
func (f *Fake) Get(_ context.Context, endpoint string) (map[string]any, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := normalizePath(endpoint)
	var query string
	if i := strings.Index(path, "?"); i >= 0 {
		path, query = path[:i], path[i+1:]
	}

	if records, ok := f.collections[path]; ok {
		items := filterRecords(records, query)
		return map[string]any{"items": items, "count": len(items)}, 200, nil
	}

	// Single record: parent collection + id.
	if i := strings.LastIndex(path, "/"); i >= 0 {
		parent, id := path[:i], path[i+1:]
		segments := strings.Split(parent, "/")
		idField := idFields[segments[len(segments)-1]]
		for _, rec := range f.collections[parent] {
			if fmt.Sprint(rec[idField]) == id {
				return rec, 200, nil
			}
		}
	}
	return map[string]any{"items": []map[string]any{}, "count": 0}, 200, nil
}

// Post implements Gateway. Creating a record whose Name and OrgId already
// exist in the collection returns 400, matching the remote's conflict
// behavior.
func (f *Fake) Post(_ context.Context, endpoint string, body map[string]any) (map[string]any, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := normalizePath(endpoint)
	if name, ok := body["Name"]; ok {
		for _, rec := range f.collections[path] {
			if fmt.Sprint(rec["Name"]) == fmt.Sprint(name) && fmt.Sprint(rec["OrgId"]) == fmt.Sprint(body["OrgId"]) {
				return map[string]any{"message": fmt.Sprintf("record %v already exists", name)}, 400, nil
			}
		}
	}

	rec := f.insert(path, body)
	if strings.HasSuffix(path, "incentiveCompensationExpressions") {
		f.stampExpressionStatus(rec)
	}
	f.Creates++
	return rec, 201, nil
}

// Patch implements Gateway. The endpoint must address a single record.
func (f *Fake) Patch(_ context.Context, endpoint string, body map[string]any) (map[string]any, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := normalizePath(endpoint)
	i := strings.LastIndex(path, "/")
	if i < 0 {
		return map[string]any{"message": "PATCH requires a record id"}, 400, nil
	}
	parent, id := path[:i], path[i+1:]
	segments := strings.Split(parent, "/")
	idField := idFields[segments[len(segments)-1]]

	for _, rec := range f.collections[parent] {
		if fmt.Sprint(rec[idField]) != id {
			continue
		}
		for k, v := range body {
			rec[k] = v
		}
		if strings.HasSuffix(parent, "incentiveCompensationExpressions") {
			f.stampExpressionStatus(rec)
		}
		return rec, 200, nil
	}
	return map[string]any{"message": "not found"}, 404, nil
}

// filterRecords applies a `q=Field='value';Field2=value2` filter.
func filterRecords(records []map[string]any, rawQuery string) []map[string]any {
	values, err := url.ParseQuery(rawQuery)
	if err != nil || values.Get("q") == "" {
		return append([]map[string]any(nil), records...)
	}

	conditions := strings.Split(values.Get("q"), ";")
	var out []map[string]any
	for _, rec := range records {
		match := true
		for _, cond := range conditions {
			parts := strings.SplitN(cond, "=", 2)
			if len(parts) != 2 {
				continue
			}
			field := strings.TrimSpace(parts[0])
			want := strings.Trim(strings.TrimSpace(parts[1]), "'")
			if decoded, err := url.QueryUnescape(want); err == nil {
				want = decoded
			}
			if fmt.Sprint(rec[field]) != want {
				match = false
				break
			}
		}
		if match {
			out = append(out, rec)
		}
	}
	if out == nil {
		out = []map[string]any{}
	}
	return out
}
