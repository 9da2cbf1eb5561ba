// Package query turns untrusted list parameters into a Plan and renders the
// plan as SQL against an allow-listed schema.  Stages are always applied in
// the same order: filter, sort, projection, pagination.
package query

import (
	"math"
	"net/url"
	"strconv"
	"strings"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100

	// MaxPage keeps (page-1)*limit inside an int for every allowed limit.
	MaxPage = math.MaxInt32 / MaxLimit
)

// Filter is an equality constraint on a single field.
type Filter struct {
	Field string
	Value string
}

// Sort orders results by a single field.
type Sort struct {
	Field string
	Desc  bool
}

// Plan is the resolved filter/sort/projection/pagination for one list
// request.  Nil Filter, nil Sort and empty Fields are no-ops.
type Plan struct {
	Filter *Filter
	Sort   *Sort
	Fields []string
	Page   int
	Limit  int
}

// DefaultPlan is what an empty query string resolves to.
func DefaultPlan() Plan {
	return Plan{Page: DefaultPage, Limit: DefaultLimit}
}

// Skip is the number of rows to skip before the requested page.
func (p Plan) Skip() int {
	return (p.Page - 1) * p.Limit
}

// Parse builds a Plan from query parameters.  It never fails: unusable
// values fall back to the defaults.
//
//	filterField, filterValue  equality filter, both required
//	sortField, sortOrder      sortOrder is asc (default) or desc
//	fields                    comma-separated projection
//	page, limit               positive integers
func Parse(v url.Values) Plan {
	p := DefaultPlan()

	field := strings.TrimSpace(v.Get("filterField"))
	value := v.Get("filterValue")
	if field != "" && value != "" {
		p.Filter = &Filter{Field: field, Value: value}
	}

	if sf := strings.TrimSpace(v.Get("sortField")); sf != "" {
		p.Sort = &Sort{
			Field: sf,
			Desc:  strings.EqualFold(strings.TrimSpace(v.Get("sortOrder")), "desc"),
		}
	}

	p.Fields = splitFields(v.Get("fields"))
	p.Page = positiveOr(v.Get("page"), DefaultPage)
	if p.Page > MaxPage {
		p.Page = MaxPage
	}
	p.Limit = positiveOr(v.Get("limit"), DefaultLimit)
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	return p
}

func splitFields(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	seen := map[string]bool{}
	for _, f := range strings.Split(s, ",") {
		f = strings.TrimSpace(f)
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}

func positiveOr(s string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return def
	}
	return n
}
