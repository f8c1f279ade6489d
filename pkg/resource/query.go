package resource

import (
	"fmt"
	"strconv"
	"strings"
)

// FilterOperator selects how a filter value is matched
type FilterOperator string

// Filter operators understood by the API
const (
	FilterEqual        FilterOperator = "equal"
	FilterNotEqual     FilterOperator = "!equal"
	FilterFrom         FilterOperator = "from"
	FilterTo           FilterOperator = "to"
	FilterAutoComplete FilterOperator = "autocomplete"
	FilterText         FilterOperator = "text"
	FilterNear         FilterOperator = "near"
	FilterExists       FilterOperator = "exists"
)

// ParseFilterOperator returns the operator with the given wire name
func ParseFilterOperator(s string) (FilterOperator, error) {
	switch op := FilterOperator(s); op {
	case FilterEqual, FilterNotEqual, FilterFrom, FilterTo,
		FilterAutoComplete, FilterText, FilterNear, FilterExists:
		return op, nil
	}
	return "", fmt.Errorf("unknown filter operator %q", s)
}

// Query parameter names
const (
	ParamInclude    = "include"
	ParamSort       = "sort"
	ParamPageOffset = "page[offset]"
	ParamPageNumber = "page[number]"
	ParamPageSize   = "page[size]"
	ParamMetaAction = "meta-action"
)

type pagination struct {
	offset *int
	number *int
	size   *int
}

// query accumulates the parameters of the next request
type query struct {
	filters  map[string]string
	includes []string
	sort     string
	page     pagination
}

func newQuery() query {
	return query{filters: make(map[string]string)}
}

func (q *query) filter(name string, op FilterOperator, v any) {
	q.filters[fmt.Sprintf("%s:%s", op, name)] = formatParam(v)
}

func (q *query) include(name string) {
	for _, existing := range q.includes {
		if existing == name {
			return
		}
	}
	q.includes = append(q.includes, name)
}

func (q *query) pageOffset(offset, size int) {
	q.page = pagination{offset: &offset, size: &size}
}

func (q *query) pageNumber(number, size int) {
	q.page = pagination{number: &number, size: &size}
}

// params renders the query; nil when nothing is set
func (q *query) params() map[string]string {
	params := make(map[string]string)

	for key, v := range q.filters {
		params[fmt.Sprintf("filter[%s]", key)] = v
	}
	if len(q.includes) > 0 {
		params[ParamInclude] = strings.Join(q.includes, ",")
	}
	if q.page.offset != nil {
		params[ParamPageOffset] = strconv.Itoa(*q.page.offset)
	}
	if q.page.number != nil {
		params[ParamPageNumber] = strconv.Itoa(*q.page.number)
	}
	if q.page.size != nil {
		params[ParamPageSize] = strconv.Itoa(*q.page.size)
	}
	if q.sort != "" {
		params[ParamSort] = q.sort
	}

	if len(params) == 0 {
		return nil
	}
	return params
}

func formatParam(v any) string {
	switch tv := v.(type) {
	case string:
		return tv
	case fmt.Stringer:
		return tv.String()
	case float64:
		return strconv.FormatFloat(tv, 'f', -1, 64)
	case []string:
		return strings.Join(tv, ",")
	}
	return fmt.Sprint(v)
}
