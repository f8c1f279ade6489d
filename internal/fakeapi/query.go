package fakeapi

import (
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var filterPattern = regexp.MustCompile(`^filter\[([^:\]]+):([^\]]+)\]$`)

type filter struct {
	op    string
	field string
	value string
}

type sortKey struct {
	field string
	desc  bool
}

// listQuery is a parsed list request
type listQuery struct {
	filters  []filter
	sort     []sortKey
	includes []string
	offset   int
	size     int
	count    bool
}

func parseListQuery(values url.Values) (*listQuery, error) {
	q := &listQuery{size: -1}

	for key, vals := range values {
		m := filterPattern.FindStringSubmatch(key)
		if m == nil {
			continue
		}
		if !knownOperator(m[1]) {
			return nil, fmt.Errorf("unknown filter operator %q", m[1])
		}
		q.filters = append(q.filters, filter{op: m[1], field: m[2], value: vals[0]})
	}
	sort.Slice(q.filters, func(i, j int) bool { return q.filters[i].field < q.filters[j].field })

	for _, part := range splitList(values.Get("sort")) {
		key := sortKey{field: part}
		if strings.HasPrefix(part, "-") {
			key = sortKey{field: part[1:], desc: true}
		}
		q.sort = append(q.sort, key)
	}
	q.includes = splitList(values.Get("include"))
	q.count = values.Get("meta-action") == "count"

	size, err := intParam(values, "page[size]", -1)
	if err != nil {
		return nil, err
	}
	offset, err := intParam(values, "page[offset]", 0)
	if err != nil {
		return nil, err
	}
	number, err := intParam(values, "page[number]", 0)
	if err != nil {
		return nil, err
	}
	if number > 0 {
		if size < 0 {
			return nil, fmt.Errorf("page[number] needs page[size]")
		}
		offset = (number - 1) * size
	}
	q.offset = offset
	q.size = size
	return q, nil
}

func intParam(values url.Values, name string, def int) (int, error) {
	raw := values.Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", name)
	}
	return n, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func knownOperator(op string) bool {
	switch op {
	case "equal", "!equal", "from", "to", "autocomplete", "text", "near", "exists":
		return true
	}
	return false
}

// apply filters and sorts items, returning the page and the filtered total
func (q *listQuery) apply(items []*record) ([]*record, int, error) {
	matched := make([]*record, 0, len(items))
	for _, rec := range items {
		ok, err := q.matches(rec)
		if err != nil {
			return nil, 0, err
		}
		if ok {
			matched = append(matched, rec)
		}
	}

	if len(q.sort) > 0 {
		sort.SliceStable(matched, func(i, j int) bool {
			for _, key := range q.sort {
				c := compareValues(lookupPath(matched[i], key.field), lookupPath(matched[j], key.field))
				if c == 0 {
					continue
				}
				if key.desc {
					return c > 0
				}
				return c < 0
			}
			return false
		})
	}

	total := len(matched)
	start := min(q.offset, total)
	end := total
	if q.size >= 0 {
		end = min(start+q.size, total)
	}
	return matched[start:end], total, nil
}

func (q *listQuery) matches(rec *record) (bool, error) {
	for _, f := range q.filters {
		ok, err := f.matches(lookupPath(rec, f.field))
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func (f filter) matches(v any) (bool, error) {
	switch f.op {
	case "equal":
		return v != nil && formatValue(v) == f.value, nil
	case "!equal":
		return v == nil || formatValue(v) != f.value, nil
	case "from":
		return v != nil && compareValues(v, parseScalar(f.value)) >= 0, nil
	case "to":
		return v != nil && compareValues(v, parseScalar(f.value)) <= 0, nil
	case "autocomplete":
		s, ok := v.(string)
		return ok && strings.HasPrefix(strings.ToLower(s), strings.ToLower(f.value)), nil
	case "text":
		s, ok := v.(string)
		return ok && strings.Contains(strings.ToLower(s), strings.ToLower(f.value)), nil
	case "exists":
		want, err := strconv.ParseBool(f.value)
		if err != nil {
			return false, fmt.Errorf("exists filter on %s needs true or false", f.field)
		}
		return (v != nil) == want, nil
	case "near":
		return nearMatch(v, f.value)
	}
	return false, fmt.Errorf("unknown filter operator %q", f.op)
}

// nearMatch accepts "latitude,longitude,radiusKm"
func nearMatch(v any, param string) (bool, error) {
	parts := strings.Split(param, ",")
	if len(parts) != 3 {
		return false, fmt.Errorf("near filter needs latitude,longitude,radius")
	}
	nums := make([]float64, 3)
	for i, p := range parts {
		n, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return false, fmt.Errorf("near filter needs latitude,longitude,radius")
		}
		nums[i] = n
	}

	point, ok := v.(map[string]any)
	if !ok {
		return false, nil
	}
	lat, ok1 := point["latitude"].(float64)
	lng, ok2 := point["longitude"].(float64)
	if !ok1 || !ok2 {
		return false, nil
	}
	return haversineKm(lat, lng, nums[0], nums[1]) <= nums[2], nil
}

const earthRadiusKm = 6371.0

func haversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	rad := math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLng := (lng2 - lng1) * rad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}

// lookupPath resolves a dotted attribute path; "id" is the resource id
func lookupPath(rec *record, path string) any {
	if path == "id" {
		return rec.ID
	}
	var cur any = rec.Attributes
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = m[part]
	}
	return cur
}

func parseScalar(s string) any {
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return n
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return s
}

func formatValue(v any) string {
	switch tv := v.(type) {
	case string:
		return tv
	case float64:
		return strconv.FormatFloat(tv, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(tv)
	case nil:
		return "null"
	}
	data, _ := json.Marshal(v)
	return string(data)
}

// compareValues orders nil first, numbers numerically and everything else
// by its string form
func compareValues(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	if x, ok := a.(float64); ok {
		if y, ok := b.(float64); ok {
			switch {
			case x < y:
				return -1
			case x > y:
				return 1
			}
			return 0
		}
	}
	return strings.Compare(formatValue(a), formatValue(b))
}
