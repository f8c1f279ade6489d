package value

import "time"

// dateLayouts are tried in order when loading a date string
var dateLayouts = []string{
	time.RFC3339Nano,
	DateLayout,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseDate parses a wire date string
func ParseDate(s string) (Date, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Date{Time: t}, true
		}
	}
	return Date{}, false
}

// LoadDateTime converts a wire string into a Date. Absent and null values
// pass through, as do strings that are not dates.
func LoadDateTime(v Value) Value {
	switch tv := v.(type) {
	case String:
		if d, ok := ParseDate(string(tv)); ok {
			return d
		}
	}
	return v
}

// LoadGeospatialPoint converts a wire value into a Point. With no existing
// point the value must carry both coordinates. With an existing point a
// single coordinate is enough and the other is kept.
func LoadGeospatialPoint(existing, v Value) Value {
	switch tv := v.(type) {
	case Point:
		return tv
	case Object:
		if pt, ok := existing.(Point); ok {
			if merged, ok := mergePoint(pt, tv); ok {
				return merged
			}
			return nil
		}
		if pt, ok := asPoint(tv); ok {
			return pt
		}
	}
	return nil
}
