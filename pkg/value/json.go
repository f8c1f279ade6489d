package value

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Parse decodes a JSON document into a Value
func Parse(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode value: %w", err)
	}
	return FromAny(raw), nil
}

// ParseObject decodes a JSON object into an Object
func ParseObject(data []byte) (Object, error) {
	v, err := Parse(data)
	if err != nil {
		return nil, err
	}
	obj, ok := v.(Object)
	if !ok {
		return nil, fmt.Errorf("expected a JSON object, got %s", v.Kind())
	}
	return obj, nil
}

// FromAny converts decoded JSON (or plain Go values) into a Value. Objects
// holding exactly a numeric latitude and longitude become Points, and
// objects carrying a string BranchType become Variants.
func FromAny(v any) Value {
	switch tv := v.(type) {
	case nil:
		return Null{}
	case Value:
		return Clone(tv)
	case bool:
		return Bool(tv)
	case string:
		return String(tv)
	case json.Number:
		f, err := tv.Float64()
		if err != nil {
			return String(tv.String())
		}
		return Number(f)
	case float64:
		return Number(tv)
	case float32:
		return Number(tv)
	case int:
		return Number(tv)
	case int32:
		return Number(tv)
	case int64:
		return Number(tv)
	case time.Time:
		return Date{Time: tv}
	case []any:
		arr := make(Array, len(tv))
		for i, item := range tv {
			arr[i] = FromAny(item)
		}
		return arr
	case []string:
		arr := make(Array, len(tv))
		for i, item := range tv {
			arr[i] = String(item)
		}
		return arr
	case map[string]any:
		obj := make(Object, len(tv))
		for k, item := range tv {
			obj[k] = FromAny(item)
		}
		return classify(obj)
	}
	return String(fmt.Sprint(v))
}

// FromMap converts a decoded JSON object into an Object. Unlike FromAny the
// top level is never narrowed to a Point or Variant.
func FromMap(m map[string]any) Object {
	obj := make(Object, len(m))
	for k, item := range m {
		obj[k] = FromAny(item)
	}
	return obj
}

// classify narrows a plain object to a Point or Variant when its shape says so
func classify(obj Object) Value {
	if pt, ok := asPoint(obj); ok {
		return pt
	}
	if branch, ok := obj[BranchField].(String); ok {
		fields := make(Object, len(obj)-1)
		for k, v := range obj {
			if k != BranchField {
				fields[k] = v
			}
		}
		return Variant{Branch: string(branch), Fields: fields}
	}
	return obj
}

func asPoint(obj Object) (Point, bool) {
	if len(obj) != 2 {
		return Point{}, false
	}
	lat, ok := obj["latitude"].(Number)
	if !ok {
		return Point{}, false
	}
	lng, ok := obj["longitude"].(Number)
	if !ok {
		return Point{}, false
	}
	return Point{Latitude: float64(lat), Longitude: float64(lng)}, true
}

// ToAny converts v into plain Go values suitable for encoding/json. An
// absent value converts to nil.
func ToAny(v Value) any {
	switch tv := v.(type) {
	case nil, Null:
		return nil
	case Bool:
		return bool(tv)
	case Number:
		return float64(tv)
	case String:
		return string(tv)
	case Date:
		return tv.Time.UTC().Format(DateLayout)
	case Point:
		return map[string]any{"latitude": tv.Latitude, "longitude": tv.Longitude}
	case Array:
		out := make([]any, len(tv))
		for i, item := range tv {
			out[i] = ToAny(item)
		}
		return out
	case Object:
		out := make(map[string]any, len(tv))
		for k, item := range tv {
			if item == nil {
				continue
			}
			out[k] = ToAny(item)
		}
		return out
	case Variant:
		out := make(map[string]any, len(tv.Fields)+1)
		for k, item := range tv.Fields {
			if item == nil {
				continue
			}
			out[k] = ToAny(item)
		}
		out[BranchField] = tv.Branch
		return out
	}
	return nil
}

// MarshalJSON renders null
func (Null) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// MarshalJSON renders the date as an ISO-8601 UTC string
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(ToAny(d))
}

// MarshalJSON renders {"latitude":..,"longitude":..}
func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal(ToAny(p))
}

// MarshalJSON renders the array elements
func (a Array) MarshalJSON() ([]byte, error) {
	return json.Marshal(ToAny(a))
}

// MarshalJSON renders the object, skipping absent fields
func (o Object) MarshalJSON() ([]byte, error) {
	return json.Marshal(ToAny(o))
}

// MarshalJSON renders the variant fields together with its BranchType
func (v Variant) MarshalJSON() ([]byte, error) {
	return json.Marshal(ToAny(v))
}
