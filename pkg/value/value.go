// Package value provides the attribute value tree used by resource objects.
//
// A Value is one of a closed set of kinds. A nil Value means the field is
// absent; Null is an explicit JSON null. The distinction matters when
// computing patches: an absent field is unchanged, a null field is removed.
package value

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"
)

// Kind identifies the concrete type of a Value
type Kind int

const (
	NullKind Kind = iota
	BoolKind
	NumberKind
	StringKind
	DateKind
	PointKind
	ArrayKind
	ObjectKind
	VariantKind
)

// String returns the kind name
func (k Kind) String() string {
	switch k {
	case NullKind:
		return "null"
	case BoolKind:
		return "bool"
	case NumberKind:
		return "number"
	case StringKind:
		return "string"
	case DateKind:
		return "date"
	case PointKind:
		return "point"
	case ArrayKind:
		return "array"
	case ObjectKind:
		return "object"
	case VariantKind:
		return "variant"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Value is a node in an attribute tree
type Value interface {
	Kind() Kind
	isValue()
}

// BranchField is the wire field that marks an object as a Variant
const BranchField = "BranchType"

// DateLayout is the wire format for Date values
const DateLayout = "2006-01-02T15:04:05.000Z07:00"

type (
	// Null is an explicit JSON null
	Null struct{}

	// Bool is a JSON boolean
	Bool bool

	// Number is a JSON number
	Number float64

	// String is a JSON string
	String string

	// Date is a point in time, rendered as an ISO-8601 UTC string
	Date struct {
		Time time.Time
	}

	// Point is a geospatial coordinate pair
	Point struct {
		Latitude  float64
		Longitude float64
	}

	// Array is an ordered list of values
	Array []Value

	// Object is a set of named values
	Object map[string]Value

	// Variant is one of several alternative attribute shapes, discriminated
	// by Branch. It compares and serializes as a unit.
	Variant struct {
		Branch string
		Fields Object
	}
)

func (Null) Kind() Kind    { return NullKind }
func (Bool) Kind() Kind    { return BoolKind }
func (Number) Kind() Kind  { return NumberKind }
func (String) Kind() Kind  { return StringKind }
func (Date) Kind() Kind    { return DateKind }
func (Point) Kind() Kind   { return PointKind }
func (Array) Kind() Kind   { return ArrayKind }
func (Object) Kind() Kind  { return ObjectKind }
func (Variant) Kind() Kind { return VariantKind }

func (Null) isValue()    {}
func (Bool) isValue()    {}
func (Number) isValue()  {}
func (String) isValue()  {}
func (Date) isValue()    {}
func (Point) isValue()   {}
func (Array) isValue()   {}
func (Object) isValue()  {}
func (Variant) isValue() {}

// NewDate wraps t as a Date
func NewDate(t time.Time) Date {
	return Date{Time: t}
}

// NewPoint builds a Point from latitude and longitude
func NewPoint(latitude, longitude float64) Point {
	return Point{Latitude: latitude, Longitude: longitude}
}

// NewVariant builds a Variant for the given branch
func NewVariant(branch string, fields Object) Variant {
	if fields == nil {
		fields = Object{}
	}
	return Variant{Branch: branch, Fields: fields}
}

// IsNull reports whether v is absent or an explicit null
func IsNull(v Value) bool {
	if v == nil {
		return true
	}
	_, ok := v.(Null)
	return ok
}

// Equal reports whether a and b are deeply equal. Two absent values are equal.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Kind() != b.Kind() {
		return false
	}

	switch av := a.(type) {
	case Null:
		return true
	case Bool:
		return av == b.(Bool)
	case Number:
		bv := b.(Number)
		return av == bv || (math.IsNaN(float64(av)) && math.IsNaN(float64(bv)))
	case String:
		return av == b.(String)
	case Date:
		return av.Time.Equal(b.(Date).Time)
	case Point:
		return av == b.(Point)
	case Array:
		bv := b.(Array)
		if len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case Object:
		return equalObjects(av, b.(Object))
	case Variant:
		bv := b.(Variant)
		return av.Branch == bv.Branch && equalObjects(av.Fields, bv.Fields)
	}
	return false
}

func equalObjects(a, b Object) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok || !Equal(av, bv) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of v
func Clone(v Value) Value {
	switch tv := v.(type) {
	case nil:
		return nil
	case Array:
		return tv.Clone()
	case Object:
		return tv.Clone()
	case Variant:
		return Variant{Branch: tv.Branch, Fields: tv.Fields.Clone()}
	default:
		return v
	}
}

// Clone returns a deep copy of the array
func (a Array) Clone() Array {
	if a == nil {
		return nil
	}
	out := make(Array, len(a))
	for i, v := range a {
		out[i] = Clone(v)
	}
	return out
}

// Clone returns a deep copy of the object
func (o Object) Clone() Object {
	if o == nil {
		return nil
	}
	out := make(Object, len(o))
	for k, v := range o {
		out[k] = Clone(v)
	}
	return out
}

// Keys returns the field names in sorted order
func (o Object) Keys() []string {
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get returns the value at a dotted path such as "product.code"
func (o Object) Get(path ...string) (Value, bool) {
	var cur Value = o
	for _, name := range path {
		obj, ok := cur.(Object)
		if !ok {
			return nil, false
		}
		cur, ok = obj[name]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Merge applies partial to dst field by field and returns dst. Nested
// objects merge recursively; a partial latitude or longitude updates one
// coordinate of an existing Point; any other value replaces the field.
func Merge(dst, partial Object) Object {
	if dst == nil {
		dst = Object{}
	}
	for k, pv := range partial {
		switch p := pv.(type) {
		case Object:
			switch existing := dst[k].(type) {
			case Object:
				dst[k] = Merge(existing, p)
				continue
			case Point:
				if pt, ok := mergePoint(existing, p); ok {
					dst[k] = pt
					continue
				}
			}
		}
		dst[k] = Clone(pv)
	}
	return dst
}

func mergePoint(pt Point, partial Object) (Point, bool) {
	if len(partial) == 0 || len(partial) > 2 {
		return pt, false
	}
	for k, v := range partial {
		n, ok := v.(Number)
		if !ok {
			return pt, false
		}
		switch k {
		case "latitude":
			pt.Latitude = float64(n)
		case "longitude":
			pt.Longitude = float64(n)
		default:
			return pt, false
		}
	}
	return pt, true
}

// Format returns the JSON rendering of the value, for diagnostics
func Format(v Value) string {
	if v == nil {
		return "<absent>"
	}
	data, err := json.Marshal(ToAny(v))
	if err != nil {
		return fmt.Sprintf("<%s: %v>", v.Kind(), err)
	}
	return string(data)
}
