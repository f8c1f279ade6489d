package tracking

import "github.com/conduit-lang/conduit-sdk/pkg/value"

// Diff computes the patch that turns shadow into current.
//
// A nil result means nothing changed. Fields present in shadow but missing
// (or null) in current come back as value.Null so the server can tell an
// explicit removal from an omitted, unchanged field. Arrays, dates, points
// and variants are replaced whole.
func Diff(shadow, current value.Value) value.Value {
	if value.Equal(shadow, current) {
		return nil
	}
	if current == nil {
		// removal is expressed by the parent object
		return nil
	}
	if shadow == nil {
		return value.Clone(current)
	}

	switch cur := current.(type) {
	case value.Object:
		prev, ok := shadow.(value.Object)
		if !ok {
			return cur.Clone()
		}
		return diffObject(prev, cur)
	default:
		return value.Clone(current)
	}
}

func diffObject(shadow, current value.Object) value.Value {
	patch := value.Object{}

	for field, cur := range current {
		if cur == nil {
			continue
		}
		if _, ok := cur.(value.Variant); ok {
			if !value.Equal(shadow[field], cur) {
				patch[field] = value.Clone(cur)
			}
			continue
		}
		if change := Diff(shadow[field], cur); change != nil {
			patch[field] = change
		}
	}

	for field, prev := range shadow {
		if value.IsNull(prev) {
			continue
		}
		if value.IsNull(current[field]) {
			patch[field] = value.Null{}
		}
	}

	if len(patch) == 0 {
		return nil
	}
	return patch
}
