package resource

import (
	"github.com/conduit-lang/conduit-sdk/internal/tracking"
	"github.com/conduit-lang/conduit-sdk/pkg/value"
)

// DiffAttributes returns the minimal patch turning shadow into current, or
// nil when they are equal. Removed fields come back as explicit nulls.
func DiffAttributes(shadow, current value.Object) value.Value {
	var s, c value.Value
	if shadow != nil {
		s = shadow
	}
	if current != nil {
		c = current
	}
	return tracking.Diff(s, c)
}

// DiffRelationships returns the relationships patch turning shadow into
// current, or nil when they hold the same references. Changed to-one and
// to-many references are written as full linkage documents; relationships
// missing from current are written as null. A nil current set means the
// relationships are unknown, not removed, and yields nil.
func DiffRelationships(shadow, current RelationshipSet) value.Value {
	if current == nil || shadow.Equal(current) {
		return nil
	}

	patch := value.Object{}
	for name, cur := range current {
		if isNilLinkage(cur) {
			continue
		}
		prev := shadow[name]
		if isNilLinkage(prev) || !cur.equalLinkage(prev) {
			patch[name] = cur.payload()
		}
	}

	for name, prev := range shadow {
		if isNilLinkage(prev) {
			continue
		}
		if isNilLinkage(current[name]) {
			patch[name] = value.Null{}
		}
	}

	if len(patch) == 0 {
		return nil
	}
	return patch
}

// relationshipsDocument renders every relationship in the set
func relationshipsDocument(set RelationshipSet) value.Value {
	return DiffRelationships(nil, set)
}
