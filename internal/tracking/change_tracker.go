// Package tracking keeps the shadow and working copies of a resource's
// attributes and computes the minimal patch between them.
package tracking

import (
	"sort"

	"github.com/conduit-lang/conduit-sdk/pkg/value"
)

// FieldChange represents a change to a single top-level attribute
type FieldChange struct {
	Field    string
	OldValue value.Value
	NewValue value.Value
}

// ChangeTracker holds the attributes last known to match the server (the
// shadow) next to the working copy callers edit. It is not safe for
// concurrent use.
type ChangeTracker struct {
	shadow  value.Object
	current value.Object
}

// NewChangeTracker creates a tracker with empty shadow and working state
func NewChangeTracker() *ChangeTracker {
	return &ChangeTracker{
		shadow:  value.Object{},
		current: value.Object{},
	}
}

// Load replaces both copies with attrs, leaving the tracker clean
func (ct *ChangeTracker) Load(attrs value.Object) {
	if attrs == nil {
		attrs = value.Object{}
	}
	ct.current = attrs.Clone()
	ct.shadow = attrs.Clone()
}

// Update merges partial into the working copy only
func (ct *ChangeTracker) Update(partial value.Object) {
	ct.current = value.Merge(ct.current, partial)
}

// Current returns the live working copy. Mutating it is how callers edit
// attributes directly.
func (ct *ChangeTracker) Current() value.Object {
	return ct.current
}

// Set assigns a single working field; a nil value removes the field
func (ct *ChangeTracker) Set(field string, v value.Value) {
	if v == nil {
		delete(ct.current, field)
		return
	}
	ct.current[field] = v
}

// PreviousValue returns the shadow value of a field, nil if absent
func (ct *ChangeTracker) PreviousValue(field string) value.Value {
	return ct.shadow[field]
}

// Changed returns true if the specified field differs from the shadow
func (ct *ChangeTracker) Changed(field string) bool {
	return !value.Equal(ct.shadow[field], ct.current[field])
}

// ChangedFields returns the sorted names of all changed top-level fields
func (ct *ChangeTracker) ChangedFields() []string {
	seen := make(map[string]struct{}, len(ct.current)+len(ct.shadow))
	for field := range ct.current {
		seen[field] = struct{}{}
	}
	for field := range ct.shadow {
		seen[field] = struct{}{}
	}

	fields := make([]string, 0, len(seen))
	for field := range seen {
		if ct.Changed(field) {
			fields = append(fields, field)
		}
	}
	sort.Strings(fields)
	return fields
}

// Changes returns a FieldChange per changed field
func (ct *ChangeTracker) Changes() map[string]*FieldChange {
	fields := ct.ChangedFields()
	result := make(map[string]*FieldChange, len(fields))
	for _, field := range fields {
		result[field] = &FieldChange{
			Field:    field,
			OldValue: ct.shadow[field],
			NewValue: ct.current[field],
		}
	}
	return result
}

// HasChanges returns true if the working copy differs from the shadow
func (ct *ChangeTracker) HasChanges() bool {
	return !value.Equal(ct.shadow, ct.current)
}

// Patch returns the update patch (working copy diffed against the shadow)
func (ct *ChangeTracker) Patch() value.Value {
	return Diff(ct.shadow, ct.current)
}

// InsertPatch returns the whole working copy as if the shadow were empty
func (ct *ChangeTracker) InsertPatch() value.Value {
	return Diff(nil, ct.current)
}

// Reset makes the shadow a deep copy of the working state.
// This should be called after a successful save.
func (ct *ChangeTracker) Reset() {
	ct.shadow = ct.current.Clone()
}
