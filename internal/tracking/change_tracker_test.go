package tracking

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/conduit-lang/conduit-sdk/pkg/value"
)

func loaded(attrs value.Object) *ChangeTracker {
	ct := NewChangeTracker()
	ct.Load(attrs)
	return ct
}

func TestNewChangeTracker(t *testing.T) {
	ct := NewChangeTracker()

	assert.NotNil(t, ct.Current())
	assert.False(t, ct.HasChanges())
	assert.Nil(t, ct.Patch())
	assert.Empty(t, ct.ChangedFields())
}

func TestChangeTracker_LoadIsClean(t *testing.T) {
	ct := loaded(value.Object{
		"title": value.String("Original Title"),
		"count": value.Number(10),
	})

	assert.False(t, ct.HasChanges())
	assert.Nil(t, ct.Patch())
	assert.Equal(t, value.Object{
		"title": value.String("Original Title"),
		"count": value.Number(10),
	}, ct.InsertPatch())
}

func TestChangeTracker_Changed(t *testing.T) {
	tests := []struct {
		name     string
		original value.Object
		edit     func(ct *ChangeTracker)
		field    string
		want     bool
	}{
		{
			name:     "unchanged field",
			original: value.Object{"field": value.String("value")},
			edit:     func(ct *ChangeTracker) {},
			field:    "field",
			want:     false,
		},
		{
			name:     "changed string field",
			original: value.Object{"field": value.String("old")},
			edit:     func(ct *ChangeTracker) { ct.Set("field", value.String("new")) },
			field:    "field",
			want:     true,
		},
		{
			name:     "new field added",
			original: value.Object{},
			edit:     func(ct *ChangeTracker) { ct.Set("field", value.Number(1)) },
			field:    "field",
			want:     true,
		},
		{
			name:     "field removed",
			original: value.Object{"field": value.String("value")},
			edit:     func(ct *ChangeTracker) { ct.Set("field", nil) },
			field:    "field",
			want:     true,
		},
		{
			name:     "value reverted",
			original: value.Object{"field": value.String("value")},
			edit: func(ct *ChangeTracker) {
				ct.Set("field", value.String("other"))
				ct.Set("field", value.String("value"))
			},
			field: "field",
			want:  false,
		},
		{
			name:     "nested edit through the live map",
			original: value.Object{"product": value.Object{"code": value.String("A")}},
			edit: func(ct *ChangeTracker) {
				ct.Current()["product"].(value.Object)["code"] = value.String("B")
			},
			field: "product",
			want:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ct := loaded(tt.original)
			tt.edit(ct)
			assert.Equal(t, tt.want, ct.Changed(tt.field))
		})
	}
}

func TestChangeTracker_LoadDoesNotAlias(t *testing.T) {
	attrs := value.Object{"product": value.Object{"code": value.String("A")}}
	ct := loaded(attrs)

	attrs["product"].(value.Object)["code"] = value.String("B")

	assert.False(t, ct.HasChanges())
	assert.Equal(t, value.String("A"), ct.PreviousValue("product").(value.Object)["code"])
}

func TestChangeTracker_ChangedFieldsAndChanges(t *testing.T) {
	ct := loaded(value.Object{
		"title":  value.String("Original"),
		"count":  value.Number(5),
		"status": value.String("active"),
	})

	ct.Update(value.Object{
		"title":  value.String("Updated"),
		"status": value.String("inactive"),
	})
	ct.Set("count", nil)

	assert.Equal(t, []string{"count", "status", "title"}, ct.ChangedFields())

	changes := ct.Changes()
	assert.Len(t, changes, 3)
	assert.Equal(t, value.Number(5), changes["count"].OldValue)
	assert.Nil(t, changes["count"].NewValue)
	assert.Equal(t, value.String("Updated"), changes["title"].NewValue)
}

func TestChangeTracker_PatchAndReset(t *testing.T) {
	ct := loaded(value.Object{
		"qty":   value.Number(1),
		"price": value.Number(1.99),
		"name":  value.String("widget"),
	})

	ct.Set("qty", value.Number(2))
	ct.Set("name", nil)

	assert.Equal(t, value.Object{
		"qty":  value.Number(2),
		"name": value.Null{},
	}, ct.Patch())

	ct.Reset()

	assert.False(t, ct.HasChanges())
	assert.Nil(t, ct.Patch())

	// the shadow is a copy, later edits are visible again
	ct.Set("price", value.Number(2.5))
	assert.Equal(t, value.Object{"price": value.Number(2.5)}, ct.Patch())
}

func TestChangeTracker_UpdateMergesNested(t *testing.T) {
	ct := loaded(value.Object{
		"product": value.Object{
			"code": value.String("WIN95"),
			"name": value.String("Windows 95"),
		},
	})

	ct.Update(value.Object{"product": value.Object{"name": value.String("Windows 98")}})

	assert.Equal(t, value.Object{
		"product": value.Object{"name": value.String("Windows 98")},
	}, ct.Patch())
	assert.Equal(t, value.String("WIN95"), ct.PreviousValue("product").(value.Object)["code"])
}
