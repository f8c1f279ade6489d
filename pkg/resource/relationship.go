package resource

import (
	"sort"

	"github.com/conduit-lang/conduit-sdk/pkg/value"
)

// IncludeGraph is the side table of resources delivered in a response's
// included array, keyed by type then id. Relationships hold a reference to
// the graph of the response they were decoded from; they never own it.
type IncludeGraph struct {
	objects map[string]map[string]*Object
}

// NewIncludeGraph creates an empty graph
func NewIncludeGraph() *IncludeGraph {
	return &IncludeGraph{objects: make(map[string]map[string]*Object)}
}

// Add stores obj under its type and id, replacing any previous entry
func (g *IncludeGraph) Add(obj *Object) {
	byID, ok := g.objects[obj.Type()]
	if !ok {
		byID = make(map[string]*Object)
		g.objects[obj.Type()] = byID
	}
	byID[obj.ID()] = obj
}

// Lookup returns the included object with the given type and id
func (g *IncludeGraph) Lookup(typeName, id string) (*Object, bool) {
	if g == nil {
		return nil, false
	}
	obj, ok := g.objects[typeName][id]
	return obj, ok
}

// Len returns the number of included objects
func (g *IncludeGraph) Len() int {
	if g == nil {
		return 0
	}
	n := 0
	for _, byID := range g.objects {
		n += len(byID)
	}
	return n
}

// Types returns the sorted list of included types
func (g *IncludeGraph) Types() []string {
	if g == nil {
		return nil
	}
	types := make([]string, 0, len(g.objects))
	for t := range g.objects {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Linkage is a relationship value: *Relationship for to-one and
// Relationships for to-many
type Linkage interface {
	equalLinkage(other Linkage) bool
	cloneLinkage() Linkage
	payload() value.Value
}

// Relationship is a to-one reference to another resource
type Relationship struct {
	Type string
	ID   string

	cleared  bool
	includes *IncludeGraph
}

// NewRelationship creates a reference to the resource with the given type and id
func NewRelationship(typeName, id string) *Relationship {
	return &Relationship{Type: typeName, ID: id}
}

// ClearedRelationship creates an explicit disassociation
func ClearedRelationship(typeName string) *Relationship {
	return &Relationship{Type: typeName, cleared: true}
}

// Target resolves the referenced resource in the include graph
func (r *Relationship) Target() (*Object, bool) {
	if r.IsCleared() {
		return nil, false
	}
	return r.includes.Lookup(r.Type, r.ID)
}

// Clear marks the relationship as explicitly removed
func (r *Relationship) Clear() {
	r.ID = ""
	r.cleared = true
}

// IsCleared reports whether the relationship was explicitly removed. A
// relationship without an id counts as removed.
func (r *Relationship) IsCleared() bool {
	return r == nil || r.cleared || r.ID == ""
}

func (r *Relationship) equalLinkage(other Linkage) bool {
	o, ok := other.(*Relationship)
	if !ok || r == nil || o == nil {
		return ok && r == nil && o == nil
	}
	if r.IsCleared() || o.IsCleared() {
		return r.IsCleared() == o.IsCleared()
	}
	return r.Type == o.Type && r.ID == o.ID
}

func (r *Relationship) cloneLinkage() Linkage {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}

func (r *Relationship) identifier() value.Value {
	return value.Object{"type": value.String(r.Type), "id": value.String(r.ID)}
}

func (r *Relationship) payload() value.Value {
	if r.IsCleared() {
		return value.Object{"data": value.Null{}}
	}
	return value.Object{"data": r.identifier()}
}

// Relationships is an ordered to-many reference list
type Relationships []*Relationship

// Targets returns every resolvable target, in order
func (rs Relationships) Targets() []*Object {
	var out []*Object
	for _, r := range rs {
		if obj, ok := r.Target(); ok {
			out = append(out, obj)
		}
	}
	return out
}

func (rs Relationships) equalLinkage(other Linkage) bool {
	o, ok := other.(Relationships)
	if !ok {
		return false
	}
	a, b := rs.live(), o.live()
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].equalLinkage(b[i]) {
			return false
		}
	}
	return true
}

// live returns the members that reference a resource
func (rs Relationships) live() Relationships {
	out := make(Relationships, 0, len(rs))
	for _, r := range rs {
		if !r.IsCleared() {
			out = append(out, r)
		}
	}
	return out
}

func (rs Relationships) cloneLinkage() Linkage {
	out := make(Relationships, 0, len(rs))
	for _, r := range rs {
		if r == nil {
			continue
		}
		c := *r
		out = append(out, &c)
	}
	return out
}

func (rs Relationships) payload() value.Value {
	data := make(value.Array, 0, len(rs))
	for _, r := range rs {
		if r.IsCleared() {
			continue
		}
		data = append(data, r.identifier())
	}
	return value.Object{"data": data}
}

// RelationshipSet holds an object's relationships by name
type RelationshipSet map[string]Linkage

// Clone returns a copy whose relationships can be changed independently
func (s RelationshipSet) Clone() RelationshipSet {
	out := make(RelationshipSet, len(s))
	for name, l := range s {
		if isNilLinkage(l) {
			continue
		}
		out[name] = l.cloneLinkage()
	}
	return out
}

// Equal reports whether both sets hold the same references. A nil set
// equals an empty one.
func (s RelationshipSet) Equal(other RelationshipSet) bool {
	if s.size() != other.size() {
		return false
	}
	for name, l := range s {
		if isNilLinkage(l) {
			continue
		}
		o := other[name]
		if isNilLinkage(o) || !l.equalLinkage(o) {
			return false
		}
	}
	return true
}

// ToOne returns the named to-one relationship
func (s RelationshipSet) ToOne(name string) (*Relationship, bool) {
	r, ok := s[name].(*Relationship)
	return r, ok && r != nil
}

// ToMany returns the named to-many relationship
func (s RelationshipSet) ToMany(name string) (Relationships, bool) {
	rs, ok := s[name].(Relationships)
	return rs, ok
}

func (s RelationshipSet) size() int {
	n := 0
	for _, l := range s {
		if !isNilLinkage(l) {
			n++
		}
	}
	return n
}

func isNilLinkage(l Linkage) bool {
	if l == nil {
		return true
	}
	r, ok := l.(*Relationship)
	return ok && r == nil
}

// bindLinkage points the relationship references at g
func bindLinkage(l Linkage, g *IncludeGraph) {
	switch tl := l.(type) {
	case *Relationship:
		if tl != nil {
			tl.includes = g
		}
	case Relationships:
		for _, r := range tl {
			if r != nil {
				r.includes = g
			}
		}
	}
}

// decodeLinkage reads a relationship in any of the accepted shapes:
// {data:{type,id}}, {data:[...]}, {data:null}, the {id} and [{id}]
// shorthands, or an existing *Relationship / Relationships. expected is the
// required type; empty accepts any.
func decodeLinkage(expected string, raw any, g *IncludeGraph) (Linkage, bool) {
	switch tv := raw.(type) {
	case *Relationship:
		if tv == nil || !typeAllowed(expected, tv.Type) {
			return nil, false
		}
		c := *tv
		c.includes = g
		return &c, true
	case Relationships:
		out := make(Relationships, 0, len(tv))
		for _, r := range tv {
			if r != nil && typeAllowed(expected, r.Type) {
				c := *r
				c.includes = g
				out = append(out, &c)
			}
		}
		return out, true
	case map[string]any:
		if data, ok := tv["data"]; ok {
			switch d := data.(type) {
			case nil:
				r := ClearedRelationship(expected)
				r.includes = g
				return r, true
			case map[string]any:
				r, ok := decodeIdentifier(expected, d, g)
				if !ok {
					return nil, false
				}
				return r, true
			case []any:
				return decodeList(expected, d, g), true
			case []map[string]any:
				return decodeList(expected, toAnySlice(d), g), true
			}
			return nil, false
		}
		if len(tv) == 1 {
			if id, ok := tv["id"].(string); ok && expected != "" {
				return &Relationship{Type: expected, ID: id, includes: g}, true
			}
		}
	case []any:
		return decodeList(expected, tv, g), true
	case []map[string]any:
		return decodeList(expected, toAnySlice(tv), g), true
	}
	return nil, false
}

func decodeIdentifier(expected string, m map[string]any, g *IncludeGraph) (*Relationship, bool) {
	id, ok := m["id"].(string)
	if !ok {
		return nil, false
	}
	typeName, hasType := m["type"].(string)
	if !hasType {
		if _, present := m["type"]; present || expected == "" {
			return nil, false
		}
		typeName = expected
	}
	if !typeAllowed(expected, typeName) {
		return nil, false
	}
	return &Relationship{Type: typeName, ID: id, includes: g}, true
}

func decodeList(expected string, items []any, g *IncludeGraph) Relationships {
	out := make(Relationships, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if r, ok := decodeIdentifier(expected, m, g); ok {
			out = append(out, r)
		}
	}
	return out
}

func typeAllowed(expected, actual string) bool {
	return expected == "" || expected == actual
}

func toAnySlice(items []map[string]any) []any {
	out := make([]any, len(items))
	for i, item := range items {
		out[i] = item
	}
	return out
}
