package resource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/conduit-lang/conduit-sdk/internal/tracking"
	"github.com/conduit-lang/conduit-sdk/pkg/transport"
	"github.com/conduit-lang/conduit-sdk/pkg/value"
)

// Mode is the lifecycle state of an Object
type Mode int

const (
	// ModeNew objects have not been created on the server yet
	ModeNew Mode = iota
	// ModeExisting objects were loaded from, or saved to, the server
	ModeExisting
)

// String returns the mode name
func (m Mode) String() string {
	if m == ModeExisting {
		return "existing"
	}
	return "new"
}

// Response header names read after a create
const (
	HeaderLocation   = "Location"
	HeaderResourceID = "X-Api-Resource-Id"
)

// ErrDetached is returned when saving or deleting an object that does not
// belong to a container
var ErrDetached = errors.New("resource object is not attached to a container")

// ErrNoResponse is returned when a transport reports neither a response
// nor an error
var ErrNoResponse = errors.New("transport returned no response")

// Object is a single addressable resource. It keeps the attributes and
// relationships last known to match the server next to the working copy,
// so saving sends only what changed. Not safe for concurrent use.
type Object struct {
	schema    Schema
	container *Container
	includes  *IncludeGraph

	id   string
	mode Mode
	uri  string

	attributes          *tracking.ChangeTracker
	relationships       RelationshipSet
	shadowRelationships RelationshipSet
}

func newObject(container *Container, schema Schema, mode Mode) *Object {
	return &Object{
		schema:              schema,
		container:           container,
		mode:                mode,
		attributes:          tracking.NewChangeTracker(),
		relationships:       RelationshipSet{},
		shadowRelationships: RelationshipSet{},
	}
}

// Type returns the wire type
func (o *Object) Type() string { return o.schema.Type() }

// Schema returns the object's schema
func (o *Object) Schema() Schema { return o.schema }

// ID returns the server identifier, empty until assigned
func (o *Object) ID() string { return o.id }

// SetID assigns the identifier
func (o *Object) SetID(id string) { o.id = id }

// Mode returns the lifecycle state
func (o *Object) Mode() Mode { return o.mode }

// Container returns the owning container
func (o *Object) Container() *Container { return o.container }

// URI returns the object's address: its self link (rewritten by the
// configuration), or the container URI followed by the id
func (o *Object) URI() string {
	if o.container == nil {
		return o.uri
	}
	if o.uri != "" {
		return o.container.config.RewriteURI(o.uri)
	}
	if o.id != "" {
		return o.container.itemURI(o.id)
	}
	return ""
}

// LoadData replaces the object's state with a wire resource. Working and
// shadow copies end up identical.
func (o *Object) LoadData(doc ResourceData) error {
	if doc.Type != o.schema.Type() {
		return newError(ErrInvalidResourceMapping,
			fmt.Sprintf("%s (got type %q, want %q)", ErrInvalidResourceMapping.Message, doc.Type, o.schema.Type()), nil)
	}

	o.id = doc.ID

	attrs := value.Object{}
	if doc.Attributes != nil {
		attrs = o.schema.LoadAttributes(doc.Attributes.Clone())
	}
	o.attributes.Load(attrs)

	rels := RelationshipSet{}
	for name, raw := range doc.Relationships {
		if l, ok := decodeLinkage(o.schema.RelationshipType(name), raw, o.includes); ok {
			rels[name] = l
		} else {
			o.logger().Debug("skipping unrecognised relationship",
				zap.String("type", o.Type()), zap.String("relationship", name))
		}
	}
	o.relationships = rels
	o.shadowRelationships = rels.Clone()

	if self, ok := doc.SelfLink(); ok {
		o.uri = self
	}

	o.mode = ModeExisting
	return nil
}

// Attributes returns the live working attributes. Changes made to the map
// are picked up by the next Save.
func (o *Object) Attributes() value.Object {
	return o.attributes.Current()
}

// Attribute returns one working attribute, nil if absent
func (o *Object) Attribute(name string) value.Value {
	return o.attributes.Current()[name]
}

// SetAttribute assigns a working attribute. A nil value removes it, which
// is sent as null on the next update.
func (o *Object) SetAttribute(name string, v value.Value) {
	o.attributes.Set(name, v)
}

// UpdateAttributes merges a partial tree into the working attributes
func (o *Object) UpdateAttributes(partial value.Object) {
	if len(partial) == 0 {
		return
	}
	o.attributes.Update(o.schema.LoadAttributes(partial.Clone()))
}

// Relationships returns the live working relationships
func (o *Object) Relationships() RelationshipSet {
	return o.relationships
}

// Relationship returns one working relationship
func (o *Object) Relationship(name string) (Linkage, bool) {
	l, ok := o.relationships[name]
	if !ok || isNilLinkage(l) {
		return nil, false
	}
	return l, true
}

// SetRelationship assigns a working relationship. A nil linkage removes it.
func (o *Object) SetRelationship(name string, l Linkage) {
	if isNilLinkage(l) {
		delete(o.relationships, name)
		return
	}
	bindLinkage(l, o.includes)
	o.relationships[name] = l
}

// ClearRelationship marks a to-one relationship as explicitly removed
func (o *Object) ClearRelationship(name string) {
	typeName := o.schema.RelationshipType(name)
	if r, ok := o.relationships.ToOne(name); ok && typeName == "" {
		typeName = r.Type
	}
	cleared := ClearedRelationship(typeName)
	cleared.includes = o.includes
	o.relationships[name] = cleared
}

// UpdateRelationships merges relationships into the working set. Values
// may be linkage documents ({data: ...}), the {id} and [{id}] shorthands,
// or *Relationship / Relationships. A nil or unrecognised value removes the
// relationship.
func (o *Object) UpdateRelationships(partial map[string]any) {
	for name, raw := range partial {
		if raw == nil {
			delete(o.relationships, name)
			continue
		}
		l, ok := decodeLinkage(o.schema.RelationshipType(name), raw, o.includes)
		if !ok {
			o.logger().Debug("removing relationship with unrecognised value",
				zap.String("type", o.Type()), zap.String("relationship", name))
			delete(o.relationships, name)
			continue
		}
		o.relationships[name] = l
	}
}

// HasChanges reports whether anything differs from the shadow
func (o *Object) HasChanges() bool {
	return o.attributes.HasChanges() || !o.relationships.Equal(o.shadowRelationships)
}

// ChangedFields returns the sorted names of changed attributes
func (o *Object) ChangedFields() []string {
	return o.attributes.ChangedFields()
}

// InsertPayload returns the document sent when creating the object
func (o *Object) InsertPayload() value.Object {
	data := value.Object{"type": value.String(o.Type())}
	if o.id != "" {
		data["id"] = value.String(o.id)
	}
	if attrs, ok := o.attributes.InsertPatch().(value.Object); ok && len(attrs) > 0 {
		data["attributes"] = attrs
	}
	if rels := relationshipsDocument(o.relationships); rels != nil {
		data["relationships"] = rels
	}
	return value.Object{"data": data}
}

// UpdatePayload returns the document sent when updating the object. With
// nothing changed it still identifies the resource.
func (o *Object) UpdatePayload() value.Object {
	data := value.Object{
		"type": value.String(o.Type()),
		"id":   value.String(o.id),
	}
	if attrs := o.attributes.Patch(); attrs != nil {
		data["attributes"] = attrs
	}
	if rels := DiffRelationships(o.shadowRelationships, o.relationships); rels != nil {
		data["relationships"] = rels
	}
	return value.Object{"data": data}
}

// Save creates the object when new, otherwise sends the changes made since
// the last load or save. On success the shadow is resynchronised.
func (o *Object) Save(ctx context.Context) error {
	if o.container == nil {
		return ErrDetached
	}

	var err error
	if o.mode == ModeNew {
		err = o.insert(ctx)
	} else {
		err = o.update(ctx)
	}
	if err != nil {
		return err
	}

	o.attributes.Reset()
	o.shadowRelationships = o.relationships.Clone()
	return nil
}

func (o *Object) insert(ctx context.Context) error {
	c := o.container
	uri := c.URI()

	resp, err := checkResponse(c.client.Post(ctx, uri, o.InsertPayload(), c.Headers(ActionInsert), transport.Options{}))
	if err != nil {
		return fmt.Errorf("insert %s: %w", o.Type(), err)
	}

	location, ok := resp.Headers.Get(HeaderLocation)
	if !ok {
		return newError(ErrInvalidLocation, "", nil)
	}
	id, ok := resp.Headers.Get(HeaderResourceID)
	if !ok {
		return newError(ErrInvalidResourceID,
			"The save operation was unable to retrieve the identifier of the resource created by the API.", nil)
	}

	o.id = id
	o.uri = location
	o.mode = ModeExisting

	o.logger().Debug("resource created",
		zap.String("type", o.Type()), zap.String("id", id), zap.String("uri", location))
	return nil
}

func (o *Object) update(ctx context.Context) error {
	c := o.container
	uri := o.URI()

	if _, err := checkResponse(c.client.Patch(ctx, uri, o.UpdatePayload(), c.Headers(ActionUpdate), transport.Options{})); err != nil {
		return fmt.Errorf("update %s %s: %w", o.Type(), o.id, err)
	}

	o.logger().Debug("resource updated",
		zap.String("type", o.Type()), zap.String("id", o.id), zap.String("uri", uri))
	return nil
}

// Delete removes the object through its container
func (o *Object) Delete(ctx context.Context) error {
	if o.container == nil {
		return ErrDetached
	}
	return o.container.Delete(ctx, o)
}

// MarshalJSON renders the full resource object. Absent attributes are
// left out.
func (o *Object) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.document())
}

func (o *Object) document() value.Object {
	return o.InsertPayload()["data"].(value.Object)
}

func (o *Object) logger() *zap.Logger {
	if o.container == nil {
		return zap.NewNop()
	}
	return o.container.config.logger()
}
