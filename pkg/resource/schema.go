package resource

import "github.com/conduit-lang/conduit-sdk/pkg/value"

// DefaultContentType is the JSON:API media type
const DefaultContentType = "application/vnd.api+json"

// Schema describes one resource type. It replaces per-type subclasses:
// containers look schemas up in the Configuration registry by wire type.
type Schema interface {
	// Type is the wire type string
	Type() string

	// ContentType is sent as Accept and Content-Type
	ContentType() string

	// LoadAttributes converts raw wire attributes into the stored tree. It
	// is applied to full loads and to partial updates alike, so it must
	// tolerate missing fields.
	LoadAttributes(raw value.Object) value.Object

	// RelationshipType returns the type a named relationship must point to.
	// An empty string accepts any type.
	RelationshipType(name string) string
}

// BasicSchema is a Schema that stores attributes as they arrive and accepts
// relationships of any type
type BasicSchema struct {
	TypeName  string
	MediaType string
}

// NewBasicSchema creates a BasicSchema with the default content type
func NewBasicSchema(typeName string) *BasicSchema {
	return &BasicSchema{TypeName: typeName, MediaType: DefaultContentType}
}

// Type implements Schema
func (s *BasicSchema) Type() string {
	return s.TypeName
}

// ContentType implements Schema
func (s *BasicSchema) ContentType() string {
	if s.MediaType == "" {
		return DefaultContentType
	}
	return s.MediaType
}

// LoadAttributes implements Schema
func (s *BasicSchema) LoadAttributes(raw value.Object) value.Object {
	return raw
}

// RelationshipType implements Schema
func (s *BasicSchema) RelationshipType(string) string {
	return ""
}
