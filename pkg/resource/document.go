package resource

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/conduit-lang/conduit-sdk/pkg/value"
)

// ResourceData is one resource object as it appears on the wire
type ResourceData struct {
	Type          string
	ID            string
	Attributes    value.Object
	Relationships map[string]any
	Links         map[string]any
}

// SelfLink returns links.self when it is a string
func (d ResourceData) SelfLink() (string, bool) {
	self, ok := d.Links["self"].(string)
	return self, ok
}

// document is a decoded response body
type document struct {
	data     []ResourceData
	single   bool
	included []ResourceData
	meta     map[string]any
}

type wireDocument struct {
	Data     json.RawMessage   `json:"data"`
	Included []json.RawMessage `json:"included"`
	Meta     map[string]any    `json:"meta"`
}

// decodeDocument parses a response body. An empty body is an empty document.
func decodeDocument(body []byte) (*document, error) {
	doc := &document{}
	if len(bytes.TrimSpace(body)) == 0 {
		return doc, nil
	}

	var wire wireDocument
	if err := unmarshalNumbers(body, &wire); err != nil {
		return nil, fmt.Errorf("failed to decode response document: %w", err)
	}
	doc.meta = wire.Meta

	data := bytes.TrimSpace(wire.Data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
	case data[0] == '[':
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, fmt.Errorf("failed to decode response data: %w", err)
		}
		doc.data = make([]ResourceData, 0, len(items))
		for _, item := range items {
			rd, err := decodeResourceData(item)
			if err != nil {
				return nil, err
			}
			doc.data = append(doc.data, rd)
		}
	case data[0] == '{':
		rd, err := decodeResourceData(data)
		if err != nil {
			return nil, err
		}
		doc.data = []ResourceData{rd}
		doc.single = true
	}

	for _, item := range wire.Included {
		rd, err := decodeResourceData(item)
		if err != nil {
			return nil, err
		}
		doc.included = append(doc.included, rd)
	}

	return doc, nil
}

// decodeResourceData validates and converts one wire resource
func decodeResourceData(raw json.RawMessage) (ResourceData, error) {
	var m map[string]any
	if err := unmarshalNumbers(raw, &m); err != nil {
		return ResourceData{}, newError(ErrInvalidResourceType, "", err)
	}
	return resourceDataFromMap(m)
}

func resourceDataFromMap(m map[string]any) (ResourceData, error) {
	typeName, ok := m["type"].(string)
	if !ok {
		return ResourceData{}, ErrInvalidResourceType
	}
	id, ok := m["id"].(string)
	if !ok {
		return ResourceData{}, ErrInvalidResourceID
	}

	rd := ResourceData{Type: typeName, ID: id}
	if attrs, ok := m["attributes"].(map[string]any); ok {
		rd.Attributes = value.FromMap(attrs)
	}
	if rels, ok := m["relationships"].(map[string]any); ok {
		rd.Relationships = rels
	}
	if links, ok := m["links"].(map[string]any); ok {
		rd.Links = links
	}
	return rd, nil
}

// ParseResourceData decodes a single wire resource object
func ParseResourceData(data []byte) (ResourceData, error) {
	return decodeResourceData(data)
}

// metaCount returns meta.count when it is a number
func metaCount(meta map[string]any) (int, bool) {
	switch n := meta["count"].(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i), true
		}
		if f, err := n.Float64(); err == nil {
			return int(f), true
		}
	case float64:
		return int(n), true
	}
	return 0, false
}

func unmarshalNumbers(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}
