package resource

import (
	"github.com/conduit-lang/conduit-sdk/pkg/transport/transporttest"
	"github.com/conduit-lang/conduit-sdk/pkg/value"
)

const (
	testEndpoint   = "https://api.example.com/customers/{customerId}/orders"
	testCustomerID = "9a383573-801f-4466-80b2-96f4fb93c384"
	testOrdersURI  = "https://api.example.com/customers/9a383573-801f-4466-80b2-96f4fb93c384/orders"
)

// orderSchema keeps the known order attributes and types its relationships
type orderSchema struct{}

func (orderSchema) Type() string        { return "Order" }
func (orderSchema) ContentType() string { return DefaultContentType }

func (orderSchema) LoadAttributes(raw value.Object) value.Object {
	out := value.Object{}
	for _, field := range []string{"product", "qty", "price"} {
		if v, ok := raw[field]; ok {
			out[field] = v
		}
	}
	return out
}

func (orderSchema) RelationshipType(name string) string {
	switch name {
	case "customer":
		return "Customer"
	case "items":
		return "Item"
	}
	return ""
}

func newTestContainer(client *transporttest.MockClient, opts ...Option) *Container {
	cfg := NewConfiguration(opts...)
	cfg.RegisterResourceClass("Order", orderSchema{})
	return NewContainer(orderSchema{}, testEndpoint,
		WithClient(client),
		WithConfiguration(cfg),
		WithPathParam("customerId", testCustomerID),
	)
}

const singleOrderDoc = `{
	"jsonapi": {"version": "1.0"},
	"data": {
		"type": "Order",
		"id": "69a56960-17d4-4f2f-bb2f-a671a6aa0fd9",
		"attributes": {
			"product": {"code": "WIN95", "name": "Windows 95"},
			"qty": 1,
			"price": 1.99,
			"extraField": "value"
		},
		"relationships": {
			"customer": {"data": {"type": "Customer", "id": "customer-id"}}
		},
		"links": {
			"self": "https://api.example.com/customers/9a383573-801f-4466-80b2-96f4fb93c384/orders/69a56960-17d4-4f2f-bb2f-a671a6aa0fd9"
		}
	},
	"included": [
		{"type": "Customer", "id": "customer-id", "attributes": {"name": "Ada"}}
	]
}`

const orderListDoc = `{
	"data": [
		{
			"type": "Order",
			"id": "order-1",
			"attributes": {"product": {"code": "WIN95"}, "qty": 1},
			"relationships": {"customer": {"data": {"type": "Customer", "id": "customer-id"}}}
		},
		{
			"type": "Order",
			"id": "order-2",
			"attributes": {"product": {"code": "WIN98"}, "qty": 3}
		}
	],
	"meta": {"total": 2}
}`
