package resource

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/conduit-sdk/pkg/transport"
	"github.com/conduit-lang/conduit-sdk/pkg/transport/transporttest"
	"github.com/conduit-lang/conduit-sdk/pkg/value"
)

func loadedOrder(t *testing.T, client *transporttest.MockClient) (*Container, *Object) {
	t.Helper()
	client.Reply(http.StatusOK, singleOrderDoc, nil)

	c := newTestContainer(client)
	require.NoError(t, c.Get(context.Background(), "69a56960-17d4-4f2f-bb2f-a671a6aa0fd9"))

	obj, ok := c.Object()
	require.True(t, ok)
	return c, obj
}

func TestObject_LoadData(t *testing.T) {
	c := newTestContainer(transporttest.NewMockClient())
	obj := c.Add()

	err := obj.LoadData(ResourceData{
		Type:       "Order",
		ID:         "o1",
		Attributes: value.Object{"qty": value.Number(4), "ignored": value.Bool(true)},
		Relationships: map[string]any{
			"customer": map[string]any{"data": map[string]any{"type": "Customer", "id": "c1"}},
			"bogus":    map[string]any{"data": map[string]any{"type": "Customer"}},
		},
		Links: map[string]any{"self": "/customers/x/orders/o1"},
	})
	require.NoError(t, err)

	assert.Equal(t, "o1", obj.ID())
	assert.Equal(t, ModeExisting, obj.Mode())
	assert.Equal(t, value.Object{"qty": value.Number(4)}, obj.Attributes())
	assert.False(t, obj.HasChanges())

	customer, ok := obj.Relationships().ToOne("customer")
	require.True(t, ok)
	assert.Equal(t, "Customer", customer.Type)
	assert.Equal(t, "c1", customer.ID)

	_, ok = obj.Relationship("bogus")
	assert.False(t, ok)
}

func TestObject_LoadData_WrongType(t *testing.T) {
	c := newTestContainer(transporttest.NewMockClient())
	obj := c.Add()

	err := obj.LoadData(ResourceData{Type: "Customer", ID: "c1"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidResourceMapping))
	assert.Equal(t, ModeNew, obj.Mode())
}

func TestObject_UpdateAttributesIsPartial(t *testing.T) {
	client := transporttest.NewMockClient()
	_, obj := loadedOrder(t, client)

	obj.UpdateAttributes(value.Object{
		"product": value.Object{"name": value.String("Windows 98")},
		"unknown": value.String("dropped by the schema"),
	})

	product := obj.Attribute("product").(value.Object)
	assert.Equal(t, value.String("WIN95"), product["code"])
	assert.Equal(t, value.String("Windows 98"), product["name"])
	assert.Nil(t, obj.Attribute("unknown"))
	assert.Equal(t, []string{"product"}, obj.ChangedFields())
}

func TestObject_UpdateRelationships(t *testing.T) {
	c := newTestContainer(transporttest.NewMockClient())
	obj := c.Add()

	obj.UpdateRelationships(map[string]any{
		"customer": map[string]any{"id": "c9"},
		"items":    []any{map[string]any{"id": "i1"}, map[string]any{"id": "i2"}},
	})

	customer, ok := obj.Relationships().ToOne("customer")
	require.True(t, ok)
	assert.Equal(t, "Customer", customer.Type)
	assert.Equal(t, "c9", customer.ID)

	items, ok := obj.Relationships().ToMany("items")
	require.True(t, ok)
	assert.Len(t, items, 2)

	obj.UpdateRelationships(map[string]any{"customer": nil, "items": "nonsense"})
	assert.Empty(t, obj.Relationships())
}

func TestObject_SaveNew(t *testing.T) {
	client := transporttest.NewMockClient()
	c := newTestContainer(client, WithAPIKey("key-1"))

	obj := c.Add()
	obj.UpdateAttributes(value.Object{
		"product": value.Object{"code": value.String("WIN95")},
		"qty":     value.Number(1),
	})
	obj.SetRelationship("customer", NewRelationship("Customer", testCustomerID))

	client.Reply(http.StatusCreated, "", transport.Headers{
		"location":          testOrdersURI + "/new-id",
		"x-api-resource-id": "new-id",
	})

	require.NoError(t, obj.Save(context.Background()))

	call, ok := client.LastCall()
	require.True(t, ok)
	assert.Equal(t, http.MethodPost, call.Method)
	assert.Equal(t, testOrdersURI, call.URI)
	assert.Equal(t, transport.Headers{
		"Accept":       DefaultContentType,
		"Content-Type": DefaultContentType,
		"x-api-key":    "key-1",
	}, call.Headers)
	assert.JSONEq(t, `{
		"data": {
			"type": "Order",
			"attributes": {"product": {"code": "WIN95"}, "qty": 1},
			"relationships": {
				"customer": {"data": {"type": "Customer", "id": "9a383573-801f-4466-80b2-96f4fb93c384"}}
			}
		}
	}`, string(call.Body))

	assert.Equal(t, ModeExisting, obj.Mode())
	assert.Equal(t, "new-id", obj.ID())
	assert.Equal(t, testOrdersURI+"/new-id", obj.URI())
	assert.False(t, obj.HasChanges())
	assert.Equal(t, 1, c.Len())
}

func TestObject_SaveNew_EmptyObject(t *testing.T) {
	client := transporttest.NewMockClient()
	c := newTestContainer(client)
	obj := c.Add()

	client.Reply(http.StatusCreated, "", transport.Headers{"Location": "/o/1", "X-Api-Resource-Id": "1"})
	require.NoError(t, obj.Save(context.Background()))

	call, _ := client.LastCall()
	assert.JSONEq(t, `{"data": {"type": "Order"}}`, string(call.Body))
}

func TestObject_SaveNew_MissingHeaders(t *testing.T) {
	tests := []struct {
		name    string
		headers transport.Headers
		want    error
	}{
		{
			name:    "no location",
			headers: transport.Headers{"X-Api-Resource-Id": "1"},
			want:    ErrInvalidLocation,
		},
		{
			name:    "no resource id",
			headers: transport.Headers{"Location": "/orders/1"},
			want:    ErrInvalidResourceID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := transporttest.NewMockClient()
			c := newTestContainer(client)
			obj := c.Add()
			obj.SetAttribute("qty", value.Number(1))

			client.Reply(http.StatusCreated, "", tt.headers)

			err := obj.Save(context.Background())
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, ModeNew, obj.Mode())
			assert.True(t, obj.HasChanges())
		})
	}
}

func TestObject_SaveNew_RequestFailure(t *testing.T) {
	client := transporttest.NewMockClient()
	c := newTestContainer(client)
	obj := c.Add()

	client.Reply(http.StatusServiceUnavailable, "<html>Service Unavailable</html>", nil)

	err := obj.Save(context.Background())
	require.Error(t, err)

	reqErr, ok := transport.IsRequestError(err)
	require.True(t, ok)
	assert.Equal(t, 500, reqErr.Status())
	assert.Equal(t, ModeNew, obj.Mode())
}

func TestObject_SaveExisting(t *testing.T) {
	client := transporttest.NewMockClient()
	_, obj := loadedOrder(t, client)

	obj.SetAttribute("qty", value.Number(2))
	delete(obj.Attributes()["product"].(value.Object), "name")
	obj.ClearRelationship("customer")

	client.Reply(http.StatusOK, "", nil)
	require.NoError(t, obj.Save(context.Background()))

	call, _ := client.LastCall()
	assert.Equal(t, http.MethodPatch, call.Method)
	assert.Equal(t, testOrdersURI+"/69a56960-17d4-4f2f-bb2f-a671a6aa0fd9", call.URI)
	assert.Equal(t, DefaultContentType, call.Headers["Content-Type"])
	assert.JSONEq(t, `{
		"data": {
			"type": "Order",
			"id": "69a56960-17d4-4f2f-bb2f-a671a6aa0fd9",
			"attributes": {"qty": 2, "product": {"name": null}},
			"relationships": {"customer": {"data": null}}
		}
	}`, string(call.Body))

	assert.False(t, obj.HasChanges())

	// a second save with nothing changed still identifies the resource
	client.Reply(http.StatusOK, "", nil)
	require.NoError(t, obj.Save(context.Background()))

	call, _ = client.LastCall()
	assert.JSONEq(t, `{"data": {"type": "Order", "id": "69a56960-17d4-4f2f-bb2f-a671a6aa0fd9"}}`, string(call.Body))
}

func TestObject_SaveExisting_FailureKeepsChanges(t *testing.T) {
	client := transporttest.NewMockClient()
	_, obj := loadedOrder(t, client)

	obj.SetAttribute("qty", value.Number(5))
	client.Reply(http.StatusUnprocessableEntity,
		`{"errors": [{"code": "INVALID-QTY", "title": "Quantity too large", "status": "422"}]}`, nil)

	err := obj.Save(context.Background())
	require.Error(t, err)
	assert.True(t, obj.HasChanges())
	assert.Equal(t, []string{"qty"}, obj.ChangedFields())
}

func TestObject_URIFallsBackToContainer(t *testing.T) {
	c := newTestContainer(transporttest.NewMockClient())
	obj := c.Add()
	assert.Equal(t, "", obj.URI())

	obj.SetID("abc")
	assert.Equal(t, testOrdersURI+"/abc", obj.URI())
}

func TestObject_DeleteWithoutID(t *testing.T) {
	client := transporttest.NewMockClient()
	c := newTestContainer(client)

	obj := c.Add()
	require.NoError(t, obj.Delete(context.Background()))

	assert.Empty(t, client.Calls)
	assert.Equal(t, 0, c.Len())
}

func TestObject_Detached(t *testing.T) {
	obj := newObject(nil, orderSchema{}, ModeNew)

	assert.ErrorIs(t, obj.Save(context.Background()), ErrDetached)
	assert.ErrorIs(t, obj.Delete(context.Background()), ErrDetached)
}

func TestObject_MarshalJSON(t *testing.T) {
	client := transporttest.NewMockClient()
	_, obj := loadedOrder(t, client)

	obj.SetAttribute("price", nil)

	data, err := json.Marshal(obj)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"type": "Order",
		"id": "69a56960-17d4-4f2f-bb2f-a671a6aa0fd9",
		"attributes": {"product": {"code": "WIN95", "name": "Windows 95"}, "qty": 1},
		"relationships": {"customer": {"data": {"type": "Customer", "id": "customer-id"}}}
	}`, string(data))
}

func TestObject_RelationshipTargetResolves(t *testing.T) {
	client := transporttest.NewMockClient()
	_, obj := loadedOrder(t, client)

	customer, ok := obj.Relationships().ToOne("customer")
	require.True(t, ok)

	target, ok := customer.Target()
	require.True(t, ok)
	assert.Equal(t, "Customer", target.Type())
	assert.Equal(t, value.String("Ada"), target.Attribute("name"))
}
