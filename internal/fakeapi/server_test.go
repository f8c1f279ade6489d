package fakeapi

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ordersScope = "/customers/c1/orders"

func newTestServer(t *testing.T, opts ...Option) (*Server, *httptest.Server) {
	t.Helper()
	opts = append([]Option{
		WithCollection("/customers/{customerId}/orders", "Order"),
		WithCollection("/customers", "Customer"),
	}, opts...)
	srv := New(opts...)
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	require.NoError(t, srv.Seed("/customers", "Customer", "c1", map[string]any{"name": "Ada"}, nil))
	require.NoError(t, srv.Seed(ordersScope, "Order", "o1",
		map[string]any{"product": map[string]any{"code": "WIN95"}, "qty": 1, "price": 1.99},
		map[string]any{"customer": map[string]any{"data": map[string]any{"type": "Customer", "id": "c1"}}},
	))
	require.NoError(t, srv.Seed(ordersScope, "Order", "o2",
		map[string]any{"product": map[string]any{"code": "WIN98"}, "qty": 3, "price": 9.5}, nil))
	require.NoError(t, srv.Seed(ordersScope, "Order", "o3",
		map[string]any{"product": map[string]any{"code": "XP"}, "qty": 2}, nil))
	return srv, ts
}

func do(t *testing.T, method, url, body string, headers map[string]string) (*http.Response, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(data) == 0 {
		return resp, nil
	}
	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc), string(data))
	return resp, doc
}

func ids(doc map[string]any) []string {
	var out []string
	for _, item := range doc["data"].([]any) {
		out = append(out, item.(map[string]any)["id"].(string))
	}
	return out
}

func TestServer_List(t *testing.T) {
	_, ts := newTestServer(t)

	tests := []struct {
		name  string
		query string
		want  []string
		total float64
	}{
		{"all", "", []string{"o1", "o2", "o3"}, 3},
		{"equal", "?filter[equal:product.code]=WIN98", []string{"o2"}, 1},
		{"not equal", "?filter[!equal:product.code]=WIN98", []string{"o1", "o3"}, 2},
		{"from", "?filter[from:qty]=2", []string{"o2", "o3"}, 2},
		{"to", "?filter[to:qty]=2", []string{"o1", "o3"}, 2},
		{"autocomplete", "?filter[autocomplete:product.code]=win", []string{"o1", "o2"}, 2},
		{"text", "?filter[text:product.code]=n9", []string{"o1", "o2"}, 2},
		{"exists", "?filter[exists:price]=false", []string{"o3"}, 1},
		{"sort descending", "?sort=-qty", []string{"o2", "o3", "o1"}, 3},
		{"page number", "?sort=qty&page[number]=2&page[size]=2", []string{"o2"}, 3},
		{"page offset", "?page[offset]=1&page[size]=1", []string{"o2"}, 3},
		{"offset past end", "?page[offset]=10", nil, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, doc := do(t, http.MethodGet, ts.URL+ordersScope+tt.query, "", nil)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, MediaType, resp.Header.Get("Content-Type"))
			assert.Equal(t, tt.want, ids(doc))
			assert.Equal(t, tt.total, doc["meta"].(map[string]any)["total"])
		})
	}
}

func TestServer_ListScopes(t *testing.T) {
	_, ts := newTestServer(t)

	resp, doc := do(t, http.MethodGet, ts.URL+"/customers/other/orders", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, ids(doc))
}

func TestServer_Count(t *testing.T) {
	_, ts := newTestServer(t)

	resp, doc := do(t, http.MethodGet,
		ts.URL+ordersScope+"?filter[autocomplete:product.code]=WIN&meta-action=count", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string]any{"meta": map[string]any{"count": float64(2)}}, doc)
}

func TestServer_ShowWithInclude(t *testing.T) {
	_, ts := newTestServer(t)

	resp, doc := do(t, http.MethodGet, ts.URL+ordersScope+"/o1?include=customer", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	data := doc["data"].(map[string]any)
	assert.Equal(t, "o1", data["id"])
	assert.Equal(t, ts.URL+ordersScope+"/o1", data["links"].(map[string]any)["self"])

	included := doc["included"].([]any)
	require.Len(t, included, 1)
	customer := included[0].(map[string]any)
	assert.Equal(t, "Customer", customer["type"])
	assert.Equal(t, "Ada", customer["attributes"].(map[string]any)["name"])
}

func TestServer_ShowMissing(t *testing.T) {
	_, ts := newTestServer(t)

	resp, doc := do(t, http.MethodGet, ts.URL+ordersScope+"/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	errs := doc["errors"].([]any)
	require.Len(t, errs, 1)
	assert.Equal(t, "NOT-FOUND", errs[0].(map[string]any)["code"])
	assert.Equal(t, "404", errs[0].(map[string]any)["status"])
}

func TestServer_Create(t *testing.T) {
	srv, ts := newTestServer(t)

	resp, doc := do(t, http.MethodPost, ts.URL+ordersScope,
		`{"data": {"type": "Order", "attributes": {"qty": 5}}}`, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	id := resp.Header.Get(HeaderResourceID)
	require.Len(t, id, 36)
	assert.Equal(t, ts.URL+ordersScope+"/"+id, resp.Header.Get(HeaderLocation))
	assert.Equal(t, id, doc["data"].(map[string]any)["id"])
	assert.Equal(t, 4, srv.Len(ordersScope))
}

func TestServer_CreateRejects(t *testing.T) {
	_, ts := newTestServer(t)

	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"not json", `{`, http.StatusBadRequest, "INVALID-DOCUMENT"},
		{"no data", `{}`, http.StatusBadRequest, "INVALID-DOCUMENT"},
		{"no type", `{"data": {"attributes": {}}}`, http.StatusBadRequest, "INVALID-DOCUMENT"},
		{"wrong type", `{"data": {"type": "Customer"}}`, http.StatusConflict, "CONFLICT"},
		{"duplicate id", `{"data": {"type": "Order", "id": "o1"}}`, http.StatusConflict, "CONFLICT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, doc := do(t, http.MethodPost, ts.URL+ordersScope, tt.body, nil)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.code, doc["errors"].([]any)[0].(map[string]any)["code"])
		})
	}
}

func TestServer_UpdateMergesAttributes(t *testing.T) {
	_, ts := newTestServer(t)

	resp, doc := do(t, http.MethodPatch, ts.URL+ordersScope+"/o1", `{"data": {
		"type": "Order",
		"id": "o1",
		"attributes": {"qty": 2, "price": null, "product": {"name": "Windows 95"}},
		"relationships": {"customer": {"data": null}}
	}}`, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	data := doc["data"].(map[string]any)
	assert.Equal(t, map[string]any{
		"qty":     float64(2),
		"product": map[string]any{"code": "WIN95", "name": "Windows 95"},
	}, data["attributes"])
	assert.NotContains(t, data, "relationships")
}

func TestServer_UpdateRemovesRelationships(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"null linkage data", `{"customer": {"data": null}}`},
		{"null relationship", `{"customer": null}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ts := newTestServer(t)

			resp, doc := do(t, http.MethodPatch, ts.URL+ordersScope+"/o1",
				`{"data": {"type": "Order", "id": "o1", "relationships": `+tt.body+`}}`, nil)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			assert.NotContains(t, doc["data"].(map[string]any), "relationships")
		})
	}

	_, ts := newTestServer(t)
	resp, _ := do(t, http.MethodPatch, ts.URL+ordersScope+"/o1",
		`{"data": {"type": "Order", "id": "o1", "relationships": {"customer": "c1"}}}`, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_UpdateIDMismatch(t *testing.T) {
	_, ts := newTestServer(t)

	resp, _ := do(t, http.MethodPatch, ts.URL+ordersScope+"/o1",
		`{"data": {"type": "Order", "id": "o2", "attributes": {}}}`, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestServer_Delete(t *testing.T) {
	srv, ts := newTestServer(t)

	resp, _ := do(t, http.MethodDelete, ts.URL+ordersScope+"/o2", "", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, 2, srv.Len(ordersScope))

	resp, _ = do(t, http.MethodDelete, ts.URL+ordersScope+"/o2", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_BadQuery(t *testing.T) {
	_, ts := newTestServer(t)

	for _, query := range []string{
		"?filter[between:qty]=1",
		"?page[size]=-1",
		"?page[number]=2",
		"?filter[exists:qty]=maybe",
	} {
		resp, doc := do(t, http.MethodGet, ts.URL+ordersScope+query, "", nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, query)
		assert.Equal(t, "INVALID-QUERY", doc["errors"].([]any)[0].(map[string]any)["code"], query)
	}
}

func TestServer_APIKey(t *testing.T) {
	_, ts := newTestServer(t, WithAPIKey("secret-key"))

	resp, doc := do(t, http.MethodGet, ts.URL+ordersScope, "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "UNAUTHORIZED", doc["errors"].([]any)[0].(map[string]any)["code"])

	resp, _ = do(t, http.MethodGet, ts.URL+ordersScope, "", map[string]string{"x-api-key": "secret-key"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_BearerToken(t *testing.T) {
	srv, ts := newTestServer(t, WithJWTSecret("jwt-secret"))

	token, err := srv.Tokens().Issue("tester")
	require.NoError(t, err)

	forged, err := NewTokenIssuer("other-secret", 0).Issue("tester")
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"wrong secret", "Bearer " + forged, http.StatusUnauthorized},
		{"valid", "Bearer " + token, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headers := map[string]string{}
			if tt.header != "" {
				headers["Authorization"] = tt.header
			}
			resp, _ := do(t, http.MethodGet, ts.URL+ordersScope, "", headers)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestServer_UnknownRoute(t *testing.T) {
	_, ts := newTestServer(t)

	resp, doc := do(t, http.MethodGet, ts.URL+"/products", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT-FOUND", doc["errors"].([]any)[0].(map[string]any)["code"])
}

func TestServer_Serve(t *testing.T) {
	srv := New(WithCollection("/customers", "Customer"))
	require.NoError(t, srv.Seed("/customers", "Customer", "c1", map[string]any{"name": "Ada"}, nil))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	resp, doc := do(t, http.MethodGet, "http://"+ln.Addr().String()+"/customers/c1", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "c1", doc["data"].(map[string]any)["id"])

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(ShutdownTimeout + time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
