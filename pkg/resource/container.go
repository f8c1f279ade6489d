package resource

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/conduit-lang/conduit-sdk/internal/cache"
	"github.com/conduit-lang/conduit-sdk/pkg/transport"
)

// Action names the kind of request headers are built for
type Action string

// Request actions
const (
	ActionGet    Action = "GET"
	ActionFind   Action = "FIND"
	ActionCount  Action = "COUNT"
	ActionInsert Action = "INSERT"
	ActionUpdate Action = "UPDATE"
	ActionDelete Action = "DELETE"
)

// Request header names
const (
	HeaderAccept        = "Accept"
	HeaderContentType   = "Content-Type"
	HeaderAPIKey        = "x-api-key"
	HeaderAuthorization = "Authorization"
)

// Container is a collection endpoint. It builds queries, decodes responses
// into Objects, keeps the include graph of the last response and memoizes
// the last count. A Container owns the objects it holds and is not safe for
// concurrent use.
type Container struct {
	schema       Schema
	endpoint     string
	config       *Configuration
	client       transport.Client
	pathParams   map[string]string
	headerParams map[string]string

	data     []*Object
	isList   bool
	includes *IncludeGraph
	meta     map[string]any

	query query
	count cache.Memo
}

// ContainerOption configures a Container
type ContainerOption func(*Container)

// WithClient sets the transport
func WithClient(client transport.Client) ContainerOption {
	return func(c *Container) { c.client = client }
}

// WithConfiguration sets the configuration
func WithConfiguration(cfg *Configuration) ContainerOption {
	return func(c *Container) {
		if cfg != nil {
			c.config = cfg
		}
	}
}

// WithPathParam sets a value substituted for {name} in the endpoint path
func WithPathParam(name, v string) ContainerOption {
	return func(c *Container) { c.pathParams[name] = v }
}

// WithHeader adds a header sent with every request
func WithHeader(name, v string) ContainerOption {
	return func(c *Container) { c.headerParams[name] = v }
}

// NewContainer creates a container for the schema's resources at
// endpointPath, which may hold {param} placeholders. Without WithClient the
// container uses an HTTPClient logging through the configuration's logger.
func NewContainer(schema Schema, endpointPath string, opts ...ContainerOption) *Container {
	c := &Container{
		schema:       schema,
		endpoint:     endpointPath,
		pathParams:   make(map[string]string),
		headerParams: make(map[string]string),
		includes:     NewIncludeGraph(),
		query:        newQuery(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.config == nil {
		c.config = NewConfiguration()
	}
	if c.client == nil {
		c.client = transport.NewHTTPClient(transport.WithLogger(c.config.logger()))
	}
	return c
}

// Schema returns the schema of the container's resources
func (c *Container) Schema() Schema { return c.schema }

// Configuration returns the container's configuration
func (c *Container) Configuration() *Configuration { return c.config }

// Client returns the transport
func (c *Container) Client() transport.Client { return c.client }

// SetPathParam sets a path placeholder value
func (c *Container) SetPathParam(name, v string) { c.pathParams[name] = v }

// PathParam returns a path placeholder value
func (c *Container) PathParam(name string) (string, bool) {
	v, ok := c.pathParams[name]
	return v, ok
}

// SetHeader adds a header sent with every request
func (c *Container) SetHeader(name, v string) { c.headerParams[name] = v }

// URI returns the endpoint with path parameters substituted, passed
// through the configuration's rewriter
func (c *Container) URI() string {
	uri := c.endpoint
	for name, v := range c.pathParams {
		uri = strings.ReplaceAll(uri, "{"+name+"}", v)
	}
	return c.config.RewriteURI(uri)
}

func (c *Container) itemURI(id string) string {
	return strings.TrimSuffix(c.URI(), "/") + "/" + url.PathEscape(id)
}

// Headers returns the request headers for an action
func (c *Container) Headers(action Action) transport.Headers {
	headers := make(transport.Headers, len(c.headerParams)+4)
	for k, v := range c.headerParams {
		headers[k] = v
	}

	contentType := c.schema.ContentType()
	headers[HeaderAccept] = contentType
	switch action {
	case ActionGet, ActionFind, ActionCount:
	default:
		headers[HeaderContentType] = contentType
	}

	if c.config.APIKey != "" {
		headers[HeaderAPIKey] = c.config.APIKey
	}
	if c.config.AccessToken != "" {
		headers[HeaderAuthorization] = "Bearer " + c.config.AccessToken
	}
	return headers
}

// Filter adds filter[op:name]=v to the next request
func (c *Container) Filter(name string, op FilterOperator, v any) *Container {
	c.query.filter(name, op, v)
	return c
}

// Sort sets the sort option of the next request
func (c *Container) Sort(option string) *Container {
	c.query.sort = option
	return c
}

// Include asks for related resources to be included; repeats are ignored
func (c *Container) Include(name string) *Container {
	c.query.include(name)
	return c
}

// PageOffset selects offset pagination, replacing page number pagination
func (c *Container) PageOffset(offset, size int) *Container {
	c.query.pageOffset(offset, size)
	return c
}

// PageNumber selects page number pagination, replacing offset pagination
func (c *Container) PageNumber(page, size int) *Container {
	c.query.pageNumber(page, size)
	return c
}

// QueryParams returns the parameters the next request would carry
func (c *Container) QueryParams() map[string]string {
	return c.query.params()
}

// ResetQuery discards the pending query
func (c *Container) ResetQuery() {
	c.query = newQuery()
}

// consumeQuery renders the pending query and resets it
func (c *Container) consumeQuery() map[string]string {
	params := c.query.params()
	c.ResetQuery()
	return params
}

// Add creates a new object in the container. It is only sent to the
// server when saved.
func (c *Container) Add() *Object {
	obj := newObject(c, c.schema, ModeNew)
	obj.includes = c.includes
	c.addToMemory(obj)
	return obj
}

func (c *Container) addToMemory(obj *Object) {
	if len(c.data) == 1 && !c.isList {
		c.isList = true
	}
	c.data = append(c.data, obj)
	c.count.Invalidate()
}

func (c *Container) removeFromMemory(obj *Object) {
	kept := c.data[:0]
	for _, item := range c.data {
		if item == obj || (obj.id != "" && item.id == obj.id) {
			continue
		}
		kept = append(kept, item)
	}
	for i := len(kept); i < len(c.data); i++ {
		c.data[i] = nil
	}
	c.data = kept
	c.count.Invalidate()
}

func (c *Container) clearData() {
	c.data = nil
	c.isList = false
	c.includes = NewIncludeGraph()
	c.meta = nil
}

// Find loads every resource matching the pending query
func (c *Container) Find(ctx context.Context) error {
	c.clearData()
	uri := c.URI()
	opts := transport.Options{QueryParams: c.consumeQuery()}

	c.logger().Debug("finding resources", zap.String("uri", uri), zap.Any("params", opts.QueryParams))

	resp, err := checkResponse(c.client.Get(ctx, uri, c.Headers(ActionFind), opts))
	if err != nil {
		return fmt.Errorf("find %s: %w", uri, err)
	}
	return c.loadResponse(resp)
}

// Get loads the resource with the given id
func (c *Container) Get(ctx context.Context, id string) error {
	c.clearData()
	uri := c.itemURI(id)
	opts := transport.Options{QueryParams: c.consumeQuery()}

	c.logger().Debug("getting resource", zap.String("uri", uri))

	resp, err := checkResponse(c.client.Get(ctx, uri, c.Headers(ActionGet), opts))
	if err != nil {
		return fmt.Errorf("get %s: %w", uri, err)
	}
	return c.loadResponse(resp)
}

// checkResponse folds a transport failure, a missing response and a
// non-2xx status into a single error
func checkResponse(resp *transport.Response, err error) (*transport.Response, error) {
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, ErrNoResponse
	}
	if err := transport.CheckResponse(resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// loadResponse decodes a response into the container. On error the
// container is left empty.
func (c *Container) loadResponse(resp *transport.Response) error {
	doc, err := decodeDocument(resp.Body)
	if err != nil {
		return err
	}

	graph := NewIncludeGraph()
	data := make([]*Object, 0, len(doc.data))
	for _, rd := range doc.data {
		obj, err := c.loadResource(rd, graph)
		if err != nil {
			return err
		}
		data = append(data, obj)
	}

	for _, rd := range doc.included {
		obj, err := c.loadResource(rd, graph)
		if err != nil {
			return err
		}
		graph.Add(obj)
	}

	c.includes = graph
	c.meta = doc.meta
	c.data = data
	c.isList = !doc.single && doc.data != nil

	c.logger().Debug("response decoded",
		zap.Int("status", resp.StatusCode),
		zap.Int("resources", len(data)),
		zap.Int("included", graph.Len()),
	)
	return nil
}

func (c *Container) loadResource(rd ResourceData, graph *IncludeGraph) (*Object, error) {
	schema := c.config.schemaFor(rd.Type)
	obj := newObject(c, schema, ModeExisting)
	obj.includes = graph
	if err := obj.LoadData(rd); err != nil {
		return nil, err
	}
	return obj, nil
}

// Count returns the number of resources matching the pending filters.
// Includes, paging and sort are ignored. Repeating an identical count
// returns the memoized result without a request.
func (c *Container) Count(ctx context.Context) (int, error) {
	uri := c.URI()
	headers := c.Headers(ActionCount)

	params := c.consumeQuery()
	for _, name := range []string{ParamInclude, ParamPageNumber, ParamPageOffset, ParamPageSize, ParamSort} {
		delete(params, name)
	}

	key := cache.Fingerprint(cache.Request{URI: uri, Headers: headers, Params: params})
	if n, ok := c.count.Lookup(key); ok {
		c.logger().Debug("count served from memo", zap.String("uri", uri), zap.Int("count", n))
		return n, nil
	}

	countParams := make(map[string]string, len(params)+1)
	for k, v := range params {
		countParams[k] = v
	}
	countParams[ParamMetaAction] = "count"

	resp, err := checkResponse(c.client.Get(ctx, uri, headers, transport.Options{QueryParams: countParams}))
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", uri, err)
	}

	var doc struct {
		Meta map[string]any `json:"meta"`
	}
	if len(resp.Body) > 0 {
		if err := unmarshalNumbers(resp.Body, &doc); err != nil {
			return 0, newError(ErrCountFailed, "", err)
		}
	}

	n, ok := metaCount(doc.Meta)
	if !ok {
		return 0, newError(ErrCountFailed, "", nil)
	}

	c.count.Store(key, n)
	return n, nil
}

// Delete removes obj from the server, when it has an id, and from the
// container
func (c *Container) Delete(ctx context.Context, obj *Object) error {
	if obj.id != "" {
		uri := c.itemURI(obj.id)
		opts := transport.Options{QueryParams: c.consumeQuery()}

		if _, err := checkResponse(c.client.Delete(ctx, uri, c.Headers(ActionDelete), opts)); err != nil {
			return fmt.Errorf("delete %s: %w", uri, err)
		}
		c.logger().Debug("resource deleted", zap.String("uri", uri))
	}

	c.removeFromMemory(obj)
	return nil
}

// IncludedObject returns a resource from the last response's included array
func (c *Container) IncludedObject(typeName, id string) (*Object, bool) {
	return c.includes.Lookup(typeName, id)
}

// Includes returns the include graph of the last response
func (c *Container) Includes() *IncludeGraph { return c.includes }

// Meta returns the meta object of the last response
func (c *Container) Meta() map[string]any { return c.meta }

// Object returns the loaded resource when the container holds exactly one
// resource that was not part of a list
func (c *Container) Object() (*Object, bool) {
	if c.isList || len(c.data) != 1 {
		return nil, false
	}
	return c.data[0], true
}

// List returns every held resource
func (c *Container) List() []*Object {
	out := make([]*Object, len(c.data))
	copy(out, c.data)
	return out
}

// IsList reports whether the container holds a list
func (c *Container) IsList() bool { return c.isList }

// Len returns the number of held resources
func (c *Container) Len() int { return len(c.data) }

// MarshalJSON renders the held resources: null, one object or an array
func (c *Container) MarshalJSON() ([]byte, error) {
	if c.isList {
		docs := make([]json.RawMessage, 0, len(c.data))
		for _, obj := range c.data {
			data, err := obj.MarshalJSON()
			if err != nil {
				return nil, err
			}
			docs = append(docs, data)
		}
		return json.Marshal(docs)
	}
	if obj, ok := c.Object(); ok {
		return obj.MarshalJSON()
	}
	return []byte("null"), nil
}

func (c *Container) logger() *zap.Logger {
	return c.config.logger()
}
