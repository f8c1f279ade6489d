// Package resource maps JSON:API documents onto in-memory resource objects
// and containers, tracks local edits against the last known server state,
// and sends minimal insert and update payloads.
package resource

import (
	"strings"

	"go.uber.org/zap"

	"github.com/conduit-lang/conduit-sdk/internal/config"
	"github.com/conduit-lang/conduit-sdk/internal/logging"
)

// URIRewriter maps a computed resource URI onto the one actually requested
type URIRewriter func(uri string) string

// Configuration holds the schema registry and the connection settings
// shared by containers. Containers receive it explicitly; there is no
// package-level instance.
type Configuration struct {
	Host        string
	APIKey      string
	AccessToken string
	Rewriter    URIRewriter
	Logger      *zap.Logger

	schemas map[string]Schema
}

// Option configures a Configuration
type Option func(*Configuration)

// WithHost sets the host relative endpoint paths are joined with
func WithHost(host string) Option {
	return func(c *Configuration) { c.Host = host }
}

// WithAPIKey sets the x-api-key header value
func WithAPIKey(key string) Option {
	return func(c *Configuration) { c.APIKey = key }
}

// WithAccessToken sets the bearer token
func WithAccessToken(token string) Option {
	return func(c *Configuration) { c.AccessToken = token }
}

// WithURIRewriter sets the URI rewriter
func WithURIRewriter(fn URIRewriter) Option {
	return func(c *Configuration) { c.Rewriter = fn }
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(c *Configuration) { c.Logger = logging.OrNop(logger) }
}

// WithSettings copies host and credentials from loaded settings
func WithSettings(s *config.Settings) Option {
	return func(c *Configuration) {
		if s == nil {
			return
		}
		c.Host = s.Host
		c.APIKey = s.APIKey
		c.AccessToken = s.AccessToken
	}
}

// NewConfiguration creates a Configuration with an empty registry
func NewConfiguration(opts ...Option) *Configuration {
	c := &Configuration{
		Logger:  zap.NewNop(),
		schemas: make(map[string]Schema),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RegisterResourceClass registers the schema for a wire type, replacing
// any earlier registration
func (c *Configuration) RegisterResourceClass(typeName string, schema Schema) {
	if c.schemas == nil {
		c.schemas = make(map[string]Schema)
	}
	c.schemas[typeName] = schema
}

// ResourceClass returns the schema registered for a wire type
func (c *Configuration) ResourceClass(typeName string) (Schema, bool) {
	s, ok := c.schemas[typeName]
	return s, ok
}

// schemaFor returns the registered schema or a BasicSchema for unknown types
func (c *Configuration) schemaFor(typeName string) Schema {
	if s, ok := c.ResourceClass(typeName); ok {
		return s
	}
	c.logger().Debug("no schema registered for resource type", zap.String("type", typeName))
	return NewBasicSchema(typeName)
}

// FormatURL joins path onto the host with exactly one slash between them
func (c *Configuration) FormatURL(path string) string {
	host := strings.TrimSuffix(c.Host, "/")
	if strings.HasPrefix(path, "/") {
		return host + path
	}
	return host + "/" + path
}

// RewriteURI applies the rewriter when one is set. Otherwise relative paths
// are joined with the host and absolute URLs pass through.
func (c *Configuration) RewriteURI(uri string) string {
	if c.Rewriter != nil {
		return c.Rewriter(uri)
	}
	if uri == "" || c.Host == "" || isAbsoluteURL(uri) {
		return uri
	}
	return c.FormatURL(uri)
}

func (c *Configuration) logger() *zap.Logger {
	return logging.OrNop(c.Logger)
}

func isAbsoluteURL(uri string) bool {
	return strings.HasPrefix(uri, "http://") || strings.HasPrefix(uri, "https://")
}
