// Package fakeapi is an in-memory JSON:API server. It backs the end-to-end
// tests and the serve-fake command, answering the requests a Container
// sends: filtered and paged lists, counts, includes, inserts, merge-patch
// updates and deletes.
package fakeapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// MediaType is the content type of every response body
const MediaType = "application/vnd.api+json"

// Response headers set on insert
const (
	HeaderLocation   = "Location"
	HeaderResourceID = "X-Api-Resource-Id"
)

const resourceIDParam = "resourceId"

var pathParamPattern = regexp.MustCompile(`\{([^}/]+)\}`)

// Collection is an endpoint serving one resource type. Path may hold
// {param} placeholders; each distinct set of values is a separate scope.
type Collection struct {
	Path string
	Type string
}

func (c Collection) params() []string {
	matches := pathParamPattern.FindAllStringSubmatch(c.Path, -1)
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, m[1])
	}
	return names
}

// Server routes collection requests to an in-memory store
type Server struct {
	router      chi.Router
	store       *store
	collections []Collection
	logger      *zap.Logger
	apiKey      string
	tokens      *TokenIssuer
}

// Option configures a Server
type Option func(*Server)

// WithCollection serves a resource type at path
func WithCollection(path, typeName string) Option {
	return func(s *Server) {
		s.collections = append(s.collections, Collection{Path: path, Type: typeName})
	}
}

// WithAPIKey requires every request to carry the key in x-api-key
func WithAPIKey(key string) Option {
	return func(s *Server) { s.apiKey = key }
}

// WithJWTSecret requires every request to carry an HS256 bearer token
// signed with secret
func WithJWTSecret(secret string) Option {
	return func(s *Server) { s.tokens = NewTokenIssuer(secret, time.Hour) }
}

// WithLogger sets the request logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a server for the configured collections
func New(opts ...Option) *Server {
	s := &Server{
		store:  newStore(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Collections returns the served collections
func (s *Server) Collections() []Collection {
	out := make([]Collection, len(s.collections))
	copy(out, s.collections)
	return out
}

// Tokens returns the token issuer, nil when bearer auth is off
func (s *Server) Tokens() *TokenIssuer {
	return s.tokens
}

// Seed stores a resource directly. scope is the collection path with its
// placeholders filled in, e.g. /customers/c1/orders. Values are normalised
// to their decoded JSON form.
func (s *Server) Seed(scope, typeName, id string, attributes, relationships map[string]any) error {
	attrs, err := normalize(attributes)
	if err != nil {
		return fmt.Errorf("seed %s %s: %w", typeName, id, err)
	}
	rels, err := normalize(relationships)
	if err != nil {
		return fmt.Errorf("seed %s %s: %w", typeName, id, err)
	}
	s.store.put(&record{
		scope:         strings.TrimSuffix(scope, "/"),
		Type:          typeName,
		ID:            id,
		Attributes:    attrs,
		Relationships: rels,
	})
	return nil
}

func normalize(m map[string]any) (map[string]any, error) {
	if m == nil {
		return nil, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Len returns the number of stored resources in scope
func (s *Server) Len(scope string) int {
	return len(s.store.list(strings.TrimSuffix(scope, "/")))
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(s.logRequests)
	r.Use(s.authenticate)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeErrors(w, http.StatusNotFound, errNotFound("No route matches "+r.URL.Path))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeErrors(w, http.StatusMethodNotAllowed, apiError{
			Code:  "METHOD-NOT-ALLOWED",
			Title: "The method is not allowed for this resource.",
		})
	})

	for _, coll := range s.collections {
		h := &collectionHandler{server: s, coll: coll}
		r.Route(coll.Path, func(r chi.Router) {
			r.Get("/", h.list)
			r.Post("/", h.create)
			r.Get("/{"+resourceIDParam+"}", h.show)
			r.Patch("/{"+resourceIDParam+"}", h.update)
			r.Delete("/{"+resourceIDParam+"}", h.remove)
		})
	}
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Debug("request served",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("query", r.URL.RawQuery),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}
