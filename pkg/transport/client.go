// Package transport defines the HTTP collaborator used by resource
// containers and objects, plus a net/http implementation.
package transport

import (
	"context"
	"encoding/json"
	"strings"
)

// Headers is a set of request or response headers. Lookups through Get are
// case-insensitive.
type Headers map[string]string

// Get returns the value of the named header, ignoring case
func (h Headers) Get(name string) (string, bool) {
	if v, ok := h[name]; ok {
		return v, true
	}
	for k, v := range h {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return "", false
}

// Clone returns a copy of the headers
func (h Headers) Clone() Headers {
	out := make(Headers, len(h))
	for k, v := range h {
		out[k] = v
	}
	return out
}

// Options carries per-request settings
type Options struct {
	QueryParams map[string]string
}

// Response is a completed HTTP exchange
type Response struct {
	StatusCode int
	Headers    Headers
	Body       json.RawMessage
}

// Client performs JSON:API requests. Implementations return a
// *RequestError for non-2xx responses.
type Client interface {
	Get(ctx context.Context, uri string, headers Headers, opts Options) (*Response, error)
	Post(ctx context.Context, uri string, payload any, headers Headers, opts Options) (*Response, error)
	Patch(ctx context.Context, uri string, payload any, headers Headers, opts Options) (*Response, error)
	Delete(ctx context.Context, uri string, headers Headers, opts Options) (*Response, error)
}
