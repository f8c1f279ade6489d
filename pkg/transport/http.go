package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

// DefaultTimeout applies when no timeout or base client is configured
const DefaultTimeout = 30 * time.Second

// HTTPClient implements Client over net/http
type HTTPClient struct {
	client *http.Client
	logger *zap.Logger
}

// HTTPOption configures an HTTPClient
type HTTPOption func(*HTTPClient)

// WithHTTPClient sets the underlying *http.Client
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(h *HTTPClient) {
		if c != nil {
			h.client = c
		}
	}
}

// WithTimeout sets the overall request timeout
func WithTimeout(d time.Duration) HTTPOption {
	return func(h *HTTPClient) {
		if d > 0 {
			clone := *h.client
			clone.Timeout = d
			h.client = &clone
		}
	}
}

// WithLogger sets the request logger
func WithLogger(logger *zap.Logger) HTTPOption {
	return func(h *HTTPClient) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// NewHTTPClient creates a client with a 30 second timeout unless
// configured otherwise
func NewHTTPClient(opts ...HTTPOption) *HTTPClient {
	h := &HTTPClient{
		client: &http.Client{Timeout: DefaultTimeout},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Get issues a GET request
func (h *HTTPClient) Get(ctx context.Context, uri string, headers Headers, opts Options) (*Response, error) {
	return h.do(ctx, http.MethodGet, uri, nil, headers, opts)
}

// Post issues a POST request with a JSON body
func (h *HTTPClient) Post(ctx context.Context, uri string, payload any, headers Headers, opts Options) (*Response, error) {
	return h.do(ctx, http.MethodPost, uri, payload, headers, opts)
}

// Patch issues a PATCH request with a JSON body
func (h *HTTPClient) Patch(ctx context.Context, uri string, payload any, headers Headers, opts Options) (*Response, error) {
	return h.do(ctx, http.MethodPatch, uri, payload, headers, opts)
}

// Delete issues a DELETE request
func (h *HTTPClient) Delete(ctx context.Context, uri string, headers Headers, opts Options) (*Response, error) {
	return h.do(ctx, http.MethodDelete, uri, nil, headers, opts)
}

func (h *HTTPClient) do(ctx context.Context, method, uri string, payload any, headers Headers, opts Options) (*Response, error) {
	target, err := withQuery(uri, opts.QueryParams)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	httpResp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, target, err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	h.logger.Debug("request completed",
		zap.String("method", method),
		zap.String("uri", target),
		zap.Int("status", httpResp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Headers:    make(Headers, len(httpResp.Header)),
	}
	for k := range httpResp.Header {
		resp.Headers[k] = httpResp.Header.Get(k)
	}
	if len(bytes.TrimSpace(data)) > 0 {
		resp.Body = json.RawMessage(data)
	}

	if err := CheckResponse(resp); err != nil {
		return resp, err
	}
	return resp, nil
}

func withQuery(uri string, params map[string]string) (string, error) {
	if len(params) == 0 {
		return uri, nil
	}
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("invalid uri %q: %w", uri, err)
	}
	q := u.Query()
	for k, v := range params {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
