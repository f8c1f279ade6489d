// Package transporttest provides a scripted transport.Client for tests.
package transporttest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/conduit-lang/conduit-sdk/pkg/transport"
)

// Call records one request made through a MockClient
type Call struct {
	Method  string
	URI     string
	Body    json.RawMessage
	Headers transport.Headers
	Options transport.Options
}

var errNoResponse = errors.New("transporttest: handler returned no response")

type reply struct {
	resp *transport.Response
	err  error
}

// MockClient replays queued replies in order and records every call.
// Non-2xx replies are turned into *transport.RequestError the same way
// the HTTP client does.
type MockClient struct {
	Calls   []Call
	Handler func(call Call) (*transport.Response, error)

	replies []reply
}

// NewMockClient creates an empty mock
func NewMockClient() *MockClient {
	return &MockClient{}
}

// Reply queues a response with a JSON body
func (m *MockClient) Reply(status int, body string, headers transport.Headers) *MockClient {
	resp := &transport.Response{StatusCode: status, Headers: headers}
	if body != "" {
		resp.Body = json.RawMessage(body)
	}
	m.replies = append(m.replies, reply{resp: resp})
	return m
}

// Fail queues a transport failure
func (m *MockClient) Fail(err error) *MockClient {
	m.replies = append(m.replies, reply{err: err})
	return m
}

// Pending returns the number of queued replies not yet consumed
func (m *MockClient) Pending() int {
	return len(m.replies)
}

// LastCall returns the most recent call
func (m *MockClient) LastCall() (Call, bool) {
	if len(m.Calls) == 0 {
		return Call{}, false
	}
	return m.Calls[len(m.Calls)-1], true
}

// Get implements transport.Client
func (m *MockClient) Get(ctx context.Context, uri string, headers transport.Headers, opts transport.Options) (*transport.Response, error) {
	return m.record(ctx, http.MethodGet, uri, nil, headers, opts)
}

// Post implements transport.Client
func (m *MockClient) Post(ctx context.Context, uri string, payload any, headers transport.Headers, opts transport.Options) (*transport.Response, error) {
	return m.record(ctx, http.MethodPost, uri, payload, headers, opts)
}

// Patch implements transport.Client
func (m *MockClient) Patch(ctx context.Context, uri string, payload any, headers transport.Headers, opts transport.Options) (*transport.Response, error) {
	return m.record(ctx, http.MethodPatch, uri, payload, headers, opts)
}

// Delete implements transport.Client
func (m *MockClient) Delete(ctx context.Context, uri string, headers transport.Headers, opts transport.Options) (*transport.Response, error) {
	return m.record(ctx, http.MethodDelete, uri, nil, headers, opts)
}

func (m *MockClient) record(ctx context.Context, method, uri string, payload any, headers transport.Headers, opts transport.Options) (*transport.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	call := Call{
		Method:  method,
		URI:     uri,
		Headers: headers.Clone(),
		Options: copyOptions(opts),
	}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		call.Body = data
	}
	m.Calls = append(m.Calls, call)

	if m.Handler != nil {
		return m.finish(m.Handler(call))
	}

	if len(m.replies) == 0 {
		return nil, fmt.Errorf("transporttest: no reply queued for %s %s", method, uri)
	}
	next := m.replies[0]
	m.replies = m.replies[1:]
	return m.finish(next.resp, next.err)
}

func (m *MockClient) finish(resp *transport.Response, err error) (*transport.Response, error) {
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, errNoResponse
	}
	if resp.Headers == nil {
		resp.Headers = transport.Headers{}
	}
	if err := transport.CheckResponse(resp); err != nil {
		return resp, err
	}
	return resp, nil
}

func copyOptions(opts transport.Options) transport.Options {
	if opts.QueryParams == nil {
		return opts
	}
	params := make(map[string]string, len(opts.QueryParams))
	for k, v := range opts.QueryParams {
		params[k] = v
	}
	return transport.Options{QueryParams: params}
}
