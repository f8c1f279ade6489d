package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// ErrorItem is one entry of a JSON:API errors array
type ErrorItem struct {
	Code   string `json:"code,omitempty"`
	Title  string `json:"title,omitempty"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
	Source any    `json:"source,omitempty"`
}

// UnmarshalJSON accepts the status as either a string or a number
func (e *ErrorItem) UnmarshalJSON(data []byte) error {
	var raw struct {
		Code   string          `json:"code"`
		Title  string          `json:"title"`
		Status json.RawMessage `json:"status"`
		Detail string          `json:"detail"`
		Source any             `json:"source"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*e = ErrorItem{
		Code:   raw.Code,
		Title:  raw.Title,
		Detail: raw.Detail,
		Source: raw.Source,
		Status: http.StatusInternalServerError,
	}

	if len(raw.Status) == 0 || string(raw.Status) == "null" {
		return nil
	}

	var s string
	if err := json.Unmarshal(raw.Status, &s); err == nil {
		if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			e.Status = n
		}
		return nil
	}

	var n float64
	if err := json.Unmarshal(raw.Status, &n); err != nil {
		return fmt.Errorf("invalid error status %s: %w", raw.Status, err)
	}
	e.Status = int(n)
	return nil
}

// RequestError is returned for any non-2xx response
type RequestError struct {
	StatusCode int
	Items      []ErrorItem
}

// Error implements error
func (e *RequestError) Error() string {
	titles := make([]string, 0, len(e.Items))
	for _, item := range e.Items {
		switch {
		case item.Title != "":
			titles = append(titles, item.Title)
		case item.Code != "":
			titles = append(titles, item.Code)
		}
	}
	if len(titles) == 0 {
		return fmt.Sprintf("request failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("request failed with status %d: %s", e.StatusCode, strings.Join(titles, "; "))
}

// Status returns the band of the highest item status: 200, 300, 400 or 500
func (e *RequestError) Status() int {
	highest := http.StatusOK
	for _, item := range e.Items {
		if item.Status > highest {
			highest = item.Status
		}
	}

	switch {
	case highest >= 200 && highest <= 299:
		return 200
	case highest >= 300 && highest <= 399:
		return 300
	case highest >= 400 && highest <= 499:
		return 400
	default:
		return 500
	}
}

// IsRequestError returns the *RequestError in err's chain, if any
func IsRequestError(err error) (*RequestError, bool) {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr, true
	}
	return nil, false
}

// CheckResponse returns nil for 2xx responses. Anything else is decoded
// into a *RequestError; a body without errors yields a single item built
// from the status code.
func CheckResponse(resp *Response) error {
	if resp == nil {
		return nil
	}
	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		return nil
	}

	reqErr := &RequestError{StatusCode: resp.StatusCode}

	if len(resp.Body) > 0 {
		var doc struct {
			Errors []ErrorItem `json:"errors"`
		}
		if err := json.Unmarshal(resp.Body, &doc); err == nil {
			reqErr.Items = doc.Errors
		}
	}

	if len(reqErr.Items) == 0 {
		reqErr.Items = []ErrorItem{{
			Code:   strconv.Itoa(resp.StatusCode),
			Title:  http.StatusText(resp.StatusCode),
			Status: resp.StatusCode,
		}}
	}

	return reqErr
}
