// Package cache holds the query fingerprint and the single-value memo used
// to avoid repeating identical count requests.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
)

// Request is the part of an outgoing request that identifies its result
type Request struct {
	URI     string
	Headers map[string]string
	Params  map[string]string
}

// Fingerprint generates a stable key for the request. Header names are
// compared case-insensitively; map order never affects the result. Every
// part is escaped, so separators inside a value cannot be confused with
// the boundary between two entries.
func Fingerprint(r Request) string {
	params := url.Values{}
	for key, value := range r.Params {
		params.Add(key, value)
	}

	headers := url.Values{}
	for header, value := range r.Headers {
		headers.Add(strings.ToLower(header), value)
	}
	for _, values := range headers {
		sort.Strings(values)
	}

	parts := []string{url.QueryEscape(r.URI), params.Encode(), headers.Encode()}

	hash := sha256.Sum256([]byte(strings.Join(parts, "\n")))
	return hex.EncodeToString(hash[:])
}
