// Package transport carries database requests to the upstream workspace
// service, either directly or through the relay proxy.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Method names understood by every transport and by the relay.
const (
	MethodQueryDatabase = "queryDatabase"
	MethodGetPage       = "getPage"
	MethodUpdatePage    = "updatePage"
)

// ErrUnsupportedMethod is returned for a method name outside the set above.
var ErrUnsupportedMethod = errors.New("unsupported method")

// Transport invokes one upstream method and returns its JSON result
// unmodified.
type Transport interface {
	Invoke(ctx context.Context, req Request) (json.RawMessage, error)
}

// Request is the method envelope shared by the relay and its clients.
// Filter, Sorts and Properties are passed through opaque.
type Request struct {
	Method      string          `json:"method"`
	DatabaseID  string          `json:"databaseId,omitempty"`
	PageID      string          `json:"pageId,omitempty"`
	Filter      json.RawMessage `json:"filter,omitempty"`
	Sorts       json.RawMessage `json:"sorts,omitempty"`
	Properties  json.RawMessage `json:"properties,omitempty"`
	StartCursor string          `json:"startCursor,omitempty"`
	PageSize    int             `json:"pageSize,omitempty"`
}

// Validate checks the method name and its required identifier.
func (r Request) Validate() error {
	switch r.Method {
	case MethodQueryDatabase:
		if r.DatabaseID == "" {
			return errors.New("databaseId is required")
		}
	case MethodGetPage, MethodUpdatePage:
		if r.PageID == "" {
			return errors.New("pageId is required")
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedMethod, r.Method)
	}
	return nil
}

// QueryResponse is one page of database query results.
type QueryResponse struct {
	Results    []json.RawMessage `json:"results"`
	HasMore    bool              `json:"has_more"`
	NextCursor string            `json:"next_cursor"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		if e.Code != "" {
			return fmt.Sprintf("upstream error: status=%d code=%s: %s", e.StatusCode, e.Code, e.Message)
		}
		return fmt.Sprintf("upstream error: status=%d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("upstream error: status=%d body=%s", e.StatusCode, e.Body)
}

// IsRetryable is true for rate limiting and transient server failures.
func (e *APIError) IsRetryable() bool {
	switch e.StatusCode {
	case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// HasContent reports whether an opaque JSON member carries anything beyond
// null or an empty object/array.
func HasContent(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	switch string(t) {
	case "", "null", "{}", "[]":
		return false
	}
	return true
}
