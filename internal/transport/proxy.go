package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Proxy sends requests through the relay endpoint.
type Proxy struct {
	URL         string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// NewProxy creates a relay client with sane defaults.
func NewProxy(endpoint string) *Proxy {
	return &Proxy{
		URL:     endpoint,
		Timeout: DefaultTimeout,
	}
}

// Invoke implements Transport.
func (p *Proxy) Invoke(ctx context.Context, req Request) (json.RawMessage, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	client := p.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: p.Timeout}
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(req); err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(p.URL, "/"), &buf)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.BearerToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.BearerToken)
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("call relay: %w", err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read relay response: %w", err)
	}
	if resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(b)}
		var env struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(b, &env) == nil {
			apiErr.Message = env.Error
		}
		return nil, apiErr
	}
	return json.RawMessage(b), nil
}
