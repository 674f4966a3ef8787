package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"lifeos/internal/logging"
	"lifeos/internal/retry"
)

const (
	// DefaultBaseURL is the public upstream API.
	DefaultBaseURL = "https://api.notion.com"
	// DefaultVersion is sent as the Notion-Version header.
	DefaultVersion = "2022-06-28"
	// DefaultTimeout bounds a single upstream call.
	DefaultTimeout = 30 * time.Second
)

// NotionConfig configures the direct upstream client.
type NotionConfig struct {
	BaseURL    string
	Token      string
	Version    string
	Timeout    time.Duration
	Retry      *retry.Config
	HTTPClient *http.Client
}

// Notion talks to the upstream REST API with an integration token.
type Notion struct {
	baseURL    string
	token      string
	version    string
	retry      *retry.Config
	httpClient *http.Client
	logger     *zap.Logger
}

// NewNotion creates a direct upstream client.
func NewNotion(cfg NotionConfig, logger *zap.Logger) (*Notion, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("notion: integration token is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Version == "" {
		cfg.Version = DefaultVersion
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Retry == nil {
		cfg.Retry = retry.DefaultConfig()
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &Notion{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.Token,
		version:    cfg.Version,
		retry:      cfg.Retry,
		httpClient: client,
		logger:     logger.Named("notion"),
	}, nil
}

// Invoke implements Transport.
func (c *Notion) Invoke(ctx context.Context, req Request) (json.RawMessage, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	switch req.Method {
	case MethodQueryDatabase:
		body := map[string]any{}
		if HasContent(req.Filter) {
			body["filter"] = req.Filter
		}
		if HasContent(req.Sorts) {
			body["sorts"] = req.Sorts
		}
		if req.StartCursor != "" {
			body["start_cursor"] = req.StartCursor
		}
		if req.PageSize > 0 {
			body["page_size"] = req.PageSize
		}
		return c.do(ctx, http.MethodPost, "v1/databases/"+url.PathEscape(req.DatabaseID)+"/query", body)
	case MethodGetPage:
		return c.do(ctx, http.MethodGet, "v1/pages/"+url.PathEscape(req.PageID), nil)
	default:
		props := req.Properties
		if !HasContent(props) {
			props = json.RawMessage("{}")
		}
		return c.do(ctx, http.MethodPatch, "v1/pages/"+url.PathEscape(req.PageID), map[string]any{"properties": props})
	}
}

func (c *Notion) do(ctx context.Context, method, endpoint string, body any) (json.RawMessage, error) {
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		payload = b
	}
	target := c.baseURL + "/" + endpoint

	var out json.RawMessage
	err := retry.DoIfRetryable(ctx, c.retry, func() error {
		var err error
		out, err = c.once(ctx, method, target, payload)
		if err != nil && retry.IsRetryable(err) {
			c.logger.Warn("Upstream call failed, retrying",
				zap.String("method", method),
				zap.String("endpoint", endpoint),
				zap.String("error", logging.SanitizeError(err)))
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Notion) once(ctx context.Context, method, target string, payload []byte) (json.RawMessage, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Notion-Version", c.version)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call upstream: %w", err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	c.logger.Debug("Upstream call",
		zap.String("method", method),
		zap.String("url", target),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)))

	if resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(b)}
		var env struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if json.Unmarshal(b, &env) == nil {
			apiErr.Code = env.Code
			apiErr.Message = env.Message
		}
		return nil, apiErr
	}
	return json.RawMessage(b), nil
}
