// Package httpclient talks to the backend REST API on behalf of
// scenarios and fixture seeding. Every exchange can be mirrored to
// the API request/response logs of a logging.Logger.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"digital.vasic.agentprobe/pkg/logging"
)

// bodyPreviewLimit caps response bodies copied into API logs.
const bodyPreviewLimit = 2048

// ClientOption configures an APIClient via functional options.
type ClientOption func(*APIClient)

// APIClient wraps net/http.Client with optional bearer
// authentication. Defaults match the local stack so callers can
// use NewAPIClient(url) with zero options.
type APIClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
	timeout    time.Duration
	logger     logging.Logger
}

// NewAPIClient creates an API client targeting the given base URL.
func NewAPIClient(baseURL string, opts ...ClientOption) *APIClient {
	c := &APIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logging.NullLogger{},
	}
	for _, o := range opts {
		o(c)
	}
	if c.timeout > 0 && c.httpClient.Timeout != c.timeout {
		hc := *c.httpClient
		hc.Timeout = c.timeout
		c.httpClient = &hc
	}
	return c
}

// WithTimeout overrides the client timeout. A client passed with
// WithHTTPClient is copied, never modified.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *APIClient) { c.timeout = d }
}

// WithToken sends "Authorization: Bearer <token>" on every request.
func WithToken(token string) ClientOption {
	return func(c *APIClient) { c.token = token }
}

// WithHTTPClient replaces the underlying client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *APIClient) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger mirrors requests and responses to l's API logs.
func WithLogger(l logging.Logger) ClientOption {
	return func(c *APIClient) {
		if l != nil {
			c.logger = l
		}
	}
}

// StatusError reports an unexpected HTTP status.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf(
		"%s %s returned HTTP %d: %s",
		e.Method, e.Path, e.StatusCode, e.Body,
	)
}

func flatten(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, vs := range h {
		out[k] = strings.Join(vs, ", ")
	}
	return out
}

func preview(data []byte) string {
	if len(data) > bodyPreviewLimit {
		return string(data[:bodyPreviewLimit]) + "..."
	}
	return string(data)
}

// do sends one request and returns status and full body.
func (c *APIClient) do(
	ctx context.Context, method, path string, body []byte,
) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	reqID := uuid.NewString()
	c.logger.LogAPIRequest(logging.APIRequestLog{
		Timestamp:  time.Now().UTC().Format(time.RFC3339Nano),
		RequestID:  reqID,
		Method:     method,
		URL:        req.URL.String(),
		Headers:    flatten(req.Header),
		Body:       string(body),
		BodyLength: len(body),
	})

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	c.logger.LogAPIResponse(logging.APIResponseLog{
		Timestamp:      time.Now().UTC().Format(time.RFC3339Nano),
		RequestID:      reqID,
		StatusCode:     resp.StatusCode,
		Headers:        flatten(resp.Header),
		BodyPreview:    preview(data),
		BodyLength:     len(data),
		ResponseTimeMs: time.Since(start).Milliseconds(),
	})
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, data, nil
}

// Health performs a GET on path and returns the status code. Any
// HTTP answer is a nil error; only transport failures are errors.
func (c *APIClient) Health(ctx context.Context, path string) (int, error) {
	code, _, err := c.do(ctx, http.MethodGet, path, nil)
	return code, err
}

// Get performs a GET request and returns the status code and
// parsed JSON object response.
func (c *APIClient) Get(
	ctx context.Context, path string,
) (int, map[string]any, error) {
	code, data, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return code, nil, err
	}
	var result map[string]any
	if err := json.Unmarshal(data, &result); err != nil {
		return code, nil, fmt.Errorf("parse response: %w", err)
	}
	return code, result, nil
}

// GetArray performs a GET request and returns the status code and
// parsed JSON array response.
func (c *APIClient) GetArray(
	ctx context.Context, path string,
) (int, []any, error) {
	code, data, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return code, nil, err
	}
	var result []any
	if err := json.Unmarshal(data, &result); err != nil {
		return code, nil, fmt.Errorf("parse response: %w", err)
	}
	return code, result, nil
}

// GetRaw performs a GET and returns status code and raw body
// bytes. Used when the response could be either an object or
// array.
func (c *APIClient) GetRaw(
	ctx context.Context, path string,
) (int, []byte, error) {
	return c.do(ctx, http.MethodGet, path, nil)
}

// PostJSON marshals body (a string or []byte is sent verbatim) and
// POSTs it, returning the status code and raw response bytes.
func (c *APIClient) PostJSON(
	ctx context.Context, path string, body any,
) (int, []byte, error) {
	var payload []byte
	switch b := body.(type) {
	case string:
		payload = []byte(b)
	case []byte:
		payload = b
	default:
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("marshal body: %w", err)
		}
	}
	return c.do(ctx, http.MethodPost, path, payload)
}

// Delete performs a DELETE and returns the status code.
func (c *APIClient) Delete(ctx context.Context, path string) (int, error) {
	code, _, err := c.do(ctx, http.MethodDelete, path, nil)
	return code, err
}

// Token returns the bearer token.
func (c *APIClient) Token() string {
	return c.token
}

// SetToken sets the bearer token.
func (c *APIClient) SetToken(token string) {
	c.token = token
}

// BaseURL returns the configured base URL.
func (c *APIClient) BaseURL() string {
	return c.baseURL
}
