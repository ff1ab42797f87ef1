// Package api is a minimal HTTP client for the Addie API, authenticating
// with the sealed session token stored by the shell.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/agenticadvertising/addie-shell/internal/debug"
	ctxerrors "github.com/agenticadvertising/addie-shell/internal/errors"
)

const defaultTimeout = 30 * time.Second

// APIError represents a non-2xx response from the Addie API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API error (%d)", e.StatusCode)
}

// RawResponse represents a low-level API response.
type RawResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// Client calls the Addie API with the sealed session as a bearer token.
type Client struct {
	httpClient *http.Client
	baseURL    string
	sealed     string
}

// NewClient creates a client for the given API origin and sealed session
// token. When ctx carries the debug flag, requests and responses are
// logged with the token redacted.
func NewClient(ctx context.Context, baseURL, sealed string) *Client {
	httpClient := &http.Client{Timeout: defaultTimeout}
	if debug.IsDebug(ctx) {
		httpClient.Transport = debug.NewDebugTransport(nil, nil)
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		sealed:     sealed,
	}
}

// WithHTTPClient sets a custom HTTP client
func (c *Client) WithHTTPClient(client *http.Client) *Client {
	c.httpClient = client
	return c
}

// DoRaw performs a single request against the Addie API. Failures are
// terminal: there are no retries. Non-2xx responses return an APIError
// wrapped with request context alongside the raw response.
func (c *Client) DoRaw(ctx context.Context, method, path string, body []byte, headers http.Header) (*RawResponse, error) {
	url := c.buildURL(path)

	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, ctxerrors.WrapContext(method, url, 0, err)
	}

	if c.sealed != "" {
		req.Header.Set("Authorization", "Bearer "+c.sealed)
	}
	if len(body) > 0 {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, values := range headers {
		req.Header.Del(key)
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, ctxerrors.WrapContext(method, url, 0, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, ctxerrors.WrapContext(method, url, resp.StatusCode, err)
	}

	raw := &RawResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       respBody,
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			Message:    extractErrorMessage(respBody),
		}
		return raw, ctxerrors.WrapContext(method, url, resp.StatusCode, apiErr)
	}

	return raw, nil
}

func (c *Client) buildURL(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.baseURL + path
}

// extractErrorMessage pulls a human-readable message from a JSON error
// body, falling back to a truncated raw body.
func extractErrorMessage(body []byte) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}

	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200] + "..."
	}
	return msg
}
