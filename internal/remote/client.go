package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/prudhvinik1/intakesync/internal/apperr"
	"github.com/prudhvinik1/intakesync/internal/metrics"
)

// Client talks to the intake API. Paths are relative to baseURL, which
// normally ends in /api.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// HTTPClient exposes the underlying client so tests can intercept it.
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}

type errorBody struct {
	Detail string `json:"detail"`
}

type request struct {
	operation string
	method    string
	path      string
	token     string
	headers   map[string]string
	body      any
}

// do sends req and decodes a 2xx JSON body into out (when out is non-nil).
// 401 becomes an AuthError; any other failure a NetworkError whose message
// is the body's detail field, or "HTTP <status>".
func (c *Client) do(ctx context.Context, req request, out any) error {
	var body io.Reader
	if req.body != nil {
		data, err := json.Marshal(req.body)
		if err != nil {
			return fmt.Errorf("failed to marshal %s request: %w", req.operation, err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.baseURL+req.path, body)
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", req.operation, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.token)
	}
	for k, v := range req.headers {
		httpReq.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		metrics.RecordRemoteRequest(req.operation, 0, time.Since(start))
		return &apperr.NetworkError{Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()
	metrics.RecordRemoteRequest(req.operation, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		message := fmt.Sprintf("HTTP %d", resp.StatusCode)
		var eb errorBody
		if data, readErr := io.ReadAll(io.LimitReader(resp.Body, 64<<10)); readErr == nil {
			if json.Unmarshal(data, &eb) == nil && eb.Detail != "" {
				message = eb.Detail
			}
		}
		if resp.StatusCode == http.StatusUnauthorized {
			return &apperr.AuthError{StatusCode: resp.StatusCode, Message: message}
		}
		return &apperr.NetworkError{StatusCode: resp.StatusCode, Message: message}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &apperr.NetworkError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("invalid %s response: %v", req.operation, err),
			Err:        err,
		}
	}
	return nil
}
