// Package httpcall implements the HTTP collaborator used by http_api
// nodes. Each call runs with its own bounded timeout so a slow upstream
// never blocks other conversation instances.
package httpcall

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/botwalk/botwalk/pkg/domain"
	"github.com/botwalk/botwalk/pkg/ports"
)

// maxResponseBytes caps how much of an upstream response is read into the
// variable store.
const maxResponseBytes = 1 << 20

// Client implements ports.Caller over net/http.
type Client struct {
	httpClient *http.Client
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client. The per-call timeout
// still applies through the request context.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a caller. The zero configuration uses http.DefaultTransport
// with no client-level timeout; deadlines come from each CallRequest.
func New(opts ...Option) *Client {
	c := &Client{httpClient: &http.Client{}}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do performs the request. Timeouts, connection failures and upstream
// status codes >= 400 are all reported as errors; the engine turns them
// into the node's error branch.
func (c *Client) Do(ctx context.Context, req ports.CallRequest) (ports.CallResult, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(callCtx, req.Method, req.URL, strings.NewReader(req.Body))
	if err != nil {
		return ports.CallResult{}, fmt.Errorf("failed to build request: %w", err)
	}

	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if req.Body != "" && httpReq.Header.Get("Content-Type") == "" {
		switch req.BodyKind {
		case domain.BodyForm:
			httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		case domain.BodyRaw:
			// Caller supplies the content type, or none.
		default:
			httpReq.Header.Set("Content-Type", "application/json")
		}
	}
	applyAuth(httpReq, req.Auth)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return ports.CallResult{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return ports.CallResult{}, fmt.Errorf("failed to read response: %w", err)
	}

	result := ports.CallResult{StatusCode: resp.StatusCode, Body: string(body)}
	if resp.StatusCode >= http.StatusBadRequest {
		return result, fmt.Errorf("upstream returned %d", resp.StatusCode)
	}
	return result, nil
}

func applyAuth(req *http.Request, auth *domain.AuthSpec) {
	if auth == nil {
		return
	}
	switch auth.Type {
	case domain.AuthBasic:
		req.SetBasicAuth(auth.Username, auth.Password)
	case domain.AuthBearer:
		req.Header.Set("Authorization", "Bearer "+auth.Token)
	case domain.AuthAPIKey:
		header := auth.Header
		if header == "" {
			header = "X-API-Key"
		}
		req.Header.Set(header, auth.Token)
	}
}
