package llm

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/kbukum/stageflow/errors"
)

// maxErrorBody bounds how much of an error response is kept in details.
const maxErrorBody = 512

// Client posts JSON to a backend and maps failures onto AppErrors.
type Client struct {
	service string
	baseURL string
	apiKey  string
	headers map[string]string
	http    *http.Client
}

// NewClient creates a Client from cfg. service names the backend in errors.
func NewClient(service string, cfg Config) *Client {
	return &Client{
		service: service,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		headers: cfg.Headers,
		http:    &http.Client{Timeout: cfg.Timeout},
	}
}

// PostJSON sends body to path and decodes a 2xx response into out.
//
// Status 429 maps to RATE_LIMITED, 5xx to SERVICE_UNAVAILABLE and any other
// non-2xx status to a non-retryable EXTERNAL_SERVICE_ERROR. Deadlines and
// client timeouts map to TIMEOUT; a cancelled ctx is returned unchanged.
func (c *Client) PostJSON(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return errors.Internal(fmt.Errorf("encoding %s request: %w", c.service, err))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return errors.Internal(fmt.Errorf("building %s request: %w", c.service, err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return c.transportError(ctx, err)
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return c.transportError(ctx, err)
	}
	if err := c.statusError(resp.StatusCode, data); err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		e := errors.ExternalService(c.service, fmt.Errorf("decoding response: %w", err))
		e.Retryable = false
		return e
	}
	return nil
}

// Get issues a GET and reports whether it returned 2xx.
func (c *Client) Get(ctx context.Context, path string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return false
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	_ = resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

func (c *Client) statusError(status int, body []byte) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusTooManyRequests:
		return errors.RateLimited(c.service).WithDetail("status", status).WithDetail("body", truncate(body))
	case status >= 500:
		return errors.ServiceUnavailable(c.service).WithDetail("status", status).WithDetail("body", truncate(body))
	default:
		e := errors.ExternalService(c.service, fmt.Errorf("HTTP %d", status)).
			WithDetail("status", status).
			WithDetail("body", truncate(body))
		e.Retryable = false
		return e
	}
}

func (c *Client) transportError(ctx context.Context, err error) error {
	if stderrors.Is(ctx.Err(), context.Canceled) {
		return ctx.Err()
	}
	var netErr net.Error
	if stderrors.Is(err, context.DeadlineExceeded) || (stderrors.As(err, &netErr) && netErr.Timeout()) {
		return errors.Timeout(c.service).WithCause(err)
	}
	return errors.ExternalService(c.service, err)
}

func truncate(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorBody {
		return s[:maxErrorBody] + "..."
	}
	return s
}
