// internal/common/http/client.go
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	apperrors "product-query-router/internal/common/errors"
	"product-query-router/internal/common/metrics"
)

// Config describes one backend API.
type Config struct {
	BaseURL       string
	Timeout       time.Duration
	Retry         RetryPolicy
	MaxConcurrent int64
	Headers       map[string]string
}

// Client is a JSON client for one named backend. Every call is bounded by
// the per-attempt timeout, retried per the policy and limited to
// MaxConcurrent in-flight attempts.
type Client struct {
	backend    string
	baseURL    string
	httpClient *http.Client
	policy     RetryPolicy
	limiter    *semaphore.Weighted
	headers    map[string]string
}

func NewClient(backend string, cfg Config) *Client {
	var limiter *semaphore.Weighted
	if cfg.MaxConcurrent > 0 {
		limiter = semaphore.NewWeighted(cfg.MaxConcurrent)
	}
	return &Client{
		backend: backend,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		policy:  cfg.Retry,
		limiter: limiter,
		headers: cfg.Headers,
	}
}

// Backend is the name used in errors, logs and metrics.
func (c *Client) Backend() string {
	return c.backend
}

// GetJSON issues GET baseURL+path?query and decodes the body into out.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, out interface{}) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	return c.call(ctx, http.MethodGet, target, nil, out)
}

// PostJSON marshals body, POSTs it to baseURL+path and decodes into out.
func (c *Client) PostJSON(ctx context.Context, path string, body interface{}, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return apperrors.NewInternalError(fmt.Errorf("encode %s request: %w", c.backend, err))
	}
	return c.call(ctx, http.MethodPost, c.baseURL+path, payload, out)
}

func (c *Client) call(ctx context.Context, method, target string, payload []byte, out interface{}) error {
	start := time.Now()
	defer func() {
		metrics.BackendCallDuration.WithLabelValues(c.backend).Observe(time.Since(start).Seconds())
	}()

	return Retry(ctx, c.policy, c.backend, func(ctx context.Context) error {
		return c.attempt(ctx, method, target, payload, out)
	})
}

func (c *Client) attempt(ctx context.Context, method, target string, payload []byte, out interface{}) error {
	if c.limiter != nil {
		if err := c.limiter.Acquire(ctx, 1); err != nil {
			return apperrors.NewConcurrencyLimitError(c.backend, err)
		}
		defer c.limiter.Release(1)
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return apperrors.NewInternalError(fmt.Errorf("build %s request: %w", c.backend, err))
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ClassifyTransportError(c.backend, err)
	}
	defer resp.Body.Close()

	if err := ClassifyStatus(c.backend, resp.StatusCode, target); err != nil {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return err
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.NewMalformedPayloadError(c.backend, err)
	}
	return nil
}

// ClassifyStatus maps a non-2xx status to the backend error taxonomy:
// 404 is not-found, other 4xx are final rejections, 5xx are retryable.
func ClassifyStatus(backend string, status int, target string) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusNotFound:
		return apperrors.NewResourceNotFoundError(backend, target)
	case status == http.StatusRequestTimeout || status == http.StatusTooManyRequests:
		return apperrors.NewBackendServerError(backend, status, fmt.Errorf("status %d", status))
	case status >= 400 && status < 500:
		return apperrors.NewBackendRejectedError(backend, status)
	default:
		return apperrors.NewBackendServerError(backend, status, fmt.Errorf("status %d", status))
	}
}

// ClassifyTransportError maps a failed round trip onto timeout or
// server-error codes; both are retryable.
func ClassifyTransportError(backend string, err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return apperrors.NewBackendTimeoutError(backend, err)
	}
	return apperrors.NewBackendServerError(backend, 0, err)
}
