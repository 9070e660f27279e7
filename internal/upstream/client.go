// Package upstream implements the retrying HTTP client the gateway uses to
// talk to the Nginx Proxy Manager API. Requests carry buffered bodies so
// they can be replayed; 5xx, 429 and transport errors are retried with
// optional exponential backoff up to a configured attempt count.
package upstream

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"npmdeck/internal/config"
)

// Client talks to one upstream base URL. It is safe for concurrent use.
type Client struct {
	base    *url.URL
	httpc   *http.Client
	retry   config.RetryConfig
	onRetry func()
}

// Option mutates a Client during construction.
type Option func(*Client)

// WithOnRetry installs a hook invoked once per retry attempt, used to feed
// the monitor.
func WithOnRetry(fn func()) Option {
	return func(c *Client) { c.onRetry = fn }
}

// WithHTTPClient replaces the underlying HTTP client (tests).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpc = hc }
}

// NewClient builds a Client for the configured upstream. The transport is
// wrapped with otelhttp so forwarded calls show up as client spans.
func NewClient(up config.UpstreamConfig, retry config.RetryConfig, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimSuffix(up.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse upstream base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("unsupported upstream scheme %q", base.Scheme)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if up.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	c := &Client{
		base:  base,
		retry: retry,
		httpc: &http.Client{
			Transport: otelhttp.NewTransport(transport),
			Timeout:   time.Duration(up.RequestTimeoutSec) * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the configured upstream root.
func (c *Client) BaseURL() string { return c.base.String() }

// Do sends one request to the upstream, retrying per the configured policy.
// The body is replayed from the buffer on every attempt. On success the
// caller owns the response body. On failure after all attempts the returned
// error is an *Error carrying the failure class and a friendly message.
// Responses with 4xx/5xx status are not errors; the caller relays them.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, header http.Header, body []byte) (*http.Response, error) {
	attempts := c.retry.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	wait := c.newBackOff()
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			if c.onRetry != nil {
				c.onRetry()
			}
			next := wait.NextBackOff()
			if next == backoff.Stop {
				break
			}
			select {
			case <-ctx.Done():
				return nil, &Error{Class: classifyNetErr(ctx.Err()), Message: FriendlyMessage(ctx.Err()), Attempts: attempt - 1, Err: ctx.Err()}
			case <-time.After(next):
			}
		}

		resp, err := c.attempt(ctx, method, path, query, header, body)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			continue
		}

		if resp.StatusCode >= 400 && ClassifyStatus(resp.StatusCode) == ClassServerError {
			if attempt < attempts {
				// Drain so the connection can be reused, then retry.
				io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
				resp.Body.Close()
				lastErr = fmt.Errorf("upstream returned status %d", resp.StatusCode)
				continue
			}
		}
		return resp, nil
	}

	return nil, &Error{
		Class:    classifyNetErr(lastErr),
		Message:  FriendlyMessage(lastErr),
		Attempts: attempts,
		Err:      lastErr,
	}
}

// Get is a convenience wrapper for JSON GETs used by the resource layer.
func (c *Client) Get(ctx context.Context, path string, query url.Values, header http.Header) (*http.Response, error) {
	return c.Do(ctx, http.MethodGet, path, query, header, nil)
}

// Ping performs a lightweight reachability probe against the upstream root
// and returns the round-trip latency. Any HTTP response, including an error
// status, counts as reachable.
func (c *Client) Ping(ctx context.Context) (time.Duration, int, error) {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base.String()+"/", nil)
	if err != nil {
		return 0, 0, err
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return time.Since(start), 0, &Error{Class: classifyNetErr(err), Message: FriendlyMessage(err), Attempts: 1, Err: err}
	}
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	resp.Body.Close()
	return time.Since(start), resp.StatusCode, nil
}

func (c *Client) attempt(ctx context.Context, method, path string, query url.Values, header http.Header, body []byte) (*http.Response, error) {
	u := *c.base
	u.Path = joinPath(c.base.Path, path)
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var rd io.Reader
	if len(body) > 0 {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), rd)
	if err != nil {
		return nil, err
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if len(body) > 0 {
		req.ContentLength = int64(len(body))
	}
	return c.httpc.Do(req)
}

func (c *Client) newBackOff() backoff.BackOff {
	initial := time.Duration(c.retry.InitialBackoffMs) * time.Millisecond
	if !c.retry.Exponential {
		return backoff.NewConstantBackOff(initial)
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = initial
	b.MaxInterval = time.Duration(c.retry.MaxBackoffMs) * time.Millisecond
	b.MaxElapsedTime = 0 // attempt count is the only stop condition
	return b
}

func joinPath(base, p string) string {
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return strings.TrimSuffix(base, "/") + p
}

// IsNetworkError reports whether err is a terminal client error (as opposed
// to a relayed upstream status).
func IsNetworkError(err error) bool {
	var ue *Error
	return errors.As(err, &ue)
}
