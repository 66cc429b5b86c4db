// Package ingest provides the upstream API clients: a resilient HTTP wrapper
// and the DART (Open DART) and ECOS (Bank of Korea) APIs built on it.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

const (
	DefaultTimeout    = 30 * time.Second
	DefaultMaxRetries = 2
	DefaultCallDelay  = 1 * time.Second

	userAgent = "dart-screener/1.0"
)

// Response is a successful (HTTP 200) upstream response.
type Response struct {
	StatusCode int
	Body       []byte
	Binary     bool
}

// DecodeJSON unmarshals the body into v.
func (r *Response) DecodeJSON(v interface{}) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// Client wraps net/http with the retry, backoff and pacing policy every
// upstream call goes through.
type Client struct {
	baseURL    string
	httpClient *http.Client
	maxRetries int
	callDelay  time.Duration
	retryUnit  time.Duration
	stats      *CallStats
	log        zerolog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithMaxRetries sets how many extra attempts follow a retryable failure.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

// WithCallDelay sets the pause taken after every successful request.
func WithCallDelay(d time.Duration) Option {
	return func(c *Client) { c.callDelay = d }
}

// WithRetryUnit sets the unit of the 2^attempt backoff and of Retry-After values.
// Production uses one second.
func WithRetryUnit(d time.Duration) Option {
	return func(c *Client) { c.retryUnit = d }
}

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// NewClient creates a client rooted at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		maxRetries: DefaultMaxRetries,
		callDelay:  DefaultCallDelay,
		retryUnit:  time.Second,
		stats:      &CallStats{},
		log:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Stats returns the call counters of this client.
func (c *Client) Stats() StatsSnapshot {
	return c.stats.Snapshot()
}

// Request performs GET baseURL/endpoint?params. Retryable failures (429, 5xx
// gateway family, transport errors) are retried with exponential backoff;
// other statuses fail at once. Every successful call is followed by the
// configured delay.
func (c *Client) Request(ctx context.Context, endpoint string, params url.Values, binary bool) (*Response, error) {
	target := c.baseURL + "/" + strings.TrimLeft(endpoint, "/")
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	policy := newRetryPolicy(c.retryUnit, c.maxRetries)
	attempts := 0
	var resp *Response
	var lastStatus int

	op := func() error {
		attempts++
		c.stats.record(endpoint)

		r, retryAfter, err := c.do(ctx, target, binary)
		if err != nil {
			lastStatus = 0
			if se, ok := err.(*httpStatusError); ok {
				lastStatus = se.code
				if se.code == http.StatusTooManyRequests && retryAfter != "" {
					policy.retryAfter(retryAfter)
				}
			}
			return classify(ctx, err)
		}
		resp = r
		return nil
	}

	notify := func(err error, wait time.Duration) {
		c.log.Warn().
			Err(err).
			Str("endpoint", endpoint).
			Int("attempt", attempts).
			Dur("wait", wait).
			Msg("Retrying upstream request")
	}

	if err := backoff.RetryNotify(op, backoff.WithContext(policy, ctx), notify); err != nil {
		return nil, &ExternalAPIError{
			Endpoint:   endpoint,
			StatusCode: lastStatus,
			Attempts:   attempts,
			Err:        err,
		}
	}

	sleepCtx(ctx, c.callDelay)
	return resp, nil
}

// do performs one attempt. The Retry-After header is returned alongside a
// status error so the caller can feed it to the backoff policy.
func (c *Client) do(ctx context.Context, target string, binary bool) (*Response, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, "", backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("User-Agent", userAgent)
	if binary {
		req.Header.Set("Accept", "application/octet-stream, application/zip")
	} else {
		req.Header.Set("Accept", "application/json")
	}

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("request failed: %w", err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		snippet := string(body)
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		return nil, httpResp.Header.Get("Retry-After"), &httpStatusError{code: httpResp.StatusCode, body: snippet}
	}

	return &Response{StatusCode: httpResp.StatusCode, Body: body, Binary: binary}, "", nil
}
