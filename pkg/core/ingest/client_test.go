package ingest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(baseURL string, opts ...Option) *Client {
	base := []Option{WithCallDelay(0), WithRetryUnit(time.Millisecond)}
	return NewClient(baseURL, append(base, opts...)...)
}

func TestRequest_RetriesThenSucceeds(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	resp, err := client.Request(context.Background(), "thing.json", nil, false)

	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, string(resp.Body))
	assert.Equal(t, int32(3), hits.Load())
	assert.Equal(t, int64(3), client.Stats().Total)
}

func TestRequest_ExhaustedRetriesReturnExternalAPIError(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Request(context.Background(), "thing.json", nil, false)

	var apiErr *ExternalAPIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "thing.json", apiErr.Endpoint)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Equal(t, 3, apiErr.Attempts)
	assert.Equal(t, int32(3), hits.Load())
}

func TestRequest_NonRetryableStatusFailsImmediately(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Request(context.Background(), "thing.json", nil, false)

	var apiErr *ExternalAPIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.Equal(t, 1, apiErr.Attempts)
	assert.Equal(t, int32(1), hits.Load())
}

func TestRequest_ConnectionErrorIsRetried(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := newTestClient(url, WithTimeout(200*time.Millisecond))
	_, err := client.Request(context.Background(), "thing.json", nil, false)

	var apiErr *ExternalAPIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 0, apiErr.StatusCode)
	assert.Equal(t, 3, apiErr.Attempts)
}

func TestRequest_RetryAfterOverridesBackoff(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.Header().Set("Retry-After", "40")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	// exponential wait would be 1ms; Retry-After asks for 40 units
	client := newTestClient(server.URL)
	start := time.Now()
	_, err := client.Request(context.Background(), "thing.json", nil, false)

	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestRequest_DelayAfterSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, WithCallDelay(30*time.Millisecond))
	start := time.Now()
	_, err := client.Request(context.Background(), "thing.json", nil, false)

	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestRequest_BinaryResponse(t *testing.T) {
	payload := []byte{0x50, 0x4b, 0x03, 0x04, 0x00}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("Accept"), "application/zip")
		w.Write(payload)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	resp, err := client.Request(context.Background(), "document.xml", nil, true)

	require.NoError(t, err)
	assert.True(t, resp.Binary)
	assert.Equal(t, payload, resp.Body)
}

func TestRetryPolicy_ExponentialThenStop(t *testing.T) {
	p := newRetryPolicy(time.Second, 2)
	p.Reset()

	assert.Equal(t, 1*time.Second, p.NextBackOff())
	assert.Equal(t, 2*time.Second, p.NextBackOff())
	assert.Equal(t, backoff.Stop, p.NextBackOff())
}

func TestRetryPolicy_RetryAfterHint(t *testing.T) {
	p := newRetryPolicy(time.Second, 2)
	p.retryAfter("7")
	assert.Equal(t, 7*time.Second, p.NextBackOff())
	assert.Equal(t, 2*time.Second, p.NextBackOff())

	p.Reset()
	p.retryAfter("Wed, 21 Oct 2015 07:28:00 GMT")
	assert.Equal(t, 1*time.Second, p.NextBackOff())
}
