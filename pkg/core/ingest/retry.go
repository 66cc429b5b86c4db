package ingest

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

var retryableStatus = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// retryPolicy is a backoff.BackOff that waits 2^attempt units between tries
// and stops after maxRetries. A Retry-After hint replaces the next wait once.
type retryPolicy struct {
	unit       time.Duration
	maxRetries int

	attempt int
	hint    time.Duration
	hasHint bool
}

var _ backoff.BackOff = (*retryPolicy)(nil)

func newRetryPolicy(unit time.Duration, maxRetries int) *retryPolicy {
	return &retryPolicy{unit: unit, maxRetries: maxRetries}
}

func (p *retryPolicy) NextBackOff() time.Duration {
	if p.attempt >= p.maxRetries {
		return backoff.Stop
	}
	wait := p.unit * time.Duration(1<<p.attempt)
	if p.hasHint {
		wait = p.hint
		p.hasHint = false
	}
	p.attempt++
	return wait
}

func (p *retryPolicy) Reset() {
	p.attempt = 0
	p.hasHint = false
}

// retryAfter records the server's Retry-After header when it is an integer count of seconds.
func (p *retryPolicy) retryAfter(header string) {
	secs, err := strconv.Atoi(strings.TrimSpace(header))
	if err != nil || secs < 0 {
		return
	}
	p.hint = p.unit * time.Duration(secs)
	p.hasHint = true
}

// classify decides whether an attempt error may be retried. Caller
// cancellation and non-retryable statuses are wrapped as permanent.
func classify(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return backoff.Permanent(err)
	}
	var statusErr *httpStatusError
	if errors.As(err, &statusErr) && !retryableStatus[statusErr.code] {
		return backoff.Permanent(err)
	}
	return err
}

// sleepCtx waits d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
