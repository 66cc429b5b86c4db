package ingest

import (
	"fmt"
	"strings"
)

// ExternalAPIError is returned when an upstream call fails for good: retries
// exhausted, a non-retryable HTTP status, or an upstream error status code.
type ExternalAPIError struct {
	Endpoint   string
	StatusCode int    // HTTP status, 0 for transport failures
	APIStatus  string // upstream status field (DART "status", ECOS RESULT.CODE)
	Attempts   int
	Err        error
}

func (e *ExternalAPIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "external api %s failed", e.Endpoint)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (http %d)", e.StatusCode)
	}
	if e.APIStatus != "" {
		fmt.Fprintf(&b, " (status %s)", e.APIStatus)
	}
	if e.Attempts > 1 {
		fmt.Fprintf(&b, " after %d attempts", e.Attempts)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *ExternalAPIError) Unwrap() error { return e.Err }

// httpStatusError carries a non-200 response between attempts.
type httpStatusError struct {
	code int
	body string
}

func (e *httpStatusError) Error() string {
	if e.body == "" {
		return fmt.Sprintf("unexpected status %d", e.code)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.code, e.body)
}
