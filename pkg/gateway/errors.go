package gateway

import (
	"errors"
	"fmt"
	"net/http"
)

// maxErrorBody bounds how much of an upstream error body is kept on the error.
const maxErrorBody = 2048

// UpstreamError is returned when an upstream call fails after retries are
// exhausted, or fails with a status that is not worth retrying.
type UpstreamError struct {
	Operation  string
	StatusCode int // 0 for network-level failures
	Body       string
	Err        error

	permanent bool
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	switch {
	case e.Err != nil && e.StatusCode > 0:
		return fmt.Sprintf("%s (HTTP %d): %v", e.Operation, e.StatusCode, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Operation, e.Err)
	case e.Body != "":
		return fmt.Sprintf("%s: upstream returned HTTP %d: %s", e.Operation, e.StatusCode, e.Body)
	default:
		return fmt.Sprintf("%s: upstream returned HTTP %d", e.Operation, e.StatusCode)
	}
}

// Unwrap returns the underlying error.
func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the failure is transient: network errors,
// request timeouts, rate limiting and server errors.
func (e *UpstreamError) Retryable() bool {
	switch {
	case e.permanent:
		return false
	case e.StatusCode == 0:
		return true
	case e.StatusCode == http.StatusRequestTimeout, e.StatusCode == http.StatusTooManyRequests:
		return true
	case e.StatusCode >= http.StatusInternalServerError:
		return true
	default:
		return false
	}
}

// IsRetryable reports whether err is an UpstreamError classified as transient.
func IsRetryable(err error) bool {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue.Retryable()
	}
	return false
}

func truncateBody(b []byte) string {
	if len(b) > maxErrorBody {
		return string(b[:maxErrorBody]) + "..."
	}
	return string(b)
}
