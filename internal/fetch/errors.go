package fetch

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"
)

var (
	// ErrRateLimited matches a StatusError whose final status was 429.
	ErrRateLimited = errors.New("upstream rate limited")
	// ErrCanceled matches a TransportError caused by the caller's context.
	ErrCanceled = errors.New("request canceled")
	// ErrTimeout matches a TransportError whose last attempt timed out.
	ErrTimeout = errors.New("request timed out")
)

const (
	CodeRateLimited    = "UPSTREAM_RATE_LIMITED"
	CodeUpstreamStatus = "UPSTREAM_STATUS"
	CodeTransport      = "UPSTREAM_TRANSPORT"
	CodeCanceled       = "CANCELED"

	maxBodyExcerpt = 512
)

// TransportError is a failure to obtain any HTTP response: network errors,
// per-attempt timeouts, or cancellation by the caller.
type TransportError struct {
	Label    string
	Attempts int
	Timeout  bool
	Canceled bool
	Err      error
}

func (e *TransportError) Error() string {
	if e.Canceled {
		if e.Attempts == 0 {
			return fmt.Sprintf("%s failed: canceled before any attempt: %v", e.Label, e.Err)
		}
		return fmt.Sprintf("%s failed: canceled after %d attempt(s): %v", e.Label, e.Attempts, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Label, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool {
	switch target {
	case ErrCanceled:
		return e.Canceled
	case ErrTimeout:
		return e.Timeout && !e.Canceled
	}
	return false
}

// Code returns a stable identifier for the failure class.
func (e *TransportError) Code() string {
	if e.Canceled {
		return CodeCanceled
	}
	return CodeTransport
}

// StatusError is a non-2xx response that was not retried or that remained
// retryable after every attempt was used.
type StatusError struct {
	Label      string
	StatusCode int
	Status     string
	Body       string
	Attempts   int
	// RetryAfter is the server-suggested delay read from the last response.
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s failed: %d %s", e.Label, e.StatusCode, statusText(e.StatusCode, e.Status))
	if e.Body != "" {
		msg += " " + e.Body
	}
	return msg
}

func (e *StatusError) Is(target error) bool {
	return target == ErrRateLimited && e.RateLimited()
}

// RateLimited reports whether the upstream answered 429.
func (e *StatusError) RateLimited() bool { return e.StatusCode == http.StatusTooManyRequests }

// Retryable reports whether the status belongs to the retryable subset.
func (e *StatusError) Retryable() bool { return isRetryableStatus(e.StatusCode) }

func (e *StatusError) Code() string {
	if e.RateLimited() {
		return CodeRateLimited
	}
	return CodeUpstreamStatus
}

// IsRateLimited reports whether err, or anything it wraps, is a final 429.
func IsRateLimited(err error) bool { return errors.Is(err, ErrRateLimited) }

func isRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

func statusText(code int, status string) string {
	// net/http puts "429 Too Many Requests" in Status; keep only the text.
	if text, ok := strings.CutPrefix(status, fmt.Sprintf("%d ", code)); ok {
		return text
	}
	if status != "" {
		return status
	}
	return http.StatusText(code)
}

func excerpt(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxBodyExcerpt {
		cut := maxBodyExcerpt
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		return s[:cut] + "..."
	}
	return s
}
