package fetch

import (
	"math/rand"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// MaxJitter bounds the random component added to every backoff delay.
const MaxJitter = 150 * time.Millisecond

// JitterFunc returns a random duration in [0, MaxJitter).
type JitterFunc func() time.Duration

func defaultJitter() time.Duration {
	return time.Duration(rand.Int63n(int64(MaxJitter)))
}

// Backoff is base * 2^attempt plus jitter.
func Backoff(attempt int, base, jitter time.Duration) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	return base*time.Duration(1<<uint(attempt)) + jitter
}

// RetryDelay is the larger of the server-suggested delay and Backoff.
func RetryDelay(attempt int, base, serverDelay, jitter time.Duration) time.Duration {
	return max(serverDelay, Backoff(attempt, base, jitter))
}

// Anything larger is treated as unparseable rather than overflowing.
const maxRetryAfterSeconds = 1e9

var tryAgainPattern = regexp.MustCompile(`(?i)try again in\s+(\d+)\s+seconds?`)

// ParseRetryAfter extracts a server-suggested delay from the Retry-After
// header (delta-seconds or HTTP-date) or, failing that, from a
// "try again in N seconds" phrase in the body. It returns 0 when neither
// is present.
func ParseRetryAfter(h http.Header, body []byte, now time.Time) time.Duration {
	if v := strings.TrimSpace(h.Get("Retry-After")); v != "" {
		if secs, err := strconv.ParseFloat(v, 64); err == nil && secs >= 0 && secs < maxRetryAfterSeconds {
			return time.Duration(secs * float64(time.Second))
		}
		if t, err := http.ParseTime(v); err == nil {
			if d := t.Sub(now); d > 0 {
				return d
			}
			return 0
		}
	}
	if m := tryAgainPattern.FindSubmatch(body); m != nil {
		if secs, err := strconv.Atoi(string(m[1])); err == nil && secs >= 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return 0
}
