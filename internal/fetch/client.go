package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// DefaultTimeout bounds one attempt when a Policy leaves Timeout unset.
const DefaultTimeout = 15 * time.Second

// Doer is the subset of *http.Client the fetch client needs.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Observer receives per-attempt and per-retry notifications.
type Observer interface {
	ObserveAttempt(label, outcome string, d time.Duration)
	ObserveRetry(label string, delay time.Duration)
}

// Attempt outcomes reported to an Observer.
const (
	OutcomeSuccess   = "success"
	OutcomeRetryable = "retryable"
	OutcomeFailed    = "failed"
	OutcomeCanceled  = "canceled"
)

// Request describes one HTTP call. When Form is non-nil it is sent
// form-encoded and Body is ignored.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Form   url.Values
	Body   []byte
}

// Policy controls retries and timeouts for one logical operation.
type Policy struct {
	// Label names the operation in errors and logs, e.g. "ERCOT token".
	Label      string
	MaxRetries int
	BaseRetry  time.Duration
	Timeout    time.Duration
	// MaxRetryDelay, when positive, gives up immediately if the server asks
	// to wait longer than this.
	MaxRetryDelay time.Duration
}

// Response is a fully buffered 2xx response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Attempts   int
}

// Client performs HTTP calls with per-attempt timeouts and retries.
// It holds no mutable state and is safe for concurrent use.
type Client struct {
	doer     Doer
	limiter  *rate.Limiter
	jitter   JitterFunc
	sleep    func(ctx context.Context, d time.Duration) error
	now      func() time.Time
	observer Observer
	log      zerolog.Logger
}

type Option func(*Client)

// WithDoer replaces the underlying HTTP client.
func WithDoer(d Doer) Option {
	return func(c *Client) { c.doer = d }
}

// WithRateLimit paces attempts through a token bucket. rps <= 0 disables it.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

func WithJitter(j JitterFunc) Option {
	return func(c *Client) { c.jitter = j }
}

// WithSleep replaces the context-aware delay used between attempts.
func WithSleep(s func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) { c.sleep = s }
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// New creates a Client. Without options it uses a plain *http.Client, no
// rate limit, random jitter and a real timer.
func New(opts ...Option) *Client {
	c := &Client{
		doer:   &http.Client{},
		jitter: defaultJitter,
		sleep:  sleepContext,
		now:    time.Now,
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do runs req under policy p. Attempts are numbered 0..MaxRetries. It
// returns the first 2xx response, or a *StatusError / *TransportError.
func (c *Client) Do(ctx context.Context, req Request, p Policy) (*Response, error) {
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	if p.Timeout <= 0 {
		p.Timeout = DefaultTimeout
	}

	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		if err := c.wait(ctx); err != nil {
			return nil, c.canceled(ctx, p.Label, attempt, err)
		}

		started := c.now()
		res, err := c.attempt(ctx, req, p.Timeout)
		elapsed := c.now().Sub(started)
		last := attempt == p.MaxRetries

		if err != nil {
			if ctx.Err() != nil {
				c.observe(p.Label, OutcomeCanceled, elapsed)
				return nil, c.canceled(ctx, p.Label, attempt+1, ctx.Err())
			}
			retryable, timeout := classifyTransport(err)
			if !retryable || last {
				c.observe(p.Label, OutcomeFailed, elapsed)
				c.log.Error().Err(err).Str("label", p.Label).Int("attempt", attempt).Msg("request failed")
				return nil, &TransportError{Label: p.Label, Attempts: attempt + 1, Timeout: timeout, Err: err}
			}
			c.observe(p.Label, OutcomeRetryable, elapsed)
			delay := RetryDelay(attempt, p.BaseRetry, 0, c.jitter())
			c.log.Warn().Err(err).Str("label", p.Label).Int("attempt", attempt).Dur("delay", delay).Msg("transport error, retrying")
			if err := c.pause(ctx, p.Label, delay); err != nil {
				return nil, c.canceled(ctx, p.Label, attempt+1, err)
			}
			continue
		}

		if res.StatusCode >= 200 && res.StatusCode < 300 {
			c.observe(p.Label, OutcomeSuccess, elapsed)
			res.Attempts = attempt + 1
			return &res.Response, nil
		}

		serverDelay := ParseRetryAfter(res.Header, res.Body, c.now())
		statusErr := &StatusError{
			Label:      p.Label,
			StatusCode: res.StatusCode,
			Status:     res.status,
			Body:       excerpt(res.Body),
			Attempts:   attempt + 1,
			RetryAfter: serverDelay,
		}
		if !statusErr.Retryable() || last {
			c.observe(p.Label, OutcomeFailed, elapsed)
			c.log.Error().Str("label", p.Label).Int("status", res.StatusCode).Int("attempts", attempt+1).Msg("upstream returned error status")
			return nil, statusErr
		}
		if p.MaxRetryDelay > 0 && serverDelay > p.MaxRetryDelay {
			c.observe(p.Label, OutcomeFailed, elapsed)
			c.log.Error().Str("label", p.Label).Dur("retry_after", serverDelay).Msg("server delay exceeds retry budget")
			return nil, statusErr
		}

		c.observe(p.Label, OutcomeRetryable, elapsed)
		delay := RetryDelay(attempt, p.BaseRetry, serverDelay, c.jitter())
		c.log.Warn().Str("label", p.Label).Int("status", res.StatusCode).Int("attempt", attempt).Dur("delay", delay).Msg("retryable status, backing off")
		if err := c.pause(ctx, p.Label, delay); err != nil {
			return nil, c.canceled(ctx, p.Label, attempt+1, err)
		}
	}

	// Unreachable: the final attempt always returns above.
	return nil, fmt.Errorf("%s failed: retries exhausted", p.Label)
}

type rawResponse struct {
	Response
	status string
}

func (c *Client) attempt(ctx context.Context, req Request, timeout time.Duration) (*rawResponse, error) {
	actx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	hreq, err := req.build(actx)
	if err != nil {
		return nil, err
	}
	resp, err := c.doer.Do(hreq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	// The body is read under the attempt deadline so a stalled stream is
	// treated like any other timeout.
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return &rawResponse{
		Response: Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: body},
		status:   resp.Status,
	}, nil
}

func (r Request) build(ctx context.Context) (*http.Request, error) {
	method := r.Method
	if method == "" {
		method = http.MethodGet
	}
	var body io.Reader
	switch {
	case r.Form != nil:
		body = strings.NewReader(r.Form.Encode())
	case r.Body != nil:
		body = bytes.NewReader(r.Body)
	}
	hreq, err := http.NewRequestWithContext(ctx, method, r.URL, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, vs := range r.Header {
		for _, v := range vs {
			hreq.Header.Add(k, v)
		}
	}
	if r.Form != nil {
		hreq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	return hreq, nil
}

func (c *Client) wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

func (c *Client) pause(ctx context.Context, label string, d time.Duration) error {
	if c.observer != nil {
		c.observer.ObserveRetry(label, d)
	}
	return c.sleep(ctx, d)
}

func (c *Client) canceled(ctx context.Context, label string, attempts int, cause error) error {
	if ctx.Err() == nil {
		// A limiter refusing to wait past the deadline is not a cancellation.
		return &TransportError{Label: label, Attempts: attempts, Err: cause}
	}
	c.log.Debug().Str("label", label).Int("attempts", attempts).Msg("request canceled by caller")
	return &TransportError{Label: label, Attempts: attempts, Canceled: true, Err: ctx.Err()}
}

func (c *Client) observe(label, outcome string, d time.Duration) {
	if c.observer != nil {
		c.observer.ObserveAttempt(label, outcome, d)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

var transientPattern = regexp.MustCompile(`(?i)abort|timed?\s*out|network|socket|connection reset|broken pipe|EOF`)

// classifyTransport decides whether a failure to get a response is worth
// another attempt. Timeouts, aborts, name resolution and network-level
// failures are; malformed requests are not.
func classifyTransport(err error) (retryable, timeout bool) {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true, dnsErr.IsTimeout
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true, true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true, true
	}
	switch {
	case errors.Is(err, context.Canceled),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, io.EOF),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.EPIPE):
		return true, false
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true, false
	}
	return transientPattern.MatchString(err.Error()), false
}
