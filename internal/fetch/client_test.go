package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type doerFunc func(*http.Request) (*http.Response, error)

func (f doerFunc) Do(r *http.Request) (*http.Response, error) { return f(r) }

type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *sleepRecorder) recorded() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.delays...)
}

func zeroJitter() time.Duration { return 0 }

func testPolicy() Policy {
	return Policy{Label: "ERCOT data", MaxRetries: 5, BaseRetry: 400 * time.Millisecond, Timeout: time.Second}
}

func okResponse(body string) *http.Response {
	return &http.Response{
		StatusCode: http.StatusOK,
		Status:     "200 OK",
		Header:     http.Header{},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestDoRetriesTimeoutThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	doer := doerFunc(func(r *http.Request) (*http.Response, error) {
		if calls.Add(1) == 1 {
			return nil, &url.Error{Op: "Get", URL: r.URL.String(), Err: context.DeadlineExceeded}
		}
		return okResponse(`{"ok":true}`), nil
	})
	rec := &sleepRecorder{}
	c := New(WithDoer(doer), WithJitter(zeroJitter), WithSleep(rec.sleep))

	res, err := c.Do(context.Background(), Request{URL: "http://example.test/data"}, testPolicy())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Attempts)
	assert.Equal(t, `{"ok":true}`, string(res.Body))
	assert.Equal(t, []time.Duration{400 * time.Millisecond}, rec.recorded())
}

func TestDoRetriesNameResolutionFailure(t *testing.T) {
	var calls atomic.Int32
	doer := doerFunc(func(r *http.Request) (*http.Response, error) {
		if calls.Add(1) == 1 {
			return nil, &url.Error{Op: "Get", URL: r.URL.String(), Err: &net.OpError{
				Op:  "dial",
				Net: "tcp",
				Err: &net.DNSError{Err: "no such host", Name: "api.ercot.com", IsNotFound: true},
			}}
		}
		return okResponse(`{"ok":true}`), nil
	})
	rec := &sleepRecorder{}
	c := New(WithDoer(doer), WithJitter(zeroJitter), WithSleep(rec.sleep))

	res, err := c.Do(context.Background(), Request{URL: "http://api.ercot.com/"}, testPolicy())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Attempts)
	assert.EqualValues(t, 2, calls.Load())
	assert.Equal(t, []time.Duration{400 * time.Millisecond}, rec.recorded())
}

func TestDoNameResolutionExhausted(t *testing.T) {
	doer := doerFunc(func(r *http.Request) (*http.Response, error) {
		return nil, &url.Error{Op: "Get", URL: r.URL.String(), Err: &net.DNSError{Err: "no such host", Name: "api.ercot.invalid", IsNotFound: true}}
	})
	c := New(WithDoer(doer), WithJitter(zeroJitter), WithSleep((&sleepRecorder{}).sleep))

	_, err := c.Do(context.Background(), Request{URL: "http://api.ercot.invalid/"}, testPolicy())
	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, 6, te.Attempts)
	assert.False(t, te.Canceled)
	assert.False(t, te.Timeout)
	assert.True(t, strings.HasPrefix(err.Error(), "ERCOT data failed:"))
}

func TestDoNonRetryableStatusFailsImmediately(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("bad settlement point"))
	}))
	defer srv.Close()

	rec := &sleepRecorder{}
	c := New(WithJitter(zeroJitter), WithSleep(rec.sleep))

	_, err := c.Do(context.Background(), Request{URL: srv.URL}, testPolicy())
	require.Error(t, err)

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadRequest, se.StatusCode)
	assert.Equal(t, 1, se.Attempts)
	assert.Equal(t, "ERCOT data failed: 400 Bad Request bad settlement point", err.Error())
	assert.EqualValues(t, 1, calls.Load())
	assert.Empty(t, rec.recorded())
	assert.False(t, IsRateLimited(err))
}

func TestDoHonorsRetryAfterHeader(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "3")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte("done"))
	}))
	defer srv.Close()

	rec := &sleepRecorder{}
	c := New(WithJitter(zeroJitter), WithSleep(rec.sleep))

	res, err := c.Do(context.Background(), Request{URL: srv.URL}, testPolicy())
	require.NoError(t, err)
	assert.Equal(t, "done", string(res.Body))
	assert.Equal(t, []time.Duration{3 * time.Second}, rec.recorded())
}

func TestDoHonorsTryAgainPhraseInBody(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"message":"Rate limit is exceeded. Try again in 2 seconds."}`))
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	rec := &sleepRecorder{}
	c := New(WithJitter(zeroJitter), WithSleep(rec.sleep))

	_, err := c.Do(context.Background(), Request{URL: srv.URL}, testPolicy())
	require.NoError(t, err)
	// Second wait is max(2s, 800ms).
	assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second}, rec.recorded())
}

func TestDoBackoffGrowsWhenServerIsSilent(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	rec := &sleepRecorder{}
	jitter := func() time.Duration { return 100 * time.Millisecond }
	c := New(WithJitter(jitter), WithSleep(rec.sleep))

	res, err := c.Do(context.Background(), Request{URL: srv.URL}, testPolicy())
	require.NoError(t, err)
	assert.Equal(t, 4, res.Attempts)
	assert.Equal(t, []time.Duration{
		500 * time.Millisecond,
		900 * time.Millisecond,
		1700 * time.Millisecond,
	}, rec.recorded())
}

func TestDoExhaustedRateLimitIsDistinguishable(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	rec := &sleepRecorder{}
	c := New(WithJitter(zeroJitter), WithSleep(rec.sleep))

	p := testPolicy()
	p.MaxRetries = 2
	_, err := c.Do(context.Background(), Request{URL: srv.URL}, p)
	require.Error(t, err)
	assert.True(t, IsRateLimited(err))
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.EqualValues(t, 3, calls.Load())
	assert.Len(t, rec.recorded(), 2)

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, CodeRateLimited, se.Code())
	assert.Contains(t, err.Error(), "429 Too Many Requests")
}

func TestDoGivesUpWhenServerDelayExceedsBudget(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "600")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	rec := &sleepRecorder{}
	c := New(WithJitter(zeroJitter), WithSleep(rec.sleep))

	p := testPolicy()
	p.MaxRetryDelay = time.Minute
	_, err := c.Do(context.Background(), Request{URL: srv.URL}, p)
	require.Error(t, err)

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 1, se.Attempts)
	assert.Equal(t, 10*time.Minute, se.RetryAfter)
	assert.Empty(t, rec.recorded())
}

func TestDoCancellationIsNotTimeout(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32
	doer := doerFunc(func(r *http.Request) (*http.Response, error) {
		calls.Add(1)
		cancel()
		<-r.Context().Done()
		return nil, &url.Error{Op: "Get", URL: r.URL.String(), Err: r.Context().Err()}
	})
	rec := &sleepRecorder{}
	c := New(WithDoer(doer), WithJitter(zeroJitter), WithSleep(rec.sleep))

	_, err := c.Do(ctx, Request{URL: "http://example.test/"}, testPolicy())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCanceled)
	assert.NotErrorIs(t, err, ErrTimeout)
	assert.EqualValues(t, 1, calls.Load())
	assert.Empty(t, rec.recorded())

	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, CodeCanceled, te.Code())
}

func TestDoCancellationDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	doer := doerFunc(func(r *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusBadGateway,
			Status:     "502 Bad Gateway",
			Header:     http.Header{},
			Body:       io.NopCloser(strings.NewReader("")),
		}, nil
	})
	sleep := func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}
	c := New(WithDoer(doer), WithJitter(zeroJitter), WithSleep(sleep))

	_, err := c.Do(ctx, Request{URL: "http://example.test/"}, testPolicy())
	assert.ErrorIs(t, err, ErrCanceled)
}

func TestDoTimeoutExhaustedReportsTimeout(t *testing.T) {
	doer := doerFunc(func(r *http.Request) (*http.Response, error) {
		return nil, fmt.Errorf("get: %w", context.DeadlineExceeded)
	})
	c := New(WithDoer(doer), WithJitter(zeroJitter), WithSleep((&sleepRecorder{}).sleep))

	p := testPolicy()
	p.MaxRetries = 1
	_, err := c.Do(context.Background(), Request{URL: "http://example.test/"}, p)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.NotErrorIs(t, err, ErrCanceled)
}

func TestDoSendsFormBody(t *testing.T) {
	var got url.Values
	var contentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		_ = r.ParseForm()
		got = r.PostForm
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := New()
	_, err := c.Do(context.Background(), Request{
		Method: http.MethodPost,
		URL:    srv.URL,
		Form:   url.Values{"grant_type": {"password"}, "username": {"u"}},
	}, testPolicy())
	require.NoError(t, err)
	assert.Equal(t, "application/x-www-form-urlencoded", contentType)
	assert.Equal(t, "password", got.Get("grant_type"))
	assert.Equal(t, "u", got.Get("username"))
}

type recordingObserver struct {
	mu       sync.Mutex
	outcomes []string
	retries  int
}

func (o *recordingObserver) ObserveAttempt(label, outcome string, d time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes = append(o.outcomes, outcome)
}

func (o *recordingObserver) ObserveRetry(label string, delay time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.retries++
}

func TestDoReportsToObserver(t *testing.T) {
	var calls atomic.Int32
	doer := doerFunc(func(r *http.Request) (*http.Response, error) {
		if calls.Add(1) == 1 {
			return nil, errors.New("read tcp: connection reset by peer")
		}
		return okResponse("ok"), nil
	})
	obs := &recordingObserver{}
	c := New(WithDoer(doer), WithJitter(zeroJitter), WithSleep((&sleepRecorder{}).sleep), WithObserver(obs))

	_, err := c.Do(context.Background(), Request{URL: "http://example.test/"}, testPolicy())
	require.NoError(t, err)
	assert.Equal(t, []string{OutcomeRetryable, OutcomeSuccess}, obs.outcomes)
	assert.Equal(t, 1, obs.retries)
}

func TestClassifyTransport(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
		timeout   bool
	}{
		{"deadline", context.DeadlineExceeded, true, true},
		{"attempt abort", context.Canceled, true, false},
		{"conn reset text", errors.New("socket hang up"), true, false},
		{"op error", &net.OpError{Op: "read", Err: errors.New("boom")}, true, false},
		{"dns not found", &net.DNSError{Err: "no such host", Name: "x", IsNotFound: true}, true, false},
		{"dns timeout", &net.DNSError{Err: "i/o timeout", Name: "x", IsTimeout: true}, true, true},
		{"unknown", errors.New("unsupported protocol scheme"), false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			retryable, timeout := classifyTransport(tt.err)
			assert.Equal(t, tt.retryable, retryable)
			assert.Equal(t, tt.timeout, timeout)
		})
	}
}

func TestExcerptKeepsRunesWhole(t *testing.T) {
	body := strings.Repeat("a", maxBodyExcerpt-1) + "é" + "tail"
	got := excerpt([]byte(body))

	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("a", maxBodyExcerpt-1)+"...", got)

	assert.Equal(t, "short", excerpt([]byte("  short \n")))
}

func TestCanceledErrorWording(t *testing.T) {
	before := &TransportError{Label: "ERCOT token", Canceled: true, Err: context.Canceled}
	assert.Equal(t, "ERCOT token failed: canceled before any attempt: context canceled", before.Error())

	after := &TransportError{Label: "ERCOT data", Attempts: 2, Canceled: true, Err: context.Canceled}
	assert.Equal(t, "ERCOT data failed: canceled after 2 attempt(s): context canceled", after.Error())
}
