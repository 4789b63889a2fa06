package ercot

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spp-forecast/internal/fetch"
)

const fieldsJSON = `[{"name":"deliveryDate"},{"name":"deliveryHour"},{"name":"deliveryInterval"},
{"name":"settlementPoint"},{"name":"settlementPointType"},{"name":"settlementPointPrice"},{"name":"DSTFlag"}]`

func pageBody(page, total int, price float64) string {
	return fmt.Sprintf(`{"_meta":{"totalRecords":%d,"totalPages":%d,"currentPage":%d},"fields":%s,"data":[["2026-02-10",%d,1,"HB_WEST","HU",%g,false]]}`,
		total, total, page, fieldsJSON, page, price)
}

// upstream serves the token endpoint at /token and the data endpoint
// everywhere else.
type upstream struct {
	tokenCalls atomic.Int32
	dataCalls  atomic.Int32
	data       http.HandlerFunc
}

func (u *upstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/token" {
		u.tokenCalls.Add(1)
		_, _ = w.Write([]byte(`{"id_token":"tok"}`))
		return
	}
	u.dataCalls.Add(1)
	u.data(w, r)
}

func newTestClient(t *testing.T, u *upstream, opts ...ClientOption) *Client {
	t.Helper()
	srv := httptest.NewServer(u)
	t.Cleanup(srv.Close)

	s := testSettings(srv.URL+"/token", srv.URL)
	httpc := testFetchClient()
	return NewClient(httpc, NewTokenCache(httpc, s), s, opts...)
}

func TestFetchPageSendsHeadersAndQuery(t *testing.T) {
	var got *http.Request
	u := &upstream{data: func(w http.ResponseWriter, r *http.Request) {
		got = r.Clone(context.Background())
		_, _ = w.Write([]byte(pageBody(2, 2, 42.12)))
	}}
	c := newTestClient(t, u)

	page, err := c.FetchPage(context.Background(), rangeQuery, 2)
	require.NoError(t, err)
	require.Len(t, page.Records, 1)
	assert.Equal(t, 42.12, page.Records[0].Price)

	require.NotNil(t, got)
	assert.Equal(t, "/"+DefaultProductPath, got.URL.Path)
	assert.Equal(t, "sub-key", got.Header.Get("Ocp-Apim-Subscription-Key"))
	assert.Equal(t, "Bearer tok", got.Header.Get("Authorization"))
	q := got.URL.Query()
	assert.Equal(t, "2026-02-01", q.Get("deliveryDateFrom"))
	assert.Equal(t, "2026-02-10", q.Get("deliveryDateTo"))
	assert.Equal(t, "HB_WEST", q.Get("settlementPoint"))
	assert.Equal(t, "2", q.Get("page"))
}

func TestFetchPageRetriesRateLimit(t *testing.T) {
	var n atomic.Int32
	u := &upstream{data: func(w http.ResponseWriter, r *http.Request) {
		if n.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{ "message": "Rate limit is exceeded. Try again in 1 seconds." }`))
			return
		}
		_, _ = w.Write([]byte(pageBody(1, 1, 42.12)))
	}}
	c := newTestClient(t, u)

	page, err := c.FetchPage(context.Background(), rangeQuery, 1)
	require.NoError(t, err)
	assert.Len(t, page.Records, 1)
	assert.EqualValues(t, 1, u.tokenCalls.Load())
	assert.EqualValues(t, 2, u.dataCalls.Load())
}

func TestFetchPageBadRequestNotRetried(t *testing.T) {
	u := &upstream{data: func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("bad request"))
	}}
	c := newTestClient(t, u)

	_, err := c.FetchPage(context.Background(), rangeQuery, 1)
	require.Error(t, err)
	assert.Regexp(t, `(?i)ERCOT data failed: 400`, err.Error())
	assert.EqualValues(t, 1, u.dataCalls.Load())
}

func TestFetchPageMissingSubscriptionKey(t *testing.T) {
	u := &upstream{data: func(w http.ResponseWriter, r *http.Request) {}}
	srv := httptest.NewServer(u)
	defer srv.Close()

	s := testSettings(srv.URL+"/token", srv.URL)
	s.SubscriptionKey = ""
	httpc := testFetchClient()
	c := NewClient(httpc, NewTokenCache(httpc, s), s)

	_, err := c.FetchPage(context.Background(), rangeQuery, 1)
	assert.ErrorIs(t, err, ErrConfiguration)
	assert.EqualValues(t, 0, u.tokenCalls.Load())
}

func TestClientFetchRangeEndToEnd(t *testing.T) {
	u := &upstream{data: func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		_, _ = w.Write([]byte(pageBody(page, 3, float64(page*10))))
	}}
	c := newTestClient(t, u)

	recs, err := c.FetchRange(context.Background(), rangeQuery)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	for i, r := range recs {
		assert.Equal(t, i+1, r.DeliveryHour)
		assert.Equal(t, float64((i+1)*10), r.Price)
	}
	assert.EqualValues(t, 1, u.tokenCalls.Load())
}

func TestFetchPageUsesCache(t *testing.T) {
	u := &upstream{data: func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(pageBody(1, 1, 5)))
	}}
	cache := NewMemoryPageCache(time.Hour, 0)
	defer cache.Close()
	c := newTestClient(t, u, WithPageCache(cache))

	for i := 0; i < 3; i++ {
		page, err := c.FetchPage(context.Background(), rangeQuery, 1)
		require.NoError(t, err)
		assert.Len(t, page.Records, 1)
	}
	assert.EqualValues(t, 1, u.dataCalls.Load())
	assert.Equal(t, 1, cache.Len())
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	u := &upstream{data: func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}}
	c := newTestClient(t, u, WithBreaker(BreakerSettings{ConsecutiveFailures: 2, OpenTimeout: time.Minute}))
	c.settings.MaxRetries = 1

	for i := 0; i < 2; i++ {
		_, err := c.FetchPage(context.Background(), rangeQuery, 1)
		var se *fetch.StatusError
		require.ErrorAs(t, err, &se)
	}
	callsBefore := u.dataCalls.Load()

	_, err := c.FetchPage(context.Background(), rangeQuery, 1)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.True(t, IsRateLimited(err))
	assert.Equal(t, callsBefore, u.dataCalls.Load())
}

func TestBreakerIgnoresClientErrors(t *testing.T) {
	u := &upstream{data: func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}}
	c := newTestClient(t, u, WithBreaker(BreakerSettings{ConsecutiveFailures: 1, OpenTimeout: time.Minute}))

	for i := 0; i < 3; i++ {
		_, err := c.FetchPage(context.Background(), rangeQuery, 1)
		assert.NotErrorIs(t, err, ErrCircuitOpen)
	}
	assert.EqualValues(t, 3, u.dataCalls.Load())
}

func TestCountsAsHealthy(t *testing.T) {
	assert.True(t, countsAsHealthy(nil))
	assert.True(t, countsAsHealthy(&ConfigError{Setting: "x"}))
	assert.True(t, countsAsHealthy(&fetch.TransportError{Canceled: true}))
	assert.True(t, countsAsHealthy(&fetch.StatusError{StatusCode: 400}))
	assert.False(t, countsAsHealthy(&fetch.StatusError{StatusCode: 429}))
	assert.False(t, countsAsHealthy(&fetch.TransportError{Timeout: true}))
	assert.False(t, countsAsHealthy(&SchemaError{Reason: "x"}))
}

var _ PageFetcher = (*Client)(nil)
