package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"spp-forecast/internal/ercot"
	"spp-forecast/internal/fetch"
	"spp-forecast/internal/service"
)

var (
	_ fetch.Observer           = (*Recorder)(nil)
	_ ercot.TokenObserver      = (*Recorder)(nil)
	_ service.PipelineObserver = (*Recorder)(nil)
)

func TestRecorderCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.ObserveAttempt("ERCOT data", fetch.OutcomeRetryable, 20*time.Millisecond)
	r.ObserveAttempt("ERCOT data", fetch.OutcomeSuccess, 10*time.Millisecond)
	r.ObserveRetry("ERCOT data", 400*time.Millisecond)
	r.ObserveTokenRefresh("success", time.Second)
	r.ObservePipeline("forecast", "success", 2*time.Second)
	r.ObserveHTTP("/api/v1/forecast", "200", 50*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.attempts.WithLabelValues("ERCOT data", fetch.OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.retries.WithLabelValues("ERCOT data")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.tokenRefresh.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.httpRequests.WithLabelValues("/api/v1/forecast", "200")))
	assert.Equal(t, 1, testutil.CollectAndCount(r.pipelineTime))

	n, err := testutil.GatherAndCount(reg)
	assert.NoError(t, err)
	assert.Greater(t, n, 0)
}
