package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsExposition(t *testing.T) {
	m := NewMetrics()
	m.ObserveAPI("POST", "/generate_quiz", "200", 300*time.Millisecond)
	m.ObserveAPI("POST", "/generate_quiz", "200", 2*time.Second)
	m.ObserveLLMRequest("qwen", "ok", time.Second, 120, 40)
	m.ObserveSweep("ok", 1, 2, 0)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()
	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := string(raw)

	for _, want := range []string{
		`sb_api_requests_total{method="POST",route="/generate_quiz",status="200"} 2`,
		`sb_api_request_duration_seconds_bucket{method="POST",route="/generate_quiz",status="200",le="0.5"} 1`,
		`sb_api_request_duration_seconds_bucket{method="POST",route="/generate_quiz",status="200",le="+Inf"} 2`,
		`sb_api_request_duration_seconds_count{method="POST",route="/generate_quiz",status="200"} 2`,
		`sb_llm_tokens_total{kind="input",model="qwen"} 120`,
		`sb_sweep_accounts_total{action="deleted"} 2`,
		"# TYPE sb_api_inflight_requests gauge",
		"sb_api_inflight_requests 0",
		"go_goroutines",
	} {
		assert.Contains(t, out, want)
	}
}

func TestMetricsCounters(t *testing.T) {
	m := NewMetrics()
	m.ObserveLLMRequest("", "", 0, 0, 7)
	m.ObserveSweep("error", 3, 0, 1)
	m.ApiInflightInc()
	m.ApiInflightInc()
	m.ApiInflightDec()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.llmRequests.WithLabelValues("unknown", "unknown")))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.llmTokens.WithLabelValues("unknown", "output")))
	assert.Equal(t, 0, testutil.CollectAndCount(m.llmLatency), "zero duration is not observed")
	assert.Equal(t, 3.0, testutil.ToFloat64(m.sweepAccounts.WithLabelValues("reminded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sweepAccounts.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.apiInflight))
}

func TestMetricsInstancesDoNotShareRegistry(t *testing.T) {
	a, b := NewMetrics(), NewMetrics()
	a.ObserveSweep("ok", 0, 0, 0)
	assert.Equal(t, 1.0, testutil.ToFloat64(a.sweepRuns.WithLabelValues("ok")))
	assert.Equal(t, 0, testutil.CollectAndCount(b.sweepRuns))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveAPI("GET", "/", "200", time.Millisecond)
	m.ApiInflightInc()
	m.ApiInflightDec()
	m.ObserveLLMRequest("x", "ok", 0, 0, 0)
	m.ObserveSweep("ok", 0, 0, 0)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.False(t, strings.Contains(rec.Body.String(), "sb_"))
}
