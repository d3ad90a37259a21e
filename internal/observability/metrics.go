package observability

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yungbote/studybuddy-backend/internal/platform/envutil"
	"github.com/yungbote/studybuddy-backend/internal/platform/logger"
)

// Metrics holds the Prometheus collectors for the API, the LLM proxy and the
// background sweeper. Each instance owns its registry.
type Metrics struct {
	reg *prometheus.Registry

	apiRequests *prometheus.CounterVec
	apiLatency  *prometheus.HistogramVec
	apiInflight prometheus.Gauge

	llmRequests *prometheus.CounterVec
	llmLatency  *prometheus.HistogramVec
	llmTokens   *prometheus.CounterVec

	sweepRuns     *prometheus.CounterVec
	sweepAccounts *prometheus.CounterVec
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool {
	return envutil.Bool("METRICS_ENABLED", false)
}

// Current returns the process registry, or nil when metrics are disabled.
// Every method on a nil *Metrics is a no-op.
func Current() *Metrics {
	return instance
}

func Init(log *logger.Logger) *Metrics {
	if !Enabled() {
		return nil
	}
	initOnce.Do(func() {
		instance = NewMetrics()
		if log != nil {
			log.Info("metrics enabled")
		}
	})
	return instance
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		reg: reg,
		apiRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sb_api_requests_total",
			Help: "Total API requests by method/route/status.",
		}, []string{"method", "route", "status"}),
		apiLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sb_api_request_duration_seconds",
			Help:    "API request latency in seconds by method/route/status.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 120},
		}, []string{"method", "route", "status"}),
		apiInflight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "sb_api_inflight_requests",
			Help: "In-flight API requests.",
		}),
		llmRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sb_llm_requests_total",
			Help: "LLM requests by model/status.",
		}, []string{"model", "status"}),
		llmLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sb_llm_request_duration_seconds",
			Help:    "LLM request latency in seconds by model/status.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		}, []string{"model", "status"}),
		llmTokens: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sb_llm_tokens_total",
			Help: "LLM tokens by model/kind.",
		}, []string{"model", "kind"}),
		sweepRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sb_sweep_runs_total",
			Help: "Unverified-account sweep runs by outcome.",
		}, []string{"outcome"}),
		sweepAccounts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sb_sweep_accounts_total",
			Help: "Accounts touched by the sweeper by action.",
		}, []string{"action"}),
	}
}

// Handler serves the registry in the Prometheus exposition format. A nil
// *Metrics answers 503.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

func (m *Metrics) StartServer(ctx context.Context, log *logger.Logger, addr string) {
	if m == nil {
		return
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = srv.Shutdown(shutdownCtx)
		cancel()
	}()
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if log != nil {
				log.Error("metrics server failed", "error", err, "addr", addr)
			}
		}
	}()
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	if status == "" {
		status = "0"
	}
	m.apiRequests.WithLabelValues(method, route, status).Inc()
	m.apiLatency.WithLabelValues(method, route, status).Observe(dur.Seconds())
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

// ObserveLLMRequest records one completion call. status is "ok", "offline"
// or "error".
func (m *Metrics) ObserveLLMRequest(model, status string, dur time.Duration, inputTokens, outputTokens int) {
	if m == nil {
		return
	}
	model = strings.TrimSpace(model)
	if model == "" {
		model = "unknown"
	}
	if status == "" {
		status = "unknown"
	}
	m.llmRequests.WithLabelValues(model, status).Inc()
	if dur > 0 {
		m.llmLatency.WithLabelValues(model, status).Observe(dur.Seconds())
	}
	if inputTokens > 0 {
		m.llmTokens.WithLabelValues(model, "input").Add(float64(inputTokens))
	}
	if outputTokens > 0 {
		m.llmTokens.WithLabelValues(model, "output").Add(float64(outputTokens))
	}
}

// ObserveSweep records one sweeper pass.
func (m *Metrics) ObserveSweep(outcome string, reminded, deleted, failed int64) {
	if m == nil {
		return
	}
	m.sweepRuns.WithLabelValues(outcome).Inc()
	if reminded > 0 {
		m.sweepAccounts.WithLabelValues("reminded").Add(float64(reminded))
	}
	if deleted > 0 {
		m.sweepAccounts.WithLabelValues("deleted").Add(float64(deleted))
	}
	if failed > 0 {
		m.sweepAccounts.WithLabelValues("failed").Add(float64(failed))
	}
}
