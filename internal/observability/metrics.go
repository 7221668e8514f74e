package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "storyteller"

// Metrics holds every collector the service reports. Collectors live on a
// private registry so tests can create as many instances as they like.
type Metrics struct {
	Registry *prometheus.Registry

	LLMRequests         *prometheus.CounterVec
	LLMRequestDuration  *prometheus.HistogramVec
	Generations         *prometheus.CounterVec
	GenerationAttempts  prometheus.Histogram
	DedupComparisons    *prometheus.CounterVec
	StoreErrors         *prometheus.CounterVec
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics registers all collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		LLMRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_total",
			Help:      "Text generation requests, partitioned by provider, operation and status.",
		}, []string{"provider", "op", "status"}),
		LLMRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_request_duration_seconds",
			Help:      "Latency of text generation requests.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 80},
		}, []string{"provider", "op"}),
		Generations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generations_total",
			Help:      "Finished story generations by outcome.",
		}, []string{"outcome"}),
		GenerationAttempts: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_attempts",
			Help:      "Attempts needed per generation request.",
			Buckets:   []float64{1, 2, 3, 4, 5},
		}),
		DedupComparisons: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dedup_comparisons_total",
			Help:      "Pairwise plot comparisons by result.",
		}, []string{"result"}),
		StoreErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_errors_total",
			Help:      "Story store failures by operation.",
		}, []string{"op"}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status code.",
		}, []string{"route", "method", "code"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}
