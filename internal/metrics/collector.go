package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector exposes runtime metrics in Prometheus format. Each Collector
// owns its registry so several can coexist in tests.
type Collector struct {
	registry *prometheus.Registry

	generationsTotal   *prometheus.CounterVec
	filledSlots        prometheus.Histogram
	relaxationsTotal   *prometheus.CounterVec
	fallbackPicksTotal prometheus.Counter
	generationDuration prometheus.Histogram
	llmRequestsTotal   *prometheus.CounterVec
	llmTokensTotal     *prometheus.CounterVec
	httpRequestsTotal  *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
}

// NewCollector creates a new Collector with its own registry.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		generationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mealmapp_menu_generations_total",
				Help: "Total number of weekly menu generations by outcome",
			},
			[]string{"outcome"},
		),
		filledSlots: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "mealmapp_menu_filled_ratio",
			Help:    "Share of slots filled per generated menu",
			Buckets: []float64{0.25, 0.5, 0.75, 0.9, 1},
		}),
		relaxationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mealmapp_novelty_stage_picks_total",
				Help: "Slots filled per novelty stage",
			},
			[]string{"stage"},
		),
		fallbackPicksTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "mealmapp_fallback_picks_total",
			Help: "Slots filled by random last-resort picks",
		}),
		generationDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "mealmapp_menu_generation_duration_seconds",
			Help:    "Menu generation duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
		}),
		llmRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mealmapp_llm_requests_total",
				Help: "Total number of LLM requests by agent and status",
			},
			[]string{"agent", "status"},
		),
		llmTokensTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mealmapp_llm_tokens_total",
				Help: "Tokens consumed by LLM requests",
			},
			[]string{"agent", "kind"},
		),
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		httpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}
}

// ObserveGeneration records one menu generation.
func (c *Collector) ObserveGeneration(m GenerationMetric) {
	c.generationsTotal.WithLabelValues(m.Outcome).Inc()
	if m.TotalSlots > 0 {
		c.filledSlots.Observe(float64(m.FilledSlots) / float64(m.TotalSlots))
	}
	for stage, n := range m.StageCounts {
		if n > 0 {
			c.relaxationsTotal.WithLabelValues(strconv.Itoa(stage)).Add(float64(n))
		}
	}
	if m.FallbackPicks > 0 {
		c.fallbackPicksTotal.Add(float64(m.FallbackPicks))
	}
	c.generationDuration.Observe((time.Duration(m.LatencyMS) * time.Millisecond).Seconds())
}

// ObserveLLM records one LLM request.
func (c *Collector) ObserveLLM(agent string, m ExecutionMetric, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.llmRequestsTotal.WithLabelValues(agent, status).Inc()
	c.llmTokensTotal.WithLabelValues(agent, "prompt").Add(float64(m.PromptTokens))
	c.llmTokensTotal.WithLabelValues(agent, "completion").Add(float64(m.CompletionTokens))
}

// ObserveHTTP records one HTTP request.
func (c *Collector) ObserveHTTP(method, path string, status int, d time.Duration) {
	c.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	c.httpDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
