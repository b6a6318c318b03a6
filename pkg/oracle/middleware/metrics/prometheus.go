package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusRecorder implements the Recorder interface using Prometheus metrics.
type PrometheusRecorder struct {
	requestsTotal   *prometheus.CounterVec
	tokensTotal     *prometheus.CounterVec
	costsTotal      *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewPrometheusRecorder creates a new Prometheus-based metrics recorder.
// It registers with the default registry, so construct it once per process.
func NewPrometheusRecorder() *PrometheusRecorder {
	return &PrometheusRecorder{
		requestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llm_requests_total",
				Help: "Total number of oracle requests by model, session, stage, and status",
			},
			[]string{"model", "session_id", "stage", "status", "error_type"},
		),
		tokensTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llm_tokens_total",
				Help: "Total number of tokens used in oracle requests",
			},
			[]string{"model", "session_id", "stage", "type"},
		),
		costsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llm_costs_total",
				Help: "Total cost in USD for oracle requests",
			},
			[]string{"model", "session_id", "stage"},
		),
		requestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "llm_request_duration_seconds",
				Help:    "Duration of oracle requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"model", "session_id", "stage"},
		),
	}
}

// ObserveRequest records metrics for a completed oracle request.
func (p *PrometheusRecorder) ObserveRequest(
	model, sessionID, stage string,
	promptTokens, completionTokens int,
	cost float64,
	success bool,
	errorType string,
	duration time.Duration,
) {
	status := "success"
	if !success {
		status = "error"
	}

	p.requestsTotal.WithLabelValues(model, sessionID, stage, status, errorType).Inc()

	// Tokens and costs only accrue on success.
	if success {
		p.tokensTotal.WithLabelValues(model, sessionID, stage, "prompt").Add(float64(promptTokens))
		p.tokensTotal.WithLabelValues(model, sessionID, stage, "completion").Add(float64(completionTokens))
		p.costsTotal.WithLabelValues(model, sessionID, stage).Add(cost)
	}

	p.requestDuration.WithLabelValues(model, sessionID, stage).Observe(duration.Seconds())
}
