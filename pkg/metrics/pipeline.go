package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics records request pipeline activity.
type PipelineMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	refresh  *prometheus.CounterVec
	replays  prometheus.Counter
}

// NewPipelineMetrics registers the pipeline metrics on the provided registerer.
func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	if reg == nil {
		return &PipelineMetrics{}
	}
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "client_requests_total",
		Help: "API requests issued by the client, by method and status class.",
	}, []string{"method", "status_class"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "client_request_duration_seconds",
		Help:    "Duration of API requests in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})
	refresh := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "client_token_refresh_total",
		Help: "Token refresh attempts by outcome.",
	}, []string{"outcome"})
	replays := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "client_request_replays_total",
		Help: "Requests replayed after a token refresh.",
	})
	reg.MustRegister(requests, duration, refresh, replays)
	return &PipelineMetrics{
		requests: requests,
		duration: duration,
		refresh:  refresh,
		replays:  replays,
	}
}

// ObserveRequest records one completed request. Status 0 means no response.
func (p *PipelineMetrics) ObserveRequest(method string, status int, elapsed time.Duration) {
	if p == nil || p.requests == nil {
		return
	}
	p.requests.WithLabelValues(normalizeLabel(method), statusClass(status)).Inc()
	p.duration.WithLabelValues(normalizeLabel(method)).Observe(elapsed.Seconds())
}

// IncRefresh counts one refresh attempt with the given outcome.
func (p *PipelineMetrics) IncRefresh(outcome string) {
	if p == nil || p.refresh == nil {
		return
	}
	p.refresh.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncReplay counts one request replayed after refresh.
func (p *PipelineMetrics) IncReplay() {
	if p == nil || p.replays == nil {
		return
	}
	p.replays.Inc()
}

func statusClass(status int) string {
	if status <= 0 {
		return "none"
	}
	return fmt.Sprintf("%dxx", status/100)
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
