package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/coco-ai/tool-service/pkg/tool"
)

// Metrics holds all Prometheus metrics for the service
type Metrics struct {
	registry *prometheus.Registry

	// Tool metrics
	ToolExecutionsTotal   *prometheus.CounterVec
	ToolExecutionDuration *prometheus.HistogramVec

	// Batch metrics
	BatchRequestsTotal prometheus.Counter
	BatchItemsTotal    *prometheus.CounterVec

	// HTTP metrics
	HTTPRequestsTotal *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		ToolExecutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tool_executions_total",
				Help: "Total number of tool executions",
			},
			[]string{"tool_name", "status"},
		),
		ToolExecutionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tool_execution_duration_seconds",
				Help:    "Duration of tool executions in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"tool_name"},
		),

		BatchRequestsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "batch_requests_total",
				Help: "Total number of batch dispatch requests",
			},
		),
		BatchItemsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "batch_items_total",
				Help: "Total number of batch items by outcome",
			},
			[]string{"status"},
		),

		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"path", "method", "status"},
		),
	}

	m.registerMetrics()

	return m
}

// registerMetrics registers all metrics with the registry
func (m *Metrics) registerMetrics() {
	m.registry.MustRegister(m.ToolExecutionsTotal)
	m.registry.MustRegister(m.ToolExecutionDuration)
	m.registry.MustRegister(m.BatchRequestsTotal)
	m.registry.MustRegister(m.BatchItemsTotal)
	m.registry.MustRegister(m.HTTPRequestsTotal)
}

// ToolExecuted records one tool execution. Implements tool.Observer.
func (m *Metrics) ToolExecuted(rec tool.Execution) {
	status := "success"
	if !rec.Success {
		status = "error"
	}
	m.ToolExecutionsTotal.WithLabelValues(rec.ToolName, status).Inc()
	m.ToolExecutionDuration.WithLabelValues(rec.ToolName).Observe(rec.ExecutionTime)
}

// RecordBatch records a batch dispatch and the outcome of each item.
func (m *Metrics) RecordBatch(results []tool.BatchItem) {
	m.BatchRequestsTotal.Inc()
	for _, item := range results {
		switch {
		case item.Success:
			m.BatchItemsTotal.WithLabelValues("success").Inc()
		case item.ExecutionTime == nil:
			m.BatchItemsTotal.WithLabelValues("not_found").Inc()
		default:
			m.BatchItemsTotal.WithLabelValues("error").Inc()
		}
	}
}

// RecordHTTPRequest records a served HTTP request.
func (m *Metrics) RecordHTTPRequest(path, method string, status int) {
	m.HTTPRequestsTotal.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
}

// Handler returns an HTTP handler for the metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Registry returns the Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
