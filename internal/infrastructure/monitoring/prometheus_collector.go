package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"stagepass/internal/core/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type PrometheusCollector struct {
	registry *prometheus.Registry

	credentialsIssued *prometheus.CounterVec
	viewerJoins       *prometheus.CounterVec
	accessDenied      *prometheus.CounterVec

	streamViewerCount *prometheus.GaugeVec

	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// NewPrometheusCollector registers the service metrics on a private registry
// together with the Go runtime and process collectors.
func NewPrometheusCollector() *PrometheusCollector {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &PrometheusCollector{
		registry: registry,

		credentialsIssued: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "stagepass_credentials_issued_total",
			Help: "Total number of RTC credentials issued",
		}, []string{"role"}),

		viewerJoins: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "stagepass_viewer_joins_total",
			Help: "Total number of join attempts by outcome",
		}, []string{"result"}),

		accessDenied: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "stagepass_access_denied_total",
			Help: "Total number of requests rejected by the authorization gate",
		}, []string{"operation"}),

		streamViewerCount: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "stagepass_stream_viewer_count",
			Help: "Last observed viewer count of each stream",
		}, []string{"stream_id"}),

		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "stagepass_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),

		httpRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "stagepass_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2},
		}, []string{"method", "route"}),
	}
}

func (p *PrometheusCollector) RecordCredentialIssued(role domain.Role) {
	p.credentialsIssued.WithLabelValues(role.String()).Inc()
}

func (p *PrometheusCollector) RecordViewerJoin(streamID domain.StreamID, result string, viewerCount int) {
	p.viewerJoins.WithLabelValues(result).Inc()
	if viewerCount > 0 {
		p.streamViewerCount.WithLabelValues(string(streamID)).Set(float64(viewerCount))
	}
}

func (p *PrometheusCollector) RecordAccessDenied(operation string) {
	p.accessDenied.WithLabelValues(operation).Inc()
}

// RecordStreamEnded drops the per-stream series of a finished stream.
func (p *PrometheusCollector) RecordStreamEnded(streamID domain.StreamID) {
	p.streamViewerCount.DeleteLabelValues(string(streamID))
}

func (p *PrometheusCollector) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	p.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	p.httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (p *PrometheusCollector) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}

func (p *PrometheusCollector) Registry() *prometheus.Registry {
	return p.registry
}
