// Package metrics exposes service counters in Prometheus format.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mr1hm/sentinel-sea/internal/models"
)

const namespace = "sentinel_sea"

type Metrics struct {
	registry *prometheus.Registry

	detectionsIngested *prometheus.CounterVec
	pollFailures       *prometheus.CounterVec
	reviews            *prometheus.CounterVec
	reportsGenerated   *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
}

// New registers the service collectors, plus the Go runtime and process
// collectors, on registry.
func New(registry *prometheus.Registry) (*Metrics, error) {
	m := &Metrics{
		registry: registry,
		detectionsIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "detections_ingested_total",
			Help:      "Detections ingested, by source and AIS status.",
		}, []string{"source", "ais"}),
		pollFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_failures_total",
			Help:      "Failed ingestion polls, by source.",
		}, []string{"source"}),
		reviews: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reviews_total",
			Help:      "Analyst actions applied to detections, by action.",
		}, []string{"action"}),
		reportsGenerated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_generated_total",
			Help:      "Surveillance reports generated, by type.",
		}, []string{"type"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Time taken for HTTP requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path", "status_code"}),
	}

	for _, c := range []prometheus.Collector{
		m.detectionsIngested,
		m.pollFailures,
		m.reviews,
		m.reportsGenerated,
		m.httpDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// TrackSubscribers exports the live stream subscriber count.
func (m *Metrics) TrackSubscribers(count func() int) error {
	return m.registry.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "stream_subscribers",
		Help:      "Clients currently subscribed to the detection stream.",
	}, func() float64 { return float64(count()) }))
}

func (m *Metrics) DetectionIngested(source string, ais models.AISStatus) {
	m.detectionsIngested.WithLabelValues(source, string(ais)).Inc()
}

func (m *Metrics) PollFailed(source string) {
	m.pollFailures.WithLabelValues(source).Inc()
}

func (m *Metrics) ReviewRecorded(action models.ActionType, n int) {
	m.reviews.WithLabelValues(string(action)).Add(float64(n))
}

func (m *Metrics) ReportGenerated(t models.ReportType) {
	m.reportsGenerated.WithLabelValues(string(t)).Inc()
}

// Middleware times every request by route template.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.httpDuration.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
