package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for the service
type Metrics struct {
	ScansTotal         *prometheus.CounterVec
	ScanRecords        prometheus.Histogram
	JobsStarted        *prometheus.CounterVec
	JobsFinished       *prometheus.CounterVec
	JobsRunning        prometheus.Gauge
	LoginsTotal        *prometheus.CounterVec
	EventPublishErrors prometheus.Counter
	registry           *prometheus.Registry
}

// NewMetrics creates a Metrics instance on its own registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		ScansTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wisafe_scans_total",
			Help: "Total number of scans served, by audience",
		}, []string{"audience"}),
		ScanRecords: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "wisafe_scan_records",
			Help:    "Number of records returned per scan",
			Buckets: prometheus.LinearBuckets(0, 5, 10),
		}),
		JobsStarted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wisafe_jobs_started_total",
			Help: "Total number of jobs started, by type",
		}, []string{"type"}),
		JobsFinished: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wisafe_jobs_finished_total",
			Help: "Total number of jobs finished, by terminal status",
		}, []string{"status"}),
		JobsRunning: factory.NewGauge(prometheus.GaugeOpts{
			Name: "wisafe_jobs_running",
			Help: "Number of jobs currently running",
		}),
		LoginsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wisafe_logins_total",
			Help: "Total number of login attempts, by result",
		}, []string{"result"}),
		EventPublishErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "wisafe_event_publish_errors_total",
			Help: "Total number of job event publish errors",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveScan records a served scan
func (m *Metrics) ObserveScan(audience string, records int) {
	if m == nil {
		return
	}
	m.ScansTotal.WithLabelValues(audience).Inc()
	m.ScanRecords.Observe(float64(records))
}

// JobStarted records a job entering the running state
func (m *Metrics) JobStarted(jobType string) {
	if m == nil {
		return
	}
	m.JobsStarted.WithLabelValues(jobType).Inc()
	m.JobsRunning.Inc()
}

// JobFinished records a job reaching status
func (m *Metrics) JobFinished(status string) {
	if m == nil {
		return
	}
	m.JobsFinished.WithLabelValues(status).Inc()
	m.JobsRunning.Dec()
}

// Login records a login attempt
func (m *Metrics) Login(success bool) {
	if m == nil {
		return
	}
	result := "failure"
	if success {
		result = "success"
	}
	m.LoginsTotal.WithLabelValues(result).Inc()
}

// IncrementEventPublishErrors increments the publish error counter
func (m *Metrics) IncrementEventPublishErrors() {
	if m == nil {
		return
	}
	m.EventPublishErrors.Inc()
}
