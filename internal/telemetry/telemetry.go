// Package telemetry exposes the /metrics endpoint named by
// design/044_CDU_Gateway_Telemetry.md §4.N: prometheus.CounterVec/HistogramVec
// registered against a private registry, served through promhttp.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector the acquisition engine, HID transport, and
// Redfish router observe into.
type Metrics struct {
	registry *prometheus.Registry

	acquisitionCycleDuration *prometheus.HistogramVec
	hidRequests              *prometheus.CounterVec
	hidRequestDuration       *prometheus.HistogramVec
	redfishRequests          *prometheus.CounterVec
}

// New builds a Metrics bound to a fresh, private registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		acquisitionCycleDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "cdu",
			Subsystem: "acquisition",
			Name:      "cycle_duration_seconds",
			Help:      "Duration of one acquisition pipeline cycle.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2},
		}, []string{"pipeline"}),
		hidRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cdu",
			Subsystem: "hid",
			Name:      "requests_total",
			Help:      "Total HID request/response round trips by port and result.",
		}, []string{"port", "result"}),
		hidRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "cdu",
			Subsystem: "hid",
			Name:      "request_duration_seconds",
			Help:      "Duration of one HID request/response round trip.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5},
		}, []string{"port"}),
		redfishRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cdu",
			Subsystem: "redfish",
			Name:      "requests_total",
			Help:      "Total Redfish HTTP requests by method, resource, and status.",
		}, []string{"method", "resource", "status"}),
	}

	registry.MustRegister(
		m.acquisitionCycleDuration,
		m.hidRequests,
		m.hidRequestDuration,
		m.redfishRequests,
	)
	return m
}

// Handler returns the HTTP handler serving the Prometheus text exposition
// format against m's private registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveAcquisitionCycle records one completed pipeline iteration.
func (m *Metrics) ObserveAcquisitionCycle(pipeline string, d time.Duration) {
	m.acquisitionCycleDuration.WithLabelValues(pipeline).Observe(d.Seconds())
}

// ObserveHIDRequest records one HID round trip's outcome and latency.
func (m *Metrics) ObserveHIDRequest(port string, ok bool, d time.Duration) {
	result := "ok"
	if !ok {
		result = "error"
	}
	m.hidRequests.WithLabelValues(port, result).Inc()
	m.hidRequestDuration.WithLabelValues(port).Observe(d.Seconds())
}

// ObserveRedfishRequest records one completed Redfish HTTP request.
func (m *Metrics) ObserveRedfishRequest(method, resource string, status int) {
	m.redfishRequests.WithLabelValues(method, resource, statusLabel(status)).Inc()
}

func statusLabel(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "2xx"
	case status >= 300 && status < 400:
		return "3xx"
	case status >= 400 && status < 500:
		return "4xx"
	case status >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
