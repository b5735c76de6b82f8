// Package metrics holds the Prometheus collectors for the hub. Counters are
// package-level so the ingest, dispatch, and liveness paths can record
// without threading a registry through every constructor.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "framehub_http_requests_total",
			Help: "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "framehub_http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	StatusReportsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "framehub_status_reports_total",
			Help: "Status reports received from devices, by outcome.",
		},
		[]string{"result"},
	)

	DispatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "framehub_dispatches_total",
			Help: "Commands dispatched to devices, by command and outcome.",
		},
		[]string{"command", "result"},
	)

	DispatchDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "framehub_dispatch_duration_seconds",
			Help:    "Duration of command dispatches including retries.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"command"},
	)

	DevicesOnline = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "framehub_devices_online",
			Help: "Number of devices currently considered online.",
		},
	)

	ConnectivityTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "framehub_connectivity_transitions_total",
			Help: "Connectivity state transitions, by resulting state.",
		},
		[]string{"state"},
	)

	EventsPublishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "framehub_events_published_total",
			Help: "Events published to the stream, by event type.",
		},
		[]string{"type"},
	)

	StreamClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "framehub_stream_clients",
			Help: "Connected device-view stream clients.",
		},
	)
)

// MustRegister registers every collector with the default registry. Call it
// once at startup; a second call panics on duplicate registration.
func MustRegister() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDurationSeconds,
		StatusReportsTotal,
		DispatchesTotal,
		DispatchDurationSeconds,
		DevicesOnline,
		ConnectivityTransitionsTotal,
		EventsPublishedTotal,
		StreamClients,
	)
}

// Outcome labels shared by the ingest and dispatch counters.
const (
	ResultAccepted      = "accepted"
	ResultStale         = "stale"
	ResultUnknownDevice = "unknown_device"
	ResultMalformed     = "malformed"
	ResultSuccess       = "success"
	ResultUnreachable   = "unreachable"
	ResultTimeout       = "timeout"
	ResultBusy          = "busy"
	ResultError         = "error"
)
