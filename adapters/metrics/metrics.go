// Package metrics provides Prometheus metrics collection for the admin.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "watchdog_admin"

// Collector holds all Prometheus metrics for the admin.
// Every method is safe to call on a nil *Collector.
type Collector struct {
	// Remote API metrics
	RemoteRequests *prometheus.CounterVec
	RemoteDuration *prometheus.HistogramVec
	TokenRefreshes *prometheus.CounterVec

	// Controller metrics
	SearchLookups  *prometheus.CounterVec
	ListLoads      *prometheus.CounterVec
	DeleteFailures *prometheus.CounterVec

	// Web metrics
	HTTPRequests   *prometheus.CounterVec
	HTTPDuration   *prometheus.HistogramVec
	ActiveSessions prometheus.Gauge

	// Config metrics
	ConfigReloads      prometheus.Counter
	ConfigReloadErrors prometheus.Counter
	ConfigLastReload   prometheus.Gauge
}

// New creates a collector registered with the default registry.
func New() *Collector {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a new metrics collector with a custom registry.
// Useful for testing to avoid global state.
func NewWithRegistry(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		RemoteRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "remote_requests_total",
				Help:      "Requests sent to the Feed Watchdog API",
			},
			[]string{"resource", "method", "status"},
		),
		RemoteDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "remote_request_duration_seconds",
				Help:      "Feed Watchdog API request duration in seconds",
				Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"resource", "method"},
		),
		TokenRefreshes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "token_refreshes_total",
				Help:      "Access token refresh attempts by result",
			},
			[]string{"result"},
		),
		SearchLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "search_lookups_total",
				Help:      "Autocomplete lookups by field and cache result",
			},
			[]string{"field", "result"},
		),
		ListLoads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "list_loads_total",
				Help:      "List fetches by resource and outcome",
			},
			[]string{"resource", "outcome"},
		),
		DeleteFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "delete_failures_total",
				Help:      "Delete requests that failed and were logged",
			},
			[]string{"resource"},
		),
		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Admin UI requests served",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Admin UI request duration in seconds",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"route"},
		),
		ActiveSessions: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_sessions",
				Help:      "Browser sessions currently held in memory",
			},
		),
		ConfigReloads: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "config_reloads_total",
				Help:      "Total number of successful config reloads",
			},
		),
		ConfigReloadErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "config_reload_errors_total",
				Help:      "Total number of config reload errors",
			},
		),
		ConfigLastReload: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "config_last_reload_timestamp",
				Help:      "Unix timestamp of last successful config reload",
			},
		),
	}
}

// StatusClass groups an HTTP status into "2xx", "4xx" and so on.
// Status 0 means no response was received.
func StatusClass(status int) string {
	if status <= 0 {
		return "none"
	}
	return strconv.Itoa(status/100) + "xx"
}

// ObserveRemote records one API call.
func (c *Collector) ObserveRemote(resource, method string, status int, d time.Duration) {
	if c == nil {
		return
	}
	c.RemoteRequests.WithLabelValues(resource, method, StatusClass(status)).Inc()
	c.RemoteDuration.WithLabelValues(resource, method).Observe(d.Seconds())
}

// ObserveRefresh records a token refresh attempt.
func (c *Collector) ObserveRefresh(ok bool) {
	if c == nil {
		return
	}
	result := "success"
	if !ok {
		result = "failure"
	}
	c.TokenRefreshes.WithLabelValues(result).Inc()
}

// ObserveSearch records an autocomplete lookup. result is "hit", "miss" or
// "superseded".
func (c *Collector) ObserveSearch(field, result string) {
	if c == nil {
		return
	}
	c.SearchLookups.WithLabelValues(field, result).Inc()
}

// ObserveList records a list fetch. outcome is "loaded", "error" or "stale".
func (c *Collector) ObserveList(resource, outcome string) {
	if c == nil {
		return
	}
	c.ListLoads.WithLabelValues(resource, outcome).Inc()
}

// ObserveDeleteFailure records a swallowed delete failure.
func (c *Collector) ObserveDeleteFailure(resource string) {
	if c == nil {
		return
	}
	c.DeleteFailures.WithLabelValues(resource).Inc()
}

// ObserveHTTP records one admin UI request.
func (c *Collector) ObserveHTTP(method, route string, status int, d time.Duration) {
	if c == nil {
		return
	}
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.HTTPDuration.WithLabelValues(route).Observe(d.Seconds())
}

// SetSessions records the number of live browser sessions.
func (c *Collector) SetSessions(n int) {
	if c == nil {
		return
	}
	c.ActiveSessions.Set(float64(n))
}

// ObserveReload records a config reload attempt.
func (c *Collector) ObserveReload(err error, at time.Time) {
	if c == nil {
		return
	}
	if err != nil {
		c.ConfigReloadErrors.Inc()
		return
	}
	c.ConfigReloads.Inc()
	c.ConfigLastReload.Set(float64(at.Unix()))
}
