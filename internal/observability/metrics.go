package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the collectors of one process. A nil *Metrics records nothing.
type Metrics struct {
	registry       *prometheus.Registry
	searches       *prometheus.CounterVec
	searchDuration prometheus.Histogram
	priceChecks    *prometheus.CounterVec
	notifications  *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		searches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fashionfinder_adapter_searches_total",
				Help: "Adapter searches by shop and outcome",
			},
			[]string{"shop", "outcome"},
		),
		searchDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "fashionfinder_search_duration_seconds",
				Help:    "Duration of a full fan-out search",
				Buckets: prometheus.ExponentialBuckets(0.25, 2, 8),
			},
		),
		priceChecks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fashionfinder_price_checks_total",
				Help: "Watch entry price checks by outcome",
			},
			[]string{"outcome"},
		),
		notifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fashionfinder_notifications_total",
				Help: "Notification deliveries by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
	}
	m.registry.MustRegister(m.searches, m.searchDuration, m.priceChecks, m.notifications)
	return m
}

func (m *Metrics) AdapterSearch(shop string, ok bool) {
	if m == nil {
		return
	}
	m.searches.WithLabelValues(shop, outcome(ok)).Inc()
}

func (m *Metrics) SearchDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.searchDuration.Observe(d.Seconds())
}

func (m *Metrics) PriceCheck(ok bool) {
	if m == nil {
		return
	}
	m.priceChecks.WithLabelValues(outcome(ok)).Inc()
}

func (m *Metrics) Notification(kind string, ok bool) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(kind, outcome(ok)).Inc()
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the collectors in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func outcome(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}
