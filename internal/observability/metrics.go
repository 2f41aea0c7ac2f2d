package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// hazard watcher.
type Metrics struct {
	TicksTotal   prometheus.Counter
	TicksSkipped prometheus.Counter

	// Feed client metrics.
	FeedFetches      prometheus.Counter
	FeedFetchSkipped prometheus.Counter
	FeedFetchErrors  prometheus.Counter
	HazardsActive    prometheus.Gauge

	// Alert engine metrics.
	EvaluationDuration prometheus.Histogram
	AlertsEmitted      *prometheus.CounterVec // labels: type, severity
	AlertsDismissed    prometheus.Counter
	EngineReady        prometheus.Gauge

	// Alert sink metrics.
	AlertsPublished    prometheus.Counter
	AlertPublishErrors prometheus.Counter
}

// NewMetrics creates and registers all watcher metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.TicksTotal,
		m.TicksSkipped,
		m.FeedFetches,
		m.FeedFetchSkipped,
		m.FeedFetchErrors,
		m.HazardsActive,
		m.EvaluationDuration,
		m.AlertsEmitted,
		m.AlertsDismissed,
		m.EngineReady,
		m.AlertsPublished,
		m.AlertPublishErrors,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, so
// tests can construct engines freely without "already registered" panics.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		TicksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hazard_watch",
			Name:      "ticks_total",
			Help:      "Total evaluation ticks started.",
		}),
		TicksSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hazard_watch",
			Name:      "ticks_skipped_total",
			Help:      "Ticks skipped because the previous tick was still running.",
		}),
		FeedFetches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hazard_watch",
			Name:      "feed_fetches_total",
			Help:      "Full hazard set fetches from the feed.",
		}),
		FeedFetchSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hazard_watch",
			Name:      "feed_fetches_skipped_total",
			Help:      "Full fetches skipped because the version token was unchanged.",
		}),
		FeedFetchErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hazard_watch",
			Name:      "feed_fetch_errors_total",
			Help:      "Feed requests that failed after exhausting the retry budget.",
		}),
		HazardsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hazard_watch",
			Name:      "hazards_active",
			Help:      "Hazard events in the most recently fetched set.",
		}),
		EvaluationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "hazard_watch",
			Name:      "evaluation_duration_seconds",
			Help:      "Duration of one alert engine evaluation.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}),
		AlertsEmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hazard_watch",
			Name:      "alerts_emitted_total",
			Help:      "Alerts emitted by type and severity.",
		}, []string{"type", "severity"}),
		AlertsDismissed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hazard_watch",
			Name:      "alerts_dismissed_total",
			Help:      "Alerts dismissed explicitly by the consumer.",
		}),
		EngineReady: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hazard_watch",
			Name:      "engine_ready",
			Help:      "1 once the alert engine has seeded and settled, 0 before.",
		}),
		AlertsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hazard_watch",
			Name:      "alerts_published_total",
			Help:      "Alerts published to the external sink.",
		}),
		AlertPublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hazard_watch",
			Name:      "alert_publish_errors_total",
			Help:      "Failures publishing alerts to the external sink.",
		}),
	}
}
