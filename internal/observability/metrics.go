package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for one
// map-generation run.
type Metrics struct {
	RowsRead    prometheus.Counter
	RowsMatched prometheus.Counter

	// Geocoding metrics.
	GeocodeRequests    *prometheus.CounterVec // labels: outcome={success,error,empty}
	GeocodeCache       *prometheus.CounterVec // labels: result={hit,miss}
	GeocodeAPIDuration prometheus.Histogram
	CacheEntries       prometheus.Gauge

	MarkersRendered prometheus.Gauge
	RunDuration     prometheus.Histogram
}

// NewMetrics creates and registers all run metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		RowsRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "incident_map",
			Name:      "rows_read_total",
			Help:      "Total rows read from the incident CSV.",
		}),
		RowsMatched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "incident_map",
			Name:      "rows_matched_total",
			Help:      "Rows surviving the year and property-crime filters.",
		}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "incident_map",
			Name:      "geocode_requests_total",
			Help:      "External geocoding requests by outcome.",
		}, []string{"outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "incident_map",
			Name:      "geocode_cache_total",
			Help:      "Geocode cache lookups by result.",
		}, []string{"result"}),
		GeocodeAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "incident_map",
			Name:      "geocode_api_duration_seconds",
			Help:      "External geocoding request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		CacheEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "incident_map",
			Name:      "geocode_cache_entries",
			Help:      "Entries in the geocode cache after the resolution pass.",
		}),
		MarkersRendered: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "incident_map",
			Name:      "markers_rendered",
			Help:      "Markers written to the map artifact.",
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "incident_map",
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete map-generation run.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		}),
	}

	prometheus.MustRegister(
		m.RowsRead,
		m.RowsMatched,
		m.GeocodeRequests,
		m.GeocodeCache,
		m.GeocodeAPIDuration,
		m.CacheEntries,
		m.MarkersRendered,
		m.RunDuration,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		RowsRead:           prometheus.NewCounter(prometheus.CounterOpts{Namespace: "incident_map", Name: "rows_read_total"}),
		RowsMatched:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: "incident_map", Name: "rows_matched_total"}),
		GeocodeRequests:    prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "incident_map", Name: "geocode_requests_total"}, []string{"outcome"}),
		GeocodeCache:       prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "incident_map", Name: "geocode_cache_total"}, []string{"result"}),
		GeocodeAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "incident_map", Name: "geocode_api_duration_seconds"}),
		CacheEntries:       prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "incident_map", Name: "geocode_cache_entries"}),
		MarkersRendered:    prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "incident_map", Name: "markers_rendered"}),
		RunDuration:        prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "incident_map", Name: "run_duration_seconds"}),
	}
}
