// Package metrics exposes Prometheus instrumentation for the ingest,
// selection and resolution pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Run statuses used as label values.
const (
	RunCompleted = "completed"
	RunFailed    = "failed"
)

// Metrics holds the pipeline instruments. Everything lives on a
// private registry so each instance registers cleanly.
type Metrics struct {
	registry *prometheus.Registry

	PipelineRuns       *prometheus.CounterVec
	PipelineDuration   prometheus.Histogram
	NamesParsed        prometheus.Counter
	LowConfidenceNames prometheus.Counter
	NamesRepaired      prometheus.Counter
	TorrentsSelected   prometheus.Counter
	TorrentsDiscarded  prometheus.Counter
	Resolutions        *prometheus.CounterVec
	SeriesByStatus     *prometheus.GaugeVec
	TorrentsLinked     prometheus.Counter
}

// New creates and registers the pipeline instruments together with the
// standard Go and process collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		PipelineRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "showsift_pipeline_runs_total",
			Help: "Pipeline runs by final status",
		}, []string{"status"}),
		PipelineDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "showsift_pipeline_duration_seconds",
			Help:    "End-to-end pipeline run duration",
			Buckets: prometheus.DefBuckets,
		}),
		NamesParsed: factory.NewCounter(prometheus.CounterOpts{
			Name: "showsift_release_names_parsed_total",
			Help: "Release names run through the parser",
		}),
		LowConfidenceNames: factory.NewCounter(prometheus.CounterOpts{
			Name: "showsift_release_names_low_confidence_total",
			Help: "Parses that came out low confidence",
		}),
		NamesRepaired: factory.NewCounter(prometheus.CounterOpts{
			Name: "showsift_release_names_repaired_total",
			Help: "Low confidence parses repaired by the name model",
		}),
		TorrentsSelected: factory.NewCounter(prometheus.CounterOpts{
			Name: "showsift_torrents_selected_total",
			Help: "Torrents kept by quality selection",
		}),
		TorrentsDiscarded: factory.NewCounter(prometheus.CounterOpts{
			Name: "showsift_torrents_discarded_total",
			Help: "Torrents dropped in favor of a better release of the same span",
		}),
		Resolutions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "showsift_resolutions_total",
			Help: "Series resolution outcomes by resulting status",
		}, []string{"status"}),
		SeriesByStatus: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "showsift_series",
			Help: "Known series by resolution status",
		}, []string{"status"}),
		TorrentsLinked: factory.NewCounter(prometheus.CounterOpts{
			Name: "showsift_torrents_linked_total",
			Help: "Torrents linked to a season by the season matcher",
		}),
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRun records one pipeline run.
func (m *Metrics) ObserveRun(status string, seconds float64) {
	m.PipelineRuns.WithLabelValues(status).Inc()
	m.PipelineDuration.Observe(seconds)
}

// SetSeriesCounts refreshes the per-status series gauges.
func (m *Metrics) SetSeriesCounts(counts map[string]int64) {
	for status, count := range counts {
		m.SeriesByStatus.WithLabelValues(status).Set(float64(count))
	}
}
