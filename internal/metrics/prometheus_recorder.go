package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	registry          *prom.Registry
	itemVisits        *prom.CounterVec
	itemFailures      *prom.CounterVec
	processorDuration *prom.HistogramVec
	buildDuration     prom.Histogram
	buildOutcome      *prom.CounterVec
}

// NewPrometheusRecorder constructs and registers the course build metrics.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		registry: reg,
		itemVisits: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "coursebuilder",
			Name:      "item_visits_total",
			Help:      "Item visits by processor",
		}, []string{"processor"}),
		itemFailures: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "coursebuilder",
			Name:      "item_failures_total",
			Help:      "Non-fatal per-item processor failures",
		}, []string{"processor"}),
		processorDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "coursebuilder",
			Name:      "processor_duration_seconds",
			Help:      "Duration of full processor passes",
			Buckets:   prom.DefBuckets,
		}, []string{"processor"}),
		buildDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: "coursebuilder",
			Name:      "build_duration_seconds",
			Help:      "Total course build duration",
			Buckets:   prom.DefBuckets,
		}),
		buildOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "coursebuilder",
			Name:      "build_outcomes_total",
			Help:      "Build outcomes by final status",
		}, []string{"outcome"}),
	}
	reg.MustRegister(pr.itemVisits, pr.itemFailures, pr.processorDuration, pr.buildDuration, pr.buildOutcome)
	return pr
}

func (pr *PrometheusRecorder) IncItemVisit(processor string) {
	pr.itemVisits.WithLabelValues(processor).Inc()
}

func (pr *PrometheusRecorder) IncItemFailure(processor string) {
	pr.itemFailures.WithLabelValues(processor).Inc()
}

func (pr *PrometheusRecorder) ObserveProcessorDuration(processor string, d time.Duration) {
	pr.processorDuration.WithLabelValues(processor).Observe(d.Seconds())
}

func (pr *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	pr.buildDuration.Observe(d.Seconds())
}

func (pr *PrometheusRecorder) IncBuildOutcome(outcome string) {
	pr.buildOutcome.WithLabelValues(outcome).Inc()
}

// Handler serves the recorder's registry over HTTP.
func (pr *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(pr.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
