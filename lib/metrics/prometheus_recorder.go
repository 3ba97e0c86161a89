package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	renderDuration *prom.HistogramVec
	renderResults  *prom.CounterVec
	fragments      *prom.CounterVec
	buildDuration  prom.Histogram
	buildPages     prom.Gauge
	buildOutcome   *prom.CounterVec
}

// NewPrometheusRecorder constructs the metrics and registers them with reg.
// A nil reg gets a fresh private registry.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		renderDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "hxsite",
			Name:      "render_duration_seconds",
			Help:      "Duration of page renders including asset bundling",
			Buckets:   prom.DefBuckets,
		}, []string{"format"}),
		renderResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "hxsite",
			Name:      "render_results_total",
			Help:      "Page render counts by outcome",
		}, []string{"format", "result"}),
		fragments: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "hxsite",
			Name:      "fragments_total",
			Help:      "Code fragments stored by asset kind",
		}, []string{"kind"}),
		buildDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: "hxsite",
			Name:      "build_duration_seconds",
			Help:      "Total build duration",
			Buckets:   prom.DefBuckets,
		}),
		buildPages: prom.NewGauge(prom.GaugeOpts{
			Namespace: "hxsite",
			Name:      "build_pages",
			Help:      "Pages written by the last build",
		}),
		buildOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "hxsite",
			Name:      "build_outcomes_total",
			Help:      "Build outcomes by final status",
		}, []string{"result"}),
	}
	reg.MustRegister(pr.renderDuration, pr.renderResults, pr.fragments, pr.buildDuration, pr.buildPages, pr.buildOutcome)
	return pr
}

func (p *PrometheusRecorder) ObserveRender(format string, d time.Duration, result ResultLabel) {
	p.renderDuration.WithLabelValues(format).Observe(d.Seconds())
	p.renderResults.WithLabelValues(format, string(result)).Inc()
}

func (p *PrometheusRecorder) AddFragments(kind string, n int) {
	if n <= 0 {
		return
	}
	p.fragments.WithLabelValues(kind).Add(float64(n))
}

func (p *PrometheusRecorder) ObserveBuild(d time.Duration, pages int, result ResultLabel) {
	p.buildDuration.Observe(d.Seconds())
	p.buildPages.Set(float64(pages))
	p.buildOutcome.WithLabelValues(string(result)).Inc()
}
