// Package metrics exposes generation counters and latencies to Prometheus.
package metrics

import (
	"context"
	"net/http"

	"genadapter/provider"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "genadapter"

// Prom implements provider.Recorder backed by Prometheus collectors.
type Prom struct {
	generations *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	promptChars *prometheus.HistogramVec
}

// NewProm registers the generation collectors on reg. A nil reg uses the
// default registerer.
func NewProm(reg prometheus.Registerer) (*Prom, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	p := &Prom{
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generations_total",
			Help:      "Generations by source, modality and outcome",
		}, []string{"source", "modality", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_duration_seconds",
			Help:      "Generation latency by source and modality",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 40, 80, 160},
		}, []string{"source", "modality"}),
		promptChars: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "prompt_chars",
			Help:      "Prompt length in characters by modality",
			Buckets:   prometheus.ExponentialBuckets(64, 4, 6),
		}, []string{"modality"}),
	}
	for _, c := range []prometheus.Collector{p.generations, p.duration, p.promptChars} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Record never fails.
func (p *Prom) Record(_ context.Context, ev provider.Event) error {
	modality := ev.Modality.String()
	p.generations.WithLabelValues(ev.Source, modality, provider.Outcome(ev.Err)).Inc()
	p.duration.WithLabelValues(ev.Source, modality).Observe(ev.Duration.Seconds())
	p.promptChars.WithLabelValues(modality).Observe(float64(ev.PromptChars))
	return nil
}

// Handler returns an HTTP handler serving the metrics in g.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
