// Package metrics records batch load outcomes as prometheus metrics and
// writes them in the text exposition format.
package metrics

import (
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"github.com/docker/model-zoo/pkg/loader"
)

const namespace = "zoo"

// Recorder turns loader reports into metrics on its own registry.
type Recorder struct {
	registry *prometheus.Registry
	attempts *prometheus.CounterVec
	duration *prometheus.HistogramVec
	loaded   *prometheus.GaugeVec
	models   prometheus.Gauge
}

// NewRecorder creates a recorder with a fresh registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "load_attempts_total",
			Help:      "Model construction attempts by outcome kind.",
		}, []string{"kind"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "load_duration_seconds",
			Help:      "Time spent constructing a model, weights included.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 9),
		}, []string{"result"}),
		loaded: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "model_loaded",
			Help:      "1 if the last attempt for an architecture succeeded, 0 otherwise.",
		}, []string{"architecture"}),
		models: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "registry_models",
			Help:      "Models held in the registry after the batch.",
		}),
	}
	r.registry.MustRegister(r.attempts, r.duration, r.loaded, r.models)
	return r
}

// Observe records one attempt. It has the signature loader.WithObserver
// expects.
func (r *Recorder) Observe(rep loader.Report) {
	r.attempts.WithLabelValues(rep.Kind.String()).Inc()
	result, loaded := "success", 1.0
	if rep.Err != nil {
		result, loaded = "failure", 0
	}
	r.duration.WithLabelValues(result).Observe(rep.Duration.Seconds())
	r.loaded.WithLabelValues(rep.Name).Set(loaded)
}

// SetRegistrySize records how many models the batch produced.
func (r *Recorder) SetRegistrySize(n int) {
	r.models.Set(float64(n))
}

// Gatherer exposes the underlying registry.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.registry
}

// Write encodes all metrics in the text format.
func (r *Recorder) Write(w io.Writer) error {
	families, err := r.registry.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("encode %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

// WriteTextfile atomically writes all metrics to filename, for the node
// exporter textfile collector.
func (r *Recorder) WriteTextfile(filename string) error {
	return prometheus.WriteToTextfile(filename, r.registry)
}

// Attempts returns the attempt counters keyed by kind.
func (r *Recorder) Attempts() (map[string]float64, error) {
	families, err := r.registry.Gather()
	if err != nil {
		return nil, err
	}
	out := map[string]float64{}
	for _, mf := range families {
		if mf.GetName() != namespace+"_load_attempts_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			out[labelValue(m, "kind")] = m.GetCounter().GetValue()
		}
	}
	return out, nil
}

func labelValue(m *dto.Metric, name string) string {
	for _, l := range m.GetLabel() {
		if l.GetName() == name {
			return l.GetValue()
		}
	}
	return ""
}
