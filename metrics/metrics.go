// Package metrics exposes the Prometheus counters and gauges the trainer
// shell updates while draining tree blocks, the way
// hupe1980-vecgo/examples/observability wires up client_golang for its own
// engine.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Collector groups the metrics one training run reports.
type Collector struct {
	TreesFitted    prometheus.Counter
	SplitSearches  prometheus.Counter
	OOBError       prometheus.Gauge
	TrainDuration  prometheus.Histogram
}

// NewCollector builds a Collector and registers it with reg. Passing a
// fresh prometheus.NewRegistry() per training run (rather than the global
// default registry) keeps repeated runs in a test process from colliding on
// duplicate metric names.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		TreesFitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "arborist",
			Name:      "trees_fitted_total",
			Help:      "Number of trees successfully grown and consumed into the forest.",
		}),
		SplitSearches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "arborist",
			Name:      "split_searches_total",
			Help:      "Number of (node, predictor) split searches performed.",
		}),
		OOBError: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "arborist",
			Name:      "oob_error",
			Help:      "Most recently computed out-of-bag error (MSE for regression, misclassification rate for classification).",
		}),
		TrainDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "arborist",
			Name:      "train_duration_seconds",
			Help:      "Wall-clock time spent training a forest.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(c.TreesFitted, c.SplitSearches, c.OOBError, c.TrainDuration)
	return c
}
