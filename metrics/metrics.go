// Package metrics registers the Prometheus counters spamchain exposes.
// Applications that already run a prometheus.Registry only need to import
// this package for its init() side effect; nothing here is spec-mandated
// (spec.md's Non-goals are silent on metrics), but every teacher
// check/pipeline component carries equivalent counters, so the ambient
// stack does too (see SPEC_FULL.md, "AMBIENT STACK").
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// VerdictsTotal counts every verdict a Chain.Submit call ultimately
	// emits (immediate and async), labeled by phase and verdict.
	VerdictsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "spamchain",
			Subsystem: "chain",
			Name:      "verdicts_total",
			Help:      "Number of verdicts emitted by the filter chain, by evaluation phase and verdict.",
		},
		[]string{"phase", "verdict"},
	)

	// ClassifyTotal counts Filter.Classify calls, labeled by filter id and
	// the training label applied.
	ClassifyTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "spamchain",
			Subsystem: "chain",
			Name:      "classify_total",
			Help:      "Number of Classify calls made against a filter, by filter id and label.",
		},
		[]string{"filter", "label"},
	)

	// BayesWritesTotal counts attempts by the Bayesian filter's debounced
	// writer to persist bayes-words.json, labeled by outcome.
	BayesWritesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "spamchain",
			Subsystem: "bayes",
			Name:      "writes_total",
			Help:      "Number of word-database write attempts, by outcome (ok, error).",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(VerdictsTotal)
	prometheus.MustRegister(ClassifyTotal)
	prometheus.MustRegister(BayesWritesTotal)
}
