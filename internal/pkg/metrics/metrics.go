// Package metrics holds the Prometheus collectors of the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "oddsmerge"

var (
	EventsGathered = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_gathered_total",
		Help:      "Candidate events returned by each source.",
	}, []string{"source"})

	GatherErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "gather_errors_total",
		Help:      "Failed gather calls per source.",
	}, []string{"source"})

	MatchDecisions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "match_decisions_total",
		Help:      "Pairwise event comparisons by outcome.",
	}, []string{"outcome"})

	Escalations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "escalations_total",
		Help:      "Conflict escalations by decision.",
	}, []string{"decision"})

	AliasesLearned = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "aliases_learned_total",
		Help:      "Raw names added to the alias table.",
	}, []string{"source", "kind"})

	BinsPacked = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bins_packed_total",
		Help:      "Batched lookup requests issued per source.",
	}, []string{"source"})

	TranslationErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "translation_errors_total",
		Help:      "Markets that could not be translated into canonical bets.",
	}, []string{"source"})

	RequestsRemaining = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "source_requests_remaining",
		Help:      "Remaining request quota reported by a source.",
	}, []string{"source"})

	MergedEvents = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "merged_events",
		Help:      "Events produced by the last resolution run.",
	})

	EvaluatorLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "evaluator_request_seconds",
		Help:      "Profit evaluator round trip time.",
		Buckets:   prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(
		EventsGathered,
		GatherErrors,
		MatchDecisions,
		Escalations,
		AliasesLearned,
		BinsPacked,
		TranslationErrors,
		RequestsRemaining,
		MergedEvents,
		EvaluatorLatency,
	)
}
