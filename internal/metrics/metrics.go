// Package metrics exposes Prometheus collectors for the monitoring pipeline.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	CandidatesFetched = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "portfolio_candidates_fetched_total",
		Help: "Raw candidates returned by sources.",
	}, []string{"source"})

	SourceErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "portfolio_source_errors_total",
		Help: "Keyword searches that failed and were skipped.",
	}, []string{"source"})

	SourceRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "portfolio_source_request_duration_seconds",
		Help:    "Duration of upstream search requests.",
		Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 20, 30},
	}, []string{"source", "status"})

	ClassifierDecisions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "portfolio_classifier_decisions_total",
		Help: "Relevance verdicts by entity and reason.",
	}, []string{"entity", "reason"})

	MentionsStored = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "portfolio_mentions_stored_total",
		Help: "Mentions inserted for the first time.",
	}, []string{"entity"})

	MentionDuplicates = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "portfolio_mention_duplicates_total",
		Help: "Accepted mentions already present in storage.",
	}, []string{"entity"})

	AlertsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "portfolio_alerts_total",
		Help: "Notification attempts by channel and final status.",
	}, []string{"channel", "status"})

	RunDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "portfolio_run_duration_seconds",
		Help:    "Wall-clock duration of a full monitoring run.",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
	})

	PurgedMentions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "portfolio_mentions_purged_total",
		Help: "Mentions removed by retroactive cleanup.",
	}, []string{"entity"})
)

func collectors() []prometheus.Collector {
	return []prometheus.Collector{
		CandidatesFetched,
		SourceErrors,
		SourceRequestDuration,
		ClassifierDecisions,
		MentionsStored,
		MentionDuplicates,
		AlertsTotal,
		RunDuration,
		PurgedMentions,
	}
}

// Register adds every collector to registerer. Collectors already present are skipped,
// so repeated wiring in one process is harmless.
func Register(registerer prometheus.Registerer) error {
	for _, c := range collectors() {
		if err := registerer.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if errors.As(err, &already) {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveSourceRequest records one upstream search call.
func ObserveSourceRequest(source string, start time.Time, err error) {
	if source == "" {
		source = "unknown"
	}
	status := "success"
	if err != nil {
		status = "error"
		SourceErrors.WithLabelValues(source).Inc()
	}
	SourceRequestDuration.WithLabelValues(source, status).Observe(time.Since(start).Seconds())
}
