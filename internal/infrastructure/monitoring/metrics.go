package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type DBMetrics struct {
	QueryDuration *prometheus.HistogramVec
}

type BusinessMetrics struct {
	EligibilityDecisionsTotal *prometheus.CounterVec
	LoansCreatedTotal         prometheus.Counter
	ScoreCacheLookupsTotal    *prometheus.CounterVec
	ScoreComputationDuration  prometheus.Histogram
}

var (
	DB = DBMetrics{
		QueryDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "credit_engine_db_query_duration_seconds",
				Help:    "Histogram of database query latencies.",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"query_name", "status"},
		),
	}

	Business = BusinessMetrics{
		EligibilityDecisionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "credit_engine_eligibility_decisions_total",
				Help: "Total eligibility decisions by outcome.",
			},
			[]string{"outcome"},
		),
		LoansCreatedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "credit_engine_loans_created_total",
				Help: "Total loans persisted through the approval path.",
			},
		),
		ScoreCacheLookupsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "credit_engine_score_cache_lookups_total",
				Help: "Score cache lookups by result (hit, miss, unavailable).",
			},
			[]string{"result"},
		),
		ScoreComputationDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "credit_engine_score_computation_duration_seconds",
				Help:    "Histogram of credit score computation latencies.",
				Buckets: prometheus.DefBuckets,
			},
		),
	}
)

func RecordDBQuery(queryName, status string, duration time.Duration) {
	DB.QueryDuration.WithLabelValues(queryName, status).Observe(duration.Seconds())
}

func RecordEligibilityDecision(outcome string) {
	Business.EligibilityDecisionsTotal.WithLabelValues(outcome).Inc()
}

func RecordLoanCreated() {
	Business.LoansCreatedTotal.Inc()
}

func RecordScoreCacheLookup(result string) {
	Business.ScoreCacheLookupsTotal.WithLabelValues(result).Inc()
}

func RecordScoreComputation(duration time.Duration) {
	Business.ScoreComputationDuration.Observe(duration.Seconds())
}
