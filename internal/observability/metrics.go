package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

var (
	// RecommendationsTotal counts recommendations by outcome: adaptive, random,
	// nonadaptive, single or complete.
	RecommendationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_recommendations_total",
			Help: "Recommendations served, by outcome",
		},
		[]string{"outcome"},
	)

	RecommendDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "engine_recommend_duration_seconds",
			Help:    "Latency of a single recommendation including store reads",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
	)

	ScoreUpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_score_updates_total",
			Help: "Score submissions processed, by result",
		},
		[]string{"result"},
	)

	ScoreUpdateDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "engine_score_update_duration_seconds",
			Help:    "Latency of a mastery update including the lock wait and commit",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
	)

	EstimationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "engine_estimation_duration_seconds",
			Help:    "Wall time of a batch parameter estimation",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
		},
	)

	EstimationRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_estimation_runs_total",
			Help: "Batch estimation runs, by result",
		},
		[]string{"result"},
	)

	// EstimationRejectedCells counts cells that kept their previous value, by parameter
	// and reason (sparse or degenerate).
	EstimationRejectedCells = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "engine_estimation_rejected_cells",
			Help: "Cells rejected by the last estimation run",
		},
		[]string{"param", "reason"},
	)

	EstimationLearners = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "engine_estimation_learners",
			Help: "Learners with at least one score in the last estimation run",
		},
	)
)

func ObserveRecommend(outcome string, d time.Duration) {
	RecommendationsTotal.WithLabelValues(outcome).Inc()
	RecommendDuration.Observe(d.Seconds())
}

func ObserveScoreUpdate(err error, d time.Duration) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	ScoreUpdatesTotal.WithLabelValues(result).Inc()
	ScoreUpdateDuration.Observe(d.Seconds())
}

func ObserveEstimation(err error, d time.Duration, learners int, sparse, degenerate map[string]int) {
	if err != nil {
		EstimationRunsTotal.WithLabelValues("error").Inc()
		return
	}
	EstimationRunsTotal.WithLabelValues("ok").Inc()
	EstimationDuration.Observe(d.Seconds())
	EstimationLearners.Set(float64(learners))
	for param, n := range sparse {
		EstimationRejectedCells.WithLabelValues(param, "sparse").Set(float64(n))
	}
	for param, n := range degenerate {
		EstimationRejectedCells.WithLabelValues(param, "degenerate").Set(float64(n))
	}
}

// RegisterDBStats exports connection pool stats for db under the given name.
func RegisterDBStats(db *gorm.DB, name string) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	err = prometheus.Register(collectors.NewDBStatsCollector(sqlDB, name))
	if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
		return nil
	}
	return err
}

func Handler() http.Handler {
	return promhttp.Handler()
}
