package services

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

type Metrics struct {
	requests        *prometheus.CounterVec
	latency         *prometheus.HistogramVec
	terminalAttempt *prometheus.HistogramVec
	outcomes        *prometheus.CounterVec
	cacheLookups    *prometheus.CounterVec
	feedbackEvents  *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer, logger *logrus.Logger) *Metrics {
	return &Metrics{
		requests: register(reg, logger, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cinerank_requests_total",
			Help: "Requests handled per operation and status",
		}, []string{"operation", "status"})),

		latency: register(reg, logger, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cinerank_request_duration_seconds",
			Help:    "Request latency per operation",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"operation"})),

		terminalAttempt: register(reg, logger, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cinerank_relaxation_attempts",
			Help:    "Store queries needed before the relaxation ladder stopped",
			Buckets: []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12},
		}, []string{"semantic"})),

		outcomes: register(reg, logger, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cinerank_relaxation_outcomes_total",
			Help: "Terminal rung and semantic mode of each ladder walk",
		}, []string{"rung", "mode"})),

		cacheLookups: register(reg, logger, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cinerank_recommendation_cache_total",
			Help: "Recommendation cache lookups by result",
		}, []string{"result"})),

		feedbackEvents: register(reg, logger, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cinerank_feedback_events_total",
			Help: "Feedback events by type and delivery result",
		}, []string{"type", "result"})),
	}
}

// register tolerates collectors that are already registered, so several
// service instances can share the default registry.
func register[T prometheus.Collector](reg prometheus.Registerer, logger *logrus.Logger, c T) T {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing
			}
		}
		logger.WithError(err).Warn("Failed to register metric")
	}
	return c
}
