package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/temcen/cinerank/pkg/models"
)

// PreferenceAggregator is implemented by preference.Aggregator.
type PreferenceAggregator interface {
	Aggregate(ctx context.Context, userID string, watched *bool) (*models.PreferenceResponse, error)
}

type SummaryStore interface {
	UserSummary(ctx context.Context, userID string) (*models.UserSummary, error)
}

type PreferenceService struct {
	aggregator PreferenceAggregator
	summaries  SummaryStore
	metrics    *Metrics
	logger     *logrus.Logger
}

func NewPreferenceService(aggregator PreferenceAggregator, summaries SummaryStore, metrics *Metrics, logger *logrus.Logger) *PreferenceService {
	return &PreferenceService{
		aggregator: aggregator,
		summaries:  summaries,
		metrics:    metrics,
		logger:     logger,
	}
}

func (s *PreferenceService) PreferenceMovies(ctx context.Context, userID string, watched *bool) (*models.PreferenceResponse, error) {
	start := time.Now()

	response, err := s.aggregator.Aggregate(ctx, userID, watched)
	status := "ok"
	if err != nil {
		status = "error"
	}
	s.metrics.requests.WithLabelValues("preferences", status).Inc()
	s.metrics.latency.WithLabelValues("preferences").Observe(time.Since(start).Seconds())

	return response, err
}

func (s *PreferenceService) UserSummary(ctx context.Context, userID string) (*models.UserSummary, error) {
	return s.summaries.UserSummary(ctx, userID)
}
