package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/temcen/cinerank/internal/cache"
	"github.com/temcen/cinerank/pkg/models"
)

type FeedbackStore interface {
	UpsertRating(ctx context.Context, req models.RatingRequest) (*models.Rating, error)
	Ratings(ctx context.Context, userID string) ([]models.Rating, error)
	AddToWatchlist(ctx context.Context, req models.WatchlistRequest) (*models.WatchlistEntry, error)
	RemoveFromWatchlist(ctx context.Context, userID string, movieID int64) error
	Watchlist(ctx context.Context, userID string) ([]models.WatchlistEntry, error)
}

// EventPublisher is implemented by messaging.MessageBus.
type EventPublisher interface {
	PublishFeedback(ctx context.Context, event models.FeedbackEvent) error
}

// FeedbackService owns rating and watchlist writes. Every write invalidates
// the user's cached recommendations here and, when a bus is configured, on
// every other instance through a feedback event.
type FeedbackService struct {
	store     FeedbackStore
	publisher EventPublisher
	versions  *cache.Versions
	metrics   *Metrics
	logger    *logrus.Logger
	now       func() time.Time
}

// NewFeedbackService builds the service. publisher may be nil.
func NewFeedbackService(store FeedbackStore, publisher EventPublisher, c cache.Cache, metrics *Metrics, logger *logrus.Logger) *FeedbackService {
	return &FeedbackService{
		store:     store,
		publisher: publisher,
		versions:  cache.NewVersions(c),
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *FeedbackService) RateMovie(ctx context.Context, req models.RatingRequest) (*models.Rating, error) {
	rating, err := s.store.UpsertRating(ctx, req)
	if err != nil {
		return nil, err
	}

	value := req.Rating
	s.afterWrite(ctx, models.FeedbackRated, req.UserID, req.MovieID, &value)
	return rating, nil
}

func (s *FeedbackService) Ratings(ctx context.Context, userID string) ([]models.Rating, error) {
	return s.store.Ratings(ctx, userID)
}

func (s *FeedbackService) AddToWatchlist(ctx context.Context, req models.WatchlistRequest) (*models.WatchlistEntry, error) {
	entry, err := s.store.AddToWatchlist(ctx, req)
	if err != nil {
		return nil, err
	}

	s.afterWrite(ctx, models.FeedbackWatchlistAdded, req.UserID, req.MovieID, nil)
	return entry, nil
}

func (s *FeedbackService) RemoveFromWatchlist(ctx context.Context, userID string, movieID int64) error {
	if err := s.store.RemoveFromWatchlist(ctx, userID, movieID); err != nil {
		return err
	}

	s.afterWrite(ctx, models.FeedbackWatchlistRemoved, userID, movieID, nil)
	return nil
}

func (s *FeedbackService) Watchlist(ctx context.Context, userID string) ([]models.WatchlistEntry, error) {
	return s.store.Watchlist(ctx, userID)
}

// HandleEvent is the feedback consumer callback: it bumps the user's cache
// version so results cached before the write are no longer served.
func (s *FeedbackService) HandleEvent(ctx context.Context, event models.FeedbackEvent) error {
	version, err := s.versions.Bump(ctx, event.UserID)
	if err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"event_id": event.EventID,
		"type":     event.Type,
		"user_id":  event.UserID,
		"version":  version,
	}).Debug("Recommendation cache invalidated")
	return nil
}

// afterWrite never fails the write: the data is already stored, and a missed
// invalidation only delays fresh results until the cache TTL expires.
func (s *FeedbackService) afterWrite(ctx context.Context, eventType models.FeedbackEventType, userID string, movieID int64, rating *float64) {
	if _, err := s.versions.Bump(ctx, userID); err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Warn("Failed to invalidate recommendation cache")
	}

	if s.publisher == nil {
		s.metrics.feedbackEvents.WithLabelValues(string(eventType), "disabled").Inc()
		return
	}

	event := models.FeedbackEvent{
		EventID:   uuid.New(),
		Type:      eventType,
		UserID:    userID,
		MovieID:   movieID,
		Rating:    rating,
		Timestamp: s.now().UTC(),
	}
	if err := s.publisher.PublishFeedback(ctx, event); err != nil {
		s.metrics.feedbackEvents.WithLabelValues(string(eventType), "failed").Inc()
		s.logger.WithError(err).WithFields(logrus.Fields{
			"event_id": event.EventID,
			"user_id":  userID,
		}).Warn("Failed to publish feedback event")
		return
	}
	s.metrics.feedbackEvents.WithLabelValues(string(eventType), "published").Inc()
}
