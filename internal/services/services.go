package services

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/temcen/cinerank/internal/cache"
	"github.com/temcen/cinerank/internal/config"
	"github.com/temcen/cinerank/internal/database"
	"github.com/temcen/cinerank/internal/messaging"
	"github.com/temcen/cinerank/internal/ml"
	"github.com/temcen/cinerank/internal/preference"
	"github.com/temcen/cinerank/internal/ranking"
	"github.com/temcen/cinerank/internal/recommend"
	"github.com/temcen/cinerank/internal/schema"
	"github.com/temcen/cinerank/internal/semantic"
	"github.com/temcen/cinerank/internal/store"
)

type Services struct {
	Health         *HealthService
	Recommendation *RecommendationService
	Preference     *PreferenceService
	Feedback       *FeedbackService
	Movie          *MovieService
	Schema         *schema.Schema
	Cache          cache.Cache
	// MessageBus is nil when no Kafka brokers are configured.
	MessageBus *messaging.MessageBus
	Metrics    *Metrics
}

func New(ctx context.Context, cfg *config.Config, logger *logrus.Logger, db *database.Database) (*Services, error) {
	resolved, err := schema.Resolve(ctx, db.PG, cfg.Schema.UserColumn, cfg.Schema.Tables, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve schema: %w", err)
	}
	candidateStore := store.New(db.PG, resolved, logger)

	var shared cache.Cache
	var redisPinger Pinger
	if db.Redis != nil {
		redisCache := cache.NewRedis(db.Redis)
		shared, redisPinger = redisCache, redisCache
	} else {
		shared = cache.NewMemory()
	}

	encoder, err := ml.NewEncoder(cfg.Embedding, shared, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create query encoder: %w", err)
	}
	resolver := semantic.NewResolver(encoder.Dimension(), cfg.Semantic.PrimaryThreshold, cfg.Semantic.FallbackThreshold)
	scorer := ranking.New(cfg.Ranking.PopularityCoefficient)
	controller := recommend.NewController(candidateStore, resolved, resolver, scorer, cfg.Recommendations.MaxCandidates, logger)

	var bus *messaging.MessageBus
	var publisher EventPublisher
	if cfg.Kafka.Enabled() {
		bus, err = messaging.NewMessageBus(cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create message bus: %w", err)
		}
		publisher = bus
	} else {
		logger.Info("Kafka not configured, feedback events are not published")
	}

	metrics := NewMetrics(prometheus.DefaultRegisterer, logger)
	aggregator := preference.NewAggregator(candidateStore, cfg.Preferences.GroupLimit, logger)

	return &Services{
		Health:         NewHealthService(db.PG, redisPinger, db.PG, prometheus.DefaultRegisterer, logger),
		Recommendation: NewRecommendationService(controller, encoder, shared, cfg.Recommendations, metrics, logger),
		Preference:     NewPreferenceService(aggregator, candidateStore, metrics, logger),
		Feedback:       NewFeedbackService(candidateStore, publisher, shared, metrics, logger),
		Movie:          NewMovieService(candidateStore, cfg.Recommendations, logger),
		Schema:         resolved,
		Cache:          shared,
		MessageBus:     bus,
		Metrics:        metrics,
	}, nil
}
