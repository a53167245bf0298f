package services

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/temcen/cinerank/internal/cache"
	"github.com/temcen/cinerank/internal/config"
	"github.com/temcen/cinerank/internal/ml"
	"github.com/temcen/cinerank/internal/query"
	"github.com/temcen/cinerank/internal/ranking"
	"github.com/temcen/cinerank/internal/recommend"
	"github.com/temcen/cinerank/pkg/models"
)

// LadderRunner is implemented by recommend.Controller.
type LadderRunner interface {
	Run(ctx context.Context, req recommend.Request) (*recommend.Outcome, error)
}

type RecommendationService struct {
	runner   LadderRunner
	encoder  ml.Encoder
	cache    cache.Cache
	versions *cache.Versions
	cfg      config.RecommendationsConfig
	metrics  *Metrics
	logger   *logrus.Logger
	now      func() time.Time
}

func NewRecommendationService(runner LadderRunner, encoder ml.Encoder, c cache.Cache, cfg config.RecommendationsConfig, metrics *Metrics, logger *logrus.Logger) *RecommendationService {
	return &RecommendationService{
		runner:   runner,
		encoder:  encoder,
		cache:    c,
		versions: cache.NewVersions(c),
		cfg:      cfg,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
	}
}

// Recommend serves both the plain and the filtered variant; a plain request
// simply carries no filters beyond watched.
func (s *RecommendationService) Recommend(ctx context.Context, req *models.FilteredRecommendationRequest) (*models.RecommendationResponse, error) {
	start := time.Now()
	operation := "recommendations"
	if req.HasFilters() {
		operation = "recommendations_filtered"
	}

	limit := s.clampLimit(req.Limit)
	key, cacheable := s.cacheKey(ctx, req, limit)

	if cacheable {
		if cached, ok := s.getCachedResponse(ctx, key); ok {
			s.metrics.cacheLookups.WithLabelValues("hit").Inc()
			s.observe(operation, "ok", start)
			return cached, nil
		}
		s.metrics.cacheLookups.WithLabelValues("miss").Inc()
	}

	var vector []float32
	if text := strings.TrimSpace(req.Query); text != "" {
		v, err := s.encoder.Encode(ctx, text)
		switch {
		case errors.Is(err, ml.ErrEmptyText):
			// Nothing encodable; run without a semantic predicate.
		case err != nil:
			s.observe(operation, "error", start)
			return nil, fmt.Errorf("failed to encode query: %w", err)
		default:
			vector = v
		}
	}

	outcome, err := s.runner.Run(ctx, recommend.Request{
		Filters: query.FilterSet{
			UserID:    req.UserID,
			Cast:      req.Cast,
			Crew:      req.Crew,
			Genres:    req.Genres,
			Languages: req.Languages,
			Watched:   req.Watched,
		},
		QueryVector: vector,
		Limit:       limit,
	})
	if err != nil {
		s.observe(operation, "error", start)
		return nil, fmt.Errorf("failed to run relaxation ladder: %w", err)
	}

	response := &models.RecommendationResponse{
		UserID:          req.UserID,
		Recommendations: ToRecommendations(outcome.Candidates),
		Relaxation: models.RelaxationInfo{
			Rung:         outcome.Rung,
			SemanticMode: string(outcome.Mode),
			Attempts:     outcome.Attempts,
			Exhausted:    outcome.Exhausted,
		},
		GeneratedAt: s.now().UTC(),
	}

	if cacheable {
		s.cacheResponse(ctx, key, response)
	}

	s.metrics.terminalAttempt.WithLabelValues(strconv.FormatBool(vector != nil)).Observe(float64(outcome.Attempts))
	rung := outcome.Rung
	if outcome.Exhausted {
		rung = "exhausted"
	}
	s.metrics.outcomes.WithLabelValues(rung, string(outcome.Mode)).Inc()
	s.observe(operation, "ok", start)

	return response, nil
}

func (s *RecommendationService) clampLimit(limit int) int {
	if limit <= 0 {
		limit = s.cfg.DefaultLimit
	}
	if s.cfg.MaxLimit > 0 && limit > s.cfg.MaxLimit {
		limit = s.cfg.MaxLimit
	}
	return limit
}

// cacheKey is rec:<user>:v<version>:<request hash>. Caching is skipped when
// the version cannot be read.
func (s *RecommendationService) cacheKey(ctx context.Context, req *models.FilteredRecommendationRequest, limit int) (string, bool) {
	if s.cache == nil || s.cfg.CacheTTL <= 0 {
		return "", false
	}

	version, err := s.versions.Current(ctx, req.UserID)
	if err != nil {
		s.logger.WithError(err).WithField("user_id", req.UserID).Warn("Failed to read cache version")
		return "", false
	}

	fingerprint, err := json.Marshal(struct {
		Cast      []string `json:"cast"`
		Crew      []string `json:"crew"`
		Genres    []string `json:"genre"`
		Languages []string `json:"language"`
		Query     string   `json:"query"`
		Watched   *bool    `json:"watched"`
		Limit     int      `json:"limit"`
	}{req.Cast, req.Crew, req.Genres, req.Languages, strings.TrimSpace(req.Query), req.Watched, limit})
	if err != nil {
		return "", false
	}
	sum := sha256.Sum256(fingerprint)

	return fmt.Sprintf("rec:%s:v%d:%x", req.UserID, version, sum[:8]), true
}

func (s *RecommendationService) getCachedResponse(ctx context.Context, key string) (*models.RecommendationResponse, bool) {
	data, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("Failed to read cached recommendations")
		return nil, false
	}
	if !ok {
		return nil, false
	}

	var response models.RecommendationResponse
	if err := json.Unmarshal(data, &response); err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("Failed to deserialize cached recommendations")
		return nil, false
	}
	response.CacheHit = true
	return &response, true
}

func (s *RecommendationService) cacheResponse(ctx context.Context, key string, response *models.RecommendationResponse) {
	data, err := json.Marshal(response)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to serialize recommendations for caching")
		return
	}
	if err := s.cache.Set(ctx, key, data, s.cfg.CacheTTL); err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("Failed to cache recommendations")
	}
}

func (s *RecommendationService) observe(operation, status string, start time.Time) {
	s.metrics.requests.WithLabelValues(operation, status).Inc()
	s.metrics.latency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// ToRecommendations maps ranked candidates onto the response items, keeping
// their order. The result is never nil.
func ToRecommendations(candidates []models.Candidate) []models.MovieRecommendation {
	out := make([]models.MovieRecommendation, 0, len(candidates))
	for i := range candidates {
		c := &candidates[i]
		out = append(out, models.MovieRecommendation{
			ID:                  c.ID,
			Title:               c.Title,
			Overview:            c.Overview,
			PosterPath:          c.PosterPath,
			ReleaseDate:         c.ReleaseDate,
			OriginalLanguage:    c.OriginalLanguage,
			Popularity:          c.Popularity,
			VoteCount:           c.VoteCount,
			VoteAverage:         c.VoteAverage,
			PredictedScore:      c.Affinity,
			PredictedStarRating: ranking.StarRating(c),
			UserRating:          c.UserRating,
			Watched:             c.IsWatched(),
			IsWatchlisted:       c.IsWatchlisted,
			Similarity:          c.Similarity,
		})
	}
	return out
}
