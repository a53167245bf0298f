package services

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/temcen/cinerank/internal/config"
	"github.com/temcen/cinerank/pkg/models"
)

const (
	DefaultLanguage   = "ta"
	DefaultRecentDays = 90
)

type MovieStore interface {
	MovieByID(ctx context.Context, id int64) (*models.Movie, error)
	PopularMovies(ctx context.Context, req models.MovieListRequest) ([]models.Movie, error)
	RecentPopularMovies(ctx context.Context, req models.MovieListRequest) ([]models.Movie, error)
	UpcomingMovies(ctx context.Context, req models.MovieListRequest) ([]models.Movie, error)
}

// MovieService serves the user-independent catalog lists.
type MovieService struct {
	store  MovieStore
	cfg    config.RecommendationsConfig
	logger *logrus.Logger
}

func NewMovieService(store MovieStore, cfg config.RecommendationsConfig, logger *logrus.Logger) *MovieService {
	return &MovieService{
		store:  store,
		cfg:    cfg,
		logger: logger,
	}
}

func (s *MovieService) Movie(ctx context.Context, id int64) (*models.Movie, error) {
	return s.store.MovieByID(ctx, id)
}

func (s *MovieService) PopularMovies(ctx context.Context, req models.MovieListRequest) ([]models.Movie, error) {
	return s.store.PopularMovies(ctx, s.normalize(req))
}

func (s *MovieService) RecentPopularMovies(ctx context.Context, req models.MovieListRequest) ([]models.Movie, error) {
	return s.store.RecentPopularMovies(ctx, s.normalize(req))
}

func (s *MovieService) UpcomingMovies(ctx context.Context, req models.MovieListRequest) ([]models.Movie, error) {
	return s.store.UpcomingMovies(ctx, s.normalize(req))
}

func (s *MovieService) normalize(req models.MovieListRequest) models.MovieListRequest {
	req.Language = strings.TrimSpace(req.Language)
	if req.Language == "" {
		req.Language = DefaultLanguage
	}
	if req.Days <= 0 {
		req.Days = DefaultRecentDays
	}
	if req.Limit <= 0 {
		req.Limit = s.cfg.DefaultLimit
	}
	if s.cfg.MaxLimit > 0 && req.Limit > s.cfg.MaxLimit {
		req.Limit = s.cfg.MaxLimit
	}
	return req
}
