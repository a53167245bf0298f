package services

import (
	"context"

	"github.com/temcen/cinerank/pkg/models"
)

// RecommendationServiceInterface defines the interface for personalised recommendations
type RecommendationServiceInterface interface {
	Recommend(ctx context.Context, req *models.FilteredRecommendationRequest) (*models.RecommendationResponse, error)
}

// PreferenceServiceInterface defines the interface for preference groups and summaries
type PreferenceServiceInterface interface {
	PreferenceMovies(ctx context.Context, userID string, watched *bool) (*models.PreferenceResponse, error)
	UserSummary(ctx context.Context, userID string) (*models.UserSummary, error)
}

// FeedbackServiceInterface defines the interface for rating and watchlist operations
type FeedbackServiceInterface interface {
	RateMovie(ctx context.Context, req models.RatingRequest) (*models.Rating, error)
	Ratings(ctx context.Context, userID string) ([]models.Rating, error)
	AddToWatchlist(ctx context.Context, req models.WatchlistRequest) (*models.WatchlistEntry, error)
	RemoveFromWatchlist(ctx context.Context, userID string, movieID int64) error
	Watchlist(ctx context.Context, userID string) ([]models.WatchlistEntry, error)
}

// MovieServiceInterface defines the interface for catalog lists
type MovieServiceInterface interface {
	Movie(ctx context.Context, id int64) (*models.Movie, error)
	PopularMovies(ctx context.Context, req models.MovieListRequest) ([]models.Movie, error)
	RecentPopularMovies(ctx context.Context, req models.MovieListRequest) ([]models.Movie, error)
	UpcomingMovies(ctx context.Context, req models.MovieListRequest) ([]models.Movie, error)
}

// HealthServiceInterface defines the interface for dependency health checks
type HealthServiceInterface interface {
	CheckHealth(ctx context.Context) *HealthStatus
}
