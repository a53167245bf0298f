package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/temcen/cinerank/internal/config"
	"github.com/temcen/cinerank/internal/database"
	"github.com/temcen/cinerank/internal/handlers"
	"github.com/temcen/cinerank/internal/middleware"
	"github.com/temcen/cinerank/internal/services"
	"github.com/temcen/cinerank/internal/validation"
)

const defaultStartupTimeout = 10 * time.Second

type App struct {
	config    *config.Config
	logger    *logrus.Logger
	db        *database.Database
	services  *services.Services
	handlers  *handlers.Handlers
	validator *validation.SchemaValidator
	router    *gin.Engine

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(cfg *config.Config) (*App, error) {
	app := &App{
		config: cfg,
		logger: setupLogger(cfg),
	}

	// Initialize database connections
	db, err := database.New(cfg, app.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	timeout := cfg.Database.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultStartupTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Initialize services
	svc, err := services.New(ctx, cfg, app.logger, db)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}
	app.services = svc

	validator, err := validation.NewSchemaValidator()
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to load request schemas: %w", err)
	}
	app.validator = validator

	// Initialize handlers
	app.handlers = handlers.New(app.logger, svc)

	// Setup router
	app.setupRouter()

	return app, nil
}

func (a *App) Router() *gin.Engine {
	return a.router
}

// Start launches the background workers: health gauges and, when Kafka is
// configured, the feedback consumer that invalidates cached recommendations.
func (a *App) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.services.Health.Run(ctx)
	}()

	if a.services.MessageBus != nil {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			err := a.services.MessageBus.ConsumeFeedback(ctx, a.services.Feedback.HandleEvent)
			if err != nil && !errors.Is(err, context.Canceled) {
				a.logger.WithError(err).Error("Feedback consumer stopped")
			}
		}()
	}
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("Shutting down application...")

	if a.cancel != nil {
		a.cancel()
	}

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		a.logger.Warn("Background workers did not stop before the shutdown deadline")
	}

	var errs []error
	if a.services.MessageBus != nil {
		if err := a.services.MessageBus.Close(); err != nil {
			a.logger.WithError(err).Error("Error closing message bus")
			errs = append(errs, err)
		}
	}

	if err := a.db.Close(); err != nil {
		a.logger.WithError(err).Error("Error closing database connections")
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func setupLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Logging.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	return logger
}

func (a *App) setupRouter() {
	if a.config.Server.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(a.logger))
	router.Use(middleware.Recovery(a.logger))
	router.Use(middleware.CORS(a.config))
	router.Use(middleware.Compression())

	validate := middleware.NewValidationMiddleware(a.validator)

	router.GET("/health", a.handlers.Health.Check)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/debug/schema", a.handlers.Debug.Schema)

	api := router.Group("/api/v1")
	{
		recommendations := api.Group("/recommendations")
		{
			recommendations.GET("/:userId", a.handlers.Recommendation.Get)
			recommendations.GET("/:userId/filtered", a.handlers.Recommendation.GetFiltered)
			recommendations.POST("/:userId/filtered",
				validate.ValidateBody(validation.SchemaFilteredRecommendation, true),
				a.handlers.Recommendation.PostFiltered)
		}

		api.GET("/preferences/:userId/movies", a.handlers.Preference.GetMovies)
		api.GET("/users/:userId/summary", a.handlers.Preference.GetSummary)

		api.POST("/ratings", validate.ValidateBody(validation.SchemaRating, false), a.handlers.Feedback.RateMovie)
		api.GET("/ratings/:userId", a.handlers.Feedback.GetRatings)

		watchlist := api.Group("/watchlist")
		{
			watchlist.POST("", validate.ValidateBody(validation.SchemaWatchlist, false), a.handlers.Feedback.AddToWatchlist)
			watchlist.GET("/:userId", a.handlers.Feedback.GetWatchlist)
			watchlist.DELETE("/:userId/:movieId", a.handlers.Feedback.RemoveFromWatchlist)
		}

		// Catalog lists do not depend on the caller and are cached whole.
		movies := api.Group("/movies")
		movies.Use(middleware.ResponseCache(a.services.Cache, middleware.CacheConfig{
			TTL:       a.config.Server.ResponseCacheTTL,
			MaxSize:   1 << 20,
			KeyPrefix: "http:movies",
		}, a.logger))
		{
			movies.GET("", a.handlers.Movie.List)
			movies.GET("/upcoming", a.handlers.Movie.Upcoming)
			movies.GET("/popular/recent", a.handlers.Movie.RecentPopular)
			movies.GET("/:movieId", a.handlers.Movie.Get)
		}
	}

	a.router = router
}
