package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/temcen/cinerank/internal/services"
	"github.com/temcen/cinerank/pkg/models"
)

const maxRecentDays = 3650

type MovieHandler struct {
	service services.MovieServiceInterface
	logger  *logrus.Logger
}

func NewMovieHandler(service services.MovieServiceInterface, logger *logrus.Logger) *MovieHandler {
	return &MovieHandler{
		service: service,
		logger:  logger,
	}
}

func (h *MovieHandler) List(c *gin.Context) {
	req, ok := listRequest(c)
	if !ok {
		return
	}
	movies, err := h.service.PopularMovies(c.Request.Context(), req)
	h.respondList(c, movies, err, "popular_movies")
}

func (h *MovieHandler) Upcoming(c *gin.Context) {
	req, ok := listRequest(c)
	if !ok {
		return
	}
	movies, err := h.service.UpcomingMovies(c.Request.Context(), req)
	h.respondList(c, movies, err, "upcoming_movies")
}

func (h *MovieHandler) RecentPopular(c *gin.Context) {
	req, ok := listRequest(c)
	if !ok {
		return
	}
	if raw := strings.TrimSpace(c.Query("days")); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil || days < 1 || days > maxRecentDays {
			badRequest(c, "INVALID_DAYS", "days must be an integer between 1 and 3650")
			return
		}
		req.Days = days
	}
	movies, err := h.service.RecentPopularMovies(c.Request.Context(), req)
	h.respondList(c, movies, err, "recent_popular_movies")
}

func (h *MovieHandler) Get(c *gin.Context) {
	id, ok := movieIDParam(c)
	if !ok {
		return
	}

	movie, err := h.service.Movie(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err, "movie")
		return
	}
	c.JSON(http.StatusOK, movie)
}

func (h *MovieHandler) respondList(c *gin.Context, movies []models.Movie, err error, operation string) {
	if err != nil {
		respondError(c, h.logger, err, operation)
		return
	}
	if movies == nil {
		movies = []models.Movie{}
	}
	c.JSON(http.StatusOK, gin.H{
		"movies": movies,
		"total":  len(movies),
	})
}

func listRequest(c *gin.Context) (models.MovieListRequest, bool) {
	limit, ok := limitQuery(c)
	if !ok {
		return models.MovieListRequest{}, false
	}
	return models.MovieListRequest{
		Language: strings.TrimSpace(c.Query("language")),
		Limit:    limit,
	}, true
}
