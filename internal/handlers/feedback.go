package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/temcen/cinerank/internal/services"
	"github.com/temcen/cinerank/pkg/models"
)

type FeedbackHandler struct {
	service  services.FeedbackServiceInterface
	validate *validator.Validate
	logger   *logrus.Logger
}

func NewFeedbackHandler(service services.FeedbackServiceInterface, logger *logrus.Logger) *FeedbackHandler {
	return &FeedbackHandler{
		service:  service,
		validate: validator.New(),
		logger:   logger,
	}
}

func (h *FeedbackHandler) RateMovie(c *gin.Context) {
	var req models.RatingRequest
	if !h.bind(c, &req) {
		return
	}

	rating, err := h.service.RateMovie(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, err, "rate_movie")
		return
	}
	c.JSON(http.StatusOK, rating)
}

func (h *FeedbackHandler) GetRatings(c *gin.Context) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}

	ratings, err := h.service.Ratings(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, err, "ratings")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user_id": userID,
		"ratings": ratings,
		"total":   len(ratings),
	})
}

func (h *FeedbackHandler) AddToWatchlist(c *gin.Context) {
	var req models.WatchlistRequest
	if !h.bind(c, &req) {
		return
	}

	entry, err := h.service.AddToWatchlist(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, err, "watchlist_add")
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (h *FeedbackHandler) RemoveFromWatchlist(c *gin.Context) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}
	movieID, ok := movieIDParam(c)
	if !ok {
		return
	}

	if err := h.service.RemoveFromWatchlist(c.Request.Context(), userID, movieID); err != nil {
		respondError(c, h.logger, err, "watchlist_remove")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *FeedbackHandler) GetWatchlist(c *gin.Context) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}

	entries, err := h.service.Watchlist(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, err, "watchlist")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user_id":   userID,
		"watchlist": entries,
		"total":     len(entries),
	})
}

// bind decodes and validates a JSON body, answering 400 on failure.
func (h *FeedbackHandler) bind(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		badRequest(c, "INVALID_REQUEST_BODY", "Request body is not valid JSON")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		badRequest(c, "VALIDATION_ERROR", err.Error())
		return false
	}
	return true
}
