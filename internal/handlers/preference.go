package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/temcen/cinerank/internal/services"
)

type PreferenceHandler struct {
	service services.PreferenceServiceInterface
	logger  *logrus.Logger
}

func NewPreferenceHandler(service services.PreferenceServiceInterface, logger *logrus.Logger) *PreferenceHandler {
	return &PreferenceHandler{
		service: service,
		logger:  logger,
	}
}

func (h *PreferenceHandler) GetMovies(c *gin.Context) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}
	watched, ok := watchedQuery(c)
	if !ok {
		return
	}

	response, err := h.service.PreferenceMovies(c.Request.Context(), userID, watched)
	if err != nil {
		respondError(c, h.logger, err, "preference_movies")
		return
	}
	c.JSON(http.StatusOK, response)
}

func (h *PreferenceHandler) GetSummary(c *gin.Context) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}

	summary, err := h.service.UserSummary(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, err, "user_summary")
		return
	}
	c.JSON(http.StatusOK, summary)
}
