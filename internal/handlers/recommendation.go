package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/temcen/cinerank/internal/services"
	"github.com/temcen/cinerank/pkg/models"
)

type RecommendationHandler struct {
	service services.RecommendationServiceInterface
	logger  *logrus.Logger
}

func NewRecommendationHandler(service services.RecommendationServiceInterface, logger *logrus.Logger) *RecommendationHandler {
	return &RecommendationHandler{
		service: service,
		logger:  logger,
	}
}

// filteredBody is the POST form of a filtered request. The body has already
// passed schema validation.
type filteredBody struct {
	Cast     []string `json:"cast"`
	Crew     []string `json:"crew"`
	Genre    []string `json:"genre"`
	Language []string `json:"language"`
	Query    string   `json:"query"`
	Watched  *bool    `json:"watched"`
	Limit    int      `json:"limit"`
}

// Get serves plain recommendations; only the watched filter applies.
func (h *RecommendationHandler) Get(c *gin.Context) {
	req, ok := h.baseRequest(c)
	if !ok {
		return
	}
	h.respond(c, &models.FilteredRecommendationRequest{RecommendationRequest: req})
}

func (h *RecommendationHandler) GetFiltered(c *gin.Context) {
	req, ok := h.baseRequest(c)
	if !ok {
		return
	}

	h.respond(c, &models.FilteredRecommendationRequest{
		RecommendationRequest: req,
		Cast:                  listQuery(c, "cast"),
		Crew:                  listQuery(c, "crew"),
		Genres:                listQuery(c, "genre"),
		Languages:             listQuery(c, "language"),
		Query:                 strings.TrimSpace(c.Query("query")),
	})
}

func (h *RecommendationHandler) PostFiltered(c *gin.Context) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}

	var body filteredBody
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			badRequest(c, "INVALID_REQUEST_BODY", "Request body must be a filtered recommendation request")
			return
		}
	}
	if body.Limit != 0 && (body.Limit < minLimit || body.Limit > maxLimit) {
		badRequest(c, "INVALID_LIMIT", "limit must be an integer between 1 and 100")
		return
	}

	h.respond(c, &models.FilteredRecommendationRequest{
		RecommendationRequest: models.RecommendationRequest{
			UserID:  userID,
			Watched: body.Watched,
			Limit:   body.Limit,
		},
		Cast:      trimAll(body.Cast),
		Crew:      trimAll(body.Crew),
		Genres:    trimAll(body.Genre),
		Languages: trimAll(body.Language),
		Query:     strings.TrimSpace(body.Query),
	})
}

func (h *RecommendationHandler) baseRequest(c *gin.Context) (models.RecommendationRequest, bool) {
	userID, ok := userIDParam(c)
	if !ok {
		return models.RecommendationRequest{}, false
	}
	watched, ok := watchedQuery(c)
	if !ok {
		return models.RecommendationRequest{}, false
	}
	limit, ok := limitQuery(c)
	if !ok {
		return models.RecommendationRequest{}, false
	}

	return models.RecommendationRequest{UserID: userID, Watched: watched, Limit: limit}, true
}

func (h *RecommendationHandler) respond(c *gin.Context, req *models.FilteredRecommendationRequest) {
	response, err := h.service.Recommend(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, err, "recommend")
		return
	}
	c.JSON(http.StatusOK, response)
}

func trimAll(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
