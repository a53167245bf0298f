package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/temcen/cinerank/internal/ml"
	"github.com/temcen/cinerank/internal/semantic"
	"github.com/temcen/cinerank/internal/store"
)

const (
	maxUserIDLength = 255
	minLimit        = 1
	maxLimit        = 100

	// statusClientClosedRequest is reported when the caller went away.
	statusClientClosedRequest = 499
)

func errorBody(code, message string) gin.H {
	return gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	}
}

func badRequest(c *gin.Context, code, message string) {
	c.JSON(http.StatusBadRequest, errorBody(code, message))
}

// respondError maps service errors onto HTTP statuses and error codes.
func respondError(c *gin.Context, logger *logrus.Logger, err error, operation string) {
	status, code, message := http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error"

	switch {
	case errors.Is(err, store.ErrNotFound):
		status, code, message = http.StatusNotFound, "NOT_FOUND", "Resource not found"
	case errors.Is(err, store.ErrNotSupported):
		status, code, message = http.StatusNotImplemented, "NOT_SUPPORTED", "Operation not supported by the database schema"
	case errors.Is(err, semantic.ErrDimensionMismatch):
		code, message = "EMBEDDING_DIMENSION_MISMATCH", "Query and stored embeddings have different dimensions"
	case errors.Is(err, ml.ErrProviderFailed):
		status, code, message = http.StatusServiceUnavailable, "EMBEDDING_UNAVAILABLE", "Embedding provider is unavailable"
	case errors.Is(err, store.ErrUnavailable):
		code, message = "STORE_UNAVAILABLE", "Candidate store is unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		status, code, message = http.StatusGatewayTimeout, "TIMEOUT", "Request timed out"
	case errors.Is(err, context.Canceled):
		status, code, message = statusClientClosedRequest, "REQUEST_CANCELLED", "Request cancelled"
	}

	entry := logger.WithError(err).WithFields(logrus.Fields{
		"operation":  operation,
		"status":     status,
		"request_id": c.GetString("request_id"),
	})
	if status >= http.StatusInternalServerError {
		entry.Error("Request failed")
	} else {
		entry.Debug("Request rejected")
	}

	c.JSON(status, errorBody(code, message))
}

// userIDParam validates the :userId path parameter. It writes the 400
// response itself and reports false on failure.
func userIDParam(c *gin.Context) (string, bool) {
	userID := strings.TrimSpace(c.Param("userId"))
	if userID == "" || len(userID) > maxUserIDLength {
		badRequest(c, "INVALID_USER_ID", "User ID must be 1 to 255 characters")
		return "", false
	}
	return userID, true
}

func movieIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("movieId"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "INVALID_MOVIE_ID", "Movie ID must be a positive integer")
		return 0, false
	}
	return id, true
}

// watchedQuery parses the optional watched tri-state.
func watchedQuery(c *gin.Context) (*bool, bool) {
	raw, ok := c.GetQuery("watched")
	if !ok || strings.TrimSpace(raw) == "" {
		return nil, true
	}
	watched, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		badRequest(c, "INVALID_WATCHED", "watched must be true or false")
		return nil, false
	}
	return &watched, true
}

// limitQuery returns 0 when absent so the service default applies.
func limitQuery(c *gin.Context) (int, bool) {
	raw := strings.TrimSpace(c.Query("limit"))
	if raw == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < minLimit || limit > maxLimit {
		badRequest(c, "INVALID_LIMIT", "limit must be an integer between 1 and 100")
		return 0, false
	}
	return limit, true
}

// listQuery splits a comma separated parameter and drops empty entries.
func listQuery(c *gin.Context, name string) []string {
	var out []string
	for _, raw := range c.QueryArray(name) {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
