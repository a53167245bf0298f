package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/temcen/cinerank/internal/schema"
)

// featuresByTable lists what stops working when an optional table is absent.
var featuresByTable = []struct {
	table    schema.Logical
	features []string
}{
	{schema.Cast, []string{"cast_filter", "cast_preferences"}},
	{schema.Crew, []string{"crew_filter", "crew_preferences"}},
	{schema.Genres, []string{"genre_filter", "genre_preferences"}},
	{schema.Embeddings, []string{"semantic_query"}},
	{schema.Ratings, []string{"ratings", "rating_watched_signal"}},
	{schema.Watchlist, []string{"watchlist"}},
	{schema.Preferences, []string{"preference_groups"}},
	{schema.Summaries, []string{"user_summary"}},
}

type DebugHandler struct {
	schema *schema.Schema
}

func NewDebugHandler(s *schema.Schema) *DebugHandler {
	return &DebugHandler{schema: s}
}

// Schema reports the resolved table mapping and the features it disables.
func (h *DebugHandler) Schema(c *gin.Context) {
	disabled := []string{}
	for _, entry := range featuresByTable {
		if !h.schema.Has(entry.table) {
			disabled = append(disabled, entry.features...)
		}
	}

	missing := h.schema.Missing()
	if missing == nil {
		missing = []string{}
	}

	c.JSON(http.StatusOK, gin.H{
		"tables":            h.schema.Mapping(),
		"missing_tables":    missing,
		"disabled_features": disabled,
	})
}
