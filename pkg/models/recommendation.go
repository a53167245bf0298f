package models

import (
	"time"
)

// Candidate is a movie joined with the per-user signals used for ranking.
// It lives for a single request.
type Candidate struct {
	Movie
	Affinity        float64
	AffinityWatched bool
	UserRating      *float64
	IsWatchlisted   bool
	Embedding       []float32
	Similarity      *float64
	RankKey         float64
}

// IsWatched reports whether the user has seen the movie. A rating counts as
// watched; otherwise the affinity record's own flag decides.
func (c *Candidate) IsWatched() bool {
	return c.UserRating != nil || c.AffinityWatched
}

type MovieRecommendation struct {
	ID                  int64    `json:"id"`
	Title               string   `json:"title"`
	Overview            string   `json:"overview"`
	PosterPath          string   `json:"poster_path"`
	ReleaseDate         string   `json:"release_date"`
	OriginalLanguage    string   `json:"original_language"`
	Popularity          float64  `json:"popularity"`
	VoteCount           int64    `json:"vote_count"`
	VoteAverage         float64  `json:"vote_average"`
	PredictedScore      float64  `json:"predicted_score"`
	PredictedStarRating float64  `json:"predicted_star_rating"`
	UserRating          *float64 `json:"user_rating"`
	Watched             bool     `json:"watched"`
	IsWatchlisted       bool     `json:"is_watchlisted"`
	Similarity          *float64 `json:"similarity,omitempty"`
}

type RecommendationRequest struct {
	UserID  string `json:"user_id" validate:"required"`
	Watched *bool  `json:"watched,omitempty"`
	Limit   int    `json:"limit" validate:"min=1,max=100"`
}

type FilteredRecommendationRequest struct {
	RecommendationRequest
	Cast      []string `json:"cast,omitempty"`
	Crew      []string `json:"crew,omitempty"`
	Genres    []string `json:"genre,omitempty"`
	Languages []string `json:"language,omitempty"`
	Query     string   `json:"query,omitempty"`
}

// RelaxationInfo describes which ladder attempt produced the result.
type RelaxationInfo struct {
	Rung         string `json:"rung"`
	SemanticMode string `json:"semantic_mode"`
	Attempts     int    `json:"attempts"`
	Exhausted    bool   `json:"exhausted"`
}

type RecommendationResponse struct {
	UserID          string                `json:"user_id"`
	Recommendations []MovieRecommendation `json:"recommendations"`
	Relaxation      RelaxationInfo        `json:"relaxation"`
	CacheHit        bool                  `json:"cache_hit"`
	GeneratedAt     time.Time             `json:"generated_at"`
}

// HasFilters reports whether any hard filter or semantic query was given.
func (r *FilteredRecommendationRequest) HasFilters() bool {
	return len(r.Cast) > 0 || len(r.Crew) > 0 || len(r.Genres) > 0 || len(r.Languages) > 0 || r.Query != ""
}
