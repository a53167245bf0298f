package models

type Movie struct {
	ID               int64   `json:"id"`
	Title            string  `json:"title"`
	Overview         string  `json:"overview"`
	PosterPath       string  `json:"poster_path"`
	ReleaseDate      string  `json:"release_date"`
	OriginalLanguage string  `json:"original_language"`
	Popularity       float64 `json:"popularity"`
	VoteCount        int64   `json:"vote_count"`
	VoteAverage      float64 `json:"vote_average"`
}

// MovieWithStats is a movie as shown inside a preference group.
type MovieWithStats struct {
	ID              int64   `json:"id"`
	Title           string  `json:"title"`
	Overview        string  `json:"overview"`
	PosterPath      string  `json:"poster_path"`
	ReleaseDate     string  `json:"release_date"`
	Popularity      float64 `json:"popularity"`
	VoteCount       int64   `json:"vote_count"`
	VoteAverage     float64 `json:"vote_average"`
	PopularityScore float64 `json:"popularity_score"`
	Watched         bool    `json:"watched"`
}

type MovieListRequest struct {
	Language string
	Days     int
	Limit    int
}
