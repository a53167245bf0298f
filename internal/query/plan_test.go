package query

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/temcen/cinerank/internal/schema"
	"github.com/temcen/cinerank/internal/semantic"
)

func fullSchema() *schema.Schema {
	return schema.Static("user_id", map[schema.Logical]string{
		schema.Movies:     "movies",
		schema.Affinity:   "user_movie_predictions",
		schema.Ratings:    "user_ratings",
		schema.Watchlist:  "watchlist",
		schema.Embeddings: "movie_embeddings",
		schema.Cast:       "movie_cast",
		schema.Crew:       "movie_crew",
		schema.Genres:     "tmdb_movie_genres",
	})
}

func minimalSchema() *schema.Schema {
	return schema.Static("user_id", map[schema.Logical]string{
		schema.Movies:   "movies",
		schema.Affinity: "user_movie_predictions",
	})
}

func boolPtr(b bool) *bool { return &b }

func TestBuild_AllFilters(t *testing.T) {
	pred := &semantic.Predicate{Vector: []float32{1, 0}, Threshold: 0.5, Mode: semantic.ModePrimary}
	fs := FilterSet{
		UserID:    "user_1",
		Cast:      []string{"Vijay", " "},
		Crew:      []string{"Lokesh Kanagaraj (Director)", "Anirudh"},
		Genres:    []string{"Action"},
		Languages: []string{"TA", "en"},
		Watched:   boolPtr(false),
		Enabled:   AllCategories,
		Semantic:  pred,
		Limit:     500,

		RankCoefficient: 0.04,
	}

	plan := Build(fs, fullSchema())

	assert.Contains(t, plan.SQL, `FROM "movies" m`)
	assert.Contains(t, plan.SQL, `JOIN "user_movie_predictions" a ON a.movie_id = m.id AND a."user_id" = $1`)
	assert.Contains(t, plan.SQL, `LEFT JOIN "user_ratings" r ON r.movie_id = m.id AND r."user_id" = $1`)
	assert.Contains(t, plan.SQL, `LEFT JOIN "watchlist" w`)
	assert.Contains(t, plan.SQL, `JOIN "movie_embeddings" e ON e.movie_id = m.id`)
	assert.Contains(t, plan.SQL, "e.embedding IS NOT NULL")
	assert.Contains(t, plan.SQL, `EXISTS (SELECT 1 FROM "movie_cast" c WHERE c.movie_id = m.id AND (c.name ILIKE $2))`)
	assert.Contains(t, plan.SQL, `(cr.name ILIKE $3 AND LOWER(cr.job) = LOWER($4)) OR cr.name ILIKE $5`)
	assert.Contains(t, plan.SQL, `CAST(g.genres AS TEXT) ILIKE $6`)
	assert.Contains(t, plan.SQL, `LOWER(m.original_language) = ANY($7)`)
	assert.Contains(t, plan.SQL, `(r.movie_id IS NOT NULL OR COALESCE(a.watched, false)) = $8`)
	assert.Contains(t, plan.SQL, "ORDER BY (CASE WHEN r.rating IS NULL THEN COALESCE(a.predicted_score, 0)")
	assert.Contains(t, plan.SQL, "CAST($9 AS DOUBLE PRECISION) * COALESCE(m.vote_average, 0)")
	// Semantic matches are thresholded after the read, so the row cap is not pushed down.
	assert.NotContains(t, plan.SQL, "LIMIT")
	assert.Equal(t, 0, plan.Limit)

	assert.Equal(t, []interface{}{
		"user_1",
		"%Vijay%",
		"%Lokesh Kanagaraj%", "Director",
		"%Anirudh%",
		"%Action%",
		[]string{"ta", "en"},
		false,
		0.04,
	}, plan.Args)
	assert.Same(t, pred, plan.Semantic)
	assert.Equal(t, NoCategories, plan.Skipped)
	assert.False(t, plan.SemanticSkipped)
}

func TestBuild_DisabledCategoriesAddNoPredicate(t *testing.T) {
	fs := FilterSet{
		UserID:    "user_1",
		Cast:      []string{"Vijay"},
		Crew:      []string{"Atlee"},
		Genres:    []string{"Drama"},
		Languages: []string{"ta"},
		Watched:   boolPtr(true),
		Enabled:   CategoryCrew,
	}

	plan := Build(fs, fullSchema())

	assert.NotContains(t, plan.SQL, "movie_cast")
	assert.NotContains(t, plan.SQL, "tmdb_movie_genres")
	assert.NotContains(t, plan.SQL, "original_language) = ANY")
	assert.NotContains(t, plan.SQL, ") = $")
	assert.Contains(t, plan.SQL, "movie_crew")
	assert.NotContains(t, plan.SQL, "movie_embeddings")
	assert.Equal(t, []interface{}{"user_1", "%Atlee%", 0.0}, plan.Args)
	assert.Nil(t, plan.Semantic)
}

func TestBuild_NoFilters(t *testing.T) {
	plan := Build(FilterSet{UserID: "u", Enabled: AllCategories}, fullSchema())

	assert.NotContains(t, plan.SQL, "EXISTS")
	assert.NotContains(t, plan.SQL, "LIMIT")
	assert.Equal(t, []interface{}{"u", 0.0}, plan.Args)
}

func TestBuild_OrdersByRankKeyBeforeLimit(t *testing.T) {
	fs := FilterSet{UserID: "u", Enabled: AllCategories, Limit: 1000, RankCoefficient: 0.04}

	plan := Build(fs, fullSchema())

	order := plan.SQL[strings.Index(plan.SQL, "ORDER BY"):]
	assert.Equal(t, "ORDER BY "+RankKeyExpr(fullSchema(), "$2")+" DESC, m.id ASC\nLIMIT $3", order)
	assert.Contains(t, order, "SQRT(GREATEST(COALESCE(a.predicted_score, 0) * r.rating, 0))")
	assert.Contains(t, order, "LOG(CAST(GREATEST(COALESCE(m.vote_count, 0), 1) AS DOUBLE PRECISION))")
	assert.Equal(t, []interface{}{"u", 0.04, 1000}, plan.Args)
	assert.Equal(t, 1000, plan.Limit)
}

func TestRankKeyExpr_WithoutRatings(t *testing.T) {
	expr := RankKeyExpr(minimalSchema(), "$2")

	assert.NotContains(t, expr, "r.rating")
	assert.True(t, strings.HasPrefix(expr, "(COALESCE(a.predicted_score, 0) + CAST($2 AS DOUBLE PRECISION)"))
}

func TestBuild_UnsetWatchedIsNotConstrained(t *testing.T) {
	plan := Build(FilterSet{UserID: "u", Enabled: CategoryWatched}, fullSchema())

	assert.NotContains(t, plan.SQL, "OR COALESCE(a.watched, false)) =")
}

func TestBuild_PartialSchema(t *testing.T) {
	fs := FilterSet{
		UserID:   "u",
		Cast:     []string{"Vijay"},
		Crew:     []string{"Atlee"},
		Genres:   []string{"Drama"},
		Watched:  boolPtr(true),
		Enabled:  AllCategories,
		Semantic: &semantic.Predicate{Vector: []float32{1}, Threshold: 0.5},
	}

	plan := Build(fs, minimalSchema())

	assert.Equal(t, CategoryCast|CategoryCrew|CategoryGenre, plan.Skipped)
	assert.True(t, plan.SemanticSkipped)
	assert.Nil(t, plan.Semantic)
	assert.NotContains(t, plan.SQL, "EXISTS")
	assert.NotContains(t, plan.SQL, "LEFT JOIN")
	assert.Contains(t, plan.SQL, "CAST(NULL AS DOUBLE PRECISION)")
	// Without a ratings table, watched falls back to the affinity flag alone.
	assert.Contains(t, plan.SQL, "AND COALESCE(a.watched, false) = $2")
}

func TestBuild_IsPure(t *testing.T) {
	fs := FilterSet{UserID: "u", Cast: []string{"A", "B"}, Enabled: AllCategories, Limit: 10}

	first := Build(fs, fullSchema())
	second := Build(fs, fullSchema())

	assert.Equal(t, first, second)
	assert.Equal(t, []string{"A", "B"}, fs.Cast)
}

func TestBuild_SelectsCandidateColumns(t *testing.T) {
	plan := Build(FilterSet{UserID: "u"}, fullSchema())
	selectList := plan.SQL[:strings.Index(plan.SQL, "FROM")]

	assert.Contains(t, selectList, "CAST(r.rating AS DOUBLE PRECISION)")
	assert.Contains(t, selectList, "(w.movie_id IS NOT NULL)")
	assert.Contains(t, selectList, "CAST(NULL AS REAL[])")
	assert.Len(t, CandidateColumns, 14)
}

func TestBuildLookup(t *testing.T) {
	s := fullSchema()

	t.Run("cast", func(t *testing.T) {
		plan := BuildLookup(LookupRequest{Kind: LookupCast, UserID: "u", Name: "Vijay", Limit: 20}, s)
		assert.False(t, plan.Unavailable)
		assert.Contains(t, plan.SQL, `FROM "movie_cast" c WHERE c.movie_id = m.id AND c.name ILIKE $2`)
		assert.Contains(t, plan.SQL, "ORDER BY COALESCE(m.popularity, 0) * COALESCE(m.vote_average, 0) DESC, m.id ASC")
		assert.Equal(t, []interface{}{"u", "%Vijay%", 20}, plan.Args)
	})

	t.Run("crew with job", func(t *testing.T) {
		plan := BuildLookup(LookupRequest{Kind: LookupCrew, UserID: "u", Name: "Nolan", Job: "Director"}, s)
		assert.Contains(t, plan.SQL, "cr.name ILIKE $2 AND LOWER(cr.job) = LOWER($3)")
		assert.Equal(t, []interface{}{"u", "%Nolan%", "Director"}, plan.Args)
	})

	t.Run("crew department", func(t *testing.T) {
		plan := BuildLookup(LookupRequest{Kind: LookupCrewDepartment, UserID: "u", Name: "Nolan", Job: "Directing"}, s)
		assert.Contains(t, plan.SQL, "LOWER(cr.department) = LOWER($3)")
	})

	t.Run("crew department needs a job", func(t *testing.T) {
		plan := BuildLookup(LookupRequest{Kind: LookupCrewDepartment, UserID: "u", Name: "Nolan"}, s)
		assert.True(t, plan.Unavailable)
	})

	t.Run("keyword variants", func(t *testing.T) {
		plan := BuildLookup(LookupRequest{Kind: LookupKeyword, UserID: "u", Keywords: []string{"time travel", "time-travel"}}, s)
		assert.Contains(t, plan.SQL, "m.title ILIKE $2 OR COALESCE(m.overview, '') ILIKE $2 OR m.title ILIKE $3")
		assert.Equal(t, []interface{}{"u", "%time travel%", "%time-travel%"}, plan.Args)
	})

	t.Run("watched filter", func(t *testing.T) {
		plan := BuildLookup(LookupRequest{Kind: LookupGenre, UserID: "u", Name: "drama", Watched: boolPtr(true)}, s)
		assert.Contains(t, plan.SQL, "AND (r.movie_id IS NOT NULL OR COALESCE(a.watched, false)) = $3")
		assert.Equal(t, []interface{}{"u", "%drama%", true}, plan.Args)
	})

	t.Run("missing table is unavailable", func(t *testing.T) {
		plan := BuildLookup(LookupRequest{Kind: LookupGenre, UserID: "u", Name: "drama"}, minimalSchema())
		assert.True(t, plan.Unavailable)
		assert.Empty(t, plan.SQL)
	})
}
