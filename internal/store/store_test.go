package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/temcen/cinerank/internal/query"
	"github.com/temcen/cinerank/internal/schema"
	"github.com/temcen/cinerank/internal/semantic"
	"github.com/temcen/cinerank/pkg/models"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func testSchema() *schema.Schema {
	return schema.Static("user_id", map[schema.Logical]string{
		schema.Movies:      "movies",
		schema.Affinity:    "user_movie_predictions",
		schema.Ratings:     "user_ratings",
		schema.Watchlist:   "watchlist",
		schema.Embeddings:  "movie_embeddings",
		schema.Cast:        "movie_cast",
		schema.Crew:        "movie_crew",
		schema.Genres:      "tmdb_movie_genres",
		schema.Preferences: "user_preferences",
		schema.Summaries:   "user_summaries",
	})
}

func newTestStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	mockDB, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockDB.Close)
	return New(mockDB, testSchema(), testLogger()), mockDB
}

func candidateRows() *pgxmock.Rows {
	return pgxmock.NewRows(query.CandidateColumns)
}

func float64Ptr(v float64) *float64 { return &v }

func TestStore_FindCandidates(t *testing.T) {
	store, mockDB := newTestStore(t)

	plan := query.Build(query.FilterSet{UserID: "user_1", Enabled: query.AllCategories, Limit: 100}, store.Schema())

	rows := candidateRows().
		AddRow(int64(1), "Vikram", "An agent hunts", "/p1.jpg", "2022-06-03", "ta", 55.2, int64(1200), 8.1,
			0.9, false, float64Ptr(4.5), true, []float32(nil)).
		AddRow(int64(2), "Leo", "", "", "", "ta", 40.0, int64(0), 0.0,
			0.4, true, (*float64)(nil), false, []float32(nil))

	mockDB.ExpectQuery(`FROM "movies" m`).WithArgs("user_1", 0.0, 100).WillReturnRows(rows)

	candidates, err := store.FindCandidates(context.Background(), plan)
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	assert.Equal(t, int64(1), candidates[0].ID)
	assert.Equal(t, "Vikram", candidates[0].Title)
	assert.Equal(t, 0.9, candidates[0].Affinity)
	require.NotNil(t, candidates[0].UserRating)
	assert.Equal(t, 4.5, *candidates[0].UserRating)
	assert.True(t, candidates[0].IsWatchlisted)
	assert.True(t, candidates[0].IsWatched())
	assert.Nil(t, candidates[0].Similarity)

	assert.Nil(t, candidates[1].UserRating)
	assert.True(t, candidates[1].IsWatched(), "affinity flag applies without a rating")

	require.NoError(t, mockDB.ExpectationsWereMet())
}

func TestStore_FindCandidates_Semantic(t *testing.T) {
	store, mockDB := newTestStore(t)

	pred := &semantic.Predicate{Vector: []float32{1, 0}, Threshold: 0.5, Mode: semantic.ModePrimary}
	plan := query.Build(query.FilterSet{UserID: "user_1", Semantic: pred}, store.Schema())
	require.NotNil(t, plan.Semantic)

	rows := candidateRows().
		AddRow(int64(1), "Close", "", "", "", "en", 1.0, int64(10), 7.0, 0.5, false, (*float64)(nil), false, []float32{1, 0.1}).
		AddRow(int64(2), "Far", "", "", "", "en", 1.0, int64(10), 7.0, 0.9, false, (*float64)(nil), false, []float32{0, 1}).
		AddRow(int64(3), "NoEmbedding", "", "", "", "en", 1.0, int64(10), 7.0, 0.9, false, (*float64)(nil), false, []float32(nil))

	mockDB.ExpectQuery("movie_embeddings").WithArgs("user_1", 0.0).WillReturnRows(rows)

	candidates, err := store.FindCandidates(context.Background(), plan)
	require.NoError(t, err)
	require.Len(t, candidates, 1)

	assert.Equal(t, int64(1), candidates[0].ID)
	require.NotNil(t, candidates[0].Similarity)
	assert.Greater(t, *candidates[0].Similarity, 0.99)
	assert.Nil(t, candidates[0].Embedding)
}

func TestStore_FindCandidates_NoEmbeddingStillEligibleWithoutSemantic(t *testing.T) {
	store, mockDB := newTestStore(t)

	plan := query.Build(query.FilterSet{UserID: "user_1"}, store.Schema())
	rows := candidateRows().
		AddRow(int64(3), "NoEmbedding", "", "", "", "en", 1.0, int64(10), 7.0, 0.9, false, (*float64)(nil), false, []float32(nil))
	mockDB.ExpectQuery("SELECT").WillReturnRows(rows)

	candidates, err := store.FindCandidates(context.Background(), plan)
	require.NoError(t, err)
	assert.Len(t, candidates, 1)
}

func TestStore_FindCandidates_DimensionMismatch(t *testing.T) {
	store, mockDB := newTestStore(t)

	pred := &semantic.Predicate{Vector: []float32{1, 0}, Threshold: 0.5}
	plan := query.Build(query.FilterSet{UserID: "user_1", Semantic: pred}, store.Schema())

	rows := candidateRows().
		AddRow(int64(1), "Wrong", "", "", "", "en", 1.0, int64(10), 7.0, 0.5, false, (*float64)(nil), false, []float32{1, 0, 0})
	mockDB.ExpectQuery("SELECT").WillReturnRows(rows)

	_, err := store.FindCandidates(context.Background(), plan)
	assert.ErrorIs(t, err, semantic.ErrDimensionMismatch)
}

func TestStore_FindCandidates_Unavailable(t *testing.T) {
	store, mockDB := newTestStore(t)

	plan := query.Build(query.FilterSet{UserID: "user_1"}, store.Schema())
	mockDB.ExpectQuery("SELECT").WillReturnError(errors.New("connection refused"))

	_, err := store.FindCandidates(context.Background(), plan)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestStore_FindCandidates_CancelledContextIsNotAnOutage(t *testing.T) {
	store, mockDB := newTestStore(t)

	plan := query.Build(query.FilterSet{UserID: "user_1"}, store.Schema())
	mockDB.ExpectQuery("SELECT").WillReturnError(context.Canceled)

	_, err := store.FindCandidates(context.Background(), plan)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrUnavailable)
}

func TestStore_Lookup(t *testing.T) {
	store, mockDB := newTestStore(t)

	rows := pgxmock.NewRows(query.LookupColumns).
		AddRow(int64(7), "Master", "Professor", "/m.jpg", "2021-01-13", 30.0, int64(800), 7.5, true)
	mockDB.ExpectQuery("movie_cast").WithArgs("user_1", "%Vijay%", 20).WillReturnRows(rows)

	movies, err := store.Lookup(context.Background(), query.LookupRequest{
		Kind: query.LookupCast, UserID: "user_1", Name: "Vijay", Limit: 20,
	})
	require.NoError(t, err)
	require.Len(t, movies, 1)
	assert.Equal(t, 225.0, movies[0].PopularityScore)
	assert.True(t, movies[0].Watched)
}

func TestStore_Lookup_UnavailableTableSkipsQuery(t *testing.T) {
	mockDB, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockDB.Close()

	s := New(mockDB, schema.Static("user_id", map[schema.Logical]string{
		schema.Movies: "movies", schema.Affinity: "user_movie_predictions",
	}), testLogger())

	movies, err := s.Lookup(context.Background(), query.LookupRequest{Kind: query.LookupCast, UserID: "u", Name: "x"})
	require.NoError(t, err)
	assert.NotNil(t, movies)
	assert.Empty(t, movies)
	require.NoError(t, mockDB.ExpectationsWereMet())
}

func TestStore_PreferenceProfile(t *testing.T) {
	store, mockDB := newTestStore(t)

	columns := make([]string, 0, 24)
	values := make([]interface{}, 0, 24)
	slots := map[string][][2]interface{}{
		"cast":    {{"Vijay", 0.9}, {"Trisha", 0.4}, {"", 0.0}},
		"crew":    {{"Lokesh Kanagaraj (Director)", 0.8}, {"", 0.0}, {"", 0.0}},
		"genre":   {{"action", 0.0}, {"drama", 0.0}, {"", 0.0}},
		"keyword": {{"heist", 0.5}, {"", 0.0}, {"", 0.0}},
	}
	for _, category := range []string{"cast", "crew", "genre", "keyword"} {
		for i, slot := range slots[category] {
			columns = append(columns, category+"_"+string(rune('1'+i)), category+"_"+string(rune('1'+i))+"_score")
			values = append(values, slot[0], slot[1])
		}
	}

	mockDB.ExpectQuery(`FROM "user_preferences" WHERE "user_id" = \$1`).
		WithArgs("user_1").
		WillReturnRows(pgxmock.NewRows(columns).AddRow(values...))

	profile, err := store.PreferenceProfile(context.Background(), "user_1")
	require.NoError(t, err)
	require.NotNil(t, profile)

	assert.Equal(t, models.PreferenceSlot{Name: "Vijay", Score: 0.9}, profile.Slots[models.CategoryCast][0])
	assert.Equal(t, "Lokesh Kanagaraj (Director)", profile.Slots[models.CategoryCrew][0].Name)
	assert.Len(t, profile.Slots[models.CategoryGenre], 3)
	assert.Equal(t, "heist", profile.Slots[models.CategoryKeyword][0].Name)
}

func TestStore_PreferenceProfile_Missing(t *testing.T) {
	store, mockDB := newTestStore(t)

	mockDB.ExpectQuery("user_preferences").WithArgs("nobody").
		WillReturnRows(pgxmock.NewRows([]string{"cast_1"}))

	profile, err := store.PreferenceProfile(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Nil(t, profile)
}

func TestStore_UserSummary(t *testing.T) {
	store, mockDB := newTestStore(t)

	mockDB.ExpectQuery("user_summaries").WithArgs("user_1").
		WillReturnRows(pgxmock.NewRows([]string{"summary"}).AddRow("Loves Tamil action films"))
	mockDB.ExpectQuery("user_summaries").WithArgs("user_2").
		WillReturnRows(pgxmock.NewRows([]string{"summary"}))

	summary, err := store.UserSummary(context.Background(), "user_1")
	require.NoError(t, err)
	assert.Equal(t, "Loves Tamil action films", summary.Summary)

	_, err = store.UserSummary(context.Background(), "user_2")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_MovieByID(t *testing.T) {
	store, mockDB := newTestStore(t)

	movieCols := []string{"id", "title", "overview", "poster_path", "release_date", "original_language", "popularity", "vote_count", "vote_average"}
	mockDB.ExpectQuery("WHERE m.id = ").WithArgs(int64(42)).
		WillReturnRows(pgxmock.NewRows(movieCols).AddRow(int64(42), "Jailer", "", "", "2023-08-10", "ta", 70.0, int64(300), 7.1))
	mockDB.ExpectQuery("WHERE m.id = ").WithArgs(int64(43)).
		WillReturnRows(pgxmock.NewRows(movieCols))

	movie, err := store.MovieByID(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, "Jailer", movie.Title)

	_, err = store.MovieByID(context.Background(), 43)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_UpsertRating(t *testing.T) {
	store, mockDB := newTestStore(t)

	now := time.Now()
	mockDB.ExpectQuery(`ON CONFLICT \("user_id", movie_id\) DO UPDATE`).
		WithArgs("user_1", int64(42), 4.5).
		WillReturnRows(pgxmock.NewRows([]string{"rating", "created_at", "updated_at"}).AddRow(4.5, now, now))

	rating, err := store.UpsertRating(context.Background(), models.RatingRequest{UserID: "user_1", MovieID: 42, Rating: 4.5})
	require.NoError(t, err)
	assert.Equal(t, 4.5, rating.Rating)
	assert.Equal(t, now, rating.UpdatedAt)
}

func TestStore_RemoveFromWatchlist(t *testing.T) {
	store, mockDB := newTestStore(t)

	mockDB.ExpectExec(`DELETE FROM "watchlist"`).WithArgs("user_1", int64(42)).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mockDB.ExpectExec(`DELETE FROM "watchlist"`).WithArgs("user_1", int64(43)).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	require.NoError(t, store.RemoveFromWatchlist(context.Background(), "user_1", 42))
	assert.ErrorIs(t, store.RemoveFromWatchlist(context.Background(), "user_1", 43), ErrNotFound)
}

func TestStore_AddToWatchlist(t *testing.T) {
	store, mockDB := newTestStore(t)

	now := time.Now()
	mockDB.ExpectExec(`INSERT INTO "watchlist"`).WithArgs("user_1", int64(42)).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))
	mockDB.ExpectQuery(`SELECT created_at FROM "watchlist"`).WithArgs("user_1", int64(42)).
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(now))

	entry, err := store.AddToWatchlist(context.Background(), models.WatchlistRequest{UserID: "user_1", MovieID: 42})
	require.NoError(t, err)
	assert.Equal(t, now, entry.CreatedAt)
}
