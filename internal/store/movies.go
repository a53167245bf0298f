package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/temcen/cinerank/internal/schema"
	"github.com/temcen/cinerank/pkg/models"
)

const movieColumns = `m.id, m.title, COALESCE(m.overview, ''), COALESCE(m.poster_path, ''),
	COALESCE(CAST(m.release_date AS TEXT), ''), COALESCE(m.original_language, ''),
	COALESCE(m.popularity, 0), COALESCE(m.vote_count, 0), COALESCE(m.vote_average, 0)`

func movieScanDest(m *models.Movie) []interface{} {
	return []interface{}{
		&m.ID, &m.Title, &m.Overview, &m.PosterPath, &m.ReleaseDate, &m.OriginalLanguage,
		&m.Popularity, &m.VoteCount, &m.VoteAverage,
	}
}

func (s *Store) MovieByID(ctx context.Context, id int64) (*models.Movie, error) {
	sql := fmt.Sprintf("SELECT %s FROM %s m WHERE m.id = $1", movieColumns, s.schema.Table(schema.Movies))

	var m models.Movie
	if err := s.db.QueryRow(ctx, sql, id).Scan(movieScanDest(&m)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, unavailable("movie by id", err)
	}
	return &m, nil
}

// PopularMovies lists released movies in a language by popularity.
func (s *Store) PopularMovies(ctx context.Context, req models.MovieListRequest) ([]models.Movie, error) {
	sql := fmt.Sprintf(`SELECT %s FROM %s m
WHERE LOWER(m.original_language) = LOWER($1) AND m.release_date < CURRENT_DATE
ORDER BY m.popularity DESC NULLS LAST, m.id ASC
LIMIT $2`, movieColumns, s.schema.Table(schema.Movies))

	return s.listMovies(ctx, "popular movies", sql, req.Language, req.Limit)
}

// RecentPopularMovies lists movies released within the last req.Days days.
func (s *Store) RecentPopularMovies(ctx context.Context, req models.MovieListRequest) ([]models.Movie, error) {
	sql := fmt.Sprintf(`SELECT %s FROM %s m
WHERE m.release_date <= CURRENT_DATE AND m.release_date >= CURRENT_DATE - CAST($1 AS INTEGER)
ORDER BY m.popularity DESC NULLS LAST, m.id ASC
LIMIT $2`, movieColumns, s.schema.Table(schema.Movies))

	return s.listMovies(ctx, "recent movies", sql, req.Days, req.Limit)
}

// UpcomingMovies lists movies not yet released, soonest first.
func (s *Store) UpcomingMovies(ctx context.Context, req models.MovieListRequest) ([]models.Movie, error) {
	sql := fmt.Sprintf(`SELECT %s FROM %s m
WHERE m.release_date > CURRENT_DATE
ORDER BY m.release_date ASC, m.popularity DESC NULLS LAST, m.id ASC
LIMIT $1`, movieColumns, s.schema.Table(schema.Movies))

	return s.listMovies(ctx, "upcoming movies", sql, req.Limit)
}

func (s *Store) listMovies(ctx context.Context, op, sql string, args ...interface{}) ([]models.Movie, error) {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, unavailable(op, err)
	}
	defer rows.Close()

	movies := make([]models.Movie, 0)
	for rows.Next() {
		var m models.Movie
		if err := rows.Scan(movieScanDest(&m)...); err != nil {
			return nil, unavailable(op, err)
		}
		movies = append(movies, m)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable(op, err)
	}
	return movies, nil
}
