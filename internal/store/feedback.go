package store

import (
	"context"
	"fmt"

	"github.com/temcen/cinerank/internal/schema"
	"github.com/temcen/cinerank/pkg/models"
)

// UpsertRating stores a rating, replacing any earlier rating of the same movie.
func (s *Store) UpsertRating(ctx context.Context, req models.RatingRequest) (*models.Rating, error) {
	if !s.schema.Has(schema.Ratings) {
		return nil, ErrNotSupported
	}
	user := s.schema.UserColumn()
	sql := fmt.Sprintf(`INSERT INTO %s (%s, movie_id, rating, created_at, updated_at)
VALUES ($1, $2, $3, NOW(), NOW())
ON CONFLICT (%s, movie_id) DO UPDATE SET rating = EXCLUDED.rating, updated_at = NOW()
RETURNING CAST(rating AS DOUBLE PRECISION), created_at, updated_at`,
		s.schema.Table(schema.Ratings), user, user)

	rating := &models.Rating{UserID: req.UserID, MovieID: req.MovieID}
	if err := s.db.QueryRow(ctx, sql, req.UserID, req.MovieID, req.Rating).
		Scan(&rating.Rating, &rating.CreatedAt, &rating.UpdatedAt); err != nil {
		return nil, unavailable("upsert rating", err)
	}
	return rating, nil
}

// Ratings lists a user's ratings with movie details, newest first.
func (s *Store) Ratings(ctx context.Context, userID string) ([]models.Rating, error) {
	if !s.schema.Has(schema.Ratings) {
		return nil, ErrNotSupported
	}
	user := s.schema.UserColumn()
	watchlisted := "false"
	join := ""
	if s.schema.Has(schema.Watchlist) {
		watchlisted = "(w.movie_id IS NOT NULL)"
		join = fmt.Sprintf("LEFT JOIN %s w ON w.movie_id = r.movie_id AND w.%s = r.%s", s.schema.Table(schema.Watchlist), user, user)
	}
	sql := fmt.Sprintf(`SELECT r.movie_id, CAST(r.rating AS DOUBLE PRECISION), r.created_at, r.updated_at, %s, %s
FROM %s r
JOIN %s m ON m.id = r.movie_id
%s
WHERE r.%s = $1
ORDER BY r.updated_at DESC, r.movie_id ASC`,
		watchlisted, movieColumns, s.schema.Table(schema.Ratings), s.schema.Table(schema.Movies), join, user)

	rows, err := s.db.Query(ctx, sql, userID)
	if err != nil {
		return nil, unavailable("list ratings", err)
	}
	defer rows.Close()

	ratings := make([]models.Rating, 0)
	for rows.Next() {
		r := models.Rating{UserID: userID, Movie: &models.Movie{}}
		dest := append([]interface{}{&r.MovieID, &r.Rating, &r.CreatedAt, &r.UpdatedAt, &r.IsWatchlisted}, movieScanDest(r.Movie)...)
		if err := rows.Scan(dest...); err != nil {
			return nil, unavailable("list ratings", err)
		}
		ratings = append(ratings, r)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list ratings", err)
	}
	return ratings, nil
}

// AddToWatchlist is idempotent; adding a movie twice keeps the first timestamp.
func (s *Store) AddToWatchlist(ctx context.Context, req models.WatchlistRequest) (*models.WatchlistEntry, error) {
	if !s.schema.Has(schema.Watchlist) {
		return nil, ErrNotSupported
	}
	user := s.schema.UserColumn()
	table := s.schema.Table(schema.Watchlist)

	insert := fmt.Sprintf(`INSERT INTO %s (%s, movie_id, created_at) VALUES ($1, $2, NOW())
ON CONFLICT (%s, movie_id) DO NOTHING`, table, user, user)
	if _, err := s.db.Exec(ctx, insert, req.UserID, req.MovieID); err != nil {
		return nil, unavailable("add to watchlist", err)
	}

	entry := &models.WatchlistEntry{UserID: req.UserID, MovieID: req.MovieID}
	sel := fmt.Sprintf("SELECT created_at FROM %s WHERE %s = $1 AND movie_id = $2", table, user)
	if err := s.db.QueryRow(ctx, sel, req.UserID, req.MovieID).Scan(&entry.CreatedAt); err != nil {
		return nil, unavailable("add to watchlist", err)
	}
	return entry, nil
}

func (s *Store) RemoveFromWatchlist(ctx context.Context, userID string, movieID int64) error {
	if !s.schema.Has(schema.Watchlist) {
		return ErrNotSupported
	}
	sql := fmt.Sprintf("DELETE FROM %s WHERE %s = $1 AND movie_id = $2",
		s.schema.Table(schema.Watchlist), s.schema.UserColumn())

	tag, err := s.db.Exec(ctx, sql, userID, movieID)
	if err != nil {
		return unavailable("remove from watchlist", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Watchlist lists a user's watchlist with movie details, newest first.
func (s *Store) Watchlist(ctx context.Context, userID string) ([]models.WatchlistEntry, error) {
	if !s.schema.Has(schema.Watchlist) {
		return nil, ErrNotSupported
	}
	sql := fmt.Sprintf(`SELECT w.movie_id, w.created_at, %s
FROM %s w
JOIN %s m ON m.id = w.movie_id
WHERE w.%s = $1
ORDER BY w.created_at DESC, w.movie_id ASC`,
		movieColumns, s.schema.Table(schema.Watchlist), s.schema.Table(schema.Movies), s.schema.UserColumn())

	rows, err := s.db.Query(ctx, sql, userID)
	if err != nil {
		return nil, unavailable("list watchlist", err)
	}
	defer rows.Close()

	entries := make([]models.WatchlistEntry, 0)
	for rows.Next() {
		e := models.WatchlistEntry{UserID: userID, Movie: &models.Movie{}}
		dest := append([]interface{}{&e.MovieID, &e.CreatedAt}, movieScanDest(e.Movie)...)
		if err := rows.Scan(dest...); err != nil {
			return nil, unavailable("list watchlist", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list watchlist", err)
	}
	return entries, nil
}
