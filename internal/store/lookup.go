package store

import (
	"context"

	"github.com/temcen/cinerank/internal/query"
	"github.com/temcen/cinerank/pkg/models"
)

// Lookup runs a preference lookup. Lookups whose association table is absent
// return an empty list.
func (s *Store) Lookup(ctx context.Context, req query.LookupRequest) ([]models.MovieWithStats, error) {
	plan := query.BuildLookup(req, s.schema)
	movies := make([]models.MovieWithStats, 0)
	if plan.Unavailable {
		return movies, nil
	}

	rows, err := s.db.Query(ctx, plan.SQL, plan.Args...)
	if err != nil {
		return nil, unavailable("preference lookup", err)
	}
	defer rows.Close()

	for rows.Next() {
		var m models.MovieWithStats
		if err := rows.Scan(
			&m.ID, &m.Title, &m.Overview, &m.PosterPath, &m.ReleaseDate,
			&m.Popularity, &m.VoteCount, &m.VoteAverage, &m.Watched,
		); err != nil {
			return nil, unavailable("scan lookup row", err)
		}
		m.PopularityScore = m.Popularity * m.VoteAverage
		movies = append(movies, m)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("preference lookup", err)
	}

	return movies, nil
}
