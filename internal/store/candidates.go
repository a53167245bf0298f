package store

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/temcen/cinerank/internal/query"
	"github.com/temcen/cinerank/pkg/models"
)

// FindCandidates runs a candidate plan. When the plan carries a semantic
// predicate, rows are scored here and those below the threshold, or without
// an embedding, are dropped.
func (s *Store) FindCandidates(ctx context.Context, plan query.Plan) ([]models.Candidate, error) {
	rows, err := s.db.Query(ctx, plan.SQL, plan.Args...)
	if err != nil {
		return nil, unavailable("candidate query", err)
	}
	defer rows.Close()

	candidates := make([]models.Candidate, 0)
	scanned := 0
	for rows.Next() {
		var c models.Candidate
		if err := rows.Scan(
			&c.ID, &c.Title, &c.Overview, &c.PosterPath,
			&c.ReleaseDate, &c.OriginalLanguage,
			&c.Popularity, &c.VoteCount, &c.VoteAverage,
			&c.Affinity, &c.AffinityWatched, &c.UserRating, &c.IsWatchlisted, &c.Embedding,
		); err != nil {
			return nil, unavailable("scan candidate", err)
		}
		scanned++

		if plan.Semantic != nil {
			similarity, matched, err := plan.Semantic.Match(c.Embedding)
			if err != nil {
				return nil, err
			}
			if !matched {
				continue
			}
			c.Similarity = &similarity
		}
		c.Embedding = nil

		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("candidate query", err)
	}

	s.logger.WithFields(logrus.Fields{
		"scanned":  scanned,
		"matched":  len(candidates),
		"semantic": plan.Semantic != nil,
	}).Debug("Candidate query executed")

	return candidates, nil
}
