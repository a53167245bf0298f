package query

import (
	"fmt"
	"strings"

	"github.com/temcen/cinerank/internal/schema"
	"github.com/temcen/cinerank/internal/semantic"
)

// Plan is an executable candidate query.
type Plan struct {
	SQL  string
	Args []interface{}
	// Semantic is applied by the store after the rows are read. Nil when the
	// filter set had no predicate or the embeddings table is absent.
	Semantic *semantic.Predicate
	// Limit is the SQL row cap, 0 when none was applied. Semantic plans are
	// never capped since the threshold is applied after the rows are read.
	Limit int
	// Skipped lists enabled categories dropped because their table is absent.
	Skipped         Category
	SemanticSkipped bool
}

// CandidateColumns is the column order every candidate plan selects.
var CandidateColumns = []string{
	"id", "title", "overview", "poster_path", "release_date", "original_language",
	"popularity", "vote_count", "vote_average",
	"predicted_score", "affinity_watched", "user_rating", "is_watchlisted", "embedding",
}

type builder struct {
	sb   strings.Builder
	args []interface{}
}

func (b *builder) arg(v interface{}) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

func (b *builder) write(format string, a ...interface{}) {
	fmt.Fprintf(&b.sb, format, a...)
}

// WatchedExpr is the single definition of "watched": a rating exists, or the
// affinity record says so. Expects aliases a (affinity) and r (ratings).
func WatchedExpr(s *schema.Schema) string {
	if s.Has(schema.Ratings) {
		return "(r.movie_id IS NOT NULL OR COALESCE(a.watched, false))"
	}
	return "COALESCE(a.watched, false)"
}

// RankKeyExpr is the SQL form of the ranking key: the affinity, blended with
// the user's rating by geometric mean when one exists, plus the popularity
// term weighted by coefficient. Expects aliases m, a and r.
func RankKeyExpr(s *schema.Schema, coefficient string) string {
	base := "COALESCE(a.predicted_score, 0)"
	if s.Has(schema.Ratings) {
		base = "CASE WHEN r.rating IS NULL THEN COALESCE(a.predicted_score, 0)" +
			" ELSE SQRT(GREATEST(COALESCE(a.predicted_score, 0) * r.rating, 0)) END"
	}
	return "(" + base + " + CAST(" + coefficient + " AS DOUBLE PRECISION) * COALESCE(m.vote_average, 0)" +
		" * LOG(CAST(GREATEST(COALESCE(m.vote_count, 0), 1) AS DOUBLE PRECISION)))"
}

// Build maps a filter set onto SQL against the resolved schema.
func Build(fs FilterSet, s *schema.Schema) Plan {
	b := &builder{}
	user := b.arg(fs.UserID)
	userCol := s.UserColumn()

	plan := Plan{}
	useSemantic := fs.Semantic != nil
	if useSemantic && !s.Has(schema.Embeddings) {
		useSemantic = false
		plan.SemanticSkipped = true
	}

	ratingCol := "CAST(NULL AS DOUBLE PRECISION)"
	if s.Has(schema.Ratings) {
		ratingCol = "CAST(r.rating AS DOUBLE PRECISION)"
	}
	watchlistCol := "false"
	if s.Has(schema.Watchlist) {
		watchlistCol = "(w.movie_id IS NOT NULL)"
	}
	embeddingCol := "CAST(NULL AS REAL[])"
	if useSemantic {
		embeddingCol = "CAST(e.embedding AS REAL[])"
	}

	b.write(`SELECT m.id, m.title, COALESCE(m.overview, ''), COALESCE(m.poster_path, ''),
	COALESCE(CAST(m.release_date AS TEXT), ''), COALESCE(m.original_language, ''),
	COALESCE(m.popularity, 0), COALESCE(m.vote_count, 0), COALESCE(m.vote_average, 0),
	COALESCE(a.predicted_score, 0), COALESCE(a.watched, false), %s, %s, %s
FROM %s m
JOIN %s a ON a.movie_id = m.id AND a.%s = %s`,
		ratingCol, watchlistCol, embeddingCol,
		s.Table(schema.Movies), s.Table(schema.Affinity), userCol, user)

	if s.Has(schema.Ratings) {
		b.write("\nLEFT JOIN %s r ON r.movie_id = m.id AND r.%s = %s", s.Table(schema.Ratings), userCol, user)
	}
	if s.Has(schema.Watchlist) {
		b.write("\nLEFT JOIN %s w ON w.movie_id = m.id AND w.%s = %s", s.Table(schema.Watchlist), userCol, user)
	}
	if useSemantic {
		b.write("\nJOIN %s e ON e.movie_id = m.id", s.Table(schema.Embeddings))
	}

	b.write("\nWHERE TRUE")
	if useSemantic {
		b.write("\n  AND e.embedding IS NOT NULL")
	}

	if fs.Enabled.Has(CategoryCast) {
		if names := cleanValues(fs.Cast); len(names) > 0 {
			if s.Has(schema.Cast) {
				b.write("\n  AND EXISTS (SELECT 1 FROM %s c WHERE c.movie_id = m.id AND (%s))",
					s.Table(schema.Cast), b.castNameClause("c", names))
			} else {
				plan.Skipped |= CategoryCast
			}
		}
	}

	if fs.Enabled.Has(CategoryCrew) {
		if names := cleanValues(fs.Crew); len(names) > 0 {
			if s.Has(schema.Crew) {
				b.write("\n  AND EXISTS (SELECT 1 FROM %s cr WHERE cr.movie_id = m.id AND (%s))",
					s.Table(schema.Crew), b.crewClause(names))
			} else {
				plan.Skipped |= CategoryCrew
			}
		}
	}

	if fs.Enabled.Has(CategoryGenre) {
		if genres := cleanValues(fs.Genres); len(genres) > 0 {
			if s.Has(schema.Genres) {
				b.write("\n  AND EXISTS (SELECT 1 FROM %s g WHERE g.movie_id = m.id AND (%s))",
					s.Table(schema.Genres), b.genreClause("g", genres))
			} else {
				plan.Skipped |= CategoryGenre
			}
		}
	}

	if fs.Enabled.Has(CategoryLanguage) {
		if langs := cleanValues(fs.Languages); len(langs) > 0 {
			lowered := make([]string, len(langs))
			for i, l := range langs {
				lowered[i] = strings.ToLower(l)
			}
			b.write("\n  AND LOWER(m.original_language) = ANY(%s)", b.arg(lowered))
		}
	}

	if fs.Enabled.Has(CategoryWatched) && fs.Watched != nil {
		b.write("\n  AND %s = %s", WatchedExpr(s), b.arg(*fs.Watched))
	}

	b.write("\nORDER BY %s DESC, m.id ASC", RankKeyExpr(s, b.arg(fs.RankCoefficient)))
	if fs.Limit > 0 && !useSemantic {
		b.write("\nLIMIT %s", b.arg(fs.Limit))
		plan.Limit = fs.Limit
	}

	plan.SQL = b.sb.String()
	plan.Args = b.args
	if useSemantic {
		plan.Semantic = fs.Semantic
	}
	return plan
}

func (b *builder) castNameClause(alias string, names []string) string {
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = fmt.Sprintf("%s.name ILIKE %s", alias, b.arg(likePattern(n)))
	}
	return strings.Join(parts, " OR ")
}

func (b *builder) crewClause(values []string) string {
	parts := make([]string, len(values))
	for i, v := range values {
		crew := ParseCrew(v)
		if crew.Job != "" {
			parts[i] = fmt.Sprintf("(cr.name ILIKE %s AND LOWER(cr.job) = LOWER(%s))",
				b.arg(likePattern(crew.Name)), b.arg(crew.Job))
		} else {
			parts[i] = fmt.Sprintf("cr.name ILIKE %s", b.arg(likePattern(crew.Name)))
		}
	}
	return strings.Join(parts, " OR ")
}

func (b *builder) genreClause(alias string, genres []string) string {
	parts := make([]string, len(genres))
	for i, g := range genres {
		parts[i] = fmt.Sprintf("CAST(%s.genres AS TEXT) ILIKE %s", alias, b.arg(likePattern(g)))
	}
	return strings.Join(parts, " OR ")
}
