package query

import (
	"strings"

	"github.com/temcen/cinerank/internal/schema"
)

// LookupKind selects the association a preference lookup joins against.
type LookupKind string

const (
	LookupCast           LookupKind = "cast"
	LookupCrew           LookupKind = "crew"
	LookupCrewDepartment LookupKind = "crew_department"
	LookupGenre          LookupKind = "genre"
	LookupKeyword        LookupKind = "keyword"
)

// LookupRequest describes one preference lookup. Name is used by the cast,
// crew and genre kinds; Job narrows crew lookups (and is matched against the
// department for LookupCrewDepartment); Keywords holds the keyword variants.
type LookupRequest struct {
	Kind     LookupKind
	UserID   string
	Name     string
	Job      string
	Keywords []string
	Watched  *bool
	Limit    int
}

// LookupColumns is the column order every lookup plan selects.
var LookupColumns = []string{
	"id", "title", "overview", "poster_path", "release_date",
	"popularity", "vote_count", "vote_average", "watched",
}

// LookupPlan is an executable preference lookup. Unavailable is set when the
// association table the kind needs is absent; such lookups match nothing.
type LookupPlan struct {
	SQL         string
	Args        []interface{}
	Unavailable bool
}

// BuildLookup maps a lookup request onto SQL. Movies are ordered by
// popularity * vote_average, then id.
func BuildLookup(req LookupRequest, s *schema.Schema) LookupPlan {
	b := &builder{}
	user := b.arg(req.UserID)
	userCol := s.UserColumn()

	var predicate string
	switch req.Kind {
	case LookupCast:
		if !s.Has(schema.Cast) || strings.TrimSpace(req.Name) == "" {
			return LookupPlan{Unavailable: true}
		}
		predicate = "EXISTS (SELECT 1 FROM " + s.Table(schema.Cast) + " c WHERE c.movie_id = m.id AND c.name ILIKE " +
			b.arg(likePattern(strings.TrimSpace(req.Name))) + ")"

	case LookupCrew:
		if !s.Has(schema.Crew) || strings.TrimSpace(req.Name) == "" {
			return LookupPlan{Unavailable: true}
		}
		predicate = "EXISTS (SELECT 1 FROM " + s.Table(schema.Crew) + " cr WHERE cr.movie_id = m.id AND cr.name ILIKE " +
			b.arg(likePattern(strings.TrimSpace(req.Name)))
		if job := strings.TrimSpace(req.Job); job != "" {
			predicate += " AND LOWER(cr.job) = LOWER(" + b.arg(job) + ")"
		}
		predicate += ")"

	case LookupCrewDepartment:
		if !s.Has(schema.Crew) || strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Job) == "" {
			return LookupPlan{Unavailable: true}
		}
		predicate = "EXISTS (SELECT 1 FROM " + s.Table(schema.Crew) + " cr WHERE cr.movie_id = m.id AND cr.name ILIKE " +
			b.arg(likePattern(strings.TrimSpace(req.Name))) +
			" AND LOWER(cr.department) = LOWER(" + b.arg(strings.TrimSpace(req.Job)) + "))"

	case LookupGenre:
		if !s.Has(schema.Genres) || strings.TrimSpace(req.Name) == "" {
			return LookupPlan{Unavailable: true}
		}
		predicate = "EXISTS (SELECT 1 FROM " + s.Table(schema.Genres) + " g WHERE g.movie_id = m.id AND (" +
			b.genreClause("g", []string{strings.TrimSpace(req.Name)}) + "))"

	case LookupKeyword:
		keywords := cleanValues(req.Keywords)
		if len(keywords) == 0 {
			return LookupPlan{Unavailable: true}
		}
		parts := make([]string, 0, len(keywords)*2)
		for _, kw := range keywords {
			p := b.arg(likePattern(kw))
			parts = append(parts, "m.title ILIKE "+p, "COALESCE(m.overview, '') ILIKE "+p)
		}
		predicate = "(" + strings.Join(parts, " OR ") + ")"

	default:
		return LookupPlan{Unavailable: true}
	}

	watched := WatchedExpr(s)
	b.write(`SELECT m.id, m.title, COALESCE(m.overview, ''), COALESCE(m.poster_path, ''),
	COALESCE(CAST(m.release_date AS TEXT), ''),
	COALESCE(m.popularity, 0), COALESCE(m.vote_count, 0), COALESCE(m.vote_average, 0),
	%s
FROM %s m
LEFT JOIN %s a ON a.movie_id = m.id AND a.%s = %s`,
		watched, s.Table(schema.Movies), s.Table(schema.Affinity), userCol, user)
	if s.Has(schema.Ratings) {
		b.write("\nLEFT JOIN %s r ON r.movie_id = m.id AND r.%s = %s", s.Table(schema.Ratings), userCol, user)
	}
	b.write("\nWHERE %s", predicate)
	if req.Watched != nil {
		b.write("\n  AND %s = %s", watched, b.arg(*req.Watched))
	}
	b.write("\nORDER BY COALESCE(m.popularity, 0) * COALESCE(m.vote_average, 0) DESC, m.id ASC")
	if req.Limit > 0 {
		b.write("\nLIMIT %s", b.arg(req.Limit))
	}

	return LookupPlan{SQL: b.sb.String(), Args: b.args}
}
