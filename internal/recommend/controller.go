package recommend

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/temcen/cinerank/internal/query"
	"github.com/temcen/cinerank/internal/ranking"
	"github.com/temcen/cinerank/internal/schema"
	"github.com/temcen/cinerank/internal/semantic"
	"github.com/temcen/cinerank/pkg/models"
)

// CandidateStore is the read side the controller queries once per attempt.
type CandidateStore interface {
	FindCandidates(ctx context.Context, plan query.Plan) ([]models.Candidate, error)
}

// Request is a maximal filter request. Enabled on Filters is ignored; each
// rung sets its own. QueryVector is nil when no semantic query was given.
type Request struct {
	Filters     query.FilterSet
	QueryVector []float32
	Limit       int
}

// Outcome describes the terminal attempt. On exhaustion Candidates is empty
// and Rung is blank.
type Outcome struct {
	Candidates []models.Candidate
	Rung       string
	Mode       semantic.Mode
	// Attempt is the 1-based index of the successful attempt, 0 on exhaustion.
	Attempt   int
	Attempts  int
	Exhausted bool
	Skipped   query.Category
	// SemanticSkipped is set when a query vector was given but the schema has
	// no embeddings table; the ladder then runs without semantic attempts.
	SemanticSkipped bool
}

type Controller struct {
	store         CandidateStore
	schema        *schema.Schema
	resolver      *semantic.Resolver
	scorer        *ranking.Scorer
	ladder        []Rung
	maxCandidates int
	logger        *logrus.Logger
}

func NewController(store CandidateStore, s *schema.Schema, resolver *semantic.Resolver, scorer *ranking.Scorer, maxCandidates int, logger *logrus.Logger) *Controller {
	return &Controller{
		store:         store,
		schema:        s,
		resolver:      resolver,
		scorer:        scorer,
		ladder:        DefaultLadder,
		maxCandidates: maxCandidates,
		logger:        logger,
	}
}

// Run walks the ladder sequentially and returns the first non-empty,
// ranked result truncated to req.Limit. The context is checked before every
// attempt; a cancelled request issues no further queries.
func (c *Controller) Run(ctx context.Context, req Request) (*Outcome, error) {
	outcome := &Outcome{Mode: semantic.ModeNone}
	predicates := map[semantic.Mode]*semantic.Predicate{}
	withSemantic := req.QueryVector != nil
	if withSemantic && !c.schema.Has(schema.Embeddings) {
		withSemantic = false
		outcome.SemanticSkipped = true
	}
	if withSemantic {
		for _, mode := range []semantic.Mode{semantic.ModePrimary, semantic.ModeFallback} {
			p, err := c.resolver.Predicate(req.QueryVector, mode)
			if err != nil {
				return nil, err
			}
			predicates[mode] = p
		}
	}

	start := time.Now()
	for i, attempt := range Attempts(c.ladder, withSemantic) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		fs := req.Filters.With(attempt.Rung.Enabled, predicates[attempt.Mode])
		fs.Limit = c.maxCandidates
		fs.RankCoefficient = c.scorer.PopularityCoefficient
		plan := query.Build(fs, c.schema)
		outcome.Skipped |= plan.Skipped
		outcome.Attempts++

		candidates, err := c.store.FindCandidates(ctx, plan)
		if err != nil {
			return nil, err
		}

		c.logger.WithFields(logrus.Fields{
			"user_id":    req.Filters.UserID,
			"attempt":    i + 1,
			"rung":       attempt.Rung.Name,
			"enabled":    attempt.Rung.Enabled.String(),
			"mode":       attempt.Mode,
			"candidates": len(candidates),
		}).Debug("Relaxation attempt finished")

		if len(candidates) == 0 {
			continue
		}

		c.scorer.Sort(candidates)
		if req.Limit > 0 && len(candidates) > req.Limit {
			candidates = candidates[:req.Limit]
		}

		outcome.Candidates = candidates
		outcome.Rung = attempt.Rung.Name
		outcome.Mode = attempt.Mode
		outcome.Attempt = i + 1
		c.logOutcome(req, outcome, start)
		return outcome, nil
	}

	outcome.Candidates = []models.Candidate{}
	outcome.Exhausted = true
	c.logOutcome(req, outcome, start)
	return outcome, nil
}

func (c *Controller) logOutcome(req Request, o *Outcome, start time.Time) {
	c.logger.WithFields(logrus.Fields{
		"user_id":          req.Filters.UserID,
		"rung":             o.Rung,
		"mode":             o.Mode,
		"attempts":         o.Attempts,
		"exhausted":        o.Exhausted,
		"semantic_skipped": o.SemanticSkipped,
		"results":          len(o.Candidates),
		"duration":         time.Since(start),
	}).Info("Relaxation ladder finished")
}
