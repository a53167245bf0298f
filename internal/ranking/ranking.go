// Package ranking orders recommendation candidates by a single blended key.
package ranking

import (
	"math"
	"sort"

	"github.com/temcen/cinerank/pkg/models"
)

// DefaultPopularityCoefficient weights the vote-based tie-breaker.
const DefaultPopularityCoefficient = 0.04

// Scorer computes rank keys. The zero value uses no popularity term; use New
// for the configured coefficient.
type Scorer struct {
	PopularityCoefficient float64
}

func New(coefficient float64) *Scorer {
	return &Scorer{PopularityCoefficient: coefficient}
}

// Base blends predicted affinity with an explicit rating by geometric mean.
// Without a rating it is the affinity itself.
func Base(affinity float64, userRating *float64) float64 {
	if userRating == nil {
		return affinity
	}
	product := affinity * *userRating
	if product <= 0 {
		return 0
	}
	return math.Sqrt(product)
}

// PopularityBoost is coefficient * vote_average * log10(max(vote_count, 1)).
func (s *Scorer) PopularityBoost(voteAverage float64, voteCount int64) float64 {
	count := voteCount
	if count < 1 {
		count = 1
	}
	return s.PopularityCoefficient * voteAverage * math.Log10(float64(count))
}

// Key returns the rank key of a single candidate; higher ranks first.
func (s *Scorer) Key(c *models.Candidate) float64 {
	return Base(c.Affinity, c.UserRating) + s.PopularityBoost(c.VoteAverage, c.VoteCount)
}

// Sort fills RankKey on every candidate and orders them by key descending,
// breaking ties by movie id ascending.
func (s *Scorer) Sort(candidates []models.Candidate) {
	for i := range candidates {
		candidates[i].RankKey = s.Key(&candidates[i])
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].RankKey != candidates[j].RankKey {
			return candidates[i].RankKey > candidates[j].RankKey
		}
		return candidates[i].ID < candidates[j].ID
	})
}

// StarRating maps a candidate onto the 0-5 star scale. The predicted stars
// are blended with the user's own rating when one exists.
func StarRating(c *models.Candidate) float64 {
	stars := clamp(c.Affinity*5, 0, 5)
	if c.UserRating != nil {
		stars = math.Sqrt(stars * clamp(*c.UserRating, 0, 5))
	}
	return math.Round(stars*10) / 10
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
