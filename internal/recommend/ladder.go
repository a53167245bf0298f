// Package recommend walks the relaxation ladder: a fixed list of
// progressively looser filter combinations, tried in order until one
// returns candidates.
package recommend

import (
	"github.com/temcen/cinerank/internal/query"
	"github.com/temcen/cinerank/internal/semantic"
)

// Rung is one filter combination of the ladder.
type Rung struct {
	Name    string
	Enabled query.Category
}

// DefaultLadder drops watched first, then genre, then language, then cast.
// Crew is the last hard filter kept.
var DefaultLadder = []Rung{
	{Name: "all_filters", Enabled: query.AllCategories},
	{Name: "drop_watched", Enabled: query.AllCategories.Without(query.CategoryWatched)},
	{Name: "drop_genre", Enabled: query.AllCategories.Without(query.CategoryWatched, query.CategoryGenre)},
	{Name: "drop_language", Enabled: query.AllCategories.Without(query.CategoryWatched, query.CategoryGenre, query.CategoryLanguage)},
	{Name: "crew_only", Enabled: query.CategoryCrew},
	{Name: "no_filters", Enabled: query.NoCategories},
}

// Attempt is one store query of the walk.
type Attempt struct {
	Rung Rung
	Mode semantic.Mode
}

// Attempts expands a ladder into the ordered attempt list. With a semantic
// query every rung is tried at the primary threshold and then, before moving
// on, at the fallback threshold.
func Attempts(ladder []Rung, withSemantic bool) []Attempt {
	if !withSemantic {
		attempts := make([]Attempt, len(ladder))
		for i, r := range ladder {
			attempts[i] = Attempt{Rung: r, Mode: semantic.ModeNone}
		}
		return attempts
	}

	attempts := make([]Attempt, 0, len(ladder)*2)
	for _, r := range ladder {
		attempts = append(attempts,
			Attempt{Rung: r, Mode: semantic.ModePrimary},
			Attempt{Rung: r, Mode: semantic.ModeFallback},
		)
	}
	return attempts
}
