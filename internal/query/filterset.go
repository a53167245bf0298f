// Package query turns declarative filter sets into SQL plans for the
// candidate store. Building a plan has no side effects.
package query

import (
	"strings"

	"github.com/temcen/cinerank/internal/semantic"
)

// Category is one hard-filter dimension. Categories combine as a bit set.
type Category uint8

const (
	CategoryCast Category = 1 << iota
	CategoryCrew
	CategoryGenre
	CategoryLanguage
	CategoryWatched
)

// AllCategories enables every hard filter.
const AllCategories = CategoryCast | CategoryCrew | CategoryGenre | CategoryLanguage | CategoryWatched

// NoCategories disables every hard filter.
const NoCategories Category = 0

var categoryNames = []struct {
	c    Category
	name string
}{
	{CategoryCast, "cast"},
	{CategoryCrew, "crew"},
	{CategoryGenre, "genre"},
	{CategoryLanguage, "language"},
	{CategoryWatched, "watched"},
}

func (c Category) Has(other Category) bool {
	return c&other == other
}

// Without returns c with the given categories cleared.
func (c Category) Without(others ...Category) Category {
	for _, o := range others {
		c &^= o
	}
	return c
}

func (c Category) String() string {
	if c == NoCategories {
		return "none"
	}
	var parts []string
	for _, cn := range categoryNames {
		if c.Has(cn.c) {
			parts = append(parts, cn.name)
		}
	}
	return strings.Join(parts, "+")
}

// FilterSet is the full description of one candidate query. It is a value:
// copies are independent apart from the shared, read-only slices.
type FilterSet struct {
	UserID    string
	Cast      []string
	Crew      []string
	Genres    []string
	Languages []string
	Watched   *bool
	Enabled   Category
	Semantic  *semantic.Predicate
	Limit     int
	// RankCoefficient weights the popularity term of the ORDER BY rank key.
	RankCoefficient float64
}

// With returns a copy with the given categories enabled and semantic predicate.
func (fs FilterSet) With(enabled Category, predicate *semantic.Predicate) FilterSet {
	fs.Enabled = enabled
	fs.Semantic = predicate
	return fs
}

// CrewName is a crew filter value. "Name (Job)" requires both to match.
type CrewName struct {
	Name string
	Job  string
}

// ParseCrew splits "Christopher Nolan (Director)" into name and job. Values
// without a trailing parenthesised job keep Job empty.
func ParseCrew(value string) CrewName {
	value = strings.TrimSpace(value)
	if strings.HasSuffix(value, ")") {
		if open := strings.LastIndex(value, "("); open > 0 {
			name := strings.TrimSpace(value[:open])
			job := strings.TrimSpace(value[open+1 : len(value)-1])
			if name != "" && job != "" {
				return CrewName{Name: name, Job: job}
			}
		}
	}
	return CrewName{Name: value}
}

// cleanValues trims values and drops empties.
func cleanValues(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// likePattern builds a case-insensitive substring pattern with LIKE
// metacharacters escaped.
func likePattern(value string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(value) + "%"
}
