package preference

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/temcen/cinerank/pkg/models"
)

// OrderedNames returns the names to try for one category. Slots with a
// positive score come first, highest score first; slots without a name or
// with a non-positive score are dropped. When no slot has a positive score
// the named slots are used in slot order instead.
func OrderedNames(slots []models.PreferenceSlot) []string {
	type ranked struct {
		name  string
		score float64
	}

	var positive []ranked
	var named []string
	for _, slot := range slots {
		name := strings.TrimSpace(slot.Name)
		if name == "" {
			continue
		}
		named = append(named, name)
		if slot.Score > 0 {
			positive = append(positive, ranked{name: name, score: slot.Score})
		}
	}

	if len(positive) == 0 {
		return named
	}

	sort.SliceStable(positive, func(i, j int) bool {
		return positive[i].score > positive[j].score
	})
	names := make([]string, len(positive))
	for i, p := range positive {
		names[i] = p.name
	}
	return names
}

// KeywordVariants expands a keyword into the forms matched against titles
// and overviews: the folded original, punctuation replaced by spaces,
// punctuation removed, and hyphens and spaces swapped. Duplicates and empty
// forms are dropped; order is preserved.
func KeywordVariants(keyword string) []string {
	base := collapseSpaces(cases.Fold().String(norm.NFKC.String(strings.TrimSpace(keyword))))
	if base == "" {
		return nil
	}

	spaced, _, _ := transform.String(runes.Map(func(r rune) rune {
		if unicode.IsPunct(r) {
			return ' '
		}
		return r
	}), base)

	removed, _, _ := transform.String(runes.Remove(runes.In(unicode.Punct)), base)

	swapped := strings.Map(func(r rune) rune {
		switch r {
		case '-':
			return ' '
		case ' ':
			return '-'
		}
		return r
	}, base)

	seen := make(map[string]bool, 4)
	variants := make([]string, 0, 4)
	for _, v := range []string{base, collapseSpaces(spaced), collapseSpaces(removed), swapped} {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		variants = append(variants, v)
	}
	return variants
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
