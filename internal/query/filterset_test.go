package query

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/temcen/cinerank/internal/semantic"
)

func TestParseCrew(t *testing.T) {
	tests := []struct {
		in       string
		expected CrewName
	}{
		{in: "Christopher Nolan (Director)", expected: CrewName{Name: "Christopher Nolan", Job: "Director"}},
		{in: "  A. R. Rahman ( Original Music Composer ) ", expected: CrewName{Name: "A. R. Rahman", Job: "Original Music Composer"}},
		{in: "Mani Ratnam", expected: CrewName{Name: "Mani Ratnam"}},
		{in: "(Director)", expected: CrewName{Name: "(Director)"}},
		{in: "Someone ()", expected: CrewName{Name: "Someone ()"}},
		{in: "Name (Jr.) (Writer)", expected: CrewName{Name: "Name (Jr.)", Job: "Writer"}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseCrew(tt.in))
		})
	}
}

func TestCategory(t *testing.T) {
	c := AllCategories.Without(CategoryWatched, CategoryGenre)

	assert.True(t, c.Has(CategoryCast))
	assert.True(t, c.Has(CategoryCrew))
	assert.True(t, c.Has(CategoryLanguage))
	assert.False(t, c.Has(CategoryWatched))
	assert.False(t, c.Has(CategoryGenre))
	assert.Equal(t, "cast+crew+language", c.String())
	assert.Equal(t, "none", NoCategories.String())
}

func TestFilterSet_WithCopies(t *testing.T) {
	base := FilterSet{UserID: "u1", Enabled: AllCategories}
	pred := &semantic.Predicate{Threshold: 0.3}

	relaxed := base.With(CategoryCrew, pred)

	assert.Equal(t, AllCategories, base.Enabled)
	assert.Nil(t, base.Semantic)
	assert.Equal(t, CategoryCrew, relaxed.Enabled)
	assert.Same(t, pred, relaxed.Semantic)
}

func TestLikePattern(t *testing.T) {
	assert.Equal(t, "%drama%", likePattern("drama"))
	assert.Equal(t, `%100\% love%`, likePattern("100% love"))
	assert.Equal(t, `%a\_b\\c%`, likePattern(`a_b\c`))
}
