package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/temcen/cinerank/internal/schema"
	"github.com/temcen/cinerank/pkg/models"
)

const slotsPerCategory = 3

// PreferenceProfile loads the ranked preference slots of a user. A user
// without a profile, or a schema without a preferences table, yields nil.
func (s *Store) PreferenceProfile(ctx context.Context, userID string) (*models.PreferenceProfile, error) {
	if !s.schema.Has(schema.Preferences) {
		return nil, nil
	}

	var cols []string
	for _, category := range models.PreferenceCategories {
		for slot := 1; slot <= slotsPerCategory; slot++ {
			name := fmt.Sprintf("%s_%d", category, slot)
			cols = append(cols,
				fmt.Sprintf("COALESCE(CAST(%s AS TEXT), '')", pgx.Identifier{name}.Sanitize()),
				fmt.Sprintf("COALESCE(CAST(%s AS DOUBLE PRECISION), 0)", pgx.Identifier{name + "_score"}.Sanitize()),
			)
		}
	}

	sql := fmt.Sprintf("SELECT %s FROM %s WHERE %s = $1 LIMIT 1",
		strings.Join(cols, ", "), s.schema.Table(schema.Preferences), s.schema.UserColumn())

	names := make([]string, len(models.PreferenceCategories)*slotsPerCategory)
	scores := make([]float64, len(names))
	dest := make([]interface{}, 0, len(names)*2)
	for i := range names {
		dest = append(dest, &names[i], &scores[i])
	}

	if err := s.db.QueryRow(ctx, sql, userID).Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, unavailable("preference profile", err)
	}

	profile := &models.PreferenceProfile{
		UserID: userID,
		Slots:  make(map[models.PreferenceCategory][]models.PreferenceSlot, len(models.PreferenceCategories)),
	}
	for ci, category := range models.PreferenceCategories {
		slots := make([]models.PreferenceSlot, slotsPerCategory)
		for slot := 0; slot < slotsPerCategory; slot++ {
			i := ci*slotsPerCategory + slot
			slots[slot] = models.PreferenceSlot{Name: strings.TrimSpace(names[i]), Score: scores[i]}
		}
		profile.Slots[category] = slots
	}

	return profile, nil
}

// UserSummary returns the stored free-text taste summary of a user.
func (s *Store) UserSummary(ctx context.Context, userID string) (*models.UserSummary, error) {
	if !s.schema.Has(schema.Summaries) {
		return nil, ErrNotFound
	}

	sql := fmt.Sprintf("SELECT COALESCE(summary, '') FROM %s WHERE %s = $1 LIMIT 1",
		s.schema.Table(schema.Summaries), s.schema.UserColumn())

	summary := &models.UserSummary{UserID: userID}
	if err := s.db.QueryRow(ctx, sql, userID).Scan(&summary.Summary); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, unavailable("user summary", err)
	}

	return summary, nil
}
