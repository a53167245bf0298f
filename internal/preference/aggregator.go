// Package preference builds the "because you like ..." movie groups from a
// user's stored preference profile.
package preference

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/temcen/cinerank/internal/query"
	"github.com/temcen/cinerank/pkg/models"
)

const DefaultGroupLimit = 20

// Store is the read side the aggregator needs.
type Store interface {
	PreferenceProfile(ctx context.Context, userID string) (*models.PreferenceProfile, error)
	Lookup(ctx context.Context, req query.LookupRequest) ([]models.MovieWithStats, error)
}

type Aggregator struct {
	store      Store
	groupLimit int
	logger     *logrus.Logger
}

func NewAggregator(store Store, groupLimit int, logger *logrus.Logger) *Aggregator {
	if groupLimit <= 0 {
		groupLimit = DefaultGroupLimit
	}
	return &Aggregator{
		store:      store,
		groupLimit: groupLimit,
		logger:     logger,
	}
}

// Aggregate returns exactly one group per category, in the fixed category
// order. Categories are looked up concurrently. A user without a profile
// gets four empty groups; a store error fails the whole call.
func (a *Aggregator) Aggregate(ctx context.Context, userID string, watched *bool) (*models.PreferenceResponse, error) {
	start := time.Now()

	profile, err := a.store.PreferenceProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	groups := make([]models.PreferenceGroup, len(models.PreferenceCategories))
	g, gctx := errgroup.WithContext(ctx)
	for i, category := range models.PreferenceCategories {
		var slots []models.PreferenceSlot
		if profile != nil {
			slots = profile.Slots[category]
		}
		names := OrderedNames(slots)

		g.Go(func() error {
			group, err := a.aggregateCategory(gctx, userID, category, names, watched)
			if err != nil {
				return err
			}
			groups[i] = group
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	matched := 0
	for _, group := range groups {
		if len(group.Movies) > 0 {
			matched++
		}
	}
	a.logger.WithFields(logrus.Fields{
		"user_id":     userID,
		"has_profile": profile != nil,
		"groups":      matched,
		"duration":    time.Since(start),
	}).Info("Preference groups aggregated")

	return &models.PreferenceResponse{UserID: userID, Groups: groups}, nil
}

// aggregateCategory tries each name in order and keeps the first one whose
// lookup chain finds movies.
func (a *Aggregator) aggregateCategory(ctx context.Context, userID string, category models.PreferenceCategory, names []string, watched *bool) (models.PreferenceGroup, error) {
	for _, name := range names {
		for _, req := range lookupChain(category, name) {
			if err := ctx.Err(); err != nil {
				return models.PreferenceGroup{}, err
			}

			req.UserID = userID
			req.Watched = watched
			req.Limit = a.groupLimit

			movies, err := a.store.Lookup(ctx, req)
			if err != nil {
				return models.PreferenceGroup{}, err
			}
			if len(movies) > 0 {
				return models.PreferenceGroup{
					Title:    GroupTitle(category, name),
					Category: category,
					Movies:   movies,
				}, nil
			}
		}
	}

	title := GroupTitle(category, "")
	if len(names) > 0 {
		title = GroupTitle(category, names[0])
	}
	return models.PreferenceGroup{
		Title:    title,
		Category: category,
		Movies:   []models.MovieWithStats{},
	}, nil
}

// lookupChain lists the lookups tried for one name, in order. Crew names may
// carry a job as "Name (Job)": the name and job are tried together, then the
// job as a department, then the bare name as cast.
func lookupChain(category models.PreferenceCategory, name string) []query.LookupRequest {
	switch category {
	case models.CategoryCast:
		return []query.LookupRequest{{Kind: query.LookupCast, Name: name}}

	case models.CategoryCrew:
		crew := query.ParseCrew(name)
		chain := []query.LookupRequest{{Kind: query.LookupCrew, Name: crew.Name, Job: crew.Job}}
		if crew.Job != "" {
			chain = append(chain, query.LookupRequest{Kind: query.LookupCrewDepartment, Name: crew.Name, Job: crew.Job})
		}
		return append(chain, query.LookupRequest{Kind: query.LookupCast, Name: crew.Name})

	case models.CategoryGenre:
		return []query.LookupRequest{{Kind: query.LookupGenre, Name: name}}

	case models.CategoryKeyword:
		variants := KeywordVariants(name)
		if len(variants) == 0 {
			return nil
		}
		return []query.LookupRequest{{Kind: query.LookupKeyword, Keywords: variants}}
	}
	return nil
}

// GroupTitle names a group after the preference that produced it.
func GroupTitle(category models.PreferenceCategory, name string) string {
	if name == "" {
		switch category {
		case models.CategoryCast:
			return "Your favourite actors"
		case models.CategoryCrew:
			return "Your favourite filmmakers"
		case models.CategoryGenre:
			return "Your favourite genres"
		default:
			return "Topics you enjoy"
		}
	}

	switch category {
	case models.CategoryCast:
		return "Starring " + name
	case models.CategoryCrew:
		return "From " + name
	case models.CategoryGenre:
		return "Because you like " + name
	default:
		return "Movies about " + name
	}
}
