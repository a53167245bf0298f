package handlers

import (
	"github.com/sirupsen/logrus"

	"github.com/temcen/cinerank/internal/services"
)

type Handlers struct {
	Health         *HealthHandler
	Recommendation *RecommendationHandler
	Preference     *PreferenceHandler
	Feedback       *FeedbackHandler
	Movie          *MovieHandler
	Debug          *DebugHandler
}

func New(logger *logrus.Logger, services *services.Services) *Handlers {
	return &Handlers{
		Health:         NewHealthHandler(logger, services.Health),
		Recommendation: NewRecommendationHandler(services.Recommendation, logger),
		Preference:     NewPreferenceHandler(services.Preference, logger),
		Feedback:       NewFeedbackHandler(services.Feedback, logger),
		Movie:          NewMovieHandler(services.Movie, logger),
		Debug:          NewDebugHandler(services.Schema),
	}
}
