package models

import (
	"time"

	"github.com/google/uuid"
)

type RatingRequest struct {
	UserID  string  `json:"user_id" validate:"required,max=255"`
	MovieID int64   `json:"movie_id" validate:"required,gt=0"`
	Rating  float64 `json:"rating" validate:"gte=0,lte=5"`
}

type Rating struct {
	UserID        string    `json:"user_id"`
	MovieID       int64     `json:"movie_id"`
	Rating        float64   `json:"rating"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	Movie         *Movie    `json:"movie,omitempty"`
	IsWatchlisted bool      `json:"is_watchlisted"`
}

type WatchlistRequest struct {
	UserID  string `json:"user_id" validate:"required,max=255"`
	MovieID int64  `json:"movie_id" validate:"required,gt=0"`
}

type WatchlistEntry struct {
	UserID    string    `json:"user_id"`
	MovieID   int64     `json:"movie_id"`
	CreatedAt time.Time `json:"created_at"`
	Movie     *Movie    `json:"movie,omitempty"`
}

type UserSummary struct {
	UserID  string `json:"user_id"`
	Summary string `json:"summary"`
}

type FeedbackEventType string

const (
	FeedbackRated            FeedbackEventType = "rated"
	FeedbackWatchlistAdded   FeedbackEventType = "watchlist_added"
	FeedbackWatchlistRemoved FeedbackEventType = "watchlist_removed"
)

// FeedbackEvent is published whenever a user's ratings or watchlist change.
type FeedbackEvent struct {
	EventID   uuid.UUID         `json:"event_id"`
	Type      FeedbackEventType `json:"type"`
	UserID    string            `json:"user_id"`
	MovieID   int64             `json:"movie_id"`
	Rating    *float64          `json:"rating,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}
