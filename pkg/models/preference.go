package models

type PreferenceCategory string

const (
	CategoryCast    PreferenceCategory = "cast"
	CategoryCrew    PreferenceCategory = "crew"
	CategoryGenre   PreferenceCategory = "genre"
	CategoryKeyword PreferenceCategory = "keyword"
)

// PreferenceCategories is the fixed output order of preference groups.
var PreferenceCategories = []PreferenceCategory{
	CategoryCast,
	CategoryCrew,
	CategoryGenre,
	CategoryKeyword,
}

// PreferenceSlot is one ranked (name, score) pair of a profile. An empty name
// or a non-positive score means the slot carries no preference.
type PreferenceSlot struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

type PreferenceProfile struct {
	UserID string                                  `json:"user_id"`
	Slots  map[PreferenceCategory][]PreferenceSlot `json:"slots"`
}

type PreferenceGroup struct {
	Title    string             `json:"title"`
	Category PreferenceCategory `json:"category"`
	Movies   []MovieWithStats   `json:"movies"`
}

type PreferenceResponse struct {
	UserID string            `json:"user_id"`
	Groups []PreferenceGroup `json:"groups"`
}
