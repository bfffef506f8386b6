package library

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Status tracks where the player is with a game.
type Status string

const (
	StatusNotStarted Status = "not-started"
	StatusPlaying    Status = "playing"
	StatusCompleted  Status = "completed"
	StatusOnHold     Status = "on-hold"
	StatusDropped    Status = "dropped"
)

var allStatuses = []Status{
	StatusNotStarted,
	StatusPlaying,
	StatusCompleted,
	StatusOnHold,
	StatusDropped,
}

// AllStatuses returns the statuses in display order.
func AllStatuses() []Status {
	return slices.Clone(allStatuses)
}

// ParseStatus converts user input ("on hold", "On-Hold", "completed") into a Status.
func ParseStatus(raw string) (Status, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	normalized = strings.NewReplacer(" ", "-", "_", "-").Replace(normalized)
	for _, status := range allStatuses {
		if string(status) == normalized {
			return status, nil
		}
	}
	return "", fmt.Errorf("unknown status %q", raw)
}

// Source records where a game entry came from.
type Source string

const (
	SourceManual Source = "manual"
	SourceSteam  Source = "steam"
	SourceEpic   Source = "epic"
	SourceRAWG   Source = "rawg"
)

// ParseSource validates a source name. Empty input maps to SourceManual.
func ParseSource(raw string) (Source, error) {
	switch Source(strings.ToLower(strings.TrimSpace(raw))) {
	case "", SourceManual:
		return SourceManual, nil
	case SourceSteam:
		return SourceSteam, nil
	case SourceEpic:
		return SourceEpic, nil
	case SourceRAWG:
		return SourceRAWG, nil
	default:
		return "", fmt.Errorf("unknown source %q", raw)
	}
}

// Game is one library entry. The JSON form is also the cloud document payload.
type Game struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	OriginalTitle string `json:"original_title,omitempty"`

	Description     string   `json:"description,omitempty"`
	CoverImage      string   `json:"cover_image,omitempty"`
	BackgroundImage string   `json:"background_image,omitempty"`
	Screenshots     []string `json:"screenshots,omitempty"`
	TrailerURL      string   `json:"trailer_url,omitempty"`
	Genres          []string `json:"genres,omitempty"`
	Developer       string   `json:"developer,omitempty"`
	Publisher       string   `json:"publisher,omitempty"`
	ReleaseDate     string   `json:"release_date,omitempty"`
	Rating          float64  `json:"rating,omitempty"`
	MetacriticScore int      `json:"metacritic_score,omitempty"`

	ExternalMatchID   *int64 `json:"external_match_id,omitempty"`
	ExternalMatchSlug string `json:"external_match_slug,omitempty"`
	AutoMatched       bool   `json:"auto_matched,omitempty"`
	// InferredFields names the metadata fields a catalog match filled in.
	// Fields absent from the list were entered by the user.
	InferredFields []string `json:"inferred_fields,omitempty"`

	Playtime   int64      `json:"playtime"`
	LastPlayed *time.Time `json:"last_played,omitempty"`
	DateAdded  time.Time  `json:"date_added"`
	Status     Status     `json:"status"`
	IsFavorite bool       `json:"is_favorite,omitempty"`
	Tags       []string   `json:"tags,omitempty"`

	Source         Source    `json:"source,omitempty"`
	ExecutablePath string    `json:"executable_path,omitempty"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Metadata field names used in InferredFields.
const (
	FieldTitle           = "title"
	FieldDescription     = "description"
	FieldCoverImage      = "cover_image"
	FieldBackgroundImage = "background_image"
	FieldScreenshots     = "screenshots"
	FieldTrailerURL      = "trailer_url"
	FieldGenres          = "genres"
	FieldDeveloper       = "developer"
	FieldPublisher       = "publisher"
	FieldReleaseDate     = "release_date"
	FieldRating          = "rating"
	FieldMetacriticScore = "metacritic_score"
)

// IsInferred reports whether field was filled in by a catalog match.
func (g Game) IsInferred(field string) bool {
	return slices.Contains(g.InferredFields, field)
}

// IsMatched reports whether the record is linked to a catalog entry.
func (g Game) IsMatched() bool {
	return g.ExternalMatchID != nil
}

// RecencyKey is the timestamp conflict merges compare: LastPlayed when set,
// DateAdded otherwise.
func (g Game) RecencyKey() time.Time {
	if g.LastPlayed != nil {
		return *g.LastPlayed
	}
	return g.DateAdded
}

// Clone returns a deep copy so callers can mutate slices and pointers freely.
func (g Game) Clone() Game {
	clone := g
	clone.Screenshots = slices.Clone(g.Screenshots)
	clone.Genres = slices.Clone(g.Genres)
	clone.Tags = slices.Clone(g.Tags)
	clone.InferredFields = slices.Clone(g.InferredFields)
	if g.ExternalMatchID != nil {
		id := *g.ExternalMatchID
		clone.ExternalMatchID = &id
	}
	if g.LastPlayed != nil {
		ts := *g.LastPlayed
		clone.LastPlayed = &ts
	}
	return clone
}

// DisplayTitle returns a title suitable for listings.
func (g Game) DisplayTitle() string {
	if title := strings.TrimSpace(g.Title); title != "" {
		return title
	}
	if title := strings.TrimSpace(g.OriginalTitle); title != "" {
		return title
	}
	return "(untitled)"
}

// Filter narrows List results. Zero value lists everything.
type Filter struct {
	Status        Status
	FavoritesOnly bool
	UnmatchedOnly bool
}
