package library

import (
	"database/sql"
	"encoding/json"
	"strings"
	"time"
)

const gameColumns = "id, title, original_title, description, cover_image, background_image, screenshots_json, trailer_url, genres_json, developer, publisher, release_date, rating, metacritic_score, external_match_id, external_match_slug, auto_matched, inferred_fields_json, playtime, last_played, date_added, status, is_favorite, tags_json, source, executable_path, updated_at"

func scanGame(scanner interface{ Scan(dest ...any) error }) (*Game, error) {
	var (
		g               Game
		originalTitle   sql.NullString
		description     sql.NullString
		coverImage      sql.NullString
		backgroundImage sql.NullString
		screenshotsJSON sql.NullString
		trailerURL      sql.NullString
		genresJSON      sql.NullString
		developer       sql.NullString
		publisher       sql.NullString
		releaseDate     sql.NullString
		externalID      sql.NullInt64
		externalSlug    sql.NullString
		autoMatched     int64
		inferredJSON    sql.NullString
		lastPlayedRaw   sql.NullString
		dateAddedRaw    string
		status          string
		isFavorite      int64
		tagsJSON        sql.NullString
		source          string
		executablePath  sql.NullString
		updatedRaw      string
	)

	if err := scanner.Scan(
		&g.ID,
		&g.Title,
		&originalTitle,
		&description,
		&coverImage,
		&backgroundImage,
		&screenshotsJSON,
		&trailerURL,
		&genresJSON,
		&developer,
		&publisher,
		&releaseDate,
		&g.Rating,
		&g.MetacriticScore,
		&externalID,
		&externalSlug,
		&autoMatched,
		&inferredJSON,
		&g.Playtime,
		&lastPlayedRaw,
		&dateAddedRaw,
		&status,
		&isFavorite,
		&tagsJSON,
		&source,
		&executablePath,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	g.OriginalTitle = originalTitle.String
	g.Description = description.String
	g.CoverImage = coverImage.String
	g.BackgroundImage = backgroundImage.String
	g.Screenshots = decodeList(screenshotsJSON.String)
	g.TrailerURL = trailerURL.String
	g.Genres = decodeList(genresJSON.String)
	g.Developer = developer.String
	g.Publisher = publisher.String
	g.ReleaseDate = releaseDate.String
	if externalID.Valid {
		id := externalID.Int64
		g.ExternalMatchID = &id
	}
	g.ExternalMatchSlug = externalSlug.String
	g.AutoMatched = autoMatched != 0
	g.InferredFields = decodeList(inferredJSON.String)
	g.Status = Status(status)
	g.IsFavorite = isFavorite != 0
	g.Tags = decodeList(tagsJSON.String)
	g.Source = Source(source)
	g.ExecutablePath = executablePath.String

	if lastPlayedRaw.Valid {
		if ts, err := parseTimeString(lastPlayedRaw.String); err == nil {
			g.LastPlayed = &ts
		}
	}
	if ts, err := parseTimeString(dateAddedRaw); err == nil {
		g.DateAdded = ts
	}
	if ts, err := parseTimeString(updatedRaw); err == nil {
		g.UpdatedAt = ts
	}
	return &g, nil
}

// gameArgs returns the column values in gameColumns order.
func gameArgs(g *Game) []any {
	var externalID any
	if g.ExternalMatchID != nil {
		externalID = *g.ExternalMatchID
	}
	return []any{
		g.ID,
		g.Title,
		nullableString(g.OriginalTitle),
		nullableString(g.Description),
		nullableString(g.CoverImage),
		nullableString(g.BackgroundImage),
		encodeList(g.Screenshots),
		nullableString(g.TrailerURL),
		encodeList(g.Genres),
		nullableString(g.Developer),
		nullableString(g.Publisher),
		nullableString(g.ReleaseDate),
		g.Rating,
		g.MetacriticScore,
		externalID,
		nullableString(g.ExternalMatchSlug),
		boolToInt(g.AutoMatched),
		encodeList(g.InferredFields),
		g.Playtime,
		nullableTime(g.LastPlayed),
		formatTime(g.DateAdded),
		string(g.Status),
		boolToInt(g.IsFavorite),
		encodeList(g.Tags),
		string(g.Source),
		nullableString(g.ExecutablePath),
		formatTime(g.UpdatedAt),
	}
}

func decodeList(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var values []string
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil
	}
	if len(values) == 0 {
		return nil
	}
	return values
}

func encodeList(values []string) any {
	if len(values) == 0 {
		return nil
	}
	data, err := json.Marshal(values)
	if err != nil {
		return nil
	}
	return string(data)
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil || value.IsZero() {
		return nil
	}
	return formatTime(*value)
}

func formatTime(value time.Time) string {
	return value.UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, strings.TrimSpace(value))
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
