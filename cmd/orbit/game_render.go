package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"orbit/internal/library"
	"orbit/internal/matching"
)

const shortIDLength = 8

func renderGameTable(games []library.Game, colorize bool) string {
	headers := []string{"ID", "Title", "Status", "Playtime", "Last Played", "Fav", "Matched"}
	aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft, alignLeft}
	rows := make([][]string, 0, len(games))
	for _, game := range games {
		fav := ""
		if game.IsFavorite {
			fav = "*"
		}
		rows = append(rows, []string{
			shortID(game.ID),
			game.DisplayTitle(),
			string(game.Status),
			formatPlaytime(game.Playtime),
			formatLastPlayed(game.LastPlayed),
			fav,
			yesNo(game.IsMatched()),
		})
	}
	return renderTable(headers, rows, aligns, colorize)
}

func renderGameDetail(game library.Game, colorize bool) string {
	rows := [][]string{
		{"ID", game.ID},
		{"Title", game.DisplayTitle()},
	}
	add := func(label, value string) {
		if strings.TrimSpace(value) != "" {
			rows = append(rows, []string{label, value})
		}
	}
	if game.OriginalTitle != game.Title {
		add("Original title", game.OriginalTitle)
	}
	add("Status", string(game.Status))
	add("Favorite", yesNo(game.IsFavorite))
	add("Playtime", formatPlaytime(game.Playtime))
	add("Last played", formatLastPlayed(game.LastPlayed))
	add("Added", game.DateAdded.Local().Format("2006-01-02"))
	add("Source", string(game.Source))
	add("Executable", game.ExecutablePath)
	add("Tags", strings.Join(game.Tags, ", "))
	add("Genres", strings.Join(game.Genres, ", "))
	add("Developer", game.Developer)
	add("Publisher", game.Publisher)
	add("Released", game.ReleaseDate)
	if game.Rating > 0 {
		add("Rating", strconv.FormatFloat(game.Rating, 'f', 2, 64))
	}
	if game.MetacriticScore > 0 {
		add("Metacritic", strconv.Itoa(game.MetacriticScore))
	}
	if game.IsMatched() {
		add("RAWG", fmt.Sprintf("%d (%s)", *game.ExternalMatchID, game.ExternalMatchSlug))
	} else {
		add("RAWG", "not matched")
	}
	add("Cover", game.CoverImage)
	add("Trailer", game.TrailerURL)
	if n := len(game.Screenshots); n > 0 {
		add("Screenshots", strconv.Itoa(n))
	}

	out := renderTable([]string{"Field", "Value"}, rows, nil, colorize)
	if desc := strings.TrimSpace(game.Description); desc != "" {
		out += "\n\n" + desc
	}
	return out
}

func describeMatch(res matching.Result) string {
	if !res.Matched {
		if res.Confidence > 0 {
			return fmt.Sprintf("No confident match (best score %.2f)", res.Confidence)
		}
		return "No match found"
	}
	return fmt.Sprintf("Matched %s (RAWG %d, confidence %.2f)", res.Enriched.Title, res.ExternalID, res.Confidence)
}

func shortID(id string) string {
	if len(id) <= shortIDLength {
		return id
	}
	return id[:shortIDLength]
}

// formatPlaytime renders minutes as "3h 05m".
func formatPlaytime(minutes int64) string {
	if minutes <= 0 {
		return "-"
	}
	hours := minutes / 60
	mins := minutes % 60
	if hours == 0 {
		return fmt.Sprintf("%dm", mins)
	}
	return fmt.Sprintf("%dh %02dm", hours, mins)
}

func formatLastPlayed(ts *time.Time) string {
	if ts == nil || ts.IsZero() {
		return "never"
	}
	return ts.Local().Format("2006-01-02 15:04")
}
