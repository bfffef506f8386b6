package matching

import (
	"slices"
	"strings"

	"orbit/internal/library"
)

// MergeEnrichment applies res to game. Every enrichable field keeps the
// record's own value when it is non-empty and takes the matched value
// otherwise. Fields taken from the match are recorded in InferredFields.
// When res is a match the linkage (ExternalMatchID, ExternalMatchSlug,
// AutoMatched) is always stamped, even if every field was kept. An unmatched
// result returns game unchanged.
func MergeEnrichment(game library.Game, res Result) library.Game {
	if !res.Matched {
		return game
	}
	out := game.Clone()
	e := res.Enriched
	f := filler{game: &out}

	f.text(library.FieldTitle, &out.Title, e.Title)
	f.text(library.FieldDescription, &out.Description, e.Description)
	f.text(library.FieldCoverImage, &out.CoverImage, e.CoverImage)
	f.text(library.FieldBackgroundImage, &out.BackgroundImage, e.BackgroundImage)
	f.list(library.FieldScreenshots, &out.Screenshots, e.Screenshots)
	f.text(library.FieldTrailerURL, &out.TrailerURL, e.TrailerURL)
	f.list(library.FieldGenres, &out.Genres, e.Genres)
	f.text(library.FieldDeveloper, &out.Developer, e.Developer)
	f.text(library.FieldPublisher, &out.Publisher, e.Publisher)
	f.text(library.FieldReleaseDate, &out.ReleaseDate, e.ReleaseDate)
	if out.Rating == 0 && e.Rating != 0 {
		out.Rating = e.Rating
		f.mark(library.FieldRating)
	}
	if out.MetacriticScore == 0 && e.MetacriticScore != 0 {
		out.MetacriticScore = e.MetacriticScore
		f.mark(library.FieldMetacriticScore)
	}

	id := res.ExternalID
	out.ExternalMatchID = &id
	out.ExternalMatchSlug = res.ExternalSlug
	out.AutoMatched = true
	if strings.TrimSpace(out.OriginalTitle) == "" {
		out.OriginalTitle = res.OriginalTitle
	}
	return out
}

// filler copies matched values into empty fields and remembers which ones.
type filler struct {
	game *library.Game
}

func (f filler) text(field string, own *string, matched string) {
	if strings.TrimSpace(*own) != "" || strings.TrimSpace(matched) == "" {
		return
	}
	*own = matched
	f.mark(field)
}

func (f filler) list(field string, own *[]string, matched []string) {
	if len(*own) > 0 || len(matched) == 0 {
		return
	}
	*own = slices.Clone(matched)
	f.mark(field)
}

func (f filler) mark(field string) {
	if !f.game.IsInferred(field) {
		f.game.InferredFields = append(f.game.InferredFields, field)
	}
}

// clearInferred drops the linkage and the fields a previous match filled
// in, so a rematch can replace them. Fields the user entered, usage fields
// and tags are kept.
func clearInferred(game library.Game) library.Game {
	out := game.Clone()
	for _, field := range game.InferredFields {
		switch field {
		case library.FieldTitle:
			out.Title = ""
		case library.FieldDescription:
			out.Description = ""
		case library.FieldCoverImage:
			out.CoverImage = ""
		case library.FieldBackgroundImage:
			out.BackgroundImage = ""
		case library.FieldScreenshots:
			out.Screenshots = nil
		case library.FieldTrailerURL:
			out.TrailerURL = ""
		case library.FieldGenres:
			out.Genres = nil
		case library.FieldDeveloper:
			out.Developer = ""
		case library.FieldPublisher:
			out.Publisher = ""
		case library.FieldReleaseDate:
			out.ReleaseDate = ""
		case library.FieldRating:
			out.Rating = 0
		case library.FieldMetacriticScore:
			out.MetacriticScore = 0
		}
	}
	out.InferredFields = nil
	out.ExternalMatchID = nil
	out.ExternalMatchSlug = ""
	out.AutoMatched = false
	return out
}
