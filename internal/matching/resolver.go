package matching

import (
	"context"
	"log/slog"
	"strings"

	"github.com/gosimple/slug"

	"orbit/internal/library"
	"orbit/internal/logging"
	"orbit/internal/rawg"
	"orbit/internal/services"
	"orbit/internal/textutil"
)

const (
	// AcceptThreshold is the lowest similarity accepted as a match.
	AcceptThreshold = 0.6
	// MaxCandidates caps how many search hits are scored.
	MaxCandidates = 5
)

// Resolver turns raw titles into match results.
type Resolver struct {
	searcher rawg.Searcher
	cache    *Cache
	logger   *slog.Logger
}

// NewResolver builds a resolver over searcher.
func NewResolver(searcher rawg.Searcher, logger *slog.Logger) *Resolver {
	return &Resolver{
		searcher: searcher,
		cache:    NewCache(),
		logger:   logging.NewComponentLogger(logger, "matching"),
	}
}

// Cache exposes the resolver's memoization layer.
func (r *Resolver) Cache() *Cache {
	return r.cache
}

// Forget evicts the cached result for rawTitle so the next lookup hits RAWG.
func (r *Resolver) Forget(rawTitle string) {
	r.cache.Delete(textutil.NormalizeTitle(rawTitle))
}

// accepts reports whether score clears the match threshold.
func accepts(score float64) bool {
	return score >= AcceptThreshold
}

// MatchTitle resolves rawTitle against RAWG. It never fails; errors are
// logged and reported as an unmatched result with zero confidence.
func (r *Resolver) MatchTitle(ctx context.Context, rawTitle string) Result {
	logger := logging.WithContext(ctx, r.logger)
	query := textutil.NormalizeTitle(rawTitle)
	if query == "" {
		logger.Debug("title empty after normalization", logging.String("raw_title", rawTitle))
		return Result{OriginalTitle: rawTitle}
	}

	if cached, ok := r.cache.Get(query); ok {
		cached.OriginalTitle = rawTitle
		logger.Debug("match cache hit", logging.String("query", query), logging.Bool("matched", cached.Matched))
		return cached
	}

	if r.searcher == nil {
		logging.WarnWithContext(logger, "title search unavailable", "rawg_unavailable",
			logging.String("query", query),
			logging.String(logging.FieldErrorHint, "set rawg.api_key or RAWG_API_KEY"),
			logging.String(logging.FieldImpact, "game kept with its entered metadata"))
		return Result{OriginalTitle: rawTitle}
	}

	resp, err := r.searcher.SearchGames(ctx, query, MaxCandidates)
	if err != nil {
		logging.WarnWithContext(logger, "title search failed", "rawg_search_failed",
			logging.String("query", query),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, searchHint(err)),
			logging.String(logging.FieldImpact, "game kept with its entered metadata"))
		return Result{OriginalTitle: rawTitle}
	}

	if len(resp.Results) == 0 {
		res := Result{OriginalTitle: rawTitle}
		r.cache.Put(query, res)
		logDecision(logger, "no catalog results", "rejected", "no search results",
			logging.String("query", query))
		return res
	}

	candidates := resp.Results
	if len(candidates) > MaxCandidates {
		candidates = candidates[:MaxCandidates]
	}
	bestIndex, bestScore := -1, -1.0
	for i, candidate := range candidates {
		score := textutil.TitleSimilarity(query, candidate.Name)
		logger.Debug("scored candidate",
			logging.String("candidate", candidate.Name),
			logging.Int64("rawg_id", candidate.ID),
			logging.Float64("score", score))
		if score > bestScore {
			bestIndex, bestScore = i, score
		}
	}
	best := candidates[bestIndex]

	if !accepts(bestScore) {
		res := Result{Confidence: bestScore, OriginalTitle: rawTitle}
		r.cache.Put(query, res)
		logDecision(logger, "best candidate below threshold", "rejected", "confidence below threshold",
			logging.String("query", query),
			logging.String("candidate", best.Name),
			logging.Float64("confidence", bestScore),
			logging.Float64("threshold", AcceptThreshold))
		return res
	}

	detail, err := r.searcher.GetGame(ctx, best.ID)
	if err != nil {
		logging.WarnWithContext(logger, "game detail fetch failed", "rawg_detail_failed",
			logging.Int64("rawg_id", best.ID),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "retry with rematch once RAWG is reachable"),
			logging.String(logging.FieldImpact, "game kept with its entered metadata"))
		return Result{OriginalTitle: rawTitle}
	}

	screenshots, err := r.searcher.GetScreenshots(ctx, best.ID)
	if err != nil {
		logger.Debug("screenshots unavailable", logging.Int64("rawg_id", best.ID), logging.Error(err))
		screenshots = nil
	}
	movies, err := r.searcher.GetMovies(ctx, best.ID)
	if err != nil {
		logger.Debug("trailer unavailable", logging.Int64("rawg_id", best.ID), logging.Error(err))
		movies = nil
	}

	res := Result{
		Matched:       true,
		Confidence:    bestScore,
		ExternalID:    best.ID,
		ExternalSlug:  pickSlug(detail.Slug, best.Slug, best.Name),
		Enriched:      enrichmentFromDetail(best, *detail, screenshots, movies),
		OriginalTitle: rawTitle,
	}
	r.cache.Put(query, res)
	logDecision(logger, "match accepted", "accepted", "confidence at or above threshold",
		logging.String("query", query),
		logging.String("candidate", best.Name),
		logging.Int64("rawg_id", best.ID),
		logging.Float64("confidence", bestScore))
	return res
}

// searchHint separates failures a later rematch can fix from ones that need
// a config change.
func searchHint(err error) string {
	if services.IsRetryable(err) {
		return "check network access and RAWG availability; retry with rematch"
	}
	return "check rawg.api_key and rawg.base_url"
}

func logDecision(logger *slog.Logger, msg, result, reason string, attrs ...logging.Attr) {
	all := append(logging.DecisionAttrs("match", result, reason), attrs...)
	logger.Info(msg, logging.Args(all...)...)
}

func pickSlug(values ...string) string {
	for i, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if i == len(values)-1 {
			return slug.Make(v)
		}
		return v
	}
	return ""
}

// enrichmentFromDetail maps RAWG payloads onto a partial library record.
func enrichmentFromDetail(candidate, detail rawg.Game, screenshots []rawg.Image, movies []rawg.Movie) library.Game {
	name := firstNonEmpty(detail.Name, candidate.Name)
	cover := firstNonEmpty(detail.BackgroundImage, candidate.BackgroundImage)
	game := library.Game{
		Title:           name,
		Description:     firstNonEmpty(detail.DescriptionRaw, stripTags(detail.Description)),
		CoverImage:      cover,
		BackgroundImage: firstNonEmpty(detail.AdditionalImage, cover),
		Developer:       joinNames(detail.Developers),
		Publisher:       joinNames(detail.Publishers),
		ReleaseDate:     firstNonEmpty(detail.Released, candidate.Released),
		Rating:          detail.Rating,
		MetacriticScore: detail.Metacritic,
	}
	if game.Rating == 0 {
		game.Rating = candidate.Rating
	}
	if game.MetacriticScore == 0 {
		game.MetacriticScore = candidate.Metacritic
	}
	genres := detail.Genres
	if len(genres) == 0 {
		genres = candidate.Genres
	}
	for _, g := range genres {
		if genre := strings.TrimSpace(g.Name); genre != "" {
			game.Genres = append(game.Genres, genre)
		}
	}
	for _, shot := range screenshots {
		if url := strings.TrimSpace(shot.Image); url != "" {
			game.Screenshots = append(game.Screenshots, url)
		}
	}
	for _, movie := range movies {
		if url := movie.BestURL(); url != "" {
			game.TrailerURL = url
			break
		}
	}
	return game
}

func joinNames(refs []rawg.NamedRef) string {
	names := make([]string, 0, len(refs))
	for _, ref := range refs {
		if name := strings.TrimSpace(ref.Name); name != "" {
			names = append(names, name)
		}
	}
	return strings.Join(names, ", ")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// stripTags drops HTML markup from RAWG's rich description.
func stripTags(html string) string {
	var b strings.Builder
	inTag := false
	for _, r := range html {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
