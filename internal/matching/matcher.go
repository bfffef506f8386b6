package matching

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"orbit/internal/library"
	"orbit/internal/logging"
	"orbit/internal/services"
)

// Matcher applies resolver results to stored library records.
type Matcher struct {
	store    *library.Store
	resolver *Resolver
	delay    time.Duration
	notifier library.ChangeNotifier
	logger   *slog.Logger
}

// MatcherOption configures a Matcher.
type MatcherOption func(*Matcher)

// WithBatchDelay sets the pause between items in MatchAllUnmatched.
func WithBatchDelay(delay time.Duration) MatcherOption {
	return func(m *Matcher) {
		if delay >= 0 {
			m.delay = delay
		}
	}
}

// WithNotifier registers a listener for library changes.
func WithNotifier(notifier library.ChangeNotifier) MatcherOption {
	return func(m *Matcher) {
		m.notifier = notifier
	}
}

// NewMatcher builds a matcher over store.
func NewMatcher(store *library.Store, resolver *Resolver, logger *slog.Logger, opts ...MatcherOption) *Matcher {
	m := &Matcher{
		store:    store,
		resolver: resolver,
		delay:    time.Second,
		logger:   logging.NewComponentLogger(logger, "matcher"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Resolver returns the underlying resolver.
func (m *Matcher) Resolver() *Resolver {
	return m.resolver
}

// Add stores a new record, matching it first when autoMatch is set. The raw
// title is kept as OriginalTitle. When matching fails the raw title becomes
// the display title.
func (m *Matcher) Add(ctx context.Context, game library.Game, autoMatch bool) (*library.Game, Result, error) {
	raw := strings.TrimSpace(firstNonEmpty(game.OriginalTitle, game.Title))
	if raw == "" {
		return nil, Result{}, services.Wrap(services.ErrValidation, "matcher", "add", "title must not be empty", nil)
	}
	if strings.TrimSpace(game.OriginalTitle) == "" {
		// Title holds the raw input, not a display title the user chose.
		game.Title = ""
	}
	game.OriginalTitle = raw

	var res Result
	if autoMatch {
		res = m.resolver.MatchTitle(services.WithOperation(ctx, "add"), raw)
		game = MergeEnrichment(game, res)
	}
	if strings.TrimSpace(game.Title) == "" {
		game.Title = raw
	}

	stored, err := m.store.Add(ctx, game)
	if err != nil {
		return nil, res, err
	}
	m.changed(ctx)
	return stored, res, nil
}

// MatchGame matches one stored record by id and persists the merge. Records
// that are already linked are returned untouched; use Rematch for those.
func (m *Matcher) MatchGame(ctx context.Context, id string) (Result, *library.Game, error) {
	res, game, err := m.matchGame(ctx, id)
	if err != nil {
		return res, game, err
	}
	if res.Matched {
		m.changed(ctx)
	}
	return res, game, nil
}

func (m *Matcher) matchGame(ctx context.Context, id string) (Result, *library.Game, error) {
	ctx = services.WithGameID(services.WithOperation(ctx, "match"), id)
	game, err := m.store.Get(ctx, id)
	if err != nil {
		return Result{}, nil, err
	}
	if game.IsMatched() {
		return Result{Matched: true, Confidence: 1, ExternalID: *game.ExternalMatchID, ExternalSlug: game.ExternalMatchSlug, OriginalTitle: game.OriginalTitle}, game, nil
	}

	res := m.resolver.MatchTitle(ctx, firstNonEmpty(game.OriginalTitle, game.Title))
	if !res.Matched {
		return res, game, nil
	}
	// The lookup can take seconds; merge into a fresh copy so writes made
	// meanwhile (a cloud pull, a play session) are kept.
	merged, err := m.store.Modify(ctx, id, func(fresh *library.Game) error {
		if fresh.IsMatched() {
			return library.SkipUpdate
		}
		*fresh = MergeEnrichment(*fresh, res)
		return nil
	})
	if err != nil {
		return res, game, fmt.Errorf("persist match: %w", err)
	}
	return res, merged, nil
}

// BatchReport summarizes a MatchAllUnmatched run.
type BatchReport struct {
	Total     int           `json:"total"`
	Matched   int           `json:"matched"`
	Unmatched int           `json:"unmatched"`
	Failed    int           `json:"failed"`
	Duration  time.Duration `json:"duration"`
}

// MatchAllUnmatched walks every record without a match linkage, one at a
// time with the configured delay between lookups. Cancellation stops the
// walk and returns the partial report with ctx's error.
func (m *Matcher) MatchAllUnmatched(ctx context.Context) (BatchReport, error) {
	start := time.Now()
	var report BatchReport

	games, err := m.store.List(ctx, library.Filter{UnmatchedOnly: true})
	if err != nil {
		return report, err
	}
	report.Total = len(games)
	logger := logging.WithContext(ctx, m.logger)
	logger.Info("batch match started", logging.Int("unmatched", len(games)))

	for i, game := range games {
		if i > 0 && m.delay > 0 {
			timer := time.NewTimer(m.delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				m.finishBatch(ctx, logger, &report, start)
				return report, ctx.Err()
			case <-timer.C:
			}
		} else if err := ctx.Err(); err != nil {
			m.finishBatch(ctx, logger, &report, start)
			return report, err
		}

		res, _, err := m.matchGame(ctx, game.ID)
		switch {
		case err != nil:
			report.Failed++
			logging.WarnWithContext(logger, "batch match item failed", "batch_item_failed",
				logging.String(logging.FieldGameID, game.ID),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "run orbit match-all again"),
				logging.String(logging.FieldImpact, "game left unmatched"))
		case res.Matched:
			report.Matched++
		default:
			report.Unmatched++
		}
	}

	m.finishBatch(ctx, logger, &report, start)
	return report, nil
}

func (m *Matcher) finishBatch(ctx context.Context, logger *slog.Logger, report *BatchReport, start time.Time) {
	report.Duration = time.Since(start)
	if report.Matched > 0 {
		m.changed(context.WithoutCancel(ctx))
	}
	logger.Info("batch match finished",
		logging.Int("total", report.Total),
		logging.Int("matched", report.Matched),
		logging.Int("unmatched", report.Unmatched),
		logging.Int("failed", report.Failed),
		logging.Duration("duration", report.Duration))
}

// Rematch evicts the cached lookup and matches again using query, or the
// record's original title when query is empty. Fields an earlier match
// filled in are replaced; fields the user entered are kept. When the new
// lookup does not match the record is left as it was.
func (m *Matcher) Rematch(ctx context.Context, id, query string) (Result, *library.Game, error) {
	ctx = services.WithGameID(services.WithOperation(ctx, "rematch"), id)
	game, err := m.store.Get(ctx, id)
	if err != nil {
		return Result{}, nil, err
	}
	query = strings.TrimSpace(query)
	if query == "" {
		query = firstNonEmpty(game.OriginalTitle, game.Title)
	}
	if query == "" {
		return Result{}, game, services.Wrap(services.ErrValidation, "matcher", "rematch", "no title to match", nil)
	}
	m.resolver.Forget(query)

	res := m.resolver.MatchTitle(ctx, query)
	if !res.Matched {
		return res, game, nil
	}

	merged, err := m.store.Modify(ctx, id, func(fresh *library.Game) error {
		updated := MergeEnrichment(clearInferred(*fresh), res)
		if strings.TrimSpace(updated.Title) == "" {
			updated.Title = firstNonEmpty(fresh.OriginalTitle, fresh.Title)
		}
		*fresh = updated
		return nil
	})
	if err != nil {
		return res, game, fmt.Errorf("persist rematch: %w", err)
	}
	m.changed(ctx)
	return res, merged, nil
}

func (m *Matcher) changed(ctx context.Context) {
	if m.notifier != nil {
		m.notifier.LibraryChanged(ctx)
	}
}
