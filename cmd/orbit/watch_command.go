package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"orbit/internal/matching"
	"orbit/internal/watch"
)

// sweepMatcher forgets cached lookups before each scheduled sweep so titles
// that had no match earlier in a long-running watch are retried.
type sweepMatcher struct {
	*matching.Matcher
}

func (m sweepMatcher) MatchAllUnmatched(ctx context.Context) (matching.BatchReport, error) {
	m.Resolver().Cache().Clear()
	return m.Matcher.MatchAllUnmatched(ctx)
}

func newWatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Keep the library in sync and match new games in the background",
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return ctx.withSession(cmd, func(s *session) error {
				opts := []watch.Option{}
				if s.sync != nil {
					opts = append(opts, watch.WithSyncer(s.sync))
				} else if s.cfg.Cloud.Enabled {
					return fmt.Errorf("cloud sync unavailable: %w", s.syncErr)
				}
				interval := time.Duration(s.cfg.Matching.AutoMatchIntervalMinutes) * time.Minute
				if s.cfg.MatchingEnabled() && interval > 0 {
					opts = append(opts, watch.WithAutoMatch(sweepMatcher{s.matcher()}, interval))
				}
				if len(opts) == 0 {
					return errors.New("nothing to watch: enable cloud sync or set matching.auto_match_interval_minutes")
				}

				fmt.Fprintln(cmd.ErrOrStderr(), "Watching library (Ctrl+C to stop)")
				return watch.New(s.cfg.LockPath(), s.logger, opts...).Run(runCtx)
			})
		},
	}
}
