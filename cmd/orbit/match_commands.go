package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"orbit/internal/matching"
	"orbit/internal/textutil"
)

var errMatchingDisabled = errors.New("matching needs a RAWG API key (set rawg.api_key or RAWG_API_KEY)")

type matchPreview struct {
	Query      string          `json:"query"`
	Normalized string          `json:"normalized"`
	Result     matching.Result `json:"result"`
}

func newMatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "match <title>",
		Short: "Preview how a title would be matched without changing the library",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cfg.MatchingEnabled() {
				return errMatchingDisabled
			}
			logger := ctx.ensureLogger()
			resolver := matching.NewResolver(newSearcher(cfg, logger), logger)
			res := resolver.MatchTitle(cmd.Context(), args[0])

			preview := matchPreview{
				Query:      args[0],
				Normalized: textutil.NormalizeTitle(args[0]),
				Result:     res,
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, preview)
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Normalized: %s\n", preview.Normalized)
			fmt.Fprintln(w, describeMatch(res))
			if res.Matched {
				fmt.Fprintln(w, renderGameDetail(res.Enriched, shouldColorize(w)))
			}
			return nil
		},
	}
}

func newMatchAllCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "match-all",
		Short: "Match every game that has no RAWG match yet",
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return ctx.withSession(cmd, func(s *session) error {
				if !s.cfg.MatchingEnabled() {
					return errMatchingDisabled
				}
				report, err := s.matcher().MatchAllUnmatched(runCtx)
				if ctx.jsonOutput() {
					if jsonErr := writeJSON(cmd, report); jsonErr != nil {
						return jsonErr
					}
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Checked %d games: %d matched, %d unmatched, %d failed (%s)\n",
					report.Total, report.Matched, report.Unmatched, report.Failed, report.Duration.Round(time.Millisecond))
				return err
			})
		},
	}
}

func newRematchCommand(ctx *commandContext) *cobra.Command {
	var query string

	cmd := &cobra.Command{
		Use:   "rematch <id>",
		Short: "Match a game again, optionally with a different search title",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, func(s *session) error {
				if !s.cfg.MatchingEnabled() {
					return errMatchingDisabled
				}
				game, err := resolveGame(cmd.Context(), s.store, args[0])
				if err != nil {
					return err
				}
				res, updated, err := s.matcher().Rematch(cmd.Context(), game.ID, query)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, addOutput{Game: updated, Match: &res})
				}
				w := cmd.OutOrStdout()
				fmt.Fprintln(w, describeMatch(res))
				if !res.Matched {
					fmt.Fprintf(w, "%s left unchanged\n", game.DisplayTitle())
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&query, "query", "", "Search with this title instead of the stored one")
	return cmd
}
