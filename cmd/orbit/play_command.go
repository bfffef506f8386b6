package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"orbit/internal/launcher"
)

func newPlayCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "play <id>",
		Short: "Launch a game and record the session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, func(s *session) error {
				game, err := resolveGame(cmd.Context(), s.store, args[0])
				if err != nil {
					return err
				}
				opts := []launcher.Option{}
				if n := s.notifier(); n != nil {
					opts = append(opts, launcher.WithNotifier(n))
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Launching %s...\n", game.DisplayTitle())
				result, err := launcher.New(s.store, s.logger, opts...).Play(cmd.Context(), game.ID)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, result)
				}
				w := cmd.OutOrStdout()
				fmt.Fprintf(w, "Played %s for %s (total %s)\n",
					game.DisplayTitle(), formatPlaytime(result.MinutesAdded), formatPlaytime(result.TotalPlaytime))
				if result.ExitErr != "" {
					fmt.Fprintf(w, "Game exited with error: %s\n", result.ExitErr)
				}
				return nil
			})
		},
	}
}
