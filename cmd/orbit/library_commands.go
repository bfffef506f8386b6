package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"orbit/internal/library"
	"orbit/internal/matching"
	"orbit/internal/textutil"
)

type addOutput struct {
	Game  *library.Game    `json:"game"`
	Match *matching.Result `json:"match,omitempty"`
}

func newAddCommand(ctx *commandContext) *cobra.Command {
	var exePath string
	var sourceFlag string
	var tags []string
	var noMatch bool
	var favorite bool

	cmd := &cobra.Command{
		Use:   "add [title]",
		Short: "Add a game to the library",
		Long: "Add a game to the library. The title is matched against RAWG unless --no-match is set " +
			"or matching.auto_match_on_add is false. Without a title, one is derived from --exe.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			title := ""
			if len(args) == 1 {
				title = strings.TrimSpace(args[0])
			}
			exePath = strings.TrimSpace(exePath)
			if title == "" && exePath != "" {
				title = textutil.TitleFromPath(exePath)
			}
			if title == "" {
				return errors.New("a title or --exe is required")
			}
			source, err := library.ParseSource(sourceFlag)
			if err != nil {
				return err
			}

			return ctx.withSession(cmd, func(s *session) error {
				autoMatch := !noMatch && s.cfg.Matching.AutoMatchOnAdd
				game, res, err := s.matcher().Add(cmd.Context(), library.Game{
					Title:          title,
					Source:         source,
					ExecutablePath: exePath,
					Tags:           tags,
					IsFavorite:     favorite,
				}, autoMatch)
				if err != nil {
					return err
				}

				if ctx.jsonOutput() {
					out := addOutput{Game: game}
					if autoMatch {
						out.Match = &res
					}
					return writeJSON(cmd, out)
				}
				w := cmd.OutOrStdout()
				fmt.Fprintf(w, "Added %s (%s)\n", game.DisplayTitle(), game.ID)
				if autoMatch {
					fmt.Fprintln(w, describeMatch(res))
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&exePath, "exe", "", "Path to the game executable")
	cmd.Flags().StringVar(&sourceFlag, "source", "manual", "Where the game came from (manual, steam, epic, rawg)")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "Tag to attach (repeatable)")
	cmd.Flags().BoolVar(&noMatch, "no-match", false, "Skip title matching")
	cmd.Flags().BoolVar(&favorite, "favorite", false, "Mark the game as a favorite")
	return cmd
}

func newListCommand(ctx *commandContext) *cobra.Command {
	var statusFlag string
	var favorites bool
	var unmatched bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List games in the library",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := library.Filter{FavoritesOnly: favorites, UnmatchedOnly: unmatched}
			if strings.TrimSpace(statusFlag) != "" {
				status, err := library.ParseStatus(statusFlag)
				if err != nil {
					return err
				}
				filter.Status = status
			}

			return ctx.withSession(cmd, func(s *session) error {
				games, err := s.store.List(cmd.Context(), filter)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, nonNil(games))
				}
				w := cmd.OutOrStdout()
				if len(games) == 0 {
					fmt.Fprintln(w, "No games found")
					return nil
				}
				fmt.Fprintln(w, renderGameTable(games, shouldColorize(w)))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&statusFlag, "status", "", "Only show games with this status ("+statusChoices()+")")
	cmd.Flags().BoolVar(&favorites, "favorites", false, "Only show favorites")
	cmd.Flags().BoolVar(&unmatched, "unmatched", false, "Only show games without a RAWG match")
	return cmd
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one game in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, func(s *session) error {
				game, err := resolveGame(cmd.Context(), s.store, args[0])
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, game)
				}
				w := cmd.OutOrStdout()
				fmt.Fprintln(w, renderGameDetail(*game, shouldColorize(w)))
				return nil
			})
		},
	}
}

func newRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <id>",
		Aliases: []string{"rm"},
		Short:   "Remove a game from the library",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, func(s *session) error {
				game, err := resolveGame(cmd.Context(), s.store, args[0])
				if err != nil {
					return err
				}
				if err := s.store.Delete(cmd.Context(), game.ID); err != nil {
					return err
				}
				s.changed(cmd.Context())
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s (%s)\n", game.DisplayTitle(), game.ID)
				return nil
			})
		},
	}
}

func newFavoriteCommand(ctx *commandContext) *cobra.Command {
	var off bool

	cmd := &cobra.Command{
		Use:   "favorite <id>",
		Short: "Mark or unmark a game as a favorite",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return updateGame(cmd, ctx, args[0], func(game *library.Game) string {
				game.IsFavorite = !off
				if off {
					return fmt.Sprintf("%s is no longer a favorite", game.DisplayTitle())
				}
				return fmt.Sprintf("%s marked as favorite", game.DisplayTitle())
			})
		},
	}
	cmd.Flags().BoolVar(&off, "off", false, "Remove the favorite mark")
	return cmd
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status <id> <status>",
		Short: "Set a game's play status",
		Long:  "Set a game's play status: " + statusChoices() + ".",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := library.ParseStatus(args[1])
			if err != nil {
				return err
			}
			return updateGame(cmd, ctx, args[0], func(game *library.Game) string {
				game.Status = status
				return fmt.Sprintf("%s is now %s", game.DisplayTitle(), status)
			})
		},
	}
}

// updateGame applies mutate to a fresh copy of a game, persists it and
// reports the change.
func updateGame(cmd *cobra.Command, ctx *commandContext, ref string, mutate func(*library.Game) string) error {
	return ctx.withSession(cmd, func(s *session) error {
		resolved, err := resolveGame(cmd.Context(), s.store, ref)
		if err != nil {
			return err
		}
		var message string
		game, err := s.store.Modify(cmd.Context(), resolved.ID, func(game *library.Game) error {
			message = mutate(game)
			return nil
		})
		if err != nil {
			return err
		}
		s.changed(cmd.Context())
		if ctx.jsonOutput() {
			return writeJSON(cmd, game)
		}
		fmt.Fprintln(cmd.OutOrStdout(), message)
		return nil
	})
}

// resolveGame accepts a full id or a unique id prefix as shown by `orbit list`.
func resolveGame(ctx context.Context, store *library.Store, ref string) (*library.Game, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, errors.New("game id is required")
	}
	game, err := store.Get(ctx, ref)
	if err == nil {
		return game, nil
	}
	if !errors.Is(err, library.ErrNotFound) {
		return nil, err
	}

	games, err := store.All(ctx)
	if err != nil {
		return nil, err
	}
	var found *library.Game
	for i := range games {
		if !strings.HasPrefix(games[i].ID, ref) {
			continue
		}
		if found != nil {
			return nil, fmt.Errorf("game id %q is ambiguous; use more characters", ref)
		}
		found = &games[i]
	}
	if found == nil {
		return nil, fmt.Errorf("game %q: %w", ref, library.ErrNotFound)
	}
	return found, nil
}

func statusChoices() string {
	statuses := library.AllStatuses()
	names := make([]string, len(statuses))
	for i, status := range statuses {
		names[i] = string(status)
	}
	return strings.Join(names, ", ")
}
