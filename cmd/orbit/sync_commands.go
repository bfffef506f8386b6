package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"orbit/internal/cloudsync"
)

func newSyncCommand(ctx *commandContext) *cobra.Command {
	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Cloud sync utilities",
	}
	syncCmd.AddCommand(newSyncPushCommand(ctx))
	syncCmd.AddCommand(newSyncPullCommand(ctx))
	syncCmd.AddCommand(newSyncStatusCommand(ctx))
	return syncCmd
}

func newSyncPushCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "push",
		Short: "Upload the local library, replacing the cloud copy",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, func(s *session) error {
				svc, err := s.requireSync()
				if err != nil {
					return err
				}
				games, err := s.store.All(cmd.Context())
				if err != nil {
					return err
				}
				if err := svc.Push(cmd.Context(), games); err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, svc.Status())
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Pushed %d games to %s\n", len(games), s.cfg.DocumentPath())
				return nil
			})
		},
	}
}

func newSyncPullCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "pull",
		Short: "Merge the cloud copy into the local library",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, func(s *session) error {
				svc, err := s.requireSync()
				if err != nil {
					return err
				}
				report, err := svc.Pull(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, report)
				}
				w := cmd.OutOrStdout()
				fmt.Fprintf(w, "Merged %d remote and %d local games into %d\n",
					report.RemoteGames, report.LocalGames, report.MergedGames)
				if report.LocalChanged {
					fmt.Fprintln(w, "Local library updated")
				}
				if report.PushScheduled {
					fmt.Fprintln(w, "Cloud copy updated with local changes")
				}
				return nil
			})
		},
	}
}

type syncStatusOutput struct {
	Enabled       bool             `json:"enabled"`
	Backend       string           `json:"backend,omitempty"`
	Document      string           `json:"document,omitempty"`
	Connected     bool             `json:"connected"`
	ConnectError  string           `json:"connect_error,omitempty"`
	Status        cloudsync.Status `json:"status"`
	SnapshotGames int              `json:"snapshot_games"`
	SnapshotAt    *time.Time       `json:"snapshot_at,omitempty"`
	SnapshotFrom  string           `json:"snapshot_device,omitempty"`
}

func newSyncStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show cloud sync state and the last known cloud snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, func(s *session) error {
				status, snapshot, err := cloudsync.LocalStatus(cmd.Context(), s.store)
				if err != nil {
					return err
				}
				out := syncStatusOutput{
					Enabled:   s.cfg.Cloud.Enabled,
					Connected: s.sync != nil,
					Status:    status,
				}
				if s.cfg.Cloud.Enabled {
					out.Backend = s.cfg.Cloud.Backend
					out.Document = s.cfg.DocumentPath()
				}
				if s.sync != nil {
					out.Status = s.sync.Status()
				} else if s.syncErr != nil {
					out.ConnectError = s.syncErr.Error()
				}
				if snapshot != nil {
					out.SnapshotGames = len(snapshot.Games)
					out.SnapshotFrom = snapshot.DeviceID
					if !snapshot.UpdatedAt.IsZero() {
						ts := snapshot.UpdatedAt
						out.SnapshotAt = &ts
					}
				}

				if ctx.jsonOutput() {
					return writeJSON(cmd, out)
				}
				w := cmd.OutOrStdout()
				fmt.Fprintln(w, strings.Join(renderSyncStatus(out, shouldColorize(w)), "\n"))
				return nil
			})
		},
	}
}

func renderSyncStatus(out syncStatusOutput, colorize bool) []string {
	lines := renderSectionHeader("Cloud sync", colorize)
	if !out.Enabled {
		lines = append(lines, renderStatusLine("Sync", statusWarn, "Disabled", colorize))
	} else if out.Connected {
		lines = append(lines, renderStatusLine("Backend", statusOK, fmt.Sprintf("%s (%s)", out.Backend, out.Document), colorize))
	} else {
		lines = append(lines, renderStatusLine("Backend", statusError, out.ConnectError, colorize))
	}

	switch out.Status.State {
	case cloudsync.StateError:
		lines = append(lines, renderStatusLine("State", statusError, out.Status.Error, colorize))
	case cloudsync.StateSyncing:
		lines = append(lines, renderStatusLine("State", statusInfo, "Syncing", colorize))
	default:
		lines = append(lines, renderStatusLine("State", statusOK, "Idle", colorize))
	}
	if out.Status.DeviceID != "" {
		lines = append(lines, renderStatusLine("Device", statusInfo, out.Status.DeviceID, colorize))
	}
	if out.Status.LastSyncedAt != nil {
		lines = append(lines, renderStatusLine("Last sync", statusInfo, out.Status.LastSyncedAt.Local().Format(time.DateTime), colorize))
	} else {
		lines = append(lines, renderStatusLine("Last sync", statusWarn, "Never", colorize))
	}
	if out.SnapshotGames > 0 || out.SnapshotFrom != "" {
		detail := fmt.Sprintf("%d games", out.SnapshotGames)
		if out.SnapshotFrom != "" {
			detail += " from " + out.SnapshotFrom
		}
		if out.SnapshotAt != nil {
			detail += " at " + out.SnapshotAt.Local().Format(time.DateTime)
		}
		lines = append(lines, renderStatusLine("Cloud snapshot", statusInfo, detail, colorize))
	}
	return lines
}
