package launcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"orbit/internal/library"
	"orbit/internal/logging"
	"orbit/internal/services"
)

// Executor runs a program and waits for it to exit.
type Executor interface {
	Run(ctx context.Context, binary string, dir string) error
}

// Session describes one finished play session.
type Session struct {
	GameID        string        `json:"game_id"`
	StartedAt     time.Time     `json:"started_at"`
	Elapsed       time.Duration `json:"elapsed"`
	MinutesAdded  int64         `json:"minutes_added"`
	TotalPlaytime int64         `json:"total_playtime"`
	ExitErr       string        `json:"exit_error,omitempty"`
}

// Option configures a Launcher.
type Option func(*Launcher)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(l *Launcher) {
		if exec != nil {
			l.exec = exec
		}
	}
}

// WithNotifier registers the receiver of library change events.
func WithNotifier(n library.ChangeNotifier) Option {
	return func(l *Launcher) {
		l.notifier = n
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Launcher) {
		if now != nil {
			l.now = now
		}
	}
}

// Launcher plays library entries.
type Launcher struct {
	store    *library.Store
	exec     Executor
	notifier library.ChangeNotifier
	now      func() time.Time
	logger   *slog.Logger
}

// New constructs a launcher backed by store.
func New(store *library.Store, logger *slog.Logger, opts ...Option) *Launcher {
	l := &Launcher{
		store:  store,
		exec:   commandExecutor{},
		now:    time.Now,
		logger: logging.NewComponentLogger(logger, "launcher"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Play runs the executable of game id and records the session. A non-zero
// exit still counts as played time; the exit error is reported in the
// session rather than returned.
func (l *Launcher) Play(ctx context.Context, id string) (Session, error) {
	ctx = services.WithGameID(services.WithOperation(ctx, "play"), id)
	game, err := l.store.Get(ctx, id)
	if err != nil {
		return Session{}, err
	}
	binary := strings.TrimSpace(game.ExecutablePath)
	if binary == "" {
		return Session{}, services.Wrap(services.ErrValidation, "launcher", "play",
			fmt.Sprintf("%q has no executable", game.DisplayTitle()), nil)
	}
	if _, err := os.Stat(binary); err != nil {
		return Session{}, services.Wrap(services.ErrValidation, "launcher", "play", "executable not found", err)
	}

	logger := logging.WithContext(ctx, l.logger)
	started := l.now()
	logger.Info("game started",
		logging.String("title", game.DisplayTitle()),
		logging.String("executable", binary))

	session := Session{GameID: id, StartedAt: started.UTC()}
	runErr := l.exec.Run(ctx, binary, filepath.Dir(binary))
	if runErr != nil {
		if errors.Is(runErr, exec.ErrNotFound) || errors.Is(runErr, os.ErrPermission) {
			return Session{}, services.Wrap(services.ErrValidation, "launcher", "play", "start executable", runErr)
		}
		session.ExitErr = runErr.Error()
		logging.WarnWithContext(logger, "game exited with error", "launch_exit_error",
			logging.Error(runErr),
			logging.String(logging.FieldImpact, "session time is still recorded"))
	}

	finished := l.now()
	session.Elapsed = finished.Sub(started)
	session.MinutesAdded = int64(session.Elapsed / time.Minute)

	// The session must be recorded even if ctx was cancelled while playing.
	// Only the delta is written; the row may have changed during the session.
	persistCtx := context.WithoutCancel(ctx)
	updated, err := l.store.RecordSession(persistCtx, id, session.MinutesAdded, finished.UTC())
	if err != nil {
		return session, err
	}
	session.TotalPlaytime = updated.Playtime

	logger.Info("game session recorded",
		logging.Duration("elapsed", session.Elapsed),
		logging.Int64("minutes_added", session.MinutesAdded),
		logging.Int64("playtime", updated.Playtime))
	if l.notifier != nil {
		l.notifier.LibraryChanged(persistCtx)
	}
	return session, nil
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, dir string) error {
	cmd := exec.CommandContext(ctx, binary) //nolint:gosec
	cmd.Dir = dir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return err
	}
	return cmd.Wait()
}
