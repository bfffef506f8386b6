package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/gofrs/flock"

	"orbit/internal/cloudsync"
	"orbit/internal/logging"
	"orbit/internal/matching"
	"orbit/internal/services"
)

const flushTimeout = 15 * time.Second

// ErrAlreadyRunning is returned when another process holds the lock.
var ErrAlreadyRunning = errors.New("another orbit watch instance is already running")

// Syncer is the part of cloudsync.Service the loop drives.
type Syncer interface {
	Pull(ctx context.Context) (cloudsync.PullReport, error)
	Watch(ctx context.Context) error
	Flush(ctx context.Context) error
}

// BatchMatcher matches every unmatched library entry.
type BatchMatcher interface {
	MatchAllUnmatched(ctx context.Context) (matching.BatchReport, error)
}

// Option configures a Runner.
type Option func(*Runner)

// WithSyncer enables cloud sync in the loop.
func WithSyncer(s Syncer) Option {
	return func(r *Runner) {
		r.syncer = s
	}
}

// WithAutoMatch schedules m every interval. A non-positive interval disables it.
func WithAutoMatch(m BatchMatcher, interval time.Duration) Option {
	return func(r *Runner) {
		r.matcher = m
		r.interval = interval
	}
}

// Runner coordinates sync and auto-matching and enforces single-instance execution.
type Runner struct {
	lockPath string
	lock     *flock.Flock
	syncer   Syncer
	matcher  BatchMatcher
	interval time.Duration
	logger   *slog.Logger
}

// New constructs a runner that locks lockPath while running.
func New(lockPath string, logger *slog.Logger, opts ...Option) *Runner {
	r := &Runner{
		lockPath: lockPath,
		lock:     flock.New(lockPath),
		logger:   logging.NewComponentLogger(logger, "watch"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run blocks until ctx is done or the remote subscription fails.
func (r *Runner) Run(ctx context.Context) error {
	ok, err := r.lock.TryLock()
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "watch", "lock", fmt.Sprintf("acquire %s", r.lockPath), err)
	}
	if !ok {
		return ErrAlreadyRunning
	}
	defer func() {
		if err := r.lock.Unlock(); err != nil {
			r.logger.Warn("failed to release watch lock", logging.Error(err))
		}
	}()

	ctx = services.WithOperation(ctx, "watch")
	r.logger.Info("watch started",
		logging.String("lock", r.lockPath),
		logging.Bool("sync", r.syncer != nil),
		logging.Duration("auto_match_interval", r.interval))

	if r.matcher != nil && r.interval > 0 {
		scheduler, err := r.startScheduler(ctx)
		if err != nil {
			return err
		}
		defer func() {
			if err := scheduler.Shutdown(); err != nil {
				r.logger.Warn("scheduler shutdown failed", logging.Error(err))
			}
		}()
	}

	var watchErr error
	if r.syncer != nil {
		watchErr = r.runSync(ctx)
	} else {
		<-ctx.Done()
	}

	r.stop(ctx)
	return watchErr
}

func (r *Runner) runSync(ctx context.Context) error {
	if report, err := r.syncer.Pull(ctx); err != nil {
		logging.WarnWithContext(r.logger, "initial pull failed", "sync_pull_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check cloud settings with `orbit sync status`"),
			logging.String(logging.FieldImpact, "library may be behind until the next remote change"))
	} else {
		r.logger.Info("initial pull complete",
			logging.Int("merged_games", report.MergedGames),
			logging.Bool("local_changed", report.LocalChanged))
	}

	if err := r.syncer.Watch(ctx); err != nil && ctx.Err() == nil {
		logging.ErrorWithContext(r.logger, "remote subscription failed", "sync_watch_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check cloud connectivity and restart orbit watch"))
		return err
	}
	return nil
}

func (r *Runner) startScheduler(ctx context.Context) (gocron.Scheduler, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "watch", "scheduler", "create scheduler", err)
	}
	_, err = scheduler.NewJob(
		gocron.DurationJob(r.interval),
		gocron.NewTask(func() { r.autoMatch(ctx) }),
		gocron.WithName("auto-match"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = scheduler.Shutdown()
		return nil, services.Wrap(services.ErrConfiguration, "watch", "scheduler", "register auto-match job", err)
	}
	scheduler.Start()
	return scheduler, nil
}

func (r *Runner) autoMatch(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	report, err := r.matcher.MatchAllUnmatched(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		logging.WarnWithContext(r.logger, "auto-match run failed", "auto_match_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "unmatched entries retried on the next run"))
		return
	}
	r.logger.Info("auto-match run complete",
		logging.Int("total", report.Total),
		logging.Int("matched", report.Matched),
		logging.Int("failed", report.Failed))
}

func (r *Runner) stop(ctx context.Context) {
	if r.syncer != nil {
		flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), flushTimeout)
		defer cancel()
		if err := r.syncer.Flush(flushCtx); err != nil {
			logging.WarnWithContext(r.logger, "final push failed", "sync_push_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "local changes reach the cloud on the next sync"))
		}
	}
	r.logger.Info("watch stopped")
}
