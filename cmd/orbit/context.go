package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"orbit/internal/cloudsync"
	"orbit/internal/cloudsync/pgstore"
	"orbit/internal/cloudsync/s3store"
	"orbit/internal/config"
	"orbit/internal/library"
	"orbit/internal/logging"
	"orbit/internal/matching"
	"orbit/internal/rawg"
)

type commandContext struct {
	configFlag *string
	jsonFlag   *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
}

func newCommandContext(configFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		jsonFlag:   jsonFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() *slog.Logger {
	c.loggerOnce.Do(func() {
		cfg, _ := c.ensureConfig()
		logger, err := logging.NewFromConfig(cfg)
		if err != nil {
			logger = logging.NewNop()
		}
		c.logger = logger
	})
	return c.logger
}

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

// session bundles what a library command needs. sync is nil when cloud sync
// is disabled or the remote could not be reached.
type session struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *library.Store
	sync   *cloudsync.Service

	syncErr     error
	closeRemote func()
}

// withSession opens the library and, when enabled, the cloud sync service,
// runs fn, then flushes pending pushes and closes everything.
func (c *commandContext) withSession(cmd *cobra.Command, fn func(*session) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	logger := c.ensureLogger()
	store, err := library.Open(cfg)
	if err != nil {
		return fmt.Errorf("open library: %w", err)
	}
	s := &session{cfg: cfg, logger: logger, store: store}
	defer store.Close()

	ctx := cmd.Context()
	if cfg.Cloud.Enabled {
		s.sync, s.closeRemote, s.syncErr = openSync(ctx, cfg, store, logger)
		if s.syncErr != nil {
			logging.WarnWithContext(logger, "cloud sync unavailable", "sync_unavailable",
				logging.Error(s.syncErr),
				logging.String(logging.FieldImpact, "changes stay local until the next successful sync"))
		}
	}

	runErr := fn(s)

	if s.sync != nil {
		flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
		if err := s.sync.Close(flushCtx); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: cloud push failed: %v\n", err)
		}
		cancel()
	}
	if s.closeRemote != nil {
		s.closeRemote()
	}
	return runErr
}

// notifier returns the sync service as a change notifier, or nil.
func (s *session) notifier() library.ChangeNotifier {
	if s.sync == nil {
		return nil
	}
	return s.sync
}

func (s *session) changed(ctx context.Context) {
	if s.sync != nil {
		s.sync.LibraryChanged(ctx)
	}
}

// requireSync returns the sync service or explains why it is unavailable.
func (s *session) requireSync() (*cloudsync.Service, error) {
	if s.sync != nil {
		return s.sync, nil
	}
	if !s.cfg.Cloud.Enabled {
		return nil, errors.New("cloud sync is disabled (set cloud.enabled = true in the config)")
	}
	return nil, fmt.Errorf("cloud sync unavailable: %w", s.syncErr)
}

func (s *session) resolver() *matching.Resolver {
	return matching.NewResolver(newSearcher(s.cfg, s.logger), s.logger)
}

func (s *session) matcher() *matching.Matcher {
	opts := []matching.MatcherOption{
		matching.WithBatchDelay(time.Duration(s.cfg.Matching.BatchDelayMS) * time.Millisecond),
	}
	if n := s.notifier(); n != nil {
		opts = append(opts, matching.WithNotifier(n))
	}
	return matching.NewMatcher(s.store, s.resolver(), s.logger, opts...)
}

// newSearcher returns nil when no RAWG key is configured so matching
// degrades to "no match".
func newSearcher(cfg *config.Config, logger *slog.Logger) rawg.Searcher {
	if !cfg.MatchingEnabled() {
		return nil
	}
	client, err := rawg.New(cfg.RAWG.APIKey, cfg.RAWG.BaseURL,
		rawg.WithTimeout(time.Duration(cfg.RAWG.TimeoutSeconds)*time.Second))
	if err != nil {
		logging.WarnWithContext(logger, "rawg client unavailable", "rawg_unavailable",
			logging.Error(err),
			logging.String(logging.FieldImpact, "titles are added without matching"))
		return nil
	}
	return client
}

func openSync(ctx context.Context, cfg *config.Config, store *library.Store, logger *slog.Logger) (*cloudsync.Service, func(), error) {
	remote, closeRemote, err := openRemote(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	svc, err := cloudsync.New(ctx, store, remote, cfg.DocumentPath(), logger,
		cloudsync.WithDebounce(time.Duration(cfg.Cloud.PushDebounceMS)*time.Millisecond))
	if err != nil {
		if closeRemote != nil {
			closeRemote()
		}
		return nil, nil, err
	}
	return svc, closeRemote, nil
}

func openRemote(ctx context.Context, cfg *config.Config, logger *slog.Logger) (cloudsync.DocumentStore, func(), error) {
	switch cfg.Cloud.Backend {
	case "s3":
		store, err := s3store.New(ctx, s3store.Options{
			Bucket:          cfg.Cloud.S3Bucket,
			Region:          cfg.Cloud.S3Region,
			Endpoint:        cfg.Cloud.S3Endpoint,
			AccessKeyID:     cfg.Cloud.S3AccessKeyID,
			SecretAccessKey: cfg.Cloud.S3SecretAccessKey,
			PollInterval:    time.Duration(cfg.Cloud.PollIntervalSeconds) * time.Second,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		return store, nil, nil
	case "postgres":
		store, err := pgstore.New(ctx, cfg.Cloud.PostgresDSN, logger)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported cloud backend %q", cfg.Cloud.Backend)
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
