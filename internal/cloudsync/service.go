package cloudsync

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"orbit/internal/library"
	"orbit/internal/logging"
	"orbit/internal/services"
)

const (
	deviceIDKey     = "sync.device_id"
	lastSyncedKey   = "sync.last_synced_at"
	lastSnapshotKey = "sync.last_snapshot"

	defaultDebounce = 1500 * time.Millisecond
)

// ErrClosed is returned by Push and Flush after Close.
var ErrClosed = errors.New("sync service closed")

// Service pushes, pulls and watches the cloud copy of the library.
type Service struct {
	store    *library.Store
	remote   DocumentStore
	path     string
	deviceID string
	debounce time.Duration
	logger   *slog.Logger

	mu         sync.Mutex
	timer      *time.Timer
	pending    []library.Game
	hasPending bool
	closed     bool
	status     Status

	// pushMu keeps at most one remote write in flight.
	pushMu sync.Mutex
}

// Option configures a Service.
type Option func(*Service)

// WithDebounce sets the push coalescing window.
func WithDebounce(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.debounce = d
		}
	}
}

// New builds a sync service for the document at path. The device id is read
// from the local key/value table and created on first use.
func New(ctx context.Context, store *library.Store, remote DocumentStore, path string, logger *slog.Logger, opts ...Option) (*Service, error) {
	if store == nil || remote == nil {
		return nil, services.Wrap(services.ErrConfiguration, "cloudsync", "new", "store and remote are required", nil)
	}
	s := &Service{
		store:    store,
		remote:   remote,
		path:     path,
		debounce: defaultDebounce,
		logger:   logging.NewComponentLogger(logger, "cloudsync"),
		status:   Status{State: StateIdle},
	}
	for _, opt := range opts {
		opt(s)
	}

	deviceID, err := loadDeviceID(ctx, store)
	if err != nil {
		return nil, err
	}
	s.deviceID = deviceID
	s.status.DeviceID = deviceID
	if raw, ok, err := store.GetValue(ctx, lastSyncedKey); err == nil && ok {
		if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			s.status.LastSyncedAt = &ts
		}
	}
	return s, nil
}

func loadDeviceID(ctx context.Context, store *library.Store) (string, error) {
	id, ok, err := store.GetValue(ctx, deviceIDKey)
	if err != nil {
		return "", err
	}
	if ok && id != "" {
		return id, nil
	}
	id = uuid.NewString()
	if err := store.SetValue(ctx, deviceIDKey, id); err != nil {
		return "", err
	}
	return id, nil
}

// DeviceID returns this installation's id.
func (s *Service) DeviceID() string {
	return s.deviceID
}

// Status returns a snapshot of the sync status.
func (s *Service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	status := s.status
	status.PendingPush = s.hasPending
	if s.status.LastSyncedAt != nil {
		ts := *s.status.LastSyncedAt
		status.LastSyncedAt = &ts
	}
	return status
}

// SchedulePush queues games for upload after the debounce window. A call
// made while a push is pending replaces its payload and restarts the window.
func (s *Service) SchedulePush(games []library.Game) {
	payload := cloneGames(games)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.pending = payload
	s.hasPending = true
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.debounce, s.firePending)
}

// LibraryChanged schedules a push of the current local library.
func (s *Service) LibraryChanged(ctx context.Context) {
	games, err := s.store.All(ctx)
	if err != nil {
		logging.WarnWithContext(s.logger, "read library for push failed", "sync_read_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "change not pushed until the next sync"))
		return
	}
	s.SchedulePush(games)
}

func (s *Service) takePending() ([]library.Game, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if !s.hasPending {
		return nil, false
	}
	games := s.pending
	s.pending = nil
	s.hasPending = false
	return games, true
}

func (s *Service) firePending() {
	games, ok := s.takePending()
	if !ok {
		return
	}
	ctx := services.WithOperation(context.Background(), "push")
	if err := s.push(ctx, games); err != nil {
		logging.WarnWithContext(s.logger, "debounced push failed", "sync_push_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check cloud credentials and connectivity"),
			logging.String(logging.FieldImpact, "cloud copy is behind until the next sync"))
	}
}

// Flush sends a pending push immediately. It is a no-op when nothing is pending.
func (s *Service) Flush(ctx context.Context) error {
	games, ok := s.takePending()
	if !ok {
		return nil
	}
	return s.push(ctx, games)
}

// Close flushes any pending push and stops accepting new ones.
func (s *Service) Close(ctx context.Context) error {
	err := s.Flush(ctx)
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return err
}

// Push writes games to the cloud copy right away.
func (s *Service) Push(ctx context.Context, games []library.Game) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return ErrClosed
	}
	return s.push(ctx, cloneGames(games))
}

func (s *Service) push(ctx context.Context, games []library.Game) error {
	s.pushMu.Lock()
	defer s.pushMu.Unlock()

	s.setSyncing()
	library.SortByID(games)
	doc := Document{Games: games, DeviceID: s.deviceID}
	start := time.Now()
	if err := s.remote.Set(ctx, s.path, doc); err != nil {
		wrapped := services.Wrap(services.ErrExternal, "cloudsync", "push", "write remote document", err)
		s.setError(wrapped)
		return wrapped
	}
	s.setSynced(ctx)
	s.logger.Info("library pushed",
		logging.Int("games", len(games)),
		logging.Duration("latency", time.Since(start)))
	return nil
}

// PullReport describes what a pull changed.
type PullReport struct {
	RemoteGames   int  `json:"remote_games"`
	LocalGames    int  `json:"local_games"`
	MergedGames   int  `json:"merged_games"`
	LocalChanged  bool `json:"local_changed"`
	PushScheduled bool `json:"push_scheduled"`
}

// Pull reads the cloud copy, merges it with the local library and stores
// the result locally. When the merge differs from the cloud copy a push is
// scheduled so the other devices converge.
func (s *Service) Pull(ctx context.Context) (PullReport, error) {
	ctx = services.WithOperation(ctx, "pull")
	s.setSyncing()
	doc, err := s.remote.Get(ctx, s.path)
	if err != nil {
		wrapped := services.Wrap(services.ErrExternal, "cloudsync", "pull", "read remote document", err)
		s.setError(wrapped)
		return PullReport{}, wrapped
	}
	if doc == nil {
		doc = &Document{}
	}
	report, err := s.apply(ctx, *doc)
	if err != nil {
		s.setError(err)
		return report, err
	}
	s.setSynced(ctx)
	return report, nil
}

// apply merges a remote document into the local store. The merge reads and
// replaces the library in one write transaction.
func (s *Service) apply(ctx context.Context, doc Document) (PullReport, error) {
	var local, merged []library.Game
	err := s.store.ReplaceWith(ctx, func(current []library.Game) ([]library.Game, bool, error) {
		local = current
		merged = library.MergeLibraries(current, doc.Games)
		return merged, !library.SameCollection(merged, current), nil
	})
	if err != nil {
		return PullReport{}, err
	}
	report := PullReport{
		RemoteGames:  len(doc.Games),
		LocalGames:   len(local),
		MergedGames:  len(merged),
		LocalChanged: !library.SameCollection(merged, local),
	}
	if !library.SameCollection(merged, doc.Games) {
		s.SchedulePush(merged)
		report.PushScheduled = true
	}
	s.rememberSnapshot(ctx, doc)

	s.logger.Info("remote library merged",
		logging.Int("remote_games", report.RemoteGames),
		logging.Int("local_games", report.LocalGames),
		logging.Int("merged_games", report.MergedGames),
		logging.Bool("local_changed", report.LocalChanged),
		logging.Bool("push_scheduled", report.PushScheduled))
	return report, nil
}

// Watch applies remote changes until ctx is done. Documents written by this
// device are skipped.
func (s *Service) Watch(ctx context.Context) error {
	ctx = services.WithOperation(ctx, "watch")
	err := s.remote.Subscribe(ctx, s.path, func(doc Document) {
		if doc.DeviceID == s.deviceID {
			s.logger.Debug("ignoring own write", logging.Time("updated_at", doc.UpdatedAt))
			return
		}
		if _, err := s.apply(ctx, doc); err != nil {
			s.setError(err)
			logging.WarnWithContext(s.logger, "apply remote change failed", "sync_apply_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "local library not updated from cloud"))
			return
		}
		s.setSynced(ctx)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		wrapped := services.Wrap(services.ErrExternal, "cloudsync", "watch", "subscribe", err)
		s.setError(wrapped)
		return wrapped
	}
	return nil
}

// LastSnapshot returns the last remote document seen, if any. It is kept
// locally so status can be reported while the remote is unreachable.
func (s *Service) LastSnapshot(ctx context.Context) (*Document, error) {
	return readSnapshot(ctx, s.store)
}

func (s *Service) rememberSnapshot(ctx context.Context, doc Document) {
	data, err := json.Marshal(doc)
	if err != nil {
		return
	}
	if err := s.store.SetValue(ctx, lastSnapshotKey, string(data)); err != nil {
		s.logger.Debug("store snapshot failed", logging.Error(err))
	}
}

func (s *Service) setSyncing() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.State = StateSyncing
}

func (s *Service) setError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.State = StateError
	s.status.Error = err.Error()
}

func (s *Service) setSynced(ctx context.Context) {
	now := time.Now().UTC()
	s.mu.Lock()
	s.status.State = StateIdle
	s.status.Error = ""
	s.status.LastSyncedAt = &now
	s.mu.Unlock()
	if err := s.store.SetValue(context.WithoutCancel(ctx), lastSyncedKey, now.Format(time.RFC3339Nano)); err != nil {
		s.logger.Debug("store last synced failed", logging.Error(err))
	}
}

func cloneGames(games []library.Game) []library.Game {
	out := make([]library.Game, len(games))
	for i, g := range games {
		out[i] = g.Clone()
	}
	return out
}
