package cloudsync_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"orbit/internal/cloudsync"
	"orbit/internal/library"
	"orbit/internal/logging"
	"orbit/internal/testsupport"
)

const docPath = "users/u1/library"

func newService(t *testing.T, remote cloudsync.DocumentStore, debounce time.Duration) (*cloudsync.Service, *library.Store) {
	t.Helper()
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	svc, err := cloudsync.New(context.Background(), store, remote, docPath, logging.NewNop(), cloudsync.WithDebounce(debounce))
	if err != nil {
		t.Fatalf("cloudsync.New: %v", err)
	}
	t.Cleanup(func() { _ = svc.Close(context.Background()) })
	return svc, store
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestDeviceIDIsStable(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	remote := newMemoryStore()

	first, err := cloudsync.New(context.Background(), store, remote, docPath, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	second, err := cloudsync.New(context.Background(), store, remote, docPath, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if first.DeviceID() == "" || first.DeviceID() != second.DeviceID() {
		t.Fatalf("device id not persisted: %q vs %q", first.DeviceID(), second.DeviceID())
	}
}

func TestSchedulePushCoalesces(t *testing.T) {
	remote := newMemoryStore()
	svc, _ := newService(t, remote, 50*time.Millisecond)

	for i := range 5 {
		svc.SchedulePush([]library.Game{{ID: "a", Playtime: int64(i)}})
	}
	if !svc.Status().PendingPush {
		t.Fatal("expected pending push")
	}

	waitFor(t, func() bool { return remote.setCount() == 1 })
	time.Sleep(100 * time.Millisecond)
	if remote.setCount() != 1 {
		t.Fatalf("expected a single write, got %d", remote.setCount())
	}
	doc, _ := remote.doc(docPath)
	if len(doc.Games) != 1 || doc.Games[0].Playtime != 4 {
		t.Fatalf("expected latest payload, got %#v", doc.Games)
	}
	if doc.DeviceID != svc.DeviceID() {
		t.Fatalf("write not tagged with device id: %q", doc.DeviceID)
	}
	waitFor(t, func() bool { return svc.Status().LastSyncedAt != nil })
	status := svc.Status()
	if status.State != cloudsync.StateIdle || status.LastSyncedAt == nil || status.PendingPush {
		t.Fatalf("unexpected status: %#v", status)
	}
}

func TestFlushSendsPendingImmediately(t *testing.T) {
	remote := newMemoryStore()
	svc, _ := newService(t, remote, time.Hour)

	svc.SchedulePush([]library.Game{{ID: "a"}})
	if err := svc.Flush(context.Background()); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	if remote.setCount() != 1 {
		t.Fatalf("expected flush to write, got %d writes", remote.setCount())
	}
	if err := svc.Flush(context.Background()); err != nil || remote.setCount() != 1 {
		t.Fatalf("second flush should be a no-op, writes=%d err=%v", remote.setCount(), err)
	}
}

func TestDebouncedPushErrorLandsInStatus(t *testing.T) {
	remote := newMemoryStore()
	remote.failSets(errOffline)
	svc, _ := newService(t, remote, 10*time.Millisecond)

	svc.SchedulePush([]library.Game{{ID: "a"}})
	waitFor(t, func() bool { return svc.Status().State == cloudsync.StateError })
	if svc.Status().Error == "" {
		t.Fatal("expected error message in status")
	}

	remote.failSets(nil)
	if err := svc.Push(context.Background(), []library.Game{{ID: "a"}}); err != nil {
		t.Fatalf("Push failed: %v", err)
	}
	if status := svc.Status(); status.State != cloudsync.StateIdle || status.Error != "" {
		t.Fatalf("expected recovered status, got %#v", status)
	}
}

func TestPullMergesAndSchedulesPush(t *testing.T) {
	remote := newMemoryStore()
	svc, store := newService(t, remote, time.Hour)
	ctx := context.Background()

	added := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	later := added.Add(time.Hour)
	if err := store.ReplaceAll(ctx, []library.Game{
		{ID: "shared", Title: "Local Title", Playtime: 300, DateAdded: added},
		{ID: "local-only", Title: "Local Only", DateAdded: added},
	}); err != nil {
		t.Fatalf("seed local: %v", err)
	}
	remote.put(docPath, []library.Game{
		{ID: "shared", Title: "Remote Title", Playtime: 100, DateAdded: added, LastPlayed: &later},
		{ID: "remote-only", Title: "Remote Only", DateAdded: added},
	}, "other-device")

	report, err := svc.Pull(ctx)
	if err != nil {
		t.Fatalf("Pull failed: %v", err)
	}
	if report.MergedGames != 3 || !report.LocalChanged || !report.PushScheduled {
		t.Fatalf("unexpected report: %#v", report)
	}

	shared, err := store.Get(ctx, "shared")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if shared.Title != "Remote Title" || shared.Playtime != 300 {
		t.Fatalf("unexpected merge: %#v", shared)
	}
	if _, err := store.Get(ctx, "remote-only"); err != nil {
		t.Fatalf("remote-only record missing: %v", err)
	}

	if err := svc.Flush(ctx); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	doc, _ := remote.doc(docPath)
	if len(doc.Games) != 3 {
		t.Fatalf("expected merged library pushed, got %d games", len(doc.Games))
	}

	snapshot, err := svc.LastSnapshot(ctx)
	if err != nil || snapshot == nil || snapshot.DeviceID != "other-device" {
		t.Fatalf("snapshot not kept: %#v, %v", snapshot, err)
	}
}

func TestPullEmptyRemoteUploadsLocal(t *testing.T) {
	remote := newMemoryStore()
	svc, store := newService(t, remote, time.Hour)
	ctx := context.Background()
	testsupport.AddGame(t, store, library.Game{Title: "Celeste"})

	report, err := svc.Pull(ctx)
	if err != nil {
		t.Fatalf("Pull failed: %v", err)
	}
	if report.LocalChanged || !report.PushScheduled {
		t.Fatalf("unexpected report: %#v", report)
	}
}

func TestPullInSyncDoesNothing(t *testing.T) {
	remote := newMemoryStore()
	svc, store := newService(t, remote, time.Hour)
	ctx := context.Background()
	testsupport.AddGame(t, store, library.Game{Title: "Celeste"})
	local, _ := store.All(ctx)
	remote.put(docPath, local, "other")

	report, err := svc.Pull(ctx)
	if err != nil {
		t.Fatalf("Pull failed: %v", err)
	}
	if report.LocalChanged || report.PushScheduled {
		t.Fatalf("expected no changes, got %#v", report)
	}
}

func TestPullErrorSetsStatus(t *testing.T) {
	remote := newMemoryStore()
	remote.getErr = errOffline
	svc, _ := newService(t, remote, time.Hour)

	if _, err := svc.Pull(context.Background()); !errors.Is(err, errOffline) {
		t.Fatalf("expected offline error, got %v", err)
	}
	if svc.Status().State != cloudsync.StateError {
		t.Fatalf("expected error state, got %#v", svc.Status())
	}
}

func TestWatchIgnoresOwnWrites(t *testing.T) {
	remote := newMemoryStore()
	svc, store := newService(t, remote, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- svc.Watch(ctx) }()
	waitFor(t, func() bool {
		remote.mu.Lock()
		defer remote.mu.Unlock()
		return len(remote.subscribers[docPath]) == 1
	})

	if err := remote.Set(ctx, docPath, cloudsync.Document{
		Games:    []library.Game{{ID: "echo", Title: "Echo"}},
		DeviceID: svc.DeviceID(),
	}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := remote.Set(ctx, docPath, cloudsync.Document{
		Games:    []library.Game{{ID: "foreign", Title: "Foreign"}},
		DeviceID: "other-device",
	}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	waitFor(t, func() bool {
		_, err := store.Get(context.Background(), "foreign")
		return err == nil
	})
	if _, err := store.Get(context.Background(), "echo"); !errors.Is(err, library.ErrNotFound) {
		t.Fatalf("own write should have been ignored, got %v", err)
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Watch returned error after cancel: %v", err)
	}
}

func TestLibraryChangedPushesStore(t *testing.T) {
	remote := newMemoryStore()
	svc, store := newService(t, remote, time.Hour)
	ctx := context.Background()
	testsupport.AddGame(t, store, library.Game{Title: "Hades"})

	svc.LibraryChanged(ctx)
	if err := svc.Close(ctx); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	doc, ok := remote.doc(docPath)
	if !ok || len(doc.Games) != 1 || doc.Games[0].Title != "Hades" {
		t.Fatalf("expected library pushed on close, got %#v", doc)
	}
	if err := svc.Push(ctx, nil); !errors.Is(err, cloudsync.ErrClosed) {
		t.Fatalf("expected ErrClosed after Close, got %v", err)
	}
}

func TestLocalStatusReadsBookkeeping(t *testing.T) {
	remote := newMemoryStore()
	svc, store := newService(t, remote, time.Hour)
	ctx := context.Background()
	remote.put(docPath, []library.Game{{ID: "x", Title: "X"}}, "other-device")
	if _, err := svc.Pull(ctx); err != nil {
		t.Fatalf("Pull failed: %v", err)
	}

	status, snapshot, err := cloudsync.LocalStatus(ctx, store)
	if err != nil {
		t.Fatalf("LocalStatus failed: %v", err)
	}
	if status.DeviceID != svc.DeviceID() || status.LastSyncedAt == nil {
		t.Fatalf("unexpected status: %#v", status)
	}
	if snapshot == nil || len(snapshot.Games) != 1 {
		t.Fatalf("unexpected snapshot: %#v", snapshot)
	}
}
