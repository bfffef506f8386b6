package pgstore_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"orbit/internal/cloudsync"
	"orbit/internal/cloudsync/pgstore"
	"orbit/internal/library"
	"orbit/internal/logging"
)

// openTestStore connects to ORBIT_TEST_PG_DSN or skips.
func openTestStore(t *testing.T) *pgstore.Store {
	t.Helper()
	dsn := os.Getenv("ORBIT_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("ORBIT_TEST_PG_DSN not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	store, err := pgstore.New(ctx, dsn, logging.NewNop())
	if err != nil {
		t.Fatalf("pgstore.New: %v", err)
	}
	t.Cleanup(store.Close)
	return store
}

func TestGetMissingReturnsNil(t *testing.T) {
	store := openTestStore(t)
	doc, err := store.Get(context.Background(), "users/"+uuid.NewString()+"/library")
	if err != nil || doc != nil {
		t.Fatalf("expected nil document, got %#v, %v", doc, err)
	}
}

func TestSetGetAndSubscribe(t *testing.T) {
	store := openTestStore(t)
	path := "users/" + uuid.NewString() + "/library"
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	received := make(chan cloudsync.Document, 1)
	subscribed := make(chan error, 1)
	go func() {
		subscribed <- store.Subscribe(ctx, path, func(doc cloudsync.Document) {
			select {
			case received <- doc:
			default:
			}
		})
	}()
	time.Sleep(200 * time.Millisecond)

	err := store.Set(ctx, path, cloudsync.Document{
		Games:    []library.Game{{ID: "a", Title: "Hades", Playtime: 15}},
		DeviceID: "device-2",
	})
	if err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	doc, err := store.Get(ctx, path)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if doc.DeviceID != "device-2" || len(doc.Games) != 1 || doc.Games[0].Playtime != 15 || doc.UpdatedAt.IsZero() {
		t.Fatalf("unexpected document: %#v", doc)
	}

	select {
	case got := <-received:
		if got.DeviceID != "device-2" {
			t.Fatalf("unexpected notified document: %#v", got)
		}
	case <-ctx.Done():
		t.Fatal("notification not delivered")
	}
	cancel()
	<-subscribed
}
