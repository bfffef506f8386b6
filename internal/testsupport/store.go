package testsupport

import (
	"context"
	"testing"

	"orbit/internal/config"
	"orbit/internal/library"
)

// MustOpenStore opens a library.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *library.Store {
	t.Helper()

	store, err := library.Open(cfg)
	if err != nil {
		t.Fatalf("library.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// AddGame inserts game and returns the stored record.
func AddGame(t testing.TB, store *library.Store, game library.Game) *library.Game {
	t.Helper()

	stored, err := store.Add(context.Background(), game)
	if err != nil {
		t.Fatalf("store.Add: %v", err)
	}
	return stored
}
