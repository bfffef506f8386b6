package cloudsync

import (
	"context"
	"encoding/json"
	"time"

	"orbit/internal/library"
)

// State is the coarse sync state shown to users.
type State string

const (
	StateIdle    State = "idle"
	StateSyncing State = "syncing"
	StateError   State = "error"
)

// Status reports the last sync outcome.
type Status struct {
	State        State      `json:"state"`
	LastSyncedAt *time.Time `json:"last_synced_at,omitempty"`
	Error        string     `json:"error,omitempty"`
	PendingPush  bool       `json:"pending_push"`
	DeviceID     string     `json:"device_id"`
}

// LocalStatus reads the sync bookkeeping kept in the local store without
// contacting the remote. The snapshot is nil when no pull has completed.
func LocalStatus(ctx context.Context, store *library.Store) (Status, *Document, error) {
	status := Status{State: StateIdle}
	if id, ok, err := store.GetValue(ctx, deviceIDKey); err != nil {
		return status, nil, err
	} else if ok {
		status.DeviceID = id
	}
	if raw, ok, err := store.GetValue(ctx, lastSyncedKey); err != nil {
		return status, nil, err
	} else if ok {
		if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			status.LastSyncedAt = &ts
		}
	}
	doc, err := readSnapshot(ctx, store)
	if err != nil {
		return status, nil, err
	}
	return status, doc, nil
}

func readSnapshot(ctx context.Context, store *library.Store) (*Document, error) {
	raw, ok, err := store.GetValue(ctx, lastSnapshotKey)
	if err != nil || !ok {
		return nil, err
	}
	var doc Document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}
