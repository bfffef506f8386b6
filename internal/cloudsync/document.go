package cloudsync

import (
	"context"
	"time"

	"orbit/internal/library"
)

// Document is the cloud copy of a library.
type Document struct {
	Games    []library.Game `json:"games"`
	DeviceID string         `json:"device_id"`
	// UpdatedAt is assigned by the backend on write.
	UpdatedAt time.Time `json:"updated_at"`
}

// DocumentStore is a per-user keyed document store.
type DocumentStore interface {
	// Get returns the document at path, or nil when none exists.
	Get(ctx context.Context, path string) (*Document, error)
	// Set replaces the document at path.
	Set(ctx context.Context, path string, doc Document) error
	// Subscribe calls fn for every change to path until ctx is done.
	Subscribe(ctx context.Context, path string, fn func(Document)) error
}
