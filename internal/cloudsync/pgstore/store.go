// Package pgstore keeps cloud library documents in a PostgreSQL table and
// uses LISTEN/NOTIFY to push changes to subscribers.
package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"orbit/internal/cloudsync"
	"orbit/internal/logging"
)

// Channel is the NOTIFY channel carrying changed document paths.
const Channel = "orbit_documents"

const schemaSQL = `CREATE TABLE IF NOT EXISTS orbit_documents (
    path TEXT PRIMARY KEY,
    body JSONB NOT NULL,
    device_id TEXT NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Store is a cloudsync.DocumentStore over a pgx pool.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

var _ cloudsync.DocumentStore = (*Store)(nil)

// New connects to dsn, verifies the connection and ensures the table exists.
func New(ctx context.Context, dsn string, logger *slog.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &Store{pool: pool, logger: logging.NewComponentLogger(logger, "pgstore")}, nil
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}

type body struct {
	Games json.RawMessage `json:"games"`
}

// Get reads the document at path. A missing row returns nil, nil.
func (s *Store) Get(ctx context.Context, path string) (*cloudsync.Document, error) {
	var (
		raw       []byte
		deviceID  string
		updatedAt time.Time
	)
	err := s.pool.QueryRow(ctx,
		`SELECT body, device_id, updated_at FROM orbit_documents WHERE path = $1`, path,
	).Scan(&raw, &deviceID, &updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select document: %w", err)
	}

	doc := cloudsync.Document{DeviceID: deviceID, UpdatedAt: updatedAt.UTC()}
	var payload body
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	if len(payload.Games) > 0 {
		if err := json.Unmarshal(payload.Games, &doc.Games); err != nil {
			return nil, fmt.Errorf("decode games: %w", err)
		}
	}
	return &doc, nil
}

// Set upserts doc and notifies subscribers in the same transaction.
func (s *Store) Set(ctx context.Context, path string, doc cloudsync.Document) error {
	games, err := json.Marshal(doc.Games)
	if err != nil {
		return fmt.Errorf("encode games: %w", err)
	}
	raw, err := json.Marshal(body{Games: games})
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err := tx.Exec(ctx,
		`INSERT INTO orbit_documents (path, body, device_id, updated_at)
         VALUES ($1, $2, $3, now())
         ON CONFLICT (path) DO UPDATE
         SET body = EXCLUDED.body, device_id = EXCLUDED.device_id, updated_at = now()`,
		path, raw, doc.DeviceID,
	); err != nil {
		return fmt.Errorf("upsert document: %w", err)
	}
	if _, err := tx.Exec(ctx, `SELECT pg_notify($1, $2)`, Channel, path); err != nil {
		return fmt.Errorf("notify: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Subscribe listens on Channel and calls fn with the fresh document whenever
// path changes. It holds one pool connection until ctx is done.
func (s *Store) Subscribe(ctx context.Context, path string, fn func(cloudsync.Document)) error {
	pooled, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire listen connection: %w", err)
	}
	// A listening connection must not go back to the pool, where it would
	// keep queueing notifications for its next user.
	conn := pooled.Hijack()
	defer conn.Close(context.WithoutCancel(ctx))

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{Channel}.Sanitize()); err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	for {
		notification, err := conn.WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("wait for notification: %w", err)
		}
		if notification.Payload != path {
			continue
		}
		doc, err := s.Get(ctx, path)
		if err != nil {
			s.logger.Warn("fetch notified document failed",
				logging.String(logging.FieldEventType, "pg_fetch_failed"),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check database connectivity"),
				logging.String(logging.FieldImpact, "remote change applied on next notification or pull"))
			continue
		}
		if doc != nil {
			fn(*doc)
		}
	}
}
