package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"orbit/internal/services"
)

var gamePlaceholders = strings.TrimSuffix(strings.Repeat("?, ", strings.Count(gameColumns, ",")+1), ", ")

// Add inserts a new game. ID, DateAdded, Status and Source are filled in when
// empty. The stored record is returned.
func (s *Store) Add(ctx context.Context, game Game) (*Game, error) {
	if strings.TrimSpace(game.Title) == "" {
		return nil, services.Wrap(services.ErrValidation, "library", "add", "title must not be empty", nil)
	}
	now := time.Now().UTC()
	if game.ID == "" {
		game.ID = uuid.NewString()
	}
	if game.DateAdded.IsZero() {
		game.DateAdded = now
	}
	if game.Status == "" {
		game.Status = StatusNotStarted
	}
	if game.Source == "" {
		game.Source = SourceManual
	}
	game.UpdatedAt = now

	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO games (`+gameColumns+`) VALUES (`+gamePlaceholders+`)`,
		gameArgs(&game)...,
	); err != nil {
		return nil, fmt.Errorf("insert game: %w", err)
	}
	return s.Get(ctx, game.ID)
}

// Get fetches a game by id. Returns ErrNotFound when absent.
func (s *Store) Get(ctx context.Context, id string) (*Game, error) {
	return getGame(ctx, s.db, id)
}

// List returns games matching filter ordered by title.
func (s *Store) List(ctx context.Context, filter Filter) ([]Game, error) {
	return listGames(ctx, s.db, filter)
}

// All returns every game in the library.
func (s *Store) All(ctx context.Context) ([]Game, error) {
	return s.List(ctx, Filter{})
}

// SkipUpdate can be returned by a Modify callback to leave the row as it is.
var SkipUpdate = errors.New("skip update")

// Modify re-reads game id inside a write transaction, applies fn to the fresh
// copy and persists the result. DateAdded is never rewritten. When fn returns SkipUpdate nothing is written
// and the record as read is returned.
func (s *Store) Modify(ctx context.Context, id string, fn func(*Game) error) (*Game, error) {
	var result *Game
	err := s.inWriteTx(ctx, func(conn *sql.Conn) error {
		game, err := getGame(ctx, conn, id)
		if err != nil {
			return err
		}
		before := game.Clone()
		if err := fn(game); err != nil {
			if errors.Is(err, SkipUpdate) {
				result = &before
				return nil
			}
			return err
		}
		game.ID = id
		if err := updateGame(ctx, conn, game); err != nil {
			return err
		}
		result = game
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RecordSession adds minutes to the playtime of game id and stamps
// LastPlayed in a single statement, so the increment survives concurrent
// writers. A not-started game moves to playing.
func (s *Store) RecordSession(ctx context.Context, id string, minutes int64, playedAt time.Time) (*Game, error) {
	if minutes < 0 {
		minutes = 0
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE games
         SET playtime = playtime + ?,
             last_played = ?,
             status = CASE WHEN status = ? THEN ? ELSE status END,
             updated_at = ?
         WHERE id = ?`,
		minutes,
		formatTime(playedAt),
		string(StatusNotStarted),
		string(StatusPlaying),
		formatTime(time.Now()),
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("record session: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, fmt.Errorf("game %s: %w", id, ErrNotFound)
	}
	return s.Get(ctx, id)
}

// Delete removes a game. There are no tombstones; a stale cloud snapshot that
// still holds the id will bring it back on the next merge.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM games WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete game: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("game %s: %w", id, ErrNotFound)
	}
	return nil
}

// ReplaceAll swaps the whole library for games in one transaction.
// Records keep their own timestamps.
func (s *Store) ReplaceAll(ctx context.Context, games []Game) error {
	return s.ReplaceWith(ctx, func([]Game) ([]Game, bool, error) {
		return games, true, nil
	})
}

// ReplaceWith reads the whole library and swaps it for what fn returns, all
// inside one write transaction. Used after a cloud merge so a local write
// cannot land between the read and the replace. When fn reports no change
// nothing is written.
func (s *Store) ReplaceWith(ctx context.Context, fn func(current []Game) ([]Game, bool, error)) error {
	return s.inWriteTx(ctx, func(conn *sql.Conn) error {
		current, err := listGames(ctx, conn, Filter{})
		if err != nil {
			return err
		}
		games, changed, err := fn(current)
		if err != nil || !changed {
			return err
		}
		return replaceGames(ctx, conn, games)
	})
}

func replaceGames(ctx context.Context, conn *sql.Conn, games []Game) error {
	if _, err := conn.ExecContext(ctx, `DELETE FROM games`); err != nil {
		return fmt.Errorf("clear games: %w", err)
	}
	stmt, err := conn.PrepareContext(ctx, `INSERT INTO games (`+gameColumns+`) VALUES (`+gamePlaceholders+`)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for i := range games {
		game := games[i]
		if game.ID == "" {
			return services.Wrap(services.ErrValidation, "library", "replace", "game without id", nil)
		}
		if game.Status == "" {
			game.Status = StatusNotStarted
		}
		if game.Source == "" {
			game.Source = SourceManual
		}
		if game.UpdatedAt.IsZero() {
			game.UpdatedAt = now
		}
		if _, err := stmt.ExecContext(ctx, gameArgs(&game)...); err != nil {
			return fmt.Errorf("insert game %s: %w", game.ID, err)
		}
	}
	return nil
}

// inWriteTx runs fn on one connection holding an immediate write
// transaction. Other writers, in this process or another, wait on
// busy_timeout until it commits.
func (s *Store) inWriteTx(ctx context.Context, fn func(conn *sql.Conn) error) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		return fmt.Errorf("begin write tx: %w", err)
	}
	if err := fn(conn); err != nil {
		_, _ = conn.ExecContext(context.WithoutCancel(ctx), "ROLLBACK")
		return err
	}
	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		_, _ = conn.ExecContext(context.WithoutCancel(ctx), "ROLLBACK")
		return fmt.Errorf("commit write tx: %w", err)
	}
	return nil
}

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getGame(ctx context.Context, q queryer, id string) (*Game, error) {
	row := q.QueryRowContext(ctx, `SELECT `+gameColumns+` FROM games WHERE id = ?`, id)
	game, err := scanGame(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("game %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get game: %w", err)
	}
	return game, nil
}

func listGames(ctx context.Context, q queryer, filter Filter) ([]Game, error) {
	var (
		clauses []string
		args    []any
	)
	if filter.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.FavoritesOnly {
		clauses = append(clauses, "is_favorite = 1")
	}
	if filter.UnmatchedOnly {
		clauses = append(clauses, "external_match_id IS NULL")
	}
	query := `SELECT ` + gameColumns + ` FROM games`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY title COLLATE NOCASE, id"

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	defer rows.Close()

	var games []Game
	for rows.Next() {
		game, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("scan game: %w", err)
		}
		games = append(games, *game)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate games: %w", err)
	}
	return games, nil
}

func updateGame(ctx context.Context, q queryer, game *Game) error {
	if game == nil {
		return errors.New("game is nil")
	}
	game.UpdatedAt = time.Now().UTC()
	args := gameArgs(game)
	// Drop id and date_added from the SET list; id goes last for the WHERE.
	setColumns := strings.Split(gameColumns, ", ")
	var (
		assignments []string
		values      []any
	)
	for i, column := range setColumns {
		if column == "id" || column == "date_added" {
			continue
		}
		assignments = append(assignments, column+" = ?")
		values = append(values, args[i])
	}
	values = append(values, game.ID)

	res, err := q.ExecContext(ctx,
		`UPDATE games SET `+strings.Join(assignments, ", ")+` WHERE id = ?`,
		values...,
	)
	if err != nil {
		return fmt.Errorf("update game: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("game %s: %w", game.ID, ErrNotFound)
	}
	return nil
}
