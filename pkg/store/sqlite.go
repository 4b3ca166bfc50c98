package store

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS games (
	id          TEXT PRIMARY KEY,
	match_id    TEXT NOT NULL DEFAULT '',
	mode        TEXT NOT NULL,
	white_id    TEXT NOT NULL,
	white_name  TEXT NOT NULL,
	red_id      TEXT NOT NULL,
	red_name    TEXT NOT NULL,
	status      TEXT NOT NULL,
	winner      TEXT NOT NULL DEFAULT '',
	win_type    TEXT NOT NULL DEFAULT '',
	points      INTEGER NOT NULL DEFAULT 0,
	state       TEXT NOT NULL DEFAULT '',
	created_at  INTEGER NOT NULL,
	updated_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_games_status ON games(status);

CREATE TABLE IF NOT EXISTS matches (
	id              TEXT PRIMARY KEY,
	target          INTEGER NOT NULL,
	white_score     INTEGER NOT NULL DEFAULT 0,
	red_score       INTEGER NOT NULL DEFAULT 0,
	crawford        INTEGER NOT NULL DEFAULT 0,
	game_ids        TEXT NOT NULL DEFAULT '',
	status          TEXT NOT NULL,
	winner          TEXT NOT NULL DEFAULT '',
	turn_player_id  TEXT NOT NULL DEFAULT '',
	turn_deadline   INTEGER,
	updated_at      INTEGER NOT NULL
);
`

// SQLite is a Store backed by a modernc.org/sqlite database file.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (and if necessary bootstraps) the database at path.
func OpenSQLite(path string) (*SQLite, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Close closes the underlying database. Nil-safe so callers can defer it
// unconditionally.
func (s *SQLite) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(v int64) time.Time {
	return time.UnixMilli(v).UTC()
}

// SaveGame upserts a game record.
func (s *SQLite) SaveGame(ctx context.Context, rec GameRecord) error {
	now := time.Now()
	created := rec.CreatedAt
	if created.IsZero() {
		created = now
	}
	matchID := ""
	if rec.MatchID != uuid.Nil {
		matchID = rec.MatchID.String()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO games (id, match_id, mode, white_id, white_name, red_id, red_name,
			status, winner, win_type, points, state, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			match_id = excluded.match_id,
			mode = excluded.mode,
			white_id = excluded.white_id,
			white_name = excluded.white_name,
			red_id = excluded.red_id,
			red_name = excluded.red_name,
			status = excluded.status,
			winner = excluded.winner,
			win_type = excluded.win_type,
			points = excluded.points,
			state = excluded.state,
			updated_at = excluded.updated_at`,
		rec.ID.String(), matchID, rec.Mode, rec.WhiteID, rec.WhiteName,
		rec.RedID, rec.RedName, string(rec.Status), rec.Winner, rec.WinType,
		rec.Points, string(rec.State), toMillis(created), toMillis(now))
	if err != nil {
		return fmt.Errorf("save game %s: %w", rec.ID, err)
	}
	return nil
}

// GetGame retrieves a game record by id.
func (s *SQLite) GetGame(ctx context.Context, id uuid.UUID) (GameRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, match_id, mode, white_id, white_name, red_id, red_name,
			status, winner, win_type, points, state, created_at, updated_at
		FROM games WHERE id = ?`, id.String())
	rec, err := scanGame(row)
	if err == sql.ErrNoRows {
		return GameRecord{}, ErrGameNotFound
	}
	if err != nil {
		return GameRecord{}, fmt.Errorf("get game %s: %w", id, err)
	}
	return rec, nil
}

// ListInProgress returns every game still marked in progress, used for the
// warm reload at startup.
func (s *SQLite) ListInProgress(ctx context.Context) ([]GameRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, match_id, mode, white_id, white_name, red_id, red_name,
			status, winner, win_type, points, state, created_at, updated_at
		FROM games WHERE status = ?`, string(StatusInProgress))
	if err != nil {
		return nil, fmt.Errorf("list in-progress games: %w", err)
	}
	defer rows.Close()

	var out []GameRecord
	for rows.Next() {
		rec, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("scan game: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanGame(row scanner) (GameRecord, error) {
	var rec GameRecord
	var id, matchID, status, state string
	var created, updated int64
	err := row.Scan(&id, &matchID, &rec.Mode, &rec.WhiteID, &rec.WhiteName,
		&rec.RedID, &rec.RedName, &status, &rec.Winner, &rec.WinType,
		&rec.Points, &state, &created, &updated)
	if err != nil {
		return GameRecord{}, err
	}
	if state != "" {
		rec.State = []byte(state)
	}
	rec.ID, err = uuid.Parse(id)
	if err != nil {
		return GameRecord{}, err
	}
	if matchID != "" {
		rec.MatchID, err = uuid.Parse(matchID)
		if err != nil {
			return GameRecord{}, err
		}
	}
	rec.Status = GameStatus(status)
	rec.CreatedAt = fromMillis(created)
	rec.UpdatedAt = fromMillis(updated)
	return rec, nil
}

// SaveMatch upserts a match record, including correspondence turn state.
func (s *SQLite) SaveMatch(ctx context.Context, rec MatchRecord) error {
	ids := make([]string, 0, len(rec.GameIDs))
	for _, g := range rec.GameIDs {
		ids = append(ids, g.String())
	}
	deadline := sql.NullInt64{}
	if rec.TurnDeadline != nil {
		deadline = sql.NullInt64{Int64: toMillis(*rec.TurnDeadline), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO matches (id, target, white_score, red_score, crawford, game_ids,
			status, winner, turn_player_id, turn_deadline, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			target = excluded.target,
			white_score = excluded.white_score,
			red_score = excluded.red_score,
			crawford = excluded.crawford,
			game_ids = excluded.game_ids,
			status = excluded.status,
			winner = excluded.winner,
			turn_player_id = excluded.turn_player_id,
			turn_deadline = excluded.turn_deadline,
			updated_at = excluded.updated_at`,
		rec.ID.String(), rec.Target, rec.WhiteScore, rec.RedScore,
		boolToInt(rec.Crawford), strings.Join(ids, ","), string(rec.Status),
		rec.Winner, rec.CurrentTurnPlayerID, deadline, toMillis(time.Now()))
	if err != nil {
		return fmt.Errorf("save match %s: %w", rec.ID, err)
	}
	return nil
}

// GetMatch retrieves a match record by id.
func (s *SQLite) GetMatch(ctx context.Context, id uuid.UUID) (MatchRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, target, white_score, red_score, crawford, game_ids,
			status, winner, turn_player_id, turn_deadline, updated_at
		FROM matches WHERE id = ?`, id.String())

	var rec MatchRecord
	var idStr, status, gameIDs string
	var crawford int
	var deadline sql.NullInt64
	var updated int64
	err := row.Scan(&idStr, &rec.Target, &rec.WhiteScore, &rec.RedScore,
		&crawford, &gameIDs, &status, &rec.Winner,
		&rec.CurrentTurnPlayerID, &deadline, &updated)
	if err == sql.ErrNoRows {
		return MatchRecord{}, ErrMatchNotFound
	}
	if err != nil {
		return MatchRecord{}, fmt.Errorf("get match %s: %w", id, err)
	}

	rec.ID, err = uuid.Parse(idStr)
	if err != nil {
		return MatchRecord{}, err
	}
	rec.Crawford = crawford != 0
	rec.Status = GameStatus(status)
	if deadline.Valid {
		t := fromMillis(deadline.Int64)
		rec.TurnDeadline = &t
	}
	rec.UpdatedAt = fromMillis(updated)
	if gameIDs != "" {
		for _, part := range strings.Split(gameIDs, ",") {
			gid, err := uuid.Parse(part)
			if err != nil {
				return MatchRecord{}, fmt.Errorf("parse game id %q: %w", part, err)
			}
			rec.GameIDs = append(rec.GameIDs, gid)
		}
	}
	return rec, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
