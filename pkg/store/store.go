// Package store defines the persistence collaborator for games and
// matches, with an in-memory implementation for tests and a SQLite
// implementation for production.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Lookup errors shared by all implementations.
var (
	ErrGameNotFound  = errors.New("store: game not found")
	ErrMatchNotFound = errors.New("store: match not found")
)

// GameStatus is the durable lifecycle state of a game record.
type GameStatus string

// Game record statuses.
const (
	StatusInProgress GameStatus = "in_progress"
	StatusCompleted  GameStatus = "completed"
	StatusAbandoned  GameStatus = "abandoned"
)

// GameRecord is the durable projection of one game.
type GameRecord struct {
	ID      uuid.UUID
	MatchID uuid.UUID // uuid.Nil for standalone games
	Mode    string

	WhiteID   string
	WhiteName string
	RedID     string
	RedName   string

	Status  GameStatus
	Winner  string // color name, empty while in progress
	WinType string
	Points  int

	// State is the serialized engine snapshot for in-progress games, used
	// to resume the position on revival. Empty for records written before
	// the game produced one.
	State []byte

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasPlayer reports whether the given player id is a recorded participant.
func (r GameRecord) HasPlayer(playerID string) bool {
	return playerID != "" && (r.WhiteID == playerID || r.RedID == playerID)
}

// MatchRecord is the durable projection of a multi-game match, including
// the correspondence turn state when the match is asynchronous.
type MatchRecord struct {
	ID     uuid.UUID
	Target int

	WhiteScore int
	RedScore   int
	Crawford   bool
	GameIDs    []uuid.UUID

	Status GameStatus
	Winner string // color name, empty while undecided

	// Correspondence turn tracking. CurrentTurnPlayerID is empty during
	// the opening roll-off; TurnDeadline is nil for live matches.
	CurrentTurnPlayerID string
	TurnDeadline        *time.Time

	UpdatedAt time.Time
}

// Store persists game and match records. Writes on the action path are
// best-effort; the orchestration core logs and drops failures.
type Store interface {
	SaveGame(ctx context.Context, rec GameRecord) error
	GetGame(ctx context.Context, id uuid.UUID) (GameRecord, error)
	ListInProgress(ctx context.Context) ([]GameRecord, error)

	SaveMatch(ctx context.Context, rec MatchRecord) error
	GetMatch(ctx context.Context, id uuid.UUID) (MatchRecord, error)

	Close() error
}
