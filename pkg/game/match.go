package game

import (
	"time"

	"github.com/google/uuid"

	"github.com/tecu23/gammon-server/pkg/bg"
)

// Match is a multi-game contest to a target score.
type Match struct {
	ID      uuid.UUID
	Target  int
	Scores  map[bg.Color]int
	GameIDs []uuid.UUID

	// Crawford is true while the current game is the Crawford game; it is
	// set for exactly one game per match.
	Crawford       bool
	crawfordPlayed bool

	Winner bg.Color
	Done   bool

	// PerMoveAllowance above zero makes this a correspondence match.
	PerMoveAllowance time.Duration

	// Correspondence turn state: the player whose move carries the
	// deadline, empty during the opening roll-off.
	TurnPlayerID string
	TurnDeadline time.Time
}

// NewMatch starts a match to the given target.
func NewMatch(target int) *Match {
	return &Match{
		ID:     uuid.New(),
		Target: target,
		Scores: map[bg.Color]int{bg.White: 0, bg.Red: 0},
	}
}

// IsCorrespondence reports whether the match uses per-move deadlines.
func (m *Match) IsCorrespondence() bool {
	return m.PerMoveAllowance > 0
}

// RecordGame credits a finished game to the winner and advances the
// Crawford state for the game that follows.
func (m *Match) RecordGame(winner bg.Color, points int) {
	m.Scores[winner] += points

	if m.Crawford {
		m.Crawford = false
		m.crawfordPlayed = true
	}

	if m.Scores[winner] >= m.Target {
		m.Done = true
		m.Winner = winner
		m.TurnPlayerID = ""
		m.TurnDeadline = time.Time{}
		return
	}

	// The single game after either side first reaches target-1 is played
	// with the cube dead.
	if !m.crawfordPlayed &&
		(m.Scores[bg.White] == m.Target-1 || m.Scores[bg.Red] == m.Target-1) {
		m.Crawford = true
	}
}

// Forfeit ends the match immediately in winner's favor, regardless of the
// score so far. Done stays set through the usual game settlement that
// follows.
func (m *Match) Forfeit(winner bg.Color) {
	m.Done = true
	m.Winner = winner
	m.TurnPlayerID = ""
	m.TurnDeadline = time.Time{}
}

// Leader returns the side with the higher score.
func (m *Match) Leader() bg.Color {
	if m.Scores[bg.Red] > m.Scores[bg.White] {
		return bg.Red
	}
	return bg.White
}
