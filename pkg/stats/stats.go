// Package stats is the statistics/rating collaborator. The orchestration
// core calls it fire-and-forget, exactly once per rated human-vs-human
// game, and requires only eventual consistency from it.
package stats

import (
	"context"
	"sync"
)

// GameResult is one completed game from the rating system's point of view.
type GameResult struct {
	GameID   string
	WinnerID string
	LoserID  string
	Points   int
}

// Recorder records completed game results.
type Recorder interface {
	RecordResult(ctx context.Context, res GameResult) error
}

// PlayerStats is one player's running totals.
type PlayerStats struct {
	Wins   int
	Losses int
	Points int
	Rating int

	revision uint64
}

const (
	startingRating = 1500
	ratingStep     = 16
)

// Memory is an in-memory Recorder. Updates are conditional on a per-player
// revision so concurrent completions never lose a read-modify-write; a
// failed swap reloads and retries.
type Memory struct {
	mu      sync.Mutex
	players map[string]PlayerStats
}

// NewMemory creates an empty recorder.
func NewMemory() *Memory {
	return &Memory{players: make(map[string]PlayerStats)}
}

// RecordResult applies a result to both players.
func (m *Memory) RecordResult(_ context.Context, res GameResult) error {
	for {
		winner, wrev := m.load(res.WinnerID)
		loser, lrev := m.load(res.LoserID)

		winner.Wins++
		winner.Points += res.Points
		winner.Rating += ratingStep * res.Points
		loser.Losses++
		loser.Rating -= ratingStep * res.Points
		if loser.Rating < 0 {
			loser.Rating = 0
		}

		if m.swapBoth(res.WinnerID, wrev, winner, res.LoserID, lrev, loser) {
			return nil
		}
	}
}

// Get returns a player's current stats.
func (m *Memory) Get(playerID string) PlayerStats {
	s, _ := m.load(playerID)
	return s
}

func (m *Memory) load(playerID string) (PlayerStats, uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.players[playerID]
	if !ok {
		s = PlayerStats{Rating: startingRating}
	}
	return s, s.revision
}

// swapBoth commits both players' stats only if neither entry changed since
// it was loaded.
func (m *Memory) swapBoth(winID string, wrev uint64, win PlayerStats, loseID string, lrev uint64, lose PlayerStats) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.players[winID]; ok && cur.revision != wrev {
		return false
	}
	if cur, ok := m.players[loseID]; ok && cur.revision != lrev {
		return false
	}
	win.revision = wrev + 1
	lose.revision = lrev + 1
	m.players[winID] = win
	m.players[loseID] = lose
	return true
}
