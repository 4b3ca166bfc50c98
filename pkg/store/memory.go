package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is an in-memory Store used by tests and single-node development.
type Memory struct {
	mu      sync.RWMutex
	games   map[uuid.UUID]GameRecord
	matches map[uuid.UUID]MatchRecord
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		games:   make(map[uuid.UUID]GameRecord),
		matches: make(map[uuid.UUID]MatchRecord),
	}
}

// SaveGame inserts or replaces a game record.
func (m *Memory) SaveGame(_ context.Context, rec GameRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.UpdatedAt = time.Now()
	m.games[rec.ID] = rec
	return nil
}

// GetGame retrieves a game record by id.
func (m *Memory) GetGame(_ context.Context, id uuid.UUID) (GameRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.games[id]
	if !ok {
		return GameRecord{}, ErrGameNotFound
	}
	return rec, nil
}

// ListInProgress returns every game still marked in progress.
func (m *Memory) ListInProgress(_ context.Context) ([]GameRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []GameRecord
	for _, rec := range m.games {
		if rec.Status == StatusInProgress {
			out = append(out, rec)
		}
	}
	return out, nil
}

// SaveMatch inserts or replaces a match record.
func (m *Memory) SaveMatch(_ context.Context, rec MatchRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.UpdatedAt = time.Now()
	rec.GameIDs = append([]uuid.UUID(nil), rec.GameIDs...)
	m.matches[rec.ID] = rec
	return nil
}

// GetMatch retrieves a match record by id.
func (m *Memory) GetMatch(_ context.Context, id uuid.UUID) (MatchRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.matches[id]
	if !ok {
		return MatchRecord{}, ErrMatchNotFound
	}
	rec.GameIDs = append([]uuid.UUID(nil), rec.GameIDs...)
	return rec, nil
}

// Close is a no-op for the in-memory store.
func (m *Memory) Close() error { return nil }
