package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *SQLite {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteGameRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rec := GameRecord{
		ID:        uuid.New(),
		Mode:      "live",
		WhiteID:   "p1",
		WhiteName: "Ana",
		RedID:     "p2",
		RedName:   "Ben",
		Status:    StatusInProgress,
		State:     []byte(`{"turn":"white","rolled":true}`),
	}
	require.NoError(t, s.SaveGame(ctx, rec))

	got, err := s.GetGame(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, "Ana", got.WhiteName)
	assert.Equal(t, StatusInProgress, got.Status)
	assert.Equal(t, rec.State, got.State)
	assert.True(t, got.HasPlayer("p2"))
	assert.False(t, got.HasPlayer("p3"))

	// Marking completed updates in place.
	rec.Status = StatusCompleted
	rec.Winner = "white"
	rec.WinType = "gammon"
	rec.Points = 2
	require.NoError(t, s.SaveGame(ctx, rec))

	got, err = s.GetGame(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)
	assert.Equal(t, "gammon", got.WinType)

	_, err = s.GetGame(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrGameNotFound)
}

func TestSQLiteListInProgress(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	active := GameRecord{ID: uuid.New(), Mode: "live", Status: StatusInProgress}
	done := GameRecord{ID: uuid.New(), Mode: "live", Status: StatusCompleted}
	require.NoError(t, s.SaveGame(ctx, active))
	require.NoError(t, s.SaveGame(ctx, done))

	list, err := s.ListInProgress(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, active.ID, list[0].ID)
}

func TestSQLiteMatchRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	deadline := time.Now().Add(48 * time.Hour).UTC().Truncate(time.Millisecond)
	rec := MatchRecord{
		ID:                  uuid.New(),
		Target:              5,
		WhiteScore:          4,
		RedScore:            3,
		Crawford:            true,
		GameIDs:             []uuid.UUID{uuid.New(), uuid.New()},
		Status:              StatusInProgress,
		CurrentTurnPlayerID: "p1",
		TurnDeadline:        &deadline,
	}
	require.NoError(t, s.SaveMatch(ctx, rec))

	got, err := s.GetMatch(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Target)
	assert.True(t, got.Crawford)
	assert.Equal(t, rec.GameIDs, got.GameIDs)
	require.NotNil(t, got.TurnDeadline)
	assert.Equal(t, deadline.UnixMilli(), got.TurnDeadline.UnixMilli())

	// Clearing turn tracking persists the null deadline.
	rec.CurrentTurnPlayerID = ""
	rec.TurnDeadline = nil
	rec.Status = StatusCompleted
	rec.Winner = "white"
	require.NoError(t, s.SaveMatch(ctx, rec))

	got, err = s.GetMatch(ctx, rec.ID)
	require.NoError(t, err)
	assert.Nil(t, got.TurnDeadline)
	assert.Equal(t, "white", got.Winner)

	_, err = s.GetMatch(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrMatchNotFound)
}
