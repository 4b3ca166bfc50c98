package game

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tecu23/gammon-server/pkg/bg"
	"github.com/tecu23/gammon-server/pkg/events"
	"github.com/tecu23/gammon-server/pkg/store"
)

func TestCreateSessionRejectsDuplicateID(t *testing.T) {
	r := newTestRegistry(t)
	id := uuid.New()

	_, err := r.CreateSession(CreateParams{
		Player:   Player{ID: "p1", Name: "Ada"},
		Opponent: OpponentHuman,
		ID:       id,
	}, newFakeConn())
	require.NoError(t, err)

	_, err = r.CreateSession(CreateParams{
		Player:   Player{ID: "p2", Name: "Grace"},
		Opponent: OpponentHuman,
		ID:       id,
	}, newFakeConn())
	assert.ErrorIs(t, err, ErrDuplicateID)
}

func TestJoinUnknownGame(t *testing.T) {
	r := newTestRegistry(t)

	_, _, err := r.JoinOrLoad(context.Background(), uuid.New(), Player{ID: "p1"}, newFakeConn())
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestJoinFinishedGameFromStore(t *testing.T) {
	r := newTestRegistry(t)
	id := uuid.New()
	require.NoError(t, r.store.SaveGame(context.Background(), store.GameRecord{
		ID:      id,
		Mode:    string(ModeLive),
		WhiteID: "p1",
		RedID:   "p2",
		Status:  store.StatusCompleted,
		Winner:  string(bg.White),
	}))

	_, _, err := r.JoinOrLoad(context.Background(), id, Player{ID: "p2"}, newFakeConn())
	assert.ErrorIs(t, err, ErrAlreadyEnded)
}

func TestJoinAsNonParticipant(t *testing.T) {
	r := newTestRegistry(t)
	id := uuid.New()
	require.NoError(t, r.store.SaveGame(context.Background(), store.GameRecord{
		ID:      id,
		Mode:    string(ModeLive),
		WhiteID: "p1",
		RedID:   "p2",
		Status:  store.StatusInProgress,
	}))

	_, _, err := r.JoinOrLoad(context.Background(), id, Player{ID: "intruder"}, newFakeConn())
	assert.ErrorIs(t, err, ErrNotParticipant)
}

func TestJoinRevivesStoredGame(t *testing.T) {
	r := newTestRegistry(t)
	id := uuid.New()
	require.NoError(t, r.store.SaveGame(context.Background(), store.GameRecord{
		ID:        id,
		Mode:      string(ModeLive),
		WhiteID:   "p1",
		WhiteName: "Ada",
		RedID:     "p2",
		RedName:   "Grace",
		Status:    store.StatusInProgress,
	}))

	conn := newFakeConn()
	s, color, err := r.JoinOrLoad(context.Background(), id, Player{ID: "p2", Name: "Grace"}, conn)
	require.NoError(t, err)
	assert.Equal(t, bg.Red, color)
	assert.Equal(t, "p1", s.Player(bg.White).ID)

	got, ok := r.LookupByConnection(conn.id)
	require.True(t, ok)
	assert.Equal(t, s, got)
}

func TestReviveRestoresRecordedPosition(t *testing.T) {
	r := newTestRegistry(t)
	s, white, _ := startLiveGame(t, r)

	// White plays 13/8 with the 5; the move persists with an engine
	// snapshot before the session goes away.
	require.True(t, s.MakeMove(white.id, 13, 8).OK)
	r.tasks.Wait()
	r.Remove(s.ID)

	conn := newFakeConn()
	revived, color, err := r.JoinOrLoad(context.Background(), s.ID, Player{ID: "p-white", Name: "Ada"}, conn)
	require.NoError(t, err)
	assert.Equal(t, bg.White, color)

	// The board picks up mid-turn rather than restarting at the opening.
	assert.Equal(t, bg.White, revived.eng.CurrentPlayer())
	assert.Equal(t, []int{3}, revived.eng.Dice())
	board := revived.eng.Board()
	assert.Equal(t, 4, board.Points[13])
	assert.Equal(t, 4, board.Points[8])
}

func TestStandaloneGameRetiresOnCompletion(t *testing.T) {
	r := newTestRegistry(t)
	s, white, _ := startLiveGame(t, r)

	require.True(t, s.Resign(white.id).GameOver)
	r.tasks.Wait()

	// A single game has no match to continue; the session is gone as
	// soon as the result is recorded.
	_, ok := r.Lookup(s.ID)
	assert.False(t, ok)

	rec, err := r.store.GetGame(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusCompleted, rec.Status)
	assert.Equal(t, string(bg.Red), rec.Winner)
}

func TestClosedConnectionEventDetaches(t *testing.T) {
	r := newTestRegistry(t)
	s, white, _ := startLiveGame(t, r)

	r.publisher.Publish(events.Event{
		Type:    events.EventConnectionClosed,
		Payload: white.id,
	})

	require.Eventually(t, func() bool {
		_, ok := r.LookupByConnection(white.id)
		return !ok
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, bg.NoColor, s.PlayerColor(white.id))
}

func TestWarmReloadRevivesInProgressGames(t *testing.T) {
	r := newTestRegistry(t)
	for i := 0; i < 2; i++ {
		require.NoError(t, r.store.SaveGame(context.Background(), store.GameRecord{
			ID:      uuid.New(),
			Mode:    string(ModeLive),
			WhiteID: "p1",
			RedID:   "p2",
			Status:  store.StatusInProgress,
		}))
	}
	require.NoError(t, r.store.SaveGame(context.Background(), store.GameRecord{
		ID:     uuid.New(),
		Mode:   string(ModeLive),
		Status: store.StatusCompleted,
	}))

	require.NoError(t, r.WarmReload(context.Background()))
	assert.Equal(t, 2, r.Len())
}

func TestRemoveClearsBothIndexes(t *testing.T) {
	r := newTestRegistry(t)
	conn := newFakeConn()
	s, err := r.CreateSession(CreateParams{
		Player:   Player{ID: "p1", Name: "Ada"},
		Opponent: OpponentHuman,
	}, conn)
	require.NoError(t, err)

	r.Remove(s.ID)

	_, ok := r.Lookup(s.ID)
	assert.False(t, ok)
	_, ok = r.LookupByConnection(conn.id)
	assert.False(t, ok)
}

func TestSweepIdleRetiresStaleLiveGames(t *testing.T) {
	r := newTestRegistry(t)

	stale, err := r.CreateSession(CreateParams{
		Player:   Player{ID: "p1", Name: "Ada"},
		Opponent: OpponentHuman,
	}, newFakeConn())
	require.NoError(t, err)
	stale.mu.Lock()
	stale.lastActivity = time.Now().Add(-2 * time.Hour)
	stale.mu.Unlock()

	corr, err := r.CreateSession(CreateParams{
		Player:         Player{ID: "p2", Name: "Grace"},
		Opponent:       OpponentHuman,
		Target:         3,
		Correspondence: true,
	}, newFakeConn())
	require.NoError(t, err)
	corr.mu.Lock()
	corr.lastActivity = time.Now().Add(-2 * time.Hour)
	corr.mu.Unlock()

	swept := r.SweepIdle(time.Hour)
	assert.Equal(t, 1, swept)

	_, ok := r.Lookup(stale.ID)
	assert.False(t, ok)
	_, ok = r.Lookup(corr.ID)
	assert.True(t, ok)

	// The unfinished swept game is recorded as abandoned, not completed.
	rec, err := r.store.GetGame(context.Background(), stale.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusAbandoned, rec.Status)
}
