package game

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tecu23/gammon-server/pkg/bg"
	"github.com/tecu23/gammon-server/pkg/store"
)

func TestCrawfordEntersAndLeavesExactlyOnce(t *testing.T) {
	m := NewMatch(5)

	m.RecordGame(bg.White, 2) // 2-0
	assert.False(t, m.Crawford)
	m.RecordGame(bg.White, 2) // 4-0, next game is the Crawford game
	assert.True(t, m.Crawford)

	m.RecordGame(bg.Red, 1) // 4-1, Crawford spent
	assert.False(t, m.Crawford)

	// The leader hovering at target-1 does not re-arm it.
	m.RecordGame(bg.Red, 2) // 4-3
	assert.False(t, m.Crawford)

	m.RecordGame(bg.White, 1)
	assert.True(t, m.Done)
	assert.Equal(t, bg.White, m.Winner)
}

func TestCrawfordWhenScoreJumpsPastTargetMinusOne(t *testing.T) {
	m := NewMatch(5)

	// A gammon from 2-0 lands on 4 exactly; a backgammon from 2-0 would
	// end the match outright instead.
	m.RecordGame(bg.White, 2)
	m.RecordGame(bg.Red, 4)
	assert.True(t, m.Crawford)
	assert.False(t, m.Done)
}

func TestMatchWinClearsTurnTracking(t *testing.T) {
	m := NewMatch(3)
	m.PerMoveAllowance = 1
	m.TurnPlayerID = "p1"

	m.RecordGame(bg.White, 3)
	assert.True(t, m.Done)
	assert.Empty(t, m.TurnPlayerID)
	assert.True(t, m.TurnDeadline.IsZero())
}

func TestMatchGameRollsOverToNextGame(t *testing.T) {
	r := newTestRegistry(t)

	white := newFakeConn()
	roller := bg.NewScriptedRoller([2]int{5, 1}, [2]int{3, 1})
	s, err := r.CreateSession(CreateParams{
		Player:   Player{ID: "p-white", Name: "Ada"},
		Opponent: OpponentHuman,
		Target:   3,
		Roller:   roller,
	}, white)
	require.NoError(t, err)

	red := newFakeConn()
	_, _, err = r.JoinOrLoad(context.Background(), s.ID, Player{ID: "p-red", Name: "Grace"}, red)
	require.NoError(t, err)

	require.True(t, s.RollOpening(white.id).OK)
	require.True(t, s.RollOpening(red.id).OK)
	r.tasks.Wait()

	firstGame := s.gameID
	require.True(t, s.Resign(red.id).GameOver)
	r.tasks.Wait()

	// The match continues on the same session with a fresh board.
	assert.Equal(t, 1, s.match.Scores[bg.White])
	assert.False(t, s.match.Done)
	assert.NotEqual(t, firstGame, s.gameID)
	assert.True(t, s.eng.IsOpeningRoll())
	assert.False(t, s.finished)

	mrec, err := r.store.GetMatch(context.Background(), s.match.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, mrec.WhiteScore)
	assert.Len(t, mrec.GameIDs, 2)
}

func TestMatchCompletionRecordsWinner(t *testing.T) {
	r := newTestRegistry(t)

	white := newFakeConn()
	roller := bg.NewScriptedRoller([2]int{5, 1}, [2]int{3, 1})
	s, err := r.CreateSession(CreateParams{
		Player:   Player{ID: "p-white", Name: "Ada"},
		Opponent: OpponentHuman,
		Target:   2,
		Roller:   roller,
	}, white)
	require.NoError(t, err)

	red := newFakeConn()
	_, _, err = r.JoinOrLoad(context.Background(), s.ID, Player{ID: "p-red", Name: "Grace"}, red)
	require.NoError(t, err)

	require.True(t, s.RollOpening(white.id).OK)
	require.True(t, s.RollOpening(red.id).OK)
	r.tasks.Wait()

	// Red concedes game one, then game two straight away.
	require.True(t, s.Resign(red.id).GameOver)
	r.tasks.Wait()
	require.True(t, s.Resign(red.id).GameOver)
	r.tasks.Wait()

	assert.True(t, s.match.Done)
	assert.Equal(t, bg.White, s.match.Winner)

	mrec, err := r.store.GetMatch(context.Background(), s.match.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusCompleted, mrec.Status)
	assert.Equal(t, string(bg.White), mrec.Winner)

	// Each decided game has its own completed record.
	for _, gid := range mrec.GameIDs[:2] {
		rec, err := r.store.GetGame(context.Background(), gid)
		require.NoError(t, err)
		assert.Equal(t, store.StatusCompleted, rec.Status)
	}
}

func TestCrawfordGameDisablesCube(t *testing.T) {
	r := newTestRegistry(t)

	white := newFakeConn()
	roller := bg.NewScriptedRoller([2]int{5, 1}, [2]int{3, 1})
	s, err := r.CreateSession(CreateParams{
		Player:   Player{ID: "p-white", Name: "Ada"},
		Opponent: OpponentHuman,
		Target:   2,
		Roller:   roller,
	}, white)
	require.NoError(t, err)

	red := newFakeConn()
	_, _, err = r.JoinOrLoad(context.Background(), s.ID, Player{ID: "p-red", Name: "Grace"}, red)
	require.NoError(t, err)

	require.True(t, s.RollOpening(white.id).OK)
	require.True(t, s.RollOpening(red.id).OK)
	r.tasks.Wait()

	// White moves to 1-0 in a match to 2: the next game is Crawford.
	require.True(t, s.Resign(red.id).GameOver)
	r.tasks.Wait()

	require.True(t, s.match.Crawford)
	assert.True(t, s.eng.Cube().Disabled)
}
