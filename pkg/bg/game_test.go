package bg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpeningRollResolution(t *testing.T) {
	g := NewGame(WithRoller(NewScriptedRoller([2]int{5, 0}, [2]int{2, 0})))

	die, err := g.RollOpening(White)
	require.NoError(t, err)
	assert.Equal(t, 5, die)
	assert.True(t, g.IsOpeningRoll())
	assert.Equal(t, NoColor, g.CurrentPlayer())

	_, err = g.RollOpening(White)
	assert.ErrorIs(t, err, ErrAlreadyRolled)

	die, err = g.RollOpening(Red)
	require.NoError(t, err)
	assert.Equal(t, 2, die)

	assert.False(t, g.IsOpeningRoll())
	assert.Equal(t, White, g.CurrentPlayer())
	// The winner of the roll-off plays both opening dice.
	assert.ElementsMatch(t, []int{5, 2}, g.Dice())
}

func TestOpeningRollTie(t *testing.T) {
	g := NewGame(WithRoller(NewScriptedRoller([2]int{4, 0}, [2]int{4, 0}, [2]int{6, 0}, [2]int{1, 0})))

	_, err := g.RollOpening(White)
	require.NoError(t, err)
	_, err = g.RollOpening(Red)
	require.NoError(t, err)

	// Equal rolls leave the roll-off open with both records cleared.
	assert.True(t, g.IsOpeningRoll())
	w, r := g.OpeningRolls()
	assert.Zero(t, w)
	assert.Zero(t, r)

	_, err = g.RollOpening(Red)
	require.NoError(t, err)
	_, err = g.RollOpening(White)
	require.NoError(t, err)

	assert.False(t, g.IsOpeningRoll())
	assert.Equal(t, Red, g.CurrentPlayer())
}

func TestWithOpeningCompleted(t *testing.T) {
	g := NewGame(WithOpeningCompleted(White), WithRoller(NewScriptedRoller([2]int{3, 1})))

	assert.False(t, g.IsOpeningRoll())
	assert.Equal(t, White, g.CurrentPlayer())
	_, err := g.RollOpening(White)
	assert.ErrorIs(t, err, ErrNotOpeningPhase)

	dice, err := g.RollDice()
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{3, 1}, dice)
}

func TestRollDicePreconditions(t *testing.T) {
	g := NewGame(WithOpeningCompleted(White), WithRoller(NewScriptedRoller([2]int{6, 6})))

	dice, err := g.RollDice()
	require.NoError(t, err)
	assert.Len(t, dice, 4, "doubles grant four moves")

	_, err = g.RollDice()
	assert.ErrorIs(t, err, ErrAlreadyRolled)
}

func TestApplyUndoEndTurn(t *testing.T) {
	g := NewGame(WithOpeningCompleted(White), WithRoller(NewScriptedRoller([2]int{3, 1})))
	_, err := g.RollDice()
	require.NoError(t, err)

	_, err = g.Apply(8, 5)
	require.NoError(t, err)
	assert.Equal(t, 1, g.HistoryLen())
	assert.Equal(t, []int{1}, g.Dice())

	// A move remains for the 1, so the turn cannot end.
	assert.ErrorIs(t, g.EndTurn(), ErrMovesAvailable)

	_, err = g.Undo()
	require.NoError(t, err)
	assert.Zero(t, g.HistoryLen())
	assert.ElementsMatch(t, []int{3, 1}, g.Dice())
	assert.Equal(t, NewBoard(), g.Board())

	_, err = g.Undo()
	assert.ErrorIs(t, err, ErrNothingToUndo)

	_, err = g.Apply(8, 5)
	require.NoError(t, err)
	_, err = g.Apply(6, 5)
	require.NoError(t, err)

	require.NoError(t, g.EndTurn())
	assert.Equal(t, Red, g.CurrentPlayer())
	assert.False(t, g.HasRolled())
	assert.Zero(t, g.HistoryLen(), "undo window closes at turn end")
}

func TestApplyRejectsIllegalMove(t *testing.T) {
	g := NewGame(WithOpeningCompleted(White), WithRoller(NewScriptedRoller([2]int{3, 1})))
	_, err := g.RollDice()
	require.NoError(t, err)

	_, err = g.Apply(13, 7)
	assert.ErrorIs(t, err, ErrNoLegalMove)
}

func TestBearOffWinAndGammon(t *testing.T) {
	var b Board
	b.Points[1] = 1
	b.Off[White.Index()] = 14
	b.Points[19] = -15

	g := NewGame(WithOpeningCompleted(White), WithRoller(NewScriptedRoller([2]int{1, 2})))
	g.board = b

	_, err := g.RollDice()
	require.NoError(t, err)
	_, err = g.Apply(1, OffWhite)
	require.NoError(t, err)

	winner, over := g.Winner()
	require.True(t, over)
	assert.Equal(t, White, winner)

	// Red bore nothing off but has no checker in White's home: gammon.
	winType, points := g.Result()
	assert.Equal(t, WinGammon, winType)
	assert.Equal(t, 2, points)

	_, err = g.RollDice()
	assert.ErrorIs(t, err, ErrGameOver)
}

func TestBackgammonClassification(t *testing.T) {
	var b Board
	b.Points[1] = 1
	b.Off[White.Index()] = 14
	b.Points[2] = -1 // Red checker stranded in White's home
	b.Points[19] = -14

	g := NewGame(WithOpeningCompleted(White), WithRoller(NewScriptedRoller([2]int{1, 2})))
	g.board = b

	_, err := g.RollDice()
	require.NoError(t, err)
	_, err = g.Apply(1, OffWhite)
	require.NoError(t, err)

	winType, points := g.Result()
	assert.Equal(t, WinBackgammon, winType)
	assert.Equal(t, 3, points)
}

func TestDoubleOfferAcceptDecline(t *testing.T) {
	g := NewGame(WithOpeningCompleted(White))

	require.NoError(t, g.OfferDouble(White))
	assert.True(t, g.DoublePending())

	// Rolling and moving are suspended while the offer stands.
	_, err := g.RollDice()
	assert.ErrorIs(t, err, ErrDoublePending)
	assert.Empty(t, g.LegalMoves())

	// The offerer cannot answer its own double.
	assert.ErrorIs(t, g.AcceptDouble(White), ErrWrongResponder)

	require.NoError(t, g.AcceptDouble(Red))
	cube := g.Cube()
	assert.Equal(t, 2, cube.Value)
	assert.Equal(t, Red, cube.Owner)
	assert.False(t, cube.Offered)

	// Only the owner may redouble now.
	assert.ErrorIs(t, g.OfferDouble(White), ErrCubeNotOwned)
}

func TestDeclineDoubleEndsGame(t *testing.T) {
	g := NewGame(WithOpeningCompleted(White))

	require.NoError(t, g.OfferDouble(White))
	require.NoError(t, g.DeclineDouble(Red))

	winner, over := g.Winner()
	require.True(t, over)
	assert.Equal(t, White, winner)
	winType, points := g.Result()
	assert.Equal(t, WinNormal, winType)
	assert.Equal(t, 1, points, "decline concedes the pre-double stakes")
}

func TestCrawfordCubeDisabled(t *testing.T) {
	g := NewGame(WithOpeningCompleted(White), WithCubeDisabled())
	assert.ErrorIs(t, g.OfferDouble(White), ErrCubeDisabled)
}

func TestResign(t *testing.T) {
	g := NewGame(WithOpeningCompleted(White))
	require.NoError(t, g.Resign(Red, WinNormal))

	winner, over := g.Winner()
	require.True(t, over)
	assert.Equal(t, White, winner)
	assert.ErrorIs(t, g.Resign(White, WinNormal), ErrGameOver)
}

func TestClassifyStakes(t *testing.T) {
	assert.Equal(t, WinNormal, ClassifyStakes(2, 2))
	assert.Equal(t, WinGammon, ClassifyStakes(4, 2))
	assert.Equal(t, WinBackgammon, ClassifyStakes(3, 1))
}
