package bg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func containsMove(moves []Move, from, to int) bool {
	for _, m := range moves {
		if m.From == from && m.To == to {
			return true
		}
	}
	return false
}

func TestLegalMovesOpeningRollThreeOne(t *testing.T) {
	b := NewBoard()
	moves := legalMoves(b, White, []int{3, 1})

	// 8/5 and 6/5 are the classic 3-1 plays.
	assert.True(t, containsMove(moves, 8, 5))
	assert.True(t, containsMove(moves, 6, 5))
	// Red's anchor on 19 blocks 24/21... it does not: 24-3=21 is open.
	assert.True(t, containsMove(moves, 24, 21))
	// 6/3 with the 3 is open as well.
	assert.True(t, containsMove(moves, 6, 3))
}

func TestBlockedDestinationExcluded(t *testing.T) {
	b := NewBoard()
	// White 24/19 with a 5 runs into Red's five checkers on 19.
	moves := legalMoves(b, White, []int{5})
	assert.False(t, containsMove(moves, 24, 19))
	// 13/8 stacks on White's own point, fine.
	assert.True(t, containsMove(moves, 13, 8))
}

func TestBarEntryMandatory(t *testing.T) {
	b := NewBoard()
	b.Bar[White.Index()] = 1

	moves := legalMoves(b, White, []int{3, 5})
	require.NotEmpty(t, moves)
	for _, m := range moves {
		assert.Equal(t, BarWhite, m.From)
	}
	// Entry with a 3 lands on 22, with a 5 on 20.
	assert.True(t, containsMove(moves, BarWhite, 22))
	assert.True(t, containsMove(moves, BarWhite, 20))
}

func TestBarEntryBlocked(t *testing.T) {
	var b Board
	b.Bar[White.Index()] = 1
	b.Points[22] = -2 // Red holds White's 3-entry
	b.Points[6] = 5

	moves := legalMoves(b, White, []int{3})
	assert.Empty(t, moves)
}

func TestHitDetection(t *testing.T) {
	var b Board
	b.Points[13] = 1
	b.Points[8] = -1 // Red blot

	moves := legalMoves(b, White, []int{5})
	require.True(t, containsMove(moves, 13, 8))
	for _, m := range moves {
		if m.From == 13 && m.To == 8 {
			assert.True(t, m.Hit)
		}
	}
}

func TestBearOffRules(t *testing.T) {
	var b Board
	b.Points[6] = 2
	b.Points[3] = 2
	b.Off[White.Index()] = 11

	// Exact bear-off from the 6 and the 3.
	moves := legalMoves(b, White, []int{6, 3})
	assert.True(t, containsMove(moves, 6, OffWhite))
	assert.True(t, containsMove(moves, 3, OffWhite))

	// A 5 cannot bear off the 3-point while the 6-point is occupied,
	// but moves 6/1 inside the board.
	moves = legalMoves(b, White, []int{5})
	assert.False(t, containsMove(moves, 3, OffWhite))
	assert.True(t, containsMove(moves, 6, 1))

	// Once the 6-point empties, the overshoot is legal.
	b.Points[6] = 0
	b.Off[White.Index()] = 13
	moves = legalMoves(b, White, []int{5})
	assert.True(t, containsMove(moves, 3, OffWhite))
}

func TestApplyAndUndoRoundTrip(t *testing.T) {
	var b Board
	b.Points[13] = 2
	b.Points[8] = -1
	b.Bar[Red.Index()] = 0

	before := b
	m := Move{From: 13, To: 8, Die: 5, Hit: true}
	applyMove(&b, White, m)

	assert.Equal(t, 1, b.Count(13, White))
	assert.Equal(t, 1, b.Count(8, White))
	assert.Equal(t, 1, b.Bar[Red.Index()])

	undoMove(&b, White, m)
	assert.Equal(t, before, b)
}

func TestCombinedMoves(t *testing.T) {
	var b Board
	b.Points[13] = 1
	b.Points[6] = 4 // keep a second white presence so the position is sane

	combined := combinedMoves(b, White, []int{5, 3})

	var found *CombinedMove
	for i := range combined {
		if combined[i].From == 13 && combined[i].To == 5 {
			found = &combined[i]
		}
	}
	require.NotNil(t, found, "13 -> 5 with 5,3 should exist")
	// Either waypoint order works here; the generator keys by landing points.
	assert.Len(t, found.Waypoints, 1)
}

func TestCombinedMoveBlockedIntermediate(t *testing.T) {
	var b Board
	b.Points[13] = 1
	b.Points[8] = -2  // 13/8 blocked
	b.Points[10] = -2 // 13/10 blocked too

	combined := combinedMoves(b, White, []int{5, 3})
	for _, cm := range combined {
		assert.NotEqual(t, 13, cm.From, "no sequence can leave the 13-point")
	}
}

func TestCombinedMovesDoubles(t *testing.T) {
	var b Board
	b.Points[20] = 1
	b.Points[6] = 5

	combined := combinedMoves(b, White, []int{5, 5, 5, 5})
	found := false
	for _, cm := range combined {
		if cm.From == 20 && cm.To == 5 && len(cm.Waypoints) == 2 {
			found = true
		}
	}
	assert.True(t, found, "20 -> 15 -> 10 -> 5 should exist")
}
