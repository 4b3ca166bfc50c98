// Package bg implements the backgammon rules engine: board representation,
// dice, legal move generation (single and combined), the doubling cube and
// game results. The engine is deterministic; randomness enters only through
// the DiceRoller a game is constructed with.
package bg

// Color represents a backgammon side.
type Color string

// The two sides of the board. NoColor marks the absence of a side, e.g. a
// centered cube or an unresolved opening roll.
const (
	White   Color = "white"
	Red     Color = "red"
	NoColor Color = ""
)

// Opp returns the opposite color.
func (c Color) Opp() Color {
	if c == White {
		return Red
	}
	return White
}

// Index maps a color to 0 (White) or 1 (Red) for array-backed state.
func (c Color) Index() int {
	if c == White {
		return 0
	}
	return 1
}
