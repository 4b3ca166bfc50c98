package bg

// State is the serializable snapshot of a game in progress: position, turn
// phase, dice in hand and cube. Completed games carry their result in the
// durable record instead, so State never includes one. The current turn's
// undo stack is deliberately excluded; a restored game has nothing to undo.
type State struct {
	Points [25]int `json:"points"`
	Bar    [2]int  `json:"bar"`
	Off    [2]int  `json:"off"`

	Turn         Color  `json:"turn"`
	Opening      bool   `json:"opening"`
	OpeningRolls [2]int `json:"opening_rolls"`

	Dice   []int `json:"dice,omitempty"`
	Rolled bool  `json:"rolled"`

	Cube Cube `json:"cube"`
}

// Save snapshots the game for persistence.
func (g *Game) Save() State {
	return State{
		Points:       g.board.Points,
		Bar:          g.board.Bar,
		Off:          g.board.Off,
		Turn:         g.turn,
		Opening:      g.opening,
		OpeningRolls: g.openingRolls,
		Dice:         append([]int(nil), g.dice...),
		Rolled:       g.rolled,
		Cube:         g.cube,
	}
}

// Restore rebuilds a game from a saved snapshot. The cube state, Crawford
// disabling included, comes from the snapshot rather than from options.
func Restore(st State, opts ...Option) *Game {
	g := NewGame(opts...)
	g.board = Board{Points: st.Points, Bar: st.Bar, Off: st.Off}
	g.turn = st.Turn
	g.opening = st.Opening
	g.openingRolls = st.OpeningRolls
	g.dice = append([]int(nil), st.Dice...)
	g.rolled = st.Rolled
	g.cube = st.Cube
	return g
}
