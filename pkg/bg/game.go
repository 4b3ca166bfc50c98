package bg

import "errors"

// Engine-level rule violations. Callers translate these into their own
// failure taxonomy at the transport boundary.
var (
	ErrGameOver        = errors.New("bg: game is already decided")
	ErrOpeningPhase    = errors.New("bg: opening roll not resolved yet")
	ErrNotOpeningPhase = errors.New("bg: opening roll already resolved")
	ErrAlreadyRolled   = errors.New("bg: dice already rolled this turn")
	ErrNotRolled       = errors.New("bg: dice not rolled yet")
	ErrNoLegalMove     = errors.New("bg: no matching legal move")
	ErrMovesAvailable  = errors.New("bg: legal moves still available")
	ErrNothingToUndo   = errors.New("bg: move history is empty")
)

// Game is one backgammon game: board, turn, dice in hand, cube and result.
// Game is not safe for concurrent use; callers serialize access.
type Game struct {
	board Board
	turn  Color

	opening      bool
	openingRolls [2]int // by color index, 0 = not rolled this round

	dice   []int
	rolled bool

	cube    Cube
	history []Move

	winner   Color
	winType  WinType
	points   int
	resigned bool

	roller DiceRoller
}

// Option configures a new game.
type Option func(*Game)

// WithRoller replaces the default time-seeded dice roller.
func WithRoller(r DiceRoller) Option {
	return func(g *Game) { g.roller = r }
}

// WithOpeningCompleted starts the game past the opening roll with first
// already on turn and dice not yet rolled. Analysis sessions use this to
// skip the roll-off without poking at internal state.
func WithOpeningCompleted(first Color) Option {
	return func(g *Game) {
		g.opening = false
		g.turn = first
	}
}

// WithCubeDisabled disables doubling, used for Crawford games.
func WithCubeDisabled() Option {
	return func(g *Game) { g.cube.Disabled = true }
}

// NewGame returns a game at the opening roll-off on the standard starting
// position.
func NewGame(opts ...Option) *Game {
	g := &Game{
		board:   NewBoard(),
		opening: true,
		cube:    newCube(false),
		roller:  NewRandomRoller(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Clone returns an independent copy, used by AI move selection so the
// search never disturbs live state.
func (g *Game) Clone() *Game {
	cp := *g
	cp.dice = append([]int(nil), g.dice...)
	cp.history = append([]Move(nil), g.history...)
	return &cp
}

// Board returns the current position by value.
func (g *Game) Board() Board { return g.board }

// CurrentPlayer returns the side on turn, or NoColor while the opening
// roll-off is unresolved or the game is over.
func (g *Game) CurrentPlayer() Color {
	if g.opening || g.winner != NoColor {
		return NoColor
	}
	return g.turn
}

// IsOpeningRoll reports whether the opening roll-off is still unresolved.
func (g *Game) IsOpeningRoll() bool { return g.opening }

// OpeningRolls returns the dice recorded so far this roll-off round,
// 0 meaning a side has not rolled.
func (g *Game) OpeningRolls() (white, red int) {
	return g.openingRolls[White.Index()], g.openingRolls[Red.Index()]
}

// RollOpening records c's opening die. Equal rolls clear both sides and
// keep the roll-off open; otherwise the higher roller comes on turn and
// plays the two opening dice.
func (g *Game) RollOpening(c Color) (int, error) {
	if g.winner != NoColor {
		return 0, ErrGameOver
	}
	if !g.opening {
		return 0, ErrNotOpeningPhase
	}
	if g.openingRolls[c.Index()] != 0 {
		return 0, ErrAlreadyRolled
	}

	die, _ := g.roller.Roll()
	g.openingRolls[c.Index()] = die

	w, r := g.openingRolls[White.Index()], g.openingRolls[Red.Index()]
	if w == 0 || r == 0 {
		return die, nil
	}
	if w == r {
		g.openingRolls = [2]int{}
		return die, nil
	}

	g.opening = false
	if w > r {
		g.turn = White
	} else {
		g.turn = Red
	}
	g.dice = []int{w, r}
	g.rolled = true
	return die, nil
}

// RollDice produces the mover's roll for this turn. Doubles grant four
// moves of the same die.
func (g *Game) RollDice() ([]int, error) {
	if g.winner != NoColor {
		return nil, ErrGameOver
	}
	if g.opening {
		return nil, ErrOpeningPhase
	}
	if g.cube.Offered {
		return nil, ErrDoublePending
	}
	if g.rolled {
		return nil, ErrAlreadyRolled
	}

	a, b := g.roller.Roll()
	if a == b {
		g.dice = []int{a, a, a, a}
	} else {
		g.dice = []int{a, b}
	}
	g.rolled = true
	return g.Dice(), nil
}

// Dice returns a copy of the unconsumed dice.
func (g *Game) Dice() []int { return append([]int(nil), g.dice...) }

// RemainingMoves returns how many dice are still in hand.
func (g *Game) RemainingMoves() int { return len(g.dice) }

// HasRolled reports whether the mover has rolled this turn.
func (g *Game) HasRolled() bool { return g.rolled }

// LegalMoves enumerates the legal single-die moves for the dice in hand.
func (g *Game) LegalMoves() []Move {
	if g.opening || g.winner != NoColor || !g.rolled || g.cube.Offered {
		return nil
	}
	return legalMoves(g.board, g.turn, g.dice)
}

// CombinedMoves enumerates the legal multi-hop sequences for the dice in
// hand, annotated with hit counts.
func (g *Game) CombinedMoves() []CombinedMove {
	if g.opening || g.winner != NoColor || !g.rolled || g.cube.Offered {
		return nil
	}
	return combinedMoves(g.board, g.turn, g.dice)
}

// Apply plays the single legal move matching (from, to), consuming its die.
func (g *Game) Apply(from, to int) (Move, error) {
	if g.winner != NoColor {
		return Move{}, ErrGameOver
	}
	if g.opening {
		return Move{}, ErrOpeningPhase
	}
	if g.cube.Offered {
		return Move{}, ErrDoublePending
	}
	if !g.rolled {
		return Move{}, ErrNotRolled
	}

	for _, m := range legalMoves(g.board, g.turn, g.dice) {
		if m.From != from || m.To != to {
			continue
		}
		applyMove(&g.board, g.turn, m)
		g.consumeDie(m.Die)
		g.history = append(g.history, m)
		if g.board.Off[g.turn.Index()] == 15 {
			g.setWinner(g.turn)
		}
		return m, nil
	}
	return Move{}, ErrNoLegalMove
}

// Undo reverses the last applied move of the current turn, returning its
// die to hand.
func (g *Game) Undo() (Move, error) {
	if g.winner != NoColor {
		return Move{}, ErrGameOver
	}
	if len(g.history) == 0 {
		return Move{}, ErrNothingToUndo
	}
	m := g.history[len(g.history)-1]
	g.history = g.history[:len(g.history)-1]
	undoMove(&g.board, g.turn, m)
	g.dice = append(g.dice, m.Die)
	return m, nil
}

// EndTurn passes the turn to the opponent. It fails while any legal move
// remains for the dice in hand.
func (g *Game) EndTurn() error {
	if g.winner != NoColor {
		return ErrGameOver
	}
	if g.opening {
		return ErrOpeningPhase
	}
	if !g.rolled {
		return ErrNotRolled
	}
	if len(legalMoves(g.board, g.turn, g.dice)) > 0 {
		return ErrMovesAvailable
	}

	g.turn = g.turn.Opp()
	g.dice = nil
	g.rolled = false
	g.history = nil
	return nil
}

// HistoryLen returns the number of moves applied this turn.
func (g *Game) HistoryLen() int { return len(g.history) }

// Cube returns the doubling cube state.
func (g *Game) Cube() Cube { return g.cube }

// DoublePending reports whether a double offer awaits an answer.
func (g *Game) DoublePending() bool { return g.cube.Offered }

// OfferDouble lets c offer the cube before rolling.
func (g *Game) OfferDouble(c Color) error {
	if g.winner != NoColor {
		return ErrGameOver
	}
	if g.opening {
		return ErrOpeningPhase
	}
	if g.cube.Disabled {
		return ErrCubeDisabled
	}
	if g.cube.Offered {
		return ErrDoublePending
	}
	if g.rolled {
		return ErrAlreadyRolled
	}
	if !g.cube.mayOffer(c) {
		return ErrCubeNotOwned
	}
	if g.cube.Value >= maxCubeValue {
		return ErrCubeMaxed
	}
	g.cube.Offered = true
	g.cube.OfferedBy = c
	return nil
}

// AcceptDouble doubles the stakes and transfers cube ownership to the
// accepter.
func (g *Game) AcceptDouble(c Color) error {
	if g.winner != NoColor {
		return ErrGameOver
	}
	if !g.cube.Offered {
		return ErrNoDoubleOffer
	}
	if c == g.cube.OfferedBy {
		return ErrWrongResponder
	}
	g.cube.Value *= 2
	g.cube.Owner = c
	g.cube.Offered = false
	g.cube.OfferedBy = NoColor
	return nil
}

// DeclineDouble concedes the game to the offerer at the pre-double stakes.
func (g *Game) DeclineDouble(c Color) error {
	if g.winner != NoColor {
		return ErrGameOver
	}
	if !g.cube.Offered {
		return ErrNoDoubleOffer
	}
	if c == g.cube.OfferedBy {
		return ErrWrongResponder
	}
	winner := g.cube.OfferedBy
	g.cube.Offered = false
	g.cube.OfferedBy = NoColor
	g.resigned = true
	g.winner = winner
	g.winType = WinNormal
	g.points = g.cube.Value
	return nil
}

// Resign concedes the game at the given severity. Timeout forfeits reuse
// this path.
func (g *Game) Resign(c Color, w WinType) error {
	if g.winner != NoColor {
		return ErrGameOver
	}
	g.resigned = true
	g.winner = c.Opp()
	g.winType = w
	g.points = w.Multiplier() * g.cube.Value
	return nil
}

// Winner returns the winning color once the game is decided.
func (g *Game) Winner() (Color, bool) {
	return g.winner, g.winner != NoColor
}

// Result returns the win classification and point value of a decided game.
func (g *Game) Result() (WinType, int) {
	return g.winType, g.points
}

// setWinner records a bear-off win and classifies it: gammon when the loser
// has borne nothing off, backgammon when the loser additionally has a
// checker on the bar or in the winner's home board.
func (g *Game) setWinner(c Color) {
	loser := c.Opp()
	w := WinNormal
	if g.board.Off[loser.Index()] == 0 {
		w = WinGammon
		if g.board.Bar[loser.Index()] > 0 {
			w = WinBackgammon
		} else {
			for p := 1; p <= 24; p++ {
				if g.board.Count(p, loser) > 0 && inHomeOf(p, c) {
					w = WinBackgammon
					break
				}
			}
		}
	}
	g.winner = c
	g.winType = w
	g.points = w.Multiplier() * g.cube.Value
}

func (g *Game) consumeDie(d int) {
	for i, v := range g.dice {
		if v == d {
			g.dice = append(g.dice[:i], g.dice[i+1:]...)
			return
		}
	}
}
