// Package ai selects moves for computer-controlled players. The default
// chooser is a local greedy heuristic; when a gnubg hint service is
// configured its rankings take precedence, with the heuristic as fallback.
package ai

import (
	"context"

	"github.com/tecu23/gammon-server/pkg/bg"
)

// Chooser picks a play for the side on turn. Implementations receive a
// clone of the live game and must not assume exclusive access beyond the
// call.
type Chooser interface {
	// ChooseMoves returns the single-die moves to apply in order for the
	// dice in hand. An empty slice means no move is possible.
	ChooseMoves(ctx context.Context, g *bg.Game) []bg.Move
	// ShouldDouble reports whether the side on turn should offer the cube
	// before rolling.
	ShouldDouble(ctx context.Context, g *bg.Game, c bg.Color) bool
	// ShouldAccept reports whether c should take an offered double.
	ShouldAccept(ctx context.Context, g *bg.Game, c bg.Color) bool
}

// Greedy is a material heuristic: prefer hits, then pip gain, and keep
// playing until no die can be used.
type Greedy struct{}

// NewGreedy returns the heuristic chooser.
func NewGreedy() Greedy { return Greedy{} }

// ChooseMoves repeatedly applies the highest-scoring legal move on a
// scratch copy until none remain.
func (Greedy) ChooseMoves(_ context.Context, g *bg.Game) []bg.Move {
	scratch := g.Clone()
	var plan []bg.Move
	for {
		moves := scratch.LegalMoves()
		if len(moves) == 0 {
			return plan
		}
		best := moves[0]
		bestScore := scoreMove(best)
		for _, m := range moves[1:] {
			if s := scoreMove(m); s > bestScore {
				best, bestScore = m, s
			}
		}
		if _, err := scratch.Apply(best.From, best.To); err != nil {
			return plan
		}
		plan = append(plan, best)
	}
}

func scoreMove(m bg.Move) int {
	score := m.Die
	if m.Hit {
		score += 100
	}
	// Landing on 0 or 25 only ever means bearing off.
	if m.To == bg.OffWhite || m.To == bg.OffRed {
		score += 50
	}
	return score
}

// ShouldDouble offers when the side on turn leads the race by a
// comfortable margin.
func (Greedy) ShouldDouble(_ context.Context, g *bg.Game, c bg.Color) bool {
	b := g.Board()
	return b.PipCount(c.Opp())-b.PipCount(c) >= 20
}

// ShouldAccept takes unless the race deficit is hopeless.
func (Greedy) ShouldAccept(_ context.Context, g *bg.Game, c bg.Color) bool {
	b := g.Board()
	return b.PipCount(c)-b.PipCount(c.Opp()) < 40
}
