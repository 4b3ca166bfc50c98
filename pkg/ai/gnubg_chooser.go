package ai

import (
	"context"

	"go.uber.org/zap"

	"github.com/tecu23/gammon-server/pkg/bg"
)

// GnubgChooser plays checkers with the hint service and falls back to the
// greedy heuristic whenever the service is unavailable or returns a play
// the engine rejects. Cube decisions stay heuristic; the service's cube
// endpoint wants full game context the orchestrator does not ship.
type GnubgChooser struct {
	client   *Client
	fallback Greedy
	logger   *zap.Logger
}

// NewGnubgChooser wraps a hint-service client.
func NewGnubgChooser(client *Client, logger *zap.Logger) *GnubgChooser {
	return &GnubgChooser{client: client, logger: logger}
}

// ChooseMoves asks the service for its top-ranked play and validates it
// hop by hop against the engine before committing to it.
func (g *GnubgChooser) ChooseMoves(ctx context.Context, game *bg.Game) []bg.Move {
	dice := game.Dice()
	if len(dice) == 0 {
		return nil
	}
	pair := [2]int{dice[0], dice[0]}
	if len(dice) > 1 {
		pair[1] = dice[1]
	}

	onRoll := game.CurrentPlayer()
	hints, err := g.client.Hint(ctx, PositionID(game.Board(), onRoll), pair, onRoll)
	if err != nil || len(hints) == 0 {
		g.logger.Warn("hint service unavailable, using heuristic", zap.Error(err))
		return g.fallback.ChooseMoves(ctx, game)
	}

	plan, err := ParseNotation(hints[0].Notation, onRoll)
	if err != nil {
		g.logger.Warn("unparseable hint, using heuristic",
			zap.String("notation", hints[0].Notation), zap.Error(err))
		return g.fallback.ChooseMoves(ctx, game)
	}

	scratch := game.Clone()
	for _, m := range plan {
		if _, err := scratch.Apply(m.From, m.To); err != nil {
			g.logger.Warn("hint rejected by engine, using heuristic",
				zap.String("notation", hints[0].Notation), zap.Error(err))
			return g.fallback.ChooseMoves(ctx, game)
		}
	}
	return plan
}

// ShouldDouble defers to the heuristic.
func (g *GnubgChooser) ShouldDouble(ctx context.Context, game *bg.Game, c bg.Color) bool {
	return g.fallback.ShouldDouble(ctx, game, c)
}

// ShouldAccept defers to the heuristic.
func (g *GnubgChooser) ShouldAccept(ctx context.Context, game *bg.Game, c bg.Color) bool {
	return g.fallback.ShouldAccept(ctx, game, c)
}
