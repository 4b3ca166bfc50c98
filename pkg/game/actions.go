package game

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tecu23/gammon-server/pkg/bg"
	"github.com/tecu23/gammon-server/pkg/messages"
)

// effects collects the side work an action produced. Everything here runs
// detached after the session lock is released: the session lock covers
// only in-memory engine mutation, never I/O.
type effects struct {
	state    bool                      // per-viewer game_update broadcast
	msg      *messages.OutboundMessage // uniform event broadcast
	persist  bool                      // rewrite the game record
	deadline bool                      // recompute correspondence deadline
	aiTurn   bool                      // the mover is now AI-controlled
	finished bool                      // hand off to the completion coordinator
}

// dispatch schedules an action's side effects. The authoritative record is
// written before any broadcast so a reconnecting client never reads state
// staler than what was pushed.
func (s *Session) dispatch(fx effects) {
	if fx == (effects{}) {
		return
	}
	s.reg.tasks.Go("session.effects", func() error {
		if fx.finished {
			s.reg.finishGame(s)
			return nil
		}
		if fx.persist {
			s.reg.persistSession(s)
		}
		if fx.deadline {
			s.reg.updateDeadline(s)
		}
		if fx.msg != nil {
			s.BroadcastMessage(*fx.msg)
		}
		if fx.state {
			s.BroadcastState()
		}
		if fx.aiTurn {
			s.runAITurn()
		}
		return nil
	})
}

// actorLocked resolves which color a connection acts for. Analysis boards
// let their player drive whichever side is on turn.
func (s *Session) actorLocked(connID uuid.UUID) bg.Color {
	c := s.colorOfLocked(connID)
	if c == bg.NoColor {
		return c
	}
	if s.Mode == ModeAnalysis {
		// While a double is open the acting side is the one answering it,
		// not the offerer still on turn.
		if cube := s.eng.Cube(); cube.Offered {
			return cube.OfferedBy.Opp()
		}
		if cur := s.eng.CurrentPlayer(); cur != bg.NoColor {
			return cur
		}
	}
	return c
}

// guardLocked runs the checks common to every mutating action.
func (s *Session) guardLocked(connID uuid.UUID) (bg.Color, *ActionResult) {
	if s.finished {
		res := Failure(CodeGameCompleted, "game is already decided")
		return bg.NoColor, &res
	}
	actor := s.actorLocked(connID)
	if actor == bg.NoColor {
		res := Failure(CodeUnauthorized, "connection is not seated at this game")
		return bg.NoColor, &res
	}
	return actor, nil
}

// moverGuardLocked additionally requires the actor to be the current mover
// with time on the clock.
func (s *Session) moverGuardLocked(connID uuid.UUID) (bg.Color, *ActionResult) {
	actor, fail := s.guardLocked(connID)
	if fail != nil {
		return actor, fail
	}
	if s.eng.IsOpeningRoll() {
		res := Failure(CodeOutOfSequence, "opening roll not resolved yet")
		return actor, &res
	}
	if cur := s.eng.CurrentPlayer(); actor != cur {
		res := Failure(CodeNotYourTurn, "it is not your turn")
		return actor, &res
	}
	if s.clock != nil && s.clock.Read(time.Now()).Expired {
		res := Failure(CodeTimeExpired, "your time has expired")
		return actor, &res
	}
	return actor, nil
}

func engineFailure(err error) ActionResult {
	switch {
	case errors.Is(err, bg.ErrGameOver):
		return Failure(CodeGameCompleted, "game is already decided")
	case errors.Is(err, bg.ErrDoublePending):
		return Failure(CodeDoublePending, "a double offer must be answered first")
	case errors.Is(err, bg.ErrNoLegalMove):
		return Failure(CodeNoLegalMove, "no matching legal move")
	case errors.Is(err, bg.ErrMovesAvailable):
		return Failure(CodeMovesAvailable, "legal moves are still available")
	case errors.Is(err, bg.ErrNothingToUndo):
		return Failure(CodeNothingToUndo, "no move to undo")
	default:
		return Failure(CodeOutOfSequence, err.Error())
	}
}

// RollOpening records the caller's opening die. On resolution the higher
// roller comes on turn, their clock starts, and correspondence matches get
// a fresh deadline.
func (s *Session) RollOpening(connID uuid.UUID) ActionResult {
	s.mu.Lock()
	actor, fail := s.guardLocked(connID)
	if fail != nil {
		s.mu.Unlock()
		return *fail
	}

	if _, err := s.eng.RollOpening(actor); err != nil {
		s.mu.Unlock()
		return engineFailure(err)
	}
	s.lastActivity = time.Now()

	fx := effects{state: true, persist: true}
	if !s.eng.IsOpeningRoll() {
		// Roll-off resolved; the winner plays the opening dice.
		first := s.eng.CurrentPlayer()
		if s.clock != nil {
			s.clock.StartTurn(first, time.Now())
		}
		if s.match != nil && s.match.IsCorrespondence() {
			fx.deadline = true
		}
		fx.aiTurn = s.isAILocked(first)
	} else if opp := s.players[actor.Opp()]; opp != nil && opp.IsAI {
		// The computer answers the roll-off right away.
		w, r := s.eng.OpeningRolls()
		aiRolled := (actor.Opp() == bg.White && w != 0) || (actor.Opp() == bg.Red && r != 0)
		fx.aiTurn = !aiRolled
	}
	s.mu.Unlock()

	s.dispatch(fx)
	return Success()
}

// RollDice produces the mover's roll for this turn.
func (s *Session) RollDice(connID uuid.UUID) ActionResult {
	s.mu.Lock()
	_, fail := s.moverGuardLocked(connID)
	if fail != nil {
		s.mu.Unlock()
		return *fail
	}

	if _, err := s.eng.RollDice(); err != nil {
		s.mu.Unlock()
		return engineFailure(err)
	}
	s.lastActivity = time.Now()
	s.mu.Unlock()

	s.dispatch(effects{state: true, persist: true})
	return Success()
}

// MakeMove applies the legal move matching (from, to), accepting both
// single-die moves and multi-die combined moves. A combined move is
// applied hop by hop and rolled back in full if any hop fails.
func (s *Session) MakeMove(connID uuid.UUID, from, to int) ActionResult {
	s.mu.Lock()
	_, fail := s.moverGuardLocked(connID)
	if fail != nil {
		s.mu.Unlock()
		return *fail
	}

	if _, err := s.eng.Apply(from, to); err != nil {
		if !errors.Is(err, bg.ErrNoLegalMove) {
			s.mu.Unlock()
			return engineFailure(err)
		}
		combined := s.matchCombinedLocked(from, to)
		if combined == nil {
			s.mu.Unlock()
			return engineFailure(err)
		}
		if res := s.applyHopsLocked(hopsOf(*combined)); !res.OK {
			s.mu.Unlock()
			return res
		}
	}
	return s.afterMoveLocked()
}

// MakeCombinedMove applies an explicit waypoint path, all-or-nothing.
func (s *Session) MakeCombinedMove(connID uuid.UUID, from, to int, waypoints []int) ActionResult {
	s.mu.Lock()
	_, fail := s.moverGuardLocked(connID)
	if fail != nil {
		s.mu.Unlock()
		return *fail
	}

	path := append(append([]int{from}, waypoints...), to)
	if res := s.applyHopsLocked(path); !res.OK {
		s.mu.Unlock()
		return res
	}
	return s.afterMoveLocked()
}

// afterMoveLocked finishes a successful move: activity, game-over check,
// effect dispatch. It releases the session lock.
func (s *Session) afterMoveLocked() ActionResult {
	s.lastActivity = time.Now()

	if _, over := s.eng.Winner(); over {
		s.finished = true
		s.stopClockTicker()
		s.mu.Unlock()
		s.dispatch(effects{finished: true})
		return Finished()
	}
	s.mu.Unlock()
	s.dispatch(effects{state: true, persist: true})
	return Success()
}

// applyHopsLocked plays consecutive single-die hops. If any hop is
// rejected, every previously applied hop of this call is undone before the
// error is returned, so a failed combined move leaves no trace.
func (s *Session) applyHopsLocked(path []int) ActionResult {
	if len(path) < 2 {
		return Failure(CodeInvalid, "a move needs at least an origin and a destination")
	}
	applied := 0
	for i := 0; i+1 < len(path); i++ {
		if _, err := s.eng.Apply(path[i], path[i+1]); err != nil {
			for ; applied > 0; applied-- {
				if _, undoErr := s.eng.Undo(); undoErr != nil {
					s.logger.Error("rollback failed mid combined move",
						zap.String("session_id", s.ID.String()), zap.Error(undoErr))
					break
				}
			}
			return engineFailure(err)
		}
		applied++
	}
	return Success()
}

// matchCombinedLocked finds the generated combined move for an
// origin/destination pair.
func (s *Session) matchCombinedLocked(from, to int) *bg.CombinedMove {
	for _, cm := range s.eng.CombinedMoves() {
		if cm.From == from && cm.To == to {
			return &cm
		}
	}
	return nil
}

func hopsOf(cm bg.CombinedMove) []int {
	return append(append([]int{cm.From}, cm.Waypoints...), cm.To)
}

// EndTurn passes the turn, restarts the clock for the new mover, and
// schedules deadline and AI work as the mode requires.
func (s *Session) EndTurn(connID uuid.UUID) ActionResult {
	s.mu.Lock()
	_, fail := s.moverGuardLocked(connID)
	if fail != nil {
		s.mu.Unlock()
		return *fail
	}

	if err := s.eng.EndTurn(); err != nil {
		s.mu.Unlock()
		return engineFailure(err)
	}
	s.lastActivity = time.Now()

	next := s.eng.CurrentPlayer()
	if s.clock != nil {
		s.clock.StartTurn(next, time.Now())
	}

	fx := effects{state: true, persist: true}
	if s.match != nil && s.match.IsCorrespondence() {
		fx.deadline = true
	}
	fx.aiTurn = s.isAILocked(next)
	s.mu.Unlock()

	s.dispatch(fx)
	return Success()
}

// UndoLastMove reverses the current mover's most recent move.
func (s *Session) UndoLastMove(connID uuid.UUID) ActionResult {
	s.mu.Lock()
	_, fail := s.moverGuardLocked(connID)
	if fail != nil {
		s.mu.Unlock()
		return *fail
	}

	if _, err := s.eng.Undo(); err != nil {
		s.mu.Unlock()
		return engineFailure(err)
	}
	s.lastActivity = time.Now()
	s.mu.Unlock()

	s.dispatch(effects{state: true, persist: true})
	return Success()
}

// OfferDouble offers the cube before rolling.
func (s *Session) OfferDouble(connID uuid.UUID) ActionResult {
	s.mu.Lock()
	actor, fail := s.moverGuardLocked(connID)
	if fail != nil {
		s.mu.Unlock()
		return *fail
	}

	if err := s.eng.OfferDouble(actor); err != nil {
		s.mu.Unlock()
		return engineFailure(err)
	}
	s.lastActivity = time.Now()
	cube := s.eng.Cube()
	msg := &messages.OutboundMessage{
		Event: messages.EventDoubleOffered,
		Payload: messages.DoubleOfferedPayload{
			GameID:    s.ID.String(),
			OfferedBy: string(actor),
			NewValue:  cube.Value * 2,
		},
	}
	s.mu.Unlock()

	s.dispatch(effects{state: true, persist: true, msg: msg})
	return Success()
}

// AcceptDouble takes an offered cube; the offerer then resumes their turn.
func (s *Session) AcceptDouble(connID uuid.UUID) ActionResult {
	s.mu.Lock()
	actor, fail := s.guardLocked(connID)
	if fail != nil {
		s.mu.Unlock()
		return *fail
	}

	if err := s.eng.AcceptDouble(actor); err != nil {
		s.mu.Unlock()
		return engineFailure(err)
	}
	s.lastActivity = time.Now()
	cube := s.eng.Cube()
	msg := &messages.OutboundMessage{
		Event: messages.EventDoubleAccepted,
		Payload: messages.DoubleAcceptedPayload{
			GameID:    s.ID.String(),
			Owner:     string(cube.Owner),
			CubeValue: cube.Value,
		},
	}
	fx := effects{state: true, persist: true, msg: msg, aiTurn: s.isAILocked(s.eng.CurrentPlayer())}
	s.mu.Unlock()

	s.dispatch(fx)
	return Success()
}

// DeclineDouble concedes the game at the pre-double stakes.
func (s *Session) DeclineDouble(connID uuid.UUID) ActionResult {
	s.mu.Lock()
	actor, fail := s.guardLocked(connID)
	if fail != nil {
		s.mu.Unlock()
		return *fail
	}

	if err := s.eng.DeclineDouble(actor); err != nil {
		s.mu.Unlock()
		return engineFailure(err)
	}
	s.lastActivity = time.Now()
	s.finished = true
	s.stopClockTicker()
	s.mu.Unlock()

	s.dispatch(effects{finished: true})
	return Finished()
}

// Resign concedes the game.
func (s *Session) Resign(connID uuid.UUID) ActionResult {
	s.mu.Lock()
	actor, fail := s.guardLocked(connID)
	if fail != nil {
		s.mu.Unlock()
		return *fail
	}

	if err := s.eng.Resign(actor, bg.WinNormal); err != nil {
		s.mu.Unlock()
		return engineFailure(err)
	}
	s.lastActivity = time.Now()
	s.finished = true
	s.stopClockTicker()
	s.mu.Unlock()

	s.dispatch(effects{finished: true})
	return Finished()
}

// isAILocked reports whether a color's seat is computer-controlled.
func (s *Session) isAILocked(c bg.Color) bool {
	if c == bg.NoColor {
		return false
	}
	p := s.players[c]
	return p != nil && p.IsAI
}

// runAITurn drives the computer seat: answer the opening roll-off, answer
// a pending double, or roll/move/end the turn. Move selection can block on
// the hint service, so it happens against a clone outside the lock.
func (s *Session) runAITurn() {
	ctx := context.Background()

	s.mu.Lock()
	if s.finished {
		s.mu.Unlock()
		return
	}

	// Opening roll-off: the computer just rolls its die.
	if s.eng.IsOpeningRoll() {
		aiColor := s.aiColorLocked()
		s.mu.Unlock()
		if aiColor != bg.NoColor {
			if res := s.RollOpening(s.aiConnID(aiColor)); !res.OK {
				s.logger.Warn("ai opening roll rejected",
					zap.String("session_id", s.ID.String()),
					zap.String("code", string(res.Code)))
			}
		}
		return
	}

	mover := s.eng.CurrentPlayer()

	// A double offered to the computer gets answered before anything else.
	if s.eng.DoublePending() {
		cube := s.eng.Cube()
		aiColor := cube.OfferedBy.Opp()
		if !s.isAILocked(aiColor) {
			s.mu.Unlock()
			return
		}
		scratch := s.eng.Clone()
		s.mu.Unlock()
		if s.reg.chooser.ShouldAccept(ctx, scratch, aiColor) {
			s.acceptDoubleAsAI(aiColor)
		} else {
			s.declineDoubleAsAI(aiColor)
		}
		return
	}

	if !s.isAILocked(mover) {
		s.mu.Unlock()
		return
	}

	// Offer the cube before rolling when the position warrants it. The
	// offer suspends the turn; play resumes once the human answers.
	if !s.eng.HasRolled() && !s.eng.Cube().Disabled && s.eng.Cube().Value < 64 {
		scratch := s.eng.Clone()
		cube := s.eng.Cube()
		mayOffer := cube.Owner == bg.NoColor || cube.Owner == mover
		s.mu.Unlock()
		if mayOffer && s.reg.chooser.ShouldDouble(ctx, scratch, mover) {
			if res := s.OfferDouble(s.aiConnID(mover)); res.OK {
				return
			}
		}
		s.mu.Lock()
		if s.finished || s.eng.CurrentPlayer() != mover {
			s.mu.Unlock()
			return
		}
	}

	if !s.eng.HasRolled() {
		if _, err := s.eng.RollDice(); err != nil {
			s.mu.Unlock()
			s.logger.Warn("ai roll rejected", zap.Error(err))
			return
		}
	}

	scratch := s.eng.Clone()
	s.mu.Unlock()

	plan := s.reg.chooser.ChooseMoves(ctx, scratch)

	s.mu.Lock()
	if s.finished || s.eng.CurrentPlayer() != mover {
		s.mu.Unlock()
		return
	}
	for _, m := range plan {
		if _, err := s.eng.Apply(m.From, m.To); err != nil {
			// The live position diverged from the one the plan was built
			// on; fall back to replanning greedily in place.
			plan = nil
			break
		}
	}
	if plan == nil {
		for {
			moves := s.eng.LegalMoves()
			if len(moves) == 0 {
				break
			}
			if _, err := s.eng.Apply(moves[0].From, moves[0].To); err != nil {
				break
			}
		}
	}

	if _, over := s.eng.Winner(); over {
		s.finished = true
		s.stopClockTicker()
		s.mu.Unlock()
		s.dispatch(effects{finished: true})
		return
	}

	if err := s.eng.EndTurn(); err != nil {
		s.mu.Unlock()
		s.logger.Warn("ai end turn rejected", zap.Error(err))
		s.dispatch(effects{state: true})
		return
	}

	next := s.eng.CurrentPlayer()
	if s.clock != nil {
		s.clock.StartTurn(next, time.Now())
	}
	fx := effects{state: true, persist: true}
	if s.match != nil && s.match.IsCorrespondence() {
		fx.deadline = true
	}
	s.mu.Unlock()

	s.dispatch(fx)
}

// aiColorLocked returns the computer seat that still owes an opening roll.
func (s *Session) aiColorLocked() bg.Color {
	w, r := s.eng.OpeningRolls()
	if s.isAILocked(bg.White) && w == 0 {
		return bg.White
	}
	if s.isAILocked(bg.Red) && r == 0 {
		return bg.Red
	}
	return bg.NoColor
}

// aiConnID returns the synthetic connection id registered for a computer
// seat so AI actions flow through the same orchestrator entry points.
func (s *Session) aiConnID(c bg.Color) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range s.conns[c] {
		return id
	}
	return uuid.Nil
}

func (s *Session) acceptDoubleAsAI(c bg.Color) {
	if res := s.AcceptDouble(s.aiConnID(c)); !res.OK {
		s.logger.Warn("ai accept double rejected", zap.String("code", string(res.Code)))
	}
}

func (s *Session) declineDoubleAsAI(c bg.Color) {
	if res := s.DeclineDouble(s.aiConnID(c)); !res.OK {
		s.logger.Warn("ai decline double rejected", zap.String("code", string(res.Code)))
	}
}
