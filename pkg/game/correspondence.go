package game

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tecu23/gammon-server/pkg/bg"
	"github.com/tecu23/gammon-server/pkg/events"
	"github.com/tecu23/gammon-server/pkg/messages"
	"github.com/tecu23/gammon-server/pkg/store"
)

// updateDeadline recomputes the correspondence deadline on every turn
// transition: the new mover gets the full per-move allowance from now.
// During the opening roll-off no single player carries the deadline, so
// TurnPlayerID stays empty while the clock still runs. The write is off
// the action path, so a storage failure costs the match its fresh deadline
// but never the move itself.
func (r *Registry) updateDeadline(s *Session) {
	s.mu.Lock()
	m := s.match
	if m == nil || !m.IsCorrespondence() || m.Done {
		s.mu.Unlock()
		return
	}
	m.TurnPlayerID = ""
	if p := s.players[s.eng.CurrentPlayer()]; p != nil {
		m.TurnPlayerID = p.ID
	}
	m.TurnDeadline = time.Now().Add(m.PerMoveAllowance)
	payload := matchPayload(m)
	s.mu.Unlock()

	r.persistMatch(s)
	s.BroadcastMessage(messages.OutboundMessage{
		Event:   messages.EventMatchUpdate,
		Payload: payload,
	})
	r.publish(events.EventDeadlineSet, s.ID, m.ID.String())
}

// sessionForMatch finds the live session playing a match.
func (r *Registry) sessionForMatch(matchID uuid.UUID) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.sessions {
		if m := s.match; m != nil && m.ID == matchID {
			return s, true
		}
	}
	return nil, false
}

// HandleTimeout settles an expired correspondence deadline: the player who
// let it pass forfeits, the in-flight game finalizes as their resignation,
// and the whole match completes with the opponent as winner. The check is
// idempotent, so an external scheduler may fire it repeatedly; once the
// match is decided or the deadline is still in the future nothing happens.
func (r *Registry) HandleTimeout(ctx context.Context, matchID uuid.UUID) ActionResult {
	if s, ok := r.sessionForMatch(matchID); ok {
		return r.timeoutLiveSession(s)
	}
	return r.timeoutFromStore(ctx, matchID)
}

func (r *Registry) timeoutLiveSession(s *Session) ActionResult {
	s.mu.Lock()
	m := s.match
	if m == nil || m.Done || s.finished {
		s.mu.Unlock()
		return Failure(CodeGameCompleted, "match already decided")
	}
	if m.TurnDeadline.IsZero() || time.Now().Before(m.TurnDeadline) {
		s.mu.Unlock()
		return Failure(CodeOutOfSequence, "deadline has not passed")
	}

	expired := bg.NoColor
	for c, p := range s.players {
		if p != nil && p.ID == m.TurnPlayerID {
			expired = c
		}
	}
	if expired == bg.NoColor && s.eng.IsOpeningRoll() {
		// During the roll-off the deadline falls on whoever still owes a
		// die. When both do, nobody kept the match alive.
		w, rd := s.eng.OpeningRolls()
		switch {
		case w == 0 && rd == 0:
			s.mu.Unlock()
			return r.abandonStalledMatch(s)
		case w == 0:
			expired = bg.White
		default:
			expired = bg.Red
		}
	}
	if expired == bg.NoColor {
		expired = s.eng.CurrentPlayer()
	}
	if expired == bg.NoColor {
		s.mu.Unlock()
		return Failure(CodeOutOfSequence, "no player on turn")
	}

	if err := s.eng.Resign(expired, bg.WinNormal); err != nil {
		s.mu.Unlock()
		return engineFailure(err)
	}
	s.finished = true
	m.Forfeit(expired.Opp())
	s.stopClockTicker()
	s.mu.Unlock()

	r.logger.Info("correspondence deadline forfeits the match",
		zap.String("match_id", m.ID.String()),
		zap.String("color", string(expired)))

	s.BroadcastMessage(messages.OutboundMessage{
		Event: messages.EventPlayerTimedOut,
		Payload: messages.PlayerTimedOutPayload{
			GameID: s.gameID.String(),
			Color:  string(expired),
		},
	})
	r.finishGame(s)
	return Finished()
}

// abandonStalledMatch retires a correspondence match in which neither
// player made their opening roll before the deadline. There is no winner
// to credit; both records close as abandoned.
func (r *Registry) abandonStalledMatch(s *Session) ActionResult {
	s.mu.Lock()
	m := s.match
	s.finished = true
	m.Done = true
	m.TurnPlayerID = ""
	m.TurnDeadline = time.Time{}
	s.stopClockTicker()
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	grec := r.gameRecord(s)
	grec.Status = store.StatusAbandoned
	if err := r.store.SaveGame(ctx, grec); err != nil {
		r.logger.Error("abandon game write failed",
			zap.String("session_id", s.ID.String()), zap.Error(err))
	}
	mrec := r.matchRecord(s)
	mrec.Status = store.StatusAbandoned
	mrec.Winner = ""
	if err := r.store.SaveMatch(ctx, mrec); err != nil {
		r.logger.Error("abandon match write failed",
			zap.String("match_id", m.ID.String()), zap.Error(err))
	}

	r.logger.Info("correspondence match abandoned, neither player rolled",
		zap.String("match_id", m.ID.String()))
	r.Remove(s.ID)
	return Finished()
}

// timeoutFromStore settles the deadline for a match with no live session,
// working directly against the durable records. The outcome matches the
// live path: the expired player's game closes as a resignation and the
// match completes in the opponent's favor.
func (r *Registry) timeoutFromStore(ctx context.Context, matchID uuid.UUID) ActionResult {
	rec, err := r.store.GetMatch(ctx, matchID)
	if err != nil {
		if errors.Is(err, store.ErrMatchNotFound) {
			return Failure(CodeNotFound, "unknown match")
		}
		return Failure(CodeInvalid, err.Error())
	}
	if rec.Status != store.StatusInProgress {
		return Failure(CodeGameCompleted, "match already decided")
	}
	if rec.TurnDeadline == nil || time.Now().Before(*rec.TurnDeadline) {
		return Failure(CodeOutOfSequence, "deadline has not passed")
	}
	if len(rec.GameIDs) == 0 {
		return Failure(CodeInvalid, "match has no games")
	}

	game, err := r.store.GetGame(ctx, rec.GameIDs[len(rec.GameIDs)-1])
	if err != nil {
		return Failure(CodeInvalid, err.Error())
	}

	var winner bg.Color
	switch {
	case rec.CurrentTurnPlayerID == "":
		return Failure(CodeInvalid, "deadline carries no player on turn")
	case rec.CurrentTurnPlayerID == game.WhiteID:
		winner = bg.Red
	case rec.CurrentTurnPlayerID == game.RedID:
		winner = bg.White
	default:
		return Failure(CodeInvalid, "deadline player is not a participant")
	}

	game.Status = store.StatusCompleted
	game.Winner = string(winner)
	game.WinType = bg.WinNormal.String()
	game.Points = 1
	game.State = nil
	game.UpdatedAt = time.Now()
	if err := r.store.SaveGame(ctx, game); err != nil {
		r.logger.Error("timeout game write failed", zap.Error(err))
		return Failure(CodeInvalid, err.Error())
	}

	if winner == bg.White {
		rec.WhiteScore++
	} else {
		rec.RedScore++
	}
	rec.CurrentTurnPlayerID = ""
	rec.TurnDeadline = nil
	rec.Status = store.StatusCompleted
	rec.Winner = string(winner)
	rec.UpdatedAt = time.Now()
	if err := r.store.SaveMatch(ctx, rec); err != nil {
		r.logger.Error("timeout match write failed", zap.Error(err))
		return Failure(CodeInvalid, err.Error())
	}

	r.logger.Info("correspondence match forfeited from store",
		zap.String("match_id", matchID.String()),
		zap.String("winner", string(winner)))
	return Finished()
}
