package game

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tecu23/gammon-server/pkg/bg"
	"github.com/tecu23/gammon-server/pkg/events"
	"github.com/tecu23/gammon-server/pkg/messages"
	"github.com/tecu23/gammon-server/pkg/stats"
	"github.com/tecu23/gammon-server/pkg/store"
)

// finishGame is the completion coordinator: it settles a decided game in a
// fixed order. The final record is written before anything is broadcast,
// stats are recorded at most once per game, and a match either advances to
// its next game or keeps the session for a grace window. Standalone games
// retire the session immediately.
func (r *Registry) finishGame(s *Session) {
	s.mu.Lock()
	winner, over := s.eng.Winner()
	if !over {
		s.mu.Unlock()
		return
	}
	winType, points := s.eng.Result()
	gameID := s.gameID
	reportStats := s.Mode.Rated() && !s.statsReported
	s.statsReported = true
	var winnerID, loserID string
	if p := s.players[winner]; p != nil {
		winnerID = p.ID
	}
	if p := s.players[winner.Opp()]; p != nil {
		loserID = p.ID
	}
	match := s.match
	s.mu.Unlock()

	// Durable record first, broadcast second.
	r.persistSession(s)

	if reportStats && winnerID != "" && loserID != "" {
		if err := r.stats.RecordResult(context.Background(), stats.GameResult{
			GameID:   gameID.String(),
			WinnerID: winnerID,
			LoserID:  loserID,
			Points:   points,
		}); err != nil {
			r.logger.Error("stats record failed",
				zap.String("game_id", gameID.String()), zap.Error(err))
		}
	}

	s.BroadcastMessage(messages.OutboundMessage{
		Event: messages.EventGameOver,
		Payload: messages.GameOverPayload{
			GameID:  gameID.String(),
			Winner:  string(winner),
			WinType: winType.String(),
			Points:  points,
		},
	})
	s.BroadcastState()
	r.publish(events.EventGameOver, s.ID, string(winner))
	r.logger.Info("game decided",
		zap.String("game_id", gameID.String()),
		zap.String("winner", string(winner)),
		zap.String("win_type", winType.String()),
		zap.Int("points", points))

	if match == nil {
		// A standalone game has nothing to continue into; the session goes
		// away with the result. The grace window is for match games.
		r.Remove(s.ID)
		return
	}
	r.settleMatchGame(s, winner, points)
}

// settleMatchGame applies a decided game to its match, persists and
// broadcasts the new standings, and either starts the next game or ends
// the match.
func (r *Registry) settleMatchGame(s *Session, winner bg.Color, points int) {
	s.mu.Lock()
	m := s.match
	m.RecordGame(winner, points)
	done := m.Done
	next := uuid.New()
	if !done {
		m.GameIDs = append(m.GameIDs, next)
	}
	payload := matchPayload(m)
	s.mu.Unlock()

	r.persistMatch(s)
	s.BroadcastMessage(messages.OutboundMessage{
		Event:   messages.EventMatchUpdate,
		Payload: payload,
	})
	r.publish(events.EventMatchUpdated, s.ID, m.ID.String())

	if done {
		r.logger.Info("match decided",
			zap.String("match_id", m.ID.String()),
			zap.String("winner", string(m.Winner)))
		r.retireAfterGrace(s)
		return
	}
	r.startNextGame(s, next)
}

// startNextGame resets the board for the following game of the match. The
// same session and seats carry over; the game record, clock bank and
// ticker are fresh. The Crawford game is played without the cube.
func (r *Registry) startNextGame(s *Session, gameID uuid.UUID) {
	s.mu.Lock()
	var opts []bg.Option
	if s.roller != nil {
		opts = append(opts, bg.WithRoller(s.roller))
	}
	if s.match.Crawford {
		opts = append(opts, bg.WithCubeDisabled())
	}
	s.eng = bg.NewGame(opts...)
	s.gameID = gameID
	s.finished = false
	s.statsReported = false
	s.lastActivity = time.Now()

	if s.tc.Enabled() && !s.match.IsCorrespondence() {
		leader := s.match.Scores[s.match.Leader()]
		seeded := s.tc
		seeded.Reserve = ReserveForGame(s.perPointReserve, s.match.Target, leader)
		s.clock = NewClock(seeded)
	}
	s.tickerDone = make(chan struct{})
	s.tickerStop = sync.Once{}
	s.mu.Unlock()

	r.persistSession(s)
	s.startClockTicker()
	s.BroadcastMessage(messages.OutboundMessage{
		Event: messages.EventGameStart,
		Payload: messages.GameStartPayload{
			GameID:   gameID.String(),
			MatchID:  s.match.ID.String(),
			Crawford: s.match.Crawford,
		},
	})
	s.BroadcastState()
	if s.match.IsCorrespondence() {
		// The roll-off of the new game is on the clock too.
		r.updateDeadline(s)
	}
	r.logger.Info("next match game started",
		zap.String("match_id", s.match.ID.String()),
		zap.String("game_id", gameID.String()))
}

// retireAfterGrace keeps a finished session visible for the grace window
// so late readers still get the final position, then removes it.
func (r *Registry) retireAfterGrace(s *Session) {
	time.AfterFunc(r.graceWindow, func() {
		r.Remove(s.ID)
	})
}

func matchPayload(m *Match) messages.MatchUpdatePayload {
	p := messages.MatchUpdatePayload{
		MatchID:    m.ID.String(),
		Target:     m.Target,
		WhiteScore: m.Scores[bg.White],
		RedScore:   m.Scores[bg.Red],
		Crawford:   m.Crawford,
		Done:       m.Done,
		Winner:     string(m.Winner),
	}
	if !m.TurnDeadline.IsZero() {
		p.DeadlineUnix = m.TurnDeadline.Unix()
	}
	return p
}

// matchRecord projects a session's match into its durable record.
func (r *Registry) matchRecord(s *Session) store.MatchRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.match
	rec := store.MatchRecord{
		ID:         m.ID,
		Target:     m.Target,
		WhiteScore: m.Scores[bg.White],
		RedScore:   m.Scores[bg.Red],
		Crawford:   m.Crawford,
		GameIDs:    append([]uuid.UUID(nil), m.GameIDs...),
		Status:     store.StatusInProgress,
		UpdatedAt:  time.Now(),

		CurrentTurnPlayerID: m.TurnPlayerID,
	}
	if !m.TurnDeadline.IsZero() {
		dl := m.TurnDeadline
		rec.TurnDeadline = &dl
	}
	if m.Done {
		rec.Status = store.StatusCompleted
		rec.Winner = string(m.Winner)
	}
	return rec
}

// persistMatch writes the match record, logging and dropping failures.
func (r *Registry) persistMatch(s *Session) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.store.SaveMatch(ctx, r.matchRecord(s)); err != nil {
		r.logger.Error("match record write failed",
			zap.String("match_id", s.match.ID.String()), zap.Error(err))
	}
}
