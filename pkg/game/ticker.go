package game

import (
	"time"

	"go.uber.org/zap"

	"github.com/tecu23/gammon-server/pkg/bg"
	"github.com/tecu23/gammon-server/pkg/messages"
)

// startClockTicker begins the 1 Hz clock loop for a timed game. The loop
// reads the clock and broadcasts; it never mutates game state except
// through forfeitOnTime.
func (s *Session) startClockTicker() {
	if s.clock == nil {
		return
	}
	// Capture the stop channel: later match games install a fresh one and
	// the old loop must keep honoring its own.
	done := s.tickerDone
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case now := <-ticker.C:
				if s.tickClock(now) {
					return
				}
			}
		}
	}()
}

// stopClockTicker shuts the loop down; safe to call more than once.
func (s *Session) stopClockTicker() {
	s.tickerStop.Do(func() {
		if s.tickerDone != nil {
			close(s.tickerDone)
		}
	})
}

// tickClock takes one snapshot, broadcasts it, and forfeits the active
// player if the snapshot shows an empty bank. The same snapshot feeds both
// so clients never see positive time right before a forfeit. Returns true
// once the game is over and the loop should exit.
func (s *Session) tickClock(now time.Time) bool {
	s.mu.Lock()
	if s.finished || s.clock == nil {
		s.mu.Unlock()
		return true
	}
	snap := s.clock.Read(now)
	s.mu.Unlock()

	if snap.Active != bg.NoColor {
		s.BroadcastMessage(messages.OutboundMessage{
			Event: messages.EventTimeUpdate,
			Payload: messages.TimeUpdatePayload{
				GameID:         s.ID.String(),
				WhiteReserveMs: snap.White.Milliseconds(),
				RedReserveMs:   snap.Red.Milliseconds(),
				ActiveColor:    string(snap.Active),
				InDelay:        snap.InDelay,
			},
		})
	}

	if snap.Expired {
		return s.forfeitOnTime(snap.Active)
	}
	return false
}

// forfeitOnTime ends the game against the expired player. The finished
// flag makes a second expiry observation a no-op, so concurrent or
// repeated checks forfeit at most once.
func (s *Session) forfeitOnTime(expired bg.Color) bool {
	s.mu.Lock()
	if s.finished {
		s.mu.Unlock()
		return true
	}
	if err := s.eng.Resign(expired, bg.WinNormal); err != nil {
		// The game was decided between snapshot and forfeit.
		s.mu.Unlock()
		return true
	}
	s.finished = true
	s.clock.Stop(time.Now())
	s.stopClockTicker()
	s.mu.Unlock()

	s.logger.Info("player forfeited on time",
		zap.String("session_id", s.ID.String()),
		zap.String("color", string(expired)))

	s.BroadcastMessage(messages.OutboundMessage{
		Event: messages.EventPlayerTimedOut,
		Payload: messages.PlayerTimedOutPayload{
			GameID: s.ID.String(),
			Color:  string(expired),
		},
	})
	s.dispatch(effects{finished: true})
	return true
}
