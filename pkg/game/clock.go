package game

import (
	"time"

	"github.com/tecu23/gammon-server/pkg/bg"
)

// TimeControl configures the reserve/delay discipline for one game: a
// fixed per-player bank plus a grace delay at the start of every turn
// before the bank drains.
type TimeControl struct {
	Reserve time.Duration
	Delay   time.Duration
}

// Enabled reports whether the game is clocked at all.
func (tc TimeControl) Enabled() bool { return tc.Reserve > 0 }

// ReserveForGame seeds one match game's bank from the per-point base so
// the bank tracks the points still needed: a 7-point match at 6-6 gets a
// short game, game one gets the full allotment.
func ReserveForGame(perPoint time.Duration, target, leaderScore int) time.Duration {
	remaining := target - leaderScore
	if remaining < 1 {
		remaining = 1
	}
	return perPoint * time.Duration(remaining)
}

// Snapshot is one consistent reading of both banks. The 1 Hz broadcast and
// the forfeit check consume the same snapshot so a client is never shown
// positive time right before a forfeit.
type Snapshot struct {
	White   time.Duration
	Red     time.Duration
	Active  bg.Color
	InDelay bool
	Expired bool
}

// Clock tracks both players' reserve banks. Consumption is computed lazily
// from the recorded turn-start instant, never from a ticking counter, so
// broadcast and timeout checks cannot drift apart. Clock is not
// concurrency-safe on its own; the owning session's lock guards it.
type Clock struct {
	delay     time.Duration
	banks     [2]time.Duration
	active    bg.Color
	turnStart time.Time
}

// NewClock seeds both banks with the configured reserve.
func NewClock(tc TimeControl) *Clock {
	return &Clock{
		delay:  tc.Delay,
		banks:  [2]time.Duration{tc.Reserve, tc.Reserve},
		active: bg.NoColor,
	}
}

// consumed returns how much of the active player's bank the current turn
// has eaten so far: elapsed time beyond the delay window, floored at zero.
func (c *Clock) consumed(now time.Time) time.Duration {
	if c.active == bg.NoColor {
		return 0
	}
	over := now.Sub(c.turnStart) - c.delay
	if over < 0 {
		return 0
	}
	if over > c.banks[c.active.Index()] {
		return c.banks[c.active.Index()]
	}
	return over
}

// settle commits the active player's consumption into their bank.
func (c *Clock) settle(now time.Time) {
	if c.active == bg.NoColor {
		return
	}
	c.banks[c.active.Index()] -= c.consumed(now)
}

// StartTurn settles the outgoing player and starts color's turn, resetting
// the delay window.
func (c *Clock) StartTurn(color bg.Color, now time.Time) {
	c.settle(now)
	c.active = color
	c.turnStart = now
}

// Stop settles the active player and pauses the clock.
func (c *Clock) Stop(now time.Time) {
	c.settle(now)
	c.active = bg.NoColor
}

// Remaining returns color's bank as of now, never negative.
func (c *Clock) Remaining(color bg.Color, now time.Time) time.Duration {
	r := c.banks[color.Index()]
	if color == c.active {
		r -= c.consumed(now)
	}
	if r < 0 {
		r = 0
	}
	return r
}

// Read takes the shared snapshot used for both broadcasting and the
// forfeit decision.
func (c *Clock) Read(now time.Time) Snapshot {
	s := Snapshot{
		White:  c.Remaining(bg.White, now),
		Red:    c.Remaining(bg.Red, now),
		Active: c.active,
	}
	if c.active != bg.NoColor {
		s.InDelay = now.Sub(c.turnStart) < c.delay
		if c.active == bg.White {
			s.Expired = s.White <= 0
		} else {
			s.Expired = s.Red <= 0
		}
	}
	return s
}
