package bg

import (
	"math/rand"
	"sync"
	"time"
)

// DiceRoller produces one roll of two dice. The engine never calls
// math/rand directly so games can be replayed deterministically.
type DiceRoller interface {
	Roll() (int, int)
}

type randRoller struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomRoller returns a time-seeded roller, the default for live games.
func NewRandomRoller() DiceRoller {
	return &randRoller{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (r *randRoller) Roll() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Intn(6) + 1, r.rng.Intn(6) + 1
}

// ScriptedRoller replays a fixed sequence of rolls and is used by tests and
// analysis replays. Once the script is exhausted it repeats the last roll.
type ScriptedRoller struct {
	mu    sync.Mutex
	rolls [][2]int
	next  int
}

// NewScriptedRoller builds a roller that yields the given rolls in order.
func NewScriptedRoller(rolls ...[2]int) *ScriptedRoller {
	return &ScriptedRoller{rolls: rolls}
}

// Push appends rolls to the script.
func (s *ScriptedRoller) Push(a, b int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rolls = append(s.rolls, [2]int{a, b})
}

func (s *ScriptedRoller) Roll() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.rolls) == 0 {
		return 1, 2
	}
	r := s.rolls[s.next]
	if s.next < len(s.rolls)-1 {
		s.next++
	}
	return r[0], r[1]
}
