package game

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tecu23/gammon-server/pkg/bg"
	"github.com/tecu23/gammon-server/pkg/messages"
)

// Mode tags what kind of table a session is.
type Mode string

// Session modes.
const (
	ModeLive           Mode = "live"
	ModeVsAI           Mode = "ai"
	ModeAnalysis       Mode = "analysis"
	ModeCorrespondence Mode = "correspondence"
)

// Rated reports whether completed games in this mode feed the rating
// system.
func (m Mode) Rated() bool {
	return m == ModeLive || m == ModeCorrespondence
}

// Session errors surfaced to join/create flows.
var (
	ErrSessionFull    = errors.New("game: both player slots are taken")
	ErrAlreadyEnded   = errors.New("game: game already ended")
	ErrNotParticipant = errors.New("game: player is not a participant")
)

// Outbound is the transport side of one client connection. SendJSON must
// not block; the websocket layer buffers behind it.
type Outbound interface {
	ConnID() uuid.UUID
	SendJSON(v interface{})
}

// Player is one seat's identity snapshot.
type Player struct {
	ID     string
	Name   string
	Rating int
	IsAI   bool
}

// Session is the in-memory runtime state of one game: engine handle,
// seats, connection sets, match linkage, clock and the single lock that
// serializes every mutation.
type Session struct {
	ID   uuid.UUID
	Mode Mode

	// gameID is the durable record id of the game currently on the board.
	// It starts equal to ID and moves on for each later game of a match.
	gameID uuid.UUID

	eng *bg.Game

	players    map[bg.Color]*Player
	conns      map[bg.Color]map[uuid.UUID]Outbound
	spectators map[uuid.UUID]Outbound

	match *Match
	clock *Clock
	tc    TimeControl
	// perPointReserve reseeds the clock for later games of a match.
	perPointReserve time.Duration

	lastActivity  time.Time
	statsReported bool
	finished      bool

	tickerDone chan struct{}
	tickerStop sync.Once
	roller     bg.DiceRoller

	reg    *Registry
	logger *zap.Logger

	mu sync.Mutex
}

// AddPlayer seats a player, or adds a connection to their existing seat.
// Reconnection is additive: a second tab joins the color's connection set
// rather than replacing it.
func (s *Session) AddPlayer(p Player, conn Outbound) (bg.Color, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addPlayerLocked(p, conn)
}

func (s *Session) addPlayerLocked(p Player, conn Outbound) (bg.Color, error) {
	// Existing seat for this identity wins, regardless of fill order.
	for _, c := range []bg.Color{bg.White, bg.Red} {
		if seat := s.players[c]; seat != nil && seat.ID == p.ID {
			s.attachLocked(c, conn)
			return c, nil
		}
	}
	// Seats fill in order and are never duplicated across colors.
	for _, c := range []bg.Color{bg.White, bg.Red} {
		if s.players[c] == nil {
			seat := p
			s.players[c] = &seat
			s.attachLocked(c, conn)
			return c, nil
		}
	}
	return bg.NoColor, ErrSessionFull
}

// aiOutbound is the synthetic connection behind a computer seat. It gives
// AI actions a connection id so they flow through the same entry points as
// human ones; nothing is ever sent to it.
type aiOutbound struct {
	id uuid.UUID
}

func (a aiOutbound) ConnID() uuid.UUID    { return a.id }
func (a aiOutbound) SendJSON(interface{}) {}

// seatAI fills the next open seat with a computer player.
func (s *Session) seatAI(p Player) bg.Color {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range []bg.Color{bg.White, bg.Red} {
		if s.players[c] == nil {
			seat := p
			seat.IsAI = true
			s.players[c] = &seat
			s.attachLocked(c, aiOutbound{id: uuid.New()})
			return c
		}
	}
	return bg.NoColor
}

func (s *Session) attachLocked(c bg.Color, conn Outbound) {
	if conn == nil {
		return
	}
	id := conn.ConnID()
	// The sets stay pairwise disjoint: a connection is detached from any
	// previous role before it takes a new one.
	s.detachLocked(id)
	s.conns[c][id] = conn
	s.lastActivity = time.Now()
}

// AddSpectator attaches a connection with a read-only view.
func (s *Session) AddSpectator(conn Outbound) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.detachLocked(conn.ConnID())
	s.spectators[conn.ConnID()] = conn
	s.lastActivity = time.Now()
	return len(s.spectators)
}

// DetachConn drops a connection from every set.
func (s *Session) DetachConn(connID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.detachLocked(connID)
}

func (s *Session) detachLocked(connID uuid.UUID) {
	for _, set := range s.conns {
		delete(set, connID)
	}
	delete(s.spectators, connID)
}

// colorOfLocked resolves which seat a connection plays, NoColor for
// spectators and unknown connections.
func (s *Session) colorOfLocked(connID uuid.UUID) bg.Color {
	for c, set := range s.conns {
		if _, ok := set[connID]; ok {
			return c
		}
	}
	return bg.NoColor
}

// PlayerColor resolves a connection's seat.
func (s *Session) PlayerColor(connID uuid.UUID) bg.Color {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.colorOfLocked(connID)
}

// Player returns the seat snapshot for a color, nil when unseated.
func (s *Session) Player(c bg.Color) *Player {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p := s.players[c]; p != nil {
		cp := *p
		return &cp
	}
	return nil
}

// Spectators returns the number of attached spectator connections.
func (s *Session) Spectators() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.spectators)
}

// BothSeated reports whether both colors have a player.
func (s *Session) BothSeated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.players[bg.White] != nil && s.players[bg.Red] != nil
}

// Match returns the session's match linkage, nil for standalone games.
func (s *Session) Match() *Match {
	return s.match
}

// LastActivity returns the idle-sweep timestamp.
func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// Touch refreshes the activity clock.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastActivity = time.Now()
	s.mu.Unlock()
}

// connections returns every attached connection, players first.
func (s *Session) connections() []Outbound {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Outbound
	for _, set := range s.conns {
		for _, conn := range set {
			out = append(out, conn)
		}
	}
	for _, conn := range s.spectators {
		out = append(out, conn)
	}
	return out
}

// connectionsFor returns one color's connection set.
func (s *Session) connectionsFor(c bg.Color) []Outbound {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Outbound
	for _, conn := range s.conns[c] {
		out = append(out, conn)
	}
	return out
}

// BroadcastMessage pushes one payload to every connection.
func (s *Session) BroadcastMessage(msg messages.OutboundMessage) {
	for _, conn := range s.connections() {
		conn.SendJSON(msg)
	}
}

// BroadcastState pushes a per-viewer projection to every connection;
// each viewer sees the legal moves and turn flags for their own seat.
func (s *Session) BroadcastState() {
	for _, conn := range s.connections() {
		view := s.GetState(conn.ConnID())
		conn.SendJSON(messages.OutboundMessage{
			Event:   messages.EventGameUpdate,
			Payload: view,
		})
	}
}
