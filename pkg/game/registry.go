package game

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tecu23/gammon-server/pkg/ai"
	"github.com/tecu23/gammon-server/pkg/bg"
	"github.com/tecu23/gammon-server/pkg/events"
	"github.com/tecu23/gammon-server/pkg/stats"
	"github.com/tecu23/gammon-server/pkg/store"
)

// Registry lookup errors.
var (
	ErrSessionNotFound = errors.New("game: session not found")
	ErrDuplicateID     = errors.New("game: session id already in use")
)

// Deps bundles the registry's collaborators.
type Deps struct {
	Logger    *zap.Logger
	Store     store.Store
	Stats     stats.Recorder
	Publisher *events.Publisher
	Tasks     *Runner
	Chooser   ai.Chooser

	// GraceWindow keeps a decided match game around so both players can
	// see the result before the session is retired.
	GraceWindow time.Duration
	// CorrespondenceAllowance is the per-move budget for async matches.
	CorrespondenceAllowance time.Duration
}

// Registry owns every live session and the connection-to-session index.
// Both indexes mutate under one lock so a lookup never observes a session
// in one and not the other.
type Registry struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
	byConn   map[uuid.UUID]uuid.UUID

	logger    *zap.Logger
	store     store.Store
	stats     stats.Recorder
	publisher *events.Publisher
	tasks     *Runner
	chooser   ai.Chooser

	graceWindow       time.Duration
	correspondenceDur time.Duration
}

// NewRegistry wires a registry and subscribes it to connection-closed
// events so dropped sockets are detached from their sessions.
func NewRegistry(d Deps) *Registry {
	r := &Registry{
		sessions:          make(map[uuid.UUID]*Session),
		byConn:            make(map[uuid.UUID]uuid.UUID),
		logger:            d.Logger,
		store:             d.Store,
		stats:             d.Stats,
		publisher:         d.Publisher,
		tasks:             d.Tasks,
		chooser:           d.Chooser,
		graceWindow:       d.GraceWindow,
		correspondenceDur: d.CorrespondenceAllowance,
	}
	if r.graceWindow <= 0 {
		r.graceWindow = 5 * time.Minute
	}
	if r.publisher != nil {
		r.publisher.Subscribe(events.EventConnectionClosed, func(ev events.Event) {
			if id, ok := ev.Payload.(uuid.UUID); ok {
				r.DetachConnection(id)
			}
		})
	}
	return r
}

// CreateParams describes a new game request.
type CreateParams struct {
	Player   Player
	Opponent string // "human", "ai" or "self"
	Target   int    // match length in points; 0 or 1 for a single game

	Correspondence bool
	TimeControl    TimeControl

	// ID is optional; uuid.Nil generates one. Roller is optional and
	// exists for deterministic play.
	ID     uuid.UUID
	Roller bg.DiceRoller
}

// Opponent kinds accepted by CreateSession.
const (
	OpponentHuman = "human"
	OpponentAI    = "ai"
	OpponentSelf  = "self"
)

// CreateSession builds a session, seats the creator as White, and links
// both registry indexes. An AI opponent is seated immediately; an analysis
// board skips the opening roll-off and puts White on turn.
func (r *Registry) CreateSession(p CreateParams, conn Outbound) (*Session, error) {
	id := p.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	mode := ModeLive
	switch {
	case p.Opponent == OpponentSelf:
		mode = ModeAnalysis
	case p.Opponent == OpponentAI:
		mode = ModeVsAI
	case p.Correspondence:
		mode = ModeCorrespondence
	}

	s := r.newSession(id, mode, p)

	r.mu.Lock()
	if _, taken := r.sessions[id]; taken {
		r.mu.Unlock()
		return nil, ErrDuplicateID
	}
	r.sessions[id] = s
	if conn != nil {
		r.byConn[conn.ConnID()] = id
	}
	r.mu.Unlock()

	if _, err := s.AddPlayer(p.Player, conn); err != nil {
		return nil, err
	}
	switch p.Opponent {
	case OpponentAI:
		s.seatAI(Player{ID: "ai:" + id.String(), Name: "Computer", IsAI: true})
	case OpponentSelf:
		// The creator drives both sides; the red seat mirrors them.
		s.mu.Lock()
		seat := p.Player
		s.players[bg.Red] = &seat
		s.mu.Unlock()
	}

	s.startClockTicker()

	r.publish(events.EventSessionCreated, id, nil)
	r.persistSession(s)
	if s.match != nil && s.match.IsCorrespondence() {
		// The allowance runs from creation; the opening roll-off is not
		// exempt from the deadline.
		r.updateDeadline(s)
	}
	r.logger.Info("session created",
		zap.String("session_id", id.String()),
		zap.String("mode", string(mode)),
		zap.String("opponent", p.Opponent),
		zap.Int("target", p.Target))
	return s, nil
}

func (r *Registry) newSession(id uuid.UUID, mode Mode, p CreateParams) *Session {
	var opts []bg.Option
	if p.Roller != nil {
		opts = append(opts, bg.WithRoller(p.Roller))
	}
	if mode == ModeAnalysis {
		opts = append(opts, bg.WithOpeningCompleted(bg.White))
	}

	var match *Match
	if p.Target > 1 {
		match = NewMatch(p.Target)
		match.GameIDs = append(match.GameIDs, id)
		if p.Correspondence {
			match.PerMoveAllowance = r.correspondenceDur
		}
	}

	var clock *Clock
	tc := p.TimeControl
	if tc.Enabled() && !p.Correspondence {
		seeded := tc
		if match != nil {
			seeded.Reserve = ReserveForGame(tc.Reserve, match.Target, 0)
		}
		clock = NewClock(seeded)
	}

	return &Session{
		ID:              id,
		gameID:          id,
		Mode:            mode,
		eng:             bg.NewGame(opts...),
		players:         make(map[bg.Color]*Player),
		conns:           map[bg.Color]map[uuid.UUID]Outbound{bg.White: {}, bg.Red: {}},
		spectators:      make(map[uuid.UUID]Outbound),
		match:           match,
		clock:           clock,
		tc:              tc,
		perPointReserve: tc.Reserve,
		lastActivity:    time.Now(),
		tickerDone:      make(chan struct{}),
		roller:          p.Roller,
		reg:             r,
		logger:          r.logger,
	}
}

// Lookup returns a live session by id.
func (r *Registry) Lookup(id uuid.UUID) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// LookupByConnection resolves the session a connection is attached to.
func (r *Registry) LookupByConnection(connID uuid.UUID) (*Session, bool) {
	r.mu.RLock()
	id, ok := r.byConn[connID]
	if !ok {
		r.mu.RUnlock()
		return nil, false
	}
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	return s, ok
}

// JoinOrLoad attaches a player to a game: additively to a live session, or
// by reviving the session from its durable record. Unknown ids, finished
// games and non-participants each fail with their own error so clients can
// tell the cases apart.
func (r *Registry) JoinOrLoad(ctx context.Context, gameID uuid.UUID, p Player, conn Outbound) (*Session, bg.Color, error) {
	if s, ok := r.Lookup(gameID); ok {
		color, err := s.AddPlayer(p, conn)
		if err != nil {
			return nil, bg.NoColor, err
		}
		r.indexConn(conn, gameID)
		r.publish(events.EventPlayerJoined, gameID, p.ID)
		return s, color, nil
	}

	rec, err := r.store.GetGame(ctx, gameID)
	if err != nil {
		if errors.Is(err, store.ErrGameNotFound) {
			return nil, bg.NoColor, ErrSessionNotFound
		}
		return nil, bg.NoColor, err
	}
	if rec.Status != store.StatusInProgress {
		return nil, bg.NoColor, ErrAlreadyEnded
	}
	if !rec.HasPlayer(p.ID) {
		return nil, bg.NoColor, ErrNotParticipant
	}

	s, err := r.reviveSession(ctx, rec)
	if err != nil {
		return nil, bg.NoColor, err
	}
	color, err := s.AddPlayer(p, conn)
	if err != nil {
		return nil, bg.NoColor, err
	}
	r.indexConn(conn, gameID)
	r.publish(events.EventPlayerJoined, gameID, p.ID)
	return s, color, nil
}

// AddSpectator attaches a read-only connection to a live session.
func (r *Registry) AddSpectator(gameID uuid.UUID, conn Outbound) (*Session, error) {
	s, ok := r.Lookup(gameID)
	if !ok {
		return nil, ErrSessionNotFound
	}
	s.AddSpectator(conn)
	r.indexConn(conn, gameID)
	return s, nil
}

// reviveSession rebuilds a session from its durable record with an empty
// connection set. The position resumes from the record's engine snapshot;
// records written without one restart at the opening roll.
func (r *Registry) reviveSession(ctx context.Context, rec store.GameRecord) (*Session, error) {
	s := r.newSession(rec.ID, Mode(rec.Mode), CreateParams{})
	if len(rec.State) > 0 {
		var st bg.State
		if err := json.Unmarshal(rec.State, &st); err != nil {
			r.logger.Warn("engine snapshot unreadable, restarting position",
				zap.String("game_id", rec.ID.String()), zap.Error(err))
		} else {
			s.eng = bg.Restore(st)
		}
	}
	if rec.WhiteID != "" {
		seat := Player{ID: rec.WhiteID, Name: rec.WhiteName}
		s.players[bg.White] = &seat
	}
	if rec.RedID != "" {
		seat := Player{ID: rec.RedID, Name: rec.RedName, IsAI: rec.Mode == string(ModeVsAI)}
		s.players[bg.Red] = &seat
	}
	if rec.MatchID != uuid.Nil {
		if mrec, err := r.store.GetMatch(ctx, rec.MatchID); err == nil {
			s.match = matchFromRecord(mrec, r.correspondenceDur)
		} else {
			r.logger.Warn("match record missing for revived game",
				zap.String("game_id", rec.ID.String()),
				zap.String("match_id", rec.MatchID.String()),
				zap.Error(err))
		}
	}

	r.mu.Lock()
	if existing, ok := r.sessions[rec.ID]; ok {
		// Another connection revived it first.
		r.mu.Unlock()
		return existing, nil
	}
	r.sessions[rec.ID] = s
	r.mu.Unlock()

	s.startClockTicker()
	r.logger.Info("session revived from store", zap.String("session_id", rec.ID.String()))
	return s, nil
}

func matchFromRecord(rec store.MatchRecord, allowance time.Duration) *Match {
	m := NewMatch(rec.Target)
	m.ID = rec.ID
	m.Scores[bg.White] = rec.WhiteScore
	m.Scores[bg.Red] = rec.RedScore
	m.Crawford = rec.Crawford
	m.GameIDs = append(m.GameIDs, rec.GameIDs...)
	m.TurnPlayerID = rec.CurrentTurnPlayerID
	if rec.TurnDeadline != nil {
		m.TurnDeadline = *rec.TurnDeadline
		m.PerMoveAllowance = allowance
	}
	if rec.Status == store.StatusCompleted {
		m.Done = true
		m.Winner = bg.Color(rec.Winner)
	}
	return m
}

// indexConn links a connection to a session, replacing any stale link.
func (r *Registry) indexConn(conn Outbound, sessionID uuid.UUID) {
	if conn == nil {
		return
	}
	r.mu.Lock()
	r.byConn[conn.ConnID()] = sessionID
	r.mu.Unlock()
}

// DetachConnection drops a connection from its session and the index.
func (r *Registry) DetachConnection(connID uuid.UUID) {
	r.mu.Lock()
	id, ok := r.byConn[connID]
	delete(r.byConn, connID)
	s := r.sessions[id]
	r.mu.Unlock()
	if ok && s != nil {
		s.DetachConn(connID)
	}
}

// Remove retires a session, dropping it from both indexes atomically.
func (r *Registry) Remove(id uuid.UUID) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	for connID, sid := range r.byConn {
		if sid == id {
			delete(r.byConn, connID)
		}
	}
	r.mu.Unlock()
	if !ok {
		return
	}
	s.mu.Lock()
	s.stopClockTicker()
	s.mu.Unlock()
	r.publish(events.EventSessionRetired, id, nil)
	r.logger.Info("session retired", zap.String("session_id", id.String()))
}

// SweepIdle retires sessions with no activity inside maxIdle.
// Correspondence matches are exempt; their pace is the deadline's job.
func (r *Registry) SweepIdle(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	// Snapshot first: session locks are only taken once the registry lock
	// is released.
	r.mu.RLock()
	candidates := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		if s.Mode == ModeCorrespondence {
			continue
		}
		candidates = append(candidates, s)
	}
	r.mu.RUnlock()

	var stale []*Session
	for _, s := range candidates {
		if s.LastActivity().Before(cutoff) {
			stale = append(stale, s)
		}
	}

	for _, s := range stale {
		s.mu.Lock()
		abandoned := !s.finished
		s.mu.Unlock()
		if abandoned {
			r.markAbandoned(s)
		}
		r.Remove(s.ID)
	}
	return len(stale)
}

func (r *Registry) markAbandoned(s *Session) {
	rec := r.gameRecord(s)
	rec.Status = store.StatusAbandoned
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.store.SaveGame(ctx, rec); err != nil {
		r.logger.Error("abandon write failed",
			zap.String("session_id", s.ID.String()), zap.Error(err))
	}
}

// WarmReload revives every in-progress game from the store with empty
// connection sets, so players can rejoin after a restart.
func (r *Registry) WarmReload(ctx context.Context) error {
	recs, err := r.store.ListInProgress(ctx)
	if err != nil {
		return err
	}
	for _, rec := range recs {
		if _, err := r.reviveSession(ctx, rec); err != nil {
			r.logger.Warn("warm reload skipped game",
				zap.String("game_id", rec.ID.String()), zap.Error(err))
		}
	}
	r.logger.Info("warm reload complete", zap.Int("games", len(recs)))
	return nil
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *Registry) publish(t events.EventType, sessionID uuid.UUID, payload interface{}) {
	if r.publisher == nil {
		return
	}
	r.publisher.Publish(events.Event{Type: t, SessionID: sessionID.String(), Payload: payload})
}

// gameRecord projects a session into its durable record.
func (r *Registry) gameRecord(s *Session) store.GameRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := store.GameRecord{
		ID:        s.gameID,
		Mode:      string(s.Mode),
		Status:    store.StatusInProgress,
		UpdatedAt: time.Now(),
	}
	if s.match != nil {
		rec.MatchID = s.match.ID
	}
	if p := s.players[bg.White]; p != nil {
		rec.WhiteID, rec.WhiteName = p.ID, p.Name
	}
	if p := s.players[bg.Red]; p != nil {
		rec.RedID, rec.RedName = p.ID, p.Name
	}
	if winner, over := s.eng.Winner(); over {
		wt, pts := s.eng.Result()
		rec.Status = store.StatusCompleted
		rec.Winner = string(winner)
		rec.WinType = wt.String()
		rec.Points = pts
	} else if snapshot, err := json.Marshal(s.eng.Save()); err == nil {
		rec.State = snapshot
	}
	return rec
}

// persistSession writes the session's current game record; failures are
// logged and dropped, never surfaced to the player.
func (r *Registry) persistSession(s *Session) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.store.SaveGame(ctx, r.gameRecord(s)); err != nil {
		r.logger.Error("game record write failed",
			zap.String("session_id", s.ID.String()), zap.Error(err))
	}
}
