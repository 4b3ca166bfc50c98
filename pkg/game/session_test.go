package game

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tecu23/gammon-server/pkg/ai"
	"github.com/tecu23/gammon-server/pkg/bg"
	"github.com/tecu23/gammon-server/pkg/events"
	"github.com/tecu23/gammon-server/pkg/messages"
	"github.com/tecu23/gammon-server/pkg/stats"
	"github.com/tecu23/gammon-server/pkg/store"
)

// fakeConn records every push it receives.
type fakeConn struct {
	id   uuid.UUID
	mu   sync.Mutex
	msgs []messages.OutboundMessage
}

func newFakeConn() *fakeConn {
	return &fakeConn{id: uuid.New()}
}

func (f *fakeConn) ConnID() uuid.UUID { return f.id }

func (f *fakeConn) SendJSON(v interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := v.(messages.OutboundMessage); ok {
		f.msgs = append(f.msgs, m)
	}
}

// eventCount returns how many pushes of one event the connection has seen.
func (f *fakeConn) eventCount(event string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, m := range f.msgs {
		if m.Event == event {
			n++
		}
	}
	return n
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	logger := zap.NewNop()
	return NewRegistry(Deps{
		Logger:                  logger,
		Store:                   store.NewMemory(),
		Stats:                   stats.NewMemory(),
		Publisher:               events.NewPublisher(),
		Tasks:                   NewRunner(logger),
		Chooser:                 ai.NewGreedy(),
		GraceWindow:             time.Hour,
		CorrespondenceAllowance: time.Hour,
	})
}

// startLiveGame builds a two-human session with a scripted opening so
// White ends up on turn holding dice 5 and 3.
func startLiveGame(t *testing.T, r *Registry, extra ...[2]int) (*Session, *fakeConn, *fakeConn) {
	t.Helper()
	rolls := append([][2]int{{5, 1}, {3, 1}}, extra...)
	roller := bg.NewScriptedRoller(rolls...)

	white := newFakeConn()
	s, err := r.CreateSession(CreateParams{
		Player:   Player{ID: "p-white", Name: "Ada"},
		Opponent: OpponentHuman,
		Roller:   roller,
	}, white)
	require.NoError(t, err)

	red := newFakeConn()
	_, color, err := r.JoinOrLoad(context.Background(), s.ID, Player{ID: "p-red", Name: "Grace"}, red)
	require.NoError(t, err)
	require.Equal(t, bg.Red, color)

	require.True(t, s.RollOpening(white.id).OK)
	require.True(t, s.RollOpening(red.id).OK)
	r.tasks.Wait()

	require.Equal(t, bg.White, s.eng.CurrentPlayer())
	require.Equal(t, []int{5, 3}, s.eng.Dice())
	return s, white, red
}

func TestReconnectionIsAdditive(t *testing.T) {
	r := newTestRegistry(t)
	s, white, _ := startLiveGame(t, r)

	// A second tab for the same identity joins the seat instead of
	// replacing the first connection.
	tab := newFakeConn()
	_, color, err := r.JoinOrLoad(context.Background(), s.ID, Player{ID: "p-white", Name: "Ada"}, tab)
	require.NoError(t, err)
	assert.Equal(t, bg.White, color)

	s.BroadcastState()
	assert.Greater(t, white.eventCount(messages.EventGameUpdate), 0)
	assert.Greater(t, tab.eventCount(messages.EventGameUpdate), 0)
}

func TestConnectionRolesStayDisjoint(t *testing.T) {
	r := newTestRegistry(t)
	s, white, _ := startLiveGame(t, r)

	// Re-attaching a player connection as a spectator removes it from the
	// seat first.
	s.AddSpectator(white)
	assert.Equal(t, bg.NoColor, s.PlayerColor(white.id))

	view := s.GetState(white.id)
	assert.Empty(t, view.ViewerColor)
	assert.False(t, view.YourTurn)
	assert.Equal(t, 1, view.Spectators)
}

func TestDetachLeavesOtherTabsAttached(t *testing.T) {
	r := newTestRegistry(t)
	s, white, _ := startLiveGame(t, r)

	tab := newFakeConn()
	_, _, err := r.JoinOrLoad(context.Background(), s.ID, Player{ID: "p-white", Name: "Ada"}, tab)
	require.NoError(t, err)

	r.DetachConnection(white.id)
	assert.Equal(t, bg.NoColor, s.PlayerColor(white.id))
	assert.Equal(t, bg.White, s.PlayerColor(tab.id))
}

func TestSpectatorViewHidesTurnFlags(t *testing.T) {
	r := newTestRegistry(t)
	s, _, _ := startLiveGame(t, r)

	watcher := newFakeConn()
	_, err := r.AddSpectator(s.ID, watcher)
	require.NoError(t, err)

	view := s.GetState(watcher.id)
	assert.False(t, view.YourTurn)
	assert.Equal(t, string(bg.White), view.CurrentPlayer)
	assert.NotEmpty(t, view.LegalMoves)
}

func TestAnalysisBoardDrivesBothSides(t *testing.T) {
	r := newTestRegistry(t)
	conn := newFakeConn()
	s, err := r.CreateSession(CreateParams{
		Player:   Player{ID: "p-solo", Name: "Ada"},
		Opponent: OpponentSelf,
		Roller:   bg.NewScriptedRoller([2]int{6, 6}),
	}, conn)
	require.NoError(t, err)

	// No roll-off on an analysis board; White is already on turn.
	assert.False(t, s.eng.IsOpeningRoll())
	require.True(t, s.RollDice(conn.id).OK)
	assert.Equal(t, []int{6, 6, 6, 6}, s.eng.Dice())
}

func TestAnalysisBoardAnswersOwnDouble(t *testing.T) {
	r := newTestRegistry(t)
	conn := newFakeConn()
	s, err := r.CreateSession(CreateParams{
		Player:   Player{ID: "p-solo", Name: "Ada"},
		Opponent: OpponentSelf,
		Roller:   bg.NewScriptedRoller([2]int{6, 6}),
	}, conn)
	require.NoError(t, err)

	// The single connection offers for White and, while the offer is
	// open, acts for the answering side rather than the offerer.
	require.True(t, s.OfferDouble(conn.id).OK)
	require.True(t, s.AcceptDouble(conn.id).OK)

	cube := s.eng.Cube()
	assert.Equal(t, 2, cube.Value)
	assert.Equal(t, bg.Red, cube.Owner)

	// Play resumes for the offerer once the cube is taken.
	assert.True(t, s.RollDice(conn.id).OK)
}

func TestAnalysisBoardDeclinesOwnDouble(t *testing.T) {
	r := newTestRegistry(t)
	conn := newFakeConn()
	s, err := r.CreateSession(CreateParams{
		Player:   Player{ID: "p-solo", Name: "Ada"},
		Opponent: OpponentSelf,
	}, conn)
	require.NoError(t, err)

	require.True(t, s.OfferDouble(conn.id).OK)
	res := s.DeclineDouble(conn.id)
	require.True(t, res.GameOver)

	winner, over := s.eng.Winner()
	require.True(t, over)
	assert.Equal(t, bg.White, winner)
}
