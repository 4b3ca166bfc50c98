package server

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tecu23/gammon-server/pkg/game"
	"github.com/tecu23/gammon-server/pkg/messages"
)

// InboundHubMessage pairs a decoded client message with the connection
// that sent it.
type InboundHubMessage struct {
	Conn    *Connection
	Message messages.InboundMessage
}

// Hub keeps track of all active connections, registers and unregisters
// them, and routes inbound messages to the right session through the
// registry.
type Hub struct {
	mu          sync.RWMutex
	connections map[*Connection]bool

	register   chan *Connection
	unregister chan *Connection
	inbound    chan InboundHubMessage

	registry *game.Registry
	logger   *zap.Logger
}

// NewHub creates a new hub around the session registry.
func NewHub(registry *game.Registry, logger *zap.Logger) *Hub {
	return &Hub{
		connections: make(map[*Connection]bool),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		inbound:     make(chan InboundHubMessage),
		registry:    registry,
		logger:      logger,
	}
}

// Run is the main execution loop of the hub.
func (h *Hub) Run() {
	for {
		select {
		case conn := <-h.register:
			h.registerConnection(conn)

		case conn := <-h.unregister:
			h.unregisterConnection(conn)

		case msg := <-h.inbound:
			h.handleInbound(msg)
		}
	}
}

// Register queues a connection for registration.
func (h *Hub) Register(conn *Connection) {
	h.register <- conn
}

// Unregister queues a connection for removal.
func (h *Hub) Unregister(conn *Connection) {
	h.unregister <- conn
}

func (h *Hub) registerConnection(conn *Connection) {
	h.mu.Lock()
	h.connections[conn] = true
	total := len(h.connections)
	h.mu.Unlock()

	h.logger.Info("connection registered",
		zap.String("connection_id", conn.ID.String()),
		zap.Int("total", total))

	conn.SendJSON(messages.OutboundMessage{
		Event:   messages.EventConnected,
		Payload: messages.ConnectedPayload{ConnectionId: conn.ID.String()},
	})
}

func (h *Hub) unregisterConnection(conn *Connection) {
	h.mu.Lock()
	if _, ok := h.connections[conn]; ok {
		delete(h.connections, conn)
		conn.closeSend()
	}
	total := len(h.connections)
	h.mu.Unlock()

	h.registry.DetachConnection(conn.ID)
	h.logger.Info("connection unregistered",
		zap.String("connection_id", conn.ID.String()),
		zap.Int("total", total))
}

// handleInbound decodes and routes one client message.
func (h *Hub) handleInbound(msg InboundHubMessage) {
	switch msg.Message.Type {
	case messages.TypeCreateGame:
		h.handleCreateGame(msg)
	case messages.TypeJoinGame:
		h.handleJoinGame(msg)
	case messages.TypeSpectate:
		h.handleSpectate(msg)
	case messages.TypeRollOpening:
		h.withSession(msg.Conn, func(s *game.Session) game.ActionResult {
			return s.RollOpening(msg.Conn.ID)
		})
	case messages.TypeRollDice:
		h.withSession(msg.Conn, func(s *game.Session) game.ActionResult {
			return s.RollDice(msg.Conn.ID)
		})
	case messages.TypeMakeMove:
		h.handleMakeMove(msg)
	case messages.TypeEndTurn:
		h.withSession(msg.Conn, func(s *game.Session) game.ActionResult {
			return s.EndTurn(msg.Conn.ID)
		})
	case messages.TypeUndoMove:
		h.withSession(msg.Conn, func(s *game.Session) game.ActionResult {
			return s.UndoLastMove(msg.Conn.ID)
		})
	case messages.TypeOfferDouble:
		h.withSession(msg.Conn, func(s *game.Session) game.ActionResult {
			return s.OfferDouble(msg.Conn.ID)
		})
	case messages.TypeAcceptDouble:
		h.withSession(msg.Conn, func(s *game.Session) game.ActionResult {
			return s.AcceptDouble(msg.Conn.ID)
		})
	case messages.TypeDeclineDouble:
		h.withSession(msg.Conn, func(s *game.Session) game.ActionResult {
			return s.DeclineDouble(msg.Conn.ID)
		})
	case messages.TypeResign:
		h.withSession(msg.Conn, func(s *game.Session) game.ActionResult {
			return s.Resign(msg.Conn.ID)
		})
	case messages.TypeGetState:
		h.handleGetState(msg)
	case messages.TypeLeaveGame:
		h.registry.DetachConnection(msg.Conn.ID)
	case messages.TypeMatchTimeout:
		h.handleMatchTimeout(msg)
	default:
		h.sendError(msg.Conn, game.CodeInvalid, "unknown message type")
	}
}

func (h *Hub) handleCreateGame(msg InboundHubMessage) {
	var payload messages.CreateGamePayload
	if err := json.Unmarshal(msg.Message.Payload, &payload); err != nil {
		h.sendError(msg.Conn, game.CodeInvalid, "invalid CREATE_GAME payload")
		return
	}
	if payload.PlayerID == "" {
		h.sendError(msg.Conn, game.CodeInvalid, "player_id is required")
		return
	}

	s, err := h.registry.CreateSession(game.CreateParams{
		Player:         game.Player{ID: payload.PlayerID, Name: payload.PlayerName},
		Opponent:       payload.Opponent,
		Target:         payload.MatchTarget,
		Correspondence: payload.Correspondence,
		TimeControl: game.TimeControl{
			Reserve: time.Duration(payload.TimeControl.ReserveSeconds) * time.Second,
			Delay:   time.Duration(payload.TimeControl.DelaySeconds) * time.Second,
		},
	}, msg.Conn)
	if err != nil {
		h.sendError(msg.Conn, game.CodeInvalid, err.Error())
		return
	}

	start := messages.GameStartPayload{GameID: s.ID.String()}
	if m := s.Match(); m != nil {
		start.MatchID = m.ID.String()
	}
	msg.Conn.SendJSON(messages.OutboundMessage{
		Event:   messages.EventGameStart,
		Payload: start,
	})
	if !s.BothSeated() {
		msg.Conn.SendJSON(messages.OutboundMessage{
			Event:   messages.EventWaitingForOpponent,
			Payload: messages.WaitingPayload{GameID: s.ID.String()},
		})
	}
	msg.Conn.SendJSON(messages.OutboundMessage{
		Event:   messages.EventGameUpdate,
		Payload: s.GetState(msg.Conn.ID),
	})
}

func (h *Hub) handleJoinGame(msg InboundHubMessage) {
	var payload messages.JoinGamePayload
	if err := json.Unmarshal(msg.Message.Payload, &payload); err != nil {
		h.sendError(msg.Conn, game.CodeInvalid, "invalid JOIN_GAME payload")
		return
	}
	id, err := uuid.Parse(payload.GameID)
	if err != nil {
		h.sendError(msg.Conn, game.CodeInvalid, "game_id is not a valid id")
		return
	}

	s, _, err := h.registry.JoinOrLoad(context.Background(), id, game.Player{
		ID:   payload.PlayerID,
		Name: payload.PlayerName,
	}, msg.Conn)
	if err != nil {
		h.sendError(msg.Conn, joinErrorCode(err), err.Error())
		return
	}

	s.BroadcastState()
}

func (h *Hub) handleSpectate(msg InboundHubMessage) {
	var payload messages.JoinGamePayload
	if err := json.Unmarshal(msg.Message.Payload, &payload); err != nil {
		h.sendError(msg.Conn, game.CodeInvalid, "invalid SPECTATE payload")
		return
	}
	id, err := uuid.Parse(payload.GameID)
	if err != nil {
		h.sendError(msg.Conn, game.CodeInvalid, "game_id is not a valid id")
		return
	}

	s, err := h.registry.AddSpectator(id, msg.Conn)
	if err != nil {
		h.sendError(msg.Conn, game.CodeNotFound, err.Error())
		return
	}

	s.BroadcastMessage(messages.OutboundMessage{
		Event: messages.EventSpectatorJoined,
		Payload: messages.SpectatorJoinedPayload{
			GameID:     s.ID.String(),
			Spectators: s.Spectators(),
		},
	})
	msg.Conn.SendJSON(messages.OutboundMessage{
		Event:   messages.EventGameUpdate,
		Payload: s.GetState(msg.Conn.ID),
	})
}

func (h *Hub) handleMakeMove(msg InboundHubMessage) {
	var payload messages.MakeMovePayload
	if err := json.Unmarshal(msg.Message.Payload, &payload); err != nil {
		h.sendError(msg.Conn, game.CodeInvalid, "invalid MAKE_MOVE payload")
		return
	}
	h.withSession(msg.Conn, func(s *game.Session) game.ActionResult {
		if len(payload.Waypoints) > 0 {
			return s.MakeCombinedMove(msg.Conn.ID, payload.From, payload.To, payload.Waypoints)
		}
		return s.MakeMove(msg.Conn.ID, payload.From, payload.To)
	})
}

func (h *Hub) handleGetState(msg InboundHubMessage) {
	s, ok := h.registry.LookupByConnection(msg.Conn.ID)
	if !ok {
		h.sendError(msg.Conn, game.CodeNotFound, "connection has no game")
		return
	}
	msg.Conn.SendJSON(messages.OutboundMessage{
		Event:   messages.EventGameUpdate,
		Payload: s.GetState(msg.Conn.ID),
	})
}

func (h *Hub) handleMatchTimeout(msg InboundHubMessage) {
	var payload messages.MatchTimeoutPayload
	if err := json.Unmarshal(msg.Message.Payload, &payload); err != nil {
		h.sendError(msg.Conn, game.CodeInvalid, "invalid MATCH_TIMEOUT payload")
		return
	}
	id, err := uuid.Parse(payload.MatchID)
	if err != nil {
		h.sendError(msg.Conn, game.CodeInvalid, "match_id is not a valid id")
		return
	}
	if res := h.registry.HandleTimeout(context.Background(), id); !res.OK && !res.GameOver {
		h.sendError(msg.Conn, res.Code, res.Message)
	}
}

// withSession resolves the caller's session and applies an action,
// reporting typed failures back on the same connection.
func (h *Hub) withSession(conn *Connection, fn func(*game.Session) game.ActionResult) {
	s, ok := h.registry.LookupByConnection(conn.ID)
	if !ok {
		h.sendError(conn, game.CodeNotFound, "connection has no game")
		return
	}
	if res := fn(s); !res.OK && !res.GameOver {
		h.sendError(conn, res.Code, res.Message)
	}
}

func (h *Hub) sendError(conn *Connection, code game.ActionCode, msg string) {
	conn.SendJSON(messages.OutboundMessage{
		Event: messages.EventError,
		Payload: messages.ErrorPayload{
			Code:    string(code),
			Message: msg,
		},
	})
}

func joinErrorCode(err error) game.ActionCode {
	switch err {
	case game.ErrSessionNotFound:
		return game.CodeNotFound
	case game.ErrAlreadyEnded:
		return game.CodeGameCompleted
	case game.ErrNotParticipant, game.ErrSessionFull:
		return game.CodeUnauthorized
	default:
		return game.CodeInvalid
	}
}
