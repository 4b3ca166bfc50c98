package server

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/tecu23/gammon-server/pkg/events"
	"github.com/tecu23/gammon-server/pkg/messages"
)

// Connection is one client websocket. It satisfies the game layer's
// Outbound interface, so sessions can push to it without knowing about
// websockets.
type Connection struct {
	ID      uuid.UUID
	ws      *websocket.Conn
	hub     *Hub
	send    chan []byte // Buffered channel of outbound messages.
	writeMu sync.Mutex  // Mutex to protect concurrent writes to ws.

	closeMu sync.Mutex
	closed  bool

	publisher *events.Publisher
	logger    *zap.Logger
}

// NewConnection wraps an upgraded websocket.
func NewConnection(
	ws *websocket.Conn,
	hub *Hub,
	publisher *events.Publisher,
	logger *zap.Logger,
) *Connection {
	return &Connection{
		ID:        uuid.New(),
		ws:        ws,
		hub:       hub,
		send:      make(chan []byte, 256), // buffered for outgoing messages
		publisher: publisher,
		logger:    logger,
	}
}

// ConnID returns the connection's stable identifier.
func (c *Connection) ConnID() uuid.UUID { return c.ID }

// ReadPump handles inbound messages from the client. When the socket
// drops, the closed-connection event detaches it from its session.
func (c *Connection) ReadPump() {
	defer func() {
		c.publisher.Publish(events.Event{
			Type:    events.EventConnectionClosed,
			Payload: c.ID,
		})
		c.hub.Unregister(c)
		c.ws.Close()
	}()

	for {
		msgType, msg, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Error("read error", zap.Error(err))
			}
			break
		}

		// We only handle text frames.
		if msgType != websocket.TextMessage {
			continue
		}
		var inbound messages.InboundMessage
		if err := json.Unmarshal(msg, &inbound); err != nil {
			c.logger.Error("failed to parse inbound JSON", zap.Error(err))
			continue
		}
		c.hub.inbound <- InboundHubMessage{Conn: c, Message: inbound}
	}
}

// WritePump handles outbound messages to the client.
func (c *Connection) WritePump() {
	defer func() {
		c.ws.Close()
	}()

	for {
		message, ok := <-c.send
		if !ok {
			c.logger.Info("send channel closed for connection",
				zap.String("connection_id", c.ID.String()))
			return
		}
		c.writeMu.Lock()
		err := c.ws.WriteMessage(websocket.TextMessage, message)
		c.writeMu.Unlock()
		if err != nil {
			c.logger.Error("write error", zap.Error(err))
			return
		}
	}
}

// SendJSON queues one payload for this connection. It never blocks the
// session that is pushing; a client too slow to drain its buffer loses
// the frame and can recover with GET_STATE.
func (c *Connection) SendJSON(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		c.logger.Error("error marshaling JSON", zap.Error(err))
		return
	}

	c.closeMu.Lock()
	defer c.closeMu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- data:
	default:
		c.logger.Warn("send buffer full, dropping frame",
			zap.String("connection_id", c.ID.String()))
	}
}

// closeSend shuts the outbound queue exactly once. Session broadcasts
// racing with an unregister see the closed flag instead of a panic.
func (c *Connection) closeSend() {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}
