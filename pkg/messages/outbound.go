package messages

// OutboundMessage is how we wrap responses before sending
// them to the client
type OutboundMessage struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"payload"`
}

// Outbound event names, one per push the core produces.
const (
	EventConnected          = "CONNECTED"
	EventGameStart          = "GAME_START"
	EventGameUpdate         = "GAME_UPDATE"
	EventGameOver           = "GAME_OVER"
	EventDoubleOffered      = "DOUBLE_OFFERED"
	EventDoubleAccepted     = "DOUBLE_ACCEPTED"
	EventTimeUpdate         = "TIME_UPDATE"
	EventMatchUpdate        = "MATCH_UPDATE"
	EventSpectatorJoined    = "SPECTATOR_JOINED"
	EventWaitingForOpponent = "WAITING_FOR_OPPONENT"
	EventPlayerTimedOut     = "PLAYER_TIMED_OUT"
	EventError              = "ERROR"
)

type ConnectedPayload struct {
	ConnectionId string `json:"connection_id"`
}

// ErrorPayload carries a typed action failure back to the client.
type ErrorPayload struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// GameOverPayload announces a decided game.
type GameOverPayload struct {
	GameID  string `json:"game_id"`
	Winner  string `json:"winner"`
	WinType string `json:"win_type"`
	Points  int    `json:"points"`
	Reason  string `json:"reason,omitempty"`
}

// TimeUpdatePayload is the 1 Hz clock broadcast.
type TimeUpdatePayload struct {
	GameID         string `json:"game_id"`
	WhiteReserveMs int64  `json:"white_reserve_ms"`
	RedReserveMs   int64  `json:"red_reserve_ms"`
	ActiveColor    string `json:"active_color"`
	InDelay        bool   `json:"in_delay"`
}

// DoubleOfferedPayload announces a pending cube offer.
type DoubleOfferedPayload struct {
	GameID    string `json:"game_id"`
	OfferedBy string `json:"offered_by"`
	NewValue  int    `json:"new_value"`
}

// DoubleAcceptedPayload announces an accepted cube.
type DoubleAcceptedPayload struct {
	GameID    string `json:"game_id"`
	Owner     string `json:"owner"`
	CubeValue int    `json:"cube_value"`
}

// MatchUpdatePayload carries running match state after a game completes.
type MatchUpdatePayload struct {
	MatchID      string `json:"match_id"`
	Target       int    `json:"target"`
	WhiteScore   int    `json:"white_score"`
	RedScore     int    `json:"red_score"`
	Crawford     bool   `json:"crawford"`
	Done         bool   `json:"done"`
	Winner       string `json:"winner,omitempty"`
	DeadlineUnix int64  `json:"deadline_unix,omitempty"`
}

// GameStartPayload announces a game coming on the board, either the first
// of a session or the next one of a match.
type GameStartPayload struct {
	GameID   string `json:"game_id"`
	MatchID  string `json:"match_id,omitempty"`
	Crawford bool   `json:"crawford"`
}

// SpectatorJoinedPayload announces a new spectator to the table.
type SpectatorJoinedPayload struct {
	GameID     string `json:"game_id"`
	Spectators int    `json:"spectators"`
}

// WaitingPayload tells the creator their game has no opponent yet.
type WaitingPayload struct {
	GameID string `json:"game_id"`
}

// PlayerTimedOutPayload announces a forfeit on time.
type PlayerTimedOutPayload struct {
	GameID string `json:"game_id"`
	Color  string `json:"color"`
}
