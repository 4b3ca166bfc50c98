package messages

import "encoding/json"

// InboundMessage is the generic wrapper for messages coming from the client.
// The "type" field tells us the action; "payload" is the data we parse further.
type InboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Inbound message types.
const (
	TypeCreateGame    = "CREATE_GAME"
	TypeJoinGame      = "JOIN_GAME"
	TypeRollOpening   = "ROLL_OPENING"
	TypeRollDice      = "ROLL_DICE"
	TypeMakeMove      = "MAKE_MOVE"
	TypeEndTurn       = "END_TURN"
	TypeUndoMove      = "UNDO_MOVE"
	TypeOfferDouble   = "OFFER_DOUBLE"
	TypeAcceptDouble  = "ACCEPT_DOUBLE"
	TypeDeclineDouble = "DECLINE_DOUBLE"
	TypeResign        = "RESIGN"
	TypeSpectate      = "SPECTATE"
	TypeGetState      = "GET_STATE"
	TypeLeaveGame     = "LEAVE_GAME"
	TypeMatchTimeout  = "MATCH_TIMEOUT"
)

// CreateGamePayload represents the payload for creating a new game
type CreateGamePayload struct {
	PlayerID   string `json:"player_id"`
	PlayerName string `json:"player_name"`
	// Opponent is "human", "ai" or "self" (analysis board).
	Opponent string `json:"opponent"`
	// MatchTarget above zero makes this a match; zero is a single game.
	MatchTarget int `json:"match_target"`
	// Correspondence switches the match to per-move deadlines instead of
	// a live clock.
	Correspondence bool `json:"correspondence"`
	TimeControl    struct {
		ReserveSeconds int `json:"reserve_seconds"`
		DelaySeconds   int `json:"delay_seconds"`
	} `json:"time_control"`
}

// JoinGamePayload represents the payload for joining an existing game
type JoinGamePayload struct {
	GameID     string `json:"game_id"`
	PlayerID   string `json:"player_id"`
	PlayerName string `json:"player_name"`
}

// MakeMovePayload represents the payload for moving a checker. A move with
// waypoints is applied hop by hop, all-or-nothing.
type MakeMovePayload struct {
	From      int   `json:"from"`
	To        int   `json:"to"`
	Waypoints []int `json:"waypoints,omitempty"`
}

// MatchTimeoutPayload asks the server to resolve an expired correspondence
// deadline.
type MatchTimeoutPayload struct {
	MatchID string `json:"match_id"`
}
