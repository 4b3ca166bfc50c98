// Package game is the real-time orchestration core: sessions, the registry,
// the action state machine, clocks, match scoring and correspondence
// deadlines. Everything mutating a game funnels through one per-session
// lock; everything that can block on I/O runs detached.
package game

// ActionCode classifies why a mutating action failed.
type ActionCode string

// The uniform failure taxonomy returned across the transport boundary.
const (
	CodeNotYourTurn    ActionCode = "not_your_turn"
	CodeGameCompleted  ActionCode = "game_already_completed"
	CodeDoublePending  ActionCode = "double_pending"
	CodeTimeExpired    ActionCode = "time_expired"
	CodeNoLegalMove    ActionCode = "no_matching_legal_move"
	CodeMovesAvailable ActionCode = "moves_still_available"
	CodeNothingToUndo  ActionCode = "nothing_to_undo"
	CodeOutOfSequence  ActionCode = "out_of_sequence"
	CodeNotFound       ActionCode = "not_found"
	CodeUnauthorized   ActionCode = "unauthorized"
	CodeInvalid        ActionCode = "invalid"
)

// ActionResult is the tri-state outcome every mutating operation returns:
// success, typed failure, or success that ended the game.
type ActionResult struct {
	OK       bool
	GameOver bool
	Code     ActionCode
	Message  string
}

// Success returns a plain successful result.
func Success() ActionResult {
	return ActionResult{OK: true}
}

// Finished returns a successful result that decided the game.
func Finished() ActionResult {
	return ActionResult{OK: true, GameOver: true}
}

// Failure returns a typed failure. No state was changed.
func Failure(code ActionCode, msg string) ActionResult {
	return ActionResult{Code: code, Message: msg}
}
