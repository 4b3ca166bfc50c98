package game

import (
	"time"

	"github.com/google/uuid"

	"github.com/tecu23/gammon-server/pkg/bg"
)

// SeatView is one seat as shown to clients.
type SeatView struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Rating int    `json:"rating"`
	IsAI   bool   `json:"is_ai"`
}

// BoardView is the checker layout as shown to clients. Positive point
// counts are White checkers, negative are Red.
type BoardView struct {
	Points   [25]int `json:"points"`
	WhiteBar int     `json:"white_bar"`
	RedBar   int     `json:"red_bar"`
	WhiteOff int     `json:"white_off"`
	RedOff   int     `json:"red_off"`
}

// CubeView is the doubling cube as shown to clients.
type CubeView struct {
	Value     int    `json:"value"`
	Owner     string `json:"owner,omitempty"`
	Offered   bool   `json:"offered"`
	OfferedBy string `json:"offered_by,omitempty"`
	Disabled  bool   `json:"disabled"`
}

// MatchView summarizes match standing inside a game view.
type MatchView struct {
	MatchID      string `json:"match_id"`
	Target       int    `json:"target"`
	WhiteScore   int    `json:"white_score"`
	RedScore     int    `json:"red_score"`
	Crawford     bool   `json:"crawford"`
	DeadlineUnix int64  `json:"deadline_unix,omitempty"`
}

// ClockView is the reserve clock as shown to clients.
type ClockView struct {
	WhiteReserveMs int64 `json:"white_reserve_ms"`
	RedReserveMs   int64 `json:"red_reserve_ms"`
	InDelay        bool  `json:"in_delay"`
}

// ViewState is one viewer's projection of a session.
type ViewState struct {
	GameID string `json:"game_id"`
	Mode   string `json:"mode"`

	ViewerColor string `json:"viewer_color,omitempty"`
	YourTurn    bool   `json:"your_turn"`

	IsOpeningRoll bool   `json:"is_opening_roll"`
	CurrentPlayer string `json:"current_player,omitempty"`
	Dice          []int  `json:"dice,omitempty"`

	Board         BoardView         `json:"board"`
	LegalMoves    []bg.Move         `json:"legal_moves,omitempty"`
	CombinedMoves []bg.CombinedMove `json:"combined_moves,omitempty"`

	WhitePips int `json:"white_pips"`
	RedPips   int `json:"red_pips"`

	Cube CubeView `json:"cube"`

	Winner      string `json:"winner,omitempty"`
	WinType     string `json:"win_type,omitempty"`
	Points      int    `json:"points,omitempty"`
	ResultClass string `json:"result_class,omitempty"`

	White *SeatView `json:"white,omitempty"`
	Red   *SeatView `json:"red,omitempty"`

	Match      *MatchView `json:"match,omitempty"`
	Clock      *ClockView `json:"clock,omitempty"`
	Spectators int        `json:"spectators"`
}

// GetState projects the session for one viewer: their seat, whether they
// are on turn, the legal single and combined moves with hit annotations,
// pip counts and the result classification of a finished game. It mutates
// nothing and is safe to call from any number of viewers concurrently.
func (s *Session) GetState(viewerConn uuid.UUID) ViewState {
	s.mu.Lock()
	defer s.mu.Unlock()

	viewer := s.colorOfLocked(viewerConn)
	board := s.eng.Board()

	view := ViewState{
		GameID:        s.ID.String(),
		Mode:          string(s.Mode),
		ViewerColor:   string(viewer),
		IsOpeningRoll: s.eng.IsOpeningRoll(),
		CurrentPlayer: string(s.eng.CurrentPlayer()),
		Dice:          s.eng.Dice(),
		WhitePips:     board.PipCount(bg.White),
		RedPips:       board.PipCount(bg.Red),
		Spectators:    len(s.spectators),
	}

	view.Board = BoardView{
		Points:   board.Points,
		WhiteBar: board.Bar[bg.White.Index()],
		RedBar:   board.Bar[bg.Red.Index()],
		WhiteOff: board.Off[bg.White.Index()],
		RedOff:   board.Off[bg.Red.Index()],
	}

	switch {
	case s.Mode == ModeAnalysis:
		// A self-play board drives both sides.
		view.YourTurn = viewer != bg.NoColor
	case s.eng.IsOpeningRoll():
		w, r := s.eng.OpeningRolls()
		view.YourTurn = (viewer == bg.White && w == 0) || (viewer == bg.Red && r == 0)
	default:
		view.YourTurn = viewer != bg.NoColor && viewer == s.eng.CurrentPlayer()
	}

	view.LegalMoves = s.eng.LegalMoves()
	view.CombinedMoves = s.eng.CombinedMoves()

	cube := s.eng.Cube()
	view.Cube = CubeView{
		Value:     cube.Value,
		Owner:     string(cube.Owner),
		Offered:   cube.Offered,
		OfferedBy: string(cube.OfferedBy),
		Disabled:  cube.Disabled,
	}

	if winner, over := s.eng.Winner(); over {
		winType, points := s.eng.Result()
		view.Winner = string(winner)
		view.WinType = winType.String()
		view.Points = points
		view.ResultClass = bg.ClassifyStakes(points, cube.Value).String()
	}

	if p := s.players[bg.White]; p != nil {
		view.White = &SeatView{ID: p.ID, Name: p.Name, Rating: p.Rating, IsAI: p.IsAI}
	}
	if p := s.players[bg.Red]; p != nil {
		view.Red = &SeatView{ID: p.ID, Name: p.Name, Rating: p.Rating, IsAI: p.IsAI}
	}

	if s.match != nil {
		mv := &MatchView{
			MatchID:    s.match.ID.String(),
			Target:     s.match.Target,
			WhiteScore: s.match.Scores[bg.White],
			RedScore:   s.match.Scores[bg.Red],
			Crawford:   s.match.Crawford,
		}
		if !s.match.TurnDeadline.IsZero() {
			mv.DeadlineUnix = s.match.TurnDeadline.Unix()
		}
		view.Match = mv
	}

	if s.clock != nil {
		snap := s.clock.Read(time.Now())
		view.Clock = &ClockView{
			WhiteReserveMs: snap.White.Milliseconds(),
			RedReserveMs:   snap.Red.Milliseconds(),
			InDelay:        snap.InDelay,
		}
	}

	return view
}
