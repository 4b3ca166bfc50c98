package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tecu23/gammon-server/pkg/bg"
)

// HintMove is one ranked suggestion from the hint service.
type HintMove struct {
	Rank     int     `json:"rank"`
	Notation string  `json:"notation"`
	Equity   float64 `json:"equity"`
}

// Client talks to the gnubg hint service over HTTP.
type Client struct {
	baseURL string
	plies   int
	httpc   *http.Client
}

// NewClient creates a hint-service client. plies controls gnubg's search
// depth; 2 is the service default.
func NewClient(baseURL string, plies int, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		plies:   plies,
		httpc:   &http.Client{Timeout: timeout},
	}
}

type hintRequest struct {
	Position string `json:"position"`
	Dice     [2]int `json:"dice"`
	Player   string `json:"player"`
	Plies    int    `json:"plies"`
}

type hintResponse struct {
	Moves []HintMove `json:"moves"`
	Error string     `json:"error"`
}

// Hint asks the service to rank plays for the given position and dice.
func (c *Client) Hint(ctx context.Context, position string, dice [2]int, onRoll bg.Color) ([]HintMove, error) {
	player := "O"
	if onRoll == bg.Red {
		player = "X"
	}
	body, err := json.Marshal(hintRequest{
		Position: position,
		Dice:     dice,
		Player:   player,
		Plies:    c.plies,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/hint-native", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("hint request: %w", err)
	}
	defer resp.Body.Close()

	var parsed hintResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode hint response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("hint service: %s", parsed.Error)
	}
	return parsed.Moves, nil
}

// PositionID encodes a board as gnubg's 14-character base64 position key:
// per side, each of points 1..24 (own perspective) then the bar contributes
// that many 1-bits followed by a 0-bit, packed LSB-first. The side on roll
// is written first.
func PositionID(b bg.Board, onRoll bg.Color) string {
	var bits []bool
	appendSide := func(c bg.Color) {
		for own := 1; own <= 24; own++ {
			p := own
			if c == bg.Red {
				p = 25 - own
			}
			for i := 0; i < b.Count(p, c); i++ {
				bits = append(bits, true)
			}
			bits = append(bits, false)
		}
		for i := 0; i < b.Bar[c.Index()]; i++ {
			bits = append(bits, true)
		}
		bits = append(bits, false)
	}
	appendSide(onRoll)
	appendSide(onRoll.Opp())

	key := make([]byte, 10)
	for i, set := range bits {
		if set {
			key[i/8] |= 1 << (i % 8)
		}
	}
	return base64.StdEncoding.EncodeToString(key)[:14]
}

// ParseNotation converts a gnubg move string like "bar/22 13/8*" or
// "6/off(2)" into single-die moves in board coordinates for color c. gnubg
// numbers points from the mover's own perspective, which matches board
// coordinates for White and mirrors them for Red.
func ParseNotation(notation string, c bg.Color) ([]bg.Move, error) {
	var moves []bg.Move
	for _, token := range strings.Fields(notation) {
		repeat := 1
		if i := strings.Index(token, "("); i >= 0 {
			j := strings.Index(token, ")")
			if j < i {
				return nil, fmt.Errorf("malformed token %q", token)
			}
			n, err := strconv.Atoi(token[i+1 : j])
			if err != nil {
				return nil, fmt.Errorf("malformed repeat in %q", token)
			}
			repeat = n
			token = token[:i]
		}

		hit := strings.HasSuffix(token, "*")
		token = strings.TrimSuffix(token, "*")

		parts := strings.Split(token, "/")
		if len(parts) < 2 {
			return nil, fmt.Errorf("malformed token %q", token)
		}

		// Chains like 13/8/5 are consecutive hops of one checker.
		for k := 0; k < len(parts)-1; k++ {
			from, err := parsePoint(parts[k], c, true)
			if err != nil {
				return nil, err
			}
			to, err := parsePoint(parts[k+1], c, false)
			if err != nil {
				return nil, err
			}
			m := bg.Move{From: from, To: to, Hit: hit && k == len(parts)-2}
			for r := 0; r < repeat; r++ {
				moves = append(moves, m)
			}
		}
	}
	return moves, nil
}

func parsePoint(s string, c bg.Color, from bool) (int, error) {
	switch strings.ToLower(s) {
	case "bar":
		if !from {
			return 0, fmt.Errorf("bar is not a destination")
		}
		return bg.BarPoint(c), nil
	case "off":
		if from {
			return 0, fmt.Errorf("off is not an origin")
		}
		return bg.OffPoint(c), nil
	}
	p, err := strconv.Atoi(s)
	if err != nil || p < 1 || p > 24 {
		return 0, fmt.Errorf("bad point %q", s)
	}
	if c == bg.Red {
		p = 25 - p
	}
	return p, nil
}
