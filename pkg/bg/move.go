package bg

// Pseudo-points used in Move.From and Move.To. Each color enters from its
// own bar point and bears off onto its own off point.
const (
	BarWhite = 25
	OffWhite = 0
	BarRed   = 0
	OffRed   = 25
)

// BarPoint returns the bar pseudo-point for color c.
func BarPoint(c Color) int {
	if c == White {
		return BarWhite
	}
	return BarRed
}

// OffPoint returns the bear-off pseudo-point for color c.
func OffPoint(c Color) int {
	if c == White {
		return OffWhite
	}
	return OffRed
}

// Move is a single-die checker move.
type Move struct {
	From int  `json:"from"`
	To   int  `json:"to"`
	Die  int  `json:"die"`
	Hit  bool `json:"hit"`
}

// CombinedMove is a multi-hop move using two or more dice, presented to
// clients as one origin/destination pair with the intermediate landing
// points spelled out.
type CombinedMove struct {
	From      int   `json:"from"`
	To        int   `json:"to"`
	Waypoints []int `json:"waypoints"`
	Hits      int   `json:"hits"`
}

// legalMovesForDie enumerates every legal single move for color c playing
// die d on board b. Checkers on the bar must enter before anything else
// moves.
func legalMovesForDie(b Board, c Color, d int) []Move {
	var moves []Move

	if b.Bar[c.Index()] > 0 {
		var to int
		if c == White {
			to = 25 - d
		} else {
			to = d
		}
		if !b.Blocked(to, c) {
			moves = append(moves, Move{
				From: BarPoint(c),
				To:   to,
				Die:  d,
				Hit:  b.Count(to, c.Opp()) == 1,
			})
		}
		return moves
	}

	for p := 1; p <= 24; p++ {
		if b.Count(p, c) == 0 {
			continue
		}

		var to int
		if c == White {
			to = p - d
		} else {
			to = p + d
		}

		if to >= 1 && to <= 24 {
			if !b.Blocked(to, c) {
				moves = append(moves, Move{
					From: p,
					To:   to,
					Die:  d,
					Hit:  b.Count(to, c.Opp()) == 1,
				})
			}
			continue
		}

		// Bear-off: exact distance always works once everyone is home;
		// overshooting is allowed only from the rearmost occupied point.
		if !b.AllHome(c) {
			continue
		}
		exact := (c == White && to == 0) || (c == Red && to == 25)
		if exact || !b.hasCheckerBehind(p, c) {
			moves = append(moves, Move{From: p, To: OffPoint(c), Die: d})
		}
	}
	return moves
}

// legalMoves enumerates the legal single moves for c with the given
// remaining dice.
func legalMoves(b Board, c Color, dice []int) []Move {
	var moves []Move
	seen := map[int]bool{}
	for _, d := range dice {
		if seen[d] {
			continue
		}
		seen[d] = true
		moves = append(moves, legalMovesForDie(b, c, d)...)
	}
	return moves
}

// applyMove mutates b with an already-validated move and reports whether a
// blot was hit.
func applyMove(b *Board, c Color, m Move) {
	switch m.From {
	case BarPoint(c):
		b.Bar[c.Index()]--
	default:
		b.add(m.From, c, -1)
	}

	if m.To == OffPoint(c) {
		b.Off[c.Index()]++
		return
	}

	if m.Hit {
		b.add(m.To, c.Opp(), -1)
		b.Bar[c.Opp().Index()]++
	}
	b.add(m.To, c, 1)
}

// undoMove reverses applyMove.
func undoMove(b *Board, c Color, m Move) {
	if m.To == OffPoint(c) {
		b.Off[c.Index()]--
	} else {
		b.add(m.To, c, -1)
		if m.Hit {
			b.Bar[c.Opp().Index()]--
			b.add(m.To, c.Opp(), 1)
		}
	}

	if m.From == BarPoint(c) {
		b.Bar[c.Index()]++
	} else {
		b.add(m.From, c, 1)
	}
}

// combinedMoves enumerates multi-hop sequences for c over the remaining
// dice. Sequences are keyed by (from, to, waypoints) so permutations of
// doubles do not produce duplicates.
func combinedMoves(b Board, c Color, dice []int) []CombinedMove {
	if len(dice) < 2 {
		return nil
	}

	var out []CombinedMove
	seen := map[string]bool{}

	var walk func(board Board, remaining []int, from, cur int, waypoints []int, hits int)
	walk = func(board Board, remaining []int, from, cur int, waypoints []int, hits int) {
		if len(waypoints) > 0 {
			key := seqKey(from, cur, waypoints)
			if !seen[key] {
				seen[key] = true
				out = append(out, CombinedMove{
					From:      from,
					To:        cur,
					Waypoints: append([]int(nil), waypoints...),
					Hits:      hits,
				})
			}
		}
		if cur == OffPoint(c) {
			return
		}
		tried := map[int]bool{}
		for i, d := range remaining {
			if tried[d] {
				continue
			}
			tried[d] = true
			for _, m := range legalMovesForDie(board, c, d) {
				if m.From != cur {
					continue
				}
				next := board
				applyMove(&next, c, m)
				rest := append(append([]int(nil), remaining[:i]...), remaining[i+1:]...)
				h := hits
				if m.Hit {
					h++
				}
				walk(next, rest, from, m.To, append(waypoints, cur), h)
			}
		}
	}

	// Seed with every legal first hop; waypoints accumulate from the
	// second hop on.
	tried := map[int]bool{}
	for i, d := range dice {
		if tried[d] {
			continue
		}
		tried[d] = true
		for _, m := range legalMovesForDie(b, c, d) {
			next := b
			applyMove(&next, c, m)
			rest := append(append([]int(nil), dice[:i]...), dice[i+1:]...)
			h := 0
			if m.Hit {
				h = 1
			}
			walk(next, rest, m.From, m.To, nil, h)
		}
	}
	return out
}

func seqKey(from, to int, waypoints []int) string {
	key := []byte{byte(from), byte(to)}
	for _, w := range waypoints {
		key = append(key, byte(w))
	}
	return string(key)
}
