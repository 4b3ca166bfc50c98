package bg

// Board holds checker positions. Points are numbered 1..24 from White's
// perspective: White travels from 24 toward 1 and bears off past 1, Red
// travels from 1 toward 24 and bears off past 24. A positive count is White
// checkers on the point, a negative count is Red checkers.
//
// Board is a value type; copying it copies the whole position, which the
// move generator relies on.
type Board struct {
	Points [25]int // index 0 unused
	Bar    [2]int  // indexed by Color.Index
	Off    [2]int
}

// NewBoard returns the standard starting position, 15 checkers per side.
func NewBoard() Board {
	var b Board
	b.Points[24] = 2
	b.Points[13] = 5
	b.Points[8] = 3
	b.Points[6] = 5

	b.Points[1] = -2
	b.Points[12] = -5
	b.Points[17] = -3
	b.Points[19] = -5
	return b
}

// Count returns how many checkers of color c sit on point p.
func (b Board) Count(p int, c Color) int {
	n := b.Points[p]
	if c == White {
		if n > 0 {
			return n
		}
		return 0
	}
	if n < 0 {
		return -n
	}
	return 0
}

// Blocked reports whether color c cannot land on point p because the
// opponent holds it with two or more checkers.
func (b Board) Blocked(p int, c Color) bool {
	return b.Count(p, c.Opp()) >= 2
}

// PipCount is the total distance color c still has to travel: checkers on
// each point times that point's distance to home, plus 25 per checker on
// the bar.
func (b Board) PipCount(c Color) int {
	total := b.Bar[c.Index()] * 25
	for p := 1; p <= 24; p++ {
		n := b.Count(p, c)
		if n == 0 {
			continue
		}
		if c == White {
			total += n * p
		} else {
			total += n * (25 - p)
		}
	}
	return total
}

// AllHome reports whether every checker of c is in its home board or borne
// off, the precondition for bearing off.
func (b Board) AllHome(c Color) bool {
	if b.Bar[c.Index()] > 0 {
		return false
	}
	if c == White {
		for p := 7; p <= 24; p++ {
			if b.Count(p, c) > 0 {
				return false
			}
		}
		return true
	}
	for p := 1; p <= 18; p++ {
		if b.Count(p, c) > 0 {
			return false
		}
	}
	return true
}

// hasCheckerBehind reports whether c has a checker farther from home than
// point p, used for the bear-off overshoot rule.
func (b Board) hasCheckerBehind(p int, c Color) bool {
	if c == White {
		for q := p + 1; q <= 6; q++ {
			if b.Count(q, c) > 0 {
				return true
			}
		}
		return false
	}
	for q := 19; q < p; q++ {
		if b.Count(q, c) > 0 {
			return true
		}
	}
	return false
}

// inHomeOf reports whether point p lies inside color c's home board.
func inHomeOf(p int, c Color) bool {
	if c == White {
		return p >= 1 && p <= 6
	}
	return p >= 19 && p <= 24
}

func (b *Board) add(p int, c Color, n int) {
	if c == White {
		b.Points[p] += n
	} else {
		b.Points[p] -= n
	}
}
