package bg

import "errors"

// Cube doubling errors.
var (
	ErrCubeDisabled   = errors.New("bg: doubling disabled for this game")
	ErrCubeNotOwned   = errors.New("bg: cube is not available to this player")
	ErrCubeMaxed      = errors.New("bg: cube already at maximum value")
	ErrNoDoubleOffer  = errors.New("bg: no double has been offered")
	ErrDoublePending  = errors.New("bg: a double offer is pending")
	ErrWrongResponder = errors.New("bg: double must be answered by the offered-to player")
)

const maxCubeValue = 64

// Cube tracks the doubling cube: its value, which side owns it (NoColor
// while centered) and a pending offer.
type Cube struct {
	Value     int   `json:"value"`
	Owner     Color `json:"owner"`
	Offered   bool  `json:"offered"`
	OfferedBy Color `json:"offered_by"`
	Disabled  bool  `json:"disabled"`
}

func newCube(disabled bool) Cube {
	return Cube{Value: 1, Owner: NoColor, Disabled: disabled}
}

// mayOffer reports whether c holds offering rights: a centered cube may be
// offered by either side, an owned cube only by its owner.
func (q Cube) mayOffer(c Color) bool {
	return q.Owner == NoColor || q.Owner == c
}
