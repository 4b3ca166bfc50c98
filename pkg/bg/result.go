package bg

// WinType classifies how decisive a finished game was.
type WinType int

// Win classifications in increasing order of severity.
const (
	WinNormal WinType = iota + 1
	WinGammon
	WinBackgammon
)

// Multiplier returns the stake multiplier for the win type.
func (w WinType) Multiplier() int {
	switch w {
	case WinGammon:
		return 2
	case WinBackgammon:
		return 3
	default:
		return 1
	}
}

func (w WinType) String() string {
	switch w {
	case WinGammon:
		return "gammon"
	case WinBackgammon:
		return "backgammon"
	default:
		return "normal"
	}
}

// ClassifyStakes recovers the win type from a final point value and the cube
// value it was multiplied by, for records that only store the totals.
func ClassifyStakes(points, cubeValue int) WinType {
	if cubeValue < 1 {
		cubeValue = 1
	}
	switch points / cubeValue {
	case 3:
		return WinBackgammon
	case 2:
		return WinGammon
	default:
		return WinNormal
	}
}
