package severity

// Level is an ordered risk rating shared by the keyword scorer and the
// clinical assessment interpreter. Higher numeric value means higher risk.
type Level int

const (
	Normal   Level = 0
	Moderate Level = 5
	High     Level = 7
	Critical Level = 10
)

func (l Level) String() string {
	switch l {
	case Critical:
		return "CRITICAL"
	case High:
		return "HIGH"
	case Moderate:
		return "MODERATE"
	default:
		return "NORMAL"
	}
}

// Max returns the higher of two levels. Independent trigger paths (keyword
// scan, assessment cut point) combine by taking the maximum, never an average.
func Max(a, b Level) Level {
	if a > b {
		return a
	}
	return b
}
