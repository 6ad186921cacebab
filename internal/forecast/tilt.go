package forecast

// TiltEntry records one bias-corrected forecast skew observation together
// with the regime active when it was taken.
type TiltEntry struct {
	Time   int64   `json:"time"`
	Tilt   float64 `json:"tilt"`
	Regime Regime  `json:"regime"`
}

// tiltHistoryCapacity bounds the per-symbol tilt window feeding the
// contrarian z-score and persistence filters.
const tiltHistoryCapacity = 20
